package persistence

import "github.com/scaregistry/backend/internal/infrastructure/persistence/models"

// Models lists every table this service owns
func Models() []any {
	return []any{
		&models.CaseDocumentModel{},
		&models.UserModel{},
		&models.OutboxEntryModel{},
	}
}
