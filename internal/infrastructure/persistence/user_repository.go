package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormUserRepository creates a new GormUserRepository. outbox may be nil.
func NewGormUserRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormUserRepository {
	return &GormUserRepository{db: db, outbox: outbox}
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByPrincipal finds the profile bound to an identity-provider principal
func (r *GormUserRepository) FindByPrincipal(ctx context.Context, principalID string) (*identity.User, error) {
	if principalID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.UserModel
	if err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists users with pagination
func (r *GormUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*identity.User, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&models.UserModel{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	if filter.PageSize <= 0 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}
	var rows []*models.UserModel
	if err := query.
		Order(orderClause(filter, UserSortFields)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError(err)
	}

	users := make([]*identity.User, len(rows))
	for i, m := range rows {
		users[i] = m.ToDomain()
	}
	return users, total, nil
}

// Save inserts a new profile or updates an existing one when its stored
// version matches. Pending events are written to the outbox in the same
// transaction and cleared on success.
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	bumped := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.UserModel
		err := tx.Select("id", "version").First(&stored, "id = ?", user.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(model).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			result := tx.Model(&models.UserModel{}).
				Where("id = ? AND version = ?", user.ID, user.Version).
				Updates(map[string]any{
					"email":        model.Email,
					"display_name": model.DisplayName,
					"role":         model.Role,
					"is_active":    model.IsActive,
					"version":      gorm.Expr("version + 1"),
					"updated_at":   time.Now(),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConflict
			}
			bumped = true
		}
		return r.saveEvents(ctx, tx, user.GetDomainEvents())
	})
	if err != nil {
		return translateError(err)
	}
	if bumped {
		user.IncrementVersion()
	}
	user.ClearDomainEvents()
	return nil
}

// Delete removes the profile and records its pending events
func (r *GormUserRepository) Delete(ctx context.Context, user *identity.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.UserModel{}, "id = ?", user.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return r.saveEvents(ctx, tx, user.GetDomainEvents())
	})
	if err != nil {
		return translateError(err)
	}
	user.ClearDomainEvents()
	return nil
}

func (r *GormUserRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outbox == nil || len(events) == 0 {
		return nil
	}
	return r.outbox.SaveEvents(ctx, tx, events...)
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
