package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// InstrumentGorm adds otelgorm spans to every statement run through db.
// Query variables are left out of span attributes unless withVariables is set.
func InstrumentGorm(db *gorm.DB, dbSystem string, withVariables bool) error {
	opts := []otelgorm.Option{otelgorm.WithDBName(dbSystem)}
	if !withVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}
	return nil
}
