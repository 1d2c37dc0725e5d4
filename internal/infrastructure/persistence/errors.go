package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/scaregistry/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// postgres SQLSTATE values the adapter translates
const (
	pgInsufficientPrivilege = "42501"
	pgUniqueViolation       = "23505"
)

// translateError maps driver errors onto domain errors. Errors that are
// already domain errors pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists.WithCause(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgInsufficientPrivilege:
			return shared.ErrPermissionDenied.WithCause(err)
		case pgErr.Code == pgUniqueViolation:
			return shared.ErrAlreadyExists.WithCause(err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			// connection exception and operator intervention classes
			return shared.NewStoreUnavailableError(err)
		}
		return err
	}

	if isConnectionError(err) {
		return shared.NewStoreUnavailableError(err)
	}
	return err
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "sql: database is closed")
}
