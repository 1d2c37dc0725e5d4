package casework

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SnapshotSync reads live registration and user records into the snapshot
// caches held by inspections and infringements, and falls back to those
// caches when the live record is unreachable
type SnapshotSync struct {
	repo    casework.CaseRepository
	users   identity.UserRepository
	metrics Metrics
	logger  *zap.Logger
}

// NewSnapshotSync creates a new SnapshotSync
func NewSnapshotSync(repo casework.CaseRepository, users identity.UserRepository, metrics Metrics, logger *zap.Logger) *SnapshotSync {
	return &SnapshotSync{
		repo:    repo,
		users:   users,
		metrics: orNop(metrics),
		logger:  logger,
	}
}

// PersonSnapshotOf captures a user's display details
func PersonSnapshotOf(u *identity.User, now time.Time) casework.PersonSnapshot {
	return casework.PersonSnapshot{
		DisplayName: u.DisplayName,
		Email:       u.Email,
		CapturedAt:  now,
	}
}

// RegistrationSnapshot reads the live registration
func (s *SnapshotSync) RegistrationSnapshot(ctx context.Context, id uuid.UUID, now time.Time) (casework.RegistrationSnapshot, error) {
	doc, err := s.repo.GetByID(ctx, casework.EntityRegistration, id)
	if err != nil {
		return casework.RegistrationSnapshot{}, err
	}
	c, err := casework.Decode(doc)
	if err != nil {
		return casework.RegistrationSnapshot{}, err
	}
	return c.(*casework.Registration).Snapshot(now), nil
}

// PersonSnapshot reads the live user profile
func (s *SnapshotSync) PersonSnapshot(ctx context.Context, userID uuid.UUID, now time.Time) (casework.PersonSnapshot, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return casework.PersonSnapshot{}, err
	}
	return PersonSnapshotOf(u, now), nil
}

// Attach fills the snapshot caches of a dependent case. When strict, any
// lookup failure is returned (case creation and reference changes). Otherwise
// failures keep the existing snapshot and are logged as stale.
func (s *SnapshotSync) Attach(ctx context.Context, c casework.Case, now time.Time, strict bool) error {
	switch v := c.(type) {
	case *casework.Inspection:
		if err := s.attachRegistration(ctx, v.RegistrationRef, v.RegistrationData, v.AttachRegistration, now, strict); err != nil {
			return err
		}
		if v.InspectorRef != nil {
			// a reassigned inspector has no snapshot yet and must exist
			return s.attachPerson(ctx, *v.InspectorRef, v.InspectorData, v.AttachInspector, now, strict || v.InspectorData == nil)
		}
	case *casework.Infringement:
		if err := s.attachRegistration(ctx, v.RegistrationRef, v.RegistrationData, v.AttachRegistration, now, strict); err != nil {
			return err
		}
		return s.attachPerson(ctx, v.IssuedByRef, v.IssuedByData, v.AttachIssuer, now, strict && v.IssuedByData == nil)
	}
	return nil
}

func (s *SnapshotSync) attachRegistration(ctx context.Context, ref uuid.UUID, cached *casework.RegistrationSnapshot, attach func(casework.RegistrationSnapshot), now time.Time, strict bool) error {
	snap, err := s.RegistrationSnapshot(ctx, ref, now)
	if err != nil {
		if strict {
			return err
		}
		s.stale(ctx, casework.EntityRegistration, ref, cached != nil, err)
		return nil
	}
	attach(snap)
	return nil
}

func (s *SnapshotSync) attachPerson(ctx context.Context, ref uuid.UUID, cached *casework.PersonSnapshot, attach func(casework.PersonSnapshot), now time.Time, strict bool) error {
	snap, err := s.PersonSnapshot(ctx, ref, now)
	if err != nil {
		if strict {
			return err
		}
		s.stale(ctx, casework.EntityUser, ref, cached != nil, err)
		return nil
	}
	attach(snap)
	return nil
}

// ResolveRegistration reads the live registration, falling back to cached
// when it is missing or access is denied
func (s *SnapshotSync) ResolveRegistration(ctx context.Context, ref uuid.UUID, cached *casework.RegistrationSnapshot, now time.Time) (casework.Resolved[casework.RegistrationSnapshot], error) {
	snap, err := s.RegistrationSnapshot(ctx, ref, now)
	if err == nil {
		return casework.Resolved[casework.RegistrationSnapshot]{Value: snap}, nil
	}
	if !fallsBack(err) {
		return casework.Resolved[casework.RegistrationSnapshot]{}, err
	}
	s.stale(ctx, casework.EntityRegistration, ref, cached != nil, err)
	out := casework.Resolved[casework.RegistrationSnapshot]{Stale: true}
	if cached != nil {
		out.Value = *cached
	}
	return out, nil
}

// ResolvePerson reads the live user, falling back to cached when it is
// missing or access is denied
func (s *SnapshotSync) ResolvePerson(ctx context.Context, ref uuid.UUID, cached *casework.PersonSnapshot, now time.Time) (casework.Resolved[casework.PersonSnapshot], error) {
	snap, err := s.PersonSnapshot(ctx, ref, now)
	if err == nil {
		return casework.Resolved[casework.PersonSnapshot]{Value: snap}, nil
	}
	if !fallsBack(err) {
		return casework.Resolved[casework.PersonSnapshot]{}, err
	}
	s.stale(ctx, casework.EntityUser, ref, cached != nil, err)
	out := casework.Resolved[casework.PersonSnapshot]{Stale: true}
	if cached != nil {
		out.Value = *cached
	}
	return out, nil
}

func fallsBack(err error) bool {
	return errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrPermissionDenied)
}

func (s *SnapshotSync) stale(_ context.Context, entity casework.EntityType, ref uuid.UUID, haveCache bool, cause error) {
	s.metrics.StaleSnapshot(string(entity))
	s.logger.Warn("Using cached snapshot",
		zap.String("code", shared.CodeStaleSnapshot),
		zap.String("entity", string(entity)),
		zap.String("ref", ref.String()),
		zap.Bool("cached", haveCache),
		zap.Error(cause))
}
