package casework

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// snapshotTarget is a dependent case field holding a copy of another record
type snapshotTarget struct {
	entity   casework.EntityType
	refField string
	field    string
}

var (
	registrationDependents = []snapshotTarget{
		{entity: casework.EntityInspection, refField: "registrationRef", field: "registrationData"},
		{entity: casework.EntityInfringement, refField: "registrationRef", field: "registrationData"},
	}
	personDependents = []snapshotTarget{
		{entity: casework.EntityInspection, refField: "inspectorRef", field: "inspectorData"},
		{entity: casework.EntityInfringement, refField: "issuedByRef", field: "issuedByData"},
	}
)

// SnapshotRefreshHandler rewrites the snapshot caches of inspections and
// infringements after the registration or user they point at changes.
// It is delivered from the outbox, so a failed or conflicting write is
// retried with backoff. Copies are stamped with the event's occurrence time
// and a copy captured after the event is never overwritten, so a retried
// event cannot roll a snapshot back.
type SnapshotRefreshHandler struct {
	repo    casework.CaseRepository
	metrics Metrics
	logger  *zap.Logger
}

// NewSnapshotRefreshHandler creates a new SnapshotRefreshHandler
func NewSnapshotRefreshHandler(repo casework.CaseRepository, metrics Metrics, logger *zap.Logger) *SnapshotRefreshHandler {
	return &SnapshotRefreshHandler{
		repo:    repo,
		metrics: orNop(metrics),
		logger:  logger,
	}
}

// EventTypes implements shared.EventHandler
func (h *SnapshotRefreshHandler) EventTypes() []string {
	return []string{
		casework.EventTypeRegistrationDetailsChanged,
		identity.EventTypeUserProfileUpdated,
	}
}

// Handle implements shared.EventHandler
func (h *SnapshotRefreshHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "snapshot_refresh", "handle")
	defer span.End()
	telemetry.SetAttributes(span, "event_type", event.EventType(), "aggregate_id", event.AggregateID().String())

	at := event.OccurredAt()
	var err error
	switch e := event.(type) {
	case *casework.RegistrationDetailsChangedEvent:
		err = h.refresh(ctx, e.AggregateID(), registrationDependents, func(doc *casework.Document, field string) (bool, any, error) {
			var cached casework.RegistrationSnapshot
			ok, err := casework.FieldAs(doc.Fields, field, &cached)
			if err != nil {
				return false, nil, err
			}
			if ok && (cached.SameDetails(e.Snapshot) || cached.CapturedAt.After(at)) {
				return false, nil, nil
			}
			snap := e.Snapshot
			snap.CapturedAt = at
			return true, snap, nil
		})
	case *identity.UserProfileUpdatedEvent:
		fresh := casework.PersonSnapshot{DisplayName: e.DisplayName, Email: e.Email}
		err = h.refresh(ctx, e.AggregateID(), personDependents, func(doc *casework.Document, field string) (bool, any, error) {
			var cached casework.PersonSnapshot
			ok, err := casework.FieldAs(doc.Fields, field, &cached)
			if err != nil {
				return false, nil, err
			}
			if ok && (cached.SameDetails(fresh) || cached.CapturedAt.After(at)) {
				return false, nil, nil
			}
			snap := fresh
			snap.CapturedAt = at
			return true, snap, nil
		})
	default:
		h.logger.Debug("Ignoring event", zap.String("event_type", event.EventType()))
		return nil
	}
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// refresh queries every dependent entity concurrently and rewrites the
// snapshot field of each document whose copy differs
func (h *SnapshotRefreshHandler) refresh(ctx context.Context, ref uuid.UUID, targets []snapshotTarget, changed func(*casework.Document, string) (bool, any, error)) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			docs, err := h.repo.QueryByField(ctx, t.entity, t.refField, casework.OpEq, ref.String())
			if err != nil {
				return fmt.Errorf("query %s by %s: %w", t.entity, t.refField, err)
			}
			updated := 0
			for _, doc := range docs {
				ok, snap, err := changed(doc, t.field)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				value, err := casework.FieldValue(snap)
				if err != nil {
					return err
				}
				err = h.repo.Update(ctx, t.entity, doc.ID, doc.Version, casework.FieldDeltas{t.field: value})
				if err != nil {
					if errors.Is(err, shared.ErrConflict) {
						h.logger.Info("Snapshot refresh lost a race, will retry",
							zap.String("entity", string(t.entity)),
							zap.String("case_id", doc.ID.String()))
					}
					return fmt.Errorf("refresh %s %s: %w", t.entity, doc.ID, err)
				}
				updated++
			}
			if updated > 0 {
				h.metrics.SnapshotsRefreshed(string(t.entity), updated)
				h.logger.Info("Snapshots refreshed",
					zap.String("entity", string(t.entity)),
					zap.String("field", t.field),
					zap.String("ref", ref.String()),
					zap.Int("count", updated))
			}
			return nil
		})
	}
	return g.Wait()
}
