package casework

import (
	"context"
	"fmt"
	"time"

	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// expirable is implemented by cases whose approval lapses on a date
type expirable interface {
	IsDueToExpire(now time.Time) bool
}

// ExpiryEntities are the case entities the sweep visits
var ExpiryEntities = []casework.EntityType{casework.EntityRegistration, casework.EntityOperatorLicense}

// ExpirySweep moves Approved registrations and licenses past their expiry
// date to Expired. Each case is expired through the engine as the system
// principal, so the gate, versioning and outbox apply as for any caller.
type ExpirySweep struct {
	engine    *Engine
	repo      casework.CaseRepository
	principal string
	metrics   Metrics
	logger    *zap.Logger
}

// NewExpirySweep creates a new ExpirySweep acting as principal
func NewExpirySweep(engine *Engine, repo casework.CaseRepository, principal string, metrics Metrics, logger *zap.Logger) *ExpirySweep {
	return &ExpirySweep{
		engine:    engine,
		repo:      repo,
		principal: principal,
		metrics:   orNop(metrics),
		logger:    logger,
	}
}

// Sweep expires the due cases of one entity and returns how many were expired.
// A case that fails to expire is logged and left for the next run.
func (s *ExpirySweep) Sweep(ctx context.Context, entity casework.EntityType) (int, error) {
	docs, err := s.repo.QueryByField(ctx, entity, "status", casework.OpEq, "Approved")
	if err != nil {
		return 0, fmt.Errorf("query approved %s: %w", entity, err)
	}

	now := s.engine.guard.Now()
	expired := 0
	for _, doc := range docs {
		c, err := casework.Decode(doc)
		if err != nil {
			s.logger.Warn("Skipping undecodable case", zap.String("entity", string(entity)), zap.String("case_id", doc.ID.String()), zap.Error(err))
			continue
		}
		due, ok := c.(expirable)
		if !ok || !due.IsDueToExpire(now) {
			continue
		}
		_, err = s.engine.Transition(ctx, TransitionCommand{
			PrincipalID: s.principal,
			Entity:      entity,
			ID:          doc.ID,
			Transition:  casework.TransitionExpire,
		})
		if err != nil {
			if shared.IsRetryable(err) {
				return expired, err
			}
			s.logger.Warn("Failed to expire case",
				zap.String("entity", string(entity)),
				zap.String("case_id", doc.ID.String()),
				zap.Error(err))
			continue
		}
		expired++
	}

	if expired > 0 {
		s.metrics.CasesExpired(string(entity), expired)
	}
	s.logger.Info("Expiry sweep finished",
		zap.String("entity", string(entity)),
		zap.Int("candidates", len(docs)),
		zap.Int("expired", expired))
	return expired, nil
}

// SweepAll runs Sweep over every expiring entity
func (s *ExpirySweep) SweepAll(ctx context.Context) (int, error) {
	total := 0
	for _, entity := range ExpiryEntities {
		n, err := s.Sweep(ctx, entity)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
