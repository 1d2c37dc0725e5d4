// Package casework orchestrates case lifecycles: every create, transition and
// read goes through the Engine, which resolves the caller, asks the gate,
// drives the aggregate's state machine and persists the result.
package casework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	appidentity "github.com/scaregistry/backend/internal/application/identity"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/policy"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Presigner issues short-lived download links for stored objects
type Presigner interface {
	PresignGet(ctx context.Context, objectKey string) (string, error)
}

// Engine is the transition engine for all case entities
type Engine struct {
	repo      casework.CaseRepository
	guard     *appidentity.Guard
	sync      *SnapshotSync
	metrics   Metrics
	presigner Presigner
	logger    *zap.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithPresigner enables download links on case views
func WithPresigner(p Presigner) EngineOption {
	return func(e *Engine) {
		e.presigner = p
	}
}

// NewEngine creates a new Engine
func NewEngine(repo casework.CaseRepository, guard *appidentity.Guard, sync *SnapshotSync, metrics Metrics, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		repo:    repo,
		guard:   guard,
		sync:    sync,
		metrics: orNop(metrics),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create validates a draft and stores a new case in its initial status
func (e *Engine) Create(ctx context.Context, cmd CreateCommand) (view *CaseView, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "case_engine", "create")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.AttrEntity, string(cmd.Entity), telemetry.AttrPrincipal, cmd.PrincipalID)

	start := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		e.metrics.TransitionCompleted(string(cmd.Entity), string(casework.TransitionCreate), outcome, time.Since(start))
		telemetry.SetAttributes(span, telemetry.AttrOutcome, outcome)
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	if !cmd.Entity.IsCase() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("%s is not a case entity", cmd.Entity))
	}
	actor, err := e.guard.Actor(ctx, cmd.PrincipalID)
	if err != nil {
		return nil, err
	}
	if err := e.guard.Check(ctx, policy.Request{
		Actor:      actor,
		Entity:     cmd.Entity,
		Transition: casework.TransitionCreate,
	}); err != nil {
		return nil, err
	}

	now := e.guard.Now()
	c, err := newCase(cmd.Entity, cmd.Draft, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if f, ok := c.(*casework.Infringement); ok {
		f.AttachIssuer(PersonSnapshotOf(actor, now))
	}
	if err := e.sync.Attach(ctx, c, now, true); err != nil {
		return nil, err
	}

	fields, err := casework.Encode(c)
	if err != nil {
		return nil, err
	}
	id, err := e.repo.Create(ctx, cmd.Entity, fields, c.GetDomainEvents()...)
	if err != nil {
		e.logger.Error("Failed to create case",
			zap.String("entity", string(cmd.Entity)),
			zap.String("user_id", actor.ID.String()),
			zap.Error(err))
		return nil, err
	}
	c.ClearDomainEvents()
	e.guard.Touch(ctx, actor)

	e.logger.Info("Case created",
		zap.String("entity", string(cmd.Entity)),
		zap.String("case_id", id.String()),
		zap.String("status", c.CurrentStatus()),
		zap.String("user_id", actor.ID.String()))

	fields[cmd.Entity.IDField()] = id.String()
	return &CaseView{
		Entity:               cmd.Entity,
		ID:                   id,
		Version:              c.GetVersion(),
		Status:               c.CurrentStatus(),
		Fields:               fields,
		AvailableTransitions: c.AvailableTransitions(),
	}, nil
}

// newCase decodes an entity-specific draft and builds the aggregate
func newCase(entity casework.EntityType, raw json.RawMessage, createdBy uuid.UUID, now time.Time) (casework.Case, error) {
	switch entity {
	case casework.EntityRegistration:
		var d casework.NewRegistrationRequest
		if err := decodeDraft(raw, &d); err != nil {
			return nil, err
		}
		return casework.NewRegistration(d, createdBy, now)
	case casework.EntityInspection:
		var d casework.NewInspectionRequest
		if err := decodeDraft(raw, &d); err != nil {
			return nil, err
		}
		return casework.NewInspection(d, createdBy, now)
	case casework.EntityOperatorLicense:
		var d casework.NewOperatorLicenseRequest
		if err := decodeDraft(raw, &d); err != nil {
			return nil, err
		}
		return casework.NewOperatorLicense(d, createdBy, now)
	case casework.EntityInfringement:
		var d casework.NewInfringementRequest
		if err := decodeDraft(raw, &d); err != nil {
			return nil, err
		}
		return casework.NewInfringement(d, createdBy, now)
	}
	return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("%s is not a case entity", entity))
}

func decodeDraft(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "malformed draft: "+err.Error()).WithCause(err)
	}
	return nil
}

// Transition takes one state machine step on a stored case. Nothing is
// written unless every check passes; a concurrent write surfaces as CONFLICT.
func (e *Engine) Transition(ctx context.Context, cmd TransitionCommand) (view *CaseView, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "case_engine", "transition")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.AttrEntity, string(cmd.Entity),
		telemetry.AttrCaseID, cmd.ID.String(),
		telemetry.AttrTransition, string(cmd.Transition),
		telemetry.AttrPrincipal, cmd.PrincipalID,
	)

	start := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		e.metrics.TransitionCompleted(string(cmd.Entity), string(cmd.Transition), outcome, time.Since(start))
		telemetry.SetAttributes(span, telemetry.AttrOutcome, outcome)
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	if cmd.Transition == casework.TransitionCreate {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "use Create to open a case")
	}
	actor, err := e.guard.Actor(ctx, cmd.PrincipalID)
	if err != nil {
		return nil, err
	}
	doc, c, err := e.load(ctx, cmd.Entity, cmd.ID)
	if err != nil {
		return nil, err
	}
	from := c.CurrentStatus()
	if err := e.guard.Check(ctx, requestFor(actor, c, cmd.Transition)); err != nil {
		return nil, err
	}

	before, err := casework.Encode(c)
	if err != nil {
		return nil, err
	}
	now := e.guard.Now()
	if err := c.Apply(cmd.Transition, cmd.Input, actor.ID, now); err != nil {
		return nil, err
	}
	if err := e.sync.Attach(ctx, c, now, false); err != nil {
		return nil, err
	}
	after, err := casework.Encode(c)
	if err != nil {
		return nil, err
	}

	deltas := casework.Diff(before, after)
	if err := e.repo.Update(ctx, cmd.Entity, cmd.ID, doc.Version, deltas, c.GetDomainEvents()...); err != nil {
		if !errors.Is(err, shared.ErrConflict) {
			e.logger.Error("Failed to persist transition",
				zap.String("entity", string(cmd.Entity)),
				zap.String("case_id", cmd.ID.String()),
				zap.String("transition", string(cmd.Transition)),
				zap.Error(err))
		}
		return nil, err
	}
	c.ClearDomainEvents()
	e.guard.Touch(ctx, actor)

	e.logger.Info("Case transitioned",
		zap.String("entity", string(cmd.Entity)),
		zap.String("case_id", cmd.ID.String()),
		zap.String("transition", string(cmd.Transition)),
		zap.String("from", from),
		zap.String("to", c.CurrentStatus()),
		zap.String("user_id", actor.ID.String()))

	return &CaseView{
		Entity:               cmd.Entity,
		ID:                   cmd.ID,
		Version:              doc.Version + 1,
		Status:               c.CurrentStatus(),
		Fields:               after,
		AvailableTransitions: c.AvailableTransitions(),
	}, nil
}

// Get reads a case with its snapshots resolved against the live records
func (e *Engine) Get(ctx context.Context, principalID string, entity casework.EntityType, id uuid.UUID) (*CaseView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "case_engine", "get")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.AttrEntity, string(entity), telemetry.AttrCaseID, id.String())

	if _, err := e.guard.Actor(ctx, principalID); err != nil {
		return nil, err
	}
	doc, c, err := e.load(ctx, entity, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	view := viewOf(doc, c)
	if err := e.resolve(ctx, view, c); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	e.links(ctx, view, c)
	return view, nil
}

// Query lists the cases of an entity whose field compares true against value
func (e *Engine) Query(ctx context.Context, cmd QueryCommand) ([]*CaseView, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "case_engine", "query")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.AttrEntity, string(cmd.Entity), "field", cmd.Field, "op", string(cmd.Op))

	if _, err := e.guard.Actor(ctx, cmd.PrincipalID); err != nil {
		return nil, err
	}
	if !cmd.Entity.IsCase() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("%s is not a case entity", cmd.Entity))
	}
	if strings.TrimSpace(cmd.Field) == "" {
		return nil, shared.NewValidationError("field")
	}
	if !cmd.Op.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unsupported operator %q", cmd.Op))
	}

	docs, err := e.repo.QueryByField(ctx, cmd.Entity, cmd.Field, cmd.Op, cmd.Value)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	views := make([]*CaseView, 0, len(docs))
	for _, doc := range docs {
		c, err := casework.Decode(doc)
		if err != nil {
			e.logger.Warn("Skipping undecodable case",
				zap.String("entity", string(doc.Entity)),
				zap.String("case_id", doc.ID.String()),
				zap.Error(err))
			continue
		}
		views = append(views, viewOf(doc, c))
	}
	telemetry.SetAttributes(span, "result_count", len(views))
	return views, nil
}

// AvailableTransitions lists the transitions out of the case's current status
// and whether the caller would be allowed to take each of them
func (e *Engine) AvailableTransitions(ctx context.Context, principalID string, entity casework.EntityType, id uuid.UUID) ([]TransitionOption, error) {
	actor, err := e.guard.Actor(ctx, principalID)
	if err != nil {
		return nil, err
	}
	_, c, err := e.load(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	options := make([]TransitionOption, 0)
	for _, tr := range c.AvailableTransitions() {
		opt := TransitionOption{Transition: tr, Allowed: true}
		var de *shared.DomainError
		if err := e.guard.Check(ctx, requestFor(actor, c, tr)); err != nil {
			if !errors.As(err, &de) {
				return nil, err
			}
			opt.Allowed = false
			opt.Reason = policy.DenyReason(de.Message)
			if de.Code == shared.CodeUnauthenticated {
				opt.Reason = policy.DenyUnauthenticated
			}
		}
		options = append(options, opt)
	}
	return options, nil
}

func (e *Engine) load(ctx context.Context, entity casework.EntityType, id uuid.UUID) (*casework.Document, casework.Case, error) {
	if !entity.IsCase() {
		return nil, nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("%s is not a case entity", entity))
	}
	doc, err := e.repo.GetByID(ctx, entity, id)
	if err != nil {
		return nil, nil, err
	}
	c, err := casework.Decode(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, c, nil
}

// requestFor builds the gate request for actor taking tr on c
func requestFor(actor *identity.User, c casework.Case, tr casework.Transition) policy.Request {
	req := policy.Request{
		Actor:      actor,
		Entity:     c.Entity(),
		Status:     c.CurrentStatus(),
		Transition: tr,
		IsAuthor:   c.AuthorRef() == actor.ID,
	}
	if i, ok := c.(*casework.Inspection); ok {
		req.IsAssignee = i.IsAssignee(actor.ID)
	}
	return req
}

func viewOf(doc *casework.Document, c casework.Case) *CaseView {
	view := &CaseView{
		Entity:               doc.Entity,
		ID:                   doc.ID,
		Version:              doc.Version,
		Status:               c.CurrentStatus(),
		Fields:               doc.Fields,
		AvailableTransitions: c.AvailableTransitions(),
	}
	if f, ok := c.(*casework.Infringement); ok {
		view.FineTier = casework.FineTier(f.TotalPoints)
	}
	return view
}

func (e *Engine) resolve(ctx context.Context, view *CaseView, c casework.Case) error {
	now := e.guard.Now()
	switch v := c.(type) {
	case *casework.Inspection:
		reg, err := e.sync.ResolveRegistration(ctx, v.RegistrationRef, v.RegistrationData, now)
		if err != nil {
			return err
		}
		view.Registration = &reg
		if v.InspectorRef != nil {
			insp, err := e.sync.ResolvePerson(ctx, *v.InspectorRef, v.InspectorData, now)
			if err != nil {
				return err
			}
			view.Inspector = &insp
		}
	case *casework.Infringement:
		reg, err := e.sync.ResolveRegistration(ctx, v.RegistrationRef, v.RegistrationData, now)
		if err != nil {
			return err
		}
		view.Registration = &reg
		issuer, err := e.sync.ResolvePerson(ctx, v.IssuedByRef, v.IssuedByData, now)
		if err != nil {
			return err
		}
		view.IssuedBy = &issuer
	}
	return nil
}

// links presigns object keys held by the case. Failures leave the link out.
func (e *Engine) links(ctx context.Context, view *CaseView, c casework.Case) {
	if e.presigner == nil {
		return
	}
	keys := map[string]string{}
	switch v := c.(type) {
	case *casework.OperatorLicense:
		for i, d := range v.AttachedDocuments {
			if d.ObjectKey != "" {
				keys[fmt.Sprintf("attachedDocuments/%d", i)] = d.ObjectKey
			}
		}
	case *casework.Infringement:
		if key := v.OffenderSignatureURL; key != "" && !strings.Contains(key, "://") {
			keys["offenderSignature"] = key
		}
	}
	for name, key := range keys {
		url, err := e.presigner.PresignGet(ctx, key)
		if err != nil {
			e.logger.Warn("Failed to presign object", zap.String("object_key", key), zap.Error(err))
			continue
		}
		if view.Links == nil {
			view.Links = make(map[string]string, len(keys))
		}
		view.Links[name] = url
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return OutcomeError
	}
	switch de.Code {
	case shared.CodeUnauthorized, shared.CodeUnauthenticated:
		return OutcomeUnauthorized
	case shared.CodeIllegalTransition:
		return OutcomeIllegalTransition
	case shared.CodeValidation, shared.CodeInvalidInput:
		return OutcomeValidation
	case shared.CodeConflict:
		return OutcomeConflict
	}
	return OutcomeError
}
