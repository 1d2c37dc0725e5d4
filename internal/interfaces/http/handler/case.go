package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appcase "github.com/scaregistry/backend/internal/application/casework"
	"github.com/scaregistry/backend/internal/domain/casework"
)

// CaseService is the casework surface the case routes drive
type CaseService interface {
	Create(ctx context.Context, cmd appcase.CreateCommand) (*appcase.CaseView, error)
	Get(ctx context.Context, principalID string, entity casework.EntityType, id uuid.UUID) (*appcase.CaseView, error)
	Query(ctx context.Context, cmd appcase.QueryCommand) ([]*appcase.CaseView, error)
	Transition(ctx context.Context, cmd appcase.TransitionCommand) (*appcase.CaseView, error)
	AvailableTransitions(ctx context.Context, principalID string, entity casework.EntityType, id uuid.UUID) ([]appcase.TransitionOption, error)
}

// CaseHandler serves the /cases routes for every case entity
type CaseHandler struct {
	BaseHandler
	cases CaseService
}

// NewCaseHandler creates a new CaseHandler
func NewCaseHandler(cases CaseService) *CaseHandler {
	return &CaseHandler{cases: cases}
}

type entityURI struct {
	Entity string `uri:"entity" binding:"required,entity"`
}

type caseURI struct {
	Entity string `uri:"entity" binding:"required,entity"`
	ID     string `uri:"id" binding:"required,uuid"`
}

type transitionURI struct {
	Entity     string `uri:"entity" binding:"required,entity"`
	ID         string `uri:"id" binding:"required,uuid"`
	Transition string `uri:"transition" binding:"required,transition"`
}

// QueryParams selects cases by one field comparison.
// Op accepts the symbolic operators or their names (eq, ne, lt, lte, gt,
// gte, in) and defaults to equality.
type QueryParams struct {
	Field string `form:"field" binding:"required,max=64"`
	Op    string `form:"op"`
	Value string `form:"value"`
}

var opAliases = map[string]casework.QueryOp{
	"":    casework.OpEq,
	"eq":  casework.OpEq,
	"ne":  casework.OpNe,
	"lt":  casework.OpLt,
	"lte": casework.OpLte,
	"gt":  casework.OpGt,
	"gte": casework.OpGte,
	"in":  casework.OpIn,
}

func parseQueryOp(s string) (casework.QueryOp, bool) {
	if op, ok := opAliases[strings.ToLower(s)]; ok {
		return op, true
	}
	op := casework.QueryOp(s)
	return op, op.IsValid()
}

// parseQueryValue reads a query string value. Valid JSON scalars keep their
// type, so 12 is a number and "12" a string; anything else is a raw string.
// For the in operator the value is a JSON array or a comma separated list.
func parseQueryValue(op casework.QueryOp, raw string) (any, error) {
	if op == casework.OpIn {
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "[") {
			var list []any
			if err := decodeJSON([]byte(trimmed), &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		list := []any{}
		if trimmed == "" {
			return list, nil
		}
		for _, part := range strings.Split(trimmed, ",") {
			v, err := parseScalar(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	}
	return parseScalar(raw)
}

func parseScalar(raw string) (any, error) {
	if !json.Valid([]byte(raw)) {
		return raw, nil
	}
	var v any
	if err := decodeJSON([]byte(raw), &v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case map[string]any, []any:
		return nil, errors.New("value must be a scalar")
	}
	return v, nil
}

func decodeJSON(data []byte, into any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(into)
}

// Create handles POST /cases/:entity. The body is the entity's draft.
func (h *CaseHandler) Create(c *gin.Context) {
	var uri entityURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BindError(c, err)
		return
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		h.BadRequest(c, "Request body must be a JSON object")
		return
	}

	view, err := h.cases.Create(c.Request.Context(), appcase.CreateCommand{
		PrincipalID: principal(c),
		Entity:      casework.EntityType(uri.Entity),
		Draft:       json.RawMessage(body),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, view)
}

// Get handles GET /cases/:entity/:id
func (h *CaseHandler) Get(c *gin.Context) {
	var uri caseURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	view, err := h.cases.Get(c.Request.Context(), principal(c), casework.EntityType(uri.Entity), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, view)
}

// Query handles GET /cases/:entity?field=&op=&value=
func (h *CaseHandler) Query(c *gin.Context) {
	var uri entityURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var params QueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.BindError(c, err)
		return
	}

	op, ok := parseQueryOp(params.Op)
	if !ok {
		h.BadRequest(c, "Unsupported operator: "+params.Op)
		return
	}
	value, err := parseQueryValue(op, params.Value)
	if err != nil {
		h.BadRequest(c, "Invalid value: "+err.Error())
		return
	}

	views, err := h.cases.Query(c.Request.Context(), appcase.QueryCommand{
		PrincipalID: principal(c),
		Entity:      casework.EntityType(uri.Entity),
		Field:       params.Field,
		Op:          op,
		Value:       value,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if views == nil {
		views = []*appcase.CaseView{}
	}
	h.SuccessWithMeta(c, views, int64(len(views)), 1, len(views))
}

// Transition handles POST /cases/:entity/:id/transitions/:transition. The
// body carries the transition input and may be empty.
func (h *CaseHandler) Transition(c *gin.Context) {
	var uri transitionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	var input casework.TransitionInput
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BindError(c, err)
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &input); err != nil {
			h.BindError(c, err)
			return
		}
	}

	view, err := h.cases.Transition(c.Request.Context(), appcase.TransitionCommand{
		PrincipalID: principal(c),
		Entity:      casework.EntityType(uri.Entity),
		ID:          uuid.MustParse(uri.ID),
		Transition:  casework.Transition(uri.Transition),
		Input:       input,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, view)
}

// AvailableTransitions handles GET /cases/:entity/:id/transitions
func (h *CaseHandler) AvailableTransitions(c *gin.Context) {
	var uri caseURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	options, err := h.cases.AvailableTransitions(c.Request.Context(), principal(c), casework.EntityType(uri.Entity), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if options == nil {
		options = []appcase.TransitionOption{}
	}
	h.Success(c, options)
}
