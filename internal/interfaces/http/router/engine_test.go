package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	appcase "github.com/scaregistry/backend/internal/application/casework"
	"github.com/scaregistry/backend/internal/application/event"
	appidentity "github.com/scaregistry/backend/internal/application/identity"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/auth"
	"github.com/scaregistry/backend/internal/infrastructure/config"
	"github.com/scaregistry/backend/internal/infrastructure/metrics"
	"github.com/scaregistry/backend/internal/interfaces/http/dto"
	"github.com/scaregistry/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCases struct{}

func (stubCases) Create(_ context.Context, cmd appcase.CreateCommand) (*appcase.CaseView, error) {
	return &appcase.CaseView{Entity: cmd.Entity, ID: uuid.New(), Version: 1, Status: "Draft"}, nil
}

func (stubCases) Get(_ context.Context, principalID string, entity casework.EntityType, id uuid.UUID) (*appcase.CaseView, error) {
	return &appcase.CaseView{Entity: entity, ID: id, Status: principalID}, nil
}

func (stubCases) Query(context.Context, appcase.QueryCommand) ([]*appcase.CaseView, error) {
	return nil, nil
}

func (stubCases) Transition(context.Context, appcase.TransitionCommand) (*appcase.CaseView, error) {
	return nil, shared.ErrIllegalTransition
}

func (stubCases) AvailableTransitions(context.Context, string, casework.EntityType, uuid.UUID) ([]appcase.TransitionOption, error) {
	return nil, nil
}

type stubUsers struct {
	handler.UserService
}

func (stubUsers) Me(_ context.Context, principalID string) (*appidentity.UserDTO, error) {
	return &appidentity.UserDTO{PrincipalID: principalID, Role: identity.RoleReadOnly}, nil
}

type stubOutbox struct {
	handler.OutboxAdmin
}

func (stubOutbox) GetStats(context.Context) (*event.OutboxStatsDTO, error) {
	return &event.OutboxStatsDTO{Dead: 2, Total: 2}, nil
}

type stubActors map[string]*identity.User

func (s stubActors) Actor(_ context.Context, principalID string) (*identity.User, error) {
	if u, ok := s[principalID]; ok {
		return u, nil
	}
	return nil, shared.ErrProfileNotFound
}

func newTestEngine(t *testing.T) (http.Handler, *auth.JWTService) {
	t.Helper()
	tokens := auth.NewJWTService(config.JWTConfig{Secret: "test-secret-with-at-least-32-characters", Issuer: "sca-test"})
	health := handler.NewHealthHandler("sca-registry", "test").
		AddCheck("database", func(context.Context) error { return nil })

	engine := NewEngine(EngineConfig{
		HTTP:   config.HTTPConfig{MaxBodySize: 1 << 10},
		Tokens: tokens,
		Actors: stubActors{
			"admin":  {PrincipalID: "admin", Role: identity.RoleAdmin, IsActive: true},
			"reader": {PrincipalID: "reader", Role: identity.RoleReadOnly, IsActive: true},
		},
		Metrics: metrics.NewCollector(),
		Logger:  zap.NewNop(),
	}, Handlers{
		Cases:   handler.NewCaseHandler(stubCases{}),
		Users:   handler.NewUserHandler(stubUsers{}),
		Penalty: handler.NewPenaltyHandler(),
		Health:  health,
		Outbox:  handler.NewOutboxHandler(stubOutbox{}),
	})
	return engine, tokens
}

func request(t *testing.T, h http.Handler, tokens *auth.JWTService, principal, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if principal != "" {
		token, _, err := tokens.IssueToken(principal)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestNewEngine_PublicEndpoints(t *testing.T) {
	engine, tokens := newTestEngine(t)

	t.Run("health needs no token", func(t *testing.T) {
		w := request(t, engine, tokens, "", http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("metrics needs no token", func(t *testing.T) {
		request(t, engine, tokens, "", http.MethodGet, "/health", "")
		w := request(t, engine, tokens, "", http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "sca_http_requests_total")
	})

	t.Run("unknown route", func(t *testing.T) {
		w := request(t, engine, tokens, "", http.MethodGet, "/nowhere", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeRouteNotFound, errorCode(t, w))
	})

	t.Run("fine tier requires a token", func(t *testing.T) {
		w := request(t, engine, tokens, "", http.MethodGet, "/api/v1/penalty/fine-tier?points=5", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, shared.CodeUnauthenticated, errorCode(t, w))
	})
}

func TestNewEngine_API(t *testing.T) {
	engine, tokens := newTestEngine(t)
	id := uuid.New()

	t.Run("principal flows from the token", func(t *testing.T) {
		w := request(t, engine, tokens, "auth0|jw", http.MethodGet, "/api/v1/cases/Inspection/"+id.String(), "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "auth0|jw", resp.Data.(map[string]any)["status"])
	})

	t.Run("create", func(t *testing.T) {
		w := request(t, engine, tokens, "auth0|jw", http.MethodPost, "/api/v1/cases/Registration", `{"craft":{}}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("transition errors map to 409", func(t *testing.T) {
		w := request(t, engine, tokens, "auth0|jw", http.MethodPost, "/api/v1/cases/Registration/"+id.String()+"/transitions/approve", "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, shared.CodeIllegalTransition, errorCode(t, w))
	})

	t.Run("me", func(t *testing.T) {
		w := request(t, engine, tokens, "reader", http.MethodGet, "/api/v1/users/me", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("fine tier", func(t *testing.T) {
		w := request(t, engine, tokens, "reader", http.MethodGet, "/api/v1/penalty/fine-tier?points=41", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "K500")
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `{"notes":"` + strings.Repeat("x", 2048) + `"}`
		w := request(t, engine, tokens, "auth0|jw", http.MethodPost, "/api/v1/cases/Registration", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestNewEngine_Admin(t *testing.T) {
	engine, tokens := newTestEngine(t)

	tests := []struct {
		principal string
		want      int
	}{
		{principal: "admin", want: http.StatusOK},
		{principal: "reader", want: http.StatusForbidden},
		{principal: "ghost", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.principal, func(t *testing.T) {
			w := request(t, engine, tokens, tt.principal, http.MethodGet, "/api/v1/admin/outbox/stats", "")
			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("sweep route is absent without a trigger", func(t *testing.T) {
		w := request(t, engine, tokens, "admin", http.MethodPost, "/api/v1/admin/expiry-sweep", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
