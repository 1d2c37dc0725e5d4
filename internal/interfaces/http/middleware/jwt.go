package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/infrastructure/auth"
	"github.com/scaregistry/backend/internal/infrastructure/logger"
	"github.com/scaregistry/backend/internal/interfaces/http/dto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	PrincipalKey  = "principal_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates a bearer token. *auth.JWTService implements it.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// JWTConfig holds configuration for JWT middleware
type JWTConfig struct {
	Validator TokenValidator
	// SkipPaths are exact paths served without a token
	SkipPaths []string
	Logger    *zap.Logger
}

// JWTAuth rejects requests without a valid bearer token with 401
// UNAUTHENTICATED. The principal id is stored on the gin context, the
// request context and the active span.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if header == "" || !ok || strings.TrimSpace(token) == "" {
			rejectUnauthenticated(c, log, auth.ErrInvalidToken, "Missing bearer token")
			return
		}

		claims, err := cfg.Validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			rejectUnauthenticated(c, log, err, messageFor(err))
			return
		}

		principal := claims.Principal()
		c.Set(JWTClaimsKey, claims)
		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(logger.WithPrincipal(c.Request.Context(), principal))
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			span.SetAttributes(attribute.String("enduser.id", principal))
		}

		c.Next()
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingPrincipal):
		return "Token carries no principal"
	}
	return "Invalid token"
}

func rejectUnauthenticated(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Debug("JWT authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(shared.CodeUnauthenticated, message, GetRequestID(c)))
}

// GetPrincipal returns the authenticated principal id, or ""
func GetPrincipal(c *gin.Context) string {
	return c.GetString(PrincipalKey)
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
