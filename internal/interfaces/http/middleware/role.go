package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/scaregistry/backend/internal/interfaces/http/dto"
)

// ActorResolver maps an authenticated principal to its staff profile
type ActorResolver interface {
	Actor(ctx context.Context, principalID string) (*identity.User, error)
}

// RequireRole admits only active users holding one of roles. It must run
// after JWTAuth.
func RequireRole(actors ActorResolver, roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := actors.Actor(c.Request.Context(), GetPrincipal(c))
		if err != nil {
			abortWithDomainError(c, err)
			return
		}
		if !actor.IsActive {
			abortWithDomainError(c, shared.NewUnauthorizedError("inactive"))
			return
		}
		if !slices.Contains(roles, actor.Role) {
			abortWithDomainError(c, shared.NewUnauthorizedError("role"))
			return
		}
		c.Next()
	}
}

func abortWithDomainError(c *gin.Context, err error) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			dto.NewErrorResponse(dto.ErrCodeInternal, "An unexpected error occurred", GetRequestID(c)))
		return
	}
	resp := dto.NewErrorResponse(de.Code, de.Message, GetRequestID(c))
	resp.Error.Retryable = de.Retryable
	c.AbortWithStatusJSON(dto.GetHTTPStatus(de.Code), resp)
}
