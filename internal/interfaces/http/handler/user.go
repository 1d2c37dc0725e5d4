package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/scaregistry/backend/internal/application/identity"
	"github.com/scaregistry/backend/internal/domain/identity"
)

// UserService is the profile management surface the user routes drive
type UserService interface {
	Me(ctx context.Context, principalID string) (*appidentity.UserDTO, error)
	Create(ctx context.Context, principalID string, input appidentity.CreateUserInput) (*appidentity.UserDTO, error)
	ChangeRole(ctx context.Context, principalID string, userID uuid.UUID, role identity.Role) (*appidentity.UserDTO, error)
	Activate(ctx context.Context, principalID string, userID uuid.UUID) (*appidentity.UserDTO, error)
	Deactivate(ctx context.Context, principalID string, userID uuid.UUID) (*appidentity.UserDTO, error)
	UpdateProfile(ctx context.Context, principalID string, userID uuid.UUID, input appidentity.UpdateProfileInput) (*appidentity.UserDTO, error)
	Delete(ctx context.Context, principalID string, userID uuid.UUID) error
}

// UserHandler handles user profile endpoints
type UserHandler struct {
	BaseHandler
	users UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUserRequest registers a staff profile for an identity provider principal
type CreateUserRequest struct {
	PrincipalID string `json:"principalId" binding:"required,max=200"`
	Email       string `json:"email" binding:"omitempty,email,max=200"`
	DisplayName string `json:"displayName" binding:"required,max=200"`
	Role        string `json:"role" binding:"required,role"`
}

// ChangeRoleRequest assigns a new role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

// UpdateProfileRequest edits contact details
type UpdateProfileRequest struct {
	Email       string `json:"email" binding:"omitempty,email,max=200"`
	DisplayName string `json:"displayName" binding:"required,max=200"`
}

// Me returns the caller's own profile
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), principal(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, user)
}

// Create handles POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.users.Create(c.Request.Context(), principal(c), appidentity.CreateUserInput{
		PrincipalID: req.PrincipalID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        identity.Role(req.Role),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, user)
}

// ChangeRole handles PATCH /users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.users.ChangeRole(c.Request.Context(), principal(c), id, identity.Role(req.Role))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, user)
}

// Activate handles POST /users/:id/activate
func (h *UserHandler) Activate(c *gin.Context) {
	h.toggle(c, h.users.Activate)
}

// Deactivate handles POST /users/:id/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.users.Deactivate)
}

func (h *UserHandler) toggle(c *gin.Context, fn func(context.Context, string, uuid.UUID) (*appidentity.UserDTO, error)) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	user, err := fn(c.Request.Context(), principal(c), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateProfile handles PATCH /users/:id/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), principal(c), id, appidentity.UpdateProfileInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, user)
}

// Delete handles DELETE /users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), principal(c), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}
