package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/identity"
)

// UserDTO represents user data transfer object
type UserDTO struct {
	ID           uuid.UUID             `json:"userId"`
	PrincipalID  string                `json:"principalId"`
	Email        string                `json:"email,omitempty"`
	DisplayName  string                `json:"displayName"`
	Role         identity.Role         `json:"role"`
	IsActive     bool                  `json:"isActive"`
	Capabilities identity.Capabilities `json:"capabilities"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"lastUpdatedAt"`
}

// ToUserDTO converts a domain User to UserDTO
func ToUserDTO(u *identity.User) *UserDTO {
	return &UserDTO{
		ID:           u.ID,
		PrincipalID:  u.PrincipalID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Role:         u.Role,
		IsActive:     u.IsActive,
		Capabilities: u.Capabilities(),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// CreateUserInput contains input for creating a user profile
type CreateUserInput struct {
	PrincipalID string
	Email       string
	DisplayName string
	Role        identity.Role
}

// UpdateProfileInput contains input for editing a profile
type UpdateProfileInput struct {
	Email       string
	DisplayName string
}
