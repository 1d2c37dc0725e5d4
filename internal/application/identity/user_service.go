package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/casework"
	"github.com/scaregistry/backend/internal/domain/identity"
	"github.com/scaregistry/backend/internal/domain/policy"
	"github.com/scaregistry/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UserService handles staff profile administration. Every operation is
// authorized by the gate under the User entity.
type UserService struct {
	users  identity.UserRepository
	guard  *Guard
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(users identity.UserRepository, guard *Guard, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		guard:  guard,
		logger: logger,
	}
}

// Me returns the caller's own profile
func (s *UserService) Me(ctx context.Context, principalID string) (*UserDTO, error) {
	actor, err := s.guard.Actor(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return ToUserDTO(actor), nil
}

// Create provisions a profile for an identity-provider principal
func (s *UserService) Create(ctx context.Context, principalID string, input CreateUserInput) (*UserDTO, error) {
	actor, err := s.guard.Actor(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, policy.Request{
		Actor:      actor,
		Entity:     casework.EntityUser,
		Transition: casework.TransitionCreate,
	}); err != nil {
		return nil, err
	}

	_, err = s.users.FindByPrincipal(ctx, input.PrincipalID)
	switch {
	case err == nil:
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "A profile already exists for this principal")
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	user, err := identity.NewUser(input.PrincipalID, input.Email, input.DisplayName, input.Role)
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Error("Failed to save user", zap.String("principal_id", input.PrincipalID), zap.Error(err))
		return nil, err
	}
	s.guard.Touch(ctx, actor)

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.String("created_by", actor.ID.String()))
	return ToUserDTO(user), nil
}

// ChangeRole assigns a new role to a user
func (s *UserService) ChangeRole(ctx context.Context, principalID string, userID uuid.UUID, role identity.Role) (*UserDTO, error) {
	return s.mutate(ctx, principalID, userID, casework.TransitionChangeRole, func(u *identity.User) error {
		return u.ChangeRole(role)
	})
}

// Activate re-enables a deactivated user
func (s *UserService) Activate(ctx context.Context, principalID string, userID uuid.UUID) (*UserDTO, error) {
	return s.mutate(ctx, principalID, userID, casework.TransitionActivate, (*identity.User).Activate)
}

// Deactivate blocks a user from taking any transition. Admins cannot
// deactivate themselves.
func (s *UserService) Deactivate(ctx context.Context, principalID string, userID uuid.UUID) (*UserDTO, error) {
	return s.mutate(ctx, principalID, userID, casework.TransitionDeactivate, (*identity.User).Deactivate)
}

// UpdateProfile edits email and display name. Users may edit their own profile.
func (s *UserService) UpdateProfile(ctx context.Context, principalID string, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	return s.mutate(ctx, principalID, userID, casework.TransitionUpdateProfile, func(u *identity.User) error {
		return u.UpdateProfile(input.Email, input.DisplayName)
	})
}

// Delete permanently removes a user profile. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, principalID string, userID uuid.UUID) error {
	actor, target, err := s.authorize(ctx, principalID, userID, casework.TransitionDelete)
	if err != nil {
		return err
	}
	target.MarkDeleted()
	if err := s.users.Delete(ctx, target); err != nil {
		s.logger.Error("Failed to delete user", zap.String("user_id", userID.String()), zap.Error(err))
		return err
	}
	s.guard.Touch(ctx, actor)
	s.logger.Info("User deleted", zap.String("user_id", userID.String()), zap.String("deleted_by", actor.ID.String()))
	return nil
}

func (s *UserService) authorize(ctx context.Context, principalID string, userID uuid.UUID, tr casework.Transition) (*identity.User, *identity.User, error) {
	actor, err := s.guard.Actor(ctx, principalID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	status := "Inactive"
	if target.IsActive {
		status = "Active"
	}
	if err := s.guard.Check(ctx, policy.Request{
		Actor:        actor,
		Entity:       casework.EntityUser,
		Status:       status,
		Transition:   tr,
		IsSelfRecord: actor.ID == target.ID,
	}); err != nil {
		return nil, nil, err
	}
	return actor, target, nil
}

func (s *UserService) mutate(ctx context.Context, principalID string, userID uuid.UUID, tr casework.Transition, apply func(*identity.User) error) (*UserDTO, error) {
	actor, target, err := s.authorize(ctx, principalID, userID, tr)
	if err != nil {
		return nil, err
	}
	if err := apply(target); err != nil {
		return nil, err
	}
	if len(target.GetDomainEvents()) > 0 {
		if err := s.users.Save(ctx, target); err != nil {
			s.logger.Error("Failed to save user",
				zap.String("user_id", userID.String()),
				zap.String("transition", string(tr)),
				zap.Error(err))
			return nil, err
		}
	}
	s.guard.Touch(ctx, actor)
	return ToUserDTO(target), nil
}
