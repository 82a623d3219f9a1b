package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/eachn05-lang/Ea-desk/internal/domain"
	"github.com/eachn05-lang/Ea-desk/internal/policy"
	"github.com/eachn05-lang/Ea-desk/internal/repository"
	"github.com/eachn05-lang/Ea-desk/pkg/util"
)

// ProvisionInput carries the identity claims the directory consumes.
type ProvisionInput struct {
	UserID     string
	Email      string
	FirstName  string
	LastName   string
	Department string
}

// UserService owns the user directory: provisioning rows from identity
// claims, the team listing and role changes. Roles live in the
// directory; tokens never grant admin by themselves.
type UserService struct {
	users           repository.UserRepository
	bootstrapAdmins map[string]struct{}
	logger          *zap.Logger
}

// NewUserService constructs the service. Users whose email appears in
// bootstrapAdmins are provisioned as admins, which seeds the first admin
// of a fresh deployment.
func NewUserService(users repository.UserRepository, bootstrapAdmins []string, logger *zap.Logger) *UserService {
	set := make(map[string]struct{}, len(bootstrapAdmins))
	for _, email := range bootstrapAdmins {
		set[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return &UserService{users: users, bootstrapAdmins: set, logger: logger}
}

// Resolve returns the directory row behind a verified token subject,
// provisioning it on first sight. Profile fields follow the claims;
// the stored role always wins for existing rows.
func (s *UserService) Resolve(ctx context.Context, input ProvisionInput) (*domain.User, error) {
	if input.UserID == "" {
		return nil, util.NewUnauthorized("token has no subject")
	}

	existing, err := s.users.GetByID(ctx, input.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, util.MapError(err)
	}

	user := &domain.User{
		ID:         input.UserID,
		Email:      strings.TrimSpace(input.Email),
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		Department: strings.TrimSpace(input.Department),
	}
	if existing != nil {
		if profileMatches(existing, user) {
			return existing, nil
		}
		user.Role = existing.Role
	} else {
		user.Role = s.initialRole(user.Email)
		s.logger.Info("provisioning user",
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)),
		)
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, util.MapError(err)
	}
	return user, nil
}

// Get fetches one directory row.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewNotFound("user")
		}
		return nil, util.MapError(err)
	}
	return user, nil
}

// ListTeam returns the whole directory. Admin only.
func (s *UserService) ListTeam(ctx context.Context, principal domain.Principal) ([]domain.User, error) {
	if !policy.CanManageUsers(principal) {
		return nil, util.NewForbidden()
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	return users, nil
}

// UpdateRole changes one user's role. Admin only; admins cannot change
// their own role, and the store refuses to demote the last admin.
func (s *UserService) UpdateRole(ctx context.Context, principal domain.Principal, userID string, role domain.Role) (*domain.User, error) {
	if !policy.CanManageUsers(principal) {
		return nil, util.NewForbidden()
	}
	if !role.Valid() {
		return nil, util.NewValidationError("invalid role", map[string]any{"fields": []string{"role"}})
	}
	if userID == principal.UserID {
		return nil, util.NewConflict("cannot change own role", nil)
	}

	user, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, util.NewNotFound("user")
		case errors.Is(err, repository.ErrLastAdmin):
			return nil, util.NewConflict("cannot demote the last admin", nil)
		}
		return nil, util.MapError(err)
	}

	s.logger.Info("role updated",
		zap.String("user_id", userID),
		zap.String("role", string(role)),
		zap.String("actor_id", principal.UserID),
	)
	return user, nil
}

func (s *UserService) initialRole(email string) domain.Role {
	if email != "" {
		if _, ok := s.bootstrapAdmins[strings.ToLower(email)]; ok {
			return domain.RoleAdmin
		}
	}
	return domain.RoleEmployee
}

func profileMatches(stored, claimed *domain.User) bool {
	return stored.Email == claimed.Email &&
		stored.FirstName == claimed.FirstName &&
		stored.LastName == claimed.LastName &&
		stored.Department == claimed.Department
}
