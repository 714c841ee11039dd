// Package service implements roster management under the department-scoped
// manager rule.
package service

import (
	"context"
	"errors"

	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/rbac"
	"salesdesk_backend/internal/users/repository"
	"salesdesk_backend/internal/users/transport"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

const usersTable = "users"

type Actor struct {
	ID   uuid.UUID
	Role rbac.Role
}

type Service struct {
	repo     *repository.Repository
	recorder *audit.Recorder
	log      *logger.Logger
}

func New(repo *repository.Repository, recorder *audit.Recorder, log *logger.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, log: log}
}

func (s *Service) List(ctx context.Context, actor Actor) ([]transport.UserResponse, error) {
	if err := rbac.Authorize(actor.Role, rbac.ActionManageUsers); err != nil {
		return nil, err
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out, nil
}

// Create adds a roster entry. The acting manager must be able to manage the
// assigned role, which scopes managers to their own department.
func (s *Service) Create(ctx context.Context, actor Actor, req transport.CreateUserRequest) (transport.UserResponse, error) {
	target := rbac.Role(req.Role)
	if !rbac.Known(target) {
		return transport.UserResponse{}, apperr.Validation("unknown role").
			WithDetails(map[string]string{"role": req.Role})
	}
	if !rbac.CanManageRole(actor.Role, target) {
		return transport.UserResponse{}, apperr.Forbidden("you cannot assign this role").
			WithDetails(map[string]string{"role": req.Role})
	}

	user, err := s.repo.Create(ctx, repository.CreateParams{
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	})
	if err != nil {
		return transport.UserResponse{}, apperr.Wrap(apperr.KindInternal, "create user", err)
	}

	if err := s.recorder.RecordChange(ctx, s.repo.Pool(), usersTable, user.ID, audit.ActionCreate, actor.ID,
		nil, toUserResponse(user)); err != nil {
		s.log.DatabaseError("audit user creation", err)
	}

	return toUserResponse(user), nil
}

// UpdateRole reassigns a user's role. The manager must be able to manage
// both the current and the new role, so users cannot be pulled across
// department boundaries.
func (s *Service) UpdateRole(ctx context.Context, actor Actor, userID uuid.UUID, req transport.UpdateRoleRequest) (transport.UserResponse, error) {
	newRole := rbac.Role(req.Role)
	if !rbac.Known(newRole) {
		return transport.UserResponse{}, apperr.Validation("unknown role").
			WithDetails(map[string]string{"role": req.Role})
	}

	current, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.UserResponse{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return transport.UserResponse{}, err
	}

	if !rbac.CanManageRole(actor.Role, rbac.Role(current.Role)) || !rbac.CanManageRole(actor.Role, newRole) {
		return transport.UserResponse{}, apperr.Forbidden("you cannot manage this role change").
			WithDetails(map[string]string{"from": current.Role, "to": req.Role})
	}

	updated, err := s.repo.UpdateRole(ctx, userID, req.Role)
	if err != nil {
		return transport.UserResponse{}, err
	}

	if err := s.recorder.RecordChange(ctx, s.repo.Pool(), usersTable, userID, audit.ActionUpdate, actor.ID,
		toUserResponse(current), toUserResponse(updated)); err != nil {
		s.log.DatabaseError("audit role change", err)
	}

	return toUserResponse(updated), nil
}

// Deactivate disables a roster entry without deleting its history.
func (s *Service) Deactivate(ctx context.Context, actor Actor, userID uuid.UUID) (transport.UserResponse, error) {
	current, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.UserResponse{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return transport.UserResponse{}, err
	}

	if !rbac.CanManageRole(actor.Role, rbac.Role(current.Role)) {
		return transport.UserResponse{}, apperr.Forbidden("you cannot manage this user").
			WithDetails(map[string]string{"role": current.Role})
	}

	updated, err := s.repo.SetActive(ctx, userID, false)
	if err != nil {
		return transport.UserResponse{}, err
	}

	if err := s.recorder.RecordChange(ctx, s.repo.Pool(), usersTable, userID, audit.ActionUpdate, actor.ID,
		toUserResponse(current), toUserResponse(updated)); err != nil {
		s.log.DatabaseError("audit user deactivation", err)
	}

	return toUserResponse(updated), nil
}

// Roles enumerates every known role with the dashboard surfaces it may see.
func Roles() []transport.RoleResponse {
	roles := rbac.Roles()
	out := make([]transport.RoleResponse, 0, len(roles))
	for _, role := range roles {
		surfaces := rbac.Surfaces(role)
		names := make([]string, 0, len(surfaces))
		for _, s := range surfaces {
			names = append(names, string(s))
		}
		out = append(out, transport.RoleResponse{Role: string(role), Surfaces: names})
	}
	return out
}

func toUserResponse(u repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
