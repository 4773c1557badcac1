package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/core/events"
	"github.com/frahmantamala/spine-admin/internal/metrics"
)

const unknownRoleName = "UNKNOWN"

type ServiceAPI interface {
	PermissionGraph
	HasAllPermissions(ctx context.Context, roleID int64, names ...string) bool
	PermissionKeysOf(ctx context.Context, roleID int64) PermissionSet
	CheckPermission(ctx context.Context, roleID int64, name string) CheckResult

	ListRoles(ctx context.Context, includeInactive bool) ([]*Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	UpdateRole(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error)
	DeactivateRole(ctx context.Context, id int64) error
	DeleteRole(ctx context.Context, id int64) error
	RolePermissions(ctx context.Context, id int64) ([]*Permission, error)
	SetRolePermissions(ctx context.Context, id int64, names []string) ([]*Permission, error)
	ListPermissions(ctx context.Context, activeOnly bool) ([]*Permission, error)
	RoleStatistics(ctx context.Context) ([]RoleUserCount, error)
}

type rolePermissions struct {
	names PermissionSet
	keys  PermissionSet
}

// Service is the role/permission graph plus role administration.
type Service struct {
	repo    RepositoryAPI
	cache   *lru.Cache[int64, *rolePermissions]
	mu      sync.Mutex // orders cache fills against invalidation
	gen     uint64
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService builds the graph; cacheSize 0 disables the permission cache.
func NewService(repo RepositoryAPI, cacheSize int, logger *slog.Logger) *Service {
	s := &Service{repo: repo, logger: logger}
	if cacheSize > 0 {
		cache, err := lru.New[int64, *rolePermissions](cacheSize)
		if err != nil {
			logger.Warn("permission cache disabled", "error", err)
		} else {
			s.cache = cache
		}
	}
	return s
}

func (s *Service) WithEvents(p events.Publisher) *Service {
	s.events = p
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// load never fails: storage errors and unknown roles yield empty sets.
func (s *Service) load(ctx context.Context, roleID int64) *rolePermissions {
	empty := &rolePermissions{names: NewPermissionSet(), keys: NewPermissionSet()}
	if roleID <= 0 {
		return empty
	}

	if s.cache != nil {
		if entry, ok := s.cache.Get(roleID); ok {
			s.metrics.RecordCacheLookup(true)
			return entry
		}
		s.metrics.RecordCacheLookup(false)
	}

	gen := s.generation()

	names, err := s.repo.PermissionNamesByRoleID(ctx, roleID)
	if err != nil {
		s.logger.Warn("failed to load role permissions", "role_id", roleID, "error", err)
		return empty
	}
	keys, err := s.repo.PermissionKeysByRoleID(ctx, roleID)
	if err != nil {
		s.logger.Warn("failed to load role permission keys", "role_id", roleID, "error", err)
		return empty
	}

	entry := &rolePermissions{names: NewPermissionSet(names...), keys: NewPermissionSet(keys...)}
	if s.cache != nil {
		s.mu.Lock()
		// an invalidation since the read started means entry may be stale
		if s.gen == gen {
			s.cache.Add(roleID, entry)
		}
		s.mu.Unlock()
	}
	return entry
}

func (s *Service) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Service) invalidate(roleID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cache != nil {
		s.cache.Remove(roleID)
	}
}

// PermissionsOf returns a copy of the role's granted permission names.
func (s *Service) PermissionsOf(ctx context.Context, roleID int64) PermissionSet {
	return s.load(ctx, roleID).names.Clone()
}

func (s *Service) PermissionKeysOf(ctx context.Context, roleID int64) PermissionSet {
	return s.load(ctx, roleID).keys.Clone()
}

func (s *Service) HasPermission(ctx context.Context, roleID int64, name string) bool {
	if IsAdmin(roleID) {
		return true
	}
	return s.load(ctx, roleID).names.Has(name)
}

func (s *Service) HasResourcePermission(ctx context.Context, roleID int64, resource, action string) bool {
	if IsAdmin(roleID) {
		return true
	}
	return s.load(ctx, roleID).keys.Has(PermissionKey(resource, action))
}

func (s *Service) HasAnyPermission(ctx context.Context, roleID int64, names ...string) bool {
	if IsAdmin(roleID) {
		return true
	}
	granted := s.load(ctx, roleID).names
	for _, name := range names {
		if granted.Has(name) {
			return true
		}
	}
	return false
}

func (s *Service) HasAllPermissions(ctx context.Context, roleID int64, names ...string) bool {
	if IsAdmin(roleID) {
		return true
	}
	granted := s.load(ctx, roleID).names
	for _, name := range names {
		if !granted.Has(name) {
			return false
		}
	}
	return true
}

type CheckResult struct {
	Allowed            bool   `json:"allowed"`
	Reason             string `json:"reason"`
	RequiredPermission string `json:"requiredPermission"`
}

// CheckPermission explains a single permission decision.
func (s *Service) CheckPermission(ctx context.Context, roleID int64, name string) CheckResult {
	result := CheckResult{RequiredPermission: name}

	if roleID <= 0 {
		result.Reason = "User has no role assigned"
		return result
	}

	exists, err := s.repo.PermissionExists(ctx, name)
	if err != nil {
		s.logger.Warn("permission lookup failed", "permission", name, "error", err)
	}
	if !exists {
		result.Reason = "Permission does not exist: " + name
		return result
	}

	if s.HasPermission(ctx, roleID, name) {
		result.Allowed = true
		result.Reason = "Permission granted"
		return result
	}

	result.Reason = "Permission denied. User role does not have: " + name
	return result
}

// RoleName reads the stored role name, falling back to UNKNOWN.
func (s *Service) RoleName(ctx context.Context, roleID int64) string {
	role, err := s.repo.GetRoleByID(ctx, roleID)
	if err != nil || role == nil {
		return unknownRoleName
	}
	return role.Name
}

func (s *Service) ListRoles(ctx context.Context, includeInactive bool) ([]*Role, error) {
	roles, err := s.repo.ListRoles(ctx, includeInactive)
	if err != nil {
		return nil, internal.NewInternalError("Failed to fetch roles", err)
	}
	return roles, nil
}

func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	role, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return nil, internal.NewNotFoundError("Role not found", internal.ErrCodeRoleNotFound)
		}
		return nil, internal.NewInternalError("Failed to fetch role", err)
	}
	return role, nil
}

func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(dto.RoleName)

	exists, err := s.repo.RoleNameExists(ctx, name)
	if err != nil {
		return nil, internal.NewInternalError("Failed to create role", err)
	}
	if exists {
		return nil, roleNameConflict(name)
	}

	role := &Role{Name: name, Description: strings.TrimSpace(dto.Description), IsActive: true}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, ErrRoleNameTaken) {
			return nil, roleNameConflict(name)
		}
		return nil, internal.NewInternalError("Failed to create role", err)
	}

	s.logger.Info("role created", "role_id", role.ID, "role_name", role.Name)
	return role, nil
}

// UpdateRole renames atomically: the role row and every user's denormalized role name change together.
func (s *Service) UpdateRole(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	previousName := role.Name
	newName := strings.TrimSpace(dto.RoleName)
	if newName != previousName {
		exists, err := s.repo.RoleNameExists(ctx, newName)
		if err != nil {
			return nil, internal.NewInternalError("Failed to update role", err)
		}
		if exists {
			return nil, roleNameConflict(newName)
		}
	}

	role.Name = newName
	role.Description = strings.TrimSpace(dto.Description)
	if dto.IsActive != nil {
		role.IsActive = *dto.IsActive
	}

	synced, err := s.repo.UpdateRole(ctx, role, previousName)
	if err != nil {
		if errors.Is(err, ErrRoleNameTaken) {
			return nil, roleNameConflict(newName)
		}
		return nil, internal.NewInternalError("Failed to update role", err)
	}
	s.invalidate(id)

	if newName != previousName {
		s.logger.Info("role renamed",
			"role_id", id,
			"old_name", previousName,
			"new_name", newName,
			"users_synced", synced)
		s.publish(ctx, events.NewRoleRenamedEvent(id, previousName, newName, synced))
	}
	return role, nil
}

// DeactivateRole is the soft delete: the row stays, is_active flips to false.
func (s *Service) DeactivateRole(ctx context.Context, id int64) error {
	if _, err := s.GetRole(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetRoleActive(ctx, id, false); err != nil {
		return internal.NewInternalError("Failed to delete role", err)
	}
	s.invalidate(id)
	s.logger.Info("role deactivated", "role_id", id)
	return nil
}

// DeleteRole removes the role and its grants permanently.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if _, err := s.GetRole(ctx, id); err != nil {
		return err
	}
	if IsSystemRole(id) {
		return internal.NewConflictError("System roles cannot be permanently deleted", internal.ErrCodeSystemRole)
	}

	assigned, err := s.repo.CountUsersWithRole(ctx, id)
	if err != nil {
		return internal.NewInternalError("Failed to delete role", err)
	}
	if assigned > 0 {
		return internal.NewConflictError(
			fmt.Sprintf("Role is still assigned to %d users", assigned),
			internal.ErrCodeRoleInUse,
		)
	}

	if err := s.repo.DeleteRole(ctx, id); err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return internal.NewNotFoundError("Role not found", internal.ErrCodeRoleNotFound)
		}
		return internal.NewInternalError("Failed to delete role", err)
	}
	s.invalidate(id)
	s.logger.Info("role permanently deleted", "role_id", id)
	return nil
}

func (s *Service) RolePermissions(ctx context.Context, id int64) ([]*Permission, error) {
	if _, err := s.GetRole(ctx, id); err != nil {
		return nil, err
	}
	perms, err := s.repo.PermissionsByRoleID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("Failed to fetch role permissions", err)
	}
	return perms, nil
}

// SetRolePermissions replaces the grants of a role; every name must exist.
func (s *Service) SetRolePermissions(ctx context.Context, id int64, names []string) ([]*Permission, error) {
	if _, err := s.GetRole(ctx, id); err != nil {
		return nil, err
	}

	unique := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		exists, err := s.repo.PermissionExists(ctx, name)
		if err != nil {
			return nil, internal.NewInternalError("Failed to update role permissions", err)
		}
		if !exists {
			return nil, internal.NewValidationError("Permission does not exist: "+name, internal.ErrCodeInvalidPermission)
		}
		unique = append(unique, name)
	}

	if err := s.repo.SetRolePermissions(ctx, id, unique); err != nil {
		return nil, internal.NewInternalError("Failed to update role permissions", err)
	}
	s.invalidate(id)

	s.logger.Info("role permissions replaced", "role_id", id, "count", len(unique))
	s.publish(ctx, events.NewRolePermissionsChangedEvent(id, unique))

	return s.RolePermissions(ctx, id)
}

func (s *Service) ListPermissions(ctx context.Context, activeOnly bool) ([]*Permission, error) {
	perms, err := s.repo.ListPermissions(ctx, activeOnly)
	if err != nil {
		return nil, internal.NewInternalError("Failed to fetch permissions", err)
	}
	return perms, nil
}

func (s *Service) RoleStatistics(ctx context.Context) ([]RoleUserCount, error) {
	stats, err := s.repo.CountUsersByRole(ctx)
	if err != nil {
		return nil, internal.NewInternalError("Failed to fetch role statistics", err)
	}
	return stats, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func roleNameConflict(name string) *internal.AppError {
	return internal.NewConflictError(fmt.Sprintf("Role name '%s' already exists", name), internal.ErrCodeRoleNameTaken)
}
