package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/core/events"
	"github.com/frahmantamala/spine-admin/internal/metrics"
	"github.com/frahmantamala/spine-admin/internal/rbac"
)

const (
	updateModeSingle = "single"
	updateModeBulk   = "bulk"
)

type ServiceAPI interface {
	ListUsers(ctx context.Context) ([]*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	BasicInfo(ctx context.Context) ([]BasicInfo, error)
	AvailableRoles() []string
	UpdateRoleByID(ctx context.Context, id int64, roleName string) bool
	BulkUpdateRoles(ctx context.Context, ids []int64, roleName string) BulkRoleUpdateResult
	RoleStatistics(ctx context.Context) (*RoleStats, error)
}

type Service struct {
	repo    RepositoryAPI
	stats   RoleStatsSource
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, stats RoleStatsSource, logger *slog.Logger) *Service {
	return &Service{repo: repo, stats: stats, logger: logger}
}

func (s *Service) WithEvents(p events.Publisher) *Service {
	s.events = p
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, internal.NewInternalError("Failed to fetch users", err)
	}
	out := make([]*User, 0, len(users))
	for _, u := range users {
		out = append(out, FromCore(u))
	}
	return out, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)
		}
		return nil, internal.NewInternalError("Failed to fetch user", err)
	}
	return FromCore(u), nil
}

func (s *Service) BasicInfo(ctx context.Context) ([]BasicInfo, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BasicInfo, 0, len(users))
	for _, u := range users {
		out = append(out, u.BasicInfo())
	}
	return out, nil
}

func (s *Service) AvailableRoles() []string {
	return rbac.AssignableRoles()
}

// UpdateRoleByID resolves roleName through the fixed role table. Zero affected rows and
// storage errors both report false.
func (s *Service) UpdateRoleByID(ctx context.Context, id int64, roleName string) bool {
	ok := s.updateOne(ctx, id, rbac.RoleIDForName(roleName)) == nil
	s.metrics.RecordRoleUpdate(updateModeSingle, outcome(ok))
	return ok
}

// BulkUpdateRoles updates each id on its own; there is no batch transaction.
func (s *Service) BulkUpdateRoles(ctx context.Context, ids []int64, roleName string) BulkRoleUpdateResult {
	result := BulkRoleUpdateResult{
		Requested: len(ids),
		Results:   make([]RoleUpdateOutcome, 0, len(ids)),
	}
	if len(ids) == 0 {
		s.metrics.RecordRoleUpdate(updateModeBulk, metrics.OutcomeRejected)
		return result
	}

	roleID := rbac.RoleIDForName(roleName)
	for _, id := range ids {
		entry := RoleUpdateOutcome{UserID: id}
		if err := s.updateOne(ctx, id, roleID); err != nil {
			entry.Error = err.Error()
			result.Failed++
		} else {
			entry.Updated = true
			result.Updated++
		}
		result.Results = append(result.Results, entry)
	}

	result.Success = result.Updated == result.Requested
	s.metrics.RecordRoleUpdate(updateModeBulk, outcome(result.Success))
	if !result.Success {
		s.logger.WarnContext(ctx, "bulk role update incomplete",
			"requested", result.Requested,
			"updated", result.Updated,
			"failed", result.Failed)
	}
	return result
}

var errUpdateFailed = errors.New("database error")

func (s *Service) updateOne(ctx context.Context, id, roleID int64) error {
	affected, err := s.repo.UpdateRoleByID(ctx, id, roleID, rbac.RoleNameForID(roleID))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update user role", "user_id", id, "role_id", roleID, "error", err)
		return errUpdateFailed
	}
	if affected == 0 {
		return ErrNotFound
	}

	if s.events != nil {
		event := events.NewUserRoleChangedEvent(id, roleID, rbac.RoleNameForID(roleID))
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
		}
	}
	return nil
}

func (s *Service) RoleStatistics(ctx context.Context) (*RoleStats, error) {
	counts, err := s.stats.RoleStatistics(ctx)
	if err != nil {
		return nil, err
	}
	stats := &RoleStats{RoleCounts: counts}
	for _, c := range counts {
		stats.TotalUsers += c.UserCount
	}
	return stats, nil
}

func outcome(ok bool) string {
	if ok {
		return metrics.OutcomeSuccess
	}
	return metrics.OutcomeRejected
}
