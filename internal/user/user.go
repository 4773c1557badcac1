package user

import (
	"context"
	"errors"
	"time"

	coreUser "github.com/frahmantamala/spine-admin/internal/core/user"
	"github.com/frahmantamala/spine-admin/internal/rbac"
)

var ErrNotFound = errors.New("user not found")

// User is the administrative projection of an account.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	Department     string    `json:"department"`
	EmployeeNumber string    `json:"employeeNumber,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	RoleID         int64     `json:"roleId"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return rbac.IsAdmin(u.RoleID)
}

// BasicInfo is the directory listing row.
type BasicInfo struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	EmployeeNumber string `json:"employeeNumber,omitempty"`
	Role           string `json:"role"`
	Department     string `json:"department"`
}

type RoleStats struct {
	TotalUsers int64                `json:"totalUsers"`
	RoleCounts []rbac.RoleUserCount `json:"roleCounts"`
}

// RoleUpdateOutcome is the per-id result of a bulk role update.
type RoleUpdateOutcome struct {
	UserID  int64  `json:"userId"`
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// BulkRoleUpdateResult reports Success only when every requested id was updated.
// Rows that did change stay changed when others fail.
type BulkRoleUpdateResult struct {
	Success   bool                `json:"success"`
	Requested int                 `json:"requested"`
	Updated   int                 `json:"updated"`
	Failed    int                 `json:"failed"`
	Results   []RoleUpdateOutcome `json:"results"`
}

type RepositoryAPI interface {
	ListUsers(ctx context.Context) ([]*coreUser.User, error)
	GetUserByID(ctx context.Context, id int64) (*coreUser.User, error)
	// UpdateRoleByID sets role_id and the denormalized role_name and returns the affected row count.
	UpdateRoleByID(ctx context.Context, id, roleID int64, fallbackRoleName string) (int64, error)
}

// RoleStatsSource counts users per role.
type RoleStatsSource interface {
	RoleStatistics(ctx context.Context) ([]rbac.RoleUserCount, error)
}

func FromCore(u *coreUser.User) *User {
	role := u.RoleName
	if role == "" {
		role = rbac.RoleNameForID(u.RoleID)
	}
	return &User{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Name:           u.Name,
		Location:       u.Location,
		Department:     u.Department,
		EmployeeNumber: u.EmployeeNumber,
		Notes:          u.Notes,
		RoleID:         u.RoleID,
		Role:           role,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (u *User) BasicInfo() BasicInfo {
	return BasicInfo{
		ID:             u.ID,
		Name:           u.Name,
		EmployeeNumber: u.EmployeeNumber,
		Role:           u.Role,
		Department:     u.Department,
	}
}
