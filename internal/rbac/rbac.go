package rbac

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	rbacDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/rbac"
)

// Fixed role ids. Role-name to id resolution never consults storage.
const (
	UserRoleID    int64 = 1
	AdminRoleID   int64 = 2
	ManagerRoleID int64 = 3
	FinanceRoleID int64 = 4
)

const (
	RoleUser    = "USER"
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleFinance = "FINANCE"
)

var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrRoleNameTaken      = errors.New("role name already exists")
	ErrPermissionNotFound = errors.New("permission not found")
)

var roleIDsByName = map[string]int64{
	RoleUser:    UserRoleID,
	RoleAdmin:   AdminRoleID,
	RoleManager: ManagerRoleID,
	RoleFinance: FinanceRoleID,
}

var roleNamesByID = map[int64]string{
	UserRoleID:    RoleUser,
	AdminRoleID:   RoleAdmin,
	ManagerRoleID: RoleManager,
	FinanceRoleID: RoleFinance,
}

// NormalizeRoleName trims and upper-cases a role label.
func NormalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// RoleIDForName resolves a role label through the fixed table; unknown labels resolve to USER.
func RoleIDForName(name string) int64 {
	if id, ok := roleIDsByName[NormalizeRoleName(name)]; ok {
		return id
	}
	return UserRoleID
}

// RoleNameForID is the fallback label for a role id; unknown ids map to USER.
func RoleNameForID(id int64) string {
	if name, ok := roleNamesByID[id]; ok {
		return name
	}
	return RoleUser
}

func IsAdmin(roleID int64) bool {
	return roleID == AdminRoleID
}

func IsSystemRole(roleID int64) bool {
	_, ok := roleNamesByID[roleID]
	return ok
}

// AssignableRoles lists the labels an administrator may assign.
func AssignableRoles() []string {
	return []string{RoleAdmin, RoleUser, RoleManager, RoleFinance}
}

func IsAssignableRole(name string) bool {
	_, ok := roleIDsByName[NormalizeRoleName(name)]
	return ok
}

type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"roleName"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func RoleFromDataModel(m *rbacDatamodel.Role) *Role {
	if m == nil {
		return nil
	}
	return &Role{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r *Role) ToDataModel() *rbacDatamodel.Role {
	return &rbacDatamodel.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"permissionName"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	IsActive    bool   `json:"isActive"`
}

// Key is the resource:action form of the permission.
func (p Permission) Key() string {
	return PermissionKey(p.Resource, p.Action)
}

func PermissionKey(resource, action string) string {
	return resource + ":" + action
}

func PermissionFromDataModel(m *rbacDatamodel.Permission) *Permission {
	if m == nil {
		return nil
	}
	return &Permission{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Resource:    m.Resource,
		Action:      m.Action,
		IsActive:    m.IsActive,
	}
}

// PermissionSet is an unordered set of permission names or keys.
type PermissionSet map[string]struct{}

func NewPermissionSet(items ...string) PermissionSet {
	s := make(PermissionSet, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func (s PermissionSet) Has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for item := range s {
		out[item] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

type RoleUserCount struct {
	RoleID    int64  `db:"role_id" json:"roleId"`
	RoleName  string `db:"role_name" json:"roleName"`
	UserCount int64  `db:"user_count" json:"userCount"`
}

type RepositoryAPI interface {
	PermissionNamesByRoleID(ctx context.Context, roleID int64) ([]string, error)
	PermissionKeysByRoleID(ctx context.Context, roleID int64) ([]string, error)
	PermissionsByRoleID(ctx context.Context, roleID int64) ([]*Permission, error)
	ListPermissions(ctx context.Context, activeOnly bool) ([]*Permission, error)
	PermissionExists(ctx context.Context, name string) (bool, error)

	ListRoles(ctx context.Context, includeInactive bool) ([]*Role, error)
	GetRoleByID(ctx context.Context, id int64) (*Role, error)
	RoleNameExists(ctx context.Context, name string) (bool, error)
	CreateRole(ctx context.Context, role *Role) error
	// UpdateRole saves the role and, when the name changed, rewrites the denormalized
	// role name on every user carrying previousName, atomically. It returns the users touched.
	UpdateRole(ctx context.Context, role *Role, previousName string) (int64, error)
	SetRoleActive(ctx context.Context, id int64, active bool) error
	DeleteRole(ctx context.Context, id int64) error
	CountUsersWithRole(ctx context.Context, id int64) (int64, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissionNames []string) error
	CountUsersByRole(ctx context.Context) ([]RoleUserCount, error)
}
