package user

import (
	"strings"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/rbac"
)

type UpdateRoleDTO struct {
	Role string `json:"role"`
}

type BulkUpdateRolesDTO struct {
	UserIDs []int64 `json:"userIds"`
	Role    string  `json:"role"`
}

func validateRole(role string) error {
	if strings.TrimSpace(role) == "" {
		return internal.NewValidationFieldError("role", "Role is required", internal.ErrCodeRequiredField)
	}
	if !rbac.IsAssignableRole(role) {
		return internal.NewValidationError("Invalid role: "+role, internal.ErrCodeInvalidRole).
			WithDetails(map[string]interface{}{"validRoles": rbac.AssignableRoles()})
	}
	return nil
}

func (d UpdateRoleDTO) Validate() error {
	return validateRole(d.Role)
}

func (d BulkUpdateRolesDTO) Validate() error {
	if len(d.UserIDs) == 0 {
		return internal.NewValidationFieldError("userIds", "User IDs are required", internal.ErrCodeRequiredField)
	}
	return validateRole(d.Role)
}

type UsersResponse struct {
	Success bool    `json:"success"`
	Users   []*User `json:"users"`
	Total   int     `json:"total"`
}

type UserResponse struct {
	Success bool  `json:"success"`
	User    *User `json:"user"`
}

type BasicInfoResponse struct {
	Success bool        `json:"success"`
	Users   []BasicInfo `json:"users"`
}

type RolesResponse struct {
	Success bool     `json:"success"`
	Roles   []string `json:"roles"`
}

type StatsResponse struct {
	Success bool       `json:"success"`
	Stats   *RoleStats `json:"stats"`
}

type BulkUpdateResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	UpdatedCount int                  `json:"updatedCount"`
	Result       BulkRoleUpdateResult `json:"result"`
}
