package rbac

import (
	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/core/common/validation"
)

const maxRoleNameLength = 100

type CreateRoleDTO struct {
	RoleName    string `json:"roleName"`
	Description string `json:"description"`
}

func (d CreateRoleDTO) Validate() *internal.AppError {
	return validateRoleName(d.RoleName)
}

type UpdateRoleDTO struct {
	RoleName    string `json:"roleName"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

func (d UpdateRoleDTO) Validate() *internal.AppError {
	return validateRoleName(d.RoleName)
}

func validateRoleName(name string) *internal.AppError {
	v := validation.NewValidator()
	v.Field("roleName", name).
		Required("Role name is required").
		Custom(func(value string) *internal.AppError {
			if len([]rune(value)) > maxRoleNameLength {
				return internal.NewValidationFieldError("roleName", "Role name must be at most 100 characters", internal.ErrCodeValidationFailed)
			}
			return nil
		})
	return v.Validate()
}

type SetRolePermissionsDTO struct {
	Permissions []string `json:"permissions"`
}

type RoleResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	Role    *Role   `json:"role,omitempty"`
	Roles   []*Role `json:"roles,omitempty"`
}

type PermissionsResponse struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message,omitempty"`
	RoleID      int64         `json:"roleId,omitempty"`
	Permissions []*Permission `json:"permissions"`
}

type AccessSummaryResponse struct {
	Success bool          `json:"success"`
	Access  AccessSummary `json:"access"`
}

type DashboardResponse struct {
	Success   bool          `json:"success"`
	Dashboard string        `json:"dashboard"`
	Access    AccessSummary `json:"access"`
}

type PermissionCheckResponse struct {
	Success bool        `json:"success"`
	Result  CheckResult `json:"result"`
}
