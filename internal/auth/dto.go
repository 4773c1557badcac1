package auth

import (
	"strings"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/core/common/validation"
)

const MinPasswordLength = 6

// RegisterDTO is shared by self-registration and admin account creation.
type RegisterDTO struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Location       string `json:"location"`
	Department     string `json:"department"`
	EmployeeNumber string `json:"employeeNumber"`
	Role           string `json:"role"`
}

// Normalized trims the identifying fields so stored values match what login looks up.
func (d RegisterDTO) Normalized() RegisterDTO {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.TrimSpace(d.Email)
	d.Name = strings.TrimSpace(d.Name)
	d.Location = strings.TrimSpace(d.Location)
	d.Department = strings.TrimSpace(d.Department)
	d.EmployeeNumber = strings.TrimSpace(d.EmployeeNumber)
	d.Role = strings.TrimSpace(d.Role)
	return d
}

// Validate checks fields in order and stops at the first failure.
func (d RegisterDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required("Username is required")
	v.Field("password", d.Password).
		MinLength(MinPasswordLength, "Password must be at least 6 characters", internal.ErrCodePasswordTooShort)
	v.Field("email", d.Email).Required("Email is required")
	v.Field("name", d.Name).Required("Name is required")
	v.Field("location", d.Location).Required("Location is required")
	v.Field("department", d.Department).
		OneOf(validDepartments, "Invalid department selected", internal.ErrCodeInvalidDepartment, "validDepartments")
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// LoginDTO carries a username, email or employee number in Username.
type LoginDTO struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Department string `json:"department,omitempty"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required("Username, email, or employee ID is required")
	v.Field("password", d.Password).Required("Password is required")
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func validateChangePassword(username string, d ChangePasswordDTO) error {
	v := validation.NewValidator()
	v.Field("username", username).Required("Username is required")
	v.Field("currentPassword", d.CurrentPassword).Required("Current password is required")
	v.Field("newPassword", d.NewPassword).
		Required("New password is required").
		MinLength(MinPasswordLength, "New password must be at least 6 characters long", internal.ErrCodePasswordTooShort).
		Custom(func(value string) *internal.AppError {
			if value == d.CurrentPassword {
				return internal.NewValidationFieldError("newPassword",
					"New password must be different from current password", internal.ErrCodePasswordUnchanged)
			}
			return nil
		})
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateEmailDTO struct {
	Email string `json:"email"`
}

func validateUpdateEmail(username string, d UpdateEmailDTO) error {
	v := validation.NewValidator()
	v.Field("username", username).Required("Username is required")
	v.Field("email", d.Email).
		Required("Email is required").
		Email("Invalid email format")
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type DepartmentsResponse struct {
	Success              bool     `json:"success"`
	Departments          []string `json:"departments"`
	SelfRegistrableRoles []string `json:"selfRegistrableRoles"`
}

type ProfileResponse struct {
	Success bool     `json:"success"`
	User    UserView `json:"user"`
}

type CreateUserResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	User    UserView `json:"user"`
}
