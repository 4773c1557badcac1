package user

import (
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/user"
)

// User is the account record shared by the auth and user-administration packages.
type User struct {
	ID             int64
	Username       string
	PasswordHash   string
	Email          string
	Name           string
	Location       string
	Department     string
	EmployeeNumber string
	Notes          string
	RoleID         int64
	RoleName       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func FromDataModel(m *userDatamodel.User) *User {
	if m == nil {
		return nil
	}
	u := &User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Email:        m.Email,
		Name:         m.Name,
		Location:     m.Location,
		Department:   m.Department,
		RoleID:       m.RoleID,
		RoleName:     m.RoleName,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.EmployeeNumber != nil {
		u.EmployeeNumber = *m.EmployeeNumber
	}
	if m.Notes != nil {
		u.Notes = *m.Notes
	}
	return u
}

func (u *User) ToDataModel() *userDatamodel.User {
	return &userDatamodel.User{
		ID:             u.ID,
		Username:       u.Username,
		PasswordHash:   u.PasswordHash,
		Email:          u.Email,
		Name:           u.Name,
		Location:       u.Location,
		Department:     u.Department,
		EmployeeNumber: optional(u.EmployeeNumber),
		Notes:          optional(u.Notes),
		RoleID:         u.RoleID,
		RoleName:       u.RoleName,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// blank values are stored as NULL so the unique index on employee_number ignores them
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
