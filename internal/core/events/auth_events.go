package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeUserRegistered         = "user.registered"
	EventTypeUserPasswordChanged    = "user.password_changed"
	EventTypeUserEmailChanged       = "user.email_changed"
	EventTypeUserRoleChanged        = "user.role_changed"
	EventTypeRoleRenamed            = "role.renamed"
	EventTypeRolePermissionsChanged = "role.permissions_changed"
)

// AuditEventTypes lists every event the audit subscriber records.
var AuditEventTypes = []string{
	EventTypeUserRegistered,
	EventTypeUserPasswordChanged,
	EventTypeUserEmailChanged,
	EventTypeUserRoleChanged,
	EventTypeRoleRenamed,
	EventTypeRolePermissionsChanged,
}

func newBaseEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type UserRegisteredEvent struct {
	BaseEvent
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Department string `json:"department"`
	Role       string `json:"role"`
	CreatedBy  string `json:"created_by,omitempty"`
}

// NewUserRegisteredEvent records a new account; createdBy is empty for self-registration.
func NewUserRegisteredEvent(userID int64, username, department, role, createdBy string) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseEvent: newBaseEvent(EventTypeUserRegistered, map[string]interface{}{
			"user_id":    userID,
			"username":   username,
			"department": department,
			"role":       role,
			"created_by": createdBy,
		}),
		UserID:     userID,
		Username:   username,
		Department: department,
		Role:       role,
		CreatedBy:  createdBy,
	}
}

type UserPasswordChangedEvent struct {
	BaseEvent
	Username string `json:"username"`
}

func NewUserPasswordChangedEvent(username string) *UserPasswordChangedEvent {
	return &UserPasswordChangedEvent{
		BaseEvent: newBaseEvent(EventTypeUserPasswordChanged, map[string]interface{}{
			"username": username,
		}),
		Username: username,
	}
}

type UserEmailChangedEvent struct {
	BaseEvent
	Username string `json:"username"`
	Email    string `json:"email"`
}

func NewUserEmailChangedEvent(username, email string) *UserEmailChangedEvent {
	return &UserEmailChangedEvent{
		BaseEvent: newBaseEvent(EventTypeUserEmailChanged, map[string]interface{}{
			"username": username,
			"email":    email,
		}),
		Username: username,
		Email:    email,
	}
}

type UserRoleChangedEvent struct {
	BaseEvent
	UserID int64  `json:"user_id"`
	RoleID int64  `json:"role_id"`
	Role   string `json:"role"`
}

func NewUserRoleChangedEvent(userID, roleID int64, role string) *UserRoleChangedEvent {
	return &UserRoleChangedEvent{
		BaseEvent: newBaseEvent(EventTypeUserRoleChanged, map[string]interface{}{
			"user_id": userID,
			"role_id": roleID,
			"role":    role,
		}),
		UserID: userID,
		RoleID: roleID,
		Role:   role,
	}
}

type RoleRenamedEvent struct {
	BaseEvent
	RoleID      int64  `json:"role_id"`
	OldName     string `json:"old_name"`
	NewName     string `json:"new_name"`
	UsersSynced int64  `json:"users_synced"`
}

func NewRoleRenamedEvent(roleID int64, oldName, newName string, usersSynced int64) *RoleRenamedEvent {
	return &RoleRenamedEvent{
		BaseEvent: newBaseEvent(EventTypeRoleRenamed, map[string]interface{}{
			"role_id":      roleID,
			"old_name":     oldName,
			"new_name":     newName,
			"users_synced": usersSynced,
		}),
		RoleID:      roleID,
		OldName:     oldName,
		NewName:     newName,
		UsersSynced: usersSynced,
	}
}

type RolePermissionsChangedEvent struct {
	BaseEvent
	RoleID      int64    `json:"role_id"`
	Permissions []string `json:"permissions"`
}

func NewRolePermissionsChangedEvent(roleID int64, permissions []string) *RolePermissionsChangedEvent {
	return &RolePermissionsChangedEvent{
		BaseEvent: newBaseEvent(EventTypeRolePermissionsChanged, map[string]interface{}{
			"role_id":     roleID,
			"permissions": permissions,
		}),
		RoleID:      roleID,
		Permissions: permissions,
	}
}
