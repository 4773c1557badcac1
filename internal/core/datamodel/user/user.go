package user

import "time"

type User struct {
	ID             int64     `gorm:"primaryKey"`
	Username       string    `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash   string    `gorm:"column:password_hash;not null"`
	Email          string    `gorm:"column:email;uniqueIndex;not null"`
	Name           string    `gorm:"column:name;not null"`
	Location       string    `gorm:"column:location"`
	Department     string    `gorm:"column:department;not null"`
	EmployeeNumber *string   `gorm:"column:employee_number;uniqueIndex"`
	Notes          *string   `gorm:"column:notes"`
	RoleID         int64     `gorm:"column:role_id;not null;index"`
	RoleName       string    `gorm:"column:role_name;index"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
