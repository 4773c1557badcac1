// Package testutil provides an in-memory database with the production schema for repository tests.
package testutil

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	rbacDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/user"
)

type TestDB struct {
	Gorm *gorm.DB
	SQL  *sqlx.DB
}

// NewSQLiteDB opens a private in-memory database, migrates every model and seeds the four system roles.
func NewSQLiteDB() (*TestDB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every new connection would get its own empty :memory: database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&rbacDatamodel.Role{},
		&rbacDatamodel.Permission{},
		&rbacDatamodel.RolePermission{},
		&userDatamodel.User{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	roles := []rbacDatamodel.Role{
		{ID: 1, Name: "USER", Description: "Standard employee", IsActive: true},
		{ID: 2, Name: "ADMIN", Description: "Full administrative access", IsActive: true},
		{ID: 3, Name: "MANAGER", Description: "Team and workflow management", IsActive: true},
		{ID: 4, Name: "FINANCE", Description: "Finance operations", IsActive: true},
	}
	if err := db.Create(&roles).Error; err != nil {
		return nil, fmt.Errorf("seed roles: %w", err)
	}

	return &TestDB{Gorm: db, SQL: sqlx.NewDb(sqlDB, "sqlite3")}, nil
}

// GrantPermission creates the permission if needed and attaches it to the role.
func (t *TestDB) GrantPermission(roleID int64, name, resource, action string) error {
	perm := rbacDatamodel.Permission{Name: name, Resource: resource, Action: action, IsActive: true}
	if err := t.Gorm.Where("permission_name = ?", name).FirstOrCreate(&perm).Error; err != nil {
		return err
	}
	return t.Gorm.Create(&rbacDatamodel.RolePermission{RoleID: roleID, PermissionID: perm.ID}).Error
}

// CreateUser inserts a minimal account with the given role.
func (t *TestDB) CreateUser(username string, roleID int64, roleName string) (*userDatamodel.User, error) {
	u := &userDatamodel.User{
		Username:     username,
		PasswordHash: "x",
		Email:        username + "@example.com",
		Name:         username,
		Location:     "HQ",
		Department:   "Finance",
		RoleID:       roleID,
		RoleName:     roleName,
	}
	return u, t.Gorm.Create(u).Error
}

func (t *TestDB) Close() error {
	return t.SQL.Close()
}
