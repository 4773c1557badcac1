package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/spine-admin/internal/auth"
	rbacDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/spine-admin/internal/rbac"
	"github.com/frahmantamala/spine-admin/pkg/logger"
)

var (
	clearGrants   bool
	adminUsername string
	adminEmail    string
	adminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the permission catalogue",
	Long:  `Install system roles, the permission catalogue and default grants, and optionally an administrator account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		lg := logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer sqlDB.Close()

		db, err := initGorm(sqlDB)
		if err != nil {
			return fmt.Errorf("failed to init gorm: %w", err)
		}

		s := &seeder{db: db, bcryptCost: cfg.Security.BCryptCost, logger: lg}
		return s.run(ctx)
	},
}

type seeder struct {
	db         *gorm.DB
	bcryptCost int
	logger     *slog.Logger
}

func (s *seeder) run(ctx context.Context) error {
	if err := s.seedRoles(ctx); err != nil {
		return err
	}
	if err := s.seedPermissions(ctx); err != nil {
		return err
	}
	if err := s.seedGrants(ctx, clearGrants); err != nil {
		return err
	}
	if adminPassword == "" {
		s.logger.Info("no --admin-password given; skipping administrator account")
		return nil
	}
	_, err := s.seedAdmin(ctx, adminUsername, adminEmail, adminPassword)
	return err
}

func (s *seeder) seedRoles(ctx context.Context) error {
	for _, r := range rbac.SystemRoles {
		row := rbacDatamodel.Role{ID: r.ID, Name: r.Name, Description: r.Description, IsActive: true}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert role %s: %w", r.Name, err)
		}
	}
	return nil
}

func (s *seeder) seedPermissions(ctx context.Context) error {
	for _, p := range rbac.DefaultPermissions {
		row := rbacDatamodel.Permission{
			Name:        p.Name,
			Description: p.Description,
			Resource:    p.Resource,
			Action:      p.Action,
			IsActive:    true,
		}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert permission %s: %w", p.Name, err)
		}
	}
	s.logger.Info("permission catalogue seeded", "permissions", len(rbac.DefaultPermissions))
	return nil
}

// seedGrants attaches the default permissions to the system roles. With reset, existing grants of
// those roles are removed first.
func (s *seeder) seedGrants(ctx context.Context, reset bool) error {
	grants := make(map[int64][]string, len(rbac.SystemRoles))
	for _, r := range rbac.SystemRoles {
		grants[r.ID] = rbac.DefaultGrants[r.Name]
	}
	all := make([]string, 0, len(rbac.DefaultPermissions))
	for _, p := range rbac.DefaultPermissions {
		all = append(all, p.Name)
	}
	grants[rbac.AdminRoleID] = all

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for roleID, names := range grants {
			if reset {
				if err := tx.Where("role_id = ?", roleID).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
					return fmt.Errorf("failed to clear grants of role %d: %w", roleID, err)
				}
			}
			if len(names) == 0 {
				continue
			}

			var ids []int64
			if err := tx.Model(&rbacDatamodel.Permission{}).Where("permission_name IN ?", names).Pluck("id", &ids).Error; err != nil {
				return err
			}
			if len(ids) == 0 {
				continue
			}
			rows := make([]rbacDatamodel.RolePermission, len(ids))
			for i, id := range ids {
				rows[i] = rbacDatamodel.RolePermission{RoleID: roleID, PermissionID: id}
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to grant permissions to role %d: %w", roleID, err)
			}
			s.logger.Info("granted permissions", "role", rbac.RoleNameForID(roleID), "count", len(rows))
		}
		return nil
	})
}

// seedAdmin creates the administrator unless the username is taken. It reports whether a row was written.
func (s *seeder) seedAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if len(password) < auth.MinPasswordLength {
		return false, fmt.Errorf("admin password must be at least %d characters", auth.MinPasswordLength)
	}

	var existing userDatamodel.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		s.logger.Info("admin user already exists", "username", username)
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := userDatamodel.User{
		Username:     username,
		PasswordHash: string(hash),
		Email:        email,
		Name:         "Administrator",
		Location:     "HQ",
		Department:   auth.DepartmentFinance,
		RoleID:       rbac.AdminRoleID,
		RoleName:     rbac.RoleAdmin,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, fmt.Errorf("failed to insert admin user: %w", err)
	}
	s.logger.Info("seeded admin user", "username", username, "email", email)
	return true, nil
}

func init() {
	seedCmd.Flags().BoolVar(&clearGrants, "clear", false, "Reset system role grants to the defaults before seeding")
	seedCmd.Flags().StringVar(&adminUsername, "admin-username", "admin", "Administrator username")
	seedCmd.Flags().StringVar(&adminEmail, "admin-email", "admin@example.com", "Administrator email")
	seedCmd.Flags().StringVar(&adminPassword, "admin-password", "", "Administrator password; the account is only created when set")
}
