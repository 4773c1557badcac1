package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/spine-admin/internal/auth"
	rbacDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/spine-admin/internal/core/user"
	"github.com/frahmantamala/spine-admin/internal/rbac"
)

// Repository is the credential store over the users table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*coreUser.User, error) {
	return r.findBy(ctx, "username = ?", username)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*coreUser.User, error) {
	return r.findBy(ctx, "email = ?", email)
}

func (r *Repository) FindByEmployeeNumber(ctx context.Context, employeeNumber string) (*coreUser.User, error) {
	return r.findBy(ctx, "employee_number = ?", employeeNumber)
}

func (r *Repository) findBy(ctx context.Context, condition string, value string) (*coreUser.User, error) {
	var model userDatamodel.User
	err := r.db.WithContext(ctx).Where(condition, value).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return coreUser.FromDataModel(&model), nil
}

func (r *Repository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *Repository) ExistsByEmployeeNumber(ctx context.Context, employeeNumber string) (bool, error) {
	return r.exists(ctx, "employee_number = ?", employeeNumber)
}

func (r *Repository) exists(ctx context.Context, condition string, value string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where(condition, value).Count(&count).Error
	return count > 0, err
}

// Create persists the account. role_name is taken from the roles table for RoleID.
func (r *Repository) Create(ctx context.Context, u *coreUser.User) error {
	u.RoleName = r.roleName(ctx, u.RoleID, u.RoleName)

	model := u.ToDataModel()
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return auth.ErrDuplicateUser
		}
		return err
	}

	u.ID = model.ID
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *Repository) roleName(ctx context.Context, roleID int64, fallback string) string {
	var role rbacDatamodel.Role
	if err := r.db.WithContext(ctx).Select("role_name").First(&role, roleID).Error; err == nil && role.Name != "" {
		return role.Name
	}
	if fallback != "" {
		return fallback
	}
	return rbac.RoleNameForID(roleID)
}

// UpdatePassword writes password_hash and updated_at only.
func (r *Repository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	return r.updateColumn(ctx, username, "password_hash", passwordHash)
}

// UpdateEmail writes email and updated_at only.
func (r *Repository) UpdateEmail(ctx context.Context, username, email string) error {
	return r.updateColumn(ctx, username, "email", email)
}

func (r *Repository) updateColumn(ctx context.Context, username, column string, value interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("username = ?", username).
		UpdateColumns(map[string]interface{}{
			column:       value,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return auth.ErrDuplicateUser
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}
