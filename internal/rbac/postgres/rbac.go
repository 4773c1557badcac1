package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	rbacDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/spine-admin/internal/rbac"
)

const permissionNamesByRoleQuery = `SELECT p.permission_name
	FROM permissions p
	INNER JOIN role_permissions rp ON p.id = rp.permission_id
	INNER JOIN roles r ON r.id = rp.role_id
	WHERE rp.role_id = ? AND p.is_active = ? AND r.is_active = ?`

const permissionKeysByRoleQuery = `SELECT p.resource || ':' || p.action AS perm_key
	FROM permissions p
	INNER JOIN role_permissions rp ON p.id = rp.permission_id
	INNER JOIN roles r ON r.id = rp.role_id
	WHERE rp.role_id = ? AND p.is_active = ? AND r.is_active = ?`

const usersByRoleQuery = `SELECT r.id AS role_id, r.role_name AS role_name, COUNT(u.id) AS user_count
	FROM roles r
	LEFT JOIN users u ON u.role_id = r.id
	GROUP BY r.id, r.role_name
	ORDER BY r.id`

// RoleRepository stores roles and grants with gorm; the hot permission joins go through sqlx.
type RoleRepository struct {
	db  *gorm.DB
	sql *sqlx.DB
}

func NewRoleRepository(db *gorm.DB, sqlDB *sqlx.DB) rbac.RepositoryAPI {
	return &RoleRepository{db: db, sql: sqlDB}
}

func (r *RoleRepository) PermissionNamesByRoleID(ctx context.Context, roleID int64) ([]string, error) {
	var names []string
	err := r.sql.SelectContext(ctx, &names, r.sql.Rebind(permissionNamesByRoleQuery), roleID, true, true)
	return names, err
}

func (r *RoleRepository) PermissionKeysByRoleID(ctx context.Context, roleID int64) ([]string, error) {
	var keys []string
	err := r.sql.SelectContext(ctx, &keys, r.sql.Rebind(permissionKeysByRoleQuery), roleID, true, true)
	return keys, err
}

func (r *RoleRepository) PermissionsByRoleID(ctx context.Context, roleID int64) ([]*rbac.Permission, error) {
	var models []*rbacDatamodel.Permission
	err := r.db.WithContext(ctx).
		Table("permissions AS p").
		Select("p.*").
		Joins("INNER JOIN role_permissions rp ON p.id = rp.permission_id").
		Where("rp.role_id = ? AND p.is_active = ?", roleID, true).
		Order("p.resource, p.action").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toPermissions(models), nil
}

func (r *RoleRepository) ListPermissions(ctx context.Context, activeOnly bool) ([]*rbac.Permission, error) {
	var models []*rbacDatamodel.Permission
	query := r.db.WithContext(ctx).Order("resource, action")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return toPermissions(models), nil
}

func (r *RoleRepository) PermissionExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&rbacDatamodel.Permission{}).
		Where("permission_name = ?", name).
		Count(&count).Error
	return count > 0, err
}

func (r *RoleRepository) ListRoles(ctx context.Context, includeInactive bool) ([]*rbac.Role, error) {
	var models []*rbacDatamodel.Role
	query := r.db.WithContext(ctx).Order("id ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	roles := make([]*rbac.Role, 0, len(models))
	for _, m := range models {
		roles = append(roles, rbac.RoleFromDataModel(m))
	}
	return roles, nil
}

func (r *RoleRepository) GetRoleByID(ctx context.Context, id int64) (*rbac.Role, error) {
	var model rbacDatamodel.Role
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rbac.ErrRoleNotFound
		}
		return nil, err
	}
	return rbac.RoleFromDataModel(&model), nil
}

// RoleNameExists checks active and inactive roles alike.
func (r *RoleRepository) RoleNameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&rbacDatamodel.Role{}).
		Where("role_name = ?", name).
		Count(&count).Error
	return count > 0, err
}

func (r *RoleRepository) CreateRole(ctx context.Context, role *rbac.Role) error {
	model := role.ToDataModel()
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return rbac.ErrRoleNameTaken
		}
		return err
	}
	role.ID = model.ID
	role.CreatedAt = model.CreatedAt
	role.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *RoleRepository) UpdateRole(ctx context.Context, role *rbac.Role, previousName string) (int64, error) {
	var synced int64
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&rbacDatamodel.Role{}).
			Where("id = ?", role.ID).
			Updates(map[string]interface{}{
				"role_name":        role.Name,
				"role_description": role.Description,
				"is_active":        role.IsActive,
				"updated_at":       now,
			})
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return rbac.ErrRoleNameTaken
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return rbac.ErrRoleNotFound
		}

		if previousName == role.Name {
			return nil
		}

		res = tx.Model(&userDatamodel.User{}).
			Where("role_name = ?", previousName).
			Updates(map[string]interface{}{
				"role_name":  role.Name,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		synced = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}

	role.UpdatedAt = now
	return synced, nil
}

func (r *RoleRepository) SetRoleActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).Model(&rbacDatamodel.Role{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return rbac.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) DeleteRole(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&rbacDatamodel.Role{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return rbac.ErrRoleNotFound
		}
		return nil
	})
}

func (r *RoleRepository) CountUsersWithRole(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("role_id = ?", id).
		Count(&count).Error
	return count, err
}

// SetRolePermissions replaces every grant of the role in one transaction.
func (r *RoleRepository) SetRolePermissions(ctx context.Context, roleID int64, permissionNames []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if len(permissionNames) == 0 {
			return nil
		}

		var ids []int64
		if err := tx.Model(&rbacDatamodel.Permission{}).
			Where("permission_name IN ?", permissionNames).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) != len(permissionNames) {
			return rbac.ErrPermissionNotFound
		}

		grants := make([]rbacDatamodel.RolePermission, 0, len(ids))
		for _, id := range ids {
			grants = append(grants, rbacDatamodel.RolePermission{RoleID: roleID, PermissionID: id})
		}
		return tx.Create(&grants).Error
	})
}

func (r *RoleRepository) CountUsersByRole(ctx context.Context) ([]rbac.RoleUserCount, error) {
	var stats []rbac.RoleUserCount
	err := r.sql.SelectContext(ctx, &stats, usersByRoleQuery)
	return stats, err
}

func toPermissions(models []*rbacDatamodel.Permission) []*rbac.Permission {
	perms := make([]*rbac.Permission, 0, len(models))
	for _, m := range models {
		perms = append(perms, rbac.PermissionFromDataModel(m))
	}
	return perms
}
