package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	userDatamodel "github.com/frahmantamala/spine-admin/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/spine-admin/internal/core/user"
	"github.com/frahmantamala/spine-admin/internal/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListUsers(ctx context.Context) ([]*coreUser.User, error) {
	var models []*userDatamodel.User
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]*coreUser.User, 0, len(models))
	for _, m := range models {
		users = append(users, coreUser.FromDataModel(m))
	}
	return users, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*coreUser.User, error) {
	var model userDatamodel.User
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return coreUser.FromDataModel(&model), nil
}

// UpdateRoleByID writes role_id, the role_name stored for that id in roles (fallbackRoleName
// when the row is missing) and updated_at.
func (r *Repository) UpdateRoleByID(ctx context.Context, id, roleID int64, fallbackRoleName string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"role_id":    roleID,
			"role_name":  gorm.Expr("COALESCE((SELECT role_name FROM roles WHERE id = ?), ?)", roleID, fallbackRoleName),
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}
