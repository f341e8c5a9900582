package db

import (
	"context"

	dbm "github.com/gartstein/directory/internal/directory/db/models"
	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
)

// CreateUser inserts user and fills in its id and creation time. The
// company link is not written here; see LinkOwnership.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	row := dbm.User{
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create user", err)
	}
	user.ID = row.ID
	user.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var row dbm.User
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get user", err)
	}
	return userFromRow(&row), nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var row dbm.User
	if err := r.db.WithContext(ctx).First(&row, "username = ?", username).Error; err != nil {
		return nil, translate("get user by username", err)
	}
	return userFromRow(&row), nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	var rows []dbm.User
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, translate("list users", err)
	}
	users := make([]models.User, 0, len(rows))
	for i := range rows {
		users = append(users, *userFromRow(&rows[i]))
	}
	return users, nil
}

// UpdateUser writes the account fields of user. CompanyID is ignored.
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Model(&dbm.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"username":      user.Username,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"role":          string(user.Role),
		})
	if result.Error != nil {
		return translate("update user", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate("update user", gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteUser removes the account and detaches every company that points at
// it, as creator or as login identity. Companies are never deleted.
func (r *Repository) DeleteUser(ctx context.Context, id uint) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		db := tx.db.WithContext(ctx)
		if err := db.Model(&dbm.Company{}).Where("user_id = ?", id).
			Update("user_id", nil).Error; err != nil {
			return translate("detach created companies", err)
		}
		if err := tx.UnlinkUser(ctx, id); err != nil {
			return err
		}
		result := db.Delete(&dbm.User{}, "id = ?", id)
		if result.Error != nil {
			return translate("delete user", result.Error)
		}
		if result.RowsAffected == 0 {
			return translate("delete user", gorm.ErrRecordNotFound)
		}
		return nil
	})
}

func (r *Repository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return r.taken(ctx, &dbm.User{}, "username", username, excludeID)
}

func (r *Repository) UserEmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.taken(ctx, &dbm.User{}, "email", email, excludeID)
}
