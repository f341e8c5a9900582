package db

import (
	"context"

	dbm "github.com/gartstein/directory/internal/directory/db/models"
	"gorm.io/gorm"
)

// LinkOwnership makes userID the login identity of companyID. Both sides of
// the link are written in one transaction, and any previous partner of either
// side is detached first so the link stays one-to-one.
func (r *Repository) LinkOwnership(ctx context.Context, userID, companyID uint) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		db := tx.db.WithContext(ctx)

		if err := db.Model(&dbm.User{}).
			Where("company_id = ? AND id <> ?", companyID, userID).
			Update("company_id", nil).Error; err != nil {
			return translate("detach previous owner", err)
		}
		if err := db.Model(&dbm.Company{}).
			Where("login_user_id = ? AND id <> ?", userID, companyID).
			Update("login_user_id", nil).Error; err != nil {
			return translate("detach previous company", err)
		}

		result := db.Model(&dbm.User{}).Where("id = ?", userID).Update("company_id", companyID)
		if result.Error != nil {
			return translate("link user", result.Error)
		}
		if result.RowsAffected == 0 {
			return translate("link user", gorm.ErrRecordNotFound)
		}

		result = db.Model(&dbm.Company{}).Where("id = ?", companyID).Update("login_user_id", userID)
		if result.Error != nil {
			return translate("link company", result.Error)
		}
		if result.RowsAffected == 0 {
			return translate("link company", gorm.ErrRecordNotFound)
		}
		return nil
	})
}

// UnlinkUser clears the login-identity link of userID on both sides.
func (r *Repository) UnlinkUser(ctx context.Context, userID uint) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		db := tx.db.WithContext(ctx)
		if err := db.Model(&dbm.Company{}).Where("login_user_id = ?", userID).
			Update("login_user_id", nil).Error; err != nil {
			return translate("unlink company", err)
		}
		if err := db.Model(&dbm.User{}).Where("id = ?", userID).
			Update("company_id", nil).Error; err != nil {
			return translate("unlink user", err)
		}
		return nil
	})
}

// UnlinkCompany clears the login-identity link of companyID on both sides.
func (r *Repository) UnlinkCompany(ctx context.Context, companyID uint) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		db := tx.db.WithContext(ctx)
		if err := db.Model(&dbm.User{}).Where("company_id = ?", companyID).
			Update("company_id", nil).Error; err != nil {
			return translate("unlink user", err)
		}
		if err := db.Model(&dbm.Company{}).Where("id = ?", companyID).
			Update("login_user_id", nil).Error; err != nil {
			return translate("unlink company", err)
		}
		return nil
	})
}
