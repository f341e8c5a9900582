package db

import (
	"context"

	dbm "github.com/gartstein/directory/internal/directory/db/models"
	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
)

func (r *Repository) CreateRegion(ctx context.Context, region *models.Region) error {
	row := dbm.Region{Name: region.Name, Description: region.Description}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create region", err)
	}
	region.ID = row.ID
	return nil
}

func (r *Repository) GetRegion(ctx context.Context, id uint) (*models.Region, error) {
	var row dbm.Region
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get region", err)
	}
	return regionFromRow(&row), nil
}

func (r *Repository) ListRegions(ctx context.Context) ([]models.Region, error) {
	var rows []dbm.Region
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, translate("list regions", err)
	}
	regions := make([]models.Region, 0, len(rows))
	for i := range rows {
		regions = append(regions, *regionFromRow(&rows[i]))
	}
	return regions, nil
}

func (r *Repository) UpdateRegion(ctx context.Context, update *models.RegionUpdate) error {
	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&dbm.Region{}).
		Where("id = ?", update.ID).
		Updates(fields)
	if result.Error != nil {
		return translate("update region", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate("update region", gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteRegion removes a region together with all of its locations and sets
// region_id to null on every company that referenced it. It returns the
// number of locations removed.
func (r *Repository) DeleteRegion(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		db := tx.db.WithContext(ctx)

		result := db.Where("region_id = ?", id).Delete(&dbm.Location{})
		if result.Error != nil {
			return translate("delete region locations", result.Error)
		}
		removed = result.RowsAffected

		if err := db.Model(&dbm.Company{}).Where("region_id = ?", id).
			Update("region_id", nil).Error; err != nil {
			return translate("detach region companies", err)
		}

		result = db.Delete(&dbm.Region{}, "id = ?", id)
		if result.Error != nil {
			return translate("delete region", result.Error)
		}
		if result.RowsAffected == 0 {
			return translate("delete region", gorm.ErrRecordNotFound)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *Repository) RegionNameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	return r.taken(ctx, &dbm.Region{}, "name", name, excludeID)
}
