package db

import (
	"context"

	dbm "github.com/gartstein/directory/internal/directory/db/models"
	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
)

func (r *Repository) CreateLocation(ctx context.Context, location *models.Location) error {
	row := dbm.Location{Name: location.Name, RegionID: location.RegionID}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create location", err)
	}
	location.ID = row.ID
	return nil
}

func (r *Repository) GetLocation(ctx context.Context, id uint) (*models.Location, error) {
	var row dbm.Location
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get location", err)
	}
	return locationFromRow(&row), nil
}

// ListLocations returns all locations, or only those of regionID when it is
// not nil.
func (r *Repository) ListLocations(ctx context.Context, regionID *uint) ([]models.Location, error) {
	q := r.db.WithContext(ctx).Order("id")
	if regionID != nil {
		q = q.Where("region_id = ?", *regionID)
	}
	var rows []dbm.Location
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate("list locations", err)
	}
	locations := make([]models.Location, 0, len(rows))
	for i := range rows {
		locations = append(locations, *locationFromRow(&rows[i]))
	}
	return locations, nil
}

func (r *Repository) UpdateLocation(ctx context.Context, update *models.LocationUpdate) error {
	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.RegionID != nil {
		fields["region_id"] = *update.RegionID
	}
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&dbm.Location{}).
		Where("id = ?", update.ID).
		Updates(fields)
	if result.Error != nil {
		return translate("update location", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate("update location", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *Repository) DeleteLocation(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&dbm.Location{}, "id = ?", id)
	if result.Error != nil {
		return translate("delete location", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate("delete location", gorm.ErrRecordNotFound)
	}
	return nil
}
