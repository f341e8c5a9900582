package db

import (
	"context"

	dbm "github.com/gartstein/directory/internal/directory/db/models"
	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
)

func (r *Repository) CreateService(ctx context.Context, service *models.Service) error {
	row := dbm.Service{Name: service.Name, Description: service.Description}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create service", err)
	}
	service.ID = row.ID
	return nil
}

func (r *Repository) GetService(ctx context.Context, id uint) (*models.Service, error) {
	var row dbm.Service
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get service", err)
	}
	return serviceFromRow(&row), nil
}

func (r *Repository) ListServices(ctx context.Context) ([]models.Service, error) {
	var rows []dbm.Service
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, translate("list services", err)
	}
	services := make([]models.Service, 0, len(rows))
	for i := range rows {
		services = append(services, *serviceFromRow(&rows[i]))
	}
	return services, nil
}

func (r *Repository) UpdateService(ctx context.Context, update *models.ServiceUpdate) error {
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

	result := r.db.WithContext(ctx).Model(&dbm.Service{}).
		Where("id = ?", update.ID).
		Updates(fields)
	if result.Error != nil {
		return translate("update service", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate("update service", gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteService removes a service and its company associations. Companies
// are not touched.
func (r *Repository) DeleteService(ctx context.Context, id uint) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		db := tx.db.WithContext(ctx)
		if err := db.Where("service_id = ?", id).Delete(&dbm.CompanyService{}).Error; err != nil {
			return translate("delete service associations", err)
		}
		result := db.Delete(&dbm.Service{}, "id = ?", id)
		if result.Error != nil {
			return translate("delete service", result.Error)
		}
		if result.RowsAffected == 0 {
			return translate("delete service", gorm.ErrRecordNotFound)
		}
		return nil
	})
}

func (r *Repository) ServiceNameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	return r.taken(ctx, &dbm.Service{}, "name", name, excludeID)
}

// FindServiceIDs returns the ids in ids that belong to existing services,
// in ascending order. Unknown ids are dropped.
func (r *Repository) FindServiceIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	var found []uint
	if err := r.db.WithContext(ctx).Model(&dbm.Service{}).
		Where("id IN ?", ids).
		Order("id").
		Pluck("id", &found).Error; err != nil {
		return nil, translate("find services", err)
	}
	return found, nil
}
