package db

import (
	"context"
	"slices"

	dbm "github.com/gartstein/directory/internal/directory/db/models"
	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
)

// CreateCompany inserts company and fills in its id and creation time.
// Service associations are written separately with ReplaceCompanyServices.
func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	status := company.Status
	if status == "" {
		status = models.StatusPending
	}
	row := dbm.Company{
		Name:        company.Name,
		Email:       company.Email,
		Phone:       company.Phone,
		Description: company.Description,
		Status:      string(status),
		UserID:      company.UserID,
		RegionID:    company.RegionID,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create company", err)
	}
	company.ID = row.ID
	company.Status = status
	company.CreatedAt = row.CreatedAt
	return nil
}

// GetCompany loads a company with its region and services resolved.
func (r *Repository) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	var row dbm.Company
	if err := r.db.WithContext(ctx).Preload("Region").First(&row, "id = ?", id).Error; err != nil {
		return nil, translate("get company", err)
	}
	services, err := r.servicesByCompany(ctx, []uint{row.ID})
	if err != nil {
		return nil, err
	}
	return companyFromRow(&row, services[row.ID]), nil
}

func (r *Repository) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var rows []dbm.Company
	if err := r.db.WithContext(ctx).Preload("Region").Order("id").Find(&rows).Error; err != nil {
		return nil, translate("list companies", err)
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	services, err := r.servicesByCompany(ctx, ids)
	if err != nil {
		return nil, err
	}

	companies := make([]models.Company, 0, len(rows))
	for i := range rows {
		companies = append(companies, *companyFromRow(&rows[i], services[rows[i].ID]))
	}
	return companies, nil
}

// UpdateCompany writes the scalar fields and region reference present in
// update. Service associations are left alone.
func (r *Repository) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error {
	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Email != nil {
		fields["email"] = *update.Email
	}
	if update.Phone != nil {
		fields["phone"] = *update.Phone
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Status != nil {
		fields["status"] = string(*update.Status)
	}
	if update.RegionSet {
		fields["region_id"] = update.RegionID
	}
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&dbm.Company{}).
		Where("id = ?", update.ID).
		Updates(fields)
	if result.Error != nil {
		return translate("update company", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate("update company", gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteCompany removes a company with its service associations and clears
// the company link of its login user. The user itself is kept.
func (r *Repository) DeleteCompany(ctx context.Context, id uint) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		db := tx.db.WithContext(ctx)
		if err := db.Where("company_id = ?", id).Delete(&dbm.CompanyService{}).Error; err != nil {
			return translate("delete company services", err)
		}
		if err := tx.UnlinkCompany(ctx, id); err != nil {
			return err
		}
		result := db.Delete(&dbm.Company{}, "id = ?", id)
		if result.Error != nil {
			return translate("delete company", result.Error)
		}
		if result.RowsAffected == 0 {
			return translate("delete company", gorm.ErrRecordNotFound)
		}
		return nil
	})
}

func (r *Repository) CompanyNameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	return r.taken(ctx, &dbm.Company{}, "name", name, excludeID)
}

func (r *Repository) CompanyEmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.taken(ctx, &dbm.Company{}, "email", email, excludeID)
}

// ReplaceCompanyServices makes ids the exact service set of companyID,
// inserting and deleting only the association rows that differ.
func (r *Repository) ReplaceCompanyServices(ctx context.Context, companyID uint, ids []uint) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		db := tx.db.WithContext(ctx)

		var current []uint
		if err := db.Model(&dbm.CompanyService{}).
			Where("company_id = ?", companyID).
			Pluck("service_id", &current).Error; err != nil {
			return translate("load company services", err)
		}

		add, remove := diffIDs(current, ids)
		if len(remove) > 0 {
			if err := db.Where("company_id = ? AND service_id IN ?", companyID, remove).
				Delete(&dbm.CompanyService{}).Error; err != nil {
				return translate("remove company services", err)
			}
		}
		if len(add) > 0 {
			links := make([]dbm.CompanyService, 0, len(add))
			for _, id := range add {
				links = append(links, dbm.CompanyService{CompanyID: companyID, ServiceID: id})
			}
			if err := db.Create(&links).Error; err != nil {
				return translate("add company services", err)
			}
		}
		return nil
	})
}

// servicesByCompany returns the services of each company in ids, ordered by
// service id.
func (r *Repository) servicesByCompany(ctx context.Context, ids []uint) (map[uint][]models.Service, error) {
	out := make(map[uint][]models.Service, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var links []dbm.CompanyService
	if err := r.db.WithContext(ctx).Preload("Service").
		Where("company_id IN ?", ids).
		Order("service_id").
		Find(&links).Error; err != nil {
		return nil, translate("load company services", err)
	}
	for _, link := range links {
		if link.Service == nil {
			continue
		}
		out[link.CompanyID] = append(out[link.CompanyID], *serviceFromRow(link.Service))
	}
	return out, nil
}

// diffIDs returns the ids of target missing from current and the ids of
// current missing from target. Duplicates in target are ignored.
func diffIDs(current, target []uint) (add, remove []uint) {
	want := make(map[uint]bool, len(target))
	for _, id := range target {
		want[id] = true
	}
	have := make(map[uint]bool, len(current))
	for _, id := range current {
		have[id] = true
		if !want[id] {
			remove = append(remove, id)
		}
	}
	for id := range want {
		if !have[id] {
			add = append(add, id)
		}
	}
	slices.Sort(add)
	slices.Sort(remove)
	return add, remove
}
