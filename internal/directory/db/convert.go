package db

import (
	dbm "github.com/gartstein/directory/internal/directory/db/models"
	"github.com/gartstein/directory/internal/directory/models"
)

func userFromRow(row *dbm.User) *models.User {
	return &models.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         models.Role(row.Role),
		CompanyID:    row.CompanyID,
		CreatedAt:    row.CreatedAt,
	}
}

func companyFromRow(row *dbm.Company, services []models.Service) *models.Company {
	c := &models.Company{
		ID:          row.ID,
		Name:        row.Name,
		Email:       row.Email,
		Phone:       row.Phone,
		Description: row.Description,
		Status:      models.CompanyStatus(row.Status),
		UserID:      row.UserID,
		LoginUserID: row.LoginUserID,
		RegionID:    row.RegionID,
		Services:    services,
		CreatedAt:   row.CreatedAt,
	}
	if row.Region != nil {
		c.Region = &models.RegionRef{ID: row.Region.ID, Name: row.Region.Name}
	}
	if c.Services == nil {
		c.Services = []models.Service{}
	}
	return c
}

func regionFromRow(row *dbm.Region) *models.Region {
	return &models.Region{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
	}
}

func locationFromRow(row *dbm.Location) *models.Location {
	return &models.Location{
		ID:       row.ID,
		Name:     row.Name,
		RegionID: row.RegionID,
	}
}

func serviceFromRow(row *dbm.Service) *models.Service {
	return &models.Service{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
	}
}
