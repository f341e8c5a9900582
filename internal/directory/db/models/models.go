// Package models contains the persistent rows of the directory,
// configured to work using GORM as the ORM.
package models

import (
	"time"
)

// User is a row of the users table. CompanyID is unique so a company has at
// most one login identity.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:100;not null;uniqueIndex"`
	Email        string `gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:200;not null"`
	Role         string `gorm:"size:20;not null"`
	CompanyID    *uint  `gorm:"uniqueIndex"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Company is a row of the companies table.
// UserID and LoginUserID reference users without a database constraint;
// the repository clears them when a user is deleted.
type Company struct {
	ID          uint    `gorm:"primaryKey"`
	Name        string  `gorm:"size:150;not null;uniqueIndex"`
	Email       string  `gorm:"size:120;not null;uniqueIndex"`
	Phone       string  `gorm:"size:20"`
	Description *string `gorm:"type:text"`
	Status      string  `gorm:"size:50;not null;default:pending"`
	UserID      *uint   `gorm:"index"`
	LoginUserID *uint   `gorm:"uniqueIndex"`
	RegionID    *uint   `gorm:"index"`
	Region      *Region `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Region is a row of the regions table.
type Region struct {
	ID          uint    `gorm:"primaryKey"`
	Name        string  `gorm:"size:100;not null;uniqueIndex"`
	Description *string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location is a row of the locations table.
type Location struct {
	ID        uint    `gorm:"primaryKey"`
	Name      string  `gorm:"size:100;not null"`
	RegionID  uint    `gorm:"not null;index"`
	Region    *Region `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Service is a row of the services table.
type Service struct {
	ID          uint    `gorm:"primaryKey"`
	Name        string  `gorm:"size:100;not null;uniqueIndex"`
	Description *string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CompanyService is one company-to-service association.
type CompanyService struct {
	CompanyID uint     `gorm:"primaryKey"`
	ServiceID uint     `gorm:"primaryKey;index"`
	Company   *Company `gorm:"constraint:OnDelete:CASCADE"`
	Service   *Service `gorm:"constraint:OnDelete:CASCADE"`
}

// All lists every row type in migration order.
func All() []any {
	return []any{
		&Region{},
		&User{},
		&Company{},
		&Location{},
		&Service{},
		&CompanyService{},
	}
}
