// Package models defines the domain models of the directory: users,
// companies, regions, locations and the services companies offer.
package models

import (
	"time"
)

// Role is the access role of a user account.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollector    Role = "collector"
	RoleUser         Role = "user"
	RoleCompanyOwner Role = "company_owner"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCollector, RoleUser, RoleCompanyOwner:
		return true
	}
	return false
}

// CompanyStatus is the review status of a company.
type CompanyStatus string

const (
	StatusPending  CompanyStatus = "pending"
	StatusActive   CompanyStatus = "active"
	StatusRejected CompanyStatus = "rejected"
	StatusApproved CompanyStatus = "approved"
)

// Valid reports whether s is one of the allowed status values.
func (s CompanyStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected, StatusApproved:
		return true
	}
	return false
}

// Caller is an authenticated identity making a request. A nil *Caller is
// an anonymous caller.
type Caller struct {
	UserID uint
	Role   Role
	// CompanyID is the company this caller is the login identity for.
	CompanyID *uint
}

// User is an account. PasswordHash never leaves the service layer.
type User struct {
	ID           uint
	Username     string
	Email        string
	PasswordHash string `json:"-"`
	Role         Role
	CompanyID    *uint
	CreatedAt    time.Time
}

// Caller returns the caller descriptor for u.
func (u *User) Caller() *Caller {
	return &Caller{UserID: u.ID, Role: u.Role, CompanyID: u.CompanyID}
}

// RegionRef is the nested region summary returned with a company.
type RegionRef struct {
	ID   uint
	Name string
}

// Company is an organization listed in the directory.
type Company struct {
	ID          uint
	Name        string
	Email       string
	Phone       string
	Description *string
	Status      CompanyStatus
	// UserID is the creator/administrator of record.
	UserID *uint
	// LoginUserID is the one user whose CompanyID points back here.
	LoginUserID *uint
	RegionID    *uint
	Region      *RegionRef
	Services    []Service
	CreatedAt   time.Time
}

// Region is a geographic area companies are linked to.
type Region struct {
	ID          uint
	Name        string
	Description *string
}

// Location belongs to exactly one region.
type Location struct {
	ID       uint
	Name     string
	RegionID uint
}

// Service is an offering companies can be associated with.
type Service struct {
	ID          uint
	Name        string
	Description *string
}
