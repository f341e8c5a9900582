package models

// CompanyInput carries the fields of a company to be created.
// Unknown service ids are dropped; a non-nil RegionID must exist.
type CompanyInput struct {
	Name        string  `validate:"required,max=150"`
	Email       string  `validate:"required,email,max=120"`
	Phone       string  `validate:"max=20"`
	Description *string `validate:"omitempty"`
	Status      CompanyStatus
	RegionID    *uint
	ServiceIDs  []uint
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates. RegionSet and
// ServicesSet mark the reference fields as present; a set RegionID of nil
// clears the region.
type CompanyUpdate struct {
	ID          uint
	Name        *string `validate:"omitempty,min=1,max=150"`
	Email       *string `validate:"omitempty,email,max=120"`
	Phone       *string `validate:"omitempty,max=20"`
	Description *string
	Status      *CompanyStatus
	RegionSet   bool
	RegionID    *uint
	ServicesSet bool
	ServiceIDs  []uint
}

// RegionInput carries a new region.
type RegionInput struct {
	Name        string `validate:"required,max=100"`
	Description *string
}

// RegionUpdate is a partial region update.
type RegionUpdate struct {
	ID          uint
	Name        *string `validate:"omitempty,min=1,max=100"`
	Description *string
}

// LocationInput carries a new location.
type LocationInput struct {
	Name     string `validate:"required,max=100"`
	RegionID uint   `validate:"required"`
}

// LocationUpdate is a partial location update.
type LocationUpdate struct {
	ID       uint
	Name     *string `validate:"omitempty,min=1,max=100"`
	RegionID *uint   `validate:"omitempty,gt=0"`
}

// ServiceInput carries a new service.
type ServiceInput struct {
	Name        string `validate:"required,max=100"`
	Description *string
}

// ServiceUpdate is a partial service update.
type ServiceUpdate struct {
	ID          uint
	Name        *string `validate:"omitempty,min=1,max=100"`
	Description *string
}

// Registration is a self-service sign-up for a plain user account.
type Registration struct {
	Username string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=100"`
	Password string `validate:"required,max=72"`
}

// CompanyRegistration signs up a company together with its owning login user.
type CompanyRegistration struct {
	Username  string `validate:"required,max=100"`
	UserEmail string `validate:"required,email,max=100"`
	Password  string `validate:"required,max=72"`
	Company   CompanyInput
}

// ProfileUpdate changes the caller's own account.
type ProfileUpdate struct {
	Username *string `validate:"omitempty,min=1,max=100"`
	Email    *string `validate:"omitempty,email,max=100"`
	Password *string `validate:"omitempty,min=1,max=72"`
}

// UserUpdate is an administrative change to any account. CompanySet marks
// CompanyID as present; a set CompanyID of nil detaches the user.
type UserUpdate struct {
	ID         uint
	Username   *string `validate:"omitempty,min=1,max=100"`
	Email      *string `validate:"omitempty,email,max=100"`
	Role       *Role
	CompanySet bool
	CompanyID  *uint
}

// AuthResult is returned by registration and login. Company is set by
// company registration only.
type AuthResult struct {
	User    *User
	Company *Company
	Token   string
}
