package controller

import (
	"context"
	"errors"
	"testing"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func companyRegistration(regionID *uint, serviceIDs ...uint) *models.CompanyRegistration {
	return &models.CompanyRegistration{
		Username:  "acme-owner",
		UserEmail: "owner@acme.com",
		Password:  "s3cret",
		Company: models.CompanyInput{
			Name:       "Acme",
			Email:      "a@acme.com",
			Phone:      "123",
			RegionID:   regionID,
			ServiceIDs: serviceIDs,
		},
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	result, err := f.dir.Register(ctx, &models.Registration{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, result.User.Role)
	assert.NotEqual(t, "pw", result.User.PasswordHash)
	assert.Equal(t, "token-1-user", result.Token)
	assert.Nil(t, result.Company)

	_, err = f.dir.Register(ctx, &models.Registration{Username: "alice", Email: "other@example.com", Password: "pw"})
	assert.ErrorIs(t, err, e.ErrConflict)
	_, err = f.dir.Register(ctx, &models.Registration{Username: "bob", Email: "alice@example.com", Password: "pw"})
	assert.ErrorIs(t, err, e.ErrConflict)
	_, err = f.dir.Register(ctx, &models.Registration{Username: "bob", Email: "bob", Password: "pw"})
	assert.ErrorIs(t, err, e.ErrValidation)

	assert.Equal(t, 1, f.countUsers(t))
	assert.Equal(t, []events.EventType{events.UserRegistered}, f.producer.Types())
}

func TestRegisterTokenFailureRollsBack(t *testing.T) {
	f := setup(t)
	f.tokens.err = errors.New("signing key missing")

	_, err := f.dir.Register(context.Background(), &models.Registration{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, e.KindInternal, e.KindOf(err))
	assert.Zero(t, f.countUsers(t))
}

func TestRegisterCompany(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	region := f.seedRegion(t, "North")
	hauling := f.seedService(t, "Hauling")

	result, err := f.dir.RegisterCompany(ctx, companyRegistration(&region.ID, hauling.ID, 404))
	require.NoError(t, err)

	user, company := result.User, result.Company
	assert.Equal(t, models.RoleCompanyOwner, user.Role)
	require.NotNil(t, user.CompanyID)
	assert.Equal(t, company.ID, *user.CompanyID)
	require.NotNil(t, company.LoginUserID)
	assert.Equal(t, user.ID, *company.LoginUserID)
	assert.Equal(t, models.StatusPending, company.Status)
	require.NotNil(t, company.Region)
	assert.Equal(t, "North", company.Region.Name)
	require.Len(t, company.Services, 1, "unknown service ids are dropped")
	assert.Equal(t, hauling.ID, company.Services[0].ID)
	assert.NotEmpty(t, result.Token)

	// The new owner can read and update their company straight away.
	mine, err := f.dir.GetMyCompany(ctx, user.Caller())
	require.NoError(t, err)
	assert.Equal(t, company.ID, mine.ID)

	assert.Equal(t, []events.EventType{events.CompanyRegistered}, f.producer.Types())
}

func TestRegisterCompanyUnknownRegionPersistsNothing(t *testing.T) {
	f := setup(t)

	_, err := f.dir.RegisterCompany(context.Background(), companyRegistration(utils.Ptr(uint(5))))
	assert.ErrorIs(t, err, e.ErrValidation)

	assert.Zero(t, f.countUsers(t))
	assert.Zero(t, f.countCompanies(t))
	assert.Empty(t, f.producer.Types())
}

func TestRegisterCompanyConflicts(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.CompanyRegistration)
	}{
		{name: "username", mutate: func(r *models.CompanyRegistration) {
			r.UserEmail = "new@acme.com"
			r.Company.Name = "New"
			r.Company.Email = "n@new.com"
		}},
		{name: "user email", mutate: func(r *models.CompanyRegistration) {
			r.Username = "new"
			r.Company.Name = "New"
			r.Company.Email = "n@new.com"
		}},
		{name: "company name", mutate: func(r *models.CompanyRegistration) {
			r.Username = "new"
			r.UserEmail = "new@acme.com"
			r.Company.Email = "n@new.com"
		}},
		{name: "company email", mutate: func(r *models.CompanyRegistration) {
			r.Username = "new"
			r.UserEmail = "new@acme.com"
			r.Company.Name = "New"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			_, err := f.dir.RegisterCompany(ctx, companyRegistration(nil))
			require.NoError(t, err)

			input := companyRegistration(nil)
			tt.mutate(input)
			_, err = f.dir.RegisterCompany(ctx, input)
			assert.ErrorIs(t, err, e.ErrConflict)
			assert.Equal(t, 1, f.countUsers(t))
			assert.Equal(t, 1, f.countCompanies(t))
		})
	}
}

func TestRegisterCompanyTokenFailureRollsBack(t *testing.T) {
	f := setup(t)
	f.tokens.err = errors.New("signing key missing")

	_, err := f.dir.RegisterCompany(context.Background(), companyRegistration(nil))
	require.Error(t, err)
	assert.Zero(t, f.countUsers(t))
	assert.Zero(t, f.countCompanies(t))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.dir.Register(ctx, &models.Registration{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	result, err := f.dir.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "token-1-user", result.Token)

	_, err = f.dir.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, e.ErrAuthDenied)

	_, err = f.dir.Login(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, e.ErrAuthDenied)

	_, err = f.dir.Login(ctx, "", "")
	assert.ErrorIs(t, err, e.ErrValidation)
}
