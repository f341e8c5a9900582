package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/gartstein/directory/internal/directory/auth"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// mockController implements DirectoryController. Methods without a func
// field panic through the nil embedded interface.
type mockController struct {
	DirectoryController

	pingFunc          func(ctx context.Context) error
	loginFunc         func(ctx context.Context, username, password string) (*models.AuthResult, error)
	registerCompFunc  func(ctx context.Context, input *models.CompanyRegistration) (*models.AuthResult, error)
	getCompanyFunc    func(ctx context.Context, caller *models.Caller, id uint) (*models.Company, error)
	listCompaniesFunc func(ctx context.Context, caller *models.Caller) ([]models.Company, error)
	createCompanyFunc func(ctx context.Context, caller *models.Caller, input *models.CompanyInput) (*models.Company, error)
	updateCompanyFunc func(ctx context.Context, caller *models.Caller, update *models.CompanyUpdate) (*models.Company, error)
	deleteCompanyFunc func(ctx context.Context, caller *models.Caller, id uint) error
	listLocationsFunc func(ctx context.Context, caller *models.Caller, regionID *uint) ([]models.Location, error)
	getProfileFunc    func(ctx context.Context, caller *models.Caller) (*models.User, error)
}

func (m *mockController) Ping(ctx context.Context) error {
	return m.pingFunc(ctx)
}

func (m *mockController) Login(ctx context.Context, username, password string) (*models.AuthResult, error) {
	return m.loginFunc(ctx, username, password)
}

func (m *mockController) RegisterCompany(ctx context.Context, input *models.CompanyRegistration) (*models.AuthResult, error) {
	return m.registerCompFunc(ctx, input)
}

func (m *mockController) GetCompany(ctx context.Context, caller *models.Caller, id uint) (*models.Company, error) {
	return m.getCompanyFunc(ctx, caller, id)
}

func (m *mockController) ListCompanies(ctx context.Context, caller *models.Caller) ([]models.Company, error) {
	return m.listCompaniesFunc(ctx, caller)
}

func (m *mockController) CreateCompany(ctx context.Context, caller *models.Caller, input *models.CompanyInput) (*models.Company, error) {
	return m.createCompanyFunc(ctx, caller, input)
}

func (m *mockController) UpdateCompany(ctx context.Context, caller *models.Caller, update *models.CompanyUpdate) (*models.Company, error) {
	return m.updateCompanyFunc(ctx, caller, update)
}

func (m *mockController) DeleteCompany(ctx context.Context, caller *models.Caller, id uint) error {
	return m.deleteCompanyFunc(ctx, caller, id)
}

func (m *mockController) ListLocations(ctx context.Context, caller *models.Caller, regionID *uint) ([]models.Location, error) {
	return m.listLocationsFunc(ctx, caller, regionID)
}

func (m *mockController) GetProfile(ctx context.Context, caller *models.Caller) (*models.User, error) {
	return m.getProfileFunc(ctx, caller)
}

func invoke(t *testing.T, h *DirectoryHandler, ctx context.Context, name string, req map[string]any) (*structpb.Struct, error) {
	t.Helper()
	s, err := structpb.NewStruct(req)
	require.NoError(t, err)
	return h.Invoke(ctx, name, s)
}

func TestDirectoryHandler_UnknownMethod(t *testing.T) {
	h := NewDirectoryHandler(&mockController{}, zaptest.NewLogger(t))
	_, err := invoke(t, h, context.Background(), "Explode", nil)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestDirectoryHandler_Ping(t *testing.T) {
	ctrl := &mockController{pingFunc: func(context.Context) error { return nil }}
	h := NewDirectoryHandler(ctrl, zaptest.NewLogger(t))

	resp, err := invoke(t, h, context.Background(), "Ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.GetFields()["status"].GetStringValue())
}

func TestDirectoryHandler_GetCompany(t *testing.T) {
	caller := &models.Caller{UserID: 3, Role: models.RoleAdmin}

	t.Run("Success", func(t *testing.T) {
		var gotCaller *models.Caller
		ctrl := &mockController{
			getCompanyFunc: func(_ context.Context, c *models.Caller, id uint) (*models.Company, error) {
				gotCaller = c
				return &models.Company{ID: id, Name: "Acme", Status: models.StatusActive}, nil
			},
		}
		h := NewDirectoryHandler(ctrl, zaptest.NewLogger(t))

		resp, err := invoke(t, h, auth.WithCaller(context.Background(), caller), "GetCompany", map[string]any{"id": 7})
		require.NoError(t, err)
		assert.Equal(t, float64(7), resp.GetFields()["id"].GetNumberValue())
		assert.Equal(t, "Acme", resp.GetFields()["name"].GetStringValue())
		assert.Equal(t, caller, gotCaller)
	})

	t.Run("MissingID", func(t *testing.T) {
		h := NewDirectoryHandler(&mockController{}, zaptest.NewLogger(t))
		_, err := invoke(t, h, context.Background(), "GetCompany", nil)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("InvalidID", func(t *testing.T) {
		h := NewDirectoryHandler(&mockController{}, zaptest.NewLogger(t))
		_, err := invoke(t, h, context.Background(), "GetCompany", map[string]any{"id": "abc"})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestDirectoryHandler_CreateCompany(t *testing.T) {
	var got *models.CompanyInput
	ctrl := &mockController{
		createCompanyFunc: func(_ context.Context, _ *models.Caller, input *models.CompanyInput) (*models.Company, error) {
			got = input
			return &models.Company{ID: 1, Name: input.Name, Status: models.StatusPending}, nil
		},
	}
	h := NewDirectoryHandler(ctrl, zaptest.NewLogger(t))

	resp, err := invoke(t, h, context.Background(), "CreateCompany", map[string]any{
		"name":        "Acme",
		"email":       "info@acme.test",
		"service_ids": []any{2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.GetFields()["status"].GetStringValue())
	assert.Equal(t, []uint{2, 3}, got.ServiceIDs)
	assert.Nil(t, got.RegionID)
}

func TestDirectoryHandler_UpdateCompanyClearsRegion(t *testing.T) {
	var got *models.CompanyUpdate
	ctrl := &mockController{
		updateCompanyFunc: func(_ context.Context, _ *models.Caller, update *models.CompanyUpdate) (*models.Company, error) {
			got = update
			return &models.Company{ID: update.ID}, nil
		},
	}
	h := NewDirectoryHandler(ctrl, zaptest.NewLogger(t))

	_, err := invoke(t, h, context.Background(), "UpdateCompany", map[string]any{"id": 4, "region_id": nil})
	require.NoError(t, err)
	assert.Equal(t, uint(4), got.ID)
	assert.True(t, got.RegionSet)
	assert.Nil(t, got.RegionID)
	assert.False(t, got.ServicesSet)
}

func TestDirectoryHandler_DeleteReturnsEmpty(t *testing.T) {
	ctrl := &mockController{
		deleteCompanyFunc: func(context.Context, *models.Caller, uint) error { return nil },
	}
	h := NewDirectoryHandler(ctrl, zaptest.NewLogger(t))

	resp, err := invoke(t, h, context.Background(), "DeleteCompany", map[string]any{"id": 4})
	require.NoError(t, err)
	assert.Empty(t, resp.GetFields())
}

func TestDirectoryHandler_RegisterCompanyNested(t *testing.T) {
	var got *models.CompanyRegistration
	ctrl := &mockController{
		registerCompFunc: func(_ context.Context, input *models.CompanyRegistration) (*models.AuthResult, error) {
			got = input
			return &models.AuthResult{
				User:    &models.User{ID: 1, Username: input.Username, Role: models.RoleCompanyOwner},
				Company: &models.Company{ID: 2, Name: input.Company.Name},
				Token:   "tok",
			}, nil
		},
	}
	h := NewDirectoryHandler(ctrl, zaptest.NewLogger(t))

	resp, err := invoke(t, h, context.Background(), "RegisterCompany", map[string]any{
		"username": "owner",
		"email":    "owner@acme.test",
		"password": "pw",
		"company":  map[string]any{"name": "Acme", "email": "info@acme.test", "region_id": 9},
	})
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", got.UserEmail)
	assert.Equal(t, "Acme", got.Company.Name)
	assert.Equal(t, uint(9), *got.Company.RegionID)
	assert.Equal(t, "tok", resp.GetFields()["token"].GetStringValue())
	assert.Equal(t, "Acme", resp.GetFields()["company"].GetStructValue().GetFields()["name"].GetStringValue())
}

func TestDirectoryHandler_ListLocationsFilter(t *testing.T) {
	var got *uint
	ctrl := &mockController{
		listLocationsFunc: func(_ context.Context, _ *models.Caller, regionID *uint) ([]models.Location, error) {
			got = regionID
			return []models.Location{{ID: 1, Name: "Oslo", RegionID: 2}}, nil
		},
	}
	h := NewDirectoryHandler(ctrl, zaptest.NewLogger(t))

	resp, err := invoke(t, h, context.Background(), "ListLocations", map[string]any{"region_id": "2"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(2), *got)
	assert.Len(t, resp.GetFields()["locations"].GetListValue().GetValues(), 1)
}

func TestMapServiceError(t *testing.T) {
	caller := &models.Caller{UserID: 1, Role: models.RoleUser}

	tests := []struct {
		name   string
		caller *models.Caller
		err    error
		want   codes.Code
	}{
		{"validation", caller, e.Validation("name is required"), codes.InvalidArgument},
		{"conflict", caller, e.Conflict("name taken"), codes.AlreadyExists},
		{"not found", caller, e.NotFound("company 4"), codes.NotFound},
		{"denied known caller", caller, e.ErrAuthDenied, codes.PermissionDenied},
		{"denied anonymous", nil, e.ErrAuthDenied, codes.Unauthenticated},
		{"internal", caller, e.Internal("load company", errors.New("disk full")), codes.Internal},
		{"unclassified", caller, errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDirectoryHandler(&mockController{}, zaptest.NewLogger(t))
			err := h.mapServiceError(tt.caller, "Test", tt.err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestMapServiceError_HidesInternalDetail(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	h := NewDirectoryHandler(&mockController{}, zap.New(core))

	err := h.mapServiceError(nil, "GetCompany", e.Internal("load company", errors.New("password=hunter2")))
	assert.Equal(t, "internal server error", status.Convert(err).Message())
	assert.Equal(t, 1, recorded.FilterMessage("Internal server error").Len())
}

func TestDirectoryHandler_DeniedAnonymous(t *testing.T) {
	ctrl := &mockController{
		getProfileFunc: func(context.Context, *models.Caller) (*models.User, error) {
			return nil, e.ErrAuthDenied
		},
	}
	h := NewDirectoryHandler(ctrl, zaptest.NewLogger(t))

	_, err := invoke(t, h, context.Background(), "GetProfile", nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := auth.WithCaller(context.Background(), &models.Caller{UserID: 2, Role: "ghost"})
	_, err = invoke(t, h, ctx, "GetProfile", nil)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestProtectedMethods(t *testing.T) {
	protected := ProtectedMethods()

	assert.Contains(t, protected, FullMethod("CreateCompany"))
	assert.Contains(t, protected, FullMethod("GetProfile"))
	assert.Contains(t, protected, FullMethod("ListUsers"))
	assert.NotContains(t, protected, FullMethod("Login"))
	assert.NotContains(t, protected, FullMethod("ListCompanies"))
	assert.NotContains(t, protected, FullMethod("Ping"))
	assert.Equal(t, "/directory.v1.DirectoryService/Login", FullMethod("Login"))
}

func TestServiceDescCoversRoutes(t *testing.T) {
	require.Len(t, ServiceDesc.Methods, len(routes))
	for i, rt := range routes {
		assert.Equal(t, rt.name, ServiceDesc.Methods[i].MethodName)
	}
}
