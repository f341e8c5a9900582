package handlers

import (
	"context"
	"net/http"

	"github.com/gartstein/directory/internal/directory/auth"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DirectoryController defines the business logic interface
// that the gRPC/HTTP handlers will invoke.
type DirectoryController interface {
	Ping(ctx context.Context) error

	Register(ctx context.Context, input *models.Registration) (*models.AuthResult, error)
	RegisterCompany(ctx context.Context, input *models.CompanyRegistration) (*models.AuthResult, error)
	Login(ctx context.Context, username, password string) (*models.AuthResult, error)

	ListCompanies(ctx context.Context, caller *models.Caller) ([]models.Company, error)
	GetCompany(ctx context.Context, caller *models.Caller, id uint) (*models.Company, error)
	GetMyCompany(ctx context.Context, caller *models.Caller) (*models.Company, error)
	CreateCompany(ctx context.Context, caller *models.Caller, input *models.CompanyInput) (*models.Company, error)
	UpdateCompany(ctx context.Context, caller *models.Caller, update *models.CompanyUpdate) (*models.Company, error)
	UpdateCompanyStatus(ctx context.Context, caller *models.Caller, id uint, status models.CompanyStatus) (*models.Company, error)
	DeleteCompany(ctx context.Context, caller *models.Caller, id uint) error

	ListRegions(ctx context.Context, caller *models.Caller) ([]models.Region, error)
	GetRegion(ctx context.Context, caller *models.Caller, id uint) (*models.Region, error)
	CreateRegion(ctx context.Context, caller *models.Caller, input *models.RegionInput) (*models.Region, error)
	UpdateRegion(ctx context.Context, caller *models.Caller, update *models.RegionUpdate) (*models.Region, error)
	DeleteRegion(ctx context.Context, caller *models.Caller, id uint) error

	ListLocations(ctx context.Context, caller *models.Caller, regionID *uint) ([]models.Location, error)
	GetLocation(ctx context.Context, caller *models.Caller, id uint) (*models.Location, error)
	CreateLocation(ctx context.Context, caller *models.Caller, input *models.LocationInput) (*models.Location, error)
	UpdateLocation(ctx context.Context, caller *models.Caller, update *models.LocationUpdate) (*models.Location, error)
	DeleteLocation(ctx context.Context, caller *models.Caller, id uint) error

	ListServices(ctx context.Context, caller *models.Caller) ([]models.Service, error)
	GetService(ctx context.Context, caller *models.Caller, id uint) (*models.Service, error)
	CreateService(ctx context.Context, caller *models.Caller, input *models.ServiceInput) (*models.Service, error)
	UpdateService(ctx context.Context, caller *models.Caller, update *models.ServiceUpdate) (*models.Service, error)
	DeleteService(ctx context.Context, caller *models.Caller, id uint) error

	GetProfile(ctx context.Context, caller *models.Caller) (*models.User, error)
	UpdateProfile(ctx context.Context, caller *models.Caller, update *models.ProfileUpdate) (*models.User, error)
	ListUsers(ctx context.Context, caller *models.Caller) ([]models.User, error)
	GetUser(ctx context.Context, caller *models.Caller, id uint) (*models.User, error)
	UpdateUser(ctx context.Context, caller *models.Caller, update *models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, caller *models.Caller, id uint) error
}

// DirectoryHandler maps field-map requests to a DirectoryController.
type DirectoryHandler struct {
	service DirectoryController
	logger  *zap.Logger
}

// NewDirectoryHandler constructs a new DirectoryHandler with the given service and logger.
func NewDirectoryHandler(service DirectoryController, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		service: service,
		logger:  logger.Named("grpc_handler"),
	}
}

// call runs one operation for the authenticated caller in ctx.
type call func(h *DirectoryHandler, ctx context.Context, caller *models.Caller, req fields) (map[string]any, error)

// route binds an operation to its gRPC method name and HTTP route. Public
// routes can be called without a token.
type route struct {
	name   string
	method string
	path   string
	public bool
	call   call
}

var routes = []route{
	{name: "Ping", method: http.MethodGet, path: "/v1/health", public: true, call: (*DirectoryHandler).ping},

	{name: "Register", method: http.MethodPost, path: "/v1/register", public: true, call: (*DirectoryHandler).register},
	{name: "RegisterCompany", method: http.MethodPost, path: "/v1/register/company", public: true, call: (*DirectoryHandler).registerCompany},
	{name: "Login", method: http.MethodPost, path: "/v1/login", public: true, call: (*DirectoryHandler).login},

	{name: "ListCompanies", method: http.MethodGet, path: "/v1/companies", public: true, call: (*DirectoryHandler).listCompanies},
	{name: "GetCompany", method: http.MethodGet, path: "/v1/companies/{id}", public: true, call: (*DirectoryHandler).getCompany},
	{name: "GetMyCompany", method: http.MethodGet, path: "/v1/me/company", call: (*DirectoryHandler).getMyCompany},
	{name: "CreateCompany", method: http.MethodPost, path: "/v1/companies", call: (*DirectoryHandler).createCompany},
	{name: "UpdateCompany", method: http.MethodPatch, path: "/v1/companies/{id}", call: (*DirectoryHandler).updateCompany},
	{name: "UpdateCompanyStatus", method: http.MethodPut, path: "/v1/companies/{id}/status", call: (*DirectoryHandler).updateCompanyStatus},
	{name: "DeleteCompany", method: http.MethodDelete, path: "/v1/companies/{id}", call: (*DirectoryHandler).deleteCompany},

	{name: "ListRegions", method: http.MethodGet, path: "/v1/regions", public: true, call: (*DirectoryHandler).listRegions},
	{name: "GetRegion", method: http.MethodGet, path: "/v1/regions/{id}", public: true, call: (*DirectoryHandler).getRegion},
	{name: "CreateRegion", method: http.MethodPost, path: "/v1/regions", call: (*DirectoryHandler).createRegion},
	{name: "UpdateRegion", method: http.MethodPatch, path: "/v1/regions/{id}", call: (*DirectoryHandler).updateRegion},
	{name: "DeleteRegion", method: http.MethodDelete, path: "/v1/regions/{id}", call: (*DirectoryHandler).deleteRegion},

	{name: "ListLocations", method: http.MethodGet, path: "/v1/locations", public: true, call: (*DirectoryHandler).listLocations},
	{name: "GetLocation", method: http.MethodGet, path: "/v1/locations/{id}", public: true, call: (*DirectoryHandler).getLocation},
	{name: "CreateLocation", method: http.MethodPost, path: "/v1/locations", call: (*DirectoryHandler).createLocation},
	{name: "UpdateLocation", method: http.MethodPatch, path: "/v1/locations/{id}", call: (*DirectoryHandler).updateLocation},
	{name: "DeleteLocation", method: http.MethodDelete, path: "/v1/locations/{id}", call: (*DirectoryHandler).deleteLocation},

	{name: "ListServices", method: http.MethodGet, path: "/v1/services", public: true, call: (*DirectoryHandler).listServices},
	{name: "GetService", method: http.MethodGet, path: "/v1/services/{id}", public: true, call: (*DirectoryHandler).getService},
	{name: "CreateService", method: http.MethodPost, path: "/v1/services", call: (*DirectoryHandler).createService},
	{name: "UpdateService", method: http.MethodPatch, path: "/v1/services/{id}", call: (*DirectoryHandler).updateService},
	{name: "DeleteService", method: http.MethodDelete, path: "/v1/services/{id}", call: (*DirectoryHandler).deleteService},

	{name: "GetProfile", method: http.MethodGet, path: "/v1/me", call: (*DirectoryHandler).getProfile},
	{name: "UpdateProfile", method: http.MethodPatch, path: "/v1/me", call: (*DirectoryHandler).updateProfile},
	{name: "ListUsers", method: http.MethodGet, path: "/v1/users", call: (*DirectoryHandler).listUsers},
	{name: "GetUser", method: http.MethodGet, path: "/v1/users/{id}", call: (*DirectoryHandler).getUser},
	{name: "UpdateUser", method: http.MethodPatch, path: "/v1/users/{id}", call: (*DirectoryHandler).updateUser},
	{name: "DeleteUser", method: http.MethodDelete, path: "/v1/users/{id}", call: (*DirectoryHandler).deleteUser},
}

var routesByName = func() map[string]route {
	m := make(map[string]route, len(routes))
	for _, rt := range routes {
		m[rt.name] = rt
	}
	return m
}()

// ProtectedMethods lists the full gRPC method names that require a token.
func ProtectedMethods() []string {
	var protected []string
	for _, rt := range routes {
		if !rt.public {
			protected = append(protected, FullMethod(rt.name))
		}
	}
	return protected
}

// Invoke runs the named operation on req and returns its result as a field
// map. Failures come back as gRPC status errors.
func (h *DirectoryHandler) Invoke(ctx context.Context, name string, req *structpb.Struct) (*structpb.Struct, error) {
	rt, ok := routesByName[name]
	if !ok {
		return nil, status.Errorf(codes.Unimplemented, "unknown method %s", name)
	}
	caller := auth.CallerFromContext(ctx)

	result, err := rt.call(h, ctx, caller, fieldsOf(req))
	if err != nil {
		return nil, h.mapServiceError(caller, name, err)
	}
	if result == nil {
		result = map[string]any{}
	}
	resp, err := structpb.NewStruct(result)
	if err != nil {
		h.logger.Error("Failed to encode response", zap.String("method", name), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return resp, nil
}

// mapServiceError maps failure kinds to stable gRPC status codes. A denied
// anonymous caller is told to authenticate.
func (h *DirectoryHandler) mapServiceError(caller *models.Caller, method string, err error) error {
	switch e.KindOf(err) {
	case e.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case e.KindConflict:
		return status.Error(codes.AlreadyExists, err.Error())
	case e.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case e.KindAuthDenied:
		if caller == nil {
			return status.Error(codes.Unauthenticated, err.Error())
		}
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		h.logger.Error("Internal server error", zap.String("method", method), zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}

func (h *DirectoryHandler) ping(ctx context.Context, _ *models.Caller, _ fields) (map[string]any, error) {
	if err := h.service.Ping(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok"}, nil
}

func (h *DirectoryHandler) register(ctx context.Context, _ *models.Caller, req fields) (map[string]any, error) {
	var (
		input models.Registration
		err   error
	)
	if input.Username, err = req.str("username"); err != nil {
		return nil, err
	}
	if input.Email, err = req.str("email"); err != nil {
		return nil, err
	}
	if input.Password, err = req.str("password"); err != nil {
		return nil, err
	}
	result, err := h.service.Register(ctx, &input)
	if err != nil {
		return nil, err
	}
	return authMap(result), nil
}

func (h *DirectoryHandler) registerCompany(ctx context.Context, _ *models.Caller, req fields) (map[string]any, error) {
	var (
		input models.CompanyRegistration
		err   error
	)
	if input.Username, err = req.str("username"); err != nil {
		return nil, err
	}
	if input.UserEmail, err = req.str("email"); err != nil {
		return nil, err
	}
	if input.Password, err = req.str("password"); err != nil {
		return nil, err
	}
	companyFields, err := req.sub("company")
	if err != nil {
		return nil, err
	}
	company, err := companyInputFrom(companyFields)
	if err != nil {
		return nil, err
	}
	input.Company = *company

	result, err := h.service.RegisterCompany(ctx, &input)
	if err != nil {
		return nil, err
	}
	return authMap(result), nil
}

func (h *DirectoryHandler) login(ctx context.Context, _ *models.Caller, req fields) (map[string]any, error) {
	username, err := req.str("username")
	if err != nil {
		return nil, err
	}
	password, err := req.str("password")
	if err != nil {
		return nil, err
	}
	result, err := h.service.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return authMap(result), nil
}

func (h *DirectoryHandler) listCompanies(ctx context.Context, caller *models.Caller, _ fields) (map[string]any, error) {
	companies, err := h.service.ListCompanies(ctx, caller)
	if err != nil {
		return nil, err
	}
	return listMap("companies", companies, companyMap), nil
}

func (h *DirectoryHandler) getCompany(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	company, err := h.service.GetCompany(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return companyMap(company), nil
}

func (h *DirectoryHandler) getMyCompany(ctx context.Context, caller *models.Caller, _ fields) (map[string]any, error) {
	company, err := h.service.GetMyCompany(ctx, caller)
	if err != nil {
		return nil, err
	}
	return companyMap(company), nil
}

func (h *DirectoryHandler) createCompany(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	input, err := companyInputFrom(req)
	if err != nil {
		return nil, err
	}
	created, err := h.service.CreateCompany(ctx, caller, input)
	if err != nil {
		h.logger.Warn("Create company failed", zap.Error(err))
		return nil, err
	}
	return companyMap(created), nil
}

func (h *DirectoryHandler) updateCompany(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	update, err := companyUpdateFrom(req)
	if err != nil {
		return nil, err
	}
	updated, err := h.service.UpdateCompany(ctx, caller, update)
	if err != nil {
		return nil, err
	}
	return companyMap(updated), nil
}

func (h *DirectoryHandler) updateCompanyStatus(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	s, err := req.str("status")
	if err != nil {
		return nil, err
	}
	updated, err := h.service.UpdateCompanyStatus(ctx, caller, id, models.CompanyStatus(s))
	if err != nil {
		return nil, err
	}
	return companyMap(updated), nil
}

func (h *DirectoryHandler) deleteCompany(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	return nil, h.service.DeleteCompany(ctx, caller, id)
}

func (h *DirectoryHandler) listRegions(ctx context.Context, caller *models.Caller, _ fields) (map[string]any, error) {
	regions, err := h.service.ListRegions(ctx, caller)
	if err != nil {
		return nil, err
	}
	return listMap("regions", regions, regionMap), nil
}

func (h *DirectoryHandler) getRegion(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	region, err := h.service.GetRegion(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return regionMap(region), nil
}

func (h *DirectoryHandler) createRegion(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	var (
		input models.RegionInput
		err   error
	)
	if input.Name, err = req.str("name"); err != nil {
		return nil, err
	}
	if input.Description, err = req.optStr("description"); err != nil {
		return nil, err
	}
	region, err := h.service.CreateRegion(ctx, caller, &input)
	if err != nil {
		return nil, err
	}
	return regionMap(region), nil
}

func (h *DirectoryHandler) updateRegion(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	update := &models.RegionUpdate{ID: id}
	if update.Name, err = req.optStr("name"); err != nil {
		return nil, err
	}
	if update.Description, err = req.optStr("description"); err != nil {
		return nil, err
	}
	region, err := h.service.UpdateRegion(ctx, caller, update)
	if err != nil {
		return nil, err
	}
	return regionMap(region), nil
}

func (h *DirectoryHandler) deleteRegion(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	return nil, h.service.DeleteRegion(ctx, caller, id)
}

func (h *DirectoryHandler) listLocations(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	regionID, err := req.optID("region_id")
	if err != nil {
		return nil, err
	}
	locations, err := h.service.ListLocations(ctx, caller, regionID)
	if err != nil {
		return nil, err
	}
	return listMap("locations", locations, locationMap), nil
}

func (h *DirectoryHandler) getLocation(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	location, err := h.service.GetLocation(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return locationMap(location), nil
}

func (h *DirectoryHandler) createLocation(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	var (
		input models.LocationInput
		err   error
	)
	if input.Name, err = req.str("name"); err != nil {
		return nil, err
	}
	if input.RegionID, err = req.id("region_id"); err != nil {
		return nil, err
	}
	location, err := h.service.CreateLocation(ctx, caller, &input)
	if err != nil {
		return nil, err
	}
	return locationMap(location), nil
}

func (h *DirectoryHandler) updateLocation(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	update := &models.LocationUpdate{ID: id}
	if update.Name, err = req.optStr("name"); err != nil {
		return nil, err
	}
	if update.RegionID, err = req.optID("region_id"); err != nil {
		return nil, err
	}
	location, err := h.service.UpdateLocation(ctx, caller, update)
	if err != nil {
		return nil, err
	}
	return locationMap(location), nil
}

func (h *DirectoryHandler) deleteLocation(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	return nil, h.service.DeleteLocation(ctx, caller, id)
}

func (h *DirectoryHandler) listServices(ctx context.Context, caller *models.Caller, _ fields) (map[string]any, error) {
	services, err := h.service.ListServices(ctx, caller)
	if err != nil {
		return nil, err
	}
	return listMap("services", services, serviceMap), nil
}

func (h *DirectoryHandler) getService(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	service, err := h.service.GetService(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return serviceMap(service), nil
}

func (h *DirectoryHandler) createService(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	var (
		input models.ServiceInput
		err   error
	)
	if input.Name, err = req.str("name"); err != nil {
		return nil, err
	}
	if input.Description, err = req.optStr("description"); err != nil {
		return nil, err
	}
	service, err := h.service.CreateService(ctx, caller, &input)
	if err != nil {
		return nil, err
	}
	return serviceMap(service), nil
}

func (h *DirectoryHandler) updateService(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	update := &models.ServiceUpdate{ID: id}
	if update.Name, err = req.optStr("name"); err != nil {
		return nil, err
	}
	if update.Description, err = req.optStr("description"); err != nil {
		return nil, err
	}
	service, err := h.service.UpdateService(ctx, caller, update)
	if err != nil {
		return nil, err
	}
	return serviceMap(service), nil
}

func (h *DirectoryHandler) deleteService(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	return nil, h.service.DeleteService(ctx, caller, id)
}

func (h *DirectoryHandler) getProfile(ctx context.Context, caller *models.Caller, _ fields) (map[string]any, error) {
	user, err := h.service.GetProfile(ctx, caller)
	if err != nil {
		return nil, err
	}
	return userMap(user), nil
}

func (h *DirectoryHandler) updateProfile(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	var (
		update models.ProfileUpdate
		err    error
	)
	if update.Username, err = req.optStr("username"); err != nil {
		return nil, err
	}
	if update.Email, err = req.optStr("email"); err != nil {
		return nil, err
	}
	if update.Password, err = req.optStr("password"); err != nil {
		return nil, err
	}
	user, err := h.service.UpdateProfile(ctx, caller, &update)
	if err != nil {
		return nil, err
	}
	return userMap(user), nil
}

func (h *DirectoryHandler) listUsers(ctx context.Context, caller *models.Caller, _ fields) (map[string]any, error) {
	users, err := h.service.ListUsers(ctx, caller)
	if err != nil {
		return nil, err
	}
	return listMap("users", users, userMap), nil
}

func (h *DirectoryHandler) getUser(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	user, err := h.service.GetUser(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return userMap(user), nil
}

func (h *DirectoryHandler) updateUser(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	update, err := userUpdateFrom(req)
	if err != nil {
		return nil, err
	}
	user, err := h.service.UpdateUser(ctx, caller, update)
	if err != nil {
		return nil, err
	}
	return userMap(user), nil
}

func (h *DirectoryHandler) deleteUser(ctx context.Context, caller *models.Caller, req fields) (map[string]any, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	return nil, h.service.DeleteUser(ctx, caller, id)
}

func requireID(req fields) (uint, error) {
	id, err := req.id("id")
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, e.Validation("id is required")
	}
	return id, nil
}
