package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "test-secret"

// companyController answers company reads for id 7 and records callers
// of mutations.
func companyController(callers chan<- *models.Caller) *mockController {
	return &mockController{
		getCompanyFunc: func(_ context.Context, _ *models.Caller, id uint) (*models.Company, error) {
			if id != 7 {
				return nil, e.NotFound("company %d", id)
			}
			return &models.Company{ID: 7, Name: "Acme", Status: models.StatusActive}, nil
		},
		createCompanyFunc: func(_ context.Context, caller *models.Caller, input *models.CompanyInput) (*models.Company, error) {
			callers <- caller
			return &models.Company{ID: 8, Name: input.Name, Status: models.StatusPending}, nil
		},
		updateCompanyFunc: func(_ context.Context, caller *models.Caller, update *models.CompanyUpdate) (*models.Company, error) {
			callers <- caller
			if !update.RegionSet || update.RegionID != nil {
				return nil, e.Validation("expected region to be cleared")
			}
			return &models.Company{ID: update.ID, Name: "Acme"}, nil
		},
		listLocationsFunc: func(_ context.Context, _ *models.Caller, regionID *uint) ([]models.Location, error) {
			if regionID == nil {
				return nil, e.Validation("region filter missing")
			}
			return []models.Location{{ID: 1, Name: "Oslo", RegionID: *regionID}}, nil
		},
		loginFunc: func(context.Context, string, string) (*models.AuthResult, error) {
			return nil, e.ErrAuthDenied
		},
	}
}

func token(t *testing.T, userID uint, role models.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func startBufconn(t *testing.T, ctrl DirectoryController) *Client {
	t.Helper()
	logger := zaptest.NewLogger(t)
	lis := bufconn.Listen(1 << 20)

	interceptor := auth.NewAuthInterceptor(testSecret, ProtectedMethods())
	s := NewServer(0, 0, logger, grpc.UnaryInterceptor(interceptor.Unary()))
	s.RegisterGRPCHandler(NewDirectoryHandler(ctrl, logger))
	go func() {
		_ = s.grpcServer.Serve(lis)
	}()
	t.Cleanup(s.grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestGRPC_EndToEnd(t *testing.T) {
	callers := make(chan *models.Caller, 1)
	client := startBufconn(t, companyController(callers))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("public read without token", func(t *testing.T) {
		resp, err := client.Call(ctx, "GetCompany", map[string]any{"id": 7})
		require.NoError(t, err)
		assert.Equal(t, "Acme", resp.GetFields()["name"].GetStringValue())
	})

	t.Run("not found keeps its code", func(t *testing.T) {
		_, err := client.Call(ctx, "GetCompany", map[string]any{"id": 9})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("protected method requires token", func(t *testing.T) {
		_, err := client.Call(ctx, "CreateCompany", map[string]any{"name": "Beta"})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("invalid token rejected on public method", func(t *testing.T) {
		badCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer not-a-jwt")
		_, err := client.Call(badCtx, "GetCompany", map[string]any{"id": 7})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("caller reaches the controller", func(t *testing.T) {
		authCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token(t, 3, models.RoleAdmin))
		resp, err := client.Call(authCtx, "CreateCompany", map[string]any{"name": "Beta", "email": "b@beta.test"})
		require.NoError(t, err)
		assert.Equal(t, "Beta", resp.GetFields()["name"].GetStringValue())

		caller := <-callers
		require.NotNil(t, caller)
		assert.Equal(t, uint(3), caller.UserID)
		assert.Equal(t, models.RoleAdmin, caller.Role)
	})
}

func newHTTPHandler(t *testing.T, ctrl DirectoryController) http.Handler {
	t.Helper()
	mux, err := NewGatewayMux(NewDirectoryHandler(ctrl, zaptest.NewLogger(t)))
	require.NoError(t, err)
	return auth.HTTPMiddleware(mux, testSecret)
}

func serve(handler http.Handler, method, target, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHTTPGateway(t *testing.T) {
	callers := make(chan *models.Caller, 1)
	handler := newHTTPHandler(t, companyController(callers))
	admin := token(t, 1, models.RoleAdmin)

	t.Run("public company read", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/v1/companies/7", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Acme", body["name"])
		assert.Equal(t, float64(7), body["id"])
	})

	t.Run("missing company", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/v1/companies/9", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("create without token", func(t *testing.T) {
		rec := serve(handler, http.MethodPost, "/v1/companies", `{"name":"Beta"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("create with token", func(t *testing.T) {
		rec := serve(handler, http.MethodPost, "/v1/companies", `{"name":"Beta","email":"b@beta.test"}`, admin)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Beta", decodeBody(t, rec)["name"])
		assert.Equal(t, uint(1), (<-callers).UserID)
	})

	t.Run("patch merges path id and null region", func(t *testing.T) {
		rec := serve(handler, http.MethodPatch, "/v1/companies/4", `{"region_id":null}`, admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, float64(4), decodeBody(t, rec)["id"])
		<-callers
	})

	t.Run("query filter", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/v1/locations?region_id=2", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		locations, ok := decodeBody(t, rec)["locations"].([]any)
		require.True(t, ok)
		assert.Len(t, locations, 1)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := serve(handler, http.MethodPost, "/v1/login", `{"username":`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := serve(handler, http.MethodPost, "/v1/login", `{"username":"ann","password":"x"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		foreign, err := auth.GenerateToken(1, models.RoleAdmin, "other-secret", time.Hour)
		require.NoError(t, err)
		rec := serve(handler, http.MethodGet, "/v1/companies/7", "", foreign)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestStatusCodesOverHTTP(t *testing.T) {
	tests := []struct {
		code codes.Code
		want int
	}{
		{codes.InvalidArgument, http.StatusBadRequest},
		{codes.AlreadyExists, http.StatusConflict},
		{codes.NotFound, http.StatusNotFound},
		{codes.Unauthenticated, http.StatusUnauthorized},
		{codes.PermissionDenied, http.StatusForbidden},
		{codes.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, runtime.HTTPStatusFromCode(tt.code), tt.code.String())
	}
}

func TestGatewayRouteProtection(t *testing.T) {
	handler := newHTTPHandler(t, &mockController{
		pingFunc: func(context.Context) error { return nil },
		getProfileFunc: func(context.Context, *models.Caller) (*models.User, error) {
			return &models.User{ID: 1, Username: "ann", Role: models.RoleUser}, nil
		},
	})

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/v1/users", ""},
		{http.MethodGet, "/v1/users/2", ""},
		{http.MethodPost, "/v1/regions", `{"name":"Nordics"}`},
		{http.MethodPatch, "/v1/me", `{"email":"a@b.test"}`},
		{http.MethodDelete, "/v1/regions/3", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(handler, tt.method, tt.path, tt.body, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	t.Run("public route stays open", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/v1/health", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("profile with token", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/v1/me", "", token(t, 1, models.RoleUser))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ann", decodeBody(t, rec)["username"])
	})

	// Every route that is not public is rejected without a token.
	for _, rt := range routes {
		if rt.public {
			continue
		}
		path := strings.ReplaceAll(rt.path, "{id}", "1")
		rec := serve(handler, rt.method, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, rt.name)
	}
}

func TestServer_RegisterHTTPGateway(t *testing.T) {
	s := NewServer(50051, 8080, zaptest.NewLogger(t))
	h := NewDirectoryHandler(&mockController{}, zaptest.NewLogger(t))

	require.NoError(t, s.RegisterHTTPGateway(h, testSecret))
	assert.NotNil(t, s.httpServer.Handler)
	assert.Equal(t, s.httpEndpoint, s.httpServer.Addr)
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer(0, 0, zaptest.NewLogger(t))
	s.RegisterGRPCHandler(NewDirectoryHandler(&mockController{}, zaptest.NewLogger(t)))
	require.NoError(t, s.RegisterHTTPGateway(NewDirectoryHandler(&mockController{}, zaptest.NewLogger(t)), testSecret))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
