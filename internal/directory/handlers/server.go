// Package handlers provides gRPC and HTTP server implementations for
// serving the DirectoryService, bridging the transport layer and business
// logic and translating between field maps and domain models.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	return &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		logger:       logger,
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
}

// RegisterGRPCHandler registers the gRPC handler for the DirectoryService.
func (s *Server) RegisterGRPCHandler(h DirectoryServer) {
	s.grpcServer.RegisterService(&ServiceDesc, h)
}

// RegisterHTTPGateway mounts every route on a gateway mux, wrapped with the
// auth middleware.
func (s *Server) RegisterHTTPGateway(h DirectoryServer, jwtSecret string) error {
	mux, err := NewGatewayMux(h)
	if err != nil {
		return err
	}
	s.httpServer.Handler = auth.HTTPMiddleware(mux, jwtSecret)
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

var marshaler = &runtime.JSONPb{
	MarshalOptions: protojson.MarshalOptions{
		UseProtoNames:   true,
		EmitUnpopulated: true,
	},
	UnmarshalOptions: protojson.UnmarshalOptions{
		DiscardUnknown: true,
	},
}

// NewGatewayMux builds the HTTP routes. The request field map merges the
// JSON body, the query string and the path parameters, later sources
// winning. Routes that are not public answer 401 to anonymous callers.
func NewGatewayMux(h DirectoryServer) (*runtime.ServeMux, error) {
	mux := runtime.NewServeMux(runtime.WithMarshalerOption(runtime.MIMEWildcard, marshaler))
	for _, rt := range routes {
		name, public := rt.name, rt.public
		err := mux.HandlePath(rt.method, rt.path, func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
			ctx := r.Context()
			if !public && auth.CallerFromContext(ctx) == nil {
				runtime.HTTPError(ctx, mux, marshaler, w, r, status.Error(codes.Unauthenticated, "authorization header missing"))
				return
			}
			req, err := requestFields(r, pathParams)
			if err != nil {
				runtime.HTTPError(ctx, mux, marshaler, w, r, err)
				return
			}
			resp, err := h.Invoke(ctx, name, req)
			if err != nil {
				runtime.HTTPError(ctx, mux, marshaler, w, r, err)
				return
			}
			data, err := marshaler.Marshal(resp)
			if err != nil {
				runtime.HTTPError(ctx, mux, marshaler, w, r, status.Error(codes.Internal, "failed to encode response"))
				return
			}
			w.Header().Set("Content-Type", marshaler.ContentType(resp))
			_, _ = w.Write(data)
		})
		if err != nil {
			return nil, fmt.Errorf("register route %s: %w", name, err)
		}
	}
	return mux, nil
}

func requestFields(r *http.Request, pathParams map[string]string) (*structpb.Struct, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if r.Body != nil && r.Body != http.NoBody {
		if err := marshaler.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
			return nil, status.Errorf(codes.InvalidArgument, "invalid request body: %v", err)
		}
		if req.Fields == nil {
			req.Fields = map[string]*structpb.Value{}
		}
	}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			req.Fields[key] = structpb.NewStringValue(values[0])
		}
	}
	for key, value := range pathParams {
		req.Fields[key] = structpb.NewStringValue(value)
	}
	return req, nil
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	// Start gRPC Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	// Start HTTP Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Servers stopped")
}
