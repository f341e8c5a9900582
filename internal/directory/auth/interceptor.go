// Package auth issues JWT access tokens and turns the bearer token of an
// incoming gRPC or HTTP request into the caller descriptor the directory
// core works with.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var errNoToken = errors.New("authorization header missing")

// Interceptor holds the JWT secret and the set of methods that require a
// token. Other methods accept a token but do not require one.
type Interceptor struct {
	jwtSecret        string
	protectedMethods map[string]bool
}

type contextKey string

const (
	callerContextKey contextKey = "caller"
)

// NewAuthInterceptor creates an Interceptor guarding the given full method
// names.
func NewAuthInterceptor(jwtSecret string, protectedMethods []string) *Interceptor {
	protected := make(map[string]bool, len(protectedMethods))
	for _, m := range protectedMethods {
		protected[m] = true
	}

	return &Interceptor{
		jwtSecret:        jwtSecret,
		protectedMethods: protected,
	}
}

// Unary returns a gRPC unary interceptor that puts the caller of a valid
// token into the context.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		tokenString, err := extractTokenFromMetadata(md)
		switch {
		case errors.Is(err, errNoToken) && !i.protectedMethods[info.FullMethod]:
			return handler(ctx, req)
		case err != nil:
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		caller, err := i.callerFromToken(tokenString)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		return handler(WithCaller(ctx, caller), req)
	}
}

func (i *Interceptor) callerFromToken(tokenString string) (*models.Caller, error) {
	claims, err := validateToken(tokenString, i.jwtSecret)
	if err != nil {
		return nil, err
	}
	return callerFromClaims(claims)
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller *models.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext returns the authenticated caller, or nil for an
// anonymous request.
func CallerFromContext(ctx context.Context) *models.Caller {
	caller, _ := ctx.Value(callerContextKey).(*models.Caller)
	return caller
}

// extractTokenFromMetadata retrieves a Bearer token from gRPC metadata.
func extractTokenFromMetadata(md metadata.MD) (string, error) {
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return "", errNoToken
	}
	return parseBearer(authHeaders[0])
}

func parseBearer(headerValue string) (string, error) {
	if !strings.HasPrefix(headerValue, "Bearer ") {
		return "", fmt.Errorf("invalid authorization format: missing Bearer prefix")
	}

	tokenString := strings.TrimPrefix(headerValue, "Bearer ")
	if tokenString == "" {
		return "", fmt.Errorf("invalid authorization format: empty token")
	}

	return tokenString, nil
}

// validateToken checks the token signature and returns parsed claims if valid.
func validateToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token claims")
}

// callerFromClaims reads the user id from sub and the role claim. The role
// is only a hint; the directory reloads the account before deciding.
func callerFromClaims(claims jwt.MapClaims) (*models.Caller, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(sub, 10, 0)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid subject %q", sub)
	}
	role, _ := claims["role"].(string)
	return &models.Caller{UserID: uint(id), Role: models.Role(role)}, nil
}
