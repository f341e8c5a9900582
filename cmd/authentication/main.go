// This is a **mock authentication service**, designed to hand out directory
// tokens for any user id and role, for local testing without registering.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
)

const (
	defaultPort   = "8081"       // Default port for the authentication service
	defaultSecret = "jwt_secret" // Secret for signing JWT
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string `json:"token"`
}

// tokenHandler signs a token for ?user_id=&role= (default 1 and admin).
func tokenHandler(secret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := uint64(1)
		if v := r.URL.Query().Get("user_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil || id == 0 {
				http.Error(w, "user_id must be a positive integer", http.StatusBadRequest)
				return
			}
			userID = id
		}
		role := models.RoleAdmin
		if v := r.URL.Query().Get("role"); v != "" {
			role = models.Role(v)
			if !role.Valid() {
				http.Error(w, "unknown role", http.StatusBadRequest)
				return
			}
		}

		token, err := auth.GenerateToken(uint(userID), role, secret, 0)
		if err != nil {
			logger.Error("Failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(TokenResponse{Token: token}); err != nil {
			logger.Error("Failed to encode token", zap.Error(err))
		}
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	secret := os.Getenv("DIRECTORY_JWT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}
	port := os.Getenv("AUTH_PORT")
	if port == "" {
		port = defaultPort
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(secret, logger))

	logger.Info("Authentication service running", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Fatal("Authentication service stopped", zap.Error(err))
	}
}
