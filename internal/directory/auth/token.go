package auth

import (
	"strconv"
	"time"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenTTL = 24 * time.Hour
	tokenIssuer     = "directory"
)

// GenerateToken signs an HS256 token whose subject is userID and whose role
// claim is role.
func GenerateToken(userID uint, role models.Role, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"iss":  tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// JWTIssuer hands out tokens after registration and login.
type JWTIssuer struct {
	secret string
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: secret, ttl: ttl}
}

func (j *JWTIssuer) IssueToken(user *models.User) (string, error) {
	return GenerateToken(user.ID, user.Role, j.secret, j.ttl)
}
