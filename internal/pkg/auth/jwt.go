// internal/pkg/auth/jwt.go
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
)

const tokenTypeAccess = "access"

// Claims represents the JWT claims issued by the identity service
type Claims struct {
	UserID        uint       `json:"user_id"`
	TenantID      uint       `json:"tenant_id"`
	Name          string     `json:"name,omitempty"`
	Role          actor.Role `json:"role"`
	OverrideStock bool       `json:"override_stock,omitempty"`
	TokenType     string     `json:"token_type"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the ledger's actor
func (c *Claims) Actor() actor.Actor {
	return actor.Actor{
		ID:            c.UserID,
		TenantID:      c.TenantID,
		Name:          c.Name,
		Role:          c.Role,
		OverrideStock: c.OverrideStock,
	}
}

// JWTManager handles JWT operations
type JWTManager struct {
	config *config.Config
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		config: cfg,
	}
}

// GenerateAccessToken signs an access token for an actor. The ledger only verifies
// tokens in production; signing is used by tooling and tests.
func (j *JWTManager) GenerateAccessToken(a actor.Actor) (string, error) {
	now := time.Now().UTC()

	claims := &Claims{
		UserID:        a.ID,
		TenantID:      a.TenantID,
		Name:          a.Name,
		Role:          a.Role,
		OverrideStock: a.OverrideStock,
		TokenType:     tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.JWT.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.config.JWT.Issuer,
			Subject:   fmt.Sprintf("user:%d", a.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.JWT.Secret))
}

// ValidateAccessToken validates and parses an access token
func (j *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.config.JWT.Secret), nil
	}, jwt.WithIssuer(j.config.JWT.Issuer), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.TokenType != tokenTypeAccess {
		return nil, fmt.Errorf("invalid token type: expected access, got %s", claims.TokenType)
	}
	if claims.UserID == 0 || claims.TenantID == 0 {
		return nil, fmt.Errorf("token is missing user or tenant")
	}
	if !actor.IsValidRole(claims.Role) {
		return nil, fmt.Errorf("unknown role: %s", claims.Role)
	}

	return claims, nil
}

// ExtractTokenFromHeader extracts JWT token from Authorization header
func ExtractTokenFromHeader(authHeader string) string {
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return token
	}
	return ""
}
