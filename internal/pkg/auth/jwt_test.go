package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/pkg/auth"
	"github.com/your-org/pharmacy-pos/internal/pkg/testutil"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := auth.NewJWTManager(testutil.Config())
	a := actor.Actor{ID: 7, TenantID: 3, Role: actor.RoleAttendant, OverrideStock: true, Name: "Ama"}

	token, err := m.GenerateAccessToken(a)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, a, claims.Actor())
	assert.True(t, claims.Actor().CanOverrideStock())
}

func TestJWTManager_Rejects(t *testing.T) {
	cfg := testutil.Config()
	m := auth.NewJWTManager(cfg)

	sign := func(claims *auth.Claims, secret string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	valid := func() *auth.Claims {
		now := time.Now()
		return &auth.Claims{
			UserID:    1,
			TenantID:  1,
			Role:      actor.RoleOwner,
			TokenType: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    cfg.JWT.Issuer,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	tests := []struct {
		name  string
		token func() string
	}{
		{"wrong secret", func() string { return sign(valid(), "another-secret-that-is-32-characters-long") }},
		{"expired", func() string {
			c := valid()
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			return sign(c, cfg.JWT.Secret)
		}},
		{"no expiry", func() string {
			c := valid()
			c.ExpiresAt = nil
			return sign(c, cfg.JWT.Secret)
		}},
		{"other issuer", func() string {
			c := valid()
			c.Issuer = "someone-else"
			return sign(c, cfg.JWT.Secret)
		}},
		{"refresh token", func() string {
			c := valid()
			c.TokenType = "refresh"
			return sign(c, cfg.JWT.Secret)
		}},
		{"missing tenant", func() string {
			c := valid()
			c.TenantID = 0
			return sign(c, cfg.JWT.Secret)
		}},
		{"unknown role", func() string {
			c := valid()
			c.Role = "cashier"
			return sign(c, cfg.JWT.Secret)
		}},
		{"garbage", func() string { return "not.a.token" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateAccessToken(tt.token())
			assert.Error(t, err)
		})
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", auth.ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "", auth.ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", auth.ExtractTokenFromHeader(""))
}
