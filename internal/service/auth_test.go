package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pizzeria/dashboard-delivery-service/config"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-0123456789"

func testConfig(env string) *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Environment: env, LogLevel: "debug"},
		Auth: config.AuthConfig{
			RequireAuth:     true,
			AllowDevTokens:  true,
			DashboardAPIKey: "svc-key",
			JWTSecret:       testSecret,
			JWTIssuer:       "pizza-dashboard",
			TokenCacheSize:  16,
		},
	}
}

func newTestAuthenticator(t *testing.T, env string) *TokenAuthenticator {
	t.Helper()
	a, err := NewTokenAuthenticator(testConfig(env))
	require.NoError(t, err)
	return a
}

func TestAuthenticateStaticTokens(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	a := newTestAuthenticator(t, "development")

	// Case 0: anonymous outside production
	user, err := a.Authenticate(ctx, "")
	require.NoError(t, err)
	assert.Equal("anonymous", user.UserID)
	assert.Equal(model.RoleGuest, user.Role)

	// Case 1: static dev token and dev- prefix
	for _, token := range []string{DevToken, "dev-alice"} {
		user, err = a.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(model.RoleAdmin, user.Role)
		assert.Contains(user.Permissions, model.PermReadAnalytics)
	}

	// Case 2: service token
	user, err = a.Authenticate(ctx, "svc-key")
	require.NoError(t, err)
	assert.Equal(model.RoleAPI, user.Role)

	// Case 3: garbage
	_, err = a.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(err, ErrInvalidToken)
}

func TestAuthenticateProductionRules(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	a := newTestAuthenticator(t, "production")

	// Case 0: anonymous
	_, err := a.Authenticate(ctx, "")
	assert.ErrorIs(err, ErrUnauthenticated)

	// Case 1: dev tokens are refused even with the default allow_dev_tokens
	assert.True(a.cfg.AllowDevTokens)
	for _, token := range []string{DevToken, "dev-anything"} {
		user, err := a.Authenticate(ctx, token)
		assert.ErrorIs(err, ErrInvalidToken)
		assert.Nil(user)
	}

	// Case 2: service token still works
	user, err := a.Authenticate(ctx, "svc-key")
	require.NoError(t, err)
	assert.Equal(model.RoleAPI, user.Role)
}

func TestAuthenticateJWT(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	a := newTestAuthenticator(t, "production")

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	token, err := a.IssueToken(model.UserInfo{
		UserID:      "staff-001",
		Username:    "staff",
		Role:        model.RoleStaff,
		Permissions: []string{model.PermReadOrders},
	}, time.Hour)
	require.NoError(t, err)

	// Case 0: valid token
	user, err := a.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal("staff-001", user.UserID)
	assert.Equal(model.RoleStaff, user.Role)
	assert.Equal([]string{model.PermReadOrders}, user.Permissions)

	// Case 1: cached claims are copies
	user.Permissions[0] = "tampered"
	again, err := a.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal([]string{model.PermReadOrders}, again.Permissions)

	// Case 2: expired token is rejected even when cached
	now = now.Add(2 * time.Hour)
	_, err = a.Authenticate(ctx, token)
	assert.ErrorIs(err, ErrInvalidToken)
}

func TestAuthenticateJWTRejectsForeignTokens(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	a := newTestAuthenticator(t, "production")

	sign := func(claims DashboardClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Issuer:    "pizza-dashboard",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	// Case 0: wrong secret
	_, err := a.Authenticate(ctx, sign(DashboardClaims{UserID: "u", Role: model.RoleAdmin, RegisteredClaims: valid}, "another-secret-0123456789"))
	assert.ErrorIs(err, ErrInvalidToken)

	// Case 1: wrong issuer
	foreign := valid
	foreign.Issuer = "someone-else"
	_, err = a.Authenticate(ctx, sign(DashboardClaims{UserID: "u", Role: model.RoleAdmin, RegisteredClaims: foreign}, testSecret))
	assert.ErrorIs(err, ErrInvalidToken)

	// Case 2: unknown role
	_, err = a.Authenticate(ctx, sign(DashboardClaims{UserID: "u", Role: "root", RegisteredClaims: valid}, testSecret))
	assert.ErrorIs(err, ErrInvalidToken)

	// Case 3: no expiry
	_, err = a.Authenticate(ctx, sign(DashboardClaims{UserID: "u", Role: model.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Issuer: "pizza-dashboard"}}, testSecret))
	assert.ErrorIs(err, ErrInvalidToken)
}
