package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pizzeria/dashboard-delivery-service/config"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid token")
)

const (
	// DevToken is the static development token accepted outside production when dev tokens are enabled.
	DevToken       = "dashboard-dev-token"
	devTokenPrefix = "dev-"
)

var knownRoles = []string{model.RoleAdmin, model.RoleManager, model.RoleStaff, model.RoleAPI, model.RoleGuest}

// Auther resolves a dashboard token into user claims.
// It never returns nil claims together with a nil error.
type Auther interface {
	Authenticate(ctx context.Context, token string) (*model.UserInfo, error)
}

// DashboardClaims is the JWT payload of dashboard user tokens.
type DashboardClaims struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

type cachedClaims struct {
	user      model.UserInfo
	expiresAt time.Time
}

// TokenAuthenticator checks static tokens first and falls back to HS256 JWT verification.
type TokenAuthenticator struct {
	cfg        config.AuthConfig
	production bool
	now        func() time.Time

	// [HOT_PATH] verified JWTs keyed by the raw token
	cache *lru.Cache[string, cachedClaims]
}

func NewTokenAuthenticator(cfg *config.Config) (*TokenAuthenticator, error) {
	cache, err := lru.New[string, cachedClaims](cfg.Auth.TokenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}
	return &TokenAuthenticator{
		cfg:        cfg.Auth,
		production: cfg.IsProduction(),
		now:        time.Now,
		cache:      cache,
	}, nil
}

func (a *TokenAuthenticator) Authenticate(_ context.Context, token string) (*model.UserInfo, error) {
	token = strings.TrimSpace(token)

	if token == "" {
		if a.production {
			return nil, ErrUnauthenticated
		}
		return &model.UserInfo{UserID: "anonymous", Role: model.RoleGuest}, nil
	}

	if a.cfg.AllowDevTokens && !a.production && (token == DevToken || strings.HasPrefix(token, devTokenPrefix)) {
		return &model.UserInfo{
			UserID:      "dashboard-user",
			Role:        model.RoleAdmin,
			Permissions: []string{model.PermReadOrders, model.PermWriteOrders, model.PermReadAnalytics},
		}, nil
	}

	if key := a.cfg.DashboardAPIKey; key != "" && subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1 {
		return &model.UserInfo{
			UserID:      "api-user",
			Role:        model.RoleAPI,
			Permissions: []string{model.PermReadOrders, model.PermWriteOrders},
		}, nil
	}

	if cached, ok := a.cache.Get(token); ok {
		if a.now().Before(cached.expiresAt) {
			return cloneUser(cached.user), nil
		}
		a.cache.Remove(token)
	}

	claims, err := a.parse(token)
	if err != nil {
		return nil, err
	}

	user := model.UserInfo{
		UserID:      claims.UserID,
		Username:    claims.Username,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}
	a.cache.Add(token, cachedClaims{user: user, expiresAt: claims.ExpiresAt.Time})

	return cloneUser(user), nil
}

// IssueToken signs a dashboard token for user valid for ttl.
func (a *TokenAuthenticator) IssueToken(user model.UserInfo, ttl time.Duration) (string, error) {
	now := a.now()
	claims := DashboardClaims{
		UserID:      user.UserID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.JWTIssuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *TokenAuthenticator) parse(token string) (*DashboardClaims, error) {
	claims := &DashboardClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return []byte(a.cfg.JWTSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.cfg.JWTIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" || !slices.Contains(knownRoles, claims.Role) {
		return nil, fmt.Errorf("%w: missing user or unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}

func cloneUser(u model.UserInfo) *model.UserInfo {
	u.Permissions = slices.Clone(u.Permissions)
	return &u
}
