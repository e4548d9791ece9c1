package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
	"github.com/pizzeria/dashboard-delivery-service/internal/service"
)

type contextKey string

const (
	// UserInfoContextKey is the key used to store/retrieve the caller claims from context
	UserInfoContextKey contextKey = "user_info"
)

// NewBearerAuthMiddleware validates the Authorization bearer token before the route runs.
func NewBearerAuthMiddleware(auther service.Auther, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// [PRE_AUTH] Validate identity before the handler runs
			token, ok := bearerToken(r)
			if !ok {
				writeJSON(w, logger, http.StatusUnauthorized, errorResponse(http.StatusUnauthorized, "Missing bearer token"))
				return
			}
			user, err := auther.Authenticate(r.Context(), token)
			if err != nil {
				writeJSON(w, logger, http.StatusUnauthorized, errorResponse(http.StatusUnauthorized, "Invalid authentication credentials"))
				return
			}

			// [ENRICHMENT] Inject the identity into the context for downstream handlers
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserInfoContextKey, user)))
		})
	}
}

// RequireRoles rejects callers whose claims carry none of roles. It must run after NewBearerAuthMiddleware.
func RequireRoles(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserInfo(r.Context())
			if !ok || !user.HasRole(roles...) {
				writeJSON(w, logger, http.StatusForbidden, errorResponse(http.StatusForbidden, "Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserInfo is a helper to extract the identity from context safely.
func GetUserInfo(ctx context.Context) (*model.UserInfo, bool) {
	user, ok := ctx.Value(UserInfoContextKey).(*model.UserInfo)
	return user, ok
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
