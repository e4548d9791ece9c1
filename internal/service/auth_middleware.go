package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
)

// AutherMiddleware implements [DECORATOR_PATTERN] to add observability
// to token checks without touching the authentication logic.
type AutherMiddleware struct {
	Next   Auther
	Logger *slog.Logger
}

// NewAutherMiddleware creates a new logging decorator for the Auther.
func NewAutherMiddleware(next Auther, logger *slog.Logger) Auther {
	return &AutherMiddleware{
		Next:   next,
		Logger: logger,
	}
}

// Authenticate wraps the token check with execution timing and outcome logging.
// The token itself is never logged.
func (m *AutherMiddleware) Authenticate(ctx context.Context, token string) (*model.UserInfo, error) {
	start := time.Now()

	user, err := m.Next.Authenticate(ctx, token)

	duration := time.Since(start)
	if err != nil {
		m.Logger.Warn("AUTHENTICATION_REJECTED",
			"err", err,
			"token_present", token != "",
			"duration_ms", duration.Milliseconds(),
		)
		return nil, err
	}

	m.Logger.Debug("AUTHENTICATION_ACCEPTED",
		"user_id", user.UserID,
		"role", user.Role,
		"duration_ms", duration.Milliseconds(),
	)
	return user, nil
}
