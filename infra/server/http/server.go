// Package httpsrv hosts the dashboard HTTP surface: the WebSocket endpoint and the REST routes.
package httpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pizzeria/dashboard-delivery-service/config"
	httphandler "github.com/pizzeria/dashboard-delivery-service/internal/handler/http"
	"github.com/pizzeria/dashboard-delivery-service/internal/handler/ws"
	"github.com/pizzeria/dashboard-delivery-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("http-server",
	fx.Provide(NewRouter, NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: s.Start,
			OnStop:  s.Stop,
		})
	}),
)

// NewRouter assembles every route under the configured path prefix; /health stays at the root.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	wsHandler *ws.WSHandler,
	dashboard *httphandler.DashboardHandler,
	auther service.Auther,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(logger),
		middleware.Recoverer,
	)

	r.Get("/health", dashboard.Health)
	r.Route(cfg.HTTP.PathPrefix, func(r chi.Router) {
		r.Handle("/ws", wsHandler)
		dashboard.Routes(r,
			httphandler.NewBearerAuthMiddleware(auther, logger),
			httphandler.RequireRoles(logger, httphandler.BroadcastRoles...),
		)
	})
	return r
}

// requestLogger logs one line per request. Upgraded WebSocket requests are logged when they end.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Debug("HTTP_REQUEST",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// Server wraps http.Server with fx friendly start and stop.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(cfg *config.Config, logger *slog.Logger, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.HTTP.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
			WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
			IdleTimeout:       time.Duration(cfg.HTTP.IdleTimeout) * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger,
	}
}

// Start binds the listener synchronously so that port conflicts fail the app start.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP_SERVER_FAILED", "err", err)
		}
	}()
	s.logger.Info("HTTP_SERVER_STARTED", "addr", ln.Addr().String())
	return nil
}

// Stop drains regular requests. Hijacked WebSocket connections are closed by the hub shutdown.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP_SERVER_STOPPING")
	return s.srv.Shutdown(ctx)
}
