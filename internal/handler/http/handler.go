// Package httphandler serves the dashboard REST surface next to the WebSocket endpoint.
package httphandler

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/event"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName      = "github.com/pizzeria/dashboard-delivery-service/internal/handler/http"
	maxRequestBytes = 1 << 20
)

// BroadcastRoles may call POST /ws/broadcast.
var BroadcastRoles = []string{model.RoleAdmin, model.RoleAPI}

//go:embed testpage.html
var testPage []byte

// BroadcastRequest is the body of POST /ws/broadcast.
type BroadcastRequest struct {
	MessageType string         `json:"message_type" validate:"required"`
	MessageData map[string]any `json:"message_data"`
}

// BroadcastResult is the data of a successful broadcast reply.
type BroadcastResult struct {
	MessageType string `json:"message_type"`
	SentTo      int    `json:"sent_to"`
	Timestamp   string `json:"timestamp"`
}

// DashboardHandler serves hub statistics, admin broadcasts and the test client page.
type DashboardHandler struct {
	hub      registry.Hubber
	logger   *slog.Logger
	tracer   trace.Tracer
	validate *validator.Validate
	now      func() time.Time
}

func NewDashboardHandler(hub registry.Hubber, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		hub:      hub,
		logger:   logger.With(slog.String("component", "rest")),
		tracer:   otel.Tracer(tracerName),
		validate: validator.New(),
		now:      time.Now,
	}
}

// Routes mounts the /ws REST routes. privileged guards the broadcast route.
func (h *DashboardHandler) Routes(r chi.Router, privileged ...func(http.Handler) http.Handler) {
	r.Get("/ws/stats", h.Stats)
	r.Get("/ws/test", h.TestPage)
	r.With(privileged...).Post("/ws/broadcast", h.Broadcast)
}

// Stats GET /ws/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, successResponse(h.hub.Stats()))
}

// Broadcast POST /ws/broadcast
func (h *DashboardHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "dashboard.broadcast")
	defer span.End()

	var req BroadcastRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		span.RecordError(err)
		writeJSON(w, h.logger, http.StatusBadRequest, errorResponse(http.StatusBadRequest, "Invalid request body"))
		return
	}
	if err := h.validate.StructCtx(ctx, &req); err != nil {
		span.RecordError(err)
		writeJSON(w, h.logger, http.StatusBadRequest, errorResponse(http.StatusBadRequest, "message_type is required"))
		return
	}

	t, err := event.ParseEventType(req.MessageType)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeJSON(w, h.logger, http.StatusBadRequest,
			errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid message type: %s", req.MessageType)))
		return
	}
	span.SetAttributes(attribute.String("dashboard.message_type", t.String()))

	now := h.now()
	h.hub.Broadcast(event.NewDataMessage(t, req.MessageData, now), registry.WithEventType(t))
	sentTo := h.hub.ActiveConnections()

	requestedBy := ""
	if user, ok := GetUserInfo(ctx); ok {
		requestedBy = user.UserID
	}
	h.logger.Info("ADMIN_BROADCAST_SENT", "message_type", t.String(), "sent_to", sentTo, "requested_by", requestedBy)

	writeJSON(w, h.logger, http.StatusOK, successResponse(&BroadcastResult{
		MessageType: t.String(),
		SentTo:      sentTo,
		Timestamp:   event.FormatTime(now),
	}))
}

// TestPage GET /ws/test
func (h *DashboardHandler) TestPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(testPage); err != nil {
		h.logger.Debug("RESPONSE_WRITE_FAILED", "err", err)
	}
}

// Health GET /health
func (h *DashboardHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, StandardResponse{Success: true})
}
