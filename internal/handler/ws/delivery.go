package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pizzeria/dashboard-delivery-service/config"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/registry"
	wsmarshaller "github.com/pizzeria/dashboard-delivery-service/internal/handler/marshaller/ws"
	"github.com/pizzeria/dashboard-delivery-service/internal/service"
)

// inboundHandler serves one client control message type.
type inboundHandler func(clientID string, msg *model.InboundMessage) error

// WSHandler serves GET /ws: authentication, registration and the per-connection read loop.
type WSHandler struct {
	logger      *slog.Logger
	hub         registry.Hubber
	auther      service.Auther
	cfg         config.WebSocketConfig
	requireAuth bool
	upgrader    websocket.Upgrader
	now         func() time.Time

	dispatch map[string]inboundHandler
}

func NewWSHandler(cfg *config.Config, logger *slog.Logger, hub registry.Hubber, auther service.Auther) *WSHandler {
	h := &WSHandler{
		logger:      logger.With(slog.String("component", "ws")),
		hub:         hub,
		auther:      auther,
		cfg:         cfg.WebSocket,
		requireAuth: cfg.Auth.RequireAuth,
		now:         time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.WebSocket.AllowedOrigins),
		},
	}
	// [DISPATCH_TABLE] unknown types fall through to UNKNOWN_MESSAGE_TYPE
	h.dispatch = map[string]inboundHandler{
		"ping":           h.onPing,
		"subscribe":      h.onSubscribe,
		"get_stats":      h.onGetStats,
		"broadcast_test": h.onBroadcastTest,
	}
	return h
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. RESOLVE IDENTITY
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = "client_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}

	user, authErr := h.auther.Authenticate(r.Context(), r.URL.Query().Get("token"))

	// 2. UPGRADE TO WEBSOCKET
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "client_id", clientID, "error", err)
		return
	}
	conn.SetReadLimit(h.cfg.ReadLimit)
	t := newTransport(conn, h.cfg.WriteTimeoutDuration())

	if authErr != nil {
		if h.requireAuth {
			h.logger.Warn("ws rejected: authentication required", "client_id", clientID, "error", authErr)
			_ = t.closeWith(CloseAuthRequired, "Authentication required")
			return
		}
		h.logger.Info("ws joined without valid token", "client_id", clientID, "error", authErr)
		user = &model.UserInfo{}
	}

	// 3. REGISTER
	if err := h.hub.Connect(t, clientID, user); err != nil {
		h.logger.Warn("ws registration refused", "client_id", clientID, "error", err)
		code, reason := websocket.CloseGoingAway, "Server shutting down"
		if errors.Is(err, registry.ErrDuplicateClient) {
			code, reason = CloseDuplicateClient, "Client id already connected"
		}
		_ = t.closeWith(code, reason)
		return
	}
	defer h.hub.Disconnect(clientID)

	h.logger.Info("ws opened", "client_id", clientID, "role", user.Role)

	// 4. KEEPALIVE
	done := make(chan struct{})
	defer close(done)
	if interval := h.cfg.PingIntervalDuration(); interval > 0 {
		pongWait := interval * 2
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go h.keepalive(t, interval, done)
	}

	// 5. MAIN READ LOOP
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws read failed", "client_id", clientID, "error", err)
			} else {
				h.logger.Info("ws closed by client", "client_id", clientID)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		h.handleFrame(clientID, data)
	}
}

func (h *WSHandler) keepalive(t *wsTransport, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := t.ping(); err != nil {
				return
			}
		}
	}
}

// handleFrame processes one client frame. Failures are reported to the client and never end the loop.
func (h *WSHandler) handleFrame(clientID string, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("PANIC_RECOVERED", "client_id", clientID, "err", r, "stack", string(debug.Stack()))
			h.hub.SendPersonal(clientID, wsmarshaller.NewProcessingErrorMessage())
		}
	}()

	msg, err := wsmarshaller.UnmarshallInbound(data)
	switch {
	case errors.Is(err, wsmarshaller.ErrNotObject):
		h.logger.Warn("message processing failed", "client_id", clientID, "error", err)
		h.hub.SendPersonal(clientID, wsmarshaller.NewProcessingErrorMessage())
		return
	case err != nil:
		h.logger.Warn("invalid JSON received", "client_id", clientID, "error", err)
		h.hub.SendPersonal(clientID, wsmarshaller.NewInvalidJSONMessage())
		return
	}

	handle, ok := h.dispatch[msg.Type]
	if !ok {
		h.logger.Warn("unknown message type", "client_id", clientID, "type", string(msg.RawType))
		h.hub.SendPersonal(clientID, wsmarshaller.NewUnknownTypeMessage(msg))
		return
	}

	h.logger.Debug("message received", "client_id", clientID, "type", msg.Type)
	if err := handle(clientID, msg); err != nil {
		h.logger.Error("message processing failed", "client_id", clientID, "type", msg.Type, "error", err)
		h.hub.SendPersonal(clientID, wsmarshaller.NewProcessingErrorMessage())
	}
}

func (h *WSHandler) onPing(clientID string, msg *model.InboundMessage) error {
	h.hub.SendPersonal(clientID, wsmarshaller.NewPongMessage(msg, h.now()))
	return nil
}

func (h *WSHandler) onSubscribe(clientID string, msg *model.InboundMessage) error {
	subs, err := wsmarshaller.UnmarshallSubscriptions(msg.Data)
	if err != nil {
		return err
	}
	h.hub.UpdateSubscriptions(clientID, subs)
	return nil
}

func (h *WSHandler) onGetStats(clientID string, _ *model.InboundMessage) error {
	h.hub.SendPersonal(clientID, wsmarshaller.NewStatsMessage(h.hub.Stats()))
	return nil
}

func (h *WSHandler) onBroadcastTest(clientID string, _ *model.InboundMessage) error {
	user, ok := h.hub.UserInfo(clientID)
	if !ok {
		return fmt.Errorf("no claims stored for %s", clientID)
	}
	if !user.IsAdmin() {
		h.logger.Warn("broadcast_test denied", "client_id", clientID, "role", user.Role)
		h.hub.SendPersonal(clientID, wsmarshaller.NewPermissionDeniedMessage())
		return nil
	}
	h.hub.Broadcast(wsmarshaller.NewTestAlertMessage(clientID, h.now()))
	return nil
}

// originChecker allows every origin when the list is empty or contains "*".
// Requests without an Origin header are not browsers and always pass.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
