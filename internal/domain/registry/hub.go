/*
Package registry owns every live dashboard connection.

A registry entry is one logical record split into three indices keyed by client id:
the transport, its bookkeeping metadata and its subscription set. All three are mutated
together under a single mutex; transport writes always happen outside of it.
*/
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/event"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

var (
	ErrDuplicateClient = errors.New("client id already connected")
	ErrHubClosed       = errors.New("hub is shut down")
)

const defaultFanoutLimit = 64

// Hubber defines the gateway used by transport handlers and notifiers.
type Hubber interface {
	Connect(t Transport, clientID string, info *model.UserInfo) error
	Disconnect(clientID string)
	SendPersonal(clientID string, msg *model.OutboundMessage)
	Broadcast(msg *model.OutboundMessage, opts ...BroadcastOption)
	UpdateSubscriptions(clientID string, names []string)
	SendSystemAlert(alertType, message, severity string)
	Stats() model.Stats
	UserInfo(clientID string) (model.UserInfo, bool)
	ActiveConnections() int
}

var _ Hubber = (*Hub)(nil)

// Hub implements the connection registry and broadcast fan-out.
type Hub struct {
	logger      *slog.Logger
	now         func() time.Time
	observer    PresenceObserver
	fanoutLimit int

	mu      sync.Mutex
	conns   map[string]Transport
	meta    map[string]*connMeta
	subs    map[string]subscriptionSet
	total   uint64
	sent    uint64
	closed  bool
	pending sync.WaitGroup
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logger:      slog.Default(),
		now:         time.Now,
		observer:    nopObserver{},
		fanoutLimit: defaultFanoutLimit,
		conns:       make(map[string]Transport),
		meta:        make(map[string]*connMeta),
		subs:        make(map[string]subscriptionSet),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers an already accepted transport, greets the client and
// announces the new live count to everybody else.
func (h *Hub) Connect(t Transport, clientID string, info *model.UserInfo) error {
	if t == nil {
		return fmt.Errorf("connect %s: nil transport", clientID)
	}

	var user model.UserInfo
	if info != nil {
		user = *info
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	if _, ok := h.conns[clientID]; ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateClient, clientID)
	}
	now := h.now()
	h.conns[clientID] = t
	h.meta[clientID] = &connMeta{connectedAt: now, lastActivity: now, user: user}
	h.subs[clientID] = allSubscriptions()
	h.total++
	active := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("[HUB] client connected",
		slog.String("client_id", clientID),
		slog.String("role", user.Role),
		slog.Int("active_connections", active),
	)

	// observer first: a failed welcome send disconnects the client right away
	h.observer.ClientConnected(clientID, user, active)
	h.SendPersonal(clientID, event.NewWelcomeMessage(clientID, now))
	h.Broadcast(event.NewPresenceMessage(model.EventClientConnected, active), Excluding(clientID))

	return nil
}

// Disconnect removes a client. Unknown ids are ignored, so repeated calls are harmless.
// The departure is announced to the remaining clients on a separate goroutine.
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	t, ok := h.conns[clientID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, clientID)
	delete(h.meta, clientID)
	delete(h.subs, clientID)
	active := len(h.conns)
	notify := !h.closed
	if notify {
		h.pending.Add(1)
	}
	h.mu.Unlock()

	if err := t.Close(); err != nil {
		h.logger.Debug("[HUB] transport close failed", slog.String("client_id", clientID), slog.Any("err", err))
	}

	h.logger.Info("[HUB] client disconnected",
		slog.String("client_id", clientID),
		slog.Int("active_connections", active),
	)

	if !notify {
		return
	}

	go func() {
		defer h.pending.Done()
		h.Broadcast(event.NewPresenceMessage(model.EventClientDisconnected, active), Excluding(clientID))
	}()
	h.observer.ClientDisconnected(clientID, active)
}

// SendPersonal writes one message to one client, bypassing subscriptions.
// A definite disconnect removes the client; other failures are only logged.
func (h *Hub) SendPersonal(clientID string, msg *model.OutboundMessage) {
	h.mu.Lock()
	t, ok := h.conns[clientID]
	h.mu.Unlock()
	if !ok {
		h.logger.Debug("[HUB] personal message for unknown client", slog.String("client_id", clientID))
		return
	}

	now := h.now()
	data, err := json.Marshal(msg.Stamped(model.PersonalIDPrefix, now))
	if err != nil {
		h.logger.Error("[HUB] failed to encode personal message",
			slog.String("client_id", clientID),
			slog.String("type", msg.Type),
			slog.Any("err", err),
		)
		return
	}

	if err := t.Send(data); err != nil {
		if errors.Is(err, ErrDisconnected) {
			h.logger.Info("[HUB] client gone during personal send", slog.String("client_id", clientID))
			h.Disconnect(clientID)
			return
		}
		h.logger.Error("[HUB] personal send failed",
			slog.String("client_id", clientID),
			slog.Any("err", err),
		)
		return
	}

	h.recordDelivery(now, clientID)
	h.logger.Debug("[HUB] personal message sent", slog.String("client_id", clientID), slog.String("type", msg.Type))
}

// Broadcast delivers msg to every connected client that is not excluded and,
// when the event type is known, is subscribed to it. Clients that turn out to be
// disconnected are removed after the whole pass.
func (h *Hub) Broadcast(msg *model.OutboundMessage, opts ...BroadcastOption) {
	var cfg broadcastConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.typed {
		if t, err := event.ParseEventType(msg.Type); err == nil {
			cfg.eventType, cfg.typed = t, true
		}
	}

	now := h.now()
	data, err := json.Marshal(msg.Stamped(model.BroadcastIDPrefix, now))
	if err != nil {
		h.logger.Error("[HUB] failed to encode broadcast", slog.String("type", msg.Type), slog.Any("err", err))
		return
	}

	type target struct {
		id string
		t  Transport
	}

	h.mu.Lock()
	targets := make([]target, 0, len(h.conns))
	for id, t := range h.conns {
		if cfg.excluded(id) {
			continue
		}
		if cfg.typed && !h.subs[id].has(cfg.eventType) {
			continue
		}
		targets = append(targets, target{id: id, t: t})
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	var (
		resMu     sync.Mutex
		delivered = make([]string, 0, len(targets))
		gone      []string
	)

	g := new(errgroup.Group)
	g.SetLimit(h.fanoutLimit)
	for _, tg := range targets {
		tg := tg
		g.Go(func() error {
			err := tg.t.Send(data)

			resMu.Lock()
			defer resMu.Unlock()
			switch {
			case err == nil:
				delivered = append(delivered, tg.id)
			case errors.Is(err, ErrDisconnected):
				h.logger.Info("[HUB] client gone during broadcast", slog.String("client_id", tg.id))
				gone = append(gone, tg.id)
			default:
				h.logger.Error("[HUB] broadcast send failed", slog.String("client_id", tg.id), slog.Any("err", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	h.recordDelivery(now, delivered...)
	for _, id := range gone {
		h.Disconnect(id)
	}

	h.logger.Debug("[HUB] broadcast sent",
		slog.String("type", msg.Type),
		slog.Int("recipients", len(delivered)),
		slog.Int("dropped", len(gone)),
	)
}

// UpdateSubscriptions replaces the client's subscription set. Unknown names are dropped;
// the confirmation echoes the list exactly as requested.
func (h *Hub) UpdateSubscriptions(clientID string, names []string) {
	set := make(subscriptionSet, len(names))
	for _, name := range names {
		t, err := event.ParseEventType(name)
		if err != nil {
			h.logger.Warn("[HUB] invalid subscription type",
				slog.String("client_id", clientID),
				slog.String("subscription", name),
			)
			continue
		}
		set[t] = struct{}{}
	}

	h.mu.Lock()
	if _, ok := h.conns[clientID]; !ok {
		h.mu.Unlock()
		h.logger.Warn("[HUB] cannot update subscriptions for disconnected client", slog.String("client_id", clientID))
		return
	}
	h.subs[clientID] = set
	h.mu.Unlock()

	h.logger.Info("[HUB] subscriptions updated",
		slog.String("client_id", clientID),
		slog.Any("subscriptions", set.names()),
	)

	h.SendPersonal(clientID, event.NewSubscriptionsUpdatedMessage(names))
}

// Stats takes a consistent snapshot of the registry.
func (h *Hub) Stats() model.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	res := model.Stats{
		ActiveConnections: len(h.conns),
		TotalConnections:  h.total,
		MessagesSent:      h.sent,
		Clients:           make(map[string]model.ClientStats, len(h.meta)),
	}
	for id, m := range h.meta {
		res.Clients[id] = model.ClientStats{
			ConnectedAt:   event.FormatTime(m.connectedAt),
			MessageCount:  m.messageCount,
			LastActivity:  event.FormatTime(m.lastActivity),
			Subscriptions: h.subs[id].names(),
		}
	}
	return res
}

// SendSystemAlert broadcasts a system_alert to its subscribers.
func (h *Hub) SendSystemAlert(alertType, message, severity string) {
	h.Broadcast(event.NewSystemAlertMessage(alertType, message, severity, h.now()), WithEventType(event.SystemAlert))
	h.logger.Info("[HUB] system alert sent", slog.String("alert_type", alertType), slog.String("message", message))
}

// UserInfo returns the claims stored for a live client.
func (h *Hub) UserInfo(clientID string) (model.UserInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.meta[clientID]
	if !ok {
		return model.UserInfo{}, false
	}
	return m.user, true
}

func (h *Hub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes every transport, empties the registry and waits for pending
// departure notifications. Further Connect calls fail with ErrHubClosed.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	transports := make(map[string]Transport, len(h.conns))
	for id, t := range h.conns {
		transports[id] = t
	}
	clear(h.conns)
	clear(h.meta)
	clear(h.subs)
	h.mu.Unlock()

	for id, t := range transports {
		if err := t.Close(); err != nil {
			h.logger.Debug("[HUB] transport close failed", slog.String("client_id", id), slog.Any("err", err))
		}
	}

	done := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("[HUB] shut down", slog.Int("closed_connections", len(transports)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recordDelivery updates counters for successfully written messages.
func (h *Hub) recordDelivery(now time.Time, ids ...string) {
	if len(ids) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent += uint64(len(ids))
	for _, id := range ids {
		if m, ok := h.meta[id]; ok {
			m.touch(now)
		}
	}
}
