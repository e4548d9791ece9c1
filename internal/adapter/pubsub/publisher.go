package pubsub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/event"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/registry"
)

const (
	RoutingClientConnected    = "dashboard.client.connected"
	RoutingClientDisconnected = "dashboard.client.disconnected"

	publishTimeout = 5 * time.Second
)

// PresenceEventV1 is the bus payload announcing a dashboard membership change.
type PresenceEventV1 struct {
	Event             string `json:"event"`
	ClientID          string `json:"client_id"`
	UserID            string `json:"user_id,omitempty"`
	Role              string `json:"role,omitempty"`
	ActiveConnections int    `json:"active_connections"`
	Timestamp         string `json:"timestamp"`
}

type presenceEnvelope struct {
	routingKey string
	payload    PresenceEventV1
}

var _ registry.PresenceObserver = (*PresencePublisher)(nil)

// PresencePublisher forwards registry membership changes to the bus.
// Observer calls only enqueue; a single loop does the publishing.
type PresencePublisher struct {
	dispatcher EventDispatcher
	logger     *slog.Logger
	now        func() time.Time

	mailbox  chan presenceEnvelope
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPresencePublisher(dispatcher EventDispatcher, logger *slog.Logger, mailboxSize int) *PresencePublisher {
	if mailboxSize < 1 {
		mailboxSize = 1
	}
	return &PresencePublisher{
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		mailbox:    make(chan presenceEnvelope, mailboxSize),
		done:       make(chan struct{}),
	}
}

func (p *PresencePublisher) ClientConnected(clientID string, user model.UserInfo, active int) {
	p.enqueue(RoutingClientConnected, PresenceEventV1{
		Event:             model.EventClientConnected,
		ClientID:          clientID,
		UserID:            user.UserID,
		Role:              user.Role,
		ActiveConnections: active,
		Timestamp:         event.FormatTime(p.now()),
	})
}

func (p *PresencePublisher) ClientDisconnected(clientID string, active int) {
	p.enqueue(RoutingClientDisconnected, PresenceEventV1{
		Event:             model.EventClientDisconnected,
		ClientID:          clientID,
		ActiveConnections: active,
		Timestamp:         event.FormatTime(p.now()),
	})
}

// [NON_BLOCKING] a full mailbox drops the event; the registry never waits for the broker.
func (p *PresencePublisher) enqueue(routingKey string, ev PresenceEventV1) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.mailbox <- presenceEnvelope{routingKey: routingKey, payload: ev}:
	default:
		p.logger.Warn("PRESENCE_DROPPED: mailbox full", "client_id", ev.ClientID, "event", ev.Event)
	}
}

// Start launches the publishing loop.
func (p *PresencePublisher) Start() {
	p.wg.Add(1)
	go p.loop()
}

// Stop ends the loop after flushing what is already queued.
func (p *PresencePublisher) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *PresencePublisher) loop() {
	defer p.wg.Done()
	for {
		select {
		case env := <-p.mailbox:
			p.publish(env)
		case <-p.done:
			for {
				select {
				case env := <-p.mailbox:
					p.publish(env)
				default:
					return
				}
			}
		}
	}
}

func (p *PresencePublisher) publish(env presenceEnvelope) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.dispatcher.Publish(ctx, env.routingKey, env.payload); err != nil {
		p.logger.Error("PRESENCE_PUBLISH_FAILED", "err", err, "client_id", env.payload.ClientID)
		return
	}
	p.logger.Debug("PRESENCE_PUBLISHED", "routing_key", env.routingKey, "client_id", env.payload.ClientID)
}
