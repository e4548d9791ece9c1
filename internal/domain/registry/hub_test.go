package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pizzeria/dashboard-delivery-service/internal/domain/event"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeTransport struct {
	mu      sync.Mutex
	frames  []map[string]any
	sendErr error
	closed  bool
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeTransport) all() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.frames...)
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func (f *fakeTransport) ofType(msgType string) []map[string]any {
	var res []map[string]any
	for _, fr := range f.all() {
		if fr["type"] == msgType {
			res = append(res, fr)
		}
	}
	return res
}

// presenceEvents returns the "event" field of every connection_status frame.
func (f *fakeTransport) presenceEvents() []string {
	var res []string
	for _, fr := range f.ofType(event.ConnectionStatus.String()) {
		data, _ := fr["data"].(map[string]any)
		if ev, ok := data["event"].(string); ok {
			res = append(res, ev)
		}
	}
	return res
}

func newTestHub(opts ...Option) *Hub {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return testNow }),
	}
	return NewHub(append(base, opts...)...)
}

func connectClients(t *testing.T, h *Hub, ids ...string) map[string]*fakeTransport {
	t.Helper()
	res := make(map[string]*fakeTransport, len(ids))
	for _, id := range ids {
		ft := &fakeTransport{}
		require.NoError(t, h.Connect(ft, id, &model.UserInfo{UserID: id, Role: model.RoleStaff}))
		res[id] = ft
	}
	return res
}

func shutdown(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))
}

func keysOf[V any](m map[string]V) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func assertIndicesInSync(t *testing.T, h *Hub) {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, keysOf(h.conns), keysOf(h.meta))
	assert.Equal(t, keysOf(h.conns), keysOf(h.subs))
}

func TestHubIndicesStayInSync(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	steps := []struct {
		connect bool
		id      string
		active  int
	}{
		{true, "c1", 1},
		{true, "c2", 2},
		{false, "c1", 1},
		{true, "c3", 2},
		{false, "unknown", 2},
		{false, "c2", 1},
		{false, "c2", 1},
		{false, "c3", 0},
		{false, "c3", 0},
	}

	for i, step := range steps {
		if step.connect {
			require.NoError(t, h.Connect(&fakeTransport{}, step.id, nil), "step %d", i)
		} else {
			h.Disconnect(step.id)
		}
		assertIndicesInSync(t, h)
		assert.Equal(step.active, h.ActiveConnections(), "step %d", i)
		assert.GreaterOrEqual(h.ActiveConnections(), 0)
	}

	assert.EqualValues(3, h.Stats().TotalConnections)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "c1", "c2")

	h.Disconnect("c2")
	assert.Equal(1, h.ActiveConnections())
	assert.True(clients["c2"].closed)

	assert.Eventually(func() bool {
		return len(clients["c1"].presenceEvents()) == 2
	}, time.Second, 10*time.Millisecond)

	// Case: second call changes nothing and announces nothing
	h.Disconnect("c2")
	assert.Equal(1, h.ActiveConnections())
	assertIndicesInSync(t, h)

	time.Sleep(50 * time.Millisecond)
	assert.Equal([]string{model.EventClientConnected, model.EventClientDisconnected}, clients["c1"].presenceEvents())
}

func TestConnectSendsWelcomeAndAnnounces(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "c1", "c2")

	// Case 0: the newcomer gets the welcome and never its own announcement
	frames := clients["c2"].all()
	require.Len(t, frames, 1)
	welcome := frames[0]
	assert.Equal("connection_status", welcome["type"])
	assert.Equal("msg_1704110400000", welcome["id"])
	data := welcome["data"].(map[string]any)
	assert.Equal("connected", data["status"])
	assert.Equal("c2", data["client_id"])
	assert.Equal(event.FormatTime(testNow), data["server_time"])
	assert.Len(data["available_subscriptions"], len(event.AllEventTypes()))

	// Case 1: earlier clients learn the new live count
	announcements := clients["c1"].ofType("connection_status")
	require.Len(t, announcements, 2)
	joined := announcements[1]["data"].(map[string]any)
	assert.Equal(model.EventClientConnected, joined["event"])
	assert.EqualValues(2, joined["active_connections"])
	assert.Equal("broadcast_1704110400000", announcements[1]["id"])
}

func TestConnectRejectsDuplicateClientID(t *testing.T) {
	h := newTestHub()
	defer shutdown(t, h)

	connectClients(t, h, "c1")
	err := h.Connect(&fakeTransport{}, "c1", nil)
	assert.ErrorIs(t, err, ErrDuplicateClient)
	assert.Equal(t, 1, h.ActiveConnections())
	assertIndicesInSync(t, h)
}

func TestBroadcastSubscriptionFiltering(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "narrow", "wide")
	h.UpdateSubscriptions("narrow", []string{"new_order"})
	clients["narrow"].reset()
	clients["wide"].reset()

	h.Broadcast(model.NewOutboundMessage("order_status_change", map[string]any{"order_id": 7}))

	assert.Empty(clients["narrow"].ofType("order_status_change"))
	assert.Len(clients["wide"].ofType("order_status_change"), 1)

	h.Broadcast(model.NewOutboundMessage("new_order", map[string]any{"order_id": 8}))
	assert.Len(clients["narrow"].ofType("new_order"), 1)
	assert.Len(clients["wide"].ofType("new_order"), 1)
}

func TestBroadcastExplicitEventTypeOverridesMessageType(t *testing.T) {
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "c1")
	h.UpdateSubscriptions("c1", []string{"delivery_update"})
	clients["c1"].reset()

	h.Broadcast(model.NewOutboundMessage("new_order", nil), WithEventType(event.DeliveryUpdate))
	assert.Len(t, clients["c1"].ofType("new_order"), 1)
}

func TestBroadcastUnknownTypeSkipsSubscriptionFilter(t *testing.T) {
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "c1")
	h.UpdateSubscriptions("c1", nil)
	clients["c1"].reset()

	h.Broadcast(model.NewOutboundMessage("custom_kind", map[string]any{"x": 1}))
	assert.Len(t, clients["c1"].ofType("custom_kind"), 1)
}

func TestBroadcastExclusionAndSubscriptionAreBothApplied(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "a", "b", "c")
	h.UpdateSubscriptions("c", []string{"system_alert"})
	for _, ft := range clients {
		ft.reset()
	}

	h.Broadcast(model.NewOutboundMessage("new_order", nil), Excluding("a"))

	assert.Empty(clients["a"].all())
	assert.Len(clients["b"].ofType("new_order"), 1)
	assert.Empty(clients["c"].all())
}

func TestBroadcastRemovesDisconnectedClientsAfterPass(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "c1", "c2", "c3")
	for _, ft := range clients {
		ft.reset()
	}
	clients["c2"].failWith(fmt.Errorf("write: %w", ErrDisconnected))

	h.Broadcast(model.NewOutboundMessage("new_order", nil))

	assert.Len(clients["c1"].ofType("new_order"), 1)
	assert.Len(clients["c3"].ofType("new_order"), 1)
	assert.Equal(2, h.ActiveConnections())
	assert.True(clients["c2"].closed)
	assertIndicesInSync(t, h)

	_, ok := h.UserInfo("c2")
	assert.False(ok)
}

func TestBroadcastTransientErrorKeepsClient(t *testing.T) {
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "c1", "c2")
	clients["c2"].failWith(errors.New("write timeout"))

	h.Broadcast(model.NewOutboundMessage("new_order", nil))
	assert.Equal(t, 2, h.ActiveConnections())
	assert.False(t, clients["c2"].closed)
}

func TestSendPersonal(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "c1", "c2")
	clients["c1"].reset()

	// Case 0: unknown client is a no-op
	h.SendPersonal("ghost", model.NewOutboundMessage("pong", nil))

	// Case 1: caller provided timestamp wins, bypasses subscriptions
	h.UpdateSubscriptions("c1", nil)
	clients["c1"].reset()
	msg := model.NewOutboundMessage("new_order", map[string]any{"order_id": 1})
	msg.Timestamp = "2023-05-05T05:05:05Z"
	h.SendPersonal("c1", msg)
	frames := clients["c1"].all()
	require.Len(t, frames, 1)
	assert.Equal("2023-05-05T05:05:05Z", frames[0]["timestamp"])
	assert.Equal("msg_1704110400000", frames[0]["id"])

	// Case 2: transient error keeps the client
	clients["c1"].failWith(errors.New("temporary"))
	h.SendPersonal("c1", model.NewOutboundMessage("pong", nil))
	assert.Equal(2, h.ActiveConnections())

	// Case 3: definite disconnect removes it and never surfaces
	clients["c1"].failWith(ErrDisconnected)
	h.SendPersonal("c1", model.NewOutboundMessage("pong", nil))
	assert.Equal(1, h.ActiveConnections())
	assertIndicesInSync(t, h)
}

func TestUpdateSubscriptionsDropsUnknownNames(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "c1")
	clients["c1"].reset()

	h.UpdateSubscriptions("c1", []string{"new_order", "bogus_type"})

	assert.Equal([]string{"new_order"}, h.Stats().Clients["c1"].Subscriptions)

	frames := clients["c1"].all()
	require.Len(t, frames, 1)
	data := frames[0]["data"].(map[string]any)
	assert.Equal(model.EventSubscriptionsUpdated, data["event"])
	assert.Equal([]any{"new_order", "bogus_type"}, data["subscriptions"])

	// Case: replace, not merge
	h.UpdateSubscriptions("c1", []string{"system_alert"})
	assert.Equal([]string{"system_alert"}, h.Stats().Clients["c1"].Subscriptions)

	// Case: unknown client
	h.UpdateSubscriptions("ghost", []string{"new_order"})
	assertIndicesInSync(t, h)
}

func TestStatsSnapshot(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	connectClients(t, h, "c1", "c2")

	stats := h.Stats()
	assert.Equal(2, stats.ActiveConnections)
	assert.EqualValues(2, stats.TotalConnections)
	// two welcomes + one client_connected delivered to c1
	assert.EqualValues(3, stats.MessagesSent)
	assert.EqualValues(2, stats.Clients["c1"].MessageCount)
	assert.EqualValues(1, stats.Clients["c2"].MessageCount)
	assert.Equal(event.FormatTime(testNow), stats.Clients["c1"].ConnectedAt)
	assert.Equal(event.AllEventTypeNames(), stats.Clients["c2"].Subscriptions)
}

func TestSendSystemAlert(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()
	defer shutdown(t, h)

	clients := connectClients(t, h, "alerts", "orders")
	h.UpdateSubscriptions("orders", []string{"new_order"})

	h.SendSystemAlert("maintenance", "oven offline", "")

	assert.Empty(clients["orders"].ofType("system_alert"))
	alerts := clients["alerts"].ofType("system_alert")
	require.Len(t, alerts, 1)
	data := alerts[0]["data"].(map[string]any)
	assert.Equal("maintenance", data["alert_type"])
	assert.Equal("oven offline", data["message"])
	assert.Equal(model.SeverityInfo, data["severity"])
}

func TestShutdownClosesEverything(t *testing.T) {
	assert := assert.New(t)
	h := newTestHub()

	clients := connectClients(t, h, "c1", "c2")
	shutdown(t, h)

	assert.Equal(0, h.ActiveConnections())
	for _, ft := range clients {
		assert.True(ft.closed)
	}
	assert.ErrorIs(h.Connect(&fakeTransport{}, "c3", nil), ErrHubClosed)
	assertIndicesInSync(t, h)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) ClientConnected(id string, _ model.UserInfo, active int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("+%s:%d", id, active))
}

func (r *recordingObserver) ClientDisconnected(id string, active int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("-%s:%d", id, active))
}

func TestPresenceObserverNotified(t *testing.T) {
	obs := &recordingObserver{}
	h := newTestHub(WithPresenceObserver(obs))
	defer shutdown(t, h)

	connectClients(t, h, "c1", "c2")
	h.Disconnect("c1")
	h.Disconnect("c1")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"+c1:1", "+c2:2", "-c1:1"}, obs.events)
}

func TestPresenceObserverOrderWhenWelcomeFails(t *testing.T) {
	assert := assert.New(t)
	obs := &recordingObserver{}
	h := newTestHub(WithPresenceObserver(obs))
	defer shutdown(t, h)

	ft := &fakeTransport{}
	ft.failWith(ErrDisconnected)
	require.NoError(t, h.Connect(ft, "c1", nil))

	assert.Equal(0, h.ActiveConnections())
	assert.True(ft.closed)
	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal([]string{"+c1:1", "-c1:0"}, obs.events)
}

func TestConcurrentConnectDisconnect(t *testing.T) {
	h := newTestHub()
	defer shutdown(t, h)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			if err := h.Connect(&fakeTransport{}, id, nil); err != nil {
				return
			}
			h.Broadcast(model.NewOutboundMessage("new_order", nil))
			if i%2 == 0 {
				h.Disconnect(id)
			}
		}()
	}
	wg.Wait()

	assertIndicesInSync(t, h)
	assert.Equal(t, 25, h.ActiveConnections())
}
