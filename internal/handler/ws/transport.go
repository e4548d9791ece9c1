package ws

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pizzeria/dashboard-delivery-service/internal/domain/registry"
)

// Application close codes.
const (
	CloseAuthRequired    = 4001
	CloseDuplicateClient = 4009
)

var _ registry.Transport = (*wsTransport)(nil)

// wsTransport adapts a gorilla connection to the registry: gorilla allows one
// concurrent writer, so every write goes through writeMu.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func newTransport(conn *websocket.Conn, writeTimeout time.Duration) *wsTransport {
	return &wsTransport{conn: conn, writeTimeout: writeTimeout}
}

func (t *wsTransport) Send(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.closed {
		return registry.ErrDisconnected
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return classify(t.conn.WriteMessage(websocket.TextMessage, data))
}

func (t *wsTransport) ping() error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.closed {
		return registry.ErrDisconnected
	}
	return classify(t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeTimeout)))
}

// Close sends a normal closure frame and releases the socket. Safe to call repeatedly.
func (t *wsTransport) Close() error {
	return t.closeWith(websocket.CloseNormalClosure, "")
}

func (t *wsTransport) closeWith(code int, reason string) error {
	var err error
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		t.closed = true
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(t.writeTimeout))
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}

// classify maps write failures that mean the peer is gone onto registry.ErrDisconnected.
// gorilla poisons the connection after a timed out write, so timeouts count as gone too.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		closeErr *websocket.CloseError
		netErr   net.Error
	)
	switch {
	case errors.As(err, &closeErr),
		errors.Is(err, websocket.ErrCloseSent),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", registry.ErrDisconnected, err)
	default:
		return err
	}
}
