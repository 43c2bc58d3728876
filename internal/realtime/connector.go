package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Connector opens authenticated broker channels.
type Connector interface {
	Connect(ctx context.Context, token string) (Channel, error)
}

// Channel is one open broker session.
type Channel interface {
	// Subscribe returns the subscription id.
	Subscribe(ctx context.Context, destination string) (string, error)
	// Receive blocks until the next MESSAGE frame.
	Receive(ctx context.Context) (Frame, error)
	// Close unsubscribes, disconnects and closes the transport. It is idempotent.
	Close() error
}

// BrokerError is an ERROR frame sent by the broker.
type BrokerError struct {
	Message string
	Body    string
}

func (e *BrokerError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("broker error: %s: %s", e.Message, e.Body)
	}
	return "broker error: " + e.Message
}

// StompConnector speaks STOMP 1.2 over a WebSocket.
type StompConnector struct {
	URL            string
	ConnectTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Connect dials the broker carrying the bearer token both on the handshake
// and on the CONNECT frame, then waits for CONNECTED.
func (s *StompConnector) Connect(ctx context.Context, token string) (Channel, error) {
	if token == "" {
		return nil, errors.New("realtime: no session token")
	}
	timeout := s.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bearer := "Bearer " + token
	conn, _, err := websocket.Dial(dialCtx, s.URL, &websocket.DialOptions{
		HTTPClient:   s.HTTPClient,
		HTTPHeader:   http.Header{"Authorization": []string{bearer}},
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	ch := &stompChannel{conn: conn, logger: s.logger()}
	connect := NewFrame(CmdConnect, map[string]string{
		"accept-version": "1.2",
		"host":           brokerHost(s.URL),
		"heart-beat":     "0,0",
		"Authorization":  bearer,
	})
	if err := ch.write(dialCtx, connect); err != nil {
		conn.CloseNow()
		return nil, fmt.Errorf("send CONNECT: %w", err)
	}

	for {
		frame, err := ch.next(dialCtx)
		if err != nil {
			conn.CloseNow()
			return nil, fmt.Errorf("await CONNECTED: %w", err)
		}
		switch frame.Command {
		case CmdConnected:
			return ch, nil
		case CmdError:
			conn.CloseNow()
			return nil, &BrokerError{Message: frame.Header("message"), Body: string(frame.Body)}
		}
	}
}

func (s *StompConnector) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func brokerHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "/"
	}
	return u.Hostname()
}

type stompChannel struct {
	conn   *websocket.Conn
	logger *zap.Logger

	readMu  sync.Mutex
	pending []Frame

	mu     sync.Mutex
	subs   []string
	closed bool
}

func (c *stompChannel) Subscribe(ctx context.Context, destination string) (string, error) {
	id := "sub-" + uuid.NewString()
	frame := NewFrame(CmdSubscribe, map[string]string{
		"id":          id,
		"destination": destination,
		"ack":         "auto",
	})
	if err := c.write(ctx, frame); err != nil {
		return "", fmt.Errorf("send SUBSCRIBE: %w", err)
	}
	c.mu.Lock()
	c.subs = append(c.subs, id)
	c.mu.Unlock()
	return id, nil
}

func (c *stompChannel) Receive(ctx context.Context) (Frame, error) {
	for {
		frame, err := c.next(ctx)
		if err != nil {
			return Frame{}, err
		}
		switch frame.Command {
		case CmdMessage:
			return frame, nil
		case CmdError:
			return Frame{}, &BrokerError{Message: frame.Header("message"), Body: string(frame.Body)}
		default:
			c.logger.Debug("ignoring stomp frame", zap.String("command", frame.Command))
		}
	}
}

func (c *stompChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := append([]string(nil), c.subs...)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, id := range subs {
		if err := c.write(ctx, NewFrame(CmdUnsubscribe, map[string]string{"id": id})); err != nil {
			c.logger.Debug("unsubscribe failed", zap.String("subscription", id), zap.Error(err))
			break
		}
	}
	_ = c.write(ctx, NewFrame(CmdDisconnect, nil))
	return c.conn.Close(websocket.StatusNormalClosure, "disconnect")
}

// next returns the next frame of any command, reading more messages as needed.
func (c *stompChannel) next(ctx context.Context) (Frame, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	for len(c.pending) == 0 {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return Frame{}, err
		}
		frames, err := Decode(data)
		if err != nil {
			return Frame{}, err
		}
		c.pending = append(c.pending, frames...)
	}
	frame := c.pending[0]
	c.pending = c.pending[1:]
	return frame, nil
}

func (c *stompChannel) write(ctx context.Context, frame Frame) error {
	return c.conn.Write(ctx, websocket.MessageText, frame.Encode())
}
