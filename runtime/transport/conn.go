// Package transport manages the WebSocket connection underlying an RT
// session: dial, retry with backoff, framed send/receive, heartbeat, and
// graceful close. It carries both JSON control frames and binary PCM audio
// frames; message encoding is left to runtime/codec.
package transport

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"math"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/speechmatics/speechmatics-go-sdk/pkg/errors"
	"github.com/speechmatics/speechmatics-go-sdk/runtime/credentials"
)

// Default connection constants.
const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultMaxMessageSize   = 16 * 1024 * 1024
	DefaultMaxRetries       = 3
	DefaultRetryBackoffBase = 1 * time.Second
	DefaultRetryBackoffMax  = 30 * time.Second
	DefaultCloseGracePeriod = 5 * time.Second
	// DefaultPingTimeout is how long the connection tolerates a missing
	// pong before a read times out and the session is failed (spec
	// section 5, "a missed pong beyond ping_timeout fails the session").
	DefaultPingTimeout = 60 * time.Second
)

const (
	jitterFactor        = 0.25
	jitterPrecision     = 1000
	jitterHalfPrecision = jitterPrecision / 2
)

// Logger is the minimal structured logging surface transport needs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(_ string, _ ...interface{}) {}
func (noopLogger) Info(_ string, _ ...interface{})  {}
func (noopLogger) Warn(_ string, _ ...interface{})  {}
func (noopLogger) Error(_ string, _ ...interface{}) {}

// ConnConfig configures the WebSocket connection behavior.
type ConnConfig struct {
	// URL is the RT WebSocket endpoint (e.g. wss://.../v2).
	URL string

	// Credential applies auth to the handshake request (Bearer header or
	// jwt query parameter). Optional — a URL with inline auth needs none.
	Credential credentials.Credential

	DialTimeout      time.Duration
	WriteWait        time.Duration
	MaxMessageSize   int64
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
	CloseGracePeriod time.Duration

	// PingTimeout bounds how long the connection waits for a pong before
	// its next read fails, which fails the session (spec section 5).
	// Reset on every pong and rearmed after the initial connect.
	PingTimeout time.Duration

	Logger Logger
}

func (c *ConnConfig) defaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteWait == 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBackoffBase == 0 {
		c.RetryBackoffBase = DefaultRetryBackoffBase
	}
	if c.RetryBackoffMax == 0 {
		c.RetryBackoffMax = DefaultRetryBackoffMax
	}
	if c.CloseGracePeriod == 0 {
		c.CloseGracePeriod = DefaultCloseGracePeriod
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// Frame is a single inbound WebSocket message, tagged with its wire kind so
// the codec layer can dispatch JSON control frames separately from binary
// PCM audio frames.
type Frame struct {
	Binary bool
	Data   []byte
}

// Conn manages a WebSocket connection with retry, heartbeat, and graceful
// shutdown, carrying both JSON and binary frames.
type Conn struct {
	cfg ConnConfig

	conn    *websocket.Conn
	mu      sync.Mutex
	writeMu sync.Mutex
	closed  bool
	closeCh chan struct{}
}

// NewConn creates a new Conn. Call Connect or ConnectWithRetry to establish
// the connection.
func NewConn(cfg *ConnConfig) *Conn {
	cfg.defaults()
	return &Conn{
		cfg:     *cfg,
		closeCh: make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection, applying credentials to the
// handshake request first.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.Transport("transport", "connect", nil).WithDetails(map[string]any{"reason": "connection is closed"})
	}

	headers := http.Header{}
	if c.cfg.Credential != nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
		if err != nil {
			return errors.Transport("transport", "connect", err)
		}
		if err := c.cfg.Credential.Apply(ctx, req); err != nil {
			return errors.Auth("transport", "connect", err)
		}
		headers = req.Header
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.DialTimeout,
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
	}

	c.cfg.Logger.Debug("connecting to RT endpoint", "url", c.cfg.URL)

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, headers)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
			c.cfg.Logger.Error("dial failed", "error", err, "status", resp.StatusCode)
		}
		return errors.Transport("transport", "connect", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	conn.SetReadLimit(c.cfg.MaxMessageSize)

	pingTimeout := c.cfg.PingTimeout
	_ = conn.SetReadDeadline(time.Now().Add(pingTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pingTimeout))
	})

	c.conn = conn
	c.cfg.Logger.Info("RT connection established")

	return nil
}

// ConnectWithRetry attempts to connect with exponential backoff and jitter.
func (c *Conn) ConnectWithRetry(ctx context.Context) error {
	var lastErr error
	backoff := c.cfg.RetryBackoffBase

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := c.Connect(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		c.cfg.Logger.Warn("connect attempt failed", "attempt", attempt, "maxAttempts", c.cfg.MaxRetries, "error", lastErr)

		if attempt < c.cfg.MaxRetries {
			delay := calculateBackoff(backoff, c.cfg.RetryBackoffMax)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			backoff *= 2
			if backoff > c.cfg.RetryBackoffMax {
				backoff = c.cfg.RetryBackoffMax
			}
		}
	}

	return errors.Transport("transport", "connect_with_retry", lastErr)
}

// SendText writes a pre-encoded JSON control frame.
func (c *Conn) SendText(data []byte) error {
	return c.send(websocket.TextMessage, data)
}

// SendBinary writes a raw PCM16LE audio chunk.
func (c *Conn) SendBinary(data []byte) error {
	return c.send(websocket.BinaryMessage, data)
}

func (c *Conn) send(messageType int, data []byte) error {
	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return errors.Transport("transport", "send", nil).WithDetails(map[string]any{"reason": "not connected"})
	}
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return errors.Transport("transport", "send", err)
	}
	if err := conn.WriteMessage(messageType, data); err != nil {
		return errors.Transport("transport", "send", err)
	}
	return nil
}

// Receive reads a single frame from the WebSocket, blocking until a message
// arrives or ctx is canceled.
func (c *Conn) Receive(ctx context.Context) (Frame, error) {
	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return Frame{}, errors.Transport("transport", "receive", nil).WithDetails(map[string]any{"reason": "not connected"})
	}
	conn := c.conn
	c.mu.Unlock()

	type readResult struct {
		msgType int
		data    []byte
		err     error
	}
	ch := make(chan readResult, 1)

	go func() {
		msgType, data, err := conn.ReadMessage()
		ch <- readResult{msgType: msgType, data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return Frame{}, r.err
		}
		switch r.msgType {
		case websocket.TextMessage:
			return Frame{Binary: false, Data: r.data}, nil
		case websocket.BinaryMessage:
			return Frame{Binary: true, Data: r.data}, nil
		default:
			return Frame{}, errors.Protocol("transport", "receive", nil).WithDetails(map[string]any{"message_type": r.msgType})
		}
	}
}

// ReceiveLoop continuously reads frames and sends them to frameCh. It
// returns when the connection closes, an error occurs, or ctx is canceled.
func (c *Conn) ReceiveLoop(ctx context.Context, frameCh chan<- Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeCh:
			return nil
		default:
		}

		frame, err := c.Receive(ctx)
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		select {
		case frameCh <- frame:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeCh:
			return nil
		}
	}
}

// StartHeartbeat starts a goroutine sending WebSocket ping frames at interval.
func (c *Conn) StartHeartbeat(ctx context.Context, interval time.Duration) {
	go c.heartbeatLoop(ctx, interval)
}

func (c *Conn) heartbeatLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Conn) sendPing() bool {
	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return false
	}
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.cfg.Logger.Warn("ping deadline failed", "error", err)
		return true
	}
	if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.cfg.Logger.Warn("ping failed", "error", err)
		return false
	}
	return true
}

// Close gracefully closes the connection, sending a close frame first.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeCh)

	if c.conn == nil {
		return nil
	}

	c.writeMu.Lock()
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.CloseGracePeriod))
	_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
	c.writeMu.Unlock()

	return c.conn.Close()
}

// IsClosed reports whether the connection has been closed.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// IsConnected reports whether the connection is established and open.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

// Reset tears down the current socket and prepares the Conn for a fresh
// Connect call, used by reconnection flows.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.writeMu.Lock()
		_ = c.conn.Close()
		c.writeMu.Unlock()
		c.conn = nil
	}

	c.closed = false
	c.closeCh = make(chan struct{})
}

func calculateBackoff(base, maxDelay time.Duration) time.Duration {
	delay := float64(base)
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(jitterPrecision))
	jitter := delay * jitterFactor * (float64(n.Int64())/jitterHalfPrecision - 1)
	result := delay + jitter
	if result < 0 {
		result = float64(base)
	}
	if result > float64(maxDelay) {
		result = float64(maxDelay)
	}
	return time.Duration(math.Max(result, 0))
}
