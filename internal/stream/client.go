package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/internal/storage"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// ErrAuthFailed is returned when the market data feed rejects the API key.
var ErrAuthFailed = errors.New("market data authentication failed")

// State represents the connection state of the market data stream.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticated
	StateSubscribed
	StateListening
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	case StateListening:
		return "listening"
	default:
		return "unknown"
	}
}

// BarHandler receives each ingested bar. Handlers run on the read loop
// goroutine; slow handlers delay ingestion.
type BarHandler func(bar models.Bar)

// Client maintains a connection to the aggregate feed, persists every
// minute bar and hands it to the registered handler. It reconnects with
// exponential backoff and never gives up until the context is cancelled.
type Client struct {
	cfg  config.MarketDataConfig
	bars storage.BarStore

	mu    sync.RWMutex
	conn  *websocket.Conn
	state State

	onBar BarHandler

	dialer *websocket.Dialer
}

// NewClient creates a market data stream client.
func NewClient(cfg config.MarketDataConfig, bars storage.BarStore) *Client {
	return &Client{
		cfg:   cfg,
		bars:  bars,
		state: StateDisconnected,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// SetBarHandler registers the callback invoked for every ingested bar.
// Must be called before Run.
func (c *Client) SetBarHandler(handler BarHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBar = handler
}

// GetState returns the current connection state.
func (c *Client) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run connects and listens until ctx is cancelled. Connection failures and
// drops trigger reconnection with exponential backoff; the backoff resets
// after every successful subscribe.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			c.closeConn()
			return ctx.Err()
		default:
		}

		err := c.connect(ctx)
		if err == nil {
			backoff = c.cfg.ReconnectDelay
			err = c.listen(ctx)
		}

		c.closeConn()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrAuthFailed) {
			return err
		}

		if isNormalClosure(err) && c.wildcard() {
			logger.Warn("Stream closed normally after wildcard subscribe; the plan may not allow it",
				logger.String("url", c.cfg.WebSocketURL),
			)
		} else {
			logger.Warn("Stream disconnected, reconnecting",
				logger.Duration("backoff", backoff),
				logger.ErrorField(err),
			)
		}

		logger.StreamReconnects.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.cfg.MaxReconnectDelay {
			backoff = c.cfg.MaxReconnectDelay
		}
	}
}

// connect dials the feed, authenticates and subscribes.
func (c *Client) connect(ctx context.Context) error {
	c.setState(StateConnecting)

	logger.Info("Connecting to market data stream", logger.String("url", c.cfg.WebSocketURL))

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.WebSocketURL, nil)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("failed to dial stream: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.authenticate(conn); err != nil {
		return err
	}
	c.setState(StateAuthenticated)

	params := subscriptionParams(c.cfg.Symbols)
	if err := c.send(conn, controlMessage{Action: "subscribe", Params: params}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	c.setState(StateSubscribed)

	logger.Info("Subscribed to aggregate feed", logger.String("params", params))
	return nil
}

// authenticate sends the API key and waits for the auth status message.
// Status frames that arrive before the auth result are skipped.
func (c *Client) authenticate(conn *websocket.Conn) error {
	if err := c.send(conn, controlMessage{Action: "auth", Params: c.cfg.APIKey}); err != nil {
		return fmt.Errorf("failed to send auth: %w", err)
	}

	for i := 0; i < 3; i++ {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read auth response: %w", err)
		}

		events, err := parseEvents(raw)
		if err != nil {
			return err
		}

		for _, ev := range events {
			if ev.Event != eventStatus {
				continue
			}
			switch ev.Status {
			case statusAuthSuccess:
				logger.Info("Stream authenticated")
				return nil
			case statusAuthFailed:
				return fmt.Errorf("%w: %s", ErrAuthFailed, ev.Message)
			}
		}
	}

	return errors.New("no auth response from stream")
}

// listen reads frames until the connection drops or ctx is cancelled. A
// keepalive ping ticker keeps the read deadline refreshed through quiet
// periods; any read error is a connection drop and feeds the reconnect
// path.
func (c *Client) listen(ctx context.Context) error {
	c.setState(StateListening)

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return errors.New("stream is not connected")
	}

	// Data frames and pongs both refresh the deadline. The keepalive
	// pings at half this interval, so a quiet healthy feed never trips it.
	deadline := 2 * c.cfg.ReadTimeout
	conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	done := make(chan struct{})
	defer close(done)
	go c.keepalive(ctx, conn, done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(deadline))

		c.handleFrame(ctx, raw)
	}
}

// keepalive pings the server every ReadTimeout so the read deadline keeps
// getting refreshed through quiet periods. A failed write closes the
// connection to unblock the read loop.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.ReadTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				logger.Error("Failed to send keepalive ping", logger.ErrorField(err))
				conn.Close()
				return
			}
		}
	}
}

// handleFrame decodes a frame and ingests every aggregate in it. Decode
// failures are logged and skipped so one bad frame cannot stall the feed.
func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	events, err := parseEvents(raw)
	if err != nil {
		logger.Error("Failed to decode stream frame", logger.ErrorField(err))
		return
	}

	for _, ev := range events {
		switch ev.Event {
		case eventAggregate:
			c.ingestBar(ctx, ev.toBar())
		case eventStatus:
			logger.Debug("Stream status",
				logger.String("status", ev.Status),
				logger.String("message", ev.Message),
			)
		}
	}
}

func (c *Client) ingestBar(ctx context.Context, bar models.Bar) {
	if err := bar.Validate(); err != nil {
		logger.Warn("Dropping invalid bar",
			logger.String("ticker", bar.Ticker),
			logger.ErrorField(err),
		)
		return
	}

	if err := c.bars.UpsertBar(ctx, &bar); err != nil {
		logger.Error("Failed to persist bar",
			logger.String("ticker", bar.Ticker),
			logger.ErrorField(err),
		)
		return
	}

	logger.BarsIngested.WithLabelValues("stream").Inc()

	c.mu.RLock()
	handler := c.onBar
	c.mu.RUnlock()
	if handler != nil {
		c.callHandler(handler, bar)
	}
}

// callHandler isolates handler panics from the read loop.
func (c *Client) callHandler(handler BarHandler, bar models.Bar) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Bar handler panicked",
				logger.String("ticker", bar.Ticker),
				logger.Any("panic", r),
			)
		}
	}()
	handler(bar)
}

func (c *Client) send(conn *websocket.Conn, msg controlMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
}

func (c *Client) wildcard() bool {
	return subscriptionParams(c.cfg.Symbols) == "A.*"
}

func isNormalClosure(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure
}
