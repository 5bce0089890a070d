package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mohamedkhairy/market-pulse/internal/market"
	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/mohamedkhairy/market-pulse/pkg/logger"
)

// Conn is the minimal websocket surface the client needs. *websocket.Conn
// satisfies it; tests substitute an in-memory pipe.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a Conn to the feed endpoint.
type Dialer func(ctx context.Context, url string) (Conn, error)

// Sink receives an indicator snapshot after every decoded feed event. The
// push is best-effort: implementations must not block the feed path.
type Sink interface {
	Publish(update models.IndicatorUpdate)
}

// Config holds configuration for the feed protocol client
type Config struct {
	URL               string
	ChannelID         int
	KeepaliveInterval time.Duration
	KeepaliveTimeout  int // seconds, advertised in SETUP
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	CloseGracePeriod  time.Duration
}

// DefaultConfig returns a default feed client configuration
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		ChannelID:         1,
		KeepaliveInterval: 30 * time.Second,
		KeepaliveTimeout:  60,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		CloseGracePeriod:  2 * time.Second,
	}
}

// Client owns one logical streaming channel per active symbol set. It runs
// the multi-step handshake, keeps the connection alive, and decodes inbound
// frames into live-state mutations. Transport failures are logged and leave
// the client disconnected; reconnection only happens on explicit
// resubscription.
type Client struct {
	config    Config
	store     *market.Store
	sink      Sink
	sentiment func(symbol string) models.Sentiment
	dialer    Dialer

	mu      sync.Mutex
	wmu     sync.Mutex // serializes frame writes on the active conn
	conn    Conn
	symbols []string
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClient creates a new feed protocol client. sentiment resolves a
// symbol's dashboard classification at push time.
func NewClient(config Config, store *market.Store, sink Sink, sentiment func(symbol string) models.Sentiment) *Client {
	c := &Client{
		config:    config,
		store:     store,
		sink:      sink,
		sentiment: sentiment,
	}
	c.dialer = func(ctx context.Context, url string) (Conn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial feed: %w", err)
		}
		return conn, nil
	}
	return c
}

// SetDialer overrides the websocket dialer (used by tests).
func (c *Client) SetDialer(dialer Dialer) {
	c.dialer = dialer
}

// Subscribe establishes the streaming channel for the given symbol set.
// An unchanged symbol set on an open connection is a no-op. A changed set
// tears down the previous connection within the close grace period and runs
// the full handshake again: SETUP, AUTH, CHANNEL_REQUEST, FEED_SETUP,
// FEED_SUBSCRIPTION with reset.
func (c *Client) Subscribe(ctx context.Context, quoteToken string, symbols []string) error {
	if quoteToken == "" {
		return models.ErrNoToken
	}

	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	c.mu.Lock()
	if c.conn != nil && equalSymbols(c.symbols, sorted) {
		c.mu.Unlock()
		logger.Debug("Symbol set unchanged, keeping existing subscription",
			logger.Strings("symbols", sorted),
		)
		return nil
	}
	c.mu.Unlock()

	// Replace any previous connection before the new handshake.
	c.Close()

	conn, err := c.dialer(ctx, c.config.URL)
	if err != nil {
		return err
	}

	if err := c.handshake(conn, quoteToken, sorted); err != nil {
		conn.Close()
		return err
	}

	connCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.symbols = sorted
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.keepaliveLoop(connCtx, conn)
	go c.readLoop(connCtx, conn, done)

	logger.FeedReconnects.Inc()
	logger.Info("Feed subscription established",
		logger.Int("channel", c.config.ChannelID),
		logger.Strings("symbols", sorted),
	)
	return nil
}

// handshake sends the setup sequence in strict order. The connection is open
// once the dial returned, so sequential writes preserve the required order.
func (c *Client) handshake(conn Conn, quoteToken string, symbols []string) error {
	steps := []interface{}{
		newSetupFrame(c.config.KeepaliveTimeout),
		newAuthFrame(quoteToken),
		newChannelRequestFrame(c.config.ChannelID),
		newFeedSetupFrame(c.config.ChannelID),
		newFeedSubscriptionFrame(c.config.ChannelID, symbols),
	}
	for _, frame := range steps {
		if err := c.writeFrame(conn, frame); err != nil {
			return fmt.Errorf("handshake failed: %w", err)
		}
	}
	return nil
}

// writeFrame writes one frame with a bounded deadline. Writes are serialized
// so the keepalive timer never interleaves with another writer.
func (c *Client) writeFrame(conn Conn, frame interface{}) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return conn.WriteJSON(frame)
}

// keepaliveLoop sends a keepalive frame on the control channel at the fixed
// interval for the life of the connection.
func (c *Client) keepaliveLoop(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(c.config.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeFrame(conn, newKeepaliveFrame()); err != nil {
				logger.Warn("Keepalive send failed", logger.ErrorField(err))
				return
			}
		}
	}
}

// readLoop decodes inbound frames until the connection closes. Decode
// failures drop the affected event only; transport errors end the loop
// without retrying.
func (c *Client) readLoop(ctx context.Context, conn Conn, done chan struct{}) {
	defer close(done)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("Feed connection closed", logger.ErrorField(err))
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			logger.Debug("Dropping unparseable feed frame", logger.ErrorField(err))
			continue
		}
		if frame.Type != frameFeedData {
			continue
		}

		event, err := decodeFeedData(frame.Data)
		if err != nil {
			logger.FeedDecodeFailures.WithLabelValues("unknown").Inc()
			logger.Debug("Dropping malformed feed event", logger.ErrorField(err))
			continue
		}

		c.applyEvent(event)
	}
}

// applyEvent mutates live state for one event and pushes the derived
// snapshot to the presentation sink. The push is best-effort; a sink failure
// never affects the stored state.
func (c *Client) applyEvent(event models.MarketEvent) {
	snap := c.store.Apply(event, time.Now())

	switch event.(type) {
	case models.TradeEvent:
		logger.FeedEventsDecoded.WithLabelValues(eventTrade).Inc()
	case models.QuoteEvent:
		logger.FeedEventsDecoded.WithLabelValues(eventQuote).Inc()
	case models.SummaryEvent:
		logger.FeedEventsDecoded.WithLabelValues(eventSummary).Inc()
	}

	if c.sink != nil {
		c.sink.Publish(market.BuildUpdate(snap, c.sentiment(event.EventSymbol())))
	}
}

// Close tears down the current connection with a bounded grace period. A
// connection that does not drain in time is abandoned, not awaited.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	done := c.done
	c.conn = nil
	c.symbols = nil
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}

	if cancel != nil {
		cancel()
	}

	// Polite close frame; errors here only mean the peer is already gone.
	c.wmu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.wmu.Unlock()
	conn.Close()

	if done != nil {
		select {
		case <-done:
		case <-time.After(c.config.CloseGracePeriod):
			logger.Warn("Stale feed connection did not close in time, abandoning",
				logger.Duration("grace_period", c.config.CloseGracePeriod),
			)
		}
	}
}

// IsConnected reports whether a subscription is currently active.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Symbols returns the currently subscribed symbol set (sorted).
func (c *Client) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

func equalSymbols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
