package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ClientConfig configures the consuming client's reconnect behavior.
type ClientConfig struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HandshakeTimeout  time.Duration
	ReadTimeout       time.Duration
}

// DefaultClientConfig returns the defaults used when config is nil.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       60 * time.Second,
	}
}

// Client consumes a spread-row feed, reconnecting with exponential
// backoff when the connection drops. Parsed rows are delivered on the
// channel returned by Subscribe; the channel closes when the context
// is cancelled.
type Client struct {
	endpoint string
	config   ClientConfig
	log      *zap.Logger
}

// NewClient creates a feed client. config may be nil for defaults.
func NewClient(endpoint string, config *ClientConfig, log *zap.Logger) *Client {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{endpoint: endpoint, config: cfg, log: log}
}

// Subscribe starts the read loop and returns the row channel. Rows
// arrive in batches as the hub broadcast them. Delivery blocks, so a
// stalled consumer stalls only its own subscription.
func (c *Client) Subscribe(ctx context.Context) <-chan []Row {
	out := make(chan []Row)
	go c.run(ctx, out)
	return out
}

func (c *Client) run(ctx context.Context, out chan<- []Row) {
	defer close(out)

	delay := c.config.ReconnectDelay
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn("feed dial failed", zap.String("endpoint", c.endpoint), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}
			continue
		}

		c.log.Info("feed connected", zap.String("endpoint", c.endpoint))
		delay = c.config.ReconnectDelay

		// Close the socket when the context ends so ReadMessage unblocks.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()

		c.readLoop(ctx, conn, out)
		close(done)
		conn.Close()
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	return conn, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- []Row) {
	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("feed read failed, reconnecting", zap.Error(err))
			}
			return
		}

		rows, err := ParseRows(message)
		if err != nil {
			c.log.Warn("feed message unparseable", zap.Error(err))
			continue
		}
		if len(rows) == 0 {
			continue
		}

		select {
		case out <- rows:
		case <-ctx.Done():
			return
		}
	}
}
