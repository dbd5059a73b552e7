package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/docnum/internal/pipeline"
	"github.com/gorilla/websocket"
)

// Client follows a preview hub, reconnecting with backoff when the
// connection drops.
type Client struct {
	URL          string
	PingInterval time.Duration
	// Backoff gives the wait before reconnect attempt n (0-indexed).
	Backoff func(attempt int) time.Duration
	// Handle receives every protocol message. An error stops the client.
	Handle func(Message) error
	Log    *slog.Logger
	Dialer *websocket.Dialer
}

// ErrStopped wraps the handler error that ended Run.
var ErrStopped = errors.New("preview client stopped")

// Run connects and serves messages until ctx is done or Handle fails.
func (c *Client) Run(ctx context.Context) error {
	if c.Log == nil {
		c.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	backoff := c.Backoff
	if backoff == nil {
		backoff = pipeline.Backoff
	}
	attempt := 0
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrStopped) {
			return err
		}
		if connected {
			attempt = 0
		}
		wait := backoff(attempt)
		c.Log.Warn("preview connection lost, reconnecting", "error", err, "attempt", attempt+1, "wait", wait)
		attempt++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// session runs one connection. connected reports whether the dial succeeded.
func (c *Client) session(ctx context.Context) (connected bool, err error) {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.URL, err)
	}
	defer conn.Close()
	c.Log.Info("preview connected", "url", c.URL)

	interval := c.PingInterval
	if interval <= 0 {
		interval = 20 * time.Second
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(interval))
				if err := conn.WriteMessage(websocket.TextMessage, []byte(PingText)); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(interval * 3))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if string(data) == PongText {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Log.Warn("preview message ignored", "error", err)
			continue
		}
		if msg.Kind == KindPong || msg.Kind == KindPing {
			continue
		}
		if err := c.Handle(msg); err != nil {
			return true, fmt.Errorf("%w: %w", ErrStopped, err)
		}
	}
}
