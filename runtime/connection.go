// Package runtime owns the process-wide live resources of the client,
// chiefly the single event-stream connection.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"convo/contract"
	"convo/domain/event"

	"github.com/samber/lo"
)

// ConnectionManager owns the one event-stream connection of the
// process and the presence set it reports. Other components read its
// Handle to attach subscriptions but never open or close the stream
// themselves.
//
// Two locks with distinct roles: opMu serializes Connect/Disconnect,
// mu guards the state fields. Stream handlers only ever take mu, and
// the teardown path never holds mu while waiting on the transport, so
// an event in flight can always finish.
type ConnectionManager struct {
	opMu      sync.Mutex
	transport contract.StreamTransport
	log       *slog.Logger

	mu      sync.RWMutex
	boundID string
	open    bool
	online  []string
}

func NewConnectionManager(transport contract.StreamTransport, log *slog.Logger) *ConnectionManager {
	return &ConnectionManager{transport: transport, log: log}
}

// Connect opens the stream bound to identity and registers the
// presence handler. It is idempotent for the identity currently bound;
// a different identity replaces the connection so that at most one
// stream is ever open. An empty identity is ignored: it is reachable
// only through internal misuse, never through user action.
func (c *ConnectionManager) Connect(ctx context.Context, identity string) error {
	if identity == "" {
		c.log.Debug("connect skipped, no authenticated identity")
		return nil
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	open, bound := c.open, c.boundID
	c.mu.RUnlock()

	if open && bound == identity {
		return nil
	}
	if open {
		if err := c.closeTransport(); err != nil {
			return err
		}
	}

	if err := c.transport.Open(ctx, identity); err != nil {
		return fmt.Errorf("opening stream for %s: %w", identity, err)
	}
	c.transport.On(event.OnlineUsers, c.handlePresence)

	c.mu.Lock()
	c.boundID = identity
	c.open = true
	c.mu.Unlock()

	c.log.Info("stream connected", "identity", identity)
	return nil
}

// Disconnect closes the stream. Calling it without an open connection
// is a no-op. The presence set is deliberately left as last known; a
// new connection repopulates it on its first presence event.
func (c *ConnectionManager) Disconnect() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	open := c.open
	c.mu.RUnlock()

	if !open {
		return nil
	}
	return c.closeTransport()
}

// closeTransport tears the stream down. Callers hold opMu but must
// not hold mu: closing waits for the transport's read loop to exit,
// and that loop may itself be waiting for mu inside handlePresence.
func (c *ConnectionManager) closeTransport() error {
	c.mu.RLock()
	identity := c.boundID
	c.mu.RUnlock()

	c.transport.Off(event.OnlineUsers)
	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("closing stream for %s: %w", identity, err)
	}

	c.mu.Lock()
	c.boundID = ""
	c.open = false
	c.mu.Unlock()

	c.log.Info("stream disconnected", "identity", identity)
	return nil
}

// Handle returns the subscribe-only view of the open stream, or nil
// when no connection is open.
func (c *ConnectionManager) Handle() contract.EventRegistrar {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.open {
		return nil
	}
	return c.transport
}

func (c *ConnectionManager) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// BoundIdentity returns the identity the open connection belongs to,
// or the empty string when closed.
func (c *ConnectionManager) BoundIdentity() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.boundID
}

// OnlineUsers returns the last reported presence set.
func (c *ConnectionManager) OnlineUsers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.online...)
}

// IsOnline reports whether userID was in the last presence event.
func (c *ConnectionManager) IsOnline(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Contains(c.online, userID)
}

// handlePresence replaces the presence set wholesale with the event
// payload. Last event wins; there is no incremental merging.
func (c *ConnectionManager) handlePresence(payload []byte) {
	users, err := event.DecodeOnlineUsers(payload)
	if err != nil {
		c.log.Warn("dropping malformed presence event", "error", err)
		return
	}

	c.mu.Lock()
	c.online = users
	c.mu.Unlock()
}
