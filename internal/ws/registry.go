package ws

import (
	"log/slog"
	"sync"

	"github.com/choreboard/choreboard/internal/platform/metrics"
)

// PresenceListener receives edge-triggered presence notifications from the
// connection registry: UserOnline fires exactly once when a user's first
// connection registers, UserOffline exactly once when the last one leaves.
type PresenceListener interface {
	UserOnline(userID string)
	UserOffline(userID string)
}

// ConnectionRegistry maps a user ID to the set of live connections for that
// user. A user with several devices holds several connections. All methods
// are safe for concurrent use.
type ConnectionRegistry struct {
	mu        sync.RWMutex
	conns     map[string]map[*Client]struct{}
	listeners []PresenceListener

	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry(logger *slog.Logger, rec metrics.Recorder) *ConnectionRegistry {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &ConnectionRegistry{
		conns:   make(map[string]map[*Client]struct{}),
		logger:  logger.With(slog.String("component", "connection_registry")),
		metrics: rec,
	}
}

// AddListener registers a presence listener. Listeners must be added during
// wiring, before the registry starts receiving connections.
func (r *ConnectionRegistry) AddListener(l PresenceListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Register adds a connection to the user's set. The first connection for a
// user fires UserOnline on every listener.
func (r *ConnectionRegistry) Register(userID string, c *Client) {
	r.mu.Lock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.conns[userID] = set
	}
	first := len(set) == 0
	set[c] = struct{}{}
	listeners := r.listeners
	r.mu.Unlock()

	r.metrics.ConnectionOpened()
	r.logger.Debug("connection registered",
		slog.String("user_id", userID),
		slog.Bool("first", first))

	// Listeners run outside the lock: they broadcast, which takes the room
	// registry lock and reads this registry again.
	if first {
		for _, l := range listeners {
			l.UserOnline(userID)
		}
	}
}

// Unregister removes a connection from the user's set. Removing the last
// connection drops the user entry and fires UserOffline on every listener.
// Unregistering an unknown connection is a no-op.
func (r *ConnectionRegistry) Unregister(userID string, c *Client) {
	r.mu.Lock()
	set, ok := r.conns[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, member := set[c]; !member {
		r.mu.Unlock()
		return
	}
	delete(set, c)
	last := len(set) == 0
	if last {
		delete(r.conns, userID)
	}
	listeners := r.listeners
	r.mu.Unlock()

	r.metrics.ConnectionClosed()
	r.logger.Debug("connection unregistered",
		slog.String("user_id", userID),
		slog.Bool("last", last))

	if last {
		for _, l := range listeners {
			l.UserOffline(userID)
		}
	}
}

// SendToUser delivers a frame to every live connection for the user.
// A user with no live connections is a no-op, not an error. Returns the
// number of connections the frame was queued to.
func (r *ConnectionRegistry) SendToUser(userID string, frame []byte) int {
	r.mu.RLock()
	set := r.conns[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.trySend(frame) {
			delivered++
		} else {
			r.metrics.RecordDroppedFrame()
			r.logger.Warn("dropped frame for slow client",
				slog.String("user_id", userID))
		}
	}
	return delivered
}

// IsOnline reports whether the user has at least one live connection.
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// OnlineCount returns the number of users with at least one live connection.
func (r *ConnectionRegistry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
