package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/choreboard/choreboard/internal/config"
	"github.com/choreboard/choreboard/internal/platform/metrics"
	"github.com/choreboard/choreboard/internal/redact"
	"github.com/choreboard/choreboard/internal/service/auth"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// handshakeTimeout bounds the WebSocket upgrade negotiation. Authentication
// itself happens before the upgrade, so a connection never sits half-open
// waiting for a credential.
const handshakeTimeout = 10 * time.Second

// Gateway accepts WebSocket connections, authenticates them, wires them
// into the connection and room registries, routes inbound subscribe events,
// and exposes the broadcast API. It is the only path to a socket.
type Gateway struct {
	verifier auth.TokenVerifier
	registry *ConnectionRegistry
	rooms    *RoomRegistry
	cfg      config.GatewayConfig

	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  metrics.Recorder
	timeFunc func() time.Time
}

// Gateway reacts to its own registry's presence edges.
var _ PresenceListener = (*Gateway)(nil)

// NewGateway creates a gateway with fresh registries.
func NewGateway(
	verifier auth.TokenVerifier,
	cfg config.GatewayConfig,
	logger *slog.Logger,
	rec metrics.Recorder,
) *Gateway {
	if rec == nil {
		rec = metrics.Nop{}
	}

	registry := NewConnectionRegistry(logger, rec)
	g := &Gateway{
		verifier: verifier,
		registry: registry,
		rooms:    NewRoomRegistry(registry, logger, rec),
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			// The browser client sends the credential, not an Origin we
			// control; cross-origin checks belong to the outer proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:   logger.With(slog.String("component", "gateway")),
		metrics:  rec,
		timeFunc: time.Now,
	}
	registry.AddListener(g)
	return g
}

// Registry returns the gateway's connection registry.
func (g *Gateway) Registry() *ConnectionRegistry { return g.registry }

// Rooms returns the gateway's room registry.
func (g *Gateway) Rooms() *RoomRegistry { return g.rooms }

// ServeHTTP handles the WebSocket handshake. The bearer credential comes
// from the Authorization header or the token query parameter and is
// verified before the upgrade: a missing, invalid, or expired credential
// gets a 401 and the connection never enters the registries.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing credential", http.StatusUnauthorized)
		return
	}

	claims, err := g.verifier.VerifyToken(r.Context(), token)
	if err != nil {
		g.logger.Debug("handshake rejected",
			slog.String("error", redact.Error(err)),
			slog.String("remote_addr", r.RemoteAddr))
		http.Error(w, "invalid credential", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		g.logger.Debug("upgrade failed",
			slog.String("error", err.Error()),
			slog.String("user_id", claims.UserID))
		return
	}

	client := &Client{
		userID:  claims.UserID,
		claims:  claims,
		conn:    conn,
		send:    make(chan []byte, g.cfg.SendBufferSize),
		done:    make(chan struct{}),
		gateway: g,
		limiter: rate.NewLimiter(rate.Limit(g.cfg.MessageRate), g.cfg.MessageBurst),
	}

	g.registry.Register(client.userID, client)
	g.logger.Info("client connected",
		slog.String("user_id", client.userID))

	go client.writePump()
	go client.readPump()
}

// handleMessage routes one inbound client event.
func (g *Gateway) handleMessage(c *Client, msg ClientMessage) {
	switch msg.Type {
	case EventJoinGroup:
		if msg.RoomID == "" {
			c.sendEvent(EventError, ErrorPayload{Message: "roomId is required"})
			return
		}
		count := g.rooms.Join(msg.RoomID, c.userID)
		c.sendEvent(EventJoinedGroup, JoinedGroupPayload{
			GroupID:     msg.RoomID,
			MemberCount: count,
		})
		// Notify the rest of the room, not the joiner.
		g.broadcastFrame(msg.RoomID, EventUserJoinedGroup, RoomPresencePayload{
			UserID:    c.userID,
			GroupID:   msg.RoomID,
			Timestamp: g.timeFunc(),
		}, c.userID)

	case EventLeaveGroup:
		if msg.RoomID == "" {
			c.sendEvent(EventError, ErrorPayload{Message: "roomId is required"})
			return
		}
		g.rooms.Leave(msg.RoomID, c.userID)
		g.broadcastFrame(msg.RoomID, EventUserLeftGroup, RoomPresencePayload{
			UserID:    c.userID,
			GroupID:   msg.RoomID,
			Timestamp: g.timeFunc(),
		}, "")

	default:
		c.sendEvent(EventError, ErrorPayload{Message: "unknown event type"})
	}
}

// disconnect tears down a client exactly once: unregister from the
// connection registry (which fires UserOffline on the last connection and
// triggers room cleanup via the presence listener) and close the socket.
func (g *Gateway) disconnect(c *Client) {
	c.closeOnce.Do(func() {
		close(c.done)
		g.registry.Unregister(c.userID, c)
		_ = c.conn.Close()
		g.logger.Info("client disconnected",
			slog.String("user_id", c.userID))
	})
}

// UserOnline implements PresenceListener. A reconnecting user holds no room
// subscriptions (they were dropped at last disconnect), so this normally
// announces to nobody; it exists so every presence edge has one path.
func (g *Gateway) UserOnline(userID string) {
	payload := PresencePayload{UserID: userID, Timestamp: g.timeFunc()}
	for _, groupID := range g.rooms.Rooms(userID) {
		g.broadcastFrame(groupID, EventUserOnline, payload, userID)
	}
}

// UserOffline implements PresenceListener. The user's last connection has
// closed: remove them from every room and announce user_offline to each,
// at most once per room.
func (g *Gateway) UserOffline(userID string) {
	payload := PresencePayload{UserID: userID, Timestamp: g.timeFunc()}
	for _, groupID := range g.rooms.LeaveAll(userID) {
		g.broadcastFrame(groupID, EventUserOffline, payload, userID)
	}
}

// BroadcastToRoom delivers an event to every subscribed member of a group.
// This is the programmatic fan-out API used by the effect dispatcher.
func (g *Gateway) BroadcastToRoom(groupID string, event string, payload any) error {
	return g.broadcastFrame(groupID, EventType(event), payload, "")
}

// SendToUser delivers an event to every live connection of one user.
// A user with no live connections is a no-op, not an error.
func (g *Gateway) SendToUser(userID string, event string, payload any) error {
	frame, err := EncodeFrame(EventType(event), payload)
	if err != nil {
		return err
	}
	g.registry.SendToUser(userID, frame)
	return nil
}

func (g *Gateway) broadcastFrame(groupID string, event EventType, payload any, excludeUserID string) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	delivered := g.rooms.Broadcast(groupID, frame, excludeUserID)
	g.metrics.RecordBroadcast(string(event))
	g.logger.Debug("room broadcast",
		slog.String("group_id", groupID),
		slog.String("event", string(event)),
		slog.Int("delivered", delivered))
	return nil
}

// bearerToken extracts the credential from the Authorization header or the
// token query parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
