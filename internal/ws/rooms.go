package ws

import (
	"log/slog"
	"sync"

	"github.com/choreboard/choreboard/internal/platform/metrics"
)

// RoomRegistry maps a group ID to the set of user IDs currently subscribed
// to its broadcasts. Room membership is independent of persisted group
// membership: it tracks live subscriptions only, and a user leaves every
// room when their last connection closes.
type RoomRegistry struct {
	mu sync.RWMutex
	// rooms: groupID -> set of userIDs
	rooms map[string]map[string]struct{}
	// userRooms: reverse index, userID -> set of groupIDs
	userRooms map[string]map[string]struct{}

	conns   *ConnectionRegistry
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewRoomRegistry creates an empty room registry that resolves live
// connections through the given connection registry.
func NewRoomRegistry(conns *ConnectionRegistry, logger *slog.Logger, rec metrics.Recorder) *RoomRegistry {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &RoomRegistry{
		rooms:     make(map[string]map[string]struct{}),
		userRooms: make(map[string]map[string]struct{}),
		conns:     conns,
		logger:    logger.With(slog.String("component", "room_registry")),
		metrics:   rec,
	}
}

// Join subscribes a user to a room. Joining twice has the effect of joining
// once. Returns the member count after the join.
func (r *RoomRegistry) Join(groupID, userID string) int {
	r.mu.Lock()
	room, ok := r.rooms[groupID]
	if !ok {
		room = make(map[string]struct{})
		r.rooms[groupID] = room
	}
	room[userID] = struct{}{}

	user, ok := r.userRooms[userID]
	if !ok {
		user = make(map[string]struct{})
		r.userRooms[userID] = user
	}
	user[groupID] = struct{}{}

	count := len(room)
	roomCount := len(r.rooms)
	r.mu.Unlock()

	r.metrics.RoomCount(roomCount)
	r.logger.Debug("user joined room",
		slog.String("group_id", groupID),
		slog.String("user_id", userID),
		slog.Int("member_count", count))

	return count
}

// Leave unsubscribes a user from a room. Removing a non-member is a no-op.
func (r *RoomRegistry) Leave(groupID, userID string) {
	r.mu.Lock()
	if room, ok := r.rooms[groupID]; ok {
		delete(room, userID)
		if len(room) == 0 {
			delete(r.rooms, groupID)
		}
	}
	if user, ok := r.userRooms[userID]; ok {
		delete(user, groupID)
		if len(user) == 0 {
			delete(r.userRooms, userID)
		}
	}
	roomCount := len(r.rooms)
	r.mu.Unlock()

	r.metrics.RoomCount(roomCount)
	r.logger.Debug("user left room",
		slog.String("group_id", groupID),
		slog.String("user_id", userID))
}

// LeaveAll removes the user from every room they are subscribed to and
// returns the IDs of the rooms that were left.
func (r *RoomRegistry) LeaveAll(userID string) []string {
	r.mu.Lock()
	left := make([]string, 0, len(r.userRooms[userID]))
	for groupID := range r.userRooms[userID] {
		left = append(left, groupID)
		if room, ok := r.rooms[groupID]; ok {
			delete(room, userID)
			if len(room) == 0 {
				delete(r.rooms, groupID)
			}
		}
	}
	delete(r.userRooms, userID)
	roomCount := len(r.rooms)
	r.mu.Unlock()

	r.metrics.RoomCount(roomCount)
	return left
}

// Members returns a snapshot of the user IDs subscribed to a room.
func (r *RoomRegistry) Members(groupID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[groupID]
	members := make([]string, 0, len(room))
	for userID := range room {
		members = append(members, userID)
	}
	return members
}

// MemberCount returns the number of users subscribed to a room.
func (r *RoomRegistry) MemberCount(groupID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[groupID])
}

// Rooms returns a snapshot of the room IDs the user is subscribed to.
func (r *RoomRegistry) Rooms(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user := r.userRooms[userID]
	rooms := make([]string, 0, len(user))
	for groupID := range user {
		rooms = append(rooms, groupID)
	}
	return rooms
}

// Broadcast delivers a frame to every current member of a room, resolving
// live connections through the connection registry. Members with no live
// connection are silently skipped. The member set is snapshotted before
// fan-out: a user joining mid-dispatch may or may not receive the frame.
// excludeUserID, when non-empty, is skipped entirely.
func (r *RoomRegistry) Broadcast(groupID string, frame []byte, excludeUserID string) int {
	members := r.Members(groupID)

	delivered := 0
	for _, userID := range members {
		if userID == excludeUserID {
			continue
		}
		delivered += r.conns.SendToUser(userID, frame)
	}
	return delivered
}
