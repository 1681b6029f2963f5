package ws

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies a socket protocol event.
type EventType string

// Client -> server events.
const (
	EventJoinGroup  EventType = "join_group"
	EventLeaveGroup EventType = "leave_group"
)

// Server -> client events.
const (
	EventJoinedGroup     EventType = "joined_group"
	EventUserOnline      EventType = "user_online"
	EventUserOffline     EventType = "user_offline"
	EventUserJoinedGroup EventType = "user_joined_group"
	EventUserLeftGroup   EventType = "user_left_group"
	EventTaskCreated     EventType = "task_created"
	EventTaskUpdated     EventType = "task_updated"
	EventTaskCompleted   EventType = "task_completed"
	EventError           EventType = "error"
)

// Envelope is the wire format for every frame in both directions.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is the decoded form of an inbound client event.
type ClientMessage struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"roomId,omitempty"`
}

// JoinedGroupPayload acknowledges a successful join_group.
type JoinedGroupPayload struct {
	GroupID     string `json:"groupId"`
	MemberCount int    `json:"memberCount"`
}

// PresencePayload announces a user-level presence change.
type PresencePayload struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomPresencePayload announces a room membership change.
type RoomPresencePayload struct {
	UserID    string    `json:"userId"`
	GroupID   string    `json:"groupId"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload carries a protocol-level error back to one client.
type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeFrame marshals an event and its payload into a wire frame.
func EncodeFrame(event EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	frame, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", event, err)
	}

	return frame, nil
}
