// Package ws implements the real-time gateway: the connection registry
// (user -> live WebSocket sessions), the room registry (group -> subscribed
// users), and the gateway that authenticates handshakes, routes inbound
// subscribe/unsubscribe events, and exposes the broadcast API.
//
// The two registries are the only shared mutable state in the subsystem and
// are each guarded by their own mutex. Broadcasts deliver to a snapshot of
// the member set taken at broadcast time; delivery is at-most-once with no
// queueing for offline members.
//
// All socket access goes through the Gateway. Application code never touches
// a connection directly.
package ws
