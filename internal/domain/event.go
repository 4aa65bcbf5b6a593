package domain

import "encoding/json"

// Realtime channel protocol: named events exchanged over a live
// connection, independent of the underlying transport.

// Client -> server.
const (
	EventSubscribeType      = "subscribeToType"
	EventUnsubscribeType    = "unsubscribeFromType"
	EventSubscribeCompany   = "subscribeToCompany"
	EventUnsubscribeCompany = "unsubscribeFromCompany"
	EventGetUnreadCount     = "getUnreadCount"
	EventPing               = "ping"
)

// Server -> client.
const (
	EventConnected           = "connected"
	EventNewNotification     = "newNotification"
	EventNotificationUpdated = "notificationUpdated"
	EventNotificationDeleted = "notificationDeleted"
	EventUnreadCount         = "unreadCount"
	EventSubscribed          = "subscribed"
	EventUnsubscribed        = "unsubscribed"
	EventError               = "error"
	EventPong                = "pong"
)

// Event is the wire envelope for the realtime channel.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundEvent pairs an event name with an arbitrary payload for
// emission; marshalling happens at the transport edge.
type OutboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// DispatchResult aggregates a fan-out across many recipients.
type DispatchResult struct {
	SuccessCount int `json:"success_count"`
	TotalCount   int `json:"total_count"`
}
