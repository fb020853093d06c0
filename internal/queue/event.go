// Package queue defines message payloads exchanged over the broker and
// the publishers/consumers that move them. Two kinds of traffic flow
// through RabbitMQ: notification events for the external sink, and
// delayed ride-completion jobs.
package queue

// Queue names. The wait queue has no consumer; messages sit there until
// their per-message TTL expires and dead-letter routing moves them to the
// due queue, which the lifecycle consumer drains.
const (
	NotificationQueue  = "notification.events"
	LifecycleWaitQueue = "ride.lifecycle.wait"
	LifecycleDueQueue  = "ride.lifecycle.due"
)

// NotificationEvent is published for every booking/ride transition that
// must reach a user. Downstream delivery mechanics (push, email) are not
// this system's concern.
type NotificationEvent struct {
	ID          string         `json:"id"`
	RecipientID uint64         `json:"recipient_id"`
	EventType   string         `json:"event_type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// LifecycleJob is a delayed completion job. ExecuteAt is informational;
// the consumer always re-validates the ride's state and departure time
// before acting, so a stale or duplicated job is harmless.
type LifecycleJob struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	RideID    uint64 `json:"ride_id"`
	ExecuteAt string `json:"execute_at"`
}
