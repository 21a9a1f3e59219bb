package queue

import (
	"context"
	"time"
)

// Lifecycle events for downstream consumers (notification senders, kitchen
// displays). Routing keys are dotted so consumers can bind with topic
// wildcards like 'order.#'.
const (
	ExchangeEvents = "dinetrack.events"

	RouteOrderCreated       = "order.created"
	RouteOrderLineAdded     = "order.line.added"
	RouteOrderStatusUpdated = "order.status.updated"
	RouteOrderBilled        = "order.billed"
	RouteTableStatusUpdated = "table.status.updated"
	RouteReservationCreated = "reservation.created"
)

type Event struct {
	Type       string    `json:"type"`
	BranchID   string    `json:"branchId"`
	EntityID   string    `json:"entityId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// PublishEvent is best-effort lifecycle fan-out; a nil client is a no-op so
// callers do not have to care whether the broker is configured.
func PublishEvent(ctx context.Context, c *Client, routingKey string, branchID string, entityID string, data any) error {
	if c == nil {
		return nil
	}
	return c.PublishJSON(ctx, ExchangeEvents, routingKey, Event{
		Type:       routingKey,
		BranchID:   branchID,
		EntityID:   entityID,
		OccurredAt: time.Now(),
		Data:       data,
	})
}
