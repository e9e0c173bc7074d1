package messages

import (
	"time"

	"github.com/BearBump/courierlive/internal/models"
)

const (
	OrderEventCreated  = "order.created"
	OrderEventStatus   = "order.status"
	OrderEventAssigned = "order.assigned"
)

// OrderEvent is published to the order events topic, keyed by orderId.
type OrderEvent struct {
	Type    string    `json:"type"`
	OrderID string    `json:"order_id"`
	Status  string    `json:"status,omitempty"`
	AgentID string    `json:"agent_id,omitempty"`
	At      time.Time `json:"at"`

	Order *models.Order `json:"order,omitempty"`
}
