package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentEvent is published when an order's payment is confirmed or a
// refund is requested; the settlement worker consumes it.
type PaymentEvent struct {
	Type      string          `json:"type"` // "paid" or "refund"
	OrderCode string          `json:"order_code"`
	Amount    decimal.Decimal `json:"amount"`
	PaymentID string          `json:"payment_id"`
}

const (
	PaymentEventPaid   = "paid"
	PaymentEventRefund = "refund"
)

// OrderEvent carries best-effort side effects (notification, email) off the
// transactional order path.
type OrderEvent struct {
	Type      string    `json:"type"` // "created" or "delivered"
	OrderCode string    `json:"order_code"`
	UserID    uuid.UUID `json:"user_id"`
}

const (
	OrderEventCreated   = "created"
	OrderEventDelivered = "delivered"
)
