package events

import (
	"encoding/json"
	"time"
)

// Event kinds, one per state-machine side effect.
const (
	KindOrderCreated         = "order.created"
	KindPaymentSucceeded     = "payment.succeeded"
	KindPaymentFailed        = "payment.failed"
	KindOrderCancelled       = "order.cancelled"
	KindOrderFulfilled       = "order.fulfilled"
	KindOrderRefunded        = "order.refunded"
	KindSale                 = "order.sale"
	KindPhotographerApproved = "photographer.approved"
	KindPhotographerRejected = "photographer.rejected"
)

// Envelope wraps every dispatched payload. EventID lets downstream
// consumers dedupe: delivery is at-least-once.
type Envelope struct {
	EventID    string          `json:"event_id"`
	Kind       string          `json:"kind"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderEventPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	Total       int64  `json:"total"`
	Status      string `json:"status"`
	RequestID   string `json:"request_id,omitempty"`
}

type PaymentEventPayload struct {
	OrderID           string `json:"order_id"`
	OrderNumber       string `json:"order_number"`
	UserID            string `json:"user_id"`
	Total             int64  `json:"total"`
	PaymentID         string `json:"payment_id,omitempty"`
	ExternalReference string `json:"external_reference,omitempty"`
	Provider          string `json:"provider,omitempty"`
}

// SaleEventPayload is emitted once per distinct photographer with a
// line item in a fulfilled order.
type SaleEventPayload struct {
	OrderID        string `json:"order_id"`
	OrderNumber    string `json:"order_number"`
	PhotographerID string `json:"photographer_id"`
	Amount         int64  `json:"amount"`
	ItemCount      int    `json:"item_count"`
}

type ProfileEventPayload struct {
	UserID     string `json:"user_id"`
	Status     string `json:"status"`
	ReviewedBy string `json:"reviewed_by"`
}
