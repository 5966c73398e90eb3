// Package payment defines the authorization boundary to the external
// processor. The order workflow only acts on the returned status; it
// never assumes success from having initiated a call.
package payment

import (
	"context"

	"github.com/kjlinux/pourier-back/internal/domain"
)

type AuthorizationStatus string

const (
	StatusSucceeded           AuthorizationStatus = "succeeded"
	StatusDeclined            AuthorizationStatus = "declined"
	StatusPendingConfirmation AuthorizationStatus = "pending_confirmation"
)

type AuthorizationRequest struct {
	OrderID     string                 `json:"order_id"`
	OrderNumber string                 `json:"order_number"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency"`
	Method      domain.PaymentMethod   `json:"method"`
	Provider    domain.PaymentProvider `json:"provider,omitempty"`
	Phone       string                 `json:"phone,omitempty"`
}

type AuthorizationResult struct {
	Status            AuthorizationStatus `json:"status"`
	ExternalReference string              `json:"external_reference"`
}

// Gateway is the adapter contract. Implementations map transport
// failures and timeouts to domain.ErrGatewayUnavailable; a business
// decline is a normal result with StatusDeclined, not an error.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResult, error)
}
