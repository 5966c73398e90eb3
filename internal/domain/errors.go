package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrOrderNotFound   = errors.New("order not found")
	ErrPhotoNotFound   = errors.New("photo not found")
	ErrProfileNotFound = errors.New("photographer profile not found")

	// ErrInvalidState marks a transition that is not legal from the
	// order's current status. The order is never mutated on this path.
	ErrInvalidState = errors.New("invalid state for transition")

	// ErrVersionConflict is the optimistic-concurrency failure: another
	// transition committed between read and write. Callers may retry.
	ErrVersionConflict = errors.New("order version conflict")

	// ErrPaymentDeclined is a business decline from the gateway. The
	// order moves to failed and stays retryable.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrGatewayUnavailable covers timeouts and transport failures
	// talking to the payment gateway. The order is left untouched.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Validation error codes. PriceMismatch, EmptyCart and UnknownPhoto are
// the pricing validator's sub-kinds.
const (
	CodeRequired      = "required"
	CodeInvalidFormat = "invalid_format"
	CodeInvalidValue  = "invalid_value"
	CodePriceMismatch = "price_mismatch"
	CodeEmptyCart     = "empty_cart"
	CodeUnknownPhoto  = "unknown_photo"
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries field-scoped failures, decoupled from any
// transport type. Handlers render it as a 422 body.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Code))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// HasCode reports whether any field failed with the given code.
func (e *ValidationError) HasCode(code string) bool {
	for _, f := range e.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
