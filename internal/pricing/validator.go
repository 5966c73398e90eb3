// Package pricing re-derives order totals from catalog truth. The
// client's claimed amounts are never trusted; unit prices come from the
// snapshot the caller resolved at validation time.
package pricing

import (
	"fmt"

	"github.com/kjlinux/pourier-back/internal/domain"
)

// Snapshot is the catalog state at validation time, keyed by photo id.
type Snapshot map[string]domain.Photo

// Totals are the client-claimed amounts, in minor-currency units.
type Totals struct {
	Subtotal int64
	Tax      int64
	Discount int64
	Total    int64
}

// Validate checks the claimed totals against the snapshot and returns
// the priced item snapshot to embed in the order. Pure: no I/O, no
// mutation of its inputs.
//
// Failure modes, all *domain.ValidationError:
//   - empty_cart when items is empty
//   - unknown_photo when an id is missing from the snapshot or the
//     photo is not purchasable
//   - price_mismatch when claimed subtotal/total deviate from the
//     recomputed values (zero tolerance, integer units)
func Validate(items []domain.OrderItemInput, claimed Totals, snap Snapshot) ([]domain.OrderItem, error) {
	if len(items) == 0 {
		return nil, domain.NewValidationError(domain.FieldError{
			Field: "items", Code: domain.CodeEmptyCart,
			Message: "order must contain at least one item",
		})
	}

	var fields []domain.FieldError
	priced := make([]domain.OrderItem, 0, len(items))
	var subtotal int64
	for i, item := range items {
		photo, ok := snap[item.PhotoID]
		if !ok || !photo.Purchasable {
			fields = append(fields, domain.FieldError{
				Field: fmt.Sprintf("items[%d].photo_id", i), Code: domain.CodeUnknownPhoto,
				Message: fmt.Sprintf("photo %s is not available for purchase", item.PhotoID),
			})
			continue
		}
		unit := photo.Price(item.LicenseType)
		subtotal += unit
		priced = append(priced, domain.OrderItem{
			PhotoID:        photo.PhotoID,
			PhotographerID: photo.PhotographerID,
			LicenseType:    item.LicenseType,
			UnitPrice:      unit,
		})
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields...)
	}

	if claimed.Tax < 0 || claimed.Discount < 0 {
		return nil, domain.NewValidationError(domain.FieldError{
			Field: "tax", Code: domain.CodeInvalidValue,
			Message: "tax and discount must be non-negative",
		})
	}

	total := subtotal + claimed.Tax - claimed.Discount
	if total < 0 {
		return nil, domain.NewValidationError(domain.FieldError{
			Field: "discount", Code: domain.CodeInvalidValue,
			Message: "discount exceeds subtotal plus tax",
		})
	}
	if claimed.Subtotal != subtotal {
		fields = append(fields, domain.FieldError{
			Field: "subtotal", Code: domain.CodePriceMismatch,
			Message: fmt.Sprintf("expected subtotal %d, got %d", subtotal, claimed.Subtotal),
		})
	}
	if claimed.Total != total {
		fields = append(fields, domain.FieldError{
			Field: "total", Code: domain.CodePriceMismatch,
			Message: fmt.Sprintf("expected total %d, got %d", total, claimed.Total),
		})
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields...)
	}

	return priced, nil
}
