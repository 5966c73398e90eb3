package pricing

import (
	"testing"

	"github.com/kjlinux/pourier-back/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot() Snapshot {
	return Snapshot{
		"photo-1": {PhotoID: "photo-1", PhotographerID: "ph-1", PriceStandard: 1000, PriceExtended: 2500, Purchasable: true},
		"photo-2": {PhotoID: "photo-2", PhotographerID: "ph-2", PriceStandard: 1500, PriceExtended: 3000, Purchasable: true},
		"photo-3": {PhotoID: "photo-3", PhotographerID: "ph-1", PriceStandard: 800, PriceExtended: 1600, Purchasable: false},
	}
}

func TestValidateRecomputesSubtotal(t *testing.T) {
	items := []domain.OrderItemInput{
		{PhotoID: "photo-1", LicenseType: domain.LicenseStandard},
		{PhotoID: "photo-2", LicenseType: domain.LicenseExtended},
	}

	priced, err := Validate(items, Totals{Subtotal: 4000, Tax: 0, Discount: 0, Total: 4000}, snapshot())
	require.NoError(t, err)
	require.Len(t, priced, 2)

	assert.Equal(t, int64(1000), priced[0].UnitPrice)
	assert.Equal(t, "ph-1", priced[0].PhotographerID)
	assert.Equal(t, int64(3000), priced[1].UnitPrice)
	assert.Equal(t, "ph-2", priced[1].PhotographerID)
}

func TestValidateTotalIdentity(t *testing.T) {
	items := []domain.OrderItemInput{
		{PhotoID: "photo-1", LicenseType: domain.LicenseStandard},
		{PhotoID: "photo-2", LicenseType: domain.LicenseExtended},
	}

	// total must equal subtotal + tax - discount
	priced, err := Validate(items, Totals{Subtotal: 4000, Tax: 400, Discount: 100, Total: 4300}, snapshot())
	require.NoError(t, err)
	assert.Len(t, priced, 2)
}

func TestValidateRejectsPriceMismatch(t *testing.T) {
	items := []domain.OrderItemInput{
		{PhotoID: "photo-1", LicenseType: domain.LicenseStandard},
	}

	// Client claims a stale (lower) subtotal. Zero tolerance.
	_, err := Validate(items, Totals{Subtotal: 999, Tax: 0, Discount: 0, Total: 999}, snapshot())
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, ve.HasCode(domain.CodePriceMismatch))
}

func TestValidateRejectsMismatchedTotalOnly(t *testing.T) {
	items := []domain.OrderItemInput{
		{PhotoID: "photo-1", LicenseType: domain.LicenseStandard},
	}

	_, err := Validate(items, Totals{Subtotal: 1000, Tax: 0, Discount: 0, Total: 900}, snapshot())
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, ve.HasCode(domain.CodePriceMismatch))
}

func TestValidateRejectsEmptyCart(t *testing.T) {
	_, err := Validate(nil, Totals{}, snapshot())
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, ve.HasCode(domain.CodeEmptyCart))
}

func TestValidateRejectsUnknownAndUnpurchasablePhotos(t *testing.T) {
	items := []domain.OrderItemInput{
		{PhotoID: "missing", LicenseType: domain.LicenseStandard},
		{PhotoID: "photo-3", LicenseType: domain.LicenseStandard}, // not purchasable
	}

	_, err := Validate(items, Totals{Subtotal: 1800, Total: 1800}, snapshot())
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, ve.HasCode(domain.CodeUnknownPhoto))
	assert.Len(t, ve.Fields, 2)
}

func TestValidateRejectsExcessiveDiscount(t *testing.T) {
	items := []domain.OrderItemInput{
		{PhotoID: "photo-1", LicenseType: domain.LicenseStandard},
	}

	_, err := Validate(items, Totals{Subtotal: 1000, Tax: 0, Discount: 2000, Total: 0}, snapshot())
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, ve.HasCode(domain.CodeInvalidValue))
}
