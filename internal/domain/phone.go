package domain

import (
	"regexp"
	"strings"
)

// Burkina Faso mobile numbers: +226 followed by exactly eight digits.
// Spaces are accepted anywhere after the country code.
var phonePattern = regexp.MustCompile(`^\+226\d{8}$`)

// ValidPhone reports whether s is a well-formed regional mobile number.
// "+22670123456" and "+226 70 12 34 56" both pass; "+1 555 1234" does not.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(strings.ReplaceAll(s, " ", ""))
}

// ValidProvider reports whether p names a supported mobile money operator.
// An empty provider is valid: selection may be deferred to payment time.
func ValidProvider(p PaymentProvider) bool {
	switch p {
	case "", ProviderOrange, ProviderMTN, ProviderMoov, ProviderWave:
		return true
	}
	return false
}

// ValidatePaymentDetails runs the fail-fast checks ahead of any gateway
// round-trip: provider must belong to the enumerated set when the method
// is mobile money, and the phone, when present, must match the regional
// pattern.
func ValidatePaymentDetails(method PaymentMethod, provider PaymentProvider, phone string) *ValidationError {
	var fields []FieldError
	if method != PaymentMethodMobileMoney && method != PaymentMethodCard {
		fields = append(fields, FieldError{
			Field: "payment_method", Code: CodeInvalidValue,
			Message: "payment_method must be mobile_money or card",
		})
	}
	if method == PaymentMethodMobileMoney && !ValidProvider(provider) {
		fields = append(fields, FieldError{
			Field: "payment_provider", Code: CodeInvalidValue,
			Message: "provider must be one of ORANGE, MTN, MOOV, WAVE",
		})
	}
	if phone != "" && !ValidPhone(phone) {
		fields = append(fields, FieldError{
			Field: "phone", Code: CodeInvalidFormat,
			Message: "phone must match the +226 mobile number format",
		})
	}
	if len(fields) > 0 {
		return NewValidationError(fields...)
	}
	return nil
}
