package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
	PaymentMethodCard        PaymentMethod = "card"
)

type PaymentProvider string

const (
	ProviderOrange PaymentProvider = "ORANGE"
	ProviderMTN    PaymentProvider = "MTN"
	ProviderMoov   PaymentProvider = "MOOV"
	ProviderWave   PaymentProvider = "WAVE"
)

type LicenseType string

const (
	LicenseStandard LicenseType = "standard"
	LicenseExtended LicenseType = "extended"
)

// OrderItem captures the price at purchase time. It is never recomputed
// from the catalog after the order is created.
type OrderItem struct {
	PhotoID        string      `json:"photo_id" dynamodbav:"photo_id"`
	PhotographerID string      `json:"photographer_id" dynamodbav:"photographer_id"`
	LicenseType    LicenseType `json:"license_type" dynamodbav:"license_type"`
	UnitPrice      int64       `json:"unit_price" dynamodbav:"unit_price"`
}

type BillingContact struct {
	Email     string `json:"email" dynamodbav:"email"`
	FirstName string `json:"first_name" dynamodbav:"first_name"`
	LastName  string `json:"last_name" dynamodbav:"last_name"`
	Phone     string `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
}

// Order is the aggregate root. All monetary fields are integer
// minor-currency units. Version backs the repository's optimistic
// concurrency check; a transition only commits if the stored version
// still matches the one the transition was computed from.
type Order struct {
	OrderID         string          `json:"order_id" dynamodbav:"order_id"`
	OrderNumber     string          `json:"order_number" dynamodbav:"order_number"`
	UserID          string          `json:"user_id" dynamodbav:"user_id"`
	Items           []OrderItem     `json:"items" dynamodbav:"items"`
	Subtotal        int64           `json:"subtotal" dynamodbav:"subtotal"`
	Tax             int64           `json:"tax" dynamodbav:"tax"`
	Discount        int64           `json:"discount" dynamodbav:"discount"`
	Total           int64           `json:"total" dynamodbav:"total"`
	PaymentMethod   PaymentMethod   `json:"payment_method" dynamodbav:"payment_method"`
	PaymentProvider PaymentProvider `json:"payment_provider,omitempty" dynamodbav:"payment_provider,omitempty"`
	PaymentStatus   PaymentStatus   `json:"payment_status" dynamodbav:"payment_status"`
	PaymentID       string          `json:"payment_id,omitempty" dynamodbav:"payment_id,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty" dynamodbav:"paid_at,omitempty"`
	Billing         BillingContact  `json:"billing" dynamodbav:"billing"`
	InvoiceURL      string          `json:"invoice_url,omitempty" dynamodbav:"invoice_url,omitempty"`
	Status          OrderStatus     `json:"status" dynamodbav:"status"`
	Version         int64           `json:"version" dynamodbav:"version"`
	CreatedAt       time.Time       `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" dynamodbav:"updated_at"`
}

// NewOrderNumber builds the human-readable reference printed on invoices,
// e.g. PM-20250901-4F3A9B2C17D2. The suffix is derived from the order's
// uuid, so two orders can never share a number.
func NewOrderNumber(now time.Time, orderID string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(orderID, "-", ""))
	if len(suffix) > 12 {
		suffix = suffix[:12]
	}
	return fmt.Sprintf("PM-%s-%s", now.Format("20060102"), suffix)
}

// Photographers returns the distinct photographer ids represented in the
// order items, in first-seen order. Sale notifications fan out per entry.
func (o *Order) Photographers() []string {
	seen := make(map[string]bool, len(o.Items))
	out := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if item.PhotographerID == "" || seen[item.PhotographerID] {
			continue
		}
		seen[item.PhotographerID] = true
		out = append(out, item.PhotographerID)
	}
	return out
}

type ProfileStatus string

const (
	ProfileStatusPending  ProfileStatus = "pending"
	ProfileStatusApproved ProfileStatus = "approved"
	ProfileStatusRejected ProfileStatus = "rejected"
)

// PhotographerProfile gates whether a photographer account may list
// photos for sale. Only approved profiles may create catalog listings.
type PhotographerProfile struct {
	UserID      string        `json:"user_id" dynamodbav:"user_id"`
	DisplayName string        `json:"display_name" dynamodbav:"display_name"`
	Status      ProfileStatus `json:"status" dynamodbav:"status"`
	ReviewedBy  string        `json:"reviewed_by,omitempty" dynamodbav:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time    `json:"reviewed_at,omitempty" dynamodbav:"reviewed_at,omitempty"`
	Version     int64         `json:"version" dynamodbav:"version"`
	CreatedAt   time.Time     `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" dynamodbav:"updated_at"`
}

// Photo is the catalog view consumed by pricing. The catalog owns it;
// orders only read it at validation time.
type Photo struct {
	PhotoID        string `json:"photo_id" dynamodbav:"photo_id"`
	PhotographerID string `json:"photographer_id" dynamodbav:"photographer_id"`
	PriceStandard  int64  `json:"price_standard" dynamodbav:"price_standard"`
	PriceExtended  int64  `json:"price_extended" dynamodbav:"price_extended"`
	Purchasable    bool   `json:"purchasable" dynamodbav:"purchasable"`
}

// Price returns the unit price for the requested license tier.
func (p Photo) Price(license LicenseType) int64 {
	if license == LicenseExtended {
		return p.PriceExtended
	}
	return p.PriceStandard
}

type OrderItemInput struct {
	PhotoID     string      `json:"photo_id" binding:"required"`
	LicenseType LicenseType `json:"license_type" binding:"required,oneof=standard extended"`
}

type CreateOrderRequest struct {
	Items         []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	Subtotal      int64            `json:"subtotal" binding:"min=0"`
	Tax           int64            `json:"tax" binding:"min=0"`
	Discount      int64            `json:"discount" binding:"min=0"`
	Total         int64            `json:"total" binding:"min=0"`
	PaymentMethod PaymentMethod    `json:"payment_method" binding:"required,oneof=mobile_money card"`
	Provider      PaymentProvider  `json:"payment_provider"`
	Billing       BillingContact   `json:"billing" binding:"required"`
}

type PayOrderRequest struct {
	PaymentMethod PaymentMethod   `json:"payment_method" binding:"required,oneof=mobile_money card"`
	Provider      PaymentProvider `json:"payment_provider"`
	Phone         string          `json:"phone"`
}

// PaymentCallbackRequest is the provider webhook body. Callbacks may
// arrive late or more than once; processing must be idempotent.
type PaymentCallbackRequest struct {
	OrderID           string `json:"order_id" binding:"required"`
	Status            string `json:"status" binding:"required,oneof=succeeded declined"`
	ExternalReference string `json:"external_reference"`
}
