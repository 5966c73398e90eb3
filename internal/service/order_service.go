package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kjlinux/pourier-back/internal/authz"
	"github.com/kjlinux/pourier-back/internal/catalog"
	"github.com/kjlinux/pourier-back/internal/domain"
	"github.com/kjlinux/pourier-back/internal/events"
	"github.com/kjlinux/pourier-back/internal/payment"
	"github.com/kjlinux/pourier-back/internal/pricing"
	"go.uber.org/zap"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order *domain.Order, expectedVersion int64) error
}

type OrderService struct {
	orders     OrderStore
	photos     catalog.PhotoStore
	gateway    payment.Gateway
	dispatcher events.Dispatcher
	logger     *zap.Logger
	invoiceURL string
	locks      keyedMutex
	now        func() time.Time
}

func NewOrderService(orders OrderStore, photos catalog.PhotoStore, gateway payment.Gateway, dispatcher events.Dispatcher, invoiceBaseURL string, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:     orders,
		photos:     photos,
		gateway:    gateway,
		dispatcher: dispatcher,
		logger:     logger,
		invoiceURL: invoiceBaseURL,
		now:        time.Now,
	}
}

// pendingEvent is a dispatch deferred until the order lock is released.
// Committing the transition and notifying about it must not share the
// critical section.
type pendingEvent struct {
	kind    string
	key     string
	payload any
}

// CreateOrder validates the cart against catalog truth and persists the
// order in pending state with its price snapshot.
func (s *OrderService) CreateOrder(ctx context.Context, p authz.Principal, req domain.CreateOrderRequest, requestID string) (*domain.Order, error) {
	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	if verr := domain.ValidatePaymentDetails(req.PaymentMethod, req.Provider, req.Billing.Phone); verr != nil {
		return nil, verr
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.PhotoID)
	}
	snap, err := s.photos.GetPhotos(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog snapshot: %w", err)
	}

	items, err := pricing.Validate(req.Items, pricing.Totals{
		Subtotal: req.Subtotal,
		Tax:      req.Tax,
		Discount: req.Discount,
		Total:    req.Total,
	}, snap)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	orderID := uuid.New().String()
	order := &domain.Order{
		OrderID:         orderID,
		OrderNumber:     domain.NewOrderNumber(now, orderID),
		UserID:          p.UserID,
		Items:           items,
		Subtotal:        req.Subtotal,
		Tax:             req.Tax,
		Discount:        req.Discount,
		Total:           req.Total,
		PaymentMethod:   req.PaymentMethod,
		PaymentProvider: req.Provider,
		PaymentStatus:   domain.PaymentStatusPending,
		Billing:         req.Billing,
		Status:          domain.OrderStatusPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.logger.Error("Failed to save order",
			zap.String("order_id", order.OrderID),
			zap.Error(err))
		return nil, err
	}

	s.emit(ctx, events.KindOrderCreated, order.OrderID, events.OrderEventPayload{
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.Total,
		Status:      string(order.Status),
		RequestID:   requestID,
	})

	s.logger.Info("Order created",
		zap.String("order_id", order.OrderID),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.Int64("total", order.Total))

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, p authz.Principal, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authz.Allow(p, authz.Resource{OwnerID: order.UserID}, authz.ActionViewOrder); err != nil {
		return nil, err
	}
	return order, nil
}

// Pay runs one authorization attempt. The gateway call and the event
// dispatches happen outside the order lock; only the reads and the
// committing write hold it.
func (s *OrderService) Pay(ctx context.Context, p authz.Principal, orderID string, req domain.PayOrderRequest) (*domain.Order, error) {
	if verr := domain.ValidatePaymentDetails(req.PaymentMethod, req.Provider, req.Phone); verr != nil {
		return nil, verr
	}

	order, err := s.beginPayment(ctx, p, orderID, req)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Authorize(ctx, payment.AuthorizationRequest{
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		Amount:      order.Total,
		Currency:    "XOF",
		Method:      req.PaymentMethod,
		Provider:    req.Provider,
		Phone:       req.Phone,
	})
	if err != nil {
		// Transport failure: the order stays pending and retryable.
		return nil, err
	}

	order, evts, err := s.settle(ctx, orderID, result)
	s.emitAll(ctx, evts)
	return order, err
}

// beginPayment validates ownership and state under the lock, and moves
// a failed order back to pending for the retry. The write is skipped
// when the attempt changes nothing on the order.
func (s *OrderService) beginPayment(ctx context.Context, p authz.Principal, orderID string, req domain.PayOrderRequest) (*domain.Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authz.Allow(p, authz.Resource{OwnerID: order.UserID}, authz.ActionPayOrder); err != nil {
		return nil, err
	}
	if !order.Payable() {
		return nil, domain.ErrInvalidState
	}

	version := order.Version
	dirty := false
	if order.Status == domain.OrderStatusFailed {
		if err := order.RetryPayment(s.now().UTC()); err != nil {
			return nil, err
		}
		dirty = true
	}
	if order.PaymentMethod != req.PaymentMethod {
		order.PaymentMethod = req.PaymentMethod
		dirty = true
	}
	if req.Provider != "" && order.PaymentProvider != req.Provider {
		order.PaymentProvider = req.Provider
		dirty = true
	}
	if req.Phone != "" && order.Billing.Phone != req.Phone {
		order.Billing.Phone = req.Phone
		dirty = true
	}
	if !dirty {
		return order, nil
	}
	if err := s.orders.UpdateOrder(ctx, order, version); err != nil {
		return nil, err
	}
	return order, nil
}

// settle commits the authorization outcome under the lock and returns
// the dispatches to run once it is released. Re-reads the order: a
// provider callback may have landed while the gateway call was in
// flight.
func (s *OrderService) settle(ctx context.Context, orderID string, result *payment.AuthorizationResult) (*domain.Order, []pendingEvent, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	switch result.Status {
	case payment.StatusSucceeded:
		evts, err := s.applyPaid(ctx, order, result.ExternalReference)
		if err != nil {
			return nil, nil, err
		}
		return order, evts, nil

	case payment.StatusDeclined:
		evts, err := s.applyFailed(ctx, order)
		if err != nil {
			return nil, nil, err
		}
		return order, evts, domain.ErrPaymentDeclined

	case payment.StatusPendingConfirmation:
		// Keep the provider reference so the callback can be matched.
		if result.ExternalReference != "" && order.PaymentID == "" {
			version := order.Version
			order.PaymentID = result.ExternalReference
			if err := s.orders.UpdateOrder(ctx, order, version); err != nil {
				return nil, nil, err
			}
		}
		s.logger.Info("Payment awaiting provider confirmation",
			zap.String("order_id", order.OrderID),
			zap.String("external_reference", result.ExternalReference))
		return order, nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: unexpected authorization status %q", domain.ErrGatewayUnavailable, result.Status)
	}
}

// HandleCallback processes a provider webhook. Duplicate "succeeded"
// callbacks for an already-paid order are no-ops.
func (s *OrderService) HandleCallback(ctx context.Context, req domain.PaymentCallbackRequest) (*domain.Order, error) {
	order, evts, err := s.handleCallbackLocked(ctx, req)
	s.emitAll(ctx, evts)
	return order, err
}

func (s *OrderService) handleCallbackLocked(ctx context.Context, req domain.PaymentCallbackRequest) (*domain.Order, []pendingEvent, error) {
	unlock := s.locks.Lock(req.OrderID)
	defer unlock()

	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, nil, err
	}

	switch req.Status {
	case "succeeded":
		if order.Status == domain.OrderStatusPaid {
			return order, nil, nil
		}
		evts, err := s.applyPaid(ctx, order, req.ExternalReference)
		if err != nil {
			return nil, nil, err
		}
		return order, evts, nil
	case "declined":
		if order.Status == domain.OrderStatusFailed {
			return order, nil, nil
		}
		evts, err := s.applyFailed(ctx, order)
		if err != nil {
			return nil, nil, err
		}
		return order, evts, nil
	default:
		return nil, nil, domain.NewValidationError(domain.FieldError{
			Field: "status", Code: domain.CodeInvalidValue,
			Message: "status must be succeeded or declined",
		})
	}
}

// applyPaid commits the paid transition. Caller holds the order lock;
// the returned events are dispatched after it is released.
func (s *OrderService) applyPaid(ctx context.Context, order *domain.Order, externalRef string) ([]pendingEvent, error) {
	if order.Status == domain.OrderStatusPaid {
		return nil, nil
	}
	version := order.Version
	now := s.now().UTC()
	paymentID := externalRef
	if paymentID == "" {
		paymentID = uuid.New().String()
	}
	invoiceURL := fmt.Sprintf("%s/invoices/%s.pdf", s.invoiceURL, order.OrderNumber)
	if err := order.MarkPaid(paymentID, now, invoiceURL); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateOrder(ctx, order, version); err != nil {
		return nil, err
	}

	s.logger.Info("Payment succeeded",
		zap.String("order_id", order.OrderID),
		zap.String("payment_id", order.PaymentID))

	return []pendingEvent{{
		kind: events.KindPaymentSucceeded,
		key:  order.OrderID,
		payload: events.PaymentEventPayload{
			OrderID:           order.OrderID,
			OrderNumber:       order.OrderNumber,
			UserID:            order.UserID,
			Total:             order.Total,
			PaymentID:         order.PaymentID,
			ExternalReference: externalRef,
			Provider:          string(order.PaymentProvider),
		},
	}}, nil
}

func (s *OrderService) applyFailed(ctx context.Context, order *domain.Order) ([]pendingEvent, error) {
	version := order.Version
	if err := order.MarkFailed(s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateOrder(ctx, order, version); err != nil {
		return nil, err
	}

	s.logger.Info("Payment declined",
		zap.String("order_id", order.OrderID))

	return []pendingEvent{{
		kind: events.KindPaymentFailed,
		key:  order.OrderID,
		payload: events.PaymentEventPayload{
			OrderID:     order.OrderID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Total:       order.Total,
			Provider:    string(order.PaymentProvider),
		},
	}}, nil
}

// Cancel is buyer-initiated and only legal while pending.
func (s *OrderService) Cancel(ctx context.Context, p authz.Principal, orderID string) (*domain.Order, error) {
	order, evts, err := s.cancelLocked(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	s.emitAll(ctx, evts)
	return order, nil
}

func (s *OrderService) cancelLocked(ctx context.Context, p authz.Principal, orderID string) (*domain.Order, []pendingEvent, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.Allow(p, authz.Resource{OwnerID: order.UserID}, authz.ActionCancelOrder); err != nil {
		return nil, nil, err
	}
	version := order.Version
	if err := order.Cancel(s.now().UTC()); err != nil {
		return nil, nil, err
	}
	if err := s.orders.UpdateOrder(ctx, order, version); err != nil {
		return nil, nil, err
	}

	return order, []pendingEvent{{
		kind: events.KindOrderCancelled,
		key:  order.OrderID,
		payload: events.OrderEventPayload{
			OrderID:     order.OrderID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Total:       order.Total,
			Status:      string(order.Status),
		},
	}}, nil
}

// Fulfill issues the download grants and fans a sale event out to each
// photographer represented in the items.
func (s *OrderService) Fulfill(ctx context.Context, p authz.Principal, orderID string) (*domain.Order, error) {
	order, evts, err := s.fulfillLocked(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	s.emitAll(ctx, evts)
	return order, nil
}

func (s *OrderService) fulfillLocked(ctx context.Context, p authz.Principal, orderID string) (*domain.Order, []pendingEvent, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.Allow(p, authz.Resource{OwnerID: order.UserID}, authz.ActionFulfillOrder); err != nil {
		return nil, nil, err
	}
	version := order.Version
	if err := order.Fulfill(s.now().UTC()); err != nil {
		return nil, nil, err
	}
	if err := s.orders.UpdateOrder(ctx, order, version); err != nil {
		return nil, nil, err
	}

	evts := []pendingEvent{{
		kind: events.KindOrderFulfilled,
		key:  order.OrderID,
		payload: events.OrderEventPayload{
			OrderID:     order.OrderID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Total:       order.Total,
			Status:      string(order.Status),
		},
	}}
	photographers := order.Photographers()
	for _, photographerID := range photographers {
		var amount int64
		var count int
		for _, item := range order.Items {
			if item.PhotographerID == photographerID {
				amount += item.UnitPrice
				count++
			}
		}
		evts = append(evts, pendingEvent{
			kind: events.KindSale,
			key:  order.OrderID,
			payload: events.SaleEventPayload{
				OrderID:        order.OrderID,
				OrderNumber:    order.OrderNumber,
				PhotographerID: photographerID,
				Amount:         amount,
				ItemCount:      count,
			},
		})
	}

	s.logger.Info("Order fulfilled",
		zap.String("order_id", order.OrderID),
		zap.Int("photographers", len(photographers)))
	return order, evts, nil
}

// Refund revokes download rights. Legal from paid or fulfilled.
func (s *OrderService) Refund(ctx context.Context, p authz.Principal, orderID string) (*domain.Order, error) {
	order, evts, err := s.refundLocked(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	s.emitAll(ctx, evts)
	return order, nil
}

func (s *OrderService) refundLocked(ctx context.Context, p authz.Principal, orderID string) (*domain.Order, []pendingEvent, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.Allow(p, authz.Resource{OwnerID: order.UserID}, authz.ActionRefundOrder); err != nil {
		return nil, nil, err
	}
	version := order.Version
	if err := order.Refund(s.now().UTC()); err != nil {
		return nil, nil, err
	}
	if err := s.orders.UpdateOrder(ctx, order, version); err != nil {
		return nil, nil, err
	}

	return order, []pendingEvent{{
		kind: events.KindOrderRefunded,
		key:  order.OrderID,
		payload: events.OrderEventPayload{
			OrderID:     order.OrderID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Total:       order.Total,
			Status:      string(order.Status),
		},
	}}, nil
}

func (s *OrderService) emitAll(ctx context.Context, evts []pendingEvent) {
	for _, e := range evts {
		s.emit(ctx, e.kind, e.key, e.payload)
	}
}

// emit dispatches best-effort: failures are logged inside the
// dispatcher and never surfaced to the triggering request.
func (s *OrderService) emit(ctx context.Context, kind, key string, payload any) {
	if err := s.dispatcher.Dispatch(ctx, kind, key, payload); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Event dispatch failed",
			zap.String("kind", kind),
			zap.String("key", key),
			zap.Error(err))
	}
}
