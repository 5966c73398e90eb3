package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kjlinux/pourier-back/internal/authz"
	"github.com/kjlinux/pourier-back/internal/catalog"
	"github.com/kjlinux/pourier-back/internal/domain"
	"github.com/kjlinux/pourier-back/internal/events"
	"github.com/kjlinux/pourier-back/internal/payment"
	"github.com/kjlinux/pourier-back/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	mu      sync.Mutex
	results []*payment.AuthorizationResult
	errs    []error
	calls   []payment.AuthorizationRequest
}

func (g *fakeGateway) Authorize(ctx context.Context, req payment.AuthorizationRequest) (*payment.AuthorizationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	i := len(g.calls) - 1
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	return g.results[i], nil
}

type dispatched struct {
	Kind string
	Key  string
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []dispatched
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, kind, key string, payload any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, dispatched{Kind: kind, Key: key})
	return nil
}

func (d *recordingDispatcher) kinds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	for i, e := range d.events {
		out[i] = e.Kind
	}
	return out
}

func (d *recordingDispatcher) count(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, e := range d.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	svc        *OrderService
	store      *repository.MemoryOrderStore
	gateway    *fakeGateway
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T, gw *fakeGateway) *fixture {
	t.Helper()
	store := repository.NewMemoryOrderStore()
	photos := catalog.NewMemoryPhotoStore(
		domain.Photo{PhotoID: "photo-1", PhotographerID: "ph-1", PriceStandard: 1000, PriceExtended: 2500, Purchasable: true},
		domain.Photo{PhotoID: "photo-2", PhotographerID: "ph-2", PriceStandard: 1500, PriceExtended: 3000, Purchasable: true},
	)
	dispatcher := &recordingDispatcher{}
	svc := NewOrderService(store, photos, gw, dispatcher, "https://invoices.test", zap.NewNop())
	return &fixture{svc: svc, store: store, gateway: gw, dispatcher: dispatcher}
}

var buyer = authz.Principal{UserID: "user-1", AccountType: authz.AccountCustomer}
var admin = authz.Principal{UserID: "admin-1", AccountType: authz.AccountAdmin}

func createOrderReq() domain.CreateOrderRequest {
	return domain.CreateOrderRequest{
		Items: []domain.OrderItemInput{
			{PhotoID: "photo-1", LicenseType: domain.LicenseStandard},
			{PhotoID: "photo-2", LicenseType: domain.LicenseExtended},
		},
		Subtotal:      4000,
		Tax:           0,
		Discount:      0,
		Total:         4000,
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderOrange,
		Billing: domain.BillingContact{
			Email:     "buyer@example.com",
			FirstName: "Awa",
			LastName:  "Ouedraogo",
			Phone:     "+226 70 12 34 56",
		},
	}
}

func TestCreateOrderPendingWithSnapshot(t *testing.T) {
	f := newFixture(t, &fakeGateway{})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, int64(4000), order.Subtotal)
	assert.Equal(t, int64(4000), order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(1000), order.Items[0].UnitPrice)
	assert.Equal(t, int64(3000), order.Items[1].UnitPrice)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, []string{events.KindOrderCreated}, f.dispatcher.kinds())
}

func TestCreateOrderRejectsStalePrices(t *testing.T) {
	f := newFixture(t, &fakeGateway{})

	req := createOrderReq()
	req.Subtotal = 3500
	req.Total = 3500

	_, err := f.svc.CreateOrder(context.Background(), buyer, req, "req-1")
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.True(t, ve.HasCode(domain.CodePriceMismatch))
}

func TestPaySucceeded(t *testing.T) {
	f := newFixture(t, &fakeGateway{
		results: []*payment.AuthorizationResult{
			{Status: payment.StatusSucceeded, ExternalReference: "MM-123"},
		},
	})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	paid, err := f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderOrange,
		Phone:         "+22670123456",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, paid.Status)
	assert.Equal(t, "MM-123", paid.PaymentID)
	require.NotNil(t, paid.PaidAt)
	assert.Contains(t, paid.InvoiceURL, paid.OrderNumber)
	assert.Equal(t, 1, f.dispatcher.count(events.KindPaymentSucceeded))

	require.Len(t, f.gateway.calls, 1)
	assert.Equal(t, int64(4000), f.gateway.calls[0].Amount)
	assert.Equal(t, domain.ProviderOrange, f.gateway.calls[0].Provider)
}

func TestPayDeclinedThenRetrySucceeds(t *testing.T) {
	f := newFixture(t, &fakeGateway{
		results: []*payment.AuthorizationResult{
			{Status: payment.StatusDeclined},
			{Status: payment.StatusSucceeded, ExternalReference: "MM-456"},
		},
	})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	failed, err := f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderMTN,
	})
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)
	require.NotNil(t, failed)
	assert.Equal(t, domain.OrderStatusFailed, failed.Status)
	assert.Equal(t, 1, f.dispatcher.count(events.KindPaymentFailed))

	// failed → pending → paid on the corrected attempt
	paid, err := f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderOrange,
		Phone:         "+22670123456",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, paid.Status)
	assert.Equal(t, "MM-456", paid.PaymentID)
}

func TestPayForbiddenForNonOwner(t *testing.T) {
	f := newFixture(t, &fakeGateway{})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	stranger := authz.Principal{UserID: "user-2", AccountType: authz.AccountCustomer}
	_, err = f.svc.Pay(context.Background(), stranger, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodCard,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, f.gateway.calls, "no gateway round-trip on authorization failure")

	stored, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestPayInvalidStateAfterFulfillment(t *testing.T) {
	f := newFixture(t, &fakeGateway{
		results: []*payment.AuthorizationResult{
			{Status: payment.StatusSucceeded, ExternalReference: "MM-1"},
		},
	})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)
	_, err = f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderOrange,
	})
	require.NoError(t, err)
	_, err = f.svc.Fulfill(context.Background(), admin, order.OrderID)
	require.NoError(t, err)

	_, err = f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodCard,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Len(t, f.gateway.calls, 1, "fulfilled order never reaches the gateway")

	stored, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFulfilled, stored.Status)
}

func TestPayFailFastOnInvalidDetails(t *testing.T) {
	f := newFixture(t, &fakeGateway{})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	_, err = f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      "VODAFONE",
	})
	require.Error(t, err)
	_, ok := domain.AsValidationError(err)
	assert.True(t, ok)
	assert.Empty(t, f.gateway.calls, "validation failures never reach the gateway")
}

func TestPayGatewayUnavailableLeavesOrderPending(t *testing.T) {
	f := newFixture(t, &fakeGateway{
		results: []*payment.AuthorizationResult{nil},
		errs:    []error{domain.ErrGatewayUnavailable},
	})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	_, err = f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderWave,
	})
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	stored, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, stored.Status, "order stays retryable")
}

func TestPayPendingConfirmationAwaitsCallback(t *testing.T) {
	f := newFixture(t, &fakeGateway{
		results: []*payment.AuthorizationResult{
			{Status: payment.StatusPendingConfirmation, ExternalReference: "MM-789"},
		},
	})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	pending, err := f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderOrange,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, pending.Status)

	confirmed, err := f.svc.HandleCallback(context.Background(), domain.PaymentCallbackRequest{
		OrderID:           order.OrderID,
		Status:            "succeeded",
		ExternalReference: "MM-789",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, confirmed.Status)
	assert.Equal(t, "MM-789", confirmed.PaymentID)
}

func TestCallbackIsIdempotent(t *testing.T) {
	f := newFixture(t, &fakeGateway{})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	first, err := f.svc.HandleCallback(context.Background(), domain.PaymentCallbackRequest{
		OrderID:           order.OrderID,
		Status:            "succeeded",
		ExternalReference: "MM-1",
	})
	require.NoError(t, err)
	require.NotNil(t, first.PaidAt)
	paidAt := *first.PaidAt

	second, err := f.svc.HandleCallback(context.Background(), domain.PaymentCallbackRequest{
		OrderID:           order.OrderID,
		Status:            "succeeded",
		ExternalReference: "MM-2",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, second.Status)
	assert.Equal(t, "MM-1", second.PaymentID, "duplicate callback must not overwrite payment id")
	assert.Equal(t, paidAt, *second.PaidAt)
	assert.Equal(t, 1, f.dispatcher.count(events.KindPaymentSucceeded), "success event emitted once")
}

func TestFulfillEmitsSalePerPhotographer(t *testing.T) {
	f := newFixture(t, &fakeGateway{
		results: []*payment.AuthorizationResult{
			{Status: payment.StatusSucceeded, ExternalReference: "MM-1"},
		},
	})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)
	_, err = f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderOrange,
	})
	require.NoError(t, err)

	fulfilled, err := f.svc.Fulfill(context.Background(), admin, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFulfilled, fulfilled.Status)

	// photo-1 belongs to ph-1, photo-2 to ph-2: one sale event each
	assert.Equal(t, 2, f.dispatcher.count(events.KindSale))
	assert.Equal(t, 1, f.dispatcher.count(events.KindOrderFulfilled))
}

func TestCancelOnlyWhilePendingAndByOwner(t *testing.T) {
	f := newFixture(t, &fakeGateway{})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	stranger := authz.Principal{UserID: "user-9", AccountType: authz.AccountCustomer}
	_, err = f.svc.Cancel(context.Background(), stranger, order.OrderID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := f.svc.Cancel(context.Background(), buyer, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(context.Background(), buyer, order.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRefundRevokesAfterFulfillment(t *testing.T) {
	f := newFixture(t, &fakeGateway{
		results: []*payment.AuthorizationResult{
			{Status: payment.StatusSucceeded, ExternalReference: "MM-1"},
		},
	})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)
	_, err = f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderOrange,
	})
	require.NoError(t, err)
	_, err = f.svc.Fulfill(context.Background(), admin, order.OrderID)
	require.NoError(t, err)

	refunded, err := f.svc.Refund(context.Background(), admin, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRefunded, refunded.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, 1, f.dispatcher.count(events.KindOrderRefunded))
}

func TestGetOrderOwnership(t *testing.T) {
	f := newFixture(t, &fakeGateway{})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	_, err = f.svc.GetOrder(context.Background(), buyer, order.OrderID)
	assert.NoError(t, err)

	_, err = f.svc.GetOrder(context.Background(), admin, order.OrderID)
	assert.NoError(t, err)

	stranger := authz.Principal{UserID: "user-9", AccountType: authz.AccountCustomer}
	_, err = f.svc.GetOrder(context.Background(), stranger, order.OrderID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.GetOrder(context.Background(), buyer, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

// A transition computed against a stale version must not commit.
func TestStaleVersionIsRejected(t *testing.T) {
	f := newFixture(t, &fakeGateway{})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	stale, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)

	// Another writer commits first.
	current, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	require.NoError(t, current.Cancel(time.Now().UTC()))
	require.NoError(t, f.store.UpdateOrder(context.Background(), current, current.Version))

	require.NoError(t, stale.MarkPaid("pay-x", time.Now().UTC(), "url"))
	err = f.store.UpdateOrder(context.Background(), stale, stale.Version)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

// An attempt that repeats the details already on the order must not
// rewrite it; a rewrite would bump the version for nothing.
func TestPayWithUnchangedDetailsDoesNotRewriteOrder(t *testing.T) {
	f := newFixture(t, &fakeGateway{
		results: []*payment.AuthorizationResult{nil},
		errs:    []error{domain.ErrGatewayUnavailable},
	})

	order, err := f.svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), order.Version)

	_, err = f.svc.Pay(context.Background(), buyer, order.OrderID, domain.PayOrderRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Provider:      domain.ProviderOrange,
	})
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	stored, err := f.store.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

// gatedDispatcher stalls the dispatch of one event kind until released,
// standing in for a broker that is slow to accept a write.
type gatedDispatcher struct {
	recordingDispatcher
	gate    chan struct{}
	entered chan struct{}
}

func (d *gatedDispatcher) Dispatch(ctx context.Context, kind, key string, payload any) error {
	if kind == events.KindOrderCancelled {
		d.entered <- struct{}{}
		<-d.gate
	}
	return d.recordingDispatcher.Dispatch(ctx, kind, key, payload)
}

// A slow broker must never hold up other work on the same order: the
// transition commits and releases the order before dispatch starts.
func TestSlowDispatchDoesNotBlockOrder(t *testing.T) {
	store := repository.NewMemoryOrderStore()
	photos := catalog.NewMemoryPhotoStore(
		domain.Photo{PhotoID: "photo-1", PhotographerID: "ph-1", PriceStandard: 1000, PriceExtended: 2500, Purchasable: true},
		domain.Photo{PhotoID: "photo-2", PhotographerID: "ph-2", PriceStandard: 1500, PriceExtended: 3000, Purchasable: true},
	)
	dispatcher := &gatedDispatcher{gate: make(chan struct{}), entered: make(chan struct{})}
	svc := NewOrderService(store, photos, &fakeGateway{}, dispatcher, "https://invoices.test", zap.NewNop())

	order, err := svc.CreateOrder(context.Background(), buyer, createOrderReq(), "req-1")
	require.NoError(t, err)

	cancelDone := make(chan error, 1)
	go func() {
		_, err := svc.Cancel(context.Background(), buyer, order.OrderID)
		cancelDone <- err
	}()
	<-dispatcher.entered // cancellation committed, dispatch now in flight

	callbackDone := make(chan error, 1)
	go func() {
		_, err := svc.HandleCallback(context.Background(), domain.PaymentCallbackRequest{
			OrderID:           order.OrderID,
			Status:            "succeeded",
			ExternalReference: "MM-1",
		})
		callbackDone <- err
	}()

	select {
	case err := <-callbackDone:
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	case <-time.After(2 * time.Second):
		t.Fatal("callback stuck behind an in-flight event dispatch")
	}

	close(dispatcher.gate)
	require.NoError(t, <-cancelDone)
	assert.Equal(t, 1, dispatcher.count(events.KindOrderCancelled))
}
