package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/payment"
	"github.com/LoganXav/Nexmart/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
)

type fixture struct {
	svc       *Service
	processor *mockProcessor
	carts     *mockCarts
	catalog   *mockCatalog
	publisher *mockPublisher
}

func newFixture() *fixture {
	f := &fixture{
		processor: &mockProcessor{},
		carts:     &mockCarts{},
		catalog:   &mockCatalog{},
		publisher: &mockPublisher{},
	}
	f.svc = NewService(f.carts, f.catalog, f.processor, pricing.NewCalculator(currency.USD), f.publisher, time.Second)
	return f
}

func lineItems() []domain.CartLineItem {
	return []domain.CartLineItem{
		{
			ID:       7,
			Name:     "Controller Pro",
			Images:   []domain.StoredFile{{ID: "img-1", Name: "c.png", URL: "https://cdn.example/c.png"}},
			Category: "accessories",
			Price:    "19.99",
			Quantity: 2,
		},
	}
}

func TestCreateAuthorization_BindsCart(t *testing.T) {
	f := newFixture()
	f.processor.auth = &domain.Authorization{
		ID:           "pi_1",
		Status:       domain.AuthorizationStatusRequiresPaymentMethod,
		ClientSecret: "pi_1_secret",
	}

	res := f.svc.CreateAuthorization(context.Background(), domain.SessionContext{CartID: "12"}, lineItems())
	require.NoError(t, res.Err)
	require.NotNil(t, res.Secret())
	assert.Equal(t, "pi_1_secret", *res.Secret())

	params := f.processor.params
	require.NotNil(t, params)
	assert.Equal(t, int64(3998), params.Amount)
	assert.Equal(t, "usd", params.Currency)
	assert.Equal(t, "12", params.Metadata[domain.MetadataCartID])

	var sent []map[string]any
	require.NoError(t, json.Unmarshal([]byte(params.Metadata[domain.MetadataItems]), &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, map[string]any{"productId": float64(7), "price": 19.99, "quantity": float64(2)}, sent[0])

	assert.Equal(t, [2]string{"pi_1", "pi_1_secret"}, f.carts.bound[12])
}

func TestCreateAuthorization_OtherStatusSkipsBinding(t *testing.T) {
	f := newFixture()
	f.processor.auth = &domain.Authorization{
		ID:           "pi_2",
		Status:       domain.AuthorizationStatusRequiresConfirmation,
		ClientSecret: "pi_2_secret",
	}

	res := f.svc.CreateAuthorization(context.Background(), domain.SessionContext{}, lineItems())
	require.NoError(t, res.Err)
	assert.Equal(t, "pi_2_secret", *res.Secret())
	assert.Empty(t, f.carts.bound)
	assert.Equal(t, "", f.processor.params.Metadata[domain.MetadataCartID])
}

func TestCreateAuthorization_ClosedCartRejected(t *testing.T) {
	f := newFixture()
	f.carts.put(domain.Cart{ID: 12, Closed: true, Items: []domain.CartItem{{ProductID: 7, Quantity: 2}}})
	f.processor.auth = &domain.Authorization{
		ID:           "pi_again",
		Status:       domain.AuthorizationStatusRequiresPaymentMethod,
		ClientSecret: "pi_again_secret",
	}

	res := f.svc.CreateAuthorization(context.Background(), domain.SessionContext{CartID: "12"}, lineItems())

	assert.Nil(t, res.Secret())
	assert.ErrorIs(t, res.Err, ErrCartClosed)
	assert.Nil(t, f.processor.params, "no authorization is requested for a paid cart")
	assert.Empty(t, f.carts.bound)
}

func TestCreateAuthorization_OpenCartBinds(t *testing.T) {
	f := newFixture()
	f.carts.put(domain.Cart{ID: 12, Items: []domain.CartItem{{ProductID: 7, Quantity: 2}}})
	f.processor.auth = &domain.Authorization{
		ID:           "pi_1",
		Status:       domain.AuthorizationStatusRequiresPaymentMethod,
		ClientSecret: "pi_1_secret",
	}

	res := f.svc.CreateAuthorization(context.Background(), domain.SessionContext{CartID: "12"}, lineItems())

	require.NoError(t, res.Err)
	assert.Equal(t, [2]string{"pi_1", "pi_1_secret"}, f.carts.bound[12])
}

func TestCreateAuthorization_Failures(t *testing.T) {
	awaiting := &domain.Authorization{ID: "pi_3", Status: domain.AuthorizationStatusRequiresPaymentMethod, ClientSecret: "s"}
	errStorage := errors.New("connection reset")

	tests := []struct {
		name     string
		session  domain.SessionContext
		items    []domain.CartLineItem
		auth     *domain.Authorization
		procErr  error
		findErr  error
		bindErr  error
		wantKind ErrorKind
		wantIs   error
	}{
		{
			name:     "empty items",
			session:  domain.SessionContext{CartID: "1"},
			wantKind: KindValidation,
			wantIs:   ErrEmptyCheckout,
		},
		{
			name:     "malformed price",
			session:  domain.SessionContext{CartID: "1"},
			items:    []domain.CartLineItem{{ID: 1, Price: "19.999", Quantity: 1}},
			wantKind: KindValidation,
			wantIs:   domain.ErrValidation,
		},
		{
			name:     "negative quantity",
			session:  domain.SessionContext{CartID: "1"},
			items:    []domain.CartLineItem{{ID: 1, Price: "1.00", Quantity: -1}},
			wantKind: KindValidation,
			wantIs:   domain.ErrValidation,
		},
		{
			name:     "processor error",
			session:  domain.SessionContext{CartID: "1"},
			items:    lineItems(),
			procErr:  errors.New("card_declined"),
			wantKind: KindProcessor,
			wantIs:   domain.ErrPaymentProcessor,
		},
		{
			name:     "no cart to bind",
			session:  domain.SessionContext{CartID: "not-a-number"},
			items:    lineItems(),
			auth:     awaiting,
			wantKind: KindStorage,
			wantIs:   ErrNoCart,
		},
		{
			name:     "bind fails",
			session:  domain.SessionContext{CartID: "1"},
			items:    lineItems(),
			auth:     awaiting,
			bindErr:  domain.ErrCartNotFound,
			wantKind: KindStorage,
			wantIs:   domain.ErrCartNotFound,
		},
		{
			name:     "cart closed before bind",
			session:  domain.SessionContext{CartID: "1"},
			items:    lineItems(),
			auth:     awaiting,
			bindErr:  domain.ErrCartNotFound,
			wantKind: KindStorage,
			wantIs:   ErrNoCart,
		},
		{
			name:     "cart lookup fails",
			session:  domain.SessionContext{CartID: "1"},
			items:    lineItems(),
			auth:     awaiting,
			findErr:  errStorage,
			wantKind: KindStorage,
			wantIs:   errStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.processor.auth = tt.auth
			f.processor.err = tt.procErr
			f.carts.findErr = tt.findErr
			f.carts.bindErr = tt.bindErr

			res := f.svc.CreateAuthorization(context.Background(), tt.session, tt.items)
			assert.Nil(t, res.Secret())

			var perr *PaymentError
			require.ErrorAs(t, res.Err, &perr)
			assert.Equal(t, tt.wantKind, perr.Kind)
			assert.ErrorIs(t, res.Err, tt.wantIs)
		})
	}
}

func succeeded(cartID, postal string) *domain.Authorization {
	return &domain.Authorization{
		ID:                 "pi_ok",
		Amount:             3998,
		Currency:           "usd",
		Status:             domain.AuthorizationStatusSucceeded,
		Metadata:           map[string]string{domain.MetadataCartID: cartID, domain.MetadataItems: `[{"productId":7,"price":19.99,"quantity":2}]`},
		ShippingPostalCode: postal,
	}
}

func TestVerify_Binding(t *testing.T) {
	tests := []struct {
		name    string
		auth    *domain.Authorization
		session domain.SessionContext
		postal  string
		want    bool
	}{
		{name: "cart id matches", auth: succeeded("12", "10001"), session: domain.SessionContext{CartID: "12"}, want: true},
		{name: "postal code matches", auth: succeeded("12", "SW1A 1AA"), postal: "SW1A1AA", want: true},
		{name: "postal code matches with spaces on both sides", auth: succeeded("", " 9021 0"), postal: "90 210 ", want: true},
		{name: "both match", auth: succeeded("12", "10001"), session: domain.SessionContext{CartID: "12"}, postal: "10001", want: true},
		{name: "neither matches", auth: succeeded("12", "10001"), session: domain.SessionContext{CartID: "13"}, postal: "10002", want: false},
		{name: "empty cart ids never match", auth: succeeded("", ""), session: domain.SessionContext{}, postal: "", want: false},
		{name: "missing shipping never matches empty postal", auth: succeeded("5", ""), postal: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.processor.auth = tt.auth

			res := f.svc.Verify(context.Background(), tt.session, "pi_ok", tt.postal)
			assert.Equal(t, tt.want, res.IsVerified)
			if tt.want {
				assert.NoError(t, res.Err)
				assert.Same(t, tt.auth, res.Authorization)
			} else {
				assert.Nil(t, res.Authorization)
				assert.ErrorIs(t, res.Err, ErrNotBound)
				assert.ErrorIs(t, res.Err, domain.ErrVerificationFailed)
			}
		})
	}
}

func TestVerify_RequiresSucceeded(t *testing.T) {
	statuses := []domain.AuthorizationStatus{
		domain.AuthorizationStatusRequiresPaymentMethod,
		domain.AuthorizationStatusRequiresConfirmation,
		domain.AuthorizationStatusRequiresAction,
		domain.AuthorizationStatusProcessing,
		domain.AuthorizationStatusCanceled,
		"SUCCEEDED",
	}

	for _, status := range statuses {
		f := newFixture()
		auth := succeeded("12", "10001")
		auth.Status = status
		f.processor.auth = auth

		res := f.svc.Verify(context.Background(), domain.SessionContext{CartID: "12"}, "pi_ok", "10001")
		assert.False(t, res.IsVerified, "status %s", status)
		assert.Nil(t, res.Authorization)
		assert.ErrorIs(t, res.Err, ErrNotSucceeded)
		assert.Empty(t, f.publisher.events)
	}
}

func TestVerify_Failures(t *testing.T) {
	tests := []struct {
		name     string
		authID   string
		procErr  error
		wantKind ErrorKind
	}{
		{name: "empty id", authID: "  ", wantKind: KindValidation},
		{name: "not found", authID: "pi_missing", procErr: payment.ErrAuthorizationNotFound, wantKind: KindVerification},
		{name: "network", authID: "pi_1", procErr: context.DeadlineExceeded, wantKind: KindProcessor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.processor.err = tt.procErr

			res := f.svc.Verify(context.Background(), domain.SessionContext{CartID: "1"}, tt.authID, "")
			assert.False(t, res.IsVerified)
			assert.Nil(t, res.Authorization)

			var perr *PaymentError
			require.ErrorAs(t, res.Err, &perr)
			assert.Equal(t, tt.wantKind, perr.Kind)
		})
	}
}

func TestVerify_PublishesSettlement(t *testing.T) {
	f := newFixture()
	f.carts.put(domain.Cart{ID: 12})
	f.processor.auth = succeeded("12", "")

	res := f.svc.Verify(context.Background(), domain.SessionContext{CartID: "12"}, "pi_ok", "")
	require.True(t, res.IsVerified)

	require.Len(t, f.publisher.events, 1)
	e := f.publisher.events[0]
	assert.Equal(t, int64(12), e.CartID)
	assert.Equal(t, "pi_ok", e.AuthorizationID)
	assert.Equal(t, int64(3998), e.Amount)
}

func TestVerify_PublishErrorIgnored(t *testing.T) {
	f := newFixture()
	f.carts.put(domain.Cart{ID: 12})
	f.processor.auth = succeeded("12", "")
	f.publisher.err = errors.New("broker down")

	res := f.svc.Verify(context.Background(), domain.SessionContext{CartID: "12"}, "pi_ok", "")
	assert.True(t, res.IsVerified)
	assert.NoError(t, res.Err)
}

func TestVerify_GuestCheckoutSkipsPublish(t *testing.T) {
	f := newFixture()
	f.processor.auth = succeeded("", "10001")

	res := f.svc.Verify(context.Background(), domain.SessionContext{}, "pi_ok", "10001")
	assert.True(t, res.IsVerified)
	assert.Empty(t, f.publisher.events)
}

func TestReconstructLineItems(t *testing.T) {
	tests := []struct {
		name string
		auth *domain.Authorization
		want []domain.CheckoutItem
	}{
		{
			name: "valid",
			auth: succeeded("1", ""),
			want: []domain.CheckoutItem{{ProductID: 7, Price: 19.99, Quantity: 2}},
		},
		{name: "nil authorization", auth: nil, want: []domain.CheckoutItem{}},
		{name: "missing key", auth: &domain.Authorization{Metadata: map[string]string{}}, want: []domain.CheckoutItem{}},
		{name: "malformed json", auth: &domain.Authorization{Metadata: map[string]string{domain.MetadataItems: "[{"}}, want: []domain.CheckoutItem{}},
		{name: "json null", auth: &domain.Authorization{Metadata: map[string]string{domain.MetadataItems: "null"}}, want: []domain.CheckoutItem{}},
		{name: "negative quantity", auth: &domain.Authorization{Metadata: map[string]string{domain.MetadataItems: `[{"productId":1,"price":1,"quantity":-1}]`}}, want: []domain.CheckoutItem{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReconstructLineItems(tt.auth))
		})
	}
}

func TestOrderLineItems(t *testing.T) {
	f := newFixture()
	f.catalog.products = []domain.Product{
		{ID: 7, Name: "Controller Pro", Category: "accessories", Price: "24.99"},
	}
	auth := succeeded("1", "")
	auth.Metadata[domain.MetadataItems] = `[{"productId":7,"price":19.99,"quantity":2},{"productId":404,"price":5,"quantity":1}]`

	items, err := f.svc.OrderLineItems(context.Background(), auth)
	require.NoError(t, err)
	require.Len(t, items, 1)
	// the snapshot price wins over the current catalog price
	assert.Equal(t, domain.OrderLineItem{ID: 7, Name: "Controller Pro", Category: "accessories", Price: 19.99, Quantity: 2}, items[0])
}

func TestOrderLineItems_NoItems(t *testing.T) {
	f := newFixture()

	items, err := f.svc.OrderLineItems(context.Background(), &domain.Authorization{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderLineItems_CatalogError(t *testing.T) {
	f := newFixture()
	f.catalog.err = errors.New("db down")

	_, err := f.svc.OrderLineItems(context.Background(), succeeded("1", ""))
	assert.EqualError(t, err, "db down")
}

func TestStripSpaces(t *testing.T) {
	assert.Equal(t, "SW1A1AA", stripSpaces(" SW1A\t1AA \n"))
	assert.Equal(t, "", stripSpaces("   "))
}

func TestVerify_SettledCartAnnouncedOnce(t *testing.T) {
	tests := []struct {
		name       string
		cart       *domain.Cart
		findErr    error
		wantEvents int
	}{
		{name: "open cart", cart: &domain.Cart{ID: 12}, wantEvents: 1},
		{name: "already closed", cart: &domain.Cart{ID: 12, Closed: true}, wantEvents: 0},
		{name: "cart gone", wantEvents: 0},
		{name: "lookup fails", findErr: errors.New("connection reset"), wantEvents: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.cart != nil {
				f.carts.put(*tt.cart)
			}
			f.carts.findErr = tt.findErr
			f.processor.auth = succeeded("12", "")

			res := f.svc.Verify(context.Background(), domain.SessionContext{CartID: "12"}, "pi_ok", "")

			assert.True(t, res.IsVerified)
			assert.Len(t, f.publisher.events, tt.wantEvents)
		})
	}
}
