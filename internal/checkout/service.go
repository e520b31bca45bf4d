package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/events"
	"github.com/LoganXav/Nexmart/internal/logger"
	"github.com/LoganXav/Nexmart/internal/payment"
	"github.com/LoganXav/Nexmart/internal/pricing"
	"github.com/LoganXav/Nexmart/internal/repository"
)

// Service turns cart line items into processor authorizations and checks
// settled authorizations against the requesting session. Failures never
// propagate as errors: callers get an empty secret or an unverified result
// with the cause attached.
type Service struct {
	carts      repository.CartRepository
	catalog    repository.CatalogRepository
	processor  payment.Processor
	calculator *pricing.Calculator
	publisher  events.Publisher
	timeout    time.Duration
}

func NewService(
	carts repository.CartRepository,
	catalog repository.CatalogRepository,
	processor payment.Processor,
	calculator *pricing.Calculator,
	publisher events.Publisher,
	timeout time.Duration,
) *Service {
	return &Service{
		carts:      carts,
		catalog:    catalog,
		processor:  processor,
		calculator: calculator,
		publisher:  publisher,
		timeout:    timeout,
	}
}

type IntentResult struct {
	ClientSecret string
	Err          error
}

// Secret returns nil when no authorization could be prepared.
func (r IntentResult) Secret() *string {
	if r.Err != nil || r.ClientSecret == "" {
		return nil
	}
	return &r.ClientSecret
}

type VerifyResult struct {
	IsVerified    bool
	Authorization *domain.Authorization
	Err           error
}

// CreateAuthorization requests an authorization for the items' total and
// binds it to the session's cart while it still awaits a payment method.
func (s *Service) CreateAuthorization(ctx context.Context, session domain.SessionContext, items []domain.CartLineItem) IntentResult {
	const op = "create authorization"
	log := logger.FromContext(ctx)

	fail := func(kind ErrorKind, err error) IntentResult {
		perr := newPaymentError(op, kind, err)
		log.ErrorContext(ctx, "payment intent failed", slog.String("kind", string(kind)), slog.Any("error", err))
		return IntentResult{Err: perr}
	}

	if len(items) == 0 {
		return fail(KindValidation, ErrEmptyCheckout)
	}
	checkoutItems, err := toCheckoutItems(items)
	if err != nil {
		return fail(KindValidation, err)
	}
	amount, err := s.calculator.Calculate(items)
	if err != nil {
		return fail(KindValidation, err)
	}

	itemsJSON, err := json.Marshal(checkoutItems)
	if err != nil {
		return fail(KindValidation, err)
	}

	cartID, hasCart := session.CartIDValue()
	if hasCart {
		cart, err := s.carts.FindCartByID(ctx, cartID)
		switch {
		case err == nil && cart.Closed:
			return fail(KindStorage, ErrCartClosed)
		case err != nil && !errors.Is(err, domain.ErrCartNotFound):
			return fail(KindStorage, err)
		}
	}

	metadata := map[string]string{
		domain.MetadataCartID: "",
		domain.MetadataItems:  string(itemsJSON),
	}
	if hasCart {
		metadata[domain.MetadataCartID] = strconv.FormatInt(cartID, 10)
	}

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	auth, err := s.processor.CreateAuthorization(pctx, domain.AuthorizationParams{
		Amount:   amount.Total,
		Currency: strings.ToLower(s.calculator.Currency().String()),
		Metadata: metadata,
	})
	if err != nil {
		return fail(KindProcessor, err)
	}

	if auth.Status == domain.AuthorizationStatusRequiresPaymentMethod {
		if !hasCart {
			return fail(KindStorage, ErrNoCart)
		}
		err := s.carts.BindAuthorization(ctx, cartID, auth.ID, auth.ClientSecret)
		if errors.Is(err, domain.ErrCartNotFound) {
			return fail(KindStorage, fmt.Errorf("%w: %w", ErrNoCart, err))
		}
		if err != nil {
			return fail(KindStorage, err)
		}
	}

	log.InfoContext(ctx, "payment intent created",
		slog.String("authorization_id", auth.ID),
		slog.Int64("amount", amount.Total),
		slog.Int64("fee", amount.Fee))

	return IntentResult{ClientSecret: auth.ClientSecret}
}

// Verify reports whether authorizationID settled and belongs to the
// session, either through the cart id recorded at creation or through the
// shipping postal code. A verified settlement is announced on a best-effort
// basis.
func (s *Service) Verify(ctx context.Context, session domain.SessionContext, authorizationID, deliveryPostalCode string) VerifyResult {
	const op = "verify authorization"
	log := logger.FromContext(ctx)

	fail := func(kind ErrorKind, err error) VerifyResult {
		log.WarnContext(ctx, "payment verification failed",
			slog.String("authorization_id", authorizationID),
			slog.String("kind", string(kind)),
			slog.Any("error", err))
		return VerifyResult{Err: newPaymentError(op, kind, err)}
	}

	authorizationID = strings.TrimSpace(authorizationID)
	if authorizationID == "" {
		return fail(KindValidation, domain.NewValidationError("authorization_id", "must not be empty"))
	}

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	auth, err := s.processor.RetrieveAuthorization(pctx, authorizationID)
	if errors.Is(err, payment.ErrAuthorizationNotFound) {
		return fail(KindVerification, err)
	}
	if err != nil {
		return fail(KindProcessor, err)
	}

	if auth.Status != domain.AuthorizationStatusSucceeded {
		return fail(KindVerification, ErrNotSucceeded)
	}
	if !isBound(auth, session, deliveryPostalCode) {
		return fail(KindVerification, ErrNotBound)
	}

	s.announce(ctx, auth)

	return VerifyResult{IsVerified: true, Authorization: auth}
}

// ReconstructLineItems reads the items snapshot stored on the
// authorization. Missing or unreadable metadata yields no items.
func ReconstructLineItems(auth *domain.Authorization) []domain.CheckoutItem {
	if auth == nil {
		return []domain.CheckoutItem{}
	}
	raw, ok := auth.Metadata[domain.MetadataItems]
	if !ok || raw == "" {
		return []domain.CheckoutItem{}
	}

	var items []domain.CheckoutItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []domain.CheckoutItem{}
	}
	for _, item := range items {
		if item.Quantity < 0 || item.Price < 0 {
			return []domain.CheckoutItem{}
		}
	}
	if items == nil {
		items = []domain.CheckoutItem{}
	}
	return items
}

// OrderLineItems joins the authorization's items with the live catalog.
// Price and quantity come from the snapshot; products that no longer exist
// are left out.
func (s *Service) OrderLineItems(ctx context.Context, auth *domain.Authorization) ([]domain.OrderLineItem, error) {
	items := ReconstructLineItems(auth)
	if len(items) == 0 {
		return []domain.OrderLineItem{}, nil
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lineItems := make([]domain.OrderLineItem, 0, len(items))
	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		lineItems = append(lineItems, domain.OrderLineItem{
			ID:       p.ID,
			Name:     p.Name,
			Images:   p.Images,
			Category: p.Category,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	return lineItems, nil
}

// announce publishes the settlement once per cart: a cart that is already
// closed, or gone, has nothing left to settle.
func (s *Service) announce(ctx context.Context, auth *domain.Authorization) {
	if s.publisher == nil {
		return
	}
	cartID, err := strconv.ParseInt(auth.Metadata[domain.MetadataCartID], 10, 64)
	if err != nil {
		return
	}

	cart, err := s.carts.FindCartByID(ctx, cartID)
	switch {
	case errors.Is(err, domain.ErrCartNotFound):
		return
	case err != nil:
		logger.FromContext(ctx).WarnContext(ctx, "load cart before publish",
			slog.Int64("cart_id", cartID),
			slog.Any("error", err))
	case cart.Closed:
		return
	}

	err = s.publisher.PublishPaymentSucceeded(ctx, events.PaymentSucceeded{
		CartID:          cartID,
		AuthorizationID: auth.ID,
		Amount:          auth.Amount,
		Currency:        auth.Currency,
		OccurredAt:      time.Now().UTC(),
	})
	if err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "publish payment event failed",
			slog.String("authorization_id", auth.ID),
			slog.Any("error", err))
	}
}

// isBound requires a non-empty value on both sides of either comparison.
func isBound(auth *domain.Authorization, session domain.SessionContext, deliveryPostalCode string) bool {
	cartID := auth.Metadata[domain.MetadataCartID]
	if cartID != "" && cartID == session.CartID {
		return true
	}

	shipping := stripSpaces(auth.ShippingPostalCode)
	return shipping != "" && shipping == stripSpaces(deliveryPostalCode)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func toCheckoutItems(items []domain.CartLineItem) ([]domain.CheckoutItem, error) {
	out := make([]domain.CheckoutItem, 0, len(items))
	for _, item := range items {
		if item.ID < 0 {
			return nil, domain.NewValidationError("id", "must not be negative")
		}
		if item.Quantity < 0 {
			return nil, domain.NewValidationError("quantity", "must not be negative")
		}
		price, err := pricing.ParsePrice(item.Price)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.CheckoutItem{
			ProductID: item.ID,
			Price:     price.InexactFloat64(),
			Quantity:  item.Quantity,
		})
	}
	return out, nil
}
