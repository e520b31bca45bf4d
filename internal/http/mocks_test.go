package http

import (
	"context"
	"strconv"

	"github.com/LoganXav/Nexmart/internal/checkout"
	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/repository"
)

type mockCartService struct {
	items    map[string][]domain.CartLineItem
	update   domain.CookieUpdate
	err      error
	sessions []domain.SessionContext
	added    []domain.CartItem
	updated  map[int64]int
	removed  []int64
}

func newMockCartService() *mockCartService {
	return &mockCartService{
		items:   make(map[string][]domain.CartLineItem),
		updated: make(map[int64]int),
	}
}

func (m *mockCartService) GetCartLineItems(_ context.Context, session domain.SessionContext) ([]domain.CartLineItem, error) {
	m.sessions = append(m.sessions, session)
	items, ok := m.items[session.CartID]
	if !ok {
		return []domain.CartLineItem{}, nil
	}
	return items, nil
}

func (m *mockCartService) AddItem(_ context.Context, session domain.SessionContext, item domain.CartItem) (domain.CookieUpdate, error) {
	m.sessions = append(m.sessions, session)
	m.added = append(m.added, item)
	if m.update.Set {
		key := strconv.FormatInt(m.update.CartID, 10)
		m.items[key] = append(m.items[key], domain.CartLineItem{ID: item.ProductID, Quantity: item.Quantity})
	}
	return m.update, m.err
}

func (m *mockCartService) UpdateItemQuantity(_ context.Context, session domain.SessionContext, productID int64, quantity int) error {
	m.sessions = append(m.sessions, session)
	if m.err != nil {
		return m.err
	}
	m.updated[productID] = quantity
	return nil
}

func (m *mockCartService) RemoveItem(_ context.Context, session domain.SessionContext, productID int64) error {
	m.sessions = append(m.sessions, session)
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, productID)
	return nil
}

type mockCheckout struct {
	intent     checkout.IntentResult
	verify     checkout.VerifyResult
	orderItems []domain.OrderLineItem
	orderErr   error

	gotItems   []domain.CartLineItem
	gotSession domain.SessionContext
	gotID      string
	gotPostal  string
}

func (m *mockCheckout) CreateAuthorization(_ context.Context, session domain.SessionContext, items []domain.CartLineItem) checkout.IntentResult {
	m.gotSession = session
	m.gotItems = items
	return m.intent
}

func (m *mockCheckout) Verify(_ context.Context, session domain.SessionContext, authorizationID, deliveryPostalCode string) checkout.VerifyResult {
	m.gotSession = session
	m.gotID = authorizationID
	m.gotPostal = deliveryPostalCode
	return m.verify
}

func (m *mockCheckout) OrderLineItems(_ context.Context, _ *domain.Authorization) ([]domain.OrderLineItem, error) {
	return m.orderItems, m.orderErr
}

type mockCatalog struct {
	products map[int64]domain.Product
	page     *repository.ProductPage
	err      error
	query    repository.ProductQuery
}

func (m *mockCatalog) FindProductByID(_ context.Context, id int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockCatalog) ListProducts(_ context.Context, q repository.ProductQuery) (*repository.ProductPage, error) {
	m.query = q
	if m.err != nil {
		return nil, m.err
	}
	if m.page == nil {
		return &repository.ProductPage{}, nil
	}
	return m.page, nil
}
