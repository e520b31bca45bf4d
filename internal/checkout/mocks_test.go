package checkout

import (
	"context"
	"sync"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/events"
	"github.com/LoganXav/Nexmart/internal/repository"
)

type mockProcessor struct {
	auth      *domain.Authorization
	err       error
	params    *domain.AuthorizationParams
	retrieved string
}

func (m *mockProcessor) CreateAuthorization(_ context.Context, params domain.AuthorizationParams) (*domain.Authorization, error) {
	m.params = &params
	if m.err != nil {
		return nil, m.err
	}
	return m.auth, nil
}

func (m *mockProcessor) RetrieveAuthorization(_ context.Context, id string) (*domain.Authorization, error) {
	m.retrieved = id
	if m.err != nil {
		return nil, m.err
	}
	return m.auth, nil
}

// mockCarts serves lookups from carts and records bindings; the other calls
// are unused here.
type mockCarts struct {
	carts   map[int64]*domain.Cart
	findErr error
	bindErr error
	bound   map[int64][2]string
}

func (m *mockCarts) put(cart domain.Cart) {
	if m.carts == nil {
		m.carts = map[int64]*domain.Cart{}
	}
	m.carts[cart.ID] = &cart
}

func (m *mockCarts) InsertCart(context.Context, []domain.CartItem) (int64, error) { return 0, nil }

func (m *mockCarts) FindCartByID(_ context.Context, id int64) (*domain.Cart, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	cart, ok := m.carts[id]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	cp := *cart
	return &cp, nil
}

func (m *mockCarts) UpdateCartItems(context.Context, int64, []domain.CartItem) error { return nil }

func (m *mockCarts) DeleteCart(context.Context, int64) error { return nil }

func (m *mockCarts) BindAuthorization(_ context.Context, id int64, authID, secret string) error {
	if m.bindErr != nil {
		return m.bindErr
	}
	if m.bound == nil {
		m.bound = map[int64][2]string{}
	}
	m.bound[id] = [2]string{authID, secret}
	return nil
}

func (m *mockCarts) CloseCart(context.Context, int64) error { return nil }

type mockCatalog struct {
	products []domain.Product
	err      error
}

func (m *mockCatalog) FindProductByID(context.Context, int64) (*domain.Product, error) {
	return nil, domain.ErrProductNotFound
}

func (m *mockCatalog) FindProductsByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Product
	for _, p := range m.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (m *mockCatalog) ListProducts(context.Context, repository.ProductQuery) (*repository.ProductPage, error) {
	return &repository.ProductPage{}, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.PaymentSucceeded
	err    error
}

func (m *mockPublisher) PublishPaymentSucceeded(_ context.Context, e events.PaymentSucceeded) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}
