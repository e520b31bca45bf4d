package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/LoganXav/Nexmart/internal/cache"
	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/repository"
)

// mockCartRepository is an in-memory CartRepository. Reads hand out copies
// so callers cannot mutate stored state without a write.
type mockCartRepository struct {
	m       sync.Mutex
	nextID  int64
	carts   map[int64]*domain.Cart
	err     error
	finds   int
	deleted []int64
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{nextID: 1, carts: map[int64]*domain.Cart{}}
}

func (m *mockCartRepository) put(cart domain.Cart) {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[cart.ID] = &cart
	if cart.ID >= m.nextID {
		m.nextID = cart.ID + 1
	}
}

func (m *mockCartRepository) get(id int64) *domain.Cart {
	m.m.Lock()
	defer m.m.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return nil
	}
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp
}

func (m *mockCartRepository) InsertCart(_ context.Context, items []domain.CartItem) (int64, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	id := m.nextID
	m.nextID++
	m.carts[id] = &domain.Cart{ID: id, Items: slices.Clone(items), CreatedAt: time.Now()}
	return id, nil
}

func (m *mockCartRepository) FindCartByID(_ context.Context, id int64) (*domain.Cart, error) {
	m.m.Lock()
	m.finds++
	err := m.err
	m.m.Unlock()
	if err != nil {
		return nil, err
	}
	c := m.get(id)
	if c == nil {
		return nil, domain.ErrCartNotFound
	}
	return c, nil
}

func (m *mockCartRepository) UpdateCartItems(_ context.Context, id int64, items []domain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[id]
	if !ok {
		return domain.ErrCartNotFound
	}
	c.Items = slices.Clone(items)
	return nil
}

func (m *mockCartRepository) DeleteCart(_ context.Context, id int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.carts, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCartRepository) BindAuthorization(_ context.Context, id int64, authID, secret string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[id]
	if !ok {
		return domain.ErrCartNotFound
	}
	c.PaymentAuthorizationID = &authID
	c.ClientSecret = &secret
	return nil
}

func (m *mockCartRepository) CloseCart(_ context.Context, id int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	c, ok := m.carts[id]
	if !ok {
		return domain.ErrCartNotFound
	}
	c.Closed = true
	return nil
}

type mockCatalog struct {
	products map[int64]domain.Product
	err      error
}

func newMockCatalog(products ...domain.Product) *mockCatalog {
	m := &mockCatalog{products: map[int64]domain.Product{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
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

func (m *mockCatalog) FindProductsByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Product
	for _, p := range m.products {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Product) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *mockCatalog) ListProducts(context.Context, repository.ProductQuery) (*repository.ProductPage, error) {
	return &repository.ProductPage{}, m.err
}

type mockCache struct {
	m       sync.Mutex
	carts   map[int64]*domain.Cart
	err     error
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{carts: map[int64]*domain.Cart{}}
}

func (m *mockCache) Get(_ context.Context, id int64) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCache) Set(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[cart.ID] = cart
	return m.err
}

func (m *mockCache) Delete(_ context.Context, id int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, id)
	m.deletes++
	return m.err
}

func (m *mockCache) has(id int64) bool {
	m.m.Lock()
	defer m.m.Unlock()
	_, ok := m.carts[id]
	return ok
}
