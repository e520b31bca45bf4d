package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/LoganXav/Nexmart/internal/cache"
	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/logger"
	"github.com/LoganXav/Nexmart/internal/repository"
	"golang.org/x/sync/singleflight"
)

// CartService reads and mutates carts. Mutations are read-then-write against
// the store with no cart-level lock, so two concurrent requests on the same
// cart can lose an update.
type CartService struct {
	carts   repository.CartRepository
	catalog repository.CatalogRepository
	cache   cache.CartCache
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(carts repository.CartRepository, catalog repository.CatalogRepository, cache cache.CartCache) *CartService {
	return &CartService{
		carts:   carts,
		catalog: catalog,
		cache:   cache,
	}
}

// GetCart returns the session's open cart, or nil when the cookie is
// missing, malformed, points at no record or at a closed cart.
func (s *CartService) GetCart(ctx context.Context, session domain.SessionContext) (*domain.Cart, error) {
	id, ok := session.CartIDValue()
	if !ok {
		return nil, nil
	}

	v, err, _ := s.sfg.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, id)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.FromContext(ctx).WarnContext(ctx, "cache get error", slog.Int64("cart_id", id), slog.Any("error", err))
		}

		cart, err = s.carts.FindCartByID(ctx, id)
		if errors.Is(err, domain.ErrCartNotFound) {
			return (*domain.Cart)(nil), nil
		}
		if err != nil {
			return nil, err
		}

		setCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		if errSet := s.cache.Set(setCtx, cart); errSet != nil {
			logger.FromContext(ctx).WarnContext(ctx, "cache set error", slog.Int64("cart_id", id), slog.Any("error", errSet))
		}

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	cart := v.(*domain.Cart)
	if cart != nil && cart.Closed {
		return nil, nil
	}
	return cart, nil
}

// GetCartLineItems joins the cart with the live catalog, oldest product
// first. Products that no longer exist drop out of the view.
func (s *CartService) GetCartLineItems(ctx context.Context, session domain.SessionContext) ([]domain.CartLineItem, error) {
	cart, err := s.GetCart(ctx, session)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return []domain.CartLineItem{}, nil
	}

	ids := make([]int64, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}

	lineItems := make([]domain.CartLineItem, 0, len(products))
	for _, p := range products {
		quantity := 0
		if i := cart.FindItem(p.ID); i >= 0 {
			quantity = cart.Items[i].Quantity
		}
		lineItems = append(lineItems, p.LineItem(quantity))
	}

	return lineItems, nil
}

// AddItem merges input into the session's cart, creating the cart when the
// session has none. The returned CookieUpdate says what the caller must do
// with the cartId cookie, and is meaningful even when err is not nil.
func (s *CartService) AddItem(ctx context.Context, session domain.SessionContext, input domain.CartItem) (domain.CookieUpdate, error) {
	log := logger.FromContext(ctx)

	if err := validateItem(input); err != nil {
		return domain.CookieUpdate{}, err
	}

	product, err := s.catalog.FindProductByID(ctx, input.ProductID)
	if err != nil {
		return domain.CookieUpdate{}, err
	}
	if product.Inventory < input.Quantity {
		return domain.CookieUpdate{}, domain.ErrOutOfStock
	}

	id, ok := session.CartIDValue()
	if !ok {
		return s.newCart(ctx, input)
	}

	cart, err := s.carts.FindCartByID(ctx, id)
	if errors.Is(err, domain.ErrCartNotFound) {
		log.InfoContext(ctx, "stale cart cookie", slog.Int64("cart_id", id))
		if errDel := s.carts.DeleteCart(ctx, id); errDel != nil {
			log.ErrorContext(ctx, "repo delete cart error", slog.Int64("cart_id", id), slog.Any("error", errDel))
		}
		s.invalidateCache(ctx, id)
		return domain.CookieUpdate{Expire: true}, domain.ErrCartNotFound
	}
	if err != nil {
		log.ErrorContext(ctx, "repo find cart error", slog.Int64("cart_id", id), slog.Any("error", err))
		return domain.CookieUpdate{}, err
	}

	if cart.Closed {
		// prior items belong to a settled order and are not carried over
		if err := s.carts.DeleteCart(ctx, id); err != nil {
			log.ErrorContext(ctx, "repo delete cart error", slog.Int64("cart_id", id), slog.Any("error", err))
			return domain.CookieUpdate{}, err
		}
		s.invalidateCache(ctx, id)
		return s.newCart(ctx, input)
	}

	if i := cart.FindItem(input.ProductID); i >= 0 {
		cart.Items[i].Quantity += input.Quantity
	} else {
		cart.Items = append(cart.Items, input)
	}

	if err := s.carts.UpdateCartItems(ctx, id, cart.Items); err != nil {
		log.ErrorContext(ctx, "repo update cart items error", slog.Int64("cart_id", id), slog.Any("error", err))
		return domain.CookieUpdate{}, err
	}

	s.invalidateCache(ctx, id)
	return domain.CookieUpdate{CartID: id}, nil
}

// UpdateItemQuantity sets the quantity of a cart item. Zero removes it.
func (s *CartService) UpdateItemQuantity(ctx context.Context, session domain.SessionContext, productID int64, quantity int) error {
	if err := validateItem(domain.CartItem{ProductID: productID, Quantity: quantity}); err != nil {
		return err
	}

	id, ok := session.CartIDValue()
	if !ok {
		return domain.ErrCartNotFound
	}

	cart, err := s.carts.FindCartByID(ctx, id)
	if err != nil {
		return err
	}
	if cart.Closed {
		return domain.ErrCartNotFound
	}

	i := cart.FindItem(productID)
	if i < 0 {
		return domain.ErrItemNotFound
	}

	if quantity == 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	} else {
		cart.Items[i].Quantity = quantity
	}

	if err := s.carts.UpdateCartItems(ctx, id, cart.Items); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "repo update cart items error", slog.Int64("cart_id", id), slog.Any("error", err))
		return err
	}

	s.invalidateCache(ctx, id)
	return nil
}

// RemoveItem drops productID from the cart. A missing cart or item is not an
// error.
func (s *CartService) RemoveItem(ctx context.Context, session domain.SessionContext, productID int64) error {
	id, ok := session.CartIDValue()
	if !ok {
		return nil
	}

	cart, err := s.carts.FindCartByID(ctx, id)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	i := cart.FindItem(productID)
	if i < 0 || cart.Closed {
		return nil
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)

	if err := s.carts.UpdateCartItems(ctx, id, cart.Items); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "repo update cart items error", slog.Int64("cart_id", id), slog.Any("error", err))
		return err
	}

	s.invalidateCache(ctx, id)
	return nil
}

// CloseCart marks a cart as settled. The next AddItem replaces it.
func (s *CartService) CloseCart(ctx context.Context, cartID int64) error {
	if err := s.carts.CloseCart(ctx, cartID); err != nil {
		return err
	}
	s.invalidateCache(ctx, cartID)
	return nil
}

func (s *CartService) newCart(ctx context.Context, input domain.CartItem) (domain.CookieUpdate, error) {
	id, err := s.carts.InsertCart(ctx, []domain.CartItem{input})
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "repo insert cart error", slog.Any("error", err))
		return domain.CookieUpdate{}, err
	}
	return domain.CookieUpdate{CartID: id, Set: true}, nil
}

func validateItem(item domain.CartItem) error {
	if item.ProductID < 0 {
		return domain.NewValidationError("product_id", "must not be negative")
	}
	if item.Quantity < 0 {
		return domain.NewValidationError("quantity", "must not be negative")
	}
	return nil
}

func (s *CartService) invalidateCache(ctx context.Context, cartID int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cartID); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "cache invalidate error", slog.Int64("cart_id", cartID), slog.Any("error", err))
	}
}
