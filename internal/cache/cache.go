package cache

import (
	"context"
	"errors"

	"github.com/LoganXav/Nexmart/internal/domain"
)

// CartCache holds cart records keyed by cart id. Line items are always
// joined against the live catalog after a hit. Cached carts carry no
// authorization binding.
type CartCache interface {
	Get(ctx context.Context, cartID int64) (*domain.Cart, error)
	Set(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, cartID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
