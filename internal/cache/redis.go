package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	openCartTTL   = 15 * time.Minute
	maxJitter     = 5 // minutes
	closedCartTTL = time.Minute
)

// cachedCart is the cached projection of a cart. Authorization id and client
// secret stay in the database: they change on checkout without going through
// the cart service, and a stale copy must never be served.
type cachedCart struct {
	ID        int64             `json:"id"`
	Items     []domain.CartItem `json:"items"`
	Closed    bool              `json:"closed"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: openCartTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, cartID int64) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart %d: %w", cartID, err)
	}

	var cached cachedCart
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return &domain.Cart{
		ID:        cached.ID,
		Items:     cached.Items,
		Closed:    cached.Closed,
		CreatedAt: cached.CreatedAt,
	}, nil
}

// Set caches open carts for the base TTL plus up to five minutes of jitter so
// carts created together do not expire together. A closed cart is only read
// until the next AddItem replaces it, so it gets a short fixed TTL.
func (r RedisCache) Set(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cachedCart{
		ID:        cart.ID,
		Items:     cart.Items,
		Closed:    cart.Closed,
		CreatedAt: cart.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(cart.ID), data, r.ttl(cart)).Err(); err != nil {
		return fmt.Errorf("redis set cart %d: %w", cart.ID, err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, cartID int64) error {
	if err := r.client.Del(ctx, cacheKey(cartID)).Err(); err != nil {
		return fmt.Errorf("redis delete cart %d: %w", cartID, err)
	}
	return nil
}

func (r RedisCache) ttl(cart *domain.Cart) time.Duration {
	if cart.Closed {
		return closedCartTTL
	}
	return r.baseTTL + time.Duration(rand.IntN(maxJitter))*time.Minute
}

func cacheKey(cartID int64) string {
	return fmt.Sprintf("cart:%d", cartID)
}
