package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LoganXav/Nexmart/internal/domain"
)

func (r *Repository) InsertCart(ctx context.Context, items []domain.CartItem) (int64, error) {
	itemsJSON, err := marshalItems(items)
	if err != nil {
		return 0, err
	}

	query := `INSERT INTO carts (items, closed, created_at) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	err = r.db.QueryRowContext(ctx, query, itemsJSON, false, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert cart: %w", err)
	}
	return id, nil
}

func (r *Repository) FindCartByID(ctx context.Context, id int64) (*domain.Cart, error) {
	query := `SELECT id, items, closed, payment_intent_id, client_secret, created_at
	          FROM carts WHERE id = $1`

	var (
		cart         domain.Cart
		itemsJSON    []byte
		authID       sql.NullString
		clientSecret sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cart.ID,
		&itemsJSON,
		&cart.Closed,
		&authID,
		&clientSecret,
		&cart.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart by id: %w", err)
	}

	cart.Items, err = unmarshalItems(itemsJSON)
	if err != nil {
		return nil, fmt.Errorf("cart %d: %w", id, err)
	}
	if authID.Valid {
		cart.PaymentAuthorizationID = &authID.String
	}
	if clientSecret.Valid {
		cart.ClientSecret = &clientSecret.String
	}

	return &cart, nil
}

func (r *Repository) UpdateCartItems(ctx context.Context, id int64, items []domain.CartItem) error {
	itemsJSON, err := marshalItems(items)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `UPDATE carts SET items = $1 WHERE id = $2`, itemsJSON, id)
	if err != nil {
		return fmt.Errorf("update cart items: %w", err)
	}
	return requireAffected(res)
}

// DeleteCart does not report a missing row: stale cookies are cleaned up
// unconditionally.
func (r *Repository) DeleteCart(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// BindAuthorization only touches open carts. A closed cart reports
// ErrCartNotFound, the same as a missing one.
func (r *Repository) BindAuthorization(ctx context.Context, id int64, authorizationID, clientSecret string) error {
	query := `UPDATE carts SET payment_intent_id = $1, client_secret = $2 WHERE id = $3 AND closed = $4`

	res, err := r.db.ExecContext(ctx, query, authorizationID, clientSecret, id, false)
	if err != nil {
		return fmt.Errorf("bind authorization: %w", err)
	}
	return requireAffected(res)
}

func (r *Repository) CloseCart(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE carts SET closed = $1 WHERE id = $2`, true, id)
	if err != nil {
		return fmt.Errorf("close cart: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func marshalItems(items []domain.CartItem) (string, error) {
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal cart items: %w", err)
	}
	return string(data), nil
}

// unmarshalItems validates the stored array on the way out.
func unmarshalItems(data []byte) ([]domain.CartItem, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart items: %w", err)
	}

	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if item.Quantity < 0 {
			return nil, fmt.Errorf("product %d has negative quantity %d", item.ProductID, item.Quantity)
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, fmt.Errorf("product %d appears twice", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	return items, nil
}
