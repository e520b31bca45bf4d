package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/pricing"
)

const productColumns = `id, name, description, images, category, subcategory, price, inventory, rating, tags, created_at`

var sortColumns = map[string]string{
	"":          "created_at",
	"createdAt": "created_at",
	"name":      "name",
	"price":     "price",
	"rating":    "rating",
	"inventory": "inventory",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) FindProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

// FindProductsByIDs returns the matching products oldest first. Unknown ids
// are skipped.
func (r *Repository) FindProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	seen := make(map[int64]struct{}, len(ids))
	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products
	          WHERE id IN (` + strings.Join(placeholders, ", ") + `)
	          ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products by ids: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ListProducts reads one page and the total match count in a single
// transaction so both describe the same snapshot.
func (r *Repository) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	column, ok := sortColumns[q.SortColumn]
	if !ok {
		return nil, domain.NewValidationError("sort", fmt.Sprintf("unknown column %q", q.SortColumn))
	}
	direction := "ASC"
	if q.SortDesc || q.SortColumn == "" {
		direction = "DESC"
	}

	where, args := productFilter(q)

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := max(q.Offset, 0)

	pageQuery := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s %s, id %s LIMIT %d OFFSET %d`,
		productColumns, where, column, direction, direction, limit, offset)
	countQuery := `SELECT COUNT(*) FROM products` + where

	return withTx(ctx, r.db, &sql.TxOptions{ReadOnly: r.driver == DriverPostgres}, func(tx *sql.Tx) (*ProductPage, error) {
		rows, err := tx.QueryContext(ctx, pageQuery, args...)
		if err != nil {
			return nil, fmt.Errorf("query products: %w", err)
		}
		items, err := collectProducts(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}

		var count int
		if err := tx.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
			return nil, fmt.Errorf("count products: %w", err)
		}

		return &ProductPage{Items: items, Count: count}, nil
	})
}

func productFilter(q ProductQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		ph := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, column+" IN ("+strings.Join(ph, ", ")+")")
	}
	in("category", q.Categories)
	in("subcategory", q.Subcategories)

	if q.MinPrice != "" {
		args = append(args, q.MinPrice)
		clauses = append(clauses, fmt.Sprintf("price >= $%d", len(args)))
	}
	if q.MaxPrice != "" {
		args = append(args, q.MaxPrice)
		clauses = append(clauses, fmt.Sprintf("price <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func collectProducts(rows *sql.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p           domain.Product
		description sql.NullString
		subcategory sql.NullString
		imagesJSON  []byte
		tagsJSON    []byte
		price       string
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&description,
		&imagesJSON,
		&p.Category,
		&subcategory,
		&price,
		&p.Inventory,
		&p.Rating,
		&tagsJSON,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	if subcategory.Valid {
		p.Subcategory = &subcategory.String
	}
	if p.Price, err = pricing.NormalizePrice(price); err != nil {
		return nil, fmt.Errorf("product %d: %w", p.ID, err)
	}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
			return nil, fmt.Errorf("product %d images: %w", p.ID, err)
		}
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &p.Tags); err != nil {
			return nil, fmt.Errorf("product %d tags: %w", p.ID, err)
		}
	}
	return &p, nil
}
