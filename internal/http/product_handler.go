package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/pricing"
	"github.com/LoganXav/Nexmart/internal/repository"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 100
)

type ProductCatalog interface {
	FindProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, q repository.ProductQuery) (*repository.ProductPage, error)
}

type ProductHandler struct {
	catalog ProductCatalog
	timeout time.Duration
}

func NewProductHandler(catalog ProductCatalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductListResponse struct {
	Items   []domain.Product `json:"items"`
	Count   int              `json:"count"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, page, perPage, err := parseProductQuery(r)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.catalog.ListProducts(ctx, q)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, ProductListResponse{
		Items:   items,
		Count:   result.Count,
		Page:    page,
		PerPage: perPage,
	})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"), "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.FindProductByID(ctx, id)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// parseProductQuery reads the listing parameters:
//
//	page, per_page            1-based page and page size
//	sort                      column.order, e.g. price.asc
//	categories, subcategories dot-separated lists
//	price_range               min-max, either side may be empty
func parseProductQuery(r *http.Request) (repository.ProductQuery, int, int, error) {
	values := r.URL.Query()
	var q repository.ProductQuery

	page, err := positiveInt(values.Get("page"), "page", defaultPage)
	if err != nil {
		return q, 0, 0, err
	}
	perPage, err := positiveInt(values.Get("per_page"), "per_page", defaultPerPage)
	if err != nil {
		return q, 0, 0, err
	}
	perPage = min(perPage, maxPerPage)
	q.Limit = perPage
	q.Offset = (page - 1) * perPage

	if sort := values.Get("sort"); sort != "" {
		column, order, _ := strings.Cut(sort, ".")
		switch order {
		case "", "asc":
		case "desc":
			q.SortDesc = true
		default:
			return q, 0, 0, domain.NewValidationError("sort", "order must be asc or desc")
		}
		q.SortColumn = column
	}

	q.Categories = splitList(values.Get("categories"))
	q.Subcategories = splitList(values.Get("subcategories"))

	if pr := values.Get("price_range"); pr != "" {
		minPrice, maxPrice, found := strings.Cut(pr, "-")
		if !found {
			return q, 0, 0, domain.NewValidationError("price_range", "expected min-max")
		}
		for _, p := range []string{minPrice, maxPrice} {
			if p == "" {
				continue
			}
			if _, err := pricing.ParsePrice(p); err != nil {
				return q, 0, 0, domain.NewValidationError("price_range", err.Error())
			}
		}
		q.MinPrice = minPrice
		q.MaxPrice = maxPrice
	}

	return q, page, perPage, nil
}

func positiveInt(raw, field string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.NewValidationError(field, "must be a positive integer")
	}
	return n, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ".") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
