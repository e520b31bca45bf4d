package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	GetCartLineItems(ctx context.Context, session domain.SessionContext) ([]domain.CartLineItem, error)
	AddItem(ctx context.Context, session domain.SessionContext, item domain.CartItem) (domain.CookieUpdate, error)
	UpdateItemQuantity(ctx context.Context, session domain.SessionContext, productID int64, quantity int) error
	RemoveItem(ctx context.Context, session domain.SessionContext, productID int64) error
}

type CartHandler struct {
	carts        CartService
	timeout      time.Duration
	secureCookie bool
}

func NewCartHandler(carts CartService, timeout time.Duration, secureCookie bool) *CartHandler {
	return &CartHandler{
		carts:        carts,
		timeout:      timeout,
		secureCookie: secureCookie,
	}
}

type AddItemRequest struct {
	ProductID   int64   `json:"product_id"`
	Quantity    int     `json:"quantity"`
	Subcategory *string `json:"subcategory,omitempty"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.carts.GetCartLineItems(ctx, getSession(r.Context()))
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// AddItem applies the cookie update before anything else so a stale cookie
// is cleared even when the call fails.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := getSession(r.Context())
	update, err := h.carts.AddItem(ctx, session, domain.CartItem{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		Subcategory: req.Subcategory,
	})
	session = h.applyCookie(w, session, update)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	items, err := h.carts.GetCartLineItems(ctx, session)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusCreated, items)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(w, chi.URLParam(r, "product_id"), "product_id")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := getSession(r.Context())
	if err := h.carts.UpdateItemQuantity(ctx, session, productID, req.Quantity); err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	items, err := h.carts.GetCartLineItems(ctx, session)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(w, chi.URLParam(r, "product_id"), "product_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.RemoveItem(ctx, getSession(r.Context()), productID); err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) applyCookie(w http.ResponseWriter, session domain.SessionContext, update domain.CookieUpdate) domain.SessionContext {
	switch {
	case update.Expire:
		expireCartCookie(w, h.secureCookie)
		session.CartID = ""
	case update.Set:
		session.CartID = strconv.FormatInt(update.CartID, 10)
		setCartCookie(w, session.CartID, h.secureCookie)
	}
	return session
}

func parseID(w http.ResponseWriter, raw, field string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		respondError(w, http.StatusBadRequest, "invalid_argument", "invalid "+field)
		return 0, false
	}
	return id, true
}
