package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/LoganXav/Nexmart/internal/checkout"
	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/payment"
	"github.com/go-chi/chi/v5"
)

type CheckoutService interface {
	CreateAuthorization(ctx context.Context, session domain.SessionContext, items []domain.CartLineItem) checkout.IntentResult
	Verify(ctx context.Context, session domain.SessionContext, authorizationID, deliveryPostalCode string) checkout.VerifyResult
	OrderLineItems(ctx context.Context, auth *domain.Authorization) ([]domain.OrderLineItem, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CreateIntentRequest struct {
	Items []domain.CartLineItem `json:"items"`
}

type CreateIntentResponse struct {
	ClientSecret *string `json:"client_secret"`
}

type OrderResponse struct {
	IsVerified    bool                   `json:"is_verified"`
	Authorization *domain.Authorization  `json:"authorization,omitempty"`
	Items         []domain.OrderLineItem `json:"items"`
}

// CreateIntent answers 200 with a null secret whenever no authorization
// could be prepared. The cause is logged by the checkout service.
func (h *CheckoutHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result := h.checkout.CreateAuthorization(ctx, getSession(r.Context()), req.Items)
	respondJSON(w, http.StatusOK, CreateIntentResponse{ClientSecret: result.Secret()})
}

func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result := h.checkout.Verify(ctx, getSession(r.Context()),
		chi.URLParam(r, "authorization_id"),
		r.URL.Query().Get("delivery_postal_code"))

	resp := OrderResponse{Items: []domain.OrderLineItem{}}
	if !result.IsVerified {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	items, err := h.checkout.OrderLineItems(ctx, result.Authorization)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	resp.IsVerified = true
	resp.Authorization = result.Authorization
	resp.Items = items
	respondJSON(w, http.StatusOK, resp)
}

// Confirmer settles an authorization the way a client-side processor SDK
// would. Only the simulated processor implements it.
type Confirmer interface {
	Confirm(id, shippingPostalCode string) (domain.AuthorizationStatus, error)
}

type ConfirmRequest struct {
	ShippingPostalCode string `json:"shipping_postal_code"`
}

type ConfirmResponse struct {
	Status domain.AuthorizationStatus `json:"status"`
}

func confirmHandler(confirmer Confirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}

		status, err := confirmer.Confirm(chi.URLParam(r, "authorization_id"), req.ShippingPostalCode)
		if errors.Is(err, payment.ErrAuthorizationNotFound) {
			respondError(w, http.StatusNotFound, "authorization_not_found", "authorization not found")
			return
		}
		if err != nil {
			respondDomainError(r.Context(), w, err)
			return
		}

		respondJSON(w, http.StatusOK, ConfirmResponse{Status: status})
	}
}
