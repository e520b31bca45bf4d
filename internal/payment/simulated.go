package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/google/uuid"
)

// OutcomeSource decides how a simulated payment confirmation ends.
type OutcomeSource interface {
	Outcome() domain.AuthorizationStatus
}

// RandomOutcome settles 95% of confirmations and cancels the rest.
type RandomOutcome struct{}

func (RandomOutcome) Outcome() domain.AuthorizationStatus {
	return outcomeFor(rand.IntN(100))
}

func outcomeFor(roll int) domain.AuthorizationStatus {
	if roll < 95 {
		return domain.AuthorizationStatusSucceeded
	}
	return domain.AuthorizationStatusCanceled
}

// SimulatedProcessor keeps authorizations in memory. It backs local runs
// without processor credentials; Confirm stands in for the customer
// completing payment on the processor's page.
type SimulatedProcessor struct {
	mu      sync.RWMutex
	outcome OutcomeSource
	auths   map[string]*domain.Authorization
}

func NewSimulatedProcessor(outcome OutcomeSource) *SimulatedProcessor {
	return &SimulatedProcessor{
		outcome: outcome,
		auths:   make(map[string]*domain.Authorization),
	}
}

func (p *SimulatedProcessor) CreateAuthorization(ctx context.Context, params domain.AuthorizationParams) (*domain.Authorization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.Amount < 0 {
		return nil, fmt.Errorf("amount must not be negative: %d", params.Amount)
	}

	id := "pi_sim_" + uuid.NewString()
	auth := &domain.Authorization{
		ID:           id,
		Amount:       params.Amount,
		Currency:     params.Currency,
		Status:       domain.AuthorizationStatusRequiresPaymentMethod,
		ClientSecret: id + "_secret_" + uuid.NewString()[:8],
		Metadata:     make(map[string]string, len(params.Metadata)),
	}
	for k, v := range params.Metadata {
		auth.Metadata[k] = v
	}

	p.mu.Lock()
	p.auths[id] = auth
	p.mu.Unlock()

	return copyAuthorization(auth), nil
}

func (p *SimulatedProcessor) RetrieveAuthorization(ctx context.Context, id string) (*domain.Authorization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	auth, ok := p.auths[id]
	if !ok {
		return nil, ErrAuthorizationNotFound
	}
	return copyAuthorization(auth), nil
}

// Confirm records the shipping postal code and moves the authorization to
// its final status.
func (p *SimulatedProcessor) Confirm(id, shippingPostalCode string) (domain.AuthorizationStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	auth, ok := p.auths[id]
	if !ok {
		return "", ErrAuthorizationNotFound
	}
	if auth.Status != domain.AuthorizationStatusRequiresPaymentMethod {
		return auth.Status, nil
	}
	auth.ShippingPostalCode = shippingPostalCode
	auth.Status = p.outcome.Outcome()
	return auth.Status, nil
}

func copyAuthorization(a *domain.Authorization) *domain.Authorization {
	cp := *a
	cp.Metadata = make(map[string]string, len(a.Metadata))
	for k, v := range a.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}
