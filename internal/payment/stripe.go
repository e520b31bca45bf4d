package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// intentClient is the slice of the Stripe payment intents API in use.
type intentClient interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type StripeProcessor struct {
	intents intentClient
}

func NewStripeProcessor(secretKey string) *StripeProcessor {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeProcessor{intents: sc.PaymentIntents}
}

func (p *StripeProcessor) CreateAuthorization(ctx context.Context, params domain.AuthorizationParams) (*domain.Authorization, error) {
	sp := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.Amount),
		Currency: stripe.String(params.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	sp.Context = ctx
	for k, v := range params.Metadata {
		sp.AddMetadata(k, v)
	}

	pi, err := p.intents.New(sp)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return toAuthorization(pi), nil
}

func (p *StripeProcessor) RetrieveAuthorization(ctx context.Context, id string) (*domain.Authorization, error) {
	sp := &stripe.PaymentIntentParams{}
	sp.Context = ctx

	pi, err := p.intents.Get(id, sp)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrAuthorizationNotFound
		}
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	return toAuthorization(pi), nil
}

func toAuthorization(pi *stripe.PaymentIntent) *domain.Authorization {
	auth := &domain.Authorization{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       domain.AuthorizationStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
		Metadata:     pi.Metadata,
	}
	if pi.Shipping != nil && pi.Shipping.Address != nil {
		auth.ShippingPostalCode = pi.Shipping.Address.PostalCode
	}
	return auth
}
