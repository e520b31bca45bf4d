// Package events carries settlement notifications between the checkout flow
// and the cart closer.
package events

import (
	"context"
	"time"
)

const TopicPaymentEvents = "payment-events"

const TypePaymentSucceeded = "payment.succeeded"

type PaymentSucceeded struct {
	Type            string    `json:"type"`
	CartID          int64     `json:"cart_id"`
	AuthorizationID string    `json:"authorization_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishPaymentSucceeded(ctx context.Context, event PaymentSucceeded) error
}

// HandlerFunc consumes one event.
type HandlerFunc func(ctx context.Context, event PaymentSucceeded) error

// LocalPublisher hands events straight to a handler in-process. It is used
// when no broker is configured.
type LocalPublisher struct {
	Handle HandlerFunc
}

func (p LocalPublisher) PublishPaymentSucceeded(ctx context.Context, event PaymentSucceeded) error {
	event.Type = TypePaymentSucceeded
	return p.Handle(ctx, event)
}
