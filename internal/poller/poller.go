// Package poller consumes settlement events and closes the settled carts.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/LoganXav/Nexmart/internal/events"
	"github.com/segmentio/kafka-go"
)

const consumerGroup = "storefront-cart-closer"

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CartCloser interface {
	CloseCart(ctx context.Context, cartID int64) error
}

type Poller struct {
	reader  MessageReader
	closer  CartCloser
	backoff time.Duration
}

func NewKafkaReader(brokers []string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    events.TopicPaymentEvents,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(closer CartCloser, reader MessageReader) *Poller {
	return &Poller{reader: reader, closer: closer, backoff: time.Second}
}

// Run consumes until ctx is done. A message is committed once handled, or
// once it proves unreadable.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.poll(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "poll payment events", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		slog.Error("error closing reader", slog.Any("error", err))
	}
}

func (p *Poller) poll(ctx context.Context) error {
	m, err := p.reader.FetchMessage(ctx)
	if err != nil {
		return fmt.Errorf("fetch message: %w", err)
	}

	var event events.PaymentSucceeded
	if errUnmarshal := json.Unmarshal(m.Value, &event); errUnmarshal != nil {
		slog.WarnContext(ctx, "skipping malformed payment event",
			slog.Int64("offset", m.Offset),
			slog.Any("error", errUnmarshal))
		return p.reader.CommitMessages(ctx, m)
	}

	if event.Type != events.TypePaymentSucceeded {
		return p.reader.CommitMessages(ctx, m)
	}

	if err := p.Handle(ctx, event); err != nil {
		return err
	}
	return p.reader.CommitMessages(ctx, m)
}

// Handle closes the cart named by the event. Carts that are already gone
// count as handled.
func (p *Poller) Handle(ctx context.Context, event events.PaymentSucceeded) error {
	err := p.closer.CloseCart(ctx, event.CartID)
	if errors.Is(err, domain.ErrCartNotFound) {
		slog.InfoContext(ctx, "settled cart already gone", slog.Int64("cart_id", event.CartID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("close cart %d: %w", event.CartID, err)
	}

	slog.InfoContext(ctx, "cart closed after settlement",
		slog.Int64("cart_id", event.CartID),
		slog.String("authorization_id", event.AuthorizationID))
	return nil
}
