// Package payment talks to the external payment processor.
package payment

import (
	"context"
	"errors"

	"github.com/LoganXav/Nexmart/internal/domain"
)

var (
	ErrAuthorizationNotFound = errors.New("authorization not found")
	ErrProcessorUnavailable  = errors.New("payment processor unavailable")
)

// Processor creates and reads authorizations. Records on the processor side
// are never modified from here.
type Processor interface {
	CreateAuthorization(ctx context.Context, params domain.AuthorizationParams) (*domain.Authorization, error)
	RetrieveAuthorization(ctx context.Context, id string) (*domain.Authorization, error)
}
