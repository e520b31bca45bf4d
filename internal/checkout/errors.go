package checkout

import (
	"errors"
	"fmt"

	"github.com/LoganXav/Nexmart/internal/domain"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindProcessor    ErrorKind = "processor"
	KindStorage      ErrorKind = "storage"
	KindVerification ErrorKind = "verification"
)

var (
	ErrEmptyCheckout = errors.New("nothing to check out")
	ErrNoCart        = errors.New("no cart bound to session")
	ErrCartClosed    = errors.New("cart is already paid")
	ErrNotSucceeded  = errors.New("authorization has not succeeded")
	ErrNotBound      = errors.New("authorization is not bound to this session")
)

// PaymentError is the cause behind a null client secret or a failed
// verification.
type PaymentError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func (e *PaymentError) Is(target error) bool {
	switch e.Kind {
	case KindProcessor:
		return target == domain.ErrPaymentProcessor
	case KindVerification:
		return target == domain.ErrVerificationFailed
	}
	return false
}

func newPaymentError(op string, kind ErrorKind, err error) *PaymentError {
	return &PaymentError{Kind: kind, Op: op, Err: err}
}
