package ledger

import (
	"errors"
	"fmt"

	"bar-backtester/internal/types"
)

var (
	ErrInsufficientCash       = errors.New("insufficient cash")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrIllegalFlip            = errors.New("direct long/short flip")
	ErrInvalidOrder           = errors.New("invalid order")
	ErrNoPrice                = errors.New("no price for symbol")
)

// RejectionError is returned when an order fails validation. The ledger is
// left untouched; callers treat it as "no fill" and carry on.
type RejectionError struct {
	Order types.Order
	Err   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order rejected: %s %s x%d: %v", e.Order.Direction, e.Order.Symbol, e.Order.Quantity, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(order types.Order, err error) error {
	return &RejectionError{Order: order, Err: err}
}

// IsRejection reports whether err is an order rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
