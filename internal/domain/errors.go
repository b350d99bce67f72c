package domain

import "errors"

// Sentinel errors for domain-level error handling. Business rejections
// (insufficient funds/inventory) are expected outcomes that keep the
// session running; the report layer classifies them for the event stream.
var (
	ErrTraderAlreadyExists   = errors.New("trader_already_exists")
	ErrTraderNotFound        = errors.New("trader_not_found")
	ErrInstrumentNotFound    = errors.New("instrument_not_found")
	ErrOrderNotFound         = errors.New("order_not_found")
	ErrOrderNotCancellable   = errors.New("order_not_cancellable")
	ErrInvalidOrder          = errors.New("invalid_order")
	ErrInsufficientFunds     = errors.New("insufficient_funds")
	ErrInsufficientInventory = errors.New("insufficient_inventory")
)

// ValidationError represents an input validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
