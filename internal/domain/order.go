package domain

import "time"

// Side indicates whether an order buys or sells.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Order is a limit order resting on (or removed from) an order book.
// The trader is referenced by ID only; the ledger resolves it at match
// time. Once created, the only mutations are the quantity fields and
// status: RemainingQuantity only ever decreases.
type Order struct {
	OrderID           string
	TraderID          string
	Side              Side
	Symbol            string
	Price             int64 // cents
	Quantity          int64
	RemainingQuantity int64
	Seq               uint64 // global insertion sequence, breaks price ties
	Status            OrderStatus
	CreatedAt         time.Time
	CancelledAt       *time.Time
}
