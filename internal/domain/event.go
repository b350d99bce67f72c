package domain

import "time"

// EventType classifies entries in the session's event stream.
type EventType string

const (
	EventOrderAccepted     EventType = "order_accepted"
	EventOrderRejected     EventType = "order_rejected"
	EventTradeExecuted     EventType = "trade_executed"
	EventTraderReplenished EventType = "trader_replenished"
	EventTraderDormant     EventType = "trader_dormant"
	EventFinalValuation    EventType = "final_valuation"
)

// Event is a single entry in the session's event stream. Not every field
// is set for every type: trades carry both trader IDs and a price,
// rejections carry a reason, funding and valuation events carry an amount.
type Event struct {
	Type           EventType
	TraderID       string
	CounterpartyID string // selling trader on trade_executed
	Symbol         string
	Side           Side
	Price          int64 // cents
	Quantity       int64
	Amount         int64 // cents; deposit or portfolio value
	Reason         string
	At             time.Time
}
