package domain

import "time"

// Trade represents a matched execution between a buy and a sell order.
// Trades are produced by the matching engine, published to the event
// sinks, and appended to the trade store for the observation endpoints.
type Trade struct {
	TradeID      string
	Symbol       string
	Price        int64 // cents; midpoint of the two limit prices
	Quantity     int64
	BuyTraderID  string
	SellTraderID string
	BuyOrderID   string
	SellOrderID  string
	ExecutedAt   time.Time
}
