package engine

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/store"
)

// EventSink receives engine events (trades) without the engine depending
// on the report layer directly.
type EventSink interface {
	Publish(domain.Event)
}

// Matcher implements the matching engine: order admission with balance
// reservation, continuous crossing per instrument, and cancellation.
//
// Lock discipline: the per-instrument book write lock is held for a whole
// matching pass, so passes for the same instrument never overlap while
// different instruments proceed in parallel. Trader balances are mutated
// under per-trader locks acquired in trader-ID order, so a trade touching
// two traders cannot deadlock against a concurrent trade on another
// instrument touching the same pair.
type Matcher struct {
	books       *BookManager
	traderStore *store.TraderStore
	orderStore  *store.OrderStore
	tradeStore  *store.TradeStore
	instruments *domain.InstrumentRegistry
	sink        EventSink
	seq         atomic.Uint64
}

// NewMatcher creates a new Matcher with the given dependencies.
func NewMatcher(
	books *BookManager,
	traderStore *store.TraderStore,
	orderStore *store.OrderStore,
	tradeStore *store.TradeStore,
	instruments *domain.InstrumentRegistry,
	sink EventSink,
) *Matcher {
	return &Matcher{
		books:       books,
		traderStore: traderStore,
		orderStore:  orderStore,
		tradeStore:  tradeStore,
		instruments: instruments,
		sink:        sink,
	}
}

// SubmitOrder validates the order, reserves the trader's cash or
// inventory, and inserts the order into the book in price-time priority.
// This is the only place trader solvency is checked: the match loop
// trusts that every resting order was solvent at insertion time, which
// holds because reservations are only released by fills and cancels.
//
// Returns domain.ErrInvalidOrder for non-positive price or quantity,
// domain.ErrInsufficientFunds / domain.ErrInsufficientInventory for
// business rejections, and domain.ErrTraderNotFound / domain.ErrInstrumentNotFound
// for unknown references. On rejection the book is untouched.
func (m *Matcher) SubmitOrder(order *domain.Order) error {
	if order.Price <= 0 || order.Quantity <= 0 {
		return domain.ErrInvalidOrder
	}
	if _, err := m.instruments.Get(order.Symbol); err != nil {
		return err
	}

	book := m.books.GetOrCreate(order.Symbol)

	book.mu.Lock()
	defer book.mu.Unlock()

	trader, err := m.traderStore.Get(order.TraderID)
	if err != nil {
		return err
	}

	trader.Mu.Lock()
	if order.Side == domain.SideBuy {
		required := order.Price * order.Quantity
		if trader.AvailableCash() < required {
			trader.Mu.Unlock()
			return domain.ErrInsufficientFunds
		}
		trader.ReservedCash += required
	} else {
		if trader.AvailableQuantity(order.Symbol) < order.Quantity {
			trader.Mu.Unlock()
			return domain.ErrInsufficientInventory
		}
		trader.Holding(order.Symbol).ReservedQuantity += order.Quantity
	}
	trader.Mu.Unlock()

	order.OrderID = uuid.New().String()
	order.Seq = m.seq.Add(1)
	order.CreatedAt = time.Now()
	order.RemainingQuantity = order.Quantity
	order.Status = domain.OrderStatusOpen

	m.orderStore.Create(order)
	book.Insert(OrderBookEntry{
		Price:   order.Price,
		Seq:     order.Seq,
		OrderID: order.OrderID,
		Order:   order,
	})

	return nil
}

// MatchInstrument runs the crossing loop for one instrument and returns
// the trades executed. While the best bid's price >= the best ask's
// price, it executes min(remaining, remaining) at the midpoint of the
// two limit prices, settles both traders atomically, and moves the
// instrument's reference price to the execution price.
//
// The midpoint execution price is a deliberate policy: neither side gets
// strictly the resting price, unlike the usual resting-order-wins rule.
//
// The loop is greedy and local to this instrument's book; it terminates
// when no cross remains or either side empties, so the book is never
// left crossed.
func (m *Matcher) MatchInstrument(symbol string) ([]*domain.Trade, error) {
	inst, err := m.instruments.Get(symbol)
	if err != nil {
		return nil, err
	}

	book := m.books.GetOrCreate(symbol)

	book.mu.Lock()
	defer book.mu.Unlock()

	var trades []*domain.Trade
	for {
		bid, hasBid := book.BestBid()
		ask, hasAsk := book.BestAsk()
		if !hasBid || !hasAsk {
			break
		}
		if bid.Price < ask.Price {
			break
		}

		buyOrder := bid.Order
		sellOrder := ask.Order

		fillQty := buyOrder.RemainingQuantity
		if sellOrder.RemainingQuantity < fillQty {
			fillQty = sellOrder.RemainingQuantity
		}
		executionPrice := (bid.Price + ask.Price) / 2

		m.settle(symbol, buyOrder, sellOrder, executionPrice, fillQty)

		buyOrder.RemainingQuantity -= fillQty
		sellOrder.RemainingQuantity -= fillQty
		if buyOrder.RemainingQuantity == 0 {
			buyOrder.Status = domain.OrderStatusFilled
			book.Remove(buyOrder.OrderID)
		} else {
			buyOrder.Status = domain.OrderStatusPartiallyFilled
		}
		if sellOrder.RemainingQuantity == 0 {
			sellOrder.Status = domain.OrderStatusFilled
			book.Remove(sellOrder.OrderID)
		} else {
			sellOrder.Status = domain.OrderStatusPartiallyFilled
		}

		inst.SetReferencePrice(executionPrice)

		trade := &domain.Trade{
			TradeID:      uuid.New().String(),
			Symbol:       symbol,
			Price:        executionPrice,
			Quantity:     fillQty,
			BuyTraderID:  buyOrder.TraderID,
			SellTraderID: sellOrder.TraderID,
			BuyOrderID:   buyOrder.OrderID,
			SellOrderID:  sellOrder.OrderID,
			ExecutedAt:   time.Now(),
		}
		m.tradeStore.Append(symbol, trade)
		trades = append(trades, trade)

		if m.sink != nil {
			m.sink.Publish(domain.Event{
				Type:           domain.EventTradeExecuted,
				TraderID:       trade.BuyTraderID,
				CounterpartyID: trade.SellTraderID,
				Symbol:         symbol,
				Price:          executionPrice,
				Quantity:       fillQty,
				At:             trade.ExecutedAt,
			})
		}
	}

	return trades, nil
}

// settle applies the four-way balance transfer for one trade: debit buyer
// cash, credit buyer holdings, credit seller cash, debit seller holdings.
// Both trader locks are held for the whole transfer, so no concurrent
// read can observe the intermediate state. The buyer's reservation was
// taken at the limit price; the midpoint never exceeds it, so the
// difference is released back to available cash here.
func (m *Matcher) settle(symbol string, buyOrder, sellOrder *domain.Order, price, qty int64) {
	buyer, _ := m.traderStore.Get(buyOrder.TraderID)
	seller, _ := m.traderStore.Get(sellOrder.TraderID)

	lockPair(buyer, seller)
	defer unlockPair(buyer, seller)

	buyer.Cash -= price * qty
	buyer.ReservedCash -= buyOrder.Price * qty
	buyer.Holding(symbol).Quantity += qty

	seller.Cash += price * qty
	sh := seller.Holding(symbol)
	sh.Quantity -= qty
	sh.ReservedQuantity -= qty
}

// lockPair acquires both trader locks in trader-ID order. A trader
// matching against their own order is locked once.
func lockPair(a, b *domain.Trader) {
	if a == b {
		a.Mu.Lock()
		return
	}
	if a.TraderID < b.TraderID {
		a.Mu.Lock()
		b.Mu.Lock()
	} else {
		b.Mu.Lock()
		a.Mu.Lock()
	}
}

func unlockPair(a, b *domain.Trader) {
	if a == b {
		a.Mu.Unlock()
		return
	}
	a.Mu.Unlock()
	b.Mu.Unlock()
}

// CancelOrder cancels an open or partially filled order: removes it from
// the book, releases the trader's reservation for the unfilled quantity,
// and marks the order cancelled. The simulation never cancels, but the
// operation is part of the engine's public contract.
//
// Returns domain.ErrOrderNotFound if the order does not exist and
// domain.ErrOrderNotCancellable if it is already filled or cancelled.
func (m *Matcher) CancelOrder(orderID string) (*domain.Order, error) {
	order, err := m.orderStore.Get(orderID)
	if err != nil {
		return nil, err
	}

	book := m.books.GetOrCreate(order.Symbol)
	book.mu.Lock()
	defer book.mu.Unlock()

	// Check status under the book lock: a concurrent match may have
	// filled the order since the store lookup.
	switch order.Status {
	case domain.OrderStatusOpen, domain.OrderStatusPartiallyFilled:
	default:
		return nil, domain.ErrOrderNotCancellable
	}

	book.Remove(order.OrderID)

	cancelled := order.RemainingQuantity
	now := time.Now()
	order.RemainingQuantity = 0
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now

	trader, err := m.traderStore.Get(order.TraderID)
	if err == nil {
		trader.Mu.Lock()
		if order.Side == domain.SideBuy {
			trader.ReservedCash -= order.Price * cancelled
		} else if h, ok := trader.Holdings[order.Symbol]; ok {
			h.ReservedQuantity -= cancelled
		}
		trader.Mu.Unlock()
	}

	return order, nil
}
