package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/store"
)

// captureSink records published events for assertions.
type captureSink struct {
	events []domain.Event
}

func (c *captureSink) Publish(e domain.Event) {
	c.events = append(c.events, e)
}

// newTestMatcher creates a Matcher with fresh stores and one registered
// instrument (AAPL at $120.00).
func newTestMatcher() (*Matcher, *store.TraderStore, *domain.InstrumentRegistry, *captureSink) {
	books := NewBookManager()
	traderStore := store.NewTraderStore()
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()
	instruments := domain.NewInstrumentRegistry()
	_ = instruments.Register("AAPL", 12000)
	sink := &captureSink{}
	m := NewMatcher(books, traderStore, orderStore, tradeStore, instruments, sink)
	return m, traderStore, instruments, sink
}

// registerTrader is a helper that creates and stores an active trader.
func registerTrader(ts *store.TraderStore, id string, cash int64, holdings map[string]*domain.Holding) *domain.Trader {
	if holdings == nil {
		holdings = make(map[string]*domain.Holding)
	}
	tr := &domain.Trader{
		TraderID:  id,
		Cash:      cash,
		Holdings:  holdings,
		State:     domain.TraderStateActive,
		CreatedAt: time.Now(),
	}
	_ = ts.Create(tr)
	return tr
}

// newOrder creates an order struct (not yet submitted).
func newOrder(traderID string, side domain.Side, symbol string, price, qty int64) *domain.Order {
	return &domain.Order{
		TraderID: traderID,
		Side:     side,
		Symbol:   symbol,
		Price:    price,
		Quantity: qty,
	}
}

func TestSubmitOrder_InvalidOrder(t *testing.T) {
	m, ts, _, _ := newTestMatcher()
	registerTrader(ts, "t1", 1_000_000, nil)

	tests := []struct {
		name  string
		price int64
		qty   int64
	}{
		{"zero price", 0, 100},
		{"negative price", -100, 100},
		{"zero quantity", 10000, 0},
		{"negative quantity", 10000, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.SubmitOrder(newOrder("t1", domain.SideBuy, "AAPL", tt.price, tt.qty))
			if !errors.Is(err, domain.ErrInvalidOrder) {
				t.Errorf("SubmitOrder() error = %v, want ErrInvalidOrder", err)
			}
		})
	}

	book := m.books.GetOrCreate("AAPL")
	if book.BidCount() != 0 || book.AskCount() != 0 {
		t.Error("rejected orders must not touch the book")
	}
}

func TestSubmitOrder_UnknownReferences(t *testing.T) {
	m, ts, _, _ := newTestMatcher()
	registerTrader(ts, "t1", 1_000_000, nil)

	err := m.SubmitOrder(newOrder("t1", domain.SideBuy, "NOPE", 10000, 10))
	if !errors.Is(err, domain.ErrInstrumentNotFound) {
		t.Errorf("unknown symbol error = %v, want ErrInstrumentNotFound", err)
	}

	err = m.SubmitOrder(newOrder("ghost", domain.SideBuy, "AAPL", 10000, 10))
	if !errors.Is(err, domain.ErrTraderNotFound) {
		t.Errorf("unknown trader error = %v, want ErrTraderNotFound", err)
	}
}

func TestSubmitOrder_InsufficientFunds(t *testing.T) {
	m, ts, _, _ := newTestMatcher()
	// $500 of cash against a ~$120 × 1000 buy.
	tr := registerTrader(ts, "c", 500_00, nil)

	err := m.SubmitOrder(newOrder("c", domain.SideBuy, "AAPL", 12000, 1000))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("SubmitOrder() error = %v, want ErrInsufficientFunds", err)
	}
	if tr.ReservedCash != 0 {
		t.Errorf("ReservedCash = %d after rejection, want 0", tr.ReservedCash)
	}

	book := m.books.GetOrCreate("AAPL")
	if book.BidCount() != 0 {
		t.Error("rejected buy must not rest on the book")
	}
}

func TestSubmitOrder_InsufficientInventory(t *testing.T) {
	m, ts, _, _ := newTestMatcher()
	registerTrader(ts, "c", 500_00, nil) // no holdings at all

	err := m.SubmitOrder(newOrder("c", domain.SideSell, "AAPL", 12000, 1000))
	if !errors.Is(err, domain.ErrInsufficientInventory) {
		t.Fatalf("SubmitOrder() error = %v, want ErrInsufficientInventory", err)
	}

	book := m.books.GetOrCreate("AAPL")
	if book.AskCount() != 0 {
		t.Error("rejected sell must not rest on the book")
	}
}

func TestSubmitOrder_ReservesBalances(t *testing.T) {
	m, ts, _, _ := newTestMatcher()
	buyer := registerTrader(ts, "b", 200_000_00, nil)
	seller := registerTrader(ts, "s", 0, map[string]*domain.Holding{
		"AAPL": {Quantity: 2000},
	})

	if err := m.SubmitOrder(newOrder("b", domain.SideBuy, "AAPL", 11400, 1000)); err != nil {
		t.Fatalf("buy error: %v", err)
	}
	if buyer.ReservedCash != 11400*1000 {
		t.Errorf("buyer.ReservedCash = %d, want %d", buyer.ReservedCash, int64(11400*1000))
	}

	if err := m.SubmitOrder(newOrder("s", domain.SideSell, "AAPL", 12600, 1000)); err != nil {
		t.Fatalf("sell error: %v", err)
	}
	if seller.Holdings["AAPL"].ReservedQuantity != 1000 {
		t.Errorf("seller reserved qty = %d, want 1000", seller.Holdings["AAPL"].ReservedQuantity)
	}
}

func TestMatchInstrument_MidpointExecution(t *testing.T) {
	m, ts, instruments, sink := newTestMatcher()
	buyer := registerTrader(ts, "a", 200_000_00, nil)
	seller := registerTrader(ts, "b", 0, map[string]*domain.Holding{
		"AAPL": {Quantity: 2000},
	})

	// Buy at $126 against sell at $114: crossed, midpoint is $120.
	if err := m.SubmitOrder(newOrder("a", domain.SideBuy, "AAPL", 12600, 1000)); err != nil {
		t.Fatalf("buy error: %v", err)
	}
	if err := m.SubmitOrder(newOrder("b", domain.SideSell, "AAPL", 11400, 1000)); err != nil {
		t.Fatalf("sell error: %v", err)
	}

	trades, err := m.MatchInstrument("AAPL")
	if err != nil {
		t.Fatalf("MatchInstrument() error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	tr := trades[0]
	if tr.Price != 12000 {
		t.Errorf("execution price = %d, want 12000 (midpoint)", tr.Price)
	}
	if tr.Quantity != 1000 {
		t.Errorf("quantity = %d, want 1000", tr.Quantity)
	}

	// Buyer: cash down by price×qty, holdings up by qty, reservation cleared.
	if buyer.Cash != 200_000_00-12000*1000 {
		t.Errorf("buyer.Cash = %d, want %d", buyer.Cash, int64(200_000_00-12000*1000))
	}
	if buyer.ReservedCash != 0 {
		t.Errorf("buyer.ReservedCash = %d, want 0", buyer.ReservedCash)
	}
	if buyer.Holdings["AAPL"].Quantity != 1000 {
		t.Errorf("buyer holdings = %d, want 1000", buyer.Holdings["AAPL"].Quantity)
	}

	// Seller: cash up by price×qty, holdings and reservation down by qty.
	if seller.Cash != 12000*1000 {
		t.Errorf("seller.Cash = %d, want %d", seller.Cash, int64(12000*1000))
	}
	if seller.Holdings["AAPL"].Quantity != 1000 {
		t.Errorf("seller holdings = %d, want 1000", seller.Holdings["AAPL"].Quantity)
	}
	if seller.Holdings["AAPL"].ReservedQuantity != 0 {
		t.Errorf("seller reserved qty = %d, want 0", seller.Holdings["AAPL"].ReservedQuantity)
	}

	// Reference price moved to the execution price.
	inst, _ := instruments.Get("AAPL")
	if inst.ReferencePrice() != 12000 {
		t.Errorf("reference price = %d, want 12000", inst.ReferencePrice())
	}

	// Book emptied; trade event published.
	book := m.books.GetOrCreate("AAPL")
	if book.BidCount() != 0 || book.AskCount() != 0 {
		t.Error("book should be empty after full fill")
	}
	var tradeEvents int
	for _, e := range sink.events {
		if e.Type == domain.EventTradeExecuted {
			tradeEvents++
		}
	}
	if tradeEvents != 1 {
		t.Errorf("trade events published = %d, want 1", tradeEvents)
	}
}

func TestMatchInstrument_PriceTimePriority(t *testing.T) {
	m, ts, _, _ := newTestMatcher()
	registerTrader(ts, "b1", 200_000_00, nil)
	registerTrader(ts, "b2", 200_000_00, nil)
	registerTrader(ts, "s", 0, map[string]*domain.Holding{
		"AAPL": {Quantity: 1000},
	})

	// Two buys at the same price; the earlier one must fill first.
	first := newOrder("b1", domain.SideBuy, "AAPL", 12000, 1000)
	second := newOrder("b2", domain.SideBuy, "AAPL", 12000, 1000)
	if err := m.SubmitOrder(first); err != nil {
		t.Fatalf("first buy error: %v", err)
	}
	if err := m.SubmitOrder(second); err != nil {
		t.Fatalf("second buy error: %v", err)
	}
	// One sell crossing both, sized for one lot.
	if err := m.SubmitOrder(newOrder("s", domain.SideSell, "AAPL", 11000, 1000)); err != nil {
		t.Fatalf("sell error: %v", err)
	}

	trades, err := m.MatchInstrument("AAPL")
	if err != nil {
		t.Fatalf("MatchInstrument() error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].BuyTraderID != "b1" {
		t.Errorf("filled buyer = %s, want b1 (earlier at equal price)", trades[0].BuyTraderID)
	}
	if first.Status != domain.OrderStatusFilled {
		t.Errorf("first order status = %s, want filled", first.Status)
	}
	if second.Status != domain.OrderStatusOpen {
		t.Errorf("second order status = %s, want open", second.Status)
	}
}

func TestMatchInstrument_NoCross_NoOp(t *testing.T) {
	m, ts, instruments, _ := newTestMatcher()
	registerTrader(ts, "b", 200_000_00, nil)
	registerTrader(ts, "s", 0, map[string]*domain.Holding{
		"AAPL": {Quantity: 2000},
	})

	buy := newOrder("b", domain.SideBuy, "AAPL", 11000, 1000)
	sell := newOrder("s", domain.SideSell, "AAPL", 13000, 1000)
	if err := m.SubmitOrder(buy); err != nil {
		t.Fatalf("buy error: %v", err)
	}
	if err := m.SubmitOrder(sell); err != nil {
		t.Fatalf("sell error: %v", err)
	}

	trades, err := m.MatchInstrument("AAPL")
	if err != nil {
		t.Fatalf("MatchInstrument() error: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("expected 0 trades, got %d", len(trades))
	}

	book := m.books.GetOrCreate("AAPL")
	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	if bid.OrderID != buy.OrderID || ask.OrderID != sell.OrderID {
		t.Error("book contents changed on a no-op match")
	}
	if buy.RemainingQuantity != 1000 || sell.RemainingQuantity != 1000 {
		t.Error("remaining quantities changed on a no-op match")
	}

	inst, _ := instruments.Get("AAPL")
	if inst.ReferencePrice() != 12000 {
		t.Errorf("reference price = %d, want unchanged 12000", inst.ReferencePrice())
	}
}

func TestMatchInstrument_PartialFill(t *testing.T) {
	m, ts, _, _ := newTestMatcher()
	buyer := registerTrader(ts, "b", 200_000_00, nil)
	registerTrader(ts, "s", 0, map[string]*domain.Holding{
		"AAPL": {Quantity: 400},
	})

	buy := newOrder("b", domain.SideBuy, "AAPL", 12000, 1000)
	sell := newOrder("s", domain.SideSell, "AAPL", 12000, 400)
	if err := m.SubmitOrder(buy); err != nil {
		t.Fatalf("buy error: %v", err)
	}
	if err := m.SubmitOrder(sell); err != nil {
		t.Fatalf("sell error: %v", err)
	}

	trades, err := m.MatchInstrument("AAPL")
	if err != nil {
		t.Fatalf("MatchInstrument() error: %v", err)
	}
	if len(trades) != 1 || trades[0].Quantity != 400 {
		t.Fatalf("expected one trade of 400, got %+v", trades)
	}

	if buy.RemainingQuantity != 600 {
		t.Errorf("buy remaining = %d, want 600", buy.RemainingQuantity)
	}
	if buy.Status != domain.OrderStatusPartiallyFilled {
		t.Errorf("buy status = %s, want partially_filled", buy.Status)
	}
	if sell.Status != domain.OrderStatusFilled {
		t.Errorf("sell status = %s, want filled", sell.Status)
	}

	// Remainder of the buy still rests; reservation covers it.
	book := m.books.GetOrCreate("AAPL")
	if book.BidCount() != 1 || book.AskCount() != 0 {
		t.Errorf("book = %d bids / %d asks, want 1/0", book.BidCount(), book.AskCount())
	}
	if buyer.ReservedCash != 12000*600 {
		t.Errorf("buyer.ReservedCash = %d, want %d", buyer.ReservedCash, int64(12000*600))
	}
}

func TestMatchInstrument_SelfTrade(t *testing.T) {
	m, ts, _, _ := newTestMatcher()
	tr := registerTrader(ts, "solo", 200_000_00, map[string]*domain.Holding{
		"AAPL": {Quantity: 1000},
	})

	if err := m.SubmitOrder(newOrder("solo", domain.SideBuy, "AAPL", 12600, 1000)); err != nil {
		t.Fatalf("buy error: %v", err)
	}
	if err := m.SubmitOrder(newOrder("solo", domain.SideSell, "AAPL", 11400, 1000)); err != nil {
		t.Fatalf("sell error: %v", err)
	}

	trades, err := m.MatchInstrument("AAPL")
	if err != nil {
		t.Fatalf("MatchInstrument() error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	// Self-trade nets to zero: cash and holdings unchanged, reservations cleared.
	if tr.Cash != 200_000_00 {
		t.Errorf("cash = %d, want unchanged 200_000_00", tr.Cash)
	}
	if tr.ReservedCash != 0 {
		t.Errorf("reserved cash = %d, want 0", tr.ReservedCash)
	}
	if tr.Holdings["AAPL"].Quantity != 1000 {
		t.Errorf("holdings = %d, want unchanged 1000", tr.Holdings["AAPL"].Quantity)
	}
	if tr.Holdings["AAPL"].ReservedQuantity != 0 {
		t.Errorf("reserved qty = %d, want 0", tr.Holdings["AAPL"].ReservedQuantity)
	}
}

func TestMatchInstrument_UnknownSymbol(t *testing.T) {
	m, _, _, _ := newTestMatcher()
	_, err := m.MatchInstrument("NOPE")
	if !errors.Is(err, domain.ErrInstrumentNotFound) {
		t.Errorf("MatchInstrument(NOPE) error = %v, want ErrInstrumentNotFound", err)
	}
}

func TestCancelOrder(t *testing.T) {
	m, ts, _, _ := newTestMatcher()
	buyer := registerTrader(ts, "b", 200_000_00, nil)

	order := newOrder("b", domain.SideBuy, "AAPL", 12000, 1000)
	if err := m.SubmitOrder(order); err != nil {
		t.Fatalf("buy error: %v", err)
	}

	cancelled, err := m.CancelOrder(order.OrderID)
	if err != nil {
		t.Fatalf("CancelOrder() error: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.RemainingQuantity != 0 {
		t.Errorf("remaining = %d, want 0", cancelled.RemainingQuantity)
	}
	if buyer.ReservedCash != 0 {
		t.Errorf("reserved cash = %d after cancel, want 0", buyer.ReservedCash)
	}

	book := m.books.GetOrCreate("AAPL")
	if book.BidCount() != 0 {
		t.Error("cancelled order still on the book")
	}

	// A second cancel is rejected.
	if _, err := m.CancelOrder(order.OrderID); !errors.Is(err, domain.ErrOrderNotCancellable) {
		t.Errorf("second cancel error = %v, want ErrOrderNotCancellable", err)
	}
}

func TestCancelOrder_NotFound(t *testing.T) {
	m, _, _, _ := newTestMatcher()
	if _, err := m.CancelOrder("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("CancelOrder(missing) error = %v, want ErrOrderNotFound", err)
	}
}
