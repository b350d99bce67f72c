// Package report carries the session's event stream to its consumers:
// the structured log and the Prometheus metrics endpoint. The engine and
// driver publish domain.Event values through a Sink without knowing who
// listens.
package report

import (
	"log/slog"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Sink consumes session events.
type Sink interface {
	Publish(domain.Event)
}

// MultiSink fans one event out to several sinks in order.
type MultiSink []Sink

// Publish delivers the event to every sink.
func (m MultiSink) Publish(e domain.Event) {
	for _, s := range m {
		s.Publish(e)
	}
}

// LogSink writes every event to a slog.Logger, one line per event.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink writing to the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs the event with fields matching its type.
func (s *LogSink) Publish(e domain.Event) {
	switch e.Type {
	case domain.EventTradeExecuted:
		s.logger.Info("trade executed",
			slog.String("symbol", e.Symbol),
			slog.String("price", domain.FormatCents(e.Price)),
			slog.Int64("quantity", e.Quantity),
			slog.String("buyer", e.TraderID),
			slog.String("seller", e.CounterpartyID),
		)
	case domain.EventOrderAccepted:
		s.logger.Info("order placed",
			slog.String("trader", e.TraderID),
			slog.String("side", string(e.Side)),
			slog.String("symbol", e.Symbol),
			slog.String("price", domain.FormatCents(e.Price)),
			slog.Int64("quantity", e.Quantity),
		)
	case domain.EventOrderRejected:
		s.logger.Info("order rejected",
			slog.String("trader", e.TraderID),
			slog.String("side", string(e.Side)),
			slog.String("symbol", e.Symbol),
			slog.String("reason", e.Reason),
		)
	case domain.EventTraderReplenished:
		s.logger.Info("trader replenished",
			slog.String("trader", e.TraderID),
			slog.String("amount", domain.FormatCents(e.Amount)),
		)
	case domain.EventTraderDormant:
		s.logger.Info("trader dormant",
			slog.String("trader", e.TraderID),
		)
	case domain.EventFinalValuation:
		s.logger.Info("final portfolio value",
			slog.String("trader", e.TraderID),
			slog.String("value", domain.FormatCents(e.Amount)),
		)
	default:
		s.logger.Info("event",
			slog.String("type", string(e.Type)),
			slog.String("trader", e.TraderID),
		)
	}
}
