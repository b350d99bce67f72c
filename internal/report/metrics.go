package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Metrics holds the Prometheus collectors for the session.
type Metrics struct {
	TradesExecuted  *prometheus.CounterVec
	TradeVolume     *prometheus.CounterVec
	OrdersAccepted  *prometheus.CounterVec
	OrdersRejected  *prometheus.CounterVec
	TradersFunded   prometheus.Counter
	TradersDormant  prometheus.Counter
	ReferencePrices *prometheus.GaugeVec
}

// NewMetrics registers the session collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TradesExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketsim_trades_executed_total",
			Help: "Trades executed by the matching engine.",
		}, []string{"symbol"}),
		TradeVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketsim_trade_volume_total",
			Help: "Total quantity traded.",
		}, []string{"symbol"}),
		OrdersAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketsim_orders_accepted_total",
			Help: "Orders accepted onto a book.",
		}, []string{"side"}),
		OrdersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketsim_orders_rejected_total",
			Help: "Orders rejected at validation.",
		}, []string{"reason"}),
		TradersFunded: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketsim_traders_replenished_total",
			Help: "Exogenous funding events.",
		}),
		TradersDormant: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketsim_traders_dormant_total",
			Help: "Traders gone dormant for the session.",
		}),
		ReferencePrices: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "marketsim_reference_price_cents",
			Help: "Last-trade reference price per instrument.",
		}, []string{"symbol"}),
	}
}

// MetricsSink updates Prometheus collectors from the event stream.
type MetricsSink struct {
	metrics *Metrics
}

// NewMetricsSink creates a MetricsSink over the given collectors.
func NewMetricsSink(metrics *Metrics) *MetricsSink {
	return &MetricsSink{metrics: metrics}
}

// Publish records the event in the matching collector.
func (s *MetricsSink) Publish(e domain.Event) {
	switch e.Type {
	case domain.EventTradeExecuted:
		s.metrics.TradesExecuted.WithLabelValues(e.Symbol).Inc()
		s.metrics.TradeVolume.WithLabelValues(e.Symbol).Add(float64(e.Quantity))
		s.metrics.ReferencePrices.WithLabelValues(e.Symbol).Set(float64(e.Price))
	case domain.EventOrderAccepted:
		s.metrics.OrdersAccepted.WithLabelValues(string(e.Side)).Inc()
	case domain.EventOrderRejected:
		s.metrics.OrdersRejected.WithLabelValues(e.Reason).Inc()
	case domain.EventTraderReplenished:
		s.metrics.TradersFunded.Inc()
	case domain.EventTraderDormant:
		s.metrics.TradersDormant.Inc()
	}
}
