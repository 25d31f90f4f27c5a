package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesExecuted tracks simulated fills by type and outcome
	TradesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradequest_trades_executed_total",
			Help: "The total number of simulated buy/sell fills",
		},
		[]string{"type", "status"}, // buy/sell, success/failed
	)

	// QuoteRequests tracks swap quote lookups by outcome
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradequest_quote_requests_total",
			Help: "The total number of swap quote requests",
		},
		[]string{"status"}, // success, failed
	)

	// PairRefreshes tracks price-watcher refresh cycles
	PairRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradequest_pair_refreshes_total",
			Help: "The total number of pair price refresh cycles",
		},
		[]string{"status"}, // success, failed
	)

	// TradeDuration tracks end-to-end time of a buy/sell flow
	TradeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradequest_trade_duration_seconds",
		Help:    "Time taken by a complete buy/sell flow in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// OpenTrades tracks the number of open positions across wallets
	OpenTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradequest_open_trades",
		Help: "The number of currently open positions",
	})
)

// RecordTrade records a simulated fill with the given outcome
func RecordTrade(tradeType, status string) {
	TradesExecuted.WithLabelValues(tradeType, status).Inc()
}

// RecordQuoteRequest records a swap quote request
func RecordQuoteRequest(status string) {
	QuoteRequests.WithLabelValues(status).Inc()
}

// RecordPairRefresh records a watcher refresh cycle
func RecordPairRefresh(status string) {
	PairRefreshes.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
