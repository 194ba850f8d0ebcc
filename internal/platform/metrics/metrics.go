package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager holds the storefront's Prometheus collectors.
type MetricsManager struct {
	Registry         *prometheus.Registry
	CheckoutOutcomes *prometheus.CounterVec
	CartMutations    *prometheus.CounterVec
	CatalogPurges    prometheus.Counter
	MarketAPILatency *prometheus.HistogramVec
	MarketAPIErrors  *prometheus.CounterVec
}

func NewMetricsManager(serviceName string) *MetricsManager {
	registry := prometheus.NewRegistry()

	checkoutOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "checkout_outcomes_total",
		Help:      "Checkout attempts by final state.",
	}, []string{"state"})
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	catalogPurges := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "catalog_zero_stock_purges_total",
		Help:      "Listings removed from the catalog because their stock reached zero.",
	})
	marketAPILatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: serviceName,
		Name:      "market_api_request_seconds",
		Help:      "Latency of remote market API calls by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	marketAPIErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "market_api_errors_total",
		Help:      "Remote market API errors by operation and error kind.",
	}, []string{"op", "kind"})

	registry.MustRegister(
		checkoutOutcomes,
		cartMutations,
		catalogPurges,
		marketAPILatency,
		marketAPIErrors,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &MetricsManager{
		Registry:         registry,
		CheckoutOutcomes: checkoutOutcomes,
		CartMutations:    cartMutations,
		CatalogPurges:    catalogPurges,
		MarketAPILatency: marketAPILatency,
		MarketAPIErrors:  marketAPIErrors,
	}
}

// ObserveMarketCall records one remote call. kind is empty on success.
func (m *MetricsManager) ObserveMarketCall(op string, started time.Time, kind string) {
	if m == nil {
		return
	}
	m.MarketAPILatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if kind != "" {
		m.MarketAPIErrors.WithLabelValues(op, kind).Inc()
	}
}

func (m *MetricsManager) ObserveCartMutation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CartMutations.WithLabelValues(op, result).Inc()
}

func (m *MetricsManager) ObserveCheckout(state string) {
	if m == nil {
		return
	}
	m.CheckoutOutcomes.WithLabelValues(state).Inc()
}

func (m *MetricsManager) ObservePurge() {
	if m == nil {
		return
	}
	m.CatalogPurges.Inc()
}

// NewMetricsServer builds the /metrics server. A blank port yields nil.
func NewMetricsServer(port string, registry *prometheus.Registry) *http.Server {
	if port == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func StartMetricsServer(srv *http.Server, log logger.Logger) {
	if srv == nil {
		log.Info("Prometheus metrics server port not configured, server will not start.")
		return
	}
	log.Infof("Prometheus metrics server starting on %s/metrics", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("Metrics server failed: %v", err)
	}
}
