package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics records cart, selection and checkout activity.
type CommerceMetrics struct {
	cartMutations      *prometheus.CounterVec
	committedUnits     prometheus.Counter
	commits            *prometheus.CounterVec
	ordersPlaced       prometheus.Counter
	checkoutRejections prometheus.Counter
	decodeFailures     *prometheus.CounterVec
	analysisDuration   *prometheus.HistogramVec
}

// NewCommerceMetrics registers the commerce metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation.",
	}, []string{"op"})
	committedUnits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "selection_committed_units_total",
		Help: "Seed units moved from recommendation selections into carts.",
	})
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "selection_commits_total",
		Help: "Selection commit attempts by outcome.",
	}, []string{"outcome"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_placed_total",
		Help: "Orders confirmed at checkout.",
	})
	checkoutRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_validation_failures_total",
		Help: "Order submissions rejected for missing shipping fields.",
	})
	decodeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_decode_failures_total",
		Help: "Persisted session entries that could not be decoded.",
	}, []string{"entry"})
	analysisDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analysis_request_duration_seconds",
		Help:    "Duration of analysis backend calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(cartMutations, committedUnits, commits, ordersPlaced, checkoutRejections, decodeFailures, analysisDuration)
	return &CommerceMetrics{
		cartMutations:      cartMutations,
		committedUnits:     committedUnits,
		commits:            commits,
		ordersPlaced:       ordersPlaced,
		checkoutRejections: checkoutRejections,
		decodeFailures:     decodeFailures,
		analysisDuration:   analysisDuration,
	}
}

// IncCartMutation counts one cart mutation (add, remove, set_quantity, clear).
func (m *CommerceMetrics) IncCartMutation(op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveCommit records a selection commit and the units it added.
func (m *CommerceMetrics) ObserveCommit(units int64) {
	if m == nil || m.commits == nil {
		return
	}
	if units <= 0 {
		m.commits.WithLabelValues("empty").Inc()
		return
	}
	m.commits.WithLabelValues("committed").Inc()
	m.committedUnits.Add(float64(units))
}

// IncOrderPlaced counts a confirmed order.
func (m *CommerceMetrics) IncOrderPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// IncCheckoutRejected counts an order submission rejected by field validation.
func (m *CommerceMetrics) IncCheckoutRejected() {
	if m == nil || m.checkoutRejections == nil {
		return
	}
	m.checkoutRejections.Inc()
}

// IncDecodeFailure counts an unreadable persisted entry.
func (m *CommerceMetrics) IncDecodeFailure(entry string) {
	if m == nil || m.decodeFailures == nil {
		return
	}
	m.decodeFailures.WithLabelValues(normalizeLabel(entry)).Inc()
}

// ObserveAnalysis records the duration of an analysis backend call.
func (m *CommerceMetrics) ObserveAnalysis(outcome string, duration time.Duration) {
	if m == nil || m.analysisDuration == nil {
		return
	}
	m.analysisDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
