package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CatalogQueriesTotal counts listing queries by sort key.
	CatalogQueriesTotal *prometheus.CounterVec
	// CartSummariesTotal counts pricing summaries by outcome.
	CartSummariesTotal *prometheus.CounterVec
	// OrdersPlacedTotal counts placed orders by payment method.
	OrdersPlacedTotal *prometheus.CounterVec
	// OrderTasksTotal counts background order task outcomes.
	OrderTasksTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CatalogQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_queries_total",
			Help:      "Count of catalog listing queries by sort key.",
		}, []string{"sort"})
		CartSummariesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_summaries_total",
			Help:      "Count of cart pricing summaries by outcome.",
		}, []string{"result"})
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of placed orders by payment method.",
		}, []string{"payment_method"})
		OrderTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_tasks_total",
			Help:      "Count of processed order tasks by outcome.",
		}, []string{"result"})

		CatalogQueriesTotal = mustRegister(reg, CatalogQueriesTotal)
		CartSummariesTotal = mustRegister(reg, CartSummariesTotal)
		OrdersPlacedTotal = mustRegister(reg, OrdersPlacedTotal)
		OrderTasksTotal = mustRegister(reg, OrderTasksTotal)
	})
}

// RecordCatalogQuery increments the catalog query counter when registered.
func RecordCatalogQuery(sort string) {
	if CatalogQueriesTotal == nil {
		return
	}
	CatalogQueriesTotal.WithLabelValues(sort).Inc()
}

// RecordCartSummary increments the cart summary counter when registered.
func RecordCartSummary(result string) {
	if CartSummariesTotal == nil {
		return
	}
	CartSummariesTotal.WithLabelValues(result).Inc()
}

// RecordOrderPlaced increments the placed order counter when registered.
func RecordOrderPlaced(paymentMethod string) {
	if OrdersPlacedTotal == nil {
		return
	}
	OrdersPlacedTotal.WithLabelValues(paymentMethod).Inc()
}

// RecordOrderTask increments the order task counter when registered.
func RecordOrderTask(result string) {
	if OrderTasksTotal == nil {
		return
	}
	OrderTasksTotal.WithLabelValues(result).Inc()
}
