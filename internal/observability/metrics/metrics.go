// Package metrics exposes the prometheus instruments for the sale and
// stock write paths. Scraped via /metrics on the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Provide(Default)

type Metrics struct {
	SalesCreated           prometheus.Counter
	SalesUpdated           prometheus.Counter
	StockAdjustments       *prometheus.CounterVec
	InvoiceNumberConflicts prometheus.Counter
}

func Default() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SalesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tillpoint_sales_created_total",
			Help: "Sales successfully created.",
		}),
		SalesUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tillpoint_sales_updated_total",
			Help: "Sales successfully updated.",
		}),
		StockAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tillpoint_stock_adjustments_total",
			Help: "Atomic stock deltas applied, by direction.",
		}, []string{"direction"}),
		InvoiceNumberConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tillpoint_invoice_number_conflicts_total",
			Help: "Invoice number collisions recovered by regeneration.",
		}),
	}
	reg.MustRegister(m.SalesCreated, m.SalesUpdated, m.StockAdjustments, m.InvoiceNumberConflicts)
	return m
}

func (m *Metrics) RecordStockDelta(delta int64) {
	if delta == 0 {
		return
	}
	direction := "decrement"
	if delta > 0 {
		direction = "increment"
	}
	m.StockAdjustments.WithLabelValues(direction).Inc()
}
