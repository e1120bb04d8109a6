package cloudmetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// CloudMetrics aggregates settlement accounting counters on a dedicated
// registry and ships them through the configured Pusher. It is separate from
// the OTLP pipeline so the accounting feed keeps working when tracing is off.
type CloudMetrics struct {
	registry *prometheus.Registry
	pusher   Pusher
	logger   *zap.Logger

	settlements      *prometheus.CounterVec
	settlementAmount *prometheus.CounterVec
	refunds          *prometheus.CounterVec
	paidSales        prometheus.Gauge
	memoryBytes      prometheus.Gauge
}

func New(registry *prometheus.Registry, pusher Pusher, instanceID, version string, logger *zap.Logger) *CloudMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	constLabels := prometheus.Labels{
		"instance_id": instanceID,
		"version":     version,
	}

	c := &CloudMetrics{
		registry: registry,
		pusher:   pusher,
		logger:   logger,
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "bemynet_cloud_settlements_total",
			Help:        "Settled payments by provider.",
			ConstLabels: constLabels,
		}, []string{"provider"}),
		settlementAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "bemynet_cloud_settlement_amount_minor_total",
			Help:        "Gross settled amount in minor units by provider and currency.",
			ConstLabels: constLabels,
		}, []string{"provider", "currency"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "bemynet_cloud_refunds_total",
			Help:        "Refunded payments by provider.",
			ConstLabels: constLabels,
		}, []string{"provider"}),
		paidSales: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "bemynet_cloud_paid_sales",
			Help:        "Number of sales currently in the paid state.",
			ConstLabels: constLabels,
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "bemynet_cloud_memory_bytes",
			Help:        "Memory obtained from the OS by the process.",
			ConstLabels: constLabels,
		}),
	}

	registry.MustRegister(c.settlements, c.settlementAmount, c.refunds, c.paidSales, c.memoryBytes)
	return c
}

func (c *CloudMetrics) RecordSettlement(provider, currency string, amount int64) {
	if c == nil {
		return
	}
	provider = normalizeLabel(provider)
	c.settlements.WithLabelValues(provider).Inc()
	if amount > 0 {
		c.settlementAmount.WithLabelValues(provider, normalizeLabel(currency)).Add(float64(amount))
	}
}

func (c *CloudMetrics) RecordRefund(provider string) {
	if c == nil {
		return
	}
	c.refunds.WithLabelValues(normalizeLabel(provider)).Inc()
}

func (c *CloudMetrics) SetPaidSales(count int64) {
	if c == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	c.paidSales.Set(float64(count))
}

func (c *CloudMetrics) SetMemoryUsage(bytes uint64) {
	if c == nil {
		return
	}
	c.memoryBytes.Set(float64(bytes))
}

// Push ships the current registry to the configured pusher.
func (c *CloudMetrics) Push(ctx context.Context) error {
	if c == nil || c.pusher == nil {
		return nil
	}
	return c.pusher.Push(ctx, c.registry)
}
