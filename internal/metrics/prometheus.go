package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	registry         *prometheus.Registry
	commands         *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	trustDiscrepancy *prometheus.GaugeVec
	complianceScore  *prometheus.GaugeVec
	logger           logrus.FieldLogger
}

// NewCollector registers the ledger metrics on a private registry.
func NewCollector(logger logrus.FieldLogger) *Collector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		commands: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "practice_commands_total",
			Help: "Commands executed, by action and outcome",
		}, []string{"action", "outcome"}),
		commandDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "practice_command_duration_seconds",
			Help:    "Time taken to execute a command",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		trustDiscrepancy: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "practice_trust_discrepancy_total",
			Help: "Sum of absolute trust discrepancies from the last reconciliation run",
		}, []string{"organization_id"}),
		complianceScore: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "practice_compliance_score",
			Help: "Compliance score from the last report",
		}, []string{"organization_id"}),
		logger: logger.WithField("module", "metrics"),
	}
}

func (c *Collector) RecordCommand(action, outcome string, duration time.Duration) {
	c.commands.WithLabelValues(action, outcome).Inc()
	c.commandDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// SetTrustDiscrepancy publishes a reconciliation total. The gauge is a float
// view for dashboards; reports keep the exact decimal.
func (c *Collector) SetTrustDiscrepancy(orgID string, total decimal.Decimal) {
	c.trustDiscrepancy.WithLabelValues(orgID).Set(total.InexactFloat64())
}

func (c *Collector) SetComplianceScore(orgID string, score int) {
	c.complianceScore.WithLabelValues(orgID).Set(float64(score))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorLog: c.logger.WithField("funcName", "Handler"),
	})
}
