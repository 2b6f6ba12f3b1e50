package atomenv

import (
	"log/slog"

	"github.com/arloliu/atomenv/internal/logging"
	"github.com/arloliu/atomenv/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// NewPrometheusMetrics returns a MetricsCollector backed by Prometheus.
//
// Collectors are registered on first use.
//
// Parameters:
//   - reg: Registerer (prometheus.DefaultRegisterer if nil)
//   - namespace: Metric namespace ("atomenv" if empty)
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}

// NewSlogLogger adapts a *slog.Logger to Logger. A nil logger uses slog.Default().
func NewSlogLogger(logger *slog.Logger) Logger {
	return logging.NewSlog(logger)
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return logging.NewNop()
}
