// Invariants are conditions that must hold unless there is a bug in our own code, e.g. a list node handed back to
// the list it came from, or a cache configured with a positive capacity. Violations are logged, counted in the
// `invariants_total` metric and, in test builds, turned into panics so they can't go unnoticed.
// Raising an invariant doesn't stop the caller; it is still up to the caller to bail out of the erroneous path.
//
// Don't use invariants for conditions that depend on external input; a malformed Redis command is an error reply,
// not an invariant violation.

package utils

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promclient "github.com/prometheus/client_model/go"
)

var invariantsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "invariants_total",
	Help: "The total number of invariant violations",
}, []string{
	"module", // The module in which this invariant occurred.
	"type",   // The type of the invariant that occurred.
})

// RaiseInvariant records an invariant violation of `invariantType` inside `module`.
func RaiseInvariant(module, invariantType, msg string, args ...any) {
	invariantsMetric.WithLabelValues(module, invariantType).Inc()
	slog.With("invariant", invariantType, "module", module).Error(msg, args...)
	if IsTestMode {
		panic("invariant violated: " + invariantType)
	}
}

// GetMetricValue returns the current value of the invariant metric with labels `module` and `invariantType`.
func GetMetricValue(module, invariantType string) int {
	var metric = &promclient.Metric{}
	if err := invariantsMetric.WithLabelValues(module, invariantType).Write(metric); err != nil {
		slog.Error("Failed to read the invariants metric.", "error", err)
		return 0
	}
	return int(metric.Counter.GetValue())
}
