package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Masking metrics
	maskedSecretsTotal *prometheus.CounterVec
	filteredBytesTotal *prometheus.CounterVec

	// Scope metrics
	activeSecrets        *prometheus.GaugeVec
	patternRebuildsTotal *prometheus.CounterVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics initializes all Prometheus metrics.
// This should be called once at startup if Prometheus metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		maskedSecretsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veil_masked_secrets_total",
				Help: "Total number of secret occurrences replaced in output streams",
			},
			[]string{"node", "channel"},
		)

		filteredBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veil_filtered_bytes_total",
				Help: "Total number of raw bytes accepted by masking writers",
			},
			[]string{"node", "channel"},
		)

		activeSecrets = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "veil_active_secrets",
				Help: "Number of secret values currently held by a scope",
			},
			[]string{"scope"},
		)

		patternRebuildsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veil_pattern_rebuilds_total",
				Help: "Total number of aggregate pattern recompilations",
			},
			[]string{"scope", "status"},
		)

		metricsRegistered = true
	})
}

// StreamRecorder records per-channel masking activity. It is installed
// on masking writers through the decorator factory.
type StreamRecorder struct {
	node    string
	channel string
}

// NewStreamRecorder creates a recorder labelled with the stream's node
// and channel.
func NewStreamRecorder(node, channel string) *StreamRecorder {
	return &StreamRecorder{node: node, channel: channel}
}

// SecretMasked records one replaced secret occurrence.
func (r *StreamRecorder) SecretMasked() {
	if !metricsRegistered || maskedSecretsTotal == nil {
		return
	}
	maskedSecretsTotal.WithLabelValues(r.node, r.channel).Inc()
}

// BytesFiltered records n raw bytes accepted by a masking writer.
func (r *StreamRecorder) BytesFiltered(n int) {
	if !metricsRegistered || filteredBytesTotal == nil {
		return
	}
	filteredBytesTotal.WithLabelValues(r.node, r.channel).Add(float64(n))
}

// RecordActiveSecrets records the number of values a scope holds.
func RecordActiveSecrets(scope string, count int) {
	if !metricsRegistered || activeSecrets == nil {
		return
	}
	activeSecrets.WithLabelValues(scope).Set(float64(count))
}

// RecordPatternRebuild records an aggregate recompilation and its outcome.
func RecordPatternRebuild(scope, status string) {
	if !metricsRegistered || patternRebuildsTotal == nil {
		return
	}
	patternRebuildsTotal.WithLabelValues(scope, status).Inc()
}

// GetMaskedSecretsTotal returns the masked secrets counter for testing.
func GetMaskedSecretsTotal() *prometheus.CounterVec {
	return maskedSecretsTotal
}

// GetFilteredBytesTotal returns the filtered bytes counter for testing.
func GetFilteredBytesTotal() *prometheus.CounterVec {
	return filteredBytesTotal
}

// IsMetricsRegistered returns whether metrics have been initialized.
func IsMetricsRegistered() bool {
	return metricsRegistered
}
