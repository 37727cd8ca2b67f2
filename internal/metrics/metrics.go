// Package metrics registers the prometheus collectors for the pipeline:
//
//	FeedFlow_envelopes_packed_total
//	FeedFlow_pack_errors_total
//	FeedFlow_decode_failures_total
//	go_* and process_* system metrics
//
// Optionally exposes them via the Prometheus HTTP handler when a listen
// address is configured.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedflow/config"
	"feedflow/logger"
)

// Feature identifies an optional metric stream.
type Feature string

const (
	FeatureChannelSize Feature = "channel_size"
	FeaturePacker      Feature = "packer"
)

var (
	once            sync.Once
	featureMu       sync.RWMutex
	enabledFeatures = map[Feature]bool{
		FeatureChannelSize: true,
		FeaturePacker:      true,
	}

	envelopesPacked *prometheus.CounterVec
	packErrors      *prometheus.CounterVec
	decodeFailures  prometheus.Counter
)

// Configure applies the metrics section of the runtime configuration.
func Configure(cfg config.MetricsConfig) {
	featureMu.Lock()
	enabledFeatures[FeatureChannelSize] = cfg.ChannelSize
	enabledFeatures[FeaturePacker] = cfg.Packer
	featureMu.Unlock()
}

// IsFeatureEnabled reports whether the given metric stream should emit.
func IsFeatureEnabled(f Feature) bool {
	featureMu.RLock()
	defer featureMu.RUnlock()
	return enabledFeatures[f]
}

// Init registers the prometheus collectors and, when listen is non-empty,
// serves them on <listen>/metrics.
func Init(listen string) {
	once.Do(func() {
		envelopesPacked = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "FeedFlow_envelopes_packed_total",
				Help: "Number of price update envelopes packed",
			},
			[]string{"encoding"},
		)

		packErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "FeedFlow_pack_errors_total",
				Help: "Number of failed pack/emit attempts",
			},
			[]string{"stage"},
		)

		decodeFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "FeedFlow_decode_failures_total",
				Help: "Number of binary entries that degraded to empty blobs",
			},
		)

		_ = prometheus.Register(envelopesPacked)
		_ = prometheus.Register(packErrors)
		_ = prometheus.Register(decodeFailures)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		if listen == "" {
			return
		}

		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(listen, nil); err != nil {
				panic("metrics server failed: " + err.Error())
			}
		}()
	})
}

// IncrementEnvelopesPacked increases the packed counter for an encoding.
func IncrementEnvelopesPacked(encoding string) {
	if envelopesPacked != nil {
		envelopesPacked.WithLabelValues(encoding).Inc()
	}
}

// IncrementPackError increases the error counter for a pipeline stage.
func IncrementPackError(stage string) {
	if packErrors != nil {
		packErrors.WithLabelValues(stage).Inc()
	}
}

// IncrementDecodeFailures increases the degraded-decode counter by n.
func IncrementDecodeFailures(n int) {
	if decodeFailures != nil && n > 0 {
		decodeFailures.Add(float64(n))
	}
}

// EmitMetric logs a structured metric event through the shared logger.
func EmitMetric(log *logger.Log, component string, metric string, value interface{}, metricType string, fields logger.Fields) {
	if log == nil || metric == "" {
		return
	}
	log.LogMetric(component, metric, value, metricType, fields)
}
