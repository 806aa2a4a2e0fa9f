// Package metrics hides the metrics backend behind a package singleton.
//
// By default every meter is a noop, so importing packages can declare their
// meters unconditionally and pay nothing when telemetry is disabled. The
// launcher swaps in the Prometheus backend with InitializePrometheusMetrics
// when metrics are enabled.
package metrics

import (
	"net/http"
	"sync"
)

// metrics is the global backend. Meters obtained before initialization stay
// noop, which is why call sites go through LazyLoad.
var metrics Metrics = &noopMetrics{}

// Metrics is the backend contract.
type Metrics interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateGaugeMeter(name string) GaugeMeter
	GetOrCreateHistogramMeter(name string, buckets []int64) HistogramMeter
	GetOrCreateHandler() http.Handler
}

// CountMeter is a monotonically increasing counter.
type CountMeter interface {
	Add(delta int64)
}

// CountVecMeter is a counter partitioned by labels.
type CountVecMeter interface {
	AddWithLabel(delta int64, labels map[string]string)
}

// GaugeMeter is a value that can move both ways.
type GaugeMeter interface {
	Set(value int64)
	Add(delta int64)
}

// HistogramMeter tracks a distribution of observed values.
type HistogramMeter interface {
	Observe(value int64)
}

// Counter returns the named counter from the active backend.
func Counter(name string) CountMeter {
	return metrics.GetOrCreateCountMeter(name)
}

// CounterVec returns the named labeled counter from the active backend.
func CounterVec(name string, labels []string) CountVecMeter {
	return metrics.GetOrCreateCountVecMeter(name, labels)
}

// Gauge returns the named gauge from the active backend.
func Gauge(name string) GaugeMeter {
	return metrics.GetOrCreateGaugeMeter(name)
}

// Histogram returns the named histogram from the active backend.
func Histogram(name string, buckets []int64) HistogramMeter {
	return metrics.GetOrCreateHistogramMeter(name, buckets)
}

// HTTPHandler exposes the active backend's scrape endpoint.
func HTTPHandler() http.Handler {
	return metrics.GetOrCreateHandler()
}

// LazyLoad defers f until first use and memoizes the result. Package-level
// meters must go through it so that meters declared before
// InitializePrometheusMetrics still bind to the real backend.
func LazyLoad[T any](f func() T) func() T {
	var once sync.Once
	var value T
	return func() T {
		once.Do(func() {
			value = f()
		})
		return value
	}
}

// LazyLoadCounter declares a package-level counter.
func LazyLoadCounter(name string) func() CountMeter {
	return LazyLoad(func() CountMeter {
		return Counter(name)
	})
}

// LazyLoadCounterVec declares a package-level labeled counter.
func LazyLoadCounterVec(name string, labels []string) func() CountVecMeter {
	return LazyLoad(func() CountVecMeter {
		return CounterVec(name, labels)
	})
}

// LazyLoadGauge declares a package-level gauge.
func LazyLoadGauge(name string) func() GaugeMeter {
	return LazyLoad(func() GaugeMeter {
		return Gauge(name)
	})
}

// LazyLoadHistogram declares a package-level histogram.
func LazyLoadHistogram(name string, buckets []int64) func() HistogramMeter {
	return LazyLoad(func() HistogramMeter {
		return Histogram(name, buckets)
	})
}

// noop backend, the default.

type noopMetrics struct{}

type noopMeter struct{}

func (n *noopMetrics) GetOrCreateCountMeter(string) CountMeter { return &noopMeter{} }

func (n *noopMetrics) GetOrCreateCountVecMeter(string, []string) CountVecMeter { return &noopMeter{} }

func (n *noopMetrics) GetOrCreateGaugeMeter(string) GaugeMeter { return &noopMeter{} }

func (n *noopMetrics) GetOrCreateHistogramMeter(string, []int64) HistogramMeter { return &noopMeter{} }

func (n *noopMetrics) GetOrCreateHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metrics are not enabled", http.StatusNotImplemented)
	})
}

func (m *noopMeter) Add(int64) {}

func (m *noopMeter) AddWithLabel(int64, map[string]string) {}

func (m *noopMeter) Set(int64) {}

func (m *noopMeter) Observe(int64) {}
