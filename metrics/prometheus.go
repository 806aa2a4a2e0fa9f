package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// InitializePrometheusMetrics swaps the Prometheus backend in. Call it once,
// before the servers start; meters created through LazyLoad bind to whatever
// backend is active at their first use.
func InitializePrometheusMetrics() {
	if _, ok := metrics.(*prometheusMetrics); ok {
		return
	}
	metrics = newPrometheusMetrics()
}

type prometheusMetrics struct {
	counters    sync.Map
	counterVecs sync.Map
	gauges      sync.Map
	histograms  sync.Map
}

func newPrometheusMetrics() Metrics {
	return &prometheusMetrics{}
}

func (o *prometheusMetrics) GetOrCreateCountMeter(name string) CountMeter {
	if m, ok := o.counters.Load(name); ok {
		return m.(CountMeter)
	}
	meter := o.newCountMeter(name)
	o.counters.Store(name, meter)
	return meter
}

func (o *prometheusMetrics) GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter {
	if m, ok := o.counterVecs.Load(name); ok {
		return m.(CountVecMeter)
	}
	meter := o.newCountVecMeter(name, labels)
	o.counterVecs.Store(name, meter)
	return meter
}

func (o *prometheusMetrics) GetOrCreateGaugeMeter(name string) GaugeMeter {
	if m, ok := o.gauges.Load(name); ok {
		return m.(GaugeMeter)
	}
	meter := o.newGaugeMeter(name)
	o.gauges.Store(name, meter)
	return meter
}

func (o *prometheusMetrics) GetOrCreateHistogramMeter(name string, buckets []int64) HistogramMeter {
	if m, ok := o.histograms.Load(name); ok {
		return m.(HistogramMeter)
	}
	meter := o.newHistogramMeter(name, buckets)
	o.histograms.Store(name, meter)
	return meter
}

func (o *prometheusMetrics) GetOrCreateHandler() http.Handler {
	return promhttp.Handler()
}

func (o *prometheusMetrics) newCountMeter(name string) CountMeter {
	meter := prometheus.NewCounter(prometheus.CounterOpts{Name: name})
	if err := prometheus.Register(meter); err != nil {
		logrus.WithError(err).WithField("name", name).Warn("failed to register count meter")
	}
	return &promCountMeter{counter: meter}
}

func (o *prometheusMetrics) newCountVecMeter(name string, labels []string) CountVecMeter {
	meter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labels)
	if err := prometheus.Register(meter); err != nil {
		logrus.WithError(err).WithField("name", name).Warn("failed to register count vec meter")
	}
	return &promCountVecMeter{vec: meter}
}

func (o *prometheusMetrics) newGaugeMeter(name string) GaugeMeter {
	meter := prometheus.NewGauge(prometheus.GaugeOpts{Name: name})
	if err := prometheus.Register(meter); err != nil {
		logrus.WithError(err).WithField("name", name).Warn("failed to register gauge meter")
	}
	return &promGaugeMeter{gauge: meter}
}

func (o *prometheusMetrics) newHistogramMeter(name string, buckets []int64) HistogramMeter {
	floatBuckets := make([]float64, len(buckets))
	for i, b := range buckets {
		floatBuckets[i] = float64(b)
	}
	meter := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Buckets: floatBuckets,
	})
	if err := prometheus.Register(meter); err != nil {
		logrus.WithError(err).WithField("name", name).Warn("failed to register histogram meter")
	}
	return &promHistogramMeter{histogram: meter}
}

type promCountMeter struct {
	counter prometheus.Counter
}

func (c *promCountMeter) Add(delta int64) {
	c.counter.Add(float64(delta))
}

type promCountVecMeter struct {
	vec *prometheus.CounterVec
}

func (c *promCountVecMeter) AddWithLabel(delta int64, labels map[string]string) {
	c.vec.With(labels).Add(float64(delta))
}

type promGaugeMeter struct {
	gauge prometheus.Gauge
}

func (g *promGaugeMeter) Set(value int64) {
	g.gauge.Set(float64(value))
}

func (g *promGaugeMeter) Add(delta int64) {
	g.gauge.Add(float64(delta))
}

type promHistogramMeter struct {
	histogram prometheus.Histogram
}

func (h *promHistogramMeter) Observe(value int64) {
	h.histogram.Observe(float64(value))
}
