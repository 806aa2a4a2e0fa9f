package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Meters are safe to use before any backend is initialized.
func TestNoopDefault(t *testing.T) {
	c := Counter("test_noop_counter")
	c.Add(1)

	g := Gauge("test_noop_gauge")
	g.Set(42)
	g.Add(-1)

	v := CounterVec("test_noop_counter_vec", []string{"reason"})
	v.AddWithLabel(1, map[string]string{"reason": "x"})

	h := Histogram("test_noop_histogram", []int64{1, 10, 100})
	h.Observe(7)

	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestLazyLoadMemoizes(t *testing.T) {
	calls := 0
	load := LazyLoad(func() int {
		calls++
		return 7
	})

	assert.Equal(t, 7, load())
	assert.Equal(t, 7, load())
	assert.Equal(t, 1, calls)
}

func TestPrometheusBackend(t *testing.T) {
	InitializePrometheusMetrics()
	// A second call must be a no-op, not a backend reset.
	InitializePrometheusMetrics()

	c := Counter("test_prom_counter_total")
	c.Add(3)
	c.Add(2)

	v := CounterVec("test_prom_rejections_total", []string{"reason"})
	v.AddWithLabel(1, map[string]string{"reason": "paused"})

	g := Gauge("test_prom_gauge")
	g.Set(11)

	// The same name yields the same meter.
	assert.Same(t, c, Counter("test_prom_counter_total"))

	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "test_prom_counter_total 5"), "scrape should report the counter value")
}
