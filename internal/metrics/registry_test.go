package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestSplit(t *testing.T) {
	cases := []struct {
		labels     []string
		keys, vals string
	}{
		{nil, "", ""},
		{[]string{"k"}, "", ""},
		{[]string{"b", "2", "a", "1"}, "a,b", "1,2"},
		{[]string{"a", "1", "dangling"}, "a", "1"},
	}
	for _, c := range cases {
		keys, vals := split(c.labels)
		if strings.Join(keys, ",") != c.keys || strings.Join(vals, ",") != c.vals {
			t.Errorf("split(%v) = %v %v, want %s %s", c.labels, keys, vals, c.keys, c.vals)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Inc("clicks_total", "action", "skip")
		}()
	}
	wg.Wait()

	r.Set("sessions_active", 3)
	r.Set("sessions_active", 2)
	r.Observe("latency_seconds", 0.5)
	r.Observe("latency_seconds", 0.1)
	r.Observe("latency_seconds", 0.9)

	if got := testutil.ToFloat64(r.counters["clicks_total"].WithLabelValues("skip")); got != 50 {
		t.Errorf("counter = %v, want 50", got)
	}
	if got := testutil.ToFloat64(r.gauges["sessions_active"]); got != 2 {
		t.Errorf("gauge = %v, want 2", got)
	}

	body := scrape(t, r)
	for _, want := range []string{
		`lavamusic_clicks_total{action="skip"} 50`,
		"lavamusic_sessions_active 2",
		"lavamusic_latency_seconds_count 3",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestRegistryNeverPanics(t *testing.T) {
	r := NewRegistry()
	r.Inc("errors_total", "kind", "forbidden")
	// otra cantidad de labels para el mismo nombre: se ignora
	r.Inc("errors_total")
	// mismo nombre con otro tipo: se descarta
	r.Set("errors_total", 1)
	r.Observe("errors_total", 1)
	// nombre inválido para Prometheus
	r.Inc("bad-name")

	if got := testutil.ToFloat64(r.counters["errors_total"].WithLabelValues("forbidden")); got != 1 {
		t.Errorf("counter = %v, want 1", got)
	}
}
