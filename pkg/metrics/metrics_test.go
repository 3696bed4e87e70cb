package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestNewIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.LocationsIndexed.WithLabelValues("file").Add(3)

	if out := scrape(t, a); !strings.Contains(out, `locations_indexed_total{source="file"} 3`) {
		t.Errorf("instance a missing counter:\n%s", out)
	}
	if out := scrape(t, b); strings.Contains(out, `locations_indexed_total{source="file"}`) {
		t.Errorf("instance b leaked counter from a:\n%s", out)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.PagesCrawled.WithLabelValues("fetched").Inc()
	m.TasksTotal.WithLabelValues("panicked").Inc()

	out := scrape(t, m)
	for _, want := range []string{
		`pages_crawled_total{outcome="fetched"} 1`,
		`workqueue_tasks_total{status="panicked"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}
