package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ProbesTotal.WithLabelValues("http", "up"))
	ProbesTotal.WithLabelValues("http", "up").Inc()
	if got := testutil.ToFloat64(ProbesTotal.WithLabelValues("http", "up")); got != before+1 {
		t.Fatalf("want %v, got %v", before+1, got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	TransitionsTotal.WithLabelValues("to_down").Inc()

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "uptime_transitions_total") {
		t.Fatalf("metrics body missing uptime_transitions_total")
	}
}
