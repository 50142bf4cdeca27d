package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sifan077/PowerQR/config"
)

func TestMetrics_ExposedOnServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.ObserveResolution("resolved")
	m.ObserveResolution("denied")
	m.ObserveVisit(true, 20*time.Millisecond)

	srv := NewServer(config.PrometheusConfig{Port: 9999}, reg)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr %q", srv.Addr)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`powerqr_resolutions_total{outcome="resolved"} 1`,
		`powerqr_resolutions_total{outcome="denied"} 1`,
		`powerqr_visits_recorded_total{unique="true"} 1`,
		`powerqr_record_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("first NewMetrics: %v", err)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
