package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSign(t *testing.T) {
	m := New()
	m.ObserveSign(OutcomeSuccess, 10*time.Millisecond)
	m.ObserveSign(OutcomeCompleted, 20*time.Millisecond)
	m.ObserveSign(OutcomeError, time.Millisecond)

	if got := testutil.ToFloat64(m.SignRequests.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Errorf("Expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.DocumentsCompleted); got != 1 {
		t.Errorf("Expected 1 completion, got %v", got)
	}
	if got := testutil.CollectAndCount(m.SignDuration); got != 1 {
		t.Errorf("Expected 1 histogram series, got %d", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSign(OutcomeSuccess, time.Second)
	m.ObserveCertificate(OutcomeSuccess)
	m.ObserveVerification("valid")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveVerification("valid")
	m.ObserveCertificate(OutcomeError)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`esign_verifications_total{result="valid"} 1`,
		`esign_certificates_generated_total{outcome="error"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}
