package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIsIdempotentAndExposesCollectors(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(MutationsRejected.WithLabelValues("USE", "insufficient_balance"))
	MutationsRejected.WithLabelValues("USE", "insufficient_balance").Inc()
	if got := testutil.ToFloat64(MutationsRejected.WithLabelValues("USE", "insufficient_balance")); got != before+1 {
		t.Fatalf("expected %v got %v", before+1, got)
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "point_mutations_rejected_total") {
		t.Fatalf("expected collector in exposition, got %s", body)
	}
}
