package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQueryCountsOnlyErrors(t *testing.T) {
	errs := DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "list")
	base := testutil.ToFloat64(errs)

	RecordDBQuery("postgres", "list", 0.01, nil)
	if got := testutil.ToFloat64(errs); got != base {
		t.Errorf("successful query counted as error: %v -> %v", base, got)
	}

	RecordDBQuery("postgres", "list", 0.01, errors.New("connection reset"))
	if got := testutil.ToFloat64(errs); got != base+1 {
		t.Errorf("expected error count %v, got %v", base+1, got)
	}

	if n := testutil.CollectAndCount(DefaultMetrics.DBQueryDuration); n == 0 {
		t.Error("expected a duration series after recording queries")
	}
}
