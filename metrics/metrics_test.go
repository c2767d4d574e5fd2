package metrics_test

import (
	"fmt"
	"testing"
	"time"

	"kitty-services/metrics"
	"kitty-services/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{types.ErrNotOwner, "not_owner"},
		{fmt.Errorf("%w: kitty 3", types.ErrNoPriceSet), "no_price"},
		{fmt.Errorf("disk on fire"), "error"},
	}
	for _, tt := range tests {
		if got := metrics.Result(tt.err); got != tt.want {
			t.Errorf("Result(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(metrics.Operations.WithLabelValues("test_op", "buy_self"))
	metrics.Observe("test_op", time.Now(), types.ErrCannotBuySelf)
	after := testutil.ToFloat64(metrics.Operations.WithLabelValues("test_op", "buy_self"))
	if after-before != 1 {
		t.Errorf("counter moved by %v, want 1", after-before)
	}
}
