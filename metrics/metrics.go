// Package metrics exports registry operation counters to prometheus
package metrics

import (
	"errors"
	"time"

	"kitty-services/types"

	"github.com/prometheus/client_golang/prometheus"
)

var Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kitties",
	Name:      "operations_total",
	Help:      "Registry operations by outcome.",
}, []string{"operation", "result"})

var OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "kitties",
	Name:      "operation_duration_seconds",
	Help:      "Time spent in registry operations, including waiting for the store.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

func init() {
	prometheus.MustRegister(Operations, OperationDuration)
}

var results = []struct {
	err   error
	label string
}{
	{types.ErrCountOverflow, "count_overflow"},
	{types.ErrNotOwner, "not_owner"},
	{types.ErrAlreadyOwned, "already_owned"},
	{types.ErrSameParentIndex, "same_parent"},
	{types.ErrInvalidKittyIndex, "invalid_kitty"},
	{types.ErrNoPriceSet, "no_price"},
	{types.ErrCannotBuySelf, "buy_self"},
	{types.ErrInsufficientFunds, "insufficient_funds"},
	{types.ErrInvalidPrice, "invalid_price"},
}

// Result maps an operation error to its result label
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	for _, r := range results {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "error"
}

// Observe records one finished operation
func Observe(operation string, started time.Time, err error) {
	Operations.WithLabelValues(operation, Result(err)).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
