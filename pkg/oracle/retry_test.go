package oracle

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierhillroy/libjxl-wop8/internal/testutil"
	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
)

func TestRetryOnceRecovers(t *testing.T) {
	flaky := &testutil.FlakyOracle{Inner: &testutil.SumOracle{}, FailFirst: 1}
	retried := RetryOnce(flaky)

	weights := testutil.MustVector(t, 1, 1, 1, 1, 1, 1, 1, 1)
	eval, err := retried.Evaluate(context.Background(), weights, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), eval.TotalBytes)
	assert.Equal(t, int64(2), flaky.Calls())
}

func TestRetryOnceExhausted(t *testing.T) {
	flaky := &testutil.FlakyOracle{Inner: &testutil.SumOracle{}, FailFirst: 10}
	retried := RetryOnce(flaky)

	weights := testutil.MustVector(t, 2, 2, 2, 2, 2, 2, 2, 2)
	_, err := retried.Evaluate(context.Background(), weights, nil)
	require.Error(t, err)

	// Exactly two attempts, then the run-aborting error with the vector
	assert.Equal(t, int64(2), flaky.Calls())

	var customErr *errors.Error
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errors.OracleFailed, customErr.Code())
	assert.Equal(t, weights.Key(), customErr.Fields()["weights"])
}

func TestRetryOnceNeverRetriesCancellation(t *testing.T) {
	var calls atomic.Int64
	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := core.OracleFunc(func(ctx context.Context, weights core.Vector, corpus core.Corpus) (core.Evaluation, error) {
		calls.Add(1)
		return core.Evaluation{}, errors.CheckContext(canceledCtx, "evaluation")
	})
	retried := RetryOnce(inner)

	_, err := retried.Evaluate(canceledCtx, core.Neutral(), nil)
	require.Error(t, err)
	assert.True(t, isCanceled(err))
	assert.Equal(t, int64(1), calls.Load())
}

func TestIsCanceled(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"context canceled", context.Canceled, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped cancellation", errors.Wrap(context.Canceled, errors.Canceled, "evaluation canceled"), true},
		{"coded cancellation", errors.New(errors.Canceled, "stopped"), true},
		{"oracle failure", errors.New(errors.OracleFailed, "boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isCanceled(tt.err))
		})
	}
}
