package oracle

import (
	"context"
	stderrors "errors"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
)

// RetryOnce decorates inner with the run's failure policy: a failed
// evaluation is retried exactly once with identical inputs, and a second
// failure aborts with the offending vector attached. Cancellation is never
// retried. A failed candidate is never assigned a stand-in fitness.
func RetryOnce(inner core.Oracle) core.Oracle {
	return core.OracleFunc(func(ctx context.Context, weights core.Vector, corpus core.Corpus) (core.Evaluation, error) {
		eval, err := inner.Evaluate(ctx, weights, corpus)
		if err == nil {
			return eval, nil
		}
		if isCanceled(err) {
			return core.Evaluation{}, err
		}

		logging.GetLogger().Warn(ctx, "evaluation of %s failed, retrying once: %v", weights.Key(), err)

		eval, err = inner.Evaluate(ctx, weights, corpus)
		if err == nil {
			return eval, nil
		}
		if isCanceled(err) {
			return core.Evaluation{}, err
		}

		return core.Evaluation{}, errors.WithFields(
			errors.Wrap(err, errors.OracleFailed, "evaluation failed after retry"),
			errors.Fields{"weights": weights.Key()},
		)
	})
}

// isCanceled reports whether err is a cancellation rather than an evaluation
// failure.
func isCanceled(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var custom *errors.Error
	if stderrors.As(err, &custom) {
		return custom.Code() == errors.Canceled
	}
	return false
}
