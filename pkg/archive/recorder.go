package archive

import (
	"context"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
)

// Recorder decorates an oracle so every successful evaluation is archived.
// Place it beneath the evaluation cache: the cache then guarantees each
// distinct vector is written once per run. An archive write failure is
// logged and does not fail the evaluation; the search matters more than the
// audit trail.
func (s *Store) Recorder(inner core.Oracle) core.Oracle {
	return core.OracleFunc(func(ctx context.Context, weights core.Vector, corpus core.Corpus) (core.Evaluation, error) {
		eval, err := inner.Evaluate(ctx, weights, corpus)
		if err != nil {
			return core.Evaluation{}, err
		}
		if err := s.recordEvaluation(ctx, weights, eval); err != nil {
			logging.GetLogger().Warn(ctx, "failed to archive evaluation of %s: %v", weights.Key(), err)
		}
		return eval, nil
	})
}
