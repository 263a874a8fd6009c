// Package cache memoizes oracle evaluations so each distinct weight vector is
// scored at most once per run.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
)

// Stats contains cache performance statistics.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evaluations int64 `json:"evaluations"`
	Errors      int64 `json:"errors"`
}

// Oracle decorates an inner core.Oracle with a fitness memo. Lookups are by
// vector value, concurrent callers asking for the same vector share a single
// inner evaluation, and only successful evaluations are stored, so a failed
// vector can be retried by a later caller. Entries are never evicted; the
// cache lives and dies with its run.
type Oracle struct {
	inner core.Oracle

	mu      sync.RWMutex
	entries map[core.Vector]core.Evaluation

	flight   singleflight.Group
	hits     atomic.Int64
	misses   atomic.Int64
	evals    atomic.Int64
	failures atomic.Int64
}

// Wrap returns inner decorated with the fitness memo.
func Wrap(inner core.Oracle) *Oracle {
	return &Oracle{
		inner:   inner,
		entries: make(map[core.Vector]core.Evaluation),
	}
}

// Evaluate returns the memoized evaluation for weights, computing it through
// the inner oracle on first sight. Concurrent calls for the same vector are
// collapsed into one inner call whose result (or error) is shared.
func (o *Oracle) Evaluate(ctx context.Context, weights core.Vector, corpus core.Corpus) (core.Evaluation, error) {
	o.mu.RLock()
	eval, ok := o.entries[weights]
	o.mu.RUnlock()
	if ok {
		o.hits.Add(1)
		logging.GetLogger().OracleEvaluation(ctx, weights.Key(), eval.TotalBytes, true)
		return eval, nil
	}
	// Only the caller whose closure reaches the inner oracle scores a miss;
	// callers sharing its flight ride on that one evaluation as hits.
	var missed bool
	result, err, _ := o.flight.Do(weights.Key(), func() (interface{}, error) {
		// A completed flight may have landed between the lookup above and
		// this closure running; re-check before spending an oracle call.
		o.mu.RLock()
		eval, ok := o.entries[weights]
		o.mu.RUnlock()
		if ok {
			return eval, nil
		}

		missed = true
		o.misses.Add(1)
		o.evals.Add(1)
		eval, err := o.inner.Evaluate(ctx, weights, corpus)
		if err != nil {
			o.failures.Add(1)
			return core.Evaluation{}, err
		}

		o.mu.Lock()
		o.entries[weights] = eval
		o.mu.Unlock()
		logging.GetLogger().OracleEvaluation(ctx, weights.Key(), eval.TotalBytes, false)
		return eval, nil
	})
	if err != nil {
		return core.Evaluation{}, err
	}
	if !missed {
		o.hits.Add(1)
	}
	return result.(core.Evaluation), nil
}

// Len reports how many distinct vectors have been scored so far.
func (o *Oracle) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}

// Stats returns a snapshot of the cache counters.
func (o *Oracle) Stats() Stats {
	return Stats{
		Hits:        o.hits.Load(),
		Misses:      o.misses.Load(),
		Evaluations: o.evals.Load(),
		Errors:      o.failures.Load(),
	}
}
