// Package testutil provides oracle doubles and corpus fixtures shared by
// tests across the module.
package testutil

import (
	"context"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
)

// MockOracle is a testify mock implementation of core.Oracle for tests that
// need call expectations.
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Evaluate(ctx context.Context, weights core.Vector, corpus core.Corpus) (core.Evaluation, error) {
	args := m.Called(ctx, weights, corpus)
	return args.Get(0).(core.Evaluation), args.Error(1)
}

// SumOracle is a deterministic stub that reports the gene sum as the corpus
// size, so fitness is the negated sum of weights. It counts invocations for
// at-most-once assertions.
type SumOracle struct {
	calls atomic.Int64
}

func (o *SumOracle) Evaluate(ctx context.Context, weights core.Vector, corpus core.Corpus) (core.Evaluation, error) {
	o.calls.Add(1)
	var total int64
	for _, g := range weights {
		total += int64(g)
	}
	return core.Evaluation{TotalBytes: total}, nil
}

// Calls reports how many evaluations the stub has served.
func (o *SumOracle) Calls() int64 {
	return o.calls.Load()
}

// FlakyOracle fails its first FailFirst evaluations and then delegates to
// Inner. Used to exercise the retry policy.
type FlakyOracle struct {
	Inner     core.Oracle
	FailFirst int64

	calls atomic.Int64
}

func (o *FlakyOracle) Evaluate(ctx context.Context, weights core.Vector, corpus core.Corpus) (core.Evaluation, error) {
	if o.calls.Add(1) <= o.FailFirst {
		return core.Evaluation{}, errors.WithFields(
			errors.New(errors.OracleFailed, "stub failure"),
			errors.Fields{"weights": weights.Key()},
		)
	}
	return o.Inner.Evaluate(ctx, weights, corpus)
}

// Calls reports how many evaluations were attempted, including failures.
func (o *FlakyOracle) Calls() int64 {
	return o.calls.Load()
}
