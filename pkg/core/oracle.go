package core

import (
	"context"
)

// ImageResult is the per-image breakdown of one evaluation.
type ImageResult struct {
	Name       string  `json:"name"`
	Bytes      int64   `json:"bytes"`
	MeanAbsErr float64 `json:"mean_abs_err"`
}

// Evaluation is the oracle's verdict on one weight vector: how many bytes the
// corpus compresses to under those weights, plus the mean absolute
// reconstruction error as a lossless-pipeline diagnostic. The error never
// influences selection.
type Evaluation struct {
	TotalBytes int64         `json:"total_bytes"`
	MeanAbsErr float64       `json:"mean_abs_err"`
	PerImage   []ImageResult `json:"per_image,omitempty"`
}

// Fitness maps the evaluation onto the single maximization axis the search
// uses: the negated total size, so smaller corpora rank higher.
func (e Evaluation) Fitness() float64 {
	return -float64(e.TotalBytes)
}

// Oracle scores weight vectors. Implementations must be deterministic for
// identical weights and corpus, and safe for concurrent use: the engine may
// evaluate distinct vectors in parallel.
type Oracle interface {
	Evaluate(ctx context.Context, weights Vector, corpus Corpus) (Evaluation, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, weights Vector, corpus Corpus) (Evaluation, error)

// Evaluate calls f.
func (f OracleFunc) Evaluate(ctx context.Context, weights Vector, corpus Corpus) (Evaluation, error) {
	return f(ctx, weights, corpus)
}
