package ga

import (
	"encoding/json"
	"os"
	"time"

	"github.com/xavierhillroy/libjxl-wop8/pkg/cache"
	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
)

// GenerationRecord summarizes one completed generation. Records are
// append-only: one per generation, in order, never revised.
type GenerationRecord struct {
	Index          int           `json:"generation"`
	BestFitness    float64       `json:"best_fitness"`
	AverageFitness float64       `json:"average_fitness"`
	BestWeights    core.Vector   `json:"best_weights"`
	Evaluations    int64         `json:"evaluations"`
	Duration       time.Duration `json:"duration"`
}

// Result is the terminal record of a run. A canceled run still carries the
// history of every generation that completed before the stop.
type Result struct {
	RunID          string             `json:"run_id"`
	BestWeights    core.Vector        `json:"best_weights"`
	BestFitness    float64            `json:"best_fitness"`
	BestEvaluation core.Evaluation    `json:"best_evaluation"`
	History        []GenerationRecord `json:"history"`
	Started        time.Time          `json:"started"`
	Finished       time.Time          `json:"finished"`
	OracleCalls    int64              `json:"oracle_calls"`
	CacheStats     cache.Stats        `json:"cache_stats"`
}

// TotalBytes returns the compressed corpus size of the best vector.
func (r *Result) TotalBytes() int64 {
	return r.BestEvaluation.TotalBytes
}

// WriteJSON persists the result as an indented JSON document.
func (r *Result) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "marshal run result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "write run result"),
			errors.Fields{"path": path},
		)
	}
	return nil
}
