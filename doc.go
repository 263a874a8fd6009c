// Package wop8 searches for libjxl weighted-predictor weights that shrink a
// PNG corpus. A genetic algorithm evolves 8-gene integer vectors (each gene
// in [0, 15]) and ranks them by the total compressed size an external
// compressor produces for the corpus: smaller output, fitter vector.
//
// Key Components:
//
//   - core: The domain vocabulary shared by every package: Vector (the 8-gene
//     weight vector), Corpus (the PNG set under compression), Oracle (the
//     pluggable fitness source) and Evaluation (its verdict).
//
//   - ga: The search engine itself. Seeded, fully deterministic population
//     management: tournament selection, uniform crossover, per-gene mutation,
//     elitism, and per-generation history with progress reporting.
//
//   - cache: Memoizes oracle verdicts per vector so re-visited candidates
//     never re-invoke the compressor, with single-flight de-duplication under
//     parallel evaluation.
//
//   - oracle: Adapters around real compressors: Command shells out to a
//     compressor binary per image, optionally decompresses for a mean
//     absolute error check, and RetryOnce absorbs one transient failure.
//
//   - corpus: PNG intake. Directory scanning with validation of actual
//     decodability, deterministic train/test partitioning and partition
//     materialization.
//
//   - archive: SQLite persistence of every evaluation and finished run, for
//     audits and cross-run comparison.
//
//   - config: YAML run specs with defaults-overlay loading and validation.
//
// Simple Example:
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/xavierhillroy/libjxl-wop8/pkg/core"
//	    "github.com/xavierhillroy/libjxl-wop8/pkg/ga"
//	)
//
//	func main() {
//	    // Any Oracle works; this stub scores by the sum of the genes.
//	    stub := core.OracleFunc(func(ctx context.Context, weights core.Vector, corpus core.Corpus) (core.Evaluation, error) {
//	        var sum int64
//	        for _, gene := range weights {
//	            sum += int64(gene)
//	        }
//	        return core.Evaluation{TotalBytes: sum}, nil
//	    })
//
//	    engine, err := ga.New(ga.DefaultConfig(), stub)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    result, err := engine.Run(context.Background(), core.Corpus{{Name: "a.png", Path: "a.png"}})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Printf("best %s -> %d bytes", result.BestWeights, result.TotalBytes())
//	}
//
// Reproducibility: a run is a pure function of its configuration. The same
// seed yields the same candidate trajectory at any parallelism level, because
// randomness lives in the single-threaded breeding phase while evaluation
// only consumes the deterministic oracle.
//
// Cancellation: Run honors its context at generation boundaries and inside
// evaluations, returning the partial history for completed generations.
//
// The cmd/wop8 command ties the packages together into a full run driven by
// a YAML spec; examples/quickstart shows the library against a stub oracle.
//
// For more detail, visit: https://github.com/xavierhillroy/libjxl-wop8
package wop8
