// Package ga implements the evolutionary search over compression weight
// vectors: seeded population management, tournament selection, crossover and
// mutation, memoized fitness evaluation, and per-generation progress and
// history tracking.
package ga

import (
	"context"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/xavierhillroy/libjxl-wop8/pkg/cache"
	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
)

// GA owns a single search run: the configuration, the seeded random source,
// and the cache-wrapped oracle. It is not safe to share one GA across
// concurrent runs; build one per run.
type GA struct {
	config   *Config
	oracle   *cache.Oracle
	rng      *rand.Rand
	reporter core.ProgressReporter
}

// New builds a search engine around the given oracle. A nil config selects
// DefaultConfig; individual zero fields whose zero value is meaningless
// (population size, generations, tournament size, parallelism) are filled
// from the defaults before validation. The oracle is wrapped with the
// evaluation cache, so each distinct vector reaches it at most once per run.
func New(config *Config, oracle core.Oracle) (*GA, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// Merge with defaults for any missing fields
	defaults := DefaultConfig()
	if config.PopulationSize == 0 {
		config.PopulationSize = defaults.PopulationSize
	}
	if config.Generations == 0 {
		config.Generations = defaults.Generations
	}
	if config.TournamentSize == 0 {
		config.TournamentSize = defaults.TournamentSize
	}
	if config.Parallelism == 0 {
		config.Parallelism = defaults.Parallelism
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if oracle == nil {
		return nil, errors.New(errors.InvalidInput, "ga: oracle is required")
	}

	return &GA{
		config: config,
		oracle: cache.Wrap(oracle),
		rng:    rand.New(rand.NewSource(config.Seed)),
	}, nil
}

// SetProgressReporter sets a reporter that receives one event per completed
// generation.
func (g *GA) SetProgressReporter(reporter core.ProgressReporter) {
	g.reporter = reporter
}

// bestState is the best-ever slot, updated only on strict fitness
// improvement.
type bestState struct {
	weights core.Vector
	fitness float64
	eval    core.Evaluation
	found   bool
}

// Run executes the full search and returns the terminal record. The context
// is checked at generation boundaries and passed to every oracle call; on
// cancellation Run returns the partial result for the generations that
// completed, together with a Canceled error. An empty corpus fails before
// any generation runs.
func (g *GA) Run(ctx context.Context, corpus core.Corpus) (*Result, error) {
	if len(corpus) == 0 {
		return nil, errors.New(errors.EmptyCorpus, "weight search requires a non-empty training corpus")
	}

	result := &Result{
		RunID:   uuid.New().String(),
		Started: time.Now(),
	}
	ctx = logging.WithRunID(ctx, result.RunID)
	ctx, endTask := logging.TraceTask(ctx, "weight-search")
	defer endTask()

	logger := logging.GetLogger()
	logger.Info(ctx, "Starting weight search with population_size=%d, generations=%d, seed=%d",
		g.config.PopulationSize,
		g.config.Generations,
		g.config.Seed)

	population := g.initialPopulation()

	var best bestState
	var generationTime time.Duration

	for generation := 0; generation < g.config.Generations; generation++ {
		genStart := time.Now()
		gctx := logging.WithGeneration(ctx, generation)

		if err := errors.CheckContext(gctx, "weight search"); err != nil {
			g.finalize(result, best)
			return result, err
		}

		logger.Info(gctx, "Starting generation %d", generation)

		evalsBefore := g.oracle.Stats().Evaluations
		evals, err := g.evaluatePopulation(gctx, generation, population, corpus)
		if err != nil {
			g.finalize(result, best)
			if evaluationCanceled(err) {
				return result, errors.Wrap(err, errors.Canceled, "weight search canceled")
			}
			return result, errors.WithFields(
				errors.Wrap(err, errors.OracleFailed, "population evaluation failed"),
				errors.Fields{"generation": generation},
			)
		}

		fitnesses := make([]float64, len(evals))
		var sum float64
		bestIdx := 0
		for i, eval := range evals {
			fitnesses[i] = eval.Fitness()
			sum += fitnesses[i]
			if fitnesses[i] > fitnesses[bestIdx] {
				bestIdx = i
			}
		}

		record := GenerationRecord{
			Index:          generation,
			BestFitness:    fitnesses[bestIdx],
			AverageFitness: sum / float64(len(evals)),
			BestWeights:    population[bestIdx],
			Evaluations:    g.oracle.Stats().Evaluations - evalsBefore,
		}

		// Update best-ever on strict improvement. The scan above visits
		// candidates in population order, so a tie can never displace an
		// earlier winner regardless of evaluation completion order.
		if !best.found || record.BestFitness > best.fitness {
			best = bestState{
				weights: record.BestWeights,
				fitness: record.BestFitness,
				eval:    evals[bestIdx],
				found:   true,
			}
			logger.Info(gctx, "New best candidate: %s (fitness: %.0f)", best.weights.Key(), best.fitness)
		}

		// Create next generation (skip for last generation)
		if generation < g.config.Generations-1 {
			population = g.nextGeneration(population, fitnesses)
		}

		record.Duration = time.Since(genStart)
		result.History = append(result.History, record)
		generationTime += record.Duration

		if g.reporter != nil {
			stats := g.oracle.Stats()
			remaining := g.config.Generations - (generation + 1)
			average := generationTime / time.Duration(generation+1)
			g.reporter.Report(core.ProgressEvent{
				Generation:         generation + 1,
				Generations:        g.config.Generations,
				BestFitness:        best.fitness,
				AverageFitness:     record.AverageFitness,
				BestWeights:        best.weights,
				Evaluations:        stats.Evaluations,
				CacheHits:          stats.Hits,
				Elapsed:            time.Since(result.Started),
				EstimatedRemaining: average * time.Duration(remaining),
			})
		}
	}

	g.finalize(result, best)
	logger.Info(ctx, "Search complete: best=%s, fitness=%.0f, oracle_calls=%d",
		result.BestWeights.Key(),
		result.BestFitness,
		result.OracleCalls)
	return result, nil
}

// evaluatePopulation runs every candidate through the cached oracle with at
// most Parallelism concurrent evaluations, then waits for all of them. The
// returned slice is index-aligned with the population.
func (g *GA) evaluatePopulation(ctx context.Context, generation int, population []core.Vector, corpus core.Corpus) ([]core.Evaluation, error) {
	defer logging.TraceRegion(ctx, "evaluate-population")()

	logger := logging.GetLogger()
	logger.Info(ctx, "Evaluating population: generation=%d, candidates=%d",
		generation,
		len(population))

	evals := make([]core.Evaluation, len(population))
	// A failing evaluation cancels the ones still running; the first
	// recorded error is the cause, the rest are cancellations.
	p := pool.New().WithContext(ctx).WithFirstError().WithCancelOnError().WithMaxGoroutines(g.config.Parallelism)

	for i, candidate := range population {
		i, candidate := i, candidate // Capture loop variables
		p.Go(func(ctx context.Context) error {
			eval, err := g.oracle.Evaluate(ctx, candidate, corpus)
			if err != nil {
				return err
			}
			evals[i] = eval
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	logger.Debug(ctx, "Population evaluation completed: generation=%d, candidates=%d",
		generation,
		len(population))
	return evals, nil
}

// finalize stamps the terminal fields on the result. Safe to call on a
// partial run; the best slot is only copied when a generation completed.
func (g *GA) finalize(result *Result, best bestState) {
	if best.found {
		result.BestWeights = best.weights
		result.BestFitness = best.fitness
		result.BestEvaluation = best.eval
	}
	result.Finished = time.Now()
	stats := g.oracle.Stats()
	result.OracleCalls = stats.Evaluations
	result.CacheStats = stats
}

// evaluationCanceled reports whether an evaluation error means the run was
// stopped rather than the oracle failing.
func evaluationCanceled(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var domainErr *errors.Error
	if stderrors.As(err, &domainErr) {
		code := domainErr.Code()
		return code == errors.Canceled || code == errors.Timeout
	}
	return false
}
