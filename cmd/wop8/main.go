// Command wop8 runs a weight search end to end: it loads a YAML run spec,
// partitions the PNG corpus, drives the external compressor through the
// genetic search and leaves behind a result JSON plus an archive row.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xavierhillroy/libjxl-wop8/pkg/archive"
	"github.com/xavierhillroy/libjxl-wop8/pkg/config"
	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/corpus"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
	"github.com/xavierhillroy/libjxl-wop8/pkg/ga"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
	"github.com/xavierhillroy/libjxl-wop8/pkg/oracle"
)

func main() {
	configPath := flag.String("config", "", "Path to the run spec YAML")
	corpusDir := flag.String("corpus", "", "Override the corpus directory")
	outputDir := flag.String("output", "", "Override the output directory")
	archivePath := flag.String("archive", "", "Override the archive database path")
	runName := flag.String("name", "", "Override the run name")
	population := flag.Int("population", 0, "Override the population size")
	generations := flag.Int("generations", 0, "Override the generation count")
	mutationRate := flag.Float64("mutation-rate", 0, "Override the mutation rate")
	crossoverRate := flag.Float64("crossover-rate", 0, "Override the crossover rate")
	elitism := flag.Int("elitism", 0, "Override the elitism count")
	tournament := flag.Int("tournament", 0, "Override the tournament size")
	seed := flag.Int64("seed", 0, "Override the search seed")
	parallelism := flag.Int("parallelism", 0, "Override the evaluation parallelism")
	tracePath := flag.String("trace", "", "Write a runtime trace snapshot here if the run aborts")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	if *configPath == "" {
		fmt.Println("Missing required flags. Please provide:")
		fmt.Println("  -config (path to the run spec YAML)")
		os.Exit(1)
	}

	ctx := context.Background()
	logger := logging.GetLogger()

	spec, err := config.Load(*configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load run spec: %v", err)
		os.Exit(1)
	}

	// Only flags the user actually set override the spec, so an untouched
	// -seed 0 does not clobber the configured seed.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "corpus":
			spec.Corpus.Dir = *corpusDir
		case "output":
			spec.Output.Dir = *outputDir
		case "archive":
			spec.Archive.Path = *archivePath
		case "name":
			spec.Run.Name = *runName
		case "population":
			spec.GA.PopulationSize = *population
		case "generations":
			spec.GA.Generations = *generations
		case "mutation-rate":
			spec.GA.MutationRate = *mutationRate
		case "crossover-rate":
			spec.GA.CrossoverRate = *crossoverRate
		case "elitism":
			spec.GA.ElitismCount = *elitism
		case "tournament":
			spec.GA.TournamentSize = *tournament
		case "seed":
			spec.GA.Seed = *seed
		case "parallelism":
			spec.GA.Parallelism = *parallelism
		}
	})
	if err := spec.Validate(); err != nil {
		logger.Error(ctx, "Run spec invalid after flag overrides: %v", err)
		os.Exit(1)
	}

	severity := spec.Severity()
	if *debug {
		severity = logging.DEBUG
	}
	output := logging.NewConsoleOutput(true, logging.WithColor(true))
	logger = logging.NewLogger(logging.Config{
		Severity: severity,
		Outputs:  []logging.Output{output},
	})
	logging.SetLogger(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var recorder *logging.FlightRecorder
	if *tracePath != "" {
		recorder = logging.NewFlightRecorder()
		if err := recorder.Start(); err != nil {
			logger.Error(ctx, "Failed to start flight recorder: %v", err)
			os.Exit(1)
		}
		defer recorder.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn(ctx, "Interrupt received, stopping after the current generation")
		cancel()
	}()

	images, rejected, err := corpus.Load(spec.Corpus.Dir)
	if err != nil {
		logger.Error(ctx, "Failed to load corpus: %v", err)
		os.Exit(1)
	}
	if len(rejected) > 0 {
		logger.Warn(ctx, "Ignored %d non-PNG files: %s", len(rejected), strings.Join(rejected, ", "))
	}

	train, test := corpus.Partition(images, spec.Corpus.TrainRatio, spec.Corpus.PartitionSeed)

	outDir := filepath.Join(spec.Output.Dir, spec.Run.Name)
	train, err = corpus.CopyTo(train, filepath.Join(outDir, "train"))
	if err != nil {
		logger.Error(ctx, "Failed to materialize training partition: %v", err)
		os.Exit(1)
	}
	if _, err := corpus.CopyTo(test, filepath.Join(outDir, "test")); err != nil {
		logger.Error(ctx, "Failed to materialize test partition: %v", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Corpus partitioned: train=%d, test=%d, materialized under %s",
		len(train), len(test), outDir)

	store, err := archive.Open(spec.Archive.Path)
	if err != nil {
		logger.Error(ctx, "Failed to open archive: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	compressor, err := oracle.NewCommand(spec.OracleConfig())
	if err != nil {
		logger.Error(ctx, "Failed to build compressor oracle: %v", err)
		os.Exit(1)
	}

	engine, err := ga.New(spec.GAConfig(), store.Recorder(oracle.RetryOnce(compressor)))
	if err != nil {
		logger.Error(ctx, "Failed to configure search: %v", err)
		os.Exit(1)
	}

	printer := message.NewPrinter(language.English)
	engine.SetProgressReporter(core.ReporterFunc(func(e core.ProgressEvent) {
		printer.Printf("gen %d/%d  best=%d bytes  avg fitness=%.1f  evals=%d  cache hits=%d  eta=%s\n",
			e.Generation, e.Generations, int64(-e.BestFitness), e.AverageFitness,
			e.Evaluations, e.CacheHits, e.EstimatedRemaining.Round(time.Second))
	}))

	result, err := engine.Run(ctx, train)
	interrupted := false
	if err != nil {
		if recorder != nil {
			if snapErr := recorder.Snapshot(*tracePath); snapErr != nil {
				logger.Warn(ctx, "Failed to write trace snapshot: %v", snapErr)
			} else {
				logger.Info(ctx, "Trace snapshot written to %s", *tracePath)
			}
		}
		if result == nil || len(result.History) == 0 {
			logger.Error(ctx, "Search failed: %v", err)
			os.Exit(1)
		}
		var cerr *errors.Error
		if stderrors.As(err, &cerr) && cerr.Code() == errors.Canceled {
			logger.Warn(ctx, "Search interrupted after %d generations", len(result.History))
		} else {
			logger.Error(ctx, "Search aborted after %d generations: %v", len(result.History), err)
		}
		interrupted = true
	}

	resultPath := filepath.Join(outDir, "result.json")
	if err := result.WriteJSON(resultPath); err != nil {
		logger.Error(ctx, "Failed to write result: %v", err)
		os.Exit(1)
	}
	if err := store.SaveRun(ctx, spec.Run.Name, result); err != nil {
		logger.Error(ctx, "Failed to archive run: %v", err)
		os.Exit(1)
	}

	printSummary(ctx, printer, store, result, resultPath)

	if interrupted {
		os.Exit(1)
	}
}

// printSummary prints the human-facing wrap-up: the winning weights, sizes
// against the all-neutral baseline and where the artifacts went. The baseline
// size comes from the archive, which recorded it when generation 0 evaluated
// the baseline candidate.
func printSummary(ctx context.Context, printer *message.Printer, store *archive.Store, result *ga.Result, resultPath string) {
	printer.Printf("\nRun %s finished in %s\n", result.RunID, result.Finished.Sub(result.Started).Round(time.Second))
	printer.Printf("  best weights  : %s\n", result.BestWeights)
	printer.Printf("  best size     : %d bytes\n", result.TotalBytes())

	baseline, found, err := store.Evaluation(ctx, core.Neutral())
	if err != nil {
		logging.GetLogger().Warn(ctx, "failed to read baseline evaluation from archive: %v", err)
	}
	if found && baseline.TotalBytes > 0 {
		saved := baseline.TotalBytes - result.TotalBytes()
		printer.Printf("  baseline size : %d bytes\n", baseline.TotalBytes)
		printer.Printf("  improvement   : %.2f%% (%d bytes)\n",
			float64(saved)/float64(baseline.TotalBytes)*100, saved)
	}

	printer.Printf("  oracle calls  : %d (cache hits %d)\n", result.OracleCalls, result.CacheStats.Hits)
	printer.Printf("  result        : %s\n", resultPath)
}
