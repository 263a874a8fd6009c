package core

import "time"

// ProgressEvent is one generation's worth of telemetry, emitted after the
// generation has been fully evaluated and recorded.
type ProgressEvent struct {
	Generation         int           // generations completed so far, starting at 1
	Generations        int           // total generations budgeted for the run
	BestFitness        float64       // best-ever fitness after this generation
	AverageFitness     float64       // mean fitness of this generation's population
	BestWeights        Vector        // best-ever weights after this generation
	Evaluations        int64         // oracle invocations so far
	CacheHits          int64         // fitness cache hits so far
	Elapsed            time.Duration // wall time since the run started
	EstimatedRemaining time.Duration // elapsed-rate projection over remaining generations
}

// ProgressReporter receives one event per completed generation. Events arrive
// from the loop's single-threaded advancing phase, so implementations need no
// synchronization of their own.
type ProgressReporter interface {
	Report(event ProgressEvent)
}

// ReporterFunc adapts a plain function to the ProgressReporter interface.
type ReporterFunc func(ProgressEvent)

// Report calls f.
func (f ReporterFunc) Report(event ProgressEvent) {
	f(event)
}
