package logging

import "context"

// LogEntry represents a structured log record with fields particularly relevant
// to optimization runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Run-specific fields
	RunID      string // The optimization run being executed
	Generation int    // Generation index within the run, -1 outside the loop

	// General structured data
	Fields map[string]interface{}
}

// Context keys for run-scoped values.
type runIDKeyType struct{}
type generationKeyType struct{}

var (
	runIDKey      = runIDKeyType{}
	generationKey = generationKeyType{}
)

// WithRunID attaches an optimization run ID to the context so every log entry
// emitted during the run carries it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey).(string)
	return runID, ok
}

// WithGeneration attaches the current generation index to the context.
func WithGeneration(ctx context.Context, generation int) context.Context {
	return context.WithValue(ctx, generationKey, generation)
}

// GetGeneration retrieves the generation index from the context.
func GetGeneration(ctx context.Context) (int, bool) {
	generation, ok := ctx.Value(generationKey).(int)
	return generation, ok
}
