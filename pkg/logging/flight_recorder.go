package logging

import (
	"context"
	"os"
	"runtime/trace"
	"sync"
	"time"
)

// FlightRecorder keeps a ring buffer of recent runtime trace data so that an
// aborted search can be diagnosed after the fact. A weight search spends
// hours inside external compressor processes; when a run dies the snapshot
// shows what the workers were doing leading up to the abort. Overhead is low
// enough to leave on for whole runs.
type FlightRecorder struct {
	recorder *trace.FlightRecorder
	mu       sync.Mutex
	running  bool
	config   trace.FlightRecorderConfig
}

// FlightRecorderOption configures a FlightRecorder.
type FlightRecorderOption func(*FlightRecorder)

// WithMinAge sets the minimum age of events kept in the buffer. Default is
// 10 seconds; longer windows capture more history but use more memory.
func WithMinAge(d time.Duration) FlightRecorderOption {
	return func(fr *FlightRecorder) {
		fr.config.MinAge = d
	}
}

// WithMaxBytes caps the buffer size in bytes and takes precedence over
// MinAge. Zero leaves the cap implementation defined.
func WithMaxBytes(n uint64) FlightRecorderOption {
	return func(fr *FlightRecorder) {
		fr.config.MaxBytes = n
	}
}

// NewFlightRecorder creates a recorder with the given options.
func NewFlightRecorder(opts ...FlightRecorderOption) *FlightRecorder {
	fr := &FlightRecorder{
		config: trace.FlightRecorderConfig{
			MinAge: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(fr)
	}

	fr.recorder = trace.NewFlightRecorder(fr.config)

	return fr
}

// Start begins recording into the ring buffer. Idempotent.
func (fr *FlightRecorder) Start() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.running {
		return nil
	}

	if err := fr.recorder.Start(); err != nil {
		return err
	}

	fr.running = true
	return nil
}

// Stop stops recording. Idempotent.
func (fr *FlightRecorder) Stop() {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if !fr.running {
		return
	}

	fr.recorder.Stop()
	fr.running = false
}

// Enabled reports whether the recorder is currently running.
func (fr *FlightRecorder) Enabled() bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.running && fr.recorder.Enabled()
}

// Snapshot writes the current buffer to filename. A no-op when the recorder
// is not running, so callers can snapshot unconditionally on the abort path.
func (fr *FlightRecorder) Snapshot(filename string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if !fr.running {
		return nil
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fr.recorder.WriteTo(f)
	return err
}

// TraceRegion marks a code section in the trace timeline.
//
//	defer TraceRegion(ctx, "evaluate-population")()
func TraceRegion(ctx context.Context, name string) func() {
	region := trace.StartRegion(ctx, name)
	return region.End
}

// TraceTask groups trace regions under a high-level operation, one task per
// search run. Returns the task context and an end function.
func TraceTask(ctx context.Context, name string) (context.Context, func()) {
	ctx, task := trace.NewTask(ctx, name)
	return ctx, task.End
}
