package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightRecorder(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		fr := NewFlightRecorder()
		assert.NotNil(t, fr.recorder)
		assert.Equal(t, 10*time.Second, fr.config.MinAge)
		assert.False(t, fr.running)
	})

	t.Run("custom min age", func(t *testing.T) {
		fr := NewFlightRecorder(WithMinAge(30 * time.Second))
		assert.Equal(t, 30*time.Second, fr.config.MinAge)
	})

	t.Run("max bytes", func(t *testing.T) {
		fr := NewFlightRecorder(WithMaxBytes(1024 * 1024))
		assert.Equal(t, uint64(1024*1024), fr.config.MaxBytes)
	})

	t.Run("start and stop are idempotent", func(t *testing.T) {
		fr := NewFlightRecorder(WithMinAge(1 * time.Second))

		require.NoError(t, fr.Start())
		assert.True(t, fr.running)
		require.NoError(t, fr.Start())

		fr.Stop()
		assert.False(t, fr.running)
		fr.Stop()
		assert.False(t, fr.running)
	})

	t.Run("snapshot writes the buffer", func(t *testing.T) {
		fr := NewFlightRecorder(WithMinAge(1 * time.Second))
		require.NoError(t, fr.Start())
		defer fr.Stop()

		// Let some trace data accumulate
		time.Sleep(10 * time.Millisecond)

		path := filepath.Join(t.TempDir(), "abort.trace")
		require.NoError(t, fr.Snapshot(path))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	})

	t.Run("snapshot without a running recorder is a no-op", func(t *testing.T) {
		fr := NewFlightRecorder()

		path := filepath.Join(t.TempDir(), "abort.trace")
		require.NoError(t, fr.Snapshot(path))

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestTraceHelpers(t *testing.T) {
	t.Run("region", func(t *testing.T) {
		endRegion := TraceRegion(context.Background(), "evaluate-population")
		require.NotNil(t, endRegion)
		endRegion()
	})

	t.Run("task", func(t *testing.T) {
		ctx, endTask := TraceTask(context.Background(), "weight-search")
		assert.NotNil(t, ctx)
		require.NotNil(t, endTask)
		endTask()
	})
}
