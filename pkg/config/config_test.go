package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
)

func writeSpec(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// validSpec returns a spec that passes validation: the defaults plus the
// two required fields.
func validSpec() *RunSpec {
	spec := Default()
	spec.Corpus.Dir = "/data/png"
	spec.Oracle.Compressor = "/usr/bin/cjxl"
	return spec
}

func TestDefault(t *testing.T) {
	spec := Default()

	assert.Equal(t, "wop8", spec.Run.Name)
	assert.Equal(t, "info", spec.Run.LogLevel)
	assert.Equal(t, 0.1, spec.Corpus.TrainRatio)
	assert.Equal(t, int64(42), spec.Corpus.PartitionSeed)
	assert.Equal(t, 30, spec.GA.PopulationSize)
	assert.Equal(t, 24, spec.GA.Generations)
	assert.Equal(t, 0.05, spec.GA.MutationRate)
	assert.Equal(t, 0.9, spec.GA.CrossoverRate)
	assert.Equal(t, 2, spec.GA.ElitismCount)
	assert.Equal(t, 3, spec.GA.TournamentSize)
	assert.Equal(t, int64(1), spec.GA.Seed)
	assert.Equal(t, 1, spec.GA.Parallelism)
	assert.Equal(t, []string{"--distance=0", "--effort=7"}, spec.Oracle.ExtraArgs)
	assert.Equal(t, "wop8_archive.db", spec.Archive.Path)
	assert.Equal(t, "results", spec.Output.Dir)
}

func TestLoadOverlaysDocumentOnDefaults(t *testing.T) {
	path := writeSpec(t, `
run:
  name: screenshots-v2
  log_level: debug
corpus:
  dir: /data/png
  train_ratio: 0.25
ga:
  mutation_rate: 0
  seed: 99
oracle:
  compressor: /usr/bin/cjxl
`)

	spec, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "screenshots-v2", spec.Run.Name)
	assert.Equal(t, "debug", spec.Run.LogLevel)
	assert.Equal(t, "/data/png", spec.Corpus.Dir)
	assert.Equal(t, 0.25, spec.Corpus.TrainRatio)

	// An explicit zero is honored, not mistaken for a missing key.
	assert.Equal(t, 0.0, spec.GA.MutationRate)
	assert.Equal(t, int64(99), spec.GA.Seed)

	// Keys the document omits keep their defaults.
	assert.Equal(t, int64(42), spec.Corpus.PartitionSeed)
	assert.Equal(t, 24, spec.GA.Generations)
	assert.Equal(t, 0.9, spec.GA.CrossoverRate)
	assert.Equal(t, []string{"--distance=0", "--effort=7"}, spec.Oracle.ExtraArgs)
	assert.Equal(t, "wop8_archive.db", spec.Archive.Path)
	assert.Equal(t, "results", spec.Output.Dir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	var cerr *errors.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, errors.ConfigurationInvalid, cerr.Code())
}

func TestLoadMalformedDocument(t *testing.T) {
	path := writeSpec(t, "run: [this is not\n  a mapping")

	_, err := Load(path)
	require.Error(t, err)

	var cerr *errors.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, errors.ConfigurationInvalid, cerr.Code())
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunSpec)
	}{
		{
			name:   "missing compressor",
			mutate: func(s *RunSpec) { s.Oracle.Compressor = "" },
		},
		{
			name:   "missing corpus dir",
			mutate: func(s *RunSpec) { s.Corpus.Dir = "" },
		},
		{
			name:   "zero train ratio",
			mutate: func(s *RunSpec) { s.Corpus.TrainRatio = 0 },
		},
		{
			name:   "train ratio above one",
			mutate: func(s *RunSpec) { s.Corpus.TrainRatio = 1.5 },
		},
		{
			name:   "unknown log level",
			mutate: func(s *RunSpec) { s.Run.LogLevel = "verbose" },
		},
		{
			name:   "compute_mae without decompressor",
			mutate: func(s *RunSpec) { s.Oracle.ComputeMAE = true },
		},
		{
			name:   "elitism not below population",
			mutate: func(s *RunSpec) { s.GA.ElitismCount = s.GA.PopulationSize },
		},
		{
			name:   "tournament larger than population",
			mutate: func(s *RunSpec) { s.GA.TournamentSize = s.GA.PopulationSize + 1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)

			err := spec.Validate()
			require.Error(t, err)

			var cerr *errors.Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, errors.ConfigurationInvalid, cerr.Code())
		})
	}
}

func TestValidationReportsField(t *testing.T) {
	spec := validSpec()
	spec.Corpus.TrainRatio = -0.5

	err := spec.Validate()
	require.Error(t, err)

	var cerr *errors.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "RunSpec.Corpus.TrainRatio", cerr.Fields()["field"])
}

func TestGAConfigConversion(t *testing.T) {
	spec := validSpec()
	spec.GA.MutationRate = 0
	spec.GA.Parallelism = 4

	cfg := spec.GAConfig()
	assert.Equal(t, 30, cfg.PopulationSize)
	assert.Equal(t, 24, cfg.Generations)
	assert.Equal(t, 0.0, cfg.MutationRate)
	assert.Equal(t, 0.9, cfg.CrossoverRate)
	assert.Equal(t, 2, cfg.ElitismCount)
	assert.Equal(t, 3, cfg.TournamentSize)
	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, 4, cfg.Parallelism)
}

func TestOracleConfigConversion(t *testing.T) {
	spec := validSpec()
	spec.Oracle.Decompressor = "/usr/bin/djxl"
	spec.Oracle.ComputeMAE = true
	spec.Oracle.KeepArtifacts = true
	spec.Oracle.WeightsArg = "--weights={weights}"

	cfg := spec.OracleConfig()
	assert.Equal(t, "/usr/bin/cjxl", cfg.Compressor)
	assert.Equal(t, "/usr/bin/djxl", cfg.Decompressor)
	assert.Equal(t, []string{"--distance=0", "--effort=7"}, cfg.ExtraArgs)
	assert.Equal(t, "--weights={weights}", cfg.WeightsArg)
	assert.True(t, cfg.KeepArtifacts)
	assert.True(t, cfg.ComputeMAE)
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		level string
		want  logging.Severity
	}{
		{"debug", logging.DEBUG},
		{"info", logging.INFO},
		{"warn", logging.WARN},
		{"error", logging.ERROR},
		{"", logging.INFO},
	}

	for _, tt := range tests {
		spec := Default()
		spec.Run.LogLevel = tt.level
		assert.Equal(t, tt.want, spec.Severity(), "level %q", tt.level)
	}
}
