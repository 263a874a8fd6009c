// Package config loads run specifications: YAML documents describing one
// complete search run, from corpus location to oracle binaries. Values the
// document omits keep their defaults, so an explicit zero (a mutation rate
// of 0, say) is honored while a missing key is not mistaken for one.
package config

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
	"github.com/xavierhillroy/libjxl-wop8/pkg/ga"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
	"github.com/xavierhillroy/libjxl-wop8/pkg/oracle"
)

// RunSpec is the top-level run specification.
type RunSpec struct {
	// Run identifies and scopes the run
	Run RunSection `yaml:"run"`

	// Corpus locates and partitions the training images
	Corpus CorpusSection `yaml:"corpus"`

	// GA holds the search knobs
	GA GASection `yaml:"ga"`

	// Oracle configures the external compressor
	Oracle OracleSection `yaml:"oracle"`

	// Archive and Output configure persistence
	Archive ArchiveSection `yaml:"archive,omitempty"`
	Output  OutputSection  `yaml:"output,omitempty"`
}

// RunSection names the run and sets its log level.
type RunSection struct {
	Name     string `yaml:"name" validate:"required"`
	LogLevel string `yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
}

// CorpusSection locates the training images and controls the train/test
// split.
type CorpusSection struct {
	Dir           string  `yaml:"dir" validate:"required"`
	TrainRatio    float64 `yaml:"train_ratio" validate:"gt=0,lte=1"`
	PartitionSeed int64   `yaml:"partition_seed"`
}

// GASection carries the search knobs; see ga.Config for their meaning.
type GASection struct {
	PopulationSize int     `yaml:"population_size"`
	Generations    int     `yaml:"generations"`
	MutationRate   float64 `yaml:"mutation_rate"`
	CrossoverRate  float64 `yaml:"crossover_rate"`
	ElitismCount   int     `yaml:"elitism_count"`
	TournamentSize int     `yaml:"tournament_size"`
	Seed           int64   `yaml:"seed"`
	Parallelism    int     `yaml:"parallelism"`
}

// OracleSection configures the external compressor invocation.
type OracleSection struct {
	Compressor    string   `yaml:"compressor" validate:"required"`
	Decompressor  string   `yaml:"decompressor,omitempty"`
	ExtraArgs     []string `yaml:"extra_args,omitempty"`
	WeightsArg    string   `yaml:"weights_arg,omitempty"`
	WorkDir       string   `yaml:"work_dir,omitempty"`
	KeepArtifacts bool     `yaml:"keep_artifacts,omitempty"`
	ComputeMAE    bool     `yaml:"compute_mae,omitempty"`
}

// ArchiveSection locates the SQLite archive.
type ArchiveSection struct {
	Path string `yaml:"path,omitempty"`
}

// OutputSection locates run outputs (result JSON, materialized partitions).
type OutputSection struct {
	Dir string `yaml:"dir,omitempty"`
}

// Load reads the run spec at path, overlays it on the defaults and
// validates the result.
func Load(path string) (*RunSpec, error) {
	spec := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ConfigurationInvalid, "read run spec"),
			errors.Fields{"path": path},
		)
	}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ConfigurationInvalid, "parse run spec"),
			errors.Fields{"path": path},
		)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

var validate = validator.New()

// Validate checks the spec, including the GA knobs via ga.Config.
func (s *RunSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			return errors.WithFields(
				errors.New(errors.ConfigurationInvalid, "invalid run spec"),
				errors.Fields{"field": verrs[0].Namespace(), "constraint": verrs[0].Tag()},
			)
		}
		return errors.Wrap(err, errors.ConfigurationInvalid, "invalid run spec")
	}
	if s.Oracle.ComputeMAE && s.Oracle.Decompressor == "" {
		return errors.New(errors.ConfigurationInvalid, "compute_mae requires a decompressor")
	}
	return s.GAConfig().Validate()
}

// GAConfig converts the ga section into the engine's configuration.
func (s *RunSpec) GAConfig() *ga.Config {
	return &ga.Config{
		PopulationSize: s.GA.PopulationSize,
		Generations:    s.GA.Generations,
		MutationRate:   s.GA.MutationRate,
		CrossoverRate:  s.GA.CrossoverRate,
		ElitismCount:   s.GA.ElitismCount,
		TournamentSize: s.GA.TournamentSize,
		Seed:           s.GA.Seed,
		Parallelism:    s.GA.Parallelism,
	}
}

// OracleConfig converts the oracle section into the command adapter's
// configuration.
func (s *RunSpec) OracleConfig() oracle.CommandConfig {
	return oracle.CommandConfig{
		Compressor:    s.Oracle.Compressor,
		Decompressor:  s.Oracle.Decompressor,
		ExtraArgs:     s.Oracle.ExtraArgs,
		WeightsArg:    s.Oracle.WeightsArg,
		WorkDir:       s.Oracle.WorkDir,
		KeepArtifacts: s.Oracle.KeepArtifacts,
		ComputeMAE:    s.Oracle.ComputeMAE,
	}
}

// Severity maps the configured log level onto the logger's scale.
func (s *RunSpec) Severity() logging.Severity {
	return logging.ParseSeverity(strings.ToUpper(s.Run.LogLevel))
}
