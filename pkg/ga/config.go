package ga

import (
	stderrors "errors"

	"github.com/go-playground/validator/v10"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
)

// Config holds the knobs for a single search run. All fields are immutable
// once the run starts; together with the corpus identity and the oracle they
// fully determine the evolution trajectory.
type Config struct {
	// Evolutionary parameters
	PopulationSize int     `json:"population_size" validate:"gte=2"`      // Default: 30
	Generations    int     `json:"generations" validate:"gte=1"`          // Default: 24
	MutationRate   float64 `json:"mutation_rate" validate:"gte=0,lte=1"`  // Default: 0.05
	CrossoverRate  float64 `json:"crossover_rate" validate:"gte=0,lte=1"` // Default: 0.9

	// Selection parameters
	ElitismCount   int `json:"elitism_count" validate:"gte=0,ltfield=PopulationSize"`    // Default: 2
	TournamentSize int `json:"tournament_size" validate:"gte=1,ltefield=PopulationSize"` // Default: 3

	// Reproducibility and performance
	Seed        int64 `json:"seed"`                         // Default: 1
	Parallelism int   `json:"parallelism" validate:"gte=1"` // Default: 1

	// Baseline overrides the first vector of the initial population.
	// Nil selects core.Neutral().
	Baseline *core.Vector `json:"baseline,omitempty"`
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() *Config {
	return &Config{
		PopulationSize: 30,
		Generations:    24,
		MutationRate:   0.05,
		CrossoverRate:  0.9,
		ElitismCount:   2,
		TournamentSize: 3,
		Seed:           1,
		Parallelism:    1,
	}
}

var validate = validator.New()

// Validate checks the configuration ranges. Violations are reported as
// ConfigurationInvalid and never repaired: an elitism count at or above the
// population size is rejected, not clamped.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			return errors.WithFields(
				errors.New(errors.ConfigurationInvalid, "invalid search configuration"),
				errors.Fields{"field": verrs[0].Field(), "constraint": verrs[0].Tag()},
			)
		}
		return errors.Wrap(err, errors.ConfigurationInvalid, "invalid search configuration")
	}
	if c.Baseline != nil {
		if _, err := core.NewVector(c.Baseline.Genes()); err != nil {
			return errors.Wrap(err, errors.ConfigurationInvalid, "invalid baseline vector")
		}
	}
	return nil
}

// baseline returns the designated first vector of generation zero.
func (c *Config) baseline() core.Vector {
	if c.Baseline != nil {
		return *c.Baseline
	}
	return core.Neutral()
}
