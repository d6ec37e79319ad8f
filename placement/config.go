package placement

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid optimizer config")

// Config tunes the optimizer. Zero values are replaced by ApplyDefaults.
type Config struct {
	PopulationSize     int `yaml:"population_size" json:"population_size"`
	Generations        int `yaml:"generations" json:"generations"`
	MaxExpectedRouters int `yaml:"max_expected_routers" json:"max_expected_routers"`

	CrossoverProbability float64 `yaml:"crossover_probability" json:"crossover_probability"`
	// MutationProbability is the per-bit flip probability. Zero selects
	// 1/n for n candidates, capped at 0.5.
	MutationProbability float64 `yaml:"mutation_probability" json:"mutation_probability"`

	Seed    uint64 `yaml:"seed" json:"seed"`
	Workers int    `yaml:"workers" json:"workers"`
	// CacheSize bounds the evaluation cache. Zero disables it.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// DefaultConfig mirrors the classic setup: 50 individuals for 50
// generations, seeded with 1.
func DefaultConfig() Config {
	return Config{
		PopulationSize:       50,
		Generations:          50,
		MaxExpectedRouters:   5,
		CrossoverProbability: 0.9,
		Seed:                 1,
		Workers:              1,
		CacheSize:            4096,
	}
}

// ApplyDefaults fills unset fields from DefaultConfig. Generations and
// probabilities are left alone since zero is meaningful for them.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.PopulationSize == 0 {
		c.PopulationSize = def.PopulationSize
	}
	if c.MaxExpectedRouters == 0 {
		c.MaxExpectedRouters = def.MaxExpectedRouters
	}
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
}

func (c Config) Validate() error {
	switch {
	case c.PopulationSize < 2:
		return fmt.Errorf("%w: population size %d must be at least 2", ErrInvalidConfig, c.PopulationSize)
	case c.Generations < 0:
		return fmt.Errorf("%w: generations %d must be non-negative", ErrInvalidConfig, c.Generations)
	case c.MaxExpectedRouters < 1:
		return fmt.Errorf("%w: max expected routers %d must be positive", ErrInvalidConfig, c.MaxExpectedRouters)
	case c.CrossoverProbability < 0 || c.CrossoverProbability > 1:
		return fmt.Errorf("%w: crossover probability %v outside [0, 1]", ErrInvalidConfig, c.CrossoverProbability)
	case c.MutationProbability < 0 || c.MutationProbability > 1:
		return fmt.Errorf("%w: mutation probability %v outside [0, 1]", ErrInvalidConfig, c.MutationProbability)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d must be positive", ErrInvalidConfig, c.Workers)
	case c.CacheSize < 0:
		return fmt.Errorf("%w: cache size %d must be non-negative", ErrInvalidConfig, c.CacheSize)
	}
	return nil
}

// mutationRate resolves the per-bit flip probability for n candidates.
func (c Config) mutationRate(n int) float64 {
	if c.MutationProbability > 0 {
		return c.MutationProbability
	}
	if n == 0 {
		return 0
	}
	return min(1/float64(n), 0.5)
}

// activationRate is the per-bit probability used for the initial
// population.
func (c Config) activationRate(n int) float64 {
	if n == 0 {
		return 0
	}
	return min(float64(c.MaxExpectedRouters)/float64(n), 0.5)
}
