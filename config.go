package atomenv

import (
	"fmt"
	"math"
	"time"

	"github.com/arloliu/atomenv/changes"
	"github.com/arloliu/atomenv/scratch"
	"gopkg.in/yaml.v3"
)

// ScratchConfig configures the scratch area used by Gather.
type ScratchConfig struct {
	// Root is the key prefix of the per-atom entries ("<root>/loc_<index>").
	// Configurations gathered concurrently through one store need distinct roots.
	Root string `yaml:"root"`

	// OperationTimeout bounds every single scratch operation (put, get).
	// It never applies to the group barrier, which waits for as long as the
	// caller's context allows.
	//
	// Default: 10 seconds
	OperationTimeout time.Duration `yaml:"operationTimeout"`
}

// Config is the configuration of a Configuration.
//
// All duration fields accept standard Go duration strings like "500ms" or "10s".
type Config struct {
	// Cutoff is the neighbor cutoff radius. Atoms closer than Cutoff are
	// neighbors; every atom is searched with a radius of Cutoff/2.
	//
	// Zero defers the neighbor list until an Update supplies a cutoff.
	Cutoff float64 `yaml:"cutoff"`

	// DeterministicPartition disables the randomized range split, so a rank
	// always owns the same contiguous block of atoms.
	DeterministicPartition bool `yaml:"deterministicPartition"`

	// SkipStaging builds views without running the feature generators on them.
	SkipStaging bool `yaml:"skipStaging"`

	// Tolerance controls when positions and cell count as changed.
	//
	// Default: relative 1e-5, absolute 1e-8
	Tolerance changes.Tolerance `yaml:"tolerance"`

	// Scratch configures the scratch area used by Gather.
	Scratch ScratchConfig `yaml:"scratch"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values and no cutoff
func DefaultConfig() Config {
	return Config{
		Tolerance: changes.DefaultTolerance(),
		Scratch: ScratchConfig{
			Root:             scratch.DefaultRoot,
			OperationTimeout: 10 * time.Second,
		},
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// A zero Tolerance is replaced as a whole; set a tiny non-zero value to
// request near-exact comparison.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Tolerance == (changes.Tolerance{}) {
		cfg.Tolerance = defaults.Tolerance
	}
	if cfg.Scratch.Root == "" {
		cfg.Scratch.Root = defaults.Scratch.Root
	}
	if cfg.Scratch.OperationTimeout == 0 {
		cfg.Scratch.OperationTimeout = defaults.Scratch.OperationTimeout
	}
}

// Validate checks configuration constraints.
//
// Rules:
//   - Cutoff is finite and not negative
//   - Tolerance components are finite and not negative
//   - Scratch.OperationTimeout is not negative
//
// Returns:
//   - error: ErrInvalidCutoff or ErrInvalidConfig (wrapped), nil if valid
func (cfg *Config) Validate() error {
	if !finiteNonNegative(cfg.Cutoff) {
		return fmt.Errorf("%w: cutoff must be finite and >= 0, got %v", ErrInvalidCutoff, cfg.Cutoff)
	}

	if !finiteNonNegative(cfg.Tolerance.Relative) || !finiteNonNegative(cfg.Tolerance.Absolute) {
		return fmt.Errorf("%w: tolerance must be finite and >= 0, got relative %v absolute %v",
			ErrInvalidConfig, cfg.Tolerance.Relative, cfg.Tolerance.Absolute)
	}

	if cfg.Scratch.OperationTimeout < 0 {
		return fmt.Errorf("%w: scratch operation timeout must be >= 0, got %v",
			ErrInvalidConfig, cfg.Scratch.OperationTimeout)
	}

	return nil
}

// ValidateWithWarnings logs warnings for valid but unusual values.
//
// This is called after Validate() in New() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.Cutoff == 0 {
		logger.Warn("no cutoff configured, views stay empty until Update supplies one")
	}

	if cfg.Tolerance.Relative > 1e-2 {
		logger.Warn(
			"relative tolerance is loose, small displacements will not trigger a rebuild",
			"relative", cfg.Tolerance.Relative,
			"recommended", changes.DefaultTolerance().Relative,
		)
	}

	if cfg.Scratch.OperationTimeout > 0 && cfg.Scratch.OperationTimeout < 100*time.Millisecond {
		logger.Warn(
			"scratch operation timeout is very short, gathers may fail under load",
			"timeout", cfg.Scratch.OperationTimeout,
			"recommended", "1s or higher",
		)
	}
}

// TestConfig returns a configuration for fast, reproducible tests.
//
// Partitioning is deterministic and scratch operations time out quickly.
//
// Returns:
//   - Config: Configuration with a 3.0 cutoff
//
// Example:
//
//	cfg := atomenv.TestConfig()
//	cfg.Cutoff = 5.0
//	c, err := atomenv.New(species, positions, cell, pbc, cfg)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.Cutoff = 3.0
	cfg.DeterministicPartition = true
	cfg.Scratch.OperationTimeout = 2 * time.Second

	return cfg
}

// ParseConfig decodes a YAML document into a Config.
//
// Missing fields take their defaults; the result is validated.
//
// Parameters:
//   - data: YAML document
//
// Returns:
//   - Config: Decoded configuration
//   - error: Decode error, or the Validate error
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
