// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation      SimulationConfig      `yaml:"simulation"`
	Balance         BalanceConfig         `yaml:"balance"`
	Decomposition   DecompositionConfig   `yaml:"decomposition"`
	SpeciesDefaults SpeciesDefaultsConfig `yaml:"species_defaults"`
	LoadDefaults    LoadDefaultsConfig    `yaml:"load_defaults"`
	Starter         []EnvironmentConfig   `yaml:"starter"`
	ClimateEvents   []ClimateEventConfig  `yaml:"climate_events"`
	Telemetry       TelemetryConfig       `yaml:"telemetry"`
	Bookmarks       BookmarksConfig       `yaml:"bookmarks"`
	Storage         StorageConfig         `yaml:"storage"`
	Logging         LoggingConfig         `yaml:"logging"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds run-length and pacing parameters for the driver.
type SimulationConfig struct {
	Stages     int     `yaml:"stages"`      // Number of stages to run (0 = until interrupted)
	StageDelay float64 `yaml:"stage_delay"` // Seconds to wait between stages (0 = no pacing)
	Seed       int64   `yaml:"seed"`        // RNG seed (0 = time-based)
	Workers    int     `yaml:"workers"`     // Environments stepped concurrently (<=1 = sequential)
}

// BalanceConfig holds the biodiversity balancing heuristic parameters.
type BalanceConfig struct {
	CapacityDivisor   float64 `yaml:"capacity_divisor"`   // capacity = resources / this
	OverFactor        float64 `yaml:"over_factor"`        // Reduce when population > capacity * this
	ReductionFraction float64 `yaml:"reduction_fraction"` // Reduction = floor(population * this)
	UnderFactor       float64 `yaml:"under_factor"`       // Boost when population < capacity * this
	MinCapacity       float64 `yaml:"min_capacity"`       // Boost only when capacity > this
	BoostFraction     float64 `yaml:"boost_fraction"`     // Boost = floor(capacity * this)
}

// DecompositionConfig holds decomposer yield factors.
type DecompositionConfig struct {
	CreditFactor float64 `yaml:"credit_factor"` // Pool credit per individual on success
	ReturnFactor float64 `yaml:"return_factor"` // Returned amount per individual on success
}

// SpeciesParams holds the tunable rates of one species kind.
type SpeciesParams struct {
	EnergyNeeds       float64 `yaml:"energy_needs"`
	ReproductionRate  float64 `yaml:"reproduction_rate"`
	EnergyProduction  float64 `yaml:"energy_production,omitempty"`
	DecompositionRate float64 `yaml:"decomposition_rate,omitempty"`
}

// SpeciesDefaultsConfig holds the parameters used when a species is created fresh.
type SpeciesDefaultsConfig struct {
	Producer   SpeciesParams `yaml:"producer"`
	Consumer   SpeciesParams `yaml:"consumer"`
	Decomposer SpeciesParams `yaml:"decomposer"`
}

// LoadDefaultsConfig holds the values applied to fields missing from a loaded document.
type LoadDefaultsConfig struct {
	Climate           string  `yaml:"climate"`
	Resources         float64 `yaml:"resources"`
	EnergyNeeds       float64 `yaml:"energy_needs"`
	ReproductionRate  float64 `yaml:"reproduction_rate"`
	EnergyProduction  float64 `yaml:"energy_production"`
	DecompositionRate float64 `yaml:"decomposition_rate"`
}

// EnvironmentConfig describes one environment of the starter ecosystem.
type EnvironmentConfig struct {
	Name      string          `yaml:"name"`
	Climate   string          `yaml:"climate"`
	Resources float64         `yaml:"resources"`
	Species   []SpeciesConfig `yaml:"species"`
}

// SpeciesConfig describes one starter species.
// Nil rates fall back to species_defaults for the species type.
type SpeciesConfig struct {
	Type              string   `yaml:"type"` // Plant, Animal or Microorganism
	Name              string   `yaml:"name"`
	Population        int      `yaml:"population"`
	Prey              []string `yaml:"prey,omitempty"`
	EnergyNeeds       *float64 `yaml:"energy_needs,omitempty"`
	ReproductionRate  *float64 `yaml:"reproduction_rate,omitempty"`
	EnergyProduction  *float64 `yaml:"energy_production,omitempty"`
	DecompositionRate *float64 `yaml:"decomposition_rate,omitempty"`
}

// ClimateEventConfig schedules a climate change before a stage.
type ClimateEventConfig struct {
	Stage       int    `yaml:"stage"`       // 1-based stage number
	Environment string `yaml:"environment"` // Empty = every environment
	Climate     string `yaml:"climate"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogStats  bool   `yaml:"log_stats"`  // Log per-stage stats via slog
	OutputDir string `yaml:"output_dir"` // CSV output directory (empty = disabled)
	PerfLog   bool   `yaml:"perf_log"`   // Log phase timings at the end of a run
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	HistorySize      int                    `yaml:"history_size"`
	ResourceCollapse ResourceCollapseConfig `yaml:"resource_collapse"`
	PopulationCrash  PopulationCrashConfig  `yaml:"population_crash"`
	StableEcosystem  StableEcosystemConfig  `yaml:"stable_ecosystem"`
}

// ResourceCollapseConfig holds resource collapse detection parameters.
type ResourceCollapseConfig struct {
	MinStages int `yaml:"min_stages"` // Consecutive stages with negative resources
}

// PopulationCrashConfig holds population crash detection parameters.
type PopulationCrashConfig struct {
	DropPercent float64 `yaml:"drop_percent"`
	MinDrop     int     `yaml:"min_drop"`
}

// StableEcosystemConfig holds stable ecosystem detection parameters.
type StableEcosystemConfig struct {
	Window        int     `yaml:"window"`
	CVThreshold   float64 `yaml:"cv_threshold"`
	MinPopulation int     `yaml:"min_population"`
}

// StorageConfig selects and configures the state store.
type StorageConfig struct {
	Kind        string       `yaml:"kind"`        // memory, file, sqlite, postgres, github
	DSN         string       `yaml:"dsn"`         // File path, sqlite path or postgres connection string
	Description string       `yaml:"description"` // Change description format, receives the stage number
	GitHub      GitHubConfig `yaml:"github"`
}

// GitHubConfig holds repository coordinates for the GitHub store.
type GitHubConfig struct {
	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	Path     string `yaml:"path"`
	Branch   string `yaml:"branch"`
	TokenEnv string `yaml:"token_env"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	StageDelay time.Duration // Simulation.StageDelay as a duration
	LogLevel   slog.Level    // Logging.Level parsed
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.ComputeDerived()

	return cfg, nil
}

// Validate reports the first parameter outside its allowed range.
func (c *Config) Validate() error {
	if c.Simulation.Stages < 0 {
		return errors.New("simulation.stages must be >= 0")
	}
	if c.Simulation.StageDelay < 0 {
		return errors.New("simulation.stage_delay must be >= 0")
	}
	if c.Balance.CapacityDivisor <= 0 {
		return errors.New("balance.capacity_divisor must be > 0")
	}

	params := map[string]SpeciesParams{
		"producer":   c.SpeciesDefaults.Producer,
		"consumer":   c.SpeciesDefaults.Consumer,
		"decomposer": c.SpeciesDefaults.Decomposer,
	}
	for name, p := range params {
		if err := checkRate("species_defaults."+name+".reproduction_rate", p.ReproductionRate); err != nil {
			return err
		}
		if p.EnergyNeeds < 0 {
			return fmt.Errorf("species_defaults.%s.energy_needs must be >= 0", name)
		}
	}
	if err := checkRate("species_defaults.decomposer.decomposition_rate", c.SpeciesDefaults.Decomposer.DecompositionRate); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Starter))
	for _, env := range c.Starter {
		if env.Name == "" {
			return errors.New("starter environment without a name")
		}
		if seen[env.Name] {
			return fmt.Errorf("duplicate starter environment %q", env.Name)
		}
		seen[env.Name] = true
		for _, sp := range env.Species {
			if sp.Population < 0 {
				return fmt.Errorf("starter species %s/%s: population must be >= 0", env.Name, sp.Name)
			}
			if sp.ReproductionRate != nil {
				if err := checkRate("starter "+env.Name+"/"+sp.Name+" reproduction_rate", *sp.ReproductionRate); err != nil {
					return err
				}
			}
			if sp.DecompositionRate != nil {
				if err := checkRate("starter "+env.Name+"/"+sp.Name+" decomposition_rate", *sp.DecompositionRate); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkRate(field string, v float64) error {
	if v < 0 || v >= 1 {
		return fmt.Errorf("%s must be in [0,1), got %v", field, v)
	}
	return nil
}

// ComputeDerived calculates values derived from loaded config.
// Call again after mutating fields that feed derived values.
func (c *Config) ComputeDerived() {
	c.Derived.StageDelay = time.Duration(c.Simulation.StageDelay * float64(time.Second))
	c.Derived.LogLevel = ParseLogLevel(c.Logging.Level)

	if c.Storage.Description == "" {
		c.Storage.Description = "Automatic ecosystem save - stage %d"
	}
	if c.LoadDefaults.Climate == "" {
		c.LoadDefaults.Climate = "moderate"
	}
}

// ParseLogLevel parses a string log level (case-insensitive) into a slog.Level.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
