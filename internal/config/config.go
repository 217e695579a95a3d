// Package config holds the run configuration for the group and consensus
// stages. Values come from an optional treeterminus.yml project file, then
// TREETERMINUS_* environment variables, then command-line flags, with later
// sources taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// TREETERMINUS_GROUP_TOLERANCE for group.tolerance.
const EnvPrefix = "TREETERMINUS"

// FileNames lists the project file names tried by Load, in order.
var FileNames = []string{"treeterminus.yml", "treeterminus.yaml"}

// Config is the effective configuration of a run.
type Config struct {
	Group     GroupConfig     `yaml:"group" mapstructure:"group"`
	Consensus ConsensusConfig `yaml:"consensus" mapstructure:"consensus"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Workers   int             `yaml:"workers,omitempty" mapstructure:"workers"`
}

// GroupConfig configures per-sample collapsing.
type GroupConfig struct {
	Dir       string  `yaml:"dir,omitempty" mapstructure:"dir"`
	Out       string  `yaml:"out,omitempty" mapstructure:"out"`
	MinSpread float64 `yaml:"min_spread" mapstructure:"min_spread"`
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance"`
	Seed      uint64  `yaml:"seed" mapstructure:"seed"`
	A2T       string  `yaml:"a2t,omitempty" mapstructure:"a2t"`
	T2G       string  `yaml:"t2g,omitempty" mapstructure:"t2g"`
	Threshold bool    `yaml:"thr" mapstructure:"thr"`
	MeanInf   bool    `yaml:"mean_inf" mapstructure:"mean_inf"`
	InfPerc   float64 `yaml:"inf_perc" mapstructure:"inf_perc"`
}

// ConsensusConfig configures cross-sample aggregation and synthesis.
type ConsensusConfig struct {
	Dirs     string        `yaml:"dirs,omitempty" mapstructure:"dirs"`
	Out      string        `yaml:"out,omitempty" mapstructure:"out"`
	Consense string        `yaml:"consense,omitempty" mapstructure:"consense"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Index    string        `yaml:"index,omitempty" mapstructure:"index"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file,omitempty" mapstructure:"file"`
}

// KeyReplacer maps nested keys to env variable suffixes
// (group.min_spread -> GROUP_MIN_SPREAD).
func KeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Group: GroupConfig{
			MinSpread: 0.1,
			Tolerance: 0.001,
			Seed:      10,
			MeanInf:   true,
		},
		Consensus: ConsensusConfig{
			Timeout: 5 * time.Minute,
		},
		Log: LogConfig{
			Level: "INFO",
		},
		Workers: runtime.GOMAXPROCS(0),
	}
}

// Load attempts to read treeterminus.yml or treeterminus.yaml from the given
// directory on top of the defaults. Returns the defaults (not an error) if
// no config file exists.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	return Default(), nil
}

// LoadFile reads the given YAML file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("cannot read config file", errors.ErrMissingInput).WithPath(path)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("cannot decode config file: %v", err), errors.ErrInvalidValue).
			WithPath(path)
	}
	return cfg, nil
}

// SetDefaults registers every key of cfg as a viper default so that env
// variables and bound flags override file values.
func SetDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("group.dir", cfg.Group.Dir)
	v.SetDefault("group.out", cfg.Group.Out)
	v.SetDefault("group.min_spread", cfg.Group.MinSpread)
	v.SetDefault("group.tolerance", cfg.Group.Tolerance)
	v.SetDefault("group.seed", cfg.Group.Seed)
	v.SetDefault("group.a2t", cfg.Group.A2T)
	v.SetDefault("group.t2g", cfg.Group.T2G)
	v.SetDefault("group.thr", cfg.Group.Threshold)
	v.SetDefault("group.mean_inf", cfg.Group.MeanInf)
	v.SetDefault("group.inf_perc", cfg.Group.InfPerc)

	v.SetDefault("consensus.dirs", cfg.Consensus.Dirs)
	v.SetDefault("consensus.out", cfg.Consensus.Out)
	v.SetDefault("consensus.consense", cfg.Consensus.Consense)
	v.SetDefault("consensus.timeout", cfg.Consensus.Timeout)
	v.SetDefault("consensus.index", cfg.Consensus.Index)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)

	v.SetDefault("workers", cfg.Workers)
}

// FromViper assembles the effective configuration from v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("cannot decode configuration: %v", err), errors.ErrInvalidValue)
	}
	return &cfg, nil
}

// ValidateGroup checks the settings used by the group stage.
func (c *Config) ValidateGroup() error {
	g := c.Group
	var errs []error
	if g.Dir == "" {
		errs = append(errs, errors.NewConfigError("--dir is required", errors.ErrMissingInput))
	}
	if g.Out == "" {
		errs = append(errs, errors.NewConfigError("--out is required", errors.ErrMissingInput))
	}
	if g.Tolerance < 0 {
		errs = append(errs, errors.NewConfigError(fmt.Sprintf("tolerance must be non-negative, got %g", g.Tolerance), errors.ErrInvalidValue))
	}
	if g.MinSpread < 0 {
		errs = append(errs, errors.NewConfigError(fmt.Sprintf("min_spread must be non-negative, got %g", g.MinSpread), errors.ErrInvalidValue))
	}
	if g.InfPerc < 0 || g.InfPerc > 1 {
		errs = append(errs, errors.NewConfigError(fmt.Sprintf("inf_perc must be within [0,1], got %g", g.InfPerc), errors.ErrInvalidValue))
	}
	errs = append(errs, c.validateCommon()...)
	return errors.Join(errs...)
}

// ValidateConsensus checks the settings used by the consensus stage.
func (c *Config) ValidateConsensus() error {
	k := c.Consensus
	var errs []error
	if k.Dirs == "" {
		errs = append(errs, errors.NewConfigError("--dirs is required", errors.ErrMissingInput))
	}
	if k.Out == "" {
		errs = append(errs, errors.NewConfigError("--out is required", errors.ErrMissingInput))
	}
	if k.Timeout <= 0 {
		errs = append(errs, errors.NewConfigError(fmt.Sprintf("timeout must be positive, got %s", k.Timeout), errors.ErrInvalidValue))
	}
	errs = append(errs, c.validateCommon()...)
	return errors.Join(errs...)
}

func (c *Config) validateCommon() []error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, errors.NewConfigError(fmt.Sprintf("workers must be at least 1, got %d", c.Workers), errors.ErrInvalidValue))
	}
	return errs
}
