/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for irscope. Holds the externally configurable defaults of the
engine (tolerances, repeat detection, analyzer and decoder preferences, logging), loads
them through viper from files, environment and flags, and converts them to the option
structs of the library packages.
*/

package config

import (
	"fmt"
	"strings"

	"github.com/kleascm/irscope/pkg/analysis"
	"github.com/kleascm/irscope/pkg/decoder"
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
	"github.com/kleascm/irscope/pkg/logging"
	"github.com/kleascm/irscope/pkg/repeatfinder"
	"github.com/kleascm/irscope/pkg/strategies"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. IRSCOPE_TOLERANCE_ABSOLUTE.
const EnvPrefix = "IRSCOPE"

// RepeatFinderConfig configures repeat detection
type RepeatFinderConfig struct {
	MinRepeatGap float64 `json:"min_repeat_gap" mapstructure:"min_repeat_gap"`
}

// AnalyzerConfig configures the analyzer and its strategies
type AnalyzerConfig struct {
	Frequency         float64 `json:"frequency" mapstructure:"frequency"`
	TimeBase          string  `json:"timebase" mapstructure:"timebase"`
	BitDirection      string  `json:"bit_direction" mapstructure:"bit_direction"`
	Extents           bool    `json:"extents" mapstructure:"extents"`
	Invert            bool    `json:"invert" mapstructure:"invert"`
	ParameterWidths   []int   `json:"parameter_widths" mapstructure:"parameter_widths"`
	MaxParameterWidth int     `json:"max_parameter_width" mapstructure:"max_parameter_width"`
	MaxUnits          float64 `json:"max_units" mapstructure:"max_units"`
	MaxMicroseconds   float64 `json:"max_microseconds" mapstructure:"max_microseconds"`
	MaxRoundingError  float64 `json:"max_rounding_error" mapstructure:"max_rounding_error"`
	ParameterSpecs    bool    `json:"parameter_specs" mapstructure:"parameter_specs"`
	Clean             bool    `json:"clean" mapstructure:"clean"`
	RepeatFinder      bool    `json:"repeat_finder" mapstructure:"repeat_finder"`
	Validate          bool    `json:"validate" mapstructure:"validate"`
	// Strategies restricts the strategies by name pattern; empty runs all of them.
	Strategies  []string `json:"strategies" mapstructure:"strategies"`
	Parallelism int      `json:"parallelism" mapstructure:"parallelism"`
}

// DecoderConfig configures protocol matching
type DecoderConfig struct {
	MinLeadout                float64 `json:"min_leadout" mapstructure:"min_leadout"`
	Strict                    bool    `json:"strict" mapstructure:"strict"`
	PreferOver                bool    `json:"prefer_over" mapstructure:"prefer_over"`
	RemoveDefaultedParameters bool    `json:"remove_defaulted_parameters" mapstructure:"remove_defaulted_parameters"`
	Recursive                 bool    `json:"recursive" mapstructure:"recursive"`
	Override                  bool    `json:"override" mapstructure:"override"`
	// Catalogue is a protocol file replacing the built-in catalogue.
	Catalogue   string   `json:"catalogue" mapstructure:"catalogue"`
	Protocols   []string `json:"protocols" mapstructure:"protocols"`
	Parallelism int      `json:"parallelism" mapstructure:"parallelism"`
}

// Config is the complete irscope configuration
type Config struct {
	Tolerance    ircore.Tolerance      `json:"tolerance" mapstructure:"tolerance"`
	RepeatFinder RepeatFinderConfig    `json:"repeatfinder" mapstructure:"repeatfinder"`
	Analyzer     AnalyzerConfig        `json:"analyzer" mapstructure:"analyzer"`
	Decoder      DecoderConfig         `json:"decoder" mapstructure:"decoder"`
	Logging      logging.LoggerConfig `json:"logging" mapstructure:"logging"`
}

// Default returns the stock configuration
func Default() *Config {
	sp := strategies.DefaultParams()
	return &Config{
		Tolerance: ircore.DefaultTolerance(),
		RepeatFinder: RepeatFinderConfig{
			MinRepeatGap: ircore.DefaultMinRepeatGap,
		},
		Analyzer: AnalyzerConfig{
			BitDirection:      sp.BitDirection.String(),
			Extents:           sp.UseExtents,
			MaxParameterWidth: sp.MaxParameterWidth,
			MaxUnits:          sp.MaxUnits,
			MaxMicroseconds:   sp.MaxMicroseconds,
			MaxRoundingError:  sp.MaxRoundingError,
			Clean:             true,
		},
		Decoder: DecoderConfig{
			MinLeadout:                ircore.DefaultMinLeadout,
			PreferOver:                true,
			RemoveDefaultedParameters: true,
		},
		Logging: *logging.DefaultLoggerConfig(),
	}
}

// SetDefaults registers the stock configuration with v, so that every key is known to
// viper and can be overridden from the environment.
func SetDefaults(v *viper.Viper) {
	d := Default()
	defaults := map[string]interface{}{
		"tolerance.absolute":                  d.Tolerance.Absolute,
		"tolerance.relative":                  d.Tolerance.Relative,
		"tolerance.frequency":                 d.Tolerance.Frequency,
		"repeatfinder.min_repeat_gap":         d.RepeatFinder.MinRepeatGap,
		"analyzer.frequency":                  d.Analyzer.Frequency,
		"analyzer.timebase":                   d.Analyzer.TimeBase,
		"analyzer.bit_direction":              d.Analyzer.BitDirection,
		"analyzer.extents":                    d.Analyzer.Extents,
		"analyzer.invert":                     d.Analyzer.Invert,
		"analyzer.parameter_widths":           []int{},
		"analyzer.max_parameter_width":        d.Analyzer.MaxParameterWidth,
		"analyzer.max_units":                  d.Analyzer.MaxUnits,
		"analyzer.max_microseconds":           d.Analyzer.MaxMicroseconds,
		"analyzer.max_rounding_error":         d.Analyzer.MaxRoundingError,
		"analyzer.parameter_specs":            d.Analyzer.ParameterSpecs,
		"analyzer.clean":                      d.Analyzer.Clean,
		"analyzer.repeat_finder":              d.Analyzer.RepeatFinder,
		"analyzer.validate":                   d.Analyzer.Validate,
		"analyzer.strategies":                 []string{},
		"analyzer.parallelism":                d.Analyzer.Parallelism,
		"decoder.min_leadout":                 d.Decoder.MinLeadout,
		"decoder.strict":                      d.Decoder.Strict,
		"decoder.prefer_over":                 d.Decoder.PreferOver,
		"decoder.remove_defaulted_parameters": d.Decoder.RemoveDefaultedParameters,
		"decoder.recursive":                   d.Decoder.Recursive,
		"decoder.override":                    d.Decoder.Override,
		"decoder.catalogue":                   d.Decoder.Catalogue,
		"decoder.protocols":                   []string{},
		"decoder.parallelism":                 d.Decoder.Parallelism,
		"logging.level":                       string(d.Logging.Level),
		"logging.format":                      string(d.Logging.Format),
		"logging.output_dir":                  d.Logging.OutputDir,
		"logging.max_files":                   d.Logging.MaxFiles,
		"logging.time_format":                 d.Logging.TimeFormat,
		"logging.timestamp":                   d.Logging.Timestamp,
		"logging.caller":                      d.Logging.Caller,
		"logging.colors":                      d.Logging.Colors,
		"logging.compress":                    d.Logging.Compress,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load reads the configuration from v. The file named by the "config" key is read
// first when set; environment variables with the IRSCOPE prefix and bound flags win
// over it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with
func (c *Config) Validate() error {
	if err := c.Tolerance.Validate(); err != nil {
		return err
	}
	if c.RepeatFinder.MinRepeatGap < 0 {
		return fmt.Errorf("%w: negative minimum repeat gap", ircore.ErrInvalidArgument)
	}
	if c.Decoder.MinLeadout < 0 {
		return fmt.Errorf("%w: negative minimum leadout", ircore.ErrInvalidArgument)
	}
	if c.Analyzer.Parallelism < 0 || c.Decoder.Parallelism < 0 {
		return fmt.Errorf("%w: negative parallelism", ircore.ErrInvalidArgument)
	}
	if _, err := c.StrategyParams(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ircore.ErrInvalidArgument, err)
	}
	return nil
}

// StrategyParams converts the analyzer section to strategy parameters
func (c *Config) StrategyParams() (strategies.Params, error) {
	p := strategies.DefaultParams()
	switch strings.ToLower(c.Analyzer.BitDirection) {
	case "", "msb":
		p.BitDirection = irp.MSB
	case "lsb":
		p.BitDirection = irp.LSB
	default:
		return p, fmt.Errorf("%w: bit direction %q", ircore.ErrInvalidArgument, c.Analyzer.BitDirection)
	}
	p.Frequency = c.Analyzer.Frequency
	p.TimeBase = c.Analyzer.TimeBase
	p.UseExtents = c.Analyzer.Extents
	p.Invert = c.Analyzer.Invert
	p.ParameterWidths = append([]int(nil), c.Analyzer.ParameterWidths...)
	p.MaxParameterWidth = c.Analyzer.MaxParameterWidth
	p.MaxUnits = c.Analyzer.MaxUnits
	p.MaxMicroseconds = c.Analyzer.MaxMicroseconds
	p.MaxRoundingError = c.Analyzer.MaxRoundingError
	p.ParameterSpecs = c.Analyzer.ParameterSpecs
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// AnalyzerOptions converts the configuration to analyzer options
func (c *Config) AnalyzerOptions(logger logrus.FieldLogger) analysis.Options {
	return analysis.Options{
		Frequency:    c.Analyzer.Frequency,
		Clean:        c.Analyzer.Clean,
		RepeatFinder: c.Analyzer.RepeatFinder,
		Tolerance:    c.Tolerance,
		MinRepeatGap: c.RepeatFinder.MinRepeatGap,
		Validate:     c.Analyzer.Validate,
		Parallelism:  c.Analyzer.Parallelism,
		Logger:       logger,
	}
}

// RepeatFinderParams converts the configuration to repeat finder parameters
func (c *Config) RepeatFinderParams() repeatfinder.Params {
	return repeatfinder.Params{
		AbsoluteTolerance: c.Tolerance.Absolute,
		RelativeTolerance: c.Tolerance.Relative,
		MinRepeatGap:      c.RepeatFinder.MinRepeatGap,
	}
}

// DecoderParameters converts the configuration to decoder parameters
func (c *Config) DecoderParameters(logger logrus.FieldLogger) decoder.Parameters {
	return decoder.Parameters{
		Strict:                    c.Decoder.Strict,
		NoPreferOver:              !c.Decoder.PreferOver,
		RemoveDefaultedParameters: c.Decoder.RemoveDefaultedParameters,
		Recursive:                 c.Decoder.Recursive,
		FrequencyTolerance:        c.Tolerance.Frequency,
		AbsoluteTolerance:         c.Tolerance.Absolute,
		RelativeTolerance:         c.Tolerance.Relative,
		MinLeadout:                c.Decoder.MinLeadout,
		MinRepeatGap:              c.RepeatFinder.MinRepeatGap,
		Override:                  c.Decoder.Override,
		Parallelism:               c.Decoder.Parallelism,
		Logger:                    logger,
	}
}
