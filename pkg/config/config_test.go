/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config_test.go
Description: Tests for configuration defaults, loading through viper and conversion to
library options.
*/

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
	"github.com/kleascm/irscope/pkg/logging"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100.0, cfg.Tolerance.Absolute)
	assert.Equal(t, 0.3, cfg.Tolerance.Relative)
	assert.Equal(t, 2000.0, cfg.Tolerance.Frequency)
	assert.Equal(t, 20000.0, cfg.RepeatFinder.MinRepeatGap)
	assert.Equal(t, 20000.0, cfg.Decoder.MinLeadout)
	assert.Equal(t, 30.0, cfg.Analyzer.MaxUnits)
	assert.Equal(t, 10000.0, cfg.Analyzer.MaxMicroseconds)
	assert.Equal(t, 63, cfg.Analyzer.MaxParameterWidth)
	assert.True(t, cfg.Analyzer.Extents)
	assert.True(t, cfg.Decoder.PreferOver)
	assert.True(t, cfg.Decoder.RemoveDefaultedParameters)
	assert.False(t, cfg.Decoder.Recursive)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, Default().Tolerance, cfg.Tolerance)
	assert.Equal(t, 20000.0, cfg.Decoder.MinLeadout)
	assert.True(t, cfg.Decoder.PreferOver)
	assert.Empty(t, cfg.Decoder.Protocols)
	assert.Equal(t, "msb", cfg.Analyzer.BitDirection)
	assert.Equal(t, logging.LogFormatCustom, cfg.Logging.Format)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "irscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tolerance:
  absolute: 60
  relative: 0.1
analyzer:
  bit_direction: lsb
  parameter_widths: [8, 8]
decoder:
  strict: true
  protocols: [NEC1, RC5]
`), 0644))

	t.Setenv("IRSCOPE_DECODER_MIN_LEADOUT", "30000")

	v := viper.New()
	v.Set("config", path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 60.0, cfg.Tolerance.Absolute)
	assert.Equal(t, 0.1, cfg.Tolerance.Relative)
	assert.Equal(t, 2000.0, cfg.Tolerance.Frequency)
	assert.True(t, cfg.Decoder.Strict)
	assert.Equal(t, []string{"NEC1", "RC5"}, cfg.Decoder.Protocols)
	assert.Equal(t, 30000.0, cfg.Decoder.MinLeadout)

	sp, err := cfg.StrategyParams()
	require.NoError(t, err)
	assert.Equal(t, irp.LSB, sp.BitDirection)
	assert.Equal(t, []int{8, 8}, sp.ParameterWidths)
}

func TestLoadMissingFile(t *testing.T) {
	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"negative absolute": func(c *Config) { c.Tolerance.Absolute = -1 },
		"relative one":      func(c *Config) { c.Tolerance.Relative = 1 },
		"negative leadout":  func(c *Config) { c.Decoder.MinLeadout = -5 },
		"negative gap":      func(c *Config) { c.RepeatFinder.MinRepeatGap = -5 },
		"bit direction":     func(c *Config) { c.Analyzer.BitDirection = "middle" },
		"width":             func(c *Config) { c.Analyzer.ParameterWidths = []int{0} },
		"log format":        func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ircore.ErrInvalidArgument), err)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Tolerance.Absolute = 50
	cfg.Decoder.PreferOver = false
	cfg.Decoder.Recursive = true
	cfg.Analyzer.RepeatFinder = true

	dp := cfg.DecoderParameters(nil)
	assert.Equal(t, 50.0, dp.AbsoluteTolerance)
	assert.True(t, dp.NoPreferOver)
	assert.True(t, dp.Recursive)
	assert.True(t, dp.RemoveDefaultedParameters)
	require.NoError(t, dp.Validate())

	opts := cfg.AnalyzerOptions(nil)
	assert.True(t, opts.Clean)
	assert.True(t, opts.RepeatFinder)
	assert.Equal(t, 50.0, opts.Tolerance.Absolute)

	rp := cfg.RepeatFinderParams()
	assert.Equal(t, 50.0, rp.AbsoluteTolerance)
	assert.Equal(t, 20000.0, rp.MinRepeatGap)
}
