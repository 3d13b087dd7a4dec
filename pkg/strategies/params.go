/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: params.go
Description: Parameters shared by all decoding strategies: carrier, unit preference, bit
order, extent preference, field widths and the rules for writing durations as unit
multiples.
*/

package strategies

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
)

// Duration formatting defaults. A duration is written in units when it is below MaxUnits
// units and within MaxRoundingError of a whole number, in microseconds below
// MaxMicroseconds, and in milliseconds otherwise.
const (
	DefaultMaxUnits          = 30.0
	DefaultMaxMicroseconds   = 10000.0
	DefaultMaxRoundingError  = 0.3
	DefaultMaxParameterWidth = 63
)

// Params configures a strategy run.
type Params struct {
	// Frequency in Hz; zero takes the frequency of the source.
	Frequency float64 `json:"frequency" mapstructure:"frequency"`
	// TimeBase is the unit: "" for the smallest timing, "N" or "Nu" for microseconds,
	// "Np" for carrier periods.
	TimeBase     string           `json:"timebase" mapstructure:"timebase"`
	BitDirection irp.BitDirection `json:"bit_direction" mapstructure:"bit_direction"`
	UseExtents   bool             `json:"use_extents" mapstructure:"use_extents"`
	// ParameterWidths are consumed in order by the fields of a decode.
	ParameterWidths   []int `json:"parameter_widths" mapstructure:"parameter_widths"`
	MaxParameterWidth int   `json:"max_parameter_width" mapstructure:"max_parameter_width"`
	Invert            bool  `json:"invert" mapstructure:"invert"`

	MaxUnits         float64 `json:"max_units" mapstructure:"max_units"`
	MaxMicroseconds  float64 `json:"max_microseconds" mapstructure:"max_microseconds"`
	MaxRoundingError float64 `json:"max_rounding_error" mapstructure:"max_rounding_error"`

	// ParameterSpecs declares the fields as parameters instead of fixing their values
	// in definitions.
	ParameterSpecs bool `json:"parameter_specs" mapstructure:"parameter_specs"`
}

// DefaultParams returns msb, extents and the stock rounding rules.
func DefaultParams() Params {
	return Params{
		BitDirection:      irp.MSB,
		UseExtents:        true,
		MaxParameterWidth: DefaultMaxParameterWidth,
		MaxUnits:          DefaultMaxUnits,
		MaxMicroseconds:   DefaultMaxMicroseconds,
		MaxRoundingError:  DefaultMaxRoundingError,
	}
}

// Validate checks the parameters for consistency.
func (p Params) Validate() error {
	if p.Frequency < 0 {
		return fmt.Errorf("%w: frequency %v", ircore.ErrInvalidArgument, p.Frequency)
	}
	if p.MaxParameterWidth < 1 || p.MaxParameterWidth > 64 {
		return fmt.Errorf("%w: max parameter width %d", ircore.ErrInvalidArgument, p.MaxParameterWidth)
	}
	for i, w := range p.ParameterWidths {
		if w < 1 || w > p.MaxParameterWidth {
			return fmt.Errorf("%w: parameter width #%d is %d", ircore.ErrInvalidArgument, i, w)
		}
	}
	if p.MaxUnits <= 0 || p.MaxMicroseconds <= 0 {
		return fmt.Errorf("%w: rounding limits must be positive", ircore.ErrInvalidArgument)
	}
	if p.MaxRoundingError <= 0 || p.MaxRoundingError > 0.5 {
		return fmt.Errorf("%w: max rounding error %v", ircore.ErrInvalidArgument, p.MaxRoundingError)
	}
	frequency := p.Frequency
	if frequency == 0 {
		frequency = ircore.DefaultFrequency
	}
	_, _, err := p.parseTimeBase(frequency)
	return err
}

// parseTimeBase returns the unit in microseconds and, for "Np", the number of periods.
func (p Params) parseTimeBase(frequency float64) (float64, float64, error) {
	s := strings.TrimSpace(p.TimeBase)
	if s == "" {
		return 0, 0, nil
	}
	periods := strings.HasSuffix(s, "p")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "p"), "u")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, 0, fmt.Errorf("%w: timebase %q", ircore.ErrInvalidArgument, p.TimeBase)
	}
	if !periods {
		return v, 0, nil
	}
	if frequency <= 0 {
		return 0, 0, fmt.Errorf("%w: timebase %q in periods needs a frequency", ircore.ErrInvalidArgument, p.TimeBase)
	}
	return v * 1e6 / frequency, v, nil
}

// widthLimit returns the bit limit of field number n.
func (p Params) widthLimit(n int) (int, bool) {
	max := p.MaxParameterWidth
	if max <= 0 || max > 64 {
		max = DefaultMaxParameterWidth
	}
	if n < len(p.ParameterWidths) && p.ParameterWidths[n] < max {
		return p.ParameterWidths[n], true
	}
	return max, n < len(p.ParameterWidths)
}
