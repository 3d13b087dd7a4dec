/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tolerance.go
Description: Tolerance model used by every comparison in the analyzer and the decoder.
Durations and frequencies compare equal when their difference is within the larger of an
absolute and a relative bound.
*/

package ircore

import (
	"fmt"
	"math"
)

// Default values. Components never use these directly; they are the seed values of the
// configuration layer and of the zero-config constructors.
const (
	DefaultAbsoluteTolerance  = 100.0
	DefaultRelativeTolerance  = 0.3
	DefaultFrequencyTolerance = 2000.0
	DefaultFrequency          = 38000.0
	DefaultMinRepeatGap       = 20000.0
	DefaultMinLeadout         = 20000.0
)

// Tolerance holds the comparison bounds. A negative Frequency disables the frequency check.
type Tolerance struct {
	Absolute  float64 `json:"absolute" mapstructure:"absolute"`
	Relative  float64 `json:"relative" mapstructure:"relative"`
	Frequency float64 `json:"frequency" mapstructure:"frequency"`
}

// DefaultTolerance returns the stock tolerance set.
func DefaultTolerance() Tolerance {
	return Tolerance{
		Absolute:  DefaultAbsoluteTolerance,
		Relative:  DefaultRelativeTolerance,
		Frequency: DefaultFrequencyTolerance,
	}
}

// Validate checks that the bounds are usable.
func (t Tolerance) Validate() error {
	if t.Absolute < 0 || math.IsNaN(t.Absolute) {
		return fmt.Errorf("%w: absolute tolerance %v", ErrInvalidArgument, t.Absolute)
	}
	if t.Relative < 0 || t.Relative >= 1 || math.IsNaN(t.Relative) {
		return fmt.Errorf("%w: relative tolerance %v must be in [0,1)", ErrInvalidArgument, t.Relative)
	}
	if math.IsNaN(t.Frequency) {
		return fmt.Errorf("%w: frequency tolerance is NaN", ErrInvalidArgument)
	}
	return nil
}

// Equal reports whether two durations are equal within the tolerance.
func (t Tolerance) Equal(a, b float64) bool {
	return ApproximatelyEquals(a, b, t.Absolute, t.Relative)
}

// FrequencyEqual compares two carrier frequencies. Unknown frequencies (<= 0) and a
// negative frequency tolerance match anything.
func (t Tolerance) FrequencyEqual(a, b float64) bool {
	if t.Frequency < 0 || a <= 0 || b <= 0 {
		return true
	}
	return math.Abs(a-b) <= t.Frequency
}

// ApproximatelyEquals is |a-b| <= max(absolute, relative*max(|a|,|b|)).
func ApproximatelyEquals(a, b, absolute, relative float64) bool {
	diff := math.Abs(a - b)
	bound := math.Max(absolute, relative*math.Max(math.Abs(a), math.Abs(b)))
	return diff <= bound
}
