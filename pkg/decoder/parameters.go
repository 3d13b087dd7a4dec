/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parameters.go
Description: Configuration of the signal matcher.
*/

package decoder

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/irscope/pkg/catalogue"
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
)

// Parameters controls matching.
type Parameters struct {
	// Strict matches intro, repeat and ending part by part; otherwise the signal is
	// matched as one sequence.
	Strict bool `json:"strict" mapstructure:"strict"`
	// NoPreferOver reports every match, ignoring the prefer-over relation.
	NoPreferOver bool `json:"no_prefer_over" mapstructure:"no_prefer_over"`
	// RemoveDefaultedParameters drops parameters equal to their declared default.
	RemoveDefaultedParameters bool `json:"remove_defaulted_parameters" mapstructure:"remove_defaulted_parameters"`
	// Recursive decodes captures as a concatenation of independent decodes.
	Recursive bool `json:"recursive" mapstructure:"recursive"`

	FrequencyTolerance float64 `json:"frequency_tolerance" mapstructure:"frequency_tolerance"`
	AbsoluteTolerance  float64 `json:"absolute_tolerance" mapstructure:"absolute_tolerance"`
	RelativeTolerance  float64 `json:"relative_tolerance" mapstructure:"relative_tolerance"`
	MinLeadout         float64 `json:"min_leadout" mapstructure:"min_leadout"`
	MinRepeatGap       float64 `json:"min_repeat_gap" mapstructure:"min_repeat_gap"`
	// Override makes the tolerances above win over those declared by protocols.
	Override bool `json:"override" mapstructure:"override"`

	// Parallelism bounds the number of protocols matched concurrently; zero uses
	// GOMAXPROCS.
	Parallelism int                `json:"-" mapstructure:"-"`
	Logger      logrus.FieldLogger `json:"-" mapstructure:"-"`
}

// DefaultParameters applies prefer-over and removes defaulted parameters.
func DefaultParameters() Parameters {
	return Parameters{
		RemoveDefaultedParameters: true,
		FrequencyTolerance:        ircore.DefaultFrequencyTolerance,
		AbsoluteTolerance:         ircore.DefaultAbsoluteTolerance,
		RelativeTolerance:         ircore.DefaultRelativeTolerance,
		MinLeadout:                ircore.DefaultMinLeadout,
		MinRepeatGap:              ircore.DefaultMinRepeatGap,
	}
}

// Tolerance returns the caller tolerances.
func (p Parameters) Tolerance() ircore.Tolerance {
	return ircore.Tolerance{
		Absolute:  p.AbsoluteTolerance,
		Relative:  p.RelativeTolerance,
		Frequency: p.FrequencyTolerance,
	}
}

// Validate checks the tolerances.
func (p Parameters) Validate() error {
	if err := p.Tolerance().Validate(); err != nil {
		return err
	}
	if p.MinLeadout < 0 || p.MinRepeatGap < 0 {
		return fmt.Errorf("%w: negative leadout or repeat gap", ircore.ErrInvalidArgument)
	}
	return nil
}

// recognizeParams merges the caller tolerances with those np declares.
func (p Parameters) recognizeParams(np *catalogue.NamedProtocol) irp.RecognizeParams {
	rp := irp.RecognizeParams{Tolerance: p.Tolerance(), MinLeadout: p.MinLeadout, Strict: p.Strict}
	if p.Override {
		return rp
	}
	return np.Tolerances.Apply(rp)
}
