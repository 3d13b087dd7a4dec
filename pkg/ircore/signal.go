/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: signal.go
Description: IrSignal, the canonical intro/repeat/ending form of a transmission.
*/

package ircore

import (
	"fmt"
	"strconv"
	"strings"
)

// IrSignal holds the three parts of a transmission sharing one carrier.
type IrSignal struct {
	Intro     *IrSequence
	Repeat    *IrSequence
	Ending    *IrSequence
	Frequency float64
	DutyCycle float64
}

// NewIrSignal builds a signal; nil parts are treated as empty.
func NewIrSignal(intro, repeat, ending *IrSequence, frequency, dutyCycle float64) (*IrSignal, error) {
	if dutyCycle > 1 {
		return nil, fmt.Errorf("%w: duty cycle %v outside (0,1]", ErrInvalidArgument, dutyCycle)
	}
	orEmpty := func(s *IrSequence) *IrSequence {
		if s == nil {
			return EmptySequence()
		}
		return s
	}
	return &IrSignal{
		Intro:     orEmpty(intro),
		Repeat:    orEmpty(repeat),
		Ending:    orEmpty(ending),
		Frequency: frequency,
		DutyCycle: dutyCycle,
	}, nil
}

// SignalFromSequence wraps a modulated sequence as an intro-only signal.
func SignalFromSequence(seq *ModulatedIrSequence) *IrSignal {
	return &IrSignal{
		Intro:     seq.IrSequence,
		Repeat:    EmptySequence(),
		Ending:    EmptySequence(),
		Frequency: seq.Frequency,
		DutyCycle: seq.DutyCycle,
	}
}

// IsEmpty reports whether all parts are empty.
func (s *IrSignal) IsEmpty() bool {
	return s.Intro.IsEmpty() && s.Repeat.IsEmpty() && s.Ending.IsEmpty()
}

// ToModulatedIrSequence flattens the signal as intro, repeats copies of the repeat, ending.
func (s *IrSignal) ToModulatedIrSequence(repeats int) *ModulatedIrSequence {
	flat := s.Intro.Append(s.Repeat.Repeat(repeats), s.Ending)
	return &ModulatedIrSequence{IrSequence: flat, Frequency: s.Frequency, DutyCycle: s.DutyCycle}
}

// ApproximatelyEquals compares all parts and the frequency.
func (s *IrSignal) ApproximatelyEquals(other *IrSignal, tol Tolerance) bool {
	return tol.FrequencyEqual(s.Frequency, other.Frequency) &&
		s.Intro.ApproximatelyEquals(other.Intro, tol.Absolute, tol.Relative) &&
		s.Repeat.ApproximatelyEquals(other.Repeat, tol.Absolute, tol.Relative) &&
		s.Ending.ApproximatelyEquals(other.Ending, tol.Absolute, tol.Relative)
}

func (s *IrSignal) String() string {
	var b strings.Builder
	if s.Frequency > 0 {
		b.WriteString("Freq=")
		b.WriteString(strconv.FormatFloat(s.Frequency, 'f', -1, 64))
		b.WriteString("Hz")
	}
	for _, part := range []*IrSequence{s.Intro, s.Repeat, s.Ending} {
		b.WriteString("[")
		b.WriteString(part.String())
		b.WriteString("]")
	}
	return b.String()
}
