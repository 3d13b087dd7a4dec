/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sequence.go
Description: IrSequence and ModulatedIrSequence. A sequence is an immutable list of
durations in microseconds, alternating flash and gap, starting with a flash and ending
with a gap.
*/

package ircore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IrSequence is an even length list of positive durations (microseconds).
// Even indices are flashes, odd indices gaps.
type IrSequence struct {
	data []float64
}

// NewIrSequence builds a sequence from durations. Signs are ignored; the polarity is given
// by the position.
func NewIrSequence(durations []float64) (*IrSequence, error) {
	if len(durations)%2 != 0 {
		return nil, fmt.Errorf("%w: %d durations", ErrOddSequenceLength, len(durations))
	}
	data := make([]float64, len(durations))
	for i, d := range durations {
		d = math.Abs(d)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: duration %v at index %d", ErrInvalidArgument, durations[i], i)
		}
		data[i] = d
	}
	return &IrSequence{data: data}, nil
}

// NewIrSequenceWithTrailingGap appends trailingGap when durations has odd length.
func NewIrSequenceWithTrailingGap(durations []float64, trailingGap float64) (*IrSequence, error) {
	if len(durations)%2 == 0 {
		return NewIrSequence(durations)
	}
	if trailingGap <= 0 {
		return nil, fmt.Errorf("%w: %d durations and no trailing gap", ErrOddSequenceLength, len(durations))
	}
	padded := make([]float64, 0, len(durations)+1)
	padded = append(padded, durations...)
	return NewIrSequence(append(padded, trailingGap))
}

// NewIrSequenceFromInts is a convenience for integer microsecond data.
func NewIrSequenceFromInts(durations []int) (*IrSequence, error) {
	data := make([]float64, len(durations))
	for i, d := range durations {
		data[i] = float64(d)
	}
	return NewIrSequence(data)
}

// EmptySequence returns a sequence without durations.
func EmptySequence() *IrSequence {
	return &IrSequence{}
}

// Len returns the number of durations.
func (s *IrSequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.data)
}

// IsEmpty reports whether the sequence has no durations.
func (s *IrSequence) IsEmpty() bool {
	return s.Len() == 0
}

// At returns the duration at index i.
func (s *IrSequence) At(i int) float64 {
	return s.data[i]
}

// IsFlash reports whether index i holds a flash.
func IsFlash(i int) bool {
	return i%2 == 0
}

// Durations returns a copy of the durations.
func (s *IrSequence) Durations() []float64 {
	out := make([]float64, s.Len())
	if s != nil {
		copy(out, s.data)
	}
	return out
}

// Total returns the summed duration.
func (s *IrSequence) Total() float64 {
	return s.TotalDuration(0, s.Len())
}

// TotalDuration sums length durations starting at begin.
func (s *IrSequence) TotalDuration(begin, length int) float64 {
	sum := 0.0
	for i := begin; i < begin+length; i++ {
		sum += s.data[i]
	}
	return sum
}

// Subsequence returns length durations starting at begin. Both must be even.
func (s *IrSequence) Subsequence(begin, length int) (*IrSequence, error) {
	if begin%2 != 0 || length%2 != 0 || begin < 0 || length < 0 || begin+length > s.Len() {
		return nil, fmt.Errorf("%w: subsequence [%d,+%d) of %d", ErrInvalidArgument, begin, length, s.Len())
	}
	data := make([]float64, length)
	copy(data, s.data[begin:begin+length])
	return &IrSequence{data: data}, nil
}

// Append returns a new sequence holding s followed by the others.
func (s *IrSequence) Append(others ...*IrSequence) *IrSequence {
	data := s.Durations()
	for _, o := range others {
		if o != nil {
			data = append(data, o.data...)
		}
	}
	return &IrSequence{data: data}
}

// Repeat returns s concatenated count times.
func (s *IrSequence) Repeat(count int) *IrSequence {
	data := make([]float64, 0, s.Len()*count)
	for i := 0; i < count; i++ {
		data = append(data, s.data...)
	}
	return &IrSequence{data: data}
}

// ApproximatelyEquals compares element by element.
func (s *IrSequence) ApproximatelyEquals(other *IrSequence, absolute, relative float64) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if !ApproximatelyEquals(s.data[i], other.data[i], absolute, relative) {
			return false
		}
	}
	return true
}

// ApproximatelyEqualsRange compares the length durations at begin with those at
// compareStart. The last duration of the range also matches when both values are at least
// lastLimit.
func (s *IrSequence) ApproximatelyEqualsRange(begin, compareStart, length int, absolute, relative, lastLimit float64) bool {
	if begin+length > s.Len() || compareStart+length > s.Len() {
		return false
	}
	for i := 0; i < length; i++ {
		a, b := s.data[begin+i], s.data[compareStart+i]
		if i == length-1 && a >= lastLimit && b >= lastLimit {
			continue
		}
		if !ApproximatelyEquals(a, b, absolute, relative) {
			return false
		}
	}
	return true
}

// String renders the sequence as "+9024 -4512 ...".
func (s *IrSequence) String() string {
	var b strings.Builder
	for i := 0; i < s.Len(); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		if IsFlash(i) {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
		b.WriteString(strconv.FormatFloat(s.data[i], 'f', -1, 64))
	}
	return b.String()
}

// ModulatedIrSequence is an IrSequence with a carrier. Frequency <= 0 means unknown and
// DutyCycle <= 0 means unspecified.
type ModulatedIrSequence struct {
	*IrSequence
	Frequency float64
	DutyCycle float64
}

// NewModulatedIrSequence validates the modulation parameters.
func NewModulatedIrSequence(seq *IrSequence, frequency, dutyCycle float64) (*ModulatedIrSequence, error) {
	if seq == nil {
		seq = EmptySequence()
	}
	if dutyCycle > 1 || math.IsNaN(dutyCycle) {
		return nil, fmt.Errorf("%w: duty cycle %v outside (0,1]", ErrInvalidArgument, dutyCycle)
	}
	if math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return nil, fmt.Errorf("%w: frequency %v", ErrInvalidArgument, frequency)
	}
	return &ModulatedIrSequence{IrSequence: seq, Frequency: frequency, DutyCycle: dutyCycle}, nil
}
