/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: repeatfinder.go
Description: Segments a flat capture into intro, repeated part and ending. Every candidate
period that ends on a long enough gap is tried at every start position; the candidate
covering the largest total duration with at least two copies wins, ties going to the
shorter period found later in the search.
*/

package repeatfinder

import (
	"fmt"
	"math"

	"github.com/kleascm/irscope/pkg/cleaner"
	"github.com/kleascm/irscope/pkg/ircore"
)

// Params holds the tolerances and the minimum gap that may close a repeat.
type Params struct {
	AbsoluteTolerance float64 `json:"absolute_tolerance" mapstructure:"absolute_tolerance"`
	RelativeTolerance float64 `json:"relative_tolerance" mapstructure:"relative_tolerance"`
	MinRepeatGap      float64 `json:"min_repeat_gap" mapstructure:"min_repeat_gap"`
	// TrailingGap is appended to odd length input. Zero rejects odd input.
	TrailingGap float64 `json:"trailing_gap" mapstructure:"trailing_gap"`
}

// DefaultParams returns the stock tolerances.
func DefaultParams() Params {
	return Params{
		AbsoluteTolerance: ircore.DefaultAbsoluteTolerance,
		RelativeTolerance: ircore.DefaultRelativeTolerance,
		MinRepeatGap:      ircore.DefaultMinRepeatGap,
	}
}

// Data describes how a capture decomposes. Lengths count durations, not pairs.
// When no repeat is found the whole capture is the intro and NumberRepeats is 1.
type Data struct {
	BeginLength   int
	RepeatLength  int
	NumberRepeats int
	EndingLength  int

	lastGap         float64
	repeatsDuration float64
}

func noRepeat(length int) Data {
	return Data{BeginLength: length, NumberRepeats: 1}
}

// Found reports whether a repeat with at least two copies was found.
func (d Data) Found() bool {
	return d.RepeatLength > 0 && d.NumberRepeats > 1
}

// EndingStart returns the index of the first duration after the repeats.
func (d Data) EndingStart() int {
	return d.BeginLength + d.NumberRepeats*d.RepeatLength
}

// FromSignal describes the flattened form of a signal that already has its parts.
func FromSignal(signal *ircore.IrSignal) Data {
	return Data{
		BeginLength:   signal.Intro.Len(),
		RepeatLength:  signal.Repeat.Len(),
		NumberRepeats: 1,
		EndingLength:  signal.Ending.Len(),
	}
}

func (d Data) String() string {
	return fmt.Sprintf("beginLength = %d; repeatLength = %d; numberRepeats = %d; endingLength = %d",
		d.BeginLength, d.RepeatLength, d.NumberRepeats, d.EndingLength)
}

// Chop splits seq into intro, one copy of the repeat and the ending.
func (d Data) Chop(seq *ircore.ModulatedIrSequence) (*ircore.IrSignal, error) {
	if d.RepeatLength == 0 {
		return ircore.NewIrSignal(seq.IrSequence, nil, nil, seq.Frequency, seq.DutyCycle)
	}
	intro, err := seq.Subsequence(0, d.BeginLength)
	if err != nil {
		return nil, err
	}
	repeat, err := seq.Subsequence(d.BeginLength, d.RepeatLength)
	if err != nil {
		return nil, err
	}
	ending, err := seq.Subsequence(d.EndingStart(), seq.Len()-d.EndingStart())
	if err != nil {
		return nil, err
	}
	return ircore.NewIrSignal(intro, repeat, ending, seq.Frequency, seq.DutyCycle)
}

// Finder runs the search once at construction.
type Finder struct {
	params Params
	seq    *ircore.IrSequence
	data   Data
}

// New analyzes seq.
func New(seq *ircore.IrSequence, params Params) *Finder {
	f := &Finder{params: params, seq: seq}
	f.data = f.analyze()
	return f
}

// FindRepeat returns the decomposition of seq.
func FindRepeat(seq *ircore.IrSequence, absolute, relative, minRepeatGap float64) Data {
	return New(seq, Params{AbsoluteTolerance: absolute, RelativeTolerance: relative, MinRepeatGap: minRepeatGap}).Data()
}

// FindRepeatRaw is FindRepeat for unvalidated durations, applying the trailing gap policy
// of params to odd length input.
func FindRepeatRaw(durations []float64, params Params) (Data, *ircore.IrSequence, error) {
	seq, err := ircore.NewIrSequenceWithTrailingGap(durations, params.TrailingGap)
	if err != nil {
		return Data{}, nil, err
	}
	return New(seq, params).Data(), seq, nil
}

// ChopSequence finds the repeat of seq and returns the folded signal built from seq itself.
func ChopSequence(seq *ircore.ModulatedIrSequence, params Params) (*ircore.IrSignal, error) {
	return New(seq.IrSequence, params).ToIrSignal(seq)
}

// Data returns the decomposition.
func (f *Finder) Data() Data {
	return f.data
}

// ToIrSignal folds seq, normally the sequence the finder was built from.
func (f *Finder) ToIrSignal(seq *ircore.ModulatedIrSequence) (*ircore.IrSignal, error) {
	return f.data.Chop(seq)
}

// ToIrSignalClean folds the cleaned version of seq.
func (f *Finder) ToIrSignalClean(seq *ircore.ModulatedIrSequence) (*ircore.IrSignal, error) {
	cleaned := cleaner.CleanSequence(seq.IrSequence, f.params.AbsoluteTolerance, f.params.RelativeTolerance)
	return f.data.Chop(&ircore.ModulatedIrSequence{IrSequence: cleaned, Frequency: seq.Frequency, DutyCycle: seq.DutyCycle})
}

func (f *Finder) analyze() Data {
	n := f.seq.Len()
	candidate := noRepeat(n)
	for length := n / 4; length >= 2; length-- {
		for beginning := 0; beginning < n/2-length; beginning++ {
			c := f.countRepeats(2*beginning, 2*length)
			if c.NumberRepeats > 1 && c.lastGap > f.params.MinRepeatGap && c.repeatsDuration > candidate.repeatsDuration-0.1 {
				candidate = c
			}
		}
	}
	return candidate
}

func (f *Finder) countRepeats(beginning, length int) Data {
	result := Data{BeginLength: beginning, RepeatLength: length}
	result.lastGap = math.Abs(f.seq.At(beginning + length - 1))
	if result.lastGap < f.params.MinRepeatGap {
		return result
	}
	hits := 1
	for f.seq.ApproximatelyEqualsRange(beginning, beginning+hits*length, length,
		f.params.AbsoluteTolerance, f.params.RelativeTolerance, f.params.MinRepeatGap) {
		hits++
	}
	result.NumberRepeats = hits
	result.EndingLength = f.seq.Len() - beginning - hits*length
	result.repeatsDuration = f.seq.TotalDuration(beginning, hits*length)
	return result
}
