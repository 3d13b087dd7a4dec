/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parse.go
Description: Text forms of captured signals: raw duration lists ("+9024 -4512 ...") and
Pronto Hex ("0000 006C 0022 0002 ...").
*/

package ircore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// prontoClock is the Pronto time base in microseconds per frequency-code unit.
const prontoClock = 0.241246

// ParseRaw parses whitespace or comma separated durations. Optional '+'/'-' signs must
// agree with the position (flash, gap). Brackets are ignored.
func ParseRaw(text string) ([]float64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', ',', ';', '[', ']', '{', '}':
			return true
		}
		return false
	})
	out := make([]float64, 0, len(fields))
	for i, f := range fields {
		sign := f[0]
		if sign == '+' || sign == '-' {
			if (sign == '+') != IsFlash(i) {
				return nil, fmt.Errorf("%w: token %q at index %d has the wrong polarity", ErrInvalidArgument, f, i)
			}
			f = f[1:]
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseIrSequence parses raw text; an odd count gets trailingGap appended when positive.
func ParseIrSequence(text string, trailingGap float64) (*IrSequence, error) {
	data, err := ParseRaw(text)
	if err != nil {
		return nil, err
	}
	return NewIrSequenceWithTrailingGap(data, trailingGap)
}

// IsPronto reports whether text looks like Pronto Hex.
func IsPronto(text string) bool {
	words := strings.Fields(text)
	if len(words) < 6 || (words[0] != "0000" && words[0] != "0100") {
		return false
	}
	for _, w := range words {
		if len(w) != 4 {
			return false
		}
		if _, err := strconv.ParseUint(w, 16, 16); err != nil {
			return false
		}
	}
	return true
}

// ParsePronto parses a learned (0000) or unmodulated (0100) Pronto Hex signal.
func ParsePronto(text string) (*IrSignal, error) {
	words := strings.Fields(text)
	if len(words) < 4 {
		return nil, fmt.Errorf("%w: pronto signal too short", ErrInvalidArgument)
	}
	nums := make([]int, len(words))
	for i, w := range words {
		v, err := strconv.ParseUint(w, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: pronto word %q: %v", ErrInvalidArgument, w, err)
		}
		nums[i] = int(v)
	}
	var frequency float64
	switch nums[0] {
	case 0x0000:
		if nums[1] == 0 {
			return nil, fmt.Errorf("%w: pronto frequency code 0", ErrInvalidArgument)
		}
		frequency = 1e6 / (float64(nums[1]) * prontoClock)
	case 0x0100:
		frequency = 0
	default:
		return nil, fmt.Errorf("%w: unsupported pronto type %04X", ErrInvalidArgument, nums[0])
	}
	introPairs, repeatPairs := nums[2], nums[3]
	if len(nums) != 4+2*(introPairs+repeatPairs) {
		return nil, fmt.Errorf("%w: pronto declares %d+%d pairs but carries %d words",
			ErrInvalidArgument, introPairs, repeatPairs, len(nums)-4)
	}
	period := float64(nums[1]) * prontoClock
	toSequence := func(words []int) (*IrSequence, error) {
		data := make([]float64, len(words))
		for i, w := range words {
			data[i] = float64(w) * period
		}
		return NewIrSequence(data)
	}
	intro, err := toSequence(nums[4 : 4+2*introPairs])
	if err != nil {
		return nil, err
	}
	repeat, err := toSequence(nums[4+2*introPairs:])
	if err != nil {
		return nil, err
	}
	return NewIrSignal(intro, repeat, nil, frequency, 0)
}

// FormatPronto renders a signal as Pronto Hex. The ending is not representable and must be
// empty.
func FormatPronto(signal *IrSignal) (string, error) {
	if !signal.Ending.IsEmpty() {
		return "", fmt.Errorf("%w: pronto cannot carry an ending sequence", ErrInvalidArgument)
	}
	frequency := signal.Frequency
	if frequency <= 0 {
		frequency = DefaultFrequency
	}
	code := int(math.Round(1e6 / (frequency * prontoClock)))
	period := float64(code) * prontoClock
	words := []int{0, code, signal.Intro.Len() / 2, signal.Repeat.Len() / 2}
	for _, part := range []*IrSequence{signal.Intro, signal.Repeat} {
		for i := 0; i < part.Len(); i++ {
			words = append(words, int(math.Round(part.At(i)/period)))
		}
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("%04X", w)
	}
	return strings.Join(parts, " "), nil
}
