/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: source.go
Description: The cleaned view of one capture that strategies decode, and the result type
they produce.
*/

package strategies

import (
	"errors"
	"fmt"

	"github.com/kleascm/irscope/pkg/irp"
	"github.com/kleascm/irscope/pkg/repeatfinder"
)

// ErrDecodeFailure is returned when a strategy cannot segment its input.
var ErrDecodeFailure = errors.New("decode failure")

func decodeFailure(kind Kind, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrDecodeFailure, kind, fmt.Sprintf(format, args...))
}

// Burst is a flash followed by a gap, in cleaned microseconds.
type Burst struct {
	Flash int
	Gap   int
}

// Total is the period of the burst.
func (b Burst) Total() int {
	return b.Flash + b.Gap
}

// Less orders bursts by period, then by flash.
func (b Burst) Less(o Burst) bool {
	if b.Total() != o.Total() {
		return b.Total() < o.Total()
	}
	return b.Flash < o.Flash
}

// Source is one cleaned capture. Positions are relative to the capture; even positions
// are flashes.
type Source interface {
	Len() int
	CleanedTime(i int) int
	TotalDuration(begin, length int) int
	// Timings are the distinct cleaned durations in ascending order.
	Timings() []int
	// Bursts, Flashes and Gaps are distinct values, most frequent first.
	Bursts() []Burst
	Flashes() []int
	Gaps() []int
	Frequency() float64
	RepeatFinderData() repeatfinder.Data
}

func timing(src Source, i int) (int, bool) {
	t := src.Timings()
	if i >= len(t) {
		return 0, false
	}
	return t[i], true
}

// Result is the protocol found by one strategy.
type Result struct {
	Kind     Kind
	Protocol *irp.Protocol
	// Parameters holds the decoded field values, whether they are stored as definitions
	// or declared as parameters.
	Parameters map[string]int64
	Warnings   []string
}

// Weight is the weight of the protocol.
func (r *Result) Weight() int {
	return r.Protocol.Weight()
}
