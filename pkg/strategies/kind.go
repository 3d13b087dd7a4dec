/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: kind.go
Description: The fixed set of decoding strategies. Each kind segments a cleaned capture
under one encoding assumption and returns a symbolic protocol.
*/

package strategies

import (
	"fmt"
	"strings"

	"github.com/kleascm/irscope/pkg/ircore"
)

// Kind identifies a strategy. The declaration order is the tie break order.
type Kind int

const (
	Trivial Kind = iota
	Pwm
	Pwm2
	Pwm4
	Biphase
	BiphaseWithTwoDurations
	BiphaseWithDoubleToggle
	Serial
)

var kindNames = [...]string{
	Trivial:                 "Trivial",
	Pwm:                     "Pwm",
	Pwm2:                    "Pwm2",
	Pwm4:                    "Pwm4",
	Biphase:                 "Biphase",
	BiphaseWithTwoDurations: "BiphaseWithTwoDurations",
	BiphaseWithDoubleToggle: "BiphaseWithDoubleToggle",
	Serial:                  "Serial",
}

var kindDescriptions = [...]string{
	Trivial:                 "Every flash and gap written literally",
	Pwm:                     "Pulse distance: a fixed flash followed by one of two gaps",
	Pwm2:                    "Pulse width: the two most frequent bursts, shorter period is zero",
	Pwm4:                    "Pulse distance with four gaps carrying two bits each",
	Biphase:                 "Manchester coding with half and full periods",
	BiphaseWithTwoDurations: "Manchester coding where every part starts with a literal flash and gap",
	BiphaseWithDoubleToggle: "Manchester coding with one double length toggle symbol",
	Serial:                  "Asynchronous serial: every unit of flash is a one and every unit of gap a zero",
}

// Kinds returns all strategies in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// Name returns the name of the strategy.
func (k Kind) Name() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) String() string { return k.Name() }

// Description returns a one line description.
func (k Kind) Description() string {
	if k < 0 || int(k) >= len(kindDescriptions) {
		return ""
	}
	return kindDescriptions[k]
}

// ParseKind looks up a strategy by name, ignoring case.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown strategy %q", ircore.ErrInvalidArgument, name)
}

// Parse decodes src. It fails with ErrDecodeFailure when the input does not fit the
// encoding; src is never modified.
func (k Kind) Parse(src Source, params Params) (*Result, error) {
	b, err := newBuilder(k, src, params)
	if err != nil {
		return nil, err
	}
	switch k {
	case Trivial:
		return b.assemble(nil, parseTrivial)
	case Pwm:
		return parsePwm(b)
	case Pwm2:
		return parsePwm2(b)
	case Pwm4:
		return parsePwm4(b)
	case Biphase, BiphaseWithTwoDurations, BiphaseWithDoubleToggle:
		return parseBiphase(b)
	case Serial:
		return parseSerial(b)
	}
	return nil, fmt.Errorf("unknown strategy %d", int(k))
}
