/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: protocol.go
Description: Symbolic protocol model. A protocol is a general spec (carrier, unit, bit
order), a bit encoding table, a stream of durations, bitfields and nested streams, plus
definitions and declared parameters.
*/

package irp

import (
	"fmt"
	"math"
	"math/bits"
)

// BitDirection is the order in which field bits are sent.
type BitDirection int

const (
	LSB BitDirection = iota
	MSB
)

func (b BitDirection) String() string {
	if b == MSB {
		return "msb"
	}
	return "lsb"
}

// GeneralSpec carries the frequency (Hz, 0 for unmodulated), the unit (microseconds), the
// bit direction and the duty cycle (0 when unspecified).
type GeneralSpec struct {
	Frequency    float64
	Unit         float64
	BitDirection BitDirection
	DutyCycle    float64

	// unitPeriods is set when the unit was written in carrier periods.
	unitPeriods float64
}

// DefaultGeneralSpec is {38k,1,lsb}.
func DefaultGeneralSpec() GeneralSpec {
	return GeneralSpec{Frequency: 38000, Unit: 1, BitDirection: LSB}
}

// InPeriods returns the spec with the unit expressed as a number of carrier periods.
func (gs GeneralSpec) InPeriods(periods float64) GeneralSpec {
	if gs.Frequency > 0 && periods > 0 {
		gs.unitPeriods = periods
		gs.Unit = periods * 1e6 / gs.Frequency
	}
	return gs
}

// TimeUnit is the suffix of a duration.
type TimeUnit int

const (
	Units TimeUnit = iota
	Microseconds
	Milliseconds
	Periods
)

// DurationKind distinguishes flashes, gaps and extents.
type DurationKind int

const (
	Flash DurationKind = iota
	Gap
	Extent
)

// Item is an element of a stream: Duration, BitField, *IrStream or Assignment.
type Item interface {
	isItem()
}

// Duration is a literal flash, gap or extent. Value is non-negative.
type Duration struct {
	Kind  DurationKind
	Value float64
	Unit  TimeUnit
}

func (Duration) isItem() {}

// NewFlash, NewGap and NewExtent are shorthands for unit multiples.
func NewFlash(units float64) Duration  { return Duration{Kind: Flash, Value: units} }
func NewGap(units float64) Duration    { return Duration{Kind: Gap, Value: units} }
func NewExtent(units float64) Duration { return Duration{Kind: Extent, Value: units} }

// Microseconds converts the duration using the general spec.
func (d Duration) Microseconds(gs GeneralSpec) (float64, error) {
	switch d.Unit {
	case Units:
		return d.Value * gs.Unit, nil
	case Microseconds:
		return d.Value, nil
	case Milliseconds:
		return d.Value * 1000, nil
	case Periods:
		if gs.Frequency <= 0 {
			return 0, fmt.Errorf("duration in periods needs a carrier frequency")
		}
		return d.Value * 1e6 / gs.Frequency, nil
	}
	return 0, fmt.Errorf("unknown time unit %d", d.Unit)
}

// BitField sends Width bits of (optionally complemented) Data shifted right by Shift.
type BitField struct {
	Complement bool
	Data       Expr
	Width      int
	Shift      int
}

func (BitField) isItem() {}

// NewBitField is a plain Name:Width field.
func NewBitField(name string, width int) BitField {
	return BitField{Data: Name(name), Width: width}
}

// Value evaluates the bits the field sends.
func (b BitField) Value(env Env) (uint64, error) {
	v, err := b.Data.Eval(env)
	if err != nil {
		return 0, err
	}
	if b.Complement {
		v = ^v
	}
	return (uint64(v) >> uint(b.Shift)) & mask(b.Width), nil
}

// Assignment sets a name while rendering, used for toggles.
type Assignment struct {
	Name  string
	Value Expr
}

func (Assignment) isItem() {}

// RepeatKind is the repeat marker of a stream.
type RepeatKind int

const (
	Once RepeatKind = iota
	RepeatStar
	RepeatPlus
	RepeatCount
)

// RepeatMarker is *, + or an explicit count.
type RepeatMarker struct {
	Kind  RepeatKind
	Count int
}

// IsRepeating reports whether the stream is sent while the button is held.
func (r RepeatMarker) IsRepeating() bool {
	return r.Kind == RepeatStar || r.Kind == RepeatPlus
}

// IrStream is a parenthesised list of items, optionally with its own bit encoding.
type IrStream struct {
	BitSpec *BitSpec
	Items   []Item
	Repeat  RepeatMarker
}

func (*IrStream) isItem() {}

// BitSpec lists the duration patterns of each symbol. The number of codes is a power of two.
type BitSpec struct {
	Codes [][]Duration
}

// ChunkSize is the number of bits per symbol.
func (b *BitSpec) ChunkSize() int {
	return bits.TrailingZeros(uint(len(b.Codes)))
}

// Validate checks the number of codes and that codes hold only flashes and gaps.
func (b *BitSpec) Validate() error {
	n := len(b.Codes)
	if n < 2 || n > 16 || n&(n-1) != 0 {
		return fmt.Errorf("%w: bitspec needs 2, 4, 8 or 16 codes, has %d", ErrParse, n)
	}
	for _, code := range b.Codes {
		for _, d := range code {
			if d.Kind == Extent {
				return fmt.Errorf("%w: extent inside a bitspec", ErrParse)
			}
		}
	}
	return nil
}

// Definition binds a name to an expression.
type Definition struct {
	Name  string
	Value Expr
}

// ParameterSpec declares a parameter, its domain and an optional default.
type ParameterSpec struct {
	Name    string
	Memory  bool
	Min     int64
	Max     int64
	Default Expr
}

// Protocol is a complete symbolic protocol.
type Protocol struct {
	GeneralSpec    GeneralSpec
	BitSpec        *BitSpec
	Stream         *IrStream
	Definitions    []Definition
	ParameterSpecs []ParameterSpec
}

// Definition returns the definition of name, if any.
func (p *Protocol) Definition(name string) (Definition, bool) {
	for _, d := range p.Definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// ParameterSpec returns the declaration of name, if any.
func (p *Protocol) ParameterSpec(name string) (ParameterSpec, bool) {
	for _, ps := range p.ParameterSpecs {
		if ps.Name == name {
			return ps, true
		}
	}
	return ParameterSpec{}, false
}

// DefinitionValues evaluates the definitions given the parameters in env. Definitions
// may refer to each other in any order.
func (p *Protocol) DefinitionValues(env Env) (Env, error) {
	out := env.Clone()
	pending := append([]Definition(nil), p.Definitions...)
	for len(pending) > 0 {
		var next []Definition
		var lastErr error
		for _, d := range pending {
			v, err := d.Value.Eval(out)
			if err != nil {
				next = append(next, d)
				lastErr = err
				continue
			}
			out[d.Name] = v
		}
		if len(next) == len(pending) {
			return nil, lastErr
		}
		pending = next
	}
	return out, nil
}

// Parts splits the top level stream into intro, repeat and ending item lists. The repeat
// is the first repeating stream; a repeating top level stream has an empty intro unless
// it is marked '+'.
func (p *Protocol) Parts() (intro, repeat, ending []Item, err error) {
	top := p.Stream
	if top == nil {
		return nil, nil, nil, fmt.Errorf("%w: protocol has no stream", ErrParse)
	}
	if top.Repeat.IsRepeating() {
		wrapped := &IrStream{BitSpec: top.BitSpec, Items: top.Items}
		if top.Repeat.Kind == RepeatPlus {
			intro = []Item{wrapped}
		}
		return intro, []Item{wrapped}, nil, nil
	}
	found := -1
	for i, it := range top.Items {
		if s, ok := it.(*IrStream); ok && s.Repeat.IsRepeating() {
			if found >= 0 {
				return nil, nil, nil, fmt.Errorf("%w: more than one repeating stream", ErrParse)
			}
			found = i
		}
	}
	if found < 0 {
		return top.Items, nil, nil, nil
	}
	rep := top.Items[found].(*IrStream)
	once := &IrStream{BitSpec: rep.BitSpec, Items: rep.Items}
	intro = append(intro, top.Items[:found]...)
	if rep.Repeat.Kind == RepeatPlus {
		intro = append(intro, once)
	}
	return intro, []Item{once}, top.Items[found+1:], nil
}

// Weight scores the complexity of the protocol; lower is simpler.
func (p *Protocol) Weight() int {
	w := 0
	if p.BitSpec != nil {
		w += p.BitSpec.weight()
	}
	if p.Stream != nil {
		w += p.Stream.weight() - 1
	}
	return w + len(p.Definitions) + len(p.ParameterSpecs)
}

func (b *BitSpec) weight() int {
	w := 0
	for _, c := range b.Codes {
		w += len(c)
	}
	return w
}

func (s *IrStream) weight() int {
	w := 1
	if s.BitSpec != nil {
		w += s.BitSpec.weight()
	}
	for _, it := range s.Items {
		switch v := it.(type) {
		case Duration:
			w++
		case BitField:
			w += 2 + (v.Width+7)/8
		case *IrStream:
			w += v.weight()
		case Assignment:
			w++
		}
	}
	return w
}

func mask(width int) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << uint(width)) - 1
}
