/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: builder.go
Description: Common machinery of the strategies: duration formatting, field accumulation
and assembly of intro, repeat and ending into one protocol.
*/

package strategies

import (
	"fmt"
	"math"

	"github.com/kleascm/irscope/pkg/cleaner"
	"github.com/kleascm/irscope/pkg/irp"
)

// paramData accumulates the symbols of one field, oldest first.
type paramData struct {
	chunks    []uint64
	chunkSize int
}

func newParamData(chunkSize int) *paramData {
	return &paramData{chunkSize: chunkSize}
}

func (d *paramData) add(symbol uint64) {
	d.chunks = append(d.chunks, symbol)
}

func (d *paramData) addBool(b bool) {
	if b {
		d.add(1)
	} else {
		d.add(0)
	}
}

func (d *paramData) bits() int {
	return len(d.chunks) * d.chunkSize
}

func (d *paramData) empty() bool {
	return len(d.chunks) == 0
}

func (d *paramData) reset() {
	d.chunks = d.chunks[:0]
}

// value folds the symbols; msb puts the first symbol highest, lsb lowest.
func (d *paramData) value(dir irp.BitDirection) uint64 {
	var v uint64
	n := len(d.chunks)
	for i := 0; i < n; i++ {
		c := d.chunks[i]
		if dir == irp.LSB {
			c = d.chunks[n-1-i]
		}
		v = v<<uint(d.chunkSize) | c
	}
	return v
}

// split removes and returns the first n bits.
func (d *paramData) split(n int) *paramData {
	k := n / d.chunkSize
	if k > len(d.chunks) {
		k = len(d.chunks)
	}
	head := &paramData{chunkSize: d.chunkSize, chunks: append([]uint64(nil), d.chunks[:k]...)}
	d.chunks = append(d.chunks[:0], d.chunks[k:]...)
	return head
}

type builder struct {
	kind      Kind
	src       Source
	params    Params
	timebase  float64
	periods   float64
	frequency float64

	noPayload int
	defs      []irp.Definition
	specs     []irp.ParameterSpec
	values    map[string]int64
	warnings  []string
}

func newBuilder(kind Kind, src Source, params Params) (*builder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if src.Len() == 0 {
		return nil, decodeFailure(kind, "empty input")
	}
	b := &builder{kind: kind, src: src, params: params, values: map[string]int64{}}
	b.frequency = params.Frequency
	if b.frequency == 0 {
		b.frequency = src.Frequency()
	}
	tb, periods, err := params.parseTimeBase(b.frequency)
	if err != nil {
		return nil, err
	}
	if tb == 0 {
		first, ok := timing(src, 0)
		if !ok {
			return nil, decodeFailure(kind, "no timings")
		}
		tb = float64(first)
	}
	b.timebase, b.periods = tb, periods
	return b, nil
}

// duration writes us as units, microseconds or milliseconds.
func (b *builder) duration(kind irp.DurationKind, us float64) irp.Duration {
	units := us / b.timebase
	if units < b.params.MaxUnits && math.Abs(math.Round(units)-units) < b.params.MaxRoundingError {
		return irp.Duration{Kind: kind, Value: math.Round(units), Unit: irp.Units}
	}
	if us < b.params.MaxMicroseconds {
		return irp.Duration{Kind: kind, Value: us, Unit: irp.Microseconds}
	}
	return irp.Duration{Kind: kind, Value: math.Round(us / 1000), Unit: irp.Milliseconds}
}

func (b *builder) flash(us int) irp.Duration { return b.duration(irp.Flash, float64(us)) }
func (b *builder) gap(us int) irp.Duration   { return b.duration(irp.Gap, float64(us)) }

func (b *builder) flashOrGap(isFlash bool, us int) irp.Duration {
	if isFlash {
		return b.flash(us)
	}
	return b.gap(us)
}

// ending is the closing gap of a segment: an extent of total when extents are preferred.
func (b *builder) ending(gap, total int) irp.Duration {
	if b.params.UseExtents {
		return b.duration(irp.Extent, float64(total))
	}
	return b.gap(gap)
}

func (b *builder) bitSpec(codes ...[]irp.Duration) *irp.BitSpec {
	return &irp.BitSpec{Codes: codes}
}

func (b *builder) burstCode(burst Burst) []irp.Duration {
	return []irp.Duration{b.flash(burst.Flash), b.gap(burst.Gap)}
}

func (b *builder) limit() int {
	l, _ := b.params.widthLimit(b.noPayload)
	return l
}

// field stores d as the next named field and resets it.
func (b *builder) field(d *paramData) (irp.BitField, bool) {
	if d.empty() {
		return irp.BitField{}, false
	}
	name := cleaner.Name(b.noPayload)
	width := d.bits()
	if _, given := b.params.widthLimit(b.noPayload); !given {
		b.warnings = append(b.warnings, fmt.Sprintf("no width given for parameter %s, using %d bits", name, width))
	}
	b.noPayload++
	value := int64(d.value(b.params.BitDirection))
	b.values[name] = value
	if b.params.ParameterSpecs {
		max := int64(math.MaxInt64)
		if width < 63 {
			max = int64(1)<<uint(width) - 1
		}
		b.specs = append(b.specs, irp.ParameterSpec{Name: name, Min: 0, Max: max})
	} else {
		b.defs = append(b.defs, irp.Definition{Name: name, Value: irp.Number(value)})
	}
	d.reset()
	return irp.NewBitField(name, width), true
}

func (b *builder) save(d *paramData, items []irp.Item) []irp.Item {
	if f, ok := b.field(d); ok {
		items = append(items, f)
	}
	return items
}

// saveIn stores d as a field wrapped in a stream with its own bitspec.
func (b *builder) saveIn(bs *irp.BitSpec, d *paramData, items []irp.Item) []irp.Item {
	if f, ok := b.field(d); ok {
		items = append(items, &irp.IrStream{BitSpec: bs, Items: []irp.Item{f}})
	}
	return items
}

// dump saves the first limit bits of d as a field and keeps the rest.
func (b *builder) dump(d *paramData, items []irp.Item) []irp.Item {
	head := d.split(b.limit())
	return b.save(head, items)
}

type segmentParser func(b *builder, begin, length int) ([]irp.Item, error)

// assemble runs parse over intro, repeat and ending and builds the protocol.
func (b *builder) assemble(bs *irp.BitSpec, parse segmentParser) (*Result, error) {
	rfd := b.src.RepeatFinderData()
	intro, err := parse(b, 0, rfd.BeginLength)
	if err != nil {
		return nil, err
	}
	repeat, err := parse(b, rfd.BeginLength, rfd.RepeatLength)
	if err != nil {
		return nil, err
	}
	ending, err := parse(b, rfd.EndingStart(), rfd.EndingLength)
	if err != nil {
		return nil, err
	}

	var stream *irp.IrStream
	if rfd.BeginLength == 0 && rfd.EndingLength == 0 && len(repeat) > 0 {
		stream = &irp.IrStream{Items: repeat, Repeat: irp.RepeatMarker{Kind: irp.RepeatStar}}
	} else {
		items := intro
		if len(repeat) > 0 {
			items = append(items, &irp.IrStream{Items: repeat, Repeat: irp.RepeatMarker{Kind: irp.RepeatStar}})
		}
		if len(ending) > 0 {
			items = append(items, &irp.IrStream{Items: ending})
		}
		stream = &irp.IrStream{Items: items}
	}

	gs := irp.GeneralSpec{Frequency: b.frequency, Unit: b.timebase, BitDirection: b.params.BitDirection}
	if b.periods > 0 {
		gs = gs.InPeriods(b.periods)
	}
	proto := &irp.Protocol{
		GeneralSpec:    gs,
		BitSpec:        bs,
		Stream:         stream,
		Definitions:    b.defs,
		ParameterSpecs: b.specs,
	}
	return &Result{Kind: b.kind, Protocol: proto, Parameters: b.values, Warnings: b.warnings}, nil
}
