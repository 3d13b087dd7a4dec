/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: biphase.go
Description: Manchester strategies. A state machine walks the cleaned durations, pairing
half periods into bits. With Invert unset a bit is 0 when its flash half comes first,
the RC5 convention; Invert selects the RC6 convention.
*/

package strategies

import (
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
)

type biphaseState int

const (
	bpStart biphaseState = iota
	// a gap half has been seen, the flash half is expected
	bpPendingGap
	// a flash half has been seen, the gap half is expected
	bpPendingFlash
	bpZero
	bpPendingLongGap
	bpPendingLongFlash
)

type biphaseVariant struct {
	half, full, oneAndAHalf int
	// literal durations at the start of every part
	startDurations int
	doubleToggle   bool
	doubleSpec     *irp.BitSpec
}

func parseBiphase(b *builder) (*Result, error) {
	half, ok0 := timing(b.src, 0)
	full, ok1 := timing(b.src, 1)
	if !ok0 || !ok1 {
		return nil, decodeFailure(b.kind, "needs two timings")
	}
	if d := full - 2*half; d > half/4 || d < -half/4 {
		return nil, decodeFailure(b.kind, "full period %d is not twice the half period %d", full, half)
	}
	v := biphaseVariant{half: half, full: full, oneAndAHalf: -1}
	switch b.kind {
	case BiphaseWithTwoDurations:
		v.startDurations = 2
	case BiphaseWithDoubleToggle:
		v.doubleToggle = true
		if t, ok := timing(b.src, 2); ok && t < 2*full {
			v.oneAndAHalf = t
		}
		v.doubleSpec = b.biphaseSpec(2 * b.timebase)
	}
	return b.assemble(b.biphaseSpec(b.timebase), func(b *builder, begin, length int) ([]irp.Item, error) {
		return b.biphase(begin, length, v)
	})
}

// biphaseSpec is <1,-1|-1,1> scaled to unit, or <-1,1|1,-1> when inverted.
func (b *builder) biphaseSpec(unit float64) *irp.BitSpec {
	on := b.duration(irp.Flash, unit)
	off := b.duration(irp.Gap, unit)
	onOff := []irp.Duration{on, off}
	offOn := []irp.Duration{off, on}
	if b.params.Invert {
		return b.bitSpec(offOn, onOff)
	}
	return b.bitSpec(onOff, offOn)
}

func (b *builder) biphase(begin, length int, v biphaseVariant) ([]irp.Item, error) {
	var items []irp.Item
	data := newParamData(1)
	flashFirstIsZero := !b.params.Invert
	state := bpStart
	found := 0
	for i := begin; i < begin+length; i++ {
		limit := b.limit()
		isFlash := ircore.IsFlash(i)
		last := i == begin+length-1
		t := b.src.CleanedTime(i)
		short, long, oneAndAHalf := t == v.half, t == v.full, t == v.oneAndAHalf
		closing := func(us int) irp.Duration {
			if last && b.params.UseExtents {
				return b.duration(irp.Extent, float64(b.src.TotalDuration(begin, length-1)+us))
			}
			return b.gap(us)
		}

		switch state {
		case bpStart:
			if v.startDurations > 0 {
				items = append(items, b.flashOrGap(isFlash, t))
				found++
				if found == v.startDurations {
					state = bpZero
				}
				break
			}
			if !isFlash {
				return nil, decodeFailure(b.kind, "part starts with a gap at %d", i)
			}
			switch {
			case short && flashFirstIsZero:
				data.add(1)
				state = bpZero
			case short:
				state = bpPendingFlash
			default:
				items = b.save(data, items)
				items = append(items, b.flash(t))
				state = bpZero
			}

		case bpPendingGap:
			if !isFlash {
				return nil, decodeFailure(b.kind, "flash expected at %d", i)
			}
			data.addBool(flashFirstIsZero)
			switch {
			case short:
				state = bpZero
			case long:
				state = bpPendingFlash
			case oneAndAHalf:
				items = b.save(data, items)
				state = bpPendingLongFlash
			default:
				items = b.save(data, items)
				items = append(items, b.flash(t-v.half))
				state = bpZero
			}

		case bpPendingFlash:
			if isFlash {
				return nil, decodeFailure(b.kind, "gap expected at %d", i)
			}
			data.addBool(!flashFirstIsZero)
			switch {
			case short:
				state = bpZero
			case long:
				state = bpPendingGap
			case oneAndAHalf:
				items = b.save(data, items)
				state = bpPendingLongGap
			default:
				items = b.save(data, items)
				items = append(items, closing(t-v.half))
				state = bpZero
			}

		case bpPendingLongGap, bpPendingLongFlash:
			if isFlash != (state == bpPendingLongGap) {
				return nil, decodeFailure(b.kind, "unexpected polarity in toggle at %d", i)
			}
			data.addBool(isFlash == flashFirstIsZero)
			items = b.saveIn(v.doubleSpec, data, items)
			switch {
			case long:
				state = bpZero
			case oneAndAHalf && isFlash:
				state = bpPendingFlash
			case oneAndAHalf:
				state = bpPendingGap
			default:
				return nil, decodeFailure(b.kind, "toggle symbol not closed at %d", i)
			}

		case bpZero:
			switch {
			case short && isFlash:
				state = bpPendingFlash
			case short:
				state = bpPendingGap
			case v.doubleToggle && long && i-begin > 1:
				items = b.save(data, items)
				if isFlash {
					state = bpPendingLongFlash
				} else {
					state = bpPendingLongGap
				}
			default:
				items = b.save(data, items)
				if isFlash {
					items = append(items, b.flash(t))
				} else {
					items = append(items, closing(t))
				}
			}
		}
		if data.bits() >= limit {
			items = b.save(data, items)
		}
	}
	return b.save(data, items), nil
}
