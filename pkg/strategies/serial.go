/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serial.go
Description: Asynchronous serial strategy. Every duration that is a whole number of units
contributes that many bits, ones for flashes and zeros for gaps; anything else is written
literally and closes the pending fields.
*/

package strategies

import (
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
)

func parseSerial(b *builder) (*Result, error) {
	on := []irp.Duration{irp.NewFlash(1)}
	off := []irp.Duration{irp.NewGap(1)}
	bs := b.bitSpec(off, on)
	if b.params.Invert {
		bs = b.bitSpec(on, off)
	}
	return b.assemble(bs, serialSegment)
}

func serialSegment(b *builder, begin, length int) ([]irp.Item, error) {
	var items []irp.Item
	data := newParamData(1)
	for i := begin; i < begin+length; i++ {
		isFlash := ircore.IsFlash(i)
		t := b.src.CleanedTime(i)
		d := b.flashOrGap(isFlash, t)
		if d.Unit == irp.Units {
			bit := uint64(0)
			if isFlash != b.params.Invert {
				bit = 1
			}
			for n := 0; n < int(d.Value); n++ {
				data.add(bit)
			}
		} else {
			for !data.empty() {
				items = b.dump(data, items)
			}
			if i == begin+length-1 && b.params.UseExtents {
				items = append(items, b.duration(irp.Extent, float64(b.src.TotalDuration(begin, length))))
			} else {
				items = append(items, d)
			}
		}
		for !data.empty() && data.bits() >= b.limit() {
			items = b.dump(data, items)
		}
	}
	for !data.empty() {
		items = b.dump(data, items)
	}
	return items, nil
}
