/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pwm.go
Description: Burst based strategies. Every flash/gap pair is either one of the bitspec
bursts, adding a symbol to the current field, or written literally.
*/

package strategies

import (
	"sort"

	"github.com/kleascm/irscope/pkg/irp"
)

func parseTrivial(b *builder, begin, length int) ([]irp.Item, error) {
	items := make([]irp.Item, 0, length)
	for i := begin; i < begin+length-1; i += 2 {
		items = append(items, b.flash(b.src.CleanedTime(i)))
		if i == begin+length-2 {
			items = append(items, b.ending(b.src.CleanedTime(i+1), b.src.TotalDuration(begin, length)))
		} else {
			items = append(items, b.gap(b.src.CleanedTime(i+1)))
		}
	}
	return items, nil
}

// burstParser decodes with the given symbol bursts; symbol i is codes[i].
func burstParser(codes []Burst, chunkSize int) segmentParser {
	return func(b *builder, begin, length int) ([]irp.Item, error) {
		var items []irp.Item
		data := newParamData(chunkSize)
		for i := begin; i < begin+length-1; i += 2 {
			limit := b.limit()
			burst := Burst{Flash: b.src.CleanedTime(i), Gap: b.src.CleanedTime(i + 1)}
			symbol := -1
			for s, c := range codes {
				if c == burst {
					symbol = s
					break
				}
			}
			if symbol >= 0 {
				data.add(uint64(symbol))
			} else {
				items = b.save(data, items)
				items = append(items, b.flash(burst.Flash))
				if i == begin+length-2 {
					items = append(items, b.ending(burst.Gap, b.src.TotalDuration(begin, length)))
				} else {
					items = append(items, b.gap(burst.Gap))
				}
			}
			if data.bits() >= limit {
				items = b.save(data, items)
			}
		}
		return b.save(data, items), nil
	}
}

func parseBursts(b *builder, zero, one Burst) (*Result, error) {
	if zero == one {
		return nil, decodeFailure(b.kind, "bursts %v are not distinct", zero)
	}
	if b.params.Invert {
		zero, one = one, zero
	}
	bs := b.bitSpec(b.burstCode(zero), b.burstCode(one))
	return b.assemble(bs, burstParser([]Burst{zero, one}, 1))
}

// parsePwm uses the smallest timing as flash and the two smallest timings as gaps.
func parsePwm(b *builder) (*Result, error) {
	t0, ok0 := timing(b.src, 0)
	t1, ok1 := timing(b.src, 1)
	if !ok0 || !ok1 {
		return nil, decodeFailure(b.kind, "needs two timings")
	}
	return parseBursts(b, Burst{t0, t0}, Burst{t0, t1})
}

// parsePwm2 uses the two most frequent bursts.
func parsePwm2(b *builder) (*Result, error) {
	bursts := b.src.Bursts()
	if len(bursts) < 2 {
		return nil, decodeFailure(b.kind, "needs two bursts")
	}
	zero, one := bursts[0], bursts[1]
	if one.Less(zero) {
		zero, one = one, zero
	}
	return parseBursts(b, zero, one)
}

// parsePwm4 uses the most frequent flash and the four most frequent gaps, two bits per
// symbol.
func parsePwm4(b *builder) (*Result, error) {
	flashes, gaps := b.src.Flashes(), b.src.Gaps()
	if len(flashes) < 1 || len(gaps) < 4 {
		return nil, decodeFailure(b.kind, "needs four gaps")
	}
	sorted := append([]int(nil), gaps[:4]...)
	sort.Ints(sorted)
	codes := make([]Burst, 4)
	specCodes := make([][]irp.Duration, 4)
	for i, g := range sorted {
		codes[i] = Burst{Flash: flashes[0], Gap: g}
		specCodes[i] = b.burstCode(codes[i])
	}
	return b.assemble(b.bitSpec(specCodes...), burstParser(codes, 2))
}
