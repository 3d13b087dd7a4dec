/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: printer.go
Description: Text form of protocols, e.g. {38.4k,564,msb}<1,-1|1,-3>(16,-8,A:32,1,^108m){A=0x30441ce3}.
*/

package irp

import (
	"fmt"
	"strconv"
	"strings"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (gs GeneralSpec) String() string {
	parts := []string{formatFloat(gs.Frequency/1000) + "k"}
	switch {
	case gs.unitPeriods > 0:
		parts = append(parts, formatFloat(gs.unitPeriods)+"p")
	default:
		parts = append(parts, formatFloat(gs.Unit))
	}
	parts = append(parts, gs.BitDirection.String())
	if gs.DutyCycle > 0 {
		parts = append(parts, formatFloat(gs.DutyCycle*100)+"%")
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (d Duration) String() string {
	var b strings.Builder
	switch d.Kind {
	case Gap:
		b.WriteByte('-')
	case Extent:
		b.WriteByte('^')
	}
	b.WriteString(formatFloat(d.Value))
	switch d.Unit {
	case Microseconds:
		b.WriteByte('u')
	case Milliseconds:
		b.WriteByte('m')
	case Periods:
		b.WriteByte('p')
	}
	return b.String()
}

func (b BitField) String() string {
	var s strings.Builder
	if b.Complement {
		s.WriteByte('~')
	}
	switch b.Data.(type) {
	case Name, Number:
		s.WriteString(b.Data.String())
	default:
		s.WriteString("(" + b.Data.String() + ")")
	}
	fmt.Fprintf(&s, ":%d", b.Width)
	if b.Shift != 0 {
		fmt.Fprintf(&s, ":%d", b.Shift)
	}
	return s.String()
}

func (a Assignment) String() string {
	return a.Name + "=" + a.Value.String()
}

func (r RepeatMarker) String() string {
	switch r.Kind {
	case RepeatStar:
		return "*"
	case RepeatPlus:
		return "+"
	case RepeatCount:
		return strconv.Itoa(r.Count)
	}
	return ""
}

func (b *BitSpec) String() string {
	codes := make([]string, len(b.Codes))
	for i, c := range b.Codes {
		parts := make([]string, len(c))
		for j, d := range c {
			parts[j] = d.String()
		}
		codes[i] = strings.Join(parts, ",")
	}
	return "<" + strings.Join(codes, "|") + ">"
}

func itemString(it Item) string {
	switch v := it.(type) {
	case Duration:
		return v.String()
	case BitField:
		return v.String()
	case Assignment:
		return v.String()
	case *IrStream:
		return v.String()
	}
	return "?"
}

func (s *IrStream) String() string {
	var b strings.Builder
	if s.BitSpec != nil {
		b.WriteString(s.BitSpec.String())
	}
	b.WriteByte('(')
	for i, it := range s.Items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(itemString(it))
	}
	b.WriteByte(')')
	b.WriteString(s.Repeat.String())
	return b.String()
}

func formatValue(e Expr, radix int) string {
	n, ok := e.(Number)
	if !ok || radix != 16 {
		return e.String()
	}
	if n < 0 {
		return e.String()
	}
	return "0x" + strconv.FormatInt(int64(n), 16)
}

// IrpString renders the protocol; numeric definitions are written in the given radix
// (10 or 16).
func (p *Protocol) IrpString(radix int) string {
	var b strings.Builder
	b.WriteString(p.GeneralSpec.String())
	if p.BitSpec != nil {
		b.WriteString(p.BitSpec.String())
	}
	if p.Stream != nil {
		b.WriteString(p.Stream.String())
	}
	if len(p.Definitions) > 0 {
		defs := make([]string, len(p.Definitions))
		for i, d := range p.Definitions {
			defs[i] = d.Name + "=" + formatValue(d.Value, radix)
		}
		b.WriteString("{" + strings.Join(defs, ",") + "}")
	}
	if len(p.ParameterSpecs) > 0 {
		specs := make([]string, len(p.ParameterSpecs))
		for i, ps := range p.ParameterSpecs {
			var s strings.Builder
			s.WriteString(ps.Name)
			if ps.Memory {
				s.WriteByte('@')
			}
			fmt.Fprintf(&s, ":%d..%d", ps.Min, ps.Max)
			if ps.Default != nil {
				s.WriteString("=" + ps.Default.String())
			}
			specs[i] = s.String()
		}
		b.WriteString("[" + strings.Join(specs, ",") + "]")
	}
	return b.String()
}

func (p *Protocol) String() string {
	return p.IrpString(10)
}

// Equal compares the canonical text forms.
func (p *Protocol) Equal(other *Protocol) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.IrpString(10) == other.IrpString(10)
}
