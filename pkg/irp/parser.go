/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parser.go
Description: Parser for the protocol notation subset: general spec, bitspecs, streams with
durations, bitfields, nested streams and assignments, definitions and parameter specs.
*/

package irp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPunct
)

type token struct {
	kind   tokenKind
	text   string
	num    float64
	isInt  bool
	ival   uint64
	suffix string
	pos    int
}

var twoCharPunct = []string{"..", "<<", ">>", "==", "!=", "<=", ">=", "&&", "||"}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c >= '0' && c <= '9':
			tok, n, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = n
		case c == '_' || unicode.IsLetter(c):
			j := i
			for j < len(src) && isIdentChar(rune(src[j])) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		default:
			matched := false
			for _, p := range twoCharPunct {
				if strings.HasPrefix(src[i:], p) {
					toks = append(toks, token{kind: tokPunct, text: p, pos: i})
					i += 2
					matched = true
					break
				}
			}
			if !matched {
				if !strings.ContainsRune("{}<>|()[],:=^~-+*/%&!@;", c) {
					return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrParse, c, i)
				}
				toks = append(toks, token{kind: tokPunct, text: string(c), pos: i})
				i++
			}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func isIdentChar(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

func lexNumber(src string, i int) (token, int, error) {
	start := i
	if strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X") ||
		strings.HasPrefix(src[i:], "0b") || strings.HasPrefix(src[i:], "0B") {
		base := 16
		if src[i+1] == 'b' || src[i+1] == 'B' {
			base = 2
		}
		j := i + 2
		for j < len(src) && strings.ContainsRune("0123456789abcdefABCDEF", rune(src[j])) {
			j++
		}
		v, err := strconv.ParseUint(src[i+2:j], base, 64)
		if err != nil {
			return token{}, 0, fmt.Errorf("%w: bad number %q: %v", ErrParse, src[start:j], err)
		}
		return token{kind: tokNumber, text: src[start:j], num: float64(v), isInt: true, ival: v, pos: start}, j, nil
	}
	j := i
	for j < len(src) && src[j] >= '0' && src[j] <= '9' {
		j++
	}
	isInt := true
	if j+1 < len(src) && src[j] == '.' && src[j+1] >= '0' && src[j+1] <= '9' {
		isInt = false
		j++
		for j < len(src) && src[j] >= '0' && src[j] <= '9' {
			j++
		}
	}
	v, err := strconv.ParseFloat(src[i:j], 64)
	if err != nil {
		return token{}, 0, fmt.Errorf("%w: bad number %q", ErrParse, src[i:j])
	}
	tok := token{kind: tokNumber, text: src[i:j], num: v, isInt: isInt, pos: start}
	if isInt {
		if tok.ival, err = strconv.ParseUint(src[i:j], 10, 64); err != nil {
			return token{}, 0, fmt.Errorf("%w: bad number %q", ErrParse, src[i:j])
		}
	}
	if j < len(src) {
		s := src[j]
		endsThere := j+1 >= len(src) || !isIdentChar(rune(src[j+1]))
		if (s == 'k' || s == 'u' || s == 'm' || s == 'p') && endsThere {
			tok.suffix = string(s)
			j++
		} else if s == '%' {
			tok.suffix = "%"
			j++
		}
	}
	return tok, j, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) expect(s string) error {
	t := p.next()
	if t.kind != tokPunct || t.text != s {
		return p.errorf(t, "expected %q", s)
	}
	return nil
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	found := t.text
	if t.kind == tokEOF {
		found = "end of input"
	}
	return fmt.Errorf("%w: %s at %d (found %q)", ErrParse, fmt.Sprintf(format, args...), t.pos, found)
}

func (p *parser) integer() (int64, error) {
	t := p.next()
	if t.kind != tokNumber || !t.isInt || t.suffix != "" {
		return 0, p.errorf(t, "expected an integer")
	}
	return int64(t.ival), nil
}

// Parse parses a protocol in the notation printed by Protocol.IrpString.
func Parse(src string) (*Protocol, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	proto := &Protocol{GeneralSpec: DefaultGeneralSpec()}
	if p.isPunct("{") {
		if proto.GeneralSpec, err = p.generalSpec(); err != nil {
			return nil, err
		}
	}
	if p.isPunct("<") {
		if proto.BitSpec, err = p.bitSpec(); err != nil {
			return nil, err
		}
	}
	if proto.Stream, err = p.irStream(); err != nil {
		return nil, err
	}
	for p.isPunct("{") {
		defs, err := p.definitions()
		if err != nil {
			return nil, err
		}
		proto.Definitions = append(proto.Definitions, defs...)
	}
	if p.isPunct("[") {
		if proto.ParameterSpecs, err = p.parameterSpecs(); err != nil {
			return nil, err
		}
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "trailing input")
	}
	return proto, nil
}

// MustParse is Parse for protocol literals known to be valid.
func MustParse(src string) *Protocol {
	proto, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return proto
}

// ParseExpression parses a standalone expression.
func ParseExpression(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.expression(1)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "trailing input")
	}
	return e, nil
}

func (p *parser) generalSpec() (GeneralSpec, error) {
	gs := DefaultGeneralSpec()
	if err := p.expect("{"); err != nil {
		return gs, err
	}
	periods := 0.0
	for !p.isPunct("}") {
		t := p.next()
		switch {
		case t.kind == tokIdent && (t.text == "msb" || t.text == "lsb"):
			if t.text == "msb" {
				gs.BitDirection = MSB
			} else {
				gs.BitDirection = LSB
			}
		case t.kind == tokNumber:
			switch t.suffix {
			case "k":
				gs.Frequency = t.num * 1000
			case "", "u":
				gs.Unit = t.num
			case "p":
				periods = t.num
			case "%":
				gs.DutyCycle = t.num / 100
			default:
				return gs, p.errorf(t, "bad general spec item")
			}
		default:
			return gs, p.errorf(t, "bad general spec item")
		}
		if !p.isPunct("}") {
			if err := p.expect(","); err != nil {
				return gs, err
			}
		}
	}
	p.next()
	if periods > 0 {
		if gs.Frequency <= 0 {
			return gs, fmt.Errorf("%w: unit in periods needs a frequency", ErrParse)
		}
		gs.unitPeriods = periods
		gs.Unit = periods * 1e6 / gs.Frequency
	}
	if gs.DutyCycle > 1 || gs.DutyCycle < 0 {
		return gs, fmt.Errorf("%w: duty cycle %v%%", ErrParse, gs.DutyCycle*100)
	}
	return gs, nil
}

func (p *parser) bitSpec() (*BitSpec, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	bs := &BitSpec{}
	for {
		var code []Duration
		for {
			d, err := p.duration()
			if err != nil {
				return nil, err
			}
			code = append(code, d)
			if !p.isPunct(",") {
				break
			}
			p.next()
		}
		bs.Codes = append(bs.Codes, code)
		if p.isPunct("|") {
			p.next()
			continue
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		break
	}
	return bs, bs.Validate()
}

func (p *parser) duration() (Duration, error) {
	kind := Flash
	if p.isPunct("-") {
		kind = Gap
		p.next()
	} else if p.isPunct("^") {
		kind = Extent
		p.next()
	}
	t := p.next()
	if t.kind != tokNumber {
		return Duration{}, p.errorf(t, "expected a duration")
	}
	d := Duration{Kind: kind, Value: t.num}
	switch t.suffix {
	case "":
		d.Unit = Units
	case "u":
		d.Unit = Microseconds
	case "m":
		d.Unit = Milliseconds
	case "p":
		d.Unit = Periods
	default:
		return Duration{}, p.errorf(t, "bad duration unit")
	}
	return d, nil
}

func (p *parser) irStream() (*IrStream, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	s := &IrStream{}
	for !p.isPunct(")") {
		it, err := p.item()
		if err != nil {
			return nil, err
		}
		s.Items = append(s.Items, it)
		if !p.isPunct(")") {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	switch t := p.peek(); {
	case t.kind == tokPunct && t.text == "*":
		p.next()
		s.Repeat = RepeatMarker{Kind: RepeatStar}
	case t.kind == tokPunct && t.text == "+":
		p.next()
		s.Repeat = RepeatMarker{Kind: RepeatPlus}
	case t.kind == tokNumber && t.isInt && t.suffix == "":
		p.next()
		s.Repeat = RepeatMarker{Kind: RepeatCount, Count: int(t.ival)}
	}
	return s, nil
}

func (p *parser) item() (Item, error) {
	t := p.peek()
	switch {
	case t.kind == tokPunct && t.text == "<":
		bs, err := p.bitSpec()
		if err != nil {
			return nil, err
		}
		s, err := p.irStream()
		if err != nil {
			return nil, err
		}
		s.BitSpec = bs
		return s, nil
	case t.kind == tokPunct && t.text == "(":
		save := p.pos
		p.next()
		if e, err := p.expression(1); err == nil && p.isPunct(")") && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == ":" {
			p.next()
			return p.bitFieldRest(false, e)
		}
		p.pos = save
		return p.irStream()
	case t.kind == tokPunct && (t.text == "-" || t.text == "^"):
		return p.duration()
	case t.kind == tokPunct && t.text == "~":
		p.next()
		data, err := p.primary()
		if err != nil {
			return nil, err
		}
		return p.bitFieldRest(true, data)
	case t.kind == tokNumber:
		if p.peekAt(1).kind == tokPunct && p.peekAt(1).text == ":" {
			p.next()
			if !t.isInt || t.suffix != "" {
				return nil, p.errorf(t, "bad bitfield value")
			}
			return p.bitFieldRest(false, Number(int64(t.ival)))
		}
		return p.duration()
	case t.kind == tokIdent:
		next := p.peekAt(1)
		if next.kind == tokPunct && next.text == "=" {
			p.next()
			p.next()
			e, err := p.expression(1)
			if err != nil {
				return nil, err
			}
			return Assignment{Name: t.text, Value: e}, nil
		}
		if next.kind == tokPunct && next.text == ":" {
			p.next()
			return p.bitFieldRest(false, Name(t.text))
		}
	}
	return nil, p.errorf(t, "unexpected item")
}

func (p *parser) bitFieldRest(complement bool, data Expr) (BitField, error) {
	if err := p.expect(":"); err != nil {
		return BitField{}, err
	}
	width, err := p.integer()
	if err != nil {
		return BitField{}, err
	}
	bf := BitField{Complement: complement, Data: data, Width: int(width)}
	if p.isPunct(":") {
		p.next()
		shift, err := p.integer()
		if err != nil {
			return BitField{}, err
		}
		bf.Shift = int(shift)
	}
	if bf.Width < 0 || bf.Width > 64 || bf.Shift < 0 || bf.Shift > 63 {
		return BitField{}, fmt.Errorf("%w: bitfield width %d shift %d", ErrParse, bf.Width, bf.Shift)
	}
	return bf, nil
}

func (p *parser) definitions() ([]Definition, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var defs []Definition
	for !p.isPunct("}") {
		t := p.next()
		if t.kind != tokIdent {
			return nil, p.errorf(t, "expected a name")
		}
		if err := p.expect("="); err != nil {
			return nil, err
		}
		e, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		defs = append(defs, Definition{Name: t.text, Value: e})
		if !p.isPunct("}") {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	return defs, nil
}

func (p *parser) signedInteger() (int64, error) {
	neg := false
	if p.isPunct("-") {
		p.next()
		neg = true
	}
	v, err := p.integer()
	if neg {
		v = -v
	}
	return v, err
}

func (p *parser) parameterSpecs() ([]ParameterSpec, error) {
	if err := p.expect("["); err != nil {
		return nil, err
	}
	var specs []ParameterSpec
	for !p.isPunct("]") {
		t := p.next()
		if t.kind != tokIdent {
			return nil, p.errorf(t, "expected a parameter name")
		}
		ps := ParameterSpec{Name: t.text}
		if p.isPunct("@") {
			p.next()
			ps.Memory = true
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		var err error
		if ps.Min, err = p.signedInteger(); err != nil {
			return nil, err
		}
		if err := p.expect(".."); err != nil {
			return nil, err
		}
		if ps.Max, err = p.signedInteger(); err != nil {
			return nil, err
		}
		if ps.Min > ps.Max {
			return nil, fmt.Errorf("%w: empty domain %d..%d for %s", ErrParse, ps.Min, ps.Max, ps.Name)
		}
		if p.isPunct("=") {
			p.next()
			if ps.Default, err = p.expression(1); err != nil {
				return nil, err
			}
		}
		specs = append(specs, ps)
		if !p.isPunct("]") {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}
	p.next()
	return specs, nil
}

func (p *parser) expression(minPrec int) (Expr, error) {
	lhs, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPunct {
			return lhs, nil
		}
		prec, ok := precedence[t.text]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		p.next()
		rhs, err := p.expression(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{Op: t.text, X: lhs, Y: rhs}
	}
}

func (p *parser) unary() (Expr, error) {
	t := p.peek()
	if t.kind == tokPunct && (t.text == "~" || t.text == "-" || t.text == "!") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: t.text, X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if !t.isInt || t.suffix != "" || t.ival > math.MaxInt64 {
			return nil, p.errorf(t, "expected an integer")
		}
		return Number(int64(t.ival)), nil
	case tokIdent:
		return Name(t.text), nil
	case tokPunct:
		if t.text == "(" {
			e, err := p.expression(1)
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	}
	return nil, p.errorf(t, "expected an operand")
}
