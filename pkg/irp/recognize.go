/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: recognize.go
Description: Recognition of captured signals against a protocol. Each protocol part is
flattened into a list of steps and matched by a backtracking search that assigns
parameter bits as symbols are read.
*/

package irp

import (
	"fmt"
	"strings"

	"github.com/kleascm/irscope/pkg/ircore"
)

// RecognizeParams controls recognition.
type RecognizeParams struct {
	Tolerance ircore.Tolerance
	// MinLeadout makes any two gaps at least this long compare equal.
	MinLeadout float64
	// Strict requires every part of the protocol to be present in the signal and matched
	// part by part.
	Strict bool
}

// DefaultRecognizeParams uses the default tolerances.
func DefaultRecognizeParams() RecognizeParams {
	return RecognizeParams{Tolerance: ircore.DefaultTolerance(), MinLeadout: ircore.DefaultMinLeadout}
}

// Recognition is a successful match of a sequence range.
type Recognition struct {
	Params map[string]int64
	Begin  int
	End    int
}

type stepKind int

const (
	stepDuration stepKind = iota
	stepMark
	stepExtent
	stepSymbol
)

type timing struct {
	flash bool
	us    float64
}

type step struct {
	kind   stepKind
	timing timing
	slot   int
	symbol *symbolStep
}

// symbolStep reads one bitspec symbol into bits [shift, shift+chunk) of target.
type symbolStep struct {
	target     string
	complement bool
	shift      int
	chunk      int
	codes      [][]timing
}

type flattener struct {
	proto  *Protocol
	steps  []step
	fields []BitField
	slots  int
}

func deferredName(i int) string { return fmt.Sprintf("#%d", i) }

func (f *flattener) items(items []Item, bs *BitSpec) error {
	slot := f.slots
	f.slots++
	f.steps = append(f.steps, step{kind: stepMark, slot: slot})
	for _, it := range items {
		switch v := it.(type) {
		case Duration:
			us, err := v.Microseconds(f.proto.GeneralSpec)
			if err != nil {
				return err
			}
			if v.Kind == Extent {
				f.steps = append(f.steps, step{kind: stepExtent, timing: timing{us: us}, slot: slot},
					step{kind: stepMark, slot: slot})
				continue
			}
			f.steps = append(f.steps, step{kind: stepDuration, timing: timing{flash: v.Kind == Flash, us: us}})
		case BitField:
			if err := f.bitField(v, bs); err != nil {
				return err
			}
		case Assignment:
		case *IrStream:
			inner := bs
			if v.BitSpec != nil {
				inner = v.BitSpec
			}
			count := 1
			if v.Repeat.Kind == RepeatCount {
				count = v.Repeat.Count
			}
			for i := 0; i < count; i++ {
				if err := f.items(v.Items, inner); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("cannot recognize item %T", it)
		}
	}
	return nil
}

func (f *flattener) bitField(bf BitField, bs *BitSpec) error {
	if bs == nil {
		return fmt.Errorf("bitfield %s without a bitspec", bf)
	}
	chunk := bs.ChunkSize()
	if bf.Width%chunk != 0 {
		return fmt.Errorf("bitfield %s width is not a multiple of %d", bf, chunk)
	}
	codes := make([][]timing, len(bs.Codes))
	for i, code := range bs.Codes {
		for _, d := range code {
			us, err := d.Microseconds(f.proto.GeneralSpec)
			if err != nil {
				return err
			}
			codes[i] = append(codes[i], timing{flash: d.Kind == Flash, us: us})
		}
	}
	target, shift, complement := "", bf.Shift, bf.Complement
	if name, ok := bf.Data.(Name); ok {
		if _, isDef := f.proto.Definition(string(name)); !isDef {
			target = string(name)
		}
	}
	if target == "" {
		target = deferredName(len(f.fields))
		f.fields = append(f.fields, bf)
		shift, complement = 0, false
	}
	n := bf.Width / chunk
	for i := 0; i < n; i++ {
		idx := i
		if f.proto.GeneralSpec.BitDirection == MSB {
			idx = n - 1 - i
		}
		f.steps = append(f.steps, step{kind: stepSymbol, symbol: &symbolStep{
			target:     target,
			complement: complement,
			shift:      shift + idx*chunk,
			chunk:      chunk,
			codes:      codes,
		}})
	}
	return nil
}

type bitUndo struct {
	name        string
	value, mask uint64
}

// bitStore holds partially known parameter values with an undo log.
type bitStore struct {
	values map[string]uint64
	masks  map[string]uint64
	log    []bitUndo
}

func newBitStore() *bitStore {
	return &bitStore{values: map[string]uint64{}, masks: map[string]uint64{}}
}

func (b *bitStore) set(name string, shift, width int, bits uint64) bool {
	if shift >= 64 {
		return true
	}
	mk := mask(width) << uint(shift)
	v := (bits & mask(width)) << uint(shift)
	cur, cm := b.values[name], b.masks[name]
	if (cur^v)&cm&mk != 0 {
		return false
	}
	b.log = append(b.log, bitUndo{name: name, value: cur, mask: cm})
	b.values[name] = cur | v
	b.masks[name] = cm | mk
	return true
}

func (b *bitStore) checkpoint() int { return len(b.log) }

func (b *bitStore) rollback(n int) {
	for i := len(b.log) - 1; i >= n; i-- {
		u := b.log[i]
		b.values[u.name] = u.value
		b.masks[u.name] = u.mask
	}
	b.log = b.log[:n]
}

type cursor struct {
	pos      int
	consumed float64
	elapsed  float64
	started  bool
	marks    []float64
}

type matcher struct {
	proto      *Protocol
	data       []float64
	tol        ircore.Tolerance
	minLeadout float64
	bits       *bitStore
	fields     []BitField
}

func (m *matcher) consume(c cursor, t timing, k func(cursor) bool) bool {
	if t.us <= 0 || (!t.flash && !c.started) {
		return k(c)
	}
	if c.pos >= len(m.data) || ircore.IsFlash(c.pos) != t.flash {
		return false
	}
	rem := m.data[c.pos] - c.consumed
	if m.tol.Equal(rem, t.us) || (!t.flash && rem >= m.minLeadout && t.us >= m.minLeadout) {
		n := c
		n.pos++
		n.consumed = 0
		n.elapsed += rem
		n.started = true
		if k(n) {
			return true
		}
	}
	if rem > t.us {
		n := c
		n.consumed += t.us
		n.elapsed += t.us
		n.started = true
		return k(n)
	}
	return false
}

func (m *matcher) sequence(ts []timing, c cursor, k func(cursor) bool) bool {
	if len(ts) == 0 {
		return k(c)
	}
	return m.consume(c, ts[0], func(n cursor) bool { return m.sequence(ts[1:], n, k) })
}

func (m *matcher) run(steps []step, c cursor, k func(cursor) bool) bool {
	if len(steps) == 0 {
		return c.consumed == 0 && m.deferredOK() && k(c)
	}
	s := steps[0]
	rest := steps[1:]
	switch s.kind {
	case stepMark:
		n := c
		n.marks = append([]float64(nil), c.marks...)
		n.marks[s.slot] = c.elapsed
		return m.run(rest, n, k)
	case stepDuration:
		return m.consume(c, s.timing, func(n cursor) bool { return m.run(rest, n, k) })
	case stepExtent:
		gap := s.timing.us - (c.elapsed - c.marks[s.slot])
		if c.started && gap <= 0 {
			return false
		}
		return m.consume(c, timing{us: gap}, func(n cursor) bool { return m.run(rest, n, k) })
	case stepSymbol:
		sym := s.symbol
		for value, code := range sym.codes {
			bits := uint64(value)
			if sym.complement {
				bits = ^bits
			}
			cp := m.bits.checkpoint()
			if !m.bits.set(sym.target, sym.shift, sym.chunk, bits) {
				continue
			}
			if m.sequence(code, c, func(n cursor) bool { return m.run(rest, n, k) }) {
				return true
			}
			m.bits.rollback(cp)
		}
	}
	return false
}

// env builds the parameter environment known so far, with defaults and definitions.
func (m *matcher) env() (Env, error) {
	env := Env{}
	for name, v := range m.bits.values {
		if !strings.HasPrefix(name, "#") && m.bits.masks[name] != 0 {
			env[name] = int64(v)
		}
	}
	pending := []ParameterSpec{}
	for _, ps := range m.proto.ParameterSpecs {
		if _, ok := env[ps.Name]; !ok && ps.Default != nil {
			pending = append(pending, ps)
		}
	}
	for progress := true; progress && len(pending) > 0; {
		progress = false
		var next []ParameterSpec
		for _, ps := range pending {
			v, err := ps.Default.Eval(env)
			if err != nil {
				next = append(next, ps)
				continue
			}
			env[ps.Name] = v
			progress = true
		}
		pending = next
	}
	return m.proto.DefinitionValues(env)
}

func (m *matcher) deferredOK() bool {
	var env Env
	for i, bf := range m.fields {
		name := deferredName(i)
		got := m.bits.masks[name]
		if got == 0 {
			continue
		}
		if env == nil {
			var err error
			if env, err = m.env(); err != nil {
				return false
			}
		}
		want, err := bf.Value(env)
		if err != nil || want&got != m.bits.values[name] {
			return false
		}
	}
	return true
}

// copyAt matches one copy of steps starting at pos. A non-negative wantEnd requires the
// copy to end exactly there.
func (m *matcher) copyAt(steps []step, slots, pos, wantEnd int) (int, bool) {
	if len(steps) == 0 {
		return pos, false
	}
	end := -1
	start := cursor{pos: pos, marks: make([]float64, slots)}
	ok := m.run(steps, start, func(c cursor) bool {
		if wantEnd >= 0 && c.pos != wantEnd {
			return false
		}
		end = c.pos
		return true
	})
	return end, ok && end > pos
}

// repeated matches one or more copies covering [pos, to).
func (m *matcher) repeated(steps []step, slots, pos, to int) bool {
	for pos < to {
		end, ok := m.copyAt(steps, slots, pos, -1)
		if !ok {
			if end, ok = m.copyAt(steps, slots, pos, to); !ok {
				return false
			}
		}
		pos = end
	}
	return true
}

type flatPart struct {
	steps []step
	slots int
}

func (p *Protocol) flatten() (parts [3]flatPart, fields []BitField, err error) {
	intro, repeat, ending, err := p.Parts()
	if err != nil {
		return parts, nil, err
	}
	f := &flattener{proto: p}
	for i, items := range [][]Item{intro, repeat, ending} {
		if len(items) == 0 {
			continue
		}
		f.steps, f.slots = nil, 0
		if err := f.items(items, p.BitSpec); err != nil {
			return parts, nil, err
		}
		parts[i] = flatPart{steps: f.steps, slots: f.slots}
	}
	return parts, f.fields, nil
}

func (m *matcher) result() (map[string]int64, error) {
	env, err := m.env()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecognized, err)
	}
	if err := m.proto.CheckDomains(env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecognized, err)
	}
	params := make(map[string]int64, len(env))
	for name, v := range env {
		if _, isDef := m.proto.Definition(name); !isDef {
			params[name] = v
		}
	}
	return params, nil
}

// Recognize matches a whole signal and returns the parameters.
func (p *Protocol) Recognize(signal *ircore.IrSignal, rp RecognizeParams) (map[string]int64, error) {
	if !rp.Tolerance.FrequencyEqual(signal.Frequency, p.GeneralSpec.Frequency) {
		return nil, fmt.Errorf("%w: frequency %v", ErrNotRecognized, signal.Frequency)
	}
	if signal.IsEmpty() {
		return nil, fmt.Errorf("%w: empty signal", ErrNotRecognized)
	}
	parts, fields, err := p.flatten()
	if err != nil {
		return nil, err
	}
	if !rp.Strict {
		seq := signal.ToModulatedIrSequence(1)
		rec, err := p.recognizeFrom(seq.Durations(), 0, parts, fields, rp)
		if err != nil {
			return nil, err
		}
		if rec.End != seq.Len() {
			return nil, fmt.Errorf("%w: %d trailing durations", ErrNotRecognized, seq.Len()-rec.End)
		}
		return rec.Params, nil
	}
	intro, repeat, ending := parts[0], parts[1], parts[2]
	if (len(intro.steps) > 0 && signal.Intro.IsEmpty()) ||
		(len(repeat.steps) > 0 && signal.Repeat.IsEmpty()) ||
		(len(ending.steps) > 0 && signal.Ending.IsEmpty()) {
		return nil, fmt.Errorf("%w: missing signal part", ErrNotRecognized)
	}
	m := &matcher{proto: p, tol: rp.Tolerance, minLeadout: rp.MinLeadout, bits: newBitStore(), fields: fields}
	matchPart := func(data []float64, fp flatPart, repeating bool) bool {
		m.data = data
		if len(data) == 0 {
			return len(fp.steps) == 0
		}
		if repeating {
			return m.repeated(fp.steps, fp.slots, 0, len(data))
		}
		_, ok := m.copyAt(fp.steps, fp.slots, 0, len(data))
		return ok
	}
	introOK := false
	if len(intro.steps) > 0 {
		introOK = matchPart(signal.Intro.Durations(), intro, false)
	} else {
		introOK = signal.Intro.IsEmpty() || matchPart(signal.Intro.Durations(), repeat, true)
	}
	if !introOK || !matchPart(signal.Repeat.Durations(), repeat, true) ||
		!matchPart(signal.Ending.Durations(), ending, false) {
		return nil, ErrNotRecognized
	}
	return m.result()
}

// RecognizeSequence matches intro, as many repeats as possible and an optional ending
// starting at begin, which must be even.
func (p *Protocol) RecognizeSequence(seq *ircore.ModulatedIrSequence, begin int, rp RecognizeParams) (*Recognition, error) {
	if begin%2 != 0 || begin < 0 || begin > seq.Len() {
		return nil, fmt.Errorf("%w: begin %d", ircore.ErrInvalidArgument, begin)
	}
	if !rp.Tolerance.FrequencyEqual(seq.Frequency, p.GeneralSpec.Frequency) {
		return nil, fmt.Errorf("%w: frequency %v", ErrNotRecognized, seq.Frequency)
	}
	parts, fields, err := p.flatten()
	if err != nil {
		return nil, err
	}
	return p.recognizeFrom(seq.Durations(), begin, parts, fields, rp)
}

func (p *Protocol) recognizeFrom(data []float64, begin int, parts [3]flatPart, fields []BitField, rp RecognizeParams) (*Recognition, error) {
	m := &matcher{proto: p, data: data, tol: rp.Tolerance, minLeadout: rp.MinLeadout, bits: newBitStore(), fields: fields}
	intro, repeat, ending := parts[0], parts[1], parts[2]
	pos := begin
	if len(intro.steps) > 0 {
		end, ok := m.copyAt(intro.steps, intro.slots, pos, -1)
		if !ok {
			return nil, ErrNotRecognized
		}
		pos = end
	}
	for len(repeat.steps) > 0 && pos < len(data) {
		cp := m.bits.checkpoint()
		end, ok := m.copyAt(repeat.steps, repeat.slots, pos, -1)
		if !ok {
			m.bits.rollback(cp)
			break
		}
		pos = end
	}
	if pos == begin {
		return nil, ErrNotRecognized
	}
	if len(ending.steps) > 0 && pos < len(data) {
		cp := m.bits.checkpoint()
		if end, ok := m.copyAt(ending.steps, ending.slots, pos, -1); ok {
			pos = end
		} else {
			m.bits.rollback(cp)
		}
	}
	params, err := m.result()
	if err != nil {
		return nil, err
	}
	return &Recognition{Params: params, Begin: begin, End: pos}, nil
}
