/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: render.go
Description: Renders a protocol with concrete parameter values into an IrSignal.
*/

package irp

import (
	"fmt"

	"github.com/kleascm/irscope/pkg/ircore"
)

// ApplyDefaults fills in declared defaults for missing parameters and checks domains.
func (p *Protocol) ApplyDefaults(params map[string]int64) (Env, error) {
	env := Env(params).Clone()
	pending := make([]ParameterSpec, 0, len(p.ParameterSpecs))
	for _, ps := range p.ParameterSpecs {
		if _, ok := env[ps.Name]; !ok {
			if ps.Default == nil {
				return nil, &NameUnassignedError{Name: ps.Name}
			}
			pending = append(pending, ps)
		}
	}
	for len(pending) > 0 {
		var next []ParameterSpec
		var lastErr error
		for _, ps := range pending {
			v, err := ps.Default.Eval(env)
			if err != nil {
				next = append(next, ps)
				lastErr = err
				continue
			}
			env[ps.Name] = v
		}
		if len(next) == len(pending) {
			return nil, lastErr
		}
		pending = next
	}
	if err := p.CheckDomains(env); err != nil {
		return nil, err
	}
	return env, nil
}

// CheckDomains verifies that every declared parameter present in env is within range.
func (p *Protocol) CheckDomains(env Env) error {
	for _, ps := range p.ParameterSpecs {
		v, ok := env[ps.Name]
		if !ok {
			continue
		}
		if v < ps.Min || v > ps.Max {
			return fmt.Errorf("%w: %s=%d not in %d..%d", ErrDomain, ps.Name, v, ps.Min, ps.Max)
		}
	}
	return nil
}

// Render evaluates the protocol for the given parameters.
func (p *Protocol) Render(params map[string]int64) (*ircore.IrSignal, error) {
	env, err := p.ApplyDefaults(params)
	if err != nil {
		return nil, err
	}
	if env, err = p.DefinitionValues(env); err != nil {
		return nil, err
	}
	intro, repeat, ending, err := p.Parts()
	if err != nil {
		return nil, err
	}
	seqs := make([]*ircore.IrSequence, 3)
	for i, part := range [][]Item{intro, repeat, ending} {
		r := &renderer{gs: p.GeneralSpec, env: env}
		if err := r.items(part, p.BitSpec); err != nil {
			return nil, err
		}
		if len(r.out)%2 != 0 {
			return nil, fmt.Errorf("rendered sequence ends with a flash")
		}
		if seqs[i], err = ircore.NewIrSequence(r.out); err != nil {
			return nil, err
		}
	}
	return ircore.NewIrSignal(seqs[0], seqs[1], seqs[2], p.GeneralSpec.Frequency, p.GeneralSpec.DutyCycle)
}

type renderer struct {
	gs    GeneralSpec
	env   Env
	out   []float64
	total float64
}

func (r *renderer) emit(flash bool, us float64) {
	if us <= 0 {
		return
	}
	n := len(r.out)
	if n == 0 && !flash {
		return
	}
	if n > 0 && ircore.IsFlash(n-1) == flash {
		r.out[n-1] += us
	} else {
		r.out = append(r.out, us)
	}
	r.total += us
}

func (r *renderer) items(items []Item, bs *BitSpec) error {
	mark := r.total
	for _, it := range items {
		switch v := it.(type) {
		case Duration:
			us, err := v.Microseconds(r.gs)
			if err != nil {
				return err
			}
			switch v.Kind {
			case Flash:
				r.emit(true, us)
			case Gap:
				r.emit(false, us)
			case Extent:
				gap := us - (r.total - mark)
				if gap <= 0 {
					return fmt.Errorf("extent %vus shorter than the elapsed %vus", us, r.total-mark)
				}
				r.emit(false, gap)
				mark = r.total
			}
		case BitField:
			if err := r.bitField(v, bs); err != nil {
				return err
			}
		case Assignment:
			val, err := v.Value.Eval(r.env)
			if err != nil {
				return err
			}
			r.env[v.Name] = val
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
				if err := r.items(v.Items, inner); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("cannot render item %T", it)
		}
	}
	return nil
}

func (r *renderer) bitField(bf BitField, bs *BitSpec) error {
	if bs == nil {
		return fmt.Errorf("bitfield %s without a bitspec", bf)
	}
	value, err := bf.Value(r.env)
	if err != nil {
		return err
	}
	chunk := bs.ChunkSize()
	if bf.Width%chunk != 0 {
		return fmt.Errorf("bitfield %s width is not a multiple of %d", bf, chunk)
	}
	n := bf.Width / chunk
	for i := 0; i < n; i++ {
		idx := i
		if r.gs.BitDirection == MSB {
			idx = n - 1 - i
		}
		symbol := (value >> uint(idx*chunk)) & mask(chunk)
		for _, d := range bs.Codes[symbol] {
			us, err := d.Microseconds(r.gs)
			if err != nil {
				return err
			}
			r.emit(d.Kind == Flash, us)
		}
	}
	return nil
}
