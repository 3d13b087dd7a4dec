/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decoder.go
Description: Signal matcher. Every catalogue protocol is recognized against the capture
in parallel; matches are post-processed by the prefer-over relation and the defaulted
parameter filter.
*/

package decoder

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kleascm/irscope/pkg/catalogue"
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
	"github.com/kleascm/irscope/pkg/repeatfinder"
)

// ErrNoMatch is returned when no protocol matches.
var ErrNoMatch = errors.New("no protocol matched")

// Decode is one successful match.
type Decode struct {
	Protocol   *catalogue.NamedProtocol
	Parameters map[string]int64
	// Begin and End delimit the matched durations.
	Begin int
	End   int
}

// Name returns the protocol name.
func (d Decode) Name() string { return d.Protocol.Name }

func (d Decode) String() string {
	names := make([]string, 0, len(d.Parameters))
	for n := range d.Parameters {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%d", n, d.Parameters[n])
	}
	return d.Protocol.Name + ": {" + strings.Join(parts, ",") + "}"
}

// Result holds the flat decodes, or the tree in recursive mode.
type Result struct {
	Decodes []Decode
	Tree    *DecodeTree
}

// Decoder matches captures against a fixed set of protocols.
type Decoder struct {
	protocols  []*catalogue.NamedProtocol
	params     Parameters
	logger     logrus.FieldLogger
	id         string
	lookupErrs []error
}

// New selects the named protocols of cat, all when names is empty. Protocols marked
// as not decodable are skipped. Unknown names are logged and kept in LookupErrors.
func New(cat *catalogue.Catalogue, params Parameters, names ...string) (*Decoder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	d := &Decoder{params: params, logger: params.Logger, id: uuid.New().String()}
	if d.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.logger = l
	}
	selected, errs := cat.Select(names)
	for _, err := range errs {
		d.logger.WithFields(logrus.Fields{"session": d.id}).Warn(err.Error())
	}
	d.lookupErrs = errs
	for _, np := range selected {
		if np.Decodable {
			d.protocols = append(d.protocols, np)
		}
	}
	return d, nil
}

// DecodeWith matches a catalogue against a signal in one call.
func DecodeWith(signal *ircore.IrSignal, cat *catalogue.Catalogue, params Parameters) (*Result, error) {
	d, err := New(cat, params)
	if err != nil {
		return nil, err
	}
	return d.Decode(signal)
}

// ID identifies the decoder in log fields.
func (d *Decoder) ID() string { return d.id }

// LookupErrors returns the errors for unknown protocol names given to New.
func (d *Decoder) LookupErrors() []error { return d.lookupErrs }

// Protocols returns the protocols the decoder tries, in catalogue order.
func (d *Decoder) Protocols() []*catalogue.NamedProtocol {
	return append([]*catalogue.NamedProtocol(nil), d.protocols...)
}

// Decode matches a signal. In recursive mode the flattened signal is decoded as a tree.
func (d *Decoder) Decode(signal *ircore.IrSignal) (*Result, error) {
	if d.params.Recursive {
		tree, err := d.DecodeTree(signal.ToModulatedIrSequence(1))
		if err != nil {
			return nil, err
		}
		return &Result{Tree: tree}, nil
	}
	decodes, err := d.DecodeSignal(signal)
	return &Result{Decodes: decodes}, err
}

// DecodeSignal returns the protocols matching the whole signal, in catalogue order.
func (d *Decoder) DecodeSignal(signal *ircore.IrSignal) ([]Decode, error) {
	n := signal.ToModulatedIrSequence(1).Len()
	decodes, err := d.each(func(np *catalogue.NamedProtocol) (*Decode, error) {
		params, err := np.Protocol.Recognize(signal, d.params.recognizeParams(np))
		if err != nil {
			return nil, err
		}
		return &Decode{Protocol: np, Parameters: params, End: n}, nil
	})
	if err != nil {
		return nil, err
	}
	decodes = d.postProcess(decodes)
	if len(decodes) == 0 {
		return nil, ErrNoMatch
	}
	return decodes, nil
}

// DecodeSequence matches a bare capture. In strict mode the capture is first folded
// into intro, repeat and ending.
func (d *Decoder) DecodeSequence(seq *ircore.ModulatedIrSequence) (*Result, error) {
	if d.params.Recursive {
		tree, err := d.DecodeTree(seq)
		if err != nil {
			return nil, err
		}
		return &Result{Tree: tree}, nil
	}
	signal := ircore.SignalFromSequence(seq)
	if d.params.Strict {
		folded, err := repeatfinder.ChopSequence(seq, repeatfinder.Params{
			AbsoluteTolerance: d.params.AbsoluteTolerance,
			RelativeTolerance: d.params.RelativeTolerance,
			MinRepeatGap:      d.params.MinRepeatGap,
		})
		if err != nil {
			return nil, err
		}
		signal = folded
	}
	decodes, err := d.DecodeSignal(signal)
	return &Result{Decodes: decodes}, err
}

// each runs match for every protocol concurrently and returns the matches in
// catalogue order. Recognition failures only drop the protocol.
func (d *Decoder) each(match func(np *catalogue.NamedProtocol) (*Decode, error)) ([]Decode, error) {
	slots := make([]*Decode, len(d.protocols))
	limit := d.params.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, np := range d.protocols {
		i, np := i, np
		g.Go(func() error {
			dec, err := match(np)
			if err != nil {
				if errors.Is(err, ircore.ErrInvalidArgument) {
					return err
				}
				d.logger.WithFields(logrus.Fields{"session": d.id, "protocol": np.Name}).Debugf("Protocol did not decode: %v", err)
				return nil
			}
			slots[i] = dec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []Decode
	for _, dec := range slots {
		if dec != nil {
			out = append(out, *dec)
		}
	}
	return out, nil
}

func (d *Decoder) postProcess(decodes []Decode) []Decode {
	if !d.params.NoPreferOver {
		decodes = applyPreferOver(decodes)
	}
	if d.params.RemoveDefaultedParameters {
		for i := range decodes {
			decodes[i].Parameters = removeDefaulted(decodes[i].Protocol.Protocol, decodes[i].Parameters)
		}
	}
	for _, dec := range decodes {
		d.logger.WithFields(logrus.Fields{"session": d.id, "protocol": dec.Name()}).Debug(dec.String())
	}
	return decodes
}

// applyPreferOver drops every decode that another decode prefers over. The relation is
// evaluated on the full parameter sets before any are removed.
func applyPreferOver(decodes []Decode) []Decode {
	drop := map[string]bool{}
	for _, dec := range decodes {
		for _, po := range dec.Protocol.PreferOver {
			if po.Applies(dec.Parameters) {
				drop[strings.ToLower(po.Protocol)] = true
			}
		}
	}
	out := decodes[:0:0]
	for _, dec := range decodes {
		if !drop[strings.ToLower(dec.Name())] {
			out = append(out, dec)
		}
	}
	return out
}

// removeDefaulted drops parameters equal to their default evaluated over the decode.
func removeDefaulted(proto *irp.Protocol, params map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(params))
	for k, v := range params {
		out[k] = v
	}
	env := irp.Env(params)
	for _, ps := range proto.ParameterSpecs {
		if ps.Default == nil {
			continue
		}
		v, ok := params[ps.Name]
		if !ok {
			continue
		}
		if def, err := ps.Default.Eval(env); err == nil && def == v {
			delete(out, ps.Name)
		}
	}
	return out
}
