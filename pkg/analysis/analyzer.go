/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyzer.go
Description: Signal analyzer. Cleans one or several captures jointly, optionally folds each
into intro, repeat and ending, and runs the decoding strategies over every capture in
parallel, ranking the resulting protocols by weight.
*/

package analysis

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kleascm/irscope/pkg/cleaner"
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/repeatfinder"
	"github.com/kleascm/irscope/pkg/strategies"
)

// ErrNoDecoderMatch is returned when no strategy produced a protocol for an input.
var ErrNoDecoderMatch = errors.New("no decoder matched")

// Options controls the preprocessing of an Analyzer.
type Options struct {
	// Frequency of the captures in Hz; zero means unknown.
	Frequency float64
	// Clean quantizes the captures before decoding. Without it only identical durations
	// are treated as equal.
	Clean bool
	// RepeatFinder folds every capture into intro, repeat and ending.
	RepeatFinder bool
	Tolerance    ircore.Tolerance
	MinRepeatGap float64
	// Validate renders every result and records a warning when it does not reproduce
	// the input.
	Validate bool
	// Parallelism bounds the number of concurrent strategy runs; zero uses GOMAXPROCS.
	Parallelism int
	// Logger receives progress and warnings; nil discards them.
	Logger logrus.FieldLogger
}

// DefaultOptions cleans with the default tolerances and does not fold.
func DefaultOptions() Options {
	return Options{
		Clean:        true,
		Tolerance:    ircore.DefaultTolerance(),
		MinRepeatGap: ircore.DefaultMinRepeatGap,
	}
}

type input struct {
	offset int
	length int
	rfd    repeatfinder.Data
}

// Analyzer holds the cleaned captures. It is immutable after construction and safe for
// concurrent searches.
type Analyzer struct {
	opts    Options
	id      string
	logger  logrus.FieldLogger
	cleaned *cleaner.Result
	data    []int
	inputs  []input
	bursts  []strategies.Burst
	flashes []int
	gaps    []int
}

// Analyze is New with the frequently used options spelled out.
func Analyze(seqs []*ircore.IrSequence, frequency float64, repeatFinder bool, absolute, relative float64) (*Analyzer, error) {
	opts := DefaultOptions()
	opts.Frequency = frequency
	opts.RepeatFinder = repeatFinder
	opts.Tolerance.Absolute = absolute
	opts.Tolerance.Relative = relative
	return New(seqs, opts)
}

// New analyzes the captures jointly; every capture becomes one input.
func New(seqs []*ircore.IrSequence, opts Options) (*Analyzer, error) {
	if len(seqs) == 0 {
		return nil, fmt.Errorf("%w: no input sequences", ircore.ErrInvalidArgument)
	}
	a, err := newAnalyzer(seqs, opts)
	if err != nil {
		return nil, err
	}
	for i := range a.inputs {
		in := &a.inputs[i]
		in.rfd = repeatfinder.Data{BeginLength: in.length, NumberRepeats: 1}
		if opts.RepeatFinder {
			seq, err := a.cleaned.Sequence().Subsequence(in.offset, in.length)
			if err != nil {
				return nil, err
			}
			in.rfd = repeatfinder.New(seq, repeatfinder.Params{
				AbsoluteTolerance: opts.Tolerance.Absolute,
				RelativeTolerance: opts.Tolerance.Relative,
				MinRepeatGap:      opts.MinRepeatGap,
			}).Data()
		}
		a.logger.WithFields(logrus.Fields{"run": a.id, "input": i, "decomposition": in.rfd.String()}).Debug("Input prepared")
	}
	return a, nil
}

// FromSignal analyzes a signal whose parts are already known. The signal's frequency is
// used unless opts sets one.
func FromSignal(signal *ircore.IrSignal, opts Options) (*Analyzer, error) {
	if opts.Frequency == 0 {
		opts.Frequency = signal.Frequency
	}
	flat := signal.Intro.Append(signal.Repeat, signal.Ending)
	a, err := newAnalyzer([]*ircore.IrSequence{flat}, opts)
	if err != nil {
		return nil, err
	}
	a.inputs[0].rfd = repeatfinder.FromSignal(signal)
	return a, nil
}

func newAnalyzer(seqs []*ircore.IrSequence, opts Options) (*Analyzer, error) {
	if err := opts.Tolerance.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	a := &Analyzer{opts: opts, id: uuid.New().String(), logger: logger}
	joint := ircore.EmptySequence().Append(seqs...)
	abs, rel := opts.Tolerance.Absolute, opts.Tolerance.Relative
	if !opts.Clean {
		abs, rel = 0, 0
	}
	a.cleaned = cleaner.Clean(joint, abs, rel)
	a.data = make([]int, len(a.cleaned.Indices))
	for i, idx := range a.cleaned.Indices {
		a.data[i] = a.cleaned.Timings[idx]
	}
	offset := 0
	for _, s := range seqs {
		a.inputs = append(a.inputs, input{offset: offset, length: s.Len()})
		offset += s.Len()
	}
	a.statistics()
	a.logger.WithFields(logrus.Fields{
		"run":     a.id,
		"inputs":  len(seqs),
		"timings": len(a.cleaned.Timings),
	}).Debug("Captures cleaned")
	return a, nil
}

// statistics counts the distinct bursts, flashes and gaps, most frequent first.
func (a *Analyzer) statistics() {
	bursts := map[strategies.Burst]int{}
	flashes := map[int]int{}
	gaps := map[int]int{}
	for _, in := range a.inputs {
		for i := in.offset; i+1 < in.offset+in.length; i += 2 {
			bursts[strategies.Burst{Flash: a.data[i], Gap: a.data[i+1]}]++
			flashes[a.data[i]]++
			gaps[a.data[i+1]]++
		}
	}
	for b := range bursts {
		a.bursts = append(a.bursts, b)
	}
	sort.Slice(a.bursts, func(i, j int) bool {
		bi, bj := a.bursts[i], a.bursts[j]
		if bursts[bi] != bursts[bj] {
			return bursts[bi] > bursts[bj]
		}
		return bi.Less(bj)
	})
	a.flashes = byFrequency(flashes)
	a.gaps = byFrequency(gaps)
}

func byFrequency(counts map[int]int) []int {
	out := make([]int, 0, len(counts))
	for v := range counts {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// ID identifies the analyzer in log entries.
func (a *Analyzer) ID() string { return a.id }

// NumberOfInputs returns the number of captures.
func (a *Analyzer) NumberOfInputs() int { return len(a.inputs) }

// Cleaned returns the joint cleaning result.
func (a *Analyzer) Cleaned() *cleaner.Result { return a.cleaned }

// RepeatFinderData returns the decomposition of input i.
func (a *Analyzer) RepeatFinderData(i int) repeatfinder.Data { return a.inputs[i].rfd }

// Source returns the strategy view of input i.
func (a *Analyzer) Source(i int) strategies.Source {
	return &source{a: a, in: a.inputs[i]}
}

// CleanedSignal returns input i cleaned and folded according to its decomposition.
func (a *Analyzer) CleanedSignal(i int) (*ircore.IrSignal, error) {
	in := a.inputs[i]
	seq, err := a.cleaned.Sequence().Subsequence(in.offset, in.length)
	if err != nil {
		return nil, err
	}
	return in.rfd.Chop(&ircore.ModulatedIrSequence{IrSequence: seq, Frequency: a.opts.Frequency})
}

type source struct {
	a  *Analyzer
	in input
}

func (s *source) Len() int                            { return s.in.length }
func (s *source) CleanedTime(i int) int               { return s.a.data[s.in.offset+i] }
func (s *source) Timings() []int                      { return s.a.cleaned.Timings }
func (s *source) Bursts() []strategies.Burst          { return s.a.bursts }
func (s *source) Flashes() []int                      { return s.a.flashes }
func (s *source) Gaps() []int                         { return s.a.gaps }
func (s *source) Frequency() float64                  { return s.a.opts.Frequency }
func (s *source) RepeatFinderData() repeatfinder.Data { return s.in.rfd }

func (s *source) TotalDuration(begin, length int) int {
	total := 0
	for i := begin; i < begin+length; i++ {
		total += s.CleanedTime(i)
	}
	return total
}

// SearchAllProtocols runs every selected strategy on every input and returns the
// successful results per input in strategy order.
func (a *Analyzer) SearchAllProtocols(params strategies.Params, filter *Filter) ([][]*strategies.Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	kinds := filter.Kinds()
	slots := make([][]*strategies.Result, len(a.inputs))
	for i := range slots {
		slots[i] = make([]*strategies.Result, len(kinds))
	}

	limit := a.opts.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range a.inputs {
		for j, kind := range kinds {
			i, j, kind := i, j, kind
			g.Go(func() error {
				slots[i][j] = a.runStrategy(i, kind, params)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([][]*strategies.Result, len(a.inputs))
	for i, row := range slots {
		for _, r := range row {
			if r != nil {
				results[i] = append(results[i], r)
			}
		}
	}
	return results, nil
}

// SearchBestProtocol returns the lowest weight result per input, the earlier strategy
// winning ties. Inputs without any result are nil and reported with ErrNoDecoderMatch.
func (a *Analyzer) SearchBestProtocol(params strategies.Params, filter *Filter) ([]*strategies.Result, error) {
	all, err := a.SearchAllProtocols(params, filter)
	if err != nil {
		return nil, err
	}
	best := make([]*strategies.Result, len(all))
	var missing []int
	for i, results := range all {
		for _, r := range results {
			if best[i] == nil || r.Weight() < best[i].Weight() {
				best[i] = r
			}
		}
		if best[i] == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return best, fmt.Errorf("%w: inputs %v", ErrNoDecoderMatch, missing)
	}
	return best, nil
}

func (a *Analyzer) runStrategy(i int, kind strategies.Kind, params strategies.Params) *strategies.Result {
	fields := logrus.Fields{"run": a.id, "input": i, "strategy": kind.Name()}
	res, err := kind.Parse(a.Source(i), params)
	if err != nil {
		a.logger.WithFields(fields).Debugf("Strategy failed: %v", err)
		return nil
	}
	if a.opts.Validate {
		if msg := a.validate(i, res); msg != "" {
			res.Warnings = append(res.Warnings, msg)
		}
	}
	fields["weight"] = res.Weight()
	for _, w := range res.Warnings {
		a.logger.WithFields(fields).Warn(w)
	}
	a.logger.WithFields(fields).Debugf("Strategy result: %s", res.Protocol)
	return res
}

// validate renders the result and compares it with the cleaned input.
func (a *Analyzer) validate(i int, res *strategies.Result) string {
	rendered, err := res.Protocol.Render(res.Parameters)
	if err != nil {
		return fmt.Sprintf("protocol does not render: %v", err)
	}
	want, err := a.CleanedSignal(i)
	if err != nil {
		return fmt.Sprintf("input cannot be folded: %v", err)
	}
	tol := a.opts.Tolerance
	flatWant := want.ToModulatedIrSequence(1).IrSequence
	flatGot := rendered.ToModulatedIrSequence(1).IrSequence
	if !flatGot.ApproximatelyEquals(flatWant, tol.Absolute, tol.Relative) {
		return "rendered protocol differs from the input"
	}
	return ""
}
