/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cleaner.go
Description: Quantizes a noisy capture into a small set of canonical durations. Values are
clustered after sorting; a value joins the current cluster when it is within tolerance of
the cluster's first member. Cluster representatives are weighted means, and clusters whose
representatives end up within tolerance of each other are merged until none are.
*/

package cleaner

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kleascm/irscope/pkg/ircore"
)

// Result is the outcome of a cleaning pass.
type Result struct {
	// Timings holds the cluster representatives in ascending order.
	Timings []int
	// Histogram holds the number of durations in each cluster.
	Histogram []int
	// Indices maps every duration of the input to its cluster.
	Indices []int

	cleaned []float64
}

type cluster struct {
	members map[int]int
	first   int
	rep     int
}

func (c *cluster) add(value, count int) {
	c.members[value] += count
}

func (c *cluster) update() {
	sum, n := 0.0, 0
	for v, cnt := range c.members {
		sum += float64(v) * float64(cnt)
		n += cnt
	}
	c.rep = int(math.Round(sum / float64(n)))
	if c.rep < 1 {
		c.rep = 1
	}
}

func (c *cluster) count() int {
	n := 0
	for _, cnt := range c.members {
		n += cnt
	}
	return n
}

// Clean clusters the durations of seq. It never fails; with wide enough tolerances all
// durations collapse into one cluster.
func Clean(seq *ircore.IrSequence, absolute, relative float64) *Result {
	return clean(seq.Durations(), absolute, relative)
}

// CleanSequence is Clean returning only the cleaned sequence.
func CleanSequence(seq *ircore.IrSequence, absolute, relative float64) *ircore.IrSequence {
	return Clean(seq, absolute, relative).Sequence()
}

// CleanSignal cleans intro, repeat and ending jointly so that the parts share timings.
func CleanSignal(signal *ircore.IrSignal, absolute, relative float64) (*ircore.IrSignal, error) {
	flat := signal.Intro.Append(signal.Repeat, signal.Ending)
	all := Clean(flat, absolute, relative).cleaned
	nIntro, nRepeat := signal.Intro.Len(), signal.Repeat.Len()
	intro, err := ircore.NewIrSequence(all[:nIntro])
	if err != nil {
		return nil, err
	}
	repeat, err := ircore.NewIrSequence(all[nIntro : nIntro+nRepeat])
	if err != nil {
		return nil, err
	}
	ending, err := ircore.NewIrSequence(all[nIntro+nRepeat:])
	if err != nil {
		return nil, err
	}
	return ircore.NewIrSignal(intro, repeat, ending, signal.Frequency, signal.DutyCycle)
}

func clean(data []float64, absolute, relative float64) *Result {
	rounded := make([]int, len(data))
	histogram := make(map[int]int)
	for i, d := range data {
		rounded[i] = int(math.Round(math.Abs(d)))
		histogram[rounded[i]]++
	}
	distinct := make([]int, 0, len(histogram))
	for v := range histogram {
		distinct = append(distinct, v)
	}
	sort.Ints(distinct)

	var clusters []*cluster
	for _, v := range distinct {
		if len(clusters) == 0 || !ircore.ApproximatelyEquals(float64(v), float64(clusters[len(clusters)-1].first), absolute, relative) {
			clusters = append(clusters, &cluster{members: make(map[int]int), first: v})
		}
		clusters[len(clusters)-1].add(v, histogram[v])
	}
	for _, c := range clusters {
		c.update()
	}
	clusters = mergeClose(clusters, absolute, relative)

	res := &Result{
		Timings:   make([]int, len(clusters)),
		Histogram: make([]int, len(clusters)),
		Indices:   make([]int, len(data)),
		cleaned:   make([]float64, len(data)),
	}
	lookup := make(map[int]int, len(distinct))
	for i, c := range clusters {
		res.Timings[i] = c.rep
		res.Histogram[i] = c.count()
		for v := range c.members {
			lookup[v] = i
		}
	}
	for i, v := range rounded {
		idx := lookup[v]
		res.Indices[i] = idx
		res.cleaned[i] = float64(res.Timings[idx])
	}
	return res
}

// mergeClose merges neighbouring clusters until no two representatives are within
// tolerance, which makes cleaning idempotent.
func mergeClose(clusters []*cluster, absolute, relative float64) []*cluster {
	for i := 0; i+1 < len(clusters); {
		a, b := clusters[i], clusters[i+1]
		if !ircore.ApproximatelyEquals(float64(a.rep), float64(b.rep), absolute, relative) {
			i++
			continue
		}
		for v, cnt := range b.members {
			a.add(v, cnt)
		}
		a.update()
		clusters = append(clusters[:i+1], clusters[i+2:]...)
		if i > 0 {
			i--
		}
	}
	return clusters
}

// Sequence returns the cleaned sequence.
func (r *Result) Sequence() *ircore.IrSequence {
	seq, err := ircore.NewIrSequence(r.cleaned)
	if err != nil {
		return ircore.EmptySequence()
	}
	return seq
}

// Durations returns a copy of the cleaned durations.
func (r *Result) Durations() []float64 {
	out := make([]float64, len(r.cleaned))
	copy(out, r.cleaned)
	return out
}

// Timing returns the representative of cluster i.
func (r *Result) Timing(i int) int {
	return r.Timings[i]
}

// IndexOf returns the cluster index of a representative value, or -1.
func (r *Result) IndexOf(timing int) int {
	for i, t := range r.Timings {
		if t == timing {
			return i
		}
	}
	return -1
}

// IndexString renders the cluster names of the input, flash/gap pairs separated by spaces.
func (r *Result) IndexString() string {
	var b strings.Builder
	for i, idx := range r.Indices {
		if i > 0 && i%2 == 0 {
			b.WriteByte(' ')
		}
		b.WriteString(Name(idx))
	}
	return b.String()
}

// String lists the clusters with their names, representatives and counts.
func (r *Result) String() string {
	var b strings.Builder
	for i, t := range r.Timings {
		fmt.Fprintf(&b, "%s:\t%d\t%d\n", Name(i), t, r.Histogram[i])
	}
	return b.String()
}

// Name numbers clusters like spreadsheet columns with A as zero: 0 -> A, 25 -> Z, 26 -> BA.
func Name(n int) string {
	if n < 0 {
		return ""
	}
	letter := string(rune('A' + n%26))
	if n < 26 {
		return letter
	}
	return Name(n/26) + letter
}
