/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyzer_test.go
Description: Tests for the analyzer: joint cleaning, folding, strategy search and ranking.
*/

package analysis

import (
	"bytes"
	"testing"

	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/strategies"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nec12_34_56 = []int{9024, 4512, 564, 564, 564, 564, 564, 1692, 564, 1692, 564, 564, 564, 564, 564, 564,
	564, 564, 564, 564, 564, 1692, 564, 564, 564, 564, 564, 564, 564, 1692, 564, 564, 564, 564, 564, 564,
	564, 564, 564, 564, 564, 1692, 564, 1692, 564, 1692, 564, 564, 564, 564, 564, 1692, 564, 1692, 564,
	1692, 564, 564, 564, 564, 564, 564, 564, 1692, 564, 1692, 564, 44268}

var necRepeats = []int{9008, 4516, 552, 552, 552, 552, 552, 552, 552, 552, 552, 552, 552, 552, 552, 552,
	552, 1717, 552, 1717, 552, 1717, 552, 1717, 552, 1717, 552, 1717, 552, 1717, 552, 1717, 552, 1717,
	552, 1717, 552, 1717, 552, 1717, 552, 1717, 552, 1717, 552, 552, 552, 552, 552, 552, 552, 552, 552,
	552, 552, 552, 552, 552, 552, 552, 552, 1717, 552, 1717, 552, 1717, 552, 38902,
	9008, 2289, 552, 31080, 9008, 2289, 552, 31080, 9008, 2289, 552, 21080}

func sequence(t *testing.T, durations []int) *ircore.IrSequence {
	t.Helper()
	seq, err := ircore.NewIrSequenceFromInts(durations)
	require.NoError(t, err)
	return seq
}

func necParams() strategies.Params {
	params := strategies.DefaultParams()
	params.ParameterWidths = []int{32}
	return params
}

func TestSearchBestProtocolNec(t *testing.T) {
	a, err := Analyze([]*ircore.IrSequence{sequence(t, nec12_34_56)}, 38400, false, 100, 0.3)
	require.NoError(t, err)
	require.Equal(t, 1, a.NumberOfInputs())

	best, err := a.SearchBestProtocol(necParams(), nil)
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, strategies.Pwm, best[0].Kind)
	assert.Equal(t, "{38.4k,564,msb}<1,-1|1,-3>(16,-8,A:32,1,^108m){A=0x30441ce3}", best[0].Protocol.IrpString(16))

	params := necParams()
	params.Invert = true
	best, err = a.SearchBestProtocol(params, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0xcfbbe31c), best[0].Parameters["A"])
}

func TestSearchAllProtocols(t *testing.T) {
	a, err := Analyze([]*ircore.IrSequence{sequence(t, nec12_34_56)}, 38400, false, 100, 0.3)
	require.NoError(t, err)

	all, err := a.SearchAllProtocols(necParams(), nil)
	require.NoError(t, err)
	require.Len(t, all, 1)

	kinds := map[strategies.Kind]*strategies.Result{}
	for _, r := range all[0] {
		kinds[r.Kind] = r
	}
	assert.Contains(t, kinds, strategies.Trivial)
	assert.Contains(t, kinds, strategies.Pwm)
	assert.Contains(t, kinds, strategies.Pwm2)
	assert.Contains(t, kinds, strategies.Serial)
	assert.NotContains(t, kinds, strategies.Biphase)
	assert.True(t, kinds[strategies.Pwm].Protocol.Equal(kinds[strategies.Pwm2].Protocol))
	for _, r := range all[0] {
		assert.GreaterOrEqual(t, r.Weight(), kinds[strategies.Pwm].Weight(), r.Kind.Name())
	}
}

func TestSearchWithFilter(t *testing.T) {
	a, err := Analyze([]*ircore.IrSequence{sequence(t, nec12_34_56)}, 38400, false, 100, 0.3)
	require.NoError(t, err)

	filter, err := NewFilter("pwm2")
	require.NoError(t, err)
	best, err := a.SearchBestProtocol(necParams(), filter)
	require.NoError(t, err)
	assert.Equal(t, strategies.Pwm2, best[0].Kind)

	filter, err = NewFilter("Biphase.*")
	require.NoError(t, err)
	best, err = a.SearchBestProtocol(necParams(), filter)
	assert.ErrorIs(t, err, ErrNoDecoderMatch)
	require.Len(t, best, 1)
	assert.Nil(t, best[0])
}

func TestFilter(t *testing.T) {
	var none *Filter
	assert.Equal(t, strategies.Kinds(), none.Kinds())

	f, err := NewFilter()
	require.NoError(t, err)
	assert.Len(t, f.Kinds(), len(strategies.Kinds()))

	f, err = NewFilter("biphase.*", "serial")
	require.NoError(t, err)
	assert.Equal(t, []strategies.Kind{
		strategies.Biphase,
		strategies.BiphaseWithTwoDurations,
		strategies.BiphaseWithDoubleToggle,
		strategies.Serial,
	}, f.Kinds())

	f, err = NewFilter("pwm")
	require.NoError(t, err)
	assert.Equal(t, []strategies.Kind{strategies.Pwm}, f.Kinds())

	_, err = NewFilter("(")
	assert.ErrorIs(t, err, ircore.ErrInvalidArgument)
}

func TestRepeatFinderFolding(t *testing.T) {
	a, err := Analyze([]*ircore.IrSequence{sequence(t, necRepeats)}, 38400, true, 100, 0.3)
	require.NoError(t, err)

	rfd := a.RepeatFinderData(0)
	assert.Equal(t, 3, rfd.NumberRepeats)
	assert.Equal(t, 4, rfd.RepeatLength)
	assert.Equal(t, 68, rfd.BeginLength)

	signal, err := a.CleanedSignal(0)
	require.NoError(t, err)
	assert.Equal(t, 68, signal.Intro.Len())
	assert.Equal(t, 4, signal.Repeat.Len())

	best, err := a.SearchBestProtocol(necParams(), nil)
	require.NoError(t, err)
	assert.Contains(t, best[0].Protocol.String(), ")*")
}

func TestJointCleaning(t *testing.T) {
	first := sequence(t, []int{9000, 4500, 560, 560, 560, 1690, 560, 40000})
	second := sequence(t, []int{9040, 4480, 580, 540, 580, 1710, 580, 40100})
	a, err := New([]*ircore.IrSequence{first, second}, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, a.NumberOfInputs())

	s0, s1 := a.Source(0), a.Source(1)
	require.Equal(t, 8, s0.Len())
	require.Equal(t, 8, s1.Len())
	for i := 0; i < s0.Len(); i++ {
		assert.Equal(t, s0.CleanedTime(i), s1.CleanedTime(i), "position %d", i)
	}
	assert.Equal(t, s0.Timings(), s1.Timings())
	assert.Len(t, s0.Timings(), 5)
	assert.Equal(t, s0.Bursts()[0], strategies.Burst{Flash: s0.CleanedTime(2), Gap: s0.CleanedTime(3)})
	assert.Equal(t, s0.CleanedTime(2), s0.Flashes()[0])

	best, err := a.SearchBestProtocol(strategies.DefaultParams(), nil)
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.True(t, best[0].Protocol.Equal(best[1].Protocol))
}

func TestNoCleaning(t *testing.T) {
	opts := DefaultOptions()
	opts.Clean = false
	a, err := New([]*ircore.IrSequence{sequence(t, []int{560, 540, 560, 1690, 561, 40000})}, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{540, 560, 561, 1690, 40000}, a.Source(0).Timings())
}

func TestFromSignal(t *testing.T) {
	intro := sequence(t, []int{9000, 4500, 560, 40000})
	repeat := sequence(t, []int{9000, 2250, 560, 90000})
	signal, err := ircore.NewIrSignal(intro, repeat, nil, 0, 0)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Frequency = 40000
	a, err := FromSignal(signal, opts)
	require.NoError(t, err)
	rfd := a.RepeatFinderData(0)
	assert.Equal(t, 4, rfd.BeginLength)
	assert.Equal(t, 4, rfd.RepeatLength)
	assert.Equal(t, 1, rfd.NumberRepeats)
	assert.Equal(t, float64(40000), a.Source(0).Frequency())
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil, DefaultOptions())
	assert.ErrorIs(t, err, ircore.ErrInvalidArgument)

	opts := DefaultOptions()
	opts.Tolerance.Relative = 2
	_, err = New([]*ircore.IrSequence{sequence(t, nec12_34_56)}, opts)
	assert.ErrorIs(t, err, ircore.ErrInvalidArgument)

	a, err := New([]*ircore.IrSequence{sequence(t, nec12_34_56)}, DefaultOptions())
	require.NoError(t, err)
	params := strategies.DefaultParams()
	params.MaxParameterWidth = 0
	_, err = a.SearchAllProtocols(params, nil)
	assert.ErrorIs(t, err, ircore.ErrInvalidArgument)
}

func TestValidateAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	opts := DefaultOptions()
	opts.Frequency = 38400
	opts.Validate = true
	opts.Parallelism = 2
	opts.Logger = logger
	a, err := New([]*ircore.IrSequence{sequence(t, nec12_34_56)}, opts)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID())

	filter, err := NewFilter("pwm")
	require.NoError(t, err)
	best, err := a.SearchBestProtocol(necParams(), filter)
	require.NoError(t, err)
	assert.Empty(t, best[0].Warnings)
	assert.Contains(t, buf.String(), a.ID())
	assert.Contains(t, buf.String(), "strategy=Pwm")
}
