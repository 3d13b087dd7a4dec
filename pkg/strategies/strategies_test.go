/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: strategies_test.go
Description: Tests for the decoding strategies on recorded captures of common protocols.
*/

package strategies_test

import (
	"math/bits"
	"testing"

	"github.com/kleascm/irscope/pkg/analysis"
	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
	"github.com/kleascm/irscope/pkg/strategies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nec12_34_56 = []int{9024, 4512, 564, 564, 564, 564, 564, 1692, 564, 1692, 564, 564, 564, 564, 564, 564,
	564, 564, 564, 564, 564, 1692, 564, 564, 564, 564, 564, 564, 564, 1692, 564, 564, 564, 564, 564, 564,
	564, 564, 564, 564, 564, 1692, 564, 1692, 564, 1692, 564, 564, 564, 564, 564, 1692, 564, 1692, 564,
	1692, 564, 564, 564, 564, 564, 564, 564, 1692, 564, 1692, 564, 44268}

var rc5Like = []int{889, 889, 889, 889, 1778, 1778, 889, 889, 1778, 889, 889, 889, 889, 889, 889, 889,
	889, 889, 889, 1778, 889, 889, 889, 89997}

var rc6_255_0_0 = []int{2664, 888, 444, 888, 444, 444, 444, 444, 444, 888, 1332, 444, 444, 444, 444, 444,
	444, 444, 444, 444, 444, 444, 444, 444, 444, 888, 444, 444, 444, 444, 444, 444, 444, 444, 444, 444,
	444, 444, 444, 444, 444, 83912}

var rc6_255_0_1 = []int{2664, 888, 444, 888, 444, 444, 444, 444, 1332, 888, 444, 444, 444, 444, 444, 444,
	444, 444, 444, 444, 444, 444, 444, 444, 444, 888, 444, 444, 444, 444, 444, 444, 444, 444, 444, 444,
	444, 444, 444, 444, 444, 83912}

var pctv12_34 = []int{1664, 6656, 832, 1664, 1664, 4160, 832, 2496, 832, 1664, 1664, 100000}

func source(t *testing.T, durations []int, frequency, absolute, relative float64) strategies.Source {
	t.Helper()
	seq, err := ircore.NewIrSequenceFromInts(durations)
	require.NoError(t, err)
	a, err := analysis.Analyze([]*ircore.IrSequence{seq}, frequency, false, absolute, relative)
	require.NoError(t, err)
	return a.Source(0)
}

func necSource(t *testing.T) strategies.Source {
	return source(t, nec12_34_56, 38400, 100, 0.3)
}

func TestPwmNec(t *testing.T) {
	params := strategies.DefaultParams()
	params.ParameterWidths = []int{32}

	for _, kind := range []strategies.Kind{strategies.Pwm, strategies.Pwm2} {
		res, err := kind.Parse(necSource(t), params)
		require.NoError(t, err, kind.Name())
		assert.Equal(t, "{38.4k,564,msb}<1,-1|1,-3>(16,-8,A:32,1,^108m){A=0x30441ce3}", res.Protocol.IrpString(16), kind.Name())
		assert.Equal(t, int64(0x30441ce3), res.Parameters["A"])
		assert.Empty(t, res.Warnings)
		assert.Equal(t, kind, res.Kind)
	}
}

func TestPwmNecInverted(t *testing.T) {
	params := strategies.DefaultParams()
	params.ParameterWidths = []int{32}
	params.Invert = true

	res, err := strategies.Pwm.Parse(necSource(t), params)
	require.NoError(t, err)
	assert.Equal(t, "{38.4k,564,msb}<1,-3|1,-1>(16,-8,A:32,1,^108m){A=0xcfbbe31c}", res.Protocol.IrpString(16))
	assert.Equal(t, int64(0xcfbbe31c), res.Parameters["A"])
}

func TestPwmNecLsb(t *testing.T) {
	params := strategies.DefaultParams()
	params.ParameterWidths = []int{32}
	params.BitDirection = irp.LSB

	res, err := strategies.Pwm.Parse(necSource(t), params)
	require.NoError(t, err)
	assert.Equal(t, int64(bits.Reverse32(0x30441ce3)), res.Parameters["A"])
}

func TestMissingWidthWarning(t *testing.T) {
	params := strategies.DefaultParams()
	res, err := strategies.Pwm.Parse(necSource(t), params)
	require.NoError(t, err)
	assert.Equal(t, []string{"no width given for parameter A, using 32 bits"}, res.Warnings)
	assert.Equal(t, int64(0x30441ce3), res.Parameters["A"])

	params.MaxParameterWidth = 16
	res, err = strategies.Pwm.Parse(necSource(t), params)
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, int64(0x3044), res.Parameters["A"])
	assert.Equal(t, int64(0x1ce3), res.Parameters["B"])
}

func TestParameterSpecs(t *testing.T) {
	params := strategies.DefaultParams()
	params.ParameterWidths = []int{32}
	params.ParameterSpecs = true

	res, err := strategies.Pwm.Parse(necSource(t), params)
	require.NoError(t, err)
	assert.Equal(t, "{38.4k,564,msb}<1,-1|1,-3>(16,-8,A:32,1,^108m)[A:0..4294967295]", res.Protocol.String())
	assert.Equal(t, int64(0x30441ce3), res.Parameters["A"])

	signal, err := res.Protocol.Render(res.Parameters)
	require.NoError(t, err)
	assert.Equal(t, 68, signal.Intro.Len())
}

func TestTrivial(t *testing.T) {
	src := source(t, []int{9000, 4500, 560, 560, 560, 1690, 560, 40000}, 38400, 100, 0.3)
	res, err := strategies.Trivial.Parse(src, strategies.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "{38.4k,560,msb}(16,-8,1,-1,1,-3,1,^57m)", res.Protocol.String())
	assert.Empty(t, res.Parameters)
}

func TestPwm4NeedsFourGaps(t *testing.T) {
	src := source(t, []int{9000, 4500, 560, 560, 560, 40000}, 38400, 100, 0.3)
	_, err := strategies.Pwm4.Parse(src, strategies.DefaultParams())
	assert.ErrorIs(t, err, strategies.ErrDecodeFailure)
}

func TestBiphase(t *testing.T) {
	params := strategies.DefaultParams()
	params.Frequency = 36000
	params.ParameterWidths = []int{1, 1, 1, 5}

	res, err := strategies.Biphase.Parse(source(t, rc5Like, 36000, 100, 0.3), params)
	require.NoError(t, err)
	assert.Equal(t, "{36k,889,msb}<1,-1|-1,1>(A:1,B:1,C:1,D:5,E:6,^114m){A=1,B=1,C=1,D=12,E=3}", res.Protocol.String())
	want, err := irp.Parse("{36k,msb,889}<1,-1|-1,1>(A:1,B:1,C:1,D:5,E:6,^114m){A=1,B=1,C=1,D=12,E=3}")
	require.NoError(t, err)
	assert.True(t, want.Equal(res.Protocol), res.Protocol.String())
	assert.Equal(t, []string{"no width given for parameter E, using 6 bits"}, res.Warnings)
}

func TestBiphaseRejectsPwm(t *testing.T) {
	_, err := strategies.Biphase.Parse(necSource(t), strategies.DefaultParams())
	assert.ErrorIs(t, err, strategies.ErrDecodeFailure)
}

func TestBiphaseWithDoubleToggle(t *testing.T) {
	params := strategies.DefaultParams()
	params.Frequency = 36000
	params.Invert = true
	params.ParameterWidths = []int{1, 3, 1, 8, 8, 8, 8, 8}

	cases := []struct {
		data []int
		want string
	}{
		{rc6_255_0_0, "{36k,444,msb}<-1,1|1,-1>(6,-2,A:1,B:3,<-2,2|2,-2>(C:1),D:8,E:8,^107m){A=1,B=0,C=0,D=255,E=0}"},
		{rc6_255_0_1, "{36k,444,msb}<-1,1|1,-1>(6,-2,A:1,B:3,<-2,2|2,-2>(C:1),D:8,E:8,^107m){A=1,B=0,C=1,D=255,E=0}"},
	}
	for _, c := range cases {
		res, err := strategies.BiphaseWithDoubleToggle.Parse(source(t, c.data, ircore.DefaultFrequency, 100, 0.1), params)
		require.NoError(t, err)
		assert.Equal(t, c.want, res.Protocol.String())
		assert.Empty(t, res.Warnings)
	}
}

func TestBiphaseWithTwoDurations(t *testing.T) {
	intro := []int{1920, 480, 480, 480, 480, 960, 480, 480, 960, 480, 480, 480, 480, 480, 480, 960, 960, 480,
		480, 480, 480, 960, 480, 480, 480, 480, 480, 480, 960, 48480}
	repeat := []int{1920, 480, 480, 480, 480, 960, 480, 480, 960, 960, 960, 480, 480, 960, 960, 480, 480, 480,
		480, 960, 960, 480, 480, 480, 480, 960, 480, 48000}
	ending := []int{1920, 480, 480, 480, 480, 960, 480, 480, 960, 480, 480, 960, 960, 960, 960, 480, 480, 480,
		480, 960, 960, 480, 480, 480, 480, 960, 480, 48000}
	seqs := make([]*ircore.IrSequence, 3)
	for i, d := range [][]int{intro, repeat, ending} {
		s, err := ircore.NewIrSequenceFromInts(d)
		require.NoError(t, err)
		seqs[i] = s
	}
	signal, err := ircore.NewIrSignal(seqs[0], seqs[1], seqs[2], 38600, 0)
	require.NoError(t, err)
	a, err := analysis.FromSignal(signal, analysis.DefaultOptions())
	require.NoError(t, err)

	params := strategies.DefaultParams()
	params.Frequency = 38600
	params.BitDirection = irp.LSB
	params.ParameterWidths = []int{5, 2, 6, 4, 5, 2, 6, 4, 5, 2, 6, 4}

	res, err := strategies.BiphaseWithTwoDurations.Parse(a.Source(0), params)
	require.NoError(t, err)
	assert.Equal(t, "{38.6k,480,lsb}<1,-1|-1,1>(4,-1,A:5,B:2,C:6,D:4,^66m,(4,-1,E:5,F:2,G:6,H:4,^67m)*,(4,-1,I:5,J:2,K:6,L:4,^67m))"+
		"{A=12,B=0,C=34,D=7,E=12,F=1,G=34,H=8,I=12,J=2,K=34,L=8}", res.Protocol.String())
}

func TestSerial(t *testing.T) {
	params := strategies.DefaultParams()
	params.BitDirection = irp.LSB
	params.UseExtents = false
	params.ParameterWidths = []int{2, 8, 1, 8, 8}

	res, err := strategies.Serial.Parse(source(t, pctv12_34, 38400, 100, 0.3), params)
	require.NoError(t, err)
	assert.Equal(t, "{38.4k,832,lsb}<-1|1>(A:2,B:8,C:1,D:8,E:8,F:2,-100m){A=3,B=0,C=1,D=12,E=34,F=3}", res.Protocol.String())
	assert.Equal(t, []string{"no width given for parameter F, using 2 bits"}, res.Warnings)
}

func TestWeightRanksPwmBelowTrivial(t *testing.T) {
	params := strategies.DefaultParams()
	params.ParameterWidths = []int{32}
	pwm, err := strategies.Pwm.Parse(necSource(t), params)
	require.NoError(t, err)
	trivial, err := strategies.Trivial.Parse(necSource(t), params)
	require.NoError(t, err)
	serial, err := strategies.Serial.Parse(necSource(t), params)
	require.NoError(t, err)
	assert.Less(t, pwm.Weight(), serial.Weight())
	assert.Less(t, serial.Weight(), trivial.Weight())
}

func TestParamsValidate(t *testing.T) {
	bad := []func(p *strategies.Params){
		func(p *strategies.Params) { p.ParameterWidths = []int{0} },
		func(p *strategies.Params) { p.ParameterWidths = []int{65} },
		func(p *strategies.Params) { p.MaxParameterWidth = 0 },
		func(p *strategies.Params) { p.TimeBase = "fast" },
		func(p *strategies.Params) { p.Frequency = -1 },
		func(p *strategies.Params) { p.MaxRoundingError = 0.7 },
	}
	for i, mutate := range bad {
		p := strategies.DefaultParams()
		mutate(&p)
		assert.ErrorIs(t, p.Validate(), ircore.ErrInvalidArgument, "case %d", i)
		_, err := strategies.Pwm.Parse(necSource(t), p)
		assert.ErrorIs(t, err, ircore.ErrInvalidArgument, "case %d", i)
	}
	p := strategies.DefaultParams()
	p.TimeBase = "21.66p"
	assert.NoError(t, p.Validate())
}

func TestExplicitTimeBase(t *testing.T) {
	params := strategies.DefaultParams()
	params.ParameterWidths = []int{32}
	params.TimeBase = "282u"
	res, err := strategies.Pwm.Parse(necSource(t), params)
	require.NoError(t, err)
	// 32 units is not below MaxUnits, so the lead-in flash falls back to microseconds.
	assert.Equal(t, "{38.4k,282,msb}<2,-2|2,-6>(9024u,-16,A:32,2,^108m){A=0x30441ce3}", res.Protocol.IrpString(16))

	params.MaxUnits = 40
	res, err = strategies.Pwm.Parse(necSource(t), params)
	require.NoError(t, err)
	assert.Equal(t, "{38.4k,282,msb}<2,-2|2,-6>(32,-16,A:32,2,^108m){A=0x30441ce3}", res.Protocol.IrpString(16))
}

func TestKinds(t *testing.T) {
	kinds := strategies.Kinds()
	require.Len(t, kinds, 8)
	assert.Equal(t, strategies.Trivial, kinds[0])
	assert.Equal(t, strategies.Serial, kinds[7])
	for _, k := range kinds {
		parsed, err := strategies.ParseKind(k.Name())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.NotEmpty(t, k.Description())
	}
	k, err := strategies.ParseKind("biphasewithdoubletoggle")
	require.NoError(t, err)
	assert.Equal(t, strategies.BiphaseWithDoubleToggle, k)
	_, err = strategies.ParseKind("Rc5")
	assert.ErrorIs(t, err, ircore.ErrInvalidArgument)
}

func TestEmptySource(t *testing.T) {
	a, err := analysis.New([]*ircore.IrSequence{ircore.EmptySequence()}, analysis.DefaultOptions())
	require.NoError(t, err)
	for _, k := range strategies.Kinds() {
		_, err := k.Parse(a.Source(0), strategies.DefaultParams())
		assert.ErrorIs(t, err, strategies.ErrDecodeFailure, k.Name())
	}
}
