/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: catalogue_test.go
Description: Tests for catalogue loading, lookup and the prefer-over relation.
*/

package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/kleascm/irscope/pkg/irp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogue(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, []string{"NEC1", "NEC1-f16", "NEC2", "NECx1", "RC5", "RC6", "Sony12", "Sony15", "Sony20", "JVC", "Panasonic"}, c.Names())

	nec, err := c.Get("nec1")
	require.NoError(t, err)
	assert.Equal(t, "NEC1", nec.Name)
	assert.True(t, nec.Decodable)
	require.Len(t, nec.PreferOver, 1)
	assert.Equal(t, "NEC1-f16", nec.PreferOver[0].Protocol)
	assert.Nil(t, nec.PreferOver[0].Predicate)
	assert.Equal(t, float64(38400), nec.Protocol.GeneralSpec.Frequency)

	rc6, err := c.Get("RC6")
	require.NoError(t, err)
	require.NotNil(t, rc6.Tolerances.Relative)
	assert.Equal(t, 0.2, *rc6.Tolerances.Relative)
	assert.Nil(t, rc6.Tolerances.Absolute)

	_, err = c.Get("RC7")
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestDefaultProtocolsRender(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	for _, np := range c.Protocols() {
		params := map[string]int64{}
		for _, ps := range np.Protocol.ParameterSpecs {
			if ps.Default == nil {
				params[ps.Name] = ps.Min + (ps.Max-ps.Min)/3
			}
		}
		signal, err := np.Protocol.Render(params)
		require.NoError(t, err, np.Name)
		assert.False(t, signal.IsEmpty(), np.Name)
	}
}

func TestSelect(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	selected, errs := c.Select([]string{"rc5", "Bogus", "NEC2"})
	require.Len(t, selected, 2)
	assert.Equal(t, "NEC2", selected[0].Name)
	assert.Equal(t, "RC5", selected[1].Name)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrUnknownProtocol)
	assert.Contains(t, errs[0].Error(), "Bogus")

	all, errs := c.Select(nil)
	assert.Empty(t, errs)
	assert.Len(t, all, c.Len())
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
protocols:
  - name: Test
    irp: "{38k,500}<1,-1|1,-2>(4,-4,F:8,1,-30m)*[F:0..255]"
    prefer-over: ["F<16;Other", "Third"]
    absolute-tolerance: 50
    minimum-leadout: 15000
    decodable: false
`))
	require.NoError(t, err)
	np, err := c.Get("test")
	require.NoError(t, err)
	assert.False(t, np.Decodable)
	require.Len(t, np.PreferOver, 2)
	assert.Equal(t, "Other", np.PreferOver[0].Protocol)
	assert.NotNil(t, np.PreferOver[0].Predicate)
	assert.Equal(t, "Third", np.PreferOver[1].String())

	rp := np.Tolerances.Apply(irp.DefaultRecognizeParams())
	assert.Equal(t, 50.0, rp.Tolerance.Absolute)
	assert.Equal(t, ircore.DefaultRelativeTolerance, rp.Tolerance.Relative)
	assert.Equal(t, 15000.0, rp.MinLeadout)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"yaml":      "protocols: [",
		"irp":       "protocols:\n  - name: X\n    irp: \"{38k<1|\"\n",
		"name":      "protocols:\n  - irp: \"{38k,500}<1,-1|1,-2>(F:8)[F:0..255]\"\n",
		"duplicate": "protocols:\n  - name: X\n    irp: \"{38k,500}<1,-1|1,-2>(F:8,-20m)[F:0..255]\"\n  - name: x\n    irp: \"{38k,500}<1,-1|1,-2>(F:8,-20m)[F:0..255]\"\n",
		"prefer":    "protocols:\n  - name: X\n    irp: \"{38k,500}<1,-1|1,-2>(F:8,-20m)[F:0..255]\"\n    prefer-over: [\"F<;Y\"]\n",
	}
	for name, text := range cases {
		_, err := Parse([]byte(text))
		assert.Error(t, err, name)
	}
	_, err := Parse([]byte(cases["irp"]))
	assert.ErrorIs(t, err, irp.ErrParse)
	_, err = Parse([]byte(cases["duplicate"]))
	assert.ErrorIs(t, err, ircore.ErrInvalidArgument)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocols.yaml")
	require.NoError(t, os.WriteFile(path, defaultCatalogue, 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 11, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPreferOver(t *testing.T) {
	po, err := ParsePreferOver("F<64;RC5x")
	require.NoError(t, err)
	assert.Equal(t, "RC5x", po.Protocol)
	assert.True(t, po.Applies(map[string]int64{"F": 10}))
	assert.False(t, po.Applies(map[string]int64{"F": 100}))
	assert.False(t, po.Applies(map[string]int64{"D": 1}))
	assert.Equal(t, "F<64;RC5x", po.String())

	po, err = ParsePreferOver(" NEC2 ")
	require.NoError(t, err)
	assert.Equal(t, "NEC2", po.Protocol)
	assert.True(t, po.Applies(nil))

	_, err = ParsePreferOver("F<64;")
	assert.ErrorIs(t, err, ircore.ErrInvalidArgument)
}

func TestNew(t *testing.T) {
	proto := irp.MustParse("{38k,500}<1,-1|1,-2>(F:8,-20m)[F:0..255]")
	c, err := New(&NamedProtocol{Name: "A", Protocol: proto}, &NamedProtocol{Name: "B", Protocol: proto})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, c.Names())

	_, err = New(&NamedProtocol{Name: "A", Protocol: proto}, &NamedProtocol{Name: "a", Protocol: proto})
	assert.ErrorIs(t, err, ircore.ErrInvalidArgument)
}
