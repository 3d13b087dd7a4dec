/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cleaner_test.go
Description: Tests for duration clustering and cluster naming.
*/

package cleaner

import (
	"testing"

	"github.com/kleascm/irscope/pkg/ircore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestName(t *testing.T) {
	assert.Equal(t, "A", Name(0))
	assert.Equal(t, "Z", Name(25))
	assert.Equal(t, "BA", Name(26))
	assert.Equal(t, "BB", Name(27))
	assert.Equal(t, "ZZ", Name(26*26-1))
	assert.Equal(t, "BAA", Name(26*26))
}

// TestCleanNoisyCapture tests that jittered durations collapse onto their clusters
func TestCleanNoisyCapture(t *testing.T) {
	seq, err := ircore.NewIrSequenceFromInts([]int{
		9000, 4480, 580, 540, 560, 1710, 530, 570, 590, 1680, 545, 39000,
	})
	require.NoError(t, err)

	res := Clean(seq, 60, 0.2)
	assert.Equal(t, []int{559, 1695, 4480, 9000, 39000}, res.Timings)
	assert.Equal(t, []int{7, 2, 1, 1, 1}, res.Histogram)
	assert.Equal(t, "DC AA AB AA AB AE", res.IndexString())

	cleaned := res.Sequence()
	assert.Equal(t, []float64{9000, 4480, 559, 559, 559, 1695, 559, 559, 559, 1695, 559, 39000}, cleaned.Durations())
}

func TestCleanSignalSharesTimings(t *testing.T) {
	intro, _ := ircore.NewIrSequenceFromInts([]int{9010, 4500, 550, 40000})
	repeat, _ := ircore.NewIrSequenceFromInts([]int{8990, 2250, 570, 96000})
	signal, err := ircore.NewIrSignal(intro, repeat, nil, 38000, 0)
	require.NoError(t, err)

	cleaned, err := CleanSignal(signal, 60, 0.2)
	require.NoError(t, err)
	assert.Equal(t, cleaned.Intro.At(0), cleaned.Repeat.At(0))
	assert.Equal(t, cleaned.Intro.At(2), cleaned.Repeat.At(2))
	assert.Equal(t, 38000.0, cleaned.Frequency)
}

func TestCleanEmpty(t *testing.T) {
	res := Clean(ircore.EmptySequence(), 60, 0.2)
	assert.Empty(t, res.Timings)
	assert.True(t, res.Sequence().IsEmpty())
}

// TestCleanIdempotent checks clean(clean(s)) == clean(s)
func TestCleanIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pairs := rapid.IntRange(1, 40).Draw(t, "pairs")
		data := rapid.SliceOfN(rapid.IntRange(1, 100000), 2*pairs, 2*pairs).Draw(t, "durations")
		abs := rapid.Float64Range(0, 300).Draw(t, "abs")
		rel := rapid.Float64Range(0, 0.5).Draw(t, "rel")

		seq, err := ircore.NewIrSequenceFromInts(data)
		if err != nil {
			t.Fatal(err)
		}
		once := CleanSequence(seq, abs, rel)
		twice := CleanSequence(once, abs, rel)
		assert.Equal(t, once.Durations(), twice.Durations())
	})
}
