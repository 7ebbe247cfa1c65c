package sink

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjbrigato/go-midiplex/synth"
)

func peakOf(buf []float64) float64 {
	max := 0.0
	for _, s := range buf {
		if a := math.Abs(s); a > max {
			max = a
		}
	}
	return max
}

func TestSynthRendersHeldNote(t *testing.T) {
	s := NewSynth(synth.Square, 44100)
	require.NoError(t, s.On(69, 0, 127))
	assert.Equal(t, 1, s.Sounding())

	buf := make([]float64, 4410)
	s.render(buf)
	assert.Greater(t, peakOf(buf), 0.5)
}

func TestSynthOffReleasesIntoTail(t *testing.T) {
	s := NewSynth(synth.Square, 44100)
	require.NoError(t, s.On(69, 0, 127))

	// Let the envelope open before releasing.
	buf := make([]float64, 441)
	s.render(buf)
	require.NoError(t, s.Off(69, 0))
	assert.Equal(t, 0, s.Sounding())

	// The release tail still sounds...
	for i := range buf {
		buf[i] = 0
	}
	s.render(buf)
	assert.Greater(t, peakOf(buf), 0.0)

	// ...and fades to nothing, after which the voice is recycled.
	for i := 0; i < 100; i++ {
		s.render(buf)
	}
	for i := range buf {
		buf[i] = 0
	}
	s.render(buf)
	assert.Zero(t, peakOf(buf))
	require.Len(t, s.spare, 1)

	require.NoError(t, s.On(60, 0, 80))
	assert.Empty(t, s.spare)
}

func TestSynthOffForUnknownNoteIsHarmless(t *testing.T) {
	s := NewSynth(synth.Sine, 44100)
	require.NoError(t, s.Off(12, 4))
	assert.Equal(t, 0, s.Sounding())
}

func TestSynthSilenceReleasesEverything(t *testing.T) {
	s := NewSynth(synth.Sine, 44100)
	require.NoError(t, s.On(60, 0, 100))
	require.NoError(t, s.On(64, 1, 100))
	require.NoError(t, s.Silence())
	assert.Equal(t, 0, s.Sounding())
	assert.Len(t, s.tails, 2)
}

func TestSynthDistinctChannelsAreDistinctNotes(t *testing.T) {
	s := NewSynth(synth.Sine, 44100)
	require.NoError(t, s.On(60, 0, 100))
	require.NoError(t, s.On(60, 1, 100))
	assert.Equal(t, 2, s.Sounding())
	require.NoError(t, s.Off(60, 0))
	assert.Equal(t, 1, s.Sounding())
}
