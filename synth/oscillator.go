package synth

import (
	"fmt"
	"math"
	"strings"
)

// WaveType selects the oscillator waveform.
type WaveType int

const (
	Square WaveType = iota
	Saw
	Triangle
	Sine
)

func (w WaveType) String() string {
	switch w {
	case Square:
		return "square"
	case Saw:
		return "saw"
	case Triangle:
		return "triangle"
	case Sine:
		return "sine"
	}
	return "unknown"
}

// ParseWave maps a waveform name to its WaveType.
func ParseWave(name string) (WaveType, error) {
	switch strings.ToLower(name) {
	case "square":
		return Square, nil
	case "saw":
		return Saw, nil
	case "triangle":
		return Triangle, nil
	case "sine":
		return Sine, nil
	}
	return 0, fmt.Errorf("unknown waveform %q", name)
}

// Oscillator generates a single waveform at a fixed sample rate. Phase runs
// in [0, 1).
type Oscillator struct {
	wave  WaveType
	rate  float64
	phase float64
	step  float64
}

// NewOscillator creates an oscillator at the given sample rate.
func NewOscillator(wave WaveType, sampleRate float64) *Oscillator {
	return &Oscillator{wave: wave, rate: sampleRate}
}

// SetFrequency sets the output frequency in Hz.
func (o *Oscillator) SetFrequency(freq float64) {
	o.step = freq / o.rate
}

// Next generates the next sample in [-1, 1] and advances the phase.
func (o *Oscillator) Next() float64 {
	var sample float64
	switch o.wave {
	case Square:
		if o.phase < 0.5 {
			sample = 1
		} else {
			sample = -1
		}
	case Saw:
		sample = 2*o.phase - 1
	case Triangle:
		if o.phase < 0.5 {
			sample = 4*o.phase - 1
		} else {
			sample = 3 - 4*o.phase
		}
	case Sine:
		sample = math.Sin(2 * math.Pi * o.phase)
	}

	o.phase += o.step
	if o.phase >= 1 {
		o.phase -= 1
	}
	return sample
}
