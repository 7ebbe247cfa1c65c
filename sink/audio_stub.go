//go:build !(linux || windows || darwin) || noaudio

package sink

import (
	"fmt"

	"github.com/cjbrigato/go-midiplex/synth"
)

// Audio stub for platforms without audio output.
type Audio struct{}

// NewAudio returns an error on unsupported platforms.
func NewAudio(sampleRate int, recordPath string) (*Audio, error) {
	return nil, fmt.Errorf("audio playback not supported on this platform")
}

// NewSynth returns a silent synthesizer sink.
func (a *Audio) NewSynth(wave synth.WaveType) *Synth {
	return NewSynth(wave, 44100)
}

// Start is a no-op.
func (a *Audio) Start() {}

// Close is a no-op.
func (a *Audio) Close() error {
	return nil
}
