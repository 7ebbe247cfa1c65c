//go:build (linux || windows || darwin) && !noaudio

package sink

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/oto/v3"

	"github.com/cjbrigato/go-midiplex/synth"
)

// Audio renders one or more Synth sinks to the system audio device through
// a single shared output stream, optionally capturing the mix to a WAV
// file. oto allows one context per process, so all synth sinks of a run
// share one Audio.
type Audio struct {
	ctx        *oto.Context
	player     *oto.Player
	synths     []*Synth
	capture    *WAVWriter
	sampleRate int
}

// NewAudio opens the system audio device at the given sample rate. If
// recordPath is non-empty the rendered mix is also captured there.
func NewAudio(sampleRate int, recordPath string) (*Audio, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	<-ready

	a := &Audio{ctx: ctx, sampleRate: sampleRate}
	if recordPath != "" {
		capture, err := NewWAVWriter(recordPath, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("audio capture: %w", err)
		}
		a.capture = capture
	}
	return a, nil
}

// NewSynth creates a synthesizer sink rendered by this engine. All synths
// must be created before Start.
func (a *Audio) NewSynth(wave synth.WaveType) *Synth {
	s := NewSynth(wave, a.sampleRate)
	a.synths = append(a.synths, s)
	return s
}

// Start begins streaming the mixed synths to the audio device.
func (a *Audio) Start() {
	a.player = a.ctx.NewPlayer(&mixReader{audio: a})
	a.player.Play()
}

// Close stops playback and finalizes any capture file.
func (a *Audio) Close() error {
	var firstErr error
	if a.player != nil {
		firstErr = a.player.Close()
	}
	if a.capture != nil {
		if err := a.capture.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// mixReader streams the synth mix as interleaved stereo float32, the format
// the oto player was opened with.
type mixReader struct {
	audio *Audio
	mix   []float64
}

func (r *mixReader) Read(p []byte) (int, error) {
	numSamples := len(p) / 4 / 2
	if cap(r.mix) < numSamples {
		r.mix = make([]float64, numSamples)
	}
	mix := r.mix[:numSamples]
	for i := range mix {
		mix[i] = 0
	}

	for _, s := range r.audio.synths {
		s.render(mix)
	}

	// Normalize across synths so a full pool cannot clip.
	gain := 1.0
	if n := len(r.audio.synths); n > 0 {
		gain = 1 / float64(n)
	}

	for i, sample := range mix {
		v := float32(sample * gain)
		bits := *(*uint32)(unsafe.Pointer(&v))
		offset := i * 8
		for b := 0; b < 4; b++ {
			p[offset+b] = byte(bits >> (8 * b))
			p[offset+4+b] = byte(bits >> (8 * b))
		}
	}

	if r.audio.capture != nil {
		for _, sample := range mix {
			if err := r.audio.capture.WriteSample(sample*gain, sample*gain); err != nil {
				return 0, err
			}
		}
	}

	return numSamples * 8, nil
}
