package sink

import (
	"sync"

	"github.com/cjbrigato/go-midiplex/plex"
	"github.com/cjbrigato/go-midiplex/synth"
)

type voiceKey struct {
	note    plex.Note
	channel plex.Channel
}

// Synth is a software synthesizer sink: every note it is asked to play gets
// its own oscillator voice. Audio only leaves the process once the Synth is
// registered with an Audio engine; on its own it is a silent renderer,
// which is also what the tests use.
//
// Unlike the plexer, a Synth locks internally: note calls arrive from the
// event loop while the audio engine pulls samples from its own goroutine.
type Synth struct {
	mu     sync.Mutex
	wave   synth.WaveType
	rate   float64
	voices map[voiceKey]*synth.Voice
	tails  []*synth.Voice // released voices sounding out their decay
	spare  []*synth.Voice
}

// NewSynth creates a synthesizer sink rendering at the given sample rate.
func NewSynth(wave synth.WaveType, sampleRate int) *Synth {
	return &Synth{
		wave:   wave,
		rate:   float64(sampleRate),
		voices: make(map[voiceKey]*synth.Voice),
	}
}

func (s *Synth) On(note plex.Note, channel plex.Channel, velocity plex.Velocity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voiceKey{note, channel}
	voice, ok := s.voices[key]
	if !ok {
		voice = s.takeVoice()
		s.voices[key] = voice
	}
	voice.NoteOn(int(note), float64(velocity)/127)
	return nil
}

func (s *Synth) Off(note plex.Note, channel plex.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voiceKey{note, channel}
	voice, ok := s.voices[key]
	if !ok {
		return nil
	}
	delete(s.voices, key)
	voice.NoteOff()
	s.tails = append(s.tails, voice)
	return nil
}

func (s *Synth) Silence() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, voice := range s.voices {
		delete(s.voices, key)
		voice.NoteOff()
		s.tails = append(s.tails, voice)
	}
	return nil
}

// Sounding returns the number of held (not yet released) notes.
func (s *Synth) Sounding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

// render mixes the synth's voices into dst, adding onto whatever is already
// there. Finished release tails are reaped into the spare pool.
func (s *Synth) render(dst []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range dst {
		var sample float64
		for _, voice := range s.voices {
			sample += voice.Next()
		}
		for _, voice := range s.tails {
			sample += voice.Next()
		}
		dst[i] += sample
	}

	alive := s.tails[:0]
	for _, voice := range s.tails {
		if voice.Active() {
			alive = append(alive, voice)
		} else {
			s.spare = append(s.spare, voice)
		}
	}
	s.tails = alive
}

func (s *Synth) takeVoice() *synth.Voice {
	if n := len(s.spare); n > 0 {
		voice := s.spare[n-1]
		s.spare = s.spare[:n-1]
		return voice
	}
	return synth.NewVoice(s.wave, s.rate)
}
