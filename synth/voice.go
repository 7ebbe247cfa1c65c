package synth

// Voice is one sounding note of the built-in synthesizer: an oscillator
// shaped by an ADSR envelope, with gain taken from the note velocity.
type Voice struct {
	osc  *Oscillator
	env  *Envelope
	gain float64
	note int
}

// NewVoice creates a voice with the default pluck-like envelope.
func NewVoice(wave WaveType, sampleRate float64) *Voice {
	return &Voice{
		osc:  NewOscillator(wave, sampleRate),
		env:  NewEnvelope(0.005, 0.08, 0.7, 0.15, sampleRate),
		note: -1,
	}
}

// NoteOn starts (or retriggers) the voice. Gain is in [0, 1], usually
// velocity/127.
func (v *Voice) NoteOn(note int, gain float64) {
	v.note = note
	v.gain = gain
	v.osc.SetFrequency(NoteToFrequency(note))
	v.env.Trigger()
}

// NoteOff releases the voice; it keeps sounding through the release tail.
func (v *Voice) NoteOff() {
	v.env.Release()
}

// Note returns the MIDI note the voice was last triggered with, or -1.
func (v *Voice) Note() int {
	return v.note
}

// Active reports whether the voice still produces sound.
func (v *Voice) Active() bool {
	return v.env.Active()
}

// Next generates the next sample.
func (v *Voice) Next() float64 {
	return v.osc.Next() * v.env.Next() * v.gain
}
