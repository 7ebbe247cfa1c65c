package synth

import (
	"fmt"
	"math"
)

// NoteToFrequency converts a MIDI note number to its frequency in Hz, with
// A4 (note 69) at 440 Hz.
func NoteToFrequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// FormatNote renders a MIDI note number as a name like "C4" or "A#2".
// MIDI note 60 is C4.
func FormatNote(note int) string {
	if note < 0 || note > 127 {
		return "---"
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}
