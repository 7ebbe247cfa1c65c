package plex

// Note is a MIDI note number in the range [0, 127].
type Note uint8

// Channel is a MIDI channel in the range [0, 15].
type Channel uint8

// Velocity is a MIDI note velocity in the range [1, 127]. Velocity zero
// means note-off on the wire and is never stored.
type Velocity uint8

// Sink is a downstream endpoint capable of playing notes. It is the unit of
// resource the Midiplexer distributes, and also the contract the Midiplexer
// itself satisfies, so plexers compose with ordinary outputs.
//
// On begins sounding a note. The Midiplexer never calls On for a
// (note, channel) already on on that sink, so sinks need not be idempotent.
// Off stops a note; an Off for a note the sink does not play must be
// harmless. Silence stops everything the sink is playing.
type Sink interface {
	On(note Note, channel Channel, velocity Velocity) error
	Off(note Note, channel Channel) error
	Silence() error
}

// SilenceAll emits Off for every (note, channel) pair. Sinks that cannot
// track which notes they hold use it to implement Silence.
func SilenceAll(s Sink) error {
	for channel := 0; channel < 16; channel++ {
		for note := 0; note < 128; note++ {
			if err := s.Off(Note(note), Channel(channel)); err != nil {
				return err
			}
		}
	}
	return nil
}
