package sink

import "github.com/cjbrigato/go-midiplex/plex"

// Multi fans every event out to all of its children, so one plexer slot can
// drive several endpoints in lockstep. The first error wins, but every
// child is still attempted.
type Multi struct {
	sinks []plex.Sink
}

// NewMulti creates a fan-out sink over the given children.
func NewMulti(sinks ...plex.Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) On(note plex.Note, channel plex.Channel, velocity plex.Velocity) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.On(note, channel, velocity); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Multi) Off(note plex.Note, channel plex.Channel) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Off(note, channel); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Multi) Silence() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Silence(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
