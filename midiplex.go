package midiplex

import (
	"fmt"
	"io"

	"github.com/cjbrigato/go-midiplex/midiin"
	"github.com/cjbrigato/go-midiplex/plex"
)

// DefaultSampleRate is the sample rate used by the built-in synth sinks.
const DefaultSampleRate = 44100

// Options configure a Session.
type Options struct {
	// Input names the MIDI input port to read from. Empty picks the first
	// available port.
	Input string
	// InputPoolSize bounds how many input events may queue while the sinks
	// are busy before the session drops them and silences. Zero means
	// midiin.DefaultPoolSize.
	InputPoolSize int
	// MaxAllocation caps how many sinks a single note may hold. Zero means
	// uncapped.
	MaxAllocation int
}

// Session wires a MIDI input port through a Midiplexer into a set of
// sinks: one live input, velocity-proportional fan-out across the pool.
type Session struct {
	plexer *plex.Midiplexer
	driver *midiin.Driver
	sinks  []plex.Sink
}

// NewSession builds the plexer over the given sinks, in order, and starts
// pumping the configured input port into it. The session takes ownership
// of the sinks.
func NewSession(sinks []plex.Sink, opts Options) (*Session, error) {
	plexer := plex.New(sinks, opts.MaxAllocation)
	driver, err := midiin.Open(opts.Input, opts.InputPoolSize, plexer)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Session{plexer: plexer, driver: driver, sinks: sinks}, nil
}

// NumOutputs returns the size of the sink pool.
func (s *Session) NumOutputs() int {
	return s.plexer.NumOutputs()
}

// MaxAllocation returns the per-note sink cap, or 0 if uncapped.
func (s *Session) MaxAllocation() int {
	return s.plexer.MaxAllocation()
}

// Sounding returns the number of currently sounding notes. Only meaningful
// between events; the driver goroutine owns the plexer while running.
func (s *Session) Sounding() int {
	return s.plexer.Sounding()
}

// Stop stops the input driver, silences every sounding note, and closes
// any sink that can be closed. The first error wins; teardown continues
// regardless.
func (s *Session) Stop() error {
	s.driver.Stop()
	firstErr := s.plexer.Silence()
	for _, snk := range s.sinks {
		if closer, ok := snk.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
