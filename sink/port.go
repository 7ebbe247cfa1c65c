package sink

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/cjbrigato/go-midiplex/plex"
)

// Port is a sink backed by a virtual MIDI output port created under a
// caller-supplied name. Other programs on the machine subscribe to the port
// and receive the notes routed to this sink.
type Port struct {
	out  drivers.Out
	send func(midi.Message) error
}

// NewPort opens a virtual output port named name on the given driver.
func NewPort(drv *rtmididrv.Driver, name string) (*Port, error) {
	out, err := drv.OpenVirtualOut(name)
	if err != nil {
		return nil, fmt.Errorf("port sink %q: %w", name, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("port sink %q: %w", name, err)
	}
	return &Port{out: out, send: send}, nil
}

func (p *Port) On(note plex.Note, channel plex.Channel, velocity plex.Velocity) error {
	return p.send(midi.NoteOn(uint8(channel), uint8(note), uint8(velocity)))
}

func (p *Port) Off(note plex.Note, channel plex.Channel) error {
	return p.send(midi.NoteOff(uint8(channel), uint8(note)))
}

// Silence sweeps every note on every channel; subscribers may have joined
// mid-note, so nothing short of a full sweep is safe.
func (p *Port) Silence() error {
	return plex.SilenceAll(p)
}

// Close silences subscribers before the port disappears.
func (p *Port) Close() error {
	silenceErr := p.Silence()
	if err := p.out.Close(); err != nil {
		return err
	}
	return silenceErr
}
