package midiin

import (
	"fmt"
	"log"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/cjbrigato/go-midiplex/plex"
)

// DefaultPoolSize is the default capacity of the input event pool.
const DefaultPoolSize = 128

type eventKind int

const (
	eventOn eventKind = iota
	eventOff
	eventSilence
)

type event struct {
	kind     eventKind
	note     plex.Note
	channel  plex.Channel
	velocity plex.Velocity
}

// Driver pumps note events from a MIDI input port into a destination sink.
// The destination sees all calls from a single goroutine, in input order,
// so it needs no locking of its own; a plexer plugs in directly.
//
// Only note messages are forwarded. A note-on with velocity zero is
// note-off on the wire and arrives at the destination as Off.
type Driver struct {
	dst        plex.Sink
	events     chan event
	quit       chan struct{}
	done       chan struct{}
	stopListen func()
}

func newDriver(dst plex.Sink, poolSize int) *Driver {
	if poolSize < 1 {
		poolSize = DefaultPoolSize
	}
	return &Driver{
		dst:    dst,
		events: make(chan event, poolSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Open starts listening on the named input port, or on the first available
// port if name is empty, and begins dispatching into dst. poolSize bounds
// how many events may queue while dst is busy; 0 means DefaultPoolSize.
func Open(name string, poolSize int, dst plex.Sink) (*Driver, error) {
	in, err := findInPort(name)
	if err != nil {
		return nil, err
	}
	d := newDriver(dst, poolSize)
	stop, err := midi.ListenTo(in, d.handleMessage)
	if err != nil {
		return nil, fmt.Errorf("midi input %q: %w", in.String(), err)
	}
	d.stopListen = stop
	d.start()
	return d, nil
}

func findInPort(name string) (drivers.In, error) {
	if name == "" {
		ins := midi.GetInPorts()
		if len(ins) == 0 {
			return nil, fmt.Errorf("no MIDI input ports available")
		}
		return ins[0], nil
	}
	in, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("midi input %q: %w", name, err)
	}
	return in, nil
}

// Stop stops listening and tears down the dispatch goroutine. Events still
// queued are dropped; the caller decides whether to silence the
// destination afterwards.
func (d *Driver) Stop() {
	if d.stopListen != nil {
		d.stopListen()
	}
	close(d.quit)
	<-d.done
}

func (d *Driver) start() {
	go d.loop()
}

func (d *Driver) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		d.dispatch(event{kind: eventOn, note: plex.Note(key), channel: plex.Channel(channel), velocity: plex.Velocity(velocity)})
	case msg.GetNoteEnd(&channel, &key):
		d.dispatch(event{kind: eventOff, note: plex.Note(key), channel: plex.Channel(channel)})
	}
}

// dispatch never blocks the listener. When the pool is full the consumer
// has fallen behind live input; everything queued is dropped and a single
// silence is queued instead, so no note can stick.
func (d *Driver) dispatch(ev event) {
	select {
	case d.events <- ev:
		return
	default:
	}
	for {
		select {
		case <-d.events:
		default:
			d.events <- event{kind: eventSilence}
			return
		}
	}
}

func (d *Driver) loop() {
	defer close(d.done)
	for {
		select {
		case <-d.quit:
			return
		case ev := <-d.events:
			var err error
			switch ev.kind {
			case eventOn:
				err = d.dst.On(ev.note, ev.channel, ev.velocity)
			case eventOff:
				err = d.dst.Off(ev.note, ev.channel)
			case eventSilence:
				log.Printf("midiin: input pool overrun, silencing")
				err = d.dst.Silence()
			}
			if err != nil {
				log.Printf("midiin: sink: %v", err)
			}
		}
	}
}
