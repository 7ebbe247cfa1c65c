package sink

import (
	"fmt"
	"net"

	"github.com/cjbrigato/go-midiplex/plex"
)

// UDP is a sink that fires raw 3-byte MIDI note messages at a fixed UDP
// address. No framing, no retries, no acknowledgement: a lost packet is a
// lost note.
type UDP struct {
	conn net.Conn
}

// NewUDP connects a sink to addr (host:port).
func NewUDP(addr string) (*UDP, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udp sink %s: %w", addr, err)
	}
	return &UDP{conn: conn}, nil
}

func (u *UDP) On(note plex.Note, channel plex.Channel, velocity plex.Velocity) error {
	_, err := u.conn.Write([]byte{0x90 | byte(channel), byte(note), byte(velocity)})
	return err
}

func (u *UDP) Off(note plex.Note, channel plex.Channel) error {
	_, err := u.conn.Write([]byte{0x80 | byte(channel), byte(note), 0x00})
	return err
}

// Silence sends Off for every note on every channel; the peer's state is
// unknowable, so everything is swept.
func (u *UDP) Silence() error {
	return plex.SilenceAll(u)
}

// Close silences the peer before releasing the socket so no remote note is
// left stuck.
func (u *UDP) Close() error {
	silenceErr := u.Silence()
	if err := u.conn.Close(); err != nil {
		return err
	}
	return silenceErr
}
