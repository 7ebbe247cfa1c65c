package plex

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sinkCall is one On or Off observed by a fakeSink.
type sinkCall struct {
	on       bool
	note     Note
	channel  Channel
	velocity Velocity
}

// fakeSink records every call it receives and tracks which notes it
// believes are on, flagging double-ons and orphan offs.
type fakeSink struct {
	label      string
	calls      []sinkCall
	playing    map[noteKey]bool
	errOn      error
	errOff     error
	violations []string
}

func newFakeSink(label string) *fakeSink {
	return &fakeSink{label: label, playing: map[noteKey]bool{}}
}

func (f *fakeSink) On(note Note, channel Channel, velocity Velocity) error {
	f.calls = append(f.calls, sinkCall{on: true, note: note, channel: channel, velocity: velocity})
	key := noteKey{note, channel}
	if f.playing[key] {
		f.violations = append(f.violations, fmt.Sprintf("%s: double on %d/%d", f.label, note, channel))
	}
	f.playing[key] = true
	return f.errOn
}

func (f *fakeSink) Off(note Note, channel Channel) error {
	f.calls = append(f.calls, sinkCall{note: note, channel: channel})
	key := noteKey{note, channel}
	if !f.playing[key] {
		f.violations = append(f.violations, fmt.Sprintf("%s: orphan off %d/%d", f.label, note, channel))
	}
	delete(f.playing, key)
	return f.errOff
}

func (f *fakeSink) Silence() error {
	f.playing = map[noteKey]bool{}
	return nil
}

func newTestPlexer(numSinks, maxAllocation int) (*Midiplexer, []*fakeSink) {
	fakes := make([]*fakeSink, numSinks)
	sinks := make([]Sink, numSinks)
	for i := range fakes {
		fakes[i] = newFakeSink(string(rune('a' + i)))
		sinks[i] = fakes[i]
	}
	return New(sinks, maxAllocation), fakes
}

// labels reads a queue front to back without disturbing it.
func labels(q *sinkQueue) []string {
	out := []string{}
	for i := 0; i < q.len(); i++ {
		out = append(out, q.at(i).(*fakeSink).label)
	}
	return out
}

func (m *Midiplexer) state(t *testing.T, note Note, channel Channel) *noteState {
	t.Helper()
	state, ok := m.notes[noteKey{note, channel}]
	require.True(t, ok, "note %d/%d not sounding", note, channel)
	return state
}

func TestSingleNoteTakesWholePool(t *testing.T) {
	m, _ := newTestPlexer(4, 0)
	require.NoError(t, m.On(0, 0, 127))

	state := m.state(t, 0, 0)
	assert.Equal(t, Velocity(127), state.velocity)
	assert.Equal(t, 4, state.targetAllocation)
	assert.Equal(t, []string{"a", "b", "c", "d"}, labels(state.outputs))
	assert.Equal(t, 0, m.unallocated.len())
}

func TestEqualNotesSplitPool(t *testing.T) {
	m, _ := newTestPlexer(4, 0)
	require.NoError(t, m.On(0, 0, 127))
	require.NoError(t, m.On(0, 1, 127))

	// The older note shrinks from the front of its queue; the freed sinks
	// land on the newer note.
	first := m.state(t, 0, 0)
	assert.Equal(t, 2, first.targetAllocation)
	assert.Equal(t, []string{"c", "d"}, labels(first.outputs))

	second := m.state(t, 0, 1)
	assert.Equal(t, 2, second.targetAllocation)
	assert.Equal(t, []string{"a", "b"}, labels(second.outputs))

	assert.Equal(t, 0, m.unallocated.len())
}

func TestScarcitySacrificesOldestNote(t *testing.T) {
	m, _ := newTestPlexer(4, 0)
	for channel := Channel(0); channel < 5; channel++ {
		require.NoError(t, m.On(0, channel, 127))
	}

	oldest := m.state(t, 0, 0)
	assert.Equal(t, 0, oldest.targetAllocation)
	assert.Equal(t, []string{}, labels(oldest.outputs))

	want := map[Channel][]string{1: {"b"}, 2: {"a"}, 3: {"c"}, 4: {"d"}}
	for channel, wantLabels := range want {
		state := m.state(t, 0, channel)
		assert.Equal(t, 1, state.targetAllocation, "channel %d", channel)
		assert.Equal(t, wantLabels, labels(state.outputs), "channel %d", channel)
	}
	assert.Equal(t, 0, m.unallocated.len())
}

func TestMaxAllocationCapsSingleNote(t *testing.T) {
	m, _ := newTestPlexer(4, 2)
	require.NoError(t, m.On(0, 0, 127))

	state := m.state(t, 0, 0)
	assert.Equal(t, 2, state.targetAllocation)
	assert.Equal(t, []string{"a", "b"}, labels(state.outputs))
	assert.Equal(t, []string{"c", "d"}, labels(m.unallocated))
}

func TestMaxAllocationReleasesUnderPressure(t *testing.T) {
	m, _ := newTestPlexer(4, 2)
	for channel := Channel(0); channel < 5; channel++ {
		require.NoError(t, m.On(0, channel, 127))
	}

	oldest := m.state(t, 0, 0)
	assert.Equal(t, 0, oldest.targetAllocation)
	assert.Equal(t, 0, oldest.outputs.len())
	for channel := Channel(1); channel < 5; channel++ {
		state := m.state(t, 0, channel)
		assert.Equal(t, 1, state.targetAllocation, "channel %d", channel)
		assert.Equal(t, 1, state.outputs.len(), "channel %d", channel)
	}
	assert.Equal(t, 0, m.unallocated.len())
}

func TestNoteOffRestoresAllocation(t *testing.T) {
	m, fakes := newTestPlexer(4, 0)
	require.NoError(t, m.On(0, 0, 127))
	require.NoError(t, m.On(0, 1, 127))

	b := fakes[1]
	b.calls = nil
	require.NoError(t, m.Off(0, 1))

	state := m.state(t, 0, 0)
	assert.Equal(t, 4, state.targetAllocation)
	assert.Equal(t, []string{"c", "d", "a", "b"}, labels(state.outputs))

	// Sink b sees exactly the off for the released note and one on for the
	// surviving note, nothing repeated.
	require.Len(t, b.calls, 2)
	assert.Equal(t, sinkCall{note: 0, channel: 1}, b.calls[0])
	assert.Equal(t, sinkCall{on: true, note: 0, channel: 0, velocity: 127}, b.calls[1])
}

func TestSameVelocityOnDoesNotRebalance(t *testing.T) {
	m, fakes := newTestPlexer(4, 0)
	require.NoError(t, m.On(0, 0, 100))
	calls := len(fakes[0].calls)
	require.NoError(t, m.On(0, 0, 100))
	assert.Equal(t, calls, len(fakes[0].calls))
}

func TestZeroVelocityOnIsOff(t *testing.T) {
	m, _ := newTestPlexer(2, 0)
	require.NoError(t, m.On(60, 3, 90))
	require.NoError(t, m.On(60, 3, 0))
	assert.Equal(t, 0, m.Sounding())
	assert.Equal(t, 0, m.totalVelocity)
	assert.Equal(t, 2, m.unallocated.len())
}

func TestOffForSilentNoteIsNoop(t *testing.T) {
	m, fakes := newTestPlexer(2, 0)
	require.NoError(t, m.Off(10, 0))
	assert.Empty(t, fakes[0].calls)
	assert.Empty(t, fakes[1].calls)
}

func TestSilence(t *testing.T) {
	m, fakes := newTestPlexer(4, 0)
	require.NoError(t, m.On(0, 0, 127))
	require.NoError(t, m.On(7, 1, 40))
	require.NoError(t, m.Silence())

	assert.Equal(t, 0, m.Sounding())
	assert.Equal(t, 0, m.totalVelocity)
	assert.Equal(t, 4, m.unallocated.len())
	for _, f := range fakes {
		assert.Empty(t, f.playing, "sink %s still believes a note is on", f.label)
	}

	// A second silence makes no sink calls at all.
	for _, f := range fakes {
		f.calls = nil
	}
	require.NoError(t, m.Silence())
	for _, f := range fakes {
		assert.Empty(t, f.calls)
	}
}

func TestReentryMatchesFreshStart(t *testing.T) {
	for _, numSinks := range []int{1, 3, 4} {
		replayed, _ := newTestPlexer(numSinks, 0)
		require.NoError(t, replayed.On(5, 0, 90))
		require.NoError(t, replayed.Off(5, 0))
		require.NoError(t, replayed.On(5, 0, 90))

		fresh, _ := newTestPlexer(numSinks, 0)
		require.NoError(t, fresh.On(5, 0, 90))

		// Indistinguishable modulo sink identity, now and after further
		// traffic.
		assertSameShape(t, fresh, replayed)
		require.NoError(t, replayed.On(9, 2, 40))
		require.NoError(t, fresh.On(9, 2, 40))
		assertSameShape(t, fresh, replayed)
	}
}

func assertSameShape(t *testing.T, want, got *Midiplexer) {
	t.Helper()
	require.Equal(t, want.order, got.order)
	assert.Equal(t, want.totalVelocity, got.totalVelocity)
	assert.Equal(t, want.unallocated.len(), got.unallocated.len())
	for _, key := range want.order {
		w, g := want.notes[key], got.notes[key]
		assert.Equal(t, w.velocity, g.velocity, "velocity of %v", key)
		assert.Equal(t, w.targetAllocation, g.targetAllocation, "target of %v", key)
		assert.Equal(t, w.outputs.len(), g.outputs.len(), "outputs of %v", key)
	}
}

func TestSinkErrorPropagatesWithoutRollback(t *testing.T) {
	m, fakes := newTestPlexer(2, 0)
	boom := errors.New("peer gone")
	fakes[1].errOn = boom

	err := m.On(0, 0, 127)
	assert.Equal(t, boom, err)

	// Bookkeeping proceeds as if the failed call took effect.
	state := m.state(t, 0, 0)
	assert.Equal(t, 2, state.outputs.len())
	assert.Equal(t, 0, m.unallocated.len())
}

func TestFirstErrorWinsAndSkipsLaterSinkCalls(t *testing.T) {
	m, fakes := newTestPlexer(3, 0)
	first := errors.New("first")
	fakes[0].errOn = first
	fakes[1].errOn = errors.New("second")

	err := m.On(0, 0, 127)
	assert.Equal(t, first, err)

	// Sink a errored; b and c are never touched in that operation, but all
	// three are still assigned.
	assert.Empty(t, fakes[1].calls)
	assert.Empty(t, fakes[2].calls)
	assert.Equal(t, 3, m.state(t, 0, 0).outputs.len())
}

func TestNoSinks(t *testing.T) {
	m, _ := newTestPlexer(0, 0)
	require.NoError(t, m.On(0, 0, 127))
	assert.Equal(t, 1, m.Sounding())
	assert.Equal(t, 0, m.state(t, 0, 0).outputs.len())
	require.NoError(t, m.Off(0, 0))
	require.NoError(t, m.Silence())
}

func TestNoteStateRecycling(t *testing.T) {
	m, _ := newTestPlexer(2, 0)
	require.NoError(t, m.On(0, 0, 127))
	require.NoError(t, m.Off(0, 0))
	recycled := len(m.unused)
	require.Equal(t, 1, recycled)
	require.NoError(t, m.On(1, 0, 127))
	assert.Equal(t, 0, len(m.unused))
}
