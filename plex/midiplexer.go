package plex

// noteKey identifies a sounding pitch. Distinct channels are distinct notes.
type noteKey struct {
	note    Note
	channel Channel
}

// noteState is the bookkeeping for one sounding note. outputs is FIFO: the
// oldest sink assignment sits at the front and is the first dropped when the
// note shrinks, so an individual sink tends to hold its note as long as
// possible between reassignments.
type noteState struct {
	velocity         Velocity
	targetAllocation int
	outputs          *sinkQueue
}

// Midiplexer distributes each sounding note across a fixed pool of sinks in
// proportion to its velocity. Every sounding note holds at least one sink
// while space permits; when demand exceeds the pool, the oldest-sounding
// notes are sacrificed first.
//
// The Midiplexer implements Sink, so it can sit anywhere a single output
// endpoint is expected.
//
// It is not safe for concurrent use; callers must serialize On, Off and
// Silence.
type Midiplexer struct {
	notes         map[noteKey]*noteState
	order         []noteKey // insertion order of sounding notes, oldest first
	unallocated   *sinkQueue
	unused        []*noteState
	numOutputs    int
	totalVelocity int
	maxAllocation int
}

// New creates a Midiplexer that takes ownership of the given sinks, in the
// given order. Nothing else may use a sink after it is handed in.
// maxAllocation caps the number of sinks a single note may hold; it only
// binds while total demand is low enough not to starve other notes. Zero
// means uncapped.
func New(sinks []Sink, maxAllocation int) *Midiplexer {
	unallocated := newSinkQueue(len(sinks))
	for _, s := range sinks {
		unallocated.pushBack(s)
	}
	return &Midiplexer{
		notes:         make(map[noteKey]*noteState, 88),
		unallocated:   unallocated,
		unused:        make([]*noteState, 0, len(sinks)),
		numOutputs:    len(sinks),
		maxAllocation: maxAllocation,
	}
}

// NumOutputs returns the size of the sink pool.
func (m *Midiplexer) NumOutputs() int { return m.numOutputs }

// MaxAllocation returns the per-note sink cap, or 0 if uncapped.
func (m *Midiplexer) MaxAllocation() int { return m.maxAllocation }

// Sounding returns the number of currently sounding notes.
func (m *Midiplexer) Sounding() int { return len(m.order) }

// On starts or updates a note. A repeated On for a sounding note changes its
// velocity; the sink allocation is rebalanced only when the velocity
// actually changed. Velocity zero is note-off on the wire and is treated as
// Off.
func (m *Midiplexer) On(note Note, channel Channel, velocity Velocity) error {
	if velocity == 0 {
		return m.Off(note, channel)
	}
	key := noteKey{note, channel}
	state, ok := m.notes[key]
	if !ok {
		state = m.takeState()
		m.notes[key] = state
		m.order = append(m.order, key)
	}
	readjust := state.velocity != velocity
	m.totalVelocity -= int(state.velocity)
	state.velocity = velocity
	m.totalVelocity += int(velocity)
	if readjust {
		return m.adjust(nil)
	}
	return nil
}

// Off stops a note. Every sink the note held receives Off and returns to
// the unallocated pool, then the remaining notes are rebalanced over the
// freed capacity. Off for a note that is not sounding is a no-op.
func (m *Midiplexer) Off(note Note, channel Channel) error {
	key := noteKey{note, channel}
	state, ok := m.notes[key]
	if !ok {
		return nil
	}
	delete(m.notes, key)
	m.removeFromOrder(key)
	m.totalVelocity -= int(state.velocity)
	var firstErr error
	for {
		s, ok := state.outputs.popFront()
		if !ok {
			break
		}
		if firstErr == nil {
			firstErr = s.Off(note, channel)
		}
		m.unallocated.pushBack(s)
	}
	m.releaseState(state)
	return m.adjust(firstErr)
}

// Silence stops every sounding note and returns all sinks to the
// unallocated pool. Calling it again immediately makes no sink calls.
func (m *Midiplexer) Silence() error {
	var firstErr error
	for _, key := range m.order {
		state := m.notes[key]
		for {
			s, ok := state.outputs.popFront()
			if !ok {
				break
			}
			if firstErr == nil {
				firstErr = s.Off(key.note, key.channel)
			}
			m.unallocated.pushBack(s)
		}
		m.totalVelocity -= int(state.velocity)
		delete(m.notes, key)
		m.releaseState(state)
	}
	m.order = m.order[:0]
	return firstErr
}

// adjust rebalances the sink pool across the sounding notes so that each
// holds a share proportional to its velocity, touching as few sinks as
// possible. Both passes walk the notes newest-first: under scarcity the
// oldest notes are the ones that lose their sinks.
//
// firstErr carries any sink error already hit by the calling operation.
// After the first error all bookkeeping still completes, but further sink
// I/O in the operation is skipped; the failed call is accounted as if it
// had taken effect. Callers that cannot tolerate the resulting drift
// invoke Silence and start over.
func (m *Midiplexer) adjust(firstErr error) error {
	if len(m.order) == 0 {
		return firstErr
	}

	// A max-velocity note aims at maxAllocation sinks while the cap binds
	// in aggregate; otherwise total demand is normalized to the pool.
	scale := float64(m.numOutputs) / float64(m.totalVelocity)
	if m.maxAllocation > 0 && m.maxAllocation*m.totalVelocity < m.numOutputs*128 {
		scale = float64(m.maxAllocation) / 127
	}

	remaining := m.numOutputs

	// Shrink pass: fix each note's target and free surplus sinks.
	for i := len(m.order) - 1; i >= 0; i-- {
		key := m.order[i]
		state := m.notes[key]

		target := int(float64(state.velocity) * scale)
		if target < 1 {
			target = 1
		}
		// While the notes fit in the pool, keep one sink back for each
		// older note so that none of them is left silent.
		if spare := remaining - i; spare >= 1 && target > spare {
			target = spare
		}
		if target > remaining {
			target = remaining
		}
		state.targetAllocation = target
		remaining -= target

		for state.outputs.len() > target {
			s, _ := state.outputs.popFront()
			if firstErr == nil {
				firstErr = s.Off(key.note, key.channel)
			}
			m.unallocated.pushBack(s)
		}
	}

	// Grow pass: hand the freed sinks to under-allocated notes. Running
	// this only after the whole shrink pass guarantees the sinks a growing
	// note needs have already been released.
	for i := len(m.order) - 1; i >= 0; i-- {
		key := m.order[i]
		state := m.notes[key]
		for state.outputs.len() < state.targetAllocation {
			s, ok := m.unallocated.popFront()
			if !ok {
				return firstErr
			}
			if firstErr == nil {
				firstErr = s.On(key.note, key.channel, state.velocity)
			}
			state.outputs.pushBack(s)
		}
	}

	return firstErr
}

func (m *Midiplexer) removeFromOrder(key noteKey) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// takeState reuses a recycled note state so sustained play does not
// allocate once the pool has warmed up.
func (m *Midiplexer) takeState() *noteState {
	if n := len(m.unused); n > 0 {
		state := m.unused[n-1]
		m.unused = m.unused[:n-1]
		return state
	}
	return &noteState{outputs: newSinkQueue(m.numOutputs)}
}

func (m *Midiplexer) releaseState(state *noteState) {
	state.velocity = 0
	state.targetAllocation = 0
	m.unused = append(m.unused, state)
}
