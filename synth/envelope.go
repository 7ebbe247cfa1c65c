package synth

type envStage int

const (
	stageIdle envStage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

// Envelope is a linear ADSR amplitude envelope. Attack, decay and release
// are in seconds; sustain is a level in [0, 1].
type Envelope struct {
	attack  float64
	decay   float64
	sustain float64
	release float64
	rate    float64

	stage envStage
	level float64
	step  float64 // per-sample level delta of the current ramp
}

// NewEnvelope creates an envelope at the given sample rate.
func NewEnvelope(attack, decay, sustain, release, sampleRate float64) *Envelope {
	return &Envelope{
		attack:  attack,
		decay:   decay,
		sustain: sustain,
		release: release,
		rate:    sampleRate,
	}
}

// Trigger restarts the envelope from the attack stage.
func (e *Envelope) Trigger() {
	e.stage = stageAttack
	e.step = rampStep(1-e.level, e.attack, e.rate)
}

// Release moves a sounding envelope into its release stage, ramping down
// from the current level.
func (e *Envelope) Release() {
	if e.stage == stageIdle {
		return
	}
	e.stage = stageRelease
	e.step = rampStep(e.level, e.release, e.rate)
}

// Next returns the current level and advances one sample.
func (e *Envelope) Next() float64 {
	level := e.level
	switch e.stage {
	case stageAttack:
		e.level += e.step
		if e.level >= 1 {
			e.level = 1
			e.stage = stageDecay
			e.step = rampStep(1-e.sustain, e.decay, e.rate)
		}
	case stageDecay:
		e.level -= e.step
		if e.level <= e.sustain {
			e.level = e.sustain
			e.stage = stageSustain
		}
	case stageSustain:
		e.level = e.sustain
	case stageRelease:
		e.level -= e.step
		if e.level <= 0 {
			e.level = 0
			e.stage = stageIdle
		}
	}
	return level
}

// Active reports whether the envelope is still producing level.
func (e *Envelope) Active() bool {
	return e.stage != stageIdle
}

// rampStep computes the per-sample delta that covers distance in the given
// number of seconds. A zero-length ramp jumps in a single sample.
func rampStep(distance, seconds, rate float64) float64 {
	samples := seconds * rate
	if samples < 1 {
		samples = 1
	}
	if distance < 0 {
		distance = -distance
	}
	return distance / samples
}
