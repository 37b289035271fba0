package lipsync

// Envelope is an asymmetric one-pole envelope follower: the level rises
// quickly toward a louder target (attack) and decays slowly toward a quieter
// one (release). The asymmetry makes the mouth snap open on syllable onsets
// while fading smoothly through the gaps between them.
type Envelope struct {
	cfg   Config
	level float64
}

// NewEnvelope creates an envelope follower with the given tuning.
func NewEnvelope(cfg Config) *Envelope {
	return &Envelope{cfg: cfg}
}

// Update feeds one loudness measurement through the follower and returns the
// new openness level, clamped to [0, MaxOpen]. Levels under SpeakThreshold
// are forced to exactly zero. Call once per coordinator tick.
func (e *Envelope) Update(loudness float64) float64 {
	target := loudness * e.cfg.Gain
	if target > e.cfg.MaxOpen {
		target = e.cfg.MaxOpen
	}

	if target > e.level {
		e.level += (target - e.level) * e.cfg.Attack
	} else {
		e.level += (target - e.level) * (1.0 - e.cfg.Release)
	}

	if e.level > e.cfg.MaxOpen {
		e.level = e.cfg.MaxOpen
	}
	if e.level < 0 {
		e.level = 0
	}
	if e.level < e.cfg.SpeakThreshold {
		e.level = 0
	}
	return e.level
}

// Level returns the current openness without advancing the filter.
func (e *Envelope) Level() float64 {
	return e.level
}

// Reset drops the level back to silence.
func (e *Envelope) Reset() {
	e.level = 0
}
