package lipsync

import "math"

// Per-vowel phase offsets, in radians added to phase*2π. Spacing the lobes
// unevenly keeps the rotation from reading as a mechanical loop.
var vowelPhaseOffsets = [ShapeCount]float64{
	ShapeA: 0,
	ShapeE: 1.2,
	ShapeI: 2.5,
	ShapeO: 3.8,
	ShapeU: 5.0,
}

// Per-vowel openness scaling: an "A" mouth opens wider than an "I" mouth.
var vowelWeights = [ShapeCount]float64{
	ShapeA: 1.0,
	ShapeE: 0.85,
	ShapeI: 0.7,
	ShapeO: 0.9,
	ShapeU: 0.75,
}

// shapeLerp is the per-tick blend factor toward the target frame. Together
// with the envelope this is the second smoothing stage that keeps 30 Hz
// output free of visible jitter.
const shapeLerp = 0.35

// Synthesizer turns an openness level into a rotating blend of vowel shapes.
// It owns the vowel phase and the previous frame used for interpolation, and
// drives its own Envelope, so one Synthesizer maps to one playback session.
type Synthesizer struct {
	cfg   Config
	env   *Envelope
	phase float64
	prev  ShapeFrame
}

// NewSynthesizer creates a synthesizer with all state zeroed (mouth closed).
func NewSynthesizer(cfg Config) *Synthesizer {
	return &Synthesizer{cfg: cfg, env: NewEnvelope(cfg)}
}

// Tick feeds one loudness sample through the envelope and returns the next
// shape frame. While the envelope is silent the frame is exactly zero and the
// vowel phase resets; otherwise the phase advances and the five vowel lobes
// are blended, scaled by the envelope, and interpolated toward the previous
// frame. Call once per coordinator tick.
func (s *Synthesizer) Tick(loudness float64) ShapeFrame {
	level := s.env.Update(loudness)

	if level == 0 {
		s.phase = 0
		s.prev = ShapeFrame{}
		return s.prev
	}

	s.phase += s.cfg.VowelSpeed / float64(s.cfg.TickRate)
	target := vowelTargets(s.phase, level)

	for i := range s.prev {
		v := s.prev[i] + (target[i]-s.prev[i])*shapeLerp
		if v < s.cfg.SnapThreshold {
			v = 0
		}
		s.prev[i] = v
	}
	return s.prev
}

// Previous returns the last frame produced.
func (s *Synthesizer) Previous() ShapeFrame {
	return s.prev
}

// Reset closes the mouth and zeroes all internal state.
func (s *Synthesizer) Reset() {
	s.env.Reset()
	s.phase = 0
	s.prev = ShapeFrame{}
}

// vowelLobes evaluates the five phase-offset sine lobes, clamped to
// non-negative, and returns them with their sum.
func vowelLobes(phase float64) (lobes ShapeFrame, sum float64) {
	for i := range lobes {
		v := math.Sin(phase*2*math.Pi + vowelPhaseOffsets[i])
		if v < 0 {
			v = 0
		}
		lobes[i] = v
		sum += v
	}
	return lobes, sum
}

// vowelTargets normalizes the lobes by their sum so one vowel dominates at
// any instant, then scales by the envelope level and per-vowel weight.
func vowelTargets(phase, level float64) ShapeFrame {
	lobes, sum := vowelLobes(phase)
	if sum < 0.01 {
		sum = 1.0
	}
	var out ShapeFrame
	for i, v := range lobes {
		out[i] = (v / sum) * level * vowelWeights[i]
	}
	return out
}
