// Package lipsync converts live playback amplitude into VMC mouth blend shapes.
// An envelope follower smooths the raw loudness, a phase-driven synthesizer
// rotates through vowel shapes, and a coordinator ticks the whole chain at a
// fixed rate for the lifetime of one playback session.
package lipsync

// ShapeCount is the number of vowel blend shapes driven on the avatar.
const ShapeCount = 5

// Shape indices in canonical VMC order.
const (
	ShapeA = iota
	ShapeI
	ShapeU
	ShapeE
	ShapeO
)

// ShapeNames maps shape indices to the blend shape names VSeeFace expects.
var ShapeNames = [ShapeCount]string{"A", "I", "U", "E", "O"}

// ShapeFrame is one tick's worth of mouth shape weights, indexed by ShapeA..ShapeO.
// It has no identity beyond its values; comparing frames with == is meaningful.
type ShapeFrame [ShapeCount]float64

// IsZero reports whether every weight is exactly zero (mouth fully closed).
func (f ShapeFrame) IsZero() bool {
	return f == ShapeFrame{}
}

// Scale returns a copy of the frame with every weight multiplied by k.
func (f ShapeFrame) Scale(k float64) ShapeFrame {
	var out ShapeFrame
	for i, v := range f {
		out[i] = v * k
	}
	return out
}

// Transmitter delivers a shape frame to the avatar renderer. Implementations
// are best-effort: a dropped frame at tick rate is imperceptible, so Send
// never reports errors to the caller.
type Transmitter interface {
	Send(frame ShapeFrame)
}
