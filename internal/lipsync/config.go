package lipsync

// Config tunes the envelope follower and viseme synthesizer. All values are
// perceptual tuning rather than correctness constraints; the defaults were
// dialed in by eye against VSeeFace.
type Config struct {
	// Gain multiplies raw RMS loudness before it becomes mouth openness.
	Gain float64
	// MaxOpen is a hard cap on mouth openness (0-1).
	MaxOpen float64
	// Attack controls how fast the mouth opens (0-1, higher = faster).
	Attack float64
	// Release controls how slowly the mouth closes (0-1, higher = slower).
	// Attack faster than release is what keeps syllable gaps from fluttering.
	Release float64
	// VowelSpeed is the vowel-cycling rate in Hz.
	VowelSpeed float64
	// TickRate is the coordinator frequency in ticks per second. The vowel
	// phase advances by VowelSpeed/TickRate per tick, so Update must be
	// called once per tick for the cycling speed to come out right.
	TickRate int
	// SpeakThreshold gates the envelope: below it the mouth is forced shut
	// and the vowel phase resets, so line noise never moves the lips.
	SpeakThreshold float64
	// SnapThreshold zeroes any shape weight that lands below it after
	// interpolation, avoiding barely-visible residual mouth movement.
	SnapThreshold float64
}

// DefaultConfig returns the tuning used against VSeeFace.
func DefaultConfig() Config {
	return Config{
		Gain:           6.0,
		MaxOpen:        0.65,
		Attack:         0.55,
		Release:        0.75,
		VowelSpeed:     3.5,
		TickRate:       30,
		SpeakThreshold: 0.02,
		SnapThreshold:  0.005,
	}
}
