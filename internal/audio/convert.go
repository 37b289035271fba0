// Package audio owns the playback side of the bridge: PCM buffers, the
// render session that feeds the device callback, the malgo output device,
// and the decode boundary that turns compressed bytes into PCM.
package audio

import "math"

// BytesToInt16 converts little-endian PCM bytes to int16 samples.
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

// Int16ToFloat32 converts PCM int16 samples to float32 in [-1.0, 1.0].
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// float32ToInt16 converts one float32 sample to int16, clamping to [-1, 1].
// Kept as a scalar so the device callback can convert without allocating.
func float32ToInt16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * math.MaxInt16)
}
