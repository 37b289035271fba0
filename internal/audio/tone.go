package audio

import (
	"math"
	"time"
)

// Tone generates a mono sine wave buffer, used for the playback test path
// and for exercising the pipeline without a TTS backend.
func Tone(freq, amplitude float64, duration time.Duration, sampleRate int) *PCMBuffer {
	frames := int(duration.Seconds() * float64(sampleRate))
	samples := make([]float32, frames)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*freq*t))
	}
	return &PCMBuffer{
		Samples:    samples,
		Channels:   1,
		SampleRate: sampleRate,
	}
}
