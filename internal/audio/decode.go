package audio

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// DecodeError reports input bytes that could not be parsed into PCM. It
// aborts only the queue item that carried the bytes, never the worker.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s audio: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode sniffs the container format and converts the bytes into a PCMBuffer
// with float32 samples normalized to [-1, 1]. WAV and MP3 are supported; the
// TTS backends upstream only ever produce these two.
func Decode(data []byte) (*PCMBuffer, error) {
	switch {
	case isWAV(data):
		return decodeWAV(data)
	case isMP3(data):
		return decodeMP3(data)
	default:
		return nil, &DecodeError{Format: "unknown", Err: fmt.Errorf("unrecognized container (%d bytes)", len(data))}
	}
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")) {
		return true
	}
	// Bare MPEG frame sync: 11 set bits.
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func decodeWAV(data []byte) (*PCMBuffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, &DecodeError{Format: "wav", Err: fmt.Errorf("invalid RIFF/WAVE structure")}
	}

	intBuf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Format: "wav", Err: err}
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}

	return &PCMBuffer{
		Samples:    normalizeIntBuffer(intBuf, bitDepth),
		Channels:   intBuf.Format.NumChannels,
		SampleRate: intBuf.Format.SampleRate,
	}, nil
}

// normalizeIntBuffer converts decoded integer samples to float32 in [-1, 1]
// using the container's declared bit depth.
func normalizeIntBuffer(buf *goaudio.IntBuffer, bitDepth int) []float32 {
	scale := float32(int(1) << (bitDepth - 1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return samples
}

func decodeMP3(data []byte) (*PCMBuffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Format: "mp3", Err: err}
	}

	// go-mp3 always emits 16-bit stereo little-endian.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, &DecodeError{Format: "mp3", Err: err}
	}

	return &PCMBuffer{
		Samples:    Int16ToFloat32(BytesToInt16(raw)),
		Channels:   2,
		SampleRate: dec.SampleRate(),
	}, nil
}
