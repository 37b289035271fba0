package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// ErrDeviceUnavailable wraps every failure to open or start an output device.
var ErrDeviceUnavailable = errors.New("audio output device unavailable")

// DeviceInfo describes one playback device.
type DeviceInfo struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// Output wraps the miniaudio playback context. One Output is shared across
// sessions; each Play call opens a device configured for that session's
// buffer and drives Session.Fill from the device data callback.
type Output struct {
	ctx      *malgo.AllocatedContext
	selected *malgo.DeviceInfo
	logger   zerolog.Logger
}

// NewOutput initializes the audio backend and picks a playback device.
// preferred, when non-empty, is matched as a case-insensitive substring of
// the device name; otherwise the selection heuristic below applies.
func NewOutput(preferred string, logger zerolog.Logger) (*Output, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %v", ErrDeviceUnavailable, err)
	}

	o := &Output{
		ctx:    ctx,
		logger: logger.With().Str("component", "audio").Logger(),
	}
	o.selectDevice(preferred)
	return o, nil
}

// Devices enumerates available playback devices.
func (o *Output) Devices() ([]DeviceInfo, error) {
	infos, err := o.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate playback devices: %w", err)
	}
	out := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, DeviceInfo{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return out, nil
}

// DeviceName returns the name of the selected device, or empty when playback
// goes to the OS default.
func (o *Output) DeviceName() string {
	if o.selected == nil {
		return ""
	}
	return o.selected.Name()
}

// selectDevice picks the output device. Physical speakers are preferred over
// virtual sinks: a name containing "speaker" wins (skipping the Steam/Oculus
// virtual devices), otherwise the backend default is used.
func (o *Output) selectDevice(preferred string) {
	infos, err := o.ctx.Devices(malgo.Playback)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Device enumeration failed, using default output")
		return
	}

	if preferred != "" {
		want := strings.ToLower(preferred)
		for i := range infos {
			if strings.Contains(strings.ToLower(infos[i].Name()), want) {
				o.selected = &infos[i]
				o.logger.Info().Str("device", infos[i].Name()).Msg("Using configured output device")
				return
			}
		}
		o.logger.Warn().Str("device", preferred).Msg("Configured output device not found")
	}

	for i := range infos {
		name := strings.ToLower(infos[i].Name())
		if strings.Contains(name, "speaker") &&
			!strings.Contains(name, "steam") &&
			!strings.Contains(name, "oculus") {
			o.selected = &infos[i]
			o.logger.Info().Str("device", infos[i].Name()).Msg("Found speaker device")
			return
		}
	}
	o.logger.Info().Msg("No speaker device matched, using default output")
}

// Play renders the session to the device, blocking until the buffer is
// exhausted or ctx is cancelled. The device callback cadence and chunk size
// are chosen by the driver; Session.Fill handles whatever it asks for.
func (o *Output) Play(ctx context.Context, s *Session) error {
	buf := s.Buffer()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(buf.Channels)
	deviceConfig.SampleRate = uint32(buf.SampleRate)
	deviceConfig.PeriodSizeInFrames = 1024
	deviceConfig.Periods = 2
	if o.selected != nil {
		deviceConfig.Playback.DeviceID = o.selected.ID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, frameCount uint32) {
			s.Fill(outputSamples, frameCount)
		},
	}

	device, err := malgo.InitDevice(o.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("%w: init device: %v", ErrDeviceUnavailable, err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("%w: start device: %v", ErrDeviceUnavailable, err)
	}
	defer device.Stop()

	o.logger.Debug().
		Int("frames", buf.Frames()).
		Int("channels", buf.Channels).
		Int("sample_rate", buf.SampleRate).
		Dur("duration", buf.Duration()).
		Msg("Playback started")

	select {
	case <-ctx.Done():
		s.Finish()
		return ctx.Err()
	case <-s.Done():
		o.logger.Debug().Msg("Playback complete")
		return nil
	}
}

// Close releases the audio backend.
func (o *Output) Close() {
	if o.ctx != nil {
		_ = o.ctx.Uninit()
		o.ctx.Free()
		o.ctx = nil
	}
}
