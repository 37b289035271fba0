// Package vmc sends blend shape frames to a VMC receiver (VSeeFace) over
// OSC/UDP. The protocol is fire-and-forget: no acks, no retries. Losing a
// frame at tick rate is imperceptible, so send errors are swallowed.
package vmc

import (
	"github.com/hypebeast/go-osc/osc"
	"github.com/rs/zerolog"

	"github.com/normanking/vmcbridge/internal/lipsync"
)

// VMC extension addresses for blend shape control.
const (
	blendValAddr   = "/VMC/Ext/Blend/Val"
	blendApplyAddr = "/VMC/Ext/Blend/Apply"
)

// Client transmits shape frames via the VMC protocol. A disabled Client (or
// a nil one) is a no-op sender, so callers never need to branch on whether
// lip sync is configured.
type Client struct {
	osc    *osc.Client
	host   string
	port   int
	logger zerolog.Logger
}

// NewClient creates a transmitter for the given VMC target. With enabled set
// to false the client is constructed but never opens a socket.
func NewClient(host string, port int, enabled bool, logger zerolog.Logger) *Client {
	c := &Client{
		host:   host,
		port:   port,
		logger: logger.With().Str("component", "vmc").Logger(),
	}
	if enabled {
		c.osc = osc.NewClient(host, port)
		c.logger.Info().Str("host", host).Int("port", port).Msg("VMC lip sync sender ready")
	} else {
		c.logger.Info().Msg("VMC lip sync disabled")
	}
	return c
}

// Enabled reports whether frames will actually be transmitted.
func (c *Client) Enabled() bool {
	return c != nil && c.osc != nil
}

// Port returns the configured VMC port.
func (c *Client) Port() int {
	if c == nil {
		return 0
	}
	return c.port
}

// Send transmits one frame: a Blend/Val message per shape followed by a
// single Blend/Apply so the receiver commits all five weights atomically.
// Best-effort; failures are logged at debug level and dropped.
func (c *Client) Send(frame lipsync.ShapeFrame) {
	if !c.Enabled() {
		return
	}
	for i, name := range lipsync.ShapeNames {
		msg := osc.NewMessage(blendValAddr)
		msg.Append(name)
		msg.Append(float32(frame[i]))
		if err := c.osc.Send(msg); err != nil {
			c.logger.Debug().Err(err).Msg("Blend value send failed")
			return
		}
	}
	if err := c.osc.Send(osc.NewMessage(blendApplyAddr)); err != nil {
		c.logger.Debug().Err(err).Msg("Blend apply send failed")
	}
}
