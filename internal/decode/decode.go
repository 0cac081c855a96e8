// Package decode holds the protocol decoder framework: a closed set of
// decoders, one per supported protocol, each running a pure read-only pass
// over a finalized capture. Identical (capture, parameters) input always
// yields an identical frame sequence, so decode passes are re-runnable with
// different parameters without re-acquiring hardware.
package decode

import (
	"errors"
	"fmt"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

var (
	// ErrBadParams means the decoder configuration is unusable (unknown
	// protocol, missing channel assignment, out-of-range framing numbers).
	ErrBadParams = errors.New("bad decoder parameters")
	// ErrChannelMissing means an assigned channel is not in the capture.
	ErrChannelMissing = errors.New("assigned channel not in capture")
)

// Decoder is the uniform decode contract. Implementations never mutate the
// capture.
type Decoder interface {
	Protocol() domain.SignalType
	Decode(c *domain.Capture) ([]domain.DecodedFrame, error)
}

// Config selects one protocol and carries its parameter struct. Exactly one
// parameter field matching Protocol must be set; the protocol set is fixed
// and finite, so dispatch is a plain switch rather than open registration.
type Config struct {
	Protocol domain.SignalType `yaml:"protocol"`
	UART     *UARTParams       `yaml:"uart,omitempty"`
	I2C      *I2CParams        `yaml:"i2c,omitempty"`
	SPI      *SPIParams        `yaml:"spi,omitempty"`
	OneWire  *OneWireParams    `yaml:"1wire,omitempty"`
	CAN      *CANParams        `yaml:"can,omitempty"`
	LIN      *LINParams        `yaml:"lin,omitempty"`
	PS2      *PS2Params        `yaml:"ps2,omitempty"`
}

// New builds the decoder for a config.
func New(cfg Config) (Decoder, error) {
	switch cfg.Protocol {
	case domain.SignalUART:
		if cfg.UART == nil {
			return nil, fmt.Errorf("%w: uart parameters missing", ErrBadParams)
		}
		return NewUART(*cfg.UART)
	case domain.SignalI2C:
		if cfg.I2C == nil {
			return nil, fmt.Errorf("%w: i2c parameters missing", ErrBadParams)
		}
		return NewI2C(*cfg.I2C)
	case domain.SignalSPI:
		if cfg.SPI == nil {
			return nil, fmt.Errorf("%w: spi parameters missing", ErrBadParams)
		}
		return NewSPI(*cfg.SPI)
	case domain.SignalOneWire:
		if cfg.OneWire == nil {
			return nil, fmt.Errorf("%w: 1-wire parameters missing", ErrBadParams)
		}
		return NewOneWire(*cfg.OneWire)
	case domain.SignalCAN:
		if cfg.CAN == nil {
			return nil, fmt.Errorf("%w: can parameters missing", ErrBadParams)
		}
		return NewCAN(*cfg.CAN)
	case domain.SignalLIN:
		if cfg.LIN == nil {
			return nil, fmt.Errorf("%w: lin parameters missing", ErrBadParams)
		}
		return NewLIN(*cfg.LIN)
	case domain.SignalPS2:
		if cfg.PS2 == nil {
			return nil, fmt.Errorf("%w: ps2 parameters missing", ErrBadParams)
		}
		return NewPS2(*cfg.PS2)
	default:
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrBadParams, cfg.Protocol)
	}
}
