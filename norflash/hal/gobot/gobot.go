// Package gobot adapts a gobot.io/x/gobot/v2 SPI connector to the
// norflash.HAL interface, the same way memory/25aa1024 wraps a
// gobot spi.Connector for the Microchip 25AA1024 EEPROM.
package gobot

import (
	"context"
	"fmt"
	"time"

	"gobot.io/x/gobot/v2/drivers/spi"

	"github.com/mklimuk/norflash"
)

// Device wraps a gobot SPI driver and exposes it as a norflash.HAL.
//
// gobot's sysfs SPI connection asserts and deasserts chip-select around
// every ReadCommandData/WriteBytes call on its own; it exposes no way to
// keep CS held across two such calls. CS is therefore a no-op here, and
// any operation in norflash's engine that issues two TxRx calls under
// one logical CS bracket (page program's address phase followed by its
// data phase) reaches the wire as two separate SPI transactions instead
// of one continuous one. Chips that require a single unbroken
// transaction for page program need a HAL written directly against a
// microcontroller SPI peripheral with a GPIO-driven CS line instead.
type Device struct {
	*spi.Driver
}

var _ norflash.HAL = (*Device)(nil)

// New returns a HAL bound to a gobot SPI adaptor. bus is passed to
// spi.NewDriver as the driver name. cs is not used: the bus and chip
// numbers the driver talks to come from the adaptor's defaults or from
// opts.
func New(adaptor spi.Connector, bus string, cs byte, opts ...func(spi.Config)) *Device {
	d := spi.NewDriver(adaptor, bus, opts...)
	d.SetMode(0)
	if d.GetSpeedOrDefault(0) == 0 {
		d.SetSpeed(20_000_000)
	}
	return &Device{Driver: d}
}

// Start establishes the SPI bus. Required by gobot.Driver.
func (d *Device) Start() error { return d.Driver.Start() }

// Halt releases the bus.
func (d *Device) Halt() error { return d.Driver.Halt() }

type spiOps interface {
	ReadCommandData(command []byte, data []byte) error
	WriteBytes(data []byte) error
}

// TxRx sends tx (if any) then receives into rx (if any), as one gobot
// SPI call. ctx is accepted for interface conformance; gobot's sysfs
// connection does not support cancellation mid-transfer.
func (d *Device) TxRx(ctx context.Context, tx, rx []byte) error {
	if d == nil || d.Driver == nil {
		return fmt.Errorf("norflash/hal/gobot: driver not started")
	}
	ops, ok := d.Driver.Connection().(spiOps)
	if !ok {
		return fmt.Errorf("norflash/hal/gobot: connection does not support required operations")
	}
	if len(rx) == 0 {
		if len(tx) == 0 {
			return nil
		}
		return ops.WriteBytes(tx)
	}
	return ops.ReadCommandData(tx, rx)
}

// CS is a no-op; see the Device doc comment.
func (d *Device) CS(ctx context.Context, assert bool) error { return nil }

// Wait blocks the calling goroutine for ms milliseconds, or returns
// ctx.Err() if ctx is cancelled first.
func (d *Device) Wait(ctx context.Context, ms uint32) error {
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
