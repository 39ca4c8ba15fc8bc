// Package periph adapts a periph.io/x/conn/v3 SPI port to the
// norflash.HAL interface, following the same host.Init + devfs-open
// pattern i2c.GenericBus uses for I2C.
package periph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/norflash"
)

// Bus wraps a periph SPI connection and exposes it as a norflash.HAL.
//
// periph establishes the SPI conn.Conn once, at Connect time, and every
// subsequent Tx(w, r) call is its own bracketed CS assertion with no way
// to keep it held across calls. As with the gobot backend, CS is a
// no-op here and multi-TxRx logical operations (page program) reach the
// wire as separate transactions per call.
type Bus struct {
	port spi.PortCloser
	conn spi.Conn
}

var _ norflash.HAL = (*Bus)(nil)

// New opens name (e.g. "/dev/spidev0.0" or a periph registry alias) at
// the given clock frequency and SPI mode, and binds it as a norflash.HAL.
func New(name string, freq physic.Frequency, mode spi.Mode) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("norflash/hal/periph: could not init host: %w", err)
	}
	slog.Debug("norflash/hal/periph: opening spi port", "name", name)
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("norflash/hal/periph: could not open spi port: %w", err)
	}
	conn, err := port.Connect(freq, mode, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("norflash/hal/periph: could not connect spi port: %w", err)
	}
	return &Bus{port: port, conn: conn}, nil
}

// TxRx transmits tx and then receives len(rx) bytes into rx, as one
// periph transaction. periph's Tx is full duplex, so tx is followed by
// len(rx) zero filler bytes and only the bytes clocked in after tx are
// kept.
func (b *Bus) TxRx(ctx context.Context, tx, rx []byte) error {
	if len(tx) == 0 && len(rx) == 0 {
		return nil
	}
	w := make([]byte, len(tx)+len(rx))
	copy(w, tx)
	r := make([]byte, len(w))
	if err := b.conn.Tx(w, r); err != nil {
		return fmt.Errorf("norflash/hal/periph: tx failed: %w", err)
	}
	copy(rx, r[len(tx):])
	return nil
}

// CS is a no-op; see the Bus doc comment.
func (b *Bus) CS(ctx context.Context, assert bool) error { return nil }

// Wait blocks the calling goroutine for ms milliseconds, or returns
// ctx.Err() if ctx is cancelled first.
func (b *Bus) Wait(ctx context.Context, ms uint32) error {
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the underlying SPI port.
func (b *Bus) Close() error {
	return b.port.Close()
}
