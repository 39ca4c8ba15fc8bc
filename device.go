// Package norflash is a hardware-agnostic driver for SPI NOR flash
// memories. It translates byte-range read/write/erase requests and
// status/register/ID accesses into the command, address, and data
// sequences a SPI NOR device expects, while enforcing page-program and
// block-erase alignment.
//
// The device handle (Device) runs a single operation state machine that
// supports two execution modes from the same code path: blocking, where
// every HAL action completes inline, and non-blocking, where each HAL
// action returns immediately and the caller re-enters the machine by
// calling Trigger from whatever completes it — a SPI-completion ISR, a
// timer, or a BUSY-line edge handler.
package norflash

import (
	"context"
	"fmt"
	"log/slog"
)

// Device is a SPI NOR flash device handle. It owns a reference to an
// immutable command table, an immutable configuration block, and a HAL,
// plus the mutable working state of at most one in-flight operation. A
// Device is not safe for concurrent use: the caller must ensure that
// requests and Trigger calls on the same handle never overlap.
type Device struct {
	cmds *CommandTable
	cfg  *Config
	hal  HAL

	blocking bool
	onDone   func(Op, error)

	// UserData is an opaque slot for callers to stash context they want
	// to recover from inside onDone or a HAL implementation.
	UserData any

	op    Op
	state state

	addr uint32

	wrBuf []byte // write: bytes still to be programmed
	rdBuf []byte // destination for any receive-oriented operation

	eraseRemaining uint32
	eraseStepSize  uint32
	eraseStepMs    uint32

	regWaitMs      uint32
	writeRegTarget state

	waitPeriodMs   uint32
	couldBeBusy    bool
	busyPreCheck   bool
	precheckActive bool
	busyCheckWait  busyState
	srData         byte

	scratch [scratchSize]byte
}

// New returns an idle device handle bound to cmds, cfg, and hal. cmds and
// cfg are borrowed and must not be mutated while any handle referencing
// them is in use. When blocking is false, onDone is invoked exactly once
// per started request, from whatever goroutine calls Trigger, with the
// Op that just finished (or was aborted) and its result.
//
// New returns a KindBadConfig error, without touching the bus, if cfg's
// AddrWidth or AddrDummyBytes would overflow the handle's fixed
// command-composition buffer (see scratchSize in hal.go).
func New(cmds *CommandTable, cfg *Config, hal HAL, blocking bool, onDone func(Op, error)) (*Device, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Device{
		cmds:     cmds,
		cfg:      cfg,
		hal:      hal,
		blocking: blocking,
		onDone:   onDone,
	}, nil
}

// IsBusy reports ErrBusy if an operation has been started since New (or
// the last completion) and has not yet finished, and nil otherwise. It
// performs no I/O.
func (d *Device) IsBusy() error {
	if d.op != OpIdle {
		return ErrBusy
	}
	return nil
}

// Write programs buf into the device starting at addr, splitting the
// transfer into per-page program cycles and polling the status register
// between them as needed.
func (d *Device) Write(ctx context.Context, addr uint32, buf []byte) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.addr = addr
	d.wrBuf = buf
	d.op = OpWrite
	d.state = stateWriteWREN
	return d.start(ctx)
}

// Erase erases the [addr, addr+length) range, decomposing it into the
// largest supported, aligned block-erase commands at each step. It
// rejects the request with ErrEraseUnaligned, without touching the bus,
// if the range cannot be decomposed at all.
func (d *Device) Erase(ctx context.Context, addr uint32, length uint32) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	if largestEraseArea(addr, length, d.cmds.eraseMask()) == 0 {
		return ErrEraseUnaligned
	}
	d.addr = addr
	d.eraseRemaining = length
	d.op = OpErase
	d.state = stateEraseBlockWREN
	return d.start(ctx)
}

// ChipErase erases the entire chip.
func (d *Device) ChipErase(ctx context.Context) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.op = OpChipErase
	d.state = stateEraseChipWREN
	return d.start(ctx)
}

// Read reads len(dst) bytes starting at addr into dst using the plain
// read command.
func (d *Device) Read(ctx context.Context, addr uint32, dst []byte) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.addr = addr
	d.rdBuf = dst
	d.op = OpRead
	d.state = stateRead
	return d.start(ctx)
}

// FastRead behaves like Read but uses the fast-read command (one extra
// dummy byte, typically a higher clock rate). If the command table has
// no fast-read opcode, it transparently falls back to a plain Read, per
// spec §4.1.
func (d *Device) FastRead(ctx context.Context, addr uint32, dst []byte) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.addr = addr
	d.rdBuf = dst
	if d.cmds.ReadDataFast == 0 {
		d.op = OpRead
		d.state = stateRead
	} else {
		d.op = OpFastRead
		d.state = stateFastRead
	}
	return d.start(ctx)
}

// WriteSR writes a new status-register byte.
func (d *Device) WriteSR(ctx context.Context, sr byte) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.scratch[0] = sr
	d.op = OpWriteSR
	d.state = stateWriteSRWREN
	return d.start(ctx)
}

// ReadSR reads the raw status-register byte into dst[0].
func (d *Device) ReadSR(ctx context.Context, dst []byte) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.rdBuf = dst
	d.op = OpReadSR
	d.state = stateReadSR
	return d.start(ctx)
}

// ReadSRBusy reads the status register and reduces it to a single busy
// flag: dst[0] is 1 if the busy bit is set, 0 otherwise.
func (d *Device) ReadSRBusy(ctx context.Context, dst []byte) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.rdBuf = dst
	d.op = OpReadSRBusy
	d.state = stateReadSRBusy
	return d.start(ctx)
}

// ReadJedecID reads the 3-byte JEDEC ID into dst.
func (d *Device) ReadJedecID(ctx context.Context, dst []byte) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.rdBuf = dst
	d.op = OpReadJedecID
	d.state = stateReadJedecID
	return d.start(ctx)
}

// ReadProductID reads the 3-byte device/product ID into dst.
func (d *Device) ReadProductID(ctx context.Context, dst []byte) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.rdBuf = dst
	d.op = OpReadProductID
	d.state = stateReadProductID
	return d.start(ctx)
}

// ReadReg reads a single vendor-specific register, identified by its
// dedicated opcode reg, into dst[0].
func (d *Device) ReadReg(ctx context.Context, reg byte, dst []byte) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.scratch[0] = reg
	d.rdBuf = dst
	d.op = OpReadReg
	d.state = stateReadReg
	return d.start(ctx)
}

// WriteReg writes a single vendor-specific register. If writeEnable is
// set, a write-enable command precedes it. If waitMs is non-zero, the
// write is followed by a wait of that duration and a busy-check round
// before the handle goes idle.
func (d *Device) WriteReg(ctx context.Context, reg, data byte, writeEnable bool, waitMs uint32) error {
	if d.op != OpIdle {
		return ErrBusy
	}
	d.scratch[0] = reg
	d.scratch[1] = data
	d.regWaitMs = waitMs
	target := stateWriteRegData
	if waitMs > 0 {
		target = stateWriteRegDataWait
	}
	d.op = OpWriteReg
	if writeEnable {
		d.writeRegTarget = target
		d.state = stateWriteRegWREN
	} else {
		d.state = target
	}
	return d.start(ctx)
}

// start is the execution driver (spec §4.2): it arms the busy pre-check
// from the couldBeBusy hint left by the previous operation, issues the
// first HAL action, and, in blocking mode, loops Trigger to completion
// inline. In non-blocking mode it returns as soon as the first action
// has been issued; further progress happens when the caller invokes
// Trigger.
func (d *Device) start(ctx context.Context) error {
	if d.couldBeBusy {
		d.busyPreCheck = true
	}
	err := d.begin(ctx)
	if err != nil {
		d.finalize(ctx, err)
		return err
	}
	if !d.blocking {
		return nil
	}
	for err == nil && d.op != OpIdle {
		err = d.Trigger(ctx, nil)
	}
	return err
}

// Trigger is async_trigger: the entry point an ISR, timer, or BUSY-line
// handler calls with the result of the HAL action the engine last
// issued. Blocking mode calls it internally to synthesize immediate
// completions. Calling it while the handle is idle returns KindBadState.
func (d *Device) Trigger(ctx context.Context, hwErr error) error {
	if d.op == OpIdle {
		return newErr(KindBadState, OpIdle)
	}
	if hwErr != nil {
		d.finalize(ctx, hwErr)
		return hwErr
	}

	if d.precheckActive {
		return d.completePrecheck(ctx)
	}
	if d.busyCheckWait != busyIdle {
		settled, err := d.busyComplete(ctx)
		if err != nil {
			d.finalize(ctx, err)
			return err
		}
		if !settled {
			return nil
		}
		err = d.afterBusyCheck(ctx)
		if err != nil {
			d.finalize(ctx, err)
			return err
		}
		return nil
	}

	err := d.complete(ctx)
	if err != nil {
		d.finalize(ctx, err)
		return err
	}
	return nil
}

// begin issues the very first HAL action of a freshly staged request:
// either the busy pre-check's read_sr, or, if no pre-check is armed, the
// current state's own entry action. The pre-check's status byte lands in
// the last scratch byte, so the bytes WriteSR, ReadReg and WriteReg staged
// at scratch[0] and scratch[1] survive it.
func (d *Device) begin(ctx context.Context) error {
	if d.busyPreCheck {
		d.precheckActive = true
		if err := d.hal.CS(ctx, true); err != nil {
			return err
		}
		var op [1]byte
		op[0] = d.cmds.ReadSR
		return d.hal.TxRx(ctx, op[:], d.scratch[scratchSize-1:])
	}
	return d.enter(ctx)
}

// completePrecheck processes the busy pre-check's read_sr result. A set
// busy bit aborts the request with KindHWBusy before any mutating
// command is ever issued, per spec §4.3.3.
func (d *Device) completePrecheck(ctx context.Context) error {
	d.precheckActive = false
	if err := d.hal.CS(ctx, false); err != nil {
		d.finalize(ctx, err)
		return err
	}
	d.srData = d.scratch[scratchSize-1]
	d.busyPreCheck = false
	d.couldBeBusy = false
	if d.srData&d.cmds.BusyBit != 0 {
		err := newErr(KindHWBusy, d.op)
		d.finalize(ctx, err)
		return err
	}
	err := d.enter(ctx)
	if err != nil {
		d.finalize(ctx, err)
		return err
	}
	return nil
}

// finishOp marks the hint the next request will act on — per the
// resolution of SPEC_FULL.md §9's first open question, couldBeBusy is
// set automatically whenever the operation that just finished may leave
// the chip busy — and finalizes with a nil error.
func (d *Device) finishOp(ctx context.Context) error {
	if d.op.mutates() {
		d.couldBeBusy = true
	}
	d.finalize(ctx, nil)
	return nil
}

// finalize implements spec §4.4: CS is deasserted, transient busy-check
// and pre-check state is cleared, op returns to idle, and — in
// non-blocking mode only — the completion callback fires exactly once
// with the op tag that just finished or failed.
func (d *Device) finalize(ctx context.Context, err error) {
	if csErr := d.hal.CS(ctx, false); csErr != nil {
		slog.Debug("norflash: CS deassert failed during finalize", "error", csErr)
	}
	d.waitPeriodMs = 0
	d.busyPreCheck = false
	d.precheckActive = false
	d.busyCheckWait = busyIdle

	finished := d.op
	d.op = OpIdle
	d.state = stateIdle

	if err != nil {
		slog.Debug("norflash: operation failed", "op", finished, "error", err)
	} else {
		slog.Debug("norflash: operation finished", "op", finished)
	}

	if !d.blocking && d.onDone != nil {
		d.onDone(finished, err)
	}
}

func (d *Device) composeAddrCmd(buf []byte, opcode byte) []byte {
	n := 1 + int(d.cfg.AddrWidth)
	out := buf[:n]
	out[0] = opcode
	putAddr(out[1:], d.addr, d.cfg.AddrWidth, d.cfg.BigEndianAddr)
	return out
}

func (d *Device) String() string {
	return fmt.Sprintf("norflash.Device{op=%s state=%s addr=%#x}", d.op, d.state, d.addr)
}
