package norflash

import "context"

// busyState is the busy-check subengine's own sub-state, orthogonal to
// the operation state machine's state tag (spec §4.3.3). It is active
// (non-idle) only between the end of an SR-mutating transaction and the
// transition to the next operation state or to idle.
type busyState int

const (
	busyIdle busyState = iota
	busyWait
	busyReadSR
	// busyCheck is never assigned to (*Device).busyCheckWait — it names
	// the evaluation that happens synchronously right after a busyReadSR
	// transaction completes (CS is deasserted and the busy bit is
	// inspected), since that evaluation needs no HAL action of its own
	// and so is never itself a suspension point. It is kept in the enum
	// to document where the spec's four-state list lands in this port.
	busyCheck
)

// halveWait halves a wait period, rounding up to at least 1ms, per spec
// §9's "floor(1/2)==0 becomes 1" note.
func halveWait(ms uint32) uint32 {
	h := ms / 2
	if h < 1 {
		return 1
	}
	return h
}

// startBusyCheck arms the subengine with an initial wait period and
// issues its first action. Called once, right after CS has already been
// deasserted at the end of the mutating transaction that may have left
// the chip busy.
func (d *Device) startBusyCheck(ctx context.Context, initialMs uint32) error {
	d.waitPeriodMs = initialMs
	d.busyCheckWait = busyWait
	return d.busyBegin(ctx)
}

// busyBegin issues the HAL action for the subengine's current sub-state.
func (d *Device) busyBegin(ctx context.Context) error {
	switch d.busyCheckWait {
	case busyWait:
		if err := d.hal.CS(ctx, false); err != nil {
			return err
		}
		return d.hal.Wait(ctx, d.waitPeriodMs)
	case busyReadSR:
		if err := d.hal.CS(ctx, true); err != nil {
			return err
		}
		var op [1]byte
		op[0] = d.cmds.ReadSR
		return d.hal.TxRx(ctx, op[:], d.scratch[:1])
	default:
		return newErr(KindInternal, d.op)
	}
}

// busyComplete processes the result of the action busyBegin last issued.
// settled reports whether the subengine has finished (busy bit clear, or
// a zero-wait_period_ms BUSY-pin wait returned) and the caller should
// resume the operation's own state machine via afterBusyCheck.
func (d *Device) busyComplete(ctx context.Context) (settled bool, err error) {
	switch d.busyCheckWait {
	case busyWait:
		if d.waitPeriodMs == 0 {
			// BUSY-pin mode: Wait blocked (or, in non-blocking mode,
			// suspended) until the device signalled ready.
			d.busyCheckWait = busyIdle
			return true, nil
		}
		d.busyCheckWait = busyReadSR
		return false, d.busyBegin(ctx)
	case busyReadSR:
		if err := d.hal.CS(ctx, false); err != nil {
			return false, err
		}
		d.srData = d.scratch[0]
		if d.srData&d.cmds.BusyBit != 0 {
			d.waitPeriodMs = halveWait(d.waitPeriodMs)
			d.busyCheckWait = busyWait
			return false, d.busyBegin(ctx)
		}
		d.busyCheckWait = busyIdle
		return true, nil
	default:
		return false, newErr(KindInternal, d.op)
	}
}
