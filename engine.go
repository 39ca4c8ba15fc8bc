package norflash

import "context"

// enter issues the single HAL action associated with the handle's
// current state tag (spec §4.3: "each state issues one HAL action ...
// then returns, letting the completion handler advance").
func (d *Device) enter(ctx context.Context) error {
	switch d.state {
	case stateWriteWREN, stateEraseBlockWREN, stateEraseChipWREN, stateWriteSRWREN, stateWriteRegWREN:
		return d.enterWREN(ctx)
	case stateWriteSAdd:
		return d.enterWriteSAdd(ctx)
	case stateWriteSData:
		return d.enterWriteSData(ctx)
	case stateEraseBlockSend:
		return d.enterEraseBlockSend(ctx)
	case stateEraseChipSend:
		return d.enterEraseChipSend(ctx)
	case stateWriteSRSend:
		return d.enterWriteSRSend(ctx)
	case stateRead:
		return d.enterRead(ctx)
	case stateFastRead:
		return d.enterFastRead(ctx)
	case stateReadSR, stateReadSRBusy:
		return d.enterReadSR(ctx)
	case stateReadJedecID:
		return d.enterReadID(ctx, d.cmds.JedecID)
	case stateReadProductID:
		return d.enterReadID(ctx, d.cmds.DeviceID)
	case stateReadReg:
		return d.enterReadReg(ctx)
	case stateWriteRegData, stateWriteRegDataWait:
		return d.enterWriteRegData(ctx)
	default:
		return newErr(KindInternal, d.op)
	}
}

// complete processes the result of the action enter last issued for the
// handle's current state, and either advances to the next state (calling
// enter again) or finalizes.
func (d *Device) complete(ctx context.Context) error {
	switch d.state {
	case stateWriteWREN:
		return d.afterWREN(ctx, stateWriteSAdd)
	case stateWriteSAdd:
		return d.completeWriteSAdd(ctx)
	case stateWriteSData:
		return d.completeWriteSData(ctx)
	case stateEraseBlockWREN:
		return d.afterWREN(ctx, stateEraseBlockSend)
	case stateEraseBlockSend:
		return d.completeEraseBlockSend(ctx)
	case stateEraseChipWREN:
		return d.afterWREN(ctx, stateEraseChipSend)
	case stateEraseChipSend:
		return d.completeEraseChipSend(ctx)
	case stateWriteSRWREN:
		return d.afterWREN(ctx, stateWriteSRSend)
	case stateWriteSRSend:
		return d.completeWriteSRSend(ctx)
	case stateRead, stateFastRead:
		return d.completeRead(ctx)
	case stateReadSR:
		return d.completeReadSR(ctx)
	case stateReadSRBusy:
		return d.completeReadSRBusy(ctx)
	case stateReadJedecID, stateReadProductID, stateReadReg:
		return d.completeSimpleRead(ctx)
	case stateWriteRegWREN:
		return d.afterWREN(ctx, d.writeRegTarget)
	case stateWriteRegData:
		return d.finishOp(ctx)
	case stateWriteRegDataWait:
		return d.completeWriteRegDataWait(ctx)
	default:
		return newErr(KindInternal, d.op)
	}
}

// afterBusyCheck resumes the operation's own state machine once the
// busy-check subengine has settled (spec §4.3.3 exits into "the
// transition to the next operation state (or idle)").
func (d *Device) afterBusyCheck(ctx context.Context) error {
	switch d.state {
	case stateWriteSData:
		if len(d.wrBuf) == 0 {
			return d.finishOp(ctx)
		}
		d.state = stateWriteWREN
		return d.enter(ctx)
	case stateEraseBlockSend:
		if d.eraseRemaining == 0 {
			return d.finishOp(ctx)
		}
		d.state = stateEraseBlockWREN
		return d.enter(ctx)
	case stateEraseChipSend, stateWriteSRSend, stateWriteRegDataWait:
		return d.finishOp(ctx)
	default:
		return newErr(KindInternal, d.op)
	}
}

// --- write-enable (shared by every mutating sequence) ---

func (d *Device) enterWREN(ctx context.Context) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	var op [1]byte
	op[0] = d.cmds.WriteEnable
	return d.hal.TxRx(ctx, op[:], nil)
}

func (d *Device) afterWREN(ctx context.Context, next state) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	d.state = next
	return d.enter(ctx)
}

// --- write ---

func (d *Device) enterWriteSAdd(ctx context.Context) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	cmd := d.composeAddrCmd(d.scratch[:], d.cmds.PageProgram)
	return d.hal.TxRx(ctx, cmd, nil)
}

func (d *Device) completeWriteSAdd(ctx context.Context) error {
	// Command and address sent; CS stays asserted so the data phase
	// below is clocked into the same page-program transaction.
	d.state = stateWriteSData
	return d.enter(ctx)
}

func (d *Device) pageChunk() uint32 {
	pageOff := d.addr % d.cfg.PageSize
	space := d.cfg.PageSize - pageOff
	n := uint32(len(d.wrBuf))
	if n > space {
		n = space
	}
	return n
}

func (d *Device) enterWriteSData(ctx context.Context) error {
	n := d.pageChunk()
	return d.hal.TxRx(ctx, d.wrBuf[:n], nil)
}

func (d *Device) completeWriteSData(ctx context.Context) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	n := d.pageChunk()
	d.addr += n
	d.wrBuf = d.wrBuf[n:]
	return d.startBusyCheck(ctx, d.cfg.PageProgramMs)
}

// --- block erase ---

func (d *Device) enterEraseBlockSend(ctx context.Context) error {
	size := largestEraseArea(d.addr, d.eraseRemaining, d.cmds.eraseMask())
	if size == 0 {
		return newErr(KindBadConfig, d.op)
	}
	idx := eraseSizeIndex(size)
	opcode := d.cmds.BlockErase[idx]
	if opcode == 0 {
		return newErr(KindBadConfig, d.op)
	}
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	d.eraseStepSize = size
	d.eraseStepMs = d.cfg.EraseMs[idx]
	cmd := d.composeAddrCmd(d.scratch[:], opcode)
	return d.hal.TxRx(ctx, cmd, nil)
}

func (d *Device) completeEraseBlockSend(ctx context.Context) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	d.addr += d.eraseStepSize
	d.eraseRemaining -= d.eraseStepSize
	return d.startBusyCheck(ctx, d.eraseStepMs)
}

// --- chip erase ---

func (d *Device) enterEraseChipSend(ctx context.Context) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	var op [1]byte
	op[0] = d.cmds.ChipErase
	return d.hal.TxRx(ctx, op[:], nil)
}

func (d *Device) completeEraseChipSend(ctx context.Context) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	return d.startBusyCheck(ctx, d.cfg.ChipEraseMs)
}

// --- write status register ---

func (d *Device) enterWriteSRSend(ctx context.Context) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	var cmd [2]byte
	cmd[0] = d.cmds.WriteSR
	cmd[1] = d.scratch[0]
	return d.hal.TxRx(ctx, cmd[:], nil)
}

func (d *Device) completeWriteSRSend(ctx context.Context) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	return d.startBusyCheck(ctx, d.cfg.SRWriteMs)
}

// --- read / fast read ---

func (d *Device) readHeaderLen(fast bool) int {
	n := 1 + int(d.cfg.AddrWidth) + int(d.cfg.AddrDummyBytes)
	if fast {
		n++
	}
	return n
}

func (d *Device) composeReadHeader(fast bool, opcode byte) []byte {
	n := d.readHeaderLen(fast)
	buf := d.scratch[:n]
	buf[0] = opcode
	putAddr(buf[1:], d.addr, d.cfg.AddrWidth, d.cfg.BigEndianAddr)
	for i := 1 + int(d.cfg.AddrWidth); i < n; i++ {
		buf[i] = 0
	}
	return buf
}

func (d *Device) enterRead(ctx context.Context) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	header := d.composeReadHeader(false, d.cmds.ReadData)
	return d.hal.TxRx(ctx, header, d.rdBuf)
}

func (d *Device) enterFastRead(ctx context.Context) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	header := d.composeReadHeader(true, d.cmds.ReadDataFast)
	return d.hal.TxRx(ctx, header, d.rdBuf)
}

func (d *Device) completeRead(ctx context.Context) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	return d.finishOp(ctx)
}

// --- status register reads ---

func (d *Device) enterReadSR(ctx context.Context) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	var op [1]byte
	op[0] = d.cmds.ReadSR
	return d.hal.TxRx(ctx, op[:], d.scratch[:1])
}

func (d *Device) completeReadSR(ctx context.Context) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	if len(d.rdBuf) > 0 {
		d.rdBuf[0] = d.scratch[0]
	}
	return d.finishOp(ctx)
}

func (d *Device) completeReadSRBusy(ctx context.Context) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	if len(d.rdBuf) > 0 {
		if d.scratch[0]&d.cmds.BusyBit != 0 {
			d.rdBuf[0] = 1
		} else {
			d.rdBuf[0] = 0
		}
	}
	return d.finishOp(ctx)
}

// --- JEDEC / product ID, vendor register reads ---

func (d *Device) enterReadID(ctx context.Context, opcode byte) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	var op [1]byte
	op[0] = opcode
	n := len(d.rdBuf)
	if n > 3 {
		n = 3
	}
	return d.hal.TxRx(ctx, op[:], d.rdBuf[:n])
}

func (d *Device) enterReadReg(ctx context.Context) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	var op [1]byte
	op[0] = d.scratch[0]
	n := len(d.rdBuf)
	if n > 1 {
		n = 1
	}
	return d.hal.TxRx(ctx, op[:], d.rdBuf[:n])
}

func (d *Device) completeSimpleRead(ctx context.Context) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	return d.finishOp(ctx)
}

// --- vendor register write ---

func (d *Device) enterWriteRegData(ctx context.Context) error {
	if err := d.hal.CS(ctx, true); err != nil {
		return err
	}
	var cmd [2]byte
	cmd[0] = d.scratch[0]
	cmd[1] = d.scratch[1]
	return d.hal.TxRx(ctx, cmd[:], nil)
}

func (d *Device) completeWriteRegDataWait(ctx context.Context) error {
	if err := d.hal.CS(ctx, false); err != nil {
		return err
	}
	return d.startBusyCheck(ctx, d.regWaitMs)
}
