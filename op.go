package norflash

// Op identifies the high-level operation currently in flight on a device
// handle (or the one that just finished/failed, as reported to the
// completion callback). OpIdle is both the initial and terminal value —
// the handle invariant is op == OpIdle iff no operation is in flight.
type Op int

const (
	OpIdle Op = iota
	OpWrite
	OpErase
	OpChipErase
	OpRead
	OpFastRead
	OpWriteSR
	OpReadSR
	OpReadSRBusy
	OpReadJedecID
	OpReadProductID
	OpReadReg
	OpWriteReg
)

func (o Op) String() string {
	switch o {
	case OpIdle:
		return "idle"
	case OpWrite:
		return "write"
	case OpErase:
		return "erase"
	case OpChipErase:
		return "chip_erase"
	case OpRead:
		return "read"
	case OpFastRead:
		return "fast_read"
	case OpWriteSR:
		return "write_sr"
	case OpReadSR:
		return "read_sr"
	case OpReadSRBusy:
		return "read_sr_busy"
	case OpReadJedecID:
		return "read_jedec"
	case OpReadProductID:
		return "read_product"
	case OpReadReg:
		return "read_reg"
	case OpWriteReg:
		return "write_reg"
	default:
		return "unknown"
	}
}

// mutates reports whether an operation may leave the chip in a state
// where the status register busy bit is still set when it finishes
// (program/erase/SR-write cycles). Per the resolution of the first open
// question in SPEC_FULL.md §9, the handle uses this to decide whether to
// arm the busy pre-check for whichever operation is requested next.
func (o Op) mutates() bool {
	switch o {
	case OpWrite, OpErase, OpChipErase, OpWriteSR, OpWriteReg:
		return true
	default:
		return false
	}
}

// state is the internal micro-state tag the engine advances through.
// Several states (state tags) share one Op for callback-reporting
// purposes; e.g. OpWrite spans stateWriteWREN, stateWriteSAdd and
// stateWriteSData, looping for each page.
type state int

const (
	stateIdle state = iota

	stateWriteWREN
	stateWriteSAdd
	stateWriteSData

	stateEraseBlockWREN
	stateEraseBlockSend

	stateEraseChipWREN
	stateEraseChipSend

	stateWriteSRWREN
	stateWriteSRSend

	stateRead
	stateFastRead

	stateReadSR
	stateReadSRBusy

	stateReadJedecID
	stateReadProductID
	stateReadReg

	stateWriteRegWREN
	stateWriteRegData
	stateWriteRegDataWait
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateWriteWREN:
		return "write_wren"
	case stateWriteSAdd:
		return "write_sadd"
	case stateWriteSData:
		return "write_sdata"
	case stateEraseBlockWREN:
		return "erase_wren"
	case stateEraseBlockSend:
		return "erase_seras"
	case stateEraseChipWREN:
		return "erase_chip_wren"
	case stateEraseChipSend:
		return "erase_chip_seras"
	case stateWriteSRWREN:
		return "write_sr_wren"
	case stateWriteSRSend:
		return "write_sr_sdata"
	case stateRead:
		return "read"
	case stateFastRead:
		return "fast_read"
	case stateReadSR:
		return "read_sr"
	case stateReadSRBusy:
		return "read_sr_busy"
	case stateReadJedecID:
		return "read_jedec"
	case stateReadProductID:
		return "read_product"
	case stateReadReg:
		return "read_reg"
	case stateWriteRegWREN:
		return "write_reg_wren"
	case stateWriteRegData:
		return "write_reg_data"
	case stateWriteRegDataWait:
		return "write_reg_sdatawait"
	default:
		return "unknown"
	}
}
