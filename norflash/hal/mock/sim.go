package mock

import (
	"context"
	"fmt"

	"github.com/mklimuk/norflash"
)

// Sim is a small in-memory SPI NOR simulator: a norflash.HAL that
// actually carries out program/erase/read/status/ID/register semantics
// against a backing byte slice, in the spirit of
// environment.NewMockTemperatureAndHumiditySensor's "behave like the
// real thing without hardware" approach. It never reports the chip
// busy, so it is meant for exercising data-path correctness (the CLI's
// dry-run mode, engine integration tests) rather than busy-wait timing,
// which busy_test.go covers with its own scripted fakeBusyHAL.
type Sim struct {
	Cmds *norflash.CommandTable
	Cfg  *norflash.Config

	mem  []byte
	regs map[byte]byte

	asserted bool
	pending  simOp

	failNextCS error
}

type simOp struct {
	active bool
	opcode byte
	addr   uint32
}

var _ norflash.HAL = (*Sim)(nil)

// NewSim returns a simulator with cfg.ChipSize bytes of backing storage,
// erased (all 0xFF) to start.
func NewSim(cmds *norflash.CommandTable, cfg *norflash.Config) *Sim {
	mem := make([]byte, cfg.ChipSize)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &Sim{Cmds: cmds, Cfg: cfg, mem: mem, regs: make(map[byte]byte)}
}

// Contents returns the simulator's backing storage. The returned slice
// aliases Sim's internal buffer; callers must not retain it across a
// subsequent mutating call.
func (s *Sim) Contents() []byte { return s.mem }

// FailNextCS arranges for the next call to CS to return err instead of
// succeeding, then clears the hook. It is meant for exercising HAL-error
// handling (e.g. that a failure of an operation's very first action
// still reaches finalize) without a full testify/mock expectation.
func (s *Sim) FailNextCS(err error) {
	s.failNextCS = err
}

func (s *Sim) CS(ctx context.Context, assert bool) error {
	if s.failNextCS != nil {
		err := s.failNextCS
		s.failNextCS = nil
		return err
	}
	s.asserted = assert
	if !assert {
		s.pending = simOp{}
	}
	return nil
}

func (s *Sim) Wait(ctx context.Context, ms uint32) error { return nil }

func (s *Sim) TxRx(ctx context.Context, tx, rx []byte) error {
	if !s.asserted {
		return fmt.Errorf("norflash/hal/mock: TxRx with CS deasserted")
	}
	if s.pending.active {
		return s.continuePageProgram(tx)
	}
	if len(tx) == 0 {
		return nil
	}
	opcode := tx[0]

	switch opcode {
	case s.Cmds.WriteEnable, s.Cmds.WriteDisable:
		return nil
	case s.Cmds.ChipErase:
		for i := range s.mem {
			s.mem[i] = 0xFF
		}
		return nil
	case s.Cmds.ReadSR:
		if len(rx) > 0 {
			rx[0] = 0
		}
		return nil
	case s.Cmds.WriteSR:
		return nil
	case s.Cmds.JedecID:
		return s.fillID(rx, 0xEF, 0x40, 0x18)
	case s.Cmds.DeviceID:
		return s.fillID(rx, 0xEF, 0x14)
	case s.Cmds.ReadData, s.Cmds.ReadDataFast:
		addr, err := s.addrFromHeader(tx, opcode == s.Cmds.ReadDataFast)
		if err != nil {
			return err
		}
		return s.readAt(addr, rx)
	case s.Cmds.PageProgram:
		addr, err := s.addrFromHeader(tx, false)
		if err != nil {
			return err
		}
		s.pending = simOp{active: true, opcode: opcode, addr: addr}
		return nil
	}
	for i, be := range s.Cmds.BlockErase {
		if be != 0 && be == opcode {
			addr, err := s.addrFromHeader(tx, false)
			if err != nil {
				return err
			}
			return s.eraseAt(addr, eraseSize(i))
		}
	}
	// Anything else is treated as a vendor register access: ReadReg sends
	// a single opcode byte and expects rx[0]; WriteReg sends opcode+data.
	if len(tx) == 1 && len(rx) > 0 {
		rx[0] = s.regs[opcode]
		return nil
	}
	if len(tx) == 2 {
		s.regs[opcode] = tx[1]
		return nil
	}
	return fmt.Errorf("norflash/hal/mock: unrecognized opcode %#x", opcode)
}

func eraseSize(idx int) uint32 {
	return uint32(4*1024) << uint(idx)
}

func (s *Sim) continuePageProgram(tx []byte) error {
	addr := s.pending.addr
	if int(addr)+len(tx) > len(s.mem) {
		return fmt.Errorf("norflash/hal/mock: page program out of range")
	}
	copy(s.mem[addr:], tx)
	return nil
}

func (s *Sim) addrFromHeader(tx []byte, fast bool) (uint32, error) {
	w := int(s.Cfg.AddrWidth)
	if len(tx) < 1+w {
		return 0, fmt.Errorf("norflash/hal/mock: short command header")
	}
	var addr uint32
	b := tx[1 : 1+w]
	if s.Cfg.BigEndianAddr {
		for _, c := range b {
			addr = addr<<8 | uint32(c)
		}
	} else {
		for i := len(b) - 1; i >= 0; i-- {
			addr = addr<<8 | uint32(b[i])
		}
	}
	return addr, nil
}

func (s *Sim) readAt(addr uint32, rx []byte) error {
	if int(addr)+len(rx) > len(s.mem) {
		return fmt.Errorf("norflash/hal/mock: read out of range")
	}
	copy(rx, s.mem[addr:])
	return nil
}

func (s *Sim) eraseAt(addr, size uint32) error {
	if int(addr)+int(size) > len(s.mem) {
		return fmt.Errorf("norflash/hal/mock: erase out of range")
	}
	for i := uint32(0); i < size; i++ {
		s.mem[addr+i] = 0xFF
	}
	return nil
}

func (s *Sim) fillID(rx []byte, id ...byte) error {
	n := len(rx)
	if n > len(id) {
		n = len(id)
	}
	copy(rx, id[:n])
	return nil
}
