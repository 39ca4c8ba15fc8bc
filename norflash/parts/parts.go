// Package parts carries compiled-in norflash.CommandTable and
// norflash.Config literals for common SPI NOR chip families, the way
// memory/25aa1024 hardcodes the 25AA1024's own opcode table instead of
// making it a runtime parameter.
package parts

import "github.com/mklimuk/norflash"

// Winbond W25Q series (W25Q16 through W25Q128): standard JEDEC opcode
// set, 256-byte pages, 3-byte addressing, 4/32/64 KiB erase (no 8 or
// 16 KiB erase opcode). Timings are the datasheet's typical (not max)
// values.
var W25Q = norflash.CommandTable{
	WriteEnable:  0x06,
	WriteDisable: 0x04,
	PageProgram:  0x02,
	ReadData:     0x03,
	ReadDataFast: 0x0B,
	WriteSR:      0x01,
	ReadSR:       0x05,
	ChipErase:    0xC7,
	JedecID:      0x9F,
	DeviceID:     0x90,
	BlockErase: [5]byte{
		0: 0x20, // 4 KiB sector erase
		1: 0,    // no 8 KiB opcode
		2: 0,    // no 16 KiB opcode
		3: 0x52, // 32 KiB block erase
		4: 0xD8, // 64 KiB block erase
	},
	BusyBit: 0x01,
}

var W25QConfig = norflash.Config{
	ChipSize:       8 * 1024 * 1024, // W25Q64: 64 Mbit
	PageSize:       256,
	AddrWidth:      3,
	AddrDummyBytes: 0,
	BigEndianAddr:  true,
	SRWriteMs:      15,
	PageProgramMs:  3,
	ChipEraseMs:    20000,
	EraseMs: [5]uint32{
		0: 45,
		3: 150,
		4: 200,
	},
}

// Macronix MX25L series: same JEDEC core opcode set as Winbond, but a
// dedicated 8 KiB block erase opcode where Winbond has none.
var MX25L = norflash.CommandTable{
	WriteEnable:  0x06,
	WriteDisable: 0x04,
	PageProgram:  0x02,
	ReadData:     0x03,
	ReadDataFast: 0x0B,
	WriteSR:      0x01,
	ReadSR:       0x05,
	ChipErase:    0x60,
	JedecID:      0x9F,
	DeviceID:     0x90,
	BlockErase: [5]byte{
		0: 0x20,
		1: 0x40,
		3: 0x52,
		4: 0xD8,
	},
	BusyBit: 0x01,
}

var MX25LConfig = norflash.Config{
	ChipSize:       8 * 1024 * 1024, // MX25L6406E: 64 Mbit
	PageSize:       256,
	AddrWidth:      3,
	AddrDummyBytes: 0,
	BigEndianAddr:  true,
	SRWriteMs:      40,
	PageProgramMs:  5,
	ChipEraseMs:    40000,
	EraseMs: [5]uint32{
		0: 60,
		1: 200,
		3: 650,
		4: 1000,
	},
}

// Microchip SST25 series: SST chips use AAI byte-programming on some
// parts, but the common SST25VF/SST25P line exposes a plain JEDEC
// page-program opcode, which is what this table targets. AddrDummyBytes
// is 0, so fast-read sends only the one dummy byte the engine always adds
// after the address for that command.
var SST25 = norflash.CommandTable{
	WriteEnable:  0x06,
	WriteDisable: 0x04,
	PageProgram:  0x02,
	ReadData:     0x03,
	ReadDataFast: 0x0B,
	WriteSR:      0x01,
	ReadSR:       0x05,
	ChipErase:    0xC7,
	JedecID:      0x9F,
	DeviceID:     0xAB,
	BlockErase: [5]byte{
		0: 0x20,
		4: 0xD8,
	},
	BusyBit: 0x01,
}

var SST25Config = norflash.Config{
	ChipSize:       1 * 1024 * 1024, // SST25VF080B: 8 Mbit
	PageSize:       256,
	AddrWidth:      3,
	AddrDummyBytes: 0,
	BigEndianAddr:  true,
	SRWriteMs:      10,
	PageProgramMs:  3,
	ChipEraseMs:    50000,
	EraseMs: [5]uint32{
		0: 25,
		4: 25,
	},
}
