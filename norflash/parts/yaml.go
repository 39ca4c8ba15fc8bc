package parts

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/norflash"
)

// yamlChip mirrors norflash.CommandTable and norflash.Config field for
// field so an unknown chip's opcode table and timings can be supplied
// as data instead of a compiled-in literal like W25Q or MX25L.
type yamlChip struct {
	Commands struct {
		WriteEnable  byte   `yaml:"write_enable"`
		WriteDisable byte   `yaml:"write_disable"`
		PageProgram  byte   `yaml:"page_program"`
		ReadData     byte   `yaml:"read_data"`
		ReadDataFast byte   `yaml:"read_data_fast"`
		WriteSR      byte   `yaml:"write_sr"`
		ReadSR       byte   `yaml:"read_sr"`
		ChipErase    byte   `yaml:"chip_erase"`
		JedecID      byte   `yaml:"jedec_id"`
		DeviceID     byte   `yaml:"device_id"`
		BlockErase   [5]byte `yaml:"block_erase"`
		BusyBit      byte   `yaml:"busy_bit"`
	} `yaml:"commands"`
	Config struct {
		ChipSize       uint32    `yaml:"chip_size"`
		PageSize       uint32    `yaml:"page_size"`
		AddrWidth      uint8     `yaml:"addr_width"`
		AddrDummyBytes uint8     `yaml:"addr_dummy_bytes"`
		BigEndianAddr  bool      `yaml:"big_endian_addr"`
		SRWriteMs      uint32    `yaml:"sr_write_ms"`
		PageProgramMs  uint32    `yaml:"page_program_ms"`
		ChipEraseMs    uint32    `yaml:"chip_erase_ms"`
		EraseMs        [5]uint32 `yaml:"erase_ms"`
	} `yaml:"config"`
}

// LoadYAML decodes a norflash.CommandTable and norflash.Config from r,
// for chip families not already compiled in as a parts.* literal.
func LoadYAML(r io.Reader) (*norflash.CommandTable, *norflash.Config, error) {
	var y yamlChip
	if err := yaml.NewDecoder(r).Decode(&y); err != nil {
		return nil, nil, fmt.Errorf("norflash/parts: decoding chip definition: %w", err)
	}
	cmds := &norflash.CommandTable{
		WriteEnable:  y.Commands.WriteEnable,
		WriteDisable: y.Commands.WriteDisable,
		PageProgram:  y.Commands.PageProgram,
		ReadData:     y.Commands.ReadData,
		ReadDataFast: y.Commands.ReadDataFast,
		WriteSR:      y.Commands.WriteSR,
		ReadSR:       y.Commands.ReadSR,
		ChipErase:    y.Commands.ChipErase,
		JedecID:      y.Commands.JedecID,
		DeviceID:     y.Commands.DeviceID,
		BlockErase:   y.Commands.BlockErase,
		BusyBit:      y.Commands.BusyBit,
	}
	cfg := &norflash.Config{
		ChipSize:       y.Config.ChipSize,
		PageSize:       y.Config.PageSize,
		AddrWidth:      y.Config.AddrWidth,
		AddrDummyBytes: y.Config.AddrDummyBytes,
		BigEndianAddr:  y.Config.BigEndianAddr,
		SRWriteMs:      y.Config.SRWriteMs,
		PageProgramMs:  y.Config.PageProgramMs,
		ChipEraseMs:    y.Config.ChipEraseMs,
		EraseMs:        y.Config.EraseMs,
	}
	return cmds, cfg, nil
}
