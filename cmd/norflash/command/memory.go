// Package command implements the norflash CLI's flash-access
// subcommands, grounded on cmd/sensors/command/memory.go's urfave/cli/v2
// pattern.
package command

import (
	"context"
	"encoding/hex"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/norflash"
	"github.com/mklimuk/norflash/cmd/norflash/console"
	halmock "github.com/mklimuk/norflash/norflash/hal/mock"
	halperiph "github.com/mklimuk/norflash/norflash/hal/periph"
	"github.com/mklimuk/norflash/norflash/parts"
	"github.com/mklimuk/norflash/norflashctx"
)

var partsByName = map[string]struct {
	cmds *norflash.CommandTable
	cfg  *norflash.Config
}{
	"w25q":  {&parts.W25Q, &parts.W25QConfig},
	"mx25l": {&parts.MX25L, &parts.MX25LConfig},
	"sst25": {&parts.SST25, &parts.SST25Config},
}

var commonFlags = []cli.Flag{
	&cli.StringFlag{Name: "part", Usage: "chip family (w25q, mx25l, sst25)", Value: "w25q"},
	&cli.StringFlag{Name: "spi-device", Usage: "SPI devfs path or periph registry alias", Value: "/dev/spidev0.0"},
	&cli.IntFlag{Name: "speed-hz", Usage: "SPI clock speed in Hz", Value: 20_000_000},
	&cli.BoolFlag{Name: "dry-run", Usage: "use an in-memory simulator instead of real hardware"},
}

func openDevice(c *cli.Context) (*norflash.Device, func() error, error) {
	part, ok := partsByName[c.String("part")]
	if !ok {
		return nil, nil, fmt.Errorf("unknown part %q", c.String("part"))
	}
	if c.Bool("dry-run") {
		sim := halmock.NewSim(part.cmds, part.cfg)
		d, err := norflash.New(part.cmds, part.cfg, sim, true, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("could not build device: %w", err)
		}
		return d, func() error { return nil }, nil
	}
	bus, err := halperiph.New(c.String("spi-device"), physic.Frequency(c.Int("speed-hz"))*physic.Hertz, spi.Mode0)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open spi device: %w", err)
	}
	d, err := norflash.New(part.cmds, part.cfg, bus, true, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("could not build device: %w", err)
	}
	return d, bus.Close, nil
}

var MemoryReadCmd = &cli.Command{
	Name:  "read",
	Usage: "read flash memory",
	Flags: append(append([]cli.Flag{}, commonFlags...),
		&cli.IntFlag{Name: "address", Usage: "start address", Required: true},
		&cli.IntFlag{Name: "length", Usage: "number of bytes to read", Value: 16},
		&cli.BoolFlag{Name: "fast", Usage: "use the fast-read command"},
	),
	Action: func(c *cli.Context) error {
		ctx := norflashctx.SetVerbose(context.Background(), c.Bool("verbose"))
		d, closeFn, err := openDevice(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		defer closeFn()

		buf := make([]byte, c.Int("length"))
		addr := uint32(c.Int("address"))
		if c.Bool("fast") {
			err = d.FastRead(ctx, addr, buf)
		} else {
			err = d.Read(ctx, addr, buf)
		}
		if err != nil {
			return console.Exit(1, "read failed: %v", err)
		}
		console.Printf("%s", hex.Dump(buf))
		return nil
	},
}

var MemoryWriteCmd = &cli.Command{
	Name:  "write",
	Usage: "write flash memory",
	Flags: append(append([]cli.Flag{}, commonFlags...),
		&cli.IntFlag{Name: "address", Usage: "start address", Required: true},
		&cli.StringFlag{Name: "data", Usage: "hex bytes to write (e.g. '01FF23')", Required: true},
	),
	Action: func(c *cli.Context) error {
		ctx := norflashctx.SetVerbose(context.Background(), c.Bool("verbose"))
		d, closeFn, err := openDevice(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		defer closeFn()

		data, err := hex.DecodeString(c.String("data"))
		if err != nil {
			return console.Exit(1, "invalid data hex string: %v", err)
		}
		addr := uint32(c.Int("address"))
		if err := d.Write(ctx, addr, data); err != nil {
			return console.Exit(1, "write failed: %v", err)
		}
		console.Infof("wrote %d bytes at %#x", len(data), addr)
		return nil
	},
}

var MemoryEraseCmd = &cli.Command{
	Name:  "erase",
	Usage: "erase a byte range, decomposed into the largest supported aligned blocks",
	Flags: append(append([]cli.Flag{}, commonFlags...),
		&cli.IntFlag{Name: "address", Usage: "start address", Required: true},
		&cli.IntFlag{Name: "length", Usage: "number of bytes to erase", Required: true},
	),
	Action: func(c *cli.Context) error {
		ctx := norflashctx.SetVerbose(context.Background(), c.Bool("verbose"))
		d, closeFn, err := openDevice(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		defer closeFn()

		addr := uint32(c.Int("address"))
		length := uint32(c.Int("length"))
		if err := d.Erase(ctx, addr, length); err != nil {
			return console.Exit(1, "erase failed: %v", err)
		}
		console.Infof("erased %d bytes at %#x", length, addr)
		return nil
	},
}

var MemoryChipEraseCmd = &cli.Command{
	Name:  "chip-erase",
	Usage: "erase the entire chip",
	Flags: commonFlags,
	Action: func(c *cli.Context) error {
		ctx := norflashctx.SetVerbose(context.Background(), c.Bool("verbose"))
		d, closeFn, err := openDevice(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		defer closeFn()

		if err := d.ChipErase(ctx); err != nil {
			return console.Exit(1, "chip erase failed: %v", err)
		}
		console.Infof("chip erased")
		return nil
	},
}

var MemoryStatusCmd = &cli.Command{
	Name:  "status",
	Usage: "read the status register",
	Flags: commonFlags,
	Action: func(c *cli.Context) error {
		ctx := norflashctx.SetVerbose(context.Background(), c.Bool("verbose"))
		d, closeFn, err := openDevice(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		defer closeFn()

		var sr [1]byte
		if err := d.ReadSR(ctx, sr[:]); err != nil {
			return console.Exit(1, "status read failed: %v", err)
		}
		console.Printf("status register: %#02x\n", sr[0])
		return nil
	},
}

var MemoryIDCmd = &cli.Command{
	Name:  "id",
	Usage: "read the JEDEC and product ID",
	Flags: commonFlags,
	Action: func(c *cli.Context) error {
		ctx := norflashctx.SetVerbose(context.Background(), c.Bool("verbose"))
		d, closeFn, err := openDevice(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		defer closeFn()

		var jedec, product [3]byte
		if err := d.ReadJedecID(ctx, jedec[:]); err != nil {
			return console.Exit(1, "jedec id read failed: %v", err)
		}
		if err := d.ReadProductID(ctx, product[:]); err != nil {
			return console.Exit(1, "product id read failed: %v", err)
		}
		console.Printf("jedec id:   % X\nproduct id: % X\n", jedec[:], product[:])
		return nil
	},
}

var MemoryCmd = &cli.Command{
	Name:    "memory",
	Aliases: []string{"mem"},
	Usage:   "flash memory operations",
	Subcommands: []*cli.Command{
		MemoryReadCmd,
		MemoryWriteCmd,
		MemoryEraseCmd,
		MemoryChipEraseCmd,
		MemoryStatusCmd,
		MemoryIDCmd,
	},
}
