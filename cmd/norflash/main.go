// Command norflash is a CLI for exercising a SPI NOR flash device
// through the norflash driver, grounded on cmd/sensors/main.go's
// urfave/cli application shell, moved from cli v1 to v2.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/norflash/cmd/norflash/command"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "norflash"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "SPI NOR flash CLI"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
	}
	app.Commands = []*cli.Command{
		command.MemoryCmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		if exerr, ok := err.(cli.ExitCoder); ok {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}
