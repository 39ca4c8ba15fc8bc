package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit formats msg and wraps it as a cli.ExitCoder carrying code, the
// v2 equivalent of console.Exit from the sensors CLI (which targeted
// urfave/cli v1's NewExitError).
func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}
