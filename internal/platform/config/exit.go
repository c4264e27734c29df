package config

import (
	"fmt"
	"io"
	"os"
)

// ExitCode is the process status used for fatal configuration and startup errors.
const ExitCode = 1

var (
	exitWriter io.Writer = os.Stderr
	exitFunc             = os.Exit
)

// Exitf reports a fatal error on stderr and terminates the process.
func Exitf(format string, args ...any) {
	fmt.Fprintf(exitWriter, "ghmcp: "+format+"\n", args...)
	exitFunc(ExitCode)
}
