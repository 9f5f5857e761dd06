package std

import (
	"fmt"
	"io"
	"os"

	"github.com/pwnedgod/carrier/logger"
)

type stdLogger struct {
	out   io.Writer
	err   io.Writer
	debug bool
}

func NewLogger() logger.Logger {
	return &stdLogger{
		out:   os.Stdout,
		err:   os.Stderr,
		debug: true,
	}
}

// NewLoggerWithWriters writes Info and Debug to out and Error to err. Debug
// lines are dropped unless debug is set.
func NewLoggerWithWriters(out, err io.Writer, debug bool) logger.Logger {
	return &stdLogger{
		out:   out,
		err:   err,
		debug: debug,
	}
}

func (l stdLogger) Info(args ...interface{}) {
	fmt.Fprintln(l.out, args...)
}

func (l stdLogger) Debug(args ...interface{}) {
	if !l.debug {
		return
	}
	fmt.Fprintln(l.out, args...)
}

func (l stdLogger) Error(args ...interface{}) {
	fmt.Fprintln(l.err, args...)
}
