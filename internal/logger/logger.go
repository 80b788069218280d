package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns the process logger tagged with service. Development gets a
// console writer at debug level, everything else JSON at info.
func New(appEnv, service string) zerolog.Logger {
	return newTo(os.Stdout, appEnv, service)
}

func newTo(out io.Writer, appEnv, service string) zerolog.Logger {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	level := zerolog.InfoLevel
	if env == "development" || env == "dev" {
		level = zerolog.DebugLevel
		dst := out
		out = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = dst
			w.TimeFormat = "2006-01-02 15:04:05"
			w.NoColor = dst != io.Writer(os.Stdout)
		})
	}
	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger()
}

// Nop returns a disabled logger, useful for tests.
func Nop() zerolog.Logger {
	return zerolog.New(io.Discard)
}
