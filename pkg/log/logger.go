package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

var (
	Root     = zerolog.Nop()
	Protocol = zerolog.Nop()
	Store    = zerolog.Nop()
	CLI      = zerolog.Nop()
)

// Options for Logger
type Options struct {
	// Enable Debug loglevel, default Info
	LogLevel zerolog.Level
	Type     LoggerType
	// Output defaults to stdout
	Output io.Writer
}

func ParseLogLevel(loglevel string) (zerolog.Level, error) {
	return zerolog.ParseLevel(loglevel)
}

// ParseLoggerType maps "console" and "json" to a LoggerType.
func ParseLoggerType(s string) (LoggerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "console":
		return ConsoleLogger, nil
	case "json":
		return JSONLogger, nil
	default:
		return 0, fmt.Errorf("unknown log format %q", s)
	}
}

func Init(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	switch opts.Type {
	case ConsoleLogger:
		Root = zerolog.New(newConsoleWriter(out)).Level(opts.LogLevel).
			With().Timestamp().Logger()
	default:
		Root = zerolog.New(out).Level(opts.LogLevel).
			With().Timestamp().Logger()
	}
	Protocol = Root.With().Str("component", "protocol").Logger()
	Store = Root.With().Str("component", "store").Logger()
	CLI = Root.With().Str("component", "cli").Logger()
}

// newConsoleWriter renders "TIME LEVEL message key=value ..." lines.
func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}
	cw.FormatLevel = func(i any) string {
		return strings.ToUpper(fmt.Sprintf("%-5s", i))
	}
	cw.FormatFieldName = func(i any) string { return fmt.Sprintf("%s=", i) }
	cw.FormatErrFieldName = cw.FormatFieldName
	return cw
}
