package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger and installs it as zerolog's global logger.
//
// level is one of "none", "trace", "debug", "info", "warn", "error".
// format is "console" for human output or "json". When file is set, output
// goes there instead of stdout and the returned file must be closed by the
// caller; otherwise the returned *os.File is nil.
func New(level, format, file string) (zerolog.Logger, *os.File, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	var (
		out io.Writer = os.Stdout
		f   *os.File
	)
	if file != "" {
		f, err = os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
	}

	l := build(out, lvl, format)
	log.Logger = l
	zerolog.SetGlobalLevel(lvl)
	return l, f, nil
}

func build(out io.Writer, lvl zerolog.Level, format string) zerolog.Logger {
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger()
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "none":
		return zerolog.Disabled, nil
	case "":
		return zerolog.InfoLevel, nil
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unexpected log level %q", level)
	}
	return lvl, nil
}
