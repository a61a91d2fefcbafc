package logging

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides optional verbose logging and lightweight timing helpers on
// top of a zerolog logger.
type Logger struct {
	zlog    zerolog.Logger
	Verbose bool
}

// New builds a logger writing to writer. format is "console" or "json";
// level is a zerolog level name and defaults to info (debug when verbose).
func New(writer io.Writer, verbose bool, level, format string) Logger {
	if writer == nil {
		return Nop()
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}

	out := writer
	if strings.ToLower(strings.TrimSpace(format)) != "json" {
		out = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.TimeOnly}
	}

	return Logger{
		zlog:    zerolog.New(out).Level(lvl).With().Timestamp().Logger(),
		Verbose: verbose,
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return Logger{zlog: zerolog.Nop()}
}

// NewTest returns a verbose logger that writes through t.Log.
func NewTest(t testing.TB) Logger {
	return Logger{
		zlog:    zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel),
		Verbose: true,
	}
}

// With returns a child logger carrying an extra string field.
func (l Logger) With(key, value string) Logger {
	l.zlog = l.zlog.With().Str(key, value).Logger()
	return l
}

// Zerolog exposes the underlying logger for callers that want structured fields.
func (l Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

func (l Logger) Infof(format string, args ...any) {
	l.zlog.Info().Msgf(format, args...)
}

func (l Logger) Warnf(format string, args ...any) {
	l.zlog.Warn().Msgf(format, args...)
}

func (l Logger) Errorf(format string, args ...any) {
	l.zlog.Error().Msgf(format, args...)
}

func (l Logger) Debugf(format string, args ...any) {
	l.zlog.Debug().Msgf(format, args...)
}

func (l Logger) Verbosef(format string, args ...any) {
	if !l.Verbose {
		return
	}
	l.zlog.Debug().Msgf(format, args...)
}

// Measure returns a stop function that logs the elapsed time when called.
func (l Logger) Measure(label string) func() {
	if !l.Verbose {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		l.zlog.Debug().Str("took", elapsed.String()).Msg(label)
	}
}
