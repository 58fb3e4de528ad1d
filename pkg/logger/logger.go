package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log starts as a no-op logger so packages used from tests never need Init.
var Log = zerolog.Nop()

// Init initializes the global logger.
// development writes colored console lines, anything else writes JSON.
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

// InitWithWriter is Init with an explicit sink.
func InitWithWriter(env string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	if env == "development" {
		Log = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}).
			With().
			Timestamp().
			Caller().
			Logger()
		return
	}

	level := zerolog.InfoLevel
	if env == "test" {
		level = zerolog.Disabled
	}
	Log = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "bannerstudio").
		Logger()
}

// Component returns a child logger tagged with the subsystem name.
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}

func Info() *zerolog.Event {
	return Log.Info()
}

func Error() *zerolog.Event {
	return Log.Error()
}

func Warn() *zerolog.Event {
	return Log.Warn()
}

func Debug() *zerolog.Event {
	return Log.Debug()
}

func Fatal() *zerolog.Event {
	return Log.Fatal()
}
