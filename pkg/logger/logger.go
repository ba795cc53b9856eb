// Package logger provides logr.Logger construction on top of zerolog.
// Verbosity maps onto zerolog levels: V(0) logs at info, V(1) and above at
// debug, errors always at error.
package logger

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02 15:04:05.000"

// Config is the logging configuration block.
type Config struct {
	Level string `mapstructure:"level"`
}

// New creates a logger writing console-formatted records to stderr at the
// given level name ("trace", "debug", "info", "warn", "error").
func New(level string) logr.Logger {
	zerolog.TimeFieldFormat = timeFormat
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat}
	zl := zerolog.New(output).Level(parseLevel(level)).With().Timestamp().Logger()
	return FromZerolog(&zl)
}

// FromZerolog wraps an existing zerolog.Logger.
func FromZerolog(zl *zerolog.Logger) logr.Logger {
	return zlogger{l: zl}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type zlogger struct {
	l      *zerolog.Logger
	v      int
	name   string
	values []interface{}
}

func (z zlogger) zerologLevel() zerolog.Level {
	if z.v > 0 {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func (z zlogger) Enabled() bool {
	return z.zerologLevel() >= z.l.GetLevel()
}

func (z zlogger) Info(msg string, keysAndValues ...interface{}) {
	if !z.Enabled() {
		return
	}
	z.write(z.l.WithLevel(z.zerologLevel()), msg, keysAndValues)
}

func (z zlogger) Error(err error, msg string, keysAndValues ...interface{}) {
	z.write(z.l.Error().Err(err), msg, keysAndValues)
}

func (z zlogger) write(ev *zerolog.Event, msg string, keysAndValues []interface{}) {
	if z.name != "" {
		ev = ev.Str("logger", z.name)
	}
	kv := make([]interface{}, 0, len(z.values)+len(keysAndValues))
	kv = append(kv, z.values...)
	kv = append(kv, keysAndValues...)
	ev.Fields(fieldMap(kv)).Msg(msg)
}

func fieldMap(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

func (z zlogger) V(level int) logr.Logger {
	z.v += level
	return z
}

func (z zlogger) WithValues(keysAndValues ...interface{}) logr.Logger {
	values := make([]interface{}, 0, len(z.values)+len(keysAndValues))
	values = append(values, z.values...)
	values = append(values, keysAndValues...)
	z.values = values
	return z
}

func (z zlogger) WithName(name string) logr.Logger {
	if z.name != "" {
		name = z.name + "." + name
	}
	z.name = name
	return z
}
