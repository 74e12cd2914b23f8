package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level defines log levels.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
	NoLevel
	Disabled
	TraceLevel Level = -1
)

func (l Level) String() string {
	switch l {
	case TraceLevel:
		return zerolog.LevelTraceValue
	case DebugLevel:
		return zerolog.LevelDebugValue
	case InfoLevel:
		return zerolog.LevelInfoValue
	case WarnLevel:
		return zerolog.LevelWarnValue
	case ErrorLevel:
		return zerolog.LevelErrorValue
	case FatalLevel:
		return zerolog.LevelFatalValue
	case PanicLevel:
		return zerolog.LevelPanicValue
	case Disabled:
		return "disabled"
	case NoLevel:
		return ""
	}
	return strconv.Itoa(int(l))
}

// Field names shared by the pipeline components.
const (
	RoleField      = "r"
	ComponentField = "c"
	DirectionField = "d"
	SeqField       = "seq"
	ConnField      = "cid"
)

var pid = os.Getpid()

type Logger struct {
	logger *zerolog.Logger
}

// New creates a JSON logger writing into stderr.
func New(isDebug bool) *Logger {
	setLevel(isDebug)
	logger := zerolog.New(os.Stderr).With().Timestamp().Fields(map[string]any{"pid": pid}).Logger()
	return &Logger{logger: &logger}
}

// NewConsole creates a human-friendly logger.
// The role param is a short tag of the process (h for host, w for worker).
func NewConsole(isDebug bool, role string, noColor bool) *Logger {
	setLevel(isDebug)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.0000", NoColor: noColor,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			"pid",
			zerolog.LevelFieldName,
			RoleField,
			DirectionField,
			ComponentField,
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{RoleField, DirectionField, ComponentField, "pid"},
	}

	if output.NoColor {
		output.FormatMessage = func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%v", i)
		}
	}

	logger := zerolog.New(output).With().
		Str("pid", fmt.Sprintf("%4x", pid)).
		Str(RoleField, role).
		Str(DirectionField, " ").
		Str(ComponentField, " ").
		Timestamp().Logger()
	return &Logger{logger: &logger}
}

// NewWriter creates a logger with custom output, mostly for tests.
func NewWriter(w io.Writer) *Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	return &Logger{logger: &logger}
}

func Default() *Logger { return &Logger{logger: &log.Logger} }

// Nop returns a disabled logger.
func Nop() *Logger { l := zerolog.Nop(); return &Logger{logger: &l} }

func setLevel(isDebug bool) {
	logLevel := zerolog.InfoLevel
	if isDebug {
		logLevel = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(logLevel)
}

// GetLevel returns the current Level of l.
func (l *Logger) GetLevel() Level { return Level(l.logger.GetLevel()) }

// With creates a child logger with the field added to its context.
func (l *Logger) With() zerolog.Context { return l.logger.With() }

// Debug starts a new message with debug level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }

// Info starts a new message with info level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Info() *zerolog.Event { return l.logger.Info() }

// Warn starts a new message with warn level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Warn() *zerolog.Event { return l.logger.Warn() }

// Error starts a new message with error level.
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }

// Fatal starts a new message with fatal level. The os.Exit(1) function
// is called by the Msg method.
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

// Printf sends a log event using debug level and no extra field.
func (l *Logger) Printf(format string, v ...any) { l.logger.Printf(format, v...) }

// Extend adds some additional context to the existing logger.
func (l *Logger) Extend(ctx zerolog.Context) *Logger {
	logger := ctx.Logger()
	return &Logger{logger: &logger}
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	return l.Extend(l.With().Str(ComponentField, name))
}
