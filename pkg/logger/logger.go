package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Leveled logger used by the backend services.
// Wraps zerolog behind the small Init/Debugf..Fatalf surface the rest of
// the code depends on; level is controlled with LOG_LEVEL (debug|info|warn|error|fatal).

var (
	mu  sync.RWMutex
	log zerolog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02T15:04:05Z07:00"}).With().Timestamp().Logger()
)

// Init sets the global log level (case-insensitive). Call early during startup.
// Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		log = log.Level(zerolog.DebugLevel)
	case "warn", "warning":
		log = log.Level(zerolog.WarnLevel)
	case "error":
		log = log.Level(zerolog.ErrorLevel)
	case "fatal":
		log = log.Level(zerolog.FatalLevel)
	default:
		log = log.Level(zerolog.InfoLevel)
	}
}

// get returns a pointer to a snapshot of the current logger; zerolog's level
// constructors have pointer receivers.
func get() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

func Debugf(format string, v ...interface{}) { get().Debug().Msgf(format, v...) }
func Infof(format string, v ...interface{})  { get().Info().Msgf(format, v...) }
func Warnf(format string, v ...interface{})  { get().Warn().Msgf(format, v...) }
func Errorf(format string, v ...interface{}) { get().Error().Msgf(format, v...) }

func Fatalf(format string, v ...interface{}) {
	get().Fatal().Msgf(format, v...)
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { get().Debug().Msg(v) }
func Info(v string)  { get().Info().Msg(v) }
func Warn(v string)  { get().Warn().Msg(v) }
func Error(v string) { get().Error().Msg(v) }

// LevelString returns the current level as text.
func LevelString() string {
	switch get().GetLevel() {
	case zerolog.DebugLevel:
		return "debug"
	case zerolog.WarnLevel:
		return "warn"
	case zerolog.ErrorLevel:
		return "error"
	case zerolog.FatalLevel:
		return "fatal"
	default:
		return "info"
	}
}
