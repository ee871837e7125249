package log

import (
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider
)

// SetProvider replaces the global provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	globalProvider = p
}

// GetProvider returns the global provider, creating an info-level zerolog
// provider on first use.
func GetProvider() LoggerProvider {
	providerMu.RLock()
	p := globalProvider
	providerMu.RUnlock()
	if p != nil {
		return p
	}

	providerMu.Lock()
	defer providerMu.Unlock()
	if globalProvider == nil {
		globalProvider = NewZerologProvider(LevelInfo)
	}
	return globalProvider
}

// GetLogger returns the default logger of the global provider.
func GetLogger() Logger {
	return GetProvider().GetLogger()
}

// GetLoggerWithName returns a named logger of the global provider.
func GetLoggerWithName(name string) Logger {
	return GetProvider().GetLoggerWithName(name)
}

// SetupLogger installs a zerolog provider writing to w and routes library
// warnings (undefined metrics, convergence) to it at warn level.
func SetupLogger(level string, w io.Writer, console bool) LoggerProvider {
	var p *ZerologProvider
	if console {
		p = NewConsoleProvider(w, ToLogLevel(level))
	} else {
		p = NewZerologProviderWithWriter(w, ToLogLevel(level))
	}
	SetProvider(p)

	warnLogger := p.Zerolog().With().Str(loggerField, "warnings").Logger()
	personaErrors.SetZerologWarnFunc(func(warning error) {
		ev := warnLogger.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(warning.Error())
	})
	return p
}

// ToLogLevel converts a level name to a Level. Unknown names map to LevelInfo.
func ToLogLevel(level string) Level {
	l, err := ParseLevel(level)
	if err != nil {
		return LevelInfo
	}
	return l
}

// ParseLevel converts "debug", "info", "warn" or "error" to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, personaErrors.NewValidationError("log.level", "must be one of debug, info, warn, error", level)
	}
}
