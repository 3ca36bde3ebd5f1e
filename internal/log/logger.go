// Package log builds component-scoped slog loggers. The server and the
// worker binaries share most packages, so the component attribute on the
// process default logger is what tells their streams apart.
package log

import (
	"log/slog"
	"os"
)

// FieldComponent is the attribute every logger built here carries.
const FieldComponent = "component"

// Logger is a slog.Logger bound to a component name.
type Logger struct {
	*slog.Logger
	component string
}

// Config controls the handler, level and component of a new Logger.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// New builds a component-scoped logger. Without an explicit handler it logs
// text to stdout at the configured level.
func New(cfg Config) *Logger {
	handler := cfg.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level})
	}
	component := cfg.Component
	if component == "" {
		component = "app"
	}
	return &Logger{
		Logger:    slog.New(handler).With(FieldComponent, component),
		component: component,
	}
}

// With returns a logger carrying extra attributes under the same component.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// Component returns the component name the logger was built with.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger as the process default, so packages logging
// through plain slog inherit the component attribute.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
