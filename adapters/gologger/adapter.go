// Package gologger resolves go-logger loggers for the VSS packages and
// backs them with logrus when a process wants real output.
package gologger

import (
	"context"
	"fmt"
	"io"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/sirupsen/logrus"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// NewLogrus builds a logrus logger from Options. Format is "text" or "json".
func NewLogrus(opts Options) (*logrus.Logger, error) {
	base := logrus.New()
	if opts.Output != nil {
		base.SetOutput(opts.Output)
	}
	level := strings.TrimSpace(opts.Level)
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("gologger: %w", err)
	}
	base.SetLevel(parsed)

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("gologger: unknown log format %q", opts.Format)
	}
	return base, nil
}

// LogrusProvider hands out loggers tagged with a "logger" field.
type LogrusProvider struct {
	base *logrus.Logger
}

func NewLogrusProvider(base *logrus.Logger) *LogrusProvider {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &LogrusProvider{base: base}
}

func (p *LogrusProvider) GetLogger(name string) glog.Logger {
	entry := logrus.NewEntry(p.base)
	if name = strings.TrimSpace(name); name != "" {
		entry = entry.WithField("logger", name)
	}
	return &logrusLogger{entry: entry}
}

// NewLogrusLogger wraps a single logrus entry.
func NewLogrusLogger(entry *logrus.Entry) glog.Logger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return &logrusLogger{entry: entry}
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Trace(msg string, args ...any) { l.with(args).Trace(msg) }
func (l *logrusLogger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }
func (l *logrusLogger) Info(msg string, args ...any)  { l.with(args).Info(msg) }
func (l *logrusLogger) Warn(msg string, args ...any)  { l.with(args).Warn(msg) }
func (l *logrusLogger) Error(msg string, args ...any) { l.with(args).Error(msg) }
func (l *logrusLogger) Fatal(msg string, args ...any) { l.with(args).Fatal(msg) }

func (l *logrusLogger) WithContext(ctx context.Context) glog.Logger {
	if ctx == nil {
		return l
	}
	return &logrusLogger{entry: l.entry.WithContext(ctx)}
}

func (l *logrusLogger) with(args []any) *logrus.Entry {
	if len(args) == 0 {
		return l.entry
	}
	return l.entry.WithFields(fieldsOf(args))
}

// fieldsOf pairs variadic key/value args. A dangling value lands under
// "!BADKEY" the same way slog reports it.
func fieldsOf(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			fields["!BADKEY"] = args[i]
			if ok {
				continue
			}
			i--
			continue
		}
		value := args[i+1]
		if err, isErr := value.(error); isErr {
			value = err.Error()
		}
		fields[key] = value
	}
	return fields
}

var (
	_ glog.Logger         = (*logrusLogger)(nil)
	_ glog.LoggerProvider = (*LogrusProvider)(nil)
)
