package logger

import (
	"fmt"
	"time"

	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

const sentryFlushTimeout = 2 * time.Second

// NewSentryHub initialises a Sentry client. It returns nil, nil when no DSN
// is configured.
func NewSentryHub(cfg config.SentryConfig, app config.AppConfig) (*sentry.Hub, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      app.Env,
		ServerName:       app.Name,
		TracesSampleRate: cfg.TracesSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return sentry.NewHub(client, sentry.NewScope()), nil
}

// SentryCore forwards entries at or above its level to Sentry. It is teed
// next to the regular output core, so sweep failures and 5xx errors show up
// in Sentry without callers knowing about it.
type SentryCore struct {
	zapcore.LevelEnabler
	hub    *sentry.Hub
	fields []zapcore.Field
}

// NewSentryCore creates a core reporting to hub
func NewSentryCore(hub *sentry.Hub, level zapcore.Level) *SentryCore {
	return &SentryCore{LevelEnabler: level, hub: hub}
}

// With implements zapcore.Core
func (c *SentryCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &SentryCore{LevelEnabler: c.LevelEnabler, hub: c.hub, fields: merged}
}

// Check implements zapcore.Core
func (c *SentryCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

// Write implements zapcore.Core
func (c *SentryCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	event := sentry.NewEvent()
	event.Level = sentryLevel(entry.Level)
	event.Message = entry.Message
	event.Logger = entry.LoggerName
	event.Timestamp = entry.Time
	event.Extra = enc.Fields
	c.hub.CaptureEvent(event)
	return nil
}

// Sync implements zapcore.Core
func (c *SentryCore) Sync() error {
	c.hub.Flush(sentryFlushTimeout)
	return nil
}

func sentryLevel(l zapcore.Level) sentry.Level {
	switch l {
	case zapcore.DebugLevel:
		return sentry.LevelDebug
	case zapcore.InfoLevel:
		return sentry.LevelInfo
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	default:
		return sentry.LevelFatal
	}
}
