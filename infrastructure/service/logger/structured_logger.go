package logger

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the context-aware structured logging interface used across the
// application and infrastructure layers.
type Logger interface {
	Info(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, err error, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Debug(ctx context.Context, message string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
}

type contextKey string

// CorrelationIDKey carries the request correlation ID through context.
const CorrelationIDKey contextKey = "correlation_id"

type Config struct {
	Level       string
	Format      string
	ServiceName string
}

type structuredLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

func NewStructuredLogger(cfg Config) Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "text" {
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}
	l.SetOutput(os.Stdout)

	return &structuredLogger{
		logger: l,
		fields: logrus.Fields{"service": cfg.ServiceName},
	}
}

func (l *structuredLogger) entry(ctx context.Context, fields map[string]interface{}) *logrus.Entry {
	e := l.logger.WithFields(l.fields)
	if ctx != nil {
		if id, ok := ctx.Value(CorrelationIDKey).(string); ok && id != "" {
			e = e.WithField("correlation_id", id)
		}
	}
	if len(fields) > 0 {
		e = e.WithFields(fields)
	}
	return e
}

func (l *structuredLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, fields).Info(message)
}

func (l *structuredLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	e := l.entry(ctx, fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(message)
}

func (l *structuredLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, fields).Warn(message)
}

func (l *structuredLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, fields).Debug(message)
}

func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	merged := logrus.Fields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &structuredLogger{logger: l.logger, fields: merged}
}

// LogAuthEvent records an authentication event in a uniform shape.
func LogAuthEvent(ctx context.Context, l Logger, event, userID, ip string, success bool, extra map[string]interface{}) {
	fields := map[string]interface{}{
		"event":   event,
		"success": success,
	}
	if userID != "" {
		fields["user_id"] = userID
	}
	if ip != "" {
		fields["ip"] = ip
	}
	for k, v := range extra {
		fields[k] = v
	}
	if success {
		l.Info(ctx, "auth event", fields)
	} else {
		l.Warn(ctx, "auth event", fields)
	}
}
