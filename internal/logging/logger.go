// Package logging provides the process-wide structured logger and the
// context-propagated fields every component attaches to its log lines.
package logging

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyVHost     ctxKey = "vhost"
	ctxKeyRemoteIP  ctxKey = "remote_ip"
	ctxKeyComponent ctxKey = "component"
)

// Component names used across the core for structured logging.
const (
	ComponentAccept   = "accept_engine"
	ComponentTransport = "transport"
	ComponentHTTP     = "http_state_machine"
	ComponentVHost    = "vhost_router"
	ComponentEvent    = "event_processor"
	ComponentPlugin   = "plugin_runtime"
	ComponentSession  = "session"
	ComponentCompress = "compress"
)

// Canonical field names, kept stable so downstream log processors can
// rely on them regardless of which component emitted the line.
const (
	FieldRequestID  = "request_id"
	FieldVHost      = "vhost"
	FieldRemoteIP   = "remote_ip"
	FieldComponent  = "component"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMs = "duration_ms"
	FieldReason     = "reason"
)

// New builds a zap.Logger. level is one of debug/info/warn/error; format
// is "json" or "console"; an empty filePath logs to stdout. Writing to a
// file rotates it once it exceeds 10MB, keeping 5 backups.
func New(level, format, filePath string) (*zap.Logger, error) {
	return NewWithRotation(level, format, filePath, 0, 0)
}

// NewWithRotation is New with explicit rotation knobs; maxSizeBytes <= 0
// and maxBackups <= 0 fall back to rotateWriter's defaults (10MB / 5).
func NewWithRotation(level, format, filePath string, maxSizeBytes int64, maxBackups int) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
	}

	var encoder zapcore.Encoder
	if strings.ToLower(format) == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	ws := zapcore.AddSync(os.Stdout)
	if filePath != "" {
		rw, err := newRotateWriter(filePath, maxSizeBytes, maxBackups)
		if err != nil {
			return nil, err
		}
		ws = zapcore.AddSync(rw)
	}

	return zap.New(zapcore.NewCore(encoder, ws, lvl)), nil
}

// ForComponent returns a logger pre-tagged with a component field.
func ForComponent(logger *zap.Logger, component string) *zap.Logger {
	return logger.With(zap.String(FieldComponent, component))
}

// WithRequestID attaches a request id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// GetRequestID extracts a request id previously attached with WithRequestID.
func GetRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRequestID).(string)
	return v, ok && v != ""
}

// WithVHost attaches the matched virtual-host name to ctx.
func WithVHost(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyVHost, name)
}

// WithRemoteIP attaches the peer address to ctx.
func WithRemoteIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyRemoteIP, ip)
}

// FromContext builds a logger enriched with whatever request-scoped
// fields are present on ctx (request id, vhost, remote ip).
func FromContext(base *zap.Logger, ctx context.Context) *zap.Logger {
	fields := make([]zap.Field, 0, 3)
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok && v != "" {
		fields = append(fields, zap.String(FieldRequestID, v))
	}
	if v, ok := ctx.Value(ctxKeyVHost).(string); ok && v != "" {
		fields = append(fields, zap.String(FieldVHost, v))
	}
	if v, ok := ctx.Value(ctxKeyRemoteIP).(string); ok && v != "" {
		fields = append(fields, zap.String(FieldRemoteIP, v))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
