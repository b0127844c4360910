package xlog

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xsymtab/lib/kv"
)

// logLevel is the capital name of a zap level, only DEBUG to ERROR
// are accepted by the CLI.
type logLevel string

const (
	LogLevelDebug logLevel = "DEBUG"
	LogLevelInfo  logLevel = "INFO"
	LogLevelWarn  logLevel = "WARN"
	LogLevelError logLevel = "ERROR"
)

func (lvl logLevel) zapLevel() zapcore.Level {
	return getLogLevelOrDefault(string(lvl))
}

func (lvl logLevel) String() string {
	return string(lvl)
}

// ParseLogLevel maps a case-insensitive name to the log level,
// the unknown names fall back to debug.
func ParseLogLevel(level string) logLevel {
	return logLevel(getLogLevelOrDefault(level).CapitalString())
}

func getLogLevelOrDefault(level string) zapcore.Level {
	level = strings.TrimSpace(level)
	if level == "" {
		return zapcore.DebugLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil || lvl > zapcore.ErrorLevel {
		return zapcore.DebugLevel
	}
	return lvl
}

type logEncoderType uint8

const (
	JSON logEncoderType = iota
	PlainText
	_encMax
)

type logOutWriterType uint8

const (
	StdOut logOutWriterType = iota
	testMemAsOut
	_writerMax
)

const (
	ContextKeyMapToOmitempty = "_"
	ContextKeyMapToItself    = ""
	coreKeyIgnored           = ""
)

var (
	writerMap  = kv.NewThreadSafeSortedMap[logOutWriterType, zapcore.WriteSyncer]()
	encoderMap = map[logEncoderType]func(cfg zapcore.EncoderConfig) zapcore.Encoder{
		JSON:      zapcore.NewJSONEncoder,
		PlainText: zapcore.NewConsoleEncoder,
	}
)

func init() {
	_ = writerMap.Set(StdOut, &zapcore.BufferedWriteSyncer{
		WS:            os.Stdout,
		Size:          512 * 1024,
		FlushInterval: 30 * time.Second,
	})
}

func getEncoderByType(typ logEncoderType) func(cfg zapcore.EncoderConfig) zapcore.Encoder {
	enc, ok := encoderMap[typ]
	if !ok {
		return zapcore.NewJSONEncoder
	}
	return enc
}

func getOutWriterByType(typ logOutWriterType) zapcore.WriteSyncer {
	out, err := writerMap.Get(typ)
	if err != nil || out == nil {
		return zapcore.Lock(os.Stdout)
	}
	return out
}

type Banner interface {
	JSON() string
	PlainText() string
}

// XLogCore remembers its writer and encoders, so the component
// loggers are able to rebuild it by their own encoder config.
type XLogCore interface {
	zapcore.Core
	encoding() coreEncoding
}

type XLogCoreConstructor func(
	zapcore.LevelEnabler,
	logEncoderType,
	logOutWriterType,
	zapcore.LevelEncoder,
	zapcore.TimeEncoder,
) XLogCore

// XLogger is backed by a zap logger whose level may be raised at
// runtime. The errors carrying an infra.ErrorStack are logged with the
// "errors" and "errorStack" JSON fields instead of the zap stacktrace.
// Formatted logging is kept for the adapters (go-redis, ants) only.
type XLogger interface {
	// zap is used to derive the component loggers for gorm, go-redis
	// and ants. They share the writer and the encoders of the parent.
	zap() *zap.Logger

	IncreaseLogLevel(level zapcore.Level)
	Level() string
	Sync() error
	Banner(banner Banner)

	fieldLogger
	contextLogger

	Logf(lvl zapcore.Level, format string, args ...any)
	ErrorStackf(err error, format string, args ...any)
}

type fieldLogger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(err error, msg string, fields ...zap.Field)
	ErrorStack(err error, msg string, fields ...zap.Field)
}

// contextLogger appends the context values registered by
// WithXLoggerContextFieldExtract, like the command name.
type contextLogger interface {
	DebugContext(ctx context.Context, msg string, fields ...zap.Field)
	InfoContext(ctx context.Context, msg string, fields ...zap.Field)
	WarnContext(ctx context.Context, msg string, fields ...zap.Field)
	ErrorContext(ctx context.Context, err error, msg string, fields ...zap.Field)
	ErrorStackContext(ctx context.Context, err error, msg string, fields ...zap.Field)
}
