package utilities

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antonio-alexander/go-employee-dashboard/internal"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zap has no trace level, so trace sits one step below debug
const zapTraceLevel = zapcore.DebugLevel - 1

type logger struct {
	*zap.Logger
	level  zap.AtomicLevel
	config struct {
		Level string `env:"LOG_LEVEL" envDefault:"error"`
	}
}

type Level int

const (
	Error Level = 1
	Info  Level = 2
	Debug Level = 3
	Trace Level = 4
)

func (l Level) String() string {
	switch l {
	default:
		return ""
	case Error:
		return "error"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Trace:
		return "trace"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	default:
		return zapcore.ErrorLevel
	case Info:
		return zapcore.InfoLevel
	case Debug:
		return zapcore.DebugLevel
	case Trace:
		return zapTraceLevel
	}
}

type Logger interface {
	Error(ctx context.Context, format string, v ...any)
	Info(ctx context.Context, format string, v ...any)
	Debug(ctx context.Context, format string, v ...any)
	Trace(ctx context.Context, format string, v ...any)
}

func atoLogLevel(a string) Level {
	switch strings.ToLower(a) {
	default:
		return Error
	case "info":
		return Info
	case "debug":
		return Debug
	case "trace":
		return Trace
	}
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == zapTraceLevel {
		enc.AppendString(Trace.String())
		return
	}
	enc.AppendString(l.String())
}

// NewLogger creates a json logger writing to stdout, or to the first
// io.Writer found in parameters.
func NewLogger(parameters ...any) interface {
	internal.Configurer
	Logger
} {
	var writer io.Writer = os.Stdout

	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case io.Writer:
			writer = p
		}
	}
	level := zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	encoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		MessageKey:  "message",
		LevelKey:    "level",
		TimeKey:     "ts",
		EncodeLevel: encodeLevel,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
	})
	return &logger{
		Logger: zap.New(zapcore.NewCore(encoder, zapcore.AddSync(writer), level)),
		level:  level,
	}
}

// NewNopLogger discards everything; components fall back to it when no
// logger is provided.
func NewNopLogger() Logger {
	return &logger{
		Logger: zap.NewNop(),
		level:  zap.NewAtomicLevelAt(zapcore.ErrorLevel),
	}
}

func (l *logger) Configure(envs map[string]string) error {
	if err := env.ParseWithOptions(&l.config, env.Options{Environment: envs}); err != nil {
		return err
	}
	l.level.SetLevel(atoLogLevel(l.config.Level).zapLevel())
	return nil
}

func (l *logger) write(ctx context.Context, level zapcore.Level, format string, v ...any) {
	ce := l.Check(level, fmt.Sprintf(format, v...))
	if ce == nil {
		return
	}
	if correlationId := internal.CorrelationIdFromCtx(ctx); correlationId != "" {
		ce.Write(zap.String("correlation_id", correlationId))
		return
	}
	ce.Write()
}

func (l *logger) Error(ctx context.Context, format string, v ...any) {
	l.write(ctx, zapcore.ErrorLevel, format, v...)
}

func (l *logger) Info(ctx context.Context, format string, v ...any) {
	l.write(ctx, zapcore.InfoLevel, format, v...)
}

func (l *logger) Debug(ctx context.Context, format string, v ...any) {
	l.write(ctx, zapcore.DebugLevel, format, v...)
}

func (l *logger) Trace(ctx context.Context, format string, v ...any) {
	l.write(ctx, zapTraceLevel, format, v...)
}
