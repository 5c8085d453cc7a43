package router

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger is the structured logger used across the package. Arguments
// after msg are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var LoggerEnabled = false

type defaultLogger struct {
}

func (d *defaultLogger) Debug(msg string, args ...any) {
	d.print("DEBUG", msg, args...)
}

func (d *defaultLogger) Info(msg string, args ...any) {
	d.print("INFO", msg, args...)
}

func (d *defaultLogger) Warn(msg string, args ...any) {
	d.print("WARN", msg, args...)
}

func (d *defaultLogger) Error(msg string, args ...any) {
	d.print("ERROR", msg, args...)
}

func (d *defaultLogger) print(level, msg string, args ...any) {
	if !LoggerEnabled {
		return
	}
	if len(args) == 0 {
		fmt.Printf("[%s] %s\n", level, msg)
		return
	}
	fmt.Printf("[%s] %s %v\n", level, msg, args)
}

func getLogger(lgrs ...Logger) Logger {
	if len(lgrs) > 0 && lgrs[0] != nil {
		return lgrs[0]
	}
	return &defaultLogger{}
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to Logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }
