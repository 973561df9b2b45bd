// internal/logger/logger.go
//
// Process logger.
//
// Every subscription transition is written as one JSON object to
// `<dir>/YYYY-MM-DD.log`, rolled over by Lumberjack on size and pruned on
// age.  Operators tailing a terminal get the same entries in console form.
//
//	log, err := logger.New(logger.Options{
//		Dir:     filepath.Join(cfg.Paths.Root, "logs"),
//		Level:   cfg.Log.Level,
//		Console: logger.RunningInTTY(),
//	})
//
// New installs the result with zap.ReplaceGlobals, so the config loader and
// the Vault client, which log through zap.L()/zap.S(), end up in the file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the sink and its retention.  Zero sizes take the
// defaults below.
type Options struct {
	Dir        string
	Level      string // debug, info, warn, error; empty means info
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const (
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 7
	defaultMaxAgeDays = 14
)

func (o Options) rotation() *lumberjack.Logger {
	size, backups, age := o.MaxSizeMB, o.MaxBackups, o.MaxAgeDays
	if size <= 0 {
		size = defaultMaxSizeMB
	}
	if backups <= 0 {
		backups = defaultMaxBackups
	}
	if age <= 0 {
		age = defaultMaxAgeDays
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(o.Dir, time.Now().Format("2006-01-02")+".log"),
		MaxSize:    size,
		MaxBackups: backups,
		MaxAge:     age,
		Compress:   true,
	}
}

func encoderConfig(console bool) zapcore.EncoderConfig {
	ec := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		MessageKey:    "msg",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	if console {
		ec.EncodeLevel = zapcore.LowercaseColorLevelEncoder
	}
	return ec
}

// New builds the logger described by o and makes it the global one.
func New(o Options) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if o.Level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(o.Level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}

	sink := zapcore.AddSync(o.rotation())
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig(false)), sink, lvl)
	if o.Console {
		core = zapcore.NewTee(core,
			zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), zapcore.Lock(os.Stdout), lvl))
	}

	z := zap.New(core, zap.AddCaller(), zap.ErrorOutput(sink))
	zap.ReplaceGlobals(z)

	z.Info("logger online", zap.Stringer("level", lvl), zap.Bool("console", o.Console))
	return z, nil
}

// RunningInTTY reports whether stdout is a character device.
func RunningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
