// Package logging builds the zap logger used across the service.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"backend-mapssaver/internal/config"
)

// New returns a logger writing to stdout or to a rotating file, as
// configured. The returned closer releases the file, if any.
func New(cfg config.Config) (*zap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.LogOutput == "file" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("log dir: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		out, closer = rotating, rotating
	}

	return zap.New(newCore(cfg.LogFormat, out, level), zap.AddCaller()), closer, nil
}

func newCore(format string, out io.Writer, level zapcore.Level) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	return zapcore.NewCore(enc, zapcore.AddSync(out), level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
