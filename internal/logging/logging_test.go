package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"backend-mapssaver/internal/config"
)

func TestNewStdout(t *testing.T) {
	log, closer, err := New(config.Config{LogLevel: "warn", LogFormat: "console", LogOutput: "stdout"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closer.Close()
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, _, err := New(config.Config{LogLevel: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")
	log, closer, err := New(config.Config{
		LogLevel:     "info",
		LogFormat:    "json",
		LogOutput:    "file",
		LogFile:      path,
		LogMaxSizeMB: 1,
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Info("hello", zap.String("trip", "velebit"))
	_ = log.Sync()
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("expected json line: %v", err)
	}
	if line["msg"] != "hello" || line["trip"] != "velebit" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.SendStatus(code)
		},
	})
	app.Use(Middleware(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Get("/missing", func(_ *fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/boom", func(_ *fiber.Ctx) error { return errors.New("boom") })

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		if _, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil)); err != nil {
			t.Fatalf("request %s: %v", path, err)
		}
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	wantStatus := []int64{200, 404, 500}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Fatalf("entry %d: level %s, want %s", i, e.Level, wantLevels[i])
		}
		if e.ContextMap()["status"] != wantStatus[i] {
			t.Fatalf("entry %d: status %v, want %d", i, e.ContextMap()["status"], wantStatus[i])
		}
	}
}
