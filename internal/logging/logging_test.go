package logging

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/photo-check/internal/photo"
)

func TestOperationErrorKeepsCauseMatchable(t *testing.T) {
	err := NewOperationError("usecase.validate_photo", "req-1", photo.ErrDecode)

	if !errors.Is(err, photo.ErrDecode) {
		t.Fatalf("expected errors.Is to match ErrDecode, got %v", err)
	}
	want := "usecase.validate_photo (request_id=req-1): image decode failed"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNewOperationErrorNil(t *testing.T) {
	if err := NewOperationError("op", "", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if got := NewOperationError("op", "", errors.New("boom")).Error(); got != "op: boom" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	logger, err := NewLogger("warn")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info to be disabled at warn level")
	}

	fallback, err := NewLogger("nonsense")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	if !fallback.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected unknown level to fall back to info")
	}
}

func TestGinMiddlewareLogsRejections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	entries := logs.FilterMessage("request rejected").All()
	if len(entries) != 1 {
		t.Fatalf("expected one rejection entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["path"] != "/bad" {
		t.Fatalf("unexpected path field: %v", entries[0].ContextMap()["path"])
	}
}
