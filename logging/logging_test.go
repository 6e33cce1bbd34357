package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	log, err := New("debug", "console")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug enabled")
	}
	if _, err := New("loud", "json"); err == nil {
		t.Fatal("expected bad level error")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatal("expected bad format error")
	}
}

func TestMiddleware_LogsStatusAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := middleware.RequestID(Middleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/boom", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0].ContextMap()
	if first["status"] != int64(200) || first["path"] != "/health" || first["bytes"] != int64(2) {
		t.Fatalf("unexpected fields %v", first)
	}
	if first["request_id"] == "" || first["request_id"] == nil {
		t.Fatalf("expected request id, got %v", first)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level for 502, got %v", entries[1].Level)
	}
}
