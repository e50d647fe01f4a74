package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccessLogMasksTokensAndSkipsHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/confirm", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for _, p := range []string{"/health", "/confirm?token=abc&email=x"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("level = %v", e.Level)
	}
	q, ok := e.ContextMap()["query"].(url.Values)
	if !ok {
		t.Fatalf("query field = %#v", e.ContextMap()["query"])
	}
	if q["token"][0] != "****" || q["email"][0] != "x" {
		t.Errorf("query = %v", q)
	}
	if e.ContextMap()["rid"] == "" {
		t.Error("missing request id")
	}
}
