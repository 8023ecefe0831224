package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lightdream/redismanager/logger"
	"github.com/lightdream/redismanager/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newBufferLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", buf)
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_NoPanic(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.Recovery(logger.NewNop()))
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRecovery_Panic(t *testing.T) {
	var buf bytes.Buffer
	engine := gin.New()
	engine.Use(middleware.Recovery(newBufferLogger(&buf)))
	engine.GET("/test", func(c *gin.Context) { panic("test panic") })

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/test", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body["error"] != "Internal server error" {
		t.Fatalf("unexpected error message: %s", body["error"])
	}
	if !strings.Contains(buf.String(), "test panic") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID_GeneratesID(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/", func(c *gin.Context) {
		if c.Request.Header.Get(middleware.HeaderRequestID) == "" {
			t.Error("expected X-Request-Id in request headers")
		}
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Header().Get(middleware.HeaderRequestID) == "" {
		t.Error("expected X-Request-Id in response headers")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "existing-id")
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	if got := rr.Header().Get(middleware.HeaderRequestID); got != "existing-id" {
		t.Errorf("expected 'existing-id', got %q", got)
	}
}

// ---------------------------------------------------------------------------
// RequestLogger
// ---------------------------------------------------------------------------

func TestRequestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.RequestLogger(newBufferLogger(&buf)))
	engine.POST("/send", func(c *gin.Context) { c.Status(http.StatusCreated) })

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("POST", "/send", http.NoBody))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"path":"/send"`) {
		t.Errorf("expected path in log, got %q", out)
	}
	if !strings.Contains(out, `"request_id"`) {
		t.Errorf("expected request_id in log, got %q", out)
	}
}

func TestRequestLogger_ErrorsLoggedAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	engine := gin.New()
	engine.Use(middleware.RequestLogger(newBufferLogger(&buf)))
	engine.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/fail", http.NoBody))

	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("expected error level, got %q", buf.String())
	}
}

func TestRequestLogger_SkipsProbes(t *testing.T) {
	var buf bytes.Buffer
	called := false
	engine := gin.New()
	engine.Use(middleware.RequestLogger(newBufferLogger(&buf)))
	engine.GET("/health", func(c *gin.Context) {
		called = true
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if !called {
		t.Error("handler should still be called for probe endpoints")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output for probes, got %q", buf.String())
	}
}
