package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/reaction-leaderboard/internal/services"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "kaboom" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_Fail_4xxIsNotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) { c.Set("logger", &logger); c.Next() })
	r.GET("/missing", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound || buf.Len() != 0 {
		t.Fatalf("status=%d logs=%q", w.Code, buf.String())
	}
}

func Test_failService_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter string
	}{
		{"cooldown", &services.RateLimitError{RetryAfter: 1500 * time.Millisecond}, 429, ErrCodeRateLimited, "2"},
		{"bare rate limit", services.ErrRateLimited, 429, ErrCodeRateLimited, "1"},
		{"invalid score", services.ErrInvalidScore, 400, ErrCodeInvalidScore, ""},
		{"invalid action", services.ErrInvalidAction, 400, ErrCodeInvalidAction, ""},
		{"not found", services.ErrScoreNotFound, 404, ErrCodeNotFound, ""},
		{"user lookup", services.ErrUserNotFound, 500, ErrCodeInternal, ""},
		{"store", fmt.Errorf("%w: disk full", services.ErrStoreUnavailable), 503, ErrCodeServiceUnavailable, ""},
		{"unknown", errors.New("???"), 500, ErrCodeInternal, ""},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/x", func(c *gin.Context) { failService(c, tc.err) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		if w.Code != tc.status {
			t.Fatalf("%s: status=%d want %d", tc.name, w.Code, tc.status)
		}
		var er ErrorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &er)
		if er.Code != tc.code {
			t.Fatalf("%s: code=%q want %q", tc.name, er.Code, tc.code)
		}
		if got := w.Header().Get("Retry-After"); got != tc.retryAfter {
			t.Fatalf("%s: Retry-After=%q want %q", tc.name, got, tc.retryAfter)
		}
		if tc.status == 429 && er.Message != MsgSuspiciousActivity {
			t.Fatalf("%s: message=%q", tc.name, er.Message)
		}
		if strings.Contains(w.Body.String(), "disk full") {
			t.Fatalf("%s: store detail leaked: %s", tc.name, w.Body.String())
		}
	}
}
