package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	applog "kakeibo/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: &buf})

	var seen string
	h := Middleware(logger, func(*http.Request) string { return "203.0.113.9" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestID(r.Context())
			applog.FromContext(r.Context()).Info("inside")
			w.WriteHeader(http.StatusTeapot)
		}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", seen, err)
	}
	if got := rr.Header().Get(HeaderRequestID); got != seen {
		t.Fatalf("header %q, context %q", got, seen)
	}

	out := buf.String()
	for _, want := range []string{
		"msg=inside",
		"request_id=" + seen,
		"status_code=418",
		"client_ip=203.0.113.9",
		"level=WARN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestResponseWriterDefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf})
	h := Middleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "status_code=200") {
		t.Fatalf("expected status 200 in log:\n%s", buf.String())
	}
}
