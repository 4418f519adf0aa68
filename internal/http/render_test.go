package http

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kakeibo/internal/auth"
)

const renderTemplates = `
{{define "ok.html"}}{{range .Flashes}}<p>{{.Message}}</p>{{end}}{{end}}
{{define "broken.html"}}{{range .Flashes}}{{.Message}}{{end}}{{.Data.Missing}}{{end}}
`

func newRenderServer(t *testing.T) *Server {
	t.Helper()
	return &Server{
		templates: template.Must(template.New("").Parse(renderTemplates)),
		codec:     auth.NewCodec([]byte(testSecret), time.Hour, false),
	}
}

// flashRequest returns a GET carrying a queued notice.
func flashRequest(t *testing.T, codec *auth.Codec, msg string) *http.Request {
	t.Helper()
	rr := httptest.NewRecorder()
	if err := codec.AddFlash(rr, httptest.NewRequest(http.MethodPost, "/x", nil), auth.Flash{Category: auth.FlashSuccess, Message: msg}); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, ck := range rr.Result().Cookies() {
		req.AddCookie(ck)
	}
	return req
}

func flashCleared(resp *http.Response) bool {
	for _, ck := range resp.Cookies() {
		if ck.Name == auth.FlashCookieName && ck.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestRenderConsumesFlashesOnlyOnSuccess(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		wantStatus  int
		wantCleared bool
		wantBody    string
	}{
		{name: "rendered", template: "ok.html", wantStatus: http.StatusOK, wantCleared: true, wantBody: "<p>Saved.</p>"},
		{name: "template fails", template: "broken.html", wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newRenderServer(t)
			rr := httptest.NewRecorder()
			s.render(rr, flashRequest(t, s.codec, "Saved."), http.StatusOK, tt.template, page{Data: struct{}{}})

			resp := rr.Result()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := flashCleared(resp); got != tt.wantCleared {
				t.Errorf("flash cookie cleared = %v, want %v", got, tt.wantCleared)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rr.Body.String(), tt.wantBody)
			}
			if tt.wantStatus != http.StatusOK && strings.Contains(rr.Body.String(), "Saved.") {
				t.Error("partial page leaked the notice")
			}
		})
	}
}
