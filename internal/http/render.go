package http

import (
	"bytes"
	"net/http"

	"kakeibo/internal/auth"
	applog "kakeibo/internal/log"
	"kakeibo/internal/middleware/trace"
)

// page is the value every template is executed with.
type page struct {
	Title   string
	Session *auth.Session
	Flashes []auth.Flash
	Data    any
}

// render executes the named template into a buffer so a failure never
// leaves a half-written page. Pending flashes are shown after the notices
// already on p and only consumed once the page rendered.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		p.Session = &sess
	}
	p.Flashes = append(p.Flashes, s.codec.PendingFlashes(r)...)

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, p); err != nil {
		applog.FromContext(r.Context()).LogError(r.Context(), "Template render failed", err, applog.OpRender,
			applog.FieldTemplate, name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.codec.ClearFlashes(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// serverError logs err against the request and shows the generic error
// page. The session is left as it was.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	applog.FromContext(r.Context()).LogError(r.Context(), msg, err, op,
		applog.FieldPath, r.URL.Path)
	s.render(w, r, http.StatusInternalServerError, "error.html", page{
		Title: "Error",
		Data:  trace.RequestID(r.Context()),
	})
}

// redirectWithFlash queues a notice and sends the client to url with 303.
func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, url string, category auth.FlashCategory, msg string) {
	if err := s.codec.AddFlash(w, r, auth.Flash{Category: category, Message: msg}); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Failed to queue flash message",
			applog.FieldError, err)
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
