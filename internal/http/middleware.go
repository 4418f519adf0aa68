package http

import (
	"net/http"

	"kakeibo/internal/auth"
	applog "kakeibo/internal/log"
)

// loadSession decodes the session cookie, when valid, into the request
// context and tags the request logger with the user id.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.codec.ReadSession(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.WithSession(r.Context(), sess)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, sess.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession sends anonymous visitors to the login page.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.SessionFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin lets only admins through. Everyone else, anonymous
// visitors included, lands on the dashboard with a warning.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := auth.SessionFromContext(r.Context())
		if !ok || !sess.IsAdmin {
			applog.FromContext(r.Context()).InfoContext(r.Context(), "Admin page refused",
				applog.FieldPath, r.URL.Path, "authenticated", ok)
			s.redirectWithFlash(w, r, "/dashboard", auth.FlashWarning, "You need administrator rights to access that page.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) auth.Session {
	sess, _ := auth.SessionFromContext(r.Context())
	return sess
}
