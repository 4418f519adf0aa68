package http

import (
	"errors"
	"net/http"

	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
)

type registerView struct {
	Form   registerForm
	Errors map[string]string
}

type loginView struct {
	Email string
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", page{Title: "Register", Data: registerView{}})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	form := parseRegisterForm(r)
	view := registerView{Form: registerForm{Name: form.Name, Email: form.Email}}

	if errs := s.forms.check(form); errs != nil {
		view.Errors = errs
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", page{Title: "Register", Data: view})
		return
	}

	_, err := s.accounts.Register(r.Context(), form.Name, form.Email, form.Password)
	switch {
	case errors.Is(err, core.ErrDuplicateEmail):
		view.Errors = map[string]string{"email": "This email is already registered."}
		s.render(w, r, http.StatusConflict, "register.html", page{Title: "Register", Data: view})
		return
	case errors.Is(err, auth.ErrPasswordTooLong):
		view.Errors = map[string]string{"password": passwordTooLongMessage}
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", page{Title: "Register", Data: view})
		return
	case errors.Is(err, core.ErrInvalidInput):
		view.Errors = map[string]string{"email": "Enter a valid email address."}
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", page{Title: "Register", Data: view})
		return
	case err != nil:
		s.serverError(w, r, "Registration failed", err, applog.OpRegister)
		return
	}

	s.redirectWithFlash(w, r, "/login", auth.FlashSuccess, "Registration successful. Please log in.")
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", page{Title: "Log in", Data: loginView{}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form := parseLoginForm(r)
	failed := func() {
		s.render(w, r, http.StatusUnauthorized, "login.html", page{
			Title:   "Log in",
			Flashes: []auth.Flash{{Category: auth.FlashDanger, Message: "Invalid email or password."}},
			Data:    loginView{Email: form.Email},
		})
	}

	if errs := s.forms.check(form); errs != nil {
		failed()
		return
	}

	user, err := s.accounts.Login(r.Context(), form.Email, form.Password)
	if errors.Is(err, core.ErrInvalidCredentials) {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Login rejected")
		failed()
		return
	}
	if err != nil {
		s.serverError(w, r, "Login failed", err, applog.OpLogin)
		return
	}

	sess := auth.Session{UserID: user.ID, Name: user.Name, IsAdmin: user.IsAdmin}
	if err := s.codec.SetSession(w, sess); err != nil {
		s.serverError(w, r, "Failed to issue session", err, applog.OpLogin)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "User logged in",
		applog.FieldUserID, user.ID)
	s.redirectWithFlash(w, r, "/dashboard", auth.FlashSuccess, "Welcome back, "+user.Name+".")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.codec.ClearSession(w)
	s.redirectWithFlash(w, r, "/login", auth.FlashSuccess, "You have been logged out.")
}
