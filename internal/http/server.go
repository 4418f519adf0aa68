package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/services"
	appweb "kakeibo/web"
)

// Accounts registers users and checks credentials.
type Accounts interface {
	Register(ctx context.Context, name, email, password string) (core.User, error)
	Login(ctx context.Context, email, password string) (core.User, error)
}

// Ledger reads and writes the transactions of one user.
type Ledger interface {
	Dashboard(ctx context.Context, userID int64) (core.Dashboard, error)
	Create(ctx context.Context, userID int64, in services.TransactionInput) (int64, error)
	Get(ctx context.Context, userID, id int64) (core.Transaction, bool, error)
	Update(ctx context.Context, userID, id int64, in services.TransactionInput) error
	Delete(ctx context.Context, userID, id int64) error
	ExportRows(ctx context.Context, userID int64) ([]core.LedgerRow, error)
}

// Reference serves and extends categories and payment methods.
type Reference interface {
	Categories(ctx context.Context) ([]core.Category, error)
	PaymentMethods(ctx context.Context) ([]core.PaymentMethod, error)
	AddCategory(ctx context.Context, name string) (core.Category, error)
	AddPaymentMethod(ctx context.Context, name string) (core.PaymentMethod, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server needs. ClientIP may be nil, in
// which case the peer address is logged as is.
type Deps struct {
	Accounts  Accounts
	Ledger    Ledger
	Reference Reference
	Codec     *auth.Codec
	DB        Pinger
	ClientIP  *security.ClientIP
	Logger    *applog.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	accounts  Accounts
	ledger    Ledger
	reference Reference
	codec     *auth.Codec
	db        Pinger
	forms     *formValidator
	logger    *applog.Logger

	shutdownOnce sync.Once
}

var templateFuncs = template.FuncMap{
	"amount": core.FormatAmount,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(core.DateLayout)
	},
	"selected": func(id int64, raw string) bool {
		return raw == strconv.FormatInt(id, 10)
	},
}

// NewServer parses the embedded templates and wires routes and middleware,
// returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Accounts == nil || deps.Ledger == nil || deps.Reference == nil || deps.Codec == nil {
		return nil, errors.New("http server: accounts, ledger, reference and codec are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		accounts:  deps.Accounts,
		ledger:    deps.Ledger,
		reference: deps.Reference,
		codec:     deps.Codec,
		db:        deps.DB,
		forms:     newFormValidator(),
		logger:    logger.WithComponent(applog.ComponentHTTP),
	}

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		return nil, err
	}

	var clientIP func(*http.Request) string
	if deps.ClientIP != nil {
		clientIP = deps.ClientIP.Extract
	}

	var h http.Handler = mux
	h = s.loadSession(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.Middleware(logger, clientIP)(h)
	h = applog.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticCache(3600)(http.StripPrefix("/static/", http.FileServerFS(sub))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	mux.HandleFunc("GET /register", s.handleRegisterForm)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)

	user := func(h http.HandlerFunc) http.Handler { return security.NoStore(s.requireSession(h)) }
	mux.Handle("GET /dashboard", user(s.handleDashboard))
	mux.Handle("GET /add_transaction", user(s.handleAddTransactionForm))
	mux.Handle("POST /add_transaction", user(s.handleAddTransaction))
	mux.Handle("GET /edit_transaction/{id}", user(s.handleEditTransactionForm))
	mux.Handle("POST /edit_transaction/{id}", user(s.handleEditTransaction))
	mux.Handle("POST /delete_transaction/{id}", user(s.handleDeleteTransaction))
	mux.Handle("GET /export.xlsx", user(s.handleExport))

	admin := func(h http.HandlerFunc) http.Handler { return security.NoStore(s.requireAdmin(h)) }
	mux.Handle("GET /admin", admin(s.handleAdminDashboard))
	mux.Handle("GET /add_category", admin(s.handleAddCategoryForm))
	mux.Handle("POST /add_category", admin(s.handleAddCategory))
	mux.Handle("GET /add_payment_method", admin(s.handleAddPaymentMethodForm))
	mux.Handle("POST /add_payment_method", admin(s.handleAddPaymentMethod))
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.templates == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("templates not loaded"))
		return
	}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
	}
	_, _ = w.Write([]byte("ready"))
}
