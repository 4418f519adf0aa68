package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
)

type transactionView struct {
	Action         string
	Submit         string
	Form           transactionForm
	Errors         map[string]string
	Categories     []core.Category
	PaymentMethods []core.PaymentMethod
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.ledger.Dashboard(r.Context(), currentUser(r).UserID)
	if err != nil {
		s.serverError(w, r, "Failed to load dashboard", err, applog.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", page{Title: "Dashboard", Data: d})
}

func (s *Server) handleAddTransactionForm(w http.ResponseWriter, r *http.Request) {
	form := transactionForm{
		Date:            time.Now().Format(core.DateLayout),
		TransactionType: core.Expense.String(),
	}
	s.renderTransactionForm(w, r, http.StatusOK, "add_transaction.html", "/add_transaction", form, nil)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	form := parseTransactionForm(r)
	if errs := s.forms.check(form); errs != nil {
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, "add_transaction.html", "/add_transaction", form, errs)
		return
	}
	in, err := form.input()
	if err == nil {
		_, err = s.ledger.Create(r.Context(), currentUser(r).UserID, in)
	}
	if errs, ok := transactionErrors(err); ok {
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, "add_transaction.html", "/add_transaction", form, errs)
		return
	}
	if err != nil {
		s.serverError(w, r, "Failed to create transaction", err, applog.OpCreate)
		return
	}
	s.redirectWithFlash(w, r, "/dashboard", auth.FlashSuccess, "Transaction added.")
}

// handleEditTransactionForm shows an empty form when the transaction does
// not exist or belongs to someone else.
func (s *Server) handleEditTransactionForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	t, found, err := s.ledger.Get(r.Context(), currentUser(r).UserID, id)
	if err != nil {
		s.serverError(w, r, "Failed to load transaction", err, applog.OpRead)
		return
	}
	var form transactionForm
	if found {
		form = formFromTransaction(t)
	}
	s.renderTransactionForm(w, r, http.StatusOK, "edit_transaction.html", editAction(id), form, nil)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	form := parseTransactionForm(r)
	if errs := s.forms.check(form); errs != nil {
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, "edit_transaction.html", editAction(id), form, errs)
		return
	}
	in, err := form.input()
	if err == nil {
		err = s.ledger.Update(r.Context(), currentUser(r).UserID, id, in)
	}
	if errs, ok := transactionErrors(err); ok {
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, "edit_transaction.html", editAction(id), form, errs)
		return
	}
	if err != nil {
		s.serverError(w, r, "Failed to update transaction", err, applog.OpUpdate)
		return
	}
	s.redirectWithFlash(w, r, "/dashboard", auth.FlashSuccess, "Transaction updated.")
}

// handleDeleteTransaction reports success whether or not a row was removed.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(r); ok {
		if err := s.ledger.Delete(r.Context(), currentUser(r).UserID, id); err != nil {
			s.serverError(w, r, "Failed to delete transaction", err, applog.OpDelete)
			return
		}
	}
	s.redirectWithFlash(w, r, "/dashboard", auth.FlashSuccess, "Transaction deleted.")
}

func (s *Server) renderTransactionForm(w http.ResponseWriter, r *http.Request, status int, name, action string, form transactionForm, errs map[string]string) {
	view, err := s.transactionView(r.Context(), action, form, errs)
	if err != nil {
		s.serverError(w, r, "Failed to load reference data", err, applog.OpList)
		return
	}
	title := "Add transaction"
	if name == "edit_transaction.html" {
		title = "Edit transaction"
		view.Submit = "Save changes"
	}
	s.render(w, r, status, name, page{Title: title, Data: view})
}

func (s *Server) transactionView(ctx context.Context, action string, form transactionForm, errs map[string]string) (transactionView, error) {
	categories, err := s.reference.Categories(ctx)
	if err != nil {
		return transactionView{}, err
	}
	methods, err := s.reference.PaymentMethods(ctx)
	if err != nil {
		return transactionView{}, err
	}
	return transactionView{
		Action:         action,
		Submit:         "Add transaction",
		Form:           form,
		Errors:         errs,
		Categories:     categories,
		PaymentMethods: methods,
	}, nil
}

// transactionErrors maps ledger validation failures to form errors. It
// reports false for nil and for errors the user cannot fix.
func transactionErrors(err error) (map[string]string, bool) {
	switch {
	case err == nil:
		return nil, false
	case errors.Is(err, core.ErrInvalidAmount):
		return map[string]string{"amount": "Enter a whole number using digits only."}, true
	case errors.Is(err, core.ErrUnknownReference):
		return map[string]string{"form": "The selected category or payment method does not exist."}, true
	case errors.Is(err, core.ErrInvalidInput):
		return map[string]string{"form": "Some fields are not valid."}, true
	default:
		return nil, false
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func editAction(id int64) string {
	return "/edit_transaction/" + strconv.FormatInt(id, 10)
}
