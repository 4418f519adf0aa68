package http

import (
	"errors"
	"net/http"

	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
)

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "admin_dashboard.html", page{Title: "Administration"})
}

func (s *Server) handleAddCategoryForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "add_category.html", page{Title: "Add category"})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	_, err := s.reference.AddCategory(r.Context(), r.PostFormValue("category_name"))
	switch {
	case errors.Is(err, core.ErrEmptyName):
		s.redirectWithFlash(w, r, "/dashboard", auth.FlashDanger, "Category name cannot be empty.")
	case errors.Is(err, core.ErrDuplicateCategoryName):
		s.redirectWithFlash(w, r, "/dashboard", auth.FlashWarning, "Category already exists.")
	case err != nil:
		s.serverError(w, r, "Failed to add category", err, applog.OpCreate)
	default:
		s.redirectWithFlash(w, r, "/dashboard", auth.FlashSuccess, "Category added successfully.")
	}
}

func (s *Server) handleAddPaymentMethodForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "add_payment_method.html", page{Title: "Add payment method"})
}

func (s *Server) handleAddPaymentMethod(w http.ResponseWriter, r *http.Request) {
	_, err := s.reference.AddPaymentMethod(r.Context(), r.PostFormValue("payment_method_name"))
	switch {
	case errors.Is(err, core.ErrEmptyName):
		s.redirectWithFlash(w, r, "/dashboard", auth.FlashDanger, "Payment method name cannot be empty.")
	case errors.Is(err, core.ErrDuplicatePaymentMethodName):
		s.redirectWithFlash(w, r, "/dashboard", auth.FlashWarning, "Payment method already exists.")
	case err != nil:
		s.serverError(w, r, "Failed to add payment method", err, applog.OpCreate)
	default:
		s.redirectWithFlash(w, r, "/dashboard", auth.FlashSuccess, "Payment method added successfully.")
	}
}
