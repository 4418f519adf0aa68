package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	"kakeibo/internal/services"
)

var passwordTooLongMessage = fmt.Sprintf("Use at most %d bytes. Accented and non-Latin characters take 2 to 4 bytes each.", auth.MaxPasswordBytes)

// formValidator checks decoded forms and reports problems keyed by the
// HTML field name.
type formValidator struct {
	v *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("password_bytes", validatePasswordBytes)
	return &formValidator{v: v}
}

func validatePasswordBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= auth.MaxPasswordBytes
}

func validateTransactionType(fl validator.FieldLevel) bool {
	_, err := core.ParseTransactionType(fl.Field().String())
	return err == nil
}

// check returns nil when form is valid.
func (fv *formValidator) check(form any) map[string]string {
	err := fv.v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": "The form could not be read."}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = fieldMessage(fe)
		}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "datetime":
		return "Use the YYYY-MM-DD format."
	case "number":
		return "Choose one of the listed options."
	case "transaction_type":
		return "Choose income or expense."
	case "password_bytes":
		return passwordTooLongMessage
	case "max":
		return fmt.Sprintf("Use at most %s characters.", fe.Param())
	default:
		return "This value is not valid."
	}
}

type registerForm struct {
	Name     string `form:"name" validate:"required,max=100"`
	Email    string `form:"email" validate:"required,max=254"`
	Password string `form:"password" validate:"required,password_bytes"`
}

func parseRegisterForm(r *http.Request) registerForm {
	return registerForm{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

type loginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

func parseLoginForm(r *http.Request) loginForm {
	return loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

// transactionForm keeps submitted values as strings so an invalid form can
// be shown again exactly as entered.
type transactionForm struct {
	Date            string `form:"date" validate:"required,datetime=2006-01-02"`
	Category        string `form:"category" validate:"required,number"`
	Amount          string `form:"amount" validate:"required"`
	TransactionType string `form:"transaction_type" validate:"required,transaction_type"`
	PaymentMethod   string `form:"payment_method" validate:"omitempty,number"`
	Note            string `form:"note" validate:"max=500"`
}

func parseTransactionForm(r *http.Request) transactionForm {
	return transactionForm{
		Date:            strings.TrimSpace(r.PostFormValue("date")),
		Category:        strings.TrimSpace(r.PostFormValue("category")),
		Amount:          strings.TrimSpace(r.PostFormValue("amount")),
		TransactionType: strings.TrimSpace(r.PostFormValue("transaction_type")),
		PaymentMethod:   strings.TrimSpace(r.PostFormValue("payment_method")),
		Note:            strings.TrimSpace(r.PostFormValue("note")),
	}
}

// formFromTransaction fills the edit form from a stored row.
func formFromTransaction(t core.Transaction) transactionForm {
	f := transactionForm{
		Date:            t.Date.Format(core.DateLayout),
		Category:        strconv.FormatInt(t.CategoryID, 10),
		Amount:          strconv.FormatInt(t.Magnitude(), 10),
		TransactionType: t.Type().String(),
		Note:            t.Note,
	}
	if t.PaymentMethodID != nil {
		f.PaymentMethod = strconv.FormatInt(*t.PaymentMethodID, 10)
	}
	return f
}

// input converts a validated form. The amount is passed through untouched
// for the ledger to parse.
func (f transactionForm) input() (services.TransactionInput, error) {
	date, err := time.Parse(core.DateLayout, f.Date)
	if err != nil {
		return services.TransactionInput{}, fmt.Errorf("%w: date", core.ErrInvalidInput)
	}
	category, err := strconv.ParseInt(f.Category, 10, 64)
	if err != nil {
		return services.TransactionInput{}, fmt.Errorf("%w: category", core.ErrInvalidInput)
	}
	typ, err := core.ParseTransactionType(f.TransactionType)
	if err != nil {
		return services.TransactionInput{}, err
	}
	in := services.TransactionInput{
		Date:       date,
		CategoryID: category,
		AmountRaw:  f.Amount,
		Type:       typ,
		Note:       f.Note,
	}
	if f.PaymentMethod != "" {
		pm, err := strconv.ParseInt(f.PaymentMethod, 10, 64)
		if err != nil {
			return services.TransactionInput{}, fmt.Errorf("%w: payment method", core.ErrInvalidInput)
		}
		in.PaymentMethodID = &pm
	}
	return in, nil
}
