package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/iwvelando/mortgage-simulator/pkg/constants"
	"github.com/iwvelando/mortgage-simulator/pkg/format"
)

// ErrInvalidInput is matched by every FieldErrors value.
var ErrInvalidInput = errors.New("invalid input")

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects every rejected field of a request.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e FieldErrors) Unwrap() error {
	return ErrInvalidInput
}

// Borrower holds the identity fields attached to an accepted proposal.
type Borrower struct {
	Name  string
	Email string
	Phone string
	TaxID string
}

// ValidateBorrower checks the borrower identity fields and returns a
// FieldErrors listing every problem, or nil.
func ValidateBorrower(b Borrower) error {
	var errs FieldErrors

	name := strings.TrimSpace(b.Name)
	switch {
	case name == "":
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	case len([]rune(name)) > constants.MaxNameLength:
		errs = append(errs, FieldError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", constants.MaxNameLength)})
	}

	email := strings.TrimSpace(b.Email)
	switch {
	case email == "":
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	case !emailPattern.MatchString(email):
		errs = append(errs, FieldError{Field: "email", Message: "email is not valid"})
	}

	if format.Digits(b.Phone) == "" {
		errs = append(errs, FieldError{Field: "phone", Message: "phone is required"})
	}

	if len(format.Digits(b.TaxID)) != constants.TaxIDDigits {
		errs = append(errs, FieldError{Field: "taxId", Message: fmt.Sprintf("tax ID must have %d digits", constants.TaxIDDigits)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
