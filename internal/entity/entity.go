// Package entity defines the library domain records: books, users and loans.
//
// Each record knows how to encode itself as one delimited line and how to be
// decoded from one. Loans reference their user and book by id on disk; the
// live references are restored by the caller at decode time.
package entity

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("stored_state", func(fl validator.FieldLevel) bool {
		s := LoanState(fl.Field().String())
		return s == StateActive || s == StateReturned
	})
	return v
}

// DateOf returns the calendar date of t as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
