package storage

import (
	"errors"
	"fmt"
)

// Rule violations reported by the stores and the Library.
var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrNotAttached     = errors.New("loan store needs both the user and the book store")
	ErrBookUnavailable = errors.New("no copy of the book is available")
	ErrUserInactive    = errors.New("user is inactive")
	ErrBorrowLimit     = errors.New("user reached the borrowing limit")
	ErrHasActiveLoans  = errors.New("active loans still reference it")
	ErrLoanNotActive   = errors.New("loan was already returned")
)

// ReferenceError is a loan line whose user or book is missing from its store.
type ReferenceError struct {
	LoanID int
	Kind   string // "user" or "book"
	ID     int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("loan %d references unknown %s %d", e.LoanID, e.Kind, e.ID)
}
