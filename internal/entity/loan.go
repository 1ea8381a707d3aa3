package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/biblio/internal/flatfile"
)

// LoanHeader is the header line of the loans file.
const LoanHeader = "id;userId;bookId;loanDate;expectedReturnDate;actualReturnDate;state;notes"

const loanColumns = 8

var (
	errDueBeforeLoan = errors.New("expected return date precedes loan date")
	errLoanUnbound   = errors.New("loan must reference a user and a book")
)

// LoanState is the lifecycle state of a loan.
//
// Only StateActive and StateReturned are stored. StateOverdue is what an
// active loan past its expected return date displays as.
type LoanState string

// Loan states.
const (
	StateActive   LoanState = "ACTIVE"
	StateReturned LoanState = "RETURNED"
	StateOverdue  LoanState = "OVERDUE"
)

// ParseLoanState parses a stored state, case-insensitively.
//
// OVERDUE is accepted and read back as ACTIVE since it is never a stored
// transition target. The Spanish names of the earlier edition are accepted.
func ParseLoanState(s string) (LoanState, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACTIVE", "ACTIVO", "OVERDUE", "VENCIDO":
		return StateActive, nil
	case "RETURNED", "DEVUELTO":
		return StateReturned, nil
	}
	return "", fmt.Errorf("unknown loan state %q", s)
}

// Label returns the human readable state.
func (s LoanState) Label() string {
	switch s {
	case StateActive:
		return "Active"
	case StateReturned:
		return "Returned"
	case StateOverdue:
		return "Overdue"
	}
	return string(s)
}

// Loan is one copy of a book lent to a user.
type Loan struct {
	ID             int       `validate:"gte=0"`
	User           *User     `validate:"-"`
	Book           *Book     `validate:"-"`
	LoanDate       time.Time `validate:"required"`
	ExpectedReturn time.Time `validate:"required"`
	ActualReturn   time.Time // Zero until returned.
	State          LoanState `validate:"stored_state"`
	Notes          string
}

// NewLoan returns an active loan made today, due after the user's category
// loan duration.
func NewLoan(user *User, book *Book, today time.Time) *Loan {
	day := DateOf(today)
	return &Loan{
		User:           user,
		Book:           book,
		LoanDate:       day,
		ExpectedReturn: day.AddDate(0, 0, user.Category.LoanDays()),
		State:          StateActive,
	}
}

// GetID returns the loan's ID.
func (l *Loan) GetID() int {
	return l.ID
}

// SetID sets the loan's ID.
func (l *Loan) SetID(id int) {
	l.ID = id
}

// Validate checks the references, dates and state of a stored loan.
func (l *Loan) Validate() error {
	if l.User == nil || l.Book == nil {
		return errLoanUnbound
	}
	return validate.Struct(l)
}

// ValidateNew also requires the due date not to precede the loan date.
func (l *Loan) ValidateNew() error {
	if err := l.Validate(); err != nil {
		return err
	}
	if l.ExpectedReturn.Before(l.LoanDate) {
		return errDueBeforeLoan
	}
	return nil
}

// UserID returns the referenced user id.
func (l *Loan) UserID() int {
	if l.User == nil {
		return 0
	}
	return l.User.ID
}

// BookID returns the referenced book id.
func (l *Loan) BookID() int {
	if l.Book == nil {
		return 0
	}
	return l.Book.ID
}

// IsActive reports whether the loan has not been returned.
func (l *Loan) IsActive() bool {
	return l.State == StateActive
}

// IsOverdue reports whether the loan is active and today is strictly after
// its expected return date.
func (l *Loan) IsOverdue(today time.Time) bool {
	return l.IsActive() && DateOf(today).After(l.ExpectedReturn)
}

// DaysOverdue returns how many days past due an overdue loan is, else 0.
func (l *Loan) DaysOverdue(today time.Time) int {
	if !l.IsOverdue(today) {
		return 0
	}
	return int(DateOf(today).Sub(l.ExpectedReturn).Hours() / 24)
}

// DisplayState returns StateOverdue for an overdue loan, else the stored state.
func (l *Loan) DisplayState(today time.Time) LoanState {
	if l.IsOverdue(today) {
		return StateOverdue
	}
	return l.State
}

// MarkReturned closes the loan today.
//
// It returns false, leaving the loan untouched, when it was already returned.
func (l *Loan) MarkReturned(today time.Time) bool {
	if !l.IsActive() {
		return false
	}
	l.ActualReturn = DateOf(today)
	l.State = StateReturned
	return true
}

// Encode returns the record line of the loan. Only ids of the referenced
// user and book are written.
func (l *Loan) Encode() string {
	return flatfile.Join(
		strconv.Itoa(l.ID),
		strconv.Itoa(l.UserID()),
		strconv.Itoa(l.BookID()),
		flatfile.FormatDate(l.LoanDate),
		flatfile.FormatDate(l.ExpectedReturn),
		flatfile.FormatDate(l.ActualReturn),
		string(l.State),
		flatfile.Escape(l.Notes),
	)
}

// Resolver returns the live user and book for the ids stored in the line of
// loan loanID.
type Resolver func(loanID, userID, bookID int) (*User, *Book, error)

// DecodeLoan parses a loans file line, resolving its references with resolve.
//
// Format errors are reported before resolve is called.
func DecodeLoan(line string, resolve Resolver) (*Loan, error) {
	r, err := flatfile.Split(line, loanColumns)
	if err != nil {
		return nil, err
	}
	l := &Loan{Notes: r.Text(7)}
	if l.ID, err = r.Int(0, "id"); err != nil {
		return nil, err
	}
	userID, err := r.Int(1, "userId")
	if err != nil {
		return nil, err
	}
	bookID, err := r.Int(2, "bookId")
	if err != nil {
		return nil, err
	}
	if l.LoanDate, err = r.Date(3, "loanDate"); err != nil {
		return nil, err
	}
	if l.ExpectedReturn, err = r.Date(4, "expectedReturnDate"); err != nil {
		return nil, err
	}
	if l.ActualReturn, err = r.OptionalDate(5, "actualReturnDate"); err != nil {
		return nil, err
	}
	if l.State, err = ParseLoanState(r.Text(6)); err != nil {
		return nil, r.Fail("state", err)
	}
	if l.User, l.Book, err = resolve(l.ID, userID, bookID); err != nil {
		return nil, err
	}
	return l, nil
}
