package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/maruel/biblio/internal/entity"
)

// Paths locates the three data files.
type Paths struct {
	Books string
	Users string
	Loans string
}

// Library enforces the lending rules on top of the three stores.
//
// The stores stay usable directly. Library adds the checks a front-end
// performs before mutating them and applies multi-store changes as a unit:
// when a step fails, the steps already written are undone.
type Library struct {
	Books *BookStore
	Users *UserStore
	Loans *LoanStore

	paths Paths
	clock Clock
}

// OpenLibrary opens the three stores and wires the loan store to the others.
func OpenLibrary(paths Paths, clock Clock) (*Library, error) {
	books, err := OpenBookStore(paths.Books)
	if err != nil {
		return nil, fmt.Errorf("failed to open books: %w", err)
	}
	users, err := OpenUserStore(paths.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to open users: %w", err)
	}
	loans, err := OpenLoanStore(paths.Loans, users, books, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to open loans: %w", err)
	}
	return &Library{Books: books, Users: users, Loans: loans, paths: paths, clock: clock}, nil
}

// Paths returns the data file locations.
func (lib *Library) Paths() Paths {
	return lib.paths
}

// Today returns the library's current date.
func (lib *Library) Today() time.Time {
	return Today(lib.clock)
}

// AddBook adds a book with all its copies available.
func (lib *Library) AddBook(title, author string, copies int) (*entity.Book, error) {
	b := entity.NewBook(title, author, copies)
	if err := lib.Books.Create(b); err != nil {
		return nil, err
	}
	return b, nil
}

// RegisterUser adds an active user registered today.
func (lib *Library) RegisterUser(name, email, phone string, category entity.Category) (*entity.User, error) {
	u := entity.NewUser(name, email, phone, category, lib.Today())
	if err := lib.Users.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

// IssueLoan lends one copy of book bookID to user userID.
//
// The book must have a copy available and the user must be active and below
// the category limit. The book update, the loan creation and the user update
// happen in that order; if one fails, the previous ones are reverted.
func (lib *Library) IssueLoan(bookID, userID int, notes string) (*entity.Loan, error) {
	book, err := lib.Books.Get(bookID)
	if err != nil {
		return nil, fmt.Errorf("book %d: %w", bookID, err)
	}
	if !book.IsAvailable() {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrBookUnavailable)
	}
	user, err := lib.Users.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	if !user.Active {
		return nil, fmt.Errorf("user %d: %w", userID, ErrUserInactive)
	}
	if err := lib.Loans.LoadHistory(user); err != nil {
		return nil, err
	}
	if !user.CanBorrow() {
		return nil, fmt.Errorf("user %d has %d active loans: %w", userID, user.ActiveLoanCount(), ErrBorrowLimit)
	}

	loan := entity.NewLoan(user, book, lib.Today())
	loan.Notes = notes
	var undo undoList
	defer undo.run()

	book.Checkout()
	if err := lib.Books.Update(book); err != nil {
		return nil, err
	}
	undo.add("restore book copy", func() error {
		book.ReturnCopy()
		return lib.Books.Update(book)
	})
	if err := lib.Loans.Create(loan); err != nil {
		return nil, err
	}
	undo.add("delete loan", func() error {
		return lib.Loans.Delete(loan.ID)
	})
	user.RecordLoan(loan)
	if err := lib.Users.Update(user); err != nil {
		return nil, err
	}
	undo.commit()
	return loan, nil
}

// ReturnLoan closes loan loanID today and puts the copy back on the shelf.
func (lib *Library) ReturnLoan(loanID int) (*entity.Loan, error) {
	loan, err := lib.Loans.Get(loanID)
	if err != nil {
		return nil, fmt.Errorf("loan %d: %w", loanID, err)
	}
	if !loan.MarkReturned(lib.Today()) {
		return nil, fmt.Errorf("loan %d: %w", loanID, ErrLoanNotActive)
	}
	var undo undoList
	defer undo.run()

	if err := lib.Loans.Update(loan); err != nil {
		return nil, err
	}
	undo.add("reopen loan", func() error {
		loan.State = entity.StateActive
		loan.ActualReturn = time.Time{}
		return lib.Loans.Update(loan)
	})
	loan.Book.ReturnCopy()
	if err := lib.Books.Update(loan.Book); err != nil {
		return nil, err
	}
	undo.commit()
	return loan, nil
}

// DeleteBook removes a book that no active loan references.
func (lib *Library) DeleteBook(id int) error {
	if _, err := lib.Books.Get(id); err != nil {
		return fmt.Errorf("book %d: %w", id, err)
	}
	loans, err := lib.Loans.FindByBook(id)
	if err != nil {
		return err
	}
	if n := countActive(loans); n > 0 {
		return fmt.Errorf("book %d has %d active loans: %w", id, n, ErrHasActiveLoans)
	}
	return lib.Books.Delete(id)
}

// DeleteUser removes a user that has no active loan.
func (lib *Library) DeleteUser(id int) error {
	if _, err := lib.Users.Get(id); err != nil {
		return fmt.Errorf("user %d: %w", id, err)
	}
	loans, err := lib.Loans.FindByUser(id)
	if err != nil {
		return err
	}
	if n := countActive(loans); n > 0 {
		return fmt.Errorf("user %d has %d active loans: %w", id, n, ErrHasActiveLoans)
	}
	return lib.Users.Delete(id)
}

func countActive(loans []*entity.Loan) int {
	n := 0
	for _, l := range loans {
		if l.IsActive() {
			n++
		}
	}
	return n
}

// Stats summarizes the library.
type Stats struct {
	Books          int `json:"books"`
	AvailableBooks int `json:"available_books"`
	Users          int `json:"users"`
	ActiveLoans    int `json:"active_loans"`
	OverdueLoans   int `json:"overdue_loans"`
}

// Stats counts books, users and loans.
func (lib *Library) Stats() (Stats, error) {
	var st Stats
	books, err := lib.Books.All()
	if err != nil {
		return st, err
	}
	users, err := lib.Users.All()
	if err != nil {
		return st, err
	}
	loans, err := lib.Loans.All()
	if err != nil {
		return st, err
	}
	today := lib.Today()
	st.Books = len(books)
	st.Users = len(users)
	for _, b := range books {
		if b.IsAvailable() {
			st.AvailableBooks++
		}
	}
	for _, l := range loans {
		if l.IsActive() {
			st.ActiveLoans++
		}
		if l.IsOverdue(today) {
			st.OverdueLoans++
		}
	}
	return st, nil
}

// undoList holds compensating steps, run in reverse order unless committed.
type undoList struct {
	steps []undoStep
}

type undoStep struct {
	name string
	fn   func() error
}

func (u *undoList) add(name string, fn func() error) {
	u.steps = append(u.steps, undoStep{name, fn})
}

func (u *undoList) commit() {
	u.steps = nil
}

func (u *undoList) run() {
	for i := len(u.steps) - 1; i >= 0; i-- {
		if err := u.steps[i].fn(); err != nil {
			slog.Error("Rollback failed, data files may be inconsistent", "step", u.steps[i].name, "err", err)
		}
	}
	u.steps = nil
}
