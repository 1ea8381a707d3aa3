package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/maruel/biblio/internal/entity"
	"github.com/maruel/biblio/internal/flatfile"
)

// LoanStore persists loans and resolves their user and book references
// against the attached UserStore and BookStore.
//
// Both collaborators must be attached before any other call; until then
// operations return ErrNotAttached. Attaching the second one initializes the
// id counter. A stored loan whose user or book cannot be found is skipped
// and reported by Diagnostics as a *ReferenceError.
type LoanStore struct {
	rows  *flatfile.Store[*entity.Loan]
	clock Clock

	mu    sync.Mutex
	users *UserStore
	books *BookStore
}

// NewLoanStore returns a LoanStore backed by path, without collaborators.
func NewLoanStore(path string, clock Clock) *LoanStore {
	s := &LoanStore{clock: clock}
	s.rows = flatfile.New[*entity.Loan](path, loanCodec{s})
	return s
}

// OpenLoanStore returns a LoanStore with both collaborators attached.
func OpenLoanStore(path string, users *UserStore, books *BookStore, clock Clock) (*LoanStore, error) {
	s := NewLoanStore(path, clock)
	if err := s.AttachUsers(users); err != nil {
		return nil, err
	}
	if err := s.AttachBooks(books); err != nil {
		return nil, err
	}
	return s, nil
}

// AttachUsers sets the store used to resolve loan users.
func (s *LoanStore) AttachUsers(users *UserStore) error {
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	return s.initIfReady()
}

// AttachBooks sets the store used to resolve loan books.
func (s *LoanStore) AttachBooks(books *BookStore) error {
	s.mu.Lock()
	s.books = books
	s.mu.Unlock()
	return s.initIfReady()
}

func (s *LoanStore) collaborators() (*UserStore, *BookStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil || s.books == nil {
		return nil, nil, ErrNotAttached
	}
	return s.users, s.books, nil
}

func (s *LoanStore) initIfReady() error {
	if _, _, err := s.collaborators(); err != nil {
		return nil
	}
	if s.rows.Initialized() {
		return nil
	}
	return s.rows.Init()
}

// Path returns the backing file path.
func (s *LoanStore) Path() string {
	return s.rows.Path()
}

// NextID returns the id the next Create will assign, or 0 before both
// collaborators are attached.
func (s *LoanStore) NextID() int {
	return s.rows.NextID()
}

// Diagnostics returns the errors of the lines skipped by the most recent load.
func (s *LoanStore) Diagnostics() []error {
	return s.rows.Diagnostics()
}

// Create assigns the next id to l and appends it.
//
// It performs no business check: book availability, the borrowing limit and
// the user history are the caller's concern. See Library.IssueLoan.
func (s *LoanStore) Create(l *entity.Loan) error {
	if _, _, err := s.collaborators(); err != nil {
		return err
	}
	return s.rows.Create(l)
}

// Get returns the loan with the given id.
func (s *LoanStore) Get(id int) (*entity.Loan, error) {
	if _, _, err := s.collaborators(); err != nil {
		return nil, err
	}
	return s.rows.Get(id)
}

// All returns every loan whose references resolve.
func (s *LoanStore) All() ([]*entity.Loan, error) {
	if _, _, err := s.collaborators(); err != nil {
		return nil, err
	}
	return s.rows.All()
}

// Filter returns the loans for which match returns true.
func (s *LoanStore) Filter(match func(*entity.Loan) bool) ([]*entity.Loan, error) {
	if _, _, err := s.collaborators(); err != nil {
		return nil, err
	}
	return s.rows.Filter(match)
}

// Update replaces the stored loan with l's id.
func (s *LoanStore) Update(l *entity.Loan) error {
	if _, _, err := s.collaborators(); err != nil {
		return err
	}
	return s.rows.Update(l)
}

// Delete removes the loan with the given id.
func (s *LoanStore) Delete(id int) error {
	if _, _, err := s.collaborators(); err != nil {
		return err
	}
	return s.rows.Delete(id)
}

// FindByUser returns the loans of user userID, oldest first.
func (s *LoanStore) FindByUser(userID int) ([]*entity.Loan, error) {
	return s.Filter(func(l *entity.Loan) bool { return l.UserID() == userID })
}

// FindByBook returns the loans of book bookID.
func (s *LoanStore) FindByBook(bookID int) ([]*entity.Loan, error) {
	return s.Filter(func(l *entity.Loan) bool { return l.BookID() == bookID })
}

// FindByState returns the loans whose stored state is state.
//
// StateOverdue is never stored; use Overdue for it.
func (s *LoanStore) FindByState(state entity.LoanState) ([]*entity.Loan, error) {
	return s.Filter(func(l *entity.Loan) bool { return l.State == state })
}

// Active returns the loans not yet returned.
func (s *LoanStore) Active() ([]*entity.Loan, error) {
	return s.FindByState(entity.StateActive)
}

// Overdue returns the active loans past their expected return date.
func (s *LoanStore) Overdue() ([]*entity.Loan, error) {
	today := Today(s.clock)
	return s.Filter(func(l *entity.Loan) bool { return l.IsOverdue(today) })
}

// FindActive returns the active loan of book bookID to user userID.
func (s *LoanStore) FindActive(bookID, userID int) (*entity.Loan, error) {
	loans, err := s.Filter(func(l *entity.Loan) bool {
		return l.IsActive() && l.BookID() == bookID && l.UserID() == userID
	})
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, flatfile.ErrNotFound
	}
	return loans[0], nil
}

// LoadHistory replaces u.History with u's loans from the file. Each loan's
// User points back to u.
func (s *LoanStore) LoadHistory(u *entity.User) error {
	loans, err := s.FindByUser(u.ID)
	if err != nil {
		return err
	}
	for _, l := range loans {
		l.User = u
	}
	u.History = loans
	return nil
}

// loanCodec decodes loans, resolving references through the attached stores.
type loanCodec struct {
	s *LoanStore
}

func (loanCodec) Header() string { return entity.LoanHeader }

func (loanCodec) Encode(l *entity.Loan) string { return l.Encode() }

func (c loanCodec) Decode(line string) (*entity.Loan, error) {
	return entity.DecodeLoan(line, c.resolve)
}

func (c loanCodec) resolve(loanID, userID, bookID int) (*entity.User, *entity.Book, error) {
	users, books, err := c.s.collaborators()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", flatfile.ErrAbort, err)
	}
	u, err := users.Get(userID)
	if err != nil {
		return nil, nil, referenceError(loanID, "user", userID, err)
	}
	b, err := books.Get(bookID)
	if err != nil {
		return nil, nil, referenceError(loanID, "book", bookID, err)
	}
	return u, b, nil
}

// referenceError reports a missing entity as a ReferenceError. Other lookup
// failures abort the load so that the loans are not dropped on the next
// rewrite.
func referenceError(loanID int, kind string, id int, err error) error {
	if errors.Is(err, flatfile.ErrNotFound) {
		return &ReferenceError{LoanID: loanID, Kind: kind, ID: id}
	}
	return fmt.Errorf("%w: failed to resolve %s %d of loan %d: %w", flatfile.ErrAbort, kind, id, loanID, err)
}
