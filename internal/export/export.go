// Package export writes the whole library as one JSON document and
// describes that document with a JSON Schema.
package export

import (
	"fmt"
	"io"

	"github.com/invopop/jsonschema"
	jsoniter "github.com/json-iterator/go"

	"github.com/maruel/biblio/internal/entity"
	"github.com/maruel/biblio/internal/flatfile"
	"github.com/maruel/biblio/internal/storage"
)

// Dump is a point-in-time copy of the library.
type Dump struct {
	Date  string         `json:"date" jsonschema:"format=date,description=Day the dump was taken"`
	Books []*entity.Book `json:"books"`
	Users []*entity.User `json:"users"`
	Loans []Loan         `json:"loans"`
	Stats storage.Stats  `json:"stats"`
}

// Loan is a loan with its references flattened to ids.
type Loan struct {
	ID             int              `json:"id"`
	UserID         int              `json:"user_id"`
	BookID         int              `json:"book_id"`
	LoanDate       string           `json:"loan_date" jsonschema:"format=date"`
	ExpectedReturn string           `json:"expected_return" jsonschema:"format=date"`
	ActualReturn   string           `json:"actual_return,omitempty" jsonschema:"format=date"`
	State          entity.LoanState `json:"state" jsonschema:"enum=ACTIVE,enum=RETURNED,enum=OVERDUE,description=Display state; OVERDUE is derived from the date"`
	DaysOverdue    int              `json:"days_overdue,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// Build copies the library's current content.
func Build(lib *storage.Library) (*Dump, error) {
	books, err := lib.Books.All()
	if err != nil {
		return nil, fmt.Errorf("failed to read books: %w", err)
	}
	users, err := lib.Users.All()
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	loans, err := lib.Loans.All()
	if err != nil {
		return nil, fmt.Errorf("failed to read loans: %w", err)
	}
	stats, err := lib.Stats()
	if err != nil {
		return nil, err
	}
	today := lib.Today()
	d := &Dump{
		Date:  flatfile.FormatDate(today),
		Books: books,
		Users: users,
		Loans: make([]Loan, 0, len(loans)),
		Stats: stats,
	}
	if d.Books == nil {
		d.Books = []*entity.Book{}
	}
	if d.Users == nil {
		d.Users = []*entity.User{}
	}
	for _, l := range loans {
		d.Loans = append(d.Loans, Loan{
			ID:             l.ID,
			UserID:         l.UserID(),
			BookID:         l.BookID(),
			LoanDate:       flatfile.FormatDate(l.LoanDate),
			ExpectedReturn: flatfile.FormatDate(l.ExpectedReturn),
			ActualReturn:   flatfile.FormatDate(l.ActualReturn),
			State:          l.DisplayState(today),
			DaysOverdue:    l.DaysOverdue(today),
			Notes:          l.Notes,
		})
	}
	return d, nil
}

// Write encodes d as indented JSON.
func Write(w io.Writer, d *Dump) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Schema returns the JSON Schema of Dump.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&Dump{})
	s.Title = "Library export"
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(s, "", "  ")
}
