package entity

import (
	"errors"
	"strconv"

	"github.com/maruel/biblio/internal/flatfile"
)

// BookHeader is the header line of the books file.
const BookHeader = "id;title;author;copiesAvailable;copiesTotal"

const bookColumns = 5

var errCopiesOutOfRange = errors.New("available copies must be between 0 and the total")

// Book is a catalog entry with a number of physical copies.
type Book struct {
	ID              int    `json:"id" jsonschema:"description=Identity assigned by the store"`
	Title           string `json:"title" validate:"required"`
	Author          string `json:"author" validate:"required"`
	CopiesAvailable int    `json:"copies_available" validate:"gte=0,ltefield=CopiesTotal"`
	CopiesTotal     int    `json:"copies_total" validate:"gte=0"`
}

// NewBook returns a book whose copies are all available.
func NewBook(title, author string, copies int) *Book {
	return &Book{Title: title, Author: author, CopiesAvailable: copies, CopiesTotal: copies}
}

// GetID returns the book's ID.
func (b *Book) GetID() int {
	return b.ID
}

// SetID sets the book's ID.
func (b *Book) SetID(id int) {
	b.ID = id
}

// Validate checks the copy counts, which every decoded book satisfies.
func (b *Book) Validate() error {
	return validate.StructExcept(b, "Title", "Author")
}

// ValidateNew also requires a title and an author.
func (b *Book) ValidateNew() error {
	return validate.Struct(b)
}

// IsAvailable reports whether at least one copy can be lent.
func (b *Book) IsAvailable() bool {
	return b.CopiesAvailable > 0
}

// Checkout takes one copy off the shelf. It returns false when none is left.
func (b *Book) Checkout() bool {
	if b.CopiesAvailable <= 0 {
		return false
	}
	b.CopiesAvailable--
	return true
}

// ReturnCopy puts one copy back on the shelf, never exceeding the total.
func (b *Book) ReturnCopy() {
	if b.CopiesAvailable < b.CopiesTotal {
		b.CopiesAvailable++
	}
}

// Encode returns the record line of the book.
func (b *Book) Encode() string {
	return flatfile.Join(
		strconv.Itoa(b.ID),
		flatfile.Escape(b.Title),
		flatfile.Escape(b.Author),
		strconv.Itoa(b.CopiesAvailable),
		strconv.Itoa(b.CopiesTotal),
	)
}

// DecodeBook parses a books file line.
func DecodeBook(line string) (*Book, error) {
	r, err := flatfile.Split(line, bookColumns)
	if err != nil {
		return nil, err
	}
	b := &Book{Title: r.Text(1), Author: r.Text(2)}
	if b.ID, err = r.Int(0, "id"); err != nil {
		return nil, err
	}
	if b.CopiesAvailable, err = r.Int(3, "copiesAvailable"); err != nil {
		return nil, err
	}
	if b.CopiesTotal, err = r.Int(4, "copiesTotal"); err != nil {
		return nil, err
	}
	if b.CopiesAvailable < 0 || b.CopiesAvailable > b.CopiesTotal {
		return nil, r.Fail("copiesAvailable", errCopiesOutOfRange)
	}
	return b, nil
}

// BookCodec is the flatfile codec of the books file.
type BookCodec struct{}

// Header implements flatfile.Codec.
func (BookCodec) Header() string { return BookHeader }

// Encode implements flatfile.Codec.
func (BookCodec) Encode(b *Book) string { return b.Encode() }

// Decode implements flatfile.Codec.
func (BookCodec) Decode(line string) (*Book, error) { return DecodeBook(line) }
