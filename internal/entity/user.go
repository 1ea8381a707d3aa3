package entity

import (
	"strconv"
	"time"

	"github.com/maruel/biblio/internal/flatfile"
)

// UserHeader is the header line of the users file.
const UserHeader = "id;name;email;phone;category;registrationDate;active"

const userColumns = 7

// User is a registered borrower.
type User struct {
	ID         int       `json:"id"`
	Name       string    `json:"name" validate:"required"`
	Email      string    `json:"email" validate:"required,email"`
	Phone      string    `json:"phone,omitempty"`
	Category   Category  `json:"category" validate:"category" jsonschema:"enum=STUDENT,enum=PROFESSOR,enum=ADMINISTRATOR"`
	Registered time.Time `json:"registered" jsonschema:"description=Registration date"`
	Active     bool      `json:"active"`

	// History holds the user's loans known to this process, oldest first. It
	// is not persisted with the user; the loans file is authoritative.
	History []*Loan `json:"-" validate:"-"`
}

// NewUser returns an active user registered on the given day.
func NewUser(name, email, phone string, category Category, registered time.Time) *User {
	return &User{
		Name:       name,
		Email:      email,
		Phone:      phone,
		Category:   category,
		Registered: DateOf(registered),
		Active:     true,
	}
}

// GetID returns the user's ID.
func (u *User) GetID() int {
	return u.ID
}

// SetID sets the user's ID.
func (u *User) SetID(id int) {
	u.ID = id
}

// Validate checks the fields a stored user must have. Name and email are
// not checked since files written by earlier editions may lack them.
func (u *User) Validate() error {
	return validate.StructExcept(u, "Name", "Email")
}

// ValidateNew checks every field of a user being registered.
func (u *User) ValidateNew() error {
	return validate.Struct(u)
}

// Limit returns the category's borrowing limit.
func (u *User) Limit() int {
	return u.Category.Limit()
}

// ActiveLoanCount counts the loans in History that are still active.
func (u *User) ActiveLoanCount() int {
	n := 0
	for _, l := range u.History {
		if l.IsActive() {
			n++
		}
	}
	return n
}

// CanBorrow reports whether the user may take one more loan.
func (u *User) CanBorrow() bool {
	return u.Active && u.ActiveLoanCount() < u.Limit()
}

// RecordLoan appends l to History. The change is not persisted.
func (u *User) RecordLoan(l *Loan) {
	u.History = append(u.History, l)
}

// Encode returns the record line of the user.
func (u *User) Encode() string {
	return flatfile.Join(
		strconv.Itoa(u.ID),
		flatfile.Escape(u.Name),
		flatfile.Escape(u.Email),
		flatfile.Escape(u.Phone),
		string(u.Category),
		flatfile.FormatDate(u.Registered),
		strconv.FormatBool(u.Active),
	)
}

// DecodeUser parses a users file line.
func DecodeUser(line string) (*User, error) {
	r, err := flatfile.Split(line, userColumns)
	if err != nil {
		return nil, err
	}
	u := &User{Name: r.Text(1), Email: r.Text(2), Phone: r.Text(3)}
	if u.ID, err = r.Int(0, "id"); err != nil {
		return nil, err
	}
	if u.Category, err = ParseCategory(r.Text(4)); err != nil {
		return nil, r.Fail("category", err)
	}
	if u.Registered, err = r.Date(5, "registrationDate"); err != nil {
		return nil, err
	}
	if u.Active, err = r.Bool(6, "active"); err != nil {
		return nil, err
	}
	return u, nil
}

// UserCodec is the flatfile codec of the users file.
type UserCodec struct{}

// Header implements flatfile.Codec.
func (UserCodec) Header() string { return UserHeader }

// Encode implements flatfile.Codec.
func (UserCodec) Encode(u *User) string { return u.Encode() }

// Decode implements flatfile.Codec.
func (UserCodec) Decode(line string) (*User, error) { return DecodeUser(line) }
