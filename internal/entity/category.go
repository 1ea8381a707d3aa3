package entity

import (
	"fmt"
	"strings"
)

// Category is a user's role; it fixes the borrowing limit and the loan duration.
type Category string

// Categories.
const (
	CategoryStudent       Category = "STUDENT"
	CategoryProfessor     Category = "PROFESSOR"
	CategoryAdministrator Category = "ADMINISTRATOR"
)

type categoryRules struct {
	label    string
	limit    int
	loanDays int
}

var categories = map[Category]categoryRules{
	CategoryStudent:       {"Student", 3, 15},
	CategoryProfessor:     {"Professor", 5, 30},
	CategoryAdministrator: {"Administrator", 10, 60},
}

// Names accepted by ParseCategory in addition to the canonical ones. They
// appear in data files written by the earlier Spanish edition.
var categoryAliases = map[string]Category{
	"ESTUDIANTE":    CategoryStudent,
	"PROFESOR":      CategoryProfessor,
	"ADMINISTRADOR": CategoryAdministrator,
}

// Categories returns all categories in ascending limit order.
func Categories() []Category {
	return []Category{CategoryStudent, CategoryProfessor, CategoryAdministrator}
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if c := Category(u); c.Valid() {
		return c, nil
	}
	if c, ok := categoryAliases[u]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown user category %q", s)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Limit returns the maximum number of simultaneously active loans.
func (c Category) Limit() int {
	return categories[c].limit
}

// LoanDays returns the loan duration in days.
func (c Category) LoanDays() int {
	return categories[c].loanDays
}

// Label returns the human readable name.
func (c Category) Label() string {
	if r, ok := categories[c]; ok {
		return r.label
	}
	return string(c)
}
