// Splits, joins and parses delimited record lines.

package flatfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Delimiter separates the columns of a record line.
const Delimiter = ";"

// DateLayout is the on-disk layout of date columns (ISO-8601 calendar date).
const DateLayout = time.DateOnly

var errMissingColumns = errors.New("missing columns")

// FormatError reports a stored line that cannot be parsed.
type FormatError struct {
	Line   string
	Column string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("invalid record %q: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("invalid record %q: column %s: %v", e.Line, e.Column, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

var escaper = strings.NewReplacer(Delimiter, ",", "\n", " ", "\r", " ")

// Escape replaces the delimiter with a comma and line breaks with spaces.
//
// The replacement is lossy: a value containing the delimiter does not survive
// a round trip unchanged.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Join returns the record line made of fields. Fields must already be escaped.
func Join(fields ...string) string {
	return strings.Join(fields, Delimiter)
}

// IsHeader reports whether line looks like a header line.
func IsHeader(line string) bool {
	return len(line) >= 3 && strings.EqualFold(line[:3], "id"+Delimiter)
}

// Record is a split record line.
type Record struct {
	line   string
	fields []string
}

// Split splits line into at least n trimmed columns.
//
// Columns beyond n are kept but callers usually ignore them.
func Split(line string, n int) (*Record, error) {
	fields := strings.Split(line, Delimiter)
	if len(fields) < n {
		return nil, &FormatError{Line: line, Err: fmt.Errorf("%w: got %d, want %d", errMissingColumns, len(fields), n)}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return &Record{line: line, fields: fields}, nil
}

// Line returns the original line.
func (r *Record) Line() string {
	return r.line
}

// Text returns column i as is.
func (r *Record) Text(i int) string {
	return r.fields[i]
}

// Int parses column i as a base 10 integer.
func (r *Record) Int(i int, name string) (int, error) {
	v, err := strconv.Atoi(r.fields[i])
	if err != nil {
		return 0, r.Fail(name, err)
	}
	return v, nil
}

// Date parses column i as a calendar date.
func (r *Record) Date(i int, name string) (time.Time, error) {
	v, err := time.ParseInLocation(DateLayout, r.fields[i], time.UTC)
	if err != nil {
		return time.Time{}, r.Fail(name, err)
	}
	return v, nil
}

// OptionalDate is like Date but returns the zero time for an empty column.
func (r *Record) OptionalDate(i int, name string) (time.Time, error) {
	if r.fields[i] == "" {
		return time.Time{}, nil
	}
	return r.Date(i, name)
}

// Bool parses column i as a boolean.
func (r *Record) Bool(i int, name string) (bool, error) {
	v, err := strconv.ParseBool(r.fields[i])
	if err != nil {
		return false, r.Fail(name, err)
	}
	return v, nil
}

// Fail returns a FormatError for column name of this record.
func (r *Record) Fail(name string, err error) error {
	return &FormatError{Line: r.line, Column: name, Err: err}
}

// FormatDate formats t as a date column, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
