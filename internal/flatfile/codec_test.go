package flatfile

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Cien años de soledad", "Cien años de soledad"},
		{"delimiter", "a;b;c", "a,b,c"},
		{"newline", "line1\nline2", "line1 line2"},
		{"crlf", "line1\r\nline2", "line1  line2"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.in); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsHeader(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"id;title;author;copiesAvailable;copiesTotal", true},
		{"ID;Name", true},
		{"Id;", true},
		{"1;1984;Orwell;2;2", false},
		{"id", false},
		{"identity;x", false},
	}
	for _, tt := range tests {
		if got := IsHeader(tt.line); got != tt.want {
			t.Errorf("IsHeader(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r, err := Split(" 7 ; Dune ;Frank Herbert;1;3;extra", 5)
		if err != nil {
			t.Fatalf("Split() failed: %v", err)
		}
		if got := r.Text(1); got != "Dune" {
			t.Errorf("Text(1) = %q, want %q", got, "Dune")
		}
		id, err := r.Int(0, "id")
		if err != nil || id != 7 {
			t.Errorf("Int(0) = %d, %v, want 7, nil", id, err)
		}
		if r.Line() != " 7 ; Dune ;Frank Herbert;1;3;extra" {
			t.Errorf("Line() = %q", r.Line())
		}
	})

	t.Run("missing columns", func(t *testing.T) {
		_, err := Split("1;Dune", 5)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("Split() error = %v, want *FormatError", err)
		}
		if fe.Line != "1;Dune" {
			t.Errorf("FormatError.Line = %q, want %q", fe.Line, "1;Dune")
		}
		if !errors.Is(err, errMissingColumns) {
			t.Errorf("Split() error = %v, want errMissingColumns", err)
		}
	})
}

func TestRecordParsing(t *testing.T) {
	r, err := Split("x;2024-02-29;;maybe;true", 5)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Int", func(t *testing.T) {
		_, err := r.Int(0, "id")
		var fe *FormatError
		if !errors.As(err, &fe) || fe.Column != "id" {
			t.Fatalf("Int() error = %v, want FormatError on column id", err)
		}
		var ne *strconv.NumError
		if !errors.As(err, &ne) {
			t.Errorf("Int() error does not wrap *strconv.NumError: %v", err)
		}
	})

	t.Run("Date", func(t *testing.T) {
		got, err := r.Date(1, "date")
		if err != nil {
			t.Fatal(err)
		}
		want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("Date() = %v, want %v", got, want)
		}
		if _, err := r.Date(2, "empty"); err == nil {
			t.Error("Date() on empty column succeeded, want error")
		}
	})

	t.Run("OptionalDate", func(t *testing.T) {
		got, err := r.OptionalDate(2, "returned")
		if err != nil || !got.IsZero() {
			t.Errorf("OptionalDate() = %v, %v, want zero, nil", got, err)
		}
	})

	t.Run("Bool", func(t *testing.T) {
		if _, err := r.Bool(3, "active"); err == nil {
			t.Error("Bool(maybe) succeeded, want error")
		}
		if v, err := r.Bool(4, "active"); err != nil || !v {
			t.Errorf("Bool(true) = %v, %v", v, err)
		}
	})
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Time{}); got != "" {
		t.Errorf("FormatDate(zero) = %q, want empty", got)
	}
	d := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "2025-01-05" {
		t.Errorf("FormatDate() = %q, want 2025-01-05", got)
	}
}
