package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/biblio/internal/config"
	"github.com/maruel/biblio/internal/storage"
	"github.com/maruel/biblio/internal/storage/git"
)

func setupApp(t *testing.T, snapshot bool) (*app, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	lib, err := storage.OpenLibrary(cfg.Paths(), storage.SystemClock{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	a := &app{lib: lib, cfg: cfg, out: &buf}
	if snapshot {
		if a.repo, err = git.Open(cfg.DataDir, "biblio", "biblio@localhost"); err != nil {
			t.Fatal(err)
		}
	}
	return a, &buf
}

func runCmd(t *testing.T, a *app, args ...string) error {
	t.Helper()
	c := lookup(args[0])
	if c == nil {
		t.Fatalf("unknown command %q", args[0])
	}
	return a.run(t.Context(), c, args[1:])
}

func TestCommands(t *testing.T) {
	a, out := setupApp(t, true)
	steps := []struct {
		args []string
		want string
	}{
		{[]string{"add-book", "-title", "1984", "-author", "George Orwell", "-copies", "2"}, "Added book 1: 1984"},
		{[]string{"add-user", "-name", "Ana", "-email", "ana@x.com", "-category", "estudiante"}, "Registered user 1: Ana (Student, up to 3 loans of 15 days)"},
		{[]string{"lend", "-book", "1", "-user", "1"}, `Loan 1: "1984" to Ana`},
		{[]string{"books", "-author", "orwell"}, "1/2"},
		{[]string{"users", "-category", "STUDENT"}, "1/3"},
		{[]string{"loans", "-active"}, "Active"},
		{[]string{"stats"}, "Active loans     1"},
		{[]string{"return", "-loan", "1"}, `Returned "1984" from Ana`},
		{[]string{"loans"}, "Returned"},
		{[]string{"delete-book", "-id", "1"}, "Deleted book 1"},
		{[]string{"history", "-file", "books", "-n", "1"}, "delete-book: 1"},
		{[]string{"schema"}, `"copies_available"`},
		{[]string{"export"}, `"users": [`},
	}
	for _, s := range steps {
		out.Reset()
		if err := runCmd(t, a, s.args...); err != nil {
			t.Fatalf("%v failed: %v", s.args, err)
		}
		if !strings.Contains(out.String(), s.want) {
			t.Errorf("%v output:\n%s\nwant it to contain %q", s.args, out.String(), s.want)
		}
	}

	commits, err := a.repo.History(t.Context(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	// add-book, add-user, lend, return, delete-book.
	if len(commits) != 5 {
		t.Errorf("got %d snapshots, want 5", len(commits))
	}
}

func TestCommandErrors(t *testing.T) {
	a, _ := setupApp(t, false)
	if err := runCmd(t, a, "add-user", "-name", "Ana", "-email", "ana@x.com"); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		args []string
		want error
	}{
		{[]string{"add-user", "-name", "Bis", "-email", "ANA@x.com"}, storage.ErrEmailTaken},
		{[]string{"lend", "-book", "3", "-user", "1"}, nil},
		{[]string{"add-user", "-category", "janitor"}, nil},
		{[]string{"history"}, nil},
		{[]string{"books", "extra"}, nil},
	}
	for _, tt := range tests {
		err := runCmd(t, a, tt.args...)
		if err == nil {
			t.Errorf("%v succeeded", tt.args)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%v = %v, want %v", tt.args, err, tt.want)
		}
	}
}
