package git

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepo(t *testing.T) {
	t.Parallel()

	t.Run("Open", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "data")
		if _, err := Open(dir, "biblio", "biblio@localhost"); err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
			t.Errorf(".git directory not created: %v", err)
		}
		r, err := Open(dir, "other", "other@localhost")
		if err != nil {
			t.Fatalf("second Open() failed: %v", err)
		}
		history, err := r.History(t.Context(), "", 0)
		if err != nil {
			t.Fatalf("History() failed: %v", err)
		}
		if len(history) != 0 {
			t.Errorf("History() = %d commits on an empty repo", len(history))
		}
	})

	t.Run("Commit", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()
		dir := t.TempDir()
		r, err := Open(dir, "biblio", "biblio@localhost")
		if err != nil {
			t.Fatal(err)
		}
		books := filepath.Join(dir, "books.csv")
		users := filepath.Join(dir, "users.csv")
		writeFile(t, books, "id;title;author;copiesAvailable;copiesTotal\n")

		ok, err := r.Commit(ctx, "add-book: 1984\n\nfirst book", []string{books, users})
		if err != nil {
			t.Fatalf("Commit() failed: %v", err)
		}
		if !ok {
			t.Fatal("Commit() = false with a new file")
		}

		ok, err = r.Commit(ctx, "nothing", []string{books})
		if err != nil {
			t.Fatalf("Commit() failed: %v", err)
		}
		if ok {
			t.Error("Commit() = true without changes")
		}

		// An untracked file that is not listed does not count as a change.
		writeFile(t, filepath.Join(dir, "scratch.txt"), "x")
		if ok, _ := r.Commit(ctx, "nothing", []string{books}); ok {
			t.Error("Commit() = true with only an unlisted file changed")
		}

		writeFile(t, users, "id;name;email;phone;category;registrationDate;active\n")
		writeFile(t, books, "id;title;author;copiesAvailable;copiesTotal\n1;1984;Orwell;2;2\n")
		if ok, err := r.Commit(ctx, "add-user: Ana", []string{users}); err != nil || !ok {
			t.Fatalf("Commit() = %v, %v", ok, err)
		}

		history, err := r.History(ctx, books, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(history) != 1 {
			t.Fatalf("History(books) = %d commits, want 1", len(history))
		}
		if history[0].Message != "add-book: 1984" || history[0].Body != "first book" {
			t.Errorf("commit = %q / %q", history[0].Message, history[0].Body)
		}
		if history[0].Author != "biblio" || history[0].Email != "biblio@localhost" {
			t.Errorf("author = %s <%s>", history[0].Author, history[0].Email)
		}

		all, err := r.History(ctx, "", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 || all[0].Message != "add-user: Ana" {
			t.Errorf("History() = %+v", all)
		}
		if limited, _ := r.History(ctx, "", 1); len(limited) != 1 {
			t.Errorf("History(n=1) = %d commits", len(limited))
		}

		got, err := r.FileAt("HEAD", books)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "id;title;author;copiesAvailable;copiesTotal\n" {
			t.Errorf("FileAt(HEAD) = %q, the uncommitted change leaked", got)
		}
		if _, err := r.FileAt(all[1].Hash, users); err == nil {
			t.Error("FileAt() found users.csv before it was committed")
		}
	})

	t.Run("outside", func(t *testing.T) {
		t.Parallel()
		r, err := Open(t.TempDir(), "biblio", "biblio@localhost")
		if err != nil {
			t.Fatal(err)
		}
		other := filepath.Join(t.TempDir(), "books.csv")
		writeFile(t, other, "x")
		if _, err := r.Commit(t.Context(), "x", []string{other}); err == nil {
			t.Error("Commit() accepted a file outside of the repository")
		}
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
