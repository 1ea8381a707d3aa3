package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/maruel/biblio/internal/config"
	"github.com/maruel/biblio/internal/entity"
	"github.com/maruel/biblio/internal/export"
	"github.com/maruel/biblio/internal/flatfile"
	"github.com/maruel/biblio/internal/storage"
	"github.com/maruel/biblio/internal/storage/git"
)

// app is the state shared by the commands.
type app struct {
	lib  *storage.Library
	cfg  *config.Config
	repo *git.Repo // nil unless snapshots are enabled
	out  io.Writer
}

// command is one subcommand. run returns a one line summary of the change
// it made, or "" when nothing was written.
type command struct {
	name string
	help string
	run  func(ctx context.Context, a *app, args []string) (string, error)
}

var commands = []*command{
	{"books", "List books, optionally filtered", cmdBooks},
	{"add-book", "Add a book to the catalog", cmdAddBook},
	{"delete-book", "Delete a book without active loans", cmdDeleteBook},
	{"users", "List users, optionally filtered", cmdUsers},
	{"add-user", "Register a user", cmdAddUser},
	{"delete-user", "Delete a user without active loans", cmdDeleteUser},
	{"lend", "Lend a book to a user", cmdLend},
	{"return", "Return a lent book", cmdReturn},
	{"loans", "List loans, optionally filtered", cmdLoans},
	{"stats", "Print library statistics", cmdStats},
	{"seed", "Load sample data into an empty library", cmdSeed},
	{"export", "Write the library as JSON", cmdExport},
	{"schema", "Print the JSON Schema of the export", cmdSchema},
	{"history", "Show the snapshot history", cmdHistory},
	{"watch", "Report changes made to the data files by other programs", cmdWatch},
}

func lookup(name string) *command {
	for _, c := range commands {
		if c.name == name {
			return c
		}
	}
	return nil
}

// run executes c and commits the data files when it changed them.
func (a *app) run(ctx context.Context, c *command, args []string) error {
	summary, err := c.run(ctx, a, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if summary == "" || a.repo == nil {
		return nil
	}
	p := a.lib.Paths()
	if _, err := a.repo.Commit(ctx, summary, []string{p.Books, p.Users, p.Loans}); err != nil {
		slog.WarnContext(ctx, "Failed to snapshot data files", "err", err)
	}
	return nil
}

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("unknown arguments: %v", fs.Args())
	}
	return nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func cmdBooks(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("books")
	title := fs.String("title", "", "Only titles containing this text")
	author := fs.String("author", "", "Only authors containing this text")
	available := fs.Bool("available", false, "Only books with a copy on the shelf")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	var books []*entity.Book
	var err error
	switch {
	case *title != "":
		books, err = a.lib.Books.FindByTitle(*title)
	case *author != "":
		books, err = a.lib.Books.FindByAuthor(*author)
	case *available:
		books, err = a.lib.Books.FindAvailable()
	default:
		books, err = a.lib.Books.All()
	}
	if err != nil {
		return "", err
	}
	w := table(a.out)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tAVAILABLE")
	for _, b := range books {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\n", b.ID, b.Title, b.Author, b.CopiesAvailable, b.CopiesTotal)
	}
	return "", w.Flush()
}

func cmdAddBook(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("add-book")
	title := fs.String("title", "", "Title")
	author := fs.String("author", "", "Author")
	copies := fs.Int("copies", 1, "Number of copies")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	b, err := a.lib.AddBook(*title, *author, *copies)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(a.out, "Added book %d: %s\n", b.ID, b.Title)
	return fmt.Sprintf("add-book: %d %s", b.ID, b.Title), nil
}

func cmdDeleteBook(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("delete-book")
	id := fs.Int("id", 0, "Book id")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	if err := a.lib.DeleteBook(*id); err != nil {
		return "", err
	}
	fmt.Fprintf(a.out, "Deleted book %d\n", *id)
	return fmt.Sprintf("delete-book: %d", *id), nil
}

func cmdUsers(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("users")
	name := fs.String("name", "", "Only users with this exact name")
	email := fs.String("email", "", "Only the user with this email")
	category := fs.String("category", "", "Only users of this category")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	var users []*entity.User
	var err error
	switch {
	case *name != "":
		users, err = a.lib.Users.FindByName(*name)
	case *email != "":
		var u *entity.User
		if u, err = a.lib.Users.FindByEmail(*email); err == nil {
			users = []*entity.User{u}
		} else if errors.Is(err, flatfile.ErrNotFound) {
			err = nil
		}
	case *category != "":
		var c entity.Category
		if c, err = entity.ParseCategory(*category); err == nil {
			users, err = a.lib.Users.FindByCategory(c)
		}
	default:
		users, err = a.lib.Users.All()
	}
	if err != nil {
		return "", err
	}
	w := table(a.out)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tCATEGORY\tREGISTERED\tLOANS\tACTIVE")
	for _, u := range users {
		if err := a.lib.Loans.LoadHistory(u); err != nil {
			return "", err
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d/%d\t%t\n",
			u.ID, u.Name, u.Email, u.Phone, u.Category.Label(), flatfile.FormatDate(u.Registered),
			u.ActiveLoanCount(), u.Limit(), u.Active)
	}
	return "", w.Flush()
}

func cmdAddUser(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("add-user")
	name := fs.String("name", "", "Full name")
	email := fs.String("email", "", "Email, unique among users")
	phone := fs.String("phone", "", "Phone number")
	category := fs.String("category", string(entity.CategoryStudent), "STUDENT, PROFESSOR or ADMINISTRATOR")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	c, err := entity.ParseCategory(*category)
	if err != nil {
		return "", err
	}
	u, err := a.lib.RegisterUser(*name, *email, *phone, c)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(a.out, "Registered user %d: %s (%s, up to %d loans of %d days)\n",
		u.ID, u.Name, c.Label(), c.Limit(), c.LoanDays())
	return fmt.Sprintf("add-user: %d %s", u.ID, u.Name), nil
}

func cmdDeleteUser(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("delete-user")
	id := fs.Int("id", 0, "User id")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	if err := a.lib.DeleteUser(*id); err != nil {
		return "", err
	}
	fmt.Fprintf(a.out, "Deleted user %d\n", *id)
	return fmt.Sprintf("delete-user: %d", *id), nil
}

func cmdLend(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("lend")
	book := fs.Int("book", 0, "Book id")
	user := fs.Int("user", 0, "User id")
	notes := fs.String("notes", "", "Free text notes")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	l, err := a.lib.IssueLoan(*book, *user, *notes)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(a.out, "Loan %d: %q to %s, due %s\n",
		l.ID, l.Book.Title, l.User.Name, flatfile.FormatDate(l.ExpectedReturn))
	return fmt.Sprintf("lend: loan %d book %d user %d", l.ID, *book, *user), nil
}

func cmdReturn(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("return")
	id := fs.Int("loan", 0, "Loan id")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	l, err := a.lib.ReturnLoan(*id)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(a.out, "Returned %q from %s\n", l.Book.Title, l.User.Name)
	if late := int(l.ActualReturn.Sub(l.ExpectedReturn).Hours() / 24); late > 0 {
		fmt.Fprintf(a.out, "Returned %d day(s) late\n", late)
	}
	return fmt.Sprintf("return: loan %d", l.ID), nil
}

func cmdLoans(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("loans")
	active := fs.Bool("active", false, "Only loans not yet returned")
	overdue := fs.Bool("overdue", false, "Only overdue loans")
	user := fs.Int("user", 0, "Only loans of this user id")
	book := fs.Int("book", 0, "Only loans of this book id")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	var loans []*entity.Loan
	var err error
	switch {
	case *overdue:
		loans, err = a.lib.Loans.Overdue()
	case *active:
		loans, err = a.lib.Loans.Active()
	case *user != 0:
		loans, err = a.lib.Loans.FindByUser(*user)
	case *book != 0:
		loans, err = a.lib.Loans.FindByBook(*book)
	default:
		loans, err = a.lib.Loans.All()
	}
	if err != nil {
		return "", err
	}
	today := a.lib.Today()
	w := table(a.out)
	fmt.Fprintln(w, "ID\tUSER\tBOOK\tLENT\tDUE\tRETURNED\tSTATE\tLATE\tNOTES")
	for _, l := range loans {
		late := ""
		if d := l.DaysOverdue(today); d > 0 {
			late = strconv.Itoa(d)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.User.Name, l.Book.Title, flatfile.FormatDate(l.LoanDate), flatfile.FormatDate(l.ExpectedReturn),
			flatfile.FormatDate(l.ActualReturn), l.DisplayState(today).Label(), late, l.Notes)
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	if n := len(a.lib.Loans.Diagnostics()); n != 0 {
		fmt.Fprintf(a.out, "%d damaged or dangling line(s) skipped in %s\n", n, a.lib.Loans.Path())
	}
	return "", nil
}

func cmdStats(_ context.Context, a *app, args []string) (string, error) {
	if err := parse(newFlags("stats"), args); err != nil {
		return "", err
	}
	st, err := a.lib.Stats()
	if err != nil {
		return "", err
	}
	w := table(a.out)
	fmt.Fprintf(w, "Books\t%d\n", st.Books)
	fmt.Fprintf(w, "Available books\t%d\n", st.AvailableBooks)
	fmt.Fprintf(w, "Users\t%d\n", st.Users)
	fmt.Fprintf(w, "Active loans\t%d\n", st.ActiveLoans)
	fmt.Fprintf(w, "Overdue loans\t%d\n", st.OverdueLoans)
	return "", w.Flush()
}

func cmdSeed(_ context.Context, a *app, args []string) (string, error) {
	if err := parse(newFlags("seed"), args); err != nil {
		return "", err
	}
	seeded, err := a.lib.Seed()
	if err != nil {
		return "", err
	}
	if !seeded {
		fmt.Fprintln(a.out, "Data files already exist, nothing loaded")
		return "", nil
	}
	fmt.Fprintln(a.out, "Sample data loaded")
	return "seed: sample data", nil
}

func cmdExport(_ context.Context, a *app, args []string) (string, error) {
	fs := newFlags("export")
	out := fs.String("o", "", "Output file (default: stdout)")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	d, err := export.Build(a.lib)
	if err != nil {
		return "", err
	}
	if *out == "" {
		return "", export.Write(a.out, d)
	}
	f, err := os.Create(*out)
	if err != nil {
		return "", err
	}
	if err := export.Write(f, d); err != nil {
		_ = f.Close()
		return "", err
	}
	return "", f.Close()
}

func cmdSchema(_ context.Context, a *app, args []string) (string, error) {
	if err := parse(newFlags("schema"), args); err != nil {
		return "", err
	}
	b, err := export.Schema()
	if err != nil {
		return "", err
	}
	_, err = fmt.Fprintf(a.out, "%s\n", b)
	return "", err
}

func cmdHistory(ctx context.Context, a *app, args []string) (string, error) {
	fs := newFlags("history")
	file := fs.String("file", "", "Only changes to this data file: books, users or loans")
	n := fs.Int("n", 20, "Maximum number of entries")
	if err := parse(fs, args); err != nil {
		return "", err
	}
	if a.repo == nil {
		return "", errors.New("snapshots are disabled, set snapshot.enabled in the configuration")
	}
	path := ""
	p := a.lib.Paths()
	switch *file {
	case "":
	case "books":
		path = p.Books
	case "users":
		path = p.Users
	case "loans":
		path = p.Loans
	default:
		return "", fmt.Errorf("unknown data file %q", *file)
	}
	commits, err := a.repo.History(ctx, path, *n)
	if err != nil {
		return "", err
	}
	w := table(a.out)
	for _, c := range commits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Hash[:10], c.Date.Format("2006-01-02 15:04"), c.Author, c.Message)
	}
	return "", w.Flush()
}

func cmdWatch(ctx context.Context, a *app, args []string) (string, error) {
	if err := parse(newFlags("watch"), args); err != nil {
		return "", err
	}
	p := a.lib.Paths()
	paths := []string{p.Books, p.Users, p.Loans}
	for _, path := range paths {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
			return "", err
		}
	}
	err := storage.WatchFiles(ctx, paths, func(path string) {
		slog.Warn("Data file changed by another writer; restart biblio before further changes", "path", path)
	})
	if err != nil {
		return "", err
	}
	fmt.Fprintln(a.out, "Watching data files, press Ctrl-C to stop")
	<-ctx.Done()
	return "", nil
}
