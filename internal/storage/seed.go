package storage

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/maruel/biblio/internal/entity"
)

type sampleBook struct {
	title  string
	author string
	copies int
}

type sampleUser struct {
	name     string
	email    string
	phone    string
	category entity.Category
}

// Two titles have no copy so that the catalog shows unavailable books.
var sampleBooks = []sampleBook{
	{"Don Quijote de la Mancha", "Miguel de Cervantes", 3},
	{"Cien Años de Soledad", "Gabriel García Márquez", 2},
	{"1984", "George Orwell", 4},
	{"El Principito", "Antoine de Saint-Exupéry", 0},
	{"Crimen y Castigo", "Fiódor Dostoyevski", 2},
	{"Orgullo y Prejuicio", "Jane Austen", 3},
	{"El señor de los anillos", "J.R.R. Tolkien", 1},
	{"Hamlet", "William Shakespeare", 0},
	{"La Odisea", "Homero", 3},
	{"Rayuela", "Julio Cortázar", 1},
	{"El Gran Gatsby", "F. Scott Fitzgerald", 2},
	{"Harry Potter y la piedra filosofal", "J.K. Rowling", 4},
	{"El código Da Vinci", "Dan Brown", 2},
	{"Los miserables", "Victor Hugo", 1},
	{"El alquimista", "Paulo Coelho", 5},
	{"Crónica de una muerte anunciada", "Gabriel García Márquez", 2},
	{"La casa de los espíritus", "Isabel Allende", 1},
	{"El perfume", "Patrick Süskind", 3},
	{"Beloved", "Toni Morrison", 1},
	{"El nombre de la rosa", "Umberto Eco", 2},
}

var sampleUsers = []sampleUser{
	{"Ana García", "ana.garcia@email.com", "123-456-7890", entity.CategoryStudent},
	{"Carlos López", "carlos.lopez@email.com", "123-456-7891", entity.CategoryProfessor},
	{"María Rodríguez", "maria.rodriguez@email.com", "123-456-7892", entity.CategoryStudent},
	{"Dr. Juan Pérez", "juan.perez@email.com", "123-456-7893", entity.CategoryAdministrator},
	{"Laura Martínez", "laura.martinez@email.com", "123-456-7894", entity.CategoryProfessor},
	{"Pedro Sánchez", "pedro.sanchez@email.com", "123-456-7895", entity.CategoryStudent},
}

// Seed fills an empty library with sample books, users and two loans.
//
// It does nothing and returns false when either the books or the users file
// exists.
func (lib *Library) Seed() (bool, error) {
	for _, p := range []string{lib.paths.Books, lib.paths.Users} {
		if _, err := os.Stat(p); err == nil {
			return false, nil
		} else if !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}
	var books []*entity.Book
	for _, s := range sampleBooks {
		b, err := lib.AddBook(s.title, s.author, s.copies)
		if err != nil {
			return false, fmt.Errorf("failed to add sample book %q: %w", s.title, err)
		}
		books = append(books, b)
	}
	var users []*entity.User
	for _, s := range sampleUsers {
		u, err := lib.RegisterUser(s.name, s.email, s.phone, s.category)
		if err != nil {
			return false, fmt.Errorf("failed to add sample user %q: %w", s.name, err)
		}
		users = append(users, u)
	}
	for _, p := range []struct{ book, user int }{{0, 0}, {1, 2}} {
		if _, err := lib.IssueLoan(books[p.book].ID, users[p.user].ID, ""); err != nil {
			return false, fmt.Errorf("failed to add sample loan: %w", err)
		}
	}
	slog.Info("Loaded sample data", "books", len(books), "users", len(users), "loans", 2)
	return true, nil
}
