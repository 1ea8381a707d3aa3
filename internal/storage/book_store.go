package storage

import (
	"strings"

	"github.com/maruel/biblio/internal/entity"
	"github.com/maruel/biblio/internal/flatfile"
)

// BookStore persists the catalog.
type BookStore struct {
	*flatfile.Store[*entity.Book]
}

// NewBookStore returns a BookStore backed by path. Ids are initialized lazily.
func NewBookStore(path string) *BookStore {
	return &BookStore{flatfile.New[*entity.Book](path, entity.BookCodec{})}
}

// OpenBookStore returns a BookStore with its id counter initialized from path.
func OpenBookStore(path string) (*BookStore, error) {
	s, err := flatfile.Open[*entity.Book](path, entity.BookCodec{})
	if err != nil {
		return nil, err
	}
	return &BookStore{s}, nil
}

// FindByTitle returns the books whose title contains text, ignoring case.
func (s *BookStore) FindByTitle(text string) ([]*entity.Book, error) {
	text = strings.ToLower(text)
	return s.Filter(func(b *entity.Book) bool {
		return strings.Contains(strings.ToLower(b.Title), text)
	})
}

// FindByAuthor returns the books whose author contains text, ignoring case.
func (s *BookStore) FindByAuthor(text string) ([]*entity.Book, error) {
	text = strings.ToLower(text)
	return s.Filter(func(b *entity.Book) bool {
		return strings.Contains(strings.ToLower(b.Author), text)
	})
}

// FindAvailable returns the books with at least one copy on the shelf.
func (s *BookStore) FindAvailable() ([]*entity.Book, error) {
	return s.Filter((*entity.Book).IsAvailable)
}
