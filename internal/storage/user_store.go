package storage

import (
	"strings"

	"github.com/maruel/biblio/internal/entity"
	"github.com/maruel/biblio/internal/flatfile"
)

// UserStore persists registered users and keeps emails unique.
type UserStore struct {
	*flatfile.Store[*entity.User]
}

// NewUserStore returns a UserStore backed by path. Ids are initialized lazily.
func NewUserStore(path string) *UserStore {
	return &UserStore{flatfile.New[*entity.User](path, entity.UserCodec{})}
}

// OpenUserStore returns a UserStore with its id counter initialized from path.
func OpenUserStore(path string) (*UserStore, error) {
	s, err := flatfile.Open[*entity.User](path, entity.UserCodec{})
	if err != nil {
		return nil, err
	}
	return &UserStore{s}, nil
}

// Create adds u unless another user already has its email.
//
// Emails are compared case-insensitively. On ErrEmailTaken the file is not
// touched and u keeps its id.
func (s *UserStore) Create(u *entity.User) error {
	return s.CreateWith(u, func(users []*entity.User) error {
		return checkEmail(users, u)
	})
}

// Update replaces the stored user with u's id, rejecting an email used by
// another user. An empty email, only found in older files, is not compared.
func (s *UserStore) Update(u *entity.User) error {
	return s.UpdateWith(u, func(users []*entity.User) error {
		return checkEmail(users, u)
	})
}

func checkEmail(users []*entity.User, u *entity.User) error {
	if u.Email == "" {
		return nil
	}
	for _, other := range users {
		if other.ID != u.ID && strings.EqualFold(other.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	return nil
}

// FindByName returns the users whose name equals name, ignoring case.
func (s *UserStore) FindByName(name string) ([]*entity.User, error) {
	return s.Filter(func(u *entity.User) bool {
		return strings.EqualFold(u.Name, name)
	})
}

// FindByEmail returns the user with the given email, ignoring case.
func (s *UserStore) FindByEmail(email string) (*entity.User, error) {
	return s.Find(func(u *entity.User) bool {
		return strings.EqualFold(u.Email, email)
	})
}

// FindByCategory returns the users of category c.
func (s *UserStore) FindByCategory(c entity.Category) ([]*entity.User, error) {
	return s.Filter(func(u *entity.User) bool {
		return u.Category == c
	})
}
