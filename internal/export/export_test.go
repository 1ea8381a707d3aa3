// Tests of this package use testify require/assert. The leaf packages and
// cmd/biblio use plain testing.

package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maruel/biblio/internal/entity"
	"github.com/maruel/biblio/internal/storage"
)

func setupLibrary(t *testing.T) (*storage.Library, *storage.FixedClock) {
	t.Helper()
	dir := t.TempDir()
	clock := storage.NewFixedClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	lib, err := storage.OpenLibrary(storage.Paths{
		Books: filepath.Join(dir, "books.csv"),
		Users: filepath.Join(dir, "users.csv"),
		Loans: filepath.Join(dir, "loans.csv"),
	}, clock)
	require.NoError(t, err)
	return lib, clock
}

func TestBuild(t *testing.T) {
	lib, clock := setupLibrary(t)
	b, err := lib.AddBook("1984", "George Orwell", 2)
	require.NoError(t, err)
	u, err := lib.RegisterUser("Ana", "ana@x.com", "", entity.CategoryStudent)
	require.NoError(t, err)
	l, err := lib.IssueLoan(b.ID, u.ID, "gift wrap")
	require.NoError(t, err)
	clock.AddDays(17)

	d, err := Build(lib)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-27", d.Date)
	require.Len(t, d.Books, 1)
	require.Len(t, d.Users, 1)
	require.Len(t, d.Loans, 1)
	assert.Equal(t, Loan{
		ID:             l.ID,
		UserID:         u.ID,
		BookID:         b.ID,
		LoanDate:       "2025-03-10",
		ExpectedReturn: "2025-03-25",
		State:          entity.StateOverdue,
		DaysOverdue:    2,
		Notes:          "gift wrap",
	}, d.Loans[0])
	assert.Equal(t, storage.Stats{Books: 1, AvailableBooks: 1, Users: 1, ActiveLoans: 1, OverdueLoans: 1}, d.Stats)
}

func TestWrite(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		lib, _ := setupLibrary(t)
		d, err := Build(lib)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, d))
		assert.Contains(t, buf.String(), `"books": []`)
		assert.Contains(t, buf.String(), `"loans": []`)
	})

	t.Run("content", func(t *testing.T) {
		lib, _ := setupLibrary(t)
		seeded, err := lib.Seed()
		require.NoError(t, err)
		require.True(t, seeded)
		d, err := Build(lib)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, d))

		var got struct {
			Books []map[string]any `json:"books"`
			Users []struct {
				Email    string `json:"email"`
				Category string `json:"category"`
				History  any    `json:"History"`
			} `json:"users"`
			Loans []Loan `json:"loans"`
		}
		require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(buf.Bytes(), &got))
		assert.Len(t, got.Books, 20)
		assert.Equal(t, "Don Quijote de la Mancha", got.Books[0]["title"])
		assert.EqualValues(t, 2, got.Books[0]["copies_available"])
		require.Len(t, got.Users, 6)
		assert.Equal(t, "ana.garcia@email.com", got.Users[0].Email)
		assert.Equal(t, "STUDENT", got.Users[0].Category)
		assert.Nil(t, got.Users[0].History)
		require.Len(t, got.Loans, 2)
		assert.Equal(t, 3, got.Loans[1].UserID)
		assert.Empty(t, got.Loans[1].ActualReturn)
	})
}

func TestSchema(t *testing.T) {
	b, err := Schema()
	require.NoError(t, err)
	var s map[string]any
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(b, &s))
	assert.Equal(t, "Library export", s["title"])
	props, ok := s["properties"].(map[string]any)
	require.True(t, ok, "properties: %T", s["properties"])
	for _, k := range []string{"date", "books", "users", "loans", "stats"} {
		assert.Contains(t, props, k)
	}
	assert.Contains(t, string(b), `"ADMINISTRATOR"`)
	assert.Contains(t, string(b), `"copies_available"`)
	assert.NotContains(t, string(b), `"History"`)
}
