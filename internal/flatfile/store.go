package flatfile

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrAbort, when wrapped by a Codec.Decode error, fails the whole load
	// with that error instead of skipping the line.
	ErrAbort = errors.New("load aborted")
)

// maxLineSize bounds the length of a single record line.
const maxLineSize = 1 << 20

// Row is implemented by records held in a Store.
type Row interface {
	GetID() int
	SetID(id int)
	// Validate checks the invariants every stored row satisfies, including
	// any row the Codec decodes successfully.
	Validate() error
}

// NewRowValidator is optionally implemented by a Row that requires more of a
// record being created than of one already stored.
type NewRowValidator interface {
	ValidateNew() error
}

func validateNew[T Row](row T) error {
	if v, ok := any(row).(NewRowValidator); ok {
		return v.ValidateNew()
	}
	return row.Validate()
}

// Codec converts records of type T to and from lines.
type Codec[T Row] interface {
	// Header returns the header line written at the top of the file.
	Header() string
	// Encode returns the line for row, without the trailing newline.
	Encode(row T) string
	// Decode parses line. Any error skips the line.
	Decode(line string) (T, error)
}

// Store handles persistence of one record kind to a delimited text file.
//
// Every call reads the whole file and every mutation rewrites it. Calls are
// serialized by an internal mutex.
type Store[T Row] struct {
	path  string
	codec Codec[T]

	mu          sync.Mutex
	nextID      int // 0 until Init ran
	diagnostics []error
}

// New creates a Store without touching the file.
//
// Identity assignment is initialized by Init, or lazily by the first Create.
func New[T Row](path string, codec Codec[T]) *Store[T] {
	return &Store[T]{path: path, codec: codec}
}

// Open creates a Store and initializes its identity counter from the file.
func Open[T Row](path string, codec Codec[T]) (*Store[T], error) {
	s := New(path, codec)
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store[T]) Path() string {
	return s.path
}

// Init sets the next identity to the highest id in the file plus one.
//
// Only the id column is read, so lines that fail to decode still reserve
// their id.
func (s *Store[T]) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked()
}

// Initialized reports whether Init ran.
func (s *Store[T]) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID != 0
}

// NextID returns the id the next Create will assign, or 0 before Init.
func (s *Store[T]) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

func (s *Store[T]) initLocked() error {
	maxID := 0
	err := s.scan(func(line string) {
		first, _, _ := strings.Cut(line, Delimiter)
		if id, err := strconv.Atoi(strings.TrimSpace(first)); err == nil && id > maxID {
			maxID = id
		}
	})
	if err != nil {
		return err
	}
	s.nextID = maxID + 1
	return nil
}

// Diagnostics returns the errors of the lines skipped by the most recent load.
func (s *Store[T]) Diagnostics() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// Create assigns the next id to row, appends it and rewrites the file.
func (s *Store[T]) Create(row T) error {
	return s.CreateWith(row, nil)
}

// CreateWith is like Create but first calls check with all current rows.
//
// If check returns an error the file is left untouched.
func (s *Store[T]) CreateWith(row T, check func(rows []T) error) error {
	if err := validateNew(row); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextID == 0 {
		if err := s.initLocked(); err != nil {
			return err
		}
	}
	rows, err := s.load()
	if err != nil {
		return err
	}
	if check != nil {
		if err := check(rows); err != nil {
			return err
		}
	}
	prev := row.GetID()
	row.SetID(s.nextID)
	if err := s.save(append(rows, row)); err != nil {
		row.SetID(prev)
		return err
	}
	s.nextID++
	return nil
}

// Get returns the row with the given id.
func (s *Store[T]) Get(id int) (T, error) {
	return s.Find(func(row T) bool { return row.GetID() == id })
}

// Find returns the first row for which match returns true.
func (s *Store[T]) Find(match func(T) bool) (T, error) {
	var zero T
	rows, err := s.All()
	if err != nil {
		return zero, err
	}
	for _, row := range rows {
		if match(row) {
			return row, nil
		}
	}
	return zero, ErrNotFound
}

// All returns every row, freshly decoded from the file.
func (s *Store[T]) All() ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Filter returns the rows for which match returns true.
func (s *Store[T]) Filter(match func(T) bool) ([]T, error) {
	rows, err := s.All()
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, row := range rows {
		if match(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Update replaces the row with the same id and rewrites the file.
func (s *Store[T]) Update(row T) error {
	return s.UpdateWith(row, nil)
}

// UpdateWith is like Update but first calls check with all current rows.
//
// Only Validate is applied, so any row returned by Get can be written back.
func (s *Store[T]) UpdateWith(row T, check func(rows []T) error) error {
	if err := row.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(rows, row.GetID())
	if i < 0 {
		return ErrNotFound
	}
	if check != nil {
		if err := check(rows); err != nil {
			return err
		}
	}
	rows[i] = row
	return s.save(rows)
}

// Delete removes the row with the given id and rewrites the file.
func (s *Store[T]) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(rows, id)
	if i < 0 {
		return ErrNotFound
	}
	return s.save(append(rows[:i], rows[i+1:]...))
}

func indexOf[T Row](rows []T, id int) int {
	for i, row := range rows {
		if row.GetID() == id {
			return i
		}
	}
	return -1
}

// scan calls fn for each non-blank data line, skipping the header.
func (s *Store[T]) scan(fn func(line string)) error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if first {
			first = false
			if IsHeader(line) {
				continue
			}
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return nil
}

func (s *Store[T]) load() ([]T, error) {
	var rows []T
	var skipped []error
	var abort error
	err := s.scan(func(line string) {
		if abort != nil {
			return
		}
		row, err := s.codec.Decode(line)
		if errors.Is(err, ErrAbort) {
			abort = err
			return
		}
		if err != nil {
			slog.Warn("Skipping record", "path", s.path, "line", line, "err", err)
			skipped = append(skipped, err)
			return
		}
		rows = append(rows, row)
	})
	if err == nil {
		err = abort
	}
	if err != nil {
		return nil, err
	}
	s.diagnostics = skipped
	return rows, nil
}

// save rewrites the whole file with a fresh header.
//
// The file is truncated then written in place; a crash in between leaves a
// partial file.
func (s *Store[T]) save(rows []T) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.path, err)
	}

	w := bufio.NewWriter(f)
	_, _ = w.WriteString(s.codec.Header())
	_ = w.WriteByte('\n')
	for _, row := range rows {
		_, _ = w.WriteString(s.codec.Encode(row))
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	return nil
}
