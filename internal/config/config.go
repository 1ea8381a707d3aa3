// Package config loads the biblio YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/maruel/biblio/internal/storage"
)

// DefaultPath is the file loaded when no -config flag is given.
const DefaultPath = "biblio.yaml"

// Config is the content of the configuration file.
type Config struct {
	DataDir   string   `yaml:"data_dir"`
	BooksFile string   `yaml:"books_file"`
	UsersFile string   `yaml:"users_file"`
	LoansFile string   `yaml:"loans_file"`
	LogLevel  string   `yaml:"log_level"`
	Snapshot  Snapshot `yaml:"snapshot"`
}

// Snapshot controls committing the data files to git after each change.
type Snapshot struct {
	Enabled     bool   `yaml:"enabled"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir:   "data",
		BooksFile: "books.csv",
		UsersFile: "users.csv",
		LoansFile: "loans.csv",
		LogLevel:  "info",
		Snapshot: Snapshot{
			AuthorName:  "biblio",
			AuthorEmail: "biblio@localhost",
		},
	}
}

// Load reads path over the defaults.
//
// A missing file is not an error when optional is true; the defaults are
// returned.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path) //nolint:gosec // User-specified config path
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	names := map[string]string{}
	for _, f := range []struct{ key, value string }{
		{"books_file", c.BooksFile},
		{"users_file", c.UsersFile},
		{"loans_file", c.LoansFile},
	} {
		if f.value == "" {
			return fmt.Errorf("%s is required", f.key)
		}
		p := filepath.Clean(c.resolve(f.value))
		if other, ok := names[p]; ok {
			return fmt.Errorf("%s and %s point to the same file", other, f.key)
		}
		names[p] = f.key
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Snapshot.Enabled && (c.Snapshot.AuthorName == "" || c.Snapshot.AuthorEmail == "") {
		return errors.New("snapshot needs author_name and author_email")
	}
	return nil
}

// Paths returns the data file locations. Relative names are resolved under
// DataDir.
func (c *Config) Paths() storage.Paths {
	return storage.Paths{
		Books: c.resolve(c.BooksFile),
		Users: c.resolve(c.UsersFile),
		Loans: c.resolve(c.LoansFile),
	}
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// ParseLevel parses a log level name. The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
