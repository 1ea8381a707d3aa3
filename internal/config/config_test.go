package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "biblio.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing optional", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		p := cfg.Paths()
		if p.Books != filepath.Join("data", "books.csv") || p.Users != filepath.Join("data", "users.csv") || p.Loans != filepath.Join("data", "loans.csv") {
			t.Errorf("Paths() = %+v", p)
		}
		if cfg.Snapshot.Enabled {
			t.Error("snapshots enabled by default")
		}
	})

	t.Run("missing required", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
			t.Error("Load() succeeded on a missing file")
		}
	})

	t.Run("overrides", func(t *testing.T) {
		abs := filepath.Join(t.TempDir(), "elsewhere", "prestamos.csv")
		path := writeConfig(t, strings.Join([]string{
			"data_dir: /srv/biblio",
			"books_file: libros.csv",
			"loans_file: " + abs,
			"log_level: debug",
			"snapshot:",
			"  enabled: true",
			"  author_name: Front desk",
		}, "\n"))
		cfg, err := Load(path, false)
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		p := cfg.Paths()
		if p.Books != filepath.Join("/srv/biblio", "libros.csv") {
			t.Errorf("Books = %q", p.Books)
		}
		if p.Users != filepath.Join("/srv/biblio", "users.csv") {
			t.Errorf("Users = %q", p.Users)
		}
		if p.Loans != abs {
			t.Errorf("Loans = %q", p.Loans)
		}
		if !cfg.Snapshot.Enabled || cfg.Snapshot.AuthorName != "Front desk" || cfg.Snapshot.AuthorEmail != "biblio@localhost" {
			t.Errorf("Snapshot = %+v", cfg.Snapshot)
		}
		if lvl, _ := ParseLevel(cfg.LogLevel); lvl != slog.LevelDebug {
			t.Errorf("level = %v", lvl)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{"syntax", "data_dir: [unclosed"},
			{"empty data dir", "data_dir: ''"},
			{"empty file name", "users_file: ''"},
			{"same file", "books_file: x.csv\nusers_file: x.csv"},
			{"log level", "log_level: chatty"},
			{"snapshot author", "snapshot:\n  enabled: true\n  author_email: ''"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := Load(writeConfig(t, tt.content), false); err == nil {
					t.Error("Load() succeeded")
				}
			})
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) succeeded")
	}
}
