// Package main is the biblio command line front-end.
//
// biblio manages a small library: the book catalog, registered users and
// loans, each kept in a ';' delimited text file. Settings come from an
// optional biblio.yaml and CLI flags. When snapshots are enabled, every
// change is committed to a git repository in the data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/biblio/internal/config"
	"github.com/maruel/biblio/internal/storage"
	"github.com/maruel/biblio/internal/storage/git"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "biblio: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "", "Configuration file (default: "+config.DefaultPath+" when present)")
	dataDir := flag.String("data-dir", "", "Data directory, overrides data_dir")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error), overrides log_level")
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()
	if flag.NArg() == 0 {
		usage(os.Stderr)
		return errors.New("missing command")
	}
	cmd := lookup(flag.Arg(0))
	if cmd == nil {
		return fmt.Errorf("unknown command %q", flag.Arg(0))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	path := *configPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path, *configPath == "")
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	ll := &slog.LevelVar{}
	ll.Set(level)
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	lib, err := storage.OpenLibrary(cfg.Paths(), storage.SystemClock{})
	if err != nil {
		return err
	}
	a := &app{lib: lib, cfg: cfg, out: os.Stdout}
	if cfg.Snapshot.Enabled {
		if a.repo, err = git.Open(cfg.DataDir, cfg.Snapshot.AuthorName, cfg.Snapshot.AuthorEmail); err != nil {
			return err
		}
	}
	return a.run(ctx, cmd, flag.Args()[1:])
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: biblio [flags] <command> [command flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", c.name, c.help)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
}
