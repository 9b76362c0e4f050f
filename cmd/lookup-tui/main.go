// Command lookup-tui is a terminal typeahead over a lookup widget backed by
// the sqlite provider.
//
// Usage:
//
//	lookup-tui [--db file:lookupd.db] [--lookups lookups.yaml --lookup name] [--value acc-001]
//
// Without --db an in-memory store with demo records is used.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pthm/hxlookup/lib/catalog"
	"github.com/pthm/hxlookup/lib/widget"
	"github.com/pthm/hxlookup/provider/sqlprovider"
)

var builtin = catalog.Definition{
	Name:          "account",
	EntityType:    "Account",
	FieldName:     "AccountId",
	ShowLabel:     true,
	DisplayFields: "Name, Site",
	DisplayFormat: "Name (Site)",
	CreateEnabled: true,
}

func main() {
	dsn := flag.String("db", "", "sqlite DSN (default: in-memory demo store)")
	lookupsPath := flag.String("lookups", "", "lookup definitions file")
	name := flag.String("lookup", builtin.Name, "lookup definition to use")
	key := flag.String("key", "tui", "correlation key reported in events")
	value := flag.String("value", "", "initially selected record id")
	logPath := flag.String("log", "", "write logs to this file")
	flag.Parse()

	log, closeLog, err := openLog(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(log, *dsn, *lookupsPath, *name, *key, *value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, dsn, lookupsPath, name, key, value string) error {
	ctx := context.Background()
	seed := dsn == ""
	if seed {
		dsn = ":memory:"
	}
	store, err := sqlprovider.Open(ctx, dsn, sqlprovider.WithLogger(log))
	if err != nil {
		return err
	}
	defer store.Close()
	if seed {
		if err := store.SeedDemo(ctx); err != nil {
			return err
		}
	}

	def := builtin
	if lookupsPath != "" {
		cat, err := catalog.Load(lookupsPath)
		if err != nil {
			return err
		}
		if def, err = cat.Get(name); err != nil {
			return err
		}
	}

	w := widget.New(def.Config(key, value, nil), store.Deps(), widget.WithLogger(log))
	defer w.Close()

	m, err := newModel(w)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func openLog(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return log, func() { f.Close() }, nil
}
