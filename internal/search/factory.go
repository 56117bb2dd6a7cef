package search

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// Backend names an Engine implementation.
type Backend string

const (
	// BackendTypesense talks to a Typesense server (default).
	BackendTypesense Backend = "typesense"

	// BackendBleve keeps one on-disk bleve index per collection.
	BackendBleve Backend = "bleve"

	// BackendSQLite keeps all collections in one SQLite FTS5 database.
	BackendSQLite Backend = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Dir holds local backends' files (<data>/search).
	Dir       string
	Typesense TypesenseOptions
	Logger    *slog.Logger
}

// Open creates the Engine named by opts.Backend.
func Open(opts Options) (Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch Backend(opts.Backend) {
	case BackendTypesense, "":
		ts := opts.Typesense
		if ts.Logger == nil {
			ts.Logger = opts.Logger
		}
		return NewTypesenseEngine(ts), nil

	case BackendBleve:
		return NewBleveEngine(opts.Dir, opts.Logger)

	case BackendSQLite:
		return NewSQLiteEngine(filepath.Join(opts.Dir, SQLiteFile), opts.Logger)

	default:
		return nil, fmt.Errorf("unknown search backend: %s (valid options: typesense, bleve, sqlite)", opts.Backend)
	}
}
