package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode"

	_ "modernc.org/sqlite" // pure Go driver
)

// SQLiteFile is the database file name inside the search directory.
const SQLiteFile = "search.db"

const (
	snippetTokens   = 32
	maxFacetValues  = 10
	sqliteBusyMilli = 5000
)

var collectionName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLiteEngine stores every collection in one SQLite database. Each
// collection has a docs_<name> table holding the JSON body and an
// fts_<name> FTS5 table over its text fields whose rowid is the doc's seq.
type SQLiteEngine struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	schemas map[string]Schema
	logger  *slog.Logger
	closed  bool
}

// NewSQLiteEngine opens (or creates) the database at path. An empty path
// gives an in-memory database.
func NewSQLiteEngine(path string, logger *slog.Logger) (*SQLiteEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("engine", "sqlite")

	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
		}
		if err := validateSQLiteIntegrity(path); err != nil {
			logger.Warn("search_db_corrupted", slog.String("path", path), slog.String("error", err.Error()))
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, fmt.Errorf("search database corrupted at %s and cannot remove: %w (original error: %v)", path, rmErr, err)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyMilli),
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		name   TEXT PRIMARY KEY,
		schema TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	e := &SQLiteEngine{db: db, path: path, schemas: make(map[string]Schema), logger: logger}
	if err := e.loadSchemas(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

// validateSQLiteIntegrity returns nil for a missing or healthy database.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

func (s *SQLiteEngine) loadSchemas() error {
	rows, err := s.db.Query(`SELECT name, schema FROM collections`)
	if err != nil {
		return fmt.Errorf("failed to load collections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return err
		}
		var schema Schema
		if err := json.Unmarshal([]byte(raw), &schema); err != nil {
			return fmt.Errorf("schema for %s is corrupt: %w", name, err)
		}
		s.schemas[name] = schema
	}
	return rows.Err()
}

// Health implements Engine.
func (s *SQLiteEngine) Health(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("engine is closed")
	}
	return s.db.PingContext(ctx)
}

// DeleteCollection implements Engine.
func (s *SQLiteEngine) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("engine is closed")
	}
	if _, ok := s.schemas[name]; !ok {
		return ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		"DROP TABLE IF EXISTS " + ftsTable(name),
		"DROP TABLE IF EXISTS " + docsTable(name),
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("delete collection %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	delete(s.schemas, name)
	return nil
}

// CreateCollection implements Engine.
func (s *SQLiteEngine) CreateCollection(ctx context.Context, schema Schema) error {
	if !collectionName.MatchString(schema.Name) {
		return fmt.Errorf("invalid collection name %q", schema.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("engine is closed")
	}
	if _, ok := s.schemas[schema.Name]; ok {
		return fmt.Errorf("collection %s already exists", schema.Name)
	}

	cols := make([]string, 0, len(schema.Fields))
	for _, f := range schema.TextFields() {
		cols = append(cols, f.Name)
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE %s (
			seq  INTEGER PRIMARY KEY,
			id   TEXT NOT NULL UNIQUE,
			body TEXT NOT NULL
		)`, docsTable(schema.Name)),
		fmt.Sprintf(`CREATE VIRTUAL TABLE %s USING fts5(%s, tokenize='unicode61')`,
			ftsTable(schema.Name), strings.Join(cols, ", ")),
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create collection %s: %w", schema.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO collections(name, schema) VALUES (?, ?)`, schema.Name, string(raw)); err != nil {
		return fmt.Errorf("create collection %s: %w", schema.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.schemas[schema.Name] = schema
	s.logger.Debug("collection_created", "name", schema.Name)
	return nil
}

// Import implements Engine. The batch runs in one transaction; documents
// that fail validation or collide with an existing id are reported
// individually and do not abort the rest.
func (s *SQLiteEngine) Import(ctx context.Context, collection string, docs []Document) ([]ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("engine is closed")
	}
	schema, ok := s.schemas[collection]
	if !ok {
		return nil, ErrNotFound
	}
	text := schema.TextFields()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	docStmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s(id, body) VALUES (?, ?)`, docsTable(collection)))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare document statement: %w", err)
	}
	defer docStmt.Close()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(text)+1), ", ")
	names := make([]string, 0, len(text))
	for _, f := range text {
		names = append(names, f.Name)
	}
	ftsStmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s(rowid, %s) VALUES (%s)`, ftsTable(collection), strings.Join(names, ", "), placeholders))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare FTS statement: %w", err)
	}
	defer ftsStmt.Close()

	results := make([]ImportResult, len(docs))
	for i, d := range docs {
		results[i].ID = d.ID()
		if err := schema.Validate(d); err != nil {
			results[i].Error = err.Error()
			continue
		}
		body, err := json.Marshal(d)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		res, err := docStmt.ExecContext(ctx, d.ID(), string(body))
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				results[i].Error = "a document with id " + d.ID() + " already exists"
				continue
			}
			return nil, fmt.Errorf("failed to index document %s: %w", d.ID(), err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}

		args := make([]any, 0, len(text)+1)
		args = append(args, rowid)
		for _, f := range text {
			if f.Type == FieldStringArray {
				args = append(args, strings.Join(d.Strings(f.Name), "\n"))
			} else {
				args = append(args, d.String(f.Name))
			}
		}
		if _, err := ftsStmt.ExecContext(ctx, args...); err != nil {
			return nil, fmt.Errorf("failed to index document %s: %w", d.ID(), err)
		}
		results[i].Success = true
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return results, nil
}

// Search implements Engine. Every query token must appear in at least one of
// the QueryBy fields; ranking uses FTS5 bm25() with the query weights.
func (s *SQLiteEngine) Search(ctx context.Context, collection string, q Query) (*SearchResult, error) {
	q = q.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("engine is closed")
	}
	schema, ok := s.schemas[collection]
	if !ok {
		return nil, ErrNotFound
	}

	var (
		where  []string
		args   []any
		from   = docsTable(collection) + " d"
		order  string
		extras []string
	)

	text := schema.TextFields()
	if !q.MatchAll() {
		match := ftsMatch(q.Text, q.QueryBy)
		if match == "" {
			return &SearchResult{Page: q.Page, Hits: []Hit{}}, nil
		}
		fts := ftsTable(collection)
		from = fmt.Sprintf("%s JOIN %s d ON d.seq = %s.rowid", fts, docsTable(collection), fts)
		where = append(where, fts+" MATCH ?")
		args = append(args, match)

		weights := make([]string, len(text))
		for i, f := range text {
			weights[i] = "0"
			for j, name := range q.QueryBy {
				if name == f.Name {
					weights[i] = fmt.Sprint(q.Weight(j))
				}
			}
		}
		order = fmt.Sprintf("bm25(%s, %s)", fts, strings.Join(weights, ", "))
		extras = append(extras, order)
		for _, name := range q.QueryBy {
			for i, f := range text {
				if f.Name == name {
					extras = append(extras, fmt.Sprintf("snippet(%s, %d, '%s', '%s', '...', %d)",
						fts, i, HighlightStart, HighlightEnd, snippetTokens))
				}
			}
		}
	} else if schema.DefaultSortingField != "" {
		order = fmt.Sprintf("json_extract(d.body, '$.%s') DESC", schema.DefaultSortingField)
	}

	if q.FilterBookSlug != "" {
		where = append(where, "json_extract(d.body, '$.book_slug') = ?")
		args = append(args, q.FilterBookSlug)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var found int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+from+whereSQL, args...).Scan(&found); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	cols := append([]string{"d.body"}, extras...)
	stmt := "SELECT " + strings.Join(cols, ", ") + " FROM " + from + whereSQL
	if order != "" {
		stmt += " ORDER BY " + order
	}
	stmt += " LIMIT ? OFFSET ?"
	pageArgs := append(append([]any{}, args...), q.PerPage, (q.Page-1)*q.PerPage)

	rows, err := s.db.QueryContext(ctx, stmt, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	res := &SearchResult{Found: found, Page: q.Page, Hits: []Hit{}}
	for rows.Next() {
		var body string
		dest := []any{&body}
		var score float64
		snippets := make([]string, len(extras))
		if len(extras) > 0 {
			dest = append(dest, &score)
			for i := 1; i < len(extras); i++ {
				dest = append(dest, &snippets[i])
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("stored document is corrupt: %w", err)
		}
		hl := make(map[string]string)
		if len(extras) > 0 {
			for i, name := range snippetFields(q.QueryBy, text) {
				if sn := snippets[i+1]; strings.Contains(sn, HighlightStart) {
					hl[name] = sn
				}
			}
		}
		// bm25() is negative; lower is better.
		res.Hits = append(res.Hits, Hit{Document: doc, Highlights: hl, Score: -score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(q.FacetBy) > 0 {
		res.Facets = make(map[string][]FacetCount, len(q.FacetBy))
		for _, field := range q.FacetBy {
			counts, err := s.facet(ctx, from, whereSQL, args, field)
			if err != nil {
				return nil, err
			}
			res.Facets[field] = counts
		}
	}
	return res, nil
}

// facet counts the values of an array field over the matching documents.
func (s *SQLiteEngine) facet(ctx context.Context, from, whereSQL string, args []any, field string) ([]FacetCount, error) {
	stmt := fmt.Sprintf(`SELECT j.value, COUNT(*) AS n
		FROM %s, json_each(d.body, '$.%s') j%s
		GROUP BY j.value
		ORDER BY n DESC, j.value
		LIMIT %d`, from, field, whereSQL, maxFacetValues)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("facet %s failed: %w", field, err)
	}
	defer rows.Close()

	counts := []FacetCount{}
	for rows.Next() {
		var fc FacetCount
		if err := rows.Scan(&fc.Value, &fc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, fc)
	}
	return counts, rows.Err()
}

// snippetFields lists the QueryBy fields that are FTS columns, in the order
// Search selects their snippets.
func snippetFields(queryBy []string, text []Field) []string {
	var out []string
	for _, name := range queryBy {
		for _, f := range text {
			if f.Name == name {
				out = append(out, name)
			}
		}
	}
	return out
}

// ftsMatch builds an FTS5 expression requiring every token of text within
// the given columns. Tokens are quoted so user input cannot inject syntax.
func ftsMatch(text string, fields []string) string {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}
	expr := strings.Join(quoted, " ")
	if len(fields) == 0 {
		return expr
	}
	return "{" + strings.Join(fields, " ") + "} : (" + expr + ")"
}

func docsTable(name string) string { return "docs_" + name }
func ftsTable(name string) string  { return "fts_" + name }

// Close implements Engine. It checkpoints the WAL before closing.
func (s *SQLiteEngine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

var _ Engine = (*SQLiteEngine)(nil)
