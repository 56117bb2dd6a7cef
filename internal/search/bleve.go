package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	bleveIndexSuffix  = ".bleve"
	bleveSchemaSuffix = ".schema.json"
)

// BleveEngine hosts each collection as an on-disk bleve index under dir.
// The schema is stored next to the index so a later process can reopen it.
type BleveEngine struct {
	mu     sync.Mutex
	dir    string
	open   map[string]*bleveCollection
	logger *slog.Logger
	closed bool
}

type bleveCollection struct {
	index  bleve.Index
	schema Schema
}

// NewBleveEngine creates an engine rooted at dir.
func NewBleveEngine(dir string, logger *slog.Logger) (*BleveEngine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BleveEngine{
		dir:    dir,
		open:   make(map[string]*bleveCollection),
		logger: logger.With("engine", "bleve"),
	}, nil
}

func (b *BleveEngine) indexPath(name string) string {
	return filepath.Join(b.dir, name+bleveIndexSuffix)
}

func (b *BleveEngine) schemaPath(name string) string {
	return filepath.Join(b.dir, name+bleveSchemaSuffix)
}

// Health implements Engine.
func (b *BleveEngine) Health(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("engine is closed")
	}
	info, err := os.Stat(b.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", b.dir)
	}
	return nil
}

// DeleteCollection implements Engine.
func (b *BleveEngine) DeleteCollection(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.open[name]; ok {
		_ = c.index.Close()
		delete(b.open, name)
	}

	path := b.indexPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrNotFound
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove collection %s: %w", name, err)
	}
	_ = os.Remove(b.schemaPath(name))
	return nil
}

// CreateCollection implements Engine.
func (b *BleveEngine) CreateCollection(ctx context.Context, schema Schema) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := os.Stat(b.indexPath(schema.Name)); err == nil {
		return fmt.Errorf("collection %s already exists", schema.Name)
	}

	idx, err := bleve.New(b.indexPath(schema.Name), bleveMapping(schema))
	if err != nil {
		return fmt.Errorf("create collection %s: %w", schema.Name, err)
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err == nil {
		err = os.WriteFile(b.schemaPath(schema.Name), data, 0o644)
	}
	if err != nil {
		_ = idx.Close()
		return fmt.Errorf("write schema for %s: %w", schema.Name, err)
	}

	b.open[schema.Name] = &bleveCollection{index: idx, schema: schema}
	b.logger.Debug("collection_created", "name", schema.Name)
	return nil
}

// bleveMapping derives the index mapping from a schema: facet fields are
// indexed verbatim, other text fields with the English analyzer, and int32
// fields as numbers.
func bleveMapping(schema Schema) *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentStaticMapping()
	for _, f := range schema.Fields {
		if f.Name == "id" {
			continue
		}
		var fm *mapping.FieldMapping
		switch f.Type {
		case FieldInt32:
			fm = bleve.NewNumericFieldMapping()
		default:
			fm = bleve.NewTextFieldMapping()
			if f.Facet {
				fm.Analyzer = keyword.Name
			} else {
				fm.Analyzer = en.AnalyzerName
			}
		}
		fm.Store = true
		doc.AddFieldMappingsAt(f.Name, fm)
	}

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = en.AnalyzerName
	return m
}

// collection returns an open collection, opening it from disk on first use.
// Callers hold b.mu.
func (b *BleveEngine) collection(name string) (*bleveCollection, error) {
	if b.closed {
		return nil, fmt.Errorf("engine is closed")
	}
	if c, ok := b.open[name]; ok {
		return c, nil
	}

	data, err := os.ReadFile(b.schemaPath(name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("schema for %s is corrupt: %w", name, err)
	}

	idx, err := bleve.Open(b.indexPath(name))
	if err == bleve.ErrorIndexPathDoesNotExist {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}

	c := &bleveCollection{index: idx, schema: schema}
	b.open[name] = c
	return c, nil
}

// Import implements Engine. Documents failing schema validation are reported
// individually; the rest are written in one bleve batch.
func (b *BleveEngine) Import(ctx context.Context, collection string, docs []Document) ([]ImportResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.collection(collection)
	if err != nil {
		return nil, err
	}

	results := make([]ImportResult, len(docs))
	batch := c.index.NewBatch()
	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		results[i].ID = d.ID()
		if err := c.schema.Validate(d); err != nil {
			results[i].Error = err.Error()
			continue
		}
		if _, dup := seen[d.ID()]; dup {
			results[i].Error = "a document with id " + d.ID() + " already exists"
			continue
		}
		if existing, _ := c.index.Document(d.ID()); existing != nil {
			results[i].Error = "a document with id " + d.ID() + " already exists"
			continue
		}
		if err := batch.Index(d.ID(), map[string]any(d)); err != nil {
			results[i].Error = err.Error()
			continue
		}
		seen[d.ID()] = struct{}{}
		results[i].Success = true
	}

	if batch.Size() > 0 {
		if err := c.index.Batch(batch); err != nil {
			return nil, fmt.Errorf("failed to execute batch: %w", err)
		}
	}
	return results, nil
}

// Search implements Engine.
func (b *BleveEngine) Search(ctx context.Context, collection string, q Query) (*SearchResult, error) {
	q = q.Normalize()

	b.mu.Lock()
	c, err := b.collection(collection)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var textQuery query.Query
	if q.MatchAll() {
		textQuery = bleve.NewMatchAllQuery()
	} else {
		disjuncts := make([]query.Query, 0, len(q.QueryBy))
		for i, field := range q.QueryBy {
			mq := bleve.NewMatchQuery(q.Text)
			mq.SetField(field)
			mq.SetBoost(float64(q.Weight(i)))
			disjuncts = append(disjuncts, mq)
		}
		textQuery = bleve.NewDisjunctionQuery(disjuncts...)
	}

	final := textQuery
	if q.FilterBookSlug != "" {
		tq := bleve.NewTermQuery(q.FilterBookSlug)
		tq.SetField("book_slug")
		final = bleve.NewConjunctionQuery(textQuery, tq)
	}

	req := bleve.NewSearchRequestOptions(final, q.PerPage, (q.Page-1)*q.PerPage, false)
	req.Fields = []string{"*"}
	if !q.MatchAll() {
		req.Highlight = bleve.NewHighlightWithStyle(html.Name)
		req.Highlight.Fields = q.QueryBy
	}
	if q.MatchAll() && c.schema.DefaultSortingField != "" {
		req.SortBy([]string{"-" + c.schema.DefaultSortingField})
	}

	sr, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	res := &SearchResult{Found: int(sr.Total), Page: q.Page, Hits: make([]Hit, 0, len(sr.Hits))}
	for _, h := range sr.Hits {
		doc := fromStored(c.schema, h.ID, h.Fields)
		hl := make(map[string]string, len(h.Fragments))
		for field, frags := range h.Fragments {
			if len(frags) > 0 {
				hl[field] = strings.Join(frags, " … ")
			}
		}
		res.Hits = append(res.Hits, Hit{Document: doc, Highlights: hl, Score: h.Score})
	}
	return res, nil
}

// fromStored rebuilds a document from bleve's stored fields, restoring the
// schema's types: numbers come back as float64 and single-element arrays as
// scalars.
func fromStored(schema Schema, id string, fields map[string]any) Document {
	doc := Document{"id": id}
	for _, f := range schema.Fields {
		v, ok := fields[f.Name]
		if !ok || f.Name == "id" {
			continue
		}
		switch f.Type {
		case FieldInt32:
			if n, ok := v.(float64); ok {
				doc[f.Name] = int(n)
			}
		case FieldStringArray:
			doc[f.Name] = Document{f.Name: v}.Strings(f.Name)
		default:
			doc[f.Name] = v
		}
	}
	for _, f := range schema.Fields {
		if _, ok := doc[f.Name]; !ok && f.Type == FieldStringArray {
			doc[f.Name] = []string{}
		}
	}
	return doc
}

// Close implements Engine.
func (b *BleveEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	for name, c := range b.open {
		if err := c.index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.open, name)
	}
	return firstErr
}

var _ Engine = (*BleveEngine)(nil)
