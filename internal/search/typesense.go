package search

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// Typesense defaults.
const (
	DefaultTypesenseTimeout = 10 * time.Second
)

// TypesenseOptions configures a TypesenseEngine.
type TypesenseOptions struct {
	Host     string
	Port     int
	Protocol string
	APIKey   string

	// Timeout bounds each non-import request.
	Timeout time.Duration
	// ImportTimeout bounds one batch import (default: 6x Timeout).
	ImportTimeout time.Duration

	// BaseURL overrides Protocol/Host/Port. Used by tests.
	BaseURL string
	Logger  *slog.Logger
}

// TypesenseEngine talks to a Typesense server through the official client.
// Imports get their own client so a large batch is not cut off by the
// request timeout.
type TypesenseEngine struct {
	client   *typesense.Client
	importer *typesense.Client
	opts     TypesenseOptions
	logger   *slog.Logger
}

// NewTypesenseEngine creates a client. No request is made until first use.
func NewTypesenseEngine(opts TypesenseOptions) *TypesenseEngine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTypesenseTimeout
	}
	if opts.ImportTimeout <= 0 {
		opts.ImportTimeout = 6 * opts.Timeout
	}
	if opts.Protocol == "" {
		opts.Protocol = "http"
	}
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Port == 0 {
		opts.Port = 8108
	}
	server := opts.BaseURL
	if server == "" {
		server = fmt.Sprintf("%s://%s", opts.Protocol, net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)))
	}
	server = strings.TrimRight(server, "/")

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	newClient := func(timeout time.Duration) *typesense.Client {
		return typesense.NewClient(
			typesense.WithServer(server),
			typesense.WithAPIKey(opts.APIKey),
			typesense.WithConnectionTimeout(timeout),
		)
	}

	return &TypesenseEngine{
		client:   newClient(opts.Timeout),
		importer: newClient(opts.ImportTimeout),
		opts:     opts,
		logger:   logger.With("engine", "typesense"),
	}
}

// Health implements Engine.
func (t *TypesenseEngine) Health(ctx context.Context) error {
	ok, err := t.client.Health(ctx, t.opts.Timeout)
	if err != nil {
		return t.mapError("health", err)
	}
	if !ok {
		return fmt.Errorf("typesense reports unhealthy")
	}
	return nil
}

// DeleteCollection implements Engine.
func (t *TypesenseEngine) DeleteCollection(ctx context.Context, name string) error {
	if _, err := t.client.Collection(name).Delete(ctx); err != nil {
		return t.mapError("delete collection "+name, err)
	}
	return nil
}

// CreateCollection implements Engine.
func (t *TypesenseEngine) CreateCollection(ctx context.Context, schema Schema) error {
	if _, err := t.client.Collections().Create(ctx, collectionSchema(schema)); err != nil {
		return t.mapError("create collection "+schema.Name, err)
	}
	return nil
}

func collectionSchema(s Schema) *api.CollectionSchema {
	fields := make([]api.Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		af := api.Field{Name: f.Name, Type: string(f.Type)}
		if f.Facet {
			af.Facet = pointer.True()
		}
		if f.Optional {
			af.Optional = pointer.True()
		}
		if f.Sort {
			af.Sort = pointer.True()
		}
		fields = append(fields, af)
	}

	cs := &api.CollectionSchema{Name: s.Name, Fields: fields}
	if s.DefaultSortingField != "" {
		cs.DefaultSortingField = pointer.String(s.DefaultSortingField)
	}
	return cs
}

// Import implements Engine. The server's default import action is create,
// so an existing id is reported as a per-document failure.
func (t *TypesenseEngine) Import(ctx context.Context, collection string, docs []Document) ([]ImportResult, error) {
	if len(docs) == 0 {
		return []ImportResult{}, nil
	}

	batch := make([]any, len(docs))
	for i, d := range docs {
		batch[i] = d
	}

	responses, err := t.importer.Collection(collection).Documents().Import(ctx, batch, nil)
	if err != nil {
		return nil, t.mapError("import into "+collection, err)
	}
	if len(responses) != len(docs) {
		return nil, fmt.Errorf("import returned %d results for %d documents", len(responses), len(docs))
	}

	results := make([]ImportResult, len(docs))
	for i, r := range responses {
		results[i] = ImportResult{ID: docs[i].ID()}
		if r == nil {
			results[i].Error = "no result reported"
			continue
		}
		results[i].Success = r.Success
		results[i].Error = r.Error
	}
	return results, nil
}

// Search implements Engine.
func (t *TypesenseEngine) Search(ctx context.Context, collection string, q Query) (*SearchResult, error) {
	q = q.Normalize()

	text := q.Text
	if q.MatchAll() {
		text = "*"
	}
	params := &api.SearchCollectionParams{
		Q:                 pointer.String(text),
		QueryBy:           pointer.String(strings.Join(q.QueryBy, ",")),
		Page:              pointer.Int(q.Page),
		PerPage:           pointer.Int(q.PerPage),
		HighlightStartTag: pointer.String(HighlightStart),
		HighlightEndTag:   pointer.String(HighlightEnd),
	}
	if len(q.Weights) > 0 {
		w := make([]string, len(q.QueryBy))
		for i := range q.QueryBy {
			w[i] = strconv.Itoa(q.Weight(i))
		}
		params.QueryByWeights = pointer.String(strings.Join(w, ","))
	}
	if len(q.FacetBy) > 0 {
		params.FacetBy = pointer.String(strings.Join(q.FacetBy, ","))
		params.MaxFacetValues = pointer.Int(maxFacetValues)
	}
	if q.FilterBookSlug != "" {
		params.FilterBy = pointer.String("book_slug:=" + q.FilterBookSlug)
	}

	raw, err := t.client.Collection(collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, t.mapError("search "+collection, err)
	}
	return searchResult(raw, q.Page), nil
}

func searchResult(raw *api.SearchResult, page int) *SearchResult {
	res := &SearchResult{Page: page}
	if raw == nil {
		return res
	}
	if raw.Found != nil {
		res.Found = *raw.Found
	}
	if raw.Page != nil {
		res.Page = *raw.Page
	}

	if raw.Hits != nil {
		res.Hits = make([]Hit, 0, len(*raw.Hits))
		for _, h := range *raw.Hits {
			hit := Hit{Document: Document{}, Highlights: map[string]string{}}
			if h.Document != nil {
				hit.Document = Document(*h.Document)
			}
			if h.TextMatch != nil {
				hit.Score = float64(*h.TextMatch)
			}
			if h.Highlights != nil {
				for _, x := range *h.Highlights {
					if x.Field == nil {
						continue
					}
					hit.Highlights[*x.Field] = snippetOf(x.Snippet, x.Snippets)
				}
			}
			res.Hits = append(res.Hits, hit)
		}
	}

	if raw.FacetCounts != nil && len(*raw.FacetCounts) > 0 {
		res.Facets = make(map[string][]FacetCount, len(*raw.FacetCounts))
		for _, f := range *raw.FacetCounts {
			if f.FieldName == nil || f.Counts == nil {
				continue
			}
			counts := make([]FacetCount, 0, len(*f.Counts))
			for _, c := range *f.Counts {
				fc := FacetCount{}
				if c.Value != nil {
					fc.Value = *c.Value
				}
				if c.Count != nil {
					fc.Count = *c.Count
				}
				counts = append(counts, fc)
			}
			res.Facets[*f.FieldName] = counts
		}
	}
	return res
}

// snippetOf prefers the single snippet; array fields report one per match.
func snippetOf(snippet *string, snippets *[]string) string {
	if snippet != nil && *snippet != "" {
		return *snippet
	}
	if snippets != nil {
		return strings.Join(*snippets, ", ")
	}
	return ""
}

// Close implements Engine. The client holds no resources beyond idle
// connections, which the transport reaps.
func (t *TypesenseEngine) Close() error {
	return nil
}

// mapError converts the client's HTTP errors into StatusError so a 404
// matches ErrNotFound.
func (t *TypesenseEngine) mapError(op string, err error) error {
	var httpErr *typesense.HTTPError
	if !stderrors.As(err, &httpErr) {
		t.logger.Debug("typesense_request_failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	var body struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(httpErr.Body))
	if json.Unmarshal(httpErr.Body, &body) == nil && body.Message != "" {
		msg = body.Message
	}
	return &StatusError{StatusCode: httpErr.Status, Message: msg}
}

// StatusError is a non-2xx response from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("typesense: HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 to ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

var _ Engine = (*TypesenseEngine)(nil)
