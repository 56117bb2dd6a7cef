package search

import (
	"fmt"
)

// Collection names.
const (
	BooksCollection    = "books"
	ChaptersCollection = "chapters"
)

// FieldType is a collection field type.
type FieldType string

const (
	FieldString      FieldType = "string"
	FieldStringArray FieldType = "string[]"
	FieldInt32       FieldType = "int32"
)

// Field describes one field in a collection schema.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Facet    bool      `json:"facet,omitempty"`
	Optional bool      `json:"optional,omitempty"`
	Sort     bool      `json:"sort,omitempty"`
}

// Schema is a collection definition.
type Schema struct {
	Name                string  `json:"name"`
	Fields              []Field `json:"fields"`
	DefaultSortingField string  `json:"default_sorting_field,omitempty"`
}

// BooksSchema is the book-level collection.
func BooksSchema() Schema {
	return Schema{
		Name: BooksCollection,
		Fields: []Field{
			{Name: "id", Type: FieldString},
			{Name: "title", Type: FieldString},
			{Name: "author_name", Type: FieldString},
			{Name: "author_birth_year", Type: FieldInt32, Optional: true},
			{Name: "author_death_year", Type: FieldInt32, Optional: true},
			{Name: "subjects", Type: FieldStringArray, Facet: true},
			{Name: "bookshelves", Type: FieldStringArray, Facet: true},
			{Name: "total_chapters", Type: FieldInt32},
			{Name: "total_word_count", Type: FieldInt32, Sort: true},
			{Name: "slug", Type: FieldString},
		},
		DefaultSortingField: "total_word_count",
	}
}

// ChaptersSchema is the chapter-level collection.
func ChaptersSchema() Schema {
	return Schema{
		Name: ChaptersCollection,
		Fields: []Field{
			{Name: "id", Type: FieldString},
			{Name: "book_slug", Type: FieldString, Facet: true},
			{Name: "book_title", Type: FieldString},
			{Name: "author_name", Type: FieldString},
			{Name: "chapter_number", Type: FieldInt32, Sort: true},
			{Name: "chapter_title", Type: FieldString},
			{Name: "content", Type: FieldString},
			{Name: "word_count", Type: FieldInt32, Sort: true},
		},
		DefaultSortingField: "word_count",
	}
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// TextFields returns the string and string[] fields other than id.
func (s Schema) TextFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Name != "id" && (f.Type == FieldString || f.Type == FieldStringArray) {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks doc against the schema: every required field must be
// present with a compatible type. Local engines use it to report per-document
// failures the way a search server would.
func (s Schema) Validate(doc Document) error {
	for _, f := range s.Fields {
		v, ok := doc[f.Name]
		if !ok || v == nil {
			if f.Optional {
				continue
			}
			return fmt.Errorf("field `%s` has been declared in the schema, but is not found in the document", f.Name)
		}
		if !typeMatches(f.Type, v) {
			return fmt.Errorf("field `%s` must be of type %s", f.Name, f.Type)
		}
	}
	if id, _ := doc["id"].(string); id == "" {
		return fmt.Errorf("document id must be a non-empty string")
	}
	return nil
}

func typeMatches(t FieldType, v any) bool {
	switch t {
	case FieldString:
		_, ok := v.(string)
		return ok
	case FieldStringArray:
		switch v.(type) {
		case []string, []any:
			return true
		}
		return false
	case FieldInt32:
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	}
	return false
}
