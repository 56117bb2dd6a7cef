// Package segment turns a raw distributor text into chapters: it strips the
// header and footer boilerplate, then splits the body with a cascade of
// heuristics (chapter-like headings, bare Roman numeral lines, fixed-size
// word chunks).
package segment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/gutenindex/internal/corpus"
)

// Defaults for the segmentation heuristics.
const (
	DefaultChunkWords    = 2000
	DefaultMinTextLength = 100
	minHeadingMatches    = 2
	minRomanMatches      = 3
)

// Strategy names the heuristic that produced a segmentation.
type Strategy string

const (
	StrategyHeading Strategy = "heading"
	StrategyRoman   Strategy = "roman"
	StrategyChunk   Strategy = "chunk"
)

// ErrTooShort is returned when too little text survives boilerplate stripping.
var ErrTooShort = errors.New("text too short after stripping boilerplate")

var (
	startMarker = regexp.MustCompile(`(?i)\*\*\*\s*START OF.*?\*\*\*`)
	endMarker   = regexp.MustCompile(`(?i)\*\*\*\s*END OF.*?\*\*\*`)

	// CHAPTER 12, Part IV: The Return, act ii., SCENE 3 ...
	headingPattern = regexp.MustCompile(`(?im)^(?:chapter|part|book|act|scene)[ \t]+(?:\d+|[ivxlcdm]+)\b[.: \t]*.*$`)

	// A line holding only a Roman numeral, optionally followed by a period.
	romanLinePattern = regexp.MustCompile(`(?m)^([IVXLCDM]+)\.?[ \t\r]*$`)
)

// Options configures the segmenter.
type Options struct {
	ChunkWords    int // words per chapter for fixed chunking (default: DefaultChunkWords)
	MinTextLength int // minimum characters after stripping (default: DefaultMinTextLength, negative disables)
}

// Segmenter splits cleaned text into chapters. It is stateless and safe for concurrent use.
type Segmenter struct {
	options Options
}

// Result is a segmentation and the strategy that produced it.
type Result struct {
	Chapters []corpus.Chapter
	Strategy Strategy
}

// NewSegmenter creates a segmenter with default options.
func NewSegmenter() *Segmenter {
	return NewSegmenterWithOptions(Options{})
}

// NewSegmenterWithOptions creates a segmenter with custom options.
func NewSegmenterWithOptions(opts Options) *Segmenter {
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = DefaultChunkWords
	}
	if opts.MinTextLength == 0 {
		opts.MinTextLength = DefaultMinTextLength
	}
	return &Segmenter{options: opts}
}

// StripBoilerplate keeps only the text strictly between the START and END
// markers. A missing marker leaves that side untouched. The result is trimmed.
func StripBoilerplate(text string) string {
	if loc := startMarker.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}
	if loc := endMarker.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return strings.TrimSpace(text)
}

// Clean strips boilerplate and rejects texts shorter than MinTextLength
// characters with ErrTooShort.
func (s *Segmenter) Clean(raw string) (string, error) {
	text := StripBoilerplate(raw)
	if n := utf8.RuneCountInString(text); n < s.options.MinTextLength {
		return "", fmt.Errorf("%w: %d characters", ErrTooShort, n)
	}
	return text, nil
}

// Split runs the cascade over cleaned text; the first strategy that applies wins.
// Non-empty text always yields at least one chapter.
func (s *Segmenter) Split(text string) Result {
	if spans := findHeadings(text); len(spans) >= minHeadingMatches {
		return Result{Chapters: sliceAt(text, spans), Strategy: StrategyHeading}
	}
	if spans := findRomanLines(text); len(spans) >= minRomanMatches {
		return Result{Chapters: sliceAt(text, spans), Strategy: StrategyRoman}
	}
	return Result{Chapters: chunk(text, s.options.ChunkWords), Strategy: StrategyChunk}
}

// CountWords counts non-empty tokens separated by whitespace runs. Every word
// count in the pipeline goes through here.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// span marks one chapter boundary: the heading's offsets and the title it yields.
type span struct {
	start, end int
	title      string
}

func findHeadings(text string) []span {
	locs := headingPattern.FindAllStringIndex(text, -1)
	spans := make([]span, 0, len(locs))
	for _, loc := range locs {
		spans = append(spans, span{
			start: loc[0],
			end:   loc[1],
			title: strings.Join(strings.Fields(text[loc[0]:loc[1]]), " "),
		})
	}
	return spans
}

func findRomanLines(text string) []span {
	locs := romanLinePattern.FindAllStringSubmatchIndex(text, -1)
	spans := make([]span, 0, len(locs))
	for _, loc := range locs {
		spans = append(spans, span{
			start: loc[0],
			end:   loc[1],
			title: "Section " + text[loc[2]:loc[3]],
		})
	}
	return spans
}

// sliceAt cuts text from each heading to the next; the last chapter runs to
// the end. Text before the first heading is front matter and is dropped.
// Content includes the heading line; WordCount covers only the prose under it,
// since the heading is already the chapter's title.
func sliceAt(text string, spans []span) []corpus.Chapter {
	chapters := make([]corpus.Chapter, 0, len(spans))
	for i, sp := range spans {
		end := len(text)
		if i+1 < len(spans) {
			end = spans[i+1].start
		}
		chapters = append(chapters, corpus.Chapter{
			Number:    i + 1,
			Title:     sp.title,
			Content:   strings.TrimSpace(text[sp.start:end]),
			WordCount: CountWords(text[sp.end:end]),
		})
	}
	return chapters
}

func chunk(text string, size int) []corpus.Chapter {
	words := strings.Fields(text)
	chapters := make([]corpus.Chapter, 0, len(words)/size+1)
	for i := 0; i < len(words); i += size {
		end := min(i+size, len(words))
		n := len(chapters) + 1
		chapters = append(chapters, corpus.Chapter{
			Number:    n,
			Title:     fmt.Sprintf("Section %d", n),
			Content:   strings.Join(words[i:end], " "),
			WordCount: end - i,
		})
	}
	return chapters
}
