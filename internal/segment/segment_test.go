package segment

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const preface = "This etext was produced by volunteers and is provided for reference. " +
	"It carries no chapter headings of its own in this preface paragraph."

func TestStripBoilerplate_RemovesMarkersAndOutside(t *testing.T) {
	// Given: a text with header and footer boilerplate
	raw := "Header junk\n*** START OF THE PROJECT GUTENBERG EBOOK X ***\nBody text here.\n*** END OF THE PROJECT GUTENBERG EBOOK X ***\nLicense junk"

	// When
	got := StripBoilerplate(raw)

	// Then: only the body remains
	assert.Equal(t, "Body text here.", got)
	assert.NotContains(t, got, "***")
	assert.NotContains(t, got, "junk")
}

func TestStripBoilerplate_CaseInsensitive(t *testing.T) {
	raw := "x *** start of this ebook *** middle *** End Of this ebook *** y"
	assert.Equal(t, "middle", StripBoilerplate(raw))
}

func TestStripBoilerplate_MissingMarkersLeaveSidesUnchanged(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no markers", "  plain text  ", "plain text"},
		{"start only", "head *** START OF X *** tail", "tail"},
		{"end only", "head *** END OF X *** tail", "head"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripBoilerplate(tt.raw))
		})
	}
}

func TestClean_RejectsShortText(t *testing.T) {
	s := NewSegmenter()

	_, err := s.Clean("*** START OF X ***\nshort\n*** END OF X ***")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooShort)

	text, err := s.Clean("*** START OF X ***\n" + preface + "\n*** END OF X ***")
	require.NoError(t, err)
	assert.Equal(t, preface, text)
}

func TestClean_CountsCharactersNotBytes(t *testing.T) {
	// Given: 60 two-byte runes (120 bytes, 60 characters)
	s := NewSegmenterWithOptions(Options{MinTextLength: 100})
	_, err := s.Clean(strings.Repeat("é", 60))
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestSplit_ChapterHeadings(t *testing.T) {
	// Given: front matter followed by three CHAPTER headings
	text := preface + "\n\nCHAPTER I. The Beginning\nIt was a dark night.\n\nCHAPTER II\nMorning came.\n\nChapter 3:   The   End\nFin."

	// When
	res := NewSegmenter().Split(text)

	// Then: one chapter per heading, in order, starting at the heading
	assert.Equal(t, StrategyHeading, res.Strategy)
	require.Len(t, res.Chapters, 3)
	assert.Equal(t, "CHAPTER I. The Beginning", res.Chapters[0].Title)
	assert.Equal(t, "CHAPTER II", res.Chapters[1].Title)
	assert.Equal(t, "Chapter 3: The End", res.Chapters[2].Title)
	for i, ch := range res.Chapters {
		assert.Equal(t, i+1, ch.Number)
		assert.True(t, strings.HasPrefix(ch.Content, strings.Fields(ch.Title)[0]))
	}
	assert.Equal(t, "CHAPTER II\nMorning came.", res.Chapters[1].Content)
	// Word counts exclude the heading line that Content starts with.
	assert.Equal(t, CountWords(res.Chapters[1].Content)-2, res.Chapters[1].WordCount)
	assert.Equal(t, 5, res.Chapters[0].WordCount)
	assert.Equal(t, 2, res.Chapters[1].WordCount)
	assert.Equal(t, 1, res.Chapters[2].WordCount)
}

func TestSplit_HeadingCountMatchesChapterCount(t *testing.T) {
	for n := 2; n <= 12; n++ {
		var sb strings.Builder
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&sb, "CHAPTER %d\nsome words for chapter %d\n\n", i, i)
		}
		text := sb.String()

		res := NewSegmenter().Split(text)

		require.Equal(t, StrategyHeading, res.Strategy)
		require.Len(t, res.Chapters, n)
		for i, ch := range res.Chapters {
			offset := strings.Index(text, fmt.Sprintf("CHAPTER %d\n", i+1))
			assert.Equal(t, strings.TrimSpace(text[offset:offset+len(ch.Content)]), ch.Content)
		}
	}
}

func TestSplit_OtherHeadingForms(t *testing.T) {
	text := "ACT I\nEnter a king.\nSCENE 2\nExit the king.\nPart iv: coda\nsilence\nBOOK X\nthe end"
	res := NewSegmenter().Split(text)

	assert.Equal(t, StrategyHeading, res.Strategy)
	require.Len(t, res.Chapters, 4)
	assert.Equal(t, "Part iv: coda", res.Chapters[2].Title)
}

func TestSplit_SingleHeadingFallsThrough(t *testing.T) {
	text := "CHAPTER I\n" + strings.Repeat("word ", 10)
	res := NewSegmenter().Split(text)

	assert.Equal(t, StrategyChunk, res.Strategy)
	require.Len(t, res.Chapters, 1)
	assert.Equal(t, 12, res.Chapters[0].WordCount)
}

func TestSplit_HeadingRequiresNumeral(t *testing.T) {
	text := "Chapter and verse were quoted.\nChapter and verse again.\n" + strings.Repeat("word ", 5)
	res := NewSegmenter().Split(text)
	assert.Equal(t, StrategyChunk, res.Strategy)
}

func TestSplit_RomanNumeralLines(t *testing.T) {
	// Given: three bare Roman numeral lines and no headings
	text := "Prelude.\nI.\nFirst part.\nII\nSecond part here.\nIII.\nThird."

	// When
	res := NewSegmenter().Split(text)

	// Then
	assert.Equal(t, StrategyRoman, res.Strategy)
	require.Len(t, res.Chapters, 3)
	assert.Equal(t, "Section I", res.Chapters[0].Title)
	assert.Equal(t, "Section II", res.Chapters[1].Title)
	assert.Equal(t, "Section III", res.Chapters[2].Title)
	assert.Equal(t, "II\nSecond part here.", res.Chapters[1].Content)
	assert.Equal(t, 3, res.Chapters[1].WordCount)
}

func TestSplit_TwoRomanLinesFallThrough(t *testing.T) {
	text := "I.\nFirst.\nII.\nSecond."
	res := NewSegmenter().Split(text)
	assert.Equal(t, StrategyChunk, res.Strategy)
}

func TestSplit_FixedChunking(t *testing.T) {
	// Given: 4500 words with no headings
	words := make([]string, 4500)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	text := strings.Join(words, " \n\t ")

	// When
	res := NewSegmenter().Split(text)

	// Then: 2000, 2000, 500 and the totals agree
	assert.Equal(t, StrategyChunk, res.Strategy)
	require.Len(t, res.Chapters, 3)
	total := 0
	for i, ch := range res.Chapters {
		assert.Equal(t, fmt.Sprintf("Section %d", i+1), ch.Title)
		assert.Equal(t, CountWords(ch.Content), ch.WordCount)
		total += ch.WordCount
	}
	assert.Equal(t, 2000, res.Chapters[0].WordCount)
	assert.Equal(t, 2000, res.Chapters[1].WordCount)
	assert.Equal(t, 500, res.Chapters[2].WordCount)
	assert.Equal(t, CountWords(text), total)
	assert.True(t, strings.HasPrefix(res.Chapters[1].Content, "w2000 w2001 "))
}

func TestSplit_CustomChunkSize(t *testing.T) {
	res := NewSegmenterWithOptions(Options{ChunkWords: 3}).Split("a b c d e f g")
	require.Len(t, res.Chapters, 3)
	assert.Equal(t, "g", res.Chapters[2].Content)
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords(" \n\t "))
	assert.Equal(t, 3, CountWords("  one\ttwo\n\nthree "))
}

func TestBaseSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"The Old House, A Tale", "the-old-house-a-tale"},
		{"Alice's Adventures in Wonderland", "alices-adventures-in-wonderland"},
		{"Gulliver’s Travels", "gullivers-travels"},
		{"  --Hello!!  World--  ", "hello-world"},
		{"Les Misérables", "les-mis-rables"},
		{"???", "book-7"},
		{"", "book-7"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseSlug(tt.title, 7, 80))
		})
	}
}

func TestBaseSlug_Truncates(t *testing.T) {
	title := strings.Repeat("a", 79) + " bcd"
	got := BaseSlug(title, 1, 80)
	assert.Equal(t, strings.Repeat("a", 79), got)
	assert.LessOrEqual(t, len(got), 80)

	long := strings.Repeat("word ", 40)
	assert.LessOrEqual(t, len(BaseSlug(long, 1, 0)), DefaultMaxSlugLength)
}
