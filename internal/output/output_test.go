package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status(">", "Fetching catalog...")

	// Then: output contains icon and message
	assert.Equal(t, "> Fetching catalog...\n", buf.String())
}

func TestWriter_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Success("Index complete")
	w.Warningf("%d books missing", 2)
	w.Error("Failed to connect")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"✓ Index complete", "! 2 books missing", "✗ Failed to connect"}, lines)
}

func TestWriter_KV_AlignsLabels(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing pairs with labels of different widths
	w.KV("Slug", "emma", "Chapters", "55")

	// Then: values start in the same column
	assert.Equal(t, "  Slug:     emma\n  Chapters: 55\n", buf.String())
}

func TestWriter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Table([]string{"SLUG", "TITLE"}, [][]string{{"emma", "Emma"}, {"persuasion", "Persuasion"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "SLUG        TITLE", lines[0])
	assert.Equal(t, "persuasion  Persuasion", lines[2])
}

func TestWriter_Highlight_Plain(t *testing.T) {
	w := New(&bytes.Buffer{})

	got := w.Highlight("an <mark>old</mark> <mark>house</mark>")

	assert.Equal(t, "an *old* *house*", got)
}

func TestWriter_Highlight_UnclosedTag(t *testing.T) {
	w := New(&bytes.Buffer{})

	assert.Equal(t, "a <mark>b", w.Highlight("a <mark>b"))
}

func TestWriter_Indent(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Indent("one\ntwo")

	assert.Equal(t, "    one\n    two\n", buf.String())
}
