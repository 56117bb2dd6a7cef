package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gutenindex/internal/corpus"
	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/output"
)

func newBooksCmd(flags *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "books",
		Short: "Browse the processed corpus",
		Long: `Read processed books straight from the data directory. No search engine is
needed; run 'gutenindex process' first.`,
		Example: `  gutenindex books list --subject "science fiction"
  gutenindex books show frankenstein-or-the-modern-prometheus
  gutenindex books chapter frankenstein-or-the-modern-prometheus 5`,
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newBooksListCmd(flags, &jsonOutput))
	cmd.AddCommand(newBooksShowCmd(flags, &jsonOutput))
	cmd.AddCommand(newBooksChapterCmd(flags, &jsonOutput))
	cmd.AddCommand(newBooksValuesCmd(flags, &jsonOutput, "subjects", "List every subject", (*corpus.Reader).Subjects))
	cmd.AddCommand(newBooksValuesCmd(flags, &jsonOutput, "authors", "List every author", (*corpus.Reader).Authors))
	return cmd
}

// withReader runs fn with a corpus reader over the configured data directory.
func withReader(cmd *cobra.Command, flags *globalFlags, fn func(r *corpus.Reader, w *output.Writer) error) error {
	a, err := newApp(cmd, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	r := corpus.NewReader(a.store, a.cfg.Search.CacheSize)
	return fn(r, output.New(cmd.OutOrStdout()))
}

func newBooksListCmd(flags *globalFlags, jsonOutput *bool) *cobra.Command {
	var subject, author string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List book summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withReader(cmd, flags, func(r *corpus.Reader, w *output.Writer) error {
				var (
					books []corpus.BookMeta
					err   error
				)
				switch {
				case subject != "":
					books, err = r.BooksBySubject(subject)
				case author != "":
					books, err = r.BooksByAuthor(author)
				default:
					books, err = r.AllBooks()
				}
				if err != nil {
					return err
				}
				if books == nil {
					books = []corpus.BookMeta{}
				}
				if *jsonOutput {
					return writeJSON(cmd.OutOrStdout(), books)
				}

				rows := make([][]string, 0, len(books))
				for _, b := range books {
					rows = append(rows, []string{
						b.Slug, b.Title, b.Author.Name,
						strconv.Itoa(b.TotalChapters), strconv.Itoa(b.TotalWordCount),
					})
				}
				w.Table([]string{"SLUG", "TITLE", "AUTHOR", "CHAPTERS", "WORDS"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Only books with a subject containing this text")
	cmd.Flags().StringVar(&author, "author", "", "Only books whose author contains this text")
	cmd.MarkFlagsMutuallyExclusive("subject", "author")
	return cmd
}

func newBooksShowCmd(flags *globalFlags, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show one book and its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReader(cmd, flags, func(r *corpus.Reader, w *output.Writer) error {
				book, err := r.BookBySlug(args[0])
				if err != nil {
					return err
				}
				if book == nil {
					return bookNotFound(args[0])
				}
				if *jsonOutput {
					return writeJSON(cmd.OutOrStdout(), book)
				}

				w.KV(
					"Title", book.Title,
					"Author", book.Author.Name,
					"Slug", book.Slug,
					"Gutenberg ID", strconv.Itoa(book.ID),
					"Chapters", strconv.Itoa(book.TotalChapters),
					"Words", strconv.Itoa(book.TotalWordCount),
				)
				w.Newline()
				rows := make([][]string, 0, len(book.Chapters))
				for _, ch := range book.Chapters {
					rows = append(rows, []string{strconv.Itoa(ch.Number), ch.Title, strconv.Itoa(ch.WordCount)})
				}
				w.Table([]string{"#", "TITLE", "WORDS"}, rows)
				return nil
			})
		},
	}
}

func newBooksChapterCmd(flags *globalFlags, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "chapter <slug> <number>",
		Short: "Print one chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[1])
			if err != nil || number < 1 {
				return gerrors.New(gerrors.ErrCodeInvalidInput, fmt.Sprintf("chapter number must be a positive integer, got %q", args[1]), nil)
			}
			return withReader(cmd, flags, func(r *corpus.Reader, w *output.Writer) error {
				ch, err := r.Chapter(args[0], number)
				if err != nil {
					return err
				}
				if ch == nil {
					return gerrors.New(gerrors.ErrCodeFileNotFound, fmt.Sprintf("no chapter %d in %s", number, args[0]), nil).
						WithSuggestion("list chapters with `gutenindex books show " + args[0] + "`")
				}
				if *jsonOutput {
					return writeJSON(cmd.OutOrStdout(), ch)
				}
				w.Statusf("", "%d. %s (%d words)", ch.Number, ch.Title, ch.WordCount)
				w.Newline()
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ch.Content)
				return err
			})
		},
	}
}

func newBooksValuesCmd(flags *globalFlags, jsonOutput *bool, use, short string, list func(*corpus.Reader) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withReader(cmd, flags, func(r *corpus.Reader, w *output.Writer) error {
				values, err := list(r)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(cmd.OutOrStdout(), values)
				}
				for _, v := range values {
					w.Status("", v)
				}
				return nil
			})
		},
	}
}

func bookNotFound(slug string) error {
	return gerrors.New(gerrors.ErrCodeFileNotFound, "no book with slug "+slug, nil).
		WithSuggestion("list slugs with `gutenindex books list`")
}
