package segment

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultMaxSlugLength bounds base slugs.
const DefaultMaxSlugLength = 80

var (
	apostrophes  = strings.NewReplacer("'", "", "’", "")
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// BaseSlug derives a URL-safe slug from a title: lower-cased, apostrophes
// removed, other non-alphanumeric runs collapsed to "-", trimmed, and cut to
// maxLen characters. An empty result falls back to "book-<id>".
func BaseSlug(title string, id int, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxSlugLength
	}
	slug := strings.ToLower(title)
	slug = apostrophes.Replace(slug)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	if slug == "" {
		return "book-" + strconv.Itoa(id)
	}
	return slug
}
