package service

import (
	"regexp"
	"strings"
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugHyphenRuns = regexp.MustCompile(`-+`)
)

// Slugify derives the URL-safe identifier for a title: lowercase, strip
// everything outside [a-z0-9\s-], collapse whitespace runs to a hyphen,
// collapse hyphen runs, trim edge hyphens. Pure and deterministic — the same
// title always yields the same slug, so collisions are caught by the store's
// uniqueness check rather than avoided here.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugHyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
