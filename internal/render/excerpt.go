package render

import (
	"regexp"
	"strings"
)

var (
	reFence      = regexp.MustCompile("(?s)```.*?```")
	reCodeSpan   = regexp.MustCompile("`[^`]+`")
	reImageRef   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	reLinkRef    = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)`)
	reMarkers    = regexp.MustCompile(`[*_>#-]`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// PlainText strips code fences, inline code, images, links, and emphasis
// markers from markdown and collapses whitespace.
func PlainText(markdown string) string {
	s := reFence.ReplaceAllString(markdown, " ")
	s = reCodeSpan.ReplaceAllString(s, " ")
	s = reImageRef.ReplaceAllString(s, " ")
	s = reLinkRef.ReplaceAllString(s, " ")
	s = reMarkers.ReplaceAllString(s, " ")
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// Excerpt truncates the plain-text form of markdown to limit characters,
// appending an ellipsis when content is cut.
func Excerpt(markdown string, limit int) string {
	clean := PlainText(markdown)
	runes := []rune(clean)
	if len(runes) <= limit {
		return clean
	}
	return string(runes[:limit-1]) + "…"
}
