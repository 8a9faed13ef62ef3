// Package links rewrites bracket references and callout blocks ahead of
// rendering.
package links

import (
	"path"
	"regexp"
	"strings"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	calloutRe  = regexp.MustCompile(`(?s):::\s*(tip|info|warning|danger)\s*\n(.*?):::`)
	extRe      = regexp.MustCompile(`(?i)\.(md|markdown|txt)$`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// StripExt removes a trailing note extension from a path.
func StripExt(rel string) string {
	return extRe.ReplaceAllString(rel, "")
}

// SlugMap resolves wikilink targets against the canonical slugs of a batch.
type SlugMap struct {
	direct map[string]struct{}
	// norm maps whitespace-normalized slugs back to the canonical slug.
	// First insertion wins on a collision; batch order is undefined, which
	// makes ambiguous targets deliberately order-dependent.
	norm map[string]string
}

// NewSlugMap builds a slug map over all note paths in a batch.
func NewSlugMap(paths []string) *SlugMap {
	m := &SlugMap{
		direct: make(map[string]struct{}, len(paths)),
		norm:   make(map[string]string, len(paths)),
	}
	for _, p := range paths {
		slug := StripExt(strings.ReplaceAll(p, "\\", "/"))
		m.direct[slug] = struct{}{}
		n := spaceRe.ReplaceAllString(slug, "-")
		if _, exists := m.norm[n]; !exists {
			m.norm[n] = slug
		}
	}
	return m
}

// Resolve maps a target onto a canonical slug: exact match first, then
// whitespace-to-hyphen normalization. found is false when the target is
// unknown and the caller should fall back to treating it as a slug already.
func (m *SlugMap) Resolve(target string) (slug string, found bool) {
	if _, ok := m.direct[target]; ok {
		return target, true
	}
	if s, ok := m.norm[spaceRe.ReplaceAllString(target, "-")]; ok {
		return s, true
	}
	return target, false
}

// Rewrite replaces [[target|alias]] references with standard hyperlinks and
// converts ::: callout fences into labelled blockquotes. Unresolved targets
// degrade to a best-effort relative path; Rewrite never fails.
func Rewrite(body, currentRel string, slugs *SlugMap) (string, []string) {
	currentDir := path.Dir(strings.ReplaceAll(currentRel, "\\", "/"))
	if currentDir == "." {
		currentDir = ""
	}

	var resolved []string
	out := wikilinkRe.ReplaceAllStringFunc(body, func(match string) string {
		inner := wikilinkRe.FindStringSubmatch(match)[1]
		target, alias, _ := strings.Cut(inner, "|")
		target = strings.TrimSpace(target)
		alias = strings.TrimSpace(alias)
		if alias == "" {
			alias = target
		}
		if target == "" {
			return match
		}
		normalized := StripExt(strings.ReplaceAll(target, "\\", "/"))
		slug, found := slugs.Resolve(normalized)
		href := slug
		if !found && !strings.Contains(slug, "/") && currentDir != "" {
			href = currentDir + "/" + slug
		}
		resolved = append(resolved, href)
		return "[" + alias + "](" + strings.TrimLeft(href, "/") + ")"
	})

	out = calloutRe.ReplaceAllStringFunc(out, func(match string) string {
		sub := calloutRe.FindStringSubmatch(match)
		label := strings.ToUpper(sub[1])
		lines := strings.Split(strings.TrimSpace(sub[2]), "\n")
		for i, l := range lines {
			lines[i] = "> " + l
		}
		return "> **" + label + "**\n" + strings.Join(lines, "\n")
	})

	return out, resolved
}
