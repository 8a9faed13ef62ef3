// Package render turns note markdown into hypertext with a table of contents
// and a plain-text excerpt.
package render

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	reHeading        = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	reOrderedList    = regexp.MustCompile(`^(\d+)\.\s`)
	reBold           = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore = regexp.MustCompile(`__(.+?)__`)
	reItalic         = regexp.MustCompile(`\*([^*]+)\*`)
	reInlineCode     = regexp.MustCompile("`([^`]+)`")
	reLink           = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reImg            = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	reSlugStrip      = regexp.MustCompile(`[^\w\s-]`)
	reSpaces         = regexp.MustCompile(`\s+`)
	reHyphens        = regexp.MustCompile(`-+`)
)

// Heading is one table-of-contents entry, in document order.
type Heading struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Result is the output of rendering one note body.
type Result struct {
	HTML string
	TOC  []Heading
}

// Slugify derives a URL-safe identifier from heading text: lowercase,
// non-word characters stripped, whitespace to hyphens. Collisions against
// used are numbered slug-1, slug-2, in order.
func Slugify(text string, used map[string]struct{}) string {
	base := strings.TrimSpace(strings.ToLower(text))
	base = reSlugStrip.ReplaceAllString(base, "")
	base = reSpaces.ReplaceAllString(base, "-")
	base = reHyphens.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "section"
	}
	slug := base
	for i := 1; ; i++ {
		if _, taken := used[slug]; !taken {
			break
		}
		slug = base + "-" + strconv.Itoa(i)
	}
	used[slug] = struct{}{}
	return slug
}

// Render converts a resolved markdown body to HTML. It never fails: malformed
// input degrades to escaped literal output. Headings of level 1-3 receive
// deduplicated slug ids and are recorded into the table of contents.
func Render(body string) Result {
	var buf strings.Builder
	var toc []Heading
	usedSlugs := make(map[string]struct{})

	lines := strings.Split(body, "\n")
	inList := false
	inOrderedList := false
	inPara := false
	inQuote := false
	inCode := false
	inTable := false
	tableHeaderDone := false
	var codeLang string
	var codeLines []string

	flushCode := func() {
		if inCode {
			buf.WriteString(highlightCode(strings.Join(codeLines, "\n"), codeLang))
			codeLines = nil
			inCode = false
		}
	}
	flushPara := func() {
		if inPara {
			buf.WriteString("</p>")
			inPara = false
		}
	}
	flushQuote := func() {
		if inQuote {
			buf.WriteString("</blockquote>")
			inQuote = false
		}
	}
	flushList := func() {
		if inList {
			buf.WriteString("</ul>")
			inList = false
		}
	}
	flushOrderedList := func() {
		if inOrderedList {
			buf.WriteString("</ol>")
			inOrderedList = false
		}
	}
	flushTable := func() {
		if inTable {
			if tableHeaderDone {
				buf.WriteString("</tbody>")
			}
			buf.WriteString("</table>")
			inTable = false
			tableHeaderDone = false
		}
	}
	flushBlocks := func() {
		flushPara()
		flushList()
		flushOrderedList()
		flushQuote()
		flushTable()
	}

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")

		if strings.HasPrefix(line, "```") {
			if inCode {
				flushCode()
			} else {
				flushBlocks()
				codeLang = strings.TrimSpace(line[3:])
				inCode = true
			}
			continue
		}
		if inCode {
			codeLines = append(codeLines, line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			flushBlocks()
			continue
		}

		if m := reHeading.FindStringSubmatch(line); m != nil {
			flushBlocks()
			level := len(m[1])
			text := strings.TrimSpace(m[2])
			tag := "h" + strconv.Itoa(level)
			if level <= 3 {
				id := Slugify(text, usedSlugs)
				toc = append(toc, Heading{ID: id, Text: text, Level: level})
				buf.WriteString("<" + tag + ` id="` + id + `">`)
			} else {
				buf.WriteString("<" + tag + ">")
			}
			buf.WriteString(formatInline(text))
			buf.WriteString("</" + tag + ">")
			continue
		}

		switch {
		case strings.HasPrefix(line, "---") && strings.TrimRight(line, "-") == "":
			flushBlocks()
			buf.WriteString("<hr/>")
		case strings.HasPrefix(line, "|"):
			if !inTable {
				flushPara()
				flushList()
				flushOrderedList()
				flushQuote()
				buf.WriteString("<table><thead><tr>")
				for _, cell := range parseTableCells(line) {
					buf.WriteString("<th>")
					buf.WriteString(formatInline(cell))
					buf.WriteString("</th>")
				}
				buf.WriteString("</tr></thead>")
				inTable = true
			} else if isTableSeparator(line) {
				if !tableHeaderDone {
					buf.WriteString("<tbody>")
					tableHeaderDone = true
				}
			} else {
				if !tableHeaderDone {
					buf.WriteString("<tbody>")
					tableHeaderDone = true
				}
				buf.WriteString("<tr>")
				for _, cell := range parseTableCells(line) {
					buf.WriteString("<td>")
					buf.WriteString(formatInline(cell))
					buf.WriteString("</td>")
				}
				buf.WriteString("</tr>")
			}
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			if !inList {
				flushPara()
				flushOrderedList()
				flushQuote()
				flushTable()
				buf.WriteString("<ul>")
				inList = true
			}
			buf.WriteString("<li>")
			buf.WriteString(formatInline(strings.TrimSpace(line[2:])))
			buf.WriteString("</li>")
		case reOrderedList.MatchString(line):
			if !inOrderedList {
				flushPara()
				flushList()
				flushQuote()
				flushTable()
				buf.WriteString("<ol>")
				inOrderedList = true
			}
			content := reOrderedList.ReplaceAllString(line, "")
			buf.WriteString("<li>")
			buf.WriteString(formatInline(strings.TrimSpace(content)))
			buf.WriteString("</li>")
		case strings.HasPrefix(line, ">"):
			if !inQuote {
				flushPara()
				flushList()
				flushOrderedList()
				flushTable()
				buf.WriteString("<blockquote>")
				inQuote = true
			}
			buf.WriteString(formatInline(strings.TrimSpace(strings.TrimPrefix(line, ">"))))
			buf.WriteString("\n")
		default:
			if !inPara {
				flushList()
				flushOrderedList()
				flushQuote()
				flushTable()
				buf.WriteString("<p>")
				inPara = true
			} else {
				buf.WriteString(" ")
			}
			buf.WriteString(formatInline(strings.TrimSpace(line)))
		}
	}
	flushBlocks()
	flushCode()

	return Result{HTML: buf.String(), TOC: toc}
}

func parseTableCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isTableSeparator(line string) bool {
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "|")
	for _, cell := range strings.Split(line, "|") {
		cleaned := strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(cell), "-", ""), ":", "")
		if cleaned != "" {
			return false
		}
	}
	return true
}

// applyOutsideTags applies fn only to text segments outside HTML tags so
// formatting regexes never touch URLs inside href attributes.
func applyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// formatInline applies inline formatting (code, images, links, emphasis).
func formatInline(s string) string {
	escaped := html.EscapeString(s)

	// Inline code first: extract into placeholders so later regexes never
	// format content inside backticks.
	var inlineCode []string
	escaped = reInlineCode.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reInlineCode.FindStringSubmatch(m)
		placeholder := "\x00IC" + strconv.Itoa(len(inlineCode)) + "\x00"
		inlineCode = append(inlineCode, "<code>"+match[1]+"</code>")
		return placeholder
	})

	escaped = reImg.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reImg.FindStringSubmatch(m)
		src := safeURL(match[2])
		if src == "" {
			return match[1]
		}
		return `<img alt="` + match[1] + `" src="` + src + `" loading="lazy"/>`
	})
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := safeURL(match[2])
		if href == "" {
			return match[1]
		}
		return `<a href="` + href + `">` + match[1] + `</a>`
	})
	escaped = applyOutsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		return seg
	})

	for i, code := range inlineCode {
		escaped = strings.Replace(escaped, "\x00IC"+strconv.Itoa(i)+"\x00", code, 1)
	}
	return escaped
}

// safeURL admits relative paths, fragments, and http(s)/mailto URLs.
// Anything with another scheme is dropped.
func safeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if i := strings.Index(val, ":"); i >= 0 && !strings.ContainsAny(val[:i], "/?#") {
		switch strings.ToLower(val[:i]) {
		case "http", "https", "mailto":
		default:
			return ""
		}
	}
	return html.EscapeString(val)
}
