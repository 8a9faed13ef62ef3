// Package frontmatter extracts and edits the YAML metadata block of a note.
package frontmatter

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Split separates the raw YAML front matter block (between leading ---
// delimiters) from the body. If no block is found the entire content is body.
func Split(data []byte) (fmText string, body string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return "", string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter — treat everything as body.
		return "", string(data)
	}
	block := strings.Trim(string(rest[:idx]), "\n\r")
	after := rest[idx+1+len(delim):]
	return block, strings.TrimLeft(string(after), "\n\r")
}

// Parse returns the front matter as a map alongside the body. Invalid YAML
// falls back to treating the whole input as body; parsing never fails a load.
func Parse(data []byte) (map[string]any, string) {
	fmText, body := Split(data)
	if fmText == "" {
		return nil, body
	}
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// Join recombines an encoded front matter block with a body.
func Join(fmText, body string) string {
	fmText = strings.TrimSpace(fmText)
	if fmText == "" {
		return body
	}
	return delim + "\n" + fmText + "\n" + delim + "\n" + strings.TrimLeft(body, "\n")
}

// DeriveTitle returns the front matter "title" if present, otherwise the
// first H1 heading, otherwise the fallback.
func DeriveTitle(fm map[string]any, body, fallback string) string {
	if fm != nil {
		if t, ok := fm["title"].(string); ok && t != "" {
			return t
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return fallback
}

// StringField reads a scalar front matter field as a string.
func StringField(fm map[string]any, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return s
	}
	return ""
}

// ListField reads a list-valued front matter field, accepting either a YAML
// sequence or a single scalar.
func ListField(fm map[string]any, key string) []string {
	if fm == nil {
		return nil
	}
	switch v := fm[key].(type) {
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case string:
		if v = strings.TrimSpace(v); v != "" {
			return []string{v}
		}
	}
	return nil
}
