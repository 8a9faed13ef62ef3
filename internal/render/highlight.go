package render

import (
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const highlightStyle = "github"

// highlightCode routes a fenced code block through the syntax highlighter
// keyed by the declared language. Unknown languages and any highlighter
// failure fall back to escaped plain text.
func highlightCode(code, lang string) string {
	if lang != "" {
		if out, ok := tryHighlight(code, lang); ok {
			return `<pre class="hljs"><code class="language-` + html.EscapeString(lang) + `">` + out + "</code></pre>"
		}
	}
	return `<pre class="hljs"><code>` + html.EscapeString(code) + "</code></pre>"
}

func tryHighlight(code, lang string) (string, bool) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}
	style := styles.Get(highlightStyle)
	if style == nil {
		style = styles.Fallback
	}
	formatter := chromahtml.New(chromahtml.PreventSurroundingPre(true))
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", false
	}
	return buf.String(), true
}
