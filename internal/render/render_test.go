package render

import (
	"strings"
	"testing"
)

func TestSlugify_Basic(t *testing.T) {
	used := make(map[string]struct{})
	if got := Slugify("Hello, World!", used); got != "hello-world" {
		t.Errorf("slug = %q", got)
	}
	if got := Slugify("", used); got != "section" {
		t.Errorf("empty heading slug = %q, want section", got)
	}
}

func TestSlugify_CollisionNumbering(t *testing.T) {
	used := make(map[string]struct{})
	first := Slugify("Section", used)
	second := Slugify("Section", used)
	third := Slugify("Section", used)
	if first != "section" || second != "section-1" || third != "section-2" {
		t.Errorf("slugs = %q %q %q", first, second, third)
	}
}

func TestRender_HeadingIDsAndTOC(t *testing.T) {
	r := Render("# Intro\ntext\n## Details\nmore\n### Deep\n#### Too deep")
	if !strings.Contains(r.HTML, `<h1 id="intro">`) {
		t.Errorf("missing h1 id: %s", r.HTML)
	}
	if !strings.Contains(r.HTML, `<h2 id="details">`) {
		t.Errorf("missing h2 id: %s", r.HTML)
	}
	if strings.Contains(r.HTML, `<h4 id=`) {
		t.Error("level 4 headings must not get ids")
	}
	if len(r.TOC) != 3 {
		t.Fatalf("toc = %v, want 3 entries", r.TOC)
	}
	if r.TOC[0].ID != "intro" || r.TOC[1].ID != "details" || r.TOC[2].ID != "deep" {
		t.Errorf("toc order = %v", r.TOC)
	}
	if r.TOC[1].Level != 2 {
		t.Errorf("toc level = %d", r.TOC[1].Level)
	}
}

func TestRender_DuplicateHeadings(t *testing.T) {
	r := Render("## Section\n\n## Section")
	if !strings.Contains(r.HTML, `id="section"`) || !strings.Contains(r.HTML, `id="section-1"`) {
		t.Errorf("duplicate headings not deduplicated: %s", r.HTML)
	}
	if len(r.TOC) != 2 || r.TOC[0].ID != "section" || r.TOC[1].ID != "section-1" {
		t.Errorf("toc = %v", r.TOC)
	}
}

func TestRender_CodeBlockUnknownLanguage(t *testing.T) {
	r := Render("```nosuchlang\n<b>& raw</b>\n```")
	if !strings.Contains(r.HTML, "&lt;b&gt;&amp; raw&lt;/b&gt;") {
		t.Errorf("unknown language should escape content: %s", r.HTML)
	}
}

func TestRender_CodeBlockKnownLanguage(t *testing.T) {
	r := Render("```go\npackage main\n```")
	if !strings.Contains(r.HTML, `class="language-go"`) {
		t.Errorf("missing language class: %s", r.HTML)
	}
	if strings.Contains(r.HTML, "package main\n```") {
		t.Error("fence markers leaked into output")
	}
}

func TestRender_ListsAndQuote(t *testing.T) {
	r := Render("- one\n- two\n\n1. first\n2. second\n\n> quoted")
	for _, want := range []string{"<ul>", "<li>one</li>", "</ul>", "<ol>", "<li>first</li>", "<blockquote>", "quoted"} {
		if !strings.Contains(r.HTML, want) {
			t.Errorf("missing %q in %s", want, r.HTML)
		}
	}
}

func TestRender_InlineFormatting(t *testing.T) {
	r := Render("**bold** and *em* and `code` and [link](/x)")
	for _, want := range []string{"<strong>bold</strong>", "<em>em</em>", "<code>code</code>", `<a href="/x">link</a>`} {
		if !strings.Contains(r.HTML, want) {
			t.Errorf("missing %q in %s", want, r.HTML)
		}
	}
}

func TestRender_RelativeLinkKept(t *testing.T) {
	r := Render("[x](x) and [other](notes/other)")
	if !strings.Contains(r.HTML, `<a href="x">x</a>`) {
		t.Errorf("relative link dropped: %s", r.HTML)
	}
	if !strings.Contains(r.HTML, `<a href="notes/other">other</a>`) {
		t.Errorf("pathy relative link dropped: %s", r.HTML)
	}
}

func TestRender_UnsafeSchemeDropped(t *testing.T) {
	r := Render("[click](javascript:alert(1))")
	if strings.Contains(r.HTML, "javascript") {
		t.Errorf("javascript URL survived: %s", r.HTML)
	}
}

func TestRender_Table(t *testing.T) {
	r := Render("| a | b |\n|---|---|\n| 1 | 2 |")
	for _, want := range []string{"<table>", "<th>a</th>", "<tbody>", "<td>2</td>", "</table>"} {
		if !strings.Contains(r.HTML, want) {
			t.Errorf("missing %q in %s", want, r.HTML)
		}
	}
}

func TestRender_MalformedNeverPanics(t *testing.T) {
	inputs := []string{
		"```unterminated fence\ncode",
		"| lone table row",
		"[broken](",
		strings.Repeat("*", 50),
	}
	for _, in := range inputs {
		r := Render(in) // must not panic
		if r.HTML == "" && strings.TrimSpace(in) != "" {
			t.Errorf("empty output for %q", in)
		}
	}
}

func TestPlainText_Strips(t *testing.T) {
	in := "# Title\nsome **bold** text `code` ![img](u) [link](u)\n```go\nfence\n```"
	got := PlainText(in)
	for _, banned := range []string{"#", "*", "`", "![", "](", "fence"} {
		if strings.Contains(got, banned) {
			t.Errorf("PlainText kept %q: %q", banned, got)
		}
	}
	if !strings.Contains(got, "some bold text") {
		t.Errorf("PlainText = %q", got)
	}
}

func TestExcerpt_Truncation(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := Excerpt(long, 50)
	if len([]rune(got)) != 50 {
		t.Errorf("excerpt length = %d, want 50", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("excerpt should end with ellipsis: %q", got)
	}
	if Excerpt("short", 50) != "short" {
		t.Error("short text should be untouched")
	}
}
