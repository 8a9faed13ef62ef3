package frontmatter

import (
	"reflect"
	"testing"
)

func TestParse_BlockAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - notes\n---\n# Hello\nBody text.\n")
	fm, body := Parse(input)
	if StringField(fm, "title") != "Hello" {
		t.Errorf("title = %q, want Hello", StringField(fm, "title"))
	}
	if tags := ListField(fm, "tags"); !reflect.DeepEqual(tags, []string{"go", "notes"}) {
		t.Errorf("tags = %v", tags)
	}
	if body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", body)
	}
}

func TestParse_NoBlock(t *testing.T) {
	fm, body := Parse([]byte("# Just a heading\nSome text.\n"))
	if fm != nil {
		t.Errorf("expected nil front matter, got %v", fm)
	}
	if body != "# Just a heading\nSome text.\n" {
		t.Errorf("body = %q", body)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	fm, body := Parse(input)
	if fm != nil {
		t.Error("expected nil front matter on invalid YAML")
	}
	if body != string(input) {
		t.Errorf("invalid YAML should fall back to whole input as body, got %q", body)
	}
}

func TestSplit_UnclosedDelimiter(t *testing.T) {
	input := []byte("---\ntitle: dangling\nno closing")
	fmText, body := Split(input)
	if fmText != "" || body != string(input) {
		t.Errorf("unclosed block should be all body, got fm=%q body=%q", fmText, body)
	}
}

func TestDeriveTitle(t *testing.T) {
	if got := DeriveTitle(map[string]any{"title": "FM"}, "# H1\n", "fb"); got != "FM" {
		t.Errorf("title = %q, want FM", got)
	}
	if got := DeriveTitle(nil, "text\n# My Heading\nmore", "fb"); got != "My Heading" {
		t.Errorf("title = %q, want My Heading", got)
	}
	if got := DeriveTitle(nil, "no headings", "fb"); got != "fb" {
		t.Errorf("title = %q, want fallback", got)
	}
}

func TestMapping_OrderPreservingRoundTrip(t *testing.T) {
	m, err := ParseMapping("title: Hello\ndate: 2024-01-02\ntags:\n  - a\n  - b")
	if err != nil {
		t.Fatalf("ParseMapping: %v", err)
	}
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"title", "date", "tags"}) {
		t.Fatalf("keys = %v", got)
	}
	m.Set("title", "Updated")
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"title", "date", "tags"}) {
		t.Errorf("Set changed key order: %v", got)
	}
	out, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "title: Updated\ndate: 2024-01-02\ntags:\n  - a\n  - b"
	if out != want {
		t.Errorf("Encode = %q, want %q", out, want)
	}
}

func TestMapping_SetAppendsNewKeys(t *testing.T) {
	m, _ := ParseMapping("title: x")
	m.Set("publishedAt", "2024-06-01T00:00:00Z")
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"title", "publishedAt"}) {
		t.Errorf("keys = %v", got)
	}
	v, ok := m.Get("publishedAt")
	if !ok || v != "2024-06-01T00:00:00Z" {
		t.Errorf("Get publishedAt = %q, %v", v, ok)
	}
}

func TestMapping_ListFields(t *testing.T) {
	m, _ := ParseMapping("")
	m.SetList("tags", []string{"go", "notes"})
	if got := m.GetList("tags"); !reflect.DeepEqual(got, []string{"go", "notes"}) {
		t.Errorf("GetList = %v", got)
	}
	m.SetList("tags", nil)
	if got := m.GetList("tags"); got != nil {
		t.Errorf("empty SetList should remove the field, got %v", got)
	}
}

func TestMapping_Remove(t *testing.T) {
	m, _ := ParseMapping("a: 1\nb: 2\nc: 3")
	m.Remove("b")
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("keys after remove = %v", got)
	}
	m.Remove("missing") // no-op
}

func TestJoin(t *testing.T) {
	got := Join("title: x", "body\n")
	if got != "---\ntitle: x\n---\nbody\n" {
		t.Errorf("Join = %q", got)
	}
	if Join("", "body") != "body" {
		t.Error("empty front matter should return body unchanged")
	}
}
