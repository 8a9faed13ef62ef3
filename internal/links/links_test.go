package links

import (
	"strings"
	"testing"
)

func TestRewrite_ExactMatch(t *testing.T) {
	slugs := NewSlugMap([]string{"x.md", "y.md"})
	out, found := Rewrite("see [[x]]", "y.md", slugs)
	if out != "see [x](x)" {
		t.Errorf("out = %q", out)
	}
	if len(found) != 1 || found[0] != "x" {
		t.Errorf("resolved = %v", found)
	}
}

func TestRewrite_Alias(t *testing.T) {
	slugs := NewSlugMap([]string{"notes/target.md"})
	out, _ := Rewrite("[[notes/target|read this]]", "a.md", slugs)
	if out != "[read this](notes/target)" {
		t.Errorf("out = %q", out)
	}
}

func TestRewrite_WhitespaceNormalization(t *testing.T) {
	slugs := NewSlugMap([]string{"my-note.md"})
	out, _ := Rewrite("[[my note]]", "a.md", slugs)
	if out != "[my note](my-note)" {
		t.Errorf("out = %q", out)
	}
}

func TestRewrite_UnknownTargetRelativeFallback(t *testing.T) {
	slugs := NewSlugMap([]string{"a/current.md"})
	out, _ := Rewrite("[[missing]]", "a/current.md", slugs)
	if out != "[missing](a/missing)" {
		t.Errorf("bare unknown target should resolve relative to current dir, got %q", out)
	}
	// A pathy unknown target is kept as-is.
	out, _ = Rewrite("[[other/dir/page]]", "a/current.md", slugs)
	if out != "[other/dir/page](other/dir/page)" {
		t.Errorf("out = %q", out)
	}
}

func TestRewrite_StripsExtension(t *testing.T) {
	slugs := NewSlugMap([]string{"x.md"})
	out, _ := Rewrite("[[x.md]]", "y.md", slugs)
	if out != "[x.md](x)" {
		t.Errorf("out = %q", out)
	}
}

func TestRewrite_EmptyTargetUntouched(t *testing.T) {
	slugs := NewSlugMap(nil)
	out, found := Rewrite("keep [[ ]] and [[|alias]]", "y.md", slugs)
	if out != "keep [[ ]] and [[|alias]]" {
		t.Errorf("out = %q", out)
	}
	if len(found) != 0 {
		t.Errorf("resolved = %v", found)
	}
}

// Two batch paths normalizing to the same slug: the first inserted wins.
// The batch order itself is undefined to callers; this pins the mechanism,
// not an ordering guarantee.
func TestSlugMap_NormalizedCollisionFirstWins(t *testing.T) {
	slugs := NewSlugMap([]string{"a b.md", "a-b.md"})
	got, found := slugs.Resolve("a b")
	if !found || got != "a b" {
		t.Errorf("exact match should win: %q %v", got, found)
	}
	// Both "a b" and "a-b" normalize to "a-b"; "a b" was inserted first.
	got, found = slugs.Resolve("a  b")
	if !found || got != "a b" {
		t.Errorf("normalized lookup should return first inserted slug, got %q", got)
	}

	reversed := NewSlugMap([]string{"a-b.md", "a b.md"})
	got, _ = reversed.Resolve("a  b")
	if got != "a-b" {
		t.Errorf("reversed insertion should flip the winner, got %q", got)
	}
}

func TestRewrite_Callouts(t *testing.T) {
	in := ":::tip\nuse shortcuts\nsecond line\n:::"
	out, _ := Rewrite(in, "a.md", NewSlugMap(nil))
	want := "> **TIP**\n> use shortcuts\n> second line"
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestRewrite_CalloutTypes(t *testing.T) {
	for _, typ := range []string{"tip", "info", "warning", "danger"} {
		out, _ := Rewrite(":::"+typ+"\nbody\n:::", "a.md", NewSlugMap(nil))
		if !strings.Contains(out, "> **"+strings.ToUpper(typ)+"**") {
			t.Errorf("callout %q not labelled: %q", typ, out)
		}
	}
}
