package status

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/models"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	ledger, err := Load(filepath.Join(t.TempDir(), "status.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ledger) != 0 {
		t.Errorf("ledger = %v, want empty", ledger)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	in := models.Ledger{
		"a/b": {Hash: "h1", URL: "/a/b", UpdatedAt: 42},
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out["a/b"] != in["a/b"] {
		t.Errorf("round trip = %v", out)
	}
}

func TestLoad_CorruptLedgerResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := Save(path, models.Ledger{"x": {Hash: "h"}}); err != nil {
		t.Fatal(err)
	}
	// Overwrite with junk via Save's own directory.
	if err := writeFile(path, "{not json"); err != nil {
		t.Fatal(err)
	}
	ledger, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ledger) != 0 {
		t.Errorf("corrupt ledger should load empty, got %v", ledger)
	}
}

func TestMerge_FreshRecordsForRendered(t *testing.T) {
	now := time.UnixMilli(1000)
	prev := models.Ledger{"x": {Hash: "old", URL: "/x", UpdatedAt: 1}}
	next := Merge(prev, []models.RenderedNote{{RelativePath: "x", Hash: "new", URL: "/x"}}, nil, now)
	rec := next["x"]
	if rec.Hash != "new" || rec.UpdatedAt != 1000 {
		t.Errorf("record = %+v", rec)
	}
}

func TestMerge_CarryForward(t *testing.T) {
	prev := models.Ledger{"b": {Hash: "hb", URL: "/b", UpdatedAt: 7}}
	next := Merge(prev, []models.RenderedNote{{RelativePath: "a", Hash: "ha", URL: "/a"}}, nil, time.Now())
	if next["b"] != prev["b"] {
		t.Errorf("b must carry forward unchanged, got %+v", next["b"])
	}
	if _, ok := next["a"]; !ok {
		t.Error("a missing from merged ledger")
	}
}

func TestMerge_RemovalPrecedence(t *testing.T) {
	prev := models.Ledger{"x": {Hash: "h", URL: "/x"}}
	next := Merge(prev, []models.RenderedNote{{RelativePath: "x", Hash: "h2", URL: "/x"}}, []string{"x"}, time.Now())
	if _, ok := next["x"]; ok {
		t.Error("removal must win over a rendered entry for the same path")
	}
}

func TestMerge_RemovedDropped(t *testing.T) {
	prev := models.Ledger{
		"gone": {Hash: "h1", URL: "/gone"},
		"kept": {Hash: "h2", URL: "/kept"},
	}
	next := Merge(prev, nil, []string{"gone"}, time.Now())
	if _, ok := next["gone"]; ok {
		t.Error("removed path survived the merge")
	}
	if _, ok := next["kept"]; !ok {
		t.Error("unrelated path dropped")
	}
}

func TestClassify(t *testing.T) {
	rec := func(h string) *models.StatusRecord { return &models.StatusRecord{Hash: h} }
	cases := []struct {
		name   string
		hash   string
		local  *models.StatusRecord
		remote *models.StatusRecord
		want   models.Status
	}{
		{"local match", "h", rec("h"), nil, models.StatusPublished},
		{"remote match without local", "h", nil, rec("h"), models.StatusPublished},
		{"local stale", "h", rec("old"), nil, models.StatusPending},
		{"remote stale", "h", nil, rec("old"), models.StatusPending},
		{"local stale remote match", "h", rec("old"), rec("h"), models.StatusPending},
		{"nothing known", "h", nil, nil, models.StatusUnpublished},
	}
	for _, c := range cases {
		if got := Classify(c.hash, c.local, c.remote); got != c.want {
			t.Errorf("%s: Classify = %v, want %v", c.name, got, c.want)
		}
	}
}
