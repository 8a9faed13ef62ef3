package siteindex

import (
	"os"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "sowilo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReplaceTenant_Swap(t *testing.T) {
	db := testDB(t)
	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }

	if err := db.ReplaceTenant("alice", []models.RenderedNote{
		{RelativePath: "a", URL: "/alice/a", Title: "A", Date: day(1)},
		{RelativePath: "b", URL: "/alice/b", Title: "B", Date: day(2)},
	}); err != nil {
		t.Fatalf("ReplaceTenant: %v", err)
	}
	if err := db.ReplaceTenant("alice", []models.RenderedNote{
		{RelativePath: "c", URL: "/alice/c", Title: "C", Date: day(3)},
	}); err != nil {
		t.Fatalf("ReplaceTenant: %v", err)
	}

	all, err := db.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 || all[0].RelativePath != "c" {
		t.Errorf("replace should swap the whole set, got %v", all)
	}
}

func TestAll_OrderedAcrossTenants(t *testing.T) {
	db := testDB(t)
	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }

	_ = db.ReplaceTenant("alice", []models.RenderedNote{
		{RelativePath: "old", URL: "/alice/old", Title: "Old", Date: day(1)},
		{RelativePath: "tie-b", URL: "/alice/tie-b", Title: "Beta", Date: day(5)},
	})
	_ = db.ReplaceTenant("bob", []models.RenderedNote{
		{RelativePath: "tie-a", URL: "/bob/tie-a", Title: "Alpha", Date: day(5)},
		{RelativePath: "new", URL: "/bob/new", Title: "New", Date: day(9)},
	})

	all, err := db.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	var got []string
	for _, n := range all {
		got = append(got, n.Title)
	}
	want := []string{"New", "Alpha", "Beta", "Old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestDeleteTenant(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceTenant("alice", []models.RenderedNote{{RelativePath: "a", Title: "A", Date: time.Now()}})
	_ = db.ReplaceTenant("bob", []models.RenderedNote{{RelativePath: "b", Title: "B", Date: time.Now()}})
	if err := db.DeleteTenant("alice"); err != nil {
		t.Fatalf("DeleteTenant: %v", err)
	}
	all, _ := db.All()
	if len(all) != 1 || all[0].Title != "B" {
		t.Errorf("remaining = %v", all)
	}
}
