package files

import (
	"testing"

	"filesrus/internal/store"
)

func TestListing_ReplaceAndSnapshot(t *testing.T) {
	l := NewListing()
	records := []*store.FileRecord{
		{ID: "a", SizeBytes: 10},
		{ID: "b", SizeBytes: 20},
	}
	l.ReplaceAll(records)

	if l.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", l.Len())
	}
	if l.TotalBytes() != 30 {
		t.Errorf("expected 30 total bytes, got %d", l.TotalBytes())
	}

	// Mutating a snapshot must not affect the cache
	snapshot := l.Files()
	snapshot[0] = nil
	if l.Files()[0] == nil {
		t.Error("snapshot mutation leaked into the cache")
	}

	// Mutating the input slice after ReplaceAll must not affect the cache
	records[1] = nil
	if l.Files()[1] == nil {
		t.Error("input slice mutation leaked into the cache")
	}
}

func TestListing_Remove(t *testing.T) {
	l := NewListing()
	l.ReplaceAll([]*store.FileRecord{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	})

	if !l.Remove("b") {
		t.Fatal("expected Remove to report success")
	}
	got := l.Files()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("expected [a c], got %v", got)
	}

	if l.Remove("nonexistent") {
		t.Error("expected Remove of unknown id to report false")
	}
	if l.Len() != 2 {
		t.Errorf("remove of unknown id mutated the listing: %d records", l.Len())
	}
}
