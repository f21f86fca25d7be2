package files

import (
	"sync"

	"filesrus/internal/store"
)

// Listing is the in-memory cache of file records owned by one service
// instance. It has a single writer and hands out snapshot slices only, so no
// shared reference to its backing storage escapes.
type Listing struct {
	mu      sync.RWMutex
	records []*store.FileRecord
}

func NewListing() *Listing {
	return &Listing{}
}

// ReplaceAll swaps the cached records for a fresh listing.
func (l *Listing) ReplaceAll(records []*store.FileRecord) {
	copied := make([]*store.FileRecord, len(records))
	copy(copied, records)

	l.mu.Lock()
	l.records = copied
	l.mu.Unlock()
}

// Remove drops exactly the record with the given id. Returns whether a
// record was removed.
func (l *Listing) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, rec := range l.records {
		if rec.ID == id {
			l.records = append(l.records[:i:i], l.records[i+1:]...)
			return true
		}
	}
	return false
}

// Files returns a snapshot of the cached records.
func (l *Listing) Files() []*store.FileRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]*store.FileRecord, len(l.records))
	copy(snapshot, l.records)
	return snapshot
}

// Len returns the number of cached records.
func (l *Listing) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// TotalBytes sums the size of all cached records.
func (l *Listing) TotalBytes() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, rec := range l.records {
		total += rec.SizeBytes
	}
	return total
}
