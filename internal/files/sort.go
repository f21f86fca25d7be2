package files

import (
	"sort"
	"strings"

	"filesrus/internal/store"
)

// Listing sort orders.
const (
	SortNameAsc  = "A-Z"
	SortNameDesc = "Z-A"
	SortNewest   = "Newest"
	SortOldest   = "Oldest"
	SortSize     = "Size"
)

// SortRecords returns a sorted copy of records. Sorting is stable: records
// that compare equal keep their original relative order. An unknown order
// leaves the input order untouched.
func SortRecords(records []*store.FileRecord, order string) []*store.FileRecord {
	sorted := make([]*store.FileRecord, len(records))
	copy(sorted, records)

	switch order {
	case SortNameAsc:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sortName(sorted[i]) < sortName(sorted[j])
		})
	case SortNameDesc:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sortName(sorted[j]) < sortName(sorted[i])
		})
	case SortNewest:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].UploadedAt > sorted[j].UploadedAt
		})
	case SortOldest:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].UploadedAt < sorted[j].UploadedAt
		})
	case SortSize:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].SizeBytes > sorted[j].SizeBytes
		})
	}
	return sorted
}

func sortName(rec *store.FileRecord) string {
	name := rec.OriginalName
	if name == "" {
		name = rec.Title
	}
	return strings.ToLower(name)
}
