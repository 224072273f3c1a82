// Package leader derives the authoritative participant of a room from a
// membership snapshot. Nothing here is cached: callers recompute on every
// membership change.
package leader

import (
	"sort"
	"time"
)

type Record struct {
	ID        string
	UpdatedAt time.Time
	// Index is the position of the record in the source snapshot.
	Index int
}

// Dedup keeps the most recently updated record per id, the later entry on a
// tie. The result is sorted by id.
func Dedup(records []Record) []Record {
	latest := make(map[string]Record, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if cur, ok := latest[r.ID]; ok && cur.UpdatedAt.After(r.UpdatedAt) {
			continue
		}
		latest[r.ID] = r
	}

	out := make([]Record, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out
}

// Elect returns the lexicographically smallest id of the snapshot.
func Elect(records []Record) (string, bool) {
	var (
		host  string
		found bool
	)
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if !found || r.ID < host {
			host, found = r.ID, true
		}
	}
	return host, found
}

func IsHost(records []Record, id string) bool {
	host, ok := Elect(records)
	return ok && host == id
}
