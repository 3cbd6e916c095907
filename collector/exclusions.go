package collector

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Process-wide list of database names collectors may filter by. The list is
// written at most once, before any collector begins collecting; the first
// write wins and every later attempt is silently discarded. After the write,
// readers access the snapshot without locking.
var (
	excludedOnce sync.Once
	excludedDBs  atomic.Pointer[[]string]
)

// NormalizeExclusions trims each entry, drops entries that become empty and
// collapses consecutive duplicates. Duplicates separated by other entries are
// kept; only adjacent runs are de-duplicated. The result is stable under
// re-normalization.
func NormalizeExclusions(raw []string) []string {
	cleaned := make([]string, 0, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if n := len(cleaned); n > 0 && cleaned[n-1] == entry {
			continue
		}
		cleaned = append(cleaned, entry)
	}
	return cleaned
}

// SetExcludedDatabases initializes the exclusion set from raw CLI values.
// Only the first call has any effect.
func SetExcludedDatabases(raw []string) {
	excludedOnce.Do(func() {
		cleaned := NormalizeExclusions(raw)
		excludedDBs.Store(&cleaned)
	})
}

// ExcludedDatabases returns the current snapshot, empty before
// initialization. The result is never nil: a nil slice bound through
// pq.Array renders as SQL NULL, and `NOT (datname = ANY(NULL))` would filter
// out every row instead of none.
func ExcludedDatabases() []string {
	if list := excludedDBs.Load(); list != nil {
		return *list
	}
	return []string{}
}

// IsDatabaseExcluded reports whether collectors should skip the database.
func IsDatabaseExcluded(datname string) bool {
	for _, excluded := range ExcludedDatabases() {
		if excluded == datname {
			return true
		}
	}
	return false
}
