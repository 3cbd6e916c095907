package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExclusions(t *testing.T) {
	tt := []struct {
		name     string
		raw      []string
		expected []string
	}{
		{
			name:     "trims and drops empties and collapses adjacent duplicates",
			raw:      []string{"postgres", "template0", "template0", " "},
			expected: []string{"postgres", "template0"},
		},
		{
			name:     "duplicates separated by another entry are preserved",
			raw:      []string{"template0", "postgres", "template0"},
			expected: []string{"template0", "postgres", "template0"},
		},
		{
			name:     "trimming happens before de-duplication",
			raw:      []string{" template0", "template0 "},
			expected: []string{"template0"},
		},
		{
			name:     "all empty",
			raw:      []string{"", "  ", "\t"},
			expected: []string{},
		},
		{
			name:     "nil input",
			raw:      nil,
			expected: []string{},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeExclusions(tc.raw)
			assert.Equal(t, tc.expected, got)

			// re-normalizing a normalized list returns the same list
			assert.Equal(t, got, NormalizeExclusions(got))
		})
	}
}

func TestSetExcludedDatabasesFirstWriteWins(t *testing.T) {
	// non-nil even before initialization: the slice is bound through
	// pq.Array, and a nil slice would render as SQL NULL
	assert.NotNil(t, ExcludedDatabases())
	assert.Empty(t, ExcludedDatabases())
	assert.False(t, IsDatabaseExcluded("postgres"))

	SetExcludedDatabases([]string{"postgres", "template0", "template0", " "})
	assert.Equal(t, []string{"postgres", "template0"}, ExcludedDatabases())
	assert.True(t, IsDatabaseExcluded("postgres"))
	assert.False(t, IsDatabaseExcluded("not_there"))

	// a second write attempt is a silent no-op, not an overwrite
	SetExcludedDatabases([]string{"other"})
	assert.Equal(t, []string{"postgres", "template0"}, ExcludedDatabases())
	assert.False(t, IsDatabaseExcluded("other"))
}
