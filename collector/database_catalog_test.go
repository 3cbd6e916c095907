package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDatabaseCatalogCollector(t *testing.T) {
	tt := []struct {
		name          string
		excluded      []string
		expectedQuery string
	}{
		{
			name:     "no exclusions",
			excluded: nil,
			expectedQuery: `SELECT datname, datconnlimit, pg_database_size(datname) AS size_bytes
FROM pg_database
WHERE NOT datistemplate`,
		},
		{
			name:     "single exclusion",
			excluded: []string{"postgres"},
			expectedQuery: `SELECT datname, datconnlimit, pg_database_size(datname) AS size_bytes
FROM pg_database
WHERE NOT datistemplate AND datname NOT IN ('postgres')`,
		},
		{
			name:     "multiple exclusions",
			excluded: []string{"postgres", "template1"},
			expectedQuery: `SELECT datname, datconnlimit, pg_database_size(datname) AS size_bytes
FROM pg_database
WHERE NOT datistemplate AND datname NOT IN ('postgres', 'template1')`,
		},
		{
			name:     "quotes are escaped",
			excluded: []string{"o'brien"},
			expectedQuery: `SELECT datname, datconnlimit, pg_database_size(datname) AS size_bytes
FROM pg_database
WHERE NOT datistemplate AND datname NOT IN ('o''brien')`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c := NewDatabaseCatalogCollector(tc.excluded)
			assert.Equal(t, tc.expectedQuery, c.Query)
		})
	}
}
