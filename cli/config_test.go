package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cmd := NewRootCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, ":9432", cfg.ListenAddress)
	assert.Equal(t, "postgresql://postgres@localhost:5432/postgres", cfg.DSN)
	assert.Empty(t, cfg.ExcludeDatabases)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ScrapeTimeout)
}

func TestLoadConfigFlagsWinOverEnv(t *testing.T) {
	t.Setenv("PG_EXPORTER_DSN", "postgresql://env@localhost:5432/env")

	cmd := NewRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--dsn", "postgresql://flag@localhost:5432/flag"}))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "postgresql://flag@localhost:5432/flag", cfg.DSN)
}

func TestLoadConfigReadsEnv(t *testing.T) {
	t.Setenv("PG_EXPORTER_DSN", "postgresql://env@localhost:5432/env")

	cmd := NewRootCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "postgresql://env@localhost:5432/env", cfg.DSN)
}

func TestLoadConfigExcludeDatabases(t *testing.T) {
	tt := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "comma-joined",
			args:     []string{"--exclude-databases", "template0,template1"},
			expected: []string{"template0", "template1"},
		},
		{
			name:     "repeated",
			args:     []string{"--exclude-databases", "template0", "--exclude-databases", "postgres"},
			expected: []string{"template0", "postgres"},
		},
		{
			name:     "repeated and comma-joined combined",
			args:     []string{"--exclude-databases", "template0,template1", "--exclude-databases", "postgres"},
			expected: []string{"template0", "template1", "postgres"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			cmd := NewRootCommand()
			require.NoError(t, cmd.ParseFlags(tc.args))

			cfg, err := LoadConfig(cmd)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, cfg.ExcludeDatabases)
		})
	}
}

func TestSplitCommaEntries(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitCommaEntries([]string{"a,b", "c"}))
	assert.Equal(t, []string{"a", "", "b"}, splitCommaEntries([]string{"a,,b"}))
	assert.Empty(t, splitCommaEntries(nil))
}
