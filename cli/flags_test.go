package cli

import (
	"testing"

	"pg_exporter/collector"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollectorFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("pg_exporter", pflag.ContinueOnError)
	require.NoError(t, AddCollectorFlags(flags))
	return flags
}

func TestEveryCollectorHasBothFlags(t *testing.T) {
	flags := newCollectorFlags(t)

	for _, name := range collector.Names() {
		assert.NotNil(t, flags.Lookup("collector."+name), "missing enable flag for %s", name)
		assert.NotNil(t, flags.Lookup("no-collector."+name), "missing disable flag for %s", name)
	}
}

func TestEnableFlagDefaultsMatchCollectorDefaults(t *testing.T) {
	flags := newCollectorFlags(t)
	require.NoError(t, flags.Parse(nil))

	factories, err := collector.Factories()
	require.NoError(t, err)

	for _, name := range collector.Names() {
		v, err := flags.GetBool("collector." + name)
		require.NoError(t, err)
		assert.Equal(t, factories[name]().EnabledByDefault(), v, "collector %s", name)
	}
}

func TestEnabledCollectorsResolution(t *testing.T) {
	tt := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "no flags enables the defaults",
			args:     nil,
			expected: []string{"default", "activity"},
		},
		{
			name:     "enable flag adds a default-disabled collector",
			args:     []string{"--collector.vacuum"},
			expected: []string{"default", "activity", "vacuum"},
		},
		{
			name:     "disable flag excludes regardless of default",
			args:     []string{"--no-collector.default"},
			expected: []string{"activity"},
		},
		{
			name:     "disable wins over enable for the same collector",
			args:     []string{"--no-collector.default", "--collector.default"},
			expected: []string{"activity"},
		},
		{
			name:     "enable flag set to false counts as explicit disable",
			args:     []string{"--collector.activity=false"},
			expected: []string{"default"},
		},
		{
			name:     "combined scenario",
			args:     []string{"--collector.vacuum", "--no-collector.activity", "--collector.activity"},
			expected: []string{"default", "vacuum"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			flags := newCollectorFlags(t)
			require.NoError(t, flags.Parse(tc.args))
			assert.Equal(t, tc.expected, EnabledCollectors(flags))
		})
	}
}
