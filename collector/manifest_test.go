package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestOrderIsDeterministic(t *testing.T) {
	expected := []string{
		"default",
		"activity",
		"vacuum",
		"locks",
		"database",
		"stat",
		"replication",
		"index",
		"statements",
	}
	assert.Equal(t, expected, Names())
	assert.Equal(t, expected, Names())
}

func TestFactoriesCoverEveryManifestEntry(t *testing.T) {
	factories, err := Factories()
	require.NoError(t, err)
	require.Len(t, factories, len(Names()))

	for _, name := range Names() {
		factory, ok := factories[name]
		require.True(t, ok, "missing factory for %s", name)

		c := factory()
		require.NotNil(t, c)
		assert.Equal(t, name, c.Name())
	}
}

func TestFactoriesReturnFreshInstances(t *testing.T) {
	factories, err := Factories()
	require.NoError(t, err)

	first := factories["default"]()
	second := factories["default"]()
	assert.NotSame(t, first, second)
}

func TestDefaultEnablement(t *testing.T) {
	factories, err := Factories()
	require.NoError(t, err)

	defaultOn := map[string]bool{
		"default":  true,
		"activity": true,
	}
	for _, name := range Names() {
		assert.Equal(t, defaultOn[name], factories[name]().EnabledByDefault(), "collector %s", name)
	}
}
