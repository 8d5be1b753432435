package utils

import (
	"flag"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// SetTestFlags overrides the given flags for the duration of the test. Each flag is reverted to its previous value
// once the test is done.
func SetTestFlags(t *testing.T, values map[ /*flagName*/ string] /*flagValue*/ string) {
	t.Helper()
	for _, name := range slices.Sorted(maps.Keys(values)) {
		flagHolder := flag.Lookup(name)
		require.NotNil(t, flagHolder, "Flag %s not found", name)
		prevValue := flagHolder.Value.String()
		t.Cleanup(func() { require.NoError(t, flag.Set(name, prevValue)) })
		require.NoError(t, flag.Set(name, values[name]))
	}
}
