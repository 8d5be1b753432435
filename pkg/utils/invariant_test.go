package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRaiseInvariant(t *testing.T) {
	if IsTestMode {
		t.Skip("Invariants panic in test mode.")
	}
	invariantsMetric.Reset() // Reset the metric to ensure a clean state for the test.
	RaiseInvariant("invariant", "test", "This is a test invariant violation.")
	RaiseInvariant("invariant", "test", "This is another test invariant violation.", "attempt", 2)
	assert.Equal(t, 2, GetMetricValue("invariant" /*module*/, "test" /*invariantType*/))
	assert.Equal(t, 0, GetMetricValue("invariant" /*module*/, "other" /*invariantType*/))
}

func TestRaiseInvariant_PanicsInTestMode(t *testing.T) {
	prevTestMode := IsTestMode
	IsTestMode = true
	t.Cleanup(func() { IsTestMode = prevTestMode })

	assert.PanicsWithValue(t, "invariant violated: test_mode", func() {
		RaiseInvariant("invariant", "test_mode", "This invariant should panic.")
	})
}
