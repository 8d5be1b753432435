package cache

import (
	"testing"

	"github.com/nobletooth/dlist/pkg/utils"
	"github.com/stretchr/testify/assert"
)

// assertInvariant runs `fn` and checks it raised the given invariant exactly once.
func assertInvariant(t *testing.T, module, invariantType string, fn func()) {
	t.Helper()
	if utils.IsTestMode {
		assert.Panics(t, fn)
		return
	}
	before := utils.GetMetricValue(module, invariantType)
	fn()
	assert.Equal(t, before+1, utils.GetMetricValue(module, invariantType))
}
