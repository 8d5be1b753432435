package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoorkeeper_AdmitsOnSecondSighting(t *testing.T) {
	doorkeeper := NewDoorkeeper(NewLRU[string, int](10, nil /*evictionCallback*/), 100, 0.001)

	assert.False(t, doorkeeper.Add("a", 1, time.Minute))
	_, found := doorkeeper.Get("a")
	assert.False(t, found, "First sighting should not be admitted")

	doorkeeper.Add("a", 2, time.Minute)
	got, found := doorkeeper.Get("a")
	assert.True(t, found, "Second sighting should be admitted")
	assert.Equal(t, 2, got)

	// Cached keys are updated right away.
	doorkeeper.Add("a", 3, time.Minute)
	got, _ = doorkeeper.Get("a")
	assert.Equal(t, 3, got)
	assert.Equal(t, []string{"a"}, doorkeeper.Keys())
	assert.Equal(t, 1, doorkeeper.Len())
}

func TestDoorkeeper_ResetsFilter(t *testing.T) {
	doorkeeper := NewDoorkeeper(NewLRU[int, int](10, nil /*evictionCallback*/), 2, 0.001)
	doorkeeper.Add(1, 1, time.Minute)
	doorkeeper.Add(2, 2, time.Minute)
	doorkeeper.Add(3, 3, time.Minute) // Starts a new generation; sightings of 1 and 2 are forgotten.

	doorkeeper.Add(1, 1, time.Minute)
	_, found := doorkeeper.Get(1)
	assert.False(t, found, "Sightings from the previous generation should be forgotten")

	doorkeeper.Add(3, 3, time.Minute)
	_, found = doorkeeper.Get(3)
	assert.True(t, found, "The sighting that started the generation should be kept")
}

func TestDoorkeeper_RemoveAndPurge(t *testing.T) {
	doorkeeper := NewDoorkeeper(NewLRU[string, int](10, nil /*evictionCallback*/), 100, 0.001)
	for range 2 {
		doorkeeper.Add("a", 1, time.Minute)
		doorkeeper.Add("b", 2, time.Minute)
	}
	assert.True(t, doorkeeper.Remove("a"))
	assert.Equal(t, []string{"b"}, doorkeeper.Keys())

	doorkeeper.Purge()
	assert.Zero(t, doorkeeper.Len())
	doorkeeper.Add("b", 2, time.Minute)
	_, found := doorkeeper.Get("b")
	assert.False(t, found, "Purge should forget earlier sightings")
}

func TestDoorkeeper_InvalidArguments(t *testing.T) {
	assertInvariant(t, "doorkeeper", "zero_reset_after", func() {
		doorkeeper := NewDoorkeeper(NewLRU[int, int](1, nil /*evictionCallback*/), 0, 0.01)
		assert.Equal(t, uint(1), doorkeeper.resetAfter)
	})
	assertInvariant(t, "doorkeeper", "invalid_false_positive_rate", func() {
		NewDoorkeeper(NewLRU[int, int](1, nil /*evictionCallback*/), 10, 1.5)
	})
}
