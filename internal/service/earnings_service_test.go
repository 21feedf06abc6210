package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedCharIDs(t *testing.T) {
	// Character rows are locked in this order; it must be stable and
	// ascending regardless of map iteration order.
	totals := map[int64]int64{42: 100, 7: 200, 300: 50, 1: 75}

	for i := 0; i < 10; i++ {
		assert.Equal(t, []int64{1, 7, 42, 300}, sortedCharIDs(totals))
	}

	assert.Empty(t, sortedCharIDs(map[int64]int64{}))
}

func TestClaimConcurrentOverlappingAccounts(t *testing.T) {
	t.Skip("Integration test - requires game database")

	// Two claims over linked accounts sharing characters must both
	// finish; opposite lock orders would deadlock one of them.
}
