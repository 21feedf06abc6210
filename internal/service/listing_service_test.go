package service

import (
	"testing"

	"bazaar-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParcelQuantity(t *testing.T) {
	// A partial listing from a larger stack delivers the listed
	// quantity, never the source stack's charge count.
	assert.Equal(t, int64(5), parcelQuantity(&models.Listing{Quantity: 5, Charges: 20}))

	// Plain items deliver quantity.
	assert.Equal(t, int64(4), parcelQuantity(&models.Listing{Quantity: 4}))

	// Legacy rows without a quantity fall back to charges.
	assert.Equal(t, int64(20), parcelQuantity(&models.Listing{Charges: 20}))

	// Degenerate rows still deliver one unit.
	assert.Equal(t, int64(1), parcelQuantity(&models.Listing{}))
}

func TestCreateListingStoresListedQuantity(t *testing.T) {
	t.Skip("Integration test - requires game database")

	// Listing 5 from a 20-charge stack must record 5 on the listing and
	// leave 15 in inventory; the later delivery parcels 5.
}

func TestCreateListingRejectsUntradeable(t *testing.T) {
	t.Skip("Integration test - requires game database")
}
