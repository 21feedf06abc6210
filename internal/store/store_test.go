package store

import (
	"context"
	"testing"

	"bazaar-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDSN = "eqemu:secret@tcp(localhost:3306)/peq_test?parseTime=true&charset=utf8mb4"

func TestCapabilityDetection(t *testing.T) {
	t.Skip("Integration test - requires game database")

	store, err := NewStore(testDSN)
	require.NoError(t, err)
	defer store.Close()

	caps := store.Capabilities()
	assert.True(t, caps.HasCurrencyTable)
	assert.True(t, caps.HasParcelSlotID)
}

func TestListingLifecycle(t *testing.T) {
	t.Skip("Integration test - requires game database")

	store, err := NewStore(testDSN)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	listing := &models.Listing{
		SellerCharID: 100,
		ItemID:       1001,
		Quantity:     1,
		Charges:      1,
		PriceCopper:  5_000_000,
	}

	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.CreateListingTx(ctx, tx, listing)
	})
	require.NoError(t, err)
	assert.NotZero(t, listing.ID)
	assert.Equal(t, models.ListingStatusActive, listing.Status)

	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := store.LockListingTx(ctx, tx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ListingStatusActive, locked.Status)

		return store.MarkListingSoldTx(ctx, tx, listing.ID, 200)
	})
	require.NoError(t, err)

	sold, err := store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusSold, sold.Status)
	assert.Equal(t, int64(200), sold.BuyerCharID.Int64)
}

func TestEarningsLedger(t *testing.T) {
	t.Skip("Integration test - requires game database")

	store, err := NewStore(testDSN)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	earning := &models.SellerEarning{
		SellerCharID:    100,
		AmountCopper:    5_000_000,
		SourceListingID: 1,
		Notes:           "test sale",
	}

	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.CreateEarningTx(ctx, tx, earning)
	})
	require.NoError(t, err)
	assert.NotZero(t, earning.ID)

	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		earnings, err := store.LockUnclaimedEarningsTx(ctx, tx, []int64{100})
		require.NoError(t, err)
		require.NotEmpty(t, earnings)

		ids := make([]int64, len(earnings))
		for i, e := range earnings {
			ids[i] = e.ID
		}
		return store.MarkEarningsClaimedTx(ctx, tx, ids)
	})
	require.NoError(t, err)

	summary, err := store.GetUnclaimedSummary(ctx, []int64{100})
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestPendingTotal(t *testing.T) {
	t.Skip("Integration test - requires game database")

	store, err := NewStore(testDSN)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		txn := &models.Transaction{
			ListingID:     1,
			SellerCharID:  100,
			BuyerCharID:   200,
			ItemID:        1001,
			Quantity:      1,
			PriceCopper:   3_000_000,
			PaymentStatus: models.PaymentStatusPending,
		}
		if err := store.CreateTransactionTx(ctx, tx, txn); err != nil {
			return err
		}

		total, err := store.PendingTotalTx(ctx, tx, 200)
		require.NoError(t, err)
		assert.Equal(t, int64(3_000_000), total)
		return nil
	})
	require.NoError(t, err)
}
