package store

import (
	"context"
	"database/sql"

	"bazaar-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const listingColumns = `
	ml.id, ml.seller_char_id, ml.item_id, ml.quantity, ml.charges, ml.price_copper,
	ml.augment_1, ml.augment_2, ml.augment_3, ml.augment_4, ml.augment_5, ml.augment_6,
	ml.status, ml.buyer_char_id, ml.listed_date, ml.purchased_date,
	cd.name AS seller_name, i.name AS item_name`

const listingJoins = `
	FROM marketplace_listings ml
	JOIN character_data cd ON ml.seller_char_id = cd.id
	JOIN items i ON ml.item_id = i.id`

// LockListingTx loads a listing (any status) under an exclusive row
// lock. A concurrent purchaser blocks here until the first transaction
// resolves, then observes the post-commit status.
func (s *Store) LockListingTx(ctx context.Context, tx *sqlx.Tx, listingID int64) (*models.Listing, error) {
	var l models.Listing
	err := tx.GetContext(ctx, &l,
		"SELECT"+listingColumns+listingJoins+" WHERE ml.id = ? FOR UPDATE", listingID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// MarkListingSoldTx transitions a listing to sold, reserved for buyer.
func (s *Store) MarkListingSoldTx(ctx context.Context, tx *sqlx.Tx, listingID, buyerCharID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE marketplace_listings
		SET status = ?, buyer_char_id = ?, purchased_date = NOW()
		WHERE id = ?`, models.ListingStatusSold, buyerCharID, listingID)
	return err
}

// MarkListingCancelledTx transitions a listing to cancelled.
func (s *Store) MarkListingCancelledTx(ctx context.Context, tx *sqlx.Tx, listingID int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE marketplace_listings SET status = ? WHERE id = ?",
		models.ListingStatusCancelled, listingID)
	return err
}

// RestoreListingTx reverts a sold listing to active, clearing the buyer.
func (s *Store) RestoreListingTx(ctx context.Context, tx *sqlx.Tx, listingID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE marketplace_listings
		SET status = ?, buyer_char_id = NULL, purchased_date = NULL
		WHERE id = ?`, models.ListingStatusActive, listingID)
	return err
}

// DeleteListingTx removes a listing row. Admin moderation only; normal
// lifecycle never deletes.
func (s *Store) DeleteListingTx(ctx context.Context, tx *sqlx.Tx, listingID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM marketplace_listings WHERE id = ?", listingID)
	return err
}

// CreateListingTx inserts a new active listing and fills in its id.
func (s *Store) CreateListingTx(ctx context.Context, tx *sqlx.Tx, l *models.Listing) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO marketplace_listings
		(seller_char_id, item_id, quantity, charges, price_copper,
		 augment_1, augment_2, augment_3, augment_4, augment_5, augment_6,
		 status, listed_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())`,
		l.SellerCharID, l.ItemID, l.Quantity, l.Charges, l.PriceCopper,
		l.Augment1, l.Augment2, l.Augment3, l.Augment4, l.Augment5, l.Augment6,
		models.ListingStatusActive)
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	l.Status = models.ListingStatusActive
	return err
}

// GetListing retrieves a listing by id.
func (s *Store) GetListing(ctx context.Context, listingID int64) (*models.Listing, error) {
	var l models.Listing
	err := s.db.GetContext(ctx, &l,
		"SELECT"+listingColumns+listingJoins+" WHERE ml.id = ?", listingID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetActiveListings returns a browse page of active listings, newest
// first, optionally filtered by item name.
func (s *Store) GetActiveListings(ctx context.Context, search string, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	if search != "" {
		err := s.db.SelectContext(ctx, &listings,
			"SELECT"+listingColumns+listingJoins+`
			WHERE ml.status = ? AND i.name LIKE ?
			ORDER BY ml.listed_date DESC
			LIMIT ? OFFSET ?`,
			models.ListingStatusActive, "%"+search+"%", limit, offset)
		return listings, err
	}
	err := s.db.SelectContext(ctx, &listings,
		"SELECT"+listingColumns+listingJoins+`
		WHERE ml.status = ?
		ORDER BY ml.listed_date DESC
		LIMIT ? OFFSET ?`,
		models.ListingStatusActive, limit, offset)
	return listings, err
}

// GetListingsByCharacters returns all listings for the given seller
// characters, any status, newest first.
func (s *Store) GetListingsByCharacters(ctx context.Context, charIDs []int64) ([]models.Listing, error) {
	if len(charIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		"SELECT"+listingColumns+listingJoins+" WHERE ml.seller_char_id IN (?) ORDER BY ml.listed_date DESC", charIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var listings []models.Listing
	err = s.db.SelectContext(ctx, &listings, query, args...)
	return listings, err
}

// GetAllListings returns every listing for the admin panel.
func (s *Store) GetAllListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.SelectContext(ctx, &listings,
		"SELECT"+listingColumns+listingJoins+" ORDER BY ml.listed_date DESC LIMIT ? OFFSET ?",
		limit, offset)
	return listings, err
}

// CountListingsByStatus returns listing counts keyed by status, for
// admin stats.
func (s *Store) CountListingsByStatus(ctx context.Context) (map[string]int64, error) {
	rows := []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}{}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS count FROM marketplace_listings GROUP BY status")
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
