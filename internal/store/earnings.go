package store

import (
	"context"
	"fmt"

	"bazaar-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateEarningTx appends an unclaimed earning for a seller. The ledger
// is append-only; rows are only ever flipped to claimed.
func (s *Store) CreateEarningTx(ctx context.Context, tx *sqlx.Tx, e *models.SellerEarning) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO marketplace_seller_earnings
		(seller_char_id, amount_copper, source_listing_id, notes, claimed, earned_date)
		VALUES (?, ?, ?, ?, FALSE, NOW())`,
		e.SellerCharID, e.AmountCopper, e.SourceListingID, e.Notes)
	if err != nil {
		if isMissingTable(err) {
			return fmt.Errorf("recording earning: %w", models.ErrLedgerNotInitialized)
		}
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// LockUnclaimedEarningsTx loads and locks every unclaimed earning for
// the given characters. A missing ledger table is reported as
// ErrLedgerNotInitialized so callers can flag a setup problem.
func (s *Store) LockUnclaimedEarningsTx(ctx context.Context, tx *sqlx.Tx, charIDs []int64) ([]models.SellerEarning, error) {
	if len(charIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, seller_char_id, amount_copper, source_listing_id, notes,
		       claimed, earned_date, claimed_date
		FROM marketplace_seller_earnings
		WHERE seller_char_id IN (?) AND claimed = FALSE
		FOR UPDATE`, charIDs)
	if err != nil {
		return nil, err
	}
	query = tx.Rebind(query)

	var earnings []models.SellerEarning
	err = tx.SelectContext(ctx, &earnings, query, args...)
	if err != nil {
		if isMissingTable(err) {
			return nil, fmt.Errorf("reading earnings ledger: %w", models.ErrLedgerNotInitialized)
		}
		return nil, err
	}
	return earnings, nil
}

// MarkEarningsClaimedTx flips the given ledger rows to claimed.
func (s *Store) MarkEarningsClaimedTx(ctx context.Context, tx *sqlx.Tx, earningIDs []int64) error {
	if len(earningIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`
		UPDATE marketplace_seller_earnings
		SET claimed = TRUE, claimed_date = NOW()
		WHERE id IN (?)`, earningIDs)
	if err != nil {
		return err
	}
	query = tx.Rebind(query)
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// EarningsSummary is per-character unclaimed totals for display.
type EarningsSummary struct {
	SellerCharID int64  `db:"seller_char_id"`
	SellerName   string `db:"seller_name"`
	TotalCopper  int64  `db:"total_copper"`
	Count        int64  `db:"count"`
}

// GetUnclaimedSummary returns unclaimed earning totals per character.
func (s *Store) GetUnclaimedSummary(ctx context.Context, charIDs []int64) ([]EarningsSummary, error) {
	if len(charIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT e.seller_char_id, cd.name AS seller_name,
		       COALESCE(SUM(e.amount_copper), 0) AS total_copper, COUNT(*) AS count
		FROM marketplace_seller_earnings e
		JOIN character_data cd ON e.seller_char_id = cd.id
		WHERE e.seller_char_id IN (?) AND e.claimed = FALSE
		GROUP BY e.seller_char_id, cd.name`, charIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var summaries []EarningsSummary
	err = s.db.SelectContext(ctx, &summaries, query, args...)
	if err != nil {
		if isMissingTable(err) {
			return nil, fmt.Errorf("reading earnings ledger: %w", models.ErrLedgerNotInitialized)
		}
		return nil, err
	}
	return summaries, nil
}
