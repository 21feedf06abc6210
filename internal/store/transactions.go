package store

import (
	"context"
	"database/sql"

	"bazaar-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateTransactionTx inserts a settlement record and fills in its id.
// Paid transactions get a payment_date immediately; pending ones are
// stamped when the broker NPC payment completes.
func (s *Store) CreateTransactionTx(ctx context.Context, tx *sqlx.Tx, t *models.Transaction) error {
	var (
		res sql.Result
		err error
	)
	if t.PaymentStatus == models.PaymentStatusPaid {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO marketplace_transactions
			(listing_id, seller_char_id, buyer_char_id, item_id, quantity, price_copper,
			 transaction_date, payment_status, reserved_date, payment_date)
			VALUES (?, ?, ?, ?, ?, ?, NOW(), ?, NOW(), NOW())`,
			t.ListingID, t.SellerCharID, t.BuyerCharID, t.ItemID, t.Quantity, t.PriceCopper,
			t.PaymentStatus)
	} else {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO marketplace_transactions
			(listing_id, seller_char_id, buyer_char_id, item_id, quantity, price_copper,
			 transaction_date, payment_status, reserved_date)
			VALUES (?, ?, ?, ?, ?, ?, NOW(), ?, NOW())`,
			t.ListingID, t.SellerCharID, t.BuyerCharID, t.ItemID, t.Quantity, t.PriceCopper,
			t.PaymentStatus)
	}
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

// PendingTotalTx sums the buyer's unpaid reservations. Pending
// obligations reduce available balance even though no currency has
// moved yet.
func (s *Store) PendingTotalTx(ctx context.Context, tx *sqlx.Tx, buyerCharID int64) (int64, error) {
	var total int64
	err := tx.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(price_copper), 0)
		FROM marketplace_transactions
		WHERE buyer_char_id = ? AND payment_status = ?`,
		buyerCharID, models.PaymentStatusPending)
	return total, err
}

// PendingSettlement is a pending transaction joined with the listing
// detail needed to deliver the item.
type PendingSettlement struct {
	models.Transaction
	ListingQuantity int    `db:"listing_quantity"`
	Augment1        int64  `db:"augment_1"`
	Augment2        int64  `db:"augment_2"`
	Augment3        int64  `db:"augment_3"`
	Augment4        int64  `db:"augment_4"`
	Augment5        int64  `db:"augment_5"`
	Augment6        int64  `db:"augment_6"`
	SellerName      string `db:"seller_name"`
}

func (p *PendingSettlement) Augments() [6]int64 {
	return [6]int64{p.Augment1, p.Augment2, p.Augment3, p.Augment4, p.Augment5, p.Augment6}
}

// LockPendingSettlementTx loads a pending transaction for the given
// buyer under lock. No row means the transaction is missing, belongs to
// someone else, or was already paid — the caller treats all three as
// NotFound, which makes double invocation harmless.
func (s *Store) LockPendingSettlementTx(ctx context.Context, tx *sqlx.Tx, transactionID, buyerCharID int64) (*PendingSettlement, error) {
	var p PendingSettlement
	err := tx.GetContext(ctx, &p, `
		SELECT mt.id, mt.listing_id, mt.seller_char_id, mt.buyer_char_id, mt.item_id,
		       mt.quantity, mt.price_copper, mt.payment_status, mt.reserved_date, mt.payment_date,
		       ml.quantity AS listing_quantity,
		       ml.augment_1, ml.augment_2, ml.augment_3, ml.augment_4, ml.augment_5, ml.augment_6,
		       cd.name AS seller_name
		FROM marketplace_transactions mt
		JOIN marketplace_listings ml ON mt.listing_id = ml.id
		JOIN character_data cd ON mt.seller_char_id = cd.id
		WHERE mt.id = ? AND mt.buyer_char_id = ? AND mt.payment_status = ?
		FOR UPDATE`,
		transactionID, buyerCharID, models.PaymentStatusPending)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkTransactionPaidTx flips a transaction to paid with a payment date.
func (s *Store) MarkTransactionPaidTx(ctx context.Context, tx *sqlx.Tx, transactionID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE marketplace_transactions
		SET payment_status = ?, payment_date = NOW()
		WHERE id = ?`, models.PaymentStatusPaid, transactionID)
	return err
}

// GetTransactionByListingTx fetches the settlement record attached to a
// listing, if any.
func (s *Store) GetTransactionByListingTx(ctx context.Context, tx *sqlx.Tx, listingID int64) (*models.Transaction, error) {
	var t models.Transaction
	err := tx.GetContext(ctx, &t, `
		SELECT id, listing_id, seller_char_id, buyer_char_id, item_id, quantity,
		       price_copper, payment_status, reserved_date, payment_date
		FROM marketplace_transactions
		WHERE listing_id = ?
		ORDER BY reserved_date DESC LIMIT 1`, listingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CancelTransactionTx marks a settlement record cancelled, keeping it
// as the audit trail.
func (s *Store) CancelTransactionTx(ctx context.Context, tx *sqlx.Tx, transactionID int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE marketplace_transactions SET payment_status = ? WHERE id = ?",
		models.PaymentStatusCancelled, transactionID)
	return err
}

// GetPendingByCharacters lists unpaid reservations for the given
// buyers, for the broker NPC pending-payments view.
func (s *Store) GetPendingByCharacters(ctx context.Context, charIDs []int64) ([]models.Transaction, error) {
	if len(charIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, listing_id, seller_char_id, buyer_char_id, item_id, quantity,
		       price_copper, payment_status, reserved_date, payment_date
		FROM marketplace_transactions
		WHERE buyer_char_id IN (?) AND payment_status = ?
		ORDER BY reserved_date DESC`, charIDs, models.PaymentStatusPending)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var txs []models.Transaction
	err = s.db.SelectContext(ctx, &txs, query, args...)
	return txs, err
}

// GetPurchaseHistory lists settled purchases made by the given buyers.
func (s *Store) GetPurchaseHistory(ctx context.Context, charIDs []int64, limit int) ([]models.Transaction, error) {
	if len(charIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, listing_id, seller_char_id, buyer_char_id, item_id, quantity,
		       price_copper, payment_status, reserved_date, payment_date
		FROM marketplace_transactions
		WHERE buyer_char_id IN (?)
		ORDER BY reserved_date DESC LIMIT ?`, charIDs, limit)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var txs []models.Transaction
	err = s.db.SelectContext(ctx, &txs, query, args...)
	return txs, err
}
