package store

import (
	"context"
	"database/sql"
	"fmt"

	"bazaar-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetItem retrieves a static item definition.
func (s *Store) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item,
		"SELECT id, name, icon, nodrop, norent FROM items WHERE id = ?", itemID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetInventoryItemTx loads the item stack at a specific inventory slot
// under lock, for listing creation.
func (s *Store) GetInventoryItemTx(ctx context.Context, tx *sqlx.Tx, charID, slotID, itemID int64) (*models.InventoryItem, error) {
	var inv models.InventoryItem
	err := tx.GetContext(ctx, &inv, `
		SELECT character_id, slot_id, item_id, charges,
		       augslot1, augslot2, augslot3, augslot4, augslot5, augslot6
		FROM inventory
		WHERE character_id = ? AND slot_id = ? AND item_id = ?
		FOR UPDATE`, charID, slotID, itemID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// RemoveFromInventoryTx deletes a full stack or decrements charges. The
// WHERE clauses re-verify the stack so a concurrently moved item cannot
// be duplicated; zero affected rows is reported as an error.
func (s *Store) RemoveFromInventoryTx(ctx context.Context, tx *sqlx.Tx, charID, slotID, itemID int64, quantity, charges int) error {
	var (
		res sql.Result
		err error
	)
	if charges == quantity {
		res, err = tx.ExecContext(ctx,
			"DELETE FROM inventory WHERE character_id = ? AND slot_id = ? AND item_id = ?",
			charID, slotID, itemID)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE inventory SET charges = charges - ?
			WHERE character_id = ? AND slot_id = ? AND item_id = ? AND charges >= ?`,
			quantity, charID, slotID, itemID, quantity)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("inventory slot %d changed under us: %w", slotID, models.ErrInvalidState)
	}
	return nil
}
