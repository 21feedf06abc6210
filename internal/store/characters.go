package store

import (
	"context"
	"database/sql"
	"fmt"

	"bazaar-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetCharacter retrieves a character outside any transaction.
func (s *Store) GetCharacter(ctx context.Context, charID int64) (*models.Character, error) {
	var ch models.Character
	err := s.db.GetContext(ctx, &ch,
		"SELECT id, name, account_id, ingame FROM character_data WHERE id = ?", charID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// LockCharacterTx loads a character row under an exclusive lock. This is
// the serialization point for concurrent purchases by the same buyer.
func (s *Store) LockCharacterTx(ctx context.Context, tx *sqlx.Tx, charID int64) (*models.Character, error) {
	var ch models.Character
	err := tx.GetContext(ctx, &ch,
		"SELECT id, name, account_id, ingame FROM character_data WHERE id = ? FOR UPDATE", charID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// currencyTable returns where the four denominations live on this schema.
func (s *Store) currencyTable() string {
	if s.caps.HasCurrencyTable {
		return "character_currency"
	}
	return "character_data"
}

// GetMoneyTx reads a character's currency row under lock.
func (s *Store) GetMoneyTx(ctx context.Context, tx *sqlx.Tx, charID int64) (*models.Money, error) {
	var m models.Money
	query := fmt.Sprintf(
		"SELECT platinum, gold, silver, copper FROM %s WHERE id = ? FOR UPDATE", s.currencyTable())
	err := tx.GetContext(ctx, &m, query, charID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetMoneyTx rewrites a character's currency row.
func (s *Store) SetMoneyTx(ctx context.Context, tx *sqlx.Tx, charID int64, m *models.Money) error {
	query := fmt.Sprintf(
		"UPDATE %s SET platinum = ?, gold = ?, silver = ?, copper = ? WHERE id = ?", s.currencyTable())
	_, err := tx.ExecContext(ctx, query, m.Platinum, m.Gold, m.Silver, m.Copper, charID)
	return err
}

// GetAccount retrieves a game account, used for the GM status gate.
func (s *Store) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	var acc models.Account
	err := s.db.GetContext(ctx, &acc,
		"SELECT id, name, status FROM account WHERE id = ?", accountID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// IsLinkedAccountTx reports whether accountID is linked to the
// marketplace user owning primaryAccountID.
func (s *Store) IsLinkedAccountTx(ctx context.Context, tx *sqlx.Tx, primaryAccountID, accountID int64) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1
			FROM marketplace_linked_accounts mla
			JOIN marketplace_users mu ON mla.marketplace_user_id = mu.id
			WHERE mu.account_id = ? AND mla.account_id = ?
		)`, primaryAccountID, accountID)
	return exists, err
}

// OwnsCharacterTx reports whether the requesting account owns the
// character directly or through a linked account.
func (s *Store) OwnsCharacterTx(ctx context.Context, tx *sqlx.Tx, requestingAccountID int64, ch *models.Character) (bool, error) {
	if ch.AccountID == requestingAccountID {
		return true, nil
	}
	return s.IsLinkedAccountTx(ctx, tx, requestingAccountID, ch.AccountID)
}

// LinkedAccountIDs returns the primary account id plus every linked
// account id, for claim-all scope.
func (s *Store) LinkedAccountIDs(ctx context.Context, accountID int64) ([]int64, error) {
	ids := []int64{accountID}

	var linked []int64
	err := s.db.SelectContext(ctx, &linked, `
		SELECT mla.account_id
		FROM marketplace_linked_accounts mla
		JOIN marketplace_users mu ON mla.marketplace_user_id = mu.id
		WHERE mu.account_id = ?`, accountID)
	if err != nil {
		return nil, err
	}
	return append(ids, linked...), nil
}

// CharactersByAccounts returns every character on the given accounts.
func (s *Store) CharactersByAccounts(ctx context.Context, accountIDs []int64) ([]models.Character, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		"SELECT id, name, account_id, ingame FROM character_data WHERE account_id IN (?)", accountIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var chars []models.Character
	err = s.db.SelectContext(ctx, &chars, query, args...)
	return chars, err
}

// AltCurrencyTotalTx returns how many alternate-currency units a
// character holds, split by location: inventory stacks and the
// character_currency_alternate table (when that table exists).
func (s *Store) AltCurrencyTotalTx(ctx context.Context, tx *sqlx.Tx, charID, itemID int64) (inventory, alternate int64, err error) {
	err = tx.GetContext(ctx, &inventory, `
		SELECT COALESCE(SUM(charges), 0)
		FROM inventory
		WHERE character_id = ? AND item_id = ?`, charID, itemID)
	if err != nil {
		return 0, 0, err
	}

	if !s.caps.HasAltCurrencyTable {
		return inventory, 0, nil
	}

	err = tx.GetContext(ctx, &alternate, `
		SELECT COALESCE(SUM(amount), 0)
		FROM character_currency_alternate
		WHERE char_id = ? AND currency_id = ?`, charID, itemID)
	if err != nil {
		return 0, 0, err
	}
	return inventory, alternate, nil
}

// DeductAltCurrencyTx removes amount alternate-currency units from a
// character, draining the alternate-currency table first and then
// inventory stacks in slot order. Returns how much was actually taken
// from each location.
func (s *Store) DeductAltCurrencyTx(ctx context.Context, tx *sqlx.Tx, charID, itemID, amount int64) (fromInventory, fromAlternate int64, err error) {
	if amount <= 0 {
		return 0, 0, nil
	}

	remaining := amount

	if s.caps.HasAltCurrencyTable {
		var balance int64
		err = tx.GetContext(ctx, &balance, `
			SELECT COALESCE(SUM(amount), 0)
			FROM character_currency_alternate
			WHERE char_id = ? AND currency_id = ?
			FOR UPDATE`, charID, itemID)
		if err != nil {
			return 0, 0, err
		}

		take := remaining
		if balance < take {
			take = balance
		}
		if take > 0 {
			res, execErr := tx.ExecContext(ctx, `
				UPDATE character_currency_alternate
				SET amount = amount - ?
				WHERE char_id = ? AND currency_id = ? AND amount >= ?`,
				take, charID, itemID, take)
			if execErr != nil {
				return 0, 0, execErr
			}
			if n, _ := res.RowsAffected(); n > 0 {
				fromAlternate = take
				remaining -= take
			}
		}
	}

	if remaining > 0 {
		var stacks []models.InventoryItem
		err = tx.SelectContext(ctx, &stacks, `
			SELECT character_id, slot_id, item_id, charges
			FROM inventory
			WHERE character_id = ? AND item_id = ?
			ORDER BY slot_id ASC
			FOR UPDATE`, charID, itemID)
		if err != nil {
			return 0, 0, err
		}

		for _, stack := range stacks {
			if remaining <= 0 {
				break
			}
			charges := int64(stack.Charges)
			if charges <= remaining {
				_, err = tx.ExecContext(ctx,
					"DELETE FROM inventory WHERE character_id = ? AND slot_id = ?",
					charID, stack.SlotID)
				if err != nil {
					return 0, 0, err
				}
				fromInventory += charges
				remaining -= charges
			} else {
				_, err = tx.ExecContext(ctx,
					"UPDATE inventory SET charges = charges - ? WHERE character_id = ? AND slot_id = ?",
					remaining, charID, stack.SlotID)
				if err != nil {
					return 0, 0, err
				}
				fromInventory += remaining
				remaining = 0
			}
		}
	}

	if remaining > 0 {
		return fromInventory, fromAlternate, fmt.Errorf("short %d alternate currency units for character %d", remaining, charID)
	}
	return fromInventory, fromAlternate, nil
}
