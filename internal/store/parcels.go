package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Parcel delivery is the deferred path for handing a character items or
// currency without touching a live game session. The insert shape
// depends on which optional columns this schema carries; the shape is
// picked once from the detected Capabilities rather than probed per
// call.

// Parcel is one deferred delivery.
type Parcel struct {
	CharID   int64
	FromName string
	Note     string
	ItemID   int64
	Quantity int64
	Augments [6]int64
}

// DeliverParcelTx inserts a parcel for the character using the widest
// insert shape the schema supports.
func (s *Store) DeliverParcelTx(ctx context.Context, tx *sqlx.Tx, p *Parcel) error {
	switch {
	case s.caps.HasParcelAugments && s.caps.HasParcelSlotID:
		slot, err := s.nextParcelSlotTx(ctx, tx, p.CharID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO character_parcels
			(char_id, slot_id, from_name, note, sent_date, item_id, quantity,
			 augslot1, augslot2, augslot3, augslot4, augslot5, augslot6)
			VALUES (?, ?, ?, ?, NOW(), ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.CharID, slot, p.FromName, p.Note, p.ItemID, p.Quantity,
			p.Augments[0], p.Augments[1], p.Augments[2], p.Augments[3], p.Augments[4], p.Augments[5])
		return err

	case s.caps.HasParcelAugments:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO character_parcels
			(char_id, from_name, note, sent_date, item_id, quantity,
			 augslot1, augslot2, augslot3, augslot4, augslot5, augslot6)
			VALUES (?, ?, ?, NOW(), ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.CharID, p.FromName, p.Note, p.ItemID, p.Quantity,
			p.Augments[0], p.Augments[1], p.Augments[2], p.Augments[3], p.Augments[4], p.Augments[5])
		return err

	case s.caps.HasParcelSlotID:
		slot, err := s.nextParcelSlotTx(ctx, tx, p.CharID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO character_parcels
			(char_id, slot_id, from_name, item_id, quantity, note, sent_date)
			VALUES (?, ?, ?, ?, ?, ?, NOW())`,
			p.CharID, slot, p.FromName, p.ItemID, p.Quantity, p.Note)
		return err

	default:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO character_parcels
			(char_id, from_name, item_id, quantity, note, sent_date)
			VALUES (?, ?, ?, ?, ?, NOW())`,
			p.CharID, p.FromName, p.ItemID, p.Quantity, p.Note)
		return err
	}
}

func (s *Store) nextParcelSlotTx(ctx context.Context, tx *sqlx.Tx, charID int64) (int64, error) {
	var slot int64
	err := tx.GetContext(ctx, &slot,
		"SELECT COALESCE(MAX(slot_id), -1) + 1 FROM character_parcels WHERE char_id = ?", charID)
	return slot, err
}
