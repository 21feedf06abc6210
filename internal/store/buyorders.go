package store

import (
	"context"
	"database/sql"

	"bazaar-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateBuyOrder inserts an open want-to-buy posting.
func (s *Store) CreateBuyOrder(ctx context.Context, o *models.BuyOrder) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO marketplace_wtb
		(char_id, item_id, quantity_wanted, price_per_unit_copper, status, created_date)
		VALUES (?, ?, ?, ?, ?, NOW())`,
		o.CharID, o.ItemID, o.QuantityWanted, o.PricePerUnitCopper, models.BuyOrderStatusOpen)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	o.Status = models.BuyOrderStatusOpen
	return err
}

// GetBuyOrder retrieves a buy order by id.
func (s *Store) GetBuyOrder(ctx context.Context, orderID int64) (*models.BuyOrder, error) {
	var o models.BuyOrder
	err := s.db.GetContext(ctx, &o, `
		SELECT id, char_id, item_id, quantity_wanted, price_per_unit_copper, status, created_date
		FROM marketplace_wtb WHERE id = ?`, orderID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOpenBuyOrders lists open buy orders, newest first.
func (s *Store) GetOpenBuyOrders(ctx context.Context, limit, offset int) ([]models.BuyOrder, error) {
	var orders []models.BuyOrder
	err := s.db.SelectContext(ctx, &orders, `
		SELECT id, char_id, item_id, quantity_wanted, price_per_unit_copper, status, created_date
		FROM marketplace_wtb
		WHERE status = ?
		ORDER BY created_date DESC LIMIT ? OFFSET ?`,
		models.BuyOrderStatusOpen, limit, offset)
	return orders, err
}

// GetBuyOrdersByCharacters lists buy orders for the given characters.
func (s *Store) GetBuyOrdersByCharacters(ctx context.Context, charIDs []int64) ([]models.BuyOrder, error) {
	if len(charIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, char_id, item_id, quantity_wanted, price_per_unit_copper, status, created_date
		FROM marketplace_wtb
		WHERE char_id IN (?)
		ORDER BY created_date DESC`, charIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var orders []models.BuyOrder
	err = s.db.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

// CancelBuyOrder marks an open buy order cancelled.
func (s *Store) CancelBuyOrder(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE marketplace_wtb SET status = ? WHERE id = ? AND status = ?",
		models.BuyOrderStatusCancelled, orderID, models.BuyOrderStatusOpen)
	return err
}

// DeleteBuyOrder removes a buy order row. Admin moderation only.
func (s *Store) DeleteBuyOrder(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM marketplace_wtb WHERE id = ?", orderID)
	return err
}
