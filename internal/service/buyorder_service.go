package service

import (
	"context"
	"fmt"

	"bazaar-service/internal/models"
	"bazaar-service/internal/store"
	"bazaar-service/internal/util"

	"go.uber.org/zap"
)

// BuyOrderService manages want-to-buy postings. These are a bulletin
// board only: no reservation, no settlement, sellers contact buyers
// in-game.
type BuyOrderService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewBuyOrderService creates a new buy order service
func NewBuyOrderService(store *store.Store) *BuyOrderService {
	return &BuyOrderService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreateBuyOrderRequest represents a request to post a buy order
type CreateBuyOrderRequest struct {
	AccountID          int64 `json:"account_id" binding:"required"`
	CharID             int64 `json:"char_id" binding:"required"`
	ItemID             int64 `json:"item_id" binding:"required"`
	QuantityWanted     int   `json:"quantity_wanted" binding:"required,min=1,max=1000"`
	PricePerUnitCopper int64 `json:"price_per_unit_copper" binding:"required,min=1"`
}

// Create posts a new buy order after verifying the character belongs to
// the account and the item exists.
func (s *BuyOrderService) Create(ctx context.Context, req *CreateBuyOrderRequest) (*models.BuyOrder, error) {
	ctx, span := util.StartSpan(ctx, "BuyOrderService.Create")
	defer span.End()

	ch, err := s.store.GetCharacter(ctx, req.CharID)
	if err != nil {
		return nil, fmt.Errorf("looking up character %d: %w", req.CharID, err)
	}
	if ch.AccountID != req.AccountID {
		accountIDs, err := s.store.LinkedAccountIDs(ctx, req.AccountID)
		if err != nil {
			return nil, err
		}
		linked := false
		for _, id := range accountIDs {
			if id == ch.AccountID {
				linked = true
				break
			}
		}
		if !linked {
			return nil, models.ErrForbidden
		}
	}

	if _, err := s.store.GetItem(ctx, req.ItemID); err != nil {
		return nil, fmt.Errorf("looking up item %d: %w", req.ItemID, err)
	}

	order := &models.BuyOrder{
		CharID:             req.CharID,
		ItemID:             req.ItemID,
		QuantityWanted:     req.QuantityWanted,
		PricePerUnitCopper: req.PricePerUnitCopper,
	}
	if err := s.store.CreateBuyOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Buy order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("char_id", order.CharID),
		zap.Int64("item_id", order.ItemID))
	return order, nil
}

// List returns open buy orders, newest first.
func (s *BuyOrderService) List(ctx context.Context, limit, offset int) ([]models.BuyOrder, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.GetOpenBuyOrders(ctx, limit, offset)
}

// MyOrders returns the account's buy orders across linked accounts.
func (s *BuyOrderService) MyOrders(ctx context.Context, accountID int64) ([]models.BuyOrder, error) {
	accountIDs, err := s.store.LinkedAccountIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	chars, err := s.store.CharactersByAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	charIDs := make([]int64, len(chars))
	for i, ch := range chars {
		charIDs[i] = ch.ID
	}
	return s.store.GetBuyOrdersByCharacters(ctx, charIDs)
}

// Cancel withdraws an open buy order owned by the account.
func (s *BuyOrderService) Cancel(ctx context.Context, orderID, accountID int64) error {
	ctx, span := util.StartSpan(ctx, "BuyOrderService.Cancel")
	defer span.End()

	order, err := s.store.GetBuyOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != models.BuyOrderStatusOpen {
		return fmt.Errorf("buy order %d is %s: %w", orderID, order.Status, models.ErrInvalidState)
	}

	ch, err := s.store.GetCharacter(ctx, order.CharID)
	if err != nil {
		return err
	}
	accountIDs, err := s.store.LinkedAccountIDs(ctx, accountID)
	if err != nil {
		return err
	}
	owns := false
	for _, id := range accountIDs {
		if id == ch.AccountID {
			owns = true
			break
		}
	}
	if !owns {
		return models.ErrForbidden
	}

	return s.store.CancelBuyOrder(ctx, orderID)
}

// Delete removes a buy order row. Admin moderation only.
func (s *BuyOrderService) Delete(ctx context.Context, orderID int64) error {
	if _, err := s.store.GetBuyOrder(ctx, orderID); err != nil {
		return err
	}
	s.logger.Warn("Buy order deleted by admin", zap.Int64("order_id", orderID))
	return s.store.DeleteBuyOrder(ctx, orderID)
}
