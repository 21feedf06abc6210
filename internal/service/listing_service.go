package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bazaar-service/config"
	"bazaar-service/internal/broker"
	"bazaar-service/internal/models"
	"bazaar-service/internal/redisclient"
	"bazaar-service/internal/store"
	"bazaar-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ListingService handles the listing lifecycle: create, browse, cancel,
// and the admin moderation paths (restore, delete).
type ListingService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	cfg            config.MarketplaceConfig
	logger         *zap.Logger
}

// NewListingService creates a new listing service
func NewListingService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	cfg config.MarketplaceConfig,
) *ListingService {
	return &ListingService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		cfg:            cfg,
		logger:         util.GetLogger(),
	}
}

// CreateListingRequest represents a request to list an item for sale
type CreateListingRequest struct {
	AccountID    int64 `json:"account_id" binding:"required"`
	SellerCharID int64 `json:"seller_char_id" binding:"required"`
	SlotID       int64 `json:"slot_id"`
	ItemID       int64 `json:"item_id" binding:"required"`
	Quantity     int   `json:"quantity" binding:"required,min=1"`
	PriceCopper  int64 `json:"price_copper" binding:"required,min=1"`
}

// CreateListing removes the item stack from the seller's inventory and
// creates an active listing, as one transaction. The seller must be
// offline so the live game session cannot hold a stale copy of the
// inventory.
func (s *ListingService) CreateListing(ctx context.Context, req *CreateListingRequest) (*models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.CreateListing")
	defer span.End()

	item, err := s.store.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("looking up item %d: %w", req.ItemID, err)
	}
	if !item.Tradeable() {
		return nil, fmt.Errorf("%s is NO TRADE: %w", item.Name, models.ErrInvalidOperation)
	}
	if !item.Permanent() {
		return nil, fmt.Errorf("%s is NO RENT: %w", item.Name, models.ErrInvalidOperation)
	}

	listing := &models.Listing{
		SellerCharID: req.SellerCharID,
		ItemID:       req.ItemID,
		Quantity:     req.Quantity,
		PriceCopper:  req.PriceCopper,
	}

	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		seller, err := s.store.LockCharacterTx(ctx, tx, req.SellerCharID)
		if err != nil {
			return err
		}

		owns, err := s.store.OwnsCharacterTx(ctx, tx, req.AccountID, seller)
		if err != nil {
			return err
		}
		if !owns {
			return models.ErrForbidden
		}

		if seller.Online() {
			return fmt.Errorf("%s must be logged out to list items: %w", seller.Name, models.ErrInvalidOperation)
		}

		inv, err := s.store.GetInventoryItemTx(ctx, tx, req.SellerCharID, req.SlotID, req.ItemID)
		if err != nil {
			return fmt.Errorf("item not found in inventory slot %d: %w", req.SlotID, err)
		}
		if inv.Charges < req.Quantity {
			return fmt.Errorf("only %d of %d available in slot %d: %w",
				inv.Charges, req.Quantity, req.SlotID, models.ErrInvalidOperation)
		}

		// The listing's charges column carries the listed portion, not
		// the source stack: a partial split must not deliver the whole
		// stack later.
		listing.Charges = req.Quantity
		listing.Augment1 = inv.Augment1
		listing.Augment2 = inv.Augment2
		listing.Augment3 = inv.Augment3
		listing.Augment4 = inv.Augment4
		listing.Augment5 = inv.Augment5
		listing.Augment6 = inv.Augment6
		listing.SellerName = seller.Name
		listing.ItemName = item.Name

		if err := s.store.RemoveFromInventoryTx(ctx, tx, req.SellerCharID, req.SlotID, req.ItemID, req.Quantity, inv.Charges); err != nil {
			return err
		}

		return s.store.CreateListingTx(ctx, tx, listing)
	})
	if err != nil {
		return nil, err
	}

	util.ListingsCreatedTotal.Inc()
	s.logger.Info("Listing created",
		zap.Int64("listing_id", listing.ID),
		zap.Int64("seller_char_id", listing.SellerCharID),
		zap.Int64("item_id", listing.ItemID),
		zap.Int64("price_copper", listing.PriceCopper))

	s.invalidateBrowseCache(ctx)
	s.publishListingCreated(ctx, listing)

	return listing, nil
}

// ReserveForPurchaseTx locks a listing and transitions it to sold for
// the buyer. Returns the pre-transition snapshot so settlement can read
// price and augments. Runs inside the caller's transaction; the listing
// row is the serialization point that makes concurrent purchases of the
// same listing resolve to exactly one winner.
func (s *ListingService) ReserveForPurchaseTx(ctx context.Context, tx *sqlx.Tx, listingID, buyerCharID int64) (*models.Listing, error) {
	listing, err := s.store.LockListingTx(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.Status != models.ListingStatusActive {
		return nil, models.ErrAlreadySold
	}
	if listing.SellerCharID == buyerCharID {
		return nil, fmt.Errorf("cannot buy your own listing: %w", models.ErrInvalidOperation)
	}

	if err := s.store.MarkListingSoldTx(ctx, tx, listingID, buyerCharID); err != nil {
		return nil, err
	}
	return listing, nil
}

// Cancel withdraws an active listing and returns the item to the seller
// by parcel. Admins may cancel any listing; sellers only their own.
func (s *ListingService) Cancel(ctx context.Context, listingID, accountID int64, isAdmin bool) error {
	ctx, span := util.StartSpan(ctx, "ListingService.Cancel")
	defer span.End()

	var cancelled *models.Listing
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		listing, err := s.store.LockListingTx(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if listing.Status != models.ListingStatusActive {
			return models.ErrAlreadySold
		}

		if !isAdmin {
			seller, err := s.store.LockCharacterTx(ctx, tx, listing.SellerCharID)
			if err != nil {
				return err
			}
			owns, err := s.store.OwnsCharacterTx(ctx, tx, accountID, seller)
			if err != nil {
				return err
			}
			if !owns {
				return models.ErrForbidden
			}
		}

		if err := s.store.MarkListingCancelledTx(ctx, tx, listingID); err != nil {
			return err
		}

		cancelled = listing
		return s.store.DeliverParcelTx(ctx, tx, &store.Parcel{
			CharID:   listing.SellerCharID,
			FromName: "Bazaar",
			Note:     fmt.Sprintf("Returned listing #%d: %s", listing.ID, listing.ItemName),
			ItemID:   listing.ItemID,
			Quantity: parcelQuantity(listing),
			Augments: listing.Augments(),
		})
	})
	if err != nil {
		return err
	}

	util.ListingsCancelledTotal.Inc()
	s.logger.Info("Listing cancelled",
		zap.Int64("listing_id", listingID),
		zap.Bool("admin", isAdmin))

	s.invalidateBrowseCache(ctx)
	s.publishListingCancelled(ctx, cancelled, "cancelled_by_owner")

	return nil
}

// RestoreResult reports what an admin restore did.
type RestoreResult struct {
	ListingID            int64 `json:"listing_id"`
	TransactionCancelled bool  `json:"transaction_cancelled"`
	RequiresManualRefund bool  `json:"requires_manual_refund"`
}

// Restore reverts a sold listing to active. The attached transaction is
// cancelled but currency already taken from the buyer is NOT returned
// automatically; the result flags when a manual refund is owed.
func (s *ListingService) Restore(ctx context.Context, listingID int64) (*RestoreResult, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Restore")
	defer span.End()

	result := &RestoreResult{ListingID: listingID}
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		listing, err := s.store.LockListingTx(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if listing.Status != models.ListingStatusSold {
			return fmt.Errorf("listing %d is %s, not sold: %w", listingID, listing.Status, models.ErrInvalidState)
		}

		txn, err := s.store.GetTransactionByListingTx(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if txn != nil && txn.PaymentStatus != models.PaymentStatusCancelled {
			if err := s.store.CancelTransactionTx(ctx, tx, txn.ID); err != nil {
				return err
			}
			result.TransactionCancelled = true
			// Paid means currency left the buyer; pending means the
			// broker NPC never collected, so nothing is owed.
			result.RequiresManualRefund = txn.PaymentStatus == models.PaymentStatusPaid
		}

		return s.store.RestoreListingTx(ctx, tx, listingID)
	})
	if err != nil {
		return nil, err
	}

	util.ListingsRestoredTotal.Inc()
	s.logger.Warn("Listing restored by admin",
		zap.Int64("listing_id", listingID),
		zap.Bool("requires_manual_refund", result.RequiresManualRefund))

	s.invalidateBrowseCache(ctx)
	s.publishListingRestored(ctx, result)

	return result, nil
}

// Delete removes a listing row entirely. An active listing's item goes
// back to the seller by parcel first; sold and cancelled listings are
// removed as-is.
func (s *ListingService) Delete(ctx context.Context, listingID int64) error {
	ctx, span := util.StartSpan(ctx, "ListingService.Delete")
	defer span.End()

	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		listing, err := s.store.LockListingTx(ctx, tx, listingID)
		if err != nil {
			return err
		}

		if listing.Status == models.ListingStatusActive {
			err := s.store.DeliverParcelTx(ctx, tx, &store.Parcel{
				CharID:   listing.SellerCharID,
				FromName: "Bazaar",
				Note:     fmt.Sprintf("Listing removed by staff: %s", listing.ItemName),
				ItemID:   listing.ItemID,
				Quantity: parcelQuantity(listing),
				Augments: listing.Augments(),
			})
			if err != nil {
				return err
			}
		}

		return s.store.DeleteListingTx(ctx, tx, listingID)
	})
	if err != nil {
		return err
	}

	s.logger.Warn("Listing deleted by admin", zap.Int64("listing_id", listingID))
	s.invalidateBrowseCache(ctx)
	return nil
}

// Get retrieves a single listing.
func (s *ListingService) Get(ctx context.Context, listingID int64) (*models.Listing, error) {
	return s.store.GetListing(ctx, listingID)
}

// Browse returns a page of active listings, served from the redis cache
// when fresh. Cache failures fall through to the database.
func (s *ListingService) Browse(ctx context.Context, search string, limit, offset int) ([]models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Browse")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	cacheKey := fmt.Sprintf("search=%s&limit=%d&offset=%d", search, limit, offset)
	if cached, err := s.redis.GetBrowsePage(ctx, cacheKey); err == nil && cached != "" {
		var listings []models.Listing
		if err := json.Unmarshal([]byte(cached), &listings); err == nil {
			return listings, nil
		}
	}

	listings, err := s.store.GetActiveListings(ctx, search, limit, offset)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(listings); err == nil {
		ttl := time.Duration(s.cfg.BrowseCacheTTLSeconds) * time.Second
		if err := s.redis.SetBrowsePage(ctx, cacheKey, string(payload), ttl); err != nil {
			s.logger.Warn("Failed to cache browse page", zap.Error(err))
		}
	}

	return listings, nil
}

// MyListings returns every listing across the account's characters,
// linked accounts included.
func (s *ListingService) MyListings(ctx context.Context, accountID int64) ([]models.Listing, error) {
	charIDs, err := s.accountCharacterIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.store.GetListingsByCharacters(ctx, charIDs)
}

// AllListings returns every listing for the admin panel.
func (s *ListingService) AllListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.GetAllListings(ctx, limit, offset)
}

// Stats returns listing counts by status for the admin panel.
func (s *ListingService) Stats(ctx context.Context) (map[string]int64, error) {
	return s.store.CountListingsByStatus(ctx)
}

func (s *ListingService) accountCharacterIDs(ctx context.Context, accountID int64) ([]int64, error) {
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
	return charIDs, nil
}

func (s *ListingService) invalidateBrowseCache(ctx context.Context) {
	if err := s.redis.InvalidateBrowseCache(ctx); err != nil {
		s.logger.Warn("Failed to invalidate browse cache", zap.Error(err))
	}
}

func (s *ListingService) publishListingCreated(ctx context.Context, l *models.Listing) {
	event := &models.ListingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeListingCreated,
			Timestamp: time.Now(),
		},
		ListingID:    l.ID,
		SellerCharID: l.SellerCharID,
		ItemID:       l.ItemID,
		Quantity:     l.Quantity,
		PriceCopper:  l.PriceCopper,
	}
	if err := s.eventPublisher.PublishListingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ListingCreated event", zap.Error(err))
	}
}

func (s *ListingService) publishListingCancelled(ctx context.Context, l *models.Listing, reason string) {
	event := &models.ListingCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeListingCancelled,
			Timestamp: time.Now(),
		},
		ListingID:    l.ID,
		SellerCharID: l.SellerCharID,
		Reason:       reason,
	}
	if err := s.eventPublisher.PublishListingCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish ListingCancelled event", zap.Error(err))
	}
}

func (s *ListingService) publishListingRestored(ctx context.Context, r *RestoreResult) {
	event := &models.ListingRestoredEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeListingRestored,
			Timestamp: time.Now(),
		},
		ListingID:            r.ListingID,
		RequiresManualRefund: r.RequiresManualRefund,
	}
	if err := s.eventPublisher.PublishListingRestored(ctx, event); err != nil {
		s.logger.Error("Failed to publish ListingRestored event", zap.Error(err))
	}
}

// parcelQuantity is the stack size to deliver for a listing: exactly
// the listed quantity. Charges is only consulted for legacy rows that
// never recorded a quantity.
func parcelQuantity(l *models.Listing) int64 {
	if l.Quantity > 0 {
		return int64(l.Quantity)
	}
	if l.Charges > 0 {
		return int64(l.Charges)
	}
	return 1
}
