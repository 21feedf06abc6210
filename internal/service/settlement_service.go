package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazaar-service/config"
	"bazaar-service/internal/broker"
	"bazaar-service/internal/currency"
	"bazaar-service/internal/models"
	"bazaar-service/internal/redisclient"
	"bazaar-service/internal/store"
	"bazaar-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SettlementService handles purchase settlement: funds verification,
// currency deduction, item delivery and the seller earnings ledger, all
// inside a single database transaction per purchase.
type SettlementService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	listingService *ListingService
	alt            currency.AltCurrency
	cfg            config.MarketplaceConfig
	logger         *zap.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	listingService *ListingService,
	cfg config.MarketplaceConfig,
) *SettlementService {
	return &SettlementService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		listingService: listingService,
		alt: currency.AltCurrency{
			Enabled: cfg.AltCurrencyEnabled,
			ItemID:  cfg.AltCurrencyItemID,
			Name:    cfg.AltCurrencyName,
			ValuePP: cfg.AltCurrencyValuePP,
		},
		cfg:    cfg,
		logger: util.GetLogger(),
	}
}

// PurchaseRequest represents a request to buy a listing
type PurchaseRequest struct {
	AccountID      int64  `json:"account_id" binding:"required"`
	BuyerCharID    int64  `json:"buyer_char_id" binding:"required"`
	ListingID      int64  `json:"listing_id" binding:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Purchase statuses reported to the buyer.
const (
	PurchaseStatusSettled        = "settled"
	PurchaseStatusPendingPayment = "pending_payment"
)

// PurchaseResponse represents the settlement outcome
type PurchaseResponse struct {
	TransactionID  int64  `json:"transaction_id"`
	ListingID      int64  `json:"listing_id"`
	Status         string `json:"status"`
	PriceCopper    int64  `json:"price_copper"`
	PaymentMethod  string `json:"payment_method,omitempty"`
	AltUnitsUsed   int64  `json:"alt_units_used,omitempty"`
	CopperRefunded int64  `json:"copper_refunded,omitempty"`
}

// planPayment decides how the buyer covers the price. High-value prices
// with alternate currency on hand drain whole units first; everything
// else spends copper first and tops up with whole units only on
// shortfall.
func planPayment(priceCopper, availableCopper, availableAlt int64, alt currency.AltCurrency) currency.Breakdown {
	altFirst := currency.HighValue(priceCopper, alt) && availableAlt > 0
	return currency.MixedPayment(priceCopper, availableCopper, availableAlt, altFirst, alt)
}

// Purchase settles a purchase atomically. The listing row lock makes
// concurrent buyers of the same listing resolve to exactly one winner;
// the buyer row lock serializes concurrent purchases by the same buyer
// so pending-obligation math cannot race.
//
// Offline buyers are settled immediately: currency deducted, item
// parcelled, earning recorded. Online buyers only get a pending
// reservation; the in-game broker NPC collects payment and completion
// arrives later as a BrokerPayment event.
func (s *SettlementService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.Purchase")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SettlementLatency.Observe(time.Since(start).Seconds())
	}()

	if req.IdempotencyKey != "" {
		claimed, err := s.redis.ClaimIdempotencyKey(ctx, req.IdempotencyKey, 5*time.Minute)
		if err != nil {
			s.logger.Warn("Idempotency check unavailable", zap.Error(err))
		} else if !claimed {
			return nil, fmt.Errorf("duplicate purchase request: %w", models.ErrInvalidOperation)
		}
	}

	resp, err := s.purchaseTx(ctx, req)
	if err != nil {
		if req.IdempotencyKey != "" {
			_ = s.redis.ReleaseIdempotencyKey(ctx, req.IdempotencyKey)
		}
		return nil, err
	}

	s.invalidateBrowseCache(ctx)
	return resp, nil
}

func (s *SettlementService) purchaseTx(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	var (
		resp    *PurchaseResponse
		listing *models.Listing
		plan    currency.Breakdown
		online  bool
	)

	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Lock order: listing row first, then the buyer's character
		// row. Every settlement path takes locks in this order.
		l, err := s.listingService.ReserveForPurchaseTx(ctx, tx, req.ListingID, req.BuyerCharID)
		if err != nil {
			return err
		}
		listing = l

		buyer, err := s.store.LockCharacterTx(ctx, tx, req.BuyerCharID)
		if err != nil {
			return err
		}

		owns, err := s.store.OwnsCharacterTx(ctx, tx, req.AccountID, buyer)
		if err != nil {
			return err
		}
		if !owns {
			return models.ErrForbidden
		}

		money, err := s.store.GetMoneyTx(ctx, tx, req.BuyerCharID)
		if err != nil {
			return err
		}
		totalCopper := currency.ToCopper(money.Platinum, money.Gold, money.Silver, money.Copper)

		pending, err := s.store.PendingTotalTx(ctx, tx, req.BuyerCharID)
		if err != nil {
			return err
		}
		availableCopper := totalCopper - pending

		var altTotal int64
		if s.alt.Enabled {
			inv, alternate, err := s.store.AltCurrencyTotalTx(ctx, tx, req.BuyerCharID, s.alt.ItemID)
			if err != nil {
				return err
			}
			altTotal = inv + alternate
		}

		plan = planPayment(listing.PriceCopper, availableCopper, altTotal, s.alt)
		if !plan.Sufficient {
			return &models.InsufficientFundsError{
				PriceCopper:     listing.PriceCopper,
				AvailableCopper: availableCopper,
				PendingCopper:   pending,
				AltAvailable:    altTotal,
				AltName:         s.alt.Name,
			}
		}

		online = buyer.Online()
		if online {
			// Online buyers pay in-game at the broker NPC; the listing
			// is held for them and the price counts against their
			// available balance until then.
			txn := &models.Transaction{
				ListingID:     listing.ID,
				SellerCharID:  listing.SellerCharID,
				BuyerCharID:   req.BuyerCharID,
				ItemID:        listing.ItemID,
				Quantity:      listing.Quantity,
				PriceCopper:   listing.PriceCopper,
				PaymentStatus: models.PaymentStatusPending,
			}
			if err := s.store.CreateTransactionTx(ctx, tx, txn); err != nil {
				return err
			}
			resp = &PurchaseResponse{
				TransactionID: txn.ID,
				ListingID:     listing.ID,
				Status:        PurchaseStatusPendingPayment,
				PriceCopper:   listing.PriceCopper,
			}
			return nil
		}

		if plan.AltToDeduct > 0 {
			if _, _, err := s.store.DeductAltCurrencyTx(ctx, tx, req.BuyerCharID, s.alt.ItemID, plan.AltToDeduct); err != nil {
				return err
			}
		}

		newTotal := totalCopper - plan.CopperToDeduct + plan.CopperToRefund
		p, g, sv, c := currency.FromCopper(newTotal)
		if err := s.store.SetMoneyTx(ctx, tx, req.BuyerCharID, &models.Money{
			Platinum: p, Gold: g, Silver: sv, Copper: c,
		}); err != nil {
			return err
		}

		err = s.store.DeliverParcelTx(ctx, tx, &store.Parcel{
			CharID:   req.BuyerCharID,
			FromName: listing.SellerName,
			Note:     fmt.Sprintf("Bazaar purchase: %s", listing.ItemName),
			ItemID:   listing.ItemID,
			Quantity: parcelQuantity(listing),
			Augments: listing.Augments(),
		})
		if err != nil {
			return err
		}

		txn := &models.Transaction{
			ListingID:     listing.ID,
			SellerCharID:  listing.SellerCharID,
			BuyerCharID:   req.BuyerCharID,
			ItemID:        listing.ItemID,
			Quantity:      listing.Quantity,
			PriceCopper:   listing.PriceCopper,
			PaymentStatus: models.PaymentStatusPaid,
		}
		if err := s.store.CreateTransactionTx(ctx, tx, txn); err != nil {
			return err
		}

		earning := &models.SellerEarning{
			SellerCharID:    listing.SellerCharID,
			AmountCopper:    listing.PriceCopper,
			SourceListingID: listing.ID,
			Notes:           fmt.Sprintf("Sale of %s", listing.ItemName),
		}
		if err := s.store.CreateEarningTx(ctx, tx, earning); err != nil {
			return err
		}

		resp = &PurchaseResponse{
			TransactionID:  txn.ID,
			ListingID:      listing.ID,
			Status:         PurchaseStatusSettled,
			PriceCopper:    listing.PriceCopper,
			PaymentMethod:  plan.Method,
			AltUnitsUsed:   plan.AltToDeduct,
			CopperRefunded: plan.CopperToRefund,
		}
		return nil
	})
	if err != nil {
		util.PurchasesFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	if online {
		util.PurchasesPendingTotal.Inc()
		s.logger.Info("Purchase reserved pending broker payment",
			zap.Int64("transaction_id", resp.TransactionID),
			zap.Int64("listing_id", resp.ListingID),
			zap.Int64("buyer_char_id", req.BuyerCharID))
		s.publishPaymentPending(ctx, resp, req.BuyerCharID)
	} else {
		util.PurchasesSettledTotal.Inc()
		s.logger.Info("Purchase settled",
			zap.Int64("transaction_id", resp.TransactionID),
			zap.Int64("listing_id", resp.ListingID),
			zap.Int64("buyer_char_id", req.BuyerCharID),
			zap.String("method", plan.Method),
			zap.Int64("alt_units", plan.AltToDeduct))
		s.publishListingSold(ctx, listing, resp, req.BuyerCharID)
	}

	return resp, nil
}

// CompletePendingPayment finishes a reservation after the broker NPC
// collected payment in-game. No currency is deducted here; the NPC took
// it from the live session. The pending-status filter in the lock query
// makes repeat delivery of the same event a no-op (reported NotFound).
func (s *SettlementService) CompletePendingPayment(ctx context.Context, transactionID, buyerCharID int64) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.CompletePendingPayment")
	defer span.End()

	var completed *store.PendingSettlement
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.store.LockPendingSettlementTx(ctx, tx, transactionID, buyerCharID)
		if err != nil {
			return err
		}

		err = s.store.DeliverParcelTx(ctx, tx, &store.Parcel{
			CharID:   p.BuyerCharID,
			FromName: p.SellerName,
			Note:     "Bazaar purchase",
			ItemID:   p.ItemID,
			Quantity: int64(p.Quantity),
			Augments: p.Augments(),
		})
		if err != nil {
			return err
		}

		earning := &models.SellerEarning{
			SellerCharID:    p.SellerCharID,
			AmountCopper:    p.PriceCopper,
			SourceListingID: p.ListingID,
			Notes:           "Sale via broker payment",
		}
		if err := s.store.CreateEarningTx(ctx, tx, earning); err != nil {
			return err
		}

		completed = p
		return s.store.MarkTransactionPaidTx(ctx, tx, transactionID)
	})
	if err != nil {
		return err
	}

	util.PendingPaymentsCompletedTotal.Inc()
	s.logger.Info("Pending payment completed",
		zap.Int64("transaction_id", transactionID),
		zap.Int64("buyer_char_id", buyerCharID))

	s.publishPaymentCompleted(ctx, completed)
	return nil
}

// PendingPayments lists unpaid reservations across the account's
// characters, for the pending-payments view.
func (s *SettlementService) PendingPayments(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	charIDs, err := s.listingService.accountCharacterIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.store.GetPendingByCharacters(ctx, charIDs)
}

// PurchaseHistory lists past purchases across the account's characters.
func (s *SettlementService) PurchaseHistory(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	charIDs, err := s.listingService.accountCharacterIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.store.GetPurchaseHistory(ctx, charIDs, limit)
}

func (s *SettlementService) invalidateBrowseCache(ctx context.Context) {
	if err := s.redis.InvalidateBrowseCache(ctx); err != nil {
		s.logger.Warn("Failed to invalidate browse cache", zap.Error(err))
	}
}

func (s *SettlementService) publishPaymentPending(ctx context.Context, resp *PurchaseResponse, buyerCharID int64) {
	event := &models.PaymentPendingEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentPending,
			Timestamp: time.Now(),
		},
		ListingID:     resp.ListingID,
		TransactionID: resp.TransactionID,
		BuyerCharID:   buyerCharID,
		PriceCopper:   resp.PriceCopper,
	}
	if err := s.eventPublisher.PublishPaymentPending(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentPending event", zap.Error(err))
	}
}

func (s *SettlementService) publishListingSold(ctx context.Context, l *models.Listing, resp *PurchaseResponse, buyerCharID int64) {
	event := &models.ListingSoldEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeListingSold,
			Timestamp: time.Now(),
		},
		ListingID:     l.ID,
		TransactionID: resp.TransactionID,
		SellerCharID:  l.SellerCharID,
		BuyerCharID:   buyerCharID,
		PriceCopper:   l.PriceCopper,
		AltUnitsUsed:  resp.AltUnitsUsed,
	}
	if err := s.eventPublisher.PublishListingSold(ctx, event); err != nil {
		s.logger.Error("Failed to publish ListingSold event", zap.Error(err))
	}
}

func (s *SettlementService) publishPaymentCompleted(ctx context.Context, p *store.PendingSettlement) {
	event := &models.PaymentCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentCompleted,
			Timestamp: time.Now(),
		},
		TransactionID: p.ID,
		ListingID:     p.ListingID,
		BuyerCharID:   p.BuyerCharID,
		PriceCopper:   p.PriceCopper,
	}
	if err := s.eventPublisher.PublishPaymentCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentCompleted event", zap.Error(err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, models.ErrAlreadySold):
		return "already_sold"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrInvalidOperation):
		return "invalid_operation"
	default:
		return "db_error"
	}
}
