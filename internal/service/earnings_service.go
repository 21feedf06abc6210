package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"bazaar-service/config"
	"bazaar-service/internal/broker"
	"bazaar-service/internal/currency"
	"bazaar-service/internal/models"
	"bazaar-service/internal/store"
	"bazaar-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// EarningsService pays out the append-only seller earnings ledger.
// Large totals convert to alternate-currency units; the remainder is
// paid in coin.
type EarningsService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	listingService *ListingService
	alt            currency.AltCurrency
	cfg            config.MarketplaceConfig
	logger         *zap.Logger
}

// NewEarningsService creates a new earnings service
func NewEarningsService(
	store *store.Store,
	eventPublisher *broker.EventPublisher,
	listingService *ListingService,
	cfg config.MarketplaceConfig,
) *EarningsService {
	return &EarningsService{
		store:          store,
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

// CharacterPayout is the per-character outcome of a claim.
type CharacterPayout struct {
	CharID      int64  `json:"char_id"`
	Name        string `json:"name"`
	TotalCopper int64  `json:"total_copper"`
	AltUnits    int64  `json:"alt_units"`
	Method      string `json:"method"`
	Count       int    `json:"count"`
}

// Payout methods per character.
const (
	PayoutMethodParcel = "parcel"
	PayoutMethodDirect = "direct"
)

// ClaimResponse summarizes a claim operation.
type ClaimResponse struct {
	TotalCopper   int64             `json:"total_copper"`
	EarningsCount int               `json:"earnings_count"`
	Payouts       []CharacterPayout `json:"payouts"`
}

// Claim pays out unclaimed earnings. charID zero claims for every
// character across the account and its linked accounts; non-zero claims
// for that one character after an ownership check.
//
// Online characters are paid entirely by parcel since their currency
// row is owned by the live game session. Offline characters get coin
// credited directly; alternate-currency units always travel by parcel
// so the stack lands in inventory properly.
func (s *EarningsService) Claim(ctx context.Context, accountID, charID int64) (*ClaimResponse, error) {
	ctx, span := util.StartSpan(ctx, "EarningsService.Claim")
	defer span.End()

	var charIDs []int64
	if charID != 0 {
		charIDs = []int64{charID}
	} else {
		ids, err := s.listingService.accountCharacterIDs(ctx, accountID)
		if err != nil {
			return nil, err
		}
		charIDs = ids
	}
	if len(charIDs) == 0 {
		return &ClaimResponse{}, nil
	}

	resp := &ClaimResponse{}
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		earnings, err := s.store.LockUnclaimedEarningsTx(ctx, tx, charIDs)
		if err != nil {
			return err
		}
		if len(earnings) == 0 {
			return nil
		}

		totals := make(map[int64]int64)
		counts := make(map[int64]int)
		earningIDs := make([]int64, 0, len(earnings))
		for _, e := range earnings {
			totals[e.SellerCharID] += e.AmountCopper
			counts[e.SellerCharID]++
			earningIDs = append(earningIDs, e.ID)
			resp.TotalCopper += e.AmountCopper
		}
		resp.EarningsCount = len(earnings)

		// Lock character rows in ascending id order so concurrent
		// claims over overlapping linked-account sets cannot deadlock.
		for _, cid := range sortedCharIDs(totals) {
			total := totals[cid]
			ch, err := s.store.LockCharacterTx(ctx, tx, cid)
			if err != nil {
				return err
			}

			if charID != 0 {
				owns, err := s.store.OwnsCharacterTx(ctx, tx, accountID, ch)
				if err != nil {
					return err
				}
				if !owns {
					return models.ErrForbidden
				}
			}

			payout, err := s.payCharacterTx(ctx, tx, ch, total)
			if err != nil {
				return err
			}
			payout.Count = counts[cid]
			resp.Payouts = append(resp.Payouts, *payout)
		}

		return s.store.MarkEarningsClaimedTx(ctx, tx, earningIDs)
	})
	if err != nil {
		return nil, err
	}

	if resp.EarningsCount > 0 {
		util.EarningsClaimedTotal.Inc()
		util.EarningsClaimedCopper.Add(float64(resp.TotalCopper))
		s.logger.Info("Earnings claimed",
			zap.Int64("account_id", accountID),
			zap.Int64("total_copper", resp.TotalCopper),
			zap.Int("count", resp.EarningsCount))
		s.publishEarningsClaimed(ctx, accountID, resp)
	}

	return resp, nil
}

func (s *EarningsService) payCharacterTx(ctx context.Context, tx *sqlx.Tx, ch *models.Character, totalCopper int64) (*CharacterPayout, error) {
	split := currency.ConvertEarnings(totalCopper, s.alt)

	payout := &CharacterPayout{
		CharID:      ch.ID,
		Name:        ch.Name,
		TotalCopper: totalCopper,
		AltUnits:    split.AltUnits,
	}

	if split.AltUnits > 0 {
		err := s.store.DeliverParcelTx(ctx, tx, &store.Parcel{
			CharID:   ch.ID,
			FromName: "Bazaar",
			Note:     fmt.Sprintf("Bazaar earnings: %d %s", split.AltUnits, s.alt.Name),
			ItemID:   s.alt.ItemID,
			Quantity: split.AltUnits,
		})
		if err != nil {
			return nil, err
		}
	}

	if ch.Online() {
		payout.Method = PayoutMethodParcel
		// The parcel quantity column is a signed 32-bit int; huge
		// copper totals ship as multiple parcels.
		remaining := split.RemainderCopper
		for remaining > 0 {
			amount := remaining
			if amount > math.MaxInt32 {
				amount = math.MaxInt32
			}
			err := s.store.DeliverParcelTx(ctx, tx, &store.Parcel{
				CharID:   ch.ID,
				FromName: "Bazaar",
				Note:     "Bazaar earnings",
				ItemID:   s.cfg.MoneyParcelItemID,
				Quantity: amount,
			})
			if err != nil {
				return nil, err
			}
			remaining -= amount
		}
		return payout, nil
	}

	payout.Method = PayoutMethodDirect
	if split.RemainderCopper > 0 {
		money, err := s.store.GetMoneyTx(ctx, tx, ch.ID)
		if err != nil {
			return nil, err
		}
		newTotal := currency.ToCopper(money.Platinum, money.Gold, money.Silver, money.Copper) + split.RemainderCopper
		p, g, sv, c := currency.FromCopper(newTotal)
		err = s.store.SetMoneyTx(ctx, tx, ch.ID, &models.Money{
			Platinum: p, Gold: g, Silver: sv, Copper: c,
		})
		if err != nil {
			return nil, err
		}
	}
	return payout, nil
}

func sortedCharIDs(totals map[int64]int64) []int64 {
	ids := make([]int64, 0, len(totals))
	for cid := range totals {
		ids = append(ids, cid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Summary returns unclaimed totals per character for the account and
// its linked accounts.
func (s *EarningsService) Summary(ctx context.Context, accountID int64) ([]store.EarningsSummary, error) {
	charIDs, err := s.listingService.accountCharacterIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.store.GetUnclaimedSummary(ctx, charIDs)
}

func (s *EarningsService) publishEarningsClaimed(ctx context.Context, accountID int64, resp *ClaimResponse) {
	event := &models.EarningsClaimedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeEarningsClaimed,
			Timestamp: time.Now(),
		},
		AccountID:     accountID,
		TotalCopper:   resp.TotalCopper,
		EarningsCount: resp.EarningsCount,
	}
	if err := s.eventPublisher.PublishEarningsClaimed(ctx, event); err != nil {
		s.logger.Error("Failed to publish EarningsClaimed event", zap.Error(err))
	}
}
