package models

import "time"

// Event types
const (
	EventTypeListingCreated   = "LISTING_CREATED"
	EventTypeListingSold      = "LISTING_SOLD"
	EventTypeListingCancelled = "LISTING_CANCELLED"
	EventTypeListingRestored  = "LISTING_RESTORED"
	EventTypePaymentPending   = "PAYMENT_PENDING"
	EventTypePaymentCompleted = "PAYMENT_COMPLETED"
	EventTypeEarningsClaimed  = "EARNINGS_CLAIMED"
	EventTypeBrokerPayment    = "BROKER_PAYMENT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ListingCreatedEvent published when a seller lists an item
type ListingCreatedEvent struct {
	BaseEvent
	ListingID    int64 `json:"listing_id"`
	SellerCharID int64 `json:"seller_char_id"`
	ItemID       int64 `json:"item_id"`
	Quantity     int   `json:"quantity"`
	PriceCopper  int64 `json:"price_copper"`
}

// ListingSoldEvent published when a purchase settles (offline path)
type ListingSoldEvent struct {
	BaseEvent
	ListingID     int64 `json:"listing_id"`
	TransactionID int64 `json:"transaction_id"`
	SellerCharID  int64 `json:"seller_char_id"`
	BuyerCharID   int64 `json:"buyer_char_id"`
	PriceCopper   int64 `json:"price_copper"`
	AltUnitsUsed  int64 `json:"alt_units_used"`
}

// PaymentPendingEvent published when an online buyer reserves a listing
// and must pay at the broker NPC
type PaymentPendingEvent struct {
	BaseEvent
	ListingID     int64 `json:"listing_id"`
	TransactionID int64 `json:"transaction_id"`
	BuyerCharID   int64 `json:"buyer_char_id"`
	PriceCopper   int64 `json:"price_copper"`
}

// PaymentCompletedEvent published when a pending transaction is settled
type PaymentCompletedEvent struct {
	BaseEvent
	TransactionID int64 `json:"transaction_id"`
	ListingID     int64 `json:"listing_id"`
	BuyerCharID   int64 `json:"buyer_char_id"`
	PriceCopper   int64 `json:"price_copper"`
}

// ListingCancelledEvent published when a listing is cancelled
type ListingCancelledEvent struct {
	BaseEvent
	ListingID    int64  `json:"listing_id"`
	SellerCharID int64  `json:"seller_char_id"`
	Reason       string `json:"reason"`
}

// ListingRestoredEvent published when an admin restores a sold listing
type ListingRestoredEvent struct {
	BaseEvent
	ListingID            int64 `json:"listing_id"`
	RequiresManualRefund bool  `json:"requires_manual_refund"`
}

// EarningsClaimedEvent published when a seller claims earnings
type EarningsClaimedEvent struct {
	BaseEvent
	AccountID     int64 `json:"account_id"`
	TotalCopper   int64 `json:"total_copper"`
	EarningsCount int   `json:"earnings_count"`
}

// BrokerPaymentEvent is consumed from the game side: the broker NPC
// collected payment for a pending transaction in-game.
type BrokerPaymentEvent struct {
	BaseEvent
	TransactionID int64 `json:"transaction_id"`
	CharacterID   int64 `json:"character_id"`
}
