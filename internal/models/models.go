package models

import (
	"database/sql"
	"time"
)

// Listing represents an item offered for sale on the marketplace.
// Augment columns mirror the six augment slots an EQEmu item carries.
type Listing struct {
	ID            int64          `db:"id" json:"id"`
	SellerCharID  int64          `db:"seller_char_id" json:"seller_char_id"`
	ItemID        int64          `db:"item_id" json:"item_id"`
	Quantity      int            `db:"quantity" json:"quantity"`
	Charges       int            `db:"charges" json:"charges"`
	PriceCopper   int64          `db:"price_copper" json:"price_copper"`
	Augment1      int64          `db:"augment_1" json:"augment_1"`
	Augment2      int64          `db:"augment_2" json:"augment_2"`
	Augment3      int64          `db:"augment_3" json:"augment_3"`
	Augment4      int64          `db:"augment_4" json:"augment_4"`
	Augment5      int64          `db:"augment_5" json:"augment_5"`
	Augment6      int64          `db:"augment_6" json:"augment_6"`
	Status        string         `db:"status" json:"status"`
	BuyerCharID   sql.NullInt64  `db:"buyer_char_id" json:"buyer_char_id,omitempty"`
	SellerName    string         `db:"seller_name" json:"seller_name,omitempty"`
	ItemName      string         `db:"item_name" json:"item_name,omitempty"`
	ListedAt      time.Time      `db:"listed_date" json:"listed_at"`
	PurchasedAt   sql.NullTime   `db:"purchased_date" json:"purchased_at,omitempty"`
}

// Augments returns the six augment slots as an array, in slot order.
func (l *Listing) Augments() [6]int64 {
	return [6]int64{l.Augment1, l.Augment2, l.Augment3, l.Augment4, l.Augment5, l.Augment6}
}

// Listing statuses
const (
	ListingStatusActive    = "active"
	ListingStatusSold      = "sold"
	ListingStatusCancelled = "cancelled"
)

// Transaction is the settlement record for a purchase attempt. Pending
// means the buyer must still pay at the in-game broker NPC before
// delivery. Rows are never deleted; they are the audit trail.
type Transaction struct {
	ID            int64        `db:"id" json:"id"`
	ListingID     int64        `db:"listing_id" json:"listing_id"`
	SellerCharID  int64        `db:"seller_char_id" json:"seller_char_id"`
	BuyerCharID   int64        `db:"buyer_char_id" json:"buyer_char_id"`
	ItemID        int64        `db:"item_id" json:"item_id"`
	Quantity      int          `db:"quantity" json:"quantity"`
	PriceCopper   int64        `db:"price_copper" json:"price_copper"`
	PaymentStatus string       `db:"payment_status" json:"payment_status"`
	ReservedAt    time.Time    `db:"reserved_date" json:"reserved_at"`
	PaidAt        sql.NullTime `db:"payment_date" json:"paid_at,omitempty"`
}

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
)

// SellerEarning is an append-only unclaimed-earnings record. Claiming
// flips Claimed and stamps ClaimedAt; rows are never deleted.
type SellerEarning struct {
	ID              int64        `db:"id" json:"id"`
	SellerCharID    int64        `db:"seller_char_id" json:"seller_char_id"`
	AmountCopper    int64        `db:"amount_copper" json:"amount_copper"`
	SourceListingID int64        `db:"source_listing_id" json:"source_listing_id"`
	Notes           string       `db:"notes" json:"notes,omitempty"`
	Claimed         bool         `db:"claimed" json:"claimed"`
	EarnedAt        time.Time    `db:"earned_date" json:"earned_at"`
	ClaimedAt       sql.NullTime `db:"claimed_date" json:"claimed_at,omitempty"`
}

// Character is the game-server view of a character: identity, account
// ownership, online flag and the four currency denominations.
type Character struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	AccountID int64  `db:"account_id" json:"account_id"`
	InGame    int    `db:"ingame" json:"ingame"`
}

// Online reports whether the character has a live game session.
func (c *Character) Online() bool {
	return c.InGame > 0
}

// Money is a character's currency row in its four denominations.
type Money struct {
	Platinum int64 `db:"platinum" json:"platinum"`
	Gold     int64 `db:"gold" json:"gold"`
	Silver   int64 `db:"silver" json:"silver"`
	Copper   int64 `db:"copper" json:"copper"`
}

// InventoryItem is an item stack in a character's inventory.
type InventoryItem struct {
	CharacterID int64 `db:"character_id" json:"character_id"`
	SlotID      int64 `db:"slot_id" json:"slot_id"`
	ItemID      int64 `db:"item_id" json:"item_id"`
	Charges     int   `db:"charges" json:"charges"`
	Augment1    int64 `db:"augslot1" json:"augslot1"`
	Augment2    int64 `db:"augslot2" json:"augslot2"`
	Augment3    int64 `db:"augslot3" json:"augslot3"`
	Augment4    int64 `db:"augslot4" json:"augslot4"`
	Augment5    int64 `db:"augslot5" json:"augslot5"`
	Augment6    int64 `db:"augslot6" json:"augslot6"`
}

// Item is the static item definition from the game's items table.
type Item struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Icon   int    `db:"icon" json:"icon"`
	NoDrop int    `db:"nodrop" json:"nodrop"`
	NoRent int    `db:"norent" json:"norent"`
}

// In EQEmu nodrop/norent are inverted flags: 0 means the restriction applies.
func (i *Item) Tradeable() bool { return i.NoDrop != 0 }
func (i *Item) Permanent() bool { return i.NoRent != 0 }

// BuyOrder is a want-to-buy posting. Pure CRUD glue, no settlement.
type BuyOrder struct {
	ID                 int64     `db:"id" json:"id"`
	CharID             int64     `db:"char_id" json:"char_id"`
	ItemID             int64     `db:"item_id" json:"item_id"`
	QuantityWanted     int       `db:"quantity_wanted" json:"quantity_wanted"`
	PricePerUnitCopper int64     `db:"price_per_unit_copper" json:"price_per_unit_copper"`
	Status             string    `db:"status" json:"status"`
	CreatedAt          time.Time `db:"created_date" json:"created_at"`
}

// Buy order statuses
const (
	BuyOrderStatusOpen      = "open"
	BuyOrderStatusCancelled = "cancelled"
	BuyOrderStatusFulfilled = "fulfilled"
)

// Account is the game login account; Status gates GM operations.
type Account struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Status int    `db:"status" json:"status"`
}
