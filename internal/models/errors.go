package models

import (
	"errors"
	"fmt"
)

// Failure taxonomy for marketplace operations. Expected failures are
// returned as these typed errors so the HTTP edge can map them to user
// messages; anything else is logged and surfaced as an opaque 500.
var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadySold          = errors.New("listing is no longer active")
	ErrForbidden            = errors.New("character does not belong to this account")
	ErrInvalidOperation     = errors.New("invalid operation")
	ErrInvalidState         = errors.New("invalid state for this operation")
	ErrLedgerNotInitialized = errors.New("seller earnings table does not exist, run migrations")
)

// InsufficientFundsError carries the funds detail the caller needs for
// user-facing messaging. Matches models.ErrInsufficientFunds via errors.Is.
type InsufficientFundsError struct {
	PriceCopper     int64
	AvailableCopper int64
	PendingCopper   int64
	AltAvailable    int64
	AltName         string
}

var ErrInsufficientFunds = errors.New("insufficient funds")

func (e *InsufficientFundsError) Error() string {
	if e.AltAvailable > 0 {
		return fmt.Sprintf("insufficient funds: need %dpp, have %dpp and %d %s",
			e.PriceCopper/1000, e.AvailableCopper/1000, e.AltAvailable, e.AltName)
	}
	return fmt.Sprintf("insufficient funds: need %dpp, have %dpp available (%dpp reserved by pending payments)",
		e.PriceCopper/1000, e.AvailableCopper/1000, e.PendingCopper/1000)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
