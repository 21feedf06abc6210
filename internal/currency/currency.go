// Package currency implements the marketplace money arithmetic: the
// four EQEmu denominations collapsed to a canonical copper integer, and
// mixed platinum/alternate-currency payment breakdowns. Pure functions,
// no I/O.
package currency

const (
	CopperPerPlatinum = 1000
	CopperPerGold     = 100
	CopperPerSilver   = 10
)

// ToCopper converts the four denominations to total copper.
func ToCopper(platinum, gold, silver, copper int64) int64 {
	return platinum*CopperPerPlatinum + gold*CopperPerGold + silver*CopperPerSilver + copper
}

// FromCopper splits a non-negative copper total back into denominations.
// Inverse of ToCopper for canonical (non-overflowing) denominations.
func FromCopper(total int64) (platinum, gold, silver, copper int64) {
	platinum = total / CopperPerPlatinum
	total %= CopperPerPlatinum
	gold = total / CopperPerGold
	total %= CopperPerGold
	silver = total / CopperPerSilver
	copper = total % CopperPerSilver
	return
}

// AltCurrency describes the optional high-value currency: a stackable
// inventory item worth a fixed number of platinum per unit.
type AltCurrency struct {
	Enabled bool
	ItemID  int64
	Name    string
	ValuePP int64
}

// ValueCopper is the copper value of one alternate-currency unit.
func (a AltCurrency) ValueCopper() int64 {
	return a.ValuePP * CopperPerPlatinum
}

// Payment methods reported in a Breakdown.
const (
	MethodPlatinumOnly  = "platinum_only"
	MethodPlatinumFirst = "platinum_first"
	MethodAltFirst      = "altcurrency_first"
)

// Breakdown is the result of a payment computation. CopperToDeduct and
// CopperToRefund are in copper; AltToDeduct is whole alternate-currency
// units. When Sufficient is false the deduct fields hold the maximal
// funds available, for display to the caller.
type Breakdown struct {
	AltToDeduct    int64
	CopperToDeduct int64
	CopperToRefund int64
	Sufficient     bool
	Method         string
}

// Paid returns the total copper-equivalent value taken from the buyer
// net of refund.
func (b Breakdown) Paid(alt AltCurrency) int64 {
	return b.AltToDeduct*alt.ValueCopper() + b.CopperToDeduct - b.CopperToRefund
}

// MixedPayment computes how to cover priceCopper from availableCopper
// plus availableAlt whole alternate-currency units.
//
// altFirst=false (prices at or below one alt unit): consume copper
// fully before touching alt currency; any shortfall is covered by the
// minimal whole alt units, refunding the overpayment in copper.
//
// altFirst=true (high-value prices): consume whole alt units first,
// cover the remainder with copper; if copper cannot cover the
// remainder, spend one extra alt unit and refund the overpayment.
func MixedPayment(priceCopper, availableCopper, availableAlt int64, altFirst bool, alt AltCurrency) Breakdown {
	if !alt.Enabled {
		if availableCopper >= priceCopper {
			return Breakdown{CopperToDeduct: priceCopper, Sufficient: true, Method: MethodPlatinumOnly}
		}
		return Breakdown{CopperToDeduct: availableCopper, Method: MethodPlatinumOnly}
	}

	unit := alt.ValueCopper()

	if altFirst {
		altNeeded := priceCopper / unit
		remainder := priceCopper - altNeeded*unit

		if availableAlt < altNeeded {
			// Spend every alt unit, the rest must come from copper.
			copperNeeded := priceCopper - availableAlt*unit
			b := Breakdown{
				AltToDeduct:    availableAlt,
				CopperToDeduct: copperNeeded,
				Method:         MethodAltFirst,
			}
			if availableCopper >= copperNeeded {
				b.Sufficient = true
			} else {
				b.CopperToDeduct = availableCopper
			}
			return b
		}

		if availableCopper >= remainder {
			return Breakdown{
				AltToDeduct:    altNeeded,
				CopperToDeduct: remainder,
				Sufficient:     true,
				Method:         MethodAltFirst,
			}
		}

		// Copper cannot cover the remainder; try one more alt unit.
		if availableAlt < altNeeded+1 {
			return Breakdown{
				AltToDeduct:    availableAlt,
				CopperToDeduct: availableCopper,
				Method:         MethodAltFirst,
			}
		}
		return Breakdown{
			AltToDeduct:    altNeeded + 1,
			CopperToRefund: (altNeeded+1)*unit - priceCopper,
			Sufficient:     true,
			Method:         MethodAltFirst,
		}
	}

	// Platinum-first.
	if availableCopper >= priceCopper {
		return Breakdown{CopperToDeduct: priceCopper, Sufficient: true, Method: MethodPlatinumFirst}
	}

	shortfall := priceCopper - availableCopper
	altNeeded := (shortfall + unit - 1) / unit

	if availableAlt < altNeeded {
		return Breakdown{
			AltToDeduct:    availableAlt,
			CopperToDeduct: availableCopper,
			Method:         MethodPlatinumFirst,
		}
	}

	return Breakdown{
		AltToDeduct:    altNeeded,
		CopperToDeduct: availableCopper,
		CopperToRefund: availableCopper + altNeeded*unit - priceCopper,
		Sufficient:     true,
		Method:         MethodPlatinumFirst,
	}
}

// EarningsSplit is the result of converting accumulated earnings into
// alternate-currency units plus a copper remainder.
type EarningsSplit struct {
	AltUnits        int64
	RemainderCopper int64
}

// ConvertEarnings splits totalCopper into whole alternate-currency
// units and a copper remainder. Totals at or below one unit's value, or
// any total when the feature is disabled, convert to zero units.
func ConvertEarnings(totalCopper int64, alt AltCurrency) EarningsSplit {
	if !alt.Enabled || totalCopper <= alt.ValueCopper() {
		return EarningsSplit{RemainderCopper: totalCopper}
	}
	unit := alt.ValueCopper()
	return EarningsSplit{
		AltUnits:        totalCopper / unit,
		RemainderCopper: totalCopper % unit,
	}
}

// HighValue reports whether a price should use the alt-first payment
// strategy: the price exceeds one alternate-currency unit and the
// feature is enabled.
func HighValue(priceCopper int64, alt AltCurrency) bool {
	return alt.Enabled && priceCopper > alt.ValueCopper()
}
