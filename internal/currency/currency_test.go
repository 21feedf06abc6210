package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testAlt = AltCurrency{
	Enabled: true,
	ItemID:  147623,
	Name:    "Alt Currency",
	ValuePP: 1_000_000,
}

func TestToCopper(t *testing.T) {
	assert.Equal(t, int64(0), ToCopper(0, 0, 0, 0))
	assert.Equal(t, int64(1234), ToCopper(1, 2, 3, 4))
	assert.Equal(t, int64(5000), ToCopper(5, 0, 0, 0))
}

func TestFromCopper(t *testing.T) {
	p, g, s, c := FromCopper(1234)
	assert.Equal(t, int64(1), p)
	assert.Equal(t, int64(2), g)
	assert.Equal(t, int64(3), s)
	assert.Equal(t, int64(4), c)
}

func TestCopperRoundTrip(t *testing.T) {
	values := []int64{0, 1, 9, 10, 99, 100, 999, 1000, 1001, 123456789, 2_500_000_000_000}
	for _, v := range values {
		p, g, s, c := FromCopper(v)
		assert.Equal(t, v, ToCopper(p, g, s, c), "round trip for %d", v)
	}
}

func TestMixedPaymentDisabled(t *testing.T) {
	disabled := AltCurrency{Enabled: false}

	b := MixedPayment(5000, 10000, 50, false, disabled)
	assert.True(t, b.Sufficient)
	assert.Equal(t, int64(5000), b.CopperToDeduct)
	assert.Equal(t, int64(0), b.AltToDeduct)
	assert.Equal(t, MethodPlatinumOnly, b.Method)

	// Alt units cannot help when the feature is off.
	b = MixedPayment(5000, 1000, 50, false, disabled)
	assert.False(t, b.Sufficient)
	assert.Equal(t, int64(1000), b.CopperToDeduct)
}

func TestMixedPaymentPlatinumFirstCoveredByCopper(t *testing.T) {
	b := MixedPayment(5000, 10000, 3, false, testAlt)
	assert.True(t, b.Sufficient)
	assert.Equal(t, int64(5000), b.CopperToDeduct)
	assert.Equal(t, int64(0), b.AltToDeduct)
	assert.Equal(t, int64(0), b.CopperToRefund)
}

func TestMixedPaymentPlatinumFirstWithAltTopUp(t *testing.T) {
	// Price 1.5M pp, buyer has 600k pp and 2 alt units. Shortfall is
	// 900k pp -> one alt unit (1M pp), refunding the 100k pp overpay.
	price := int64(1_500_000) * CopperPerPlatinum
	avail := int64(600_000) * CopperPerPlatinum

	b := MixedPayment(price, avail, 2, false, testAlt)
	assert.True(t, b.Sufficient)
	assert.Equal(t, int64(1), b.AltToDeduct)
	assert.Equal(t, avail, b.CopperToDeduct)
	assert.Equal(t, int64(100_000)*CopperPerPlatinum, b.CopperToRefund)
	assert.Equal(t, price, b.Paid(testAlt))
}

func TestMixedPaymentAltFirstExact(t *testing.T) {
	// Spec scenario: price 2.5M pp equivalent, 2 alt units + 600k pp.
	price := int64(2_500_000) * CopperPerPlatinum
	avail := int64(600_000) * CopperPerPlatinum

	b := MixedPayment(price, avail, 2, true, testAlt)
	assert.True(t, b.Sufficient)
	assert.Equal(t, int64(2), b.AltToDeduct)
	assert.Equal(t, int64(500_000)*CopperPerPlatinum, b.CopperToDeduct)
	assert.Equal(t, int64(0), b.CopperToRefund)
	assert.Equal(t, MethodAltFirst, b.Method)
}

func TestMixedPaymentAltFirstExtraUnitRefund(t *testing.T) {
	// Remainder exceeds copper on hand, so a third unit covers it and
	// the overpayment comes back as copper.
	price := int64(2_500_000) * CopperPerPlatinum
	avail := int64(100_000) * CopperPerPlatinum

	b := MixedPayment(price, avail, 3, true, testAlt)
	assert.True(t, b.Sufficient)
	assert.Equal(t, int64(3), b.AltToDeduct)
	assert.Equal(t, int64(0), b.CopperToDeduct)
	assert.Equal(t, int64(500_000)*CopperPerPlatinum, b.CopperToRefund)
	assert.Equal(t, price, b.Paid(testAlt))
}

func TestMixedPaymentAltFirstShortOnAlt(t *testing.T) {
	price := int64(2_500_000) * CopperPerPlatinum
	avail := int64(100_000) * CopperPerPlatinum

	b := MixedPayment(price, avail, 1, true, testAlt)
	assert.False(t, b.Sufficient)
	assert.Equal(t, int64(1), b.AltToDeduct)
	assert.Equal(t, avail, b.CopperToDeduct)
}

func TestMixedPaymentInsufficient(t *testing.T) {
	b := MixedPayment(5000, 1000, 0, false, testAlt)
	assert.False(t, b.Sufficient)
	assert.Equal(t, int64(1000), b.CopperToDeduct)
	assert.Equal(t, int64(0), b.AltToDeduct)
}

func TestMixedPaymentRefundIdentity(t *testing.T) {
	unit := testAlt.ValueCopper()
	cases := []struct {
		price, copper, alt int64
		altFirst           bool
	}{
		{3*unit + 7500, 10_000, 5, true},
		{2*unit + 500, 100, 4, true},
		{unit / 2, 1000, 3, false},
		{5 * unit, 0, 5, true},
		{unit + 1, 1, 2, false},
	}
	for _, tc := range cases {
		b := MixedPayment(tc.price, tc.copper, tc.alt, tc.altFirst, testAlt)
		if b.Sufficient {
			assert.Equal(t, tc.price, b.Paid(testAlt),
				"paid value must equal price for price=%d copper=%d alt=%d", tc.price, tc.copper, tc.alt)
		}
	}
}

func TestMixedPaymentMonotonicity(t *testing.T) {
	unit := testAlt.ValueCopper()
	price := 2*unit + 350_000

	base := MixedPayment(price, 400_000, 2, true, testAlt)
	assert.True(t, base.Sufficient)

	// More copper or more alt units never flips sufficient back to false.
	for _, extraCopper := range []int64{1, 1000, unit} {
		b := MixedPayment(price, 400_000+extraCopper, 2, true, testAlt)
		assert.True(t, b.Sufficient, "extra copper %d", extraCopper)
	}
	for _, extraAlt := range []int64{1, 5, 100} {
		b := MixedPayment(price, 400_000, 2+extraAlt, true, testAlt)
		assert.True(t, b.Sufficient, "extra alt %d", extraAlt)
	}
}

func TestConvertEarnings(t *testing.T) {
	unit := testAlt.ValueCopper()

	split := ConvertEarnings(500, testAlt)
	assert.Equal(t, int64(0), split.AltUnits)
	assert.Equal(t, int64(500), split.RemainderCopper)

	// Exactly one unit's value stays platinum (strict threshold).
	split = ConvertEarnings(unit, testAlt)
	assert.Equal(t, int64(0), split.AltUnits)
	assert.Equal(t, unit, split.RemainderCopper)

	split = ConvertEarnings(3*unit+12345, testAlt)
	assert.Equal(t, int64(3), split.AltUnits)
	assert.Equal(t, int64(12345), split.RemainderCopper)

	disabled := AltCurrency{Enabled: false, ValuePP: 1_000_000}
	split = ConvertEarnings(5*unit, disabled)
	assert.Equal(t, int64(0), split.AltUnits)
	assert.Equal(t, 5*unit, split.RemainderCopper)
}

func TestHighValue(t *testing.T) {
	unit := testAlt.ValueCopper()
	assert.False(t, HighValue(unit, testAlt))
	assert.True(t, HighValue(unit+1, testAlt))
	assert.False(t, HighValue(unit+1, AltCurrency{Enabled: false, ValuePP: 1_000_000}))
}
