package businessflow

import (
	"testing"

	"github.com/amirphl/mailpiece/config"
	"github.com/stretchr/testify/assert"
)

func testPricer() *Pricer {
	return NewPricer(config.PricingConfig{
		UserCostPerContact:     0.12,
		ProviderCostPerContact: 0.09,
		MaxContactsPerPurchase: 50_000,
	})
}

func TestPricer_Quote(t *testing.T) {
	p := testPricer()

	t.Run("Forty five thousand contacts", func(t *testing.T) {
		q := p.Quote(45_000)
		assert.Equal(t, int64(45_000), q.Count)
		assert.Equal(t, uint64(540_000), q.UserCharge)
		assert.Equal(t, uint64(405_000), q.ProviderCost)
		assert.Equal(t, int64(135_000), q.Margin)
		assert.Equal(t, 0.12, q.UserCostPerContact)
	})

	t.Run("Zero and negative counts cost nothing", func(t *testing.T) {
		assert.Zero(t, p.Quote(0).UserCharge)
		q := p.Quote(-5)
		assert.Zero(t, q.Count)
		assert.Zero(t, q.UserCharge)
	})

	t.Run("Margin goes negative when provider costs more", func(t *testing.T) {
		loss := NewPricer(config.PricingConfig{UserCostPerContact: 0.05, ProviderCostPerContact: 0.09})
		assert.Equal(t, int64(-400), loss.Quote(100).Margin)
	})
}

func TestPricer_PurchasableCount(t *testing.T) {
	p := testPricer()

	assert.Equal(t, int64(1_000), p.PurchasableCount(1_000, 5_000))
	assert.Equal(t, int64(5_000), p.PurchasableCount(45_000, 5_000))
	assert.Equal(t, int64(50_000), p.PurchasableCount(2_000_000, 1_000_000))
	assert.Zero(t, p.PurchasableCount(0, 10))

	unbounded := NewPricer(config.PricingConfig{UserCostPerContact: 0.12})
	assert.Equal(t, int64(1_000_000), unbounded.PurchasableCount(2_000_000, 1_000_000))
}

func TestClassifyAudience(t *testing.T) {
	cases := []struct {
		count int64
		want  string
	}{
		{0, QualityTooNarrow},
		{999, QualityTooNarrow},
		{1_000, QualityGood},
		{45_000, QualityGood},
		{1_000_000, QualityGood},
		{1_000_001, QualityTooBroad},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyAudience(tc.count), "count %d", tc.count)
	}
}

func TestFormatDollars(t *testing.T) {
	assert.Equal(t, "$5,400.00", formatDollars(540_000))
	assert.Equal(t, "$0.12", formatDollars(12))
}
