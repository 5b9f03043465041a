package businessflow

import (
	"github.com/amirphl/mailpiece/config"
	"github.com/amirphl/mailpiece/utils"
)

// Audience quality labels
const (
	QualityTooBroad  = "too_broad"
	QualityTooNarrow = "too_narrow"
	QualityGood      = "good"
)

// Quote is the price of a number of contacts. Amounts are in cents.
type Quote struct {
	Count              int64
	UserCostPerContact float64 // dollars
	UserCharge         uint64
	ProviderCost       uint64
	Margin             int64
}

// Pricer turns contact counts into charges
type Pricer struct {
	cfg config.PricingConfig
}

// NewPricer creates a pricer from configured per-contact prices
func NewPricer(cfg config.PricingConfig) *Pricer {
	return &Pricer{cfg: cfg}
}

// Quote prices count contacts. Charges are rounded to the nearest cent once, on the total.
func (p *Pricer) Quote(count int64) Quote {
	if count < 0 {
		count = 0
	}
	userCharge := utils.DollarsToCents(float64(count) * p.cfg.UserCostPerContact)
	providerCost := utils.DollarsToCents(float64(count) * p.cfg.ProviderCostPerContact)
	return Quote{
		Count:              count,
		UserCostPerContact: p.cfg.UserCostPerContact,
		UserCharge:         userCharge,
		ProviderCost:       providerCost,
		Margin:             int64(userCharge) - int64(providerCost),
	}
}

// PurchasableCount caps a requested purchase size by the audience and the configured ceiling
func (p *Pricer) PurchasableCount(available int64, maxContacts int) int64 {
	n := min(available, int64(maxContacts))
	if p.cfg.MaxContactsPerPurchase > 0 {
		n = min(n, int64(p.cfg.MaxContactsPerPurchase))
	}
	return max(n, 0)
}

// ClassifyAudience labels a count as too broad, too narrow or good
func ClassifyAudience(count int64) string {
	switch {
	case count > utils.AudienceTooBroadThreshold:
		return QualityTooBroad
	case count < utils.AudienceTooNarrowThreshold:
		return QualityTooNarrow
	default:
		return QualityGood
	}
}

func centsToDollars(cents uint64) float64 {
	return utils.CentsToDollars(cents)
}

func signedCentsToDollars(cents int64) float64 {
	return float64(cents) / utils.CentsPerDollar
}
