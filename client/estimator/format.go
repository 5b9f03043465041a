package estimator

import (
	"fmt"
	"math"

	"github.com/amirphl/mailpiece/utils"
	"github.com/dustin/go-humanize"
)

// Quality is the qualitative verdict on an audience size
type Quality string

const (
	QualityTooBroad  Quality = "too_broad"
	QualityTooNarrow Quality = "too_narrow"
	QualityGood      Quality = "good"
)

// Classify flags counts above one million as too broad and below one thousand as too narrow
func Classify(count int64) Quality {
	switch {
	case count > utils.AudienceTooBroadThreshold:
		return QualityTooBroad
	case count < utils.AudienceTooNarrowThreshold:
		return QualityTooNarrow
	default:
		return QualityGood
	}
}

// FormatCount abbreviates audience sizes: 950, 45.0K, 1.2M.
// The unit is picked after rounding so 999,950 reads 1.0M, not 1000.0K.
func FormatCount(count int64) string {
	abs := math.Abs(float64(count))
	switch {
	case abs >= 1_000_000 || math.Round(abs/100) >= 10_000:
		return fmt.Sprintf("%.1fM", float64(count)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(count)/1_000)
	default:
		return humanize.Comma(count)
	}
}

// FormatCurrency renders dollars with thousands separators and cents: $5,400.00
func FormatCurrency(amount float64) string {
	cents := int64(math.Round(math.Abs(amount) * 100))
	sign := ""
	if amount < 0 && cents > 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}
