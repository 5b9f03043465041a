// Package utils provides utility functions for the application.
package utils

import "math"

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// DollarsToCents rounds a dollar amount to whole cents
func DollarsToCents(dollars float64) uint64 {
	if dollars <= 0 {
		return 0
	}
	return uint64(math.Round(dollars * CentsPerDollar))
}

// CentsToDollars converts a stored cent amount back to dollars
func CentsToDollars(cents uint64) float64 {
	return float64(cents) / CentsPerDollar
}
