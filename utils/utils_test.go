package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDollarsToCents(t *testing.T) {
	tests := []struct {
		name    string
		dollars float64
		want    uint64
	}{
		{"whole dollars", 5400, 540000},
		{"fractional cents round", 0.125, 13},
		{"negative clamps to zero", -3, 0},
		{"zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DollarsToCents(tt.dollars))
		})
	}
}

func TestCentsToDollars(t *testing.T) {
	assert.InDelta(t, 54.0, CentsToDollars(5400), 1e-9)
	assert.True(t, IsTrue(ToPtr(true)))
	assert.False(t, IsTrue(nil))
}
