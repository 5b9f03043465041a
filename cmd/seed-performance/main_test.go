package main

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedRate(t *testing.T) {
	// half saturation: the curve sits at three quarters of the base rate
	assert.InDelta(t, 3.75, expectedRate(5.0, 2000), 1e-9)

	prev := 0.0
	for _, q := range quantities {
		rate := expectedRate(3.0, q)
		assert.Greater(t, rate, prev, "rate grows with quantity")
		assert.Less(t, rate, 3.0)
		assert.Greater(t, rate, 1.5)
		prev = rate
	}
}

func TestNoisyRate(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		rate := noisyRate(rng, 2.5, 300)
		expected := expectedRate(2.5, 300)
		assert.GreaterOrEqual(t, rate, minRatePercent)
		assert.LessOrEqual(t, rate, expected*1.2+1e-9)
		assert.GreaterOrEqual(t, rate, min(expected*0.8, minRatePercent)-1e-9)
	}

	// a tiny base rate is held at the floor
	assert.Equal(t, minRatePercent, noisyRate(rng, 0.1, 300))
}

func TestConversionCount(t *testing.T) {
	assert.Equal(t, 15, conversionCount(300, 5.0))
	assert.Equal(t, 2, conversionCount(300, 0.5))
	assert.Equal(t, 100, conversionCount(100, 150))
}

func TestPlanDeployments(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	plan := planDeployments(rand.New(rand.NewPCG(7, 7)), now)

	require.Len(t, plan, len(stores)*len(quantities))
	first, last := plan[0], plan[len(quantities)-1]
	assert.Equal(t, "Portland Central", first.store.name)
	assert.Equal(t, now.AddDate(0, 0, -10), first.createdAt)
	assert.Equal(t, now.AddDate(0, 0, -85), last.createdAt)
	assert.Equal(t, 3500, last.quantity)

	for _, d := range plan {
		assert.Equal(t, conversionCount(d.quantity, d.rate), d.conversions)
	}
}
