package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		count int64
		want  Quality
	}{
		{0, QualityTooNarrow},
		{999, QualityTooNarrow},
		{1_000, QualityGood},
		{45_000, QualityGood},
		{1_000_000, QualityGood},
		{1_000_001, QualityTooBroad},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.count), "count %d", tt.count)
	}
}

func TestFormatCount(t *testing.T) {
	tests := map[int64]string{
		0:         "0",
		950:       "950",
		1_000:     "1.0K",
		999_949:   "999.9K",
		999_950:   "1.0M",
		999_999:   "1.0M",
		-999_999:  "-1.0M",
		45_000:    "45.0K",
		1_250_000: "1.2M",
		2_000_000: "2.0M",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCount(in), "count %d", in)
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := map[float64]string{
		0:           "$0.00",
		0.12:        "$0.12",
		5400:        "$5,400.00",
		1234567.891: "$1,234,567.89",
		-60:         "-$60.00",
		-0.004:      "$0.00",
		-0.005:      "-$0.01",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCurrency(in), "amount %v", in)
	}
}
