package edgerank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func voiByHand(a, b, total float64) float64 {
	term := func(p float64) float64 {
		if p == 0 {
			return 0
		}
		return p * math.Log2(p)
	}
	return -(term(a/total) + term(b/total) - term((a+b)/total))
}

func TestVOIChange(t *testing.T) {
	tests := []struct {
		name     string
		a, b, tt float64
	}{
		{"even split", 50, 50, 100},
		{"small into large", 100, 5000, 5150},
		{"tiny", 0.1, 0.1, 15},
		{"oversized reference", 25000, 40, 5150},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, voiByHand(tc.a, tc.b, tc.tt), VOIChange(tc.a, tc.b, tc.tt), 1e-12)
			assert.InDelta(t, VOIChange(tc.b, tc.a, tc.tt), VOIChange(tc.a, tc.b, tc.tt), 1e-12)
		})
	}

	assert.InDelta(t, 1.0, VOIChange(50, 50, 100), 1e-12)
	assert.Equal(t, 0.0, VOIChange(10, 0, 100))
	assert.Equal(t, 0.0, VOIChange(10, 10, 0))
}
