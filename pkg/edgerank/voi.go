package edgerank

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// VOIChange returns the change in variation of information, in bits, when
// two regions of size a and b out of a volume of size total are merged:
//
//	H(a/T, b/T) - H((a+b)/T)
//
// Larger values mean the edge between them matters more.
func VOIChange(a, b, total float64) float64 {
	if total <= 0 {
		return 0
	}
	pa, pb := a/total, b/total
	return (stat.Entropy([]float64{pa, pb}) - stat.Entropy([]float64{pa + pb})) / math.Ln2
}
