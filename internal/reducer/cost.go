package reducer

import (
	"math"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

// PurchaseCost returns the total cost of buying n more units of g when
// owned units are already held. Unit i (0-based from owned) costs
// ceil(base * multiplier^(owned+i)) per resource.
//
// Buying more than MaxGeneratorCount units costs +Inf, as does any sum
// that overflows, so such purchases are never affordable.
func PurchaseCost(g content.Generator, owned, n int) map[string]float64 {
	total := make(map[string]float64, len(g.Cost))
	mult := g.Multiplier()
	for item, base := range g.Cost {
		if n > state.MaxGeneratorCount {
			total[item] = math.Inf(1)
			continue
		}
		total[item] = purchaseSum(base, mult, owned, n)
	}
	return total
}

func purchaseSum(base, mult float64, owned, n int) float64 {
	if n <= 0 {
		return 0
	}
	if mult == 1 {
		return math.Ceil(base) * float64(n)
	}
	var sum float64
	for i := 0; i < n; i++ {
		unit := math.Ceil(base * math.Pow(mult, float64(owned+i)))
		sum += unit
		if math.IsInf(sum, 1) {
			return sum
		}
		// a shrinking price bottoms out at one unit of the resource
		if mult < 1 && unit <= 1 {
			return sum + unit*float64(n-i-1)
		}
	}
	return sum
}

// SellRefund returns the refund for selling n of owned units: half the
// purchase price of each removed unit (counting down from the top),
// rounded down per unit. n is clamped to owned.
func SellRefund(g content.Generator, owned, n int) map[string]float64 {
	total := make(map[string]float64, len(g.Cost))
	mult := g.Multiplier()
	n = min(n, owned)
	for item, base := range g.Cost {
		total[item] = refundSum(base, mult, owned, n)
	}
	return total
}

func refundSum(base, mult float64, owned, n int) float64 {
	if n <= 0 {
		return 0
	}
	if mult == 1 {
		return math.Floor(base*0.5) * float64(n)
	}
	var sum float64
	for i := 0; i < n; i++ {
		unit := math.Floor(base * math.Pow(mult, float64(owned-1-i)) * 0.5)
		sum += unit
		if math.IsInf(sum, 1) {
			return sum
		}
		// lower units only get cheaper
		if mult > 1 && unit == 0 {
			return sum
		}
	}
	return sum
}

// CanAfford reports whether the inventory covers every resource in cost.
func CanAfford(s state.SavedState, cost map[string]float64) bool {
	for item, amount := range cost {
		if amount <= 0 {
			continue
		}
		if s.Items[item].Count < amount {
			return false
		}
	}
	return true
}
