// CES demand allocation across goods.
package economy

import "math"

// roundUpWindow is how close to the next integer a quantity must be for
// CustomRound to round it up.
const roundUpWindow = 0.05

const floatTolerance = 1e-9

// CESDemand allocates budget across goods by constant-elasticity-of-substitution
// demand:
//
//	q_i = budget · w_i^σ · p_i^(−σ) / Σ_j w_j^σ · p_j^(1−σ)
//
// Only goods with both a weight and a positive price participate. Quantities
// are returned unrounded; a zero denominator yields zero demand everywhere.
func CESDemand(sigma, budget float64, weights, prices map[IndustryType]float64) map[IndustryType]float64 {
	budget = math.Max(0, budget)
	out := make(map[IndustryType]float64, len(weights))

	// Iterate in declaration order so the floating-point sum is reproducible.
	var goods []IndustryType
	denom := 0.0
	for _, t := range AllIndustries() {
		w, okW := weights[t]
		p, okP := prices[t]
		if !okW || !okP || p <= 0 {
			continue
		}
		goods = append(goods, t)
		denom += math.Pow(w, sigma) * math.Pow(p, 1-sigma)
	}

	for _, t := range goods {
		if denom == 0 {
			out[t] = 0
			continue
		}
		out[t] = budget * math.Pow(weights[t], sigma) * math.Pow(prices[t], -sigma) / denom
	}
	return out
}

// CustomRound rounds x up when it is within 0.05 of the next integer and down
// otherwise, so floating-point shortfalls do not suppress a whole-unit purchase.
func CustomRound(x float64) int {
	c := math.Ceil(x)
	if c-x <= roundUpWindow+floatTolerance {
		return int(c)
	}
	return int(math.Floor(x))
}
