// Pricing solver: price/quantity selection against a linear inverse-demand curve.
package economy

import (
	"errors"
	"math"

	"golang.org/x/exp/constraints"
)

// ErrDegenerateSlope is returned when 2B+n == 0 in the profit-maximizing
// solution. It indicates a configuration error, not a runtime condition.
var ErrDegenerateSlope = errors.New("degenerate demand/cost slope: 2B+n == 0")

// DemandCurve is the linear inverse-demand curve P = A − B·Q.
type DemandCurve struct {
	Intercept float64 `json:"intercept"` // A
	Slope     float64 `json:"slope"`     // B
}

// PriceAt reads the price off the curve at quantity q.
func (d DemandCurve) PriceAt(q float64) float64 {
	return d.Intercept - d.Slope*q
}

// QuantityAt returns the quantity demanded at price p, never negative.
func (d DemandCurve) QuantityAt(p float64) float64 {
	if d.Slope <= 0 {
		return 0
	}
	return math.Max(0, (d.Intercept-p)/d.Slope)
}

// Quote is the result of a pricing decision. Roots and Fallback are
// diagnostic and only populated by the average-cost path.
type Quote struct {
	Price    float64         `json:"price"`
	Quantity int             `json:"quantity"`
	Strategy PricingStrategy `json:"strategy"` // Strategy that produced the quote after any fallback
	Fallback bool            `json:"fallback"`
	Capped   bool            `json:"capped"`
	Roots    []float64       `json:"roots,omitempty"`
}

// SolvePrice computes a quote with the given strategy. qMax is the most the
// industry could offer this tick (inventory plus production capacity).
func SolvePrice(strategy PricingStrategy, d DemandCurve, variableCost, fixedCost float64, qMax int) (Quote, error) {
	switch strategy {
	case LinearProfitMax:
		return LinearProfitMaxQuote(d, variableCost, 0, qMax)
	default:
		return AverageCostQuote(d, variableCost, fixedCost, qMax)
	}
}

// LinearProfitMaxQuote solves MR = MC for linear demand and marginal cost
// MC = m + n·Q: Q* = (A−m)/(2B+n), clamped to [0, qMax] and rounded.
func LinearProfitMaxQuote(d DemandCurve, m, n float64, qMax int) (Quote, error) {
	denom := 2*d.Slope + n
	if denom == 0 {
		return Quote{}, ErrDegenerateSlope
	}
	qStar := Clamp((d.Intercept-m)/denom, 0, float64(max(qMax, 0)))
	q := int(math.Round(qStar))
	return Quote{
		Price:    RoundCents(d.PriceAt(float64(q))),
		Quantity: q,
		Strategy: LinearProfitMax,
	}, nil
}

// AverageCostQuote finds the quantity where price equals average total cost,
// i.e. the larger root of B·Q² + (V−A)·Q + F = 0. When no cost-covering
// quantity exists it falls back to marginal-cost pricing.
func AverageCostQuote(d DemandCurve, v, f float64, qMax int) (Quote, error) {
	roots := quadraticRoots(d.Slope, v-d.Intercept, f)

	if len(roots) > 0 && d.Slope > 0 {
		larger := roots[len(roots)-1]
		if larger > 0 && larger <= d.Intercept/d.Slope {
			q := int(math.Round(Clamp(larger, 0, float64(max(qMax, 0)))))
			return Quote{
				Price:    RoundCents(d.PriceAt(float64(q))),
				Quantity: q,
				Strategy: AverageCost,
				Roots:    roots,
			}, nil
		}
	}

	quote, err := LinearProfitMaxQuote(d, v, 0, qMax)
	if err != nil {
		return Quote{}, err
	}
	quote.Fallback = true
	quote.Roots = roots
	if quote.Quantity <= 0 {
		quote.Quantity = 0
		quote.Price = d.Intercept
	}
	return quote, nil
}

// ApplyPriceCap limits the week-over-week price increase to capPct over prev.
// A nil cap or a zero previous price (first decision) leaves the quote as is.
// A cap at or below variable cost forces quantity to zero.
func ApplyPriceCap(q Quote, d DemandCurve, prev float64, capPct *float64, variableCost float64, qMax int) Quote {
	if capPct == nil || prev == 0 {
		return q
	}
	ceiling := RoundCents(prev * (1 + *capPct))
	if ceiling >= q.Price {
		return q
	}

	q.Price = ceiling
	q.Capped = true
	if ceiling <= variableCost {
		q.Quantity = 0
		return q
	}
	q.Quantity = int(math.Round(Clamp(d.QuantityAt(ceiling), 0, float64(max(qMax, 0)))))
	return q
}

// quadraticRoots returns the real roots of a·x² + b·x + c in ascending order.
func quadraticRoots(a, b, c float64) []float64 {
	if a == 0 {
		if b == 0 {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	r1 := (-b - sq) / (2 * a)
	r2 := (-b + sq) / (2 * a)
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if disc == 0 {
		return []float64{r1}
	}
	return []float64{r1, r2}
}

// RoundCents rounds to 2 decimal places.
func RoundCents(x float64) float64 {
	return math.Round(x*100) / 100
}

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
