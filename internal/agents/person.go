package agents

import (
	"cmp"
	"math"
	"slices"

	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

// MaxApplications is how many openings an unemployed person tries per tick.
const MaxApplications = 3

// PersonID identifies a person within one model.
type PersonID uint64

// Person is a consumer and worker.
type Person struct {
	ID          PersonID                         `json:"id"`
	Demographic economy.Demographic              `json:"demographic"`
	Income      float64                          `json:"income"` // Weekly, before tax
	Employer    *economy.IndustryType            `json:"employer,omitempty"`
	Balance     float64                          `json:"balance"`
	Preferences map[economy.IndustryType]float64 `json:"preferences"`
	Sigma       float64                          `json:"sigma"`

	// IndustrySavings accumulates fractional demand per good until a whole
	// unit can be bought.
	IndustrySavings map[economy.IndustryType]float64 `json:"industry_savings"`
}

// Employed reports whether the person has an employer.
func (p *Person) Employed() bool {
	return p.Employer != nil
}

// Payday credits weekly income net of personal income tax and returns the
// tax withheld.
func (p *Person) Payday(pol *config.Policies) float64 {
	tax := pol.PersonalIncomeTax.Tax(p.Income)
	p.Balance += p.Income - tax
	return tax
}

// Purchase is the outcome of one good in a person's shopping trip.
type Purchase struct {
	Industry economy.IndustryType
	Units    int
	Spent    float64 // Including sales tax
	SalesTax float64
}

// PurchaseGoods allocates weekly income across goods with CES demand at
// tax-inclusive prices and buys whole units from industries in the given
// order. It returns what was bought.
func (p *Person) PurchaseGoods(pol *config.Policies, industries []*Industry) []Purchase {
	prices := make(map[economy.IndustryType]float64, len(industries))
	for _, ind := range industries {
		prices[ind.Type] = ind.Price * (1 + pol.SalesRate(ind.Type))
	}
	desired := economy.CESDemand(p.Sigma, math.Max(0, p.Income), p.Preferences, prices)

	if p.IndustrySavings == nil {
		p.IndustrySavings = make(map[economy.IndustryType]float64, len(industries))
	}

	var bought []Purchase
	for _, ind := range industries {
		q := desired[ind.Type]
		price := prices[ind.Type]
		if q <= 0 || price <= 0 {
			continue
		}
		p.IndustrySavings[ind.Type] += q * price

		units := min(economy.CustomRound(p.IndustrySavings[ind.Type]/price), ind.InventoryAvailableThisStep)
		if units <= 0 || !ind.SellGoods(units) {
			continue
		}
		cost := float64(units) * price
		p.IndustrySavings[ind.Type] = math.Max(0, p.IndustrySavings[ind.Type]-cost)
		p.Balance -= cost
		bought = append(bought, Purchase{
			Industry: ind.Type,
			Units:    units,
			Spent:    cost,
			SalesTax: float64(units) * ind.Price * pol.SalesRate(ind.Type),
		})
	}
	return bought
}

// JobMarket hands out openings and accepts hires.
type JobMarket interface {
	// Openings lists industries currently below their desired headcount.
	Openings() []*Industry
	// Hire employs p at ind if the opening is still there.
	Hire(p *Person, ind *Industry) bool
}

// ChangeEmployment lets an unemployed person apply to the best-paying
// openings, stopping at the first hire.
func (p *Person) ChangeEmployment(m JobMarket) bool {
	if p.Employed() {
		return false
	}
	openings := slices.Clone(m.Openings())
	slices.SortStableFunc(openings, func(a, b *Industry) int {
		return cmp.Compare(b.OfferedWage, a.OfferedWage)
	})
	for i, ind := range openings {
		if i >= MaxApplications {
			break
		}
		if m.Hire(p, ind) {
			return true
		}
	}
	return false
}

// ClassFor places an income relative to the population median.
func ClassFor(income, median float64) economy.Demographic {
	switch {
	case income < 0.67*median:
		return economy.DemographicLower
	case income > 2*median:
		return economy.DemographicUpper
	default:
		return economy.DemographicMiddle
	}
}

// UpdateClass reclassifies the person against the median income and reports
// whether the class changed.
func (p *Person) UpdateClass(median float64) bool {
	d := ClassFor(p.Income, median)
	if d == p.Demographic {
		return false
	}
	p.Demographic = d
	return true
}
