package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

// Bracket is one step of a progressive income tax schedule.
type Bracket struct {
	Threshold float64 `json:"threshold"`
	Rate      float64 `json:"rate"`
}

// IncomeTax is either a bracketed schedule or a flat rate. In documents it is
// written as a list of {threshold, rate} objects or as a bare number.
type IncomeTax struct {
	Brackets []Bracket
	Flat     *float64
}

// FlatIncomeTax returns a flat-rate schedule.
func FlatIncomeTax(rate float64) IncomeTax {
	return IncomeTax{Flat: &rate}
}

// Tax returns the tax owed on a weekly income. Brackets are applied from the
// highest threshold down; each taxes the slice between its threshold and the
// threshold processed before it (or the income itself for the top bracket).
func (t IncomeTax) Tax(income float64) float64 {
	if income <= 0 {
		return 0
	}
	if t.Flat != nil {
		return income * *t.Flat
	}

	sorted := slices.Clone(t.Brackets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Threshold > sorted[j].Threshold })

	tax := 0.0
	upper := income
	for _, b := range sorted {
		if b.Threshold < upper {
			tax += (upper - b.Threshold) * b.Rate
			upper = b.Threshold
		}
	}
	return tax
}

func (t IncomeTax) defined() bool {
	return t.Flat != nil || len(t.Brackets) > 0
}

func (t IncomeTax) MarshalJSON() ([]byte, error) {
	if t.Flat != nil {
		return json.Marshal(*t.Flat)
	}
	if t.Brackets == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Brackets)
}

func (t *IncomeTax) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = IncomeTax{}
		return nil
	}
	if b[0] == '[' {
		var brackets []Bracket
		if err := json.Unmarshal(b, &brackets); err != nil {
			return fmt.Errorf("personal_income_tax brackets: %w", err)
		}
		*t = IncomeTax{Brackets: brackets}
		return nil
	}
	var rate float64
	if err := json.Unmarshal(b, &rate); err != nil {
		return fmt.Errorf("personal_income_tax must be a rate or a bracket list: %w", err)
	}
	*t = FlatIncomeTax(rate)
	return nil
}

// Policies is the mutable policy configuration owned by a model. Agents read
// it through explicit arguments and never mutate it.
type Policies struct {
	CorporateIncomeTax map[economy.IndustryType]float64  `json:"corporate_income_tax"`
	PersonalIncomeTax  IncomeTax                         `json:"personal_income_tax"`
	SalesTax           map[economy.IndustryType]float64  `json:"sales_tax"`
	PropertyTax        float64                           `json:"property_tax"`
	Tariffs            map[economy.IndustryType]float64  `json:"tariffs"`
	Subsidies          map[economy.IndustryType]float64  `json:"subsidies"`
	PriceCap           map[economy.IndustryType]*float64 `json:"price_cap"` // nil entry = no cap
	MinimumWage        float64                           `json:"minimum_wage"`
}

// DefaultPolicies returns a moderate policy set covering every industry.
func DefaultPolicies() *Policies {
	p := &Policies{
		CorporateIncomeTax: make(map[economy.IndustryType]float64, economy.NumIndustries),
		PersonalIncomeTax: IncomeTax{Brackets: []Bracket{
			{Threshold: 0, Rate: 0.10},
			{Threshold: 230, Rate: 0.12},
			{Threshold: 900, Rate: 0.22},
			{Threshold: 1900, Rate: 0.24},
			{Threshold: 3600, Rate: 0.32},
			{Threshold: 4600, Rate: 0.35},
			{Threshold: 11500, Rate: 0.37},
		}},
		SalesTax:    make(map[economy.IndustryType]float64, economy.NumIndustries),
		PropertyTax: 0.001,
		Tariffs:     make(map[economy.IndustryType]float64, economy.NumIndustries),
		Subsidies:   make(map[economy.IndustryType]float64, economy.NumIndustries),
		PriceCap:    make(map[economy.IndustryType]*float64, economy.NumIndustries),
		MinimumWage: 7.25,
	}
	for _, t := range economy.AllIndustries() {
		p.CorporateIncomeTax[t] = 0.21
		p.SalesTax[t] = 0.07
		p.Tariffs[t] = 0
		p.Subsidies[t] = 0
		p.PriceCap[t] = nil
	}
	p.SalesTax[economy.IndustryHousing] = 0
	return p
}

// Validate performs the structural check applied at model construction and
// on every policy update: every per-industry mapping must name every industry,
// and the income tax must be defined in one of its two forms.
func (p *Policies) Validate() error {
	if p == nil {
		return invalid("policies", "policies are required")
	}
	rateMaps := []struct {
		key string
		m   map[economy.IndustryType]float64
	}{
		{"corporate_income_tax", p.CorporateIncomeTax},
		{"sales_tax", p.SalesTax},
		{"tariffs", p.Tariffs},
		{"subsidies", p.Subsidies},
	}
	for _, rm := range rateMaps {
		if missing := missingIndustries(rm.m); len(missing) > 0 {
			return missingKeys("policies."+rm.key, missing)
		}
	}
	if missing := missingIndustries(p.PriceCap); len(missing) > 0 {
		return missingKeys("policies.price_cap", missing)
	}
	if !p.PersonalIncomeTax.defined() {
		return invalid("policies.personal_income_tax", "expected a flat rate or at least one bracket")
	}
	return nil
}

func missingIndustries[V any](m map[economy.IndustryType]V) []string {
	var missing []string
	for _, t := range economy.AllIndustries() {
		if _, ok := m[t]; !ok {
			missing = append(missing, t.String())
		}
	}
	return missing
}

// Clone returns a deep copy so callers never alias a model's policies.
func (p *Policies) Clone() *Policies {
	if p == nil {
		return nil
	}
	out := &Policies{
		CorporateIncomeTax: maps.Clone(p.CorporateIncomeTax),
		PersonalIncomeTax:  IncomeTax{Brackets: slices.Clone(p.PersonalIncomeTax.Brackets)},
		SalesTax:           maps.Clone(p.SalesTax),
		PropertyTax:        p.PropertyTax,
		Tariffs:            maps.Clone(p.Tariffs),
		Subsidies:          maps.Clone(p.Subsidies),
		PriceCap:           make(map[economy.IndustryType]*float64, len(p.PriceCap)),
		MinimumWage:        p.MinimumWage,
	}
	if p.PersonalIncomeTax.Flat != nil {
		rate := *p.PersonalIncomeTax.Flat
		out.PersonalIncomeTax.Flat = &rate
	}
	for t, c := range p.PriceCap {
		if c == nil {
			out.PriceCap[t] = nil
			continue
		}
		v := *c
		out.PriceCap[t] = &v
	}
	return out
}

func (p *Policies) CorporateRate(t economy.IndustryType) float64 { return p.CorporateIncomeTax[t] }
func (p *Policies) SalesRate(t economy.IndustryType) float64     { return p.SalesTax[t] }
func (p *Policies) TariffRate(t economy.IndustryType) float64    { return p.Tariffs[t] }
func (p *Policies) SubsidyRate(t economy.IndustryType) float64   { return p.Subsidies[t] }

// PriceCapFor returns the configured cap for t, or nil when disabled.
func (p *Policies) PriceCapFor(t economy.IndustryType) *float64 { return p.PriceCap[t] }
