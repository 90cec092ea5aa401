// Model ties together the industries, the population and the policy set, and
// advances them one week per Step.
package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/KhuramC/EconomySim-sub000/internal/agents"
	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
	"github.com/KhuramC/EconomySim-sub000/internal/indicators"
)

// Model holds the complete economy state. It is not safe for concurrent use;
// callers serialize access (see internal/registry).
type Model struct {
	Seed                int64
	MaxSimulationLength int
	InflationRate       float64

	Industries    []*agents.Industry // Declaration order
	IndustryIndex map[economy.IndustryType]*agents.Industry
	People        []*agents.Person
	PersonIndex   map[agents.PersonID]*agents.Person

	// Employees maps each industry to its employees in hire order.
	Employees map[economy.IndustryType][]agents.PersonID

	Government Government
	History    indicators.History

	week         int
	policies     *config.Policies
	demographics map[economy.Demographic]config.DemographicConfig
	rng          *rand.Rand
}

// seedStream is the fixed second PCG word; the model seed is the first.
const seedStream = 0x9e3779b97f4a7c15

// New builds a model from a validated configuration. The seed fixes every
// random draw of the run.
func New(cfg *config.ModelConfig, seed int64) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(uint64(seed), seedStream))
	m := &Model{
		Seed:                seed,
		MaxSimulationLength: cfg.MaxSimulationLength,
		InflationRate:       cfg.InflationRate,
		IndustryIndex:       make(map[economy.IndustryType]*agents.Industry, economy.NumIndustries),
		Employees:           make(map[economy.IndustryType][]agents.PersonID, economy.NumIndustries),
		policies:            cfg.Policies.Clone(),
		demographics:        maps.Clone(cfg.Demographics),
		rng:                 rng,
	}

	for _, t := range economy.AllIndustries() {
		ind := agents.NewIndustry(t, cfg.Industries[t])
		m.Industries = append(m.Industries, ind)
		m.IndustryIndex[t] = ind
	}

	m.People = agents.NewSpawner(rng).SpawnPopulation(cfg)
	m.PersonIndex = make(map[agents.PersonID]*agents.Person, len(m.People))
	for _, p := range m.People {
		m.PersonIndex[p.ID] = p
		if p.Employed() {
			m.Employees[*p.Employer] = append(m.Employees[*p.Employer], p.ID)
			m.IndustryIndex[*p.Employer].NumEmployees++
		}
	}
	for _, ind := range m.Industries {
		ind.DesiredEmployees = ind.NumEmployees
	}

	m.record()
	slog.Debug("model created",
		"people", len(m.People),
		"weeks", m.MaxSimulationLength,
		"seed", seed,
	)
	return m, nil
}

// Week is the number of completed steps.
func (m *Model) Week() int { return m.week }

// Finished reports whether the model has reached its horizon.
func (m *Model) Finished() bool { return m.week >= m.MaxSimulationLength }

// Policies returns a copy of the current policy set.
func (m *Model) Policies() *config.Policies { return m.policies.Clone() }

// SetPolicies validates p and replaces the policy set with a copy of it.
func (m *Model) SetPolicies(p *config.Policies) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.policies = p.Clone()
	return nil
}

// Step advances the model one week. At the horizon it is a no-op. Pricing
// and cost errors abort the week and are returned; the partial week is still
// recorded so the history stays contiguous.
func (m *Model) Step() error {
	if m.Finished() {
		return nil
	}
	m.week++
	m.Government.Week = Ledger{}

	if err := m.runWeek(); err != nil {
		m.record()
		slog.Warn("week aborted", "week", m.week, "error", err)
		return fmt.Errorf("week %d: %w", m.week, err)
	}
	m.reclassify()
	m.record()
	return nil
}

func (m *Model) runWeek() error {
	pol := m.policies
	ledger := &m.Government.Week

	for _, ind := range m.Industries {
		ind.ApplyInflation(m.InflationRate)
		ind.ResetTick()
	}

	// Industry phases.
	for _, ind := range m.shuffledIndustries() {
		if err := ind.DeterminePrice(pol); err != nil {
			return err
		}
	}
	for _, ind := range m.shuffledIndustries() {
		if err := ind.ProduceGoods(pol); err != nil {
			return err
		}
		ledger.PropertyTax += ind.PropertyTaxPaid
		ledger.Tariffs += ind.TariffPaid
		ledger.Subsidies += ind.SubsidyReceived
	}
	for _, ind := range m.shuffledIndustries() {
		if n := ind.ChangeEmployment(pol); n > 0 {
			m.layOff(ind, n)
		}
	}

	// Person phases.
	for _, p := range m.shuffledPeople() {
		ledger.PersonalIncomeTax += p.Payday(pol)
		for _, b := range p.PurchaseGoods(pol, m.Industries) {
			ledger.SalesTax += b.SalesTax
		}
	}
	for _, p := range m.shuffledPeople() {
		p.ChangeEmployment(m)
	}

	// Settlement.
	for _, ind := range m.Industries {
		ledger.CorporateTax += ind.DeductCorporateTax(pol)
		ind.LastProfit = ind.Profit()
	}
	m.Government.Balance += ledger.Net()
	return nil
}

// reclassify moves persons between income classes against the median income;
// preferences and elasticity follow the class.
func (m *Model) reclassify() {
	incomes := make([]float64, len(m.People))
	for i, p := range m.People {
		incomes[i] = p.Income
	}
	median := indicators.Median(incomes)
	moved := 0
	for _, p := range m.People {
		if !p.UpdateClass(median) {
			continue
		}
		moved++
		dc := m.demographics[p.Demographic]
		p.Preferences = maps.Clone(dc.SpendingBehavior)
		p.Sigma = dc.Sigma
		if p.Sigma <= 0 {
			p.Sigma = config.DefaultSigma(p.Demographic)
		}
	}
	if moved > 0 {
		slog.Debug("reclassified persons", "week", m.week, "moved", moved, "median_income", median)
	}
}

func (m *Model) record() {
	row, industries, demographics := indicators.Collect(m.week, m.People, m.Industries, indicators.Fiscal{
		TaxRevenue:        m.Government.Week.Revenue(),
		GovernmentBalance: m.Government.Balance,
	})
	m.History.Record(row, industries, demographics)
}

func (m *Model) shuffledIndustries() []*agents.Industry {
	out := slices.Clone(m.Industries)
	m.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (m *Model) shuffledPeople() []*agents.Person {
	out := slices.Clone(m.People)
	m.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Latest returns the most recent indicator row.
func (m *Model) Latest() indicators.IndicatorRow {
	row, _ := m.History.Latest()
	return row
}

// Lorenz returns the Lorenz curve of the current person balances. Its Gini
// matches the latest indicator row.
func (m *Model) Lorenz() indicators.LorenzCurve {
	return indicators.BalanceLorenz(m.week, m.People)
}

// Summary is a compact view of a model for listings.
type Summary struct {
	Week                int                     `json:"week"`
	MaxSimulationLength int                     `json:"max_simulation_length"`
	Population          int                     `json:"population"`
	Seed                int64                   `json:"seed"`
	GovernmentBalance   float64                 `json:"government_balance"`
	Latest              indicators.IndicatorRow `json:"latest"`
}

// Summary reports the model's current position.
func (m *Model) Summary() Summary {
	return Summary{
		Week:                m.week,
		MaxSimulationLength: m.MaxSimulationLength,
		Population:          len(m.People),
		Seed:                m.Seed,
		GovernmentBalance:   m.Government.Balance,
		Latest:              m.Latest(),
	}
}
