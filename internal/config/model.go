package config

import (
	"math"

	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

// Distribution is an arithmetic mean/standard deviation pair. The spawner
// moment-matches it to a lognormal.
type Distribution struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// DemographicConfig describes one income class of the starting population.
type DemographicConfig struct {
	Income           Distribution                     `json:"income"`
	Proportion       float64                          `json:"proportion"`
	UnemploymentRate float64                          `json:"unemployment_rate"`
	SpendingBehavior map[economy.IndustryType]float64 `json:"spending_behavior"`
	Balance          Distribution                     `json:"balance"`
	Sigma            float64                          `json:"sigma,omitempty"` // 0 = class default
}

// IndustryConfig is the starting state of one industry. Only the starting_*
// fields are required; absent cost and demand fields take the industry
// defaults from DefaultIndustry. An explicit zero is kept.
type IndustryConfig struct {
	StartingPrice       float64 `json:"starting_price"`
	StartingInventory   int     `json:"starting_inventory"`
	StartingBalance     float64 `json:"starting_balance"`
	StartingOfferedWage float64 `json:"starting_offered_wage"`

	PricingStrategy  *economy.PricingStrategy `json:"pricing_strategy,omitempty"`
	WorkerEfficiency *float64                 `json:"worker_efficiency,omitempty"`
	RawMaterialCost  *float64                 `json:"raw_material_cost,omitempty"`
	DemandIntercept  *float64                 `json:"demand_intercept,omitempty"`
	DemandSlope      *float64                 `json:"demand_slope,omitempty"`
	Salary           *float64                 `json:"salary,omitempty"`
	PropertyValue    *float64                 `json:"property_value,omitempty"`
	Insurance        *float64                 `json:"insurance,omitempty"`
	Equipment        *float64                 `json:"equipment,omitempty"`
	DebtAllowed      *bool                    `json:"debt_allowed,omitempty"`
}

// ModelConfig is everything needed to construct a model.
type ModelConfig struct {
	MaxSimulationLength int                                       `json:"max_simulation_length"`
	NumPeople           int                                       `json:"num_people"`
	InflationRate       float64                                   `json:"inflation_rate"`
	Demographics        map[economy.Demographic]DemographicConfig `json:"demographics"`
	Industries          map[economy.IndustryType]IndustryConfig   `json:"industries"`
	Policies            *Policies                                 `json:"policies"`
}

const weightTolerance = 1e-6

// Validate runs the structural checks for a model configuration plus the
// scalar bounds the controller contract requires.
func (c *ModelConfig) Validate() error {
	if c == nil {
		return invalid("", "model configuration is required")
	}
	if c.MaxSimulationLength <= 0 {
		return invalid("max_simulation_length", "must be > 0, got %d", c.MaxSimulationLength)
	}
	if c.NumPeople <= 0 {
		return invalid("num_people", "must be > 0, got %d", c.NumPeople)
	}
	if c.InflationRate < 0 || math.IsNaN(c.InflationRate) {
		return invalid("inflation_rate", "must be >= 0, got %v", c.InflationRate)
	}

	var missing []string
	for _, d := range economy.AllDemographics() {
		if _, ok := c.Demographics[d]; !ok {
			missing = append(missing, d.String())
		}
	}
	if len(missing) > 0 {
		return missingKeys("demographics", missing)
	}
	proportions := 0.0
	for _, d := range economy.AllDemographics() {
		dc := c.Demographics[d]
		path := "demographics." + d.String()
		if m := missingIndustries(dc.SpendingBehavior); len(m) > 0 {
			return missingKeys(path+".spending_behavior", m)
		}
		total := 0.0
		for _, w := range dc.SpendingBehavior {
			total += w
		}
		if math.Abs(total-1) > weightTolerance {
			return invalid(path+".spending_behavior", "weights must sum to 1, got %v", total)
		}
		proportions += dc.Proportion
	}
	if math.Abs(proportions-1) > weightTolerance {
		return invalid("demographics", "proportions must sum to 1, got %v", proportions)
	}

	if m := missingIndustries(c.Industries); len(m) > 0 {
		return missingKeys("industries", m)
	}
	for t, ic := range c.Industries {
		if slope := *ic.WithDefaults(t).DemandSlope; !(slope > 0) {
			return invalid("industries."+t.String()+".demand_slope", "must be > 0, got %v", slope)
		}
	}

	if c.Policies == nil {
		return missingKeys("", []string{"policies"})
	}
	return c.Policies.Validate()
}

// WithDefaults fills absent optional fields from DefaultIndustry(t). Every
// pointer field of the result is non-nil.
func (ic IndustryConfig) WithDefaults(t economy.IndustryType) IndustryConfig {
	def := DefaultIndustry(t)
	out := ic
	if out.PricingStrategy == nil {
		out.PricingStrategy = def.PricingStrategy
	}
	fill := func(v **float64, d *float64) {
		if *v == nil {
			*v = d
		}
	}
	fill(&out.WorkerEfficiency, def.WorkerEfficiency)
	fill(&out.RawMaterialCost, def.RawMaterialCost)
	fill(&out.DemandIntercept, def.DemandIntercept)
	fill(&out.DemandSlope, def.DemandSlope)
	fill(&out.Salary, def.Salary)
	fill(&out.PropertyValue, def.PropertyValue)
	fill(&out.Insurance, def.Insurance)
	fill(&out.Equipment, def.Equipment)
	if out.DebtAllowed == nil {
		out.DebtAllowed = def.DebtAllowed
	}
	return out
}

// DefaultSigma is the class elasticity of substitution used when a
// demographic does not configure one.
func DefaultSigma(d economy.Demographic) float64 {
	switch d {
	case economy.DemographicLower:
		return 1.5
	case economy.DemographicUpper:
		return 0.7
	default:
		return 1.0
	}
}

func strategy(s economy.PricingStrategy) *economy.PricingStrategy { return &s }
func flag(b bool) *bool                                            { return &b }
func num(v float64) *float64                                       { return &v }

// DefaultIndustry returns the built-in cost and demand profile of an industry.
func DefaultIndustry(t economy.IndustryType) IndustryConfig {
	switch t {
	case economy.IndustryGroceries:
		return IndustryConfig{
			StartingPrice: 10, StartingInventory: 500, StartingBalance: 50_000, StartingOfferedWage: 16,
			PricingStrategy: strategy(economy.AverageCost), WorkerEfficiency: num(5), RawMaterialCost: num(2),
			DemandIntercept: num(25), DemandSlope: num(0.005),
			Salary: num(3_000), PropertyValue: num(200_000), Insurance: num(400), Equipment: num(600), DebtAllowed: flag(false),
		}
	case economy.IndustryUtilities:
		return IndustryConfig{
			StartingPrice: 80, StartingInventory: 100, StartingBalance: 80_000, StartingOfferedWage: 22,
			PricingStrategy: strategy(economy.AverageCost), WorkerEfficiency: num(1), RawMaterialCost: num(20),
			DemandIntercept: num(150), DemandSlope: num(0.1),
			Salary: num(4_000), PropertyValue: num(500_000), Insurance: num(800), Equipment: num(1_500), DebtAllowed: flag(true),
		}
	case economy.IndustryAutomobiles:
		return IndustryConfig{
			StartingPrice: 450, StartingInventory: 20, StartingBalance: 200_000, StartingOfferedWage: 28,
			PricingStrategy: strategy(economy.LinearProfitMax), WorkerEfficiency: num(0.1), RawMaterialCost: num(150),
			DemandIntercept: num(900), DemandSlope: num(5),
			Salary: num(6_000), PropertyValue: num(800_000), Insurance: num(2_000), Equipment: num(3_000), DebtAllowed: flag(false),
		}
	case economy.IndustryHousing:
		return IndustryConfig{
			StartingPrice: 350, StartingInventory: 200, StartingBalance: 300_000, StartingOfferedWage: 20,
			PricingStrategy: strategy(economy.AverageCost), WorkerEfficiency: num(0.2), RawMaterialCost: num(120),
			DemandIntercept: num(700), DemandSlope: num(1),
			Salary: num(5_000), PropertyValue: num(2_000_000), Insurance: num(3_000), Equipment: num(1_000), DebtAllowed: flag(true),
		}
	case economy.IndustryHouseholdGoods:
		return IndustryConfig{
			StartingPrice: 40, StartingInventory: 200, StartingBalance: 40_000, StartingOfferedWage: 17,
			PricingStrategy: strategy(economy.AverageCost), WorkerEfficiency: num(2), RawMaterialCost: num(12),
			DemandIntercept: num(90), DemandSlope: num(0.05),
			Salary: num(2_000), PropertyValue: num(150_000), Insurance: num(300), Equipment: num(500), DebtAllowed: flag(false),
		}
	case economy.IndustryEntertainment:
		return IndustryConfig{
			StartingPrice: 25, StartingInventory: 300, StartingBalance: 30_000, StartingOfferedWage: 15,
			PricingStrategy: strategy(economy.LinearProfitMax), WorkerEfficiency: num(3), RawMaterialCost: num(5),
			DemandIntercept: num(60), DemandSlope: num(0.03),
			Salary: num(1_500), PropertyValue: num(120_000), Insurance: num(250), Equipment: num(400), DebtAllowed: flag(false),
		}
	default: // luxury
		return IndustryConfig{
			StartingPrice: 300, StartingInventory: 30, StartingBalance: 100_000, StartingOfferedWage: 30,
			PricingStrategy: strategy(economy.LinearProfitMax), WorkerEfficiency: num(0.25), RawMaterialCost: num(100),
			DemandIntercept: num(1_000), DemandSlope: num(4),
			Salary: num(4_000), PropertyValue: num(400_000), Insurance: num(1_000), Equipment: num(1_000), DebtAllowed: flag(false),
		}
	}
}

// DefaultModelConfig returns a complete, valid configuration for numPeople
// persons over maxWeeks weeks.
func DefaultModelConfig(numPeople, maxWeeks int) *ModelConfig {
	spending := map[economy.Demographic]map[economy.IndustryType]float64{
		economy.DemographicLower: {
			economy.IndustryGroceries: 0.30, economy.IndustryUtilities: 0.15, economy.IndustryAutomobiles: 0.05,
			economy.IndustryHousing: 0.35, economy.IndustryHouseholdGoods: 0.08, economy.IndustryEntertainment: 0.06,
			economy.IndustryLuxury: 0.01,
		},
		economy.DemographicMiddle: {
			economy.IndustryGroceries: 0.20, economy.IndustryUtilities: 0.10, economy.IndustryAutomobiles: 0.12,
			economy.IndustryHousing: 0.30, economy.IndustryHouseholdGoods: 0.10, economy.IndustryEntertainment: 0.12,
			economy.IndustryLuxury: 0.06,
		},
		economy.DemographicUpper: {
			economy.IndustryGroceries: 0.10, economy.IndustryUtilities: 0.06, economy.IndustryAutomobiles: 0.15,
			economy.IndustryHousing: 0.27, economy.IndustryHouseholdGoods: 0.10, economy.IndustryEntertainment: 0.12,
			economy.IndustryLuxury: 0.20,
		},
	}

	cfg := &ModelConfig{
		MaxSimulationLength: maxWeeks,
		NumPeople:           numPeople,
		InflationRate:       0.0005,
		Demographics: map[economy.Demographic]DemographicConfig{
			economy.DemographicLower: {
				Income: Distribution{Mean: 600, SD: 200}, Proportion: 0.30, UnemploymentRate: 0.08,
				SpendingBehavior: spending[economy.DemographicLower], Balance: Distribution{Mean: 2_000, SD: 1_000},
			},
			economy.DemographicMiddle: {
				Income: Distribution{Mean: 1_400, SD: 400}, Proportion: 0.55, UnemploymentRate: 0.04,
				SpendingBehavior: spending[economy.DemographicMiddle], Balance: Distribution{Mean: 15_000, SD: 6_000},
			},
			economy.DemographicUpper: {
				Income: Distribution{Mean: 4_000, SD: 1_500}, Proportion: 0.15, UnemploymentRate: 0.02,
				SpendingBehavior: spending[economy.DemographicUpper], Balance: Distribution{Mean: 80_000, SD: 30_000},
			},
		},
		Industries: make(map[economy.IndustryType]IndustryConfig, economy.NumIndustries),
		Policies:   DefaultPolicies(),
	}
	for _, t := range economy.AllIndustries() {
		def := DefaultIndustry(t)
		cfg.Industries[t] = IndustryConfig{
			StartingPrice:       def.StartingPrice,
			StartingInventory:   def.StartingInventory,
			StartingBalance:     def.StartingBalance,
			StartingOfferedWage: def.StartingOfferedWage,
		}
	}
	return cfg
}
