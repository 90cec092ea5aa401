// Package agents provides the industry and person agents and the population
// spawner. Agents hold their own state and mutate it only through their
// phase methods; policies arrive as explicit arguments.
package agents

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

// StandardWorkWeek is the number of hours in a full work week.
const StandardWorkWeek = 40

// ErrNumericDomain is wrapped by every NumericDomainError.
var ErrNumericDomain = errors.New("numeric domain error")

// NumericDomainError reports a NaN or infinite cost input.
type NumericDomainError struct {
	Field string
	Value float64
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("numeric domain error: %s = %v", e.Field, e.Value)
}

func (e *NumericDomainError) Unwrap() error { return ErrNumericDomain }

// FixedCosts are the per-week costs an industry pays regardless of output.
type FixedCosts struct {
	Salary        float64 `json:"salary"`
	PropertyValue float64 `json:"property_value"`
	Insurance     float64 `json:"insurance"`
	Equipment     float64 `json:"equipment"`
}

// Industry is the single agent producing one goods category.
type Industry struct {
	Type     economy.IndustryType    `json:"type"`
	Strategy economy.PricingStrategy `json:"strategy"`

	Price                      float64 `json:"price"`
	Inventory                  int     `json:"inventory"`
	InventoryAvailableThisStep int     `json:"inventory_available_this_step"`
	Balance                    float64 `json:"balance"`
	DebtAllowed                bool    `json:"debt_allowed"`

	// Costs and workforce
	// OfferedWage is hourly; WorkerEfficiency is units per worker-hour and
	// HoursWorked is per employee for the current tick.
	RawMaterialCost  float64    `json:"raw_material_cost"`
	OfferedWage      float64    `json:"offered_wage"`
	WorkerEfficiency float64    `json:"worker_efficiency"`
	NumEmployees     int        `json:"num_employees"`
	DesiredEmployees int        `json:"desired_employees"`
	HoursWorked      float64    `json:"hours_worked"`
	FixedCosts       FixedCosts `json:"fixed_costs"`

	Demand economy.DemandCurve `json:"demand"`

	// Per-tick accounting (reset by ResetTick)
	TotalCost       float64 `json:"total_cost"`
	TotalRevenue    float64 `json:"total_revenue"`
	GoodsProduced   int     `json:"goods_produced"`
	GoodsSold       int     `json:"goods_sold"`
	TariffPaid      float64 `json:"tariff_paid"`
	SubsidyReceived float64 `json:"subsidy_received"`
	PropertyTaxPaid float64 `json:"property_tax_paid"`

	LastProfit float64       `json:"last_profit"`
	LastQuote  economy.Quote `json:"-"`
}

// NewIndustry creates an industry from its configuration; absent optional
// fields take the industry defaults.
func NewIndustry(t economy.IndustryType, ic config.IndustryConfig) *Industry {
	ic = ic.WithDefaults(t)
	return &Industry{
		Type:             t,
		Strategy:         *ic.PricingStrategy,
		Price:            ic.StartingPrice,
		Inventory:        ic.StartingInventory,
		Balance:          ic.StartingBalance,
		DebtAllowed:      *ic.DebtAllowed,
		RawMaterialCost:  *ic.RawMaterialCost,
		OfferedWage:      ic.StartingOfferedWage,
		WorkerEfficiency: *ic.WorkerEfficiency,
		FixedCosts: FixedCosts{
			Salary:        *ic.Salary,
			PropertyValue: *ic.PropertyValue,
			Insurance:     *ic.Insurance,
			Equipment:     *ic.Equipment,
		},
		Demand: economy.DemandCurve{Intercept: *ic.DemandIntercept, Slope: *ic.DemandSlope},
	}
}

// VariableCost returns the per-unit cost: labor (wage / efficiency) plus raw
// material adjusted by tariff surcharge and subsidy discount. Efficiency <= 0
// yields +Inf; NaN or infinite inputs are rejected.
func VariableCost(wage, efficiency, rawCost, tariff, subsidy float64) (float64, error) {
	inputs := []struct {
		name string
		v    float64
	}{
		{"offered_wage", wage},
		{"worker_efficiency", efficiency},
		{"raw_material_cost", rawCost},
		{"tariff", tariff},
		{"subsidy", subsidy},
	}
	for _, in := range inputs {
		if math.IsNaN(in.v) || math.IsInf(in.v, 0) {
			return 0, &NumericDomainError{Field: in.name, Value: in.v}
		}
	}
	if efficiency <= 0 {
		return math.Inf(1), nil
	}
	return wage/efficiency + rawCost*(1-subsidy+tariff), nil
}

// VariableCost applies the industry's tariff and subsidy from p.
func (ind *Industry) VariableCost(p *config.Policies) (float64, error) {
	return VariableCost(ind.OfferedWage, ind.WorkerEfficiency, ind.RawMaterialCost,
		p.TariffRate(ind.Type), p.SubsidyRate(ind.Type))
}

// FixedCost is salary, insurance and equipment plus property tax on the
// industry's property value.
func (ind *Industry) FixedCost(p *config.Policies) float64 {
	fc := ind.FixedCosts
	return fc.Salary + fc.Insurance + fc.Equipment + fc.PropertyValue*p.PropertyTax
}

// ProductionCapacity is the worker-driven ceiling, further limited by funds
// when the industry may not carry debt.
func ProductionCapacity(employees int, efficiency, balance, fixedCost, variableCost float64, debtAllowed bool) int {
	workerLimit := max(0, int(math.Floor(float64(employees)*efficiency*StandardWorkWeek)))
	if debtAllowed {
		return workerLimit
	}
	if fixedCost > balance || math.IsInf(variableCost, 0) || math.IsNaN(variableCost) || variableCost <= 0 {
		return 0
	}
	fundsLimit := max(0, int(math.Floor((balance-fixedCost)/variableCost)))
	return min(workerLimit, fundsLimit)
}

// ProductionCapacity returns how many units the industry can make this tick.
func (ind *Industry) ProductionCapacity(p *config.Policies) (int, error) {
	v, err := ind.VariableCost(p)
	if err != nil {
		return 0, err
	}
	return ProductionCapacity(ind.NumEmployees, ind.WorkerEfficiency, ind.Balance, ind.FixedCost(p), v, ind.DebtAllowed), nil
}

// DeterminePrice sets this tick's price and the quantity released for sale.
func (ind *Industry) DeterminePrice(p *config.Policies) error {
	v, err := ind.VariableCost(p)
	if err != nil {
		return fmt.Errorf("%s variable cost: %w", ind.Type, err)
	}
	capacity, err := ind.ProductionCapacity(p)
	if err != nil {
		return fmt.Errorf("%s capacity: %w", ind.Type, err)
	}
	qMax := ind.Inventory + capacity

	var quote economy.Quote
	if math.IsInf(v, 1) {
		// Nothing can be produced; offer the stock on hand at the demand price.
		q := min(ind.Inventory, int(math.Floor(ind.Demand.QuantityAt(0))))
		quote = economy.Quote{Price: economy.RoundCents(ind.Demand.PriceAt(float64(q))), Quantity: q, Strategy: ind.Strategy}
	} else {
		quote, err = economy.SolvePrice(ind.Strategy, ind.Demand, v, ind.FixedCost(p), qMax)
		if errors.Is(err, economy.ErrDegenerateSlope) {
			return config.Wrap("industries."+ind.Type.String()+".demand_slope", err)
		}
		if err != nil {
			return fmt.Errorf("%s pricing: %w", ind.Type, err)
		}
	}
	quote = economy.ApplyPriceCap(quote, ind.Demand, ind.Price, p.PriceCapFor(ind.Type), v, qMax)

	ind.Price = math.Max(0, quote.Price)
	ind.InventoryAvailableThisStep = quote.Quantity
	ind.LastQuote = quote
	return nil
}

// ProduceGoods makes the shortfall between the sale target and inventory and
// pays for it. Fixed cost is paid even when nothing is produced.
func (ind *Industry) ProduceGoods(p *config.Policies) error {
	fixed := ind.FixedCost(p)
	ind.PropertyTaxPaid = ind.FixedCosts.PropertyValue * p.PropertyTax

	q := max(0, ind.InventoryAvailableThisStep-ind.Inventory)
	v := 0.0
	if q > 0 {
		var err error
		v, err = ind.VariableCost(p)
		if err != nil {
			return fmt.Errorf("%s variable cost: %w", ind.Type, err)
		}
		if math.IsInf(v, 1) || ind.NumEmployees == 0 {
			slog.Debug("production impossible, trimming sale target", "industry", ind.Type, "target", ind.InventoryAvailableThisStep)
			ind.InventoryAvailableThisStep = ind.Inventory
			q = 0
		}
	}

	ind.GoodsProduced = q
	if q == 0 {
		ind.HoursWorked = 0
		ind.TotalCost = fixed
		ind.Balance -= fixed
		return nil
	}

	ind.HoursWorked = float64(q) / (float64(ind.NumEmployees) * ind.WorkerEfficiency)
	ind.Inventory += q
	ind.TariffPaid = ind.RawMaterialCost * p.TariffRate(ind.Type) * float64(q)
	ind.SubsidyReceived = ind.RawMaterialCost * p.SubsidyRate(ind.Type) * float64(q)
	ind.TotalCost = fixed + v*float64(q)
	ind.Balance -= ind.TotalCost
	return nil
}

// SellGoods transfers quantity units to a buyer. Requests above what was
// released for sale this tick are rejected.
func (ind *Industry) SellGoods(quantity int) bool {
	if quantity <= 0 {
		return false
	}
	if quantity > ind.InventoryAvailableThisStep {
		slog.Debug("oversell rejected",
			"industry", ind.Type,
			"requested", quantity,
			"available", ind.InventoryAvailableThisStep,
		)
		return false
	}
	ind.Inventory -= quantity
	ind.InventoryAvailableThisStep -= quantity
	revenue := float64(quantity) * ind.Price
	ind.Balance += revenue
	ind.TotalRevenue += revenue
	ind.GoodsSold += quantity
	return true
}

// Profit is this tick's revenue minus cost.
func (ind *Industry) Profit() float64 {
	return ind.TotalRevenue - ind.TotalCost
}

// DeductCorporateTax pays corporate tax on positive profit and returns it.
func (ind *Industry) DeductCorporateTax(p *config.Policies) float64 {
	tax := p.CorporateRate(ind.Type) * math.Max(0, ind.Profit())
	ind.Balance -= tax
	return tax
}

// WeeklyPay is what one employee earned this tick.
func (ind *Industry) WeeklyPay() float64 {
	return ind.OfferedWage * ind.HoursWorked
}

// DetermineWages raises the offered wage to the minimum wage.
func (ind *Industry) DetermineWages(p *config.Policies) {
	if ind.OfferedWage < p.MinimumWage {
		ind.OfferedWage = p.MinimumWage
	}
}

// ChangeEmployment applies the wage floor, sizes the workforce to the demand
// at the current price, and returns how many employees to lay off. Layoffs
// only happen after a losing week.
func (ind *Industry) ChangeEmployment(p *config.Policies) int {
	ind.DetermineWages(p)

	perWorker := ind.WorkerEfficiency * StandardWorkWeek
	if perWorker <= 0 {
		ind.DesiredEmployees = 0
	} else {
		ind.DesiredEmployees = int(math.Ceil(ind.Demand.QuantityAt(ind.Price) / perWorker))
	}

	if ind.LastProfit < 0 && ind.NumEmployees > ind.DesiredEmployees {
		return ind.NumEmployees - ind.DesiredEmployees
	}
	return 0
}

// HasOpening reports whether the industry is below its desired headcount.
func (ind *Industry) HasOpening() bool {
	return ind.NumEmployees < ind.DesiredEmployees
}

// ResetTick clears per-tick accounting.
func (ind *Industry) ResetTick() {
	ind.TotalRevenue = 0
	ind.GoodsSold = 0
	ind.GoodsProduced = 0
	ind.HoursWorked = 0
	ind.TariffPaid = 0
	ind.SubsidyReceived = 0
	ind.PropertyTaxPaid = 0
}

// ApplyInflation scales raw material and fixed costs. Wages are untouched.
func (ind *Industry) ApplyInflation(rate float64) {
	f := 1 + rate
	ind.RawMaterialCost *= f
	ind.FixedCosts.Salary *= f
	ind.FixedCosts.PropertyValue *= f
	ind.FixedCosts.Insurance *= f
	ind.FixedCosts.Equipment *= f
}
