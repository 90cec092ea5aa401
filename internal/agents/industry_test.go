package agents

import (
	"errors"
	"math"
	"testing"

	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// testIndustry has V = 15/1 + 2 = 17 and a fixed cost of 200 under the
// default policies (no property value, so no property tax).
func testIndustry() *Industry {
	return &Industry{
		Type:             economy.IndustryGroceries,
		Strategy:         economy.LinearProfitMax,
		Price:            20,
		Balance:          10_000,
		DebtAllowed:      true,
		RawMaterialCost:  2,
		OfferedWage:      15,
		WorkerEfficiency: 1,
		NumEmployees:     10,
		FixedCosts:       FixedCosts{Salary: 200},
		Demand:           economy.DemandCurve{Intercept: 36, Slope: 0.09},
	}
}

func TestVariableCost(t *testing.T) {
	v, err := VariableCost(15, 1, 2, 0, 0)
	if err != nil || v != 17 {
		t.Fatalf("expected 17, got %v (%v)", v, err)
	}

	v, err = VariableCost(15, 0, 2, 0, 0)
	if err != nil || !math.IsInf(v, 1) {
		t.Fatalf("expected +Inf for zero efficiency, got %v (%v)", v, err)
	}

	v, err = VariableCost(10, 2, 4, 0.5, 0.25)
	if err != nil || v != 5+4*1.25 {
		t.Fatalf("tariff and subsidy not applied: %v (%v)", v, err)
	}

	bad := []struct {
		name                            string
		wage, eff, raw, tariff, subsidy float64
	}{
		{"nan wage", math.NaN(), 1, 2, 0, 0},
		{"inf raw", 15, 1, math.Inf(1), 0, 0},
		{"inf efficiency", 15, math.Inf(1), 2, 0, 0},
		{"nan tariff", 15, 1, 2, math.NaN(), 0},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VariableCost(tt.wage, tt.eff, tt.raw, tt.tariff, tt.subsidy)
			var nerr *NumericDomainError
			if !errors.As(err, &nerr) || !errors.Is(err, ErrNumericDomain) {
				t.Fatalf("expected numeric domain error, got %v", err)
			}
		})
	}
}

func TestProductionCapacity(t *testing.T) {
	tests := []struct {
		name      string
		employees int
		eff       float64
		balance   float64
		fixed     float64
		variable  float64
		debt      bool
		want      int
	}{
		{"funds limited", 5, 1, 300, 200, 17, false, 5},
		{"debt allowed uses worker limit", 5, 1, 300, 200, 17, true, 200},
		{"fixed exceeds balance", 5, 1, 100, 200, 17, false, 0},
		{"infinite variable cost", 5, 1, 300, 200, math.Inf(1), false, 0},
		{"worker limited", 1, 0.5, 1_000_000, 0, 1, false, 20},
		{"no workers", 0, 1, 1_000, 0, 1, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProductionCapacity(tt.employees, tt.eff, tt.balance, tt.fixed, tt.variable, tt.debt)
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFixedCostIncludesPropertyTax(t *testing.T) {
	p := config.DefaultPolicies()
	p.PropertyTax = 0.01
	ind := testIndustry()
	ind.FixedCosts = FixedCosts{Salary: 100, PropertyValue: 10_000, Insurance: 20, Equipment: 30}
	if got := ind.FixedCost(p); !approx(got, 250, 1e-9) {
		t.Fatalf("expected 250, got %v", got)
	}
}

func TestIndustryWeekWithPriceCap(t *testing.T) {
	p := config.DefaultPolicies()
	capPct := 0.10
	p.PriceCap[economy.IndustryGroceries] = &capPct

	ind := testIndustry()
	if err := ind.DeterminePrice(p); err != nil {
		t.Fatalf("determine price: %v", err)
	}
	if ind.Price != 22 || ind.InventoryAvailableThisStep != 156 || !ind.LastQuote.Capped {
		t.Fatalf("expected capped P=22 Q=156, got P=%v Q=%d", ind.Price, ind.InventoryAvailableThisStep)
	}

	if err := ind.ProduceGoods(p); err != nil {
		t.Fatalf("produce: %v", err)
	}
	if ind.GoodsProduced != 156 || ind.Inventory != 156 {
		t.Fatalf("expected 156 produced, got %d (inventory %d)", ind.GoodsProduced, ind.Inventory)
	}
	if !approx(ind.HoursWorked, 15.6, 1e-9) || !approx(ind.TotalCost, 200+17*156, 1e-9) {
		t.Fatalf("unexpected hours %v or cost %v", ind.HoursWorked, ind.TotalCost)
	}
	if !approx(ind.WeeklyPay(), 15*15.6, 1e-9) {
		t.Fatalf("unexpected weekly pay %v", ind.WeeklyPay())
	}

	if ind.SellGoods(200) {
		t.Fatal("oversell accepted")
	}
	if !ind.SellGoods(100) {
		t.Fatal("valid sale rejected")
	}
	if ind.Inventory != 56 || ind.InventoryAvailableThisStep != 56 || ind.TotalRevenue != 2200 {
		t.Fatalf("sale not recorded: inventory %d revenue %v", ind.Inventory, ind.TotalRevenue)
	}
	if ind.InventoryAvailableThisStep > ind.Inventory {
		t.Fatal("more released for sale than held")
	}

	if tax := ind.DeductCorporateTax(p); tax != 0 {
		t.Fatalf("corporate tax on a loss: %v", tax)
	}
}

func TestIndustryCapBelowVariableCost(t *testing.T) {
	p := config.DefaultPolicies()
	capPct := 1.0
	p.PriceCap[economy.IndustryGroceries] = &capPct

	ind := testIndustry()
	ind.Price = 1
	if err := ind.DeterminePrice(p); err != nil {
		t.Fatalf("determine price: %v", err)
	}
	if ind.Price != 2 || ind.InventoryAvailableThisStep != 0 {
		t.Fatalf("expected P=2 Q=0, got P=%v Q=%d", ind.Price, ind.InventoryAvailableThisStep)
	}

	balance := ind.Balance
	if err := ind.ProduceGoods(p); err != nil {
		t.Fatalf("produce: %v", err)
	}
	if ind.GoodsProduced != 0 || ind.HoursWorked != 0 || ind.Balance != balance-200 {
		t.Fatalf("idle week should only pay fixed cost: %+v", ind)
	}
}

func TestDeterminePriceRejectsNaNCost(t *testing.T) {
	ind := testIndustry()
	ind.RawMaterialCost = math.NaN()
	err := ind.DeterminePrice(config.DefaultPolicies())
	if !errors.Is(err, ErrNumericDomain) {
		t.Fatalf("expected numeric domain error, got %v", err)
	}
}

func TestCorporateTaxOnProfit(t *testing.T) {
	p := config.DefaultPolicies()
	ind := testIndustry()
	ind.TotalRevenue = 1_000
	ind.TotalCost = 600
	balance := ind.Balance
	tax := ind.DeductCorporateTax(p)
	if !approx(tax, 84, 1e-9) || !approx(ind.Balance, balance-84, 1e-9) {
		t.Fatalf("expected tax 84, got %v", tax)
	}
}

func TestIndustryChangeEmployment(t *testing.T) {
	p := config.DefaultPolicies()
	p.MinimumWage = 20

	ind := testIndustry()
	ind.Price = 22
	ind.LastProfit = 100
	if layoffs := ind.ChangeEmployment(p); layoffs != 0 {
		t.Fatalf("profitable industry laid off %d", layoffs)
	}
	if ind.OfferedWage != 20 {
		t.Fatalf("wage floor not applied: %v", ind.OfferedWage)
	}
	// Demand at 22 is 155.6 units; 40 units per worker-week.
	if ind.DesiredEmployees != 4 {
		t.Fatalf("expected 4 desired employees, got %d", ind.DesiredEmployees)
	}

	ind.LastProfit = -1
	if layoffs := ind.ChangeEmployment(p); layoffs != 6 {
		t.Fatalf("expected 6 layoffs, got %d", layoffs)
	}

	ind.WorkerEfficiency = 0
	ind.ChangeEmployment(p)
	if ind.DesiredEmployees != 0 || ind.HasOpening() {
		t.Fatal("zero efficiency should want no workers")
	}
}

func TestApplyInflationLeavesWages(t *testing.T) {
	ind := testIndustry()
	ind.FixedCosts.PropertyValue = 1_000
	ind.ApplyInflation(0.1)
	if !approx(ind.RawMaterialCost, 2.2, 1e-9) || !approx(ind.FixedCosts.Salary, 220, 1e-9) ||
		!approx(ind.FixedCosts.PropertyValue, 1_100, 1e-9) {
		t.Fatalf("costs not inflated: %+v", ind.FixedCosts)
	}
	if ind.OfferedWage != 15 {
		t.Fatal("wage inflated")
	}
}

func TestNewIndustryAppliesDefaults(t *testing.T) {
	ind := NewIndustry(economy.IndustryAutomobiles, config.IndustryConfig{
		StartingPrice: 500, StartingInventory: 3, StartingBalance: 1_000, StartingOfferedWage: 30,
	})
	def := config.DefaultIndustry(economy.IndustryAutomobiles)
	if ind.Demand.Slope != *def.DemandSlope || ind.WorkerEfficiency != *def.WorkerEfficiency {
		t.Fatalf("defaults not applied: %+v", ind)
	}
	if ind.Strategy != economy.LinearProfitMax || ind.Price != 500 || ind.Inventory != 3 {
		t.Fatalf("starting state wrong: %+v", ind)
	}
}

func TestNewIndustryZeroEfficiencyProducesNothing(t *testing.T) {
	zero := 0.0
	p := config.DefaultPolicies()
	for _, debt := range []bool{true, false} {
		ind := NewIndustry(economy.IndustryGroceries, config.IndustryConfig{
			StartingPrice: 10, StartingInventory: 5, StartingBalance: 50_000, StartingOfferedWage: 16,
			WorkerEfficiency: &zero, DebtAllowed: &debt,
		})
		ind.NumEmployees = 10
		if ind.WorkerEfficiency != 0 {
			t.Fatalf("explicit zero efficiency replaced by %v", ind.WorkerEfficiency)
		}

		v, err := ind.VariableCost(p)
		if err != nil || !math.IsInf(v, 1) {
			t.Fatalf("debt=%v: expected +Inf variable cost, got %v (%v)", debt, v, err)
		}
		capacity, err := ind.ProductionCapacity(p)
		if err != nil || capacity != 0 {
			t.Fatalf("debt=%v: expected zero capacity, got %d (%v)", debt, capacity, err)
		}
	}
}
