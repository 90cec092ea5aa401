package indicators

import (
	"slices"

	"github.com/KhuramC/EconomySim-sub000/internal/agents"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

// Fiscal carries the government figures for a week.
type Fiscal struct {
	TaxRevenue        float64
	GovernmentBalance float64
}

// Collect builds the week's rows from agent state. GDP is the value of goods
// sold at pre-tax prices; Gini is over person balances.
func Collect(week int, people []*agents.Person, industries []*agents.Industry, fiscal Fiscal) (IndicatorRow, []IndustryRow, []DemographicRow) {
	incomes := make([]float64, len(people))
	balances := make([]float64, len(people))
	unemployed := 0
	for i, p := range people {
		incomes[i] = p.Income
		balances[i] = p.Balance
		if !p.Employed() {
			unemployed++
		}
	}
	sorted := slices.Clone(incomes)
	slices.Sort(sorted)
	mean, sd := MeanStd(incomes)

	row := IndicatorRow{
		Week:              week,
		Population:        len(people),
		MeanIncome:        mean,
		MedianIncome:      percentileSorted(sorted, 50),
		IncomeSD:          sd,
		IncomeP10:         percentileSorted(sorted, 10),
		IncomeP25:         percentileSorted(sorted, 25),
		IncomeP75:         percentileSorted(sorted, 75),
		IncomeP90:         percentileSorted(sorted, 90),
		Gini:              Gini(balances),
		TaxRevenue:        fiscal.TaxRevenue,
		GovernmentBalance: fiscal.GovernmentBalance,
	}
	if len(people) > 0 {
		row.Unemployment = float64(unemployed) / float64(len(people))
	}
	for _, b := range balances {
		row.TotalBalance += b
	}

	industryRows := make([]IndustryRow, 0, len(industries))
	for _, ind := range industries {
		row.GDP += ind.TotalRevenue
		row.TotalInventory += ind.Inventory
		industryRows = append(industryRows, IndustryRow{
			Week:             week,
			Industry:         ind.Type,
			Price:            ind.Price,
			Inventory:        ind.Inventory,
			Balance:          ind.Balance,
			Employees:        ind.NumEmployees,
			DesiredEmployees: ind.DesiredEmployees,
			OfferedWage:      ind.OfferedWage,
			GoodsProduced:    ind.GoodsProduced,
			GoodsSold:        ind.GoodsSold,
			Revenue:          ind.TotalRevenue,
			Cost:             ind.TotalCost,
			Profit:           ind.Profit(),
			WeeklyPay:        ind.WeeklyPay(),
		})
	}

	type acc struct {
		n, unemployed   int
		income, balance float64
	}
	byClass := make(map[economy.Demographic]*acc, economy.NumDemographics)
	for _, d := range economy.AllDemographics() {
		byClass[d] = &acc{}
	}
	for _, p := range people {
		a, ok := byClass[p.Demographic]
		if !ok {
			continue
		}
		a.n++
		a.income += p.Income
		a.balance += p.Balance
		if !p.Employed() {
			a.unemployed++
		}
	}
	demographicRows := make([]DemographicRow, 0, economy.NumDemographics)
	for _, d := range economy.AllDemographics() {
		a := byClass[d]
		dr := DemographicRow{Week: week, Demographic: d, Population: a.n}
		if a.n > 0 {
			dr.MeanIncome = a.income / float64(a.n)
			dr.MeanBalance = a.balance / float64(a.n)
			dr.Unemployment = float64(a.unemployed) / float64(a.n)
		}
		demographicRows = append(demographicRows, dr)
	}

	return row, industryRows, demographicRows
}

// LorenzCurve is the Lorenz curve of person balances at one week.
type LorenzCurve struct {
	Week int       `json:"week"`
	Gini float64   `json:"gini"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

// BalanceLorenz computes the Lorenz curve and Gini coefficient of the
// persons' balances.
func BalanceLorenz(week int, people []*agents.Person) LorenzCurve {
	balances := make([]float64, len(people))
	for i, p := range people {
		balances[i] = p.Balance
	}
	x, y := Lorenz(balances)
	return LorenzCurve{Week: week, Gini: Gini(balances), X: x, Y: y}
}
