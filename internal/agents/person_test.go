package agents

import (
	"math/rand/v2"
	"testing"

	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

func TestPaydayBracketTax(t *testing.T) {
	p := &Person{Income: 1_000, Balance: 50}
	tax := p.Payday(config.DefaultPolicies())
	// 230×0.10 + 670×0.12 + 100×0.22
	if !approx(tax, 125.4, 1e-9) || !approx(p.Balance, 50+1_000-125.4, 1e-9) {
		t.Fatalf("unexpected tax %v balance %v", tax, p.Balance)
	}
}

func TestPurchaseGoodsBuysWholeUnits(t *testing.T) {
	pol := config.DefaultPolicies()
	ind := &Industry{Type: economy.IndustryGroceries, Price: 10, Inventory: 20, InventoryAvailableThisStep: 20}
	p := &Person{
		Income:      100,
		Balance:     500,
		Sigma:       1,
		Preferences: map[economy.IndustryType]float64{economy.IndustryGroceries: 1},
	}

	bought := p.PurchaseGoods(pol, []*Industry{ind})
	if len(bought) != 1 || bought[0].Units != 9 {
		t.Fatalf("expected 9 units, got %+v", bought)
	}
	// Effective price is 10.70 with 7% sales tax.
	if !approx(bought[0].Spent, 96.3, 1e-9) || !approx(bought[0].SalesTax, 6.3, 1e-9) {
		t.Fatalf("unexpected spend %+v", bought[0])
	}
	if !approx(p.Balance, 500-96.3, 1e-9) {
		t.Fatalf("unexpected balance %v", p.Balance)
	}
	if !approx(p.IndustrySavings[economy.IndustryGroceries], 3.7, 1e-9) {
		t.Fatalf("unexpected savings %v", p.IndustrySavings)
	}
	if ind.Inventory != 11 || ind.GoodsSold != 9 {
		t.Fatalf("industry not charged: %+v", ind)
	}
}

func TestPurchaseGoodsSavesTowardExpensiveGoods(t *testing.T) {
	pol := config.DefaultPolicies()
	pol.SalesTax[economy.IndustryLuxury] = 0
	ind := &Industry{Type: economy.IndustryLuxury, Price: 250, Inventory: 5, InventoryAvailableThisStep: 5}
	p := &Person{
		Income:      100,
		Sigma:       1,
		Preferences: map[economy.IndustryType]float64{economy.IndustryLuxury: 1},
	}

	for week := 1; week <= 2; week++ {
		if bought := p.PurchaseGoods(pol, []*Industry{ind}); len(bought) != 0 {
			t.Fatalf("week %d: bought before a unit was affordable: %+v", week, bought)
		}
	}
	bought := p.PurchaseGoods(pol, []*Industry{ind})
	if len(bought) != 1 || bought[0].Units != 1 {
		t.Fatalf("expected one unit on week 3, got %+v", bought)
	}
	if !approx(p.IndustrySavings[economy.IndustryLuxury], 50, 1e-9) {
		t.Fatalf("unexpected savings %v", p.IndustrySavings)
	}
}

func TestPurchaseGoodsRespectsAvailability(t *testing.T) {
	pol := config.DefaultPolicies()
	ind := &Industry{Type: economy.IndustryGroceries, Price: 1, Inventory: 10, InventoryAvailableThisStep: 3}
	p := &Person{
		Income:      100,
		Sigma:       1,
		Preferences: map[economy.IndustryType]float64{economy.IndustryGroceries: 1},
	}
	bought := p.PurchaseGoods(pol, []*Industry{ind})
	if len(bought) != 1 || bought[0].Units != 3 || ind.InventoryAvailableThisStep != 0 {
		t.Fatalf("expected purchase capped at 3, got %+v", bought)
	}
}

type fakeMarket struct {
	openings []*Industry
	accept   economy.IndustryType
	tried    []economy.IndustryType
}

func (m *fakeMarket) Openings() []*Industry { return m.openings }

func (m *fakeMarket) Hire(p *Person, ind *Industry) bool {
	m.tried = append(m.tried, ind.Type)
	if ind.Type != m.accept {
		return false
	}
	t := ind.Type
	p.Employer = &t
	p.Income = ind.OfferedWage * StandardWorkWeek
	return true
}

func TestChangeEmploymentRanksByWage(t *testing.T) {
	market := &fakeMarket{
		openings: []*Industry{
			{Type: economy.IndustryGroceries, OfferedWage: 12},
			{Type: economy.IndustryUtilities, OfferedWage: 30},
			{Type: economy.IndustryHousing, OfferedWage: 20},
			{Type: economy.IndustryLuxury, OfferedWage: 20},
		},
		accept: economy.IndustryLuxury,
	}
	p := &Person{}
	if !p.ChangeEmployment(market) {
		t.Fatal("expected a hire")
	}
	want := []economy.IndustryType{economy.IndustryUtilities, economy.IndustryHousing, economy.IndustryLuxury}
	if len(market.tried) != len(want) {
		t.Fatalf("unexpected attempts %v", market.tried)
	}
	for i := range want {
		if market.tried[i] != want[i] {
			t.Fatalf("unexpected attempt order %v", market.tried)
		}
	}
	if *p.Employer != economy.IndustryLuxury || p.Income != 800 {
		t.Fatalf("hire not applied: %+v", p)
	}
}

func TestChangeEmploymentStopsAfterThreeAttempts(t *testing.T) {
	market := &fakeMarket{
		openings: []*Industry{
			{Type: economy.IndustryGroceries, OfferedWage: 10},
			{Type: economy.IndustryUtilities, OfferedWage: 11},
			{Type: economy.IndustryHousing, OfferedWage: 12},
			{Type: economy.IndustryLuxury, OfferedWage: 13},
		},
		accept: economy.IndustryGroceries,
	}
	p := &Person{}
	if p.ChangeEmployment(market) {
		t.Fatal("lowest-paying opening should not be reached")
	}
	if len(market.tried) != MaxApplications {
		t.Fatalf("expected %d attempts, got %v", MaxApplications, market.tried)
	}
}

func TestChangeEmploymentSkipsEmployed(t *testing.T) {
	employer := economy.IndustryHousing
	market := &fakeMarket{openings: []*Industry{{Type: economy.IndustryGroceries}}}
	p := &Person{Employer: &employer}
	if p.ChangeEmployment(market) || len(market.tried) != 0 {
		t.Fatal("employed person searched for work")
	}
}

func TestUpdateClass(t *testing.T) {
	tests := []struct {
		income float64
		want   economy.Demographic
	}{
		{100, economy.DemographicLower},
		{660, economy.DemographicLower},
		{680, economy.DemographicMiddle},
		{2_000, economy.DemographicMiddle},
		{2_001, economy.DemographicUpper},
	}
	for _, tt := range tests {
		p := &Person{Income: tt.income, Demographic: economy.DemographicMiddle}
		changed := p.UpdateClass(1_000)
		if p.Demographic != tt.want || changed != (tt.want != economy.DemographicMiddle) {
			t.Errorf("income %v: got %v (changed=%v), want %v", tt.income, p.Demographic, changed, tt.want)
		}
	}
}

func TestAllocateCounts(t *testing.T) {
	tests := []struct {
		total       int
		proportions []float64
		want        []int
	}{
		{100, []float64{0.30, 0.55, 0.15}, []int{30, 55, 15}},
		{10, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, []int{4, 3, 3}},
		{7, []float64{0.5, 0.25, 0.25}, []int{3, 2, 2}},
		{0, []float64{0.5, 0.5}, []int{0, 0}},
	}
	for _, tt := range tests {
		got := AllocateCounts(tt.total, tt.proportions)
		sum := 0
		for i := range got {
			sum += got[i]
			if got[i] != tt.want[i] {
				t.Errorf("AllocateCounts(%d, %v) = %v, want %v", tt.total, tt.proportions, got, tt.want)
				break
			}
		}
		if sum != tt.total {
			t.Errorf("counts %v do not sum to %d", got, tt.total)
		}
	}
}

func TestLognormalMatchesMoments(t *testing.T) {
	s := NewSpawner(rand.New(rand.NewPCG(7, 0)))
	d := config.Distribution{Mean: 600, SD: 200}
	const n = 20_000
	sum := 0.0
	for i := 0; i < n; i++ {
		v := s.Lognormal(d)
		if v <= 0 {
			t.Fatalf("non-positive draw %v", v)
		}
		sum += v
	}
	if mean := sum / n; !approx(mean, 600, 12) {
		t.Fatalf("sample mean %v too far from 600", mean)
	}
	if s.Lognormal(config.Distribution{Mean: 50}) != 50 {
		t.Fatal("zero sd should return the mean")
	}
}

func TestLognormalIsReproducible(t *testing.T) {
	d := config.Distribution{Mean: 1_400, SD: 400}
	a := NewSpawner(rand.New(rand.NewPCG(3, 9)))
	b := NewSpawner(rand.New(rand.NewPCG(3, 9)))
	for i := 0; i < 100; i++ {
		if x, y := a.Lognormal(d), b.Lognormal(d); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestSpawnPopulation(t *testing.T) {
	cfg := config.DefaultModelConfig(100, 52)
	people := NewSpawner(rand.New(rand.NewPCG(1, 0))).SpawnPopulation(cfg)
	if len(people) != 100 {
		t.Fatalf("expected 100 people, got %d", len(people))
	}

	seen := make(map[PersonID]bool)
	byClass := make(map[economy.Demographic]int)
	unemployed := make(map[economy.Demographic]int)
	for _, p := range people {
		if seen[p.ID] {
			t.Fatalf("duplicate id %d", p.ID)
		}
		seen[p.ID] = true
		byClass[p.Demographic]++
		if !p.Employed() {
			unemployed[p.Demographic]++
		}
		if p.Sigma != config.DefaultSigma(p.Demographic) {
			t.Fatalf("unexpected sigma %v for %v", p.Sigma, p.Demographic)
		}
	}
	// 30×0.08, 55×0.04 and 15×0.02 rounded.
	wantUnemployed := map[economy.Demographic]int{
		economy.DemographicLower:  2,
		economy.DemographicMiddle: 2,
		economy.DemographicUpper:  0,
	}
	for d, want := range wantUnemployed {
		if unemployed[d] != want {
			t.Errorf("%v: expected %d unemployed, got %d", d, want, unemployed[d])
		}
	}
	if byClass[economy.DemographicMiddle] != 55 {
		t.Fatalf("unexpected class sizes %v", byClass)
	}
}
