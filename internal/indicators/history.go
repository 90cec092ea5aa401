package indicators

import (
	"errors"
	"fmt"

	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

var (
	// ErrInvalidRange is returned for negative bounds or start > end.
	ErrInvalidRange = errors.New("invalid week range")
	// ErrUnknownSeries is returned for an indicator name that does not exist.
	ErrUnknownSeries = errors.New("unknown indicator series")
)

// IndicatorRow is the economy-wide summary recorded once per week.
type IndicatorRow struct {
	Week              int     `json:"week" db:"week"`
	Population        int     `json:"population" db:"population"`
	GDP               float64 `json:"gdp" db:"gdp"`
	Unemployment      float64 `json:"unemployment" db:"unemployment"`
	MeanIncome        float64 `json:"mean_income" db:"mean_income"`
	MedianIncome      float64 `json:"median_income" db:"median_income"`
	IncomeSD          float64 `json:"income_sd" db:"income_sd"`
	IncomeP10         float64 `json:"income_p10" db:"income_p10"`
	IncomeP25         float64 `json:"income_p25" db:"income_p25"`
	IncomeP75         float64 `json:"income_p75" db:"income_p75"`
	IncomeP90         float64 `json:"income_p90" db:"income_p90"`
	Gini              float64 `json:"gini" db:"gini"`
	TotalBalance      float64 `json:"total_balance" db:"total_balance"`
	TaxRevenue        float64 `json:"tax_revenue" db:"tax_revenue"`
	GovernmentBalance float64 `json:"government_balance" db:"government_balance"`
	TotalInventory    int     `json:"total_inventory" db:"total_inventory"`
}

// IndustryRow is one industry's state at the end of a week.
type IndustryRow struct {
	Week             int                  `json:"week" db:"week"`
	Industry         economy.IndustryType `json:"industry" db:"industry"`
	Price            float64              `json:"price" db:"price"`
	Inventory        int                  `json:"inventory" db:"inventory"`
	Balance          float64              `json:"balance" db:"balance"`
	Employees        int                  `json:"employees" db:"employees"`
	DesiredEmployees int                  `json:"desired_employees" db:"desired_employees"`
	OfferedWage      float64              `json:"offered_wage" db:"offered_wage"`
	GoodsProduced    int                  `json:"goods_produced" db:"goods_produced"`
	GoodsSold        int                  `json:"goods_sold" db:"goods_sold"`
	Revenue          float64              `json:"revenue" db:"revenue"`
	Cost             float64              `json:"cost" db:"cost"`
	Profit           float64              `json:"profit" db:"profit"`
	WeeklyPay        float64              `json:"weekly_pay" db:"weekly_pay"`
}

// DemographicRow summarizes one income class at the end of a week.
type DemographicRow struct {
	Week         int                 `json:"week" db:"week"`
	Demographic  economy.Demographic `json:"demographic" db:"demographic"`
	Population   int                 `json:"population" db:"population"`
	MeanIncome   float64             `json:"mean_income" db:"mean_income"`
	MeanBalance  float64             `json:"mean_balance" db:"mean_balance"`
	Unemployment float64             `json:"unemployment" db:"unemployment"`
}

// indicatorFields maps series names to row accessors, in output order.
var indicatorFields = []struct {
	name string
	get  func(IndicatorRow) float64
}{
	{"gdp", func(r IndicatorRow) float64 { return r.GDP }},
	{"unemployment", func(r IndicatorRow) float64 { return r.Unemployment }},
	{"mean_income", func(r IndicatorRow) float64 { return r.MeanIncome }},
	{"median_income", func(r IndicatorRow) float64 { return r.MedianIncome }},
	{"income_sd", func(r IndicatorRow) float64 { return r.IncomeSD }},
	{"income_p10", func(r IndicatorRow) float64 { return r.IncomeP10 }},
	{"income_p25", func(r IndicatorRow) float64 { return r.IncomeP25 }},
	{"income_p75", func(r IndicatorRow) float64 { return r.IncomeP75 }},
	{"income_p90", func(r IndicatorRow) float64 { return r.IncomeP90 }},
	{"gini", func(r IndicatorRow) float64 { return r.Gini }},
	{"total_balance", func(r IndicatorRow) float64 { return r.TotalBalance }},
	{"tax_revenue", func(r IndicatorRow) float64 { return r.TaxRevenue }},
	{"government_balance", func(r IndicatorRow) float64 { return r.GovernmentBalance }},
	{"total_inventory", func(r IndicatorRow) float64 { return float64(r.TotalInventory) }},
	{"population", func(r IndicatorRow) float64 { return float64(r.Population) }},
}

// IndicatorNames lists every indicator series name.
func IndicatorNames() []string {
	names := make([]string, len(indicatorFields))
	for i, f := range indicatorFields {
		names[i] = f.name
	}
	return names
}

// Series is a named indicator over consecutive weeks.
type Series struct {
	Name   string    `json:"name"`
	Weeks  []int     `json:"weeks"`
	Values []float64 `json:"values"`
}

// History holds every recorded week of a model. Rows are appended in week
// order, one indicator row per week.
type History struct {
	Indicators   []IndicatorRow   `json:"indicators"`
	Industries   []IndustryRow    `json:"industries"`
	Demographics []DemographicRow `json:"demographics"`
}

// Record appends one week of rows.
func (h *History) Record(ind IndicatorRow, industries []IndustryRow, demographics []DemographicRow) {
	h.Indicators = append(h.Indicators, ind)
	h.Industries = append(h.Industries, industries...)
	h.Demographics = append(h.Demographics, demographics...)
}

// Latest returns the most recent indicator row.
func (h *History) Latest() (IndicatorRow, bool) {
	if len(h.Indicators) == 0 {
		return IndicatorRow{}, false
	}
	return h.Indicators[len(h.Indicators)-1], true
}

// CurrentWeek is the week of the most recent row, or 0.
func (h *History) CurrentWeek() int {
	row, _ := h.Latest()
	return row.Week
}

// Range resolves query bounds against the current week. An end of 0 means the
// current week; ends past the current week are clamped.
func (h *History) Range(start, end int) (int, int, error) {
	if start < 0 || end < 0 {
		return 0, 0, fmt.Errorf("%w: start=%d end=%d", ErrInvalidRange, start, end)
	}
	current := h.CurrentWeek()
	if end == 0 || end > current {
		end = current
	}
	if start > end {
		return 0, 0, fmt.Errorf("%w: start=%d end=%d", ErrInvalidRange, start, end)
	}
	return start, end, nil
}

// IndicatorSeries returns the named series between start and end inclusive.
// No names selects every series.
func (h *History) IndicatorSeries(start, end int, names []string) ([]Series, error) {
	start, end, err := h.Range(start, end)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = IndicatorNames()
	}

	out := make([]Series, 0, len(names))
	for _, name := range names {
		idx := -1
		for i, f := range indicatorFields {
			if f.name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSeries, name)
		}
		s := Series{Name: name}
		for _, row := range h.Indicators {
			if row.Week < start || row.Week > end {
				continue
			}
			s.Weeks = append(s.Weeks, row.Week)
			s.Values = append(s.Values, indicatorFields[idx].get(row))
		}
		out = append(out, s)
	}
	return out, nil
}

// IndicatorRows returns the raw indicator rows between start and end.
func (h *History) IndicatorRows(start, end int) ([]IndicatorRow, error) {
	start, end, err := h.Range(start, end)
	if err != nil {
		return nil, err
	}
	var out []IndicatorRow
	for _, row := range h.Indicators {
		if row.Week >= start && row.Week <= end {
			out = append(out, row)
		}
	}
	return out, nil
}

// IndustrySeries returns rows per industry between start and end. No
// industries selects all of them.
func (h *History) IndustrySeries(start, end int, industries []economy.IndustryType) (map[economy.IndustryType][]IndustryRow, error) {
	start, end, err := h.Range(start, end)
	if err != nil {
		return nil, err
	}
	if len(industries) == 0 {
		industries = economy.AllIndustries()
	}
	out := make(map[economy.IndustryType][]IndustryRow, len(industries))
	for _, t := range industries {
		out[t] = []IndustryRow{}
	}
	for _, row := range h.Industries {
		if row.Week < start || row.Week > end {
			continue
		}
		if rows, ok := out[row.Industry]; ok {
			out[row.Industry] = append(rows, row)
		}
	}
	return out, nil
}

// DemographicSeries returns rows per demographic between start and end. No
// demographics selects all of them.
func (h *History) DemographicSeries(start, end int, demographics []economy.Demographic) (map[economy.Demographic][]DemographicRow, error) {
	start, end, err := h.Range(start, end)
	if err != nil {
		return nil, err
	}
	if len(demographics) == 0 {
		demographics = economy.AllDemographics()
	}
	out := make(map[economy.Demographic][]DemographicRow, len(demographics))
	for _, d := range demographics {
		out[d] = []DemographicRow{}
	}
	for _, row := range h.Demographics {
		if row.Week < start || row.Week > end {
			continue
		}
		if rows, ok := out[row.Demographic]; ok {
			out[row.Demographic] = append(rows, row)
		}
	}
	return out, nil
}
