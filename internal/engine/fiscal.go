package engine

// Ledger is one week of government cash flow.
type Ledger struct {
	PersonalIncomeTax float64 `json:"personal_income_tax"`
	SalesTax          float64 `json:"sales_tax"`
	CorporateTax      float64 `json:"corporate_tax"`
	PropertyTax       float64 `json:"property_tax"`
	Tariffs           float64 `json:"tariffs"`
	Subsidies         float64 `json:"subsidies"`
}

// Revenue is everything collected: taxes plus tariffs.
func (l Ledger) Revenue() float64 {
	return l.PersonalIncomeTax + l.SalesTax + l.CorporateTax + l.PropertyTax + l.Tariffs
}

// Net is revenue minus subsidies paid out.
func (l Ledger) Net() float64 {
	return l.Revenue() - l.Subsidies
}

// Government accumulates the fiscal position across weeks.
type Government struct {
	Balance float64 `json:"balance"`
	Week    Ledger  `json:"week"`
}
