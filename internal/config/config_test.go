package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

func TestDefaultModelConfigIsValid(t *testing.T) {
	if err := DefaultModelConfig(100, 52).Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestModelValidateScalarBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ModelConfig)
		path   string
	}{
		{"zero length", func(c *ModelConfig) { c.MaxSimulationLength = 0 }, "max_simulation_length"},
		{"no people", func(c *ModelConfig) { c.NumPeople = 0 }, "num_people"},
		{"negative inflation", func(c *ModelConfig) { c.InflationRate = -0.1 }, "inflation_rate"},
		{"bad slope", func(c *ModelConfig) {
			ic := c.Industries[economy.IndustryLuxury]
			ic.DemandSlope = num(-1)
			c.Industries[economy.IndustryLuxury] = ic
		}, "industries.LUXURY.demand_slope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultModelConfig(10, 10)
			tt.mutate(cfg)
			err := cfg.Validate()
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if cerr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, cerr.Path)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatal("expected error to wrap ErrInvalidConfig")
			}
		})
	}
}

func TestModelValidateMissingKeys(t *testing.T) {
	cfg := DefaultModelConfig(10, 10)
	delete(cfg.Demographics, economy.DemographicUpper)
	var cerr *Error
	if err := cfg.Validate(); !errors.As(err, &cerr) || cerr.Path != "demographics" {
		t.Fatalf("expected missing demographics error, got %v", err)
	}
	if !reflect.DeepEqual(cerr.Missing, []string{"UPPER_CLASS"}) {
		t.Fatalf("unexpected missing keys %v", cerr.Missing)
	}

	cfg = DefaultModelConfig(10, 10)
	delete(cfg.Industries, economy.IndustryHousing)
	if err := cfg.Validate(); !errors.As(err, &cerr) || cerr.Path != "industries" {
		t.Fatalf("expected missing industries error, got %v", err)
	}

	cfg = DefaultModelConfig(10, 10)
	delete(cfg.Policies.Tariffs, economy.IndustryGroceries)
	if err := cfg.Validate(); !errors.As(err, &cerr) || cerr.Path != "policies.tariffs" {
		t.Fatalf("expected missing tariffs error, got %v", err)
	}
}

func TestModelValidateWeights(t *testing.T) {
	cfg := DefaultModelConfig(10, 10)
	dc := cfg.Demographics[economy.DemographicLower]
	dc.SpendingBehavior[economy.IndustryGroceries] += 0.5
	cfg.Demographics[economy.DemographicLower] = dc
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected weight sum error, got %v", err)
	}

	cfg = DefaultModelConfig(10, 10)
	dc = cfg.Demographics[economy.DemographicUpper]
	dc.Proportion = 0.5
	cfg.Demographics[economy.DemographicUpper] = dc
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected proportion sum error, got %v", err)
	}
}

func TestIncomeTaxBrackets(t *testing.T) {
	tax := IncomeTax{Brackets: []Bracket{
		{Threshold: 0, Rate: 0.10},
		{Threshold: 1000, Rate: 0.20},
		{Threshold: 500, Rate: 0.15},
	}}
	tests := []struct {
		income float64
		want   float64
	}{
		{0, 0},
		{400, 40},
		{500, 50},
		{800, 50 + 45},
		{1500, 50 + 75 + 100},
	}
	for _, tt := range tests {
		if got := tax.Tax(tt.income); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Tax(%v) = %v, want %v", tt.income, got, tt.want)
		}
	}
}

func TestIncomeTaxFlat(t *testing.T) {
	tax := FlatIncomeTax(0.25)
	if got := tax.Tax(800); got != 200 {
		t.Fatalf("flat tax: got %v", got)
	}
}

func TestIncomeTaxJSONForms(t *testing.T) {
	var flat IncomeTax
	if err := json.Unmarshal([]byte(`0.2`), &flat); err != nil || flat.Flat == nil || *flat.Flat != 0.2 {
		t.Fatalf("flat form: %+v %v", flat, err)
	}
	var brackets IncomeTax
	if err := json.Unmarshal([]byte(`[{"threshold":0,"rate":0.1},{"threshold":100,"rate":0.3}]`), &brackets); err != nil {
		t.Fatalf("bracket form: %v", err)
	}
	if len(brackets.Brackets) != 2 || brackets.Flat != nil {
		t.Fatalf("bracket form decoded as %+v", brackets)
	}
	out, err := json.Marshal(flat)
	if err != nil || string(out) != "0.2" {
		t.Fatalf("flat marshal: %s %v", out, err)
	}
	if err := json.Unmarshal([]byte(`"high"`), &flat); err == nil {
		t.Fatal("expected error for string income tax")
	}
}

func TestPoliciesCloneIsDeep(t *testing.T) {
	p := DefaultPolicies()
	capPct := 0.1
	p.PriceCap[economy.IndustryGroceries] = &capPct

	c := p.Clone()
	c.SalesTax[economy.IndustryGroceries] = 0.5
	*c.PriceCap[economy.IndustryGroceries] = 0.9
	c.PersonalIncomeTax.Brackets[0].Rate = 0.9

	if p.SalesTax[economy.IndustryGroceries] != 0.07 {
		t.Fatal("clone aliases sales tax")
	}
	if *p.PriceCap[economy.IndustryGroceries] != 0.1 {
		t.Fatal("clone aliases price cap")
	}
	if p.PersonalIncomeTax.Brackets[0].Rate != 0.10 {
		t.Fatal("clone aliases brackets")
	}
}

func TestPoliciesValidateRequiresIncomeTax(t *testing.T) {
	p := DefaultPolicies()
	p.PersonalIncomeTax = IncomeTax{}
	var cerr *Error
	if err := p.Validate(); !errors.As(err, &cerr) || cerr.Path != "policies.personal_income_tax" {
		t.Fatalf("expected income tax error, got %v", err)
	}
}

func TestCheckReportsMissingKeysAndPath(t *testing.T) {
	doc := map[string]any{
		"max_simulation_length": 10,
		"num_people":            5,
		"inflation_rate":        0.0,
		"demographics":          map[string]any{},
		"industries":            map[string]any{},
	}
	err := Check(doc, ModelSchema, "")
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if cerr.Path != "<root>" || !reflect.DeepEqual(cerr.Missing, []string{"policies"}) {
		t.Fatalf("unexpected error %+v", cerr)
	}

	policies := map[string]any{}
	for k := range PolicySchema {
		policies[k] = 0.1
	}
	err = Check(policies, PolicySchema, "policies")
	if !errors.As(err, &cerr) || cerr.Path != "policies.corporate_income_tax" || cerr.Reason == "" {
		t.Fatalf("expected mapping error at corporate_income_tax, got %v", err)
	}
}

func TestDecodeModelRoundTripThroughYAML(t *testing.T) {
	cfg := DefaultModelConfig(40, 12)
	capPct := 0.05
	cfg.Policies.PriceCap[economy.IndustryUtilities] = &capPct

	raw, err := EncodeYAML(cfg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.NumPeople != 40 || loaded.MaxSimulationLength != 12 {
		t.Fatalf("scalars lost: %+v", loaded)
	}
	if got := loaded.Policies.PriceCapFor(economy.IndustryUtilities); got == nil || *got != 0.05 {
		t.Fatalf("price cap lost: %v", got)
	}
	if loaded.Policies.PriceCapFor(economy.IndustryGroceries) != nil {
		t.Fatal("disabled cap decoded as enabled")
	}
	if len(loaded.Policies.PersonalIncomeTax.Brackets) != len(cfg.Policies.PersonalIncomeTax.Brackets) {
		t.Fatal("income tax brackets lost")
	}
}

func TestDecodePoliciesMissingIndustry(t *testing.T) {
	raw, err := json.Marshal(DefaultPolicies())
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	delete(doc["sales_tax"].(map[string]any), "LUXURY")

	_, err = DecodePolicies(doc)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Path != "policies.sales_tax" || !reflect.DeepEqual(cerr.Missing, []string{"LUXURY"}) {
		t.Fatalf("expected missing LUXURY under policies.sales_tax, got %v", err)
	}
}

func TestWithDefaultsKeepsOverrides(t *testing.T) {
	ic := IndustryConfig{StartingPrice: 1, DemandSlope: num(2)}
	out := ic.WithDefaults(economy.IndustryGroceries)
	if *out.DemandSlope != 2 {
		t.Fatal("override replaced")
	}
	if *out.DemandIntercept != *DefaultIndustry(economy.IndustryGroceries).DemandIntercept {
		t.Fatal("default not applied")
	}
	if out.PricingStrategy == nil || out.DebtAllowed == nil {
		t.Fatal("pointer defaults not applied")
	}
}

func TestWithDefaultsKeepsExplicitZero(t *testing.T) {
	def := DefaultIndustry(economy.IndustryGroceries)
	ic := IndustryConfig{
		StartingPrice:    1,
		WorkerEfficiency: num(0),
		RawMaterialCost:  num(0),
		Insurance:        num(0),
	}
	out := ic.WithDefaults(economy.IndustryGroceries)

	tests := []struct {
		name string
		got  *float64
		want float64
	}{
		{"worker_efficiency", out.WorkerEfficiency, 0},
		{"raw_material_cost", out.RawMaterialCost, 0},
		{"insurance", out.Insurance, 0},
		{"demand_slope", out.DemandSlope, *def.DemandSlope},
		{"salary", out.Salary, *def.Salary},
		{"equipment", out.Equipment, *def.Equipment},
	}
	for _, tt := range tests {
		if tt.got == nil {
			t.Errorf("%s: nil after defaults", tt.name)
			continue
		}
		if *tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, *tt.got, tt.want)
		}
	}
}

func TestDecodeModelKeepsExplicitZero(t *testing.T) {
	raw, err := json.Marshal(DefaultModelConfig(10, 4))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	industries := doc["industries"].(map[string]any)
	industries["GROCERIES"].(map[string]any)["worker_efficiency"] = 0.0

	cfg, err := DecodeModel(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ic := cfg.Industries[economy.IndustryGroceries].WithDefaults(economy.IndustryGroceries)
	if *ic.WorkerEfficiency != 0 {
		t.Fatalf("worker_efficiency = %v, want 0", *ic.WorkerEfficiency)
	}
	other := cfg.Industries[economy.IndustryHousing].WithDefaults(economy.IndustryHousing)
	if *other.WorkerEfficiency != *DefaultIndustry(economy.IndustryHousing).WorkerEfficiency {
		t.Fatal("absent worker_efficiency not defaulted")
	}
}

func TestModelValidateRejectsZeroSlope(t *testing.T) {
	cfg := DefaultModelConfig(10, 4)
	ic := cfg.Industries[economy.IndustryHousing]
	ic.DemandSlope = num(0)
	cfg.Industries[economy.IndustryHousing] = ic

	var cerr *Error
	if err := cfg.Validate(); !errors.As(err, &cerr) || cerr.Path != "industries.HOUSING.demand_slope" {
		t.Fatalf("expected demand_slope error, got %v", err)
	}
}

func TestWrapMatchesBothErrors(t *testing.T) {
	cause := errors.New("degenerate")
	err := fmt.Errorf("week 3: %w", Wrap("industries.LUXURY.demand_slope", cause))
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, cause) {
		t.Fatalf("wrapped error lost a sentinel: %v", err)
	}
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Path != "industries.LUXURY.demand_slope" || cerr.Reason != "degenerate" {
		t.Fatalf("unexpected error %#v", cerr)
	}
}
