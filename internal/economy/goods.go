// Package economy provides the pure economic math of the simulator: goods and
// class enumerations, the pricing solver, and CES demand allocation.
package economy

import (
	"fmt"
	"strings"
)

// IndustryType enumerates the goods categories. Exactly one industry agent
// exists per type in a model.
type IndustryType uint8

const (
	IndustryGroceries      IndustryType = iota // Food staples
	IndustryUtilities                          // Power, water, internet
	IndustryAutomobiles                        // Cars and transport
	IndustryHousing                            // Rent
	IndustryHouseholdGoods                     // Furniture, appliances
	IndustryEntertainment                      // Leisure
	IndustryLuxury                             // Discretionary high-end goods
)

// NumIndustries is the total number of industry types.
const NumIndustries = 7

var industryNames = [NumIndustries]string{
	"GROCERIES",
	"UTILITIES",
	"AUTOMOBILES",
	"HOUSING",
	"HOUSEHOLD_GOODS",
	"ENTERTAINMENT",
	"LUXURY",
}

// AllIndustries returns every industry type in declaration order.
func AllIndustries() []IndustryType {
	out := make([]IndustryType, NumIndustries)
	for i := range out {
		out[i] = IndustryType(i)
	}
	return out
}

func (t IndustryType) String() string {
	if int(t) < len(industryNames) {
		return industryNames[t]
	}
	return fmt.Sprintf("IndustryType(%d)", uint8(t))
}

// Valid reports whether t is a declared industry type.
func (t IndustryType) Valid() bool {
	return int(t) < NumIndustries
}

// ParseIndustryType maps a name such as "GROCERIES" (case-insensitive) to its type.
func ParseIndustryType(name string) (IndustryType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range industryNames {
		if n == upper {
			return IndustryType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown industry type %q", name)
}

// MarshalText lets IndustryType serve as a JSON object key.
func (t IndustryType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid industry type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *IndustryType) UnmarshalText(b []byte) error {
	parsed, err := ParseIndustryType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Demographic is a person's income class.
type Demographic uint8

const (
	DemographicLower Demographic = iota
	DemographicMiddle
	DemographicUpper
)

// NumDemographics is the total number of demographic classes.
const NumDemographics = 3

var demographicNames = [NumDemographics]string{
	"LOWER_CLASS",
	"MIDDLE_CLASS",
	"UPPER_CLASS",
}

// AllDemographics returns every class in declaration order.
func AllDemographics() []Demographic {
	return []Demographic{DemographicLower, DemographicMiddle, DemographicUpper}
}

func (d Demographic) String() string {
	if int(d) < len(demographicNames) {
		return demographicNames[d]
	}
	return fmt.Sprintf("Demographic(%d)", uint8(d))
}

// Valid reports whether d is a declared class.
func (d Demographic) Valid() bool {
	return int(d) < NumDemographics
}

// ParseDemographic maps a name such as "MIDDLE_CLASS" (case-insensitive) to its class.
func ParseDemographic(name string) (Demographic, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range demographicNames {
		if n == upper {
			return Demographic(i), nil
		}
	}
	return 0, fmt.Errorf("unknown demographic %q", name)
}

func (d Demographic) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid demographic %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Demographic) UnmarshalText(b []byte) error {
	parsed, err := ParseDemographic(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PricingStrategy selects how an industry sets price and quantity.
type PricingStrategy uint8

const (
	// AverageCost prices where demand meets average total cost.
	AverageCost PricingStrategy = iota
	// LinearProfitMax prices where marginal revenue meets marginal cost.
	LinearProfitMax
)

func (s PricingStrategy) String() string {
	switch s {
	case AverageCost:
		return "AVERAGE_COST"
	case LinearProfitMax:
		return "LINEAR_PROFIT_MAX"
	}
	return fmt.Sprintf("PricingStrategy(%d)", uint8(s))
}

func (s PricingStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PricingStrategy) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "AVERAGE_COST", "":
		*s = AverageCost
	case "LINEAR_PROFIT_MAX":
		*s = LinearProfitMax
	default:
		return fmt.Errorf("unknown pricing strategy %q", string(b))
	}
	return nil
}
