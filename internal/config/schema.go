// Required-key schemas for raw configuration documents (decoded YAML or JSON).
package config

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/KhuramC/EconomySim-sub000/internal/economy"
)

// Schema is a tree of required keys. A nil child marks a leaf whose value is
// not inspected further.
type Schema map[string]Schema

func industryKeys(leaf Schema) Schema {
	s := make(Schema, economy.NumIndustries)
	for _, t := range economy.AllIndustries() {
		s[t.String()] = leaf
	}
	return s
}

// PolicySchema lists the keys every policy document must carry.
var PolicySchema = Schema{
	"corporate_income_tax": industryKeys(nil),
	"personal_income_tax":  nil,
	"sales_tax":            industryKeys(nil),
	"property_tax":         nil,
	"tariffs":              industryKeys(nil),
	"subsidies":            industryKeys(nil),
	"price_cap":            industryKeys(nil),
	"minimum_wage":         nil,
}

var demographicSchema = Schema{
	"income":            {"mean": nil, "sd": nil},
	"proportion":        nil,
	"unemployment_rate": nil,
	"spending_behavior": industryKeys(nil),
	"balance":           {"mean": nil, "sd": nil},
}

var industrySchema = Schema{
	"starting_price":        nil,
	"starting_inventory":    nil,
	"starting_balance":      nil,
	"starting_offered_wage": nil,
}

// ModelSchema lists the keys every model document must carry.
var ModelSchema = func() Schema {
	demographics := make(Schema, economy.NumDemographics)
	for _, d := range economy.AllDemographics() {
		demographics[d.String()] = demographicSchema
	}
	return Schema{
		"max_simulation_length": nil,
		"num_people":            nil,
		"inflation_rate":        nil,
		"demographics":          demographics,
		"industries":            industryKeys(industrySchema),
		"policies":              PolicySchema,
	}
}()

// Check verifies doc carries every key in schema. The first level with
// missing keys is reported with all of its missing keys, sorted.
func Check(doc map[string]any, schema Schema, path string) error {
	var missing []string
	for key := range schema {
		if _, ok := doc[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return missingKeys(pathOrRoot(path), missing)
	}

	keys := make([]string, 0, len(schema))
	for key := range schema {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		child := schema[key]
		if child == nil {
			continue
		}
		sub, ok := doc[key].(map[string]any)
		if !ok {
			return invalid(join(path, key), "expected a mapping, got %T", doc[key])
		}
		if err := Check(sub, child, join(path, key)); err != nil {
			return err
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

// DecodeModel checks a raw document against ModelSchema and decodes it into a
// validated ModelConfig.
func DecodeModel(doc map[string]any) (*ModelConfig, error) {
	if err := Check(doc, ModelSchema, ""); err != nil {
		return nil, err
	}
	var cfg ModelConfig
	if err := remarshal(doc, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DecodePolicies checks a raw policy document against PolicySchema and decodes it.
func DecodePolicies(doc map[string]any) (*Policies, error) {
	if err := Check(doc, PolicySchema, "policies"); err != nil {
		return nil, err
	}
	var p Policies
	if err := remarshal(doc, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// remarshal converts a generic document into a typed value through JSON so
// enum-keyed maps use their text unmarshalers.
func remarshal(doc map[string]any, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return invalid("", "encode document: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Reason: fmt.Sprintf("decode document: %v", err)}
	}
	return nil
}
