package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a model configuration from a YAML (or JSON) file, checks it
// against ModelSchema and validates it.
func Load(path string) (*ModelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg, err := DecodeModel(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseDocument decodes YAML or JSON into a generic document.
func ParseDocument(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("parse document: %v", err)}
	}
	if doc == nil {
		return nil, &Error{Reason: "document is empty"}
	}
	return doc, nil
}

// EncodeYAML renders a model configuration as a YAML document using the same
// key names Load accepts.
func EncodeYAML(cfg *ModelConfig) ([]byte, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}
