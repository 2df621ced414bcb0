package classifier

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadRules reads operator-defined preserve rules from a YAML file.
// A missing file is not an error and yields no rules.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for i, r := range file.Preserve {
		if r.Pattern == "" {
			return nil, fmt.Errorf("preserve rule %d (%q) has no pattern", i+1, r.Name)
		}
		if r.Name == "" {
			file.Preserve[i].Name = fmt.Sprintf("custom rule %d", i+1)
		}
	}

	return file.Preserve, nil
}

// NewFromFile builds a classifier from the builtin table plus the rules in path
func NewFromFile(path string) (*Classifier, error) {
	extra, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return New(extra...)
}

// SaveRules writes rules to path in the format LoadRules reads
func SaveRules(path string, rules []Rule) error {
	data, err := yaml.Marshal(RulesFile{Preserve: rules})
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}

	return nil
}
