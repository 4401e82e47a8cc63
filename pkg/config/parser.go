package config

import (
	"fmt"
	"os"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a configuration document at path, layering it
// over Defaults(): any field the document leaves unset keeps its default
// value instead of being zeroed out.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	merged := Defaults()
	if err := mergo.Merge(&merged, loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("layer config over defaults: %w", err)
	}
	return &merged, nil
}
