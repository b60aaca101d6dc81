package ai

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings configures the oracle: which model to call, the sampling
// temperature, and the system instructions that fix the command contract.
type Settings struct {
	Model              string  `yaml:"model"`
	Temperature        float64 `yaml:"temperature"`
	SystemInstructions string  `yaml:"system_instructions"`
}

type settingsRoot struct {
	Assistant Settings `yaml:"assistant"`
}

// LoadSettings reads the oracle settings from a YAML file.
func LoadSettings(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read assistant settings: %w", err)
	}

	var root settingsRoot
	if err := yaml.Unmarshal(b, &root); err != nil {
		return Settings{}, fmt.Errorf("unmarshal assistant settings: %w", err)
	}

	if root.Assistant.Model == "" {
		return Settings{}, fmt.Errorf("assistant model missing")
	}
	if root.Assistant.SystemInstructions == "" {
		return Settings{}, fmt.Errorf("system instructions missing")
	}
	return root.Assistant, nil
}
