package match

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds the per-match gameplay configuration.
type Settings struct {
	RoundSeconds      int `yaml:"round_seconds"`
	ValidationSeconds int `yaml:"validation_seconds"`
	RoundsPerMatch    int `yaml:"rounds_per_match"`
	WordsPerRound     int `yaml:"words_per_round"`
}

// DefaultSettings returns the standard ruleset.
func DefaultSettings() Settings {
	return Settings{
		RoundSeconds:      60,
		ValidationSeconds: 30,
		RoundsPerMatch:    3,
		WordsPerRound:     10,
	}
}

// Validate rejects settings no match could run under.
func (s Settings) Validate() error {
	if s.RoundSeconds <= 0 {
		return fmt.Errorf("round_seconds must be positive, got %d", s.RoundSeconds)
	}
	if s.ValidationSeconds <= 0 {
		return fmt.Errorf("validation_seconds must be positive, got %d", s.ValidationSeconds)
	}
	if s.RoundsPerMatch <= 0 {
		return fmt.Errorf("rounds_per_match must be positive, got %d", s.RoundsPerMatch)
	}
	if s.WordsPerRound <= 0 {
		return fmt.Errorf("words_per_round must be positive, got %d", s.WordsPerRound)
	}
	return nil
}

// LoadSettings reads settings from a YAML file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}
