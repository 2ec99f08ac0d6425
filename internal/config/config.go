package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"fundline/internal/domain"
)

// Config models fundline.yml.
type Config struct {
	Board struct {
		DefaultStatus   string `yaml:"default_status"`
		DefaultPriority string `yaml:"default_priority"`
	} `yaml:"board"`
	Reminders struct {
		Enabled     bool   `yaml:"enabled"`
		Time        string `yaml:"time"`
		HorizonDays int    `yaml:"horizon_days"`
	} `yaml:"reminders"`
	Seed struct {
		Phases     []string `yaml:"phases"`
		Categories []string `yaml:"categories"`
	} `yaml:"seed"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if _, err := domain.ParseStatus(c.Board.DefaultStatus); err != nil {
		return fmt.Errorf("config.board.default_status: %w", err)
	}
	if _, err := domain.ParsePriority(c.Board.DefaultPriority); err != nil {
		return fmt.Errorf("config.board.default_priority: %w", err)
	}
	if c.Reminders.Enabled {
		if err := validateClock(c.Reminders.Time); err != nil {
			return fmt.Errorf("config.reminders.time: %w", err)
		}
		if c.Reminders.HorizonDays < 0 {
			return fmt.Errorf("config.reminders.horizon_days must be non-negative")
		}
	}
	return nil
}

func validateClock(v string) error {
	parts := strings.Split(v, ":")
	if len(parts) != 2 {
		return fmt.Errorf("expected HH:MM, got %q", v)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour in %q", v)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute in %q", v)
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "fundline.yml")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// DefaultTemplate returns the commented YAML written by workspace init.
func DefaultTemplate() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `board:
  default_status: backlog
  default_priority: medium

reminders:
  enabled: true
  time: "09:00"
  horizon_days: 3

seed:
  phases:
    - Intake
    - Underwriting
    - Funding
    - Post-Funding
  categories:
    - Operations
    - Marketing
    - Compliance
`
