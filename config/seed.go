package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the optional first-boot document referenced by SEED_FILE.
type Seed struct {
	Admins []int64     `yaml:"admins"`
	Groups []SeedGroup `yaml:"groups"`
}

type SeedGroup struct {
	ID              int64  `yaml:"id"`
	Secret          string `yaml:"secret"`
	Cadence         int    `yaml:"cadence"`
	Style           string `yaml:"style"`
	Timezone        string `yaml:"timezone"`
	Active          *bool  `yaml:"active"`
	DefaultAttempts int    `yaml:"default_attempts"`
}

func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return &Seed{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, g := range seed.Groups {
		if g.ID == 0 {
			return nil, fmt.Errorf("seed group #%d has no id", i+1)
		}
	}

	return &seed, nil
}
