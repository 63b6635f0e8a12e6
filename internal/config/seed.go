package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// Seed is the YAML document used to populate the in-memory store.
type Seed struct {
	Monitors []domain.Monitor `yaml:"monitors"`
	Contacts []domain.Contact `yaml:"contacts"`
	Bindings []Binding        `yaml:"bindings"`
}

// Binding attaches contacts to a monitor.
type Binding struct {
	Monitor  domain.MonitorID `yaml:"monitor"`
	Contacts []string         `yaml:"contacts"`
}

// LoadSeed reads a seed file. A missing path yields an empty seed.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return Seed{}, nil
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Seed{}, nil
	}
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}

	var s Seed
	if err := yaml.Unmarshal(content, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}

	monitors := make(map[domain.MonitorID]bool, len(s.Monitors))
	for i, m := range s.Monitors {
		if m.ID == "" {
			return Seed{}, fmt.Errorf("monitor %d is missing id", i)
		}
		if m.Kind == "" {
			return Seed{}, fmt.Errorf("monitor %s is missing kind", m.ID)
		}
		monitors[m.ID] = true
	}
	contacts := make(map[string]bool, len(s.Contacts))
	for i, c := range s.Contacts {
		if c.ID == "" {
			return Seed{}, fmt.Errorf("contact %d is missing id", i)
		}
		contacts[c.ID] = true
	}
	for _, b := range s.Bindings {
		if !monitors[b.Monitor] {
			return Seed{}, fmt.Errorf("binding references unknown monitor %s", b.Monitor)
		}
		for _, cid := range b.Contacts {
			if !contacts[cid] {
				return Seed{}, fmt.Errorf("binding for %s references unknown contact %s", b.Monitor, cid)
			}
		}
	}
	return s, nil
}
