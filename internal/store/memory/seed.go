package memory

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aether-community/backend/internal/models"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Events    []models.Event      `yaml:"events"`
	Resources []models.Resource   `yaml:"resources"`
	Updates   []models.UpdatePost `yaml:"updates"`
}

// Seed loads the bundled development catalog (events, resources, updates).
func (s *Store) Seed() error {
	var f seedFile
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return fmt.Errorf("parse seed catalog: %w", err)
	}
	for _, e := range f.Events {
		s.PutEvent(e)
	}
	for _, r := range f.Resources {
		s.PutResource(r)
	}
	for _, p := range f.Updates {
		s.PutUpdate(p)
	}
	return nil
}
