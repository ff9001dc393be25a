package modules

import (
	_ "embed"
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anatomy-twin-server/internal/domain"
)

//go:embed modules.yaml
var embeddedModules []byte

type moduleFile struct {
	Modules []domain.EducationalModule `yaml:"modules"`
}

// Load decodes a YAML document with a top-level "modules" list.
func Load(r io.Reader) ([]domain.EducationalModule, error) {
	var f moduleFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode modules: %w", err)
	}
	for i, m := range f.Modules {
		for level := range m.Content {
			if !level.Valid() {
				return nil, fmt.Errorf("module %s: content tier %d outside 1..6", m.ID, level)
			}
		}
		if m.ID == "" {
			return nil, fmt.Errorf("module at index %d has no id", i)
		}
	}
	return f.Modules, nil
}

// DefaultRegistry holds the embedded sample modules, extended by the file
// at path when path is not empty.
func DefaultRegistry(path string) (*Registry, error) {
	mods, err := Load(bytes.NewReader(embeddedModules))
	if err != nil {
		return nil, fmt.Errorf("embedded modules: %w", err)
	}
	r := NewRegistry(mods...)
	if path == "" {
		return r, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open modules file: %w", err)
	}
	defer f.Close()
	extra, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, m := range extra {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}
