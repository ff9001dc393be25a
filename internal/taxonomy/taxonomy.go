// Package taxonomy holds the per-region keyword tables used to decide which
// parts of a patient record belong to a body region.
package taxonomy

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// Keywords are the lists for one region. Every entry is lower-case.
type Keywords struct {
	Conditions        []string `yaml:"conditions" json:"conditions"`
	Locations         []string `yaml:"locations" json:"locations"`
	Labs              []string `yaml:"labs" json:"labs"`
	MedicationClasses []string `yaml:"medication_classes" json:"medication_classes"`
	Aliases           []string `yaml:"aliases" json:"aliases,omitempty"`
}

// Empty reports whether no keyword list has entries.
func (k Keywords) Empty() bool {
	return len(k.Conditions) == 0 && len(k.Locations) == 0 && len(k.Labs) == 0 && len(k.MedicationClasses) == 0
}

type document struct {
	Regions map[string]Keywords `yaml:"regions"`
}

// Table is an immutable lookup from region id (or alias) to keywords.
type Table struct {
	regions map[string]Keywords
	aliases map[string]string
}

// Load parses a YAML keyword document.
func Load(r io.Reader) (*Table, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode keyword tables: %w", err)
	}

	t := &Table{
		regions: make(map[string]Keywords, len(doc.Regions)),
		aliases: make(map[string]string),
	}
	for id, kw := range doc.Regions {
		key := normalize(id)
		if key == "" {
			return nil, fmt.Errorf("keyword tables: empty region id")
		}
		kw.Conditions = lowerAll(kw.Conditions)
		kw.Locations = lowerAll(kw.Locations)
		kw.Labs = lowerAll(kw.Labs)
		kw.MedicationClasses = lowerAll(kw.MedicationClasses)
		t.regions[key] = kw
	}
	for id, kw := range t.regions {
		for _, alias := range kw.Aliases {
			a := normalize(alias)
			if _, clash := t.regions[a]; clash {
				continue
			}
			if prev, dup := t.aliases[a]; dup && prev != id {
				return nil, fmt.Errorf("keyword tables: alias %q claimed by %q and %q", a, prev, id)
			}
			t.aliases[a] = id
		}
	}
	return t, nil
}

// LoadFile reads tables from path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword tables: %w", err)
	}
	defer f.Close()
	return Load(f)
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded tables. They are parsed once.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Load(strings.NewReader(string(defaultKeywords)))
		if err != nil {
			panic(fmt.Sprintf("embedded keyword tables are invalid: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Lookup resolves regionID case-insensitively, following aliases. Unknown
// regions yield empty Keywords.
func (t *Table) Lookup(regionID string) Keywords {
	if t == nil {
		return Keywords{}
	}
	key := normalize(regionID)
	if kw, ok := t.regions[key]; ok {
		return kw
	}
	if target, ok := t.aliases[key]; ok {
		return t.regions[target]
	}
	return Keywords{}
}

// Has reports whether regionID resolves to an entry.
func (t *Table) Has(regionID string) bool {
	return !t.Lookup(regionID).Empty()
}

// RegionIDs returns the canonical region ids, sorted.
func (t *Table) RegionIDs() []string {
	ids := make([]string, 0, len(t.regions))
	for id := range t.regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = normalize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
