// Package content serves the authored per-region content bundles.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/anatomy-twin-server/internal/domain"
)

//go:embed regions/*.yaml
var embedded embed.FS

// Store is a read-only set of region bundles. Every accessor hands out deep
// copies, so the authored data cannot be changed through a Store.
type Store struct {
	regions map[string]*domain.RegionContent
	ids     []string
}

// NewStore builds a store from the given bundles. Later bundles with the
// same id replace earlier ones.
func NewStore(regions ...*domain.RegionContent) (*Store, error) {
	s := &Store{regions: make(map[string]*domain.RegionContent, len(regions))}
	for _, rc := range regions {
		if err := s.add(rc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) add(rc *domain.RegionContent) error {
	if rc == nil || strings.TrimSpace(rc.ID) == "" {
		return fmt.Errorf("region content without id")
	}
	if _, exists := s.regions[rc.ID]; !exists {
		s.ids = append(s.ids, rc.ID)
		sort.Strings(s.ids)
	}
	s.regions[rc.ID] = rc.Clone()
	return nil
}

// Decode reads a YAML stream of one or more region documents.
func Decode(r io.Reader) ([]*domain.RegionContent, error) {
	dec := yaml.NewDecoder(r)
	var out []*domain.RegionContent
	for {
		var rc domain.RegionContent
		err := dec.Decode(&rc)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode region content: %w", err)
		}
		out = append(out, &rc)
	}
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the store holding the embedded bundles.
func Default() *Store {
	defaultOnce.Do(func() {
		s, err := loadFS(embedded, "regions")
		if err != nil {
			panic(fmt.Sprintf("embedded region content is invalid: %v", err))
		}
		defaultStore = s
	})
	return defaultStore
}

func loadFS(fsys fs.FS, dir string) (*Store, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	s := &Store{regions: make(map[string]*domain.RegionContent)}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		f, err := fsys.Open(path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		docs, err := Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		for _, rc := range docs {
			if err := s.add(rc); err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name(), err)
			}
		}
	}
	return s, nil
}

// WithFile returns a copy of s extended (or overridden) by the bundles in
// the YAML file at path.
func (s *Store) WithFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open region content: %w", err)
	}
	defer f.Close()

	docs, err := Decode(f)
	if err != nil {
		return nil, err
	}
	out := &Store{regions: make(map[string]*domain.RegionContent, len(s.regions)+len(docs))}
	for _, id := range s.ids {
		_ = out.add(s.regions[id])
	}
	for _, rc := range docs {
		if err := out.add(rc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetRegionContent returns a deep copy of the bundle for id.
func (s *Store) GetRegionContent(id string) (*domain.RegionContent, bool) {
	rc, ok := s.regions[id]
	if !ok {
		return nil, false
	}
	return rc.Clone(), true
}

// RegionsBySystem returns every region listing the body system, by id.
func (s *Store) RegionsBySystem(system string) []*domain.RegionContent {
	var out []*domain.RegionContent
	for _, id := range s.ids {
		rc := s.regions[id]
		for _, bs := range rc.BodySystems {
			if strings.EqualFold(bs, system) {
				out = append(out, rc.Clone())
				break
			}
		}
	}
	return out
}

// ModelsForRegion returns the region's model references, or nil.
func (s *Store) ModelsForRegion(id string) []domain.ModelReference {
	rc, ok := s.regions[id]
	if !ok || len(rc.Models) == 0 {
		return nil
	}
	return append([]domain.ModelReference(nil), rc.Models...)
}

// Search matches the query against region name, description, tissue names
// and condition names.
func (s *Store) Search(query string) []*domain.RegionContent {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []*domain.RegionContent
	for _, id := range s.ids {
		rc := s.regions[id]
		if matches(rc, q) {
			out = append(out, rc.Clone())
		}
	}
	return out
}

func matches(rc *domain.RegionContent, q string) bool {
	if strings.Contains(strings.ToLower(rc.Name), q) || strings.Contains(strings.ToLower(rc.Description), q) {
		return true
	}
	for _, t := range rc.Histology.TissueTypes {
		if strings.Contains(strings.ToLower(t.Name), q) {
			return true
		}
	}
	for _, c := range rc.Pathology.CommonConditions {
		if strings.Contains(strings.ToLower(c.Name), q) {
			return true
		}
	}
	return false
}

// RegionIDs returns all region ids, sorted.
func (s *Store) RegionIDs() []string {
	return append([]string(nil), s.ids...)
}

// Len reports the number of regions.
func (s *Store) Len() int { return len(s.ids) }
