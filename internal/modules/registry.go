// Package modules is the in-memory registry of authored educational
// modules and the checks run over their prerequisite graph.
package modules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/taxonomy"
)

// Registry stores modules by id. Registered modules must not be modified
// by callers.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*domain.EducationalModule
}

func NewRegistry(mods ...domain.EducationalModule) *Registry {
	r := &Registry{modules: make(map[string]*domain.EducationalModule)}
	for _, m := range mods {
		_ = r.Register(m)
	}
	return r
}

// Register stores m, replacing any module with the same id.
func (r *Registry) Register(m domain.EducationalModule) error {
	if strings.TrimSpace(m.ID) == "" {
		return domain.NewValidationError("id", "module id is required", m.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.ID] = &m
	return nil
}

func (r *Registry) Get(id string) (*domain.EducationalModule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[id]
	return m, ok
}

func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// All returns every module sorted by id.
func (r *Registry) All() []*domain.EducationalModule {
	return r.filter(func(*domain.EducationalModule) bool { return true })
}

func (r *Registry) FindBySpecialty(specialty string) []*domain.EducationalModule {
	return r.filter(func(m *domain.EducationalModule) bool {
		return strings.EqualFold(m.Specialty, specialty)
	})
}

func (r *Registry) FindByType(t domain.ModuleType) []*domain.EducationalModule {
	return r.filter(func(m *domain.EducationalModule) bool { return m.Type == t })
}

// FindDependents returns the modules that list id as a prerequisite.
func (r *Registry) FindDependents(id string) []*domain.EducationalModule {
	return r.filter(func(m *domain.EducationalModule) bool {
		for _, p := range m.Prerequisites {
			if p == id {
				return true
			}
		}
		return false
	})
}

// Search matches query against id, title, specialty and keywords,
// case-insensitively. A blank query matches nothing.
func (r *Registry) Search(query string) []*domain.EducationalModule {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	return r.filter(func(m *domain.EducationalModule) bool {
		return taxonomy.AnyContainsAny([]string{q}, append([]string{m.ID, m.Title, m.Specialty}, m.Keywords...)...)
	})
}

func (r *Registry) filter(keep func(*domain.EducationalModule) bool) []*domain.EducationalModule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.EducationalModule
	for _, m := range r.modules {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MissingPrerequisite is one prerequisite reference to an unregistered id.
type MissingPrerequisite struct {
	ModuleID     string `json:"module_id"`
	Prerequisite string `json:"prerequisite"`
}

func (e MissingPrerequisite) Error() string {
	return fmt.Sprintf("module %s requires unknown module %s", e.ModuleID, e.Prerequisite)
}

// ValidatePrerequisites reports every reference to an unregistered module,
// ordered by module id then prerequisite order.
func (r *Registry) ValidatePrerequisites() []MissingPrerequisite {
	var missing []MissingPrerequisite
	for _, m := range r.All() {
		for _, p := range m.Prerequisites {
			if !r.Has(p) {
				missing = append(missing, MissingPrerequisite{ModuleID: m.ID, Prerequisite: p})
			}
		}
	}
	return missing
}

const (
	white = iota
	gray
	black
)

// CheckCircularDependencies walks the prerequisite graph depth-first and
// returns one cycle per back edge found, each written as a closed path
// (first id repeated at the end). Every strongly connected component with
// a cycle contributes at least one. Edges to unregistered modules are
// ignored.
func (r *Registry) CheckCircularDependencies() [][]string {
	r.mu.RLock()
	graph := make(map[string][]string, len(r.modules))
	ids := make([]string, 0, len(r.modules))
	for id, m := range r.modules {
		ids = append(ids, id)
		for _, p := range m.Prerequisites {
			if _, ok := r.modules[p]; ok {
				graph[id] = append(graph[id], p)
			}
		}
	}
	r.mu.RUnlock()
	sort.Strings(ids)

	color := make(map[string]int, len(ids))
	var stack []string
	var cycles [][]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range graph[id] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				start := len(stack) - 1
				for stack[start] != next {
					start--
				}
				cycle := append([]string(nil), stack[start:]...)
				cycles = append(cycles, append(cycle, next))
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

// Statistics summarizes the registry.
type Statistics struct {
	Total         int                        `json:"total"`
	ByType        map[domain.ModuleType]int  `json:"by_type"`
	BySpecialty   map[string]int             `json:"by_specialty"`
	WithQuiz      int                        `json:"with_quiz"`
	LevelCoverage map[domain.ModuleLevel]int `json:"level_coverage"`
}

func (r *Registry) Statistics() Statistics {
	stats := Statistics{
		ByType:        make(map[domain.ModuleType]int),
		BySpecialty:   make(map[string]int),
		LevelCoverage: make(map[domain.ModuleLevel]int),
	}
	for _, m := range r.All() {
		stats.Total++
		stats.ByType[m.Type]++
		if m.Specialty != "" {
			stats.BySpecialty[m.Specialty]++
		}
		if len(m.Quiz) > 0 {
			stats.WithQuiz++
		}
		for level := range m.Content {
			stats.LevelCoverage[level]++
		}
	}
	return stats
}

// ContentFor resolves the module text for a reader level through
// Level.ToModuleLevel. When that tier was not authored the closest lower
// tier is used; the tier actually served is returned alongside.
func ContentFor(m *domain.EducationalModule, level domain.Level) (domain.LevelContent, domain.ModuleLevel, bool) {
	if m == nil {
		return domain.LevelContent{}, 0, false
	}
	for tier := level.ToModuleLevel(); tier >= domain.ModuleFoundation; tier-- {
		if c, ok := m.Content[tier]; ok {
			return c, tier, true
		}
	}
	return domain.LevelContent{}, 0, false
}
