package modules

import (
	"sort"

	"github.com/anatomy-twin-server/internal/domain"
)

// Rendered is a module resolved for one reader level.
type Rendered struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Type          domain.ModuleType     `json:"type"`
	Specialty     string                `json:"specialty,omitempty"`
	Prerequisites []string              `json:"prerequisites,omitempty"`
	Level         domain.Level          `json:"level"`
	Tier          domain.ModuleLevel    `json:"tier,omitempty"`
	Content       *domain.LevelContent  `json:"content,omitempty"`
	Quiz          []domain.QuizQuestion `json:"quiz,omitempty"`
	Dependents    []string              `json:"dependents,omitempty"`
}

// Render resolves m's content tier for level and lists the modules that
// depend on it. The quiz is included from the standard level upwards.
func (r *Registry) Render(m *domain.EducationalModule, level domain.Level) Rendered {
	level = level.OrDefault()
	out := Rendered{
		ID:            m.ID,
		Title:         m.Title,
		Type:          m.Type,
		Specialty:     m.Specialty,
		Prerequisites: m.Prerequisites,
		Level:         level,
	}
	if c, tier, ok := ContentFor(m, level); ok {
		out.Tier = tier
		out.Content = &c
	}
	if level >= domain.LevelStandard {
		out.Quiz = m.Quiz
	}
	for _, d := range r.FindDependents(m.ID) {
		out.Dependents = append(out.Dependents, d.ID)
	}
	sort.Strings(out.Dependents)
	return out
}

// Validation is the outcome of checking the prerequisite graph.
type Validation struct {
	Valid                bool                  `json:"valid"`
	MissingPrerequisites []MissingPrerequisite `json:"missing_prerequisites"`
	Cycles               [][]string            `json:"cycles"`
	Statistics           Statistics            `json:"statistics"`
}

func (r *Registry) Validate() Validation {
	out := Validation{
		MissingPrerequisites: r.ValidatePrerequisites(),
		Cycles:               r.CheckCircularDependencies(),
		Statistics:           r.Statistics(),
	}
	if out.MissingPrerequisites == nil {
		out.MissingPrerequisites = []MissingPrerequisite{}
	}
	if out.Cycles == nil {
		out.Cycles = [][]string{}
	}
	out.Valid = len(out.MissingPrerequisites) == 0 && len(out.Cycles) == 0
	return out
}
