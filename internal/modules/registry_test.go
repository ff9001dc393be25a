package modules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatomy-twin-server/internal/domain"
)

func mod(id string, prereqs ...string) domain.EducationalModule {
	return domain.EducationalModule{ID: id, Title: id, Type: domain.ModuleTypeCondition, Prerequisites: prereqs}
}

func ids(mods []*domain.EducationalModule) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.ID)
	}
	return out
}

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := DefaultRegistry("")
	require.NoError(t, err)
	return r
}

func TestDefaultRegistry_Embedded(t *testing.T) {
	r := defaultRegistry(t)

	assert.Equal(t, 7, r.Len())
	assert.Empty(t, r.ValidatePrerequisites())
	assert.Empty(t, r.CheckCircularDependencies())

	mi, ok := r.Get("myocardial-infarction")
	require.True(t, ok)
	assert.Equal(t, "Heart Attack (Myocardial Infarction)", mi.Title)
	assert.Len(t, mi.Content, 5)
	require.Len(t, mi.Quiz, 1)
	assert.Equal(t, 1, mi.Quiz[0].CorrectAnswer)
}

func TestDefaultRegistry_ExtraFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	doc := `
modules:
  - id: hypertension
    title: Hypertension Revisited
    type: condition
    specialty: cardiology
  - id: warfarin
    title: Warfarin
    type: medication
    specialty: hematology
    prerequisites: [anticoagulation-basics]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	r, err := DefaultRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, 8, r.Len())

	hyp, _ := r.Get("hypertension")
	assert.Equal(t, "Hypertension Revisited", hyp.Title)
	assert.Equal(t, []MissingPrerequisite{{ModuleID: "warfarin", Prerequisite: "anticoagulation-basics"}}, r.ValidatePrerequisites())

	_, err = DefaultRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed", doc: "modules: [unterminated"},
		{name: "missing id", doc: "modules:\n  - title: No Id\n"},
		{name: "tier out of range", doc: "modules:\n  - id: x\n    content:\n      7:\n        summary: too high\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()

	err := r.Register(domain.EducationalModule{ID: "  "})
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
	assert.Equal(t, 0, r.Len())

	require.NoError(t, r.Register(domain.EducationalModule{ID: "a", Title: "first"}))
	require.NoError(t, r.Register(domain.EducationalModule{ID: "a", Title: "second"}))
	assert.Equal(t, 1, r.Len())

	m, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "second", m.Title)
	assert.False(t, r.Has("b"))
}

func TestQueries(t *testing.T) {
	r := defaultRegistry(t)

	assert.Equal(t, []string{"chronic-kidney-disease", "kidney-foundations"}, ids(r.FindBySpecialty("Nephrology")))
	assert.Equal(t, []string{"echocardiography"}, ids(r.FindByType(domain.ModuleTypeProcedure)))
	assert.Empty(t, r.FindByType(domain.ModuleTypeMedication))
	assert.Equal(t,
		[]string{"echocardiography", "heart-failure", "hypertension", "myocardial-infarction"},
		ids(r.FindDependents("cardiovascular-foundations")))
	assert.Equal(t, []string{"chronic-kidney-disease"}, ids(r.FindDependents("hypertension")))
}

func TestSearch(t *testing.T) {
	r := defaultRegistry(t)

	tests := []struct {
		query    string
		expected []string
	}{
		{query: "troponin", expected: []string{"myocardial-infarction"}},
		{query: "HEART", expected: []string{"cardiovascular-foundations", "heart-failure", "myocardial-infarction"}},
		{query: "nephrology", expected: []string{"chronic-kidney-disease", "kidney-foundations"}},
		{query: "ejection fraction", expected: []string{"echocardiography", "heart-failure"}},
		{query: "appendix", expected: []string{}},
		{query: "   ", expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(r.Search(tt.query)))
		})
	}
}

func TestValidatePrerequisites(t *testing.T) {
	r := NewRegistry(
		mod("a", "missing-1", "b"),
		mod("b"),
		mod("c", "missing-2", "missing-1"),
	)

	assert.Equal(t, []MissingPrerequisite{
		{ModuleID: "a", Prerequisite: "missing-1"},
		{ModuleID: "c", Prerequisite: "missing-2"},
		{ModuleID: "c", Prerequisite: "missing-1"},
	}, r.ValidatePrerequisites())
	assert.Equal(t, "module c requires unknown module missing-2", r.ValidatePrerequisites()[1].Error())
}

func TestCheckCircularDependencies(t *testing.T) {
	tests := []struct {
		name     string
		modules  []domain.EducationalModule
		expected [][]string
	}{
		{
			name:    "acyclic",
			modules: []domain.EducationalModule{mod("a", "b"), mod("b", "c"), mod("c")},
		},
		{
			name:     "self loop",
			modules:  []domain.EducationalModule{mod("a", "a")},
			expected: [][]string{{"a", "a"}},
		},
		{
			name:     "two cycle",
			modules:  []domain.EducationalModule{mod("a", "b"), mod("b", "a")},
			expected: [][]string{{"a", "b", "a"}},
		},
		{
			name:     "three cycle behind an entry node",
			modules:  []domain.EducationalModule{mod("entry", "x"), mod("x", "y"), mod("y", "z"), mod("z", "x")},
			expected: [][]string{{"x", "y", "z", "x"}},
		},
		{
			name: "separate components each reported",
			modules: []domain.EducationalModule{
				mod("a", "b"), mod("b", "a"),
				mod("c", "d"), mod("d", "e"), mod("e", "c"),
			},
			expected: [][]string{{"a", "b", "a"}, {"c", "d", "e", "c"}},
		},
		{
			name:    "unknown prerequisite ignored",
			modules: []domain.EducationalModule{mod("a", "ghost"), mod("b", "a")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.modules...)
			assert.Equal(t, tt.expected, r.CheckCircularDependencies())
		})
	}
}

func TestStatistics(t *testing.T) {
	stats := defaultRegistry(t).Statistics()

	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 4, stats.ByType[domain.ModuleTypeCondition])
	assert.Equal(t, 1, stats.ByType[domain.ModuleTypeFoundation])
	assert.Equal(t, 5, stats.BySpecialty["cardiology"])
	assert.Equal(t, 2, stats.BySpecialty["nephrology"])
	assert.Equal(t, 2, stats.WithQuiz)
	assert.Equal(t, 6, stats.LevelCoverage[domain.ModuleFoundation])
	assert.Equal(t, 2, stats.LevelCoverage[domain.ModuleClinical])
}

func TestContentFor(t *testing.T) {
	r := defaultRegistry(t)
	mi, _ := r.Get("myocardial-infarction")
	hf, _ := r.Get("heart-failure")
	echo, _ := r.Get("echocardiography")

	tests := []struct {
		name       string
		module     *domain.EducationalModule
		level      domain.Level
		expectTier domain.ModuleLevel
		expectOK   bool
	}{
		{name: "expert reads clinical", module: mi, level: domain.LevelExpert, expectTier: domain.ModuleClinical, expectOK: true},
		{name: "advanced reads graduate", module: mi, level: domain.LevelAdvanced, expectTier: domain.ModuleGraduate, expectOK: true},
		{name: "developing reads high school", module: mi, level: domain.LevelDeveloping, expectTier: domain.ModuleHighSchool, expectOK: true},
		{name: "invalid level uses default", module: mi, level: domain.Level(0), expectTier: domain.ModuleCollege, expectOK: true},
		{name: "clinical missing falls to professional", module: hf, level: domain.LevelExpert, expectTier: domain.ModuleProfessional, expectOK: true},
		{name: "graduate missing falls to college", module: hf, level: domain.LevelAdvanced, expectTier: domain.ModuleCollege, expectOK: true},
		{name: "nothing at or below", module: echo, level: domain.LevelFoundation},
		{name: "nil module", module: nil, level: domain.LevelStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, tier, ok := ContentFor(tt.module, tt.level)
			assert.Equal(t, tt.expectOK, ok)
			assert.Equal(t, tt.expectTier, tier)
			if ok {
				assert.Equal(t, tt.module.Content[tier], content)
			}
		})
	}
}

func TestRender(t *testing.T) {
	r := defaultRegistry(t)
	m, ok := r.Get("kidney-foundations")
	require.True(t, ok)

	foundation := r.Render(m, domain.LevelFoundation)
	assert.Equal(t, domain.ModuleFoundation, foundation.Tier)
	require.NotNil(t, foundation.Content)
	assert.Equal(t, []string{"chronic-kidney-disease"}, foundation.Dependents)

	mi, ok := r.Get("myocardial-infarction")
	require.True(t, ok)
	assert.Empty(t, r.Render(mi, domain.LevelDeveloping).Quiz)
	assert.NotEmpty(t, r.Render(mi, domain.LevelStandard).Quiz)

	// Out-of-range levels render at the default.
	assert.Equal(t, domain.DefaultLevel, r.Render(mi, domain.Level(9)).Level)

	echo, ok := r.Get("echocardiography")
	require.True(t, ok)
	assert.Nil(t, r.Render(echo, domain.LevelFoundation).Content)
}

func TestValidate(t *testing.T) {
	assert.True(t, defaultRegistry(t).Validate().Valid)

	broken := NewRegistry(mod("a", "b"), mod("b", "a", "ghost")).Validate()
	assert.False(t, broken.Valid)
	assert.Equal(t, []MissingPrerequisite{{ModuleID: "b", Prerequisite: "ghost"}}, broken.MissingPrerequisites)
	assert.Len(t, broken.Cycles, 1)
	assert.Equal(t, 2, broken.Statistics.Total)

	empty := NewRegistry().Validate()
	assert.True(t, empty.Valid)
	assert.NotNil(t, empty.Cycles)
}
