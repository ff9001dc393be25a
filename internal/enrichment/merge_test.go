package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatomy-twin-server/internal/domain"
)

func sampleContent() *domain.RegionContent {
	return &domain.RegionContent{
		ID:          "kidneys",
		Name:        "Kidneys",
		Description: "Paired filters.",
		BodySystems: []string{"urinary"},
		Histology: domain.HistologyContent{
			TissueTypes: []domain.TissueTypeInfo{
				{Name: "Renal Cortex", Category: domain.TissueEpithelial},
				{Name: "Capsule", Category: domain.TissueConnective},
			},
		},
		Pathology: domain.PathologyContent{
			CommonConditions: []domain.ConditionInfo{
				{Name: "Kidney Stones", Symptoms: []string{"Flank pain"}},
				{Name: "Chronic Kidney Disease", Symptoms: []string{"Fatigue"}},
			},
			ClinicalPresentations: []string{"Flank pain"},
		},
		RelatedStructures: []string{"Ureters"},
		ClinicalNotes:     []string{"Hydrate"},
	}
}

func TestMerge_Structures(t *testing.T) {
	view := Merge(sampleContent(), Live{
		Anatomy: &domain.AnatomyRegion{ID: "renal-pelvis", Name: "Renal Pelvis", Function: "Collects urine"},
	})

	require.Len(t, view.Structures, 4)
	root := view.Structures[0]
	assert.Equal(t, "kidneys", root.ID)
	assert.Equal(t, domain.StructureOrgan, root.Type)
	assert.Equal(t, "Paired filters. Collects urine", root.Description)
	assert.Equal(t, []string{"kidneys-tissue-0", "kidneys-tissue-1", "renal-pelvis"}, root.Children)

	assert.Equal(t, "Renal Cortex", view.Structures[1].Name)
	assert.Equal(t, domain.StructureTissue, view.Structures[1].Type)
	assert.Equal(t, "kidneys", view.Structures[1].ParentID)
	assert.Equal(t, "renal-pelvis", view.Structures[3].ID)
	assert.Equal(t, "anatomy:renal-pelvis", view.Structures[3].ExternalRef)

	for _, layer := range view.Layers {
		for _, id := range layer.StructureIDs {
			assert.Contains(t, root.Children, id, "layer member must be a structure")
		}
	}
}

func TestMerge_AnatomySameAsRegion(t *testing.T) {
	view := Merge(sampleContent(), Live{
		Anatomy: &domain.AnatomyRegion{ID: "Kidneys", Function: "Filter blood"},
	})
	assert.Len(t, view.Structures, 3)
	assert.NotContains(t, view.Structures[0].Children, "Kidneys")

	noTissue := Merge(&domain.RegionContent{ID: "head", Name: "Head"}, Live{})
	require.Len(t, noTissue.Structures, 1)
	assert.Equal(t, domain.StructureOther, noTissue.Structures[0].Type)
	assert.Empty(t, noTissue.Structures[0].Children)
}

func TestMerge_Symptoms(t *testing.T) {
	view := Merge(sampleContent(), Live{
		Symptoms: []domain.SymptomEntry{
			{Name: "FLANK PAIN", PossibleCauses: []string{"kidney-stones"}},
			{Name: "Blood in Urine", PossibleCauses: []string{"Kidney Stones", "bladder-cancer"}},
			{Name: "Swelling", PossibleCauses: []string{"chronic-kidney-disease-stage-3"}},
			{Name: "Nausea", PossibleCauses: []string{"gastritis"}},
		},
	})

	assert.Equal(t, []string{"Flank pain", "Blood in Urine", "Swelling", "Nausea"}, view.Pathology.ClinicalPresentations)

	stones := view.Pathology.CommonConditions[0]
	assert.Equal(t, []string{"Flank pain", "Blood in Urine"}, stones.Symptoms, "case-insensitive duplicate is not re-added")

	ckd := view.Pathology.CommonConditions[1]
	assert.Equal(t, []string{"Fatigue", "Swelling"}, ckd.Symptoms, "cause slug containing the condition slug correlates")
}

func TestCausedBy(t *testing.T) {
	tests := []struct {
		condition string
		causes    []string
		expected  bool
	}{
		{"Heart Failure", []string{"heart-failure"}, true},
		{"Congestive Heart Failure", []string{"heart-failure"}, true},
		{"Failure", []string{"heart-failure"}, true},
		{"Myocardial Infarction", []string{"angina", "gerd"}, false},
		{"", []string{"anything"}, false},
		{"Asthma", []string{"", "--"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, causedBy(tt.condition, tt.causes), tt.condition)
	}
}

func TestMerge_Specialists(t *testing.T) {
	specialties := []domain.MedicalSpecialty{{ID: "nephrology", Name: "Nephrology"}, {ID: "urology", Name: "Urology"}}

	view := Merge(sampleContent(), Live{Specialties: specialties})
	assert.Equal(t, []string{"Hydrate", "Specialists: Nephrology, Urology"}, view.ClinicalNotes)
	assert.Equal(t, specialties, view.Specialties)

	again := Merge(view.Content(), Live{Specialties: specialties})
	assert.Equal(t, view.ClinicalNotes, again.ClinicalNotes, "note is added once")

	none := Merge(sampleContent(), Live{})
	assert.Equal(t, []string{"Hydrate"}, none.ClinicalNotes)
}

func TestMerge_Related(t *testing.T) {
	view := Merge(sampleContent(), Live{
		Related: []domain.KnowledgeNode{
			{ID: "anatomy:ureters"},
			{ID: "anatomy:bladder"},
			{ID: "ANATOMY:Bladder"},
			{ID: "adrenal-glands"},
		},
	})
	assert.Equal(t, []string{"Ureters", "bladder", "adrenal-glands"}, view.RelatedStructures)
}

func TestMergeDescription(t *testing.T) {
	tests := []struct {
		name     string
		static   string
		live     string
		expected string
	}{
		{"live longer", "Short.", "A much longer narrative.", "Short. A much longer narrative."},
		{"live equal length", "abcdef", "ghijkl", "abcdef"},
		{"live shorter", "A long authored description.", "Brief.", "A long authored description."},
		{"no live", "Authored.", "", "Authored."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mergeDescription(tt.static, tt.live))
		})
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	static := sampleContent()

	Merge(static, Live{
		Anatomy:     &domain.AnatomyRegion{ID: "renal-pelvis", Function: "A longer narrative than the authored one."},
		Symptoms:    []domain.SymptomEntry{{Name: "Blood in Urine", PossibleCauses: []string{"kidney-stones"}}},
		Specialties: []domain.MedicalSpecialty{{ID: "urology", Name: "Urology"}},
		Related:     []domain.KnowledgeNode{{ID: "anatomy:bladder"}},
	})

	assert.Equal(t, sampleContent(), static)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Heart Failure":              "heart-failure",
		"  Chronic Kidney--Disease ": "chronic-kidney-disease",
		"COPD (chronic)":             "copd-chronic",
		"Síndrome":                   "síndrome",
		"":                           "",
		"---":                        "",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, Slugify(in), in)
	}
}
