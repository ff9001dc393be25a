package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatomy-twin-server/internal/content"
	"github.com/anatomy-twin-server/internal/domain"
)

var allLevels = []domain.Level{1, 2, 3, 4, 5}

func heartContent(t *testing.T) *domain.RegionContent {
	rc, ok := content.Default().GetRegionContent("heart")
	require.True(t, ok)
	return rc
}

func TestFirstSentence(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"A muscular pump. It beats.", "A muscular pump."},
		{"No period here", "No period here."},
		{"  padded . rest", "padded."},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FirstSentence(tt.text), tt.text)
	}
}

func TestFirstSentences(t *testing.T) {
	text := "One. Two. Three."
	assert.Equal(t, "One. Two.", FirstSentences(text, 2))
	assert.Equal(t, text, FirstSentences(text, 3))
	assert.Equal(t, text, FirstSentences(text, 5))
	assert.Equal(t, "", FirstSentences(text, 0))
	assert.Equal(t, "", FirstSentences("", 2))
}

func TestFilterImages(t *testing.T) {
	images := heartContent(t).Histology.Images
	require.Len(t, images, 3)

	tests := []struct {
		level    domain.Level
		expected int
	}{
		{1, 1}, {2, 1}, {3, 2}, {4, 3}, {5, 3}, {0, 2}, {9, 2},
	}
	for _, tt := range tests {
		filtered := FilterImages(images, tt.level)
		assert.Len(t, filtered, tt.expected, "level %d", tt.level)
		for _, img := range filtered {
			assert.LessOrEqual(t, img.MinLevel, tt.level.OrDefault())
		}
	}
	assert.NotNil(t, FilterImages(nil, 3))
}

func TestCondition_Levels(t *testing.T) {
	mi := heartContent(t).Pathology.CommonConditions[0]
	require.Equal(t, "Myocardial Infarction", mi.Name)

	l1 := Condition(mi, 1)
	assert.Equal(t, "Death of heart muscle caused by a sudden loss of blood supply.", l1.Summary)
	assert.Len(t, l1.Symptoms, 2)
	assert.Empty(t, l1.Severity)

	l2 := Condition(mi, 2)
	assert.Len(t, l2.Symptoms, 3)
	assert.Equal(t, "Coronary occlusion causing ischemic necrosis.", l2.BasicCause)
	assert.Equal(t, domain.SeverityLifeThreatening, l2.Severity)
	assert.Empty(t, l2.Pathophysiology)

	l3 := Condition(mi, 3)
	assert.Equal(t, mi.Description, l3.Summary)
	assert.NotEmpty(t, l3.Pathophysiology)
	assert.Empty(t, l3.MolecularMechanism)

	l4 := Condition(mi, 4)
	assert.NotEmpty(t, l4.MolecularMechanism)
	assert.Len(t, l4.DiagnosticCriteria, 4)
	assert.NotEmpty(t, l4.TreatmentOverview)
	assert.Empty(t, l4.ClinicalPearls)

	l5 := Condition(mi, 5)
	assert.NotEmpty(t, l5.ClinicalPearls)
	assert.NotEmpty(t, l5.DifferentialDiagnosis)
	assert.NotEmpty(t, l5.ResearchContext)
}

func TestCondition_MechanismFallbackAndNoMutation(t *testing.T) {
	arrhythmia := domain.ConditionInfo{
		Name:      "Arrhythmia",
		Mechanism: "Abnormal electrical conduction",
		Symptoms:  []string{"Palpitations", "Syncope", "Sudden death", "Dizziness", "Fatigue"},
		Severity:  domain.SeverityModerate,
	}
	before := arrhythmia.Clone()

	v := Condition(arrhythmia, 2)
	assert.Equal(t, "Abnormal electrical conduction", v.Summary)
	assert.Len(t, v.Symptoms, 4)

	v.Symptoms[0] = "changed"
	assert.Equal(t, before, arrhythmia)
}

func TestMonotonicFields(t *testing.T) {
	rc := heartContent(t)
	view := &domain.RegionalEncyclopediaData{
		Region: domain.Region{ID: "heart", Name: "Heart", Description: rc.Description},
		Structures: []domain.AnatomicalStructure{
			{ID: "heart", Name: "Heart", Description: rc.Description, Type: domain.StructureOrgan, Children: []string{"heart-tissue-0"}},
			{ID: "heart-tissue-0", Name: "Cardiac Muscle", Type: domain.StructureTissue, ParentID: "heart"},
		},
		Histology:         rc.Histology,
		Pathology:         rc.Pathology,
		Physiology:        rc.Physiology,
		RelatedStructures: rc.RelatedStructures,
		ClinicalNotes:     rc.ClinicalNotes,
		AnatomyRegion:     &domain.AnatomyRegion{ID: "heart", Location: "Center of chest", Procedures: []string{"echocardiogram"}},
	}

	views := map[string]func(domain.Level) any{
		"condition": func(l domain.Level) any { return Condition(rc.Pathology.CommonConditions[0], l) },
		"tissue":    func(l domain.Level) any { return Tissue(rc.Histology.TissueTypes[0], l) },
		"stain":     func(l domain.Level) any { return Stain(rc.Histology.Stains[0], l) },
		"marker":    func(l domain.Level) any { return Marker(rc.Pathology.DiagnosticMarkers[0], l) },
		"structure": func(l domain.Level) any {
			return Structure(view.Structures[0], l, ContextFor(view, "heart"))
		},
		"region": func(l domain.Level) any { return Region(view, l) },
	}

	for name, project := range views {
		t.Run(name, func(t *testing.T) {
			prev := VisibleFields(project(allLevels[0]))
			for _, level := range allLevels[1:] {
				cur := VisibleFields(project(level))
				assert.Subset(t, cur, prev, "level %d must show everything level %d shows", level, level-1)
				prev = cur
			}
		})
	}
}

func TestStructure_Sections(t *testing.T) {
	rc := heartContent(t)
	root := domain.AnatomicalStructure{
		ID: "heart", Name: "Heart", Type: domain.StructureOrgan,
		Description: "A muscular pump. It has four chambers. It beats constantly.",
		Children:    []string{"heart-tissue-0", "aorta"},
	}
	ctx := StructureContext{
		Content: rc,
		Structures: []domain.AnatomicalStructure{
			root,
			{ID: "heart-tissue-0", Name: "Cardiac Muscle", ParentID: "heart"},
		},
		Location:   "Mediastinum",
		Procedures: []string{"echocardiogram", "ekg"},
	}

	l1 := Structure(root, 1, ctx)
	assert.Equal(t, "A muscular pump.", l1.Summary)
	assert.Empty(t, l1.Location)

	l2 := Structure(root, 2, ctx)
	assert.Equal(t, "A muscular pump. It has four chambers.", l2.Summary)
	assert.Equal(t, "Location: Mediastinum", l2.Location)
	assert.Empty(t, l2.Relationships)

	l3 := Structure(root, 3, ctx)
	assert.Equal(t, root.Description, l3.Summary)
	assert.Contains(t, l3.Relationships, "Contains: Cardiac Muscle, aorta")
	assert.Contains(t, l3.Relationships, "Related structures: chest, lungs, aorta, coronary-arteries")
	assert.Empty(t, l3.Vascular)

	l4 := Structure(root, 4, ctx)
	assert.Equal(t, []string{
		"Cardiac Output: 4-8 L/min (regulated by HR × Stroke Volume)",
		"Mean Arterial Pressure: 70-105 mmHg",
		"Vascular interaction: Coronary arteries supply heart itself",
	}, l4.Vascular)
	assert.Empty(t, l4.Innervation, "no placeholder innervation for a region without neural data")
	assert.Empty(t, l4.Clinical)

	l5 := Structure(root, 5, ctx)
	assert.Contains(t, l5.Clinical, "[CRITICAL] Myocardial Infarction")
	assert.Contains(t, l5.Clinical, "[SEVERE] Heart Failure")
	assert.Contains(t, l5.Clinical, "Arrhythmia")
	assert.Contains(t, l5.Clinical, "Diagnostic marker: ECG (clinical): Rhythm, ischemia, infarction patterns")
	assert.Contains(t, l5.Clinical, "Procedures: echocardiogram, ekg")
	assert.Contains(t, l5.Clinical, rc.ClinicalNotes[0])
}

func TestStructure_Innervation(t *testing.T) {
	rc := &domain.RegionContent{
		Histology: domain.HistologyContent{
			TissueTypes: []domain.TissueTypeInfo{
				{Name: "Gray Matter", Category: domain.TissueNervous, Function: "Information processing"},
				{Name: "Pia Mater", Category: domain.TissueConnective},
			},
			CellTypes: []string{"Pyramidal neurons", "Astrocytes", "Ependymal cells"},
		},
		Physiology: domain.PhysiologyContent{
			Processes: []domain.ProcessInfo{
				{Name: "Synaptic Transmission", Description: "Chemical signalling across the synaptic cleft. Vesicles fuse."},
				{Name: "CSF Production", Description: "Choroid plexus secretes fluid"},
			},
		},
	}

	v := Structure(domain.AnatomicalStructure{ID: "brain", Name: "Brain"}, 4, StructureContext{Content: rc})
	assert.Equal(t, []string{
		"Nervous tissue: Gray Matter (Information processing)",
		"Neural cell types: Pyramidal neurons, Astrocytes",
		"Neural process: Synaptic Transmission: Chemical signalling across the synaptic cleft.",
	}, v.Innervation)
}

func TestPatientCondition_Explanations(t *testing.T) {
	cond := domain.PatientCondition{
		ID:   "c1",
		Name: "Hypertension",
		Explanations: map[domain.Level]string{
			1: "Your blood pushes too hard on your arteries.",
			3: "Sustained systolic pressure above 130 mmHg.",
		},
		Pathophysiology:    "Increased peripheral resistance",
		TreatmentRationale: "ACE inhibitors lower angiotensin II",
	}

	tests := []struct {
		level       domain.Level
		explanation string
	}{
		{1, "Your blood pushes too hard on your arteries."},
		{2, "Your blood pushes too hard on your arteries."},
		{3, "Sustained systolic pressure above 130 mmHg."},
		{5, "Sustained systolic pressure above 130 mmHg."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.explanation, PatientCondition(cond, tt.level).Explanation, "level %d", tt.level)
	}

	onlyAdvanced := domain.PatientCondition{Name: "X", Explanations: map[domain.Level]string{4: "Advanced only"}}
	assert.Empty(t, PatientCondition(onlyAdvanced, 2).Explanation)

	assert.Empty(t, PatientCondition(cond, 3).Pathophysiology)
	assert.NotEmpty(t, PatientCondition(cond, 4).Pathophysiology)
	assert.NotEmpty(t, PatientCondition(cond, 5).TreatmentRationale)
}

func TestRegion_LevelGating(t *testing.T) {
	rc := heartContent(t)
	view := &domain.RegionalEncyclopediaData{
		Region:            domain.Region{ID: "heart", Name: "Heart", Description: rc.Description},
		Histology:         rc.Histology,
		Pathology:         rc.Pathology,
		RelatedStructures: rc.RelatedStructures,
	}

	l1 := Region(view, 1)
	assert.Len(t, l1.Images, 1)
	assert.Empty(t, l1.Stains)
	assert.Empty(t, l1.RelatedStructures)
	assert.Equal(t, "Foundation", l1.LevelLabel)

	l3 := Region(view, 3)
	assert.Len(t, l3.Stains, 3)
	assert.Equal(t, rc.RelatedStructures, l3.RelatedStructures)

	invalid := Region(view, 42)
	assert.Equal(t, domain.DefaultLevel, invalid.Level)
	assert.Nil(t, Region(nil, 3))
}

func TestPatientView(t *testing.T) {
	assert.Nil(t, Patient(nil, 3))

	v := Patient(&domain.PatientRegionData{
		Relevance:  domain.RelevanceMedium,
		TotalItems: 1,
		Conditions: []domain.PatientCondition{{ID: "c1", Name: "Angina"}},
	}, 2)
	require.Len(t, v.Conditions, 1)
	assert.Equal(t, "Angina", v.Conditions[0].Name)
}
