package projection

import (
	"sort"

	"github.com/anatomy-twin-server/internal/domain"
)

// ConditionView is a condition rendered at one level.
type ConditionView struct {
	Name                  string          `json:"name"`
	Summary               string          `json:"summary,omitempty"`
	Symptoms              []string        `json:"symptoms,omitempty"`
	BasicCause            string          `json:"basic_cause,omitempty"`
	Severity              domain.Severity `json:"severity,omitempty"`
	Mechanism             string          `json:"mechanism,omitempty"`
	Pathophysiology       string          `json:"pathophysiology,omitempty"`
	MolecularMechanism    string          `json:"molecular_mechanism,omitempty"`
	DiagnosticCriteria    []string        `json:"diagnostic_criteria,omitempty"`
	TreatmentOverview     string          `json:"treatment_overview,omitempty"`
	ClinicalPearls        []string        `json:"clinical_pearls,omitempty"`
	DifferentialDiagnosis []string        `json:"differential_diagnosis,omitempty"`
	ResearchContext       string          `json:"research_context,omitempty"`
}

// Condition projects an authored condition. The narrative comes from the
// description, or the mechanism when no description was authored.
func Condition(c domain.ConditionInfo, level domain.Level) ConditionView {
	level = level.OrDefault()
	narrative := c.Description
	if narrative == "" {
		narrative = c.Mechanism
	}

	v := ConditionView{Name: c.Name}
	switch {
	case level == domain.LevelFoundation:
		v.Summary = FirstSentence(narrative)
		v.Symptoms = truncate(c.Symptoms, 2)
		return v
	case level == domain.LevelDeveloping:
		v.Summary = FirstSentences(narrative, 2)
		v.Symptoms = truncate(c.Symptoms, 4)
		v.BasicCause = FirstSentence(c.Mechanism)
		v.Severity = c.Severity
		return v
	}

	v.Summary = narrative
	v.Symptoms = truncate(c.Symptoms, len(c.Symptoms))
	v.BasicCause = FirstSentence(c.Mechanism)
	v.Severity = c.Severity
	v.Mechanism = c.Mechanism
	v.Pathophysiology = c.Pathophysiology
	if level >= domain.LevelAdvanced {
		v.MolecularMechanism = c.MolecularMechanism
		v.DiagnosticCriteria = truncate(c.DiagnosticCriteria, len(c.DiagnosticCriteria))
		v.TreatmentOverview = c.TreatmentOverview
	}
	if level >= domain.LevelExpert {
		v.ClinicalPearls = truncate(c.ClinicalPearls, len(c.ClinicalPearls))
		v.DifferentialDiagnosis = truncate(c.DifferentialDiagnosis, len(c.DifferentialDiagnosis))
		v.ResearchContext = c.ResearchContext
	}
	return v
}

type TissueView struct {
	Name        string                `json:"name"`
	Category    domain.TissueCategory `json:"category,omitempty"`
	Description string                `json:"description,omitempty"`
	Location    string                `json:"location,omitempty"`
	Function    string                `json:"function,omitempty"`
}

func Tissue(t domain.TissueTypeInfo, level domain.Level) TissueView {
	level = level.OrDefault()
	v := TissueView{Name: t.Name, Description: FirstSentence(t.Description)}
	if level >= domain.LevelDeveloping {
		v.Category = t.Category
		v.Location = t.Location
	}
	if level >= domain.LevelStandard {
		v.Description = t.Description
		v.Function = t.Function
	}
	return v
}

type StainView struct {
	Name       string `json:"name"`
	Purpose    string `json:"purpose,omitempty"`
	Appearance string `json:"appearance,omitempty"`
}

func Stain(s domain.StainInfo, level domain.Level) StainView {
	level = level.OrDefault()
	v := StainView{Name: s.Name}
	if level >= domain.LevelDeveloping {
		v.Purpose = FirstSentence(s.Purpose)
	}
	if level >= domain.LevelStandard {
		v.Purpose = s.Purpose
		v.Appearance = s.Appearance
	}
	return v
}

type MarkerView struct {
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	Significance string `json:"significance,omitempty"`
}

func Marker(m domain.DiagnosticMarker, level domain.Level) MarkerView {
	level = level.OrDefault()
	v := MarkerView{Name: m.Name}
	if level >= domain.LevelDeveloping {
		v.Type = m.Type
	}
	if level >= domain.LevelStandard {
		v.Significance = m.Significance
	}
	return v
}

// PatientConditionView is a patient's own condition explained at one level.
type PatientConditionView struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Status             string `json:"status,omitempty"`
	Explanation        string `json:"explanation,omitempty"`
	Pathophysiology    string `json:"pathophysiology,omitempty"`
	TreatmentRationale string `json:"treatment_rationale,omitempty"`
}

// PatientCondition picks the explanation written for level, or failing that
// the closest one written for a lower level. Explanations authored only
// above the reader's level are never shown.
func PatientCondition(c domain.PatientCondition, level domain.Level) PatientConditionView {
	level = level.OrDefault()
	v := PatientConditionView{ID: c.ID, Name: c.Name, Status: c.Status}
	v.Explanation = explanationFor(c.Explanations, level)
	if level >= domain.LevelAdvanced {
		v.Pathophysiology = c.Pathophysiology
	}
	if level >= domain.LevelExpert {
		v.TreatmentRationale = c.TreatmentRationale
	}
	return v
}

func explanationFor(explanations map[domain.Level]string, level domain.Level) string {
	levels := make([]domain.Level, 0, len(explanations))
	for l, text := range explanations {
		if l <= level && text != "" {
			levels = append(levels, l)
		}
	}
	if len(levels) == 0 {
		return ""
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] > levels[j] })
	return explanations[levels[0]]
}
