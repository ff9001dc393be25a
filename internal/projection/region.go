package projection

import (
	"github.com/anatomy-twin-server/internal/domain"
)

// RegionView is a merged region rendered at one level.
type RegionView struct {
	RequestID         string                   `json:"request_id,omitempty"`
	ID                string                   `json:"id"`
	Name              string                   `json:"name"`
	Level             domain.Level             `json:"level"`
	LevelLabel        string                   `json:"level_label"`
	Summary           string                   `json:"summary"`
	BodySystems       []string                 `json:"body_systems"`
	Structures        []StructureView          `json:"structures"`
	Layers            []domain.AnatomicalLayer `json:"layers"`
	Tissues           []TissueView             `json:"tissues"`
	Stains            []StainView              `json:"stains,omitempty"`
	Images            []domain.HistologyImage  `json:"images"`
	Conditions        []ConditionView          `json:"conditions"`
	Markers           []MarkerView             `json:"markers,omitempty"`
	Presentations     []string                 `json:"clinical_presentations,omitempty"`
	RelatedStructures []string                 `json:"related_structures,omitempty"`
	ClinicalNotes     []string                 `json:"clinical_notes,omitempty"`
	Models            []domain.ModelReference  `json:"models,omitempty"`
	Patient           *PatientView             `json:"patient,omitempty"`
}

// PatientView is the patient's region slice with conditions explained at
// the reader's level.
type PatientView struct {
	Relevance   domain.RelevanceLevel      `json:"relevance"`
	TotalItems  int                        `json:"total_items"`
	Conditions  []PatientConditionView     `json:"conditions"`
	Symptoms    []domain.PatientSymptom    `json:"symptoms"`
	Medications []domain.PatientMedication `json:"medications"`
	Labs        []domain.LabResult         `json:"labs"`
	Imaging     []domain.ImagingReport     `json:"imaging"`
}

// Region projects every part of a merged view. Stains and markers start at
// the developing level; clinical notes and related structures at standard.
func Region(view *domain.RegionalEncyclopediaData, level domain.Level) *RegionView {
	if view == nil {
		return nil
	}
	level = level.OrDefault()

	out := &RegionView{
		RequestID:   view.RequestID,
		ID:          view.Region.ID,
		Name:        view.Region.Name,
		Level:       level,
		LevelLabel:  level.String(),
		BodySystems: append([]string(nil), view.Region.BodySystems...),
		Layers:      append([]domain.AnatomicalLayer(nil), view.Layers...),
		Images:      FilterImages(view.Histology.Images, level),
		Models:      append([]domain.ModelReference(nil), view.Models...),
	}

	switch level {
	case domain.LevelFoundation:
		out.Summary = FirstSentence(view.Region.Description)
	case domain.LevelDeveloping:
		out.Summary = FirstSentences(view.Region.Description, 2)
	default:
		out.Summary = view.Region.Description
	}

	out.Structures = make([]StructureView, 0, len(view.Structures))
	for _, s := range view.Structures {
		out.Structures = append(out.Structures, Structure(s, level, ContextFor(view, s.ID)))
	}
	out.Tissues = make([]TissueView, 0, len(view.Histology.TissueTypes))
	for _, t := range view.Histology.TissueTypes {
		out.Tissues = append(out.Tissues, Tissue(t, level))
	}
	out.Conditions = make([]ConditionView, 0, len(view.Pathology.CommonConditions))
	for _, c := range view.Pathology.CommonConditions {
		out.Conditions = append(out.Conditions, Condition(c, level))
	}

	if level >= domain.LevelDeveloping {
		for _, s := range view.Histology.Stains {
			out.Stains = append(out.Stains, Stain(s, level))
		}
		for _, m := range view.Pathology.DiagnosticMarkers {
			out.Markers = append(out.Markers, Marker(m, level))
		}
		out.Presentations = append([]string(nil), view.Pathology.ClinicalPresentations...)
	}
	if level >= domain.LevelStandard {
		out.RelatedStructures = append([]string(nil), view.RelatedStructures...)
		out.ClinicalNotes = append([]string(nil), view.ClinicalNotes...)
	}
	return out
}

// Patient projects a patient's region slice. A nil slice yields nil.
func Patient(data *domain.PatientRegionData, level domain.Level) *PatientView {
	if data == nil {
		return nil
	}
	v := &PatientView{
		Relevance:   data.Relevance,
		TotalItems:  data.TotalItems,
		Conditions:  make([]PatientConditionView, 0, len(data.Conditions)),
		Symptoms:    data.Symptoms,
		Medications: data.Medications,
		Labs:        data.Labs,
		Imaging:     data.Imaging,
	}
	for _, c := range data.Conditions {
		v.Conditions = append(v.Conditions, PatientCondition(c, level))
	}
	return v
}
