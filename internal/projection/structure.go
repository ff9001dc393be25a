package projection

import (
	"fmt"
	"strings"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/layers"
	"github.com/anatomy-twin-server/internal/taxonomy"
)

var (
	vascularKeywords            = []string{"blood", "pressure", "cardiac", "oxygen", "flow"}
	vascularParameterKeywords   = append(append([]string(nil), vascularKeywords...), "ejection", "output")
	vascularInteractionKeywords = []string{"vascular", "arterial", "coronary", "venous"}
	nerveCellKeywords           = []string{"neuron", "nerve", "schwann", "glia", "astrocyte", "oligodendrocyte"}
	neuralProcessKeywords       = []string{"neural", "nerve", "action potential", "synaptic", "innervation"}
)

// StructureContext is the surrounding data a structure projection draws
// its sections from.
type StructureContext struct {
	Content    *domain.RegionContent
	Structures []domain.AnatomicalStructure
	Location   string
	Procedures []string
}

// StructureView is a structure rendered at one level. Sections appear only
// when the underlying data has something to say.
type StructureView struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Type          domain.StructureType `json:"type"`
	Summary       string               `json:"summary,omitempty"`
	Location      string               `json:"location,omitempty"`
	Relationships []string             `json:"relationships,omitempty"`
	Innervation   []string             `json:"innervation,omitempty"`
	Vascular      []string             `json:"vascular,omitempty"`
	Clinical      []string             `json:"clinical,omitempty"`
}

// ContextFor builds the context for structureID within a merged view. The
// root takes the live anatomy location; tissue children take their
// tissue's location.
func ContextFor(view *domain.RegionalEncyclopediaData, structureID string) StructureContext {
	ctx := StructureContext{
		Content:    view.Content(),
		Structures: view.Structures,
	}
	if view.AnatomyRegion != nil {
		ctx.Procedures = view.AnatomyRegion.Procedures
		if structureID == view.Region.ID {
			ctx.Location = view.AnatomyRegion.Location
		}
	}
	for i, t := range view.Histology.TissueTypes {
		if layers.TissueStructureID(view.Region.ID, i) == structureID {
			ctx.Location = t.Location
		}
	}
	return ctx
}

// Structure projects s: L1 first sentence, L2 two sentences and location,
// L3 full text and relationships, L4 innervation and vascular supply,
// L5 clinical detail.
func Structure(s domain.AnatomicalStructure, level domain.Level, ctx StructureContext) StructureView {
	level = level.OrDefault()
	v := StructureView{ID: s.ID, Name: s.Name, Type: s.Type}

	switch level {
	case domain.LevelFoundation:
		v.Summary = FirstSentence(s.Description)
		return v
	case domain.LevelDeveloping:
		v.Summary = FirstSentences(s.Description, 2)
	default:
		v.Summary = strings.TrimSpace(s.Description)
	}
	if ctx.Location != "" {
		v.Location = "Location: " + ctx.Location
	}
	if level < domain.LevelStandard {
		return v
	}

	v.Relationships = relationships(s, ctx)
	if level < domain.LevelAdvanced {
		return v
	}

	v.Innervation = innervation(ctx.Content)
	v.Vascular = vascular(ctx.Content)
	if level < domain.LevelExpert {
		return v
	}

	v.Clinical = clinical(ctx)
	return v
}

func relationships(s domain.AnatomicalStructure, ctx StructureContext) []string {
	names := make(map[string]string, len(ctx.Structures))
	for _, other := range ctx.Structures {
		names[other.ID] = other.Name
	}
	lookup := func(id string) string {
		if n := names[id]; n != "" {
			return n
		}
		return id
	}

	var out []string
	if s.ParentID != "" {
		out = append(out, "Part of: "+lookup(s.ParentID))
	}
	if len(s.Children) > 0 {
		children := make([]string, 0, len(s.Children))
		for _, id := range s.Children {
			children = append(children, lookup(id))
		}
		out = append(out, "Contains: "+strings.Join(children, ", "))
	}

	rc := ctx.Content
	if rc == nil {
		return out
	}
	if len(rc.RelatedStructures) > 0 {
		out = append(out, "Related structures: "+strings.Join(rc.RelatedStructures, ", "))
	}
	if len(rc.Pathology.CommonConditions) > 0 {
		conditions := make([]string, 0, len(rc.Pathology.CommonConditions))
		for _, c := range rc.Pathology.CommonConditions {
			conditions = append(conditions, c.Name)
		}
		out = append(out, "Associated conditions: "+strings.Join(conditions, ", "))
	}
	if len(rc.Pathology.ClinicalPresentations) > 0 {
		out = append(out, "Associated symptoms: "+strings.Join(rc.Pathology.ClinicalPresentations, ", "))
	}
	if len(rc.Physiology.SystemInteractions) > 0 {
		out = append(out, "System interactions: "+strings.Join(rc.Physiology.SystemInteractions, "; "))
	}
	return out
}

func innervation(rc *domain.RegionContent) []string {
	if rc == nil {
		return nil
	}
	var out []string
	for _, t := range rc.Histology.TissueTypes {
		if t.Category != domain.TissueNervous {
			continue
		}
		line := "Nervous tissue: " + t.Name
		if t.Function != "" {
			line += " (" + t.Function + ")"
		}
		out = append(out, line)
	}

	var cells []string
	for _, c := range rc.Histology.CellTypes {
		if taxonomy.ContainsAny(c, nerveCellKeywords) {
			cells = append(cells, c)
		}
	}
	if len(cells) > 0 {
		out = append(out, "Neural cell types: "+strings.Join(cells, ", "))
	}

	for _, p := range rc.Physiology.Processes {
		if taxonomy.AnyContainsAny(neuralProcessKeywords, p.Name, p.Description) {
			out = append(out, "Neural process: "+p.Name+": "+FirstSentence(p.Description))
		}
	}
	return out
}

func vascular(rc *domain.RegionContent) []string {
	if rc == nil {
		return nil
	}
	var out []string
	for _, h := range rc.Physiology.Homeostasis {
		if !taxonomy.ContainsAny(h.Variable, vascularKeywords) {
			continue
		}
		line := fmt.Sprintf("%s: %s", h.Variable, strings.TrimSpace(h.NormalRange+" "+h.Unit))
		if h.RegulationMechanism != "" {
			line += " (regulated by " + h.RegulationMechanism + ")"
		}
		out = append(out, line)
	}
	for _, p := range rc.Physiology.NormalParameters {
		if taxonomy.ContainsAny(p.Name, vascularParameterKeywords) {
			out = append(out, fmt.Sprintf("%s: %s", p.Name, strings.TrimSpace(p.NormalRange+" "+p.Unit)))
		}
	}
	for _, si := range rc.Physiology.SystemInteractions {
		if taxonomy.ContainsAny(si, vascularInteractionKeywords) {
			out = append(out, "Vascular interaction: "+si)
		}
	}
	return out
}

func clinical(ctx StructureContext) []string {
	rc := ctx.Content
	var out []string
	if rc != nil {
		out = append(out, rc.ClinicalNotes...)
		for _, c := range rc.Pathology.CommonConditions {
			out = append(out, severityLabel(c.Severity)+c.Name)
		}
		for _, m := range rc.Pathology.DiagnosticMarkers {
			line := "Diagnostic marker: " + m.Name
			if m.Type != "" {
				line += " (" + m.Type + ")"
			}
			if m.Significance != "" {
				line += ": " + m.Significance
			}
			out = append(out, line)
		}
		if len(rc.Pathology.ClinicalPresentations) > 0 {
			out = append(out, "Presentations: "+strings.Join(rc.Pathology.ClinicalPresentations, ", "))
		}
	}
	if len(ctx.Procedures) > 0 {
		out = append(out, "Procedures: "+strings.Join(ctx.Procedures, ", "))
	}
	return out
}

func severityLabel(s domain.Severity) string {
	switch s {
	case domain.SeverityLifeThreatening:
		return "[CRITICAL] "
	case domain.SeveritySevere:
		return "[SEVERE] "
	default:
		return ""
	}
}
