package enrichment

import (
	"strings"
	"unicode"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/layers"
)

const specialistsPrefix = "Specialists:"

// Live is what the content service contributed to one fetch. A zero field
// means the source failed or had nothing for the region.
type Live struct {
	Anatomy     *domain.AnatomyRegion
	Symptoms    []domain.SymptomEntry
	Specialties []domain.MedicalSpecialty
	Related     []domain.KnowledgeNode
}

// Merge combines authored content with live content into a new view. The
// static bundle is deep-copied first and never modified.
func Merge(static *domain.RegionContent, live Live) *domain.RegionalEncyclopediaData {
	rc := static.Clone()

	mergeSymptoms(&rc.Pathology, live.Symptoms)
	rc.ClinicalNotes = mergeSpecialists(rc.ClinicalNotes, live.Specialties)
	rc.RelatedStructures = mergeRelated(rc.RelatedStructures, live.Related)

	var narrative string
	var anatomy *domain.AnatomyRegion
	if live.Anatomy != nil {
		a := *live.Anatomy
		anatomy = &a
		narrative = strings.TrimSpace(a.Function)
	}

	return &domain.RegionalEncyclopediaData{
		Region: domain.Region{
			ID:          rc.ID,
			Name:        rc.Name,
			Description: mergeDescription(rc.Description, narrative),
			BodySystems: rc.BodySystems,
		},
		Structures:        buildStructures(rc, anatomy),
		Layers:            layers.DeriveLayers(rc.Histology.TissueTypes, rc.ID),
		Histology:         rc.Histology,
		Pathology:         rc.Pathology,
		Physiology:        rc.Physiology,
		Models:            rc.Models,
		RelatedStructures: rc.RelatedStructures,
		ClinicalNotes:     rc.ClinicalNotes,
		AnatomyRegion:     anatomy,
		Specialties:       append([]domain.MedicalSpecialty(nil), live.Specialties...),
	}
}

// buildStructures returns the root structure followed by one child per
// tissue type and, when it names a different region, the live anatomy entry.
func buildStructures(rc *domain.RegionContent, anatomy *domain.AnatomyRegion) []domain.AnatomicalStructure {
	root := domain.AnatomicalStructure{
		ID:          rc.ID,
		Name:        rc.Name,
		Description: rc.Description,
		Type:        domain.StructureOther,
	}
	if len(rc.Histology.TissueTypes) > 0 {
		root.Type = domain.StructureOrgan
	}
	if len(rc.Models) > 0 {
		root.ModelPath = rc.Models[0].Path
	}

	children := make([]domain.AnatomicalStructure, 0, len(rc.Histology.TissueTypes)+1)
	for i, t := range rc.Histology.TissueTypes {
		children = append(children, domain.AnatomicalStructure{
			ID:          layers.TissueStructureID(rc.ID, i),
			Name:        t.Name,
			Description: t.Description,
			Type:        domain.StructureTissue,
			ParentID:    root.ID,
		})
	}

	if anatomy != nil {
		if fn := strings.TrimSpace(anatomy.Function); fn != "" {
			root.Description = strings.TrimSpace(root.Description + " " + fn)
		}
		if anatomy.ID != "" && !strings.EqualFold(anatomy.ID, root.ID) && !hasStructure(children, anatomy.ID) {
			children = append(children, domain.AnatomicalStructure{
				ID:          anatomy.ID,
				Name:        anatomy.Name,
				Description: anatomy.Function,
				Type:        domain.StructureOther,
				ParentID:    root.ID,
				ExternalRef: domain.AnatomyNamespace + anatomy.ID,
			})
		}
	}

	for _, c := range children {
		root.Children = append(root.Children, c.ID)
	}
	return append([]domain.AnatomicalStructure{root}, children...)
}

func hasStructure(structures []domain.AnatomicalStructure, id string) bool {
	for _, s := range structures {
		if strings.EqualFold(s.ID, id) {
			return true
		}
	}
	return false
}

// mergeSymptoms adds unseen symptom names to the clinical presentations and
// attaches each symptom to the conditions its possible causes point at.
func mergeSymptoms(p *domain.PathologyContent, symptoms []domain.SymptomEntry) {
	for _, s := range symptoms {
		if s.Name == "" {
			continue
		}
		if !containsFold(p.ClinicalPresentations, s.Name) {
			p.ClinicalPresentations = append(p.ClinicalPresentations, s.Name)
		}
		for i := range p.CommonConditions {
			cond := &p.CommonConditions[i]
			if causedBy(cond.Name, s.PossibleCauses) && !containsFold(cond.Symptoms, s.Name) {
				cond.Symptoms = append(cond.Symptoms, s.Name)
			}
		}
	}
}

// causedBy reports whether any cause slug and the condition's slug contain
// one another.
func causedBy(conditionName string, causes []string) bool {
	cond := Slugify(conditionName)
	if cond == "" {
		return false
	}
	for _, c := range causes {
		cause := Slugify(c)
		if cause == "" {
			continue
		}
		if strings.Contains(cond, cause) || strings.Contains(cause, cond) {
			return true
		}
	}
	return false
}

func mergeSpecialists(notes []string, specialties []domain.MedicalSpecialty) []string {
	if len(specialties) == 0 {
		return notes
	}
	for _, n := range notes {
		if strings.HasPrefix(n, specialistsPrefix) {
			return notes
		}
	}
	names := make([]string, 0, len(specialties))
	for _, s := range specialties {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	if len(names) == 0 {
		return notes
	}
	return append(notes, specialistsPrefix+" "+strings.Join(names, ", "))
}

func mergeRelated(related []string, nodes []domain.KnowledgeNode) []string {
	seen := make(map[string]struct{}, len(related)+len(nodes))
	for _, r := range related {
		seen[strings.ToLower(domain.StripAnatomyNamespace(r))] = struct{}{}
	}
	for _, n := range nodes {
		id := domain.StripAnatomyNamespace(n.ID)
		key := strings.ToLower(id)
		if id == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		related = append(related, id)
	}
	return related
}

// mergeDescription keeps the authored description unless the live
// narrative is strictly longer, in which case both are kept.
func mergeDescription(static, live string) string {
	if len(live) > len(static) {
		return strings.TrimSpace(static + " " + live)
	}
	return static
}

// Slugify lower-cases s and collapses every run of non-alphanumerics to a
// single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func containsFold(items []string, s string) bool {
	for _, item := range items {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
