package domain

// TissueCategory groups tissue types into the four classic tissue families.
type TissueCategory string

const (
	TissueEpithelial TissueCategory = "epithelial"
	TissueConnective TissueCategory = "connective"
	TissueMuscle     TissueCategory = "muscle"
	TissueNervous    TissueCategory = "nervous"
)

// Severity tier of an authored condition.
type Severity string

const (
	SeverityMild            Severity = "mild"
	SeverityModerate        Severity = "moderate"
	SeveritySevere          Severity = "severe"
	SeverityLifeThreatening Severity = "life-threatening"
)

// RegionContent is the authored content bundle for one body region.
type RegionContent struct {
	ID                string            `yaml:"id" json:"id"`
	Name              string            `yaml:"name" json:"name"`
	Description       string            `yaml:"description" json:"description"`
	BodySystems       []string          `yaml:"body_systems" json:"body_systems"`
	Histology         HistologyContent  `yaml:"histology" json:"histology"`
	Pathology         PathologyContent  `yaml:"pathology" json:"pathology"`
	Physiology        PhysiologyContent `yaml:"physiology" json:"physiology"`
	Models            []ModelReference  `yaml:"models" json:"models"`
	RelatedStructures []string          `yaml:"related_structures" json:"related_structures"`
	ClinicalNotes     []string          `yaml:"clinical_notes" json:"clinical_notes"`
}

// HistologyContent holds microscopic anatomy for a region.
type HistologyContent struct {
	TissueTypes           []TissueTypeInfo       `yaml:"tissue_types" json:"tissue_types"`
	KeyFeatures           []string               `yaml:"key_features" json:"key_features"`
	Stains                []StainInfo            `yaml:"stains" json:"stains"`
	CellTypes             []string               `yaml:"cell_types" json:"cell_types"`
	MicroscopicStructures []MicroscopicStructure `yaml:"microscopic_structures" json:"microscopic_structures"`
	Images                []HistologyImage       `yaml:"images" json:"images,omitempty"`
}

type TissueTypeInfo struct {
	Name        string         `yaml:"name" json:"name"`
	Category    TissueCategory `yaml:"category" json:"category"`
	Description string         `yaml:"description" json:"description"`
	Location    string         `yaml:"location" json:"location"`
	Function    string         `yaml:"function" json:"function"`
}

type StainInfo struct {
	Name       string `yaml:"name" json:"name"`
	Purpose    string `yaml:"purpose" json:"purpose"`
	Appearance string `yaml:"appearance" json:"appearance"`
}

type MicroscopicStructure struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Function    string `yaml:"function" json:"function"`
	Appearance  string `yaml:"appearance" json:"appearance"`
}

// HistologyImage is a gallery item; images whose MinLevel exceeds the
// reader's level are hidden entirely.
type HistologyImage struct {
	Title    string `yaml:"title" json:"title"`
	Path     string `yaml:"path" json:"path"`
	Stain    string `yaml:"stain" json:"stain,omitempty"`
	Caption  string `yaml:"caption" json:"caption,omitempty"`
	MinLevel Level  `yaml:"min_level" json:"min_level"`
}

// PathologyContent holds disease content for a region.
type PathologyContent struct {
	CommonConditions      []ConditionInfo    `yaml:"common_conditions" json:"common_conditions"`
	InjuryMechanisms      []string           `yaml:"injury_mechanisms" json:"injury_mechanisms"`
	DiseaseCategories     []string           `yaml:"disease_categories" json:"disease_categories"`
	DiagnosticMarkers     []DiagnosticMarker `yaml:"diagnostic_markers" json:"diagnostic_markers"`
	ClinicalPresentations []string           `yaml:"clinical_presentations" json:"clinical_presentations"`
}

// ConditionInfo is an authored condition. Everything after Severity is
// optional richer material that projections reveal at higher levels.
type ConditionInfo struct {
	Name      string   `yaml:"name" json:"name"`
	Mechanism string   `yaml:"mechanism" json:"mechanism"`
	Symptoms  []string `yaml:"symptoms" json:"symptoms"`
	Severity  Severity `yaml:"severity" json:"severity"`

	Description           string   `yaml:"description,omitempty" json:"description,omitempty"`
	Pathophysiology       string   `yaml:"pathophysiology,omitempty" json:"pathophysiology,omitempty"`
	MolecularMechanism    string   `yaml:"molecular_mechanism,omitempty" json:"molecular_mechanism,omitempty"`
	DiagnosticCriteria    []string `yaml:"diagnostic_criteria,omitempty" json:"diagnostic_criteria,omitempty"`
	TreatmentOverview     string   `yaml:"treatment_overview,omitempty" json:"treatment_overview,omitempty"`
	ClinicalPearls        []string `yaml:"clinical_pearls,omitempty" json:"clinical_pearls,omitempty"`
	DifferentialDiagnosis []string `yaml:"differential_diagnosis,omitempty" json:"differential_diagnosis,omitempty"`
	ResearchContext       string   `yaml:"research_context,omitempty" json:"research_context,omitempty"`
}

type DiagnosticMarker struct {
	Name         string `yaml:"name" json:"name"`
	Type         string `yaml:"type" json:"type"` // laboratory, imaging, clinical
	Significance string `yaml:"significance" json:"significance"`
}

// PhysiologyContent holds normal-function content for a region.
type PhysiologyContent struct {
	Functions          []FunctionInfo    `yaml:"functions" json:"functions"`
	Processes          []ProcessInfo     `yaml:"processes" json:"processes"`
	Homeostasis        []HomeostasisInfo `yaml:"homeostasis" json:"homeostasis"`
	NormalParameters   []ParameterInfo   `yaml:"normal_parameters" json:"normal_parameters"`
	SystemInteractions []string          `yaml:"system_interactions" json:"system_interactions"`
}

type FunctionInfo struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Importance  string `yaml:"importance" json:"importance"`
}

type ProcessInfo struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Steps       []string `yaml:"steps" json:"steps"`
}

type HomeostasisInfo struct {
	Variable            string `yaml:"variable" json:"variable"`
	NormalRange         string `yaml:"normal_range" json:"normal_range"`
	Unit                string `yaml:"unit" json:"unit"`
	RegulationMechanism string `yaml:"regulation_mechanism" json:"regulation_mechanism"`
}

type ParameterInfo struct {
	Name             string `yaml:"name" json:"name"`
	NormalRange      string `yaml:"normal_range" json:"normal_range"`
	Unit             string `yaml:"unit" json:"unit"`
	HighImplications string `yaml:"high_implications" json:"high_implications"`
	LowImplications  string `yaml:"low_implications" json:"low_implications"`
}

// ModelReference points at a 3D model asset.
type ModelReference struct {
	Name        string `yaml:"name" json:"name"`
	Path        string `yaml:"path" json:"path"`
	System      string `yaml:"system" json:"system"`
	DetailLevel string `yaml:"detail_level" json:"detail_level"`
	URL         string `yaml:"-" json:"url,omitempty"`
}

// Clone returns a deep copy so enrichment can append without touching
// authored data.
func (rc *RegionContent) Clone() *RegionContent {
	if rc == nil {
		return nil
	}
	out := *rc
	out.BodySystems = cloneStrings(rc.BodySystems)
	out.RelatedStructures = cloneStrings(rc.RelatedStructures)
	out.ClinicalNotes = cloneStrings(rc.ClinicalNotes)
	out.Models = append([]ModelReference(nil), rc.Models...)

	out.Histology.TissueTypes = append([]TissueTypeInfo(nil), rc.Histology.TissueTypes...)
	out.Histology.KeyFeatures = cloneStrings(rc.Histology.KeyFeatures)
	out.Histology.Stains = append([]StainInfo(nil), rc.Histology.Stains...)
	out.Histology.CellTypes = cloneStrings(rc.Histology.CellTypes)
	out.Histology.MicroscopicStructures = append([]MicroscopicStructure(nil), rc.Histology.MicroscopicStructures...)
	out.Histology.Images = append([]HistologyImage(nil), rc.Histology.Images...)

	if rc.Pathology.CommonConditions != nil {
		out.Pathology.CommonConditions = make([]ConditionInfo, len(rc.Pathology.CommonConditions))
		for i, c := range rc.Pathology.CommonConditions {
			out.Pathology.CommonConditions[i] = c.Clone()
		}
	}
	out.Pathology.InjuryMechanisms = cloneStrings(rc.Pathology.InjuryMechanisms)
	out.Pathology.DiseaseCategories = cloneStrings(rc.Pathology.DiseaseCategories)
	out.Pathology.DiagnosticMarkers = append([]DiagnosticMarker(nil), rc.Pathology.DiagnosticMarkers...)
	out.Pathology.ClinicalPresentations = cloneStrings(rc.Pathology.ClinicalPresentations)

	out.Physiology.Functions = append([]FunctionInfo(nil), rc.Physiology.Functions...)
	if rc.Physiology.Processes != nil {
		out.Physiology.Processes = make([]ProcessInfo, len(rc.Physiology.Processes))
		for i, p := range rc.Physiology.Processes {
			p.Steps = cloneStrings(p.Steps)
			out.Physiology.Processes[i] = p
		}
	}
	out.Physiology.Homeostasis = append([]HomeostasisInfo(nil), rc.Physiology.Homeostasis...)
	out.Physiology.NormalParameters = append([]ParameterInfo(nil), rc.Physiology.NormalParameters...)
	out.Physiology.SystemInteractions = cloneStrings(rc.Physiology.SystemInteractions)
	return &out
}

// Clone returns a deep copy of the condition.
func (c ConditionInfo) Clone() ConditionInfo {
	c.Symptoms = cloneStrings(c.Symptoms)
	c.DiagnosticCriteria = cloneStrings(c.DiagnosticCriteria)
	c.ClinicalPearls = cloneStrings(c.ClinicalPearls)
	c.DifferentialDiagnosis = cloneStrings(c.DifferentialDiagnosis)
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
