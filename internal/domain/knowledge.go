package domain

import "strings"

// AnatomyNamespace prefixes anatomy node ids in the knowledge graph.
const AnatomyNamespace = "anatomy:"

// NodeType discriminates knowledge graph nodes.
type NodeType string

const (
	NodeCondition  NodeType = "condition"
	NodeAnatomy    NodeType = "anatomy"
	NodeSymptom    NodeType = "symptom"
	NodeMedication NodeType = "medication"
	NodeProcedure  NodeType = "procedure"
	NodeSpecialty  NodeType = "specialty"
)

// Relationship is the semantic label of a directed edge.
type Relationship string

const (
	RelTreats         Relationship = "treats"
	RelCauses         Relationship = "causes"
	RelManifestsIn    Relationship = "manifests-in"
	RelDiagnosedBy    Relationship = "diagnosed-by"
	RelPerformedOn    Relationship = "performed-on"
	RelManagedBy      Relationship = "managed-by"
	RelAffects        Relationship = "affects"
	RelAssociatedWith Relationship = "associated-with"
	RelSpecializesIn  Relationship = "specializes-in"
)

type KnowledgeNode struct {
	ID          string   `json:"id" yaml:"id"`
	Type        NodeType `json:"type" yaml:"type"`
	Name        string   `json:"name" yaml:"name"`
	SpanishName string   `json:"spanish_name,omitempty" yaml:"spanish_name"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases"`
	BodySystem  string   `json:"body_system,omitempty" yaml:"body_system"`
	Code        string   `json:"code,omitempty" yaml:"code"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

type KnowledgeEdge struct {
	FromID       string       `json:"from_id" yaml:"from"`
	ToID         string       `json:"to_id" yaml:"to"`
	Relationship Relationship `json:"relationship" yaml:"relationship"`
	Strength     string       `json:"strength,omitempty" yaml:"strength"` // primary, secondary, tertiary
}

// AnatomyRegion is the encyclopedia entry the content service returns for
// a region. Function is the narrative merged into region descriptions.
type AnatomyRegion struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Spanish    string   `json:"spanish,omitempty" yaml:"spanish"`
	System     string   `json:"system" yaml:"system"`
	Location   string   `json:"location,omitempty" yaml:"location"`
	Function   string   `json:"function,omitempty" yaml:"function"`
	Conditions []string `json:"conditions,omitempty" yaml:"conditions"`
	Symptoms   []string `json:"symptoms,omitempty" yaml:"symptoms"`
	Procedures []string `json:"procedures,omitempty" yaml:"procedures"`
}

// SymptomEntry is a symptom-database record.
type SymptomEntry struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description,omitempty" yaml:"description"`
	BodyRegions    []string `json:"body_regions,omitempty" yaml:"body_regions"`
	PrimaryRegion  string   `json:"primary_region,omitempty" yaml:"primary_region"`
	PossibleCauses []string `json:"possible_causes,omitempty" yaml:"possible_causes"`
}

type MedicalSpecialty struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	BodySystems []string `json:"body_systems,omitempty" yaml:"body_systems"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

// StripAnatomyNamespace removes a leading "anatomy:" (any case).
func StripAnatomyNamespace(id string) string {
	if len(id) >= len(AnatomyNamespace) && strings.EqualFold(id[:len(AnatomyNamespace)], AnatomyNamespace) {
		return id[len(AnatomyNamespace):]
	}
	return id
}
