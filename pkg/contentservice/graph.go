package contentservice

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/anatomy-twin-server/internal/domain"
)

//go:embed seed.yaml
var seedYAML string

// Seed is the on-disk layout of a knowledge graph.
type Seed struct {
	Anatomy     []domain.AnatomyRegion    `yaml:"anatomy"`
	Symptoms    []domain.SymptomEntry     `yaml:"symptoms"`
	Specialties []domain.MedicalSpecialty `yaml:"specialties"`
	Nodes       []domain.KnowledgeNode    `yaml:"nodes"`
	Edges       []domain.KnowledgeEdge    `yaml:"edges"`
}

// Graph is an in-memory knowledge graph with outgoing and incoming
// adjacency indexes. It satisfies Client without any network access.
type Graph struct {
	mu       sync.RWMutex
	nodes    map[string]domain.KnowledgeNode
	edges    []domain.KnowledgeEdge
	outgoing map[string][]domain.KnowledgeEdge
	incoming map[string][]domain.KnowledgeEdge

	anatomy     map[string]domain.AnatomyRegion
	symptoms    []domain.SymptomEntry
	specialties []domain.MedicalSpecialty
}

var _ Client = (*Graph)(nil)

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]domain.KnowledgeNode),
		outgoing: make(map[string][]domain.KnowledgeEdge),
		incoming: make(map[string][]domain.KnowledgeEdge),
		anatomy:  make(map[string]domain.AnatomyRegion),
	}
}

// LoadSeed decodes a YAML seed into a new graph.
func LoadSeed(r io.Reader) (*Graph, error) {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge graph seed: %w", err)
	}
	return FromSeed(seed)
}

// FromSeed builds a graph, registering anatomy, symptom and specialty
// entries as namespaced nodes. Edges must reference known nodes.
func FromSeed(seed Seed) (*Graph, error) {
	g := NewGraph()
	for _, a := range seed.Anatomy {
		g.AddAnatomyRegion(a)
	}
	for _, s := range seed.Symptoms {
		g.AddSymptom(s)
	}
	for _, sp := range seed.Specialties {
		g.AddSpecialty(sp)
	}
	for _, n := range seed.Nodes {
		g.AddNode(n)
	}
	for _, e := range seed.Edges {
		if _, ok := g.nodes[e.FromID]; !ok {
			return nil, fmt.Errorf("edge references unknown node %q", e.FromID)
		}
		if _, ok := g.nodes[e.ToID]; !ok {
			return nil, fmt.Errorf("edge references unknown node %q", e.ToID)
		}
		g.AddEdge(e)
	}
	return g, nil
}

var (
	defaultGraphOnce sync.Once
	defaultGraph     *Graph
)

// DefaultGraph returns the graph built from the embedded seed.
func DefaultGraph() *Graph {
	defaultGraphOnce.Do(func() {
		g, err := LoadSeed(strings.NewReader(seedYAML))
		if err != nil {
			panic(fmt.Sprintf("embedded knowledge graph seed is invalid: %v", err))
		}
		defaultGraph = g
	})
	return defaultGraph
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(n domain.KnowledgeNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.ID] = n
}

// AddEdge appends a directed edge and indexes it both ways.
func (g *Graph) AddEdge(e domain.KnowledgeEdge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, e)
	g.outgoing[e.FromID] = append(g.outgoing[e.FromID], e)
	g.incoming[e.ToID] = append(g.incoming[e.ToID], e)
}

// AddAnatomyRegion registers an encyclopedia entry and its anatomy: node.
func (g *Graph) AddAnatomyRegion(a domain.AnatomyRegion) {
	g.mu.Lock()
	g.anatomy[a.ID] = a
	g.mu.Unlock()
	g.AddNode(domain.KnowledgeNode{
		ID:          domain.AnatomyNamespace + a.ID,
		Type:        domain.NodeAnatomy,
		Name:        a.Name,
		SpanishName: a.Spanish,
		BodySystem:  a.System,
		Description: a.Function,
	})
}

// AddSymptom registers a symptom-database entry and its symptom: node.
func (g *Graph) AddSymptom(s domain.SymptomEntry) {
	g.mu.Lock()
	g.symptoms = append(g.symptoms, s)
	g.mu.Unlock()
	g.AddNode(domain.KnowledgeNode{
		ID:          "symptom:" + s.ID,
		Type:        domain.NodeSymptom,
		Name:        s.Name,
		Description: s.Description,
	})
}

// AddSpecialty registers a specialty and its specialty: node.
func (g *Graph) AddSpecialty(sp domain.MedicalSpecialty) {
	g.mu.Lock()
	g.specialties = append(g.specialties, sp)
	g.mu.Unlock()
	g.AddNode(domain.KnowledgeNode{
		ID:          "specialty:" + sp.ID,
		Type:        domain.NodeSpecialty,
		Name:        sp.Name,
		Description: sp.Description,
	})
}

// Node returns a node by id.
func (g *Graph) Node(id string) (domain.KnowledgeNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// GetAnatomyRegion returns the encyclopedia entry, or nil when unknown.
func (g *Graph) GetAnatomyRegion(ctx context.Context, regionID string) (*domain.AnatomyRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.anatomy[regionID]
	if !ok {
		return nil, nil
	}
	a.Conditions = append([]string(nil), a.Conditions...)
	a.Symptoms = append([]string(nil), a.Symptoms...)
	a.Procedures = append([]string(nil), a.Procedures...)
	return &a, nil
}

// GetSymptomsByRegion returns symptoms listing regionID as a body region
// or as their primary region.
func (g *Graph) GetSymptomsByRegion(ctx context.Context, regionID string) ([]domain.SymptomEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := []domain.SymptomEntry{}
	for _, s := range g.symptoms {
		if strings.EqualFold(s.PrimaryRegion, regionID) || containsFold(s.BodyRegions, regionID) {
			out = append(out, s)
		}
	}
	return out, nil
}

// GetSpecialtiesForBodySystem returns specialties covering system.
func (g *Graph) GetSpecialtiesForBodySystem(ctx context.Context, system string) ([]domain.MedicalSpecialty, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := []domain.MedicalSpecialty{}
	for _, sp := range g.specialties {
		if containsFold(sp.BodySystems, system) {
			out = append(out, sp)
		}
	}
	return out, nil
}

// GetRelated walks outgoing edges, then incoming ones, returning each
// neighbour at most once.
func (g *Graph) GetRelated(ctx context.Context, nodeID string, filter RelatedFilter) ([]domain.KnowledgeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.related(nodeID, filter), nil
}

func (g *Graph) related(nodeID string, filter RelatedFilter) []domain.KnowledgeNode {
	out := []domain.KnowledgeNode{}
	seen := make(map[string]bool)

	visit := func(edges []domain.KnowledgeEdge, other func(domain.KnowledgeEdge) string) {
		for _, e := range edges {
			n, ok := g.nodes[other(e)]
			if !ok || seen[n.ID] || !filter.accepts(e.Relationship, n.Type) {
				continue
			}
			seen[n.ID] = true
			out = append(out, n)
		}
	}
	visit(g.outgoing[nodeID], func(e domain.KnowledgeEdge) string { return e.ToID })
	visit(g.incoming[nodeID], func(e domain.KnowledgeEdge) string { return e.FromID })
	return out
}

// ConditionsForRegion lists conditions affecting or manifesting in the
// anatomy node for regionID.
func (g *Graph) ConditionsForRegion(regionID string) []domain.KnowledgeNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id := domain.AnatomyNamespace + domain.StripAnatomyNamespace(regionID)
	out := g.related(id, RelatedFilter{Relationship: domain.RelManifestsIn, TargetType: domain.NodeCondition})
	return appendUnique(out, g.related(id, RelatedFilter{Relationship: domain.RelAffects, TargetType: domain.NodeCondition}))
}

// TreatmentPaths returns [symptom, condition, treatment] chains starting at
// symptomID, where treatment is a medication or a diagnostic procedure. An
// unknown symptom yields nil; a known one without paths an empty slice.
func (g *Graph) TreatmentPaths(symptomID string) [][]domain.KnowledgeNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	start, ok := g.nodes[symptomID]
	if !ok {
		return nil
	}
	conditions := g.related(symptomID, RelatedFilter{Relationship: domain.RelCauses, TargetType: domain.NodeCondition})
	conditions = appendUnique(conditions, g.related(symptomID, RelatedFilter{Relationship: domain.RelAssociatedWith, TargetType: domain.NodeCondition}))

	paths := [][]domain.KnowledgeNode{}
	for _, c := range conditions {
		for _, m := range g.related(c.ID, RelatedFilter{Relationship: domain.RelTreats, TargetType: domain.NodeMedication}) {
			paths = append(paths, []domain.KnowledgeNode{start, c, m})
		}
		for _, p := range g.related(c.ID, RelatedFilter{Relationship: domain.RelDiagnosedBy, TargetType: domain.NodeProcedure}) {
			paths = append(paths, []domain.KnowledgeNode{start, c, p})
		}
	}
	return paths
}

// Search matches query against node names, Spanish names and aliases.
// Results are ordered by id.
func (g *Graph) Search(query string) []domain.KnowledgeNode {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []domain.KnowledgeNode
	for _, n := range g.nodes {
		if strings.Contains(strings.ToLower(n.Name), q) ||
			strings.Contains(strings.ToLower(n.SpanishName), q) ||
			containsSubstringFold(n.Aliases, q) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats counts nodes by type and reports the edge total.
func (g *Graph) Stats() (map[domain.NodeType]int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	counts := make(map[domain.NodeType]int)
	for _, n := range g.nodes {
		counts[n.Type]++
	}
	return counts, len(g.edges)
}

// ConditionProfile gathers what the graph knows about one condition.
type ConditionProfile struct {
	Condition   domain.KnowledgeNode   `json:"condition"`
	Regions     []domain.KnowledgeNode `json:"regions"`
	Symptoms    []domain.KnowledgeNode `json:"symptoms"`
	Specialists []domain.KnowledgeNode `json:"specialists"`
	Medications []domain.KnowledgeNode `json:"medications"`
	Diagnostics []domain.KnowledgeNode `json:"diagnostics"`
}

// MedicationProfile lists the conditions a medication treats and the
// anatomy those conditions affect.
type MedicationProfile struct {
	Medication domain.KnowledgeNode   `json:"medication"`
	Conditions []domain.KnowledgeNode `json:"conditions"`
	Regions    []domain.KnowledgeNode `json:"regions"`
}

// RegionsForCondition lists the anatomy a condition affects or manifests in.
func (g *Graph) RegionsForCondition(conditionID string) []domain.KnowledgeNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.regionsFor(conditionID)
}

func (g *Graph) regionsFor(conditionID string) []domain.KnowledgeNode {
	out := g.related(conditionID, RelatedFilter{Relationship: domain.RelAffects, TargetType: domain.NodeAnatomy})
	return appendUnique(out, g.related(conditionID, RelatedFilter{Relationship: domain.RelManifestsIn, TargetType: domain.NodeAnatomy}))
}

// ConditionProfile returns the profile of a condition node. Ids may omit
// the "condition:" prefix.
func (g *Graph) ConditionProfile(conditionID string) (*ConditionProfile, bool) {
	id := conditionID
	if !strings.HasPrefix(id, string(domain.NodeCondition)+":") {
		id = string(domain.NodeCondition) + ":" + id
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok || n.Type != domain.NodeCondition {
		return nil, false
	}
	p := g.profile(n)
	return &p, true
}

func (g *Graph) profile(n domain.KnowledgeNode) ConditionProfile {
	return ConditionProfile{
		Condition:   n,
		Regions:     g.regionsFor(n.ID),
		Symptoms:    g.related(n.ID, RelatedFilter{Relationship: domain.RelCauses, TargetType: domain.NodeSymptom}),
		Specialists: g.related(n.ID, RelatedFilter{Relationship: domain.RelManagedBy, TargetType: domain.NodeSpecialty}),
		Medications: g.related(n.ID, RelatedFilter{Relationship: domain.RelTreats, TargetType: domain.NodeMedication}),
		Diagnostics: g.related(n.ID, RelatedFilter{Relationship: domain.RelDiagnosedBy, TargetType: domain.NodeProcedure}),
	}
}

// ConditionByCode looks a condition up by ICD-10 code. A full code such as
// "I21.4" falls back to its three-character category "I21".
func (g *Graph) ConditionByCode(code string) (*ConditionProfile, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, false
	}
	category, _, _ := strings.Cut(code, ".")

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, want := range []string{code, category} {
		var match *domain.KnowledgeNode
		for _, n := range g.nodes {
			if n.Type != domain.NodeCondition || !strings.EqualFold(n.Code, want) {
				continue
			}
			if match == nil || n.ID < match.ID {
				match = &n
			}
		}
		if match != nil {
			p := g.profile(*match)
			return &p, true
		}
	}
	return nil, false
}

// SearchConditions is Search restricted to condition nodes, also matching
// ICD-10 codes by prefix.
func (g *Graph) SearchConditions(query string) []domain.KnowledgeNode {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []domain.KnowledgeNode
	for _, n := range g.Search(query) {
		if n.Type == domain.NodeCondition {
			out = append(out, n)
		}
	}
	if q == "" {
		return out
	}
	g.mu.RLock()
	for _, n := range g.nodes {
		if n.Type == domain.NodeCondition && n.Code != "" && strings.HasPrefix(strings.ToLower(n.Code), q) {
			out = appendUnique(out, []domain.KnowledgeNode{n})
		}
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MedicationProfile finds a medication by id, name or alias, case
// insensitively.
func (g *Graph) MedicationProfile(name string) (*MedicationProfile, bool) {
	q := strings.TrimSpace(name)
	if q == "" {
		return nil, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	var med *domain.KnowledgeNode
	for _, n := range g.nodes {
		if n.Type != domain.NodeMedication {
			continue
		}
		if strings.EqualFold(n.ID, q) || strings.EqualFold(n.ID, string(domain.NodeMedication)+":"+q) ||
			strings.EqualFold(n.Name, q) || strings.EqualFold(n.SpanishName, q) || containsFold(n.Aliases, q) {
			if med == nil || n.ID < med.ID {
				med = &n
			}
		}
	}
	if med == nil {
		return nil, false
	}

	p := &MedicationProfile{
		Medication: *med,
		Conditions: g.related(med.ID, RelatedFilter{Relationship: domain.RelTreats, TargetType: domain.NodeCondition}),
		Regions:    []domain.KnowledgeNode{},
	}
	for _, c := range p.Conditions {
		p.Regions = appendUnique(p.Regions, g.regionsFor(c.ID))
	}
	return p, true
}

func appendUnique(dst, src []domain.KnowledgeNode) []domain.KnowledgeNode {
	seen := make(map[string]bool, len(dst))
	for _, n := range dst {
		seen[n.ID] = true
	}
	for _, n := range src {
		if !seen[n.ID] {
			seen[n.ID] = true
			dst = append(dst, n)
		}
	}
	return dst
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func containsSubstringFold(list []string, lowerQuery string) bool {
	for _, v := range list {
		if strings.Contains(strings.ToLower(v), lowerQuery) {
			return true
		}
	}
	return false
}
