package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/complexity"
	"github.com/anatomy-twin-server/internal/content"
	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/enrichment"
	"github.com/anatomy-twin-server/internal/layers"
	"github.com/anatomy-twin-server/internal/mcp/caching"
	"github.com/anatomy-twin-server/internal/modules"
	"github.com/anatomy-twin-server/internal/patient"
	"github.com/anatomy-twin-server/internal/projection"
	"github.com/anatomy-twin-server/pkg/contentservice"
)

// Tool names exposed to MCP clients.
const (
	ToolGetRegion            = "get_region"
	ToolSearchRegions        = "search_regions"
	ToolFilterPatientRecords = "filter_patient_records"
	ToolInferConditionLayers = "infer_condition_layers"
	ToolSetComplexity        = "set_complexity"
	ToolGetComplexity        = "get_complexity"
	ToolGetModule            = "get_module"
	ToolValidateModules      = "validate_modules"
	ToolFindConditions       = "find_conditions"
	ToolLookupMedication     = "lookup_medication"
	ToolGetTreatmentPaths    = "get_treatment_paths"
)

// Deps are the components the tools read from. Cache may be nil; without
// Graph the condition browsing tools report the graph as unavailable.
type Deps struct {
	Regions    *content.Store
	Fetcher    enrichment.Fetcher
	Patients   *patient.Memo
	Complexity *complexity.State
	Modules    *modules.Registry
	Graph      *contentservice.Graph
	Cache      *caching.ToolResultCache
	Logger     *logrus.Logger
}

// Handler runs one tool against its raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool describes one callable tool.
type Tool struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Handler     Handler
}

// Toolset holds every tool bound to a shared set of components. It does
// not depend on any transport.
type Toolset struct {
	deps   Deps
	tools  []Tool
	byName map[string]int
}

// NewToolset binds the tools to deps.
func NewToolset(deps Deps) *Toolset {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	t := &Toolset{deps: deps, byName: make(map[string]int)}
	for _, tool := range []Tool{
		{
			Name:        ToolGetRegion,
			Description: "Fetch the merged encyclopedia view of a body region, projected to a reading level. An optional patient record adds the patient's region slice.",
			Schema: object([]string{"region_id"}, map[string]*jsonschema.Schema{
				"region_id": str("Region id, for example heart or kidneys"),
				"level":     levelSchema(),
				"record":    {Type: "object", Description: "Optional patient record"},
			}),
			Handler: t.getRegion,
		},
		{
			Name:        ToolSearchRegions,
			Description: "Search regions by name, description, tissue or condition. A blank query lists every region.",
			Schema: object(nil, map[string]*jsonschema.Schema{
				"query":  str("Case-insensitive search text"),
				"system": str("Restrict to a body system, for example cardiovascular"),
			}),
			Handler: t.searchRegions,
		},
		{
			Name:        ToolFilterPatientRecords,
			Description: "Select the parts of a patient record that concern one region and explain them at a reading level.",
			Schema: object([]string{"region_id", "record"}, map[string]*jsonschema.Schema{
				"region_id": str("Region id"),
				"record":    {Type: "object", Description: "Patient record with conditions, symptoms, medications, labs and imaging"},
				"level":     levelSchema(),
			}),
			Handler: t.filterPatientRecords,
		},
		{
			Name:        ToolInferConditionLayers,
			Description: "Infer the body layers a condition affects. With region_id the region's authored conditions are used and can be filtered by layer.",
			Schema: object(nil, map[string]*jsonschema.Schema{
				"condition": str("Condition name"),
				"region_id": str("Region whose conditions are classified"),
				"layer":     {Type: "string", Enum: layerEnum(), Description: "Keep only conditions affecting this layer"},
			}),
			Handler: t.inferConditionLayers,
		},
		{
			Name:        ToolSetComplexity,
			Description: "Set the shared reading level (1 Foundation to 5 Expert).",
			Schema: object([]string{"level"}, map[string]*jsonschema.Schema{
				"level": levelSchema(),
			}),
			Handler: t.setComplexity,
		},
		{
			Name:        ToolGetComplexity,
			Description: "Return the shared reading level.",
			Schema:      object(nil, map[string]*jsonschema.Schema{}),
			Handler:     t.getComplexity,
		},
		{
			Name:        ToolGetModule,
			Description: "Fetch an educational module with the content tier matching a reading level.",
			Schema: object([]string{"module_id"}, map[string]*jsonschema.Schema{
				"module_id": str("Module id"),
				"level":     levelSchema(),
			}),
			Handler: t.getModule,
		},
		{
			Name:        ToolValidateModules,
			Description: "Report missing prerequisites, prerequisite cycles and registry statistics.",
			Schema:      object(nil, map[string]*jsonschema.Schema{}),
			Handler:     t.validateModules,
		},
		{
			Name:        ToolFindConditions,
			Description: "Look conditions up in the knowledge graph by region, free text or ICD-10 code. Each hit carries the regions, symptoms, specialists, medications and diagnostics linked to it.",
			Schema: object(nil, map[string]*jsonschema.Schema{
				"region_id": str("Region whose conditions are listed"),
				"query":     str("Name, Spanish name, alias or ICD-10 code prefix"),
				"icd_code":  str("ICD-10 code such as I21.4; falls back to the category"),
			}),
			Handler: t.findConditions,
		},
		{
			Name:        ToolLookupMedication,
			Description: "Show the conditions a medication treats and the anatomy they affect.",
			Schema: object([]string{"name"}, map[string]*jsonschema.Schema{
				"name": str("Medication name, Spanish name or alias"),
			}),
			Handler: t.lookupMedication,
		},
		{
			Name:        ToolGetTreatmentPaths,
			Description: "List symptom to condition to treatment or diagnostic chains for a symptom.",
			Schema: object([]string{"symptom"}, map[string]*jsonschema.Schema{
				"symptom": str("Symptom id, for example chest-pain"),
			}),
			Handler: t.getTreatmentPaths,
		},
	} {
		t.byName[tool.Name] = len(t.tools)
		t.tools = append(t.tools, tool)
	}
	return t
}

// Tools lists the tools in registration order.
func (t *Toolset) Tools() []Tool {
	return append([]Tool(nil), t.tools...)
}

// Call runs the named tool.
func (t *Toolset) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	i, ok := t.byName[name]
	if !ok {
		return nil, domain.NewAppError(domain.ErrCodeInvalidParameters, "unknown tool", name, "")
	}
	return t.tools[i].Handler(ctx, args)
}

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func levelSchema() *jsonschema.Schema {
	minimum, maximum := float64(domain.MinLevel), float64(domain.MaxLevel)
	return &jsonschema.Schema{
		Type:        "integer",
		Minimum:     &minimum,
		Maximum:     &maximum,
		Description: "Reading level 1..5; defaults to the shared level",
	}
}

func layerEnum() []any {
	out := make([]any, len(layers.Categories))
	for i, c := range layers.Categories {
		out[i] = string(c)
	}
	return out
}

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return domain.NewAppError(domain.ErrCodeInvalidParameters, "invalid arguments", err.Error(), "")
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.NewValidationError(field, "is required", value)
	}
	return nil
}

// level resolves an optional level argument against the shared state.
func (t *Toolset) level(requested *int, requestID string) (domain.Level, error) {
	if requested == nil {
		if t.deps.Complexity == nil {
			return domain.DefaultLevel, nil
		}
		return t.deps.Complexity.Level(), nil
	}
	l := domain.Level(*requested)
	if !l.Valid() {
		return 0, domain.NewInvalidLevelError(*requested, requestID)
	}
	return l, nil
}

type getRegionParams struct {
	RegionID string                `json:"region_id"`
	Level    *int                  `json:"level,omitempty"`
	Record   *domain.PatientRecord `json:"record,omitempty"`
}

func (t *Toolset) getRegion(ctx context.Context, args json.RawMessage) (any, error) {
	var p getRegionParams
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	if err := required("region_id", p.RegionID); err != nil {
		return nil, err
	}
	requestID := uuid.New().String()
	level, err := t.level(p.Level, requestID)
	if err != nil {
		return nil, err
	}

	view, err := t.regionView(ctx, strings.ToLower(strings.TrimSpace(p.RegionID)))
	if err != nil {
		return nil, err
	}
	out := projection.Region(view, level)
	if p.Record != nil && t.deps.Patients != nil {
		out.Patient = projection.Patient(t.deps.Patients.ForRegion(view.Region.ID, p.Record), level)
	}
	return out, nil
}

// regionView returns the merged view, reusing a cached one keyed by region
// only. Projection happens after the cache so levels share one entry.
func (t *Toolset) regionView(ctx context.Context, regionID string) (*domain.RegionalEncyclopediaData, error) {
	key := json.RawMessage(fmt.Sprintf(`{"region_id":%q}`, regionID))
	if raw, ok := t.deps.Cache.Get(ctx, ToolGetRegion, key); ok {
		var view domain.RegionalEncyclopediaData
		if err := json.Unmarshal(raw, &view); err == nil {
			return &view, nil
		}
		t.deps.Logger.WithField("region_id", regionID).Warn("Discarding unreadable cached region view")
	}

	view, err := t.deps.Fetcher.Fetch(ctx, regionID)
	if err != nil {
		return nil, err
	}
	if err := t.deps.Cache.Set(ctx, ToolGetRegion, key, view, 0); err != nil {
		t.deps.Logger.WithError(err).WithField("region_id", regionID).Warn("Failed to cache region view")
	}
	return view, nil
}

type searchRegionsParams struct {
	Query  string `json:"query"`
	System string `json:"system"`
}

// RegionSummary is one search hit.
type RegionSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Summary     string   `json:"summary"`
	BodySystems []string `json:"body_systems"`
}

func (t *Toolset) searchRegions(_ context.Context, args json.RawMessage) (any, error) {
	var p searchRegionsParams
	if err := decode(args, &p); err != nil {
		return nil, err
	}

	var hits []*domain.RegionContent
	switch {
	case strings.TrimSpace(p.Query) != "":
		hits = t.deps.Regions.Search(p.Query)
	case strings.TrimSpace(p.System) != "":
		hits = t.deps.Regions.RegionsBySystem(p.System)
	default:
		for _, id := range t.deps.Regions.RegionIDs() {
			if rc, ok := t.deps.Regions.GetRegionContent(id); ok {
				hits = append(hits, rc)
			}
		}
	}

	out := make([]RegionSummary, 0, len(hits))
	for _, rc := range hits {
		if p.System != "" && p.Query != "" && !hasFold(rc.BodySystems, p.System) {
			continue
		}
		out = append(out, RegionSummary{
			ID:          rc.ID,
			Name:        rc.Name,
			Summary:     projection.FirstSentence(rc.Description),
			BodySystems: rc.BodySystems,
		})
	}
	return map[string]any{"regions": out, "count": len(out)}, nil
}

func hasFold(items []string, s string) bool {
	for _, item := range items {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

type filterPatientParams struct {
	RegionID string                `json:"region_id"`
	Record   *domain.PatientRecord `json:"record"`
	Level    *int                  `json:"level,omitempty"`
}

// PatientResult is the filter_patient_records answer. Data is omitted when
// nothing in the record concerns the region; relevance is then low for a
// patient with conditions elsewhere and none otherwise.
type PatientResult struct {
	RegionID  string                  `json:"region_id"`
	Relevance domain.RelevanceLevel   `json:"relevance"`
	Level     domain.Level            `json:"level"`
	Data      *projection.PatientView `json:"data,omitempty"`
}

func (t *Toolset) filterPatientRecords(_ context.Context, args json.RawMessage) (any, error) {
	var p filterPatientParams
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	if err := required("region_id", p.RegionID); err != nil {
		return nil, err
	}
	if p.Record == nil {
		return nil, domain.NewValidationError("record", "is required", nil)
	}
	level, err := t.level(p.Level, "")
	if err != nil {
		return nil, err
	}

	regionID := strings.ToLower(strings.TrimSpace(p.RegionID))
	out := PatientResult{
		RegionID:  regionID,
		Relevance: t.deps.Patients.RegionRelevance(regionID, p.Record),
		Level:     level,
	}
	if data := t.deps.Patients.ForRegion(regionID, p.Record); data != nil {
		out.Data = projection.Patient(data, level)
	}
	return out, nil
}

type inferLayersParams struct {
	Condition string `json:"condition"`
	RegionID  string `json:"region_id"`
	Layer     string `json:"layer"`
}

// ConditionLayers pairs a condition with the layers it affects.
type ConditionLayers struct {
	Condition string            `json:"condition"`
	Layers    []layers.Category `json:"layers"`
}

func (t *Toolset) inferConditionLayers(_ context.Context, args json.RawMessage) (any, error) {
	var p inferLayersParams
	if err := decode(args, &p); err != nil {
		return nil, err
	}

	var layer layers.Category
	if p.Layer != "" {
		var ok bool
		if layer, ok = layers.ParseCategory(p.Layer); !ok {
			return nil, domain.NewValidationError("layer", "unknown layer", p.Layer)
		}
	}

	if strings.TrimSpace(p.RegionID) == "" {
		if err := required("condition", p.Condition); err != nil {
			return nil, err
		}
		cond := domain.ConditionInfo{Name: p.Condition}
		return []ConditionLayers{{Condition: p.Condition, Layers: layers.InferConditionLayers(cond)}}, nil
	}

	rc, ok := t.deps.Regions.GetRegionContent(strings.ToLower(strings.TrimSpace(p.RegionID)))
	if !ok {
		return nil, domain.NewRegionNotFoundError(p.RegionID, "")
	}
	conds := rc.Pathology.CommonConditions
	if layer != "" {
		conds = layers.FilterConditionsByLayer(conds, layer)
	}

	out := []ConditionLayers{}
	for _, c := range conds {
		if p.Condition != "" && !strings.EqualFold(c.Name, p.Condition) {
			continue
		}
		out = append(out, ConditionLayers{Condition: c.Name, Layers: layers.InferConditionLayers(c)})
	}
	return out, nil
}

type levelParams struct {
	Level *int `json:"level"`
}

// ComplexityResult reports the shared level.
type ComplexityResult struct {
	Level   domain.Level `json:"level"`
	Label   string       `json:"label"`
	Changed bool         `json:"changed,omitempty"`
}

func (t *Toolset) setComplexity(ctx context.Context, args json.RawMessage) (any, error) {
	var p levelParams
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	if p.Level == nil {
		return nil, domain.NewValidationError("level", "is required", nil)
	}
	requested := domain.Level(*p.Level)
	if !requested.Valid() {
		return nil, domain.NewInvalidLevelError(*p.Level, "")
	}

	changed := t.deps.Complexity.Level() != requested
	t.deps.Complexity.Set(ctx, requested)
	current := t.deps.Complexity.Level()
	t.deps.Logger.WithFields(logrus.Fields{
		"level":   int(current),
		"changed": changed,
	}).Info("Complexity level set through MCP")
	return ComplexityResult{Level: current, Label: current.String(), Changed: changed}, nil
}

func (t *Toolset) getComplexity(context.Context, json.RawMessage) (any, error) {
	current := t.deps.Complexity.Level()
	return ComplexityResult{Level: current, Label: current.String()}, nil
}

type getModuleParams struct {
	ModuleID string `json:"module_id"`
	Level    *int   `json:"level,omitempty"`
}

func (t *Toolset) getModule(_ context.Context, args json.RawMessage) (any, error) {
	var p getModuleParams
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	if err := required("module_id", p.ModuleID); err != nil {
		return nil, err
	}
	level, err := t.level(p.Level, "")
	if err != nil {
		return nil, err
	}
	m, ok := t.deps.Modules.Get(p.ModuleID)
	if !ok {
		return nil, domain.NewModuleNotFoundError(p.ModuleID, "")
	}
	return t.deps.Modules.Render(m, level), nil
}

func (t *Toolset) validateModules(context.Context, json.RawMessage) (any, error) {
	return t.deps.Modules.Validate(), nil
}

func (t *Toolset) graph() (*contentservice.Graph, error) {
	if t.deps.Graph == nil {
		return nil, domain.NewAppError(domain.ErrCodeUpstream, "knowledge graph is not configured", "", "")
	}
	return t.deps.Graph, nil
}

type findConditionsParams struct {
	RegionID string `json:"region_id"`
	Query    string `json:"query"`
	ICDCode  string `json:"icd_code"`
}

// ConditionsResult is the find_conditions answer.
type ConditionsResult struct {
	Conditions []*contentservice.ConditionProfile `json:"conditions"`
	Count      int                                `json:"count"`
}

func (t *Toolset) findConditions(_ context.Context, args json.RawMessage) (any, error) {
	var p findConditionsParams
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	g, err := t.graph()
	if err != nil {
		return nil, err
	}

	var nodes []domain.KnowledgeNode
	switch {
	case strings.TrimSpace(p.ICDCode) != "":
		profile, ok := g.ConditionByCode(p.ICDCode)
		if !ok {
			return nil, domain.NewNotFoundError("ICD-10 code", p.ICDCode, "")
		}
		return ConditionsResult{Conditions: []*contentservice.ConditionProfile{profile}, Count: 1}, nil
	case strings.TrimSpace(p.RegionID) != "":
		id := strings.ToLower(strings.TrimSpace(p.RegionID))
		if _, ok := t.deps.Regions.GetRegionContent(id); !ok {
			return nil, domain.NewRegionNotFoundError(p.RegionID, "")
		}
		nodes = g.ConditionsForRegion(id)
	case strings.TrimSpace(p.Query) != "":
		nodes = g.SearchConditions(p.Query)
	default:
		return nil, domain.NewValidationError("region_id", "one of region_id, query or icd_code is required", nil)
	}

	out := ConditionsResult{Conditions: []*contentservice.ConditionProfile{}}
	for _, n := range nodes {
		if profile, ok := g.ConditionProfile(n.ID); ok {
			out.Conditions = append(out.Conditions, profile)
		}
	}
	out.Count = len(out.Conditions)
	return out, nil
}

type medicationParams struct {
	Name string `json:"name"`
}

func (t *Toolset) lookupMedication(_ context.Context, args json.RawMessage) (any, error) {
	var p medicationParams
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	if err := required("name", p.Name); err != nil {
		return nil, err
	}
	g, err := t.graph()
	if err != nil {
		return nil, err
	}
	profile, ok := g.MedicationProfile(p.Name)
	if !ok {
		return nil, domain.NewNotFoundError("medication", p.Name, "")
	}
	return profile, nil
}

type treatmentPathsParams struct {
	Symptom string `json:"symptom"`
}

// TreatmentPathsResult is the get_treatment_paths answer.
type TreatmentPathsResult struct {
	SymptomID string                   `json:"symptom_id"`
	Paths     [][]domain.KnowledgeNode `json:"paths"`
}

func (t *Toolset) getTreatmentPaths(_ context.Context, args json.RawMessage) (any, error) {
	var p treatmentPathsParams
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	if err := required("symptom", p.Symptom); err != nil {
		return nil, err
	}
	g, err := t.graph()
	if err != nil {
		return nil, err
	}
	id := strings.ToLower(strings.TrimSpace(p.Symptom))
	if !strings.HasPrefix(id, string(domain.NodeSymptom)+":") {
		id = string(domain.NodeSymptom) + ":" + id
	}
	paths := g.TreatmentPaths(id)
	if paths == nil {
		return nil, domain.NewNotFoundError("symptom", p.Symptom, "")
	}
	return TreatmentPathsResult{SymptomID: id, Paths: paths}, nil
}
