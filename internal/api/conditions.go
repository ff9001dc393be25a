package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/middleware"
	"github.com/anatomy-twin-server/pkg/contentservice"
)

// ConditionGraph answers condition, medication and symptom browsing.
// *contentservice.Graph satisfies it.
type ConditionGraph interface {
	ConditionsForRegion(regionID string) []domain.KnowledgeNode
	ConditionProfile(conditionID string) (*contentservice.ConditionProfile, bool)
	ConditionByCode(code string) (*contentservice.ConditionProfile, bool)
	SearchConditions(query string) []domain.KnowledgeNode
	MedicationProfile(name string) (*contentservice.MedicationProfile, bool)
	TreatmentPaths(symptomID string) [][]domain.KnowledgeNode
	Stats() (map[domain.NodeType]int, int)
}

// graph rejects the request when no graph is configured.
func (s *Server) graph(c *gin.Context) (ConditionGraph, bool) {
	if s.opts.Graph == nil {
		s.fail(c, domain.NewAppError(domain.ErrCodeUpstream, "knowledge graph is not configured", "", c.GetString(middleware.RequestIDKey)))
		return nil, false
	}
	return s.opts.Graph, true
}

// handleRegionConditions lists the graph conditions affecting an authored
// region, each with its full profile.
func (s *Server) handleRegionConditions(c *gin.Context) {
	g, ok := s.graph(c)
	if !ok {
		return
	}
	id := regionID(c)
	if _, ok := s.opts.Regions.GetRegionContent(id); !ok {
		s.fail(c, domain.NewRegionNotFoundError(id, c.GetString(middleware.RequestIDKey)))
		return
	}

	profiles := []*contentservice.ConditionProfile{}
	for _, n := range g.ConditionsForRegion(id) {
		if p, ok := g.ConditionProfile(n.ID); ok {
			profiles = append(profiles, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"region_id": id, "conditions": profiles})
}

func (s *Server) handleSearchConditions(c *gin.Context) {
	g, ok := s.graph(c)
	if !ok {
		return
	}
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		s.fail(c, domain.NewValidationError("q", "is required", q))
		return
	}
	hits := g.SearchConditions(q)
	if hits == nil {
		hits = []domain.KnowledgeNode{}
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "conditions": hits})
}

func (s *Server) handleConditionByCode(c *gin.Context) {
	g, ok := s.graph(c)
	if !ok {
		return
	}
	p, ok := g.ConditionByCode(c.Param("code"))
	if !ok {
		s.fail(c, domain.NewNotFoundError("ICD-10 code", c.Param("code"), c.GetString(middleware.RequestIDKey)))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleGetCondition(c *gin.Context) {
	g, ok := s.graph(c)
	if !ok {
		return
	}
	p, ok := g.ConditionProfile(c.Param("conditionId"))
	if !ok {
		s.fail(c, domain.NewNotFoundError("condition", c.Param("conditionId"), c.GetString(middleware.RequestIDKey)))
		return
	}
	c.JSON(http.StatusOK, p)
}

// handleMedication shows the conditions a medication treats and the
// anatomy they affect.
func (s *Server) handleMedication(c *gin.Context) {
	g, ok := s.graph(c)
	if !ok {
		return
	}
	p, ok := g.MedicationProfile(c.Param("name"))
	if !ok {
		s.fail(c, domain.NewNotFoundError("medication", c.Param("name"), c.GetString(middleware.RequestIDKey)))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleTreatmentPaths(c *gin.Context) {
	g, ok := s.graph(c)
	if !ok {
		return
	}
	id := strings.ToLower(strings.TrimSpace(c.Param("symptomId")))
	if !strings.HasPrefix(id, string(domain.NodeSymptom)+":") {
		id = string(domain.NodeSymptom) + ":" + id
	}
	paths := g.TreatmentPaths(id)
	if paths == nil {
		s.fail(c, domain.NewNotFoundError("symptom", c.Param("symptomId"), c.GetString(middleware.RequestIDKey)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"symptom_id": id, "paths": paths})
}
