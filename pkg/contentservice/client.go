// Package contentservice provides access to the medical knowledge-graph
// content service: anatomy encyclopedia entries, the symptom database,
// specialty listings and graph traversal.
package contentservice

import (
	"context"
	"errors"

	"github.com/anatomy-twin-server/internal/domain"
)

// ErrUnavailable is returned when a backing service cannot be reached.
var ErrUnavailable = errors.New("content service unavailable")

// Client is the content-service contract the enrichment engine depends on.
// Not-found is never an error: GetAnatomyRegion returns nil, nil and list
// operations return an empty slice.
type Client interface {
	GetAnatomyRegion(ctx context.Context, regionID string) (*domain.AnatomyRegion, error)
	GetSymptomsByRegion(ctx context.Context, regionID string) ([]domain.SymptomEntry, error)
	GetSpecialtiesForBodySystem(ctx context.Context, system string) ([]domain.MedicalSpecialty, error)
	GetRelated(ctx context.Context, nodeID string, filter RelatedFilter) ([]domain.KnowledgeNode, error)
}

// RelatedFilter narrows GetRelated. Zero fields match everything.
type RelatedFilter struct {
	Relationship domain.Relationship `json:"relationship,omitempty"`
	TargetType   domain.NodeType     `json:"target_type,omitempty"`
}

func (f RelatedFilter) accepts(rel domain.Relationship, target domain.NodeType) bool {
	if f.Relationship != "" && f.Relationship != rel {
		return false
	}
	if f.TargetType != "" && f.TargetType != target {
		return false
	}
	return true
}
