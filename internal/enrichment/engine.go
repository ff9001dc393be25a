// Package enrichment builds the merged region view: authored content from
// the static store combined with whatever the content service can supply.
package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/metrics"
	"github.com/anatomy-twin-server/pkg/contentservice"
)

// Live sources, used as log fields and metric labels.
const (
	SourceAnatomy     = "anatomy"
	SourceSymptoms    = "symptoms"
	SourceSpecialties = "specialties"
	SourceRelated     = "related"
)

// ContentSource is the static content lookup. *content.Store satisfies it.
type ContentSource interface {
	GetRegionContent(id string) (*domain.RegionContent, bool)
}

// Engine fetches and merges region views.
type Engine struct {
	content ContentSource
	client  contentservice.Client
	logger  *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewEngine wires an engine. A nil client serves authored content only and
// a nil metrics value disables instrumentation.
func NewEngine(content ContentSource, client contentservice.Client, logger *logrus.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		content: content,
		client:  client,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Fetch builds a fresh view for regionID. An unknown region is the only
// fatal outcome; each live source that fails is logged and treated as
// empty. Cancelling ctx aborts the fetch with the context's error.
func (e *Engine) Fetch(ctx context.Context, regionID string) (*domain.RegionalEncyclopediaData, error) {
	start := e.now()
	requestID := uuid.New().String()

	static, ok := e.content.GetRegionContent(regionID)
	if !ok {
		e.metrics.ObserveFetch(metrics.OutcomeNotFound, time.Since(start))
		e.logger.WithFields(logrus.Fields{
			"region_id":  regionID,
			"request_id": requestID,
		}).Info("Region not found")
		return nil, domain.NewRegionNotFoundError(regionID, requestID)
	}

	live := e.fetchLive(ctx, static, requestID)
	if err := ctx.Err(); err != nil {
		e.metrics.ObserveFetch(metrics.OutcomeError, time.Since(start))
		return nil, fmt.Errorf("fetch region %s: %w", regionID, err)
	}

	view := Merge(static, live)
	view.RequestID = requestID
	view.FetchedAt = e.now()

	e.metrics.ObserveFetch(metrics.OutcomeSuccess, time.Since(start))
	e.logger.WithFields(logrus.Fields{
		"region_id":     regionID,
		"request_id":    requestID,
		"structures":    len(view.Structures),
		"layers":        len(view.Layers),
		"live_anatomy":  live.Anatomy != nil,
		"live_symptoms": len(live.Symptoms),
		"related":       len(live.Related),
		"duration":      time.Since(start),
	}).Debug("Region fetched")
	return view, nil
}

// fetchLive runs the four content-service calls concurrently. No call can
// fail the group: errors degrade that source to empty.
func (e *Engine) fetchLive(ctx context.Context, static *domain.RegionContent, requestID string) Live {
	var live Live
	if e.client == nil {
		return live
	}

	regionID := static.ID
	perSystem := make([][]domain.MedicalSpecialty, len(static.BodySystems))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := e.client.GetAnatomyRegion(gctx, regionID)
		if err != nil {
			e.degraded(SourceAnatomy, regionID, requestID, err)
			return nil
		}
		live.Anatomy = a
		return nil
	})
	g.Go(func() error {
		s, err := e.client.GetSymptomsByRegion(gctx, regionID)
		if err != nil {
			e.degraded(SourceSymptoms, regionID, requestID, err)
			return nil
		}
		live.Symptoms = s
		return nil
	})
	for i, system := range static.BodySystems {
		g.Go(func() error {
			s, err := e.client.GetSpecialtiesForBodySystem(gctx, system)
			if err != nil {
				e.degraded(SourceSpecialties, regionID, requestID, err)
				return nil
			}
			perSystem[i] = s
			return nil
		})
	}
	g.Go(func() error {
		r, err := e.client.GetRelated(gctx, domain.AnatomyNamespace+regionID, contentservice.RelatedFilter{
			TargetType: domain.NodeAnatomy,
		})
		if err != nil {
			e.degraded(SourceRelated, regionID, requestID, err)
			return nil
		}
		live.Related = r
		return nil
	})
	_ = g.Wait()

	live.Specialties = flattenSpecialties(perSystem)
	return live
}

func (e *Engine) degraded(source, regionID, requestID string, err error) {
	e.metrics.SubFetchFailed(source)
	e.logger.WithFields(logrus.Fields{
		"source":     source,
		"region_id":  regionID,
		"request_id": requestID,
		"error_code": domain.CodeOf(err),
	}).WithError(err).Warn("Live content unavailable, continuing without it")
}

// flattenSpecialties concatenates per-system results in body-system order,
// keeping the first occurrence of each specialty id.
func flattenSpecialties(perSystem [][]domain.MedicalSpecialty) []domain.MedicalSpecialty {
	var out []domain.MedicalSpecialty
	seen := make(map[string]struct{})
	for _, list := range perSystem {
		for _, s := range list {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
