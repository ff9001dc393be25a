package contentservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/anatomy-twin-server/internal/domain"
)

// BreakerSettings returns the circuit breaker configuration shared by all
// content-service operations.
func BreakerSettings(name string, logger *logrus.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Content service circuit breaker changed state")
		},
	}
}

// ResilientClient guards each Client operation with its own breaker so a
// failing symptom endpoint does not cut off anatomy lookups.
type ResilientClient struct {
	client Client

	anatomyBreaker     *gobreaker.CircuitBreaker
	symptomsBreaker    *gobreaker.CircuitBreaker
	specialtiesBreaker *gobreaker.CircuitBreaker
	relatedBreaker     *gobreaker.CircuitBreaker
}

var _ Client = (*ResilientClient)(nil)

func NewResilientClient(client Client, logger *logrus.Logger) *ResilientClient {
	return &ResilientClient{
		client:             client,
		anatomyBreaker:     gobreaker.NewCircuitBreaker(BreakerSettings("content-anatomy", logger)),
		symptomsBreaker:    gobreaker.NewCircuitBreaker(BreakerSettings("content-symptoms", logger)),
		specialtiesBreaker: gobreaker.NewCircuitBreaker(BreakerSettings("content-specialties", logger)),
		relatedBreaker:     gobreaker.NewCircuitBreaker(BreakerSettings("content-related", logger)),
	}
}

func (r *ResilientClient) GetAnatomyRegion(ctx context.Context, regionID string) (*domain.AnatomyRegion, error) {
	result, err := r.anatomyBreaker.Execute(func() (interface{}, error) {
		return r.client.GetAnatomyRegion(ctx, regionID)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return result.(*domain.AnatomyRegion), nil
}

func (r *ResilientClient) GetSymptomsByRegion(ctx context.Context, regionID string) ([]domain.SymptomEntry, error) {
	result, err := r.symptomsBreaker.Execute(func() (interface{}, error) {
		return r.client.GetSymptomsByRegion(ctx, regionID)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return result.([]domain.SymptomEntry), nil
}

func (r *ResilientClient) GetSpecialtiesForBodySystem(ctx context.Context, system string) ([]domain.MedicalSpecialty, error) {
	result, err := r.specialtiesBreaker.Execute(func() (interface{}, error) {
		return r.client.GetSpecialtiesForBodySystem(ctx, system)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return result.([]domain.MedicalSpecialty), nil
}

func (r *ResilientClient) GetRelated(ctx context.Context, nodeID string, filter RelatedFilter) ([]domain.KnowledgeNode, error) {
	result, err := r.relatedBreaker.Execute(func() (interface{}, error) {
		return r.client.GetRelated(ctx, nodeID, filter)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return result.([]domain.KnowledgeNode), nil
}

// States reports each breaker's current state keyed by breaker name.
func (r *ResilientClient) States() map[string]gobreaker.State {
	states := make(map[string]gobreaker.State, 4)
	for _, cb := range []*gobreaker.CircuitBreaker{r.anatomyBreaker, r.symptomsBreaker, r.specialtiesBreaker, r.relatedBreaker} {
		states[cb.Name()] = cb.State()
	}
	return states
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.WrapAppError(domain.ErrCodeUpstream, fmt.Errorf("%w: %w", ErrUnavailable, err), "")
	}
	return err
}
