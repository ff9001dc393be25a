package enrichment

import (
	"context"
	"errors"
	"sync"

	"github.com/anatomy-twin-server/internal/domain"
)

var (
	// ErrSuperseded is returned by a Load whose result was discarded because
	// a newer Load started while it was in flight.
	ErrSuperseded = errors.New("region load superseded by a newer request")
	// ErrNoRegion is returned by Refetch before any region was loaded.
	ErrNoRegion = errors.New("no region loaded")
)

// Fetcher produces a fresh merged view. *Engine satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, regionID string) (*domain.RegionalEncyclopediaData, error)
}

// Session holds the current view for one consumer and guarantees a slow
// response for an earlier region never replaces a newer one.
type Session struct {
	fetcher Fetcher

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	regionID string
	view     *domain.RegionalEncyclopediaData
	err      error
}

func NewSession(fetcher Fetcher) *Session {
	return &Session{fetcher: fetcher}
}

// Load cancels any in-flight fetch and fetches regionID. The result is
// committed only if no later Load started in the meantime.
func (s *Session) Load(ctx context.Context, regionID string) (*domain.RegionalEncyclopediaData, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.regionID = regionID
	s.mu.Unlock()

	view, err := s.fetcher.Fetch(fetchCtx, regionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()
	if seq != s.seq {
		return nil, ErrSuperseded
	}
	s.cancel = nil
	s.view, s.err = view, err
	return view, err
}

// Refetch reloads the current region from scratch.
func (s *Session) Refetch(ctx context.Context) (*domain.RegionalEncyclopediaData, error) {
	s.mu.Lock()
	regionID := s.regionID
	s.mu.Unlock()
	if regionID == "" {
		return nil, ErrNoRegion
	}
	return s.Load(ctx, regionID)
}

// View returns the last committed view and its error.
func (s *Session) View() (*domain.RegionalEncyclopediaData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.err
}

// RegionID is the region of the most recent Load, committed or not.
func (s *Session) RegionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regionID
}
