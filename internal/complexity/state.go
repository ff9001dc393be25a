package complexity

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/metrics"
)

// Option configures a State.
type Option func(*State)

// WithPublisher announces accepted changes to other instances.
func WithPublisher(p Publisher) Option {
	return func(s *State) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *State) { s.metrics = m }
}

// State is the shared complexity level. It starts at the persisted level
// (or the default when none is usable) and only ever holds 1..5.
type State struct {
	store     Store
	publisher Publisher
	logger    *logrus.Logger
	metrics   *metrics.Metrics

	// writeMu orders whole changes: swap, persist, publish and notify of
	// one change finish before the next change starts.
	writeMu sync.Mutex

	mu     sync.RWMutex
	level  domain.Level
	subs   map[int]func(domain.Level)
	nextID int
}

// NewState loads the persisted level from store. Read failures and corrupt
// or out-of-range values fall back to the default without error.
func NewState(ctx context.Context, store Store, logger *logrus.Logger, opts ...Option) *State {
	if logger == nil {
		logger = logrus.New()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	s := &State{
		store:  store,
		logger: logger,
		level:  domain.DefaultLevel,
		subs:   make(map[int]func(domain.Level)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.level = s.load(ctx)
	s.metrics.ComplexityChanged(int(s.level))
	return s
}

func (s *State) load(ctx context.Context) domain.Level {
	raw, ok, err := s.store.Get(ctx, PreferenceKey)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read persisted complexity level, using default")
		return domain.DefaultLevel
	}
	if !ok {
		return domain.DefaultLevel
	}
	level, err := domain.ParseLevel(raw)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"key":   PreferenceKey,
			"value": raw,
		}).Warn("Ignoring invalid persisted complexity level")
		return domain.DefaultLevel
	}
	return level
}

func (s *State) Level() domain.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

// Set changes the level. Out-of-range values are ignored and return false.
// Setting the current value is accepted but changes nothing. A real change
// is persisted, published and delivered to subscribers before Set returns;
// persistence and publication failures are logged only. Concurrent changes
// are applied one at a time, so the persisted level and the last level
// subscribers saw always match the in-memory level. Subscribers must not
// call Set.
func (s *State) Set(ctx context.Context, level domain.Level) bool {
	if !level.Valid() {
		s.logger.WithField("level", int(level)).Debug("Ignoring out-of-range complexity level")
		return false
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	previous, changed := s.swap(level)
	if !changed {
		return true
	}

	if err := s.store.Put(ctx, PreferenceKey, level.Encode()); err != nil {
		s.logger.WithError(err).WithField("level", int(level)).Error("Failed to persist complexity level")
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, newChangeEvent(previous, level)); err != nil {
			s.logger.WithError(err).WithField("level", int(level)).Warn("Failed to publish complexity change")
		}
	}
	s.notify(level)
	return true
}

// apply takes a change made by another instance: subscribers hear about it
// but it is neither persisted nor republished.
func (s *State) apply(level domain.Level) bool {
	if !level.Valid() {
		return false
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, changed := s.swap(level); changed {
		s.notify(level)
	}
	return true
}

func (s *State) swap(level domain.Level) (domain.Level, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.level
	if previous == level {
		return previous, false
	}
	s.level = level
	return previous, true
}

func (s *State) notify(level domain.Level) {
	s.metrics.ComplexityChanged(int(level))
	s.logger.WithField("level", level.String()).Info("Complexity level changed")

	s.mu.RLock()
	subs := make([]func(domain.Level), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(level)
	}
}

// Subscribe registers fn for level changes. The returned func unsubscribes.
func (s *State) Subscribe(fn func(domain.Level)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
