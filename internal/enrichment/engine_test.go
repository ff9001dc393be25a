package enrichment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatomy-twin-server/internal/content"
	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/metrics"
	"github.com/anatomy-twin-server/pkg/contentservice"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// stubClient serves the embedded graph and fails the sources listed in fail.
type stubClient struct {
	contentservice.Client
	fail map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func newStubClient(fail map[string]error) *stubClient {
	return &stubClient{
		Client: contentservice.DefaultGraph(),
		fail:   fail,
		calls:  make(map[string]int),
	}
}

func (c *stubClient) record(source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[source]++
	return c.fail[source]
}

func (c *stubClient) callCount(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[source]
}

func (c *stubClient) GetAnatomyRegion(ctx context.Context, id string) (*domain.AnatomyRegion, error) {
	if err := c.record(SourceAnatomy); err != nil {
		return nil, err
	}
	return c.Client.GetAnatomyRegion(ctx, id)
}

func (c *stubClient) GetSymptomsByRegion(ctx context.Context, id string) ([]domain.SymptomEntry, error) {
	if err := c.record(SourceSymptoms); err != nil {
		return nil, err
	}
	return c.Client.GetSymptomsByRegion(ctx, id)
}

func (c *stubClient) GetSpecialtiesForBodySystem(ctx context.Context, system string) ([]domain.MedicalSpecialty, error) {
	if err := c.record(SourceSpecialties); err != nil {
		return nil, err
	}
	return c.Client.GetSpecialtiesForBodySystem(ctx, system)
}

func (c *stubClient) GetRelated(ctx context.Context, id string, f contentservice.RelatedFilter) ([]domain.KnowledgeNode, error) {
	if err := c.record(SourceRelated); err != nil {
		return nil, err
	}
	return c.Client.GetRelated(ctx, id, f)
}

// barrierClient holds every call until the expected number of calls has
// started, so it only completes when they run at the same time.
type barrierClient struct {
	contentservice.Client
	expected int
	wait     time.Duration

	mu       sync.Mutex
	started  int
	all      chan struct{}
	timedOut atomic.Int32
}

func newBarrierClient(expected int) *barrierClient {
	return &barrierClient{
		Client:   contentservice.DefaultGraph(),
		expected: expected,
		wait:     2 * time.Second,
		all:      make(chan struct{}),
	}
}

func (b *barrierClient) arrive(ctx context.Context) error {
	b.mu.Lock()
	b.started++
	if b.started == b.expected {
		close(b.all)
	}
	b.mu.Unlock()

	select {
	case <-b.all:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.wait):
		b.timedOut.Add(1)
		return errors.New("other live calls never started")
	}
}

func (b *barrierClient) GetAnatomyRegion(ctx context.Context, id string) (*domain.AnatomyRegion, error) {
	if err := b.arrive(ctx); err != nil {
		return nil, err
	}
	return b.Client.GetAnatomyRegion(ctx, id)
}

func (b *barrierClient) GetSymptomsByRegion(ctx context.Context, id string) ([]domain.SymptomEntry, error) {
	if err := b.arrive(ctx); err != nil {
		return nil, err
	}
	return b.Client.GetSymptomsByRegion(ctx, id)
}

func (b *barrierClient) GetSpecialtiesForBodySystem(ctx context.Context, system string) ([]domain.MedicalSpecialty, error) {
	if err := b.arrive(ctx); err != nil {
		return nil, err
	}
	return b.Client.GetSpecialtiesForBodySystem(ctx, system)
}

func (b *barrierClient) GetRelated(ctx context.Context, id string, f contentservice.RelatedFilter) ([]domain.KnowledgeNode, error) {
	if err := b.arrive(ctx); err != nil {
		return nil, err
	}
	return b.Client.GetRelated(ctx, id, f)
}

func TestEngine_LiveSourcesRunConcurrently(t *testing.T) {
	static, ok := content.Default().GetRegionContent("heart")
	require.True(t, ok)
	require.NotEmpty(t, static.BodySystems)

	// anatomy, symptoms and related plus one specialties call per body system
	client := newBarrierClient(3 + len(static.BodySystems))
	engine := NewEngine(content.Default(), client, quietLogger(), nil)

	view, err := engine.Fetch(context.Background(), "heart")
	require.NoError(t, err)
	assert.Zero(t, client.timedOut.Load(), "live calls were made one after another")
	assert.Equal(t, client.expected, client.started)

	assert.NotNil(t, view.AnatomyRegion)
	assert.NotEmpty(t, view.Specialties)
	assert.Contains(t, view.RelatedStructures, "pericardium")
}

func TestEngine_FetchHeart(t *testing.T) {
	client := newStubClient(nil)
	engine := NewEngine(content.Default(), client, quietLogger(), nil)

	view, err := engine.Fetch(context.Background(), "heart")
	require.NoError(t, err)

	assert.NotEmpty(t, view.RequestID)
	assert.False(t, view.FetchedAt.IsZero())
	assert.Equal(t, "heart", view.Region.ID)

	static, _ := content.Default().GetRegionContent("heart")
	assert.Equal(t, static.Description, view.Region.Description, "shorter live narrative leaves the description alone")

	require.Len(t, view.Structures, 3)
	assert.True(t, strings.HasSuffix(view.Structures[0].Description,
		"Pumps blood throughout the body via systemic and pulmonary circulation"))
	assert.Equal(t, []string{"heart-tissue-0", "heart-tissue-1"}, view.Structures[0].Children)

	assert.Equal(t, []string{
		"Chest pain", "Dyspnea", "Palpitations", "Syncope", "Edema",
		"Shortness of Breath", "Leg Swelling",
	}, view.Pathology.ClinicalPresentations)

	conditions := map[string][]string{}
	for _, c := range view.Pathology.CommonConditions {
		conditions[c.Name] = c.Symptoms
	}
	assert.Contains(t, conditions["Myocardial Infarction"], "Chest Pain")
	assert.Contains(t, conditions["Heart Failure"], "Shortness of Breath")
	assert.Contains(t, conditions["Heart Failure"], "Leg Swelling")
	assert.Equal(t, []string{"Palpitations", "Syncope", "Sudden death"}, conditions["Arrhythmia"])

	assert.Contains(t, view.ClinicalNotes, "Specialists: Cardiology, Cardiothoracic Surgery, Vascular Surgery")
	assert.Equal(t, []string{"chest", "lungs", "aorta", "coronary-arteries", "pericardium"}, view.RelatedStructures)
	require.NotNil(t, view.AnatomyRegion)
	assert.Equal(t, "Center of chest, between lungs, in the mediastinum", view.AnatomyRegion.Location)
	assert.NotEmpty(t, view.Layers)

	again, _ := content.Default().GetRegionContent("heart")
	assert.Equal(t, static, again, "authored content unchanged by the merge")
}

func TestEngine_RegionNotFound(t *testing.T) {
	client := newStubClient(nil)
	m := metrics.New("test")
	engine := NewEngine(content.Default(), client, quietLogger(), m)

	view, err := engine.Fetch(context.Background(), "spleen")
	require.Error(t, err)
	assert.Nil(t, view)
	assert.ErrorIs(t, err, domain.ErrRegionNotFound)
	assert.Equal(t, domain.ErrCodeRegionNotFound, domain.CodeOf(err))

	for _, source := range []string{SourceAnatomy, SourceSymptoms, SourceSpecialties, SourceRelated} {
		assert.Zero(t, client.callCount(source), "no live call for %s", source)
	}
	series, err := testutil.GatherAndCount(m.Registry(), "test_enrichment_fetch_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestEngine_DegradesEachSource(t *testing.T) {
	down := errors.New("connection refused")
	tests := []struct {
		name  string
		fail  map[string]error
		check func(t *testing.T, view *domain.RegionalEncyclopediaData)
	}{
		{
			name: "anatomy",
			fail: map[string]error{SourceAnatomy: down},
			check: func(t *testing.T, view *domain.RegionalEncyclopediaData) {
				assert.Nil(t, view.AnatomyRegion)
				assert.Contains(t, view.RelatedStructures, "pericardium")
			},
		},
		{
			name: "symptoms",
			fail: map[string]error{SourceSymptoms: down},
			check: func(t *testing.T, view *domain.RegionalEncyclopediaData) {
				assert.NotContains(t, view.Pathology.ClinicalPresentations, "Leg Swelling")
				assert.NotNil(t, view.AnatomyRegion)
			},
		},
		{
			name: "specialties",
			fail: map[string]error{SourceSpecialties: down},
			check: func(t *testing.T, view *domain.RegionalEncyclopediaData) {
				for _, n := range view.ClinicalNotes {
					assert.False(t, strings.HasPrefix(n, "Specialists:"))
				}
				assert.Empty(t, view.Specialties)
			},
		},
		{
			name: "related",
			fail: map[string]error{SourceRelated: down},
			check: func(t *testing.T, view *domain.RegionalEncyclopediaData) {
				assert.Equal(t, []string{"chest", "lungs", "aorta", "coronary-arteries"}, view.RelatedStructures)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(content.Default(), newStubClient(tt.fail), quietLogger(), nil)
			view, err := engine.Fetch(context.Background(), "heart")
			require.NoError(t, err)
			tt.check(t, view)
		})
	}
}

func TestEngine_AllSourcesDown(t *testing.T) {
	down := errors.New("unavailable")
	client := newStubClient(map[string]error{
		SourceAnatomy:     down,
		SourceSymptoms:    down,
		SourceSpecialties: down,
		SourceRelated:     down,
	})
	m := metrics.New("test")
	engine := NewEngine(content.Default(), client, quietLogger(), m)

	view, err := engine.Fetch(context.Background(), "heart")
	require.NoError(t, err)

	static, _ := content.Default().GetRegionContent("heart")
	expected := Merge(static, Live{})
	expected.RequestID = view.RequestID
	expected.FetchedAt = view.FetchedAt
	assert.Equal(t, expected, view)

	err = testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP test_enrichment_subfetch_failures_total Live content fetches that failed and were degraded to empty.
# TYPE test_enrichment_subfetch_failures_total counter
test_enrichment_subfetch_failures_total{source="anatomy"} 1
test_enrichment_subfetch_failures_total{source="related"} 1
test_enrichment_subfetch_failures_total{source="specialties"} 1
test_enrichment_subfetch_failures_total{source="symptoms"} 1
`), "test_enrichment_subfetch_failures_total")
	assert.NoError(t, err)
}

func TestEngine_NilClientServesAuthoredContent(t *testing.T) {
	engine := NewEngine(content.Default(), nil, nil, nil)
	view, err := engine.Fetch(context.Background(), "lungs")
	require.NoError(t, err)
	assert.Nil(t, view.AnatomyRegion)
	assert.Empty(t, view.Specialties)
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(content.Default(), newStubClient(nil), quietLogger(), nil)
	view, err := engine.Fetch(ctx, "heart")
	assert.Nil(t, view)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFlattenSpecialties(t *testing.T) {
	surgery := domain.MedicalSpecialty{ID: "cardiothoracic-surgery", Name: "Cardiothoracic Surgery"}
	out := flattenSpecialties([][]domain.MedicalSpecialty{
		{{ID: "pulmonology", Name: "Pulmonology"}, surgery},
		nil,
		{{ID: "cardiology", Name: "Cardiology"}, {ID: "cardiothoracic-surgery", Name: "Renamed"}},
	})

	require.Len(t, out, 3)
	assert.Equal(t, "pulmonology", out[0].ID)
	assert.Equal(t, surgery, out[1], "first occurrence wins")
	assert.Equal(t, "cardiology", out[2].ID)
	assert.Nil(t, flattenSpecialties(nil))
}
