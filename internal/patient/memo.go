package patient

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/taxonomy"
)

// DefaultMemoSize bounds the memo when no size is configured.
const DefaultMemoSize = 256

// memoKey identifies a result by region and record content. Two records
// that differ anywhere hash differently, whatever id or version they claim.
type memoKey struct {
	regionID string
	digest   [sha256.Size]byte
}

// memoEntry lets a nil result be cached too.
type memoEntry struct {
	data *domain.PatientRegionData
}

// Memo caches Filter results per (region, record content). Since the key
// covers every field of the record, a cached result is always the one
// Filter would compute for that exact record.
type Memo struct {
	filter *Filter
	cache  *lru.Cache

	hits   atomic.Int64
	misses atomic.Int64
}

// MemoStats is a snapshot of the memo's counters.
type MemoStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// NewMemo wraps filter with an LRU of the given size.
func NewMemo(filter *Filter, size int) (*Memo, error) {
	if size <= 0 {
		size = DefaultMemoSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient memo: %w", err)
	}
	return &Memo{filter: filter, cache: cache}, nil
}

func recordDigest(record *domain.PatientRecord) ([sha256.Size]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(raw), nil
}

// ForRegion returns the memoized Filter.ForRegion result.
func (m *Memo) ForRegion(regionID string, record *domain.PatientRecord) *domain.PatientRegionData {
	if record == nil {
		return nil
	}
	digest, err := recordDigest(record)
	if err != nil {
		return m.filter.ForRegion(regionID, record)
	}

	key := memoKey{regionID: regionID, digest: digest}
	if v, ok := m.cache.Get(key); ok {
		m.hits.Add(1)
		return v.(memoEntry).data
	}
	m.misses.Add(1)

	data := m.filter.ForRegion(regionID, record)
	m.cache.Add(key, memoEntry{data: data})
	return data
}

// RegionRelevance grades the region even when nothing matches, which
// ForRegion cannot express.
func (m *Memo) RegionRelevance(regionID string, record *domain.PatientRecord) domain.RelevanceLevel {
	if record == nil {
		return domain.RelevanceNone
	}
	if data := m.ForRegion(regionID, record); data != nil {
		return data.Relevance
	}
	return taxonomy.Relevance(0, len(record.Conditions))
}

// Purge drops every cached result.
func (m *Memo) Purge() {
	m.cache.Purge()
}

// Stats reports hit and miss counts plus the current entry count.
func (m *Memo) Stats() MemoStats {
	return MemoStats{Hits: m.hits.Load(), Misses: m.misses.Load(), Entries: m.cache.Len()}
}
