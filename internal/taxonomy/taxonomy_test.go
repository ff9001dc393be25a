package taxonomy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatomy-twin-server/internal/domain"
)

func TestDefault_Lookup(t *testing.T) {
	table := Default()

	tests := []struct {
		name     string
		regionID string
		contains string
		empty    bool
	}{
		{name: "canonical id", regionID: "heart", contains: "cardiac"},
		{name: "case insensitive", regionID: "HEART", contains: "cardiac"},
		{name: "alias kidneys", regionID: "kidneys", contains: "renal"},
		{name: "alias lung", regionID: "lung", contains: "pneumonia"},
		{name: "unknown region", regionID: "elbow", empty: true},
		{name: "empty id", regionID: "", empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kw := table.Lookup(tt.regionID)
			if tt.empty {
				assert.True(t, kw.Empty())
				return
			}
			assert.Contains(t, kw.Conditions, tt.contains)
		})
	}
}

func TestDefault_HeartLocationsExcludeLimbs(t *testing.T) {
	kw := Default().Lookup("heart")
	assert.False(t, ContainsAny("left leg", kw.Locations))
	assert.True(t, ContainsAny("Substernal chest", kw.Locations))
}

func TestLoad(t *testing.T) {
	doc := `
regions:
  Knee:
    aliases: [knees]
    conditions: [Meniscus, ACL]
    locations: [knee]
`
	table, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	kw := table.Lookup("knees")
	assert.Equal(t, []string{"meniscus", "acl"}, kw.Conditions)
	assert.Equal(t, []string{"knee"}, table.RegionIDs())
	assert.True(t, table.Has("KNEE"))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed", doc: "regions: [oops"},
		{name: "conflicting alias", doc: "regions:\n  a:\n    aliases: [x]\n    conditions: [p]\n  b:\n    aliases: [x]\n    conditions: [q]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestContainsAny(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
	}{
		{name: "substring match", text: "Chronic Heart Failure", keywords: []string{"heart failure"}, want: true},
		{name: "no match", text: "Knee pain", keywords: []string{"heart"}, want: false},
		{name: "empty text", text: "", keywords: []string{"heart"}, want: false},
		{name: "empty keywords", text: "heart", keywords: nil, want: false},
		{name: "blank keyword ignored", text: "heart", keywords: []string{""}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsAny(tt.text, tt.keywords))
		})
	}
}

func TestRelevance(t *testing.T) {
	tests := []struct {
		total      int
		conditions int
		want       domain.RelevanceLevel
	}{
		{total: 5, conditions: 0, want: domain.RelevanceHigh},
		{total: 3, conditions: 2, want: domain.RelevanceHigh},
		{total: 2, conditions: 0, want: domain.RelevanceMedium},
		{total: 1, conditions: 1, want: domain.RelevanceMedium},
		{total: 0, conditions: 4, want: domain.RelevanceLow},
		{total: 0, conditions: 0, want: domain.RelevanceNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Relevance(tt.total, tt.conditions), "total=%d conditions=%d", tt.total, tt.conditions)
	}
}
