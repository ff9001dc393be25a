// Package layers derives display layers for a region's tissues and infers
// which body layers a condition touches.
package layers

import (
	"fmt"
	"strings"

	"github.com/anatomy-twin-server/internal/domain"
)

// TissueStructureID is the structure id assigned to the i-th tissue type of
// a region. The enrichment engine uses the same ids for its child structures.
func TissueStructureID(regionID string, index int) string {
	return fmt.Sprintf("%s-tissue-%d", regionID, index)
}

type layerStyle struct {
	name    string
	order   int
	color   string
	opacity float64
}

var tissuePalette = map[domain.TissueCategory]layerStyle{
	domain.TissueEpithelial: {name: "Epithelial Tissue", order: 0, color: "#f0d4b8", opacity: 0.9},
	domain.TissueConnective: {name: "Connective Tissue", order: 1, color: "#d8b498", opacity: 0.8},
	domain.TissueMuscle:     {name: "Muscle Tissue", order: 2, color: "#c0504d", opacity: 0.7},
	domain.TissueNervous:    {name: "Nervous Tissue", order: 3, color: "#f2d16b", opacity: 0.6},
}

const (
	unknownLayerColor   = "#b0b0b0"
	unknownLayerOpacity = 0.5
)

// DeriveLayers groups tissues by category. Known categories are ordered
// epithelial, connective, muscle, nervous; unknown categories follow in
// order of first appearance.
func DeriveLayers(tissues []domain.TissueTypeInfo, regionID string) []domain.AnatomicalLayer {
	if len(tissues) == 0 {
		return []domain.AnatomicalLayer{}
	}

	groups := make(map[domain.TissueCategory][]string)
	var unknown []domain.TissueCategory
	for i, t := range tissues {
		category := domain.TissueCategory(strings.ToLower(string(t.Category)))
		if _, known := tissuePalette[category]; !known {
			if _, seen := groups[category]; !seen {
				unknown = append(unknown, category)
			}
		}
		groups[category] = append(groups[category], TissueStructureID(regionID, i))
	}

	var out []domain.AnatomicalLayer
	for _, category := range []domain.TissueCategory{
		domain.TissueEpithelial, domain.TissueConnective, domain.TissueMuscle, domain.TissueNervous,
	} {
		ids, ok := groups[category]
		if !ok {
			continue
		}
		style := tissuePalette[category]
		out = append(out, domain.AnatomicalLayer{
			ID:           fmt.Sprintf("%s-layer-%s", regionID, category),
			Name:         style.name,
			Order:        style.order,
			StructureIDs: ids,
			Color:        style.color,
			Opacity:      style.opacity,
			Visible:      true,
		})
	}

	nextOrder := len(tissuePalette)
	for _, category := range unknown {
		out = append(out, domain.AnatomicalLayer{
			ID:           fmt.Sprintf("%s-layer-%s", regionID, layerSlug(category)),
			Name:         unknownLayerName(category),
			Order:        nextOrder,
			StructureIDs: groups[category],
			Color:        unknownLayerColor,
			Opacity:      unknownLayerOpacity,
			Visible:      true,
		})
		nextOrder++
	}
	return out
}

func layerSlug(category domain.TissueCategory) string {
	if category == "" {
		return "other"
	}
	return strings.ReplaceAll(string(category), " ", "-")
}

func unknownLayerName(category domain.TissueCategory) string {
	if category == "" {
		return "Other Tissue"
	}
	s := string(category)
	return strings.ToUpper(s[:1]) + s[1:] + " Tissue"
}
