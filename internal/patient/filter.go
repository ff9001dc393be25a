// Package patient narrows a patient's health record down to the items that
// concern one body region.
package patient

import (
	"strings"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/taxonomy"
)

// Filter matches record items against a region's keyword tables.
type Filter struct {
	table *taxonomy.Table
}

// NewFilter returns a filter over table; nil selects the embedded tables.
func NewFilter(table *taxonomy.Table) *Filter {
	if table == nil {
		table = taxonomy.Default()
	}
	return &Filter{table: table}
}

// ForRegion returns the region's slice of record, or nil when the record is
// nil or nothing in it matches. Output order follows input order.
func (f *Filter) ForRegion(regionID string, record *domain.PatientRecord) *domain.PatientRegionData {
	if record == nil {
		return nil
	}
	kw := f.table.Lookup(regionID)

	out := &domain.PatientRegionData{RegionID: regionID}

	for _, c := range record.Conditions {
		if taxonomy.AnyContainsAny(kw.Conditions, c.Name, c.Notes) {
			out.Conditions = append(out.Conditions, c)
		}
	}

	for _, s := range record.Symptoms {
		if taxonomy.AnyContainsAny(kw.Locations, s.BodyLocation, s.Location, s.Description) {
			out.Symptoms = append(out.Symptoms, s)
		}
	}

	// Medications follow the conditions already kept for this region.
	for _, m := range record.Medications {
		if prescribedForAny(m.PrescribedFor, out.Conditions) {
			out.Medications = append(out.Medications, m)
		}
	}

	for _, l := range record.Labs {
		if taxonomy.ContainsAny(l.TestName, kw.Labs) {
			out.Labs = append(out.Labs, l)
		}
	}

	for _, img := range record.Imaging {
		if taxonomy.ContainsAny(img.BodyPart, kw.Locations) {
			out.Imaging = append(out.Imaging, img)
		}
	}

	out.TotalItems = len(out.Conditions) + len(out.Symptoms) + len(out.Medications) + len(out.Labs) + len(out.Imaging)
	if out.TotalItems == 0 {
		return nil
	}
	out.Relevance = taxonomy.Relevance(out.TotalItems, len(record.Conditions))
	return out
}

func prescribedForAny(prescribedFor string, conditions []domain.PatientCondition) bool {
	if prescribedFor == "" {
		return false
	}
	lower := strings.ToLower(prescribedFor)
	for _, c := range conditions {
		if c.ID != "" && prescribedFor == c.ID {
			return true
		}
		if c.Name != "" && strings.Contains(lower, strings.ToLower(c.Name)) {
			return true
		}
	}
	return false
}
