package domain

import "time"

// StructureType is the coarse kind of an anatomical structure.
type StructureType string

const (
	StructureOrgan  StructureType = "organ"
	StructureMuscle StructureType = "muscle"
	StructureBone   StructureType = "bone"
	StructureNerve  StructureType = "nerve"
	StructureVessel StructureType = "vessel"
	StructureTissue StructureType = "tissue"
	StructureOther  StructureType = "other"
)

// AnatomicalStructure is one node of a region's single-parent structure tree.
type AnatomicalStructure struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Type        StructureType `json:"type"`
	ParentID    string        `json:"parent_id,omitempty"`
	Children    []string      `json:"children,omitempty"`
	ExternalRef string        `json:"external_ref,omitempty"`
	ModelPath   string        `json:"model_path,omitempty"`
}

// AnatomicalLayer groups structures for layered display. Order 0 is the
// most superficial.
type AnatomicalLayer struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Order        int      `json:"order"`
	StructureIDs []string `json:"structure_ids"`
	Color        string   `json:"color,omitempty"`
	Opacity      float64  `json:"opacity,omitempty"`
	Visible      bool     `json:"visible"`
}

// Region is the identity part of a region view.
type Region struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	BodySystems []string `json:"body_systems"`
}

// RegionalEncyclopediaData is the merged view for one region. A new value
// is built on every fetch and never mutated afterwards.
type RegionalEncyclopediaData struct {
	RequestID         string                `json:"request_id"`
	Region            Region                `json:"region"`
	Structures        []AnatomicalStructure `json:"structures"`
	Layers            []AnatomicalLayer     `json:"layers"`
	Histology         HistologyContent      `json:"histology"`
	Pathology         PathologyContent      `json:"pathology"`
	Physiology        PhysiologyContent     `json:"physiology"`
	Models            []ModelReference      `json:"models"`
	RelatedStructures []string              `json:"related_structures"`
	ClinicalNotes     []string              `json:"clinical_notes"`
	AnatomyRegion     *AnatomyRegion        `json:"anatomy_region,omitempty"`
	Specialties       []MedicalSpecialty    `json:"specialties,omitempty"`
	FetchedAt         time.Time             `json:"fetched_at"`
}

// Content reassembles the merged bundle as RegionContent for projections.
func (v *RegionalEncyclopediaData) Content() *RegionContent {
	return &RegionContent{
		ID:                v.Region.ID,
		Name:              v.Region.Name,
		Description:       v.Region.Description,
		BodySystems:       v.Region.BodySystems,
		Histology:         v.Histology,
		Pathology:         v.Pathology,
		Physiology:        v.Physiology,
		Models:            v.Models,
		RelatedStructures: v.RelatedStructures,
		ClinicalNotes:     v.ClinicalNotes,
	}
}
