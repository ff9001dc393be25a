package domain

import "time"

// PatientRecord is a patient's full health record as supplied by the
// patient-record subsystem. Version changes whenever any item changes.
type PatientRecord struct {
	PatientID   string              `json:"patient_id"`
	Version     int64               `json:"version"`
	Conditions  []PatientCondition  `json:"conditions"`
	Symptoms    []PatientSymptom    `json:"symptoms"`
	Medications []PatientMedication `json:"medications"`
	Labs        []LabResult         `json:"labs"`
	Imaging     []ImagingReport     `json:"imaging"`
}

type PatientCondition struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Status          string   `json:"status,omitempty"` // active, resolved, managed
	Severity        string   `json:"severity,omitempty"`
	AffectedRegions []string `json:"affected_regions,omitempty"`
	Notes           string   `json:"notes,omitempty"`

	// Explanations holds level-specific plain-language text keyed 1..5.
	Explanations       map[Level]string `json:"explanations,omitempty"`
	Pathophysiology    string           `json:"pathophysiology,omitempty"`
	TreatmentRationale string           `json:"treatment_rationale,omitempty"`
}

type PatientSymptom struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	Severity       int      `json:"severity,omitempty"` // 1-10
	Location       string   `json:"location,omitempty"`
	BodyLocation   string   `json:"body_location,omitempty"`
	Frequency      string   `json:"frequency,omitempty"`
	PossibleCauses []string `json:"possible_causes,omitempty"`
}

type PatientMedication struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	GenericName string `json:"generic_name,omitempty"`
	Dosage      string `json:"dosage,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
	// PrescribedFor is either a condition id or free text naming the condition.
	PrescribedFor string   `json:"prescribed_for,omitempty"`
	Mechanism     string   `json:"mechanism,omitempty"`
	SideEffects   []string `json:"side_effects,omitempty"`
	IsActive      bool     `json:"is_active"`
}

type ReferenceRange struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
	Text string   `json:"text,omitempty"`
}

type LabResult struct {
	ID             string         `json:"id"`
	TestName       string         `json:"test_name"`
	Value          string         `json:"value"`
	Unit           string         `json:"unit,omitempty"`
	ReferenceRange ReferenceRange `json:"reference_range"`
	Status         string         `json:"status,omitempty"` // normal, high, low, critical
	TakenAt        time.Time      `json:"taken_at,omitempty"`
}

type ImagingReport struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"` // x-ray, ct, mri, ultrasound
	BodyPart   string    `json:"body_part"`
	Date       time.Time `json:"date,omitempty"`
	Findings   string    `json:"findings,omitempty"`
	Impression string    `json:"impression,omitempty"`
}

// RelevanceLevel summarises how much of a patient's record touches a region.
type RelevanceLevel string

const (
	RelevanceHigh   RelevanceLevel = "high"
	RelevanceMedium RelevanceLevel = "medium"
	RelevanceLow    RelevanceLevel = "low"
	RelevanceNone   RelevanceLevel = "none"
)

// PatientRegionData is the per-(region, patient) slice of a record. It is
// derived on demand and never persisted.
type PatientRegionData struct {
	RegionID    string              `json:"region_id"`
	Conditions  []PatientCondition  `json:"conditions"`
	Symptoms    []PatientSymptom    `json:"symptoms"`
	Medications []PatientMedication `json:"medications"`
	Labs        []LabResult         `json:"labs"`
	Imaging     []ImagingReport     `json:"imaging"`
	TotalItems  int                 `json:"total_items"`
	Relevance   RelevanceLevel      `json:"relevance"`
}
