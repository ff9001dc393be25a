package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/domain"
)

// Repository persists patient records in PostgreSQL. Each item list is a
// JSONB column; the row version increments on every save.
type Repository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewRepository creates a patient record repository
func NewRepository(db *pgxpool.Pool, logger *logrus.Logger) *Repository {
	return &Repository{
		db:  db,
		log: logger,
	}
}

// Save upserts the record and writes the new version back into it
func (r *Repository) Save(ctx context.Context, record *domain.PatientRecord) error {
	if record == nil || record.PatientID == "" {
		return domain.NewValidationError("patient_id", "patient id is required", nil)
	}

	query := `
		INSERT INTO patient_records (
			patient_id, conditions, symptoms, medications, labs, imaging
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id) DO UPDATE SET
			conditions = EXCLUDED.conditions,
			symptoms = EXCLUDED.symptoms,
			medications = EXCLUDED.medications,
			labs = EXCLUDED.labs,
			imaging = EXCLUDED.imaging,
			version = patient_records.version + 1,
			updated_at = NOW()
		RETURNING version`

	err := r.db.QueryRow(ctx, query,
		record.PatientID,
		nonNil(record.Conditions),
		nonNil(record.Symptoms),
		nonNil(record.Medications),
		nonNil(record.Labs),
		nonNil(record.Imaging),
	).Scan(&record.Version)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": record.PatientID,
			"error":      err,
		}).Error("Failed to save patient record")
		return fmt.Errorf("saving patient record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id": record.PatientID,
		"version":    record.Version,
	}).Debug("Patient record saved")
	return nil
}

// Get loads a record by patient id
func (r *Repository) Get(ctx context.Context, patientID string) (*domain.PatientRecord, error) {
	query := `
		SELECT patient_id, version, conditions, symptoms, medications, labs, imaging
		FROM patient_records
		WHERE patient_id = $1`

	var rec domain.PatientRecord
	err := r.db.QueryRow(ctx, query, patientID).Scan(
		&rec.PatientID,
		&rec.Version,
		&rec.Conditions,
		&rec.Symptoms,
		&rec.Medications,
		&rec.Labs,
		&rec.Imaging,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("patient record %q not found: %w", patientID, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to load patient record")
		return nil, fmt.Errorf("loading patient record: %w", err)
	}
	return &rec, nil
}

// Delete removes a record
func (r *Repository) Delete(ctx context.Context, patientID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM patient_records WHERE patient_id = $1`, patientID)
	if err != nil {
		return fmt.Errorf("deleting patient record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient record %q not found: %w", patientID, domain.ErrNotFound)
	}
	return nil
}

// nonNil keeps JSONB columns as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
