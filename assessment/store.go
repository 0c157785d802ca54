package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrConcurrentSubmission means another intake for the same patient was
// appended after this one read its snapshot.
var ErrConcurrentSubmission = errors.New("concurrent submission for patient")

// Order selects the report-date ordering of ListRecords.
type Order int

const (
	OldestFirst Order = iota
	NewestFirst
)

// HistoryStore is the append-only assessment log.
type HistoryStore interface {
	// LastRecord returns the patient's highest-sequence record, or nil.
	LastRecord(ctx context.Context, patientID uint) (*model.AssessmentRecord, error)
	// AppendRecord stores rec and returns its ID. A sequence that already
	// exists for the patient yields ErrConcurrentSubmission.
	AppendRecord(ctx context.Context, rec *model.AssessmentRecord) (uint, error)
	ListRecords(ctx context.Context, patientID uint, order Order) ([]model.AssessmentRecord, error)
	CountByPatient(ctx context.Context) ([]model.PatientRecordCount, error)
}

// GormHistoryStore implements HistoryStore on gorm.
type GormHistoryStore struct {
	db *gorm.DB
}

func NewGormHistoryStore(db *gorm.DB) *GormHistoryStore {
	return &GormHistoryStore{db: db}
}

func (s *GormHistoryStore) LastRecord(ctx context.Context, patientID uint) (*model.AssessmentRecord, error) {
	var rec model.AssessmentRecord
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("sequence DESC").
		Limit(1).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last record of patient %d: %w", patientID, err)
	}
	return &rec, nil
}

func (s *GormHistoryStore) AppendRecord(ctx context.Context, rec *model.AssessmentRecord) (uint, error) {
	if rec.ID != 0 {
		return 0, fmt.Errorf("append record: already stored as %d", rec.ID)
	}
	if rec.UID == "" {
		rec.UID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return 0, fmt.Errorf("%w %d at sequence %d", ErrConcurrentSubmission, rec.PatientID, rec.Sequence)
	}
	if err != nil {
		return 0, fmt.Errorf("append record for patient %d: %w", rec.PatientID, err)
	}
	return rec.ID, nil
}

func (s *GormHistoryStore) ListRecords(ctx context.Context, patientID uint, order Order) ([]model.AssessmentRecord, error) {
	orderBy := "report_date ASC, sequence ASC"
	if order == NewestFirst {
		orderBy = "report_date DESC, sequence DESC"
	}
	var recs []model.AssessmentRecord
	if err := s.db.WithContext(ctx).Where("patient_id = ?", patientID).Order(orderBy).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list records of patient %d: %w", patientID, err)
	}
	return recs, nil
}

// CountByPatient lists every patient account with its record count and
// current stage, most recently registered first.
func (s *GormHistoryStore) CountByPatient(ctx context.Context) ([]model.PatientRecordCount, error) {
	var rows []model.PatientRecordCount
	err := s.db.WithContext(ctx).
		Table("users").
		Select(`users.id AS id, users.name AS full_name,
			COALESCE(patient_profiles.phone, '') AS phone, users.email AS email,
			COUNT(assessment_records.id) AS record_count,
			COALESCE((SELECT latest.stage FROM assessment_records latest
				WHERE latest.patient_id = users.id
				ORDER BY latest.sequence DESC LIMIT 1), 0) AS current_stage`).
		Joins("LEFT JOIN patient_profiles ON patient_profiles.user_id = users.id AND patient_profiles.deleted_at IS NULL").
		Joins("LEFT JOIN assessment_records ON assessment_records.patient_id = users.id").
		Where("users.role_id = ? AND users.deleted_at IS NULL", model.RolePatient).
		Group("users.id, users.name, patient_profiles.phone, users.email").
		Order("users.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count records by patient: %w", err)
	}
	return rows, nil
}
