package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrImmutableRecord is returned by the hooks that keep assessment records
// append-only.
var ErrImmutableRecord = errors.New("assessment records are immutable")

// AssessmentRecord is one accepted symptom intake. Stage is the stage after
// this intake's transition, so the patient's current stage is the Stage of
// their highest-Sequence record.
// @Description Accepted symptom assessment
type AssessmentRecord struct {
	ID        uint   `json:"id" gorm:"primaryKey" example:"1"`
	UID       string `json:"uid" gorm:"type:varchar(36);uniqueIndex;not null" example:"0b6f7c1e-8d0a-4a5e-9d43-55b2a7e0c3f1"`
	PatientID uint   `json:"patient_id" gorm:"not null;uniqueIndex:idx_assessment_patient_seq,priority:1" example:"7"`
	// Sequence is 1 for a patient's first record and increments by one; the
	// unique index forbids two successors of the same record.
	Sequence           int            `json:"sequence" gorm:"not null;uniqueIndex:idx_assessment_patient_seq,priority:2" example:"3"`
	AvgVas             float64        `json:"avg_vas" gorm:"not null" example:"7.0"`
	Pattern            string         `json:"pattern" gorm:"type:varchar(16);not null" example:"persistent"`
	Stage              int            `json:"stage" gorm:"not null" example:"1"`
	PriorStage         int            `json:"prior_stage" gorm:"not null" example:"0"`
	PriorUsedSteroid   bool           `json:"prior_used_steroid"`
	Recommendation     datatypes.JSON `json:"recommendation" gorm:"type:json"`
	RecommendationText string         `json:"recommendation_text" gorm:"type:text"`
	ReportDate         time.Time      `json:"report_date" gorm:"not null;index"`
	RawAnswers         datatypes.JSON `json:"raw_answers" gorm:"type:json"`
	CreatedAt          time.Time      `json:"created_at"`
}

// BeforeUpdate rejects every update.
func (r *AssessmentRecord) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableRecord
}

// BeforeDelete rejects every delete.
func (r *AssessmentRecord) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableRecord
}

// PatientRecordCount is one row of the doctor dashboard.
type PatientRecordCount struct {
	ID          uint   `json:"id" gorm:"column:id"`
	FullName    string `json:"full_name" gorm:"column:full_name"`
	Phone       string `json:"phone" gorm:"column:phone"`
	Email       string `json:"email" gorm:"column:email"`
	RecordCount int64  `json:"record_count" gorm:"column:record_count"`
	// CurrentStage is the Stage of the patient's latest record, 0 without one.
	CurrentStage int `json:"current_stage" gorm:"column:current_stage"`
}
