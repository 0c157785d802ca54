package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/ariebrainware/rhinitis-care/protocol"
	"github.com/ariebrainware/rhinitis-care/util"
	"gorm.io/datatypes"
)

// Status is the outcome of a submission.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusBlocked  Status = "blocked"
)

// Submission is the result of SubmitAssessment. Record and Decision are set
// only when accepted. NextAllowedDate is the earliest date of the next
// intake in both cases.
type Submission struct {
	Status          Status                  `json:"status"`
	Record          *model.AssessmentRecord `json:"record,omitempty"`
	Decision        *protocol.Decision      `json:"decision,omitempty"`
	NextAllowedDate *time.Time              `json:"next_allowed_date,omitempty"`
}

// EligibilityView is the gate verdict for a date plus the patient's
// derived state.
type EligibilityView struct {
	protocol.Eligibility
	CurrentStage   protocol.Stage `json:"current_stage"`
	NeedFollowUp   bool           `json:"need_follow_up"`
	LastReportDate *time.Time     `json:"last_report_date,omitempty"`
}

// Service runs intakes against the history log.
type Service struct {
	store    HistoryStore
	locker   Locker
	catalog  *protocol.Catalog
	language protocol.Language
}

// NewService wires a service. A nil locker means a LocalLocker; a nil
// catalog means the embedded one.
func NewService(store HistoryStore, locker Locker, catalog *protocol.Catalog) (*Service, error) {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if catalog == nil {
		c, err := protocol.DefaultCatalog()
		if err != nil {
			return nil, err
		}
		catalog = c
	}
	return &Service{store: store, locker: locker, catalog: catalog, language: protocol.LangThai}, nil
}

// SubmitAssessment validates, gates, scores and records one intake. Invalid
// input returns a *protocol.ValidationError and a gate refusal returns a
// Blocked submission; neither creates a record.
func (s *Service) SubmitAssessment(ctx context.Context, patientID uint, input protocol.AssessmentInput, rawAnswers []byte) (Submission, error) {
	if err := protocol.Validate(input); err != nil {
		return Submission{}, err
	}
	input.ReportDate = protocol.ReportDay(input.ReportDate)

	unlock, err := s.locker.Lock(ctx, patientID)
	if err != nil {
		return Submission{}, err
	}
	defer unlock()

	last, err := s.store.LastRecord(ctx, patientID)
	if err != nil {
		return Submission{}, err
	}

	prior, err := stageOf(patientID, last)
	if err != nil {
		return Submission{}, err
	}
	sequence := 1
	var lastDate *time.Time
	if last != nil {
		sequence = last.Sequence + 1
		lastDate = &last.ReportDate
	}

	verdict := protocol.CheckEligibility(lastDate, input.ReportDate)
	if !verdict.Allowed {
		util.LogAssessmentBlocked(patientID, input.ReportDate.Format(time.DateOnly), verdict.NextAllowedDate.Format(time.DateOnly))
		return Submission{Status: StatusBlocked, NextAllowedDate: verdict.NextAllowedDate}, nil
	}

	score := protocol.ScoreInput(input)
	decision, err := protocol.Decide(prior, score, input.PriorUsedSteroid)
	if err != nil {
		if errors.Is(err, protocol.ErrInvariantViolation) {
			util.LogInvariantViolation(patientID, err)
		}
		return Submission{}, err
	}

	text, err := s.catalog.Render(decision.Recommendation, s.language)
	if err != nil {
		if errors.Is(err, protocol.ErrInvariantViolation) {
			util.LogInvariantViolation(patientID, err)
		}
		return Submission{}, err
	}
	planJSON, err := json.Marshal(decision.Recommendation)
	if err != nil {
		return Submission{}, fmt.Errorf("encode recommendation: %w", err)
	}

	rec := &model.AssessmentRecord{
		PatientID:          patientID,
		Sequence:           sequence,
		AvgVas:             score.AvgVas,
		Pattern:            string(score.Pattern),
		Stage:              int(decision.NextStage),
		PriorStage:         int(prior),
		PriorUsedSteroid:   input.PriorUsedSteroid,
		Recommendation:     datatypes.JSON(planJSON),
		RecommendationText: text,
		ReportDate:         input.ReportDate,
		RawAnswers:         rawAnswersJSON(rawAnswers),
	}
	id, err := s.store.AppendRecord(ctx, rec)
	if err != nil {
		return Submission{}, err
	}

	util.LogAssessmentAccepted(patientID, id, int(prior), int(decision.NextStage), score.AvgVas)

	next := protocol.NextAllowedDate(input.ReportDate)
	return Submission{Status: StatusAccepted, Record: rec, Decision: &decision, NextAllowedDate: &next}, nil
}

func rawAnswersJSON(raw []byte) datatypes.JSON {
	if len(raw) == 0 || !json.Valid(raw) {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

// stageOf derives the current stage from the latest record. An out-of-range
// stored stage is an invariant violation and is audited.
func stageOf(patientID uint, last *model.AssessmentRecord) (protocol.Stage, error) {
	if last == nil {
		return protocol.StageBaseline, nil
	}
	stage := protocol.Stage(last.Stage)
	if !stage.Valid() {
		err := fmt.Errorf("%w: stored stage %d for patient %d", protocol.ErrInvariantViolation, last.Stage, patientID)
		util.LogInvariantViolation(patientID, err)
		return protocol.StageBaseline, err
	}
	return stage, nil
}

// CurrentStage is the Stage of the patient's latest record, 0 without one.
func (s *Service) CurrentStage(ctx context.Context, patientID uint) (protocol.Stage, error) {
	last, err := s.store.LastRecord(ctx, patientID)
	if err != nil {
		return protocol.StageBaseline, err
	}
	return stageOf(patientID, last)
}

// Eligibility reports whether an intake dated date would pass the gate.
func (s *Service) Eligibility(ctx context.Context, patientID uint, date time.Time) (EligibilityView, error) {
	last, err := s.store.LastRecord(ctx, patientID)
	if err != nil {
		return EligibilityView{}, err
	}
	stage, err := stageOf(patientID, last)
	if err != nil {
		return EligibilityView{}, err
	}
	view := EligibilityView{CurrentStage: stage}
	var lastDate *time.Time
	if last != nil {
		lastDate = &last.ReportDate
		view.LastReportDate = lastDate
	}
	view.Eligibility = protocol.CheckEligibility(lastDate, date)
	view.NeedFollowUp = view.CurrentStage == protocol.StageStepUp || view.CurrentStage == protocol.StageSpecialist
	return view, nil
}

// History lists the patient's records in the given report-date order.
func (s *Service) History(ctx context.Context, patientID uint, order Order) ([]model.AssessmentRecord, error) {
	return s.store.ListRecords(ctx, patientID, order)
}
