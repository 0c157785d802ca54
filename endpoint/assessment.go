package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/rhinitis-care/assessment"
	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/ariebrainware/rhinitis-care/protocol"
	"github.com/ariebrainware/rhinitis-care/util"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Handlers carries what the assessment and doctor endpoints share across
// requests. The DB still comes from the request context.
type Handlers struct {
	locker         assessment.Locker
	reportFontPath string
}

func NewHandlers(locker assessment.Locker, reportFontPath string) *Handlers {
	if locker == nil {
		locker = assessment.NewLocalLocker()
	}
	return &Handlers{locker: locker, reportFontPath: reportFontPath}
}

func (h *Handlers) serviceOrRespond(c *gin.Context) (*assessment.Service, bool) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return nil, false
	}
	svc, err := assessment.NewService(assessment.NewGormHistoryStore(db), h.locker, nil)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Recommendation catalog unavailable", Err: err})
		return nil, false
	}
	return svc, true
}

// AssessmentRequest is one symptom intake. Ratings are 0-10, frequency is
// symptomatic days per week.
type AssessmentRequest struct {
	FrequencyPerWeek *int   `json:"frequency_per_week" binding:"required" example:"5"`
	SneezeOften      *int   `json:"sneeze_often" binding:"required" example:"6"`
	ItchyNose        *int   `json:"itchy_nose" binding:"required" example:"7"`
	RunnyNose        *int   `json:"runny_nose" binding:"required" example:"8"`
	StuffyNose       *int   `json:"stuffy_nose" binding:"required" example:"7"`
	PriorUsedSteroid *bool  `json:"prior_used_steroid" example:"false"`
	ReportDate       string `json:"report_date" binding:"required" example:"2025-01-15"`
}

func (r AssessmentRequest) toInput() (protocol.AssessmentInput, error) {
	date, err := parseReportDate(r.ReportDate)
	if err != nil {
		return protocol.AssessmentInput{}, err
	}
	in := protocol.AssessmentInput{
		FrequencyPerWeek: *r.FrequencyPerWeek,
		Subscores:        [protocol.SubscoreCount]int{*r.SneezeOften, *r.ItchyNose, *r.RunnyNose, *r.StuffyNose},
		ReportDate:       date,
	}
	if r.PriorUsedSteroid != nil {
		in.PriorUsedSteroid = *r.PriorUsedSteroid
	}
	return in, nil
}

// SubmitAssessment godoc
// @Summary      Submit a symptom assessment
// @Description  Scores the intake, recommends treatment for the current stage and records the next stage. Intakes closer than 14 days to the previous one are refused.
// @Tags         Assessment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body AssessmentRequest true "Symptom intake"
// @Success      200 {object} util.APIResponse{data=assessment.Submission} "Assessment recorded"
// @Failure      400 {object} util.APIResponse "Invalid intake"
// @Failure      409 {object} util.APIResponse "Too early for the next assessment"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /assessment [post]
func (h *Handlers) SubmitAssessment(c *gin.Context) {
	patientID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}

	var req AssessmentRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid request payload", Err: err})
		return
	}
	input, err := req.toInput()
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid report date", Err: err})
		return
	}
	var raw []byte
	if body, ok := c.Get(gin.BodyBytesKey); ok {
		raw, _ = body.([]byte)
	}

	svc, ok := h.serviceOrRespond(c)
	if !ok {
		return
	}

	sub, err := svc.SubmitAssessment(c.Request.Context(), patientID, input, raw)
	var verr *protocol.ValidationError
	switch {
	case errors.As(err, &verr):
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid assessment", Err: err, Data: map[string]interface{}{"fields": verr.Fields}})
		return
	case errors.Is(err, assessment.ErrConcurrentSubmission), errors.Is(err, assessment.ErrLockTimeout):
		util.CallConflict(c, util.APIErrorParams{Msg: "Another assessment is being processed, please retry", Err: err})
		return
	case err != nil:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to process assessment", Err: err})
		return
	}

	if sub.Status == assessment.StatusBlocked {
		util.CallConflict(c, util.APIErrorParams{
			Msg:  fmt.Sprintf("Next assessment is allowed from %s", sub.NextAllowedDate.Format(time.DateOnly)),
			Err:  fmt.Errorf("minimum interval of %d days not reached", protocol.MinimumIntervalDays),
			Data: map[string]interface{}{"status": sub.Status, "next_allowed_date": sub.NextAllowedDate.Format(time.DateOnly)},
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Assessment recorded", Data: sub})
}

// AssessmentHistory is a patient's own record list.
type AssessmentHistory struct {
	CurrentStage protocol.Stage           `json:"current_stage"`
	Records      []model.AssessmentRecord `json:"records"`
}

// ListAssessments godoc
// @Summary      List own assessments
// @Description  Returns the caller's assessments, newest first
// @Tags         Assessment
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=AssessmentHistory}
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /assessment [get]
func (h *Handlers) ListAssessments(c *gin.Context) {
	patientID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}
	svc, ok := h.serviceOrRespond(c)
	if !ok {
		return
	}

	records, err := svc.History(c.Request.Context(), patientID, assessment.NewestFirst)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load assessments", Err: err})
		return
	}
	stage := protocol.StageBaseline
	if len(records) > 0 {
		stage, err = svc.CurrentStage(c.Request.Context(), patientID)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to derive current stage", Err: err})
			return
		}
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Assessments retrieved",
		Data: AssessmentHistory{CurrentStage: stage, Records: records},
	})
}

// AssessmentEligibility godoc
// @Summary      Check assessment eligibility
// @Description  Whether an assessment dated `date` (default today) would be accepted
// @Tags         Assessment
// @Produce      json
// @Security     SessionToken
// @Param        date query string false "Report date, YYYY-MM-DD"
// @Success      200 {object} util.APIResponse{data=assessment.EligibilityView}
// @Failure      400 {object} util.APIResponse "Invalid date"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /assessment/eligibility [get]
func (h *Handlers) AssessmentEligibility(c *gin.Context) {
	patientID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}

	date := protocol.ReportDay(time.Now())
	if q := c.Query("date"); q != "" {
		d, err := parseReportDate(q)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid date", Err: err})
			return
		}
		date = d
	}

	svc, ok := h.serviceOrRespond(c)
	if !ok {
		return
	}
	view, err := svc.Eligibility(c.Request.Context(), patientID, date)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check eligibility", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Eligibility checked", Data: view})
}
