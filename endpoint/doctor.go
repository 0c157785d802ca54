package endpoint

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariebrainware/rhinitis-care/assessment"
	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/ariebrainware/rhinitis-care/report"
	"github.com/ariebrainware/rhinitis-care/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dashboard is the doctor's overview of every patient.
type Dashboard struct {
	TotalPatients int                        `json:"total_patients"`
	TotalRecords  int64                      `json:"total_records"`
	NeedFollowUp  int                        `json:"need_follow_up"`
	Patients      []model.PatientRecordCount `json:"patients"`
}

// VasPoint is one point of a patient's severity series.
type VasPoint struct {
	ReportDate string  `json:"report_date" example:"2025-01-15"`
	AvgVas     float64 `json:"avg_vas" example:"6.5"`
	Stage      int     `json:"stage" example:"1"`
}

// PatientDetail is everything a doctor sees about one patient.
type PatientDetail struct {
	ID        uint                     `json:"id"`
	Name      string                   `json:"name"`
	Email     string                   `json:"email"`
	Profile   *model.PatientProfile    `json:"profile"`
	History   *model.PatientHistory    `json:"history"`
	Records   []model.AssessmentRecord `json:"records"`
	VasSeries []VasPoint               `json:"vas_series"`
}

// ListPatients godoc
// @Summary      Doctor dashboard
// @Description  Patients with their assessment counts and current stage
// @Tags         Doctor
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=Dashboard}
// @Failure      403 {object} util.APIResponse "Not a doctor"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /doctor/patients [get]
func (h *Handlers) ListPatients(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	rows, err := assessment.NewGormHistoryStore(db).CountByPatient(c.Request.Context())
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patients", Err: err})
		return
	}

	dash := Dashboard{TotalPatients: len(rows), Patients: rows}
	for _, r := range rows {
		dash.TotalRecords += r.RecordCount
		if r.CurrentStage == 1 || r.CurrentStage == 2 {
			dash.NeedFollowUp++
		}
	}
	if dash.Patients == nil {
		dash.Patients = []model.PatientRecordCount{}
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patients retrieved", Data: dash})
}

func loadPatientOrRespond(c *gin.Context, db *gorm.DB, id uint) (model.User, bool) {
	var user model.User
	err := db.Where("id = ? AND role_id = ?", id, model.RolePatient).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Patient not found", Err: err})
		return model.User{}, false
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load patient", Err: err})
		return model.User{}, false
	}
	return user, true
}

func optionalFirst[T any](db *gorm.DB, userID uint) (*T, error) {
	var v T
	err := db.Where("user_id = ?", userID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetPatient godoc
// @Summary      Patient detail
// @Description  Profile, symptom background, assessments newest first and the VAS series oldest first
// @Tags         Doctor
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Patient user ID"
// @Success      200 {object} util.APIResponse{data=PatientDetail}
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /doctor/patients/{id} [get]
func (h *Handlers) GetPatient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := loadPatientOrRespond(c, db, id)
	if !ok {
		return
	}

	profile, err := optionalFirst[model.PatientProfile](db, user.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load profile", Err: err})
		return
	}
	history, err := optionalFirst[model.PatientHistory](db, user.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load symptom background", Err: err})
		return
	}
	records, err := assessment.NewGormHistoryStore(db).ListRecords(c.Request.Context(), user.ID, assessment.OldestFirst)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load assessments", Err: err})
		return
	}

	detail := PatientDetail{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Profile:   profile,
		History:   history,
		Records:   make([]model.AssessmentRecord, len(records)),
		VasSeries: make([]VasPoint, 0, len(records)),
	}
	for i, rec := range records {
		detail.Records[len(records)-1-i] = rec
		detail.VasSeries = append(detail.VasSeries, VasPoint{
			ReportDate: rec.ReportDate.Format(time.DateOnly),
			AvgVas:     rec.AvgVas,
			Stage:      rec.Stage,
		})
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient retrieved", Data: detail})
}

// PatientReport godoc
// @Summary      Patient follow-up report
// @Description  PDF summary of every assessment of the patient
// @Tags         Doctor
// @Produce      application/pdf
// @Security     SessionToken
// @Param        id path int true "Patient user ID"
// @Success      200 {file} binary
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /doctor/patients/{id}/report [get]
func (h *Handlers) PatientReport(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := loadPatientOrRespond(c, db, id)
	if !ok {
		return
	}
	profile, err := optionalFirst[model.PatientProfile](db, user.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load profile", Err: err})
		return
	}
	records, err := assessment.NewGormHistoryStore(db).ListRecords(c.Request.Context(), user.ID, assessment.OldestFirst)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load assessments", Err: err})
		return
	}

	header := report.Patient{Name: user.Name, Email: user.Email}
	if profile != nil {
		header.Phone = profile.Phone
		header.DateOfBirth = profile.DateOfBirth
		header.HospitalNumber = profile.HospitalNumber
	}
	pdf, err := report.BuildFollowUpReport(header, records, h.reportFontPath)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to build report", Err: err})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="followup_%d.pdf"`, user.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
