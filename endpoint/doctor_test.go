package endpoint_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ariebrainware/rhinitis-care/endpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorDashboardAndDetail(t *testing.T) {
	r, _ := SetupTestServer(t)

	firstEmail := uniqueEmail("p1")
	first := signupPatient(t, r, firstEmail)
	firstToken := loginToken(t, r, firstEmail)
	code, _ := submit(t, r, firstToken, intakeBody("2025-01-01", 5, [4]int{6, 7, 8, 7}, false))
	require.Equal(t, http.StatusOK, code)
	code, _ = submit(t, r, firstToken, intakeBody("2025-01-20", 5, [4]int{5, 5, 5, 5}, true))
	require.Equal(t, http.StatusOK, code)

	second := signupPatient(t, r, uniqueEmail("p2"))

	docEmail := uniqueEmail("doctor")
	signupDoctor(t, r, docEmail)
	docToken := loginToken(t, r, docEmail)

	w, resp := doRequest(t, r, requestParams{method: http.MethodGet, path: "/doctor/patients", token: docToken})
	require.Equal(t, http.StatusOK, w.Code)
	var dash endpoint.Dashboard
	decodeData(t, resp, &dash)
	assert.Equal(t, 2, dash.TotalPatients)
	assert.Equal(t, int64(2), dash.TotalRecords)
	assert.Equal(t, 1, dash.NeedFollowUp)
	stages := map[uint]int{}
	for _, p := range dash.Patients {
		stages[p.ID] = p.CurrentStage
	}
	assert.Equal(t, map[uint]int{first: 2, second: 0}, stages)

	w, resp = doRequest(t, r, requestParams{method: http.MethodGet, path: fmt.Sprintf("/doctor/patients/%d", first), token: docToken})
	require.Equal(t, http.StatusOK, w.Code)
	var detail endpoint.PatientDetail
	decodeData(t, resp, &detail)
	assert.Equal(t, first, detail.ID)
	require.NotNil(t, detail.Profile)
	assert.Equal(t, "HN-001", detail.Profile.HospitalNumber)
	require.NotNil(t, detail.History)
	assert.True(t, detail.History.SeasonRainy)
	require.Len(t, detail.Records, 2)
	assert.Equal(t, 2, detail.Records[0].Sequence)
	require.Len(t, detail.VasSeries, 2)
	assert.Equal(t, endpoint.VasPoint{ReportDate: "2025-01-01", AvgVas: 7.0, Stage: 1}, detail.VasSeries[0])
	assert.Equal(t, endpoint.VasPoint{ReportDate: "2025-01-20", AvgVas: 5.0, Stage: 2}, detail.VasSeries[1])

	w, resp = doRequest(t, r, requestParams{method: http.MethodGet, path: fmt.Sprintf("/doctor/patients/%d", second), token: docToken})
	require.Equal(t, http.StatusOK, w.Code)
	detail = endpoint.PatientDetail{}
	decodeData(t, resp, &detail)
	assert.Empty(t, detail.Records)
	assert.Empty(t, detail.VasSeries)
}

func TestDoctorRoutesRejectPatientsAndUnknownIDs(t *testing.T) {
	r, _ := SetupTestServer(t)
	patientEmail := uniqueEmail("nosy")
	signupPatient(t, r, patientEmail)
	patientToken := loginToken(t, r, patientEmail)

	w, _ := doRequest(t, r, requestParams{method: http.MethodGet, path: "/doctor/patients", token: patientToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	docEmail := uniqueEmail("doctor")
	signupDoctor(t, r, docEmail)
	docToken := loginToken(t, r, docEmail)

	w, _ = doRequest(t, r, requestParams{method: http.MethodGet, path: "/doctor/patients/9999", token: docToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = doRequest(t, r, requestParams{method: http.MethodGet, path: "/doctor/patients/abc", token: docToken})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = doRequest(t, r, requestParams{method: http.MethodGet, path: "/doctor/patients/9999/report", token: docToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDoctorPatientReport(t *testing.T) {
	r, _ := SetupTestServer(t)
	patientEmail := uniqueEmail("rep")
	id := signupPatient(t, r, patientEmail)
	token := loginToken(t, r, patientEmail)
	code, _ := submit(t, r, token, intakeBody("2025-01-01", 5, [4]int{6, 7, 8, 7}, false))
	require.Equal(t, http.StatusOK, code)

	docEmail := uniqueEmail("doctor")
	signupDoctor(t, r, docEmail)
	docToken := loginToken(t, r, docEmail)

	w, _ := doRequest(t, r, requestParams{method: http.MethodGet, path: fmt.Sprintf("/doctor/patients/%d/report", id), token: docToken})
	if w.Code == http.StatusInternalServerError {
		t.Skip("no TTF font available for PDF rendering")
	}
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("followup_%d.pdf", id))
	assert.Equal(t, "%PDF", w.Body.String()[:4])
}
