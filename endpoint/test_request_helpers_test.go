package endpoint_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariebrainware/rhinitis-care/config"
	"github.com/ariebrainware/rhinitis-care/endpoint"
	"github.com/ariebrainware/rhinitis-care/middleware"
	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiResp struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// requestParams groups HTTP request parameters to reduce function arguments
type requestParams struct {
	method string
	path   string
	body   interface{}
	token  string
}

// SetupTestServer connects a fresh in-memory DB, migrates and seeds it and
// returns the full router.
func SetupTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := config.ConnectMySQL()
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))

	r := gin.New()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))
	endpoint.RegisterRoutes(r, endpoint.NewHandlers(nil, "/nonexistent/font.ttf"), "rhinitis-care")
	return r, db
}

func doRequest(t *testing.T, r http.Handler, params requestParams) (*httptest.ResponseRecorder, apiResp) {
	t.Helper()
	var body []byte
	switch v := params.body.(type) {
	case nil:
	case string:
		body = []byte(v)
	default:
		var err error
		body, err = json.Marshal(v)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(params.method, params.path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if params.token != "" {
		req.Header.Set("session-token", params.token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResp
	if w.Header().Get("Content-Type") != "application/pdf" && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func decodeData(t *testing.T, resp apiResp, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

func signupPatient(t *testing.T, r http.Handler, email string) uint {
	t.Helper()
	w, resp := doRequest(t, r, requestParams{method: http.MethodPost, path: "/signup", body: map[string]interface{}{
		"name":     "Malee  Jaidee",
		"email":    email,
		"password": "password123",
		"profile": map[string]interface{}{
			"phone":           "0811111111",
			"dob":             "1990-05-01",
			"gender":          "female",
			"hospital_number": "HN-001",
		},
		"history": map[string]interface{}{
			"symptom_worse_dust": true,
			"season_rainy":       true,
			"pet":                "cat",
		},
	}})
	require.Equal(t, http.StatusOK, w.Code, resp.Msg)
	var data struct {
		UserID uint `json:"user_id"`
	}
	decodeData(t, resp, &data)
	return data.UserID
}

func signupDoctor(t *testing.T, r http.Handler, email string) {
	t.Helper()
	w, resp := doRequest(t, r, requestParams{method: http.MethodPost, path: "/signup", body: map[string]interface{}{
		"name": "Dr. Somchai", "email": email, "password": "password123", "role": "doctor", "doctor_code": testDoctorCode,
	}})
	require.Equal(t, http.StatusOK, w.Code, resp.Msg)
}

func login(t *testing.T, r http.Handler, email, password string) (*httptest.ResponseRecorder, apiResp) {
	t.Helper()
	// httptest requests share one client address
	require.NoError(t, middleware.ResetRateLimit(context.Background(), "192.0.2.1", "/login"))
	return doRequest(t, r, requestParams{method: http.MethodPost, path: "/login", body: map[string]string{"email": email, "password": password}})
}

func loginToken(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	w, resp := login(t, r, email, "password123")
	require.Equal(t, http.StatusOK, w.Code, resp.Msg)
	var data endpoint.LoginResponse
	decodeData(t, resp, &data)
	require.NotEmpty(t, data.Token)
	return data.Token
}

func intakeBody(date string, freq int, scores [4]int, steroid bool) map[string]interface{} {
	return map[string]interface{}{
		"frequency_per_week": freq,
		"sneeze_often":       scores[0],
		"itchy_nose":         scores[1],
		"runny_nose":         scores[2],
		"stuffy_nose":        scores[3],
		"prior_used_steroid": steroid,
		"report_date":        date,
	}
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@example.com", prefix, nextID())
}

var idCounter int

func nextID() int {
	idCounter++
	return idCounter
}
