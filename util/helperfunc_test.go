package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"trim leading whitespace", "  John Doe", "John Doe"},
		{"trim trailing whitespace", "John Doe  ", "John Doe"},
		{"collapse multiple internal spaces", "John   Doe", "John Doe"},
		{"tabs and newlines", "John\t\nDoe", "John Doe"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func runResponder(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestResponders(t *testing.T) {
	errParams := APIErrorParams{Msg: "msg", Err: fmt.Errorf("boom")}
	cases := []struct {
		name   string
		fn     func(c *gin.Context)
		status int
	}{
		{"not found", func(c *gin.Context) { CallErrorNotFound(c, errParams) }, http.StatusNotFound},
		{"user error", func(c *gin.Context) { CallUserError(c, errParams) }, http.StatusBadRequest},
		{"conflict", func(c *gin.Context) { CallConflict(c, errParams) }, http.StatusConflict},
		{"server error", func(c *gin.Context) { CallServerError(c, errParams) }, http.StatusInternalServerError},
		{"unauthorized", func(c *gin.Context) { CallUserNotAuthorized(c, errParams) }, http.StatusUnauthorized},
		{"forbidden", func(c *gin.Context) { CallForbidden(c, errParams) }, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := runResponder(t, tc.fn)
			assert.Equal(t, tc.status, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, "boom", resp.Error)
			assert.Equal(t, "msg", resp.Msg)
		})
	}
}

func TestCallConflict_CarriesData(t *testing.T) {
	_, resp := runResponder(t, func(c *gin.Context) {
		CallConflict(c, APIErrorParams{Msg: "blocked", Err: fmt.Errorf("too early"), Data: map[string]string{"next_allowed_date": "2025-01-15"}})
	})
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2025-01-15", data["next_allowed_date"])
}

func TestCallSuccessOK(t *testing.T) {
	w, resp := runResponder(t, func(c *gin.Context) {
		CallSuccessOK(c, APISuccessParams{Msg: "ok", Data: 1})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "", resp.Error)
	assert.EqualValues(t, 1, resp.Data)
}
