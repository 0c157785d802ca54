package util

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestLogger captures security log output and restores the logger on cleanup.
func setupTestLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	original := GetSecurityLoggerForTest()
	SetSecurityLoggerForTest(log.New(buf, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix))
	t.Cleanup(func() { SetSecurityLoggerForTest(original) })
	return buf
}

func setupSecurityLogDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:seclog_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.SecurityLog{}))
	SetSecurityLoggerDB(db)
	t.Cleanup(func() { SetSecurityLoggerDB(nil) })
	return db
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"removes newlines", "hello\nworld", "hello world"},
		{"removes carriage returns", "hello\rworld", "hello world"},
		{"removes tabs", "hello\tworld", "hello world"},
		{"truncates long values", strings.Repeat("a", 250), strings.Repeat("a", 200) + "..."},
		{"handles normal strings", "normal string", "normal string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeLogValue(tt.input))
		})
	}
}

func TestLogSecurityEvent_LineFormat(t *testing.T) {
	buf := setupTestLogger(t)

	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Email:     "a@b.c",
		IP:        "203.0.113.7",
		Message:   "bad\npassword",
		Details:   map[string]interface{}{"k": "v"},
	})

	out := buf.String()
	assert.Contains(t, out, "Event=LOGIN_FAILURE")
	assert.Contains(t, out, "Email=a@b.c")
	assert.Contains(t, out, "Message=bad password")
	assert.Contains(t, out, "DetailsCount=1")
	assert.NotContains(t, out, "k=v")
}

func TestLogSecurityEvent_PersistsWithDetails(t *testing.T) {
	setupTestLogger(t)
	db := setupSecurityLogDB(t)

	LogAssessmentAccepted(7, 42, 0, 1, 7.0)

	var entries []model.SecurityLog
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, string(EventAssessmentAccepted), entries[0].EventType)
	assert.Equal(t, "7", entries[0].UserID)
	assert.Equal(t, model.AuditCategoryClinical, entries[0].Category)
	assert.Contains(t, entries[0].Message, "stage 0 -> 1")
	assert.Contains(t, string(entries[0].Details), `"record_id":42`)
}

func TestAssessmentEventHelpers(t *testing.T) {
	buf := setupTestLogger(t)

	LogAssessmentBlocked(3, "2025-01-05", "2025-01-15")
	LogInvariantViolation(3, fmt.Errorf("stage 9 outside 0-3"))

	out := buf.String()
	assert.Contains(t, out, "Event=ASSESSMENT_BLOCKED")
	assert.Contains(t, out, "blocked until 2025-01-15")
	assert.Contains(t, out, "Event=INVARIANT_VIOLATION")
	assert.Contains(t, out, "stage 9 outside 0-3")
}

func TestFormatLocation(t *testing.T) {
	assert.Equal(t, "Bangkok/Thailand", formatLocation("Bangkok", "Thailand"))
	assert.Equal(t, "Thailand", formatLocation("", "Thailand"))
	assert.Equal(t, "Bangkok", formatLocation("Bangkok", ""))
	assert.Equal(t, "", formatLocation("", ""))
}

func TestSecurityEventType_Category(t *testing.T) {
	assert.Equal(t, model.AuditCategoryAuth, EventLoginSuccess.Category())
	assert.Equal(t, model.AuditCategoryAccess, EventRateLimitExceeded.Category())
	assert.Equal(t, model.AuditCategoryClinical, EventInvariantViolation.Category())
}
