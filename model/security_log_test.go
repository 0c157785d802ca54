package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityLogModel_AllFields(t *testing.T) {
	db := setupTestDB(t, "security_log", &SecurityLog{})

	entry := SecurityLog{
		Category:  AuditCategoryClinical,
		EventType: "ASSESSMENT_ACCEPTED",
		UserID:    "456",
		IP:        "203.0.113.1",
		UserAgent: "Mozilla/5.0",
		Location:  "Bangkok/Thailand",
		Message:   "Assessment 3 accepted: stage 0 -> 1",
		Details:   []byte(`{"avg_vas":7}`),
	}
	require.NoError(t, db.Create(&entry).Error)

	var found SecurityLog
	require.NoError(t, db.First(&found, entry.ID).Error)
	assert.Equal(t, AuditCategoryClinical, found.Category)
	assert.Equal(t, "ASSESSMENT_ACCEPTED", found.EventType)
	assert.Equal(t, "Bangkok/Thailand", found.Location)
	assert.JSONEq(t, `{"avg_vas":7}`, string(found.Details))
}

func TestSecurityLogModel_FilterByCategory(t *testing.T) {
	db := setupTestDB(t, "security_log_filter", &SecurityLog{})

	require.NoError(t, db.Create(&SecurityLog{Category: AuditCategoryAuth, EventType: "LOGIN_SUCCESS"}).Error)
	require.NoError(t, db.Create(&SecurityLog{Category: AuditCategoryClinical, EventType: "ASSESSMENT_BLOCKED"}).Error)

	var clinical []SecurityLog
	require.NoError(t, db.Where("category = ?", AuditCategoryClinical).Find(&clinical).Error)
	require.Len(t, clinical, 1)
	assert.Equal(t, "ASSESSMENT_BLOCKED", clinical[0].EventType)
}
