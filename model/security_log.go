package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AuditCategoryAuth     = "auth"
	AuditCategoryClinical = "clinical"
	AuditCategoryAccess   = "access"
)

// SecurityLog is a persisted audit event. Authentication events and
// clinical decision events share the table and are told apart by Category.
type SecurityLog struct {
	gorm.Model
	Category  string `json:"category" gorm:"column:category;type:varchar(16);index"`
	EventType string `json:"event_type" gorm:"column:event_type;type:varchar(64);index"`
	UserID    string `json:"user_id" gorm:"column:user_id;type:varchar(64);index"`
	Email     string `json:"email" gorm:"column:email;type:varchar(191)"`
	IP        string `json:"ip" gorm:"column:ip;type:varchar(45)"`
	// City/Country when the GeoIP lookup succeeds.
	Location  string         `json:"location" gorm:"column:location;type:varchar(255)"`
	UserAgent string         `json:"user_agent" gorm:"column:user_agent;type:varchar(512)"`
	Message   string         `json:"message" gorm:"column:message;type:text"`
	Details   datatypes.JSON `json:"details" gorm:"column:details;type:json"`
}
