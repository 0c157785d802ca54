package model

import "gorm.io/gorm"

// Migrate creates or updates every table and seeds the fixed roles.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Role{},
		&User{},
		&Session{},
		&PatientProfile{},
		&PatientHistory{},
		&PatientCode{},
		&AssessmentRecord{},
		&SecurityLog{},
	); err != nil {
		return err
	}
	return SeedRoles(db)
}
