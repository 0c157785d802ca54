package model

import "gorm.io/gorm"

// PatientProfile holds contact and registration details of a patient user.
// @Description Patient profile information
type PatientProfile struct {
	gorm.Model
	UserID            uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	Email             string `json:"email" gorm:"type:varchar(191)" example:"john@example.com"`
	Phone             string `json:"phone" gorm:"type:varchar(64)" example:"081234567890"`
	Address           string `json:"address" example:"123 Main St"`
	DateOfBirth       string `json:"dob" gorm:"column:dob;type:varchar(10)" example:"1990-05-01"`
	Gender            string `json:"gender" gorm:"type:varchar(16)" example:"female"`
	EmergencyContact  string `json:"emergency_contact" example:"Jane Doe 081111111"`
	InsuranceProvider string `json:"insurance_provider" example:"Social Security"`
	HospitalNumber    string `json:"hospital_number" gorm:"type:varchar(64);index" example:"HN-000123"`
}

// PatientHistory is the symptom background collected at signup: triggers,
// seasonality and living environment.
// @Description Patient symptom background
type PatientHistory struct {
	gorm.Model
	UserID uint `json:"user_id" gorm:"uniqueIndex;not null"`

	SymptomWorseMorning  bool   `json:"symptom_worse_morning"`
	SymptomWorseExercise bool   `json:"symptom_worse_exercise"`
	SymptomWorseDust     bool   `json:"symptom_worse_dust"`
	SymptomWorseOther    string `json:"symptom_worse_other"`

	SeasonSummer  bool `json:"season_summer"`
	SeasonRainy   bool `json:"season_rainy"`
	SeasonWinter  bool `json:"season_winter"`
	SeasonAllYear bool `json:"season_all_year"`
	SeasonChange  bool `json:"season_change"`

	DurationPerYear string `json:"duration_per_year" example:"more than 4 weeks"`
	WeeklyFrequency string `json:"weekly_frequency" example:"4-7 days"`
	TimeOfDay       string `json:"time_of_day" example:"morning"`

	LivingArea     string `json:"living_area" example:"urban"`
	NearRoad       bool   `json:"near_road"`
	HousingType    string `json:"housing_type" example:"condominium"`
	AirConditioner bool   `json:"air_conditioner"`
	Pet            string `json:"pet" example:"cat"`
}
