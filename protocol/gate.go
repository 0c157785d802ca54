package protocol

import "time"

// MinimumIntervalDays is the shortest gap between two accepted intakes, long
// enough for a treatment step to show effect.
const MinimumIntervalDays = 14

// Eligibility is the gate verdict for a requested report date.
type Eligibility struct {
	Allowed         bool       `json:"allowed"`
	NextAllowedDate *time.Time `json:"next_allowed_date,omitempty"`
}

// ReportDay is the UTC calendar day of t, at midnight. Report dates are
// compared as whole days.
func ReportDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckEligibility decides whether an intake dated requested may be accepted
// after the last accepted intake dated lastReportDate. A nil last date means
// the patient has no history and is always allowed. Both dates are reduced
// to their UTC calendar day first.
func CheckEligibility(lastReportDate *time.Time, requested time.Time) Eligibility {
	if lastReportDate == nil {
		return Eligibility{Allowed: true}
	}
	next := NextAllowedDate(*lastReportDate)
	if ReportDay(requested).Before(next) {
		return Eligibility{Allowed: false, NextAllowedDate: &next}
	}
	return Eligibility{Allowed: true, NextAllowedDate: &next}
}

// NextAllowedDate is the earliest report day accepted after last.
func NextAllowedDate(last time.Time) time.Time {
	return ReportDay(last).AddDate(0, 0, MinimumIntervalDays)
}
