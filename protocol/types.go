package protocol

import "time"

// Pattern is the temporal classification of symptoms.
type Pattern string

const (
	PatternIntermittent Pattern = "intermittent"
	PatternPersistent   Pattern = "persistent"
)

// Stage is the escalation tier of the treatment protocol.
type Stage int

const (
	StageBaseline      Stage = 0
	StageStepUp        Stage = 1
	StageSpecialist    Stage = 2
	StageImmunotherapy Stage = 3
)

// Valid reports whether s is one of the four protocol tiers.
func (s Stage) Valid() bool {
	return s >= StageBaseline && s <= StageImmunotherapy
}

// SubscoreCount is the number of symptom dimensions rated per intake
// (sneezing, itchy nose, runny nose, stuffy nose).
const SubscoreCount = 4

const (
	MaxSubscore  = 10
	MaxFrequency = 7
	// SevereThreshold splits mild from moderate-severe average VAS.
	SevereThreshold = 5.0
)

// AssessmentInput is one self-reported intake.
type AssessmentInput struct {
	FrequencyPerWeek int
	Subscores        [SubscoreCount]int
	PriorUsedSteroid bool
	ReportDate       time.Time
}

// Score is the scorer output for one intake.
type Score struct {
	AvgVas  float64 `json:"avg_vas"`
	Pattern Pattern `json:"pattern"`
}

// Severe reports whether the score reaches the step-up threshold.
func (s Score) Severe() bool {
	return s.AvgVas >= SevereThreshold
}
