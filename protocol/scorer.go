package protocol

// ComputeAvgVas returns the mean of the subscores rounded half-up to one
// decimal. The mean is computed in integer tenths so values such as 6.25
// always round to 6.3.
func ComputeAvgVas(subscores [SubscoreCount]int) float64 {
	sum := 0
	for _, v := range subscores {
		sum += v
	}
	// round(sum*10/n) == floor((20*sum + n) / (2*n)) for non-negative sums
	tenths := (20*sum + SubscoreCount) / (2 * SubscoreCount)
	return float64(tenths) / 10
}

// ClassifyPattern maps symptom days per week to a temporal pattern.
func ClassifyPattern(frequencyPerWeek int) Pattern {
	if frequencyPerWeek >= 4 {
		return PatternPersistent
	}
	return PatternIntermittent
}

// ScoreInput scores an intake. It does not validate ranges, call Validate first.
func ScoreInput(in AssessmentInput) Score {
	return Score{
		AvgVas:  ComputeAvgVas(in.Subscores),
		Pattern: ClassifyPattern(in.FrequencyPerWeek),
	}
}

// Validate checks the caller-facing ranges of an intake. It never clamps.
func Validate(in AssessmentInput) error {
	verr := &ValidationError{}
	if in.FrequencyPerWeek < 0 || in.FrequencyPerWeek > MaxFrequency {
		verr.add("frequency_per_week", "must be between 0 and %d, got %d", MaxFrequency, in.FrequencyPerWeek)
	}
	for i, v := range in.Subscores {
		if v < 0 || v > MaxSubscore {
			verr.add(SubscoreFields[i], "must be between 0 and %d, got %d", MaxSubscore, v)
		}
	}
	if in.ReportDate.IsZero() {
		verr.add("report_date", "is required")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// SubscoreFields names the four rated dimensions in Subscores order.
var SubscoreFields = [SubscoreCount]string{"sneeze_often", "itchy_nose", "runny_nose", "stuffy_nose"}
