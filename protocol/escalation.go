package protocol

// transitionRule is one row of the next-stage table. Rules are evaluated in
// order and the first match wins.
type transitionRule struct {
	name    string
	matches func(current Stage, score Score, priorUsedSteroid bool) bool
	next    func(current Stage, priorUsedSteroid bool) Stage
}

var transitionRules = []transitionRule{
	{
		name: "reset",
		matches: func(_ Stage, s Score, _ bool) bool {
			return !s.Severe() && s.Pattern == PatternIntermittent
		},
		next: func(Stage, bool) Stage { return StageBaseline },
	},
	{
		name: "first-worsening",
		matches: func(cur Stage, s Score, _ bool) bool {
			return cur == StageBaseline && s.Severe()
		},
		next: func(Stage, bool) Stage { return StageStepUp },
	},
	{
		name: "step-up-follow-up",
		matches: func(cur Stage, s Score, _ bool) bool {
			return cur == StageStepUp && s.Severe()
		},
		next: func(_ Stage, steroid bool) Stage {
			if steroid {
				return StageSpecialist
			}
			return StageStepUp
		},
	},
	{
		name: "specialist-follow-up",
		matches: func(cur Stage, s Score, _ bool) bool {
			return cur == StageSpecialist && s.Severe()
		},
		next: func(Stage, bool) Stage { return StageImmunotherapy },
	},
	{
		name:    "hold",
		matches: func(Stage, Score, bool) bool { return true },
		next:    func(cur Stage, _ bool) Stage { return cur },
	},
}

// NextStage returns the stage to persist after this intake.
func NextStage(current Stage, avgVas float64, pattern Pattern, priorUsedSteroid bool) (Stage, error) {
	if !current.Valid() {
		return current, invariantf("stage %d outside 0-3", current)
	}
	score := Score{AvgVas: avgVas, Pattern: pattern}
	for _, r := range transitionRules {
		if r.matches(current, score, priorUsedSteroid) {
			return r.next(current, priorUsedSteroid), nil
		}
	}
	return current, invariantf("no transition rule for stage=%d avg_vas=%.1f pattern=%s", current, avgVas, pattern)
}

// outputRow is one row of the recommendation table. A nil pattern or steroid
// condition means the row does not look at that input.
type outputRow struct {
	stage   Stage
	severe  bool
	pattern *Pattern
	steroid *bool
	plan    RecommendationPlan
}

func patternIs(p Pattern) *Pattern { return &p }
func steroidIs(b bool) *bool       { return &b }

var (
	planBaselineMild = RecommendationPlan{
		Required: []Item{SalineRinse},
		OneOf:    []Item{OralAntihistamine, LeukotrieneAntagonist},
	}
	planBaselineModerate = RecommendationPlan{
		Required: []Item{SalineRinse},
		OneOf:    []Item{OralAntihistamine, NasalSteroidStandardDose},
	}
	planBaselineSevere = RecommendationPlan{Required: []Item{SalineRinse, NasalSteroidStandardDose}}
	planTaper          = RecommendationPlan{Required: []Item{TaperAndContinue2Weeks}}
	planReferral       = RecommendationPlan{Required: []Item{SpecialistReferral, NasalSteroidHighDose}}
	planImmunotherapy  = RecommendationPlan{Required: []Item{ImmunotherapyOrSurgicalReferral}}
)

// outputTable is keyed on the pre-transition stage. Pattern only matters at
// stage 0; from stage 1 on the protocol escalates on severity and steroid
// history alone.
var outputTable = []outputRow{
	{stage: StageBaseline, severe: false, pattern: patternIs(PatternIntermittent), plan: planBaselineMild},
	{stage: StageBaseline, severe: true, pattern: patternIs(PatternIntermittent), plan: planBaselineModerate},
	{stage: StageBaseline, severe: false, pattern: patternIs(PatternPersistent), plan: planBaselineModerate},
	{stage: StageBaseline, severe: true, pattern: patternIs(PatternPersistent), plan: planBaselineSevere},

	{stage: StageStepUp, severe: false, plan: planTaper},
	{stage: StageStepUp, severe: true, steroid: steroidIs(false), plan: RecommendationPlan{Required: []Item{SalineRinse, NasalSteroidStandardDose}}},
	{stage: StageStepUp, severe: true, steroid: steroidIs(true), plan: planReferral},

	{stage: StageSpecialist, severe: false, plan: planTaper},
	{stage: StageSpecialist, severe: true, plan: planReferral},

	{stage: StageImmunotherapy, severe: false, plan: planTaper},
	{stage: StageImmunotherapy, severe: true, plan: planImmunotherapy},
}

// Recommend returns what to prescribe now, given the stage the patient was in
// before this intake. Call it before NextStage and with the same inputs.
func Recommend(current Stage, avgVas float64, pattern Pattern, priorUsedSteroid bool) (RecommendationPlan, error) {
	if !current.Valid() {
		return RecommendationPlan{}, invariantf("stage %d outside 0-3", current)
	}
	severe := Score{AvgVas: avgVas}.Severe()
	for _, row := range outputTable {
		if row.stage != current || row.severe != severe {
			continue
		}
		if row.pattern != nil && *row.pattern != pattern {
			continue
		}
		if row.steroid != nil && *row.steroid != priorUsedSteroid {
			continue
		}
		return row.plan.clone(), nil
	}
	return RecommendationPlan{}, invariantf("no recommendation for stage=%d avg_vas=%.1f pattern=%s steroid=%t",
		current, avgVas, pattern, priorUsedSteroid)
}

// Decision is the Mealy output and next state for one intake.
type Decision struct {
	PriorStage     Stage              `json:"prior_stage"`
	Recommendation RecommendationPlan `json:"recommendation"`
	NextStage      Stage              `json:"next_stage"`
}

// Decide runs Recommend on the prior stage, then NextStage.
func Decide(prior Stage, score Score, priorUsedSteroid bool) (Decision, error) {
	plan, err := Recommend(prior, score.AvgVas, score.Pattern, priorUsedSteroid)
	if err != nil {
		return Decision{}, err
	}
	next, err := NextStage(prior, score.AvgVas, score.Pattern, priorUsedSteroid)
	if err != nil {
		return Decision{}, err
	}
	return Decision{PriorStage: prior, Recommendation: plan, NextStage: next}, nil
}
