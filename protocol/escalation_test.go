package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStages = []Stage{StageBaseline, StageStepUp, StageSpecialist, StageImmunotherapy}

func plan(required []Item, oneOf ...Item) RecommendationPlan {
	return RecommendationPlan{Required: required, OneOf: oneOf}
}

func TestNextStage_Table(t *testing.T) {
	cases := []struct {
		name    string
		current Stage
		avg     float64
		pattern Pattern
		steroid bool
		want    Stage
	}{
		{"reset from baseline", StageBaseline, 3.0, PatternIntermittent, false, StageBaseline},
		{"reset from step-up", StageStepUp, 4.9, PatternIntermittent, true, StageBaseline},
		{"reset from specialist", StageSpecialist, 0.0, PatternIntermittent, false, StageBaseline},
		{"reset from terminal", StageImmunotherapy, 4.9, PatternIntermittent, true, StageBaseline},
		{"first worsening intermittent", StageBaseline, 5.0, PatternIntermittent, false, StageStepUp},
		{"first worsening persistent", StageBaseline, 7.0, PatternPersistent, false, StageStepUp},
		{"step-up without steroid stays", StageStepUp, 6.0, PatternPersistent, false, StageStepUp},
		{"step-up with steroid escalates", StageStepUp, 6.0, PatternPersistent, true, StageSpecialist},
		{"specialist escalates", StageSpecialist, 5.0, PatternIntermittent, false, StageImmunotherapy},
		{"terminal holds", StageImmunotherapy, 8.0, PatternPersistent, true, StageImmunotherapy},
		{"mild persistent holds baseline", StageBaseline, 4.0, PatternPersistent, false, StageBaseline},
		{"mild persistent holds step-up", StageStepUp, 4.0, PatternPersistent, true, StageStepUp},
		{"mild persistent holds specialist", StageSpecialist, 3.0, PatternPersistent, false, StageSpecialist},
		{"mild persistent holds terminal", StageImmunotherapy, 2.0, PatternPersistent, false, StageImmunotherapy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextStage(tc.current, tc.avg, tc.pattern, tc.steroid)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextStage_ResetFromEveryStage(t *testing.T) {
	for _, s := range allStages {
		for _, steroid := range []bool{false, true} {
			got, err := NextStage(s, 4.9, PatternIntermittent, steroid)
			require.NoError(t, err)
			assert.Equal(t, StageBaseline, got, "stage=%d steroid=%t", s, steroid)
		}
	}
}

func TestRecommend_Table(t *testing.T) {
	cases := []struct {
		name    string
		current Stage
		avg     float64
		pattern Pattern
		steroid bool
		want    RecommendationPlan
	}{
		{"baseline mild intermittent", StageBaseline, 3.0, PatternIntermittent, false,
			plan([]Item{SalineRinse}, OralAntihistamine, LeukotrieneAntagonist)},
		{"baseline severe intermittent", StageBaseline, 6.0, PatternIntermittent, false,
			plan([]Item{SalineRinse}, OralAntihistamine, NasalSteroidStandardDose)},
		{"baseline mild persistent", StageBaseline, 4.9, PatternPersistent, true,
			plan([]Item{SalineRinse}, OralAntihistamine, NasalSteroidStandardDose)},
		{"baseline severe persistent", StageBaseline, 7.0, PatternPersistent, false,
			plan([]Item{SalineRinse, NasalSteroidStandardDose})},
		{"step-up improved", StageStepUp, 4.0, PatternPersistent, true,
			plan([]Item{TaperAndContinue2Weeks})},
		{"step-up severe no steroid", StageStepUp, 5.0, PatternIntermittent, false,
			plan([]Item{SalineRinse, NasalSteroidStandardDose})},
		{"step-up severe with steroid", StageStepUp, 6.0, PatternIntermittent, true,
			plan([]Item{SpecialistReferral, NasalSteroidHighDose})},
		{"specialist improved", StageSpecialist, 3.0, PatternPersistent, false,
			plan([]Item{TaperAndContinue2Weeks})},
		{"specialist severe", StageSpecialist, 9.0, PatternPersistent, false,
			plan([]Item{SpecialistReferral, NasalSteroidHighDose})},
		{"terminal improved", StageImmunotherapy, 1.0, PatternIntermittent, false,
			plan([]Item{TaperAndContinue2Weeks})},
		{"terminal severe", StageImmunotherapy, 8.0, PatternPersistent, true,
			plan([]Item{ImmunotherapyOrSurgicalReferral})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Recommend(tc.current, tc.avg, tc.pattern, tc.steroid)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %+v, got %+v", tc.want, got)
		})
	}
}

// Every (stage, severity, pattern, steroid) tuple must map to exactly one
// output row and one transition.
func TestDecisionTable_IsTotal(t *testing.T) {
	for _, stage := range allStages {
		for _, avg := range []float64{0.0, 4.9, 5.0, 10.0} {
			for _, pattern := range []Pattern{PatternIntermittent, PatternPersistent} {
				for _, steroid := range []bool{false, true} {
					name := fmt.Sprintf("stage=%d avg=%.1f %s steroid=%t", stage, avg, pattern, steroid)

					matches := 0
					severe := avg >= SevereThreshold
					for _, row := range outputTable {
						if row.stage != stage || row.severe != severe {
							continue
						}
						if row.pattern != nil && *row.pattern != pattern {
							continue
						}
						if row.steroid != nil && *row.steroid != steroid {
							continue
						}
						matches++
					}
					assert.Equal(t, 1, matches, name)

					p, err := Recommend(stage, avg, pattern, steroid)
					require.NoError(t, err, name)
					assert.False(t, p.Empty(), name)

					next, err := NextStage(stage, avg, pattern, steroid)
					require.NoError(t, err, name)
					assert.True(t, next.Valid(), name)
				}
			}
		}
	}
}

func TestRecommend_IgnoresPatternPastBaseline(t *testing.T) {
	for _, stage := range []Stage{StageStepUp, StageSpecialist, StageImmunotherapy} {
		for _, avg := range []float64{2.0, 8.0} {
			for _, steroid := range []bool{false, true} {
				a, err := Recommend(stage, avg, PatternIntermittent, steroid)
				require.NoError(t, err)
				b, err := Recommend(stage, avg, PatternPersistent, steroid)
				require.NoError(t, err)
				assert.True(t, a.Equal(b), "stage=%d avg=%.1f steroid=%t", stage, avg, steroid)
			}
		}
	}
}

func TestInvalidStage_IsInvariantViolation(t *testing.T) {
	for _, s := range []Stage{-1, 4, 99} {
		_, err := NextStage(s, 6.0, PatternPersistent, false)
		assert.True(t, errors.Is(err, ErrInvariantViolation), "NextStage stage=%d", s)

		_, err = Recommend(s, 6.0, PatternPersistent, false)
		assert.True(t, errors.Is(err, ErrInvariantViolation), "Recommend stage=%d", s)

		_, err = Decide(s, Score{AvgVas: 6.0, Pattern: PatternPersistent}, false)
		assert.True(t, errors.Is(err, ErrInvariantViolation), "Decide stage=%d", s)
	}
}

func TestRecommend_ReturnsIndependentCopy(t *testing.T) {
	p, err := Recommend(StageBaseline, 3.0, PatternIntermittent, false)
	require.NoError(t, err)
	p.OneOf[0] = ImmunotherapyOrSurgicalReferral

	again, err := Recommend(StageBaseline, 3.0, PatternIntermittent, false)
	require.NoError(t, err)
	assert.Equal(t, OralAntihistamine, again.OneOf[0])
}

func TestDecide_Scenarios(t *testing.T) {
	cases := []struct {
		name     string
		prior    Stage
		score    Score
		steroid  bool
		wantPlan RecommendationPlan
		wantNext Stage
	}{
		{"A", StageBaseline, Score{AvgVas: 7.0, Pattern: PatternPersistent}, false,
			plan([]Item{SalineRinse, NasalSteroidStandardDose}), StageStepUp},
		{"B", StageStepUp, Score{AvgVas: 6.0, Pattern: PatternPersistent}, true,
			plan([]Item{SpecialistReferral, NasalSteroidHighDose}), StageSpecialist},
		{"C", StageSpecialist, Score{AvgVas: 3.0, Pattern: PatternPersistent}, false,
			plan([]Item{TaperAndContinue2Weeks}), StageSpecialist},
		{"D", StageImmunotherapy, Score{AvgVas: 8.0, Pattern: PatternPersistent}, false,
			plan([]Item{ImmunotherapyOrSurgicalReferral}), StageImmunotherapy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Decide(tc.prior, tc.score, tc.steroid)
			require.NoError(t, err)
			assert.Equal(t, tc.prior, d.PriorStage)
			assert.True(t, tc.wantPlan.Equal(d.Recommendation), "got %+v", d.Recommendation)
			assert.Equal(t, tc.wantNext, d.NextStage)
		})
	}
}

// The recommendation follows the stage before the update: the first severe
// persistent visit gets baseline advice even though it moves the patient up.
func TestDecide_UsesPreTransitionStage(t *testing.T) {
	score := Score{AvgVas: 6.0, Pattern: PatternIntermittent}
	d, err := Decide(StageBaseline, score, true)
	require.NoError(t, err)
	assert.Equal(t, StageStepUp, d.NextStage)

	atNext, err := Recommend(d.NextStage, score.AvgVas, score.Pattern, true)
	require.NoError(t, err)
	assert.False(t, atNext.Equal(d.Recommendation))
}

func TestDecide_Deterministic(t *testing.T) {
	for _, stage := range allStages {
		score := Score{AvgVas: 5.5, Pattern: PatternPersistent}
		first, err := Decide(stage, score, true)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Decide(stage, score, true)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}
