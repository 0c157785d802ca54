package protocol

// Item is one element of a treatment recommendation.
type Item string

const (
	SalineRinse                     Item = "saline_rinse"
	OralAntihistamine               Item = "oral_antihistamine"
	LeukotrieneAntagonist           Item = "leukotriene_antagonist"
	NasalSteroidStandardDose        Item = "nasal_steroid_standard_dose"
	NasalSteroidHighDose            Item = "nasal_steroid_high_dose"
	TaperAndContinue2Weeks          Item = "taper_and_continue_2_weeks"
	SpecialistReferral              Item = "specialist_referral"
	ImmunotherapyOrSurgicalReferral Item = "immunotherapy_or_surgical_referral"
)

// AllItems lists every item the output table can produce.
var AllItems = []Item{
	SalineRinse,
	OralAntihistamine,
	LeukotrieneAntagonist,
	NasalSteroidStandardDose,
	NasalSteroidHighDose,
	TaperAndContinue2Weeks,
	SpecialistReferral,
	ImmunotherapyOrSurgicalReferral,
}

// RecommendationPlan is everything in Required plus exactly one of OneOf.
type RecommendationPlan struct {
	Required []Item `json:"required"`
	OneOf    []Item `json:"one_of,omitempty"`
}

// Empty reports whether the plan prescribes nothing.
func (p RecommendationPlan) Empty() bool {
	return len(p.Required) == 0 && len(p.OneOf) == 0
}

// Equal compares two plans item by item, order included.
func (p RecommendationPlan) Equal(o RecommendationPlan) bool {
	return itemsEqual(p.Required, o.Required) && itemsEqual(p.OneOf, o.OneOf)
}

func (p RecommendationPlan) clone() RecommendationPlan {
	out := RecommendationPlan{Required: append([]Item(nil), p.Required...)}
	if len(p.OneOf) > 0 {
		out.OneOf = append([]Item(nil), p.OneOf...)
	}
	return out
}

func itemsEqual(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
