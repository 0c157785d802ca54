package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/rhinitis-care/protocol"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type evaluateOptions struct {
	stage     int
	frequency int
	scores    string
	steroid   bool
	lang      string
}

var evalOpts evaluateOptions

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score one intake and print the recommendation without storing it",
	Long: `Evaluate runs the scorer and the escalation table on a single intake.
It needs no database, which makes it handy for checking the protocol
table by hand.

  rhinitis-care evaluate --stage 1 --frequency 5 --scores 6,7,8,7 --steroid`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := evaluate(evalOpts)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	},
}

type evaluation struct {
	AvgVas         float64  `yaml:"avg_vas"`
	Pattern        string   `yaml:"pattern"`
	PriorStage     int      `yaml:"prior_stage"`
	NextStage      int      `yaml:"next_stage"`
	Required       []string `yaml:"required"`
	OneOf          []string `yaml:"one_of,omitempty"`
	Recommendation string   `yaml:"recommendation"`
}

func evaluate(opts evaluateOptions) (evaluation, error) {
	subscores, err := parseScores(opts.scores)
	if err != nil {
		return evaluation{}, err
	}
	prior := protocol.Stage(opts.stage)
	if !prior.Valid() {
		return evaluation{}, fmt.Errorf("stage must be between %d and %d, got %d", protocol.StageBaseline, protocol.StageImmunotherapy, opts.stage)
	}
	lang := protocol.Language(opts.lang)
	if lang != protocol.LangThai && lang != protocol.LangEnglish {
		return evaluation{}, fmt.Errorf("unsupported language %q", opts.lang)
	}

	in := protocol.AssessmentInput{
		FrequencyPerWeek: opts.frequency,
		Subscores:        subscores,
		PriorUsedSteroid: opts.steroid,
		ReportDate:       time.Now().UTC(),
	}
	if err := protocol.Validate(in); err != nil {
		return evaluation{}, err
	}
	score := protocol.ScoreInput(in)
	decision, err := protocol.Decide(prior, score, opts.steroid)
	if err != nil {
		return evaluation{}, err
	}
	catalog, err := protocol.DefaultCatalog()
	if err != nil {
		return evaluation{}, err
	}
	text, err := catalog.Render(decision.Recommendation, lang)
	if err != nil {
		return evaluation{}, err
	}

	out := evaluation{
		AvgVas:         score.AvgVas,
		Pattern:        string(score.Pattern),
		PriorStage:     int(decision.PriorStage),
		NextStage:      int(decision.NextStage),
		Recommendation: text,
	}
	for _, item := range decision.Recommendation.Required {
		out.Required = append(out.Required, string(item))
	}
	for _, item := range decision.Recommendation.OneOf {
		out.OneOf = append(out.OneOf, string(item))
	}
	return out, nil
}

// parseScores reads four comma separated subscores in intake order:
// sneezing, itchy nose, runny nose, stuffy nose.
func parseScores(raw string) ([protocol.SubscoreCount]int, error) {
	var scores [protocol.SubscoreCount]int
	parts := strings.Split(raw, ",")
	if len(parts) != protocol.SubscoreCount {
		return scores, fmt.Errorf("--scores needs %d comma separated values, got %q", protocol.SubscoreCount, raw)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return scores, fmt.Errorf("--scores value %q is not a number", p)
		}
		scores[i] = v
	}
	return scores, nil
}

func init() {
	evaluateCmd.Flags().IntVar(&evalOpts.stage, "stage", 0, "Current escalation stage (0-3)")
	evaluateCmd.Flags().IntVar(&evalOpts.frequency, "frequency", 0, "Symptomatic days per week (0-7)")
	evaluateCmd.Flags().StringVar(&evalOpts.scores, "scores", "", "Subscores sneezing,itchy,runny,stuffy (0-10 each)")
	evaluateCmd.Flags().BoolVar(&evalOpts.steroid, "steroid", false, "Patient already used a nasal steroid")
	evaluateCmd.Flags().StringVar(&evalOpts.lang, "lang", string(protocol.LangEnglish), "Recommendation language (th or en)")
	_ = evaluateCmd.MarkFlagRequired("scores")
}
