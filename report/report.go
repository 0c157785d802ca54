package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/rhinitis-care/model"
	"github.com/ariebrainware/rhinitis-care/protocol"
	"github.com/signintech/gopdf"
)

const (
	fontFamily = "ReportFont"
	lineWidth  = 500.0
	pageBottom = 780.0
)

// ErrNoFont is returned when neither the configured font nor any fallback
// could be loaded.
var ErrNoFont = errors.New("no usable TTF font for PDF report")

// fallbackFontPaths are tried after the configured path.
var fallbackFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// Patient is the header block of a report.
type Patient struct {
	Name           string
	Email          string
	Phone          string
	DateOfBirth    string
	HospitalNumber string
}

type builder struct {
	pdf *gopdf.GoPdf
	err error
}

func (b *builder) font(size float64) {
	if b.err == nil {
		b.err = b.pdf.SetFont(fontFamily, "", size)
	}
}

func (b *builder) line(text string, height float64) {
	if b.err != nil {
		return
	}
	if strings.TrimSpace(text) == "" {
		b.pdf.Br(height)
		return
	}
	lines, err := b.pdf.SplitText(text, lineWidth)
	if err != nil {
		b.err = err
		return
	}
	for _, l := range lines {
		if b.pdf.GetY()+height > pageBottom {
			b.pdf.AddPage()
		}
		if err := b.pdf.Cell(nil, l); err != nil {
			b.err = err
			return
		}
		b.pdf.Br(height)
	}
}

func loadFont(pdf *gopdf.GoPdf, configured string) error {
	paths := fallbackFontPaths
	if configured != "" {
		paths = append([]string{configured}, fallbackFontPaths...)
	}
	var lastErr error
	for _, path := range paths {
		if err := pdf.AddTTFFont(fontFamily, path); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		return ErrNoFont
	}
	return fmt.Errorf("%w: %v", ErrNoFont, lastErr)
}

// BuildFollowUpReport renders an A4 follow-up summary of records, oldest
// first as given. Recommendations are rendered from their structured plan
// in English.
func BuildFollowUpReport(patient Patient, records []model.AssessmentRecord, fontPath string) ([]byte, error) {
	catalog, err := protocol.DefaultCatalog()
	if err != nil {
		return nil, err
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := loadFont(pdf, fontPath); err != nil {
		return nil, err
	}
	pdf.SetMargins(40, 40, 40, 40)
	pdf.AddPage()

	b := &builder{pdf: pdf}
	b.font(18)
	b.line("Allergic Rhinitis Follow-up Report", 26)

	b.font(11)
	b.line(fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2006-01-02 15:04 MST")), 14)
	b.line(fmt.Sprintf("Patient: %s", patient.Name), 14)
	if patient.HospitalNumber != "" {
		b.line(fmt.Sprintf("Hospital number: %s", patient.HospitalNumber), 14)
	}
	if patient.DateOfBirth != "" {
		b.line(fmt.Sprintf("Date of birth: %s", patient.DateOfBirth), 14)
	}
	b.line(fmt.Sprintf("Contact: %s %s", patient.Phone, patient.Email), 14)
	b.line(fmt.Sprintf("Assessments: %d", len(records)), 24)

	if len(records) == 0 {
		b.line("No assessments recorded.", 14)
	}
	for i, rec := range records {
		b.font(13)
		b.line(fmt.Sprintf("#%d  %s", i+1, rec.ReportDate.Format("2006-01-02")), 18)
		b.font(11)
		b.line(fmt.Sprintf("Average VAS %.1f, %s, stage %d -> %d, steroid before: %s",
			rec.AvgVas, rec.Pattern, rec.PriorStage, rec.Stage, yesNo(rec.PriorUsedSteroid)), 14)
		for _, para := range strings.Split(recommendationText(catalog, rec), "\n") {
			if para != "" {
				b.line(para, 14)
			}
		}
		b.line("", 10)
	}
	if b.err != nil {
		return nil, fmt.Errorf("render report: %w", b.err)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func recommendationText(catalog *protocol.Catalog, rec model.AssessmentRecord) string {
	var plan protocol.RecommendationPlan
	if err := json.Unmarshal(rec.Recommendation, &plan); err != nil || plan.Empty() {
		return "Recommendation: unavailable"
	}
	text, err := catalog.Render(plan, protocol.LangEnglish)
	if err != nil {
		return "Recommendation: unavailable"
	}
	return "Recommendation: " + text
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
