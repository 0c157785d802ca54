package protocol

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Language selects the catalog text variant.
type Language string

const (
	LangThai    Language = "th"
	LangEnglish Language = "en"
)

type localized map[Language]string

// Catalog maps recommendation items to display text.
type Catalog struct {
	ChooseOne localized          `yaml:"choose_one"`
	Or        localized          `yaml:"or"`
	Items     map[Item]localized `yaml:"items"`
}

// Languages lists the text variants every catalog must provide.
var Languages = []Language{LangThai, LangEnglish}

// ParseCatalog decodes a YAML catalog and checks that both headers and
// every item have text in every supported language.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing recommendation catalog: %w", err)
	}
	for _, lang := range Languages {
		if strings.TrimSpace(c.ChooseOne[lang]) == "" {
			return nil, fmt.Errorf("recommendation catalog: choose_one has no %q text", lang)
		}
		if strings.TrimSpace(c.Or[lang]) == "" {
			return nil, fmt.Errorf("recommendation catalog: or has no %q text", lang)
		}
	}
	for _, item := range AllItems {
		text, ok := c.Items[item]
		if !ok {
			return nil, fmt.Errorf("recommendation catalog: missing item %q", item)
		}
		for _, lang := range Languages {
			if strings.TrimSpace(text[lang]) == "" {
				return nil, fmt.Errorf("recommendation catalog: item %q has no %q text", item, lang)
			}
		}
	}
	return &c, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogErr  error
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseCatalog(defaultCatalogYAML)
	})
	return defaultCatalog, defaultCatalogErr
}

// Render formats a plan for display. Required items come first, then the
// choose-one block.
func (c *Catalog) Render(plan RecommendationPlan, lang Language) (string, error) {
	if plan.Empty() {
		return "", invariantf("empty recommendation plan")
	}
	var b strings.Builder
	for _, item := range plan.Required {
		text, err := c.text(item, lang)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	if len(plan.OneOf) > 0 {
		b.WriteString(c.ChooseOne[lang])
		b.WriteString("\n\n")
		for i, item := range plan.OneOf {
			if i > 0 {
				b.WriteString(c.Or[lang])
				b.WriteString("\n\n")
			}
			text, err := c.text(item, lang)
			if err != nil {
				return "", err
			}
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *Catalog) text(item Item, lang Language) (string, error) {
	t, ok := c.Items[item][lang]
	if !ok || t == "" {
		return "", fmt.Errorf("recommendation catalog: no %q text for %q", lang, item)
	}
	return t, nil
}
