package harvest

import (
	"fmt"
	"strings"

	"github.com/law-makers/pdfharvest/internal/config"
	urlutil "github.com/law-makers/pdfharvest/internal/utils/url"
	"github.com/law-makers/pdfharvest/pkg/models"
)

// TagGroup is a topic tag and the page identifiers filed under it
type TagGroup struct {
	Tag   string
	Pages []string
}

// Plan is the fixed set of pages a run visits
type Plan struct {
	BaseURL string
	// PathTemplate is appended to BaseURL; {lang} and {page} are substituted
	PathTemplate string
	Languages    []string
	Groups       []TagGroup
	// Banned identifiers exclude breadcrumb entries from subtopics
	Banned []string
	// Labels are the anchor texts that mark a download link
	Labels []string
}

// DefaultPlan returns the built-in plan for the federal social insurance site
func DefaultPlan() Plan {
	return Plan{
		BaseURL:      "https://sozialversicherungen.admin.ch/",
		PathTemplate: "{lang}/f/{page}",
		Languages:    []string{"it", "fr", "de"},
		Groups: []TagGroup{
			{Tag: "ahv_services", Pages: []string{"5621", "5622", "5623", "5625", "5624", "5665", "5666", "5667"}},
			{Tag: "iv_services", Pages: []string{"5661", "5664", "5662", "5663", "5659", "5660", "15871", "12918", "20314", "5637"}},
			{Tag: "el_services", Pages: []string{"5638", "5639", "5640"}},
		},
		Banned: []string{"5543", "5544", "5545"},
		Labels: []string{"Download", "Téléchargement"},
	}
}

// PlanFromConfig overlays the non-empty fields of t onto the default plan
func PlanFromConfig(t *config.Targets) Plan {
	p := DefaultPlan()
	if t == nil {
		return p
	}

	if t.BaseURL != "" {
		p.BaseURL = t.BaseURL
	}
	if t.PathTemplate != "" {
		p.PathTemplate = t.PathTemplate
	}
	if len(t.Languages) > 0 {
		p.Languages = t.Languages
	}
	if len(t.Groups) > 0 {
		p.Groups = make([]TagGroup, 0, len(t.Groups))
		for _, g := range t.Groups {
			p.Groups = append(p.Groups, TagGroup{Tag: g.Tag, Pages: g.Pages})
		}
	}
	if t.Banned != nil {
		p.Banned = t.Banned
	}
	if len(t.Labels) > 0 {
		p.Labels = t.Labels
	}
	return p
}

// Validate checks the plan can produce targets
func (p Plan) Validate() error {
	if err := urlutil.ValidateURL(p.BaseURL); err != nil {
		return fmt.Errorf("base url: %w", err)
	}
	if !strings.Contains(p.PathTemplate, "{page}") {
		return fmt.Errorf("path template %q has no {page} placeholder", p.PathTemplate)
	}
	if len(p.Languages) == 0 {
		return fmt.Errorf("no languages")
	}
	if len(p.Groups) == 0 {
		return fmt.Errorf("no tag groups")
	}
	if len(p.Labels) == 0 {
		return fmt.Errorf("no download labels")
	}
	return nil
}

// URL builds the address of one content page
func (p Plan) URL(lang, page string) string {
	path := strings.NewReplacer("{lang}", lang, "{page}", page).Replace(p.PathTemplate)
	return urlutil.EnsureTrailingSlash(p.BaseURL) + strings.TrimPrefix(path, "/")
}

// Targets expands the plan in traversal order: languages, then groups, then pages
func (p Plan) Targets() []models.Target {
	var targets []models.Target
	for _, lang := range p.Languages {
		for _, g := range p.Groups {
			for _, page := range g.Pages {
				targets = append(targets, models.Target{
					Lang: lang,
					Tag:  g.Tag,
					Page: page,
					URL:  p.URL(lang, page),
				})
			}
		}
	}
	return targets
}
