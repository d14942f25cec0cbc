package harvest

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/pdfharvest/internal/utils/url"
	"github.com/law-makers/pdfharvest/pkg/models"
)

// BreadcrumbSelector matches the site's breadcrumb links
const BreadcrumbSelector = "ol.breadcrumb li a"

// Annotator derives the topic information shared by all links on a page
type Annotator interface {
	Annotate(tag string, p *models.Page) (models.Annotation, error)
}

// BreadcrumbAnnotator builds subtopics from the page's breadcrumb trail
type BreadcrumbAnnotator struct {
	Selector string
	Banned   []string
}

// NewBreadcrumbAnnotator drops breadcrumb entries whose href contains any of banned
func NewBreadcrumbAnnotator(banned []string) *BreadcrumbAnnotator {
	return &BreadcrumbAnnotator{
		Selector: BreadcrumbSelector,
		Banned:   banned,
	}
}

// Annotate joins the normalized breadcrumb labels with ", "
func (b *BreadcrumbAnnotator) Annotate(tag string, p *models.Page) (models.Annotation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return models.Annotation{}, fmt.Errorf("failed to parse %s: %w", p.URL, err)
	}

	base := p.BaseURL()
	var parts []string

	doc.Find(b.Selector).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && b.banned(urlutil.ResolveURL(base, href)) {
			return
		}
		parts = append(parts, normalizeLabel(a.Text()))
	})

	return models.Annotation{
		Tag:       tag,
		Subtopics: strings.Join(parts, ", "),
	}, nil
}

func (b *BreadcrumbAnnotator) banned(href string) bool {
	for _, id := range b.Banned {
		if strings.Contains(href, id) {
			return true
		}
	}
	return false
}

// normalizeLabel trims text and replaces each inner whitespace run with "_"
func normalizeLabel(text string) string {
	return strings.Join(strings.Fields(text), "_")
}
