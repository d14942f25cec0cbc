package harvest

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/pdfharvest/internal/utils/url"
	"github.com/law-makers/pdfharvest/pkg/models"
)

const (
	// DownloadSelector matches the site's download buttons
	DownloadSelector = "a.btn.btn-default"
	// VersionMarker marks links to superseded document versions
	VersionMarker = "?version="
)

// Extractor selects download links from a rendered page
type Extractor struct {
	Selector string
	Labels   []string
	Exclude  string
}

// NewExtractor returns an extractor for the site's download buttons
func NewExtractor(labels []string) *Extractor {
	return &Extractor{
		Selector: DownloadSelector,
		Labels:   labels,
		Exclude:  VersionMarker,
	}
}

// Extract returns the absolute hrefs of matching anchors in document order.
// Duplicates are kept.
func (e *Extractor) Extract(p *models.Page) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p.URL, err)
	}

	base := p.BaseURL()
	var links []string

	doc.Find(e.Selector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if !e.hasLabel(a.Text()) {
			return
		}
		link := urlutil.ResolveURL(base, href)
		if e.Exclude != "" && strings.Contains(link, e.Exclude) {
			return
		}
		links = append(links, link)
	})

	return links, nil
}

func (e *Extractor) hasLabel(text string) bool {
	for _, label := range e.Labels {
		if strings.Contains(text, label) {
			return true
		}
	}
	return false
}
