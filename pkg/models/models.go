package models

import (
	"strings"
	"time"
)

// Target identifies one content page to visit.
type Target struct {
	Lang string `json:"lang"`
	Tag  string `json:"tag,omitempty"`
	Page string `json:"page"`
	URL  string `json:"url"`
}

// Page is a navigated document as seen by the harvester
type Page struct {
	URL         string            `json:"url"`
	FinalURL    string            `json:"final_url,omitempty"`
	StatusCode  int               `json:"status_code"`
	ContentType string            `json:"content_type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	HTML        string            `json:"html,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at"`
}

// BaseURL returns the URL relative links on the page resolve against.
func (p *Page) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// IsPDF reports whether the response carried a PDF content type.
func (p *Page) IsPDF() bool {
	return strings.Contains(strings.ToLower(p.ContentType), MIMETypePDF)
}

// MIMETypePDF is the content type the savers look for.
const MIMETypePDF = "application/pdf"

// Annotation is the topic information shared by every link found on one page.
type Annotation struct {
	Tag       string
	Subtopics string
}

// LinkRecord is one harvested download link. URL is unique within a run.
type LinkRecord struct {
	URL       string `json:"url"`
	Tag       string `json:"tag"`
	Subtopics string `json:"subtopics"`
	Lang      string `json:"-"`
}

// Outcome describes what a sink did with a link
type Outcome string

const (
	OutcomeRecorded       Outcome = "recorded"
	OutcomeSaved          Outcome = "saved"
	OutcomeSaveUnverified Outcome = "save_unverified"
	OutcomeDirectDownload Outcome = "direct_download"
	OutcomeNotPDF         Outcome = "not_pdf"
	OutcomeDownloaded     Outcome = "downloaded"
	OutcomeFailed         Outcome = "failed"
	OutcomeSkipped        Outcome = "skipped"
)

// HarvestMode selects the sink used for a run
type HarvestMode string

const (
	ModeBatch       HarvestMode = "batch"
	ModeInteractive HarvestMode = "interactive"
	ModeDownload    HarvestMode = "download"
)

// EngineName selects the page fetcher implementation
type EngineName string

const (
	EngineChrome EngineName = "chrome"
	EngineStatic EngineName = "static"
)
