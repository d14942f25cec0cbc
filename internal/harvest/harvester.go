// Package harvest visits the planned pages, extracts download links,
// deduplicates them across the run and hands each new link to a sink.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/law-makers/pdfharvest/internal/browser"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Options configures a Harvester
type Options struct {
	Plan Plan
	// Annotator adds tag and subtopics to records. Nil harvests plain URLs.
	Annotator Annotator
	Sink      Sink
	// OnPage is called after each page is processed, successful or not
	OnPage func(models.Target)
	// DownloadDir, when set, receives downloads the content pages trigger
	// themselves, under DownloadDir/<lang>. Engines that cannot download
	// ignore it.
	DownloadDir string
}

// Harvester drives one browser through a plan
type Harvester struct {
	browser   browser.Browser
	plan      Plan
	extractor *Extractor
	annotator Annotator
	sink      Sink
	onPage    func(models.Target)
	dlDir     string
}

// New validates opts and returns a Harvester
func New(b browser.Browser, opts Options) (*Harvester, error) {
	if b == nil {
		return nil, errors.New("browser is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("sink is required")
	}
	if err := opts.Plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	return &Harvester{
		browser:   b,
		plan:      opts.Plan,
		extractor: NewExtractor(opts.Plan.Labels),
		annotator: opts.Annotator,
		sink:      opts.Sink,
		onPage:    opts.OnPage,
		dlDir:     opts.DownloadDir,
	}, nil
}

// Tagged reports whether records carry annotations
func (h *Harvester) Tagged() bool {
	return h.annotator != nil
}

// Run visits every target in order and returns the run's state. Each call
// starts from an empty dedup set. Navigation failures skip the page; parse
// and sink errors abort the run.
func (h *Harvester) Run(ctx context.Context) (*Run, error) {
	run := newRun()
	logger := log.With().Str("run_id", run.ID).Logger()

	logger.Info().
		Str("engine", h.browser.Name()).
		Str("sink", h.sink.Name()).
		Bool("tagged", h.Tagged()).
		Int("pages", len(h.plan.Targets())).
		Msg("Harvest started")

	var lang string
	for _, target := range h.plan.Targets() {
		if err := ctx.Err(); err != nil {
			run.FinishedAt = time.Now()
			return run, err
		}

		if target.Lang != lang {
			lang = target.Lang
			if err := h.routeDownloads(ctx, lang); err != nil {
				logger.Warn().Err(err).Str("lang", lang).Msg("Could not set download directory")
			}
		}

		err := h.visit(ctx, run, target)
		if h.onPage != nil {
			h.onPage(target)
		}
		if err != nil {
			run.FinishedAt = time.Now()
			return run, err
		}
	}

	if err := h.sink.Finish(ctx, run.Records()); err != nil {
		run.FinishedAt = time.Now()
		return run, fmt.Errorf("%s sink: %w", h.sink.Name(), err)
	}

	run.FinishedAt = time.Now()

	logger.Info().
		Int("pages", run.Stats.Pages).
		Int("pages_failed", run.Stats.PagesFailed).
		Int("links", run.Stats.Links).
		Int("unique_urls", run.dedup.Len()).
		Int("duplicates", run.Stats.Duplicates).
		Dur("duration", run.Duration()).
		Msg("Harvest finished")

	return run, nil
}

// routeDownloads points the engine's own downloads at dlDir/lang
func (h *Harvester) routeDownloads(ctx context.Context, lang string) error {
	setter, ok := h.browser.(browser.DownloadDirSetter)
	if h.dlDir == "" || !ok {
		return nil
	}

	dir, err := filepath.Abs(filepath.Join(h.dlDir, lang))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	if err := setter.SetDownloadDir(ctx, dir); err != nil {
		return err
	}
	log.Debug().Str("lang", lang).Str("dir", dir).Msg("Download directory set")
	return nil
}

func (h *Harvester) visit(ctx context.Context, run *Run, target models.Target) error {
	logger := log.With().
		Str("run_id", run.ID).
		Str("lang", target.Lang).
		Str("tag", target.Tag).
		Str("page", target.Page).
		Logger()

	logger.Info().Str("url", target.URL).Msg("Visiting")
	run.Stats.Pages++

	page, err := h.browser.Navigate(ctx, target.URL)
	switch {
	case browser.IsBenignAbort(err):
		run.Stats.PagesDownloaded++
		logger.Warn().Str("url", target.URL).Msg("Page triggered a direct download, continuing")
		return nil
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		run.Stats.PagesFailed++
		logger.Error().Err(err).Str("url", target.URL).Msg("Navigation failed, skipping page")
		return nil
	}

	links, err := h.extractor.Extract(page)
	if err != nil {
		return fmt.Errorf("extract links: %w", err)
	}

	var ann models.Annotation
	if h.annotator != nil {
		if ann, err = h.annotator.Annotate(target.Tag, page); err != nil {
			return fmt.Errorf("annotate: %w", err)
		}
	}

	logger.Debug().Int("links", len(links)).Str("subtopics", ann.Subtopics).Msg("Links extracted")

	for _, link := range links {
		rec := models.LinkRecord{
			URL:       link,
			Tag:       ann.Tag,
			Subtopics: ann.Subtopics,
			Lang:      target.Lang,
		}
		if !run.admit(rec) {
			continue
		}

		outcome, err := h.sink.Accept(ctx, rec)
		if err != nil {
			return fmt.Errorf("%s sink: %w", h.sink.Name(), err)
		}
		run.record(outcome)

		logger.Debug().Str("url", link).Str("outcome", string(outcome)).Msg("Link handled")
	}

	return nil
}
