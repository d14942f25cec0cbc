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

// InteractiveOptions configures an InteractiveSink
type InteractiveOptions struct {
	Opener      browser.TabOpener
	DownloadDir string
	Keystroker  Keystroker
	Modifier    browser.Modifier
	SaveDelay   time.Duration
}

// InteractiveSink opens each link in its own tab and, when the response is a
// PDF, asks the browser to save it with the platform's save shortcut.
//
// The save is best effort. After the delay the sink checks whether the
// browser reported a completed download for the link and returns
// OutcomeSaved or OutcomeSaveUnverified accordingly.
type InteractiveSink struct {
	opener     browser.TabOpener
	dir        string
	keystroker Keystroker
	modifier   browser.Modifier
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewInteractiveSink validates opts
func NewInteractiveSink(opts InteractiveOptions) (*InteractiveSink, error) {
	if opts.Opener == nil {
		return nil, errors.New("interactive mode needs an engine that can open tabs")
	}
	if opts.Keystroker == nil {
		opts.Keystroker = CDPKeystroker{}
	}
	return &InteractiveSink{
		opener:     opts.Opener,
		dir:        opts.DownloadDir,
		keystroker: opts.Keystroker,
		modifier:   opts.Modifier,
		delay:      opts.SaveDelay,
		sleep:      sleepContext,
	}, nil
}

func (s *InteractiveSink) Name() string { return string(models.ModeInteractive) }

func (s *InteractiveSink) Accept(ctx context.Context, rec models.LinkRecord) (models.Outcome, error) {
	dir, err := filepath.Abs(filepath.Join(s.dir, rec.Lang))
	if err != nil {
		return models.OutcomeFailed, fmt.Errorf("resolve download dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.OutcomeFailed, fmt.Errorf("create download dir: %w", err)
	}

	tab, err := s.opener.OpenTab(ctx)
	if err != nil {
		return models.OutcomeFailed, err
	}
	defer func() {
		if err := tab.Close(); err != nil {
			log.Warn().Err(err).Str("url", rec.URL).Msg("Failed to close tab")
		}
	}()

	if err := tab.SetDownloadDir(ctx, dir); err != nil {
		return models.OutcomeFailed, fmt.Errorf("set download dir: %w", err)
	}

	log.Info().Str("url", rec.URL).Msg("Opening link")

	page, err := tab.Navigate(ctx, rec.URL)
	switch {
	case browser.IsBenignAbort(err):
		log.Warn().Str("url", rec.URL).Msg("Download triggered directly, continuing")
		return models.OutcomeDirectDownload, nil
	case err != nil:
		if ctx.Err() != nil {
			return models.OutcomeFailed, ctx.Err()
		}
		log.Error().Err(err).Str("url", rec.URL).Msg("Navigation failed, skipping link")
		return models.OutcomeFailed, nil
	}

	if !page.IsPDF() {
		log.Debug().Str("url", rec.URL).Str("content_type", page.ContentType).Msg("Not a PDF, skipping")
		return models.OutcomeNotPDF, nil
	}

	if err := tab.BringToFront(ctx); err != nil {
		log.Error().Err(err).Str("url", rec.URL).Msg("Failed to bring tab to front")
		return models.OutcomeFailed, nil
	}
	if err := s.keystroker.Press(ctx, tab, "s", s.modifier); err != nil {
		log.Error().Err(err).Str("url", rec.URL).Msg("Failed to send save shortcut")
		return models.OutcomeFailed, nil
	}
	if err := s.sleep(ctx, s.delay); err != nil {
		return models.OutcomeFailed, err
	}

	if tab.DownloadCompleted(rec.URL) {
		log.Info().Str("url", rec.URL).Str("dir", dir).Msg("Saved")
		return models.OutcomeSaved, nil
	}
	log.Warn().Str("url", rec.URL).Msg("Save shortcut sent but no completed download was observed")
	return models.OutcomeSaveUnverified, nil
}

func (s *InteractiveSink) Finish(context.Context, []models.LinkRecord) error {
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
