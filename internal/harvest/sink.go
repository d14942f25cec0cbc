package harvest

import (
	"context"
	"path/filepath"

	"github.com/law-makers/pdfharvest/internal/downloader"
	"github.com/law-makers/pdfharvest/internal/utils/output"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Sink receives each newly discovered link
type Sink interface {
	Name() string

	// Accept handles one record. Per-link failures are reported through the
	// outcome; a non-nil error aborts the run.
	Accept(ctx context.Context, rec models.LinkRecord) (models.Outcome, error)

	// Finish is called once with every admitted record after the last page
	Finish(ctx context.Context, records []models.LinkRecord) error
}

// BatchSink collects records and writes them as JSON when the run ends
type BatchSink struct {
	path   string
	tagged bool
}

// NewBatchSink writes to path. Tagged output is an array of objects, plain
// output an array of URL strings.
func NewBatchSink(path string, tagged bool) *BatchSink {
	return &BatchSink{path: path, tagged: tagged}
}

func (s *BatchSink) Name() string { return string(models.ModeBatch) }

// Accept records nothing itself; the run keeps the ordered result set
func (s *BatchSink) Accept(context.Context, models.LinkRecord) (models.Outcome, error) {
	return models.OutcomeRecorded, nil
}

// Finish overwrites the output file with all records
func (s *BatchSink) Finish(_ context.Context, records []models.LinkRecord) error {
	if err := output.SaveRecords(s.path, records, s.tagged); err != nil {
		return err
	}
	log.Info().Str("path", s.path).Int("records", len(records)).Bool("tagged", s.tagged).Msg("Wrote link records")
	return nil
}

// DownloadSink fetches each link over HTTP into a per-language directory
type DownloadSink struct {
	downloader *downloader.Downloader
	dir        string
}

// NewDownloadSink saves files under dir/<lang>
func NewDownloadSink(d *downloader.Downloader, dir string) *DownloadSink {
	return &DownloadSink{downloader: d, dir: dir}
}

func (s *DownloadSink) Name() string { return string(models.ModeDownload) }

func (s *DownloadSink) Accept(ctx context.Context, rec models.LinkRecord) (models.Outcome, error) {
	res := s.downloader.Download(ctx, rec, filepath.Join(s.dir, rec.Lang))
	if err := ctx.Err(); err != nil {
		return models.OutcomeFailed, err
	}

	switch res.Outcome {
	case models.OutcomeDownloaded:
		log.Info().Str("url", rec.URL).Str("file", res.FilePath).Int64("bytes", res.Size).Msg("Downloaded")
	case models.OutcomeNotPDF:
		log.Warn().Str("url", rec.URL).Msg("Not a PDF, skipping")
	case models.OutcomeFailed:
		log.Error().Err(res.Error).Str("url", rec.URL).Msg("Download failed")
	}
	return res.Outcome, nil
}

func (s *DownloadSink) Finish(context.Context, []models.LinkRecord) error {
	return nil
}
