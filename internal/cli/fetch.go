// internal/cli/fetch.go
package cli

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/law-makers/pdfharvest/internal/config"
	"github.com/law-makers/pdfharvest/internal/downloader"
	"github.com/law-makers/pdfharvest/internal/ui"
	headersutil "github.com/law-makers/pdfharvest/internal/utils/headers"
	"github.com/law-makers/pdfharvest/internal/utils/output"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	fetchConcurrency int
	fetchAnyType     bool
	fetchOverwrite   bool
	fetchHeaders     []string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <links.json>",
	Short: "Download every link listed in a batch output file",
	Long: `Reads a file written by "harvest run" (either the plain URL list or the tagged
records) and downloads every link concurrently into <download-dir>/<lang>.
The language is taken from the first path segment of each URL when it is one
of the planned languages.

Responses that are not PDFs are skipped. Files already on disk are kept.`,
	Example: `  # Download everything collected by the last batch run
  harvest fetch sources/pdf_urls.json

  # Ten workers, into a custom directory
  harvest fetch sources/pdf_urls.json -c 10 --download-dir ./pdfs`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	f := fetchCmd.Flags()
	f.IntVarP(&fetchConcurrency, "concurrency", "c", config.DefaultConcurrency, "Number of concurrent download workers (1-50)")
	f.String("download-dir", "", "Root of the per-language download directories (default downloads)")
	f.String("rate", "", "Requests per second per host")
	f.String("targets", "", "JSON5 file overriding the built-in page plan")
	f.BoolVar(&fetchAnyType, "any-type", false, "Keep responses of any content type, not only PDFs")
	f.BoolVar(&fetchOverwrite, "overwrite", false, "Download again even if the file exists")
	f.StringArrayVarP(&fetchHeaders, "header", "H", nil, "Extra request header")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}
	cfg := a.Config

	records, err := output.LoadRecords(args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Info("No links in "+args[0]))
		return nil
	}

	plan, err := a.Plan()
	if err != nil {
		return err
	}

	root, err := filepath.Abs(cfg.DownloadDir)
	if err != nil {
		return fmt.Errorf("invalid download directory: %w", err)
	}

	d := a.Downloader(headersutil.ParseHeaders(fetchHeaders), !fetchAnyType, fetchOverwrite)
	pool := downloader.NewWorkerPool(d, fetchConcurrency)

	log.Debug().
		Int("links", len(records)).
		Int("concurrency", pool.Concurrency()).
		Str("dir", root).
		Msg("Starting downloads")

	bar := newProgressBar(cfg, len(records), "Downloading")
	results := pool.DownloadBatch(cmd.Context(), records, func(rec models.LinkRecord) string {
		return filepath.Join(root, langFromURL(rec.URL, plan.Languages))
	}, func(r *downloader.Result) {
		_ = bar.Add(1)
		if r.Outcome == models.OutcomeFailed {
			log.Error().Err(r.Error).Str("url", r.Record.URL).Msg("Download failed")
		}
	})
	_ = bar.Finish()

	counts := make(map[models.Outcome]int)
	var totalSize int64
	var totalDuration time.Duration
	for _, r := range results {
		counts[r.Outcome]++
		if r.Outcome == models.OutcomeDownloaded {
			totalSize += r.Size
			totalDuration += r.Duration
		}
	}

	w := cmd.OutOrStdout()
	if cfg.LogLevel != "error" {
		fmt.Fprintf(w, "\n%s\n", ui.Bold("Download Results"))
		fmt.Fprintln(w, strings.Repeat("=", 60))
		fmt.Fprintf(w, "  %-14s %d\n", "Total:", len(records))
		for _, o := range []models.Outcome{models.OutcomeDownloaded, models.OutcomeSkipped, models.OutcomeNotPDF, models.OutcomeFailed} {
			if counts[o] > 0 {
				fmt.Fprintf(w, "  %-14s %d\n", ui.Outcome(o)+":", counts[o])
			}
		}
		fmt.Fprintf(w, "  %-14s %s\n", "Total Size:", formatBytes(totalSize))
		if n := counts[models.OutcomeDownloaded]; n > 0 {
			fmt.Fprintf(w, "  %-14s %s\n", "Average Time:", (totalDuration / time.Duration(n)).Round(time.Millisecond))
		}
		fmt.Fprintf(w, "  %-14s %s\n", "Directory:", root)
		fmt.Fprintf(w, "  %-14s %s\n", "Elapsed:", a.Uptime().Round(time.Millisecond))
	}

	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if missing := len(records) - len(results); missing > 0 {
		return fmt.Errorf("%d download(s) not attempted", missing)
	}
	if n := counts[models.OutcomeFailed]; n > 0 {
		return fmt.Errorf("%d download(s) failed", n)
	}
	return nil
}

// langFromURL returns the first path segment of u when it is one of langs
func langFromURL(u string, langs []string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(parsed.Path, "/"), "/")
	for _, l := range langs {
		if first == l {
			return l
		}
	}
	return ""
}
