// internal/cli/run.go
package cli

import (
	"fmt"
	"strings"

	"github.com/law-makers/pdfharvest/internal/app"
	"github.com/law-makers/pdfharvest/internal/browser"
	"github.com/law-makers/pdfharvest/internal/harvest"
	headersutil "github.com/law-makers/pdfharvest/internal/utils/headers"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/spf13/cobra"
)

var (
	runMode    string
	runPlain   bool
	runHeaders []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Visit every planned page and hand new download links to a sink",
	Long: `Visits each page of the plan (languages, then tag groups, then pages), collects
the links behind "Download"/"Téléchargement" buttons, skips superseded
?version= variants, and passes each link seen for the first time to a sink:

  batch        write all links as JSON once the run ends (default)
  interactive  open each link in a visible tab and press the save shortcut
  download     fetch each link over HTTP into <download-dir>/<lang>

Links are tagged with their topic group and breadcrumb subtopics unless
--plain is given.`,
	Example: `  # Collect tagged links into sources/pdf_urls.json
  harvest run

  # Plain URL list with the static engine
  harvest run --plain --engine=static -o urls.json

  # Save PDFs through the browser, using OS-level keystrokes
  harvest run --mode=interactive --keystroke=os

  # Download straight away, slower on the server
  harvest run --mode=download --rate=0.5`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVarP(&runMode, "mode", "m", string(models.ModeBatch), "Sink: batch, interactive, or download")
	f.BoolVar(&runPlain, "plain", false, "Record bare URLs without tag and subtopics")
	f.StringP("output", "o", "", "Batch output file (default sources/pdf_urls.json)")
	f.String("download-dir", "", "Root of the per-language download directories (default downloads)")
	f.Bool("headless", true, "Run Chrome headless (interactive mode defaults to a visible window)")
	f.String("keystroke", "", "Save shortcut backend for interactive mode: cdp or os")
	f.String("save-delay", "", "Wait after the save shortcut (default 1s)")
	f.String("rate", "", "Requests per second per host")
	f.String("targets", "", "JSON5 file overriding the built-in page plan")
	f.StringArrayVarP(&runHeaders, "header", "H", nil, "Extra request header for the static engine and downloads, e.g. -H 'Cookie: a=b'")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}
	cfg := a.Config

	mode := models.HarvestMode(strings.ToLower(runMode))
	switch mode {
	case models.ModeBatch, models.ModeDownload:
	case models.ModeInteractive:
		if !cmd.Flags().Changed("headless") {
			cfg.BrowserHeadless = false
		}
	default:
		return fmt.Errorf("invalid mode %q (must be batch, interactive, or download)", runMode)
	}

	plan, err := a.Plan()
	if err != nil {
		return err
	}

	hdrs := headersutil.ParseHeaders(runHeaders)

	b, err := a.EnsureBrowser(hdrs)
	if err != nil {
		return err
	}

	sink, err := buildSink(a, mode, b, hdrs)
	if err != nil {
		return err
	}

	var annotator harvest.Annotator
	if !runPlain {
		annotator = harvest.NewBreadcrumbAnnotator(plan.Banned)
	}

	bar := newProgressBar(cfg, len(plan.Targets()), "Harvesting")

	opts := harvest.Options{
		Plan:      plan,
		Annotator: annotator,
		Sink:      sink,
		OnPage:    func(models.Target) { _ = bar.Add(1) },
	}
	if mode != models.ModeBatch {
		opts.DownloadDir = cfg.DownloadDir
	}

	h, err := harvest.New(b, opts)
	if err != nil {
		return err
	}

	run, err := h.Run(cmd.Context())
	_ = bar.Finish()

	printRunSummary(cmd.OutOrStdout(), run, mode, cfg)
	return err
}

func buildSink(a *app.Application, mode models.HarvestMode, b browser.Browser, hdrs map[string]string) (harvest.Sink, error) {
	cfg := a.Config

	switch mode {
	case models.ModeInteractive:
		opener, ok := b.(browser.TabOpener)
		if !ok {
			return nil, fmt.Errorf("interactive mode requires the chrome engine, got %s", b.Name())
		}
		keystroker, err := harvest.NewKeystroker(cfg.Keystroke)
		if err != nil {
			return nil, err
		}
		return harvest.NewInteractiveSink(harvest.InteractiveOptions{
			Opener:      opener,
			DownloadDir: cfg.DownloadDir,
			Keystroker:  keystroker,
			Modifier:    browser.PlatformModifier(),
			SaveDelay:   cfg.SaveDelay,
		})

	case models.ModeDownload:
		return harvest.NewDownloadSink(a.Downloader(hdrs, true, false), cfg.DownloadDir), nil

	default:
		return harvest.NewBatchSink(cfg.OutputPath, !runPlain), nil
	}
}
