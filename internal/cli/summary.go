package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/law-makers/pdfharvest/internal/config"
	"github.com/law-makers/pdfharvest/internal/harvest"
	"github.com/law-makers/pdfharvest/internal/ui"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/schollz/progressbar/v3"
)

// newProgressBar draws on stderr unless logs would interleave with it
func newProgressBar(cfg *config.Config, total int, desc string) *progressbar.ProgressBar {
	visible := !cfg.JSONLog && cfg.LogLevel != "debug" && cfg.LogLevel != "error"
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(visible),
	)
}

func printRunSummary(w io.Writer, run *harvest.Run, mode models.HarvestMode, cfg *config.Config) {
	if run == nil || cfg.LogLevel == "error" {
		return
	}
	s := run.Stats

	fmt.Fprintf(w, "\n%s %s %s\n", ui.Bold("Run"), ui.Dim(run.ID), ui.Dim("("+run.Duration().Round(time.Second).String()+")"))
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "  %-12s %d", "Pages:", s.Pages)
	if s.PagesFailed > 0 {
		fmt.Fprintf(w, "  %s", ui.Error(fmt.Sprintf("%d failed", s.PagesFailed)))
	}
	if s.PagesDownloaded > 0 {
		fmt.Fprintf(w, "  %s", ui.Info(fmt.Sprintf("%d direct downloads", s.PagesDownloaded)))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-12s %d  %s\n", "Links:", s.Links, ui.Dim(fmt.Sprintf("%d duplicates skipped", s.Duplicates)))

	outcomes := make([]string, 0, len(s.Outcomes))
	for o := range s.Outcomes {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-12s %d\n", ui.Outcome(models.Outcome(o))+":", s.Outcomes[models.Outcome(o)])
	}

	switch mode {
	case models.ModeBatch:
		fmt.Fprintf(w, "  %-12s %s\n", "Output:", cfg.OutputPath)
	default:
		fmt.Fprintf(w, "  %-12s %s\n", "Downloads:", cfg.DownloadDir)
	}
}

// formatBytes formats byte count as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
