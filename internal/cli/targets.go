// internal/cli/targets.go
package cli

import (
	"fmt"

	"github.com/law-makers/pdfharvest/internal/ui"
	"github.com/spf13/cobra"
)

var targetsURLsOnly bool

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Print the pages a run would visit, in traversal order",
	Example: `  harvest targets
  harvest targets --urls --targets ./my-targets.json5`,
	Args: cobra.NoArgs,
	RunE: runTargets,
}

func init() {
	rootCmd.AddCommand(targetsCmd)

	targetsCmd.Flags().BoolVar(&targetsURLsOnly, "urls", false, "Print only the URLs")
	targetsCmd.Flags().String("targets", "", "JSON5 file overriding the built-in page plan")
}

func runTargets(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}

	plan, err := a.Plan()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	targets := plan.Targets()
	for _, t := range targets {
		if targetsURLsOnly {
			fmt.Fprintln(w, t.URL)
			continue
		}
		fmt.Fprintf(w, "%-4s %-14s %-7s %s\n", t.Lang, t.Tag, t.Page, ui.Dim(t.URL))
	}
	if !targetsURLsOnly {
		fmt.Fprintf(w, "\n%s %d pages, %d languages\n", ui.Bold("Total:"), len(targets), len(plan.Languages))
	}
	return nil
}
