// internal/cli/root.go
package cli

import (
	"context"
	"os"

	"github.com/law-makers/pdfharvest/internal/app"
	"github.com/law-makers/pdfharvest/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Collect and save PDF download links from the social insurance portal",
	Long: `harvest visits the configured content pages in every language, collects the
links behind their download buttons, and records or saves each distinct link
once per run.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// active is the application created for the running command. Execute closes
// it whether or not the command succeeded, which PostRun hooks do not.
var active *app.Application

// Execute runs the root command with ctx and exits non-zero on error
func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)

	if active != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), active.Config.HTTPTimeout)
		_ = active.Close(closeCtx)
		cancel()
	}

	if err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Initialize the application lazily so -h/--version never load config
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetAppFromCmd(cmd) != nil {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}

		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		SetApp(cmd, a)
		active = a
		return nil
	}
}
