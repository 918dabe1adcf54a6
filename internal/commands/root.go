package commands

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AppSecureAI/automation-action/internal/app"
	"github.com/AppSecureAI/automation-action/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	root := &cobra.Command{
		Use:           "appsec-action",
		Short:         "Submit a codebase archive for analysis and remediation, watch the run, record the outcome",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			initLogger(debug)

			if err := app.EnsureConfigDir(); err != nil {
				return err
			}

			// Wire --db-path into app-level resolver.
			if dbPath, err := cmd.Flags().GetString("db-path"); err == nil && dbPath != "" {
				app.SetDBPathOverride(dbPath)
			}

			return nil
		},
	}

	root.PersistentFlags().String("api-url", "", "Analysis service base URL (default: $APPSEC_API_BASE_URL or config)")
	root.PersistentFlags().String("token", "", "API bearer token (default: $APPSEC_API_TOKEN or config)")
	root.PersistentFlags().String("db-path", "", "Override run-history database path")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	root.Flags().BoolP("version", "v", false, "version for appsec-action")

	root.AddCommand(NewScanCmd())
	root.AddCommand(NewRunsCmd())
	root.AddCommand(NewSummaryCmd())

	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

// initLogger installs the default slog handler: human-friendly tint output on
// a terminal, JSON lines otherwise (CI log collectors expect one line each).
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
