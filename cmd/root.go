package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/voicecal/internal/config"
	"github.com/teemow/voicecal/internal/logging"
)

// rootCmd represents the base command for the voicecal application
var rootCmd = &cobra.Command{
	Use:   "voicecal",
	Short: "Books Google Calendar events for voice assistants",
	Long: `voicecal is the calendar backend of a voice assistant. It turns a spoken
request such as "tomorrow at 5pm" into a Google Calendar event.

It can run as:
  - An HTTP service for voice platform webhooks and MCP clients (serve)
  - An MCP server over stdio (serve --transport stdio)
  - A one-shot command line tool (create)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.LoadEnvFiles(envFiles...)
		if err != nil {
			return err
		}
		logger = logging.NewLogger(logging.Options{Debug: debugMode, Format: logFormat})
		slog.SetDefault(logger)
		for _, path := range loaded {
			logger.Debug("loaded env file", "path", path)
		}
		return nil
	},
}

// version will be set by main
var version = "dev"

var (
	envFiles  []string
	debugMode bool
	logFormat string

	// logger is configured by the root pre-run hook.
	logger = slog.Default()
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "voicecal version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default: ./.env and the per-user voicecal.env if present)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
