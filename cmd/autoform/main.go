package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/v0xg/autoform/internal/config"
)

var version = "1.0.0"

var (
	configPath string
	verbose    bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	pterm.Info.Prefix = pterm.Prefix{Text: "INFO", Style: pterm.NewStyle(pterm.BgBlue, pterm.FgWhite)}
	pterm.Success.Prefix = pterm.Prefix{Text: " OK ", Style: pterm.NewStyle(pterm.BgGreen, pterm.FgBlack)}
	pterm.Warning.Prefix = pterm.Prefix{Text: "WARN", Style: pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)}
	pterm.Error.Prefix = pterm.Prefix{Text: "FAIL", Style: pterm.NewStyle(pterm.BgRed, pterm.FgWhite)}

	rootCmd := &cobra.Command{
		Use:   "autoform",
		Short: "Submit spreadsheet rows through a web form",
		Long: `autoform opens a web form in a browser and submits it once per spreadsheet
row, filling each mapped question from its column.

Example:
  autoform run --url "https://docs.google.com/forms/d/e/.../viewform" --file records.xlsx`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "autoform.json5", "Config file; <name>.local.<ext> is merged over it")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show diagnostic logs")

	rootCmd.AddCommand(runCommand(), checkCommand(), suggestCommand(), updateCommand(), versionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	slog.Debug("config loaded", "path", configPath, "fields", len(cfg.Fields))
	return cfg, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			pterm.Println("autoform v" + version)
		},
	}
}
