// Package main is the entry point for the PageMark annotation tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pagemark/internal/app"
	"pagemark/internal/config"
	"pagemark/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfgFile  string
	dpiFlag  int
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pagemark [pdf]",
	Short: "Annotate PDF pages with labelled bounding boxes",
	Long: `pagemark renders PDF pages to images and lets you draw, move, resize,
and label bounding boxes on them. Annotations are saved as JSON and can be
exported alongside the page images for dataset preparation.

Pass a PDF path to open it immediately, or open one from the File menu.`,
	Args:    cobra.MaximumNArgs(1),
	Version: version,
	RunE:    run,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pagemark.yaml or ~/.config/pagemark/pagemark.yaml)")
	rootCmd.Flags().IntVar(&dpiFlag, "dpi", 0, "render resolution in dots per inch (overrides config)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if dpiFlag > 0 {
		cfg.DPI = dpiFlag
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log := logger.NewConsoleLogger(logger.ParseLevel(cfg.LogLevel))
	log.Info("Main", "starting pagemark", map[string]interface{}{
		"version": version,
		"dpi":     cfg.DPI,
	})

	application, err := app.NewApplication(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	pdfPath := ""
	if len(args) == 1 {
		pdfPath = args[0]
	}
	return application.Run(pdfPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
