// Package cmd implements the CLI commands for Markify using Cobra.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Global flag variables.
var (
	flagDebug   bool
	flagLogFile string
)

// logger is configured before any subcommand runs.
var logger = slog.New(slog.DiscardHandler)

var closeLog = func() error { return nil }

var rootCmd = &cobra.Command{
	Use:   "markify",
	Short: "Markify: styled Markdown documents exported to PDF, DOCX, PNG, HTML or Markdown",
	Long: `Markify renders Markdown into a styled, paginated document and exports it
to several formats that all match the preview.

Usage:
  markify export <file.md> --pdf [flags]
  markify import <file|url>
  markify style --style style.toml
  markify serve --file notes.md`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		logger, closeLog = newLogger(flagDebug, flagLogFile)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log_file", "", "Also write JSON logs to this file (rotated)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagOrEnv returns the string flag name, falling back to the environment
// variable key when the flag was not given. It runs after .env is loaded.
func flagOrEnv(cmd *cobra.Command, name, key string) string {
	v, _ := cmd.Flags().GetString(name)
	if cmd.Flags().Changed(name) {
		return v
	}
	if env, ok := os.LookupEnv(key); ok {
		return env
	}
	return v
}
