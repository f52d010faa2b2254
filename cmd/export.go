// Export command.
// This is the main command that orchestrates the pipeline:
// read → render (style + container) → export strategy → write.
//
// It handles flag validation, format and engine selection, and --all.

package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/export"
	"github.com/gaurav-prasanna/markify/core/output"
)

// Flag variables.
var (
	flagAll       bool
	flagPDF       bool
	flagDOCX      bool
	flagODT       bool
	flagPNG       bool
	flagHTML      bool
	flagMarkdown  bool
	flagOutputDir string
)

var exportCmd = &cobra.Command{
	Use:   "export <file.md|->",
	Short: "Export a Markdown file to the specified format",
	Long: `Export renders a Markdown file with the chosen style and writes it in the
specified format (PDF, DOCX, ODT, PNG, HTML, or Markdown). Existing files are
never overwritten; a numbered copy is written instead.

Examples:
  markify export notes.md --pdf
  markify export notes.md --docx --style brand.toml --output_dir ./out
  markify export notes.md --png --png_engine chrome
  cat notes.md | markify export - --all`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	// Output format flags (mutually exclusive).
	exportCmd.Flags().BoolVar(&flagAll, "all", false, "Export every format")
	exportCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")
	exportCmd.Flags().BoolVar(&flagDOCX, "docx", false, "Output Word document")
	exportCmd.Flags().BoolVar(&flagODT, "odt", false, "Output word processor document (DOCX container)")
	exportCmd.Flags().BoolVar(&flagPNG, "png", false, "Output PNG image")
	exportCmd.Flags().BoolVar(&flagHTML, "html", false, "Output standalone HTML")
	exportCmd.Flags().BoolVar(&flagMarkdown, "md", false, "Output Markdown")

	// Output directory.
	exportCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")

	addStyleFlag(exportCmd)
	addEngineFlags(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	// --- Validate flags ---
	if err := validateFlags(); err != nil {
		return err
	}
	formats := selectFormats()

	md, baseDir, err := readSource(args[0])
	if err != nil {
		return err
	}

	// Initialize pipeline components.
	sess, err := newSession(md)
	if err != nil {
		return err
	}
	strategies, err := newStrategies(cmd, baseDir)
	if err != nil {
		return err
	}
	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	coord := export.NewCoordinator(writer, strategies,
		export.WithLogger(logger),
		export.WithNotifier(core.NotifierFunc(func(msg string) {
			fmt.Fprintf(os.Stderr, "  ✗ %s\n", msg)
		})),
	)

	snap, err := sess.Snapshot()
	if err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}

	ctx := cmd.Context()
	var errCount int
	for i, f := range formats {
		if len(formats) > 1 {
			fmt.Fprintf(os.Stdout, "[%d/%d] Exporting %s\n", i+1, len(formats), f)
		}
		path, err := coord.Export(ctx, f, snap)
		if err != nil {
			logger.Debug("Export failed", "format", f, "err", err)
			errCount++
			continue
		}
		size := ""
		if info, err := os.Stat(path); err == nil {
			size = " (" + humanize.Bytes(uint64(info.Size())) + ")"
		}
		fmt.Fprintf(os.Stdout, "✓ Written: %s%s\n", path, size)
	}

	if errCount > 0 {
		return fmt.Errorf("%d/%d exports failed", errCount, len(formats))
	}
	return nil
}

// validateFlags checks that exactly one output format is chosen, or --all.
func validateFlags() error {
	// Count output formats.
	formatCount := 0
	for _, set := range []bool{flagPDF, flagDOCX, flagODT, flagPNG, flagHTML, flagMarkdown} {
		if set {
			formatCount++
		}
	}

	if flagAll && formatCount > 0 {
		return fmt.Errorf("--all cannot be combined with a format flag")
	}
	if !flagAll && formatCount == 0 {
		return fmt.Errorf("exactly one output format is required: --pdf, --docx, --odt, --png, --html, --md, or --all")
	}
	if formatCount > 1 {
		return fmt.Errorf("only one output format allowed per run (got %d); use --all for every format", formatCount)
	}
	return nil
}

// selectFormats returns the formats to export based on flags.
func selectFormats() []core.Format {
	switch {
	case flagAll:
		// odt produces the same artifact as docx.
		return []core.Format{core.FormatPDF, core.FormatDOCX, core.FormatPNG, core.FormatHTML, core.FormatMarkdown}
	case flagPDF:
		return []core.Format{core.FormatPDF}
	case flagDOCX:
		return []core.Format{core.FormatDOCX}
	case flagODT:
		return []core.Format{core.FormatODT}
	case flagPNG:
		return []core.Format{core.FormatPNG}
	case flagHTML:
		return []core.Format{core.FormatHTML}
	default:
		return []core.Format{core.FormatMarkdown}
	}
}
