package cmd

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/markify/core/extract"
	"github.com/gaurav-prasanna/markify/core/fetch"
	"github.com/gaurav-prasanna/markify/core/normalize"
)

var flagOut string

var importCmd = &cobra.Command{
	Use:   "import <file|url>",
	Short: "Convert an HTML page or saved rich text into Markdown",
	Long: `Import fetches an HTML page (or reads a local HTML file), keeps the main
content and converts it to Markdown, the same way rich-text edits are turned
into Markdown in the editor.

Examples:
  markify import https://example.com/post
  markify import clipboard.html --out notes.md`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&flagOut, "out", "", "Write Markdown to this file instead of stdout")
}

func runImport(cmd *cobra.Command, args []string) error {
	src := args[0]

	// 1. Fetch
	result, err := fetch.New().Fetch(cmd.Context(), src)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	// 2. Extract main content
	content, err := extract.New().Extract(result.HTML())
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	// 3. Normalize to Markdown, resolving links against the page when remote
	n := normalize.New()
	var md string
	if u, err := url.Parse(src); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		md, err = n.NormalizePage(content, src)
		if err != nil {
			return fmt.Errorf("normalize: %w", err)
		}
	} else {
		md, err = n.Normalize(content)
		if err != nil {
			return fmt.Errorf("normalize: %w", err)
		}
	}
	logger.Debug("Imported", "source", src, "bytes", len(md))

	if flagOut == "" {
		_, err := fmt.Fprint(os.Stdout, md)
		return err
	}
	if err := os.WriteFile(flagOut, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing file %s: %w", flagOut, err)
	}
	fmt.Fprintf(os.Stderr, "✓ Written: %s\n", flagOut)
	return nil
}
