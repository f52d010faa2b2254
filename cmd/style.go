package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/style"
)

var styleCmd = &cobra.Command{
	Use:   "style",
	Short: "Print the resolved style and the page geometry it produces",
	Long: `Style loads a TOML style file over the defaults (or just the defaults)
and prints the result as TOML, followed by the desktop and mobile geometry.
The TOML output is a complete style file ready to edit.

Examples:
  markify style > brand.toml
  markify style --style brand.toml`,
	Args: cobra.NoArgs,
	RunE: runStyle,
}

func init() {
	rootCmd.AddCommand(styleCmd)
	addStyleFlag(styleCmd)
}

func runStyle(cmd *cobra.Command, args []string) error {
	cfg, err := loadStyle()
	if err != nil {
		return err
	}
	if err := style.Write(os.Stdout, cfg); err != nil {
		return err
	}

	desktop := container.ComputeGeometry(cfg, false)
	mobile := container.ComputeGeometry(cfg, true)
	fmt.Fprintf(os.Stdout, "\n# page: %s %gmm × %gmm, padding %s, base %dpx, headings %v\n",
		cfg.PaperSize, desktop.Page.Width, desktop.Page.Height, desktop.Padding, desktop.FontSize, desktop.Headings)
	fmt.Fprintf(os.Stdout, "# mobile: width %s, padding %s, base %dpx, headings %v\n",
		mobile.Width, mobile.Padding, mobile.FontSize, mobile.Headings)
	return nil
}
