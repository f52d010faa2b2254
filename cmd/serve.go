package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/markify/core/export"
	"github.com/gaurav-prasanna/markify/server"
)

var (
	flagAddr string
	flagFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live preview with an editing and export API",
	Long: `Serve starts an HTTP server holding one editing session. The preview page
shows the styled document; the API accepts Markdown and rich-text edits,
replaces the style, and exports to any format as a one-shot download.

Examples:
  markify serve
  markify serve --file notes.md --style brand.toml --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagAddr, "addr", "127.0.0.1:8080", "Listen address")
	serveCmd.Flags().StringVar(&flagFile, "file", "", "Markdown file to start the session with")
	addStyleFlag(serveCmd)
	addEngineFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	md, baseDir := "", ""
	if flagFile != "" {
		var err error
		md, baseDir, err = readSource(flagFile)
		if err != nil {
			return err
		}
	} else if wd, err := os.Getwd(); err == nil {
		baseDir = wd
	}

	sess, err := newSession(md)
	if err != nil {
		return err
	}
	strategies, err := newStrategies(cmd, baseDir)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	downloads := server.NewDownloads()
	notices := &server.Notices{}
	coord := export.NewCoordinator(downloads, strategies,
		export.WithLogger(logger),
		export.WithNotifier(notices),
		export.WithMetrics(export.NewMetrics(reg)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(server.Config{
		Session:     sess,
		Coordinator: coord,
		Downloads:   downloads,
		Notices:     notices,
		Gatherer:    reg,
		Logger:      logger,
		Origins:     server.ListenOrigins(flagAddr),
	}).Run(ctx, flagAddr)
}
