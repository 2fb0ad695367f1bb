package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/use-agent/pdpscrape/api"
	"github.com/use-agent/pdpscrape/checkpoint"
	"github.com/use-agent/pdpscrape/config"
	"github.com/use-agent/pdpscrape/engine"
	"github.com/use-agent/pdpscrape/locator"
	"github.com/use-agent/pdpscrape/metrics"
	"github.com/use-agent/pdpscrape/models"
	"github.com/use-agent/pdpscrape/scraper"
	"github.com/use-agent/pdpscrape/sheet"
	"github.com/use-agent/pdpscrape/webhook"
)

// app carries what one invocation needs. open is nil in production, where
// the session comes from scraper.Open.
type app struct {
	cfg       *config.Config
	stdout    io.Writer
	open      engine.Opener
	inputFile string
	logReady  bool
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdpscrape",
		Short: "Scrape product detail pages listed in a spreadsheet",
		Long: `pdpscrape visits every URL of the input table in order, extracts the
product fields of each page and writes them to the output table, saving
every --batch-size rows. URLs that cannot be scraped go to failed_urls.xlsx
in the output folder.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context())
		},
	}

	cfg := a.cfg
	f := cmd.Flags()
	f.StringVar(&a.inputFile, "input-file", "", "input table (.xlsx or .csv) with URL and Title columns")
	f.StringVar(&cfg.Output.Dir, "output-folder", cfg.Output.Dir, "directory for the output and failure tables")
	f.StringVar(&cfg.Output.File, "output-file", cfg.Output.File, "output table path (default <output-folder>/"+config.DefaultOutputFile+")")
	f.IntVar(&cfg.Output.BatchSize, "batch-size", cfg.Output.BatchSize, "rows between checkpoint saves")
	f.IntVar(&cfg.Navigation.MaxRetries, "max-retries", cfg.Navigation.MaxRetries, "page load retries after a timeout")
	f.StringVar(&cfg.Browser.Engine, "engine", cfg.Browser.Engine, "session engine: browser or http")
	f.BoolVar(&cfg.Browser.Headless, "headless", cfg.Browser.Headless, "run the browser headless")
	f.StringVar(&cfg.Status.Addr, "status-addr", cfg.Status.Addr, "serve progress and metrics on this address")
	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	_ = cmd.MarkFlagRequired("input-file")
	_ = cmd.MarkFlagRequired("output-folder")

	return cmd
}

func (a *app) run(ctx context.Context) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	table := locator.Default()
	if err := table.Validate(); err != nil {
		return fmt.Errorf("invalid locator table: %w", err)
	}

	runID := uuid.NewString()
	logger, logCloser := initLogger(cfg.Log, a.stdout)
	defer logCloser.Close()
	slog.SetDefault(logger.With("run_id", runID))
	a.logReady = true

	rows, err := sheet.ReadRows(a.inputFile)
	if err != nil {
		return err
	}
	output, err := sheet.NewTable(cfg.OutputPath())
	if err != nil {
		return err
	}
	failures, err := sheet.NewTable(cfg.FailedPath())
	if err != nil {
		return err
	}

	slog.Info("pdpscrape starting",
		"input", a.inputFile,
		"rows", len(rows),
		"output", output.Path(),
		"engine", cfg.Browser.Engine,
		"batchSize", cfg.Output.BatchSize,
		"maxRetries", cfg.Navigation.MaxRetries,
	)

	m := metrics.New()
	progress := engine.NewProgress(runID)

	if cfg.Status.Addr != "" {
		srv := api.NewServer(cfg.Status, api.NewRouter(cfg.Status, progress, m, time.Now()))
		go func() {
			slog.Info("status server listening", "addr", cfg.Status.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status server error", "error", err)
			}
		}()
		defer shutdown(srv)
	}

	open := a.open
	if open == nil {
		open = func() (scraper.Page, error) { return scraper.Open(cfg.Browser) }
	}

	opts := []engine.Option{engine.WithMetrics(m)}
	agg := checkpoint.New(cfg.Output.BatchSize, output, failures, m)
	proc := engine.NewProcessor(cfg, table, opts...)
	runner := engine.NewRunner(open, proc, agg, progress, cfg.Navigation.RequestsPerSecond, opts...)

	summary, runErr := runner.Run(ctx, rows)
	if models.HasCode(runErr, models.ErrCodeSessionInit) {
		return runErr
	}
	summary.OutputPath = output.Path()
	if agg.FailuresSaved() {
		summary.FailedPath = failures.Path()
	}

	notify(webhook.New(cfg.Webhook), summary)
	printSummary(a.stdout, summary)
	return runErr
}

// notify sends the completion event. It runs after an interrupt too, so it
// does not inherit the run context.
func notify(n *webhook.Notifier, summary models.RunSummary) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := n.Send(ctx, &webhook.Event{
		Type:      webhook.EventRunCompleted,
		RunID:     summary.RunID,
		Timestamp: time.Now().Unix(),
		Data:      summary,
	})
	if err != nil {
		slog.Error("webhook not delivered", "error", err)
	}
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("status server forced shutdown", "error", err)
	}
}

func printSummary(w io.Writer, s models.RunSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Run Summary ===")
	fmt.Fprintf(w, "Run ID:       %s\n", s.RunID)
	fmt.Fprintf(w, "Rows:         %d\n", s.Total)
	fmt.Fprintf(w, "Succeeded:    %d\n", s.Succeeded)
	fmt.Fprintf(w, "Failed:       %d\n", s.Failed)
	fmt.Fprintf(w, "Checkpoints:  %d\n", s.Checkpoints)
	fmt.Fprintf(w, "Duration:     %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Output:       %s\n", s.OutputPath)
	if s.FailedPath != "" {
		fmt.Fprintf(w, "Failed URLs:  %s\n", s.FailedPath)
	}
	if s.Interrupted {
		fmt.Fprintln(w, "Interrupted before every row was processed.")
	}
}
