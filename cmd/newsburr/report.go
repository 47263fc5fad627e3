package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/newsburr/internal/history"
	"github.com/FranksOps/newsburr/internal/report"
	"github.com/FranksOps/newsburr/internal/storage"
)

var reportCMD = &cobra.Command{
	Use:   "report",
	Short: "Summarize the run history",
	Long: `Summarize runs stored in the history backend: run count, success rate,
URLs found, and counts per model and per domain.

Example:
  newsburr report --history-backend sqlite --since 168h --format html --out week.html`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	f := reportCMD.Flags()
	f.String("format", "text", "`text/json/html`")
	f.String("out", "", "write the report to this file instead of stdout")
	f.Duration("since", 0, "only include runs newer than this, like `24h`")
	f.String("status", "", "only include runs with this status `success/error`")
	f.String("filter-model", "", "only include runs of this model")
	f.Int("limit", 0, "only include the newest N runs")

	rootCMD.AddCommand(reportCMD)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := settings
	ctx := cmd.Context()

	backend, err := history.Open(ctx, cfg.HistoryBackend, cfg.HistoryDSN, cfg.OutputDir)
	if errors.Is(err, history.ErrDisabled) {
		return errors.New("report needs a history backend, set --history-backend")
	}
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer backend.Close()

	f := cmd.Flags()
	format, _ := f.GetString("format")
	out, _ := f.GetString("out")
	since, _ := f.GetDuration("since")
	status, _ := f.GetString("status")
	model, _ := f.GetString("filter-model")
	limit, _ := f.GetInt("limit")

	filter := storage.Filter{
		Status: storage.Status(status),
		Model:  model,
		Limit:  limit,
	}
	if since > 0 {
		t := time.Now().Add(-since)
		filter.Since = &t
	}

	results, err := backend.Query(ctx, filter)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer file.Close()
		w = file
	}

	return report.Write(w, format, report.GenerateSummary(results))
}
