package analyze

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	ccsv "costlens/connectors/csv"
	"costlens/domain/usage"
)

// Run executes the analyze command: decode one usage export, aggregate
// it, and write the report CSVs into the output directory.
func Run(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fs.String("file", "", "usage export CSV to analyze")
	out := fs.String("out", "data", "directory for report CSVs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		slog.Error("analyze.validation.error", "reason", "missing file")
		return fmt.Errorf("analyze: -file is required")
	}

	records, err := ccsv.ReadUsageFile(*file)
	if err != nil {
		slog.Error("analyze.read.error", "file", *file, "error", err)
		return err
	}

	summary := usage.Aggregate(records)

	if err := ccsv.WriteReports(*out, summary); err != nil {
		slog.Error("analyze.report.error", "out", *out, "error", err)
		return err
	}

	slog.Info("analyze.done", "file", *file, "records", len(records), "days", len(summary.DailyCosts), "total_cost", summary.TotalCost)
	return nil
}
