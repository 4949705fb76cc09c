package main

import (
	cmdanalyze "costlens/command/analyze"
	cmdimport "costlens/command/import"
	cmdwatch "costlens/command/watch"
	cmdweb "costlens/command/web"
	"fmt"
	"log/slog"
	"os"
)

// Local analyzer and dashboard for cloud usage-cost exports.
// Usage:
//   costlens analyze -file export.csv [-out ./data]
//   costlens import [-months 1] [-out ./data/cost_export.csv]
//   costlens watch -file export.csv [-out ./data]
//   costlens web [-addr :8080] [-ui ./ui/dist] [-file export.csv]
// Notes:
// - analyze/watch/web consume an Azure-shaped cost export CSV (date,
//   costInBillingCurrency, serviceFamily, resourceId, resourceGroupName).
// - import fetches such an export from Azure Cost Management and/or a GCP
//   billing export in BigQuery; credentials come from AZURE_* / GCP_* env vars.

func main() {
	args := os.Args
	// Initialize slog logger (text to stderr, INFO level for now)
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))

	if len(args) > 1 {
		sub := args[1]
		rest := append([]string{}, args[2:]...)
		switch sub {
		case "analyze":
			if err := cmdanalyze.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "import":
			if err := cmdimport.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "watch":
			if err := cmdwatch.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "web":
			if err := cmdweb.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: costlens analyze -file <export.csv> [-out <dir>] | import [-months <n>] [-out <file>] | watch -file <export.csv> [-out <dir>] | web [-addr :8080] [-ui <dir>] [-file <export.csv>]\nENV: set CONFIG_PATH to point to a YAML config file (default ./config.yml)")
	os.Exit(2)
}
