package cmdimport

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"costlens/connectors/azure"
	"costlens/connectors/config"
	ccsv "costlens/connectors/csv"
	"costlens/connectors/gcp"
	"costlens/domain/usage"
)

// Run executes the import subcommand: fetch daily usage-cost rows from
// the configured cloud providers and write them as a usage export the
// analyze and web commands can consume.
func Run(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	out := fs.String("out", filepath.Join("data", "cost_export.csv"), "output path for the usage export CSV")
	months := fs.Int("months", 1, "how many months back to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	slog.Info("import.start", "months", *months, "out", *out)
	ctx := context.Background()

	var allRecords []usage.UsageRecord

	// Azure: credentials from env, subscription list from env or config.
	azureSubscriptionIDs := os.Getenv("AZURE_SUBSCRIPTION_ID")
	azureTenantID := os.Getenv("AZURE_TENANT_ID")
	azureClientID := os.Getenv("AZURE_CLIENT_ID")
	azureClientSecret := os.Getenv("AZURE_CLIENT_SECRET")

	var subscriptions []string
	for _, s := range strings.Split(azureSubscriptionIDs, ",") {
		if s = strings.TrimSpace(s); s != "" {
			subscriptions = append(subscriptions, s)
		}
	}
	cfgPath := config.Path()
	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err == nil {
		cfg, _ = config.Load(cfgPath)
	}
	if len(subscriptions) == 0 && cfg != nil {
		subscriptions = cfg.Azure.Subscriptions
	}

	if len(subscriptions) > 0 && azureTenantID != "" && azureClientID != "" && azureClientSecret != "" {
		slog.Info("import.azure.fetch.start", "subscriptions", len(subscriptions))
		for _, subID := range subscriptions {
			slog.Info("import.azure.fetch.subscription", "subscription_id", subID)
			client := azure.NewClient(subID, azureTenantID, azureClientID, azureClientSecret)
			records, err := client.FetchUsage(ctx, *months)
			if err != nil {
				slog.Warn("import.azure.fetch.error", "subscription_id", subID, "error", err)
				fmt.Fprintf(os.Stderr, "Warning: failed to fetch Azure usage for subscription %s: %v\n", subID, err)
				continue
			}
			allRecords = append(allRecords, records...)
			slog.Info("import.azure.fetch.done", "subscription_id", subID, "count", len(records))
		}
	} else {
		slog.Info("import.azure.skip", "reason", "missing credentials or subscriptions")
	}

	// GCP: billing export in BigQuery. Service account JSON is optional,
	// ADC is used when it is absent.
	gcpProjectID := os.Getenv("GCP_PROJECT_ID")
	gcpServiceAccountJSON := os.Getenv("GCP_SERVICE_ACCOUNT_JSON")
	gcpDataset := os.Getenv("GCP_BILLING_DATASET")
	if gcpProjectID == "" && cfg != nil {
		gcpProjectID = cfg.GCP.Project
	}
	if gcpDataset == "" && cfg != nil {
		gcpDataset = cfg.GCP.BillingDataset
	}

	if gcpProjectID != "" {
		slog.Info("import.gcp.fetch.start", "project", gcpProjectID)
		client := gcp.NewClient(gcpProjectID, gcpDataset, gcpServiceAccountJSON)
		records, err := client.FetchUsage(ctx, *months)
		if err != nil {
			slog.Warn("import.gcp.fetch.error", "error", err)
			fmt.Fprintf(os.Stderr, "Warning: failed to fetch GCP usage: %v\n", err)
		} else {
			allRecords = append(allRecords, records...)
			slog.Info("import.gcp.fetch.done", "count", len(records))
		}
	} else {
		slog.Info("import.gcp.skip", "reason", "missing GCP_PROJECT_ID")
	}

	if len(allRecords) == 0 {
		slog.Warn("import.no_data")
		return fmt.Errorf("no usage data fetched - check environment variables")
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := ccsv.WriteUsageFile(*out, allRecords); err != nil {
		slog.Error("import.csv.write.error", "error", err)
		return fmt.Errorf("failed to write usage export: %w", err)
	}

	slog.Info("import.done", "records", len(allRecords), "output", *out)
	return nil
}
