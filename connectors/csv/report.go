package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"costlens/domain/usage"
)

// WriteReports writes all summary report CSVs into dir.
func WriteReports(dir string, s usage.Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeSummaryCSV(filepath.Join(dir, "summary.csv"), s); err != nil {
		return err
	}
	if err := writeDailyCostsCSV(filepath.Join(dir, "daily_costs.csv"), s.DailyCosts); err != nil {
		return err
	}
	if err := writeServiceBreakdownCSV(filepath.Join(dir, "service_breakdown.csv"), s.ServiceBreakdown); err != nil {
		return err
	}
	return writeResourceGroupCostsCSV(filepath.Join(dir, "resource_group_costs.csv"), s.ResourceGroupCosts)
}

func writeSummaryCSV(path string, s usage.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	headers := []string{"total_cost", "daily_average", "peak_date", "peak_cost", "top_service", "top_service_cost", "top_resource", "top_resource_cost"}
	if err := w.Write(headers); err != nil {
		return err
	}
	row := []string{
		formatCost(s.TotalCost),
		formatCost(s.DailyAverage),
		s.PeakUsage.Date,
		formatCost(s.PeakUsage.Cost),
		s.TopService.Name,
		formatCost(s.TopService.Value),
		s.ResourceCosts.Name,
		formatCost(s.ResourceCosts.Cost),
	}
	if err := w.Write(row); err != nil {
		return err
	}
	return w.Error()
}

func writeDailyCostsCSV(path string, daily []usage.DailyCost) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"date", "cost"}); err != nil {
		return err
	}
	for _, d := range daily {
		if err := w.Write([]string{d.Date, formatCost(d.Cost)}); err != nil {
			return err
		}
	}
	return w.Error()
}

func writeServiceBreakdownCSV(path string, services []usage.ServiceCost) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"service", "cost"}); err != nil {
		return err
	}
	for _, s := range services {
		if err := w.Write([]string{s.Name, formatCost(s.Value)}); err != nil {
			return err
		}
	}
	return w.Error()
}

func writeResourceGroupCostsCSV(path string, groups []usage.NamedCost) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"resource_group", "cost"}); err != nil {
		return err
	}
	for _, g := range groups {
		if err := w.Write([]string{g.Name, formatCost(g.Cost)}); err != nil {
			return err
		}
	}
	return w.Error()
}

func formatCost(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
