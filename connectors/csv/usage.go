package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"costlens/domain/usage"
)

// Columns recognized in a usage export. Header matching is
// case-insensitive; any column may be absent.
const (
	colDate          = "date"
	colCost          = "costinbillingcurrency"
	colService       = "servicefamily"
	colResourceID    = "resourceid"
	colResourceGroup = "resourcegroupname"
)

// ReadUsageFile decodes the usage export CSV at path.
func ReadUsageFile(path string) ([]usage.UsageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := DecodeUsage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// DecodeUsage converts a delimited usage export into records. Bad cells
// never fail the decode: missing columns and short rows yield empty
// values, and an unparseable cost counts as 0. Only unreadable input
// (I/O or malformed CSV framing) is an error.
func DecodeUsage(r io.Reader) ([]usage.UsageRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return []usage.UsageRecord{}, nil
		}
		return nil, err
	}
	idx := indexMap(head)

	records := []usage.UsageRecord{}
	for {
		rec, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		records = append(records, usage.UsageRecord{
			Date:              cell(rec, idx, colDate),
			Cost:              parseCost(cell(rec, idx, colCost)),
			ServiceFamily:     cell(rec, idx, colService),
			ResourceID:        cell(rec, idx, colResourceID),
			ResourceGroupName: cell(rec, idx, colResourceGroup),
		})
	}
	return records, nil
}

// WriteUsageFile writes records in the same five-column shape DecodeUsage
// reads, so an imported export round-trips through analyze and web.
func WriteUsageFile(path string, records []usage.UsageRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"date", "costInBillingCurrency", "serviceFamily", "resourceId", "resourceGroupName"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date,
			strconv.FormatFloat(r.Cost, 'f', -1, 64),
			r.ServiceFamily,
			r.ResourceID,
			r.ResourceGroupName,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func indexMap(headers []string) map[string]int {
	m := map[string]int{}
	for i, h := range headers {
		m[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return m
}

func cell(rec []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseCost(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
