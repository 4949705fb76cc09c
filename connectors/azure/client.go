package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"costlens/domain/usage"
)

// Client handles Azure Cost Management API requests
type Client struct {
	subscriptionID string
	creds          clientcredentials.Config
}

// NewClient creates a new Azure Cost Management API client authenticated
// by the client-credentials flow against the given tenant.
func NewClient(subscriptionID, tenantID, clientID, clientSecret string) *Client {
	return &Client{
		subscriptionID: subscriptionID,
		creds: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
			Scopes:       []string{"https://management.azure.com/.default"},
		},
	}
}

// costQueryRequest represents the request body for Azure Cost Management Query API
type costQueryRequest struct {
	Type       string         `json:"type"`
	Timeframe  string         `json:"timeframe"`
	TimePeriod *timePeriod    `json:"timePeriod,omitempty"`
	Dataset    datasetRequest `json:"dataset"`
}

type timePeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type datasetRequest struct {
	Granularity string            `json:"granularity"`
	Aggregation map[string]aggDef `json:"aggregation"`
	Grouping    []groupingDef     `json:"grouping"`
}

type aggDef struct {
	Name     string `json:"name"`
	Function string `json:"function"`
}

type groupingDef struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// costQueryResponse represents the response from Azure Cost Management Query API
type costQueryResponse struct {
	Properties struct {
		Columns []columnDef `json:"columns"`
		Rows    [][]any     `json:"rows"`
	} `json:"properties"`
}

type columnDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FetchUsage retrieves daily cost rows for the last N months, grouped by
// service family, resource and resource group — the shape the
// aggregation engine consumes.
func (c *Client) FetchUsage(ctx context.Context, months int) ([]usage.UsageRecord, error) {
	to := time.Now()
	from := to.AddDate(0, -months, 0)

	reqBody := costQueryRequest{
		Type:      "ActualCost",
		Timeframe: "Custom",
		TimePeriod: &timePeriod{
			From: from.Format("2006-01-02"),
			To:   to.Format("2006-01-02"),
		},
		Dataset: datasetRequest{
			Granularity: "Daily",
			Aggregation: map[string]aggDef{
				"totalCost": {
					Name:     "Cost",
					Function: "Sum",
				},
			},
			Grouping: []groupingDef{
				{Type: "Dimension", Name: "ServiceFamily"},
				{Type: "Dimension", Name: "ResourceId"},
				{Type: "Dimension", Name: "ResourceGroupName"},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("https://management.azure.com/subscriptions/%s/providers/Microsoft.CostManagement/query?api-version=2023-03-01",
		c.subscriptionID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// The oauth2 client fetches and caches the bearer token on demand.
	httpClient := c.creds.Client(ctx)
	httpClient.Timeout = 30 * time.Second

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch costs: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed: %d %s", resp.StatusCode, string(body))
	}

	var queryResp costQueryResponse
	if err := json.Unmarshal(body, &queryResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return parseResponse(&queryResp), nil
}

// parseResponse converts an Azure query response to usage records. Rows
// with an unreadable cost or date are skipped; missing dimension cells
// decode empty and fall through to the engine's defaults.
func parseResponse(resp *costQueryResponse) []usage.UsageRecord {
	costIdx := -1
	dateIdx := -1
	serviceIdx := -1
	resourceIdx := -1
	groupIdx := -1

	for i, col := range resp.Properties.Columns {
		switch col.Name {
		case "Cost":
			costIdx = i
		case "UsageDate":
			dateIdx = i
		case "ServiceFamily":
			serviceIdx = i
		case "ResourceId":
			resourceIdx = i
		case "ResourceGroupName":
			groupIdx = i
		}
	}

	if costIdx == -1 || dateIdx == -1 {
		return nil
	}

	var records []usage.UsageRecord
	for _, row := range resp.Properties.Rows {
		if len(row) <= costIdx || len(row) <= dateIdx {
			continue
		}

		cost, ok := row[costIdx].(float64)
		if !ok {
			continue
		}

		date, ok := parseUsageDate(row[dateIdx])
		if !ok {
			continue
		}

		records = append(records, usage.UsageRecord{
			Date:              date,
			Cost:              cost,
			ServiceFamily:     stringCell(row, serviceIdx),
			ResourceID:        stringCell(row, resourceIdx),
			ResourceGroupName: stringCell(row, groupIdx),
		})
	}
	return records
}

// parseUsageDate normalizes the UsageDate column (YYYYMMDD as a number,
// or a YYYYMMDD / YYYY-MM-DD string) to a YYYY-MM-DD label.
func parseUsageDate(v any) (string, bool) {
	var raw string
	switch d := v.(type) {
	case float64:
		raw = fmt.Sprintf("%.0f", d)
	case string:
		raw = d
	default:
		return "", false
	}

	t, err := time.Parse("20060102", raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return "", false
		}
	}
	return t.Format("2006-01-02"), true
}

func stringCell(row []any, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	s, _ := row[idx].(string)
	return s
}
