package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2/google"

	"costlens/domain/usage"
)

const bigQueryScope = "https://www.googleapis.com/auth/bigquery.readonly"

// Client reads daily cost rows from a GCP billing export in BigQuery.
type Client struct {
	projectID      string
	billingDataset string
	serviceAccount string // JSON key file content; empty means ADC
}

// NewClient creates a new BigQuery billing export client. When
// serviceAccountJSON is empty, Application Default Credentials are used.
func NewClient(projectID, billingDataset, serviceAccountJSON string) *Client {
	if billingDataset == "" {
		billingDataset = "billing_export"
	}
	return &Client{
		projectID:      projectID,
		billingDataset: billingDataset,
		serviceAccount: serviceAccountJSON,
	}
}

func (c *Client) httpClient(ctx context.Context) (*http.Client, error) {
	if c.serviceAccount != "" {
		cfg, err := google.JWTConfigFromJSON([]byte(c.serviceAccount), bigQueryScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
		}
		return cfg.Client(ctx), nil
	}
	client, err := google.DefaultClient(ctx, bigQueryScope)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default credentials: %w", err)
	}
	return client, nil
}

// bigQueryRequest represents a BigQuery query request
type bigQueryRequest struct {
	Query        string `json:"query"`
	UseLegacySQL bool   `json:"useLegacySQL"`
	MaxResults   int    `json:"maxResults,omitempty"`
	TimeoutMs    int    `json:"timeoutMs,omitempty"`
}

// bigQueryResponse represents a BigQuery query response
type bigQueryResponse struct {
	Schema struct {
		Fields []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fields"`
	} `json:"schema"`
	Rows []struct {
		F []cellValue `json:"f"`
	} `json:"rows"`
	TotalRows string `json:"totalRows"`
}

type cellValue struct {
	V interface{} `json:"v"`
}

// FetchUsage retrieves daily cost rows for the last N months from the
// resource-level billing export, mapped to the engine's record shape
// (service description -> service family, project id -> resource group).
func (c *Client) FetchUsage(ctx context.Context, months int) ([]usage.UsageRecord, error) {
	httpClient, err := c.httpClient(ctx)
	if err != nil {
		return nil, err
	}

	to := time.Now()
	from := to.AddDate(0, -months, 0)

	// Assumes resource-level billing export is set up to BigQuery.
	// Table format: PROJECT_ID.DATASET.gcp_billing_export_resource_v1_*
	query := fmt.Sprintf(`
		SELECT
			FORMAT_DATE('%%Y-%%m-%%d', DATE(usage_start_time)) as usage_date,
			service.description as service_family,
			resource.global_name as resource_id,
			project.id as resource_group,
			SUM(cost) as total_cost
		FROM
			%s.%s.gcp_billing_export_resource_*
		WHERE
			_TABLE_SUFFIX BETWEEN '%s' AND '%s'
		GROUP BY
			usage_date, service_family, resource_id, resource_group
		ORDER BY
			usage_date
	`, c.projectID, c.billingDataset, from.Format("20060102"), to.Format("20060102"))

	reqBody := bigQueryRequest{
		Query:        query,
		UseLegacySQL: false,
		MaxResults:   10000,
		TimeoutMs:    30000,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("https://bigquery.googleapis.com/bigquery/v2/projects/%s/queries", c.projectID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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

	var queryResp bigQueryResponse
	if err := json.Unmarshal(body, &queryResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return parseResponse(&queryResp), nil
}

// parseResponse converts a BigQuery response to usage records. Rows with
// an unreadable date or cost are skipped; missing dimension cells decode
// empty and fall through to the engine's defaults.
func parseResponse(resp *bigQueryResponse) []usage.UsageRecord {
	dateIdx := -1
	serviceIdx := -1
	resourceIdx := -1
	groupIdx := -1
	costIdx := -1

	for i, field := range resp.Schema.Fields {
		switch field.Name {
		case "usage_date":
			dateIdx = i
		case "service_family":
			serviceIdx = i
		case "resource_id":
			resourceIdx = i
		case "resource_group":
			groupIdx = i
		case "total_cost":
			costIdx = i
		}
	}

	if dateIdx == -1 || costIdx == -1 {
		return nil
	}

	var records []usage.UsageRecord
	for _, row := range resp.Rows {
		if len(row.F) <= dateIdx || len(row.F) <= costIdx {
			continue
		}

		date, ok := row.F[dateIdx].V.(string)
		if !ok {
			continue
		}

		// BigQuery serializes numerics as strings in the REST response.
		var cost float64
		switch v := row.F[costIdx].V.(type) {
		case float64:
			cost = v
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			cost = parsed
		default:
			continue
		}

		records = append(records, usage.UsageRecord{
			Date:              date,
			Cost:              cost,
			ServiceFamily:     stringCell(row.F, serviceIdx),
			ResourceID:        stringCell(row.F, resourceIdx),
			ResourceGroupName: stringCell(row.F, groupIdx),
		})
	}
	return records
}

func stringCell(cells []cellValue, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	s, _ := cells[idx].V.(string)
	return s
}
