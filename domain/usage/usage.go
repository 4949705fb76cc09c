package usage

// UsageRecord is one decoded row of a cloud usage-cost export.
// Date is an opaque grouping label and is never parsed as a calendar
// date. A row whose cost cell is absent or non-numeric decodes to 0.
type UsageRecord struct {
	Date              string
	Cost              float64 // costInBillingCurrency
	ServiceFamily     string
	ResourceID        string // hierarchical path-like identifier
	ResourceGroupName string
}

// DailyCost is the summed cost for one distinct date label.
type DailyCost struct {
	Date string  `json:"date"`
	Cost float64 `json:"cost"`
}

// ServiceCost is the summed cost for one service family.
type ServiceCost struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// NamedCost is a summed cost under a display name (a resource or a
// resource group).
type NamedCost struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// Summary is the fixed-shape result of one aggregation pass. It is
// produced fresh on every call and replaced wholesale on the next
// upload; consumers read it read-only.
type Summary struct {
	TotalCost          float64       `json:"totalCost"`
	DailyAverage       float64       `json:"dailyAverage"`
	DailyCosts         []DailyCost   `json:"dailyCosts"`
	PeakUsage          DailyCost     `json:"peakUsage"`
	ServiceBreakdown   []ServiceCost `json:"serviceBreakdown"`
	ResourceCosts      NamedCost     `json:"resourceCosts"`
	ResourceGroupCosts []NamedCost   `json:"resourceGroupCosts"`
	TopService         ServiceCost   `json:"topService"`
}

// EmptySummary returns the sentinel-filled Summary: zero totals, empty
// lists, and "N/A" placeholder entries. It is what Aggregate returns for
// empty input and what callers substitute when aggregation is abandoned.
func EmptySummary() Summary {
	return Summary{
		DailyCosts:         []DailyCost{},
		PeakUsage:          DailyCost{Date: sentinelName},
		ServiceBreakdown:   []ServiceCost{},
		ResourceCosts:      NamedCost{Name: sentinelName},
		ResourceGroupCosts: []NamedCost{},
		TopService:         ServiceCost{Name: sentinelName},
	}
}
