package usage

import (
	"sort"
	"strings"

	lo "github.com/samber/lo"
)

// Labels substituted for missing grouping fields, plus the sentinel used
// for empty result entries.
const (
	unknownDate     = "Unknown"
	otherServices   = "Others"
	unassignedGroup = "Unassigned"
	unnamedResource = "Unnamed"
	sentinelName    = "N/A"

	maxNameLen       = 30
	maxResourceGroup = 5
)

// Aggregate derives a Summary from an already-decoded usage export.
// It is pure and total: records are only read, the same input always
// yields the same output, and empty input yields EmptySummary rather
// than an error.
func Aggregate(records []UsageRecord) Summary {
	s := EmptySummary()

	s.TotalCost = lo.SumBy(records, func(r UsageRecord) float64 { return r.Cost })

	daily := groupSum(records, func(r UsageRecord) string {
		if r.Date == "" {
			return unknownDate
		}
		return r.Date
	})
	sort.SliceStable(daily, func(i, j int) bool { return daily[i].key < daily[j].key })
	s.DailyCosts = lo.Map(daily, func(g groupTotal, _ int) DailyCost {
		return DailyCost{Date: g.key, Cost: g.sum}
	})
	if len(s.DailyCosts) > 0 {
		s.DailyAverage = s.TotalCost / float64(len(s.DailyCosts))
		peak := s.DailyCosts[0]
		for _, d := range s.DailyCosts[1:] {
			// strictly greater, so ties keep the earliest date
			if d.Cost > peak.Cost {
				peak = d
			}
		}
		s.PeakUsage = peak
	}

	services := dropArtifacts(groupSum(records, func(r UsageRecord) string {
		if r.ServiceFamily == "" {
			return otherServices
		}
		return r.ServiceFamily
	}))
	sortBySumDesc(services)
	s.ServiceBreakdown = lo.Map(services, func(g groupTotal, _ int) ServiceCost {
		return ServiceCost{Name: g.key, Value: g.sum}
	})
	if len(s.ServiceBreakdown) > 0 {
		s.TopService = s.ServiceBreakdown[0]
	}

	resources := lo.Filter(groupSum(records, func(r UsageRecord) string { return r.ResourceID }),
		func(g groupTotal, _ int) bool { return g.sum > 0 })
	sortBySumDesc(resources)
	if len(resources) > 0 {
		s.ResourceCosts = NamedCost{Name: resourceName(resources[0].key), Cost: resources[0].sum}
	}

	groups := dropArtifacts(groupSum(records, func(r UsageRecord) string {
		if r.ResourceGroupName == "" {
			return unassignedGroup
		}
		return r.ResourceGroupName
	}))
	sortBySumDesc(groups)
	if len(groups) > maxResourceGroup {
		groups = groups[:maxResourceGroup]
	}
	s.ResourceGroupCosts = lo.Map(groups, func(g groupTotal, _ int) NamedCost {
		return NamedCost{Name: truncateName(g.key), Cost: g.sum}
	})

	return s
}

// groupTotal is one partition's grouping key and summed cost.
type groupTotal struct {
	key string
	sum float64
}

// groupSum partitions records by key and sums cost per partition. Keys
// keep first-encounter order so stable sorts downstream break ties the
// same way on every run; map iteration order never reaches the result.
func groupSum(records []UsageRecord, key func(UsageRecord) string) []groupTotal {
	idx := make(map[string]int, len(records))
	groups := make([]groupTotal, 0, len(records))
	for _, r := range records {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, groupTotal{key: k})
		}
		groups[i].sum += r.Cost
	}
	return groups
}

func sortBySumDesc(groups []groupTotal) {
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].sum > groups[j].sum })
}

// dropArtifacts removes partitions whose summed cost is not positive and
// partitions literally named "null" or "undefined" — upstream decoders
// stringify missing values that way, so malformed exports can produce
// them even though a well-typed file never does.
func dropArtifacts(groups []groupTotal) []groupTotal {
	return lo.Filter(groups, func(g groupTotal, _ int) bool {
		return g.key != "null" && g.key != "undefined" && g.sum > 0
	})
}

// resourceName derives the display name for a resource id: the segment
// after the last "/", truncated, or "Unnamed" when the id is empty.
func resourceName(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if id == "" {
		return unnamedResource
	}
	return truncateName(id)
}

func truncateName(name string) string {
	r := []rune(name)
	if len(r) <= maxNameLen {
		return name
	}
	return string(r[:maxNameLen])
}
