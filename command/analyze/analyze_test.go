package analyze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWritesReports(t *testing.T) {
	dir := t.TempDir()
	export := filepath.Join(dir, "export.csv")
	content := "date,costInBillingCurrency,serviceFamily,resourceId,resourceGroupName\n" +
		"2024-01-01,10,Compute,/r/vm-1,rg1\n" +
		"2024-01-02,20,Storage,/r/disk-1,rg2\n"
	require.NoError(t, os.WriteFile(export, []byte(content), 0o644))
	out := filepath.Join(dir, "reports")

	require.NoError(t, Run([]string{"-file", export, "-out", out}))

	for _, name := range []string{"summary.csv", "daily_costs.csv", "service_breakdown.csv", "resource_group_costs.csv"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestRunRequiresFile(t *testing.T) {
	assert.Error(t, Run(nil))
}

func TestRunMissingExport(t *testing.T) {
	assert.Error(t, Run([]string{"-file", filepath.Join(t.TempDir(), "nope.csv")}))
}
