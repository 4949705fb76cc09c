package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costlens/domain/usage"
)

func uploadRequest(t *testing.T, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "export.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSummaryBeforeUpload(t *testing.T) {
	e := newServer(&summaryState{}, "")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadThenSummary(t *testing.T) {
	e := newServer(&summaryState{}, "")

	content := "date,costInBillingCurrency,serviceFamily,resourceId,resourceGroupName\n" +
		"2024-01-01,10,Compute,/r/vm-1,rg1\n" +
		"2024-01-01,5,Storage,/r/disk-1,rg1\n" +
		"2024-01-02,20,Compute,/r/vm-2,rg2\n"

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, content))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var s usage.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 35.0, s.TotalCost)
	assert.Equal(t, 17.5, s.DailyAverage)
	assert.Equal(t, usage.DailyCost{Date: "2024-01-02", Cost: 20}, s.PeakUsage)
	assert.Equal(t, usage.ServiceCost{Name: "Compute", Value: 30}, s.TopService)
}

func TestUploadReplacesSummaryWholesale(t *testing.T) {
	e := newServer(&summaryState{}, "")

	first := "date,costInBillingCurrency\n2024-01-01,10\n"
	second := "date,costInBillingCurrency\n2024-02-01,3\n"

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, first))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, second))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	var s usage.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 3.0, s.TotalCost)
	assert.Equal(t, []usage.DailyCost{{Date: "2024-02-01", Cost: 3}}, s.DailyCosts)
}

func TestUploadDecodeFailure(t *testing.T) {
	st := &summaryState{}
	e := newServer(st, "")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "date,costInBillingCurrency\n\"2024-01-01,5\n"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, loaded := st.get()
	assert.False(t, loaded, "decode failure must not install a summary")
}

func TestUploadMissingFileField(t *testing.T) {
	e := newServer(&summaryState{}, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummarySections(t *testing.T) {
	e := newServer(&summaryState{}, "")

	content := "date,costInBillingCurrency,serviceFamily,resourceGroupName\n" +
		"2024-01-01,10,Compute,rg1\n" +
		"2024-01-02,20,Storage,rg2\n"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, content))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary/daily", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var daily []usage.DailyCost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &daily))
	assert.Equal(t, []usage.DailyCost{
		{Date: "2024-01-01", Cost: 10},
		{Date: "2024-01-02", Cost: 20},
	}, daily)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary/services", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var services []usage.ServiceCost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	assert.Equal(t, []usage.ServiceCost{
		{Name: "Storage", Value: 20},
		{Name: "Compute", Value: 10},
	}, services)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary/resource_groups", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []usage.NamedCost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	assert.Equal(t, []usage.NamedCost{
		{Name: "rg2", Cost: 20},
		{Name: "rg1", Cost: 10},
	}, groups)
}
