package ui

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastedash/adapters/excel"
	"wastedash/domain/waste"
	"wastedash/internal"
	"wastedash/internal/markers"
	"wastedash/internal/pipeline"
	"wastedash/internal/views"
	"wastedash/ui/middleware"
)

const vinylCSV = "시군,2020_하우스,2020_멀칭,2021_하우스,2021_멀칭,증감_하우스\n" +
	"전주시,\"1,000\",200,\"1,100\",250,100\n" +
	"익산시,500,400,,300,-\n"

const pointsCSV = "지역,위도,경도,발생량\n" +
	"전주시,35.8242,127.1480,\"10,000\"\n" +
	"군산시,35.9676,126.7366,\"2,500\"\n" +
	"미상,,127.0,10\n"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, withMarkers bool) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vinyl.csv"), []byte(vinylCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "points.csv"), []byte(pointsCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.csv"), []byte("구분,연도\nA,1\n"), 0o644))

	logger := internal.NewLogger(internal.LogLevelError)
	cache := pipeline.NewSourceCache(excel.NewDataReader(logger), logger)
	viewSvc := views.NewService(cache, []views.ViewSpec{
		{ID: "vinyl", Title: "vinyl", File: "vinyl.csv", Dimensionality: waste.DimensionMetric, ValueLabel: "amount", Unit: "t"},
		{ID: "broken", File: "broken.csv", Dimensionality: waste.DimensionBare},
		{ID: "missing", File: "missing.csv", Dimensionality: waste.DimensionBare},
	}, views.Options{DataDir: dir, DefaultEncodings: waste.DefaultEncodings, Logger: logger})

	var markerSvc *markers.Service
	if withMarkers {
		markerSvc = markers.NewService(cache, waste.Source{Path: filepath.Join(dir, "points.csv")}, markers.ColumnMapping{}, 4, 20)
	}
	return NewServer(viewSvc, markerSvc, logger)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t, false)

	w := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Header().Get(middleware.RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, id)
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get(middleware.RequestIDHeader))
}

func TestListViews(t *testing.T) {
	w := get(t, newTestServer(t, false), "/api/views")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decode(t, w)["count"])
}

func TestRecordsWithSelection(t *testing.T) {
	s := newTestServer(t, false)

	w := get(t, s, "/api/views/vinyl/records")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 8, decode(t, w)["count"], "derived 증감 column dropped")

	w = get(t, s, "/api/views/vinyl/records?"+url.Values{
		"category": {"익산시"},
		"year":     {"2021"},
		"metric":   {"하우스"},
	}.Encode())
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.EqualValues(t, 1, body["count"])
	record := body["records"].([]interface{})[0].(map[string]interface{})
	assert.Nil(t, record["value"])

	w = get(t, s, "/api/views/vinyl/records?year=twenty")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummaryAndPivot(t *testing.T) {
	s := newTestServer(t, false)

	w := get(t, s, "/api/views/vinyl/summary?"+url.Values{"metric": {"하우스"}}.Encode())
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode(t, w)["summary"].(map[string]interface{})
	assert.EqualValues(t, 2600, summary["total"])
	assert.Equal(t, "전주시", summary["top_category"])

	w = get(t, s, "/api/views/vinyl/summary?group_by=month")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, s, "/api/views/vinyl/pivot?"+url.Values{"metric": {"멀칭"}}.Encode())
	require.Equal(t, http.StatusOK, w.Code)
	pivot := decode(t, w)["pivot"].(map[string]interface{})
	rows := pivot["rows"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "전주시", rows[0].(map[string]interface{})["category"])
	assert.EqualValues(t, -100, rows[1].(map[string]interface{})["change"])
}

func TestShares(t *testing.T) {
	w := get(t, newTestServer(t, false), "/api/views/vinyl/shares?"+url.Values{"metric": {"멀칭"}}.Encode())
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2021, body["year"])
	assert.Len(t, body["shares"], 2)
}

func TestChart(t *testing.T) {
	s := newTestServer(t, false)

	w := get(t, s, "/api/views/vinyl/chart.png?kind=line")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = get(t, s, "/api/views/vinyl/chart.png?kind=bar")
	require.Equal(t, http.StatusOK, w.Code, "metric bars across years draw the latest year")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = get(t, s, "/api/views/vinyl/chart.png?kind=pie")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileFlagsDerivedColumns(t *testing.T) {
	w := get(t, newTestServer(t, false), "/api/views/vinyl/profile")
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode(t, w)["profile"].(map[string]interface{})
	columns := profile["columns"].([]interface{})
	require.Len(t, columns, 5)

	derived := columns[4].(map[string]interface{})
	assert.Equal(t, "증감_하우스", derived["column"])
	assert.Equal(t, true, derived["excluded"])
	assert.Equal(t, false, columns[0].(map[string]interface{})["excluded"])
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, false)

	w := get(t, s, "/api/views/broken/records")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "연도", body["column"])
	assert.Equal(t, "COLUMN_FORMAT_ERROR", body["code"])

	w = get(t, s, "/api/views/missing/summary")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = get(t, s, "/api/views/unknown/pivot")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, s, "/api/views/vinyl")
	assert.Equal(t, http.StatusOK, w.Code, "healthy views unaffected")
}

func TestMarkers(t *testing.T) {
	w := get(t, newTestServer(t, false), "/api/markers")
	assert.Equal(t, http.StatusNotFound, w.Code)

	s := newTestServer(t, true)
	w = get(t, s, "/api/markers")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2, body["count"])
	assert.EqualValues(t, 1, body["skipped"])
	assert.Contains(t, body, "center")

	w = get(t, s, "/api/markers?format=geojson")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FeatureCollection", decode(t, w)["type"])
}
