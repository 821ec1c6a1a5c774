package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-stats-api/internal/models"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

type fakeStatsSrv struct {
	global      *models.GlobalStatsResponse
	perCourse   []models.CourseStats
	lastUpdated *models.LastUpdatedResponse
	refresh     *models.RefreshResponse
	err         error
	lastIDs     []int
}

func (f *fakeStatsSrv) GetGlobal(_ context.Context, ids []int) (*models.GlobalStatsResponse, error) {
	f.lastIDs = ids
	return f.global, f.err
}

func (f *fakeStatsSrv) GetPerCourse(_ context.Context, ids []int) ([]models.CourseStats, error) {
	f.lastIDs = ids
	return f.perCourse, f.err
}

func (f *fakeStatsSrv) LastUpdated(context.Context) (*models.LastUpdatedResponse, error) {
	return f.lastUpdated, f.err
}

func (f *fakeStatsSrv) RefreshAll(context.Context) (*models.RefreshResponse, error) {
	return f.refresh, f.err
}

type fakeExportSrv struct {
	data        []byte
	contentType string
	filename    string
	err         error
	lastFormat  string
}

func (f *fakeExportSrv) ExportCourses(_ context.Context, _ []int, format string) ([]byte, string, string, error) {
	f.lastFormat = format
	return f.data, f.contentType, f.filename, f.err
}

func doRequest(t *testing.T, handler gin.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, nil)
	handler(c)
	return rec
}

func TestStatsHandlerGlobal(t *testing.T) {
	srv := &fakeStatsSrv{global: &models.GlobalStatsResponse{
		GlobalStats: models.GlobalStats{Approved: 4, InProgress: 1, Total: 5},
		CachedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
	handler := NewStatsHandler(srv, &fakeExportSrv{})

	rec := doRequest(t, handler.Global, http.MethodGet, "/stats/global")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// The counts sit at the top level next to cachedAt, no envelope.
	assert.Equal(t, float64(4), body["approved"])
	assert.Equal(t, float64(5), body["total"])
	assert.Equal(t, "2024-05-01T12:00:00Z", body["cachedAt"])
}

func TestStatsHandlerGlobalParsesCourseIds(t *testing.T) {
	srv := &fakeStatsSrv{global: &models.GlobalStatsResponse{}}
	handler := NewStatsHandler(srv, &fakeExportSrv{})

	rec := doRequest(t, handler.Global, http.MethodGet, "/stats/global?courseIds=3,abc,7,-1,0,12")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{3, 7, 12}, srv.lastIDs)
}

func TestStatsHandlerGlobalError(t *testing.T) {
	srv := &fakeStatsSrv{err: appErrors.Wrap(errors.New("redis: connection refused"),
		"CACHE_ERROR", http.StatusInternalServerError, "Error fetching global statistics.")}
	handler := NewStatsHandler(srv, &fakeExportSrv{})

	rec := doRequest(t, handler.Global, http.MethodGet, "/stats/global")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Error fetching global statistics.", body["error"])
	assert.Contains(t, body["details"], "connection refused")
}

func TestStatsHandlerCoursesEmptyIsArray(t *testing.T) {
	handler := NewStatsHandler(&fakeStatsSrv{}, &fakeExportSrv{})

	rec := doRequest(t, handler.Courses, http.MethodGet, "/stats/courses")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestStatsHandlerCourses(t *testing.T) {
	srv := &fakeStatsSrv{perCourse: []models.CourseStats{
		{CourseID: 2, CourseName: "Algebra", Approved: 3, NotApproved: 1},
	}}
	handler := NewStatsHandler(srv, &fakeExportSrv{})

	rec := doRequest(t, handler.Courses, http.MethodGet, "/stats/courses")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, float64(2), body[0]["courseid"])
	assert.Equal(t, "Algebra", body[0]["coursename"])
}

func TestStatsHandlerLastUpdatedNull(t *testing.T) {
	handler := NewStatsHandler(&fakeStatsSrv{lastUpdated: &models.LastUpdatedResponse{}}, &fakeExportSrv{})

	rec := doRequest(t, handler.LastUpdated, http.MethodGet, "/stats/last-updated")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lastUpdated":null}`, rec.Body.String())
}

func TestStatsHandlerRefresh(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv := &fakeStatsSrv{refresh: &models.RefreshResponse{
		Global:    models.GlobalStatsResponse{GlobalStats: models.GlobalStats{Total: 9}, CachedAt: ts},
		Courses:   []models.CourseStats{{CourseID: 2}},
		UpdatedAt: ts,
	}}
	handler := NewStatsHandler(srv, &fakeExportSrv{})

	rec := doRequest(t, handler.Refresh, http.MethodPost, "/stats/refresh")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-05-01T12:00:00Z", body["updatedAt"])
	assert.NotNil(t, body["global"])
	assert.NotNil(t, body["courses"])
}

func TestStatsHandlerExport(t *testing.T) {
	exp := &fakeExportSrv{data: []byte("Course ID,Course\n"), contentType: "text/csv", filename: "course-stats-2024-05-01.csv"}
	handler := NewStatsHandler(&fakeStatsSrv{}, exp)

	rec := doRequest(t, handler.Export, http.MethodGet, "/stats/export?format=CSV")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", exp.lastFormat)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "course-stats-2024-05-01.csv")
}

func TestStatsHandlerExportBadFormat(t *testing.T) {
	exp := &fakeExportSrv{err: appErrors.New("VALIDATION_ERROR", http.StatusBadRequest, `unsupported export format "xml"`)}
	handler := NewStatsHandler(&fakeStatsSrv{}, exp)

	rec := doRequest(t, handler.Export, http.MethodGet, "/stats/export?format=xml")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
