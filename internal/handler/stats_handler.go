package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-stats-api/internal/models"
	"github.com/noah-isme/lms-stats-api/pkg/response"
)

type statsService interface {
	GetGlobal(ctx context.Context, courseIDs []int) (*models.GlobalStatsResponse, error)
	GetPerCourse(ctx context.Context, courseIDs []int) ([]models.CourseStats, error)
	LastUpdated(ctx context.Context) (*models.LastUpdatedResponse, error)
	RefreshAll(ctx context.Context) (*models.RefreshResponse, error)
}

type exportService interface {
	ExportCourses(ctx context.Context, courseIDs []int, format string) ([]byte, string, string, error)
}

// StatsHandler wires the statistics services to HTTP endpoints.
type StatsHandler struct {
	stats  statsService
	export exportService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(stats statsService, export exportService) *StatsHandler {
	return &StatsHandler{stats: stats, export: export}
}

// parseCourseIDs reads the optional courseIds query parameter, a
// comma-separated list of course ids. Non-numeric and non-positive entries
// are dropped silently.
func parseCourseIDs(c *gin.Context) []int {
	raw := strings.TrimSpace(c.Query("courseIds"))
	if raw == "" {
		return nil
	}

	var ids []int
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Global godoc
// @Summary Global completion statistics
// @Description Aggregated completion counts across all visible courses, cache-first
// @Tags Statistics
// @Produce json
// @Param courseIds query string false "Comma-separated course ids to restrict the aggregation"
// @Success 200 {object} models.GlobalStatsResponse
// @Failure 500 {object} map[string]string
// @Router /stats/global [get]
func (h *StatsHandler) Global(c *gin.Context) {
	res, err := h.stats.GetGlobal(c.Request.Context(), parseCourseIDs(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Courses godoc
// @Summary Per-course completion statistics
// @Description Completion counts for each visible course with at least one processed enrolment
// @Tags Statistics
// @Produce json
// @Param courseIds query string false "Comma-separated course ids to restrict the aggregation"
// @Success 200 {array} models.CourseStats
// @Failure 500 {object} map[string]string
// @Router /stats/courses [get]
func (h *StatsHandler) Courses(c *gin.Context) {
	res, err := h.stats.GetPerCourse(c.Request.Context(), parseCourseIDs(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if res == nil {
		res = []models.CourseStats{}
	}
	response.JSON(c, http.StatusOK, res)
}

// LastUpdated godoc
// @Summary Cache freshness
// @Description When the global statistics were last cached; null when never
// @Tags Statistics
// @Produce json
// @Success 200 {object} models.LastUpdatedResponse
// @Failure 500 {object} map[string]string
// @Router /stats/last-updated [get]
func (h *StatsHandler) LastUpdated(c *gin.Context) {
	res, err := h.stats.LastUpdated(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Refresh godoc
// @Summary Recompute statistics
// @Description Recomputes global and per-course statistics from the LMS and overwrites the cache. Can take minutes on large sites.
// @Tags Statistics
// @Produce json
// @Success 200 {object} models.RefreshResponse
// @Failure 500 {object} map[string]string
// @Router /stats/refresh [post]
func (h *StatsHandler) Refresh(c *gin.Context) {
	res, err := h.stats.RefreshAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Export godoc
// @Summary Export per-course statistics
// @Description Downloads the per-course statistics as CSV or PDF
// @Tags Statistics
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "Export format (csv or pdf)"
// @Param courseIds query string false "Comma-separated course ids to restrict the aggregation"
// @Success 200 {file} file
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /stats/export [get]
func (h *StatsHandler) Export(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))

	data, contentType, filename, err := h.export.ExportCourses(c.Request.Context(), parseCourseIDs(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
