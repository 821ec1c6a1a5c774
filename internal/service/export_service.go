package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
	"github.com/noah-isme/lms-stats-api/pkg/export"
)

// Export formats accepted by the export endpoint.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type courseStatsProvider interface {
	GetPerCourse(ctx context.Context, courseIDs []int) ([]models.CourseStats, error)
}

// ExportService renders per-course statistics into downloadable documents.
type ExportService struct {
	stats  courseStatsProvider
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(stats courseStatsProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{stats: stats, logger: logger}
}

// ExportCourses renders the per-course statistics in the requested format
// and returns the document bytes plus content type and filename.
func (s *ExportService) ExportCourses(ctx context.Context, courseIDs []int, format string) ([]byte, string, string, error) {
	stats, err := s.stats.GetPerCourse(ctx, courseIDs)
	if err != nil {
		return nil, "", "", err
	}

	table := courseStatsTable(stats)
	stamp := time.Now().UTC().Format("2006-01-02")

	switch format {
	case FormatCSV:
		data, err := export.CSV(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Error exporting statistics.")
		}
		return data, "text/csv", fmt.Sprintf("course-stats-%s.csv", stamp), nil
	case FormatPDF:
		data, err := export.PDF(table, "Course Completion Statistics")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Error exporting statistics.")
		}
		return data, "application/pdf", fmt.Sprintf("course-stats-%s.pdf", stamp), nil
	default:
		return nil, "", "", appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
	}
}

func courseStatsTable(stats []models.CourseStats) export.Table {
	table := export.Table{
		Headers: []string{"Course ID", "Course", "Approved", "Not Approved", "In Progress", "Not Started", "Total"},
	}
	for _, cs := range stats {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(cs.CourseID),
			cs.CourseName,
			strconv.Itoa(cs.Approved),
			strconv.Itoa(cs.NotApproved),
			strconv.Itoa(cs.InProgress),
			strconv.Itoa(cs.NotStarted),
			strconv.Itoa(cs.Total()),
		})
	}
	return table
}
