package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
	appErrors "github.com/noah-isme/lms-stats-api/pkg/errors"
)

type staticStats struct {
	stats []models.CourseStats
	err   error
}

func (s *staticStats) GetPerCourse(context.Context, []int) ([]models.CourseStats, error) {
	return s.stats, s.err
}

func TestExportCoursesCSV(t *testing.T) {
	svc := NewExportService(&staticStats{stats: []models.CourseStats{
		{CourseID: 2, CourseName: "Algebra", Approved: 3, NotApproved: 1, InProgress: 2},
	}}, zap.NewNop())

	data, contentType, filename, err := svc.ExportCourses(context.Background(), nil, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.True(t, strings.HasPrefix(filename, "course-stats-"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Course ID,Course,Approved,Not Approved,In Progress,Not Started,Total", lines[0])
	assert.Equal(t, "2,Algebra,3,1,2,0,6", lines[1])
}

func TestExportCoursesPDF(t *testing.T) {
	svc := NewExportService(&staticStats{stats: []models.CourseStats{
		{CourseID: 2, CourseName: "Algebra", Approved: 3},
	}}, zap.NewNop())

	data, contentType, filename, err := svc.ExportCourses(context.Background(), nil, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasSuffix(filename, ".pdf"))
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestExportCoursesUnknownFormat(t *testing.T) {
	svc := NewExportService(&staticStats{}, zap.NewNop())

	_, _, _, err := svc.ExportCourses(context.Background(), nil, "xml")
	require.Error(t, err)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
}
