package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
	"github.com/noah-isme/lms-stats-api/internal/moodle"
	"github.com/noah-isme/lms-stats-api/pkg/batch"
)

type moodleClient interface {
	Courses(ctx context.Context) ([]moodle.Course, error)
	EnrolledUsers(ctx context.Context, courseID int) ([]moodle.EnrolledUser, error)
	CompletionStatus(ctx context.Context, courseID, userID int) (*moodle.CourseCompletionStatus, error)
	GradeItems(ctx context.Context, courseID, userID int) (*moodle.GradeReport, error)
}

// AggregatorConfig tunes the walk over the remote API.
type AggregatorConfig struct {
	CourseBatchSize int
	UserBatchSize   int
	BatchPause      time.Duration
	SiteCourseID    int
}

// AggregatorService walks courses and their enrolled users through the
// remote API and folds classified enrolments into per-course and global
// tallies. A full walk can take minutes on large sites; pacing is deliberate.
type AggregatorService struct {
	client  moodleClient
	metrics *MetricsService
	logger  *zap.Logger
	cfg     AggregatorConfig
}

// NewAggregatorService constructs an AggregatorService. Zero-value tuning
// falls back to defaults proven safe against Moodle's rate limiting.
func NewAggregatorService(client moodleClient, metrics *MetricsService, logger *zap.Logger, cfg AggregatorConfig) *AggregatorService {
	if cfg.CourseBatchSize <= 0 {
		cfg.CourseBatchSize = 3
	}
	if cfg.UserBatchSize <= 0 {
		cfg.UserBatchSize = 15
	}
	if cfg.BatchPause <= 0 {
		cfg.BatchPause = 200 * time.Millisecond
	}
	if cfg.SiteCourseID <= 0 {
		cfg.SiteCourseID = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregatorService{client: client, metrics: metrics, logger: logger, cfg: cfg}
}

// ComputeGlobal aggregates every surviving course into one global document.
// Courses with zero processed enrolments still contribute zero to the total.
func (s *AggregatorService) ComputeGlobal(ctx context.Context, courseIDs []int) (*models.GlobalStats, error) {
	start := time.Now()

	perCourse, err := s.collect(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	global := &models.GlobalStats{}
	for _, cs := range perCourse {
		global.AddCourse(cs)
	}

	s.observe("global", start)
	s.logger.Info("global stats computed",
		zap.Int("courses", len(perCourse)),
		zap.Int("total", global.Total),
		zap.Duration("elapsed", time.Since(start)),
	)
	return global, nil
}

// ComputePerCourse aggregates each surviving course separately, dropping
// courses with no processed enrolments from the result.
func (s *AggregatorService) ComputePerCourse(ctx context.Context, courseIDs []int) ([]models.CourseStats, error) {
	start := time.Now()

	perCourse, err := s.collect(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	result := make([]models.CourseStats, 0, len(perCourse))
	for _, cs := range perCourse {
		if cs.Total() > 0 {
			result = append(result, cs)
		}
	}

	s.observe("courses", start)
	s.logger.Info("per-course stats computed",
		zap.Int("courses", len(result)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// collect runs the full walk: course list, then one CourseStats per course
// in input order. Courses run in small concurrent chunks; a failure inside
// one course degrades that course, never the run.
func (s *AggregatorService) collect(ctx context.Context, courseIDs []int) ([]models.CourseStats, error) {
	courses, err := s.filteredCourses(ctx, courseIDs)
	if err != nil {
		// Without a course list there is nothing to aggregate.
		return nil, err
	}

	results, _ := batch.Run(ctx, courses, s.cfg.CourseBatchSize, s.cfg.BatchPause,
		func(ctx context.Context, course moodle.Course) (models.CourseStats, error) {
			return s.courseStats(ctx, course), nil
		})
	return results, nil
}

// filteredCourses fetches the fresh course list and applies the standing
// exclusions: the site pseudo-course, invisible courses, and (when supplied)
// the caller's course-id filter.
func (s *AggregatorService) filteredCourses(ctx context.Context, courseIDs []int) ([]moodle.Course, error) {
	all, err := s.client.Courses(ctx)
	if err != nil {
		return nil, err
	}

	var filter map[int]struct{}
	if len(courseIDs) > 0 {
		filter = make(map[int]struct{}, len(courseIDs))
		for _, id := range courseIDs {
			filter[id] = struct{}{}
		}
	}

	courses := make([]moodle.Course, 0, len(all))
	for _, c := range all {
		if c.ID == s.cfg.SiteCourseID || c.Visible != 1 {
			continue
		}
		if filter != nil {
			if _, ok := filter[c.ID]; !ok {
				continue
			}
		}
		courses = append(courses, c)
	}

	s.logger.Info("active courses fetched", zap.Int("count", len(courses)))
	return courses, nil
}

// courseStats classifies every enrolment of one course. An enrolment-list
// failure degrades the course to all-zero stats so the run can partially
// succeed.
func (s *AggregatorService) courseStats(ctx context.Context, course moodle.Course) models.CourseStats {
	stats := models.CourseStats{CourseID: course.ID, CourseName: course.FullName}

	users, err := s.client.EnrolledUsers(ctx, course.ID)
	if err != nil {
		s.logger.Warn("enrolment fetch failed, course degraded to zero",
			zap.Int("course_id", course.ID),
			zap.String("course", course.FullName),
			zap.Error(err),
		)
		return stats
	}
	if len(users) == 0 {
		s.logger.Debug("no students enrolled",
			zap.Int("course_id", course.ID),
			zap.String("course", course.FullName),
		)
		return stats
	}

	states, _ := batch.Run(ctx, users, s.cfg.UserBatchSize, s.cfg.BatchPause,
		func(ctx context.Context, user moodle.EnrolledUser) (models.CompletionState, error) {
			return s.classifyEnrolment(ctx, course.ID, user.ID), nil
		})

	for _, state := range states {
		stats.Add(state)
	}

	s.logger.Info("course processed",
		zap.Int("course_id", course.ID),
		zap.String("course", course.FullName),
		zap.Int("students", len(users)),
	)
	return stats
}

// classifyEnrolment fetches what the pure classifier needs and maps any
// lookup failure to not_started, so one bad record cannot abort the course.
// Grade items are only fetched once completion is positive.
func (s *AggregatorService) classifyEnrolment(ctx context.Context, courseID, userID int) models.CompletionState {
	status, err := s.client.CompletionStatus(ctx, courseID, userID)
	if err != nil {
		return models.StateNotStarted
	}
	if !status.CompletionStatus.HasCompletedActivity() {
		return ClassifyCompletion(status, nil)
	}

	report, err := s.client.GradeItems(ctx, courseID, userID)
	if err != nil {
		return models.StateNotStarted
	}
	return ClassifyCompletion(status, report)
}

func (s *AggregatorService) observe(scope string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveAggregation(scope, time.Since(start))
	}
}
