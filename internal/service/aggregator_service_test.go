package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-stats-api/internal/models"
	"github.com/noah-isme/lms-stats-api/internal/moodle"
)

// fakeMoodle scripts the remote API per course/user.
type fakeMoodle struct {
	courses    []moodle.Course
	coursesErr error

	users    map[int][]moodle.EnrolledUser
	usersErr map[int]error

	completions    map[[2]int]*moodle.CourseCompletionStatus
	completionErrs map[[2]int]error
	grades         map[[2]int]*moodle.GradeReport
	gradeErrs      map[[2]int]error
}

func (f *fakeMoodle) Courses(context.Context) ([]moodle.Course, error) {
	return f.courses, f.coursesErr
}

func (f *fakeMoodle) EnrolledUsers(_ context.Context, courseID int) ([]moodle.EnrolledUser, error) {
	if err := f.usersErr[courseID]; err != nil {
		return nil, err
	}
	return f.users[courseID], nil
}

func (f *fakeMoodle) CompletionStatus(_ context.Context, courseID, userID int) (*moodle.CourseCompletionStatus, error) {
	key := [2]int{courseID, userID}
	if err := f.completionErrs[key]; err != nil {
		return nil, err
	}
	return f.completions[key], nil
}

func (f *fakeMoodle) GradeItems(_ context.Context, courseID, userID int) (*moodle.GradeReport, error) {
	key := [2]int{courseID, userID}
	if err := f.gradeErrs[key]; err != nil {
		return nil, err
	}
	return f.grades[key], nil
}

func approvedScript(courseID, userID int, f *fakeMoodle) {
	key := [2]int{courseID, userID}
	f.completions[key] = completedStatus()
	f.grades[key] = gradeReport(moodle.GradeItem{ItemType: "course", Grade: moodle.Num(80), GradePass: moodle.Num(60)})
}

func inProgressScript(courseID, userID int, f *fakeMoodle) {
	f.completions[[2]int{courseID, userID}] = &moodle.CourseCompletionStatus{}
}

func newFakeMoodle() *fakeMoodle {
	return &fakeMoodle{
		users:          map[int][]moodle.EnrolledUser{},
		usersErr:       map[int]error{},
		completions:    map[[2]int]*moodle.CourseCompletionStatus{},
		completionErrs: map[[2]int]error{},
		grades:         map[[2]int]*moodle.GradeReport{},
		gradeErrs:      map[[2]int]error{},
	}
}

func newAggregator(f *fakeMoodle) *AggregatorService {
	return NewAggregatorService(f, nil, zap.NewNop(), AggregatorConfig{
		CourseBatchSize: 3,
		UserBatchSize:   15,
		BatchPause:      1, // keep tests fast
		SiteCourseID:    1,
	})
}

func TestAggregatorDropsZeroEnrolmentCourses(t *testing.T) {
	f := newFakeMoodle()
	f.courses = []moodle.Course{
		{ID: 2, FullName: "Algebra", Visible: 1},
		{ID: 3, FullName: "Empty Course", Visible: 1},
	}
	f.users[2] = []moodle.EnrolledUser{{ID: 10}, {ID: 11}, {ID: 12}}
	approvedScript(2, 10, f)
	approvedScript(2, 11, f)
	inProgressScript(2, 12, f)

	svc := newAggregator(f)
	ctx := context.Background()

	perCourse, err := svc.ComputePerCourse(ctx, nil)
	require.NoError(t, err)
	require.Len(t, perCourse, 1)
	assert.Equal(t, 2, perCourse[0].CourseID)
	assert.Equal(t, "Algebra", perCourse[0].CourseName)
	assert.Equal(t, 2, perCourse[0].Approved)
	assert.Equal(t, 1, perCourse[0].InProgress)

	global, err := svc.ComputeGlobal(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, global.Total)
	assert.Equal(t, 2, global.Approved)
	assert.Equal(t, 1, global.InProgress)
}

func TestAggregatorExcludesSiteAndInvisibleCourses(t *testing.T) {
	f := newFakeMoodle()
	f.courses = []moodle.Course{
		{ID: 1, FullName: "Site", Visible: 1},
		{ID: 2, FullName: "Hidden", Visible: 0},
		{ID: 3, FullName: "Open", Visible: 1},
	}
	f.users[3] = []moodle.EnrolledUser{{ID: 20}}
	approvedScript(3, 20, f)

	perCourse, err := newAggregator(f).ComputePerCourse(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, perCourse, 1)
	assert.Equal(t, 3, perCourse[0].CourseID)
}

func TestAggregatorAppliesCourseFilter(t *testing.T) {
	f := newFakeMoodle()
	f.courses = []moodle.Course{
		{ID: 2, FullName: "A", Visible: 1},
		{ID: 3, FullName: "B", Visible: 1},
	}
	f.users[2] = []moodle.EnrolledUser{{ID: 10}}
	f.users[3] = []moodle.EnrolledUser{{ID: 11}}
	approvedScript(2, 10, f)
	approvedScript(3, 11, f)

	perCourse, err := newAggregator(f).ComputePerCourse(context.Background(), []int{3, 99})
	require.NoError(t, err)
	require.Len(t, perCourse, 1)
	assert.Equal(t, 3, perCourse[0].CourseID)
}

func TestAggregatorCourseListFailureIsFatal(t *testing.T) {
	f := newFakeMoodle()
	f.coursesErr = &moodle.RemoteError{Exception: "invalidtoken", Message: "Invalid token"}

	_, err := newAggregator(f).ComputeGlobal(context.Background(), nil)
	require.Error(t, err)
	var remoteErr *moodle.RemoteError
	assert.ErrorAs(t, err, &remoteErr)
}

func TestAggregatorEnrolmentFailureDegradesCourseToZero(t *testing.T) {
	f := newFakeMoodle()
	f.courses = []moodle.Course{
		{ID: 2, FullName: "Broken", Visible: 1},
		{ID: 3, FullName: "Fine", Visible: 1},
	}
	f.usersErr[2] = errors.New("enrolment backend down")
	f.users[3] = []moodle.EnrolledUser{{ID: 30}}
	approvedScript(3, 30, f)

	svc := newAggregator(f)
	global, err := svc.ComputeGlobal(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, global.Total)

	perCourse, err := svc.ComputePerCourse(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, perCourse, 1)
	assert.Equal(t, 3, perCourse[0].CourseID)
}

func TestAggregatorUserLookupFailureBecomesNotStarted(t *testing.T) {
	f := newFakeMoodle()
	f.courses = []moodle.Course{{ID: 2, FullName: "Algebra", Visible: 1}}
	f.users[2] = []moodle.EnrolledUser{{ID: 10}, {ID: 11}, {ID: 12}}
	f.completionErrs[[2]int{2, 10}] = &moodle.TransportError{Function: "core_completion_get_course_completion_status", Err: errors.New("timeout")}
	approvedScript(2, 11, f)
	// Completed but the grade lookup blows up.
	f.completions[[2]int{2, 12}] = completedStatus()
	f.gradeErrs[[2]int{2, 12}] = &moodle.RemoteError{Exception: "nopermission", Message: "no permission"}

	perCourse, err := newAggregator(f).ComputePerCourse(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, perCourse, 1)
	cs := perCourse[0]
	assert.Equal(t, 2, cs.NotStarted)
	assert.Equal(t, 1, cs.Approved)
	assert.Equal(t, 3, cs.Total())
}

func TestAggregatorCountsSumToEnrolments(t *testing.T) {
	f := newFakeMoodle()
	f.courses = []moodle.Course{{ID: 2, FullName: "Algebra", Visible: 1}}
	users := make([]moodle.EnrolledUser, 0, 8)
	for i := 0; i < 8; i++ {
		users = append(users, moodle.EnrolledUser{ID: 100 + i})
	}
	f.users[2] = users
	approvedScript(2, 100, f)
	approvedScript(2, 101, f)
	inProgressScript(2, 102, f)
	inProgressScript(2, 103, f)
	f.completionErrs[[2]int{2, 104}] = errors.New("boom")
	f.completions[[2]int{2, 105}] = completedStatus()
	f.grades[[2]int{2, 105}] = gradeReport(moodle.GradeItem{ItemType: "course", Grade: moodle.Num(40), GradePass: moodle.Num(60)})
	f.completions[[2]int{2, 106}] = completedStatus() // no grade report scripted -> nil -> not_approved
	f.completions[[2]int{2, 107}] = completedStatus()
	f.grades[[2]int{2, 107}] = gradeReport(moodle.GradeItem{ItemType: "course", GradePass: moodle.Num(60)})

	perCourse, err := newAggregator(f).ComputePerCourse(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, perCourse, 1)
	cs := perCourse[0]
	assert.Equal(t, len(users), cs.Total())
	assert.Equal(t, 2, cs.Approved)
	assert.Equal(t, 3, cs.NotApproved)
	assert.Equal(t, 2, cs.InProgress)
	assert.Equal(t, 1, cs.NotStarted)
}

func TestAggregatorGlobalMatchesPerCourseSums(t *testing.T) {
	f := newFakeMoodle()
	f.courses = []moodle.Course{
		{ID: 2, FullName: "A", Visible: 1},
		{ID: 3, FullName: "B", Visible: 1},
		{ID: 4, FullName: "Empty", Visible: 1},
	}
	f.users[2] = []moodle.EnrolledUser{{ID: 10}, {ID: 11}}
	f.users[3] = []moodle.EnrolledUser{{ID: 12}}
	approvedScript(2, 10, f)
	inProgressScript(2, 11, f)
	f.completionErrs[[2]int{3, 12}] = errors.New("untrackable")

	svc := newAggregator(f)
	ctx := context.Background()

	global, err := svc.ComputeGlobal(ctx, nil)
	require.NoError(t, err)
	perCourse, err := svc.ComputePerCourse(ctx, nil)
	require.NoError(t, err)

	sum := models.GlobalStats{}
	for _, cs := range perCourse {
		sum.AddCourse(cs)
	}
	assert.Equal(t, *global, sum)
	assert.Equal(t, 3, global.Total)
}
