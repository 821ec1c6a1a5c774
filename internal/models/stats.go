package models

import "time"

// CompletionState classifies one enrolment. Every enrolment maps to exactly
// one of the four states.
type CompletionState string

const (
	StateApproved    CompletionState = "approved"
	StateNotApproved CompletionState = "not_approved"
	StateInProgress  CompletionState = "in_progress"
	StateNotStarted  CompletionState = "not_started"
)

// CompletionStates lists every state in a stable order.
var CompletionStates = []CompletionState{
	StateApproved,
	StateNotApproved,
	StateInProgress,
	StateNotStarted,
}

// CourseStats holds per-course completion tallies.
type CourseStats struct {
	CourseID    int    `json:"courseid"`
	CourseName  string `json:"coursename"`
	Approved    int    `json:"approved"`
	NotApproved int    `json:"not_approved"`
	InProgress  int    `json:"in_progress"`
	NotStarted  int    `json:"not_started"`
}

// Add counts one classified enrolment.
func (c *CourseStats) Add(state CompletionState) {
	switch state {
	case StateApproved:
		c.Approved++
	case StateNotApproved:
		c.NotApproved++
	case StateInProgress:
		c.InProgress++
	case StateNotStarted:
		c.NotStarted++
	}
}

// Total is the number of enrolments processed for the course.
func (c CourseStats) Total() int {
	return c.Approved + c.NotApproved + c.InProgress + c.NotStarted
}

// GlobalStats folds every course's tallies into one document.
type GlobalStats struct {
	Approved    int `json:"approved"`
	NotApproved int `json:"not_approved"`
	InProgress  int `json:"in_progress"`
	NotStarted  int `json:"not_started"`
	Total       int `json:"total"`
}

// AddCourse folds one course into the global tallies. Total is maintained as
// the sum of the four counts.
func (g *GlobalStats) AddCourse(c CourseStats) {
	g.Approved += c.Approved
	g.NotApproved += c.NotApproved
	g.InProgress += c.InProgress
	g.NotStarted += c.NotStarted
	g.Total += c.Total()
}

// GlobalStatsResponse is the global stats payload plus its cache timestamp.
type GlobalStatsResponse struct {
	GlobalStats
	CachedAt time.Time `json:"cachedAt"`
}

// RefreshResponse is returned by the manual refresh endpoint.
type RefreshResponse struct {
	Global    GlobalStatsResponse `json:"global"`
	Courses   []CourseStats       `json:"courses"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// LastUpdatedResponse reports when the cache was last refreshed; null when
// nothing has been cached yet.
type LastUpdatedResponse struct {
	LastUpdated *time.Time `json:"lastUpdated"`
}
