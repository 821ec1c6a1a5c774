package service

import (
	"github.com/noah-isme/lms-stats-api/internal/models"
	"github.com/noah-isme/lms-stats-api/internal/moodle"
)

// ClassifyCompletion maps one user's completion record and grade report to
// exactly one completion state. It is a pure function of its two inputs; the
// aggregator is responsible for fetching them and for mapping lookup
// failures to not_started before this function is consulted.
//
// A nil grade report, a report without a course grade item, or a null grade
// all classify as not_approved: the record counts as completed but pending
// approval rather than being dropped.
//
// A missing or non-numeric gradepass defaults to 0, making any recorded
// grade an automatic pass. Permissive on purpose; the grade-book is the
// source of truth for the threshold.
func ClassifyCompletion(status *moodle.CourseCompletionStatus, report *moodle.GradeReport) models.CompletionState {
	if status == nil {
		return models.StateNotStarted
	}
	if !status.CompletionStatus.HasCompletedActivity() {
		return models.StateInProgress
	}

	item := courseGradeItem(report)
	if item == nil || !item.Grade.Valid {
		return models.StateNotApproved
	}

	pass := 0.0
	if item.GradePass.Valid {
		pass = item.GradePass.Value
	}
	if item.Grade.Value >= pass {
		return models.StateApproved
	}
	return models.StateNotApproved
}

// courseGradeItem locates the aggregate course grade in the first user's
// grade items.
func courseGradeItem(report *moodle.GradeReport) *moodle.GradeItem {
	if report == nil || len(report.UserGrades) == 0 {
		return nil
	}
	items := report.UserGrades[0].GradeItems
	for i := range items {
		if items[i].ItemType == moodle.CourseGradeItemType {
			return &items[i]
		}
	}
	return nil
}
