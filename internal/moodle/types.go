package moodle

import "strconv"

// Course is a course record returned by core_course_get_courses.
type Course struct {
	ID        int    `json:"id"`
	FullName  string `json:"fullname"`
	ShortName string `json:"shortname"`
	Visible   int    `json:"visible"`
}

// EnrolledUser is one enrolment returned by core_enrol_get_enrolled_users.
type EnrolledUser struct {
	ID       int    `json:"id"`
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

// CourseCompletionStatus is the response of
// core_completion_get_course_completion_status.
type CourseCompletionStatus struct {
	CompletionStatus CompletionDetail `json:"completionstatus"`
}

// CompletionDetail carries the per-criterion completion records for one user
// in one course.
type CompletionDetail struct {
	Completed   bool                 `json:"completed"`
	Completions []ActivityCompletion `json:"completions"`
}

// ActivityCompletion is one completion criterion entry.
type ActivityCompletion struct {
	Type     int    `json:"type"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Complete bool   `json:"complete"`
}

// HasCompletedActivity reports whether any completion criterion is met.
func (d CompletionDetail) HasCompletedActivity() bool {
	for _, c := range d.Completions {
		if c.Complete {
			return true
		}
	}
	return false
}

// GradeReport is the response of gradereport_user_get_grade_items.
type GradeReport struct {
	UserGrades []UserGrades `json:"usergrades"`
}

// UserGrades holds the grade items of one user in one course.
type UserGrades struct {
	CourseID   int         `json:"courseid"`
	UserID     int         `json:"userid"`
	GradeItems []GradeItem `json:"gradeitems"`
}

// GradeItem is a single grade-book entry. The item with itemtype "course" is
// the aggregate course grade.
type GradeItem struct {
	ID        int    `json:"id"`
	ItemName  string `json:"itemname"`
	ItemType  string `json:"itemtype"`
	Grade     Number `json:"grade"`
	GradePass Number `json:"gradepass"`
}

// CourseGradeItemType marks the aggregate course grade in a grade report.
const CourseGradeItemType = "course"

// Number is a grade value as Moodle serialises it: a JSON number, a numeric
// string, null, or absent. Non-numeric values are treated as absent, matching
// parseFloat semantics on the consuming side.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON accepts numbers, quoted numbers, and null.
func (n *Number) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		n.Value, n.Valid = 0, false
		return nil
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		n.Value, n.Valid = 0, false
		return nil
	}
	n.Value, n.Valid = v, true
	return nil
}

// MarshalJSON renders the value or null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// Num builds a valid Number; mainly a test convenience.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}
