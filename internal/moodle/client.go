// Package moodle is a thin client for the Moodle web-services REST endpoint.
// One fixed endpoint, token-based auth, JSON responses. Errors are surfaced
// as returned; no retries here.
package moodle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const restPath = "/webservice/rest/server.php"

// MetricsRecorder observes outbound web-service calls.
type MetricsRecorder interface {
	RecordRemoteCall(function string, success bool, duration time.Duration)
}

// Client issues individual web-service calls against a single Moodle site.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	metrics    MetricsRecorder
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics attaches a call recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient builds a client for the given site base URL and access token.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(baseURL, "/") + restPath,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call performs one web-service function call and decodes the response into
// dest. An exception object in the body is reported as *RemoteError even
// when the HTTP status is 200; network failures become *TransportError.
func (c *Client) call(ctx context.Context, function string, params url.Values, dest interface{}) error {
	start := time.Now()
	err := c.do(ctx, function, params, dest)
	if c.metrics != nil {
		c.metrics.RecordRemoteCall(function, err == nil, time.Since(start))
	}
	return err
}

func (c *Client) do(ctx context.Context, function string, params url.Values, dest interface{}) error {
	query := url.Values{}
	query.Set("wstoken", c.token)
	query.Set("wsfunction", function)
	query.Set("moodlewsrestformat", "json")
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return &TransportError{Function: function, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Function: function, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Function: function, Err: err}
	}

	// Moodle reports application errors in-band, usually with HTTP 200.
	var probe struct {
		Exception string `json:"exception"`
		ErrorCode string `json:"errorcode"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Exception != "" {
		return &RemoteError{
			Exception: probe.Exception,
			ErrorCode: probe.ErrorCode,
			Message:   probe.Message,
			Function:  function,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return &TransportError{Function: function, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &TransportError{Function: function, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Courses lists every course on the site.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.call(ctx, "core_course_get_courses", nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// EnrolledUsers lists the users enrolled in a course.
func (c *Client) EnrolledUsers(ctx context.Context, courseID int) ([]EnrolledUser, error) {
	params := url.Values{"courseid": {strconv.Itoa(courseID)}}
	var users []EnrolledUser
	if err := c.call(ctx, "core_enrol_get_enrolled_users", params, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CompletionStatus fetches a user's course-completion record.
func (c *Client) CompletionStatus(ctx context.Context, courseID, userID int) (*CourseCompletionStatus, error) {
	params := url.Values{
		"courseid": {strconv.Itoa(courseID)},
		"userid":   {strconv.Itoa(userID)},
	}
	var status CourseCompletionStatus
	if err := c.call(ctx, "core_completion_get_course_completion_status", params, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GradeItems fetches a user's grade-book items for a course.
func (c *Client) GradeItems(ctx context.Context, courseID, userID int) (*GradeReport, error) {
	params := url.Values{
		"courseid": {strconv.Itoa(courseID)},
		"userid":   {strconv.Itoa(userID)},
	}
	var report GradeReport
	if err := c.call(ctx, "gradereport_user_get_grade_items", params, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
