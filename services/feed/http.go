package feedsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/kalasi/darasa/core"
	"github.com/kalasi/darasa/core/school"
)

// httpFeed is a school.Feed backed by the REST API, for clients polling a
// remote portal instance.
type httpFeed struct {
	baseURL string
	client  *http.Client
}

var _ school.Feed = (*httpFeed)(nil)

func NewHTTPFeed(conf *core.Config) *httpFeed {
	return &httpFeed{
		baseURL: strings.TrimRight(conf.APIBaseURL, "/"),
		client:  &http.Client{Timeout: conf.RequestTimeout},
	}
}

func (f *httpFeed) Notifications(ctx context.Context, principalEmail, role string) ([]school.Query, error) {
	path := "/api/student/notifications"
	param := "studentEmail"
	if role == school.RoleTeacher {
		path = "/api/teacher/notifications"
		param = "teacherEmail"
	}
	var queries []school.Query
	err := f.get(ctx, path, url.Values{param: {principalEmail}}, &queries)
	return queries, err
}

func (f *httpFeed) StudentAssignments(ctx context.Context, studentEmail string) ([]school.StudentAssignment, error) {
	var assignments []school.StudentAssignment
	err := f.get(ctx, "/api/student/assignments", url.Values{"studentEmail": {studentEmail}}, &assignments)
	return assignments, err
}

func (f *httpFeed) TeacherSubmissions(ctx context.Context, teacherEmail string) ([]school.TeacherSubmission, error) {
	var submissions []school.TeacherSubmission
	err := f.get(ctx, "/api/teacher/assignments/submissions", url.Values{"teacherEmail": {teacherEmail}}, &submissions)
	return submissions, err
}

func (f *httpFeed) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	res, err := f.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetching "+path)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("fetching %s: status %d", path, res.StatusCode)
	}
	if err = json.NewDecoder(res.Body).Decode(dest); err != nil {
		return errors.Wrap(err, "decoding "+path)
	}
	return nil
}
