package tests

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalasi/darasa/core/school"
)

func Test_studentApi_queries(t *testing.T) {
	// a blank message is rejected with a per-field error
	rec := jsonRequest(t, http.MethodPost, "/api/student/queries", map[string]string{
		"studentEmail": "neema@test.cd",
		"teacherId":    "prof@test.cd",
		"message":      "  ",
	})
	checkCode(t, rec, http.StatusBadRequest)
	var fldErrs map[string]string
	decode(t, rec, &fldErrs)
	assert.Contains(t, fldErrs, "message")

	rec = jsonRequest(t, http.MethodPost, "/api/student/queries", map[string]string{
		"studentEmail": "neema@test.cd",
		"teacherId":    "PROF@test.cd", // emails are normalized
		"message":      "What chapters does the exam cover?",
	})
	checkCode(t, rec, http.StatusCreated)
	var qry school.Query
	decode(t, rec, &qry)
	assert.NotEmpty(t, qry.ID)
	assert.Equal(t, "prof@test.cd", qry.TeacherEmail)
	assert.False(t, qry.Reply.Valid)

	// the addressed teacher finds it in their feed and question log
	rec = jsonRequest(t, http.MethodGet, "/api/teacher/notifications?teacherEmail=prof@test.cd", nil)
	checkCode(t, rec, http.StatusOK)
	var feed []school.Query
	decode(t, rec, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, qry.ID, feed[0].ID)

	rec = jsonRequest(t, http.MethodGet, "/api/teacher/queries?teacherEmail=prof@test.cd", nil)
	checkCode(t, rec, http.StatusOK)
	decode(t, rec, &feed)
	require.Len(t, feed, 1)

	// replying to an unknown query is a 404
	rec = jsonRequest(t, http.MethodPost, "/api/teacher/queries/nope/reply", map[string]string{
		"teacherEmail": "prof@test.cd",
		"reply":        "Chapters 1-4.",
	})
	checkCode(t, rec, http.StatusNotFound)
	var herr httpErr
	decode(t, rec, &herr)
	assert.Equal(t, "query not found", herr.Error)

	// only the addressed teacher may reply
	rec = jsonRequest(t, http.MethodPost, "/api/teacher/queries/"+qry.ID+"/reply", map[string]string{
		"teacherEmail": "other@test.cd",
		"reply":        "Chapters 1-4.",
	})
	checkCode(t, rec, http.StatusBadRequest)

	rec = jsonRequest(t, http.MethodPost, "/api/teacher/queries/"+qry.ID+"/reply", map[string]string{
		"teacherEmail": "prof@test.cd",
		"reply":        "Chapters 1-4.",
	})
	checkCode(t, rec, http.StatusOK)
	var answered school.Query
	decode(t, rec, &answered)
	assert.True(t, answered.Reply.Valid)
	assert.Equal(t, "Chapters 1-4.", answered.Reply.String)

	// the student clears it from their feed; the teacher's is untouched
	rec = jsonRequest(t, http.MethodDelete, "/api/student/notifications/"+qry.ID+"?studentEmail=neema@test.cd", nil)
	checkCode(t, rec, http.StatusNoContent)

	rec = jsonRequest(t, http.MethodGet, "/api/student/notifications?studentEmail=neema@test.cd", nil)
	checkCode(t, rec, http.StatusOK)
	decode(t, rec, &feed)
	assert.Empty(t, feed)

	rec = jsonRequest(t, http.MethodGet, "/api/teacher/notifications?teacherEmail=prof@test.cd", nil)
	checkCode(t, rec, http.StatusOK)
	decode(t, rec, &feed)
	assert.Len(t, feed, 1)
}

func Test_studentApi_notificationsParamRequired(t *testing.T) {
	rec := jsonRequest(t, http.MethodGet, "/api/student/notifications", nil)
	checkCode(t, rec, http.StatusBadRequest)
	var fldErrs map[string]string
	decode(t, rec, &fldErrs)
	assert.Contains(t, fldErrs, "studentEmail")

	rec = jsonRequest(t, http.MethodGet, "/api/teacher/notifications", nil)
	checkCode(t, rec, http.StatusBadRequest)
}

func Test_assignmentsApi(t *testing.T) {
	// link two students to the teacher for the subject
	for _, student := range []string{"juma@test.cd", "rehema@test.cd"} {
		rec := jsonRequest(t, http.MethodPost, "/api/student/link-teacher", map[string]string{
			"studentEmail": student,
			"teacherEmail": "mkuu@test.cd",
			"subjectId":    "PHY-301",
		})
		checkCode(t, rec, http.StatusCreated)
	}

	// a bad subject id is rejected
	rec := jsonRequest(t, http.MethodPost, "/api/student/link-teacher", map[string]string{
		"studentEmail": "juma@test.cd",
		"teacherEmail": "mkuu@test.cd",
		"subjectId":    "PHY 301!",
	})
	checkCode(t, rec, http.StatusBadRequest)

	rec = formRequest(t, http.MethodPost, "/api/teacher/assignments/upload", map[string]string{
		"title":        "Optics lab report",
		"description":  "Due next week",
		"subjectId":    "PHY-301",
		"teacherEmail": "mkuu@test.cd",
	}, "lab instructions")
	checkCode(t, rec, http.StatusCreated)
	var assignment school.Assignment
	decode(t, rec, &assignment)
	assert.NotEmpty(t, assignment.ID)
	assert.True(t, assignment.FilePath.Valid)

	// each linked student was notified
	rec = jsonRequest(t, http.MethodGet, "/api/student/notifications?studentEmail=juma@test.cd", nil)
	checkCode(t, rec, http.StatusOK)
	var feed []school.Query
	decode(t, rec, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, "New assignment posted: Optics lab report", feed[0].Message)

	// and sees the assignment, unsubmitted
	rec = jsonRequest(t, http.MethodGet, "/api/student/assignments?studentEmail=juma@test.cd&subjectId=PHY-301", nil)
	checkCode(t, rec, http.StatusOK)
	var assignments []school.StudentAssignment
	decode(t, rec, &assignments)
	require.Len(t, assignments, 1)
	assert.False(t, assignments[0].Submitted)

	// submit, then resubmit; the second one wins
	rec = formRequest(t, http.MethodPost, "/api/student/assignments/submit", map[string]string{
		"assignmentId":    assignment.ID,
		"studentEmail":    "juma@test.cd",
		"submissionNotes": "first draft",
	}, "draft one")
	checkCode(t, rec, http.StatusCreated)

	rec = formRequest(t, http.MethodPost, "/api/student/assignments/submit", map[string]string{
		"assignmentId":    assignment.ID,
		"studentEmail":    "juma@test.cd",
		"submissionNotes": "final version",
	}, "") // resubmission without a file
	checkCode(t, rec, http.StatusCreated)

	rec = jsonRequest(t, http.MethodGet, "/api/teacher/assignments/submissions?teacherEmail=mkuu@test.cd", nil)
	checkCode(t, rec, http.StatusOK)
	var submissions []school.TeacherSubmission
	decode(t, rec, &submissions)
	require.Len(t, submissions, 1)
	assert.Equal(t, "final version", submissions[0].SubmissionNotes.String)

	rec = jsonRequest(t, http.MethodGet, "/api/teacher/assignments/"+assignment.ID+"/submissions", nil)
	checkCode(t, rec, http.StatusOK)
	decode(t, rec, &submissions)
	assert.Len(t, submissions, 1)

	// submitting against an unknown assignment is a 404
	rec = formRequest(t, http.MethodPost, "/api/student/assignments/submit", map[string]string{
		"assignmentId": "nope",
		"studentEmail": "juma@test.cd",
	}, "")
	checkCode(t, rec, http.StatusNotFound)

	// the roster comes from the links
	rec = jsonRequest(t, http.MethodGet, "/api/teacher/classes/mkuu@test.cd/students?subjectId=PHY-301", nil)
	checkCode(t, rec, http.StatusOK)
	var roster []school.ClassStudent
	decode(t, rec, &roster)
	assert.Len(t, roster, 2)
}

func Test_assignmentsApi_malformedUpload(t *testing.T) {
	// a truncated multipart body is an error, never a silent success
	body := "--xx\r\nContent-Disposition: form-data; name=\"file\"; filename=\"a.pdf\"\r\n\r\ncut off"
	req := httptest.NewRequest(http.MethodPost, "/api/student/assignments/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", `multipart/form-data; boundary=xx`)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_attendanceApi(t *testing.T) {
	path := "/api/teacher/classes/walimu@test.cd/attendance?subjectId=CHEM-101"

	sheet := func(date string, present bool) map[string]interface{} {
		return map[string]interface{}{
			"date": date,
			"attendance": []map[string]interface{}{
				{"studentEmail": "baraka@test.cd", "present": present},
			},
		}
	}

	// a malformed date is rejected
	rec := jsonRequest(t, http.MethodPost, path, sheet("03/02/2026", true))
	checkCode(t, rec, http.StatusBadRequest)

	for _, tt := range []struct {
		date    string
		present bool
	}{
		{"2026-03-02", true},
		{"2026-03-03", true},
		{"2026-03-04", true},
		{"2026-03-05", false},
	} {
		rec = jsonRequest(t, http.MethodPost, path, sheet(tt.date, tt.present))
		checkCode(t, rec, http.StatusNoContent)
	}

	rec = jsonRequest(t, http.MethodGet, "/api/student/attendance?studentEmail=baraka@test.cd", nil)
	checkCode(t, rec, http.StatusOK)
	var records []school.AttendanceRecord
	decode(t, rec, &records)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Present)
	assert.Equal(t, 4, records[0].Total)
	assert.Equal(t, 75.0, records[0].Percentage)
	assert.Equal(t, school.AttendanceOK, records[0].Status)
}

func Test_resultsApi(t *testing.T) {
	path := "/api/teacher/classes/walimu@test.cd/results?subjectId=BIO-201"

	// marks above maxMarks are rejected
	rec := jsonRequest(t, http.MethodPost, path, map[string]interface{}{
		"semester": "2026-S1",
		"results": []map[string]interface{}{
			{"studentEmail": "baraka@test.cd", "marks": 120},
		},
	})
	checkCode(t, rec, http.StatusBadRequest)

	rec = jsonRequest(t, http.MethodPost, path, map[string]interface{}{
		"semester": "2026-S1",
		"results": []map[string]interface{}{
			{"studentEmail": "baraka@test.cd", "marks": 85},
		},
	})
	checkCode(t, rec, http.StatusNoContent)

	q := url.Values{"studentEmail": {"baraka@test.cd"}, "subjectId": {"BIO-201"}}
	rec = jsonRequest(t, http.MethodGet, "/api/student/results?"+q.Encode(), nil)
	checkCode(t, rec, http.StatusOK)
	var view []school.ResultView
	decode(t, rec, &view)
	require.Len(t, view, 1)
	assert.Equal(t, 85.0, view[0].Marks)
	assert.Equal(t, 85.0, view[0].Percentage.Float64)
	assert.Equal(t, "A", view[0].Grade)

	rec = jsonRequest(t, http.MethodGet, path, nil)
	checkCode(t, rec, http.StatusOK)
	var rows []school.Result
	decode(t, rec, &rows)
	assert.Len(t, rows, 1)
}
