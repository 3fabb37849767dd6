package school

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/kalasi/darasa/core"
)

var (
	// errors
	ErrQueryNotFound      = errors.New("query not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)

type (
	LinkFilter struct {
		StudentEmail string
		TeacherEmail string
		SubjectID    string
	}

	QueryFilter struct {
		StudentEmail string
		TeacherEmail string
	}

	AssignmentFilter struct {
		SubjectID    string
		TeacherEmail string
	}

	AttendanceFilter struct {
		StudentEmail string
		TeacherEmail string
		SubjectID    string
	}

	ResultFilter struct {
		StudentEmail string
		SubjectID    string
		Semester     string
	}

	Repository interface {
		// CreateLink persists a Link; an identical (student, teacher, subject)
		// triple is a no-op returning the existing row.
		CreateLink(link Link) (Link, error)
		FilterLinks(filter LinkFilter) ([]Link, error)

		CreateQuery(query Query) (Query, error)
		GetQueryByID(id string) (Query, error)
		FilterQueries(filter QueryFilter) ([]Query, error)
		// SetQueryReply overwrites the reply column atomically (last write wins).
		SetQueryReply(id string, reply null.String) (Query, error)

		// AddClearedNotification is idempotent; re-clearing is a no-op success.
		AddClearedNotification(principalEmail, queryID string) error
		GetClearedNotifications(principalEmail string) (map[string]struct{}, error)

		CreateAssignment(assignment Assignment) (Assignment, error)
		GetAssignmentByID(id string) (Assignment, error)
		FilterAssignments(filter AssignmentFilter) ([]Assignment, error)

		// UpsertSubmission keeps at most one row per (assignment, student) pair.
		UpsertSubmission(submission Submission) (Submission, error)
		GetSubmission(assignmentID, studentEmail string) (Submission, error)
		FilterSubmissionsByAssignments(assignmentIDs []string) ([]Submission, error)

		// CreateAttendanceMarks persists a batch atomically; re-posting a
		// (student, teacher, subject, date) mark overwrites it, never
		// double-counts.
		CreateAttendanceMarks(marks []AttendanceMark) error
		FilterAttendanceMarks(filter AttendanceFilter) ([]AttendanceMark, error)

		// CreateResults persists a batch atomically.
		CreateResults(results []Result) error
		FilterResults(filter ResultFilter) ([]Result, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

// LinkTeacher associates a student with a teacher for a subject. Linking the
// same triple twice never creates a second row.
func (svc *Service) LinkTeacher(nl NewLink) (Link, error) {
	if nl.StudentName == "" {
		nl.StudentName = emailLocalPart(nl.StudentEmail)
	}
	if nl.TeacherName == "" {
		nl.TeacherName = emailLocalPart(nl.TeacherEmail)
	}
	return svc.repo.CreateLink(Link{
		StudentEmail: nl.StudentEmail,
		StudentName:  nl.StudentName,
		TeacherEmail: nl.TeacherEmail,
		TeacherName:  nl.TeacherName,
		SubjectID:    nl.SubjectID,
		CreatedAt:    time.Now().UTC(),
	})
}

// SubmitQuery creates a Pending Query addressed to a teacher. No prior Link
// is required to ask a question.
func (svc *Service) SubmitQuery(nq NewQuery) (Query, error) {
	return svc.repo.CreateQuery(Query{
		ID:           uuid.New().String(),
		StudentEmail: nq.StudentEmail,
		TeacherEmail: nq.TeacherEmail,
		Message:      nq.Message,
		CreatedAt:    time.Now().UTC(),
	})
}

// Reply transitions a Query to Answered. Only the addressed teacher may reply;
// a racing reply simply overwrites (last write wins), never reverting the
// Answered state.
func (svc *Service) Reply(queryID string, qr QueryReply) (Query, error) {
	qry, err := svc.repo.GetQueryByID(queryID)
	if err != nil {
		return Query{}, err
	}
	if qry.TeacherEmail != qr.TeacherEmail {
		return Query{}, core.NewValidationError(nil,
			core.FieldError{Field: "teacherEmail", Error: "query is not addressed to this teacher"})
	}

	qry, err = svc.repo.SetQueryReply(queryID, null.StringFrom(qr.Reply))
	if err != nil {
		return Query{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: qry.StudentEmail}},
		Subject: "Your teacher replied",
		BodyStr: fmt.Sprintf("%s replied to your question: %s", qry.TeacherEmail, qr.Reply),
	})
	return qry, nil
}

// ListNotifications returns the Queries addressed to a principal, minus the
// ones they have cleared, most recent first. An unknown principal gets an
// empty feed, never an error.
func (svc *Service) ListNotifications(principalEmail, role string) ([]Query, error) {
	principalEmail = core.CleanString(principalEmail, true /* lower */)

	var filter QueryFilter
	if role == RoleTeacher {
		filter.TeacherEmail = principalEmail
	} else {
		filter.StudentEmail = principalEmail
	}
	queries, err := svc.repo.FilterQueries(filter)
	if err != nil {
		return nil, err
	}
	cleared, err := svc.repo.GetClearedNotifications(principalEmail)
	if err != nil {
		return nil, err
	}

	feed := make([]Query, 0, len(queries))
	for _, qry := range queries {
		if _, ok := cleared[qry.ID]; ok {
			continue
		}
		feed = append(feed, qry)
	}
	sort.SliceStable(feed, func(i, j int) bool {
		if feed[i].CreatedAt.Equal(feed[j].CreatedAt) {
			return feed[i].ID > feed[j].ID
		}
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})
	return feed, nil
}

// Queries lists every Query addressed to a teacher, cleared or not, most
// recent first. This is the teacher's full question log, not their feed.
func (svc *Service) Queries(teacherEmail string) ([]Query, error) {
	teacherEmail = core.CleanString(teacherEmail, true /* lower */)

	queries, err := svc.repo.FilterQueries(QueryFilter{TeacherEmail: teacherEmail})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(queries, func(i, j int) bool {
		if queries[i].CreatedAt.Equal(queries[j].CreatedAt) {
			return queries[i].ID > queries[j].ID
		}
		return queries[i].CreatedAt.After(queries[j].CreatedAt)
	})
	return queries, nil
}

// ClearNotification dismisses a Query from one principal's feed only. The
// Query itself is untouched and stays visible to the other party.
func (svc *Service) ClearNotification(principalEmail, queryID string) error {
	principalEmail = core.CleanString(principalEmail, true /* lower */)
	return svc.repo.AddClearedNotification(principalEmail, queryID)
}

// CreateAssignment creates an Assignment and fans out a notification Query to
// every student linked to this teacher for the subject.
func (svc *Service) CreateAssignment(na NewAssignment) (Assignment, error) {
	assignment, err := svc.repo.CreateAssignment(Assignment{
		ID:           uuid.New().String(),
		Title:        na.Title,
		Description:  na.Description,
		SubjectID:    na.SubjectID,
		TeacherEmail: na.TeacherEmail,
		FilePath:     null.NewString(na.FilePath, na.FilePath != ""),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return Assignment{}, err
	}

	links, err := svc.repo.FilterLinks(LinkFilter{TeacherEmail: na.TeacherEmail, SubjectID: na.SubjectID})
	if err != nil {
		return Assignment{}, err
	}
	messages := make([]*core.EmailMessage, 0, len(links))
	for _, link := range links {
		_, err = svc.repo.CreateQuery(Query{
			ID:           uuid.New().String(),
			StudentEmail: link.StudentEmail,
			TeacherEmail: na.TeacherEmail,
			Message:      "New assignment posted: " + na.Title,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return Assignment{}, err
		}
		messages = append(messages, &core.EmailMessage{
			To:      []mail.Address{{Name: link.StudentName, Address: link.StudentEmail}},
			Subject: "New assignment posted",
			BodyStr: fmt.Sprintf("%s posted a new assignment for %s: %s", link.TeacherName, na.SubjectID, na.Title),
		})
	}
	svc.mailSvc.SendMessages(messages...)
	return assignment, nil
}

// StudentAssignments lists assignments visible to a student, each joined with
// the student's own Submission if any.
func (svc *Service) StudentAssignments(studentEmail, subjectID string) ([]StudentAssignment, error) {
	studentEmail = core.CleanString(studentEmail, true /* lower */)

	assignments, err := svc.repo.FilterAssignments(AssignmentFilter{SubjectID: subjectID})
	if err != nil {
		return nil, err
	}

	view := make([]StudentAssignment, 0, len(assignments))
	for _, assignment := range assignments {
		sa := StudentAssignment{Assignment: assignment}
		sub, err := svc.repo.GetSubmission(assignment.ID, studentEmail)
		switch {
		case err == nil:
			sa.Submitted = true
			sa.SubmissionNotes = sub.SubmissionNotes
			sa.SubmittedAt = null.TimeFrom(sub.SubmittedAt)
		case errors.Is(err, ErrSubmissionNotFound):
		default:
			return nil, err
		}
		view = append(view, sa)
	}
	sort.SliceStable(view, func(i, j int) bool { return view[i].CreatedAt.After(view[j].CreatedAt) })
	return view, nil
}

// SubmitAssignment records a student's submission. Submitting twice for the
// same assignment overwrites the previous submission (last write wins).
func (svc *Service) SubmitAssignment(ns NewSubmission) (Submission, error) {
	if _, err := svc.repo.GetAssignmentByID(ns.AssignmentID); err != nil {
		return Submission{}, err
	}
	return svc.repo.UpsertSubmission(Submission{
		AssignmentID:    ns.AssignmentID,
		StudentEmail:    ns.StudentEmail,
		SubmissionNotes: null.NewString(ns.SubmissionNotes, ns.SubmissionNotes != ""),
		FilePath:        null.NewString(ns.FilePath, ns.FilePath != ""),
		SubmittedAt:     time.Now().UTC(),
	})
}

// TeacherSubmissions lists all submissions to a teacher's assignments, joined
// with assignment and student display info, most recent first.
func (svc *Service) TeacherSubmissions(teacherEmail string) ([]TeacherSubmission, error) {
	teacherEmail = core.CleanString(teacherEmail, true /* lower */)

	assignments, err := svc.repo.FilterAssignments(AssignmentFilter{TeacherEmail: teacherEmail})
	if err != nil {
		return nil, err
	}
	return svc.submissionsView(assignments)
}

// AssignmentSubmissions lists the submissions for a single assignment.
func (svc *Service) AssignmentSubmissions(assignmentID string) ([]TeacherSubmission, error) {
	assignment, err := svc.repo.GetAssignmentByID(assignmentID)
	if err != nil {
		return nil, err
	}
	return svc.submissionsView([]Assignment{assignment})
}

func (svc *Service) submissionsView(assignments []Assignment) ([]TeacherSubmission, error) {
	byID := make(map[string]Assignment, len(assignments))
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	submissions, err := svc.repo.FilterSubmissionsByAssignments(ids)
	if err != nil {
		return nil, err
	}

	view := make([]TeacherSubmission, 0, len(submissions))
	for _, sub := range submissions {
		assignment := byID[sub.AssignmentID]
		view = append(view, TeacherSubmission{
			AssignmentID:    sub.AssignmentID,
			AssignmentTitle: assignment.Title,
			SubjectID:       assignment.SubjectID,
			StudentEmail:    sub.StudentEmail,
			StudentName:     svc.displayName(sub.StudentEmail),
			SubmissionNotes: sub.SubmissionNotes,
			FilePath:        sub.FilePath,
			SubmittedAt:     sub.SubmittedAt,
		})
	}
	sort.SliceStable(view, func(i, j int) bool { return view[i].SubmittedAt.After(view[j].SubmittedAt) })
	return view, nil
}

// ClassStudents returns the roster for a teacher+subject, derived from Links.
func (svc *Service) ClassStudents(teacherEmail, subjectID string) ([]ClassStudent, error) {
	teacherEmail = core.CleanString(teacherEmail, true /* lower */)

	links, err := svc.repo.FilterLinks(LinkFilter{TeacherEmail: teacherEmail, SubjectID: subjectID})
	if err != nil {
		return nil, err
	}
	roster := make([]ClassStudent, 0, len(links))
	for _, link := range links {
		roster = append(roster, ClassStudent{Email: link.StudentEmail, Name: link.StudentName})
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].Email < roster[j].Email })
	return roster, nil
}

// RecordAttendance persists one day's marks for a class as a single batch.
func (svc *Service) RecordAttendance(teacherEmail, subjectID string, sheet AttendanceSheet) error {
	teacherEmail = core.CleanString(teacherEmail, true /* lower */)
	date, err := time.Parse("2006-01-02", sheet.Date)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a YYYY-MM-DD date"})
	}

	marks := make([]AttendanceMark, 0, len(sheet.Attendance))
	for _, entry := range sheet.Attendance {
		marks = append(marks, AttendanceMark{
			StudentEmail: entry.StudentEmail,
			TeacherEmail: teacherEmail,
			SubjectID:    subjectID,
			Date:         date,
			Present:      entry.Present,
		})
	}
	return svc.repo.CreateAttendanceMarks(marks)
}

// StudentAttendance aggregates a student's marks per subject. present <= total
// holds by construction: both are counts over the same rows.
func (svc *Service) StudentAttendance(studentEmail, subjectID, teacherEmail string) ([]AttendanceRecord, error) {
	studentEmail = core.CleanString(studentEmail, true /* lower */)
	teacherEmail = core.CleanString(teacherEmail, true /* lower */)

	marks, err := svc.repo.FilterAttendanceMarks(AttendanceFilter{
		StudentEmail: studentEmail,
		TeacherEmail: teacherEmail,
		SubjectID:    subjectID,
	})
	if err != nil {
		return nil, err
	}

	present := make(map[string]int)
	total := make(map[string]int)
	for _, mark := range marks {
		total[mark.SubjectID]++
		if mark.Present {
			present[mark.SubjectID]++
		}
	}

	records := make([]AttendanceRecord, 0, len(total))
	for subject, count := range total {
		pct := AttendancePercentage(present[subject], count)
		records = append(records, AttendanceRecord{
			SubjectID:  subject,
			Present:    present[subject],
			Total:      count,
			Percentage: pct,
			Status:     AttendanceStatus(pct),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].SubjectID < records[j].SubjectID })
	return records, nil
}

// RecordResults persists a semester's result batch for a class.
func (svc *Service) RecordResults(teacherEmail, subjectID string, sheet ResultSheet) error {
	teacherEmail = core.CleanString(teacherEmail, true /* lower */)

	results := make([]Result, 0, len(sheet.Results))
	now := time.Now().UTC()
	for _, entry := range sheet.Results {
		max := DefaultMaxMarks
		if entry.MaxMarks != nil {
			max = *entry.MaxMarks
		}
		results = append(results, Result{
			ID:           uuid.New().String(),
			StudentEmail: entry.StudentEmail,
			TeacherEmail: teacherEmail,
			SubjectID:    subjectID,
			Semester:     sheet.Semester,
			Marks:        entry.Marks,
			MaxMarks:     max,
			CreatedAt:    now,
		})
	}
	return svc.repo.CreateResults(results)
}

// StudentResults aggregates a student's results per subject: the latest row
// per subject (highest semester, then latest created) with derived
// percentage and grade.
func (svc *Service) StudentResults(studentEmail, subjectID, teacherEmail, semester string) ([]ResultView, error) {
	studentEmail = core.CleanString(studentEmail, true /* lower */)
	teacherEmail = core.CleanString(teacherEmail, true /* lower */)

	results, err := svc.repo.FilterResults(ResultFilter{
		StudentEmail: studentEmail,
		SubjectID:    subjectID,
		Semester:     semester,
	})
	if err != nil {
		return nil, err
	}
	if teacherEmail != "" {
		// keep only subjects the student takes with this teacher
		links, err := svc.repo.FilterLinks(LinkFilter{StudentEmail: studentEmail, TeacherEmail: teacherEmail})
		if err != nil {
			return nil, err
		}
		taught := make(map[string]struct{}, len(links))
		for _, link := range links {
			taught[link.SubjectID] = struct{}{}
		}
		filtered := results[:0]
		for _, res := range results {
			if _, ok := taught[res.SubjectID]; ok {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}

	latest := make(map[string]Result)
	for _, res := range results {
		prev, ok := latest[res.SubjectID]
		if !ok || res.Semester > prev.Semester ||
			(res.Semester == prev.Semester && res.CreatedAt.After(prev.CreatedAt)) {
			latest[res.SubjectID] = res
		}
	}

	view := make([]ResultView, 0, len(latest))
	for _, res := range latest {
		pct, ok := ResultPercentage(res.Marks, res.MaxMarks)
		view = append(view, ResultView{
			SubjectID:  res.SubjectID,
			Semester:   res.Semester,
			Marks:      res.Marks,
			MaxMarks:   res.MaxMarks,
			Percentage: null.NewFloat64(pct, ok),
			Grade:      ResultGrade(pct, ok),
		})
	}
	sort.Slice(view, func(i, j int) bool { return view[i].SubjectID < view[j].SubjectID })
	return view, nil
}

// ClassResults lists the raw result rows for a teacher's class.
func (svc *Service) ClassResults(teacherEmail, subjectID string) ([]Result, error) {
	teacherEmail = core.CleanString(teacherEmail, true /* lower */)

	results, err := svc.repo.FilterResults(ResultFilter{SubjectID: subjectID})
	if err != nil {
		return nil, err
	}
	classResults := make([]Result, 0, len(results))
	for _, res := range results {
		if res.TeacherEmail == teacherEmail {
			classResults = append(classResults, res)
		}
	}
	sort.SliceStable(classResults, func(i, j int) bool {
		if classResults[i].StudentEmail == classResults[j].StudentEmail {
			return classResults[i].Semester < classResults[j].Semester
		}
		return classResults[i].StudentEmail < classResults[j].StudentEmail
	})
	return classResults, nil
}

func (svc *Service) displayName(studentEmail string) string {
	links, err := svc.repo.FilterLinks(LinkFilter{StudentEmail: studentEmail})
	if err == nil {
		for _, link := range links {
			if link.StudentName != "" {
				return link.StudentName
			}
		}
	}
	return emailLocalPart(studentEmail)
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
