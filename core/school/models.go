package school

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/kalasi/darasa/core"
)

// Principal roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// Query states
const (
	QueryPending  = "Pending"
	QueryAnswered = "Answered"
)

// Link associates a student to a teacher for a specific subject.
// At most one Link exists per (student, teacher, subject) triple; re-linking
// an identical triple is a no-op.
type Link struct {
	StudentEmail string    `json:"studentEmail" db:"student_email"`
	StudentName  string    `json:"studentName" db:"student_name"`
	TeacherEmail string    `json:"teacherEmail" db:"teacher_email"`
	TeacherName  string    `json:"teacherName" db:"teacher_name"`
	SubjectID    string    `json:"subjectId" db:"subject_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"` // UTC
}

// Query is a student question addressed to a teacher; it becomes Answered once
// the addressed teacher replies. The reply is canonically null when absent -
// state is never inferred from string emptiness.
type Query struct {
	ID           string      `json:"id" db:"id"`
	StudentEmail string      `json:"studentEmail" db:"student_email"`
	TeacherEmail string      `json:"teacherEmail" db:"teacher_email"`
	Message      string      `json:"message" db:"message"`
	Reply        null.String `json:"reply,omitempty" db:"reply"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"` // UTC
}

func (q Query) Answered() bool { return q.Reply.Valid }

func (q Query) Status() string {
	if q.Answered() {
		return QueryAnswered
	}
	return QueryPending
}

type Assignment struct {
	ID           string      `json:"id" db:"id"`
	Title        string      `json:"title" db:"title"`
	Description  string      `json:"description" db:"description"`
	SubjectID    string      `json:"subjectId" db:"subject_id"`
	TeacherEmail string      `json:"teacherEmail" db:"teacher_email"`
	FilePath     null.String `json:"filePath,omitempty" db:"file_path"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"` // UTC
}

// Submission is a student's answer to an Assignment. At most one exists per
// (assignment, student) pair; a later submission overwrites the prior one.
type Submission struct {
	AssignmentID    string      `json:"assignmentId" db:"assignment_id"`
	StudentEmail    string      `json:"studentEmail" db:"student_email"`
	SubmissionNotes null.String `json:"submissionNotes,omitempty" db:"submission_notes"`
	FilePath        null.String `json:"filePath,omitempty" db:"file_path"`
	SubmittedAt     time.Time   `json:"submittedAt" db:"submitted_at"` // UTC
}

// StudentAssignment is an Assignment as seen by one student, joined with
// their Submission if any.
type StudentAssignment struct {
	Assignment
	Submitted       bool        `json:"submitted"`
	SubmissionNotes null.String `json:"submissionNotes,omitempty"`
	SubmittedAt     null.Time   `json:"submittedAt,omitempty"`
}

// TeacherSubmission is a Submission as seen by the owning teacher, joined
// with assignment and student display info.
type TeacherSubmission struct {
	AssignmentID    string      `json:"assignmentId"`
	AssignmentTitle string      `json:"assignmentTitle"`
	SubjectID       string      `json:"subjectId"`
	StudentEmail    string      `json:"studentEmail"`
	StudentName     string      `json:"studentName"`
	SubmissionNotes null.String `json:"submissionNotes,omitempty"`
	FilePath        null.String `json:"filePath,omitempty"`
	SubmittedAt     time.Time   `json:"submittedAt"`
}

// AttendanceMark is one per-date presence row, as recorded by a teacher.
type AttendanceMark struct {
	StudentEmail string    `json:"studentEmail" db:"student_email"`
	TeacherEmail string    `json:"teacherEmail" db:"teacher_email"`
	SubjectID    string    `json:"subjectId" db:"subject_id"`
	Date         time.Time `json:"date" db:"date"`
	Present      bool      `json:"present" db:"present"`
}

// AttendanceRecord is the aggregated per-subject read shape. present <= total
// holds by construction since both are counts over the same mark rows.
type AttendanceRecord struct {
	SubjectID  string  `json:"subject"`
	Present    int     `json:"present"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Status     string  `json:"status"`
}

type Result struct {
	ID           string    `json:"id" db:"id"`
	StudentEmail string    `json:"studentEmail" db:"student_email"`
	TeacherEmail string    `json:"teacherEmail" db:"teacher_email"`
	SubjectID    string    `json:"subjectId" db:"subject_id"`
	Semester     string    `json:"semester" db:"semester"`
	Marks        float64   `json:"marks" db:"marks"`
	MaxMarks     float64   `json:"maxMarks" db:"max_marks"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"` // UTC
}

// ResultView is the aggregated per-subject read shape: the latest Result per
// subject with its derived percentage and grade.
type ResultView struct {
	SubjectID  string       `json:"subject"`
	Semester   string       `json:"semester"`
	Marks      float64      `json:"marks"`
	MaxMarks   float64      `json:"maxMarks"`
	Percentage null.Float64 `json:"percentage,omitempty"`
	Grade      string       `json:"grade"`
}

// ClassStudent is one roster entry derived from Links.
type ClassStudent struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewLink contains information needed to link a student to a teacher.
type NewLink struct {
	StudentEmail string `json:"studentEmail" validate:"required,email"`
	StudentName  string `json:"studentName"`
	TeacherEmail string `json:"teacherEmail" validate:"required,email"`
	TeacherName  string `json:"teacherName"`
	SubjectID    string `json:"subjectId" validate:"required,subjectid"`
}

func (nl *NewLink) Validate(validate *validator.Validate) error {
	nl.StudentEmail = core.CleanString(nl.StudentEmail, true /* lower */)
	nl.TeacherEmail = core.CleanString(nl.TeacherEmail, true /* lower */)
	nl.StudentName = core.CleanString(nl.StudentName)
	nl.TeacherName = core.CleanString(nl.TeacherName)
	nl.SubjectID = core.CleanString(nl.SubjectID)
	return validate.Struct(nl)
}

// NewQuery contains information needed to create a Query.
// The teacherId field carries the teacher's email; the field name is part of
// the preserved API contract.
type NewQuery struct {
	StudentEmail string `json:"studentEmail" validate:"required,email"`
	TeacherEmail string `json:"teacherId" validate:"required,email"`
	Message      string `json:"message" validate:"required"`
}

func (nq *NewQuery) Validate(validate *validator.Validate) error {
	nq.StudentEmail = core.CleanString(nq.StudentEmail, true /* lower */)
	nq.TeacherEmail = core.CleanString(nq.TeacherEmail, true /* lower */)
	nq.Message = core.CleanString(nq.Message)
	return validate.Struct(nq)
}

// QueryReply carries a teacher's reply to a Query. A blank reply is a
// validation error, not an empty-string reply.
type QueryReply struct {
	TeacherEmail string `json:"teacherEmail" validate:"required,email"`
	Reply        string `json:"reply" validate:"required"`
}

func (qr *QueryReply) Validate(validate *validator.Validate) error {
	qr.TeacherEmail = core.CleanString(qr.TeacherEmail, true /* lower */)
	qr.Reply = core.CleanString(qr.Reply)
	return validate.Struct(qr)
}

// NewAssignment contains information needed to create an Assignment.
type NewAssignment struct {
	Title        string `json:"title" form:"title" validate:"required"`
	Description  string `json:"description" form:"description"`
	SubjectID    string `json:"subjectId" form:"subjectId" validate:"required,subjectid"`
	TeacherEmail string `json:"teacherEmail" form:"teacherEmail" validate:"required,email"`
	FilePath     string `json:"-" form:"-"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.SubjectID = core.CleanString(na.SubjectID)
	na.TeacherEmail = core.CleanString(na.TeacherEmail, true /* lower */)
	return validate.Struct(na)
}

// NewSubmission contains information needed to submit an Assignment.
type NewSubmission struct {
	AssignmentID    string `json:"assignmentId" form:"assignmentId" validate:"required"`
	StudentEmail    string `json:"studentEmail" form:"studentEmail" validate:"required,email"`
	SubmissionNotes string `json:"submissionNotes" form:"submissionNotes"`
	FilePath        string `json:"-" form:"-"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.AssignmentID = core.CleanString(ns.AssignmentID)
	ns.StudentEmail = core.CleanString(ns.StudentEmail, true /* lower */)
	ns.SubmissionNotes = core.CleanString(ns.SubmissionNotes)
	return validate.Struct(ns)
}

type AttendanceEntry struct {
	StudentEmail string `json:"studentEmail" validate:"required,email"`
	Present      bool   `json:"present"`
}

// AttendanceSheet is one day's attendance for a class, recorded atomically.
type AttendanceSheet struct {
	Date       string            `json:"date" validate:"required"`
	Attendance []AttendanceEntry `json:"attendance" validate:"required,min=1,dive"`
}

func (as *AttendanceSheet) Validate(validate *validator.Validate) error {
	as.Date = core.CleanString(as.Date)
	for i := range as.Attendance {
		as.Attendance[i].StudentEmail = core.CleanString(as.Attendance[i].StudentEmail, true /* lower */)
	}
	if err := validate.Struct(as); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", as.Date); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a YYYY-MM-DD date"})
	}
	return nil
}

type ResultEntry struct {
	StudentEmail string   `json:"studentEmail" validate:"required,email"`
	Marks        float64  `json:"marks" validate:"gte=0"`
	MaxMarks     *float64 `json:"maxMarks" validate:"omitempty,gt=0"`
}

// ResultSheet is a batch of semester results for a class, recorded atomically.
type ResultSheet struct {
	Semester string        `json:"semester" validate:"required"`
	Results  []ResultEntry `json:"results" validate:"required,min=1,dive"`
}

func (rs *ResultSheet) Validate(validate *validator.Validate) error {
	rs.Semester = core.CleanString(rs.Semester)
	for i := range rs.Results {
		rs.Results[i].StudentEmail = core.CleanString(rs.Results[i].StudentEmail, true /* lower */)
	}
	if err := validate.Struct(rs); err != nil {
		return err
	}
	for _, entry := range rs.Results {
		max := DefaultMaxMarks
		if entry.MaxMarks != nil {
			max = *entry.MaxMarks
		}
		if entry.Marks > max {
			return core.NewValidationError(nil, core.FieldError{Field: "marks", Error: "marks may not exceed maxMarks"})
		}
	}
	return nil
}
