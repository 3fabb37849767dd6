package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kalasi/darasa/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sql.DB) school.Repository {
	return &schoolRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *schoolRepository) CreateLink(link school.Link) (school.Link, error) {
	// identical triple: no-op, keep the original row
	_, err := repo.db.Exec(
		`INSERT INTO links (student_email, student_name, teacher_email, teacher_name, subject_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (student_email, teacher_email, subject_id) DO NOTHING`,
		link.StudentEmail, link.StudentName, link.TeacherEmail, link.TeacherName, link.SubjectID, link.CreatedAt,
	)
	if err != nil {
		return school.Link{}, errors.Wrap(err, "inserting link")
	}

	var row school.Link
	err = repo.db.Get(&row,
		`SELECT * FROM links WHERE student_email = $1 AND teacher_email = $2 AND subject_id = $3`,
		link.StudentEmail, link.TeacherEmail, link.SubjectID,
	)
	if err != nil {
		return school.Link{}, errors.Wrap(err, "fetching link")
	}
	return row, nil
}

func (repo *schoolRepository) FilterLinks(filter school.LinkFilter) ([]school.Link, error) {
	where, args := buildWhere(map[string]interface{}{
		"student_email": filter.StudentEmail,
		"teacher_email": filter.TeacherEmail,
		"subject_id":    filter.SubjectID,
	})
	var links []school.Link
	if err := repo.db.Select(&links, "SELECT * FROM links"+where, args...); err != nil {
		return nil, errors.Wrap(err, "filtering links")
	}
	return links, nil
}

func (repo *schoolRepository) CreateQuery(query school.Query) (school.Query, error) {
	_, err := repo.db.Exec(
		`INSERT INTO queries (id, student_email, teacher_email, message, reply, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		query.ID, query.StudentEmail, query.TeacherEmail, query.Message, query.Reply, query.CreatedAt,
	)
	if err != nil {
		return school.Query{}, errors.Wrap(err, "inserting query")
	}
	return query, nil
}

func (repo *schoolRepository) GetQueryByID(id string) (school.Query, error) {
	var qry school.Query
	err := repo.db.Get(&qry, `SELECT * FROM queries WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return school.Query{}, school.ErrQueryNotFound
	}
	if err != nil {
		return school.Query{}, errors.Wrap(err, "fetching query")
	}
	return qry, nil
}

func (repo *schoolRepository) FilterQueries(filter school.QueryFilter) ([]school.Query, error) {
	where, args := buildWhere(map[string]interface{}{
		"student_email": filter.StudentEmail,
		"teacher_email": filter.TeacherEmail,
	})
	var queries []school.Query
	if err := repo.db.Select(&queries, "SELECT * FROM queries"+where, args...); err != nil {
		return nil, errors.Wrap(err, "filtering queries")
	}
	return queries, nil
}

func (repo *schoolRepository) SetQueryReply(id string, reply null.String) (school.Query, error) {
	// single-column atomic overwrite; last write wins
	res, err := repo.db.Exec(`UPDATE queries SET reply = $1 WHERE id = $2`, reply, id)
	if err != nil {
		return school.Query{}, errors.Wrap(err, "updating reply")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Query{}, school.ErrQueryNotFound
	}
	return repo.GetQueryByID(id)
}

func (repo *schoolRepository) AddClearedNotification(principalEmail, queryID string) error {
	// re-clearing is a no-op success
	_, err := repo.db.Exec(
		`INSERT INTO cleared_notifications (principal_email, query_id) VALUES ($1, $2)
		 ON CONFLICT (principal_email, query_id) DO NOTHING`,
		principalEmail, queryID,
	)
	return errors.Wrap(err, "inserting cleared notification")
}

func (repo *schoolRepository) GetClearedNotifications(principalEmail string) (map[string]struct{}, error) {
	var ids []string
	err := repo.db.Select(&ids, `SELECT query_id FROM cleared_notifications WHERE principal_email = $1`, principalEmail)
	if err != nil {
		return nil, errors.Wrap(err, "fetching cleared notifications")
	}
	cleared := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		cleared[id] = struct{}{}
	}
	return cleared, nil
}

func (repo *schoolRepository) CreateAssignment(assignment school.Assignment) (school.Assignment, error) {
	_, err := repo.db.Exec(
		`INSERT INTO assignments (id, title, description, subject_id, teacher_email, file_path, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		assignment.ID, assignment.Title, assignment.Description, assignment.SubjectID,
		assignment.TeacherEmail, assignment.FilePath, assignment.CreatedAt,
	)
	if err != nil {
		return school.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return assignment, nil
}

func (repo *schoolRepository) GetAssignmentByID(id string) (school.Assignment, error) {
	var assignment school.Assignment
	err := repo.db.Get(&assignment, `SELECT * FROM assignments WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return school.Assignment{}, school.ErrAssignmentNotFound
	}
	if err != nil {
		return school.Assignment{}, errors.Wrap(err, "fetching assignment")
	}
	return assignment, nil
}

func (repo *schoolRepository) FilterAssignments(filter school.AssignmentFilter) ([]school.Assignment, error) {
	where, args := buildWhere(map[string]interface{}{
		"subject_id":    filter.SubjectID,
		"teacher_email": filter.TeacherEmail,
	})
	var assignments []school.Assignment
	if err := repo.db.Select(&assignments, "SELECT * FROM assignments"+where, args...); err != nil {
		return nil, errors.Wrap(err, "filtering assignments")
	}
	return assignments, nil
}

func (repo *schoolRepository) UpsertSubmission(submission school.Submission) (school.Submission, error) {
	_, err := repo.db.Exec(
		`INSERT INTO submissions (assignment_id, student_email, submission_notes, file_path, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (assignment_id, student_email)
		 DO UPDATE SET submission_notes = EXCLUDED.submission_notes,
		               file_path        = EXCLUDED.file_path,
		               submitted_at     = EXCLUDED.submitted_at`,
		submission.AssignmentID, submission.StudentEmail, submission.SubmissionNotes,
		submission.FilePath, submission.SubmittedAt,
	)
	if err != nil {
		return school.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return submission, nil
}

func (repo *schoolRepository) GetSubmission(assignmentID, studentEmail string) (school.Submission, error) {
	var sub school.Submission
	err := repo.db.Get(&sub,
		`SELECT * FROM submissions WHERE assignment_id = $1 AND student_email = $2`,
		assignmentID, studentEmail,
	)
	if err == sql.ErrNoRows {
		return school.Submission{}, school.ErrSubmissionNotFound
	}
	if err != nil {
		return school.Submission{}, errors.Wrap(err, "fetching submission")
	}
	return sub, nil
}

func (repo *schoolRepository) FilterSubmissionsByAssignments(assignmentIDs []string) ([]school.Submission, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM submissions WHERE assignment_id IN (?)`, assignmentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building submissions query")
	}
	var submissions []school.Submission
	if err = repo.db.Select(&submissions, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering submissions")
	}
	return submissions, nil
}

func (repo *schoolRepository) CreateAttendanceMarks(marks []school.AttendanceMark) error {
	tx, err := repo.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	for _, mark := range marks {
		_, err = tx.Exec(
			`INSERT INTO attendance_marks (student_email, teacher_email, subject_id, date, present)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (student_email, teacher_email, subject_id, date)
			 DO UPDATE SET present = EXCLUDED.present`,
			mark.StudentEmail, mark.TeacherEmail, mark.SubjectID, mark.Date, mark.Present,
		)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "inserting attendance mark")
		}
	}
	return errors.Wrap(tx.Commit(), "committing attendance marks")
}

func (repo *schoolRepository) FilterAttendanceMarks(filter school.AttendanceFilter) ([]school.AttendanceMark, error) {
	where, args := buildWhere(map[string]interface{}{
		"student_email": filter.StudentEmail,
		"teacher_email": filter.TeacherEmail,
		"subject_id":    filter.SubjectID,
	})
	var marks []school.AttendanceMark
	if err := repo.db.Select(&marks, "SELECT * FROM attendance_marks"+where, args...); err != nil {
		return nil, errors.Wrap(err, "filtering attendance marks")
	}
	return marks, nil
}

func (repo *schoolRepository) CreateResults(results []school.Result) error {
	tx, err := repo.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	for _, res := range results {
		_, err = tx.Exec(
			`INSERT INTO results (id, student_email, teacher_email, subject_id, semester, marks, max_marks, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			res.ID, res.StudentEmail, res.TeacherEmail, res.SubjectID, res.Semester,
			res.Marks, res.MaxMarks, res.CreatedAt,
		)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "inserting result")
		}
	}
	return errors.Wrap(tx.Commit(), "committing results")
}

func (repo *schoolRepository) FilterResults(filter school.ResultFilter) ([]school.Result, error) {
	where, args := buildWhere(map[string]interface{}{
		"student_email": filter.StudentEmail,
		"subject_id":    filter.SubjectID,
		"semester":      filter.Semester,
	})
	var results []school.Result
	if err := repo.db.Select(&results, "SELECT * FROM results"+where, args...); err != nil {
		return nil, errors.Wrap(err, "filtering results")
	}
	return results, nil
}

// buildWhere assembles an AND-ed WHERE clause from the non-empty values.
func buildWhere(conds map[string]interface{}) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	for col, val := range conds {
		if s, ok := val.(string); ok && s == "" {
			continue
		}
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
