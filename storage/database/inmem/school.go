package inmemdb

import (
	"github.com/volatiletech/null/v8"

	"github.com/kalasi/darasa/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateLink(link school.Link) (school.Link, error) {
	t := repo.db.links
	t.Lock()
	defer t.Unlock()

	for _, row := range t.rows {
		if row.StudentEmail == link.StudentEmail &&
			row.TeacherEmail == link.TeacherEmail &&
			row.SubjectID == link.SubjectID {
			return row, nil // identical triple: no-op
		}
	}
	t.rows = append(t.rows, link)
	return link, nil
}

func (repo *schoolRepository) FilterLinks(filter school.LinkFilter) ([]school.Link, error) {
	t := repo.db.links
	t.RLock()
	defer t.RUnlock()

	var links []school.Link
	for _, row := range t.rows {
		if filter.StudentEmail != "" && row.StudentEmail != filter.StudentEmail {
			continue
		}
		if filter.TeacherEmail != "" && row.TeacherEmail != filter.TeacherEmail {
			continue
		}
		if filter.SubjectID != "" && row.SubjectID != filter.SubjectID {
			continue
		}
		links = append(links, row)
	}
	return links, nil
}

func (repo *schoolRepository) CreateQuery(query school.Query) (school.Query, error) {
	t := repo.db.queries
	t.Lock()
	defer t.Unlock()

	t.rows[query.ID] = &query
	return query, nil
}

func (repo *schoolRepository) GetQueryByID(id string) (school.Query, error) {
	t := repo.db.queries
	t.RLock()
	defer t.RUnlock()

	if qry, ok := t.rows[id]; ok {
		return *qry, nil
	}
	return school.Query{}, school.ErrQueryNotFound
}

func (repo *schoolRepository) FilterQueries(filter school.QueryFilter) ([]school.Query, error) {
	t := repo.db.queries
	t.RLock()
	defer t.RUnlock()

	var queries []school.Query
	for _, row := range t.rows {
		if filter.StudentEmail != "" && row.StudentEmail != filter.StudentEmail {
			continue
		}
		if filter.TeacherEmail != "" && row.TeacherEmail != filter.TeacherEmail {
			continue
		}
		queries = append(queries, *row)
	}
	return queries, nil
}

func (repo *schoolRepository) SetQueryReply(id string, reply null.String) (school.Query, error) {
	t := repo.db.queries
	t.Lock()
	defer t.Unlock()

	qry, ok := t.rows[id]
	if !ok {
		return school.Query{}, school.ErrQueryNotFound
	}
	qry.Reply = reply
	return *qry, nil
}

func (repo *schoolRepository) AddClearedNotification(principalEmail, queryID string) error {
	t := repo.db.cleared
	t.Lock()
	defer t.Unlock()

	set, ok := t.sets[principalEmail]
	if !ok {
		set = make(map[string]struct{})
		t.sets[principalEmail] = set
	}
	set[queryID] = struct{}{}
	return nil
}

func (repo *schoolRepository) GetClearedNotifications(principalEmail string) (map[string]struct{}, error) {
	t := repo.db.cleared
	t.RLock()
	defer t.RUnlock()

	cleared := make(map[string]struct{}, len(t.sets[principalEmail]))
	for id := range t.sets[principalEmail] {
		cleared[id] = struct{}{}
	}
	return cleared, nil
}

func (repo *schoolRepository) CreateAssignment(assignment school.Assignment) (school.Assignment, error) {
	t := repo.db.assignments
	t.Lock()
	defer t.Unlock()

	t.rows[assignment.ID] = &assignment
	return assignment, nil
}

func (repo *schoolRepository) GetAssignmentByID(id string) (school.Assignment, error) {
	t := repo.db.assignments
	t.RLock()
	defer t.RUnlock()

	if a, ok := t.rows[id]; ok {
		return *a, nil
	}
	return school.Assignment{}, school.ErrAssignmentNotFound
}

func (repo *schoolRepository) FilterAssignments(filter school.AssignmentFilter) ([]school.Assignment, error) {
	t := repo.db.assignments
	t.RLock()
	defer t.RUnlock()

	var assignments []school.Assignment
	for _, row := range t.rows {
		if filter.SubjectID != "" && row.SubjectID != filter.SubjectID {
			continue
		}
		if filter.TeacherEmail != "" && row.TeacherEmail != filter.TeacherEmail {
			continue
		}
		assignments = append(assignments, *row)
	}
	return assignments, nil
}

func (repo *schoolRepository) UpsertSubmission(submission school.Submission) (school.Submission, error) {
	t := repo.db.submissions
	t.Lock()
	defer t.Unlock()

	t.rows[submissionKey{submission.AssignmentID, submission.StudentEmail}] = submission
	return submission, nil
}

func (repo *schoolRepository) GetSubmission(assignmentID, studentEmail string) (school.Submission, error) {
	t := repo.db.submissions
	t.RLock()
	defer t.RUnlock()

	if sub, ok := t.rows[submissionKey{assignmentID, studentEmail}]; ok {
		return sub, nil
	}
	return school.Submission{}, school.ErrSubmissionNotFound
}

func (repo *schoolRepository) FilterSubmissionsByAssignments(assignmentIDs []string) ([]school.Submission, error) {
	t := repo.db.submissions
	t.RLock()
	defer t.RUnlock()

	wanted := make(map[string]struct{}, len(assignmentIDs))
	for _, id := range assignmentIDs {
		wanted[id] = struct{}{}
	}
	var submissions []school.Submission
	for key, sub := range t.rows {
		if _, ok := wanted[key.assignmentID]; ok {
			submissions = append(submissions, sub)
		}
	}
	return submissions, nil
}

func (repo *schoolRepository) CreateAttendanceMarks(marks []school.AttendanceMark) error {
	t := repo.db.attendance
	t.Lock()
	defer t.Unlock()

	for _, mark := range marks {
		replaced := false
		for i, row := range t.rows {
			if row.StudentEmail == mark.StudentEmail &&
				row.TeacherEmail == mark.TeacherEmail &&
				row.SubjectID == mark.SubjectID &&
				row.Date.Equal(mark.Date) {
				t.rows[i] = mark
				replaced = true
				break
			}
		}
		if !replaced {
			t.rows = append(t.rows, mark)
		}
	}
	return nil
}

func (repo *schoolRepository) FilterAttendanceMarks(filter school.AttendanceFilter) ([]school.AttendanceMark, error) {
	t := repo.db.attendance
	t.RLock()
	defer t.RUnlock()

	var marks []school.AttendanceMark
	for _, row := range t.rows {
		if filter.StudentEmail != "" && row.StudentEmail != filter.StudentEmail {
			continue
		}
		if filter.TeacherEmail != "" && row.TeacherEmail != filter.TeacherEmail {
			continue
		}
		if filter.SubjectID != "" && row.SubjectID != filter.SubjectID {
			continue
		}
		marks = append(marks, row)
	}
	return marks, nil
}

func (repo *schoolRepository) CreateResults(results []school.Result) error {
	t := repo.db.results
	t.Lock()
	defer t.Unlock()

	t.rows = append(t.rows, results...)
	return nil
}

func (repo *schoolRepository) FilterResults(filter school.ResultFilter) ([]school.Result, error) {
	t := repo.db.results
	t.RLock()
	defer t.RUnlock()

	var results []school.Result
	for _, row := range t.rows {
		if filter.StudentEmail != "" && row.StudentEmail != filter.StudentEmail {
			continue
		}
		if filter.SubjectID != "" && row.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Semester != "" && row.Semester != filter.Semester {
			continue
		}
		results = append(results, row)
	}
	return results, nil
}
