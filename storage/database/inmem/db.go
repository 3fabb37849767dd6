package inmemdb

import (
	"sync"

	"github.com/kalasi/darasa/core/school"
)

type (
	linkTable struct {
		sync.RWMutex
		rows []school.Link
	}

	queryTable struct {
		sync.RWMutex
		rows map[string]*school.Query
	}

	clearedTable struct {
		sync.RWMutex
		// principal email -> set of dismissed query ids; grows monotonically
		sets map[string]map[string]struct{}
	}

	assignmentTable struct {
		sync.RWMutex
		rows map[string]*school.Assignment
	}

	submissionTable struct {
		sync.RWMutex
		// keyed by (assignmentID, studentEmail); upserts keep one row per pair
		rows map[submissionKey]school.Submission
	}

	attendanceTable struct {
		sync.RWMutex
		rows []school.AttendanceMark
	}

	resultTable struct {
		sync.RWMutex
		rows []school.Result
	}

	submissionKey struct {
		assignmentID string
		studentEmail string
	}

	DB struct {
		links       *linkTable
		queries     *queryTable
		cleared     *clearedTable
		assignments *assignmentTable
		submissions *submissionTable
		attendance  *attendanceTable
		results     *resultTable
	}
)

func NewDB() *DB {
	return &DB{
		links:       &linkTable{},
		queries:     &queryTable{rows: make(map[string]*school.Query)},
		cleared:     &clearedTable{sets: make(map[string]map[string]struct{})},
		assignments: &assignmentTable{rows: make(map[string]*school.Assignment)},
		submissions: &submissionTable{rows: make(map[submissionKey]school.Submission)},
		attendance:  &attendanceTable{},
		results:     &resultTable{},
	}
}
