package school

// Attendance statuses
const (
	AttendanceOK       = "OK"
	AttendanceShortage = "Shortage"
)

// ShortageThreshold is the attendance percentage below which a student is
// flagged short. Policy constant; candidate for Config if it ever varies.
const ShortageThreshold = 75.0

// DefaultMaxMarks applies when a result entry omits maxMarks.
const DefaultMaxMarks = 100.0

// GradeNA is reported when no percentage can be computed (maxMarks == 0).
const GradeNA = "N/A"

// AttendancePercentage returns 0 when total == 0; dividing by zero is not an
// error here, an empty register simply has no attendance yet.
func AttendancePercentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(present) / float64(total)
}

func AttendanceStatus(percentage float64) string {
	if percentage < ShortageThreshold {
		return AttendanceShortage
	}
	return AttendanceOK
}

// ResultPercentage reports ok=false when maxMarks == 0: no percentage exists.
func ResultPercentage(marks, maxMarks float64) (pct float64, ok bool) {
	if maxMarks == 0 {
		return 0, false
	}
	return 100 * marks / maxMarks, true
}

// ResultGrade maps a percentage to a letter grade, inclusive lower bounds.
// ok=false (no percentage) always maps to GradeNA.
func ResultGrade(percentage float64, ok bool) string {
	if !ok {
		return GradeNA
	}
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B+"
	case percentage >= 60:
		return "B"
	case percentage >= 50:
		return "C"
	default:
		return "F"
	}
}
