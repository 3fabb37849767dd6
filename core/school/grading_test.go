package school

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AttendancePercentage(t *testing.T) {
	tests := []struct {
		name           string
		present, total int
		want           float64
	}{
		{name: "empty register", present: 0, total: 0, want: 0},
		{name: "3 of 4", present: 3, total: 4, want: 75},
		{name: "all present", present: 10, total: 10, want: 100},
		{name: "none present", present: 0, total: 5, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttendancePercentage(tt.present, tt.total))
		})
	}
}

func Test_AttendanceStatus(t *testing.T) {
	assert.Equal(t, AttendanceOK, AttendanceStatus(75.0))
	assert.Equal(t, AttendanceOK, AttendanceStatus(100))
	assert.Equal(t, AttendanceShortage, AttendanceStatus(74.999))
	assert.Equal(t, AttendanceShortage, AttendanceStatus(0))
}

func Test_ResultPercentage(t *testing.T) {
	pct, ok := ResultPercentage(45, 50)
	assert.True(t, ok)
	assert.Equal(t, 90.0, pct)

	_, ok = ResultPercentage(45, 0)
	assert.False(t, ok)
}

func Test_ResultGrade(t *testing.T) {
	tests := []struct {
		pct  float64
		ok   bool
		want string
	}{
		{pct: 100, ok: true, want: "A+"},
		{pct: 90, ok: true, want: "A+"},
		{pct: 89.999, ok: true, want: "A"},
		{pct: 80, ok: true, want: "A"},
		{pct: 79.999, ok: true, want: "B+"},
		{pct: 70, ok: true, want: "B+"},
		{pct: 69.999, ok: true, want: "B"},
		{pct: 60, ok: true, want: "B"},
		{pct: 59.999, ok: true, want: "C"},
		{pct: 50, ok: true, want: "C"},
		{pct: 49.999, ok: true, want: "F"},
		{pct: 0, ok: true, want: "F"},
		{pct: 0, ok: false, want: GradeNA},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResultGrade(tt.pct, tt.ok), "pct=%v ok=%v", tt.pct, tt.ok)
	}
}
