package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

func newTestStudent(t *testing.T) *Student {
	t.Helper()
	s, err := NewStudent("S001", "John Doe", "john@example.com", "2023CSE001", 2, "Computer Science")
	require.NoError(t, err)
	return s
}

func TestNewStudentValidation(t *testing.T) {
	cases := []struct {
		name  string
		id    string
		email string
		reg   string
		year  int
		dept  string
	}{
		{"empty id", " ", "john@example.com", "2023CSE001", 2, "CS"},
		{"bad email", "S001", "john.example.com", "2023CSE001", 2, "CS"},
		{"short tld", "S001", "john@example.c", "2023CSE001", 2, "CS"},
		{"lowercase registration", "S001", "john@example.com", "2023cse001", 2, "CS"},
		{"year too low", "S001", "john@example.com", "2023CSE001", 0, "CS"},
		{"year too high", "S001", "john@example.com", "2023CSE001", 5, "CS"},
		{"empty department", "S001", "john@example.com", "2023CSE001", 2, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStudent(tc.id, "John", tc.email, tc.reg, tc.year, tc.dept)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestNewStudentDefaults(t *testing.T) {
	s := newTestStudent(t)
	assert.True(t, s.IsActive())
	assert.Empty(t, s.EnrolledCourses())
	assert.Equal(t, 0.0, s.CalculateGPA())
	assert.Equal(t, RoleStudent, s.Role())
	assert.Contains(t, s.DisplayInfo(), "2023CSE001")
	assert.Contains(t, RoleSummary(s), "Student | ")
}

func TestStudentGradesAndGPA(t *testing.T) {
	s := newTestStudent(t)
	require.NoError(t, s.EnrollInCourse("CS101", 3))
	require.NoError(t, s.EnrollInCourse("MA101", 4))

	err := s.SetGrade("PH101", GradeA)
	assert.True(t, errors.Is(err, appErrors.ErrNotEnrolled))

	require.NoError(t, s.SetGrade("CS101", GradeA))
	assert.InDelta(t, 9.0, s.CalculateGPA(), 1e-9)

	require.NoError(t, s.SetGrade("MA101", GradeF))
	assert.InDelta(t, 4.5, s.CalculateGPA(), 1e-9)
	assert.Equal(t, []string{"CS101"}, s.PassedCourses())
	assert.Equal(t, 7, s.CommittedCredits())

	s.UnenrollFromCourse("MA101")
	_, graded := s.Grade("MA101")
	assert.False(t, graded)
	assert.InDelta(t, 9.0, s.CalculateGPA(), 1e-9)
}

func TestStudentCollectionsAreCopies(t *testing.T) {
	s := newTestStudent(t)
	require.NoError(t, s.EnrollInCourse("CS101", 3))
	require.NoError(t, s.SetGrade("CS101", GradeB))

	courses := s.EnrolledCourses()
	courses[0] = "HACK"
	grades := s.Grades()
	grades["CS101"] = GradeF

	assert.Equal(t, []string{"CS101"}, s.EnrolledCourses())
	g, _ := s.Grade("CS101")
	assert.Equal(t, GradeB, g)

	clone := s.Clone()
	clone.UnenrollFromCourse("CS101")
	assert.True(t, s.IsEnrolledIn("CS101"))
}

func TestStudentJSON(t *testing.T) {
	s := newTestStudent(t)
	require.NoError(t, s.EnrollInCourse("CS101", 3))
	require.NoError(t, s.SetGrade("CS101", GradeS))

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var snap StudentSnapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, "S001", snap.ID)
	assert.Equal(t, GradeS, snap.Grades["CS101"])
	assert.InDelta(t, 10.0, snap.GPA, 1e-9)
}

func TestSortStudents(t *testing.T) {
	a := newTestStudent(t)
	b, err := NewStudent("S002", "Alice", "alice@example.com", "2022ECE002", 3, "Electrical")
	require.NoError(t, err)
	require.NoError(t, b.EnrollInCourse("EE101", 3))
	require.NoError(t, b.SetGrade("EE101", GradeS))

	list := []*Student{a, b}
	SortStudents(list, SortByName)
	assert.Equal(t, "S002", list[0].ID())

	SortStudents(list, SortByYear)
	assert.Equal(t, "S001", list[0].ID())

	SortStudents(list, SortByGPA)
	assert.Equal(t, "S002", list[0].ID())
}
