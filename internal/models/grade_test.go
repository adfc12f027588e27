package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeScale(t *testing.T) {
	points := map[Grade]float64{GradeS: 10, GradeA: 9, GradeB: 8, GradeC: 7, GradeD: 6, GradeF: 0}
	for g, want := range points {
		assert.Equal(t, want, g.Points(), string(g))
		assert.Equal(t, g != GradeF, g.IsPassing(), string(g))
	}
	assert.Equal(t, "A (9.0)", GradeA.String())
	assert.Equal(t, "Fail", GradeF.Description())
	assert.Len(t, AllGrades(), 6)
}

func TestParseGrade(t *testing.T) {
	g, err := ParseGrade(" b ")
	require.NoError(t, err)
	assert.Equal(t, GradeB, g)

	_, err = ParseGrade("E")
	assert.Error(t, err)
	assert.False(t, Grade("E").IsPassing())
}

func TestGradeJSON(t *testing.T) {
	raw, err := json.Marshal(map[string]Grade{"CS101": GradeC})
	require.NoError(t, err)
	assert.JSONEq(t, `{"CS101":"C"}`, string(raw))

	var g Grade
	require.NoError(t, json.Unmarshal([]byte(`"s"`), &g))
	assert.Equal(t, GradeS, g)
	assert.Error(t, json.Unmarshal([]byte(`"Z"`), &g))
}

func TestEnrollmentGrade(t *testing.T) {
	e, err := NewEnrollment("E1", "S001", "CS101", "Fall 2024")
	require.NoError(t, err)
	assert.False(t, e.Completed)
	assert.False(t, e.IsPassing())

	e.SetGrade(GradeD)
	assert.True(t, e.Completed)
	assert.True(t, e.IsPassing())

	_, err = NewEnrollment("E2", "", "CS101", "Fall 2024")
	assert.Error(t, err)
}

func TestInstructorAssignments(t *testing.T) {
	in, err := NewInstructor("I001", "Dr. Smith", "smith@example.edu", "EMP001", "Computer Science", "Algorithms")
	require.NoError(t, err)
	require.NoError(t, in.AssignCourse("CS101"))
	require.NoError(t, in.AssignCourse("CS201"))
	assert.Equal(t, 2, in.CourseLoad())

	in.UnassignCourse("CS101")
	assert.Equal(t, []string{"CS201"}, in.AssignedCourses())
	assert.False(t, in.IsAssignedTo("CS101"))
	assert.Equal(t, RoleInstructor, in.Role())
}
