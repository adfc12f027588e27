package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

func cs101(t *testing.T, max int) *Course {
	t.Helper()
	c, err := NewCourse(CourseParams{
		CourseID:      "CS101",
		CourseCode:    "CS101",
		Title:         "Intro to Programming",
		Credits:       3,
		Department:    "Computer Science",
		Semester:      "Fall 2024",
		MaxEnrollment: max,
	})
	require.NoError(t, err)
	return c
}

func TestNewCourseDefaultsAndValidation(t *testing.T) {
	c := cs101(t, 0)
	assert.Equal(t, DefaultMaxEnrollment, c.MaxEnrollment())

	for _, credits := range []int{0, 7} {
		_, err := NewCourse(CourseParams{CourseID: "X", CourseCode: "X101", Title: "T", Credits: credits, Department: "D", Semester: "S"})
		assert.True(t, errors.Is(err, appErrors.ErrValidation), "credits %d", credits)
	}

	_, err := NewCourse(CourseParams{CourseID: "X", CourseCode: "X101", Title: "T", Credits: 3, Department: "D", Semester: "S", MaxEnrollment: -1})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = NewCourse(CourseParams{CourseID: "X", CourseCode: "X101", Credits: 3, Department: "D", Semester: "S"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCourseCapacity(t *testing.T) {
	c := cs101(t, 1)

	assert.True(t, c.EnrollStudent("S001"))
	assert.False(t, c.EnrollStudent("S001"))
	assert.False(t, c.EnrollStudent("S002"))
	assert.True(t, c.IsFull())
	assert.Equal(t, 0, c.AvailableSeats())
	assert.Equal(t, []string{"S001"}, c.EnrolledStudents())

	err := c.SetMaxEnrollment(0)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	c.UnenrollStudent("S001")
	c.UnenrollStudent("S001")
	assert.Equal(t, 0, c.CurrentEnrollment())
	assert.True(t, c.EnrollStudent("S002"))
}

func TestSetMaxEnrollmentBelowRoster(t *testing.T) {
	c := cs101(t, 3)
	require.True(t, c.EnrollStudent("S001"))
	require.True(t, c.EnrollStudent("S002"))

	assert.Error(t, c.SetMaxEnrollment(1))
	assert.NoError(t, c.SetMaxEnrollment(2))
	assert.True(t, c.IsFull())
}

func TestCoursePrerequisitesAndClone(t *testing.T) {
	c := cs101(t, 10)
	require.NoError(t, c.AddPrerequisite("MA100"))
	assert.True(t, c.HasPrerequisite("MA100"))

	clone := c.Clone()
	clone.RemovePrerequisite("MA100")
	clone.EnrollStudent("S009")

	assert.Equal(t, []string{"MA100"}, c.Prerequisites())
	assert.Equal(t, 0, c.CurrentEnrollment())
}

func TestCourseCodeFormat(t *testing.T) {
	assert.True(t, IsValidCourseCode("CS101"))
	assert.True(t, IsValidCourseCode("MATH201"))
	assert.False(t, IsValidCourseCode("C101"))
	assert.False(t, IsValidCourseCode("cs101"))
	assert.False(t, IsValidCourseCode("CS10"))
}
