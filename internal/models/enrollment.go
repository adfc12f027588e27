package models

import (
	"strings"
	"time"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// Enrollment captures a student's registration to a course within a semester.
type Enrollment struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	CourseID       string    `json:"course_id"`
	Semester       string    `json:"semester"`
	EnrollmentDate time.Time `json:"enrollment_date"`
	Grade          *Grade    `json:"grade,omitempty"`
	Completed      bool      `json:"completed"`
}

// NewEnrollment validates identifiers and stamps the enrollment date.
func NewEnrollment(id, studentID, courseID, semester string) (*Enrollment, error) {
	for field, v := range map[string]string{
		"enrollment id": id,
		"student id":    studentID,
		"course id":     courseID,
		"semester":      semester,
	} {
		if strings.TrimSpace(v) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, field+" cannot be empty")
		}
	}
	return &Enrollment{
		ID:             id,
		StudentID:      studentID,
		CourseID:       courseID,
		Semester:       semester,
		EnrollmentDate: time.Now(),
	}, nil
}

// SetGrade records the grade and marks the enrollment completed.
func (e *Enrollment) SetGrade(g Grade) {
	e.Grade = &g
	e.Completed = true
}

// IsPassing reports whether a passing grade has been recorded.
func (e *Enrollment) IsPassing() bool {
	return e.Grade != nil && e.Grade.IsPassing()
}
