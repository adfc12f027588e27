package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// CourseParams collects the fields needed to build a Course.
type CourseParams struct {
	CourseID      string
	CourseCode    string
	Title         string
	Description   string
	Credits       int
	Department    string
	Semester      string
	InstructorID  string
	MaxEnrollment int
}

// Course is an offering students enroll in. Students are referenced by id only.
type Course struct {
	courseID      string
	courseCode    string
	title         string
	description   string
	credits       int
	department    string
	semester      string
	instructorID  string
	maxEnrollment int
	prerequisites map[string]struct{}
	enrolled      map[string]struct{}
	createdAt     time.Time
	updatedAt     time.Time
}

// NewCourse validates params. A zero MaxEnrollment selects DefaultMaxEnrollment.
func NewCourse(p CourseParams) (*Course, error) {
	for field, v := range map[string]string{
		"course id":   p.CourseID,
		"course code": p.CourseCode,
		"title":       p.Title,
		"department":  p.Department,
		"semester":    p.Semester,
	} {
		if strings.TrimSpace(v) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, field+" cannot be empty")
		}
	}
	if !IsValidCredits(p.Credits) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "credits must be between 1 and 6")
	}
	maxEnrollment := p.MaxEnrollment
	if maxEnrollment == 0 {
		maxEnrollment = DefaultMaxEnrollment
	}
	if maxEnrollment < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max enrollment must be positive")
	}
	now := time.Now()
	return &Course{
		courseID:      p.CourseID,
		courseCode:    p.CourseCode,
		title:         p.Title,
		description:   p.Description,
		credits:       p.Credits,
		department:    p.Department,
		semester:      p.Semester,
		instructorID:  p.InstructorID,
		maxEnrollment: maxEnrollment,
		prerequisites: make(map[string]struct{}),
		enrolled:      make(map[string]struct{}),
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func (c *Course) CourseID() string     { return c.courseID }
func (c *Course) CourseCode() string   { return c.courseCode }
func (c *Course) Title() string        { return c.title }
func (c *Course) Description() string  { return c.description }
func (c *Course) Credits() int         { return c.credits }
func (c *Course) Department() string   { return c.department }
func (c *Course) Semester() string     { return c.semester }
func (c *Course) InstructorID() string { return c.instructorID }
func (c *Course) MaxEnrollment() int   { return c.maxEnrollment }
func (c *Course) CreatedAt() time.Time { return c.createdAt }
func (c *Course) UpdatedAt() time.Time { return c.updatedAt }

// SetTitle replaces the title.
func (c *Course) SetTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
	}
	c.title = title
	c.touch()
	return nil
}

// SetDescription replaces the free-text description.
func (c *Course) SetDescription(description string) {
	c.description = description
	c.touch()
}

// SetCredits changes the credit value.
func (c *Course) SetCredits(credits int) error {
	if !IsValidCredits(credits) {
		return appErrors.Clone(appErrors.ErrValidation, "credits must be between 1 and 6")
	}
	c.credits = credits
	c.touch()
	return nil
}

// SetDepartment changes the owning department.
func (c *Course) SetDepartment(department string) error {
	if strings.TrimSpace(department) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department cannot be empty")
	}
	c.department = department
	c.touch()
	return nil
}

// SetSemester changes the semester label.
func (c *Course) SetSemester(semester string) error {
	if strings.TrimSpace(semester) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "semester cannot be empty")
	}
	c.semester = semester
	c.touch()
	return nil
}

// SetInstructorID sets or clears (empty string) the instructor reference.
func (c *Course) SetInstructorID(instructorID string) {
	c.instructorID = instructorID
	c.touch()
}

// SetMaxEnrollment changes capacity; it may not drop below current enrollment.
func (c *Course) SetMaxEnrollment(max int) error {
	if max <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "max enrollment must be positive")
	}
	if max < len(c.enrolled) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("max enrollment %d is below current enrollment %d", max, len(c.enrolled)))
	}
	c.maxEnrollment = max
	c.touch()
	return nil
}

// AddPrerequisite records another course as a prerequisite.
func (c *Course) AddPrerequisite(courseID string) error {
	if !IsValidID(courseID) {
		return appErrors.Clone(appErrors.ErrValidation, "prerequisite course id cannot be empty")
	}
	c.prerequisites[courseID] = struct{}{}
	c.touch()
	return nil
}

// RemovePrerequisite drops a prerequisite.
func (c *Course) RemovePrerequisite(courseID string) {
	delete(c.prerequisites, courseID)
	c.touch()
}

// Prerequisites returns prerequisite course ids, ascending.
func (c *Course) Prerequisites() []string { return sortedKeys(c.prerequisites) }

// HasPrerequisite reports whether courseID is a prerequisite.
func (c *Course) HasPrerequisite(courseID string) bool {
	_, ok := c.prerequisites[courseID]
	return ok
}

// EnrollStudent adds the student and returns true. A full course, or a student
// already on the roster, returns false without mutation.
func (c *Course) EnrollStudent(studentID string) bool {
	if len(c.enrolled) >= c.maxEnrollment {
		return false
	}
	if _, ok := c.enrolled[studentID]; ok {
		return false
	}
	c.enrolled[studentID] = struct{}{}
	c.touch()
	return true
}

// UnenrollStudent removes the student if present.
func (c *Course) UnenrollStudent(studentID string) {
	if _, ok := c.enrolled[studentID]; ok {
		delete(c.enrolled, studentID)
		c.touch()
	}
}

// EnrolledStudents returns enrolled student ids, ascending.
func (c *Course) EnrolledStudents() []string { return sortedKeys(c.enrolled) }

// IsStudentEnrolled reports roster membership.
func (c *Course) IsStudentEnrolled(studentID string) bool {
	_, ok := c.enrolled[studentID]
	return ok
}

// CurrentEnrollment returns the roster size.
func (c *Course) CurrentEnrollment() int { return len(c.enrolled) }

// AvailableSeats returns remaining capacity.
func (c *Course) AvailableSeats() int { return c.maxEnrollment - len(c.enrolled) }

// IsFull reports whether capacity is reached.
func (c *Course) IsFull() bool { return len(c.enrolled) >= c.maxEnrollment }

func (c *Course) touch() {
	c.updatedAt = time.Now()
}

// SetCreatedAt restores a persisted creation timestamp during import.
func (c *Course) SetCreatedAt(t time.Time) {
	if !t.IsZero() {
		c.createdAt = t
	}
}

// Clone returns a deep copy.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	cp := *c
	cp.prerequisites = make(map[string]struct{}, len(c.prerequisites))
	for k := range c.prerequisites {
		cp.prerequisites[k] = struct{}{}
	}
	cp.enrolled = make(map[string]struct{}, len(c.enrolled))
	for k := range c.enrolled {
		cp.enrolled[k] = struct{}{}
	}
	return &cp
}

func (c *Course) String() string {
	return fmt.Sprintf("Course{id='%s', code='%s', title='%s', credits=%d, dept='%s', sem='%s', enrollment=%d/%d}",
		c.courseID, c.courseCode, c.title, c.credits, c.department, c.semester, len(c.enrolled), c.maxEnrollment)
}

// CourseSnapshot is the serialisable view of a Course.
type CourseSnapshot struct {
	CourseID          string    `json:"course_id"`
	CourseCode        string    `json:"course_code"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Credits           int       `json:"credits"`
	Department        string    `json:"department"`
	Semester          string    `json:"semester"`
	InstructorID      string    `json:"instructor_id,omitempty"`
	MaxEnrollment     int       `json:"max_enrollment"`
	CurrentEnrollment int       `json:"current_enrollment"`
	EnrolledStudents  []string  `json:"enrolled_students"`
	Prerequisites     []string  `json:"prerequisites"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Snapshot captures the current state.
func (c *Course) Snapshot() CourseSnapshot {
	return CourseSnapshot{
		CourseID:          c.courseID,
		CourseCode:        c.courseCode,
		Title:             c.title,
		Description:       c.description,
		Credits:           c.credits,
		Department:        c.department,
		Semester:          c.semester,
		InstructorID:      c.instructorID,
		MaxEnrollment:     c.maxEnrollment,
		CurrentEnrollment: len(c.enrolled),
		EnrolledStudents:  c.EnrolledStudents(),
		Prerequisites:     c.Prerequisites(),
		CreatedAt:         c.createdAt,
		UpdatedAt:         c.updatedAt,
	}
}

// MarshalJSON renders the snapshot.
func (c *Course) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}
