package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// Student represents a learner registered in the institution.
type Student struct {
	person
	registrationNumber string
	year               int
	department         string
	active             bool
	enrolled           map[string]int // course id -> committed credits
	grades             map[string]Grade
}

var _ Role = (*Student)(nil)

// NewStudent validates every field and returns an active student.
func NewStudent(id, name, email, registrationNumber string, year int, department string) (*Student, error) {
	p, err := newPerson(id, name, email)
	if err != nil {
		return nil, err
	}
	if !IsValidRegistrationNumber(registrationNumber) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid registration number format")
	}
	if !IsValidYear(year) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year must be between 1 and 4")
	}
	if strings.TrimSpace(department) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department cannot be empty")
	}
	return &Student{
		person:             p,
		registrationNumber: registrationNumber,
		year:               year,
		department:         department,
		active:             true,
		enrolled:           make(map[string]int),
		grades:             make(map[string]Grade),
	}, nil
}

// Role implements Role.
func (s *Student) Role() string { return RoleStudent }

// DisplayInfo implements Role.
func (s *Student) DisplayInfo() string {
	status := "Inactive"
	if s.active {
		status = "Active"
	}
	return fmt.Sprintf("Student: %s (%s) - Year %d, %s - Status: %s", s.name, s.registrationNumber, s.year, s.department, status)
}

// RegistrationNumber returns the immutable registration number.
func (s *Student) RegistrationNumber() string { return s.registrationNumber }

// Year returns the study year.
func (s *Student) Year() int { return s.year }

// Department returns the home department.
func (s *Student) Department() string { return s.department }

// IsActive reports the soft-delete flag.
func (s *Student) IsActive() bool { return s.active }

// SetYear updates the study year.
func (s *Student) SetYear(year int) error {
	if !IsValidYear(year) {
		return appErrors.Clone(appErrors.ErrValidation, "year must be between 1 and 4")
	}
	s.year = year
	s.touch()
	return nil
}

// SetDepartment updates the home department.
func (s *Student) SetDepartment(department string) error {
	if strings.TrimSpace(department) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department cannot be empty")
	}
	s.department = department
	s.touch()
	return nil
}

// SetActive flips the soft-delete flag.
func (s *Student) SetActive(active bool) {
	s.active = active
	s.touch()
}

// SetCreatedAt restores a persisted creation timestamp during import.
func (s *Student) SetCreatedAt(t time.Time) {
	if t.IsZero() {
		return
	}
	s.createdAt = t
}

// EnrollInCourse records the course together with the credits it commits.
func (s *Student) EnrollInCourse(courseID string, credits int) error {
	if !IsValidID(courseID) {
		return appErrors.Clone(appErrors.ErrValidation, "course id cannot be empty")
	}
	s.enrolled[courseID] = credits
	s.touch()
	return nil
}

// UnenrollFromCourse drops the course and any grade recorded for it.
func (s *Student) UnenrollFromCourse(courseID string) {
	delete(s.enrolled, courseID)
	delete(s.grades, courseID)
	s.touch()
}

// IsEnrolledIn reports whether the course is in the enrolled set.
func (s *Student) IsEnrolledIn(courseID string) bool {
	_, ok := s.enrolled[courseID]
	return ok
}

// EnrolledCourses returns the enrolled course ids in ascending order.
func (s *Student) EnrolledCourses() []string {
	return sortedKeys(s.enrolled)
}

// CommittedCredits sums the credits of every enrolled course.
func (s *Student) CommittedCredits() int {
	total := 0
	for _, credits := range s.enrolled {
		total += credits
	}
	return total
}

// SetGrade records a grade; the course must be enrolled.
func (s *Student) SetGrade(courseID string, grade Grade) error {
	if !s.IsEnrolledIn(courseID) {
		return appErrors.Clone(appErrors.ErrNotEnrolled, fmt.Sprintf("student %s is not enrolled in course %s", s.id, courseID))
	}
	if !grade.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid grade %q", string(grade)))
	}
	s.grades[courseID] = grade
	s.touch()
	return nil
}

// Grade returns the grade for a course, if recorded.
func (s *Student) Grade(courseID string) (Grade, bool) {
	g, ok := s.grades[courseID]
	return g, ok
}

// Grades returns a copy of the course -> grade map.
func (s *Student) Grades() map[string]Grade {
	out := make(map[string]Grade, len(s.grades))
	for k, v := range s.grades {
		out[k] = v
	}
	return out
}

// GradedCourses returns graded course ids in ascending order.
func (s *Student) GradedCourses() []string {
	return sortedKeys(s.grades)
}

// CalculateGPA averages grade points over graded courses only; zero graded courses yields 0.
func (s *Student) CalculateGPA() float64 {
	if len(s.grades) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, g := range s.grades {
		sum += g.Points()
	}
	return sum / float64(len(s.grades))
}

// PassedCourses returns graded courses whose grade is passing, ascending.
func (s *Student) PassedCourses() []string {
	passed := make([]string, 0, len(s.grades))
	for _, id := range s.GradedCourses() {
		if s.grades[id].IsPassing() {
			passed = append(passed, id)
		}
	}
	return passed
}

// Clone returns a deep copy detached from the receiver.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	c := *s
	c.enrolled = make(map[string]int, len(s.enrolled))
	for k, v := range s.enrolled {
		c.enrolled[k] = v
	}
	c.grades = s.Grades()
	return &c
}

// StudentSnapshot is the serialisable view of a Student.
type StudentSnapshot struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	RegistrationNumber string           `json:"registration_number"`
	Year               int              `json:"year"`
	Department         string           `json:"department"`
	Active             bool             `json:"active"`
	EnrolledCourses    []string         `json:"enrolled_courses"`
	Grades             map[string]Grade `json:"grades"`
	GPA                float64          `json:"gpa"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Snapshot captures the current state.
func (s *Student) Snapshot() StudentSnapshot {
	return StudentSnapshot{
		ID:                 s.id,
		Name:               s.name,
		Email:              s.email,
		RegistrationNumber: s.registrationNumber,
		Year:               s.year,
		Department:         s.department,
		Active:             s.active,
		EnrolledCourses:    s.EnrolledCourses(),
		Grades:             s.Grades(),
		GPA:                s.CalculateGPA(),
		CreatedAt:          s.createdAt,
		UpdatedAt:          s.updatedAt,
	}
}

// MarshalJSON renders the snapshot.
func (s *Student) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
