package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// Instructor is a member of teaching staff.
type Instructor struct {
	person
	employeeID     string
	department     string
	specialization string
	assigned       map[string]struct{}
}

var _ Role = (*Instructor)(nil)

// NewInstructor validates identity fields; specialization is optional.
func NewInstructor(id, name, email, employeeID, department, specialization string) (*Instructor, error) {
	p, err := newPerson(id, name, email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(employeeID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employee id cannot be empty")
	}
	if strings.TrimSpace(department) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department cannot be empty")
	}
	return &Instructor{
		person:         p,
		employeeID:     employeeID,
		department:     department,
		specialization: specialization,
		assigned:       make(map[string]struct{}),
	}, nil
}

// Role implements Role.
func (i *Instructor) Role() string { return RoleInstructor }

// DisplayInfo implements Role.
func (i *Instructor) DisplayInfo() string {
	specialization := i.specialization
	if specialization == "" {
		specialization = "None"
	}
	return fmt.Sprintf("Instructor: %s (%s) - %s Department - Specialization: %s - Courses: %d",
		i.name, i.employeeID, i.department, specialization, len(i.assigned))
}

// EmployeeID returns the immutable staff number.
func (i *Instructor) EmployeeID() string { return i.employeeID }

// Department returns the home department.
func (i *Instructor) Department() string { return i.department }

// Specialization returns the optional specialization.
func (i *Instructor) Specialization() string { return i.specialization }

// SetDepartment updates the department.
func (i *Instructor) SetDepartment(department string) error {
	if strings.TrimSpace(department) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department cannot be empty")
	}
	i.department = department
	i.touch()
	return nil
}

// SetSpecialization updates the specialization; empty clears it.
func (i *Instructor) SetSpecialization(specialization string) {
	i.specialization = specialization
	i.touch()
}

// AssignCourse adds a course to the teaching load.
func (i *Instructor) AssignCourse(courseID string) error {
	if !IsValidID(courseID) {
		return appErrors.Clone(appErrors.ErrValidation, "course id cannot be empty")
	}
	i.assigned[courseID] = struct{}{}
	i.touch()
	return nil
}

// UnassignCourse removes a course from the teaching load.
func (i *Instructor) UnassignCourse(courseID string) {
	delete(i.assigned, courseID)
	i.touch()
}

// AssignedCourses returns assigned course ids, ascending.
func (i *Instructor) AssignedCourses() []string {
	return sortedKeys(i.assigned)
}

// IsAssignedTo reports whether the instructor teaches the course.
func (i *Instructor) IsAssignedTo(courseID string) bool {
	_, ok := i.assigned[courseID]
	return ok
}

// CourseLoad returns the number of assigned courses.
func (i *Instructor) CourseLoad() int { return len(i.assigned) }

// Clone returns a deep copy.
func (i *Instructor) Clone() *Instructor {
	if i == nil {
		return nil
	}
	c := *i
	c.assigned = make(map[string]struct{}, len(i.assigned))
	for k := range i.assigned {
		c.assigned[k] = struct{}{}
	}
	return &c
}

// MarshalJSON renders the public view.
func (i *Instructor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID              string    `json:"id"`
		Name            string    `json:"name"`
		Email           string    `json:"email"`
		EmployeeID      string    `json:"employee_id"`
		Department      string    `json:"department"`
		Specialization  string    `json:"specialization,omitempty"`
		AssignedCourses []string  `json:"assigned_courses"`
		CreatedAt       time.Time `json:"created_at"`
		UpdatedAt       time.Time `json:"updated_at"`
	}{i.id, i.name, i.email, i.employeeID, i.department, i.specialization, i.AssignedCourses(), i.createdAt, i.updatedAt})
}
