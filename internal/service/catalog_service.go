package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/pkg/config"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// CreateCourseRequest holds the payload for opening a course.
type CreateCourseRequest struct {
	CourseID      string   `json:"course_id" validate:"required"`
	CourseCode    string   `json:"course_code" validate:"required,course_code"`
	Title         string   `json:"title" validate:"required"`
	Description   string   `json:"description"`
	Credits       int      `json:"credits" validate:"min=1,max=6"`
	Department    string   `json:"department" validate:"required"`
	Semester      string   `json:"semester" validate:"required"`
	MaxEnrollment int      `json:"max_enrollment" validate:"gte=0"`
	Prerequisites []string `json:"prerequisites"`
}

// UpdateCourseRequest carries optional course fields.
type UpdateCourseRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Credits       *int    `json:"credits"`
	Department    *string `json:"department"`
	Semester      *string `json:"semester"`
	MaxEnrollment *int    `json:"max_enrollment"`
}

// CreateInstructorRequest holds the payload for registering an instructor.
type CreateInstructorRequest struct {
	ID             string `json:"id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email_format"`
	EmployeeID     string `json:"employee_id" validate:"required"`
	Department     string `json:"department" validate:"required"`
	Specialization string `json:"specialization"`
}

// CourseFilter narrows ListCourses. Zero values match everything.
type CourseFilter struct {
	Department   string
	InstructorID string
	Sort         string
}

// CatalogService owns courses and instructors.
type CatalogService struct {
	tx            *MemoryTx
	maxEnrollment int
	validator     *validator.Validate
	logger        *zap.Logger

	courses     map[string]*models.Course
	instructors map[string]*models.Instructor
	version     uint64
}

// NewCatalogService constructs the catalog. tx must be the one given to the RecordsService.
func NewCatalogService(tx *MemoryTx, limits config.RecordsConfig, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if tx == nil {
		tx = NewMemoryTx()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxEnrollment := limits.MaxCourseEnrollment
	if maxEnrollment <= 0 {
		maxEnrollment = models.DefaultMaxEnrollment
	}
	return &CatalogService{
		tx:            tx,
		maxEnrollment: maxEnrollment,
		validator:     validate,
		logger:        logger,
		courses:       make(map[string]*models.Course),
		instructors:   make(map[string]*models.Instructor),
	}
}

// CreateCourse validates and stores a course. A zero max enrollment takes the configured default.
func (s *CatalogService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.MaxEnrollment == 0 {
		req.MaxEnrollment = s.maxEnrollment
	}
	course, err := models.NewCourse(models.CourseParams{
		CourseID:      req.CourseID,
		CourseCode:    req.CourseCode,
		Title:         req.Title,
		Description:   req.Description,
		Credits:       req.Credits,
		Department:    req.Department,
		Semester:      req.Semester,
		MaxEnrollment: req.MaxEnrollment,
	})
	if err != nil {
		return nil, err
	}
	for _, pre := range req.Prerequisites {
		if err := course.AddPrerequisite(pre); err != nil {
			return nil, err
		}
	}

	err = s.tx.RunInTx(ctx, func() error {
		if _, exists := s.courses[course.CourseID()]; exists {
			return appErrors.Clone(appErrors.ErrDuplicateID, fmt.Sprintf("course with id %s already exists", course.CourseID()))
		}
		s.courses[course.CourseID()] = course
		s.version++
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("course created", zap.String("course_id", course.CourseID()), zap.Int("max_enrollment", course.MaxEnrollment()))
	return course.Clone(), nil
}

// UpdateCourse applies the valid subset of req, like UpdateStudent.
func (s *CatalogService) UpdateCourse(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	var out *models.Course
	err := s.tx.RunInTx(ctx, func() error {
		course, ok := s.courses[id]
		if !ok {
			return courseNotFound(id)
		}
		if req.Title != nil {
			_ = course.SetTitle(*req.Title)
		}
		if req.Description != nil {
			course.SetDescription(*req.Description)
		}
		if req.Credits != nil {
			_ = course.SetCredits(*req.Credits)
		}
		if req.Department != nil {
			_ = course.SetDepartment(*req.Department)
		}
		if req.Semester != nil {
			_ = course.SetSemester(*req.Semester)
		}
		if req.MaxEnrollment != nil {
			if err := course.SetMaxEnrollment(*req.MaxEnrollment); err != nil {
				return err
			}
		}
		s.version++
		out = course.Clone()
		return nil
	})
	return out, err
}

// GetCourse returns a copy of the course.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var out *models.Course
	err := s.tx.View(ctx, func() error {
		course, ok := s.courses[id]
		if !ok {
			return courseNotFound(id)
		}
		out = course.Clone()
		return nil
	})
	return out, err
}

// courseLocked returns the live course. Callers must hold the shared MemoryTx.
func (s *CatalogService) courseLocked(id string) (*models.Course, bool) {
	course, ok := s.courses[id]
	return course, ok
}

// ListCourses returns copies of matching courses, ordered by filter.Sort
// (course id when empty).
func (s *CatalogService) ListCourses(ctx context.Context, filter CourseFilter) ([]*models.Course, error) {
	var out []*models.Course
	err := s.tx.View(ctx, func() error {
		out = make([]*models.Course, 0, len(s.courses))
		for _, c := range s.courses {
			if filter.Department != "" && !strings.EqualFold(c.Department(), filter.Department) {
				continue
			}
			if filter.InstructorID != "" && c.InstructorID() != filter.InstructorID {
				continue
			}
			out = append(out, c.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	models.SortCourses(out, "")
	if filter.Sort != "" {
		models.SortCourses(out, filter.Sort)
	}
	return out, nil
}

// CourseCount returns the number of stored courses.
func (s *CatalogService) CourseCount(ctx context.Context) int {
	n := 0
	_ = s.tx.View(ctx, func() error {
		n = len(s.courses)
		return nil
	})
	return n
}

// LoadCourses replaces the course collection after an import. Instructor
// assignments are rebuilt from each course's instructor id.
func (s *CatalogService) LoadCourses(ctx context.Context, courses []*models.Course) error {
	return s.tx.RunInTx(ctx, func() error {
		s.loadCoursesLocked(courses)
		return nil
	})
}

func (s *CatalogService) loadCoursesLocked(courses []*models.Course) {
	s.courses = make(map[string]*models.Course, len(courses))
	for _, in := range s.instructors {
		for _, id := range in.AssignedCourses() {
			in.UnassignCourse(id)
		}
	}
	for _, c := range courses {
		if c == nil {
			continue
		}
		s.courses[c.CourseID()] = c.Clone()
		if in, ok := s.instructors[c.InstructorID()]; ok {
			_ = in.AssignCourse(c.CourseID())
		}
	}
	s.version++
	s.logger.Info("courses loaded", zap.Int("count", len(s.courses)))
}

func (s *CatalogService) clearRostersLocked() {
	for _, c := range s.courses {
		for _, id := range c.EnrolledStudents() {
			c.UnenrollStudent(id)
		}
	}
	s.version++
}

// CreateInstructor validates and stores an instructor.
func (s *CatalogService) CreateInstructor(ctx context.Context, req CreateInstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}
	instructor, err := models.NewInstructor(req.ID, req.Name, req.Email, req.EmployeeID, req.Department, req.Specialization)
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func() error {
		if _, exists := s.instructors[req.ID]; exists {
			return appErrors.Clone(appErrors.ErrDuplicateID, fmt.Sprintf("instructor with id %s already exists", req.ID))
		}
		s.instructors[req.ID] = instructor
		s.version++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return instructor.Clone(), nil
}

// GetInstructor returns a copy of the instructor.
func (s *CatalogService) GetInstructor(ctx context.Context, id string) (*models.Instructor, error) {
	var out *models.Instructor
	err := s.tx.View(ctx, func() error {
		in, ok := s.instructors[id]
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("instructor not found: %s", id))
		}
		out = in.Clone()
		return nil
	})
	return out, err
}

// ListInstructors returns copies ordered by id.
func (s *CatalogService) ListInstructors(ctx context.Context) ([]*models.Instructor, error) {
	var out []*models.Instructor
	err := s.tx.View(ctx, func() error {
		out = make([]*models.Instructor, 0, len(s.instructors))
		for _, in := range s.instructors {
			out = append(out, in.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, err
}

// AssignInstructor makes instructorID teach courseID, releasing any previous
// instructor. An empty instructorID clears the assignment.
func (s *CatalogService) AssignInstructor(ctx context.Context, courseID, instructorID string) (*models.Course, error) {
	var out *models.Course
	err := s.tx.RunInTx(ctx, func() error {
		course, ok := s.courses[courseID]
		if !ok {
			return courseNotFound(courseID)
		}
		var next *models.Instructor
		if instructorID != "" {
			next, ok = s.instructors[instructorID]
			if !ok {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("instructor not found: %s", instructorID))
			}
		}
		if prev, ok := s.instructors[course.InstructorID()]; ok {
			prev.UnassignCourse(courseID)
		}
		if next != nil {
			if err := next.AssignCourse(courseID); err != nil {
				return err
			}
		}
		course.SetInstructorID(instructorID)
		s.version++
		out = course.Clone()
		return nil
	})
	return out, err
}

// Version increases on every catalog mutation.
func (s *CatalogService) Version() uint64 {
	var v uint64
	_ = s.tx.View(context.Background(), func() error {
		v = s.version
		return nil
	})
	return v
}

func courseNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course not found: %s", id))
}
