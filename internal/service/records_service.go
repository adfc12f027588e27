package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/pkg/config"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// CreateStudentRequest holds the payload for registering a student.
type CreateStudentRequest struct {
	ID                 string `json:"id" validate:"required"`
	Name               string `json:"name" validate:"required"`
	Email              string `json:"email" validate:"required,email_format"`
	RegistrationNumber string `json:"registration_number" validate:"required,regno"`
	Year               int    `json:"year" validate:"min=1,max=4"`
	Department         string `json:"department" validate:"required"`
}

// UpdateStudentRequest carries optional fields. Nil or invalid values are
// skipped rather than rejected.
type UpdateStudentRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Year       *int    `json:"year"`
	Department *string `json:"department"`
}

// EnrollmentStatistics aggregates the roster. Distributions and the GPA
// average consider active students only.
type EnrollmentStatistics struct {
	TotalStudents          int            `json:"total_students"`
	ActiveStudents         int            `json:"active_students"`
	InactiveStudents       int            `json:"inactive_students"`
	DepartmentDistribution map[string]int `json:"department_distribution"`
	YearDistribution       map[int]int    `json:"year_distribution"`
	AverageGPA             float64        `json:"average_gpa"`
}

// RecordsService manages students and their enrollments.
type RecordsService struct {
	tx        *MemoryTx
	limits    config.RecordsConfig
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	catalog   *CatalogService

	students    map[string]*models.Student
	enrollments map[string][]*models.Enrollment
	version     uint64
}

// NewRecordsService constructs the records service. Enrollment calls resolve
// courses through catalog, which must share tx. A nil catalog gets an empty one.
func NewRecordsService(tx *MemoryTx, catalog *CatalogService, limits config.RecordsConfig, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *RecordsService {
	if tx == nil {
		tx = NewMemoryTx()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = NewCatalogService(tx, limits, validate, logger)
	}
	if limits.MaxCreditsPerSemester <= 0 {
		limits.MaxCreditsPerSemester = config.Default().Records.MaxCreditsPerSemester
	}
	return &RecordsService{
		tx:          tx,
		limits:      limits,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
		catalog:     catalog,
		students:    make(map[string]*models.Student),
		enrollments: make(map[string][]*models.Enrollment),
	}
}

// Version increases on every mutation; cached reports are keyed by it.
func (s *RecordsService) Version() uint64 {
	return atomic.LoadUint64(&s.version)
}

func (s *RecordsService) bump() {
	atomic.AddUint64(&s.version, 1)
}

// CreateStudent validates and stores a new student.
func (s *RecordsService) CreateStudent(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := models.NewStudent(req.ID, req.Name, req.Email, req.RegistrationNumber, req.Year, req.Department)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func() error {
		if _, exists := s.students[req.ID]; exists {
			return appErrors.Clone(appErrors.ErrDuplicateID, fmt.Sprintf("student with id %s already exists", req.ID))
		}
		for _, existing := range s.students {
			if existing.RegistrationNumber() == req.RegistrationNumber {
				return appErrors.Clone(appErrors.ErrDuplicateRegistration, fmt.Sprintf("registration number %s already exists", req.RegistrationNumber))
			}
		}
		s.students[student.ID()] = student
		s.bump()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("student created", zap.String("student_id", student.ID()), zap.String("registration_number", student.RegistrationNumber()))
	return student.Clone(), nil
}

// UpdateStudent applies the valid subset of req.
func (s *RecordsService) UpdateStudent(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	var updated *models.Student
	err := s.tx.RunInTx(ctx, func() error {
		student, ok := s.students[id]
		if !ok {
			return studentNotFound(id)
		}
		var skipped []string
		if req.Name != nil {
			if err := student.SetName(*req.Name); err != nil {
				skipped = append(skipped, "name")
			}
		}
		if req.Email != nil {
			if err := student.SetEmail(*req.Email); err != nil {
				skipped = append(skipped, "email")
			}
		}
		if req.Year != nil {
			if err := student.SetYear(*req.Year); err != nil {
				skipped = append(skipped, "year")
			}
		}
		if req.Department != nil {
			if err := student.SetDepartment(*req.Department); err != nil {
				skipped = append(skipped, "department")
			}
		}
		if len(skipped) > 0 {
			s.logger.Debug("ignored invalid student fields", zap.String("student_id", id), zap.Strings("fields", skipped))
		}
		s.bump()
		updated = student.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetStudent returns a copy of the student.
func (s *RecordsService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	var out *models.Student
	err := s.tx.View(ctx, func() error {
		student, ok := s.students[id]
		if !ok {
			return studentNotFound(id)
		}
		out = student.Clone()
		return nil
	})
	return out, err
}

// GetAllStudents returns every student ordered by id.
func (s *RecordsService) GetAllStudents(ctx context.Context) ([]*models.Student, error) {
	return s.SearchStudents(ctx, func(*models.Student) bool { return true })
}

// GetActiveStudents returns students whose active flag is set.
func (s *RecordsService) GetActiveStudents(ctx context.Context) ([]*models.Student, error) {
	return s.SearchStudents(ctx, (*models.Student).IsActive)
}

// GetStudentsByDepartment matches the department case-insensitively.
func (s *RecordsService) GetStudentsByDepartment(ctx context.Context, department string) ([]*models.Student, error) {
	return s.SearchStudents(ctx, func(st *models.Student) bool {
		return strings.EqualFold(st.Department(), department)
	})
}

// GetStudentsByYear returns students in the given study year.
func (s *RecordsService) GetStudentsByYear(ctx context.Context, year int) ([]*models.Student, error) {
	return s.SearchStudents(ctx, func(st *models.Student) bool { return st.Year() == year })
}

// GetStudentsWithGPAAbove returns students whose GPA is at least threshold.
func (s *RecordsService) GetStudentsWithGPAAbove(ctx context.Context, threshold float64) ([]*models.Student, error) {
	return s.SearchStudents(ctx, func(st *models.Student) bool { return st.CalculateGPA() >= threshold })
}

// SearchStudents returns copies of the students matching pred, ordered by id.
func (s *RecordsService) SearchStudents(ctx context.Context, pred func(*models.Student) bool) ([]*models.Student, error) {
	var out []*models.Student
	err := s.tx.View(ctx, func() error {
		out = make([]*models.Student, 0, len(s.students))
		for _, id := range sortedStudentIDs(s.students) {
			if st := s.students[id]; pred(st) {
				out = append(out, st.Clone())
			}
		}
		return nil
	})
	return out, err
}

// StudentFilter combines the roster queries. Zero values match everything.
type StudentFilter struct {
	Department string
	Year       int
	MinGPA     *float64
	Active     *bool
	Name       string
	Sort       string
}

// ListStudents applies every set criterion of filter and orders the result by
// filter.Sort (id when empty).
func (s *RecordsService) ListStudents(ctx context.Context, filter StudentFilter) ([]*models.Student, error) {
	name := strings.ToLower(strings.TrimSpace(filter.Name))
	out, err := s.SearchStudents(ctx, func(st *models.Student) bool {
		switch {
		case filter.Department != "" && !strings.EqualFold(st.Department(), filter.Department):
			return false
		case filter.Year != 0 && st.Year() != filter.Year:
			return false
		case filter.Active != nil && st.IsActive() != *filter.Active:
			return false
		case filter.MinGPA != nil && st.CalculateGPA() < *filter.MinGPA:
			return false
		case name != "" && !strings.Contains(strings.ToLower(st.Name()), name):
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if filter.Sort != "" {
		models.SortStudents(out, filter.Sort)
	}
	return out, nil
}

// StudentCount returns the number of stored students.
func (s *RecordsService) StudentCount(ctx context.Context) int {
	n := 0
	_ = s.tx.View(ctx, func() error {
		n = len(s.students)
		return nil
	})
	return n
}

// EnrollStudentInCourse links student and course in one critical section.
// The course is resolved inside that section, so a concurrent catalog reload
// cannot leave the student pointing at a detached course.
func (s *RecordsService) EnrollStudentInCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	var (
		record  *models.Enrollment
		credits int
	)
	outcome := OutcomeEnrolled
	err := s.tx.RunInTx(ctx, func() error {
		student, ok := s.students[studentID]
		if !ok {
			outcome = OutcomeStudentMissing
			return studentNotFound(studentID)
		}
		course, ok := s.catalog.courseLocked(courseID)
		if !ok {
			outcome = OutcomeCourseMissing
			return courseNotFound(courseID)
		}
		credits = course.Credits()
		if student.IsEnrolledIn(courseID) || course.IsStudentEnrolled(studentID) {
			outcome = OutcomeDuplicate
			return appErrors.Clone(appErrors.ErrDuplicateEnrollment,
				fmt.Sprintf("student %s is already enrolled in course %s", studentID, courseID))
		}

		current := student.CommittedCredits()
		if current+course.Credits() > s.limits.MaxCreditsPerSemester {
			outcome = OutcomeCreditLimit
			return appErrors.NewCreditLimitError(current, course.Credits(), s.limits.MaxCreditsPerSemester)
		}

		if !course.EnrollStudent(studentID) {
			outcome = OutcomeCourseFull
			return appErrors.Clone(appErrors.ErrCourseFull,
				fmt.Sprintf("course %s is full (%d/%d)", courseID, course.CurrentEnrollment(), course.MaxEnrollment()))
		}
		if err := student.EnrollInCourse(courseID, course.Credits()); err != nil {
			course.UnenrollStudent(studentID)
			return err
		}

		enrollment, err := models.NewEnrollment(uuid.NewString(), studentID, courseID, course.Semester())
		if err != nil {
			student.UnenrollFromCourse(courseID)
			course.UnenrollStudent(studentID)
			return err
		}
		s.enrollments[studentID] = append(s.enrollments[studentID], enrollment)
		s.bump()
		copied := *enrollment
		record = &copied
		return nil
	})
	s.metrics.RecordEnrollment(outcome)
	if err != nil {
		return nil, err
	}

	s.logger.Info("student enrolled",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.Int("credits", credits))
	return record, nil
}

// UnenrollStudentFromCourse removes both cross-links. Unknown students and
// courses the student is not enrolled in are no-ops.
func (s *RecordsService) UnenrollStudentFromCourse(ctx context.Context, studentID, courseID string) error {
	return s.tx.RunInTx(ctx, func() error {
		student, ok := s.students[studentID]
		if !ok {
			return nil
		}
		student.UnenrollFromCourse(courseID)
		if course, ok := s.catalog.courseLocked(courseID); ok {
			course.UnenrollStudent(studentID)
		}

		ledger := s.enrollments[studentID]
		kept := ledger[:0]
		for _, e := range ledger {
			if e.CourseID != courseID {
				kept = append(kept, e)
			}
		}
		s.enrollments[studentID] = kept
		s.bump()
		return nil
	})
}

// AssignGrade records a grade for an enrolled course.
func (s *RecordsService) AssignGrade(ctx context.Context, studentID, courseID string, grade models.Grade) error {
	return s.tx.RunInTx(ctx, func() error {
		student, ok := s.students[studentID]
		if !ok {
			return studentNotFound(studentID)
		}
		if err := student.SetGrade(courseID, grade); err != nil {
			return err
		}
		for _, e := range s.enrollments[studentID] {
			if e.CourseID == courseID {
				e.SetGrade(grade)
			}
		}
		s.bump()
		return nil
	})
}

// Enrollments returns copies of the student's enrollment records in enrollment order.
func (s *RecordsService) Enrollments(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	err := s.tx.View(ctx, func() error {
		if _, ok := s.students[studentID]; !ok {
			return studentNotFound(studentID)
		}
		out = make([]models.Enrollment, 0, len(s.enrollments[studentID]))
		for _, e := range s.enrollments[studentID] {
			out = append(out, *e)
		}
		return nil
	})
	return out, err
}

// GenerateTranscript renders the plain-text transcript. Courses are listed in
// ascending course id order.
func (s *RecordsService) GenerateTranscript(ctx context.Context, studentID string) (string, error) {
	var out string
	err := s.tx.View(ctx, func() error {
		student, ok := s.students[studentID]
		if !ok {
			return studentNotFound(studentID)
		}
		out = renderTranscript(student)
		return nil
	})
	return out, err
}

func renderTranscript(st *models.Student) string {
	var b strings.Builder
	b.WriteString("TRANSCRIPT\n")
	b.WriteString("=========\n")
	fmt.Fprintf(&b, "Student: %s (%s)\n", st.Name(), st.RegistrationNumber())
	fmt.Fprintf(&b, "Department: %s, Year: %d\n", st.Department(), st.Year())
	fmt.Fprintf(&b, "Email: %s\n", st.Email())
	b.WriteString("\nCourses and Grades:\n")
	b.WriteString("-----------------\n")

	courses := st.GradedCourses()
	if len(courses) == 0 {
		b.WriteString("No grades recorded.\n")
	}
	for _, courseID := range courses {
		grade, _ := st.Grade(courseID)
		fmt.Fprintf(&b, "Course: %s - Grade: %s\n", courseID, grade)
	}

	fmt.Fprintf(&b, "\nOverall GPA: %.2f\n", st.CalculateGPA())
	fmt.Fprintf(&b, "Passed Courses: %d\n", len(st.PassedCourses()))
	return b.String()
}

// GetEnrollmentStatistics aggregates counts and the active-student GPA average.
func (s *RecordsService) GetEnrollmentStatistics(ctx context.Context) (EnrollmentStatistics, error) {
	stats := EnrollmentStatistics{
		DepartmentDistribution: map[string]int{},
		YearDistribution:       map[int]int{},
	}
	err := s.tx.View(ctx, func() error {
		stats.TotalStudents = len(s.students)
		gpaSum := 0.0
		for _, st := range s.students {
			if !st.IsActive() {
				continue
			}
			stats.ActiveStudents++
			stats.DepartmentDistribution[st.Department()]++
			stats.YearDistribution[st.Year()]++
			gpaSum += st.CalculateGPA()
		}
		stats.InactiveStudents = stats.TotalStudents - stats.ActiveStudents
		if stats.ActiveStudents > 0 {
			stats.AverageGPA = gpaSum / float64(stats.ActiveStudents)
		}
		return nil
	})
	return stats, err
}

// DeactivateStudent clears the active flag; unknown ids are ignored.
func (s *RecordsService) DeactivateStudent(ctx context.Context, id string) error {
	return s.setActive(ctx, id, false)
}

// ActivateStudent sets the active flag; unknown ids are ignored.
func (s *RecordsService) ActivateStudent(ctx context.Context, id string) error {
	return s.setActive(ctx, id, true)
}

func (s *RecordsService) setActive(ctx context.Context, id string, active bool) error {
	return s.tx.RunInTx(ctx, func() error {
		student, ok := s.students[id]
		if !ok || student.IsActive() == active {
			return nil
		}
		student.SetActive(active)
		s.bump()
		return nil
	})
}

// RemoveStudent deletes a student that holds no enrollments.
func (s *RecordsService) RemoveStudent(ctx context.Context, id string) error {
	return s.tx.RunInTx(ctx, func() error {
		student, ok := s.students[id]
		if !ok {
			return studentNotFound(id)
		}
		if n := len(student.EnrolledCourses()); n > 0 {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("student %s is still enrolled in %d course(s)", id, n))
		}
		delete(s.students, id)
		delete(s.enrollments, id)
		s.bump()
		return nil
	})
}

// LoadStudents replaces the whole collection, typically after an import.
// Later duplicates of an id replace earlier ones.
func (s *RecordsService) LoadStudents(ctx context.Context, students []*models.Student) error {
	return s.tx.RunInTx(ctx, func() error {
		s.loadStudentsLocked(students)
		return nil
	})
}

func (s *RecordsService) loadStudentsLocked(students []*models.Student) {
	s.students = make(map[string]*models.Student, len(students))
	s.enrollments = make(map[string][]*models.Enrollment)
	for _, st := range students {
		if st != nil {
			s.students[st.ID()] = st.Clone()
		}
	}
	s.bump()
	s.logger.Info("students loaded", zap.Int("count", len(s.students)))
}

// dropEnrollmentsLocked clears every student's course links and the ledger.
// Grades are kept.
func (s *RecordsService) dropEnrollmentsLocked() {
	for _, st := range s.students {
		for _, courseID := range st.EnrolledCourses() {
			st.UnenrollFromCourse(courseID)
		}
	}
	s.enrollments = make(map[string][]*models.Enrollment)
	s.bump()
}

func studentNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student not found: %s", id))
}

func sortedStudentIDs(m map[string]*models.Student) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
