package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/pkg/config"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

func newEngine(t *testing.T, limits config.RecordsConfig) (*RecordsService, *CatalogService) {
	t.Helper()
	tx := NewMemoryTx()
	v := NewValidator()
	catalog := NewCatalogService(tx, limits, v, nil)
	return NewRecordsService(tx, catalog, limits, v, NewMetricsService(), nil), catalog
}

func defaultLimits() config.RecordsConfig {
	return config.RecordsConfig{MaxCreditsPerSemester: 24, MaxCourseEnrollment: 50}
}

func johnDoe() CreateStudentRequest {
	return CreateStudentRequest{
		ID:                 "S001",
		Name:               "John Doe",
		Email:              "john@example.com",
		RegistrationNumber: "2023CSE001",
		Year:               2,
		Department:         "Computer Science",
	}
}

func createCourse(t *testing.T, catalog *CatalogService, id string, credits, max int) string {
	t.Helper()
	_, err := catalog.CreateCourse(context.Background(), CreateCourseRequest{
		CourseID:      id,
		CourseCode:    id,
		Title:         "Course " + id,
		Credits:       credits,
		Department:    "Computer Science",
		Semester:      "Fall 2024",
		MaxEnrollment: max,
	})
	require.NoError(t, err)
	return id
}

func TestCreateStudentDuplicates(t *testing.T) {
	ctx := context.Background()
	records, _ := newEngine(t, defaultLimits())

	student, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)
	assert.True(t, student.IsActive())

	_, err = records.CreateStudent(ctx, johnDoe())
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateID))

	req := johnDoe()
	req.ID = "S002"
	_, err = records.CreateStudent(ctx, req)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateRegistration))

	req.RegistrationNumber = "2023cse002"
	_, err = records.CreateStudent(ctx, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	assert.Equal(t, 1, records.StudentCount(ctx))
}

func TestUpdateStudentSkipsInvalidFields(t *testing.T) {
	ctx := context.Background()
	records, _ := newEngine(t, defaultLimits())
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)

	badEmail := "not-an-email"
	badYear := 9
	dept := "Mathematics"
	updated, err := records.UpdateStudent(ctx, "S001", UpdateStudentRequest{Email: &badEmail, Year: &badYear, Department: &dept})
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", updated.Email())
	assert.Equal(t, 2, updated.Year())
	assert.Equal(t, "Mathematics", updated.Department())

	_, err = records.UpdateStudent(ctx, "S404", UpdateStudentRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestEnrollScenarioCourseFull(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)
	second := johnDoe()
	second.ID, second.RegistrationNumber, second.Email = "S002", "2023CSE002", "jane@example.com"
	_, err = records.CreateStudent(ctx, second)
	require.NoError(t, err)

	course := createCourse(t, catalog, "CS101", 3, 1)

	enrollment, err := records.EnrollStudentInCourse(ctx, "S001", course)
	require.NoError(t, err)
	assert.Equal(t, "Fall 2024", enrollment.Semester)
	assert.NotEmpty(t, enrollment.ID)

	got, err := catalog.GetCourse(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentEnrollment())

	// the entity-level call is a silent no-op on a full course
	assert.False(t, got.EnrollStudent("S002"))

	_, err = records.EnrollStudentInCourse(ctx, "S002", course)
	assert.True(t, errors.Is(err, appErrors.ErrCourseFull))
	s2, err := records.GetStudent(ctx, "S002")
	require.NoError(t, err)
	assert.Empty(t, s2.EnrolledCourses(), "a rejected enrollment must not touch the student")
}

func TestEnrollIsBidirectionalAndDuplicateLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)
	course := createCourse(t, catalog, "CS101", 3, 10)

	_, err = records.EnrollStudentInCourse(ctx, "S001", course)
	require.NoError(t, err)
	before, _ := records.GetStudent(ctx, "S001")

	_, err = records.EnrollStudentInCourse(ctx, "S001", course)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateEnrollment))

	after, _ := records.GetStudent(ctx, "S001")
	assert.Equal(t, before.EnrolledCourses(), after.EnrolledCourses())
	snapshot, _ := catalog.GetCourse(ctx, "CS101")
	assert.Equal(t, []string{"S001"}, snapshot.EnrolledStudents())
	assert.Equal(t, []string{"CS101"}, after.EnrolledCourses())

	_, err = records.EnrollStudentInCourse(ctx, "S999", course)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = records.EnrollStudentInCourse(ctx, "S001", "NOPE")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCreditLimitSumsActualCredits(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, config.RecordsConfig{MaxCreditsPerSemester: 10, MaxCourseEnrollment: 50})
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)

	_, err = records.EnrollStudentInCourse(ctx, "S001", createCourse(t, catalog, "CS101", 6, 0))
	require.NoError(t, err)

	// a fixed three-credit estimate would have allowed this
	_, err = records.EnrollStudentInCourse(ctx, "S001", createCourse(t, catalog, "MA101", 5, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCreditLimitExceeded))

	var limitErr *appErrors.CreditLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 6, limitErr.Current)
	assert.Equal(t, 5, limitErr.Attempted)
	assert.Equal(t, 10, limitErr.Max)

	ma, _ := catalog.GetCourse(ctx, "MA101")
	assert.Equal(t, 0, ma.CurrentEnrollment())

	_, err = records.EnrollStudentInCourse(ctx, "S001", createCourse(t, catalog, "PH101", 4, 0))
	assert.NoError(t, err)
}

func TestAssignGradeScenario(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)
	course := createCourse(t, catalog, "CS101", 3, 1)
	_, err = records.EnrollStudentInCourse(ctx, "S001", course)
	require.NoError(t, err)

	require.NoError(t, records.AssignGrade(ctx, "S001", "CS101", models.GradeA))
	student, _ := records.GetStudent(ctx, "S001")
	assert.InDelta(t, 9.0, student.CalculateGPA(), 1e-9)

	err = records.AssignGrade(ctx, "S001", "MA101", models.GradeB)
	assert.True(t, errors.Is(err, appErrors.ErrNotEnrolled))

	err = records.AssignGrade(ctx, "S404", "CS101", models.GradeB)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	ledger, err := records.Enrollments(ctx, "S001")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.True(t, ledger[0].Completed)
	assert.Equal(t, models.GradeA, *ledger[0].Grade)
}

func TestUnenrollRemovesBothSides(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)
	course := createCourse(t, catalog, "CS101", 3, 5)
	_, err = records.EnrollStudentInCourse(ctx, "S001", course)
	require.NoError(t, err)
	require.NoError(t, records.AssignGrade(ctx, "S001", "CS101", models.GradeC))

	require.NoError(t, records.UnenrollStudentFromCourse(ctx, "S001", course))
	require.NoError(t, records.UnenrollStudentFromCourse(ctx, "S001", course))
	require.NoError(t, records.UnenrollStudentFromCourse(ctx, "S404", course))
	require.NoError(t, records.UnenrollStudentFromCourse(ctx, "S001", "NOPE"))

	student, _ := records.GetStudent(ctx, "S001")
	assert.Empty(t, student.EnrolledCourses())
	assert.Empty(t, student.Grades())
	snapshot, _ := catalog.GetCourse(ctx, "CS101")
	assert.Zero(t, snapshot.CurrentEnrollment())
	ledger, _ := records.Enrollments(ctx, "S001")
	assert.Empty(t, ledger)
}

func TestGenerateTranscript(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)

	empty, err := records.GenerateTranscript(ctx, "S001")
	require.NoError(t, err)
	assert.Contains(t, empty, "No grades recorded.\n")
	assert.Contains(t, empty, "Overall GPA: 0.00\n")

	for _, id := range []string{"MA101", "CS101"} {
		_, err := records.EnrollStudentInCourse(ctx, "S001", createCourse(t, catalog, id, 3, 0))
		require.NoError(t, err)
	}
	require.NoError(t, records.AssignGrade(ctx, "S001", "MA101", models.GradeF))
	require.NoError(t, records.AssignGrade(ctx, "S001", "CS101", models.GradeA))

	transcript, err := records.GenerateTranscript(ctx, "S001")
	require.NoError(t, err)
	want := "TRANSCRIPT\n" +
		"=========\n" +
		"Student: John Doe (2023CSE001)\n" +
		"Department: Computer Science, Year: 2\n" +
		"Email: john@example.com\n" +
		"\nCourses and Grades:\n" +
		"-----------------\n" +
		"Course: CS101 - Grade: A (9.0)\n" +
		"Course: MA101 - Grade: F (0.0)\n" +
		"\nOverall GPA: 4.50\n" +
		"Passed Courses: 1\n"
	assert.Equal(t, want, transcript)

	_, err = records.GenerateTranscript(ctx, "S404")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestEnrollmentStatistics(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())

	empty, err := records.GetEnrollmentStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.AverageGPA)

	reqs := []CreateStudentRequest{
		johnDoe(),
		{ID: "S002", Name: "Jane Smith", Email: "jane@example.com", RegistrationNumber: "2023EEE001", Year: 1, Department: "Electronics"},
		{ID: "S003", Name: "Bob Johnson", Email: "bob@example.com", RegistrationNumber: "2023MEC001", Year: 3, Department: "Mechanical"},
	}
	for _, req := range reqs {
		_, err := records.CreateStudent(ctx, req)
		require.NoError(t, err)
	}
	_, err = records.EnrollStudentInCourse(ctx, "S001", createCourse(t, catalog, "CS101", 3, 0))
	require.NoError(t, err)
	require.NoError(t, records.AssignGrade(ctx, "S001", "CS101", models.GradeS))
	require.NoError(t, records.DeactivateStudent(ctx, "S003"))
	require.NoError(t, records.DeactivateStudent(ctx, "S003"))
	require.NoError(t, records.ActivateStudent(ctx, "S404"))

	stats, err := records.GetEnrollmentStatistics(ctx)
	require.NoError(t, err)
	want := EnrollmentStatistics{
		TotalStudents:          3,
		ActiveStudents:         2,
		InactiveStudents:       1,
		DepartmentDistribution: map[string]int{"Computer Science": 1, "Electronics": 1},
		YearDistribution:       map[int]int{2: 1, 1: 1},
		AverageGPA:             5.0,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("statistics mismatch (-want +got):\n%s", diff)
	}
}

func TestQueriesReturnCopies(t *testing.T) {
	ctx := context.Background()
	records, _ := newEngine(t, defaultLimits())
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)

	list, err := records.GetAllStudents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list[0].SetActive(false)

	active, err := records.GetActiveStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	byDept, _ := records.GetStudentsByDepartment(ctx, "computer science")
	assert.Len(t, byDept, 1)
	byYear, _ := records.GetStudentsByYear(ctx, 3)
	assert.Empty(t, byYear)
	byGPA, _ := records.GetStudentsWithGPAAbove(ctx, 0)
	assert.Len(t, byGPA, 1)
}

func TestRemoveAndLoadStudents(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)
	course := createCourse(t, catalog, "CS101", 3, 0)
	_, err = records.EnrollStudentInCourse(ctx, "S001", course)
	require.NoError(t, err)

	err = records.RemoveStudent(ctx, "S001")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	require.NoError(t, records.UnenrollStudentFromCourse(ctx, "S001", course))
	require.NoError(t, records.RemoveStudent(ctx, "S001"))
	assert.Zero(t, records.StudentCount(ctx))

	before := records.Version()
	st, err := models.NewStudent("S010", "Imported", "imp@example.com", "2024CSE010", 1, "CS")
	require.NoError(t, err)
	require.NoError(t, records.LoadStudents(ctx, []*models.Student{st}))
	assert.Equal(t, 1, records.StudentCount(ctx))
	assert.Greater(t, records.Version(), before)
}

func TestConcurrentEnrollmentsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())
	course := createCourse(t, catalog, "CS101", 3, 5)

	const students = 20
	for i := 0; i < students; i++ {
		req := johnDoe()
		req.ID = "S" + string(rune('A'+i))
		req.RegistrationNumber = "2023CSE1" + string(rune('0'+i/10)) + string(rune('0'+i%10))
		_, err := records.CreateStudent(ctx, req)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = records.EnrollStudentInCourse(ctx, id, course)
		}("S" + string(rune('A'+i)))
	}
	wg.Wait()

	snapshot, err := catalog.GetCourse(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 5, snapshot.CurrentEnrollment())

	all, _ := records.GetAllStudents(ctx)
	enrolled := 0
	for _, st := range all {
		if st.IsEnrolledIn("CS101") {
			enrolled++
			assert.True(t, snapshot.IsStudentEnrolled(st.ID()))
		}
	}
	assert.Equal(t, 5, enrolled)
}

func TestListStudentsCombinesFilters(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())
	require.NoError(t, SeedSampleData(ctx, records, catalog))
	require.NoError(t, records.AssignGrade(ctx, "S001", "CS101", models.GradeA))
	require.NoError(t, records.DeactivateStudent(ctx, "S003"))

	active := true
	got, err := records.ListStudents(ctx, StudentFilter{Active: &active, Sort: models.SortByName})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "S002", got[0].ID())
	assert.Equal(t, "S001", got[1].ID())

	minGPA := 8.5
	got, err = records.ListStudents(ctx, StudentFilter{MinGPA: &minGPA})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "S001", got[0].ID())

	got, err = records.ListStudents(ctx, StudentFilter{Department: "mechanical engineering", Year: 3, Name: "bob"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "S003", got[0].ID())
}
