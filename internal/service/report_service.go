package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/export"
)

// DepartmentSummary is one line of the department report.
type DepartmentSummary struct {
	Department string  `json:"department"`
	Students   int     `json:"students"`
	AverageGPA float64 `json:"average_gpa"`
}

// ReportService renders statistics, transcripts and rosters. Cache keys embed
// a per-process epoch and the records version, so any mutation or restart
// retires stale entries.
type ReportService struct {
	epoch   string
	records *RecordsService
	catalog *CatalogService
	cache   *CacheService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	xlsx    *export.XLSXExporter
	logger  *zap.Logger
}

// NewReportService wires the report renderers. cache may be nil.
func NewReportService(records *RecordsService, catalog *CatalogService, cache *CacheService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		epoch:   uuid.NewString()[:8],
		records: records,
		catalog: catalog,
		cache:   cache,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		xlsx:    export.NewXLSXExporter("Roster"),
		logger:  logger,
	}
}

func (s *ReportService) key(kind string, parts ...interface{}) string {
	return reportKey(kind, append([]interface{}{s.epoch, s.records.Version()}, parts...)...)
}

// Purge drops every cached report, including those left by earlier processes.
func (s *ReportService) Purge(ctx context.Context) {
	s.cache.Invalidate(ctx, reportKeyPrefix+"*")
}

// Statistics returns the enrollment statistics, cached per records version.
func (s *ReportService) Statistics(ctx context.Context) (EnrollmentStatistics, error) {
	key := s.key("statistics")
	return Remember(ctx, s.cache, key, func() (EnrollmentStatistics, error) {
		return s.records.GetEnrollmentStatistics(ctx)
	})
}

// DepartmentSummaries groups active students by department, ordered by name.
func (s *ReportService) DepartmentSummaries(ctx context.Context) ([]DepartmentSummary, error) {
	key := s.key("departments")
	return Remember(ctx, s.cache, key, func() ([]DepartmentSummary, error) {
		active, err := s.records.GetActiveStudents(ctx)
		if err != nil {
			return nil, err
		}
		byDept := map[string]*DepartmentSummary{}
		for _, st := range active {
			sum, ok := byDept[st.Department()]
			if !ok {
				sum = &DepartmentSummary{Department: st.Department()}
				byDept[st.Department()] = sum
			}
			sum.Students++
			sum.AverageGPA += st.CalculateGPA()
		}
		out := make([]DepartmentSummary, 0, len(byDept))
		for _, sum := range byDept {
			sum.AverageGPA /= float64(sum.Students)
			out = append(out, *sum)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
		return out, nil
	})
}

// Transcript returns the text transcript, cached per records version.
func (s *ReportService) Transcript(ctx context.Context, studentID string) (string, error) {
	key := s.key("transcript", studentID)
	return Remember(ctx, s.cache, key, func() (string, error) {
		return s.records.GenerateTranscript(ctx, studentID)
	})
}

// TranscriptPDF renders the transcript text into a PDF document.
func (s *ReportService) TranscriptPDF(ctx context.Context, studentID string) ([]byte, error) {
	text, err := s.Transcript(ctx, studentID)
	if err != nil {
		return nil, err
	}
	body, err := s.pdf.RenderText("Transcript "+studentID, text)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	return body, nil
}

// Roster formats.
const (
	RosterCSV  = "csv"
	RosterXLSX = "xlsx"
	RosterPDF  = "pdf"
)

// Roster renders the student roster in format. A non-empty courseID restricts
// it to that course's enrolled students.
func (s *ReportService) Roster(ctx context.Context, courseID, sortKey, format string) ([]byte, error) {
	data, err := s.rosterDataset(ctx, courseID, sortKey)
	if err != nil {
		return nil, err
	}

	var body []byte
	switch format {
	case RosterCSV:
		body, err = s.csv.Render(data)
	case RosterXLSX, "":
		body, err = s.xlsx.Render(data)
	case RosterPDF:
		title := "Student Roster"
		if courseID != "" {
			title = "Roster " + courseID
		}
		body, err = s.pdf.Render(data, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported roster format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return body, nil
}

func (s *ReportService) rosterDataset(ctx context.Context, courseID, sortKey string) (export.Dataset, error) {
	students, err := s.rosterStudents(ctx, courseID)
	if err != nil {
		return export.Dataset{}, err
	}
	models.SortStudents(students, sortKey)

	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, map[string]string{
			"ID":                 st.ID(),
			"Name":               st.Name(),
			"Email":              st.Email(),
			"RegistrationNumber": st.RegistrationNumber(),
			"Year":               strconv.Itoa(st.Year()),
			"Department":         st.Department(),
			"Active":             strconv.FormatBool(st.IsActive()),
			"GPA":                fmt.Sprintf("%.2f", st.CalculateGPA()),
		})
	}
	return export.Dataset{
		Headers: []string{"ID", "Name", "Email", "RegistrationNumber", "Year", "Department", "Active", "GPA"},
		Rows:    rows,
	}, nil
}

func (s *ReportService) rosterStudents(ctx context.Context, courseID string) ([]*models.Student, error) {
	if courseID == "" {
		return s.records.GetAllStudents(ctx)
	}
	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrolled := map[string]struct{}{}
	for _, id := range course.EnrolledStudents() {
		enrolled[id] = struct{}{}
	}
	return s.records.SearchStudents(ctx, func(st *models.Student) bool {
		_, ok := enrolled[st.ID()]
		return ok
	})
}
