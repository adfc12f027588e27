package service

import (
	"context"

	"go.uber.org/zap"
)

// ImportResult summarises one CSV import.
type ImportResult struct {
	File     string     `json:"file"`
	Imported int        `json:"imported"`
	Skipped  []RowError `json:"skipped"`
}

// TransferService moves the in-memory collections to and from CSV files.
// Loading one side clears enrollment links on the other so both stay in step.
type TransferService struct {
	tx      *MemoryTx
	files   *FileService
	records *RecordsService
	catalog *CatalogService
	logger  *zap.Logger
}

// NewTransferService wires the file layer to the records engine.
func NewTransferService(tx *MemoryTx, files *FileService, records *RecordsService, catalog *CatalogService, logger *zap.Logger) *TransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{tx: tx, files: files, records: records, catalog: catalog, logger: logger}
}

// ExportStudents writes every student to filename.
func (s *TransferService) ExportStudents(ctx context.Context, filename string) (string, error) {
	students, err := s.records.GetAllStudents(ctx)
	if err != nil {
		return "", err
	}
	return s.files.ExportStudents(ctx, students, filename)
}

// ExportCourses writes every course to filename.
func (s *TransferService) ExportCourses(ctx context.Context, filename string) (string, error) {
	courses, err := s.catalog.ListCourses(ctx, CourseFilter{})
	if err != nil {
		return "", err
	}
	return s.files.ExportCourses(ctx, courses, filename)
}

// ImportStudents replaces the roster with the valid rows of filename and
// empties every course roster.
func (s *TransferService) ImportStudents(ctx context.Context, filename string) (ImportResult, error) {
	students, skipped, err := s.files.ImportStudents(ctx, filename)
	if err != nil {
		return ImportResult{}, err
	}
	err = s.tx.RunInTx(ctx, func() error {
		s.records.loadStudentsLocked(students)
		s.catalog.clearRostersLocked()
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{File: filename, Imported: len(students), Skipped: skipped}, nil
}

// ImportCourses replaces the catalog with the valid rows of filename and
// drops every student's enrollments.
func (s *TransferService) ImportCourses(ctx context.Context, filename string) (ImportResult, error) {
	courses, skipped, err := s.files.ImportCourses(ctx, filename)
	if err != nil {
		return ImportResult{}, err
	}
	err = s.tx.RunInTx(ctx, func() error {
		s.catalog.loadCoursesLocked(courses)
		s.records.dropEnrollmentsLocked()
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{File: filename, Imported: len(courses), Skipped: skipped}, nil
}
