package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/pkg/config"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/export"
	"github.com/noah-isme/ccrm-api/pkg/storage"
)

const (
	// BackupPrefix starts every snapshot directory name.
	BackupPrefix = "backup_"
	// BackupTimestampLayout is the timestamp suffix of snapshot names.
	BackupTimestampLayout = "2006-01-02_15-04-05"
	// CSVTimeLayout is the local date-time written in the CreatedAt column.
	CSVTimeLayout = "2006-01-02T15:04:05"

	DefaultStudentsFile = "students.csv"
	DefaultCoursesFile  = "courses.csv"
)

var (
	studentHeaders = []string{"ID", "Name", "Email", "RegistrationNumber", "Year", "Department", "Active", "CreatedAt"}
	courseHeaders  = []string{"CourseID", "CourseCode", "Title", "Description", "Credits", "Department", "Semester", "InstructorID", "MaxEnrollment", "CurrentEnrollment"}
)

// RowError describes a CSV row skipped during import.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// BackupInfo summarises a snapshot directory.
type BackupInfo struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Files int    `json:"files"`
	Bytes int64  `json:"bytes"`
}

// FileService handles CSV export/import and data-root backups. Operations
// are serialised by an internal mutex.
type FileService struct {
	data    *storage.LocalStorage
	backups *storage.LocalStorage
	csv     *export.CSVExporter
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time

	// recordLimit caps one imported CSV record; longer rows are skipped.
	recordLimit int

	mu sync.Mutex
}

// NewFileService prepares the data and backup roots. A directory that cannot
// be created is logged and later operations on it fail with ErrIO.
func NewFileService(cfg config.StorageConfig, metrics *MetricsService, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{
		data:    openRoot(cfg.DataDir, "data", logger),
		backups: openRoot(cfg.BackupDir, "backup", logger),
		csv:     export.NewCSVExporter(),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,

		recordLimit: export.MaxRecordSize,
	}
}

func openRoot(dir, kind string, logger *zap.Logger) *storage.LocalStorage {
	root, err := storage.NewLocalStorage(dir)
	if err != nil {
		logger.Warn("failed to prepare directory", zap.String("kind", kind), zap.String("dir", dir), zap.Error(err))
		return storage.At(dir)
	}
	return root
}

// DataRoot returns the data directory path.
func (s *FileService) DataRoot() string { return s.data.Root() }

// BackupRoot returns the backup directory path.
func (s *FileService) BackupRoot() string { return s.backups.Root() }

// ExportStudents writes students to filename under the data root, replacing
// any existing file. It returns the written path.
func (s *FileService) ExportStudents(ctx context.Context, students []*models.Student, filename string) (string, error) {
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
			"CreatedAt":          st.CreatedAt().Local().Format(CSVTimeLayout),
		})
	}
	path, err := s.writeCSV(ctx, filename, DefaultStudentsFile, export.Dataset{Headers: studentHeaders, Rows: rows})
	s.metrics.RecordFileOperation("export_students", err)
	if err != nil {
		return "", err
	}
	s.logger.Info("students exported", zap.String("path", path), zap.Int("count", len(rows)))
	return path, nil
}

// ExportCourses writes courses to filename under the data root.
func (s *FileService) ExportCourses(ctx context.Context, courses []*models.Course, filename string) (string, error) {
	rows := make([]map[string]string, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, map[string]string{
			"CourseID":          c.CourseID(),
			"CourseCode":        c.CourseCode(),
			"Title":             c.Title(),
			"Description":       c.Description(),
			"Credits":           strconv.Itoa(c.Credits()),
			"Department":        c.Department(),
			"Semester":          c.Semester(),
			"InstructorID":      c.InstructorID(),
			"MaxEnrollment":     strconv.Itoa(c.MaxEnrollment()),
			"CurrentEnrollment": strconv.Itoa(c.CurrentEnrollment()),
		})
	}
	path, err := s.writeCSV(ctx, filename, DefaultCoursesFile, export.Dataset{Headers: courseHeaders, Rows: rows})
	s.metrics.RecordFileOperation("export_courses", err)
	if err != nil {
		return "", err
	}
	s.logger.Info("courses exported", zap.String("path", path), zap.Int("count", len(rows)))
	return path, nil
}

func (s *FileService) writeCSV(ctx context.Context, filename, fallback string, data export.Dataset) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := cleanName(filename, fallback)
	if err != nil {
		return "", err
	}
	body, err := s.csv.Render(data)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.data.Save(name, body); err != nil {
		return "", appErrors.IOf(err, "failed to write %s", name)
	}
	return s.data.Path(name), nil
}

// ImportStudents parses filename from the data root. Malformed or invalid
// rows are skipped, logged and reported; the valid subset is returned.
func (s *FileService) ImportStudents(ctx context.Context, filename string) ([]*models.Student, []RowError, error) {
	var students []*models.Student
	skipped, err := s.readCSV(ctx, filename, DefaultStudentsFile, "student", func(fields []string) error {
		st, err := studentFromRecord(fields)
		if err != nil {
			return err
		}
		students = append(students, st)
		return nil
	})
	s.metrics.RecordFileOperation("import_students", err)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordImportRows("student", len(students), len(skipped))
	return students, skipped, nil
}

// ImportCourses parses filename from the data root with the same skip policy
// as ImportStudents. CurrentEnrollment is informational and not restored.
func (s *FileService) ImportCourses(ctx context.Context, filename string) ([]*models.Course, []RowError, error) {
	var courses []*models.Course
	skipped, err := s.readCSV(ctx, filename, DefaultCoursesFile, "course", func(fields []string) error {
		c, err := courseFromRecord(fields)
		if err != nil {
			return err
		}
		courses = append(courses, c)
		return nil
	})
	s.metrics.RecordFileOperation("import_courses", err)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordImportRows("course", len(courses), len(skipped))
	return courses, skipped, nil
}

func (s *FileService) readCSV(ctx context.Context, filename, fallback, entity string, accept func([]string) error) ([]RowError, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := cleanName(filename, fallback)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.data.Open(name)
	if err != nil {
		return nil, appErrors.IOf(err, "file not found: %s", s.data.Path(name))
	}
	defer file.Close() //nolint:errcheck

	skipped := []RowError{}
	scanner := export.NewRecordScannerSize(file, s.recordLimit)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		record := scanner.Text()
		err := scanner.RecordErr()
		if err == nil && strings.TrimSpace(record) == "" {
			continue
		}
		var fields []string
		if err == nil {
			fields, err = export.SplitRecord(record)
		}
		if err == nil {
			err = accept(fields)
		}
		if err != nil {
			row := RowError{Line: scanner.Line(), Reason: err.Error()}
			skipped = append(skipped, row)
			s.logger.Warn("skipping csv row",
				zap.String("entity", entity),
				zap.String("file", name),
				zap.Int("line", row.Line),
				zap.String("reason", row.Reason))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, appErrors.IOf(err, "failed to read %s", name)
	}
	return skipped, nil
}

func studentFromRecord(fields []string) (*models.Student, error) {
	if len(fields) < 7 {
		return nil, fmt.Errorf("expected at least 7 fields, got %d", len(fields))
	}
	year, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil {
		return nil, fmt.Errorf("invalid year %q", fields[4])
	}
	st, err := models.NewStudent(fields[0], fields[1], fields[2], fields[3], year, fields[5])
	if err != nil {
		return nil, err
	}
	st.SetActive(strings.EqualFold(strings.TrimSpace(fields[6]), "true"))
	if len(fields) > 7 {
		if created, err := time.ParseInLocation(CSVTimeLayout, strings.TrimSpace(fields[7]), time.Local); err == nil {
			st.SetCreatedAt(created)
		}
	}
	return st, nil
}

func courseFromRecord(fields []string) (*models.Course, error) {
	if len(fields) < 9 {
		return nil, fmt.Errorf("expected at least 9 fields, got %d", len(fields))
	}
	credits, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil {
		return nil, fmt.Errorf("invalid credits %q", fields[4])
	}
	maxEnrollment, err := strconv.Atoi(strings.TrimSpace(fields[8]))
	if err != nil {
		return nil, fmt.Errorf("invalid max enrollment %q", fields[8])
	}
	if maxEnrollment <= 0 {
		return nil, fmt.Errorf("max enrollment must be positive, got %d", maxEnrollment)
	}
	return models.NewCourse(models.CourseParams{
		CourseID:      fields[0],
		CourseCode:    fields[1],
		Title:         fields[2],
		Description:   fields[3],
		Credits:       credits,
		Department:    fields[5],
		Semester:      fields[6],
		InstructorID:  strings.TrimSpace(fields[7]),
		MaxEnrollment: maxEnrollment,
	})
}

// CreateBackup copies every regular file of the data root into a new
// backup_<timestamp> directory. Same-second snapshots get a _N suffix.
func (s *FileService) CreateBackup(ctx context.Context) (BackupInfo, error) {
	info, err := s.createBackup(ctx)
	s.metrics.RecordFileOperation("backup", err)
	if err != nil {
		return BackupInfo{}, err
	}
	s.logger.Info("backup created", zap.String("name", info.Name), zap.Int("files", info.Files), zap.Int64("bytes", info.Bytes))
	return info, nil
}

func (s *FileService) createBackup(ctx context.Context) (BackupInfo, error) {
	if err := ctx.Err(); err != nil {
		return BackupInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.data.IsDir(".") {
		return BackupInfo{}, appErrors.IOf(os.ErrNotExist, "data directory not found: %s", s.data.Root())
	}
	if err := os.MkdirAll(s.backups.Root(), 0o755); err != nil {
		return BackupInfo{}, appErrors.IOf(err, "failed to prepare backup directory")
	}

	base := BackupPrefix + s.now().Format(BackupTimestampLayout)
	name := base
	for n := 1; ; n++ {
		err := os.Mkdir(s.backups.Path(name), 0o755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return BackupInfo{}, appErrors.IOf(err, "failed to create backup %s", name)
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}

	target := s.backups.Path(name)
	files, err := storage.CopyTree(s.data.Root(), target)
	if err != nil {
		_ = os.RemoveAll(target)
		return BackupInfo{}, appErrors.IOf(err, "failed to copy data into %s", name)
	}
	_, size, err := storage.TreeStats(target)
	if err != nil {
		return BackupInfo{}, appErrors.IOf(err, "failed to stat backup %s", name)
	}
	return BackupInfo{Name: name, Path: target, Files: files, Bytes: size}, nil
}

// ListBackups returns snapshot names, newest first.
func (s *FileService) ListBackups(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.backups.ListDirs(BackupPrefix)
	if err != nil {
		return nil, appErrors.IOf(err, "failed to list backups")
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names, nil
}

// DescribeBackup reports the file count and size of a snapshot.
func (s *FileService) DescribeBackup(ctx context.Context, name string) (BackupInfo, error) {
	if err := ctx.Err(); err != nil {
		return BackupInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.backupPath(name)
	if err != nil {
		return BackupInfo{}, err
	}
	files, size, err := storage.TreeStats(path)
	if err != nil {
		return BackupInfo{}, appErrors.IOf(err, "failed to inspect backup %s", name)
	}
	return BackupInfo{Name: name, Path: path, Files: files, Bytes: size}, nil
}

// RestoreFromBackup replaces the data root with the snapshot's contents. The
// snapshot is first staged next to the data root; the live data is only
// touched once staging has succeeded.
func (s *FileService) RestoreFromBackup(ctx context.Context, name string) error {
	err := s.restore(ctx, name)
	s.metrics.RecordFileOperation("restore", err)
	if err != nil {
		s.logger.Error("restore failed", zap.String("backup", name), zap.Error(err))
		return err
	}
	s.logger.Info("data restored", zap.String("backup", name))
	return nil
}

func (s *FileService) restore(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	source, err := s.backupPath(name)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(s.data.Root())
	if err != nil {
		return appErrors.IOf(err, "failed to resolve data directory")
	}
	parent := filepath.Dir(root)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return appErrors.IOf(err, "failed to prepare %s", parent)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(root)+".restore-")
	if err != nil {
		return appErrors.IOf(err, "failed to create staging directory")
	}
	defer os.RemoveAll(staging) //nolint:errcheck

	if _, err := storage.CopyTree(source, staging); err != nil {
		return appErrors.IOf(err, "failed to stage backup %s", name)
	}
	if err := swapInto(root, staging); err != nil {
		return appErrors.IOf(err, "failed to replace data directory from %s", name)
	}
	return nil
}

// swapInto moves the staged tree onto root. The old root is renamed aside so
// a failed final rename can be rolled back; when root cannot be renamed its
// contents are removed and the staged entries moved in one by one.
func swapInto(root, staging string) error {
	retired := staging + ".old"
	if err := os.Rename(root, retired); err == nil {
		if err := os.Rename(staging, root); err != nil {
			_ = os.Rename(retired, root)
			return err
		}
		_ = storage.RemoveContents(retired)
		_ = os.Remove(retired)
		return nil
	} else if !os.IsNotExist(err) {
		if err := storage.RemoveContents(root); err != nil {
			return err
		}
		entries, err := os.ReadDir(staging)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := os.Rename(filepath.Join(staging, entry.Name()), filepath.Join(root, entry.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	return os.Rename(staging, root)
}

func (s *FileService) backupPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid backup name %q", name))
	}
	if !s.backups.IsDir(name) {
		return "", appErrors.IOf(os.ErrNotExist, "backup not found: %s", name)
	}
	return s.backups.Path(name), nil
}

// cleanName restricts file names to the data root.
func cleanName(filename, fallback string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return fallback, nil
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file name %q must not contain a path", filename))
	}
	return name, nil
}
