package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm-api/internal/models"
	"github.com/noah-isme/ccrm-api/pkg/config"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

func newFileService(t *testing.T) *FileService {
	t.Helper()
	root := t.TempDir()
	return NewFileService(config.StorageConfig{
		DataDir:   filepath.Join(root, "data"),
		BackupDir: filepath.Join(root, "backups"),
	}, NewMetricsService(), nil)
}

type studentTuple struct {
	ID, Name, Email, Reg, Dept string
	Year                       int
	Active                     bool
}

func tuples(students []*models.Student) []studentTuple {
	out := make([]studentTuple, 0, len(students))
	for _, s := range students {
		out = append(out, studentTuple{s.ID(), s.Name(), s.Email(), s.RegistrationNumber(), s.Department(), s.Year(), s.IsActive()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func TestStudentCSVRoundTrip(t *testing.T) {
	ctx := context.Background()
	files := newFileService(t)

	a, err := models.NewStudent("S002", `Smith, "Jane"`, "jane@example.com", "2023EEE001", 1, "Electronics,\nPower")
	require.NoError(t, err)
	b, err := models.NewStudent("S001", "John Doe", "john@example.com", "2023CSE001", 2, "Computer Science")
	require.NoError(t, err)
	b.SetActive(false)

	path, err := files.ExportStudents(ctx, []*models.Student{a, b}, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(files.DataRoot(), DefaultStudentsFile), path)

	imported, skipped, err := files.ImportStudents(ctx, DefaultStudentsFile)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, tuples([]*models.Student{a, b}), tuples(imported))
}

func TestImportSkipsBadRows(t *testing.T) {
	ctx := context.Background()
	files := newFileService(t)
	content := "ID,Name,Email,RegistrationNumber,Year,Department,Active,CreatedAt\n" +
		"S001,John Doe,john@example.com,2023CSE001,2,Computer Science,true,2024-01-02T10:11:12\n" +
		"S002,Bad Year,bad@example.com,2023CSE002,x,CS,true,\n" +
		"S003,Bad Email,nope,2023CSE003,1,CS,true,\n" +
		"S004,Short,short@example.com\n" +
		"\n" +
		"S005,Ok,ok@example.com,2023CSE005,4,CS,FALSE,2024-01-02T10:11:12.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(files.DataRoot(), "students.csv"), []byte(content), 0o644))

	imported, skipped, err := files.ImportStudents(ctx, "students.csv")
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, "S001", imported[0].ID())
	assert.Equal(t, time.Date(2024, 1, 2, 10, 11, 12, 0, time.Local), imported[0].CreatedAt())
	assert.False(t, imported[1].IsActive())

	lines := make([]int, 0, len(skipped))
	for _, row := range skipped {
		lines = append(lines, row.Line)
	}
	assert.Equal(t, []int{3, 4, 5}, lines)
}

func TestImportMissingFile(t *testing.T) {
	files := newFileService(t)
	_, _, err := files.ImportStudents(context.Background(), "absent.csv")
	assert.True(t, errors.Is(err, appErrors.ErrIO))

	_, _, err = files.ImportCourses(context.Background(), "../escape.csv")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCourseCSVRoundTrip(t *testing.T) {
	ctx := context.Background()
	files := newFileService(t)

	course, err := models.NewCourse(models.CourseParams{
		CourseID: "CS101", CourseCode: "CS101", Title: "Intro, Programming", Description: `The "first" course`,
		Credits: 3, Department: "Computer Science", Semester: "Fall 2024", MaxEnrollment: 40,
	})
	require.NoError(t, err)
	require.True(t, course.EnrollStudent("S001"))
	withInstructor := course.Clone()
	withInstructor.SetInstructorID("I001")

	_, err = files.ExportCourses(ctx, []*models.Course{withInstructor}, "courses.csv")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(files.DataRoot(), "courses.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "CourseID,CourseCode,Title,Description,Credits,Department,Semester,InstructorID,MaxEnrollment,CurrentEnrollment\n")
	assert.Contains(t, string(raw), `CS101,CS101,"Intro, Programming","The ""first"" course",3,Computer Science,Fall 2024,I001,40,1`)

	imported, skipped, err := files.ImportCourses(ctx, "courses.csv")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, imported, 1)
	assert.Equal(t, "Intro, Programming", imported[0].Title())
	assert.Equal(t, `The "first" course`, imported[0].Description())
	assert.Equal(t, "I001", imported[0].InstructorID())
	assert.Equal(t, 40, imported[0].MaxEnrollment())
	assert.Zero(t, imported[0].CurrentEnrollment())
}

func TestCourseCSVRoundTripKeepsLineBreaks(t *testing.T) {
	ctx := context.Background()
	files := newFileService(t)

	course, err := models.NewCourse(models.CourseParams{
		CourseID: "CS102", CourseCode: "CS102", Title: "Systems\rLab", Description: "line1\r\nline2\nline3",
		Credits: 4, Department: "Computer Science", Semester: "Spring 2025", MaxEnrollment: 20,
	})
	require.NoError(t, err)
	_, err = files.ExportCourses(ctx, []*models.Course{course}, "courses.csv")
	require.NoError(t, err)

	imported, skipped, err := files.ImportCourses(ctx, "courses.csv")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, imported, 1)
	assert.Equal(t, "Systems\rLab", imported[0].Title())
	assert.Equal(t, "line1\r\nline2\nline3", imported[0].Description())
}

func TestImportAcceptsCRLFRecords(t *testing.T) {
	ctx := context.Background()
	files := newFileService(t)
	content := "ID,Name,Email,RegistrationNumber,Year,Department,Active,CreatedAt\r\n" +
		"S001,John Doe,john@example.com,2023CSE001,2,Computer Science,true,\r\n" +
		"S002,Jane Smith,jane@example.com,2023EEE002,1,Electrical Engineering,true\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(files.DataRoot(), "students.csv"), []byte(content), 0o644))

	imported, skipped, err := files.ImportStudents(ctx, "students.csv")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, imported, 2)
	assert.Equal(t, "Electrical Engineering", imported[1].Department())
	assert.True(t, imported[1].IsActive())
}

func TestImportSkipsOversizedRow(t *testing.T) {
	ctx := context.Background()
	files := newFileService(t)
	files.recordLimit = 256
	content := "ID,Name,Email,RegistrationNumber,Year,Department,Active,CreatedAt\n" +
		"S001,John Doe,john@example.com,2023CSE001,2,Computer Science,true,\n" +
		"S002,\"" + strings.Repeat("x\n", 400) + "\",big@example.com,2023CSE002,1,CS,true,\n" +
		"S003,Ann Lee,ann@example.com,2023CSE003,1,CS,true,\n"
	require.NoError(t, os.WriteFile(filepath.Join(files.DataRoot(), "students.csv"), []byte(content), 0o644))

	imported, skipped, err := files.ImportStudents(ctx, "students.csv")
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, "S001", imported[0].ID())
	assert.Equal(t, "S003", imported[1].ID())
	require.Len(t, skipped, 1)
	assert.Equal(t, 3, skipped[0].Line)
	assert.Contains(t, skipped[0].Reason, "maximum size")
}

func snapshotTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, _ := filepath.Rel(root, path)
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out[rel] = string(data)
		}
		return nil
	}))
	return out
}

func TestBackupRestoreReproducesFiles(t *testing.T) {
	ctx := context.Background()
	files := newFileService(t)
	data := files.DataRoot()
	require.NoError(t, os.WriteFile(filepath.Join(data, "students.csv"), []byte("ID\nS001\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(data, "reports", "2024"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "reports", "2024", "t.txt"), []byte("transcript"), 0o644))
	original := snapshotTree(t, data)

	info, err := files.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^backup_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}$`, info.Name)
	assert.Equal(t, 2, info.Files)

	entries, err := os.ReadDir(data)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, os.RemoveAll(filepath.Join(data, e.Name())))
	}
	require.NoError(t, os.WriteFile(filepath.Join(data, "stray.csv"), []byte("x"), 0o644))

	require.NoError(t, files.RestoreFromBackup(ctx, info.Name))
	assert.Equal(t, original, snapshotTree(t, data))

	described, err := files.DescribeBackup(ctx, info.Name)
	require.NoError(t, err)
	assert.Equal(t, int64(len("ID\nS001\n")+len("transcript")), described.Bytes)
}

func TestBackupNamesAndOrdering(t *testing.T) {
	ctx := context.Background()
	files := newFileService(t)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	files.now = func() time.Time { return clock }

	first, err := files.CreateBackup(ctx)
	require.NoError(t, err)
	second, err := files.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backup_2024-03-01_09-00-00", first.Name)
	assert.Equal(t, "backup_2024-03-01_09-00-00_1", second.Name)

	clock = clock.Add(time.Hour)
	third, err := files.CreateBackup(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(files.BackupRoot(), "manual"), 0o755))

	names, err := files.ListBackups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{third.Name, second.Name, first.Name}, names)
}

func TestRestoreStagingFailureLeavesData(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	ctx := context.Background()
	files := newFileService(t)
	data := files.DataRoot()
	require.NoError(t, os.WriteFile(filepath.Join(data, "a.csv"), []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(data, "z.csv"), []byte("last"), 0o644))
	info, err := files.CreateBackup(ctx)
	require.NoError(t, err)

	locked := filepath.Join(files.BackupRoot(), info.Name, "z.csv")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	require.NoError(t, os.WriteFile(filepath.Join(data, "a.csv"), []byte("edited"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(data, "new.csv"), []byte("added"), 0o644))
	before := snapshotTree(t, data)

	err = files.RestoreFromBackup(ctx, info.Name)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrIO))
	assert.Equal(t, before, snapshotTree(t, data))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(data), ".data.restore-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRestoreMissingBackupLeavesData(t *testing.T) {
	ctx := context.Background()
	files := newFileService(t)
	target := filepath.Join(files.DataRoot(), "students.csv")
	require.NoError(t, os.WriteFile(target, []byte("keep"), 0o644))

	err := files.RestoreFromBackup(ctx, "backup_1999-01-01_00-00-00")
	assert.True(t, errors.Is(err, appErrors.ErrIO))

	err = files.RestoreFromBackup(ctx, "../data")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(got))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(files.DataRoot()), ".data.restore-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
