package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	props := "data.directory=" + dataDir + "\n" +
		"backup.directory=" + filepath.Join(root, "backups") + "\n" +
		"log.level=error\n"
	path := filepath.Join(root, "application.properties")
	require.NoError(t, os.WriteFile(path, []byte(props), 0o644))
	return path, dataDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBackupCommands(t *testing.T) {
	cfgPath, dataDir := writeConfig(t)
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "students.csv"), []byte("ID\n"), 0o644))

	out, err := run(t, "-c", cfgPath, "backup", "create")
	require.NoError(t, err)
	name := strings.Fields(out)[0]
	assert.True(t, strings.HasPrefix(name, "backup_"))

	out, err = run(t, "-c", cfgPath, "backup", "list")
	require.NoError(t, err)
	assert.Equal(t, name+"\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "students.csv"), []byte("changed\n"), 0o644))
	_, err = run(t, "-c", cfgPath, "backup", "restore", name)
	require.NoError(t, err)
	body, err := os.ReadFile(filepath.Join(dataDir, "students.csv"))
	require.NoError(t, err)
	assert.Equal(t, "ID\n", string(body))

	_, err = run(t, "-c", cfgPath, "backup", "restore")
	assert.Error(t, err)
}

func TestCheckCommandReportsSkippedRows(t *testing.T) {
	cfgPath, dataDir := writeConfig(t)
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	students := "ID,Name,Email,RegistrationNumber,Year,Department,Active,CreatedAt\n" +
		"S001,John Doe,john@example.com,2023CSE001,2,Computer Science,true,2024-01-02T03:04:05\n" +
		"S002,Bad Year,bad@example.com,2023CSE002,seven,Physics,true,\n"
	courses := "CourseID,CourseCode,Title,Description,Credits,Department,Semester,InstructorID,MaxEnrollment,CurrentEnrollment\n" +
		"CS101,CS101,Intro,,3,Computer Science,Fall 2023,,50,0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "students.csv"), []byte(students), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "courses.csv"), []byte(courses), 0o644))

	out, err := run(t, "-c", cfgPath, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "students: 1 valid, 1 skipped")
	assert.Contains(t, out, "line 3:")
	assert.Contains(t, out, "courses: 1 valid, 0 skipped")
}
