package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

type fakeMirrorRepo struct {
	ensured  bool
	rows     []models.MirrorStudent
	filter   models.MirrorFilter
	failWith error
}

func (f *fakeMirrorRepo) EnsureSchema(context.Context) error {
	f.ensured = true
	return f.failWith
}

func (f *fakeMirrorRepo) ReplaceAll(_ context.Context, rows []models.MirrorStudent) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.rows = rows
	return nil
}

func (f *fakeMirrorRepo) List(_ context.Context, filter models.MirrorFilter) ([]models.MirrorStudent, error) {
	f.filter = filter
	return f.rows, f.failWith
}

func TestMirrorSyncSnapshotsRoster(t *testing.T) {
	ctx := context.Background()
	records, catalog := newEngine(t, defaultLimits())
	_, err := records.CreateStudent(ctx, johnDoe())
	require.NoError(t, err)
	_, err = records.EnrollStudentInCourse(ctx, "S001", createCourse(t, catalog, "CS101", 3, 0))
	require.NoError(t, err)

	repo := &fakeMirrorRepo{}
	mirror := NewMirrorService(repo, records, NewMetricsService(), nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mirror.now = func() time.Time { return fixed }

	require.NoError(t, mirror.Prepare(ctx))
	assert.True(t, repo.ensured)

	result, err := mirror.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Students)
	assert.Equal(t, records.Version(), result.Version)
	require.Len(t, repo.rows, 1)
	assert.Equal(t, "S001", repo.rows[0].ID)
	assert.Equal(t, 3, repo.rows[0].EnrolledCredits)
	assert.Equal(t, fixed, repo.rows[0].SyncedAt)

	active := true
	rows, err := mirror.List(ctx, models.MirrorFilter{Department: "computer science", Active: &active})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "computer science", repo.filter.Department)
}

func TestMirrorSyncWrapsRepositoryErrors(t *testing.T) {
	records, _ := newEngine(t, defaultLimits())
	mirror := NewMirrorService(&fakeMirrorRepo{failWith: errors.New("connection refused")}, records, nil, nil)

	_, err := mirror.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

type flakyMirrorRepo struct {
	fakeMirrorRepo
	failures atomic.Int32
}

func (f *flakyMirrorRepo) ReplaceAll(ctx context.Context, rows []models.MirrorStudent) error {
	if f.failures.Add(-1) >= 0 {
		return errors.New("connection reset")
	}
	return nil
}

func TestMirrorBackgroundSyncRetries(t *testing.T) {
	records, _ := newEngine(t, defaultLimits())
	repo := &flakyMirrorRepo{}
	repo.failures.Store(1)
	mirror := NewMirrorService(repo, records, nil, nil)

	_, err := mirror.Enqueue()
	require.Error(t, err)

	mirror.StartBackground(context.Background(), 2, time.Millisecond)
	defer mirror.StopBackground()

	id, err := mirror.Enqueue()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Eventually(t, func() bool { return mirror.QueueStats().Succeeded == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, mirror.QueueStats().Retried)
}
