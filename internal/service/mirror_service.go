package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm-api/internal/models"
	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
	"github.com/noah-isme/ccrm-api/pkg/jobs"
)

// MirrorSyncTask is the queued task kind for background syncs.
const MirrorSyncTask = "mirror_sync"

type mirrorRepository interface {
	EnsureSchema(ctx context.Context) error
	ReplaceAll(ctx context.Context, rows []models.MirrorStudent) error
	List(ctx context.Context, filter models.MirrorFilter) ([]models.MirrorStudent, error)
}

// MirrorSyncResult reports a completed sync.
type MirrorSyncResult struct {
	Students int       `json:"students"`
	Version  uint64    `json:"version"`
	SyncedAt time.Time `json:"synced_at"`
}

// MirrorService copies the in-memory roster into the SQL mirror.
type MirrorService struct {
	repo    mirrorRepository
	records *RecordsService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	queue   *jobs.Queue
}

// NewMirrorService constructs the mirror service.
func NewMirrorService(repo mirrorRepository, records *RecordsService, metrics *MetricsService, logger *zap.Logger) *MirrorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MirrorService{repo: repo, records: records, metrics: metrics, logger: logger, now: time.Now}
}

// Prepare ensures the mirror schema exists.
func (s *MirrorService) Prepare(ctx context.Context) error {
	start := time.Now()
	err := s.repo.EnsureSchema(ctx)
	s.metrics.ObserveMirrorQuery("ensure_schema", time.Since(start))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare mirror")
	}
	return nil
}

// Sync replaces the mirrored roster with the current students.
func (s *MirrorService) Sync(ctx context.Context) (MirrorSyncResult, error) {
	version := s.records.Version()
	students, err := s.records.GetAllStudents(ctx)
	if err != nil {
		return MirrorSyncResult{}, err
	}
	syncedAt := s.now().UTC()
	rows := make([]models.MirrorStudent, 0, len(students))
	for _, st := range students {
		rows = append(rows, st.ToMirror(syncedAt))
	}

	start := time.Now()
	err = s.repo.ReplaceAll(ctx, rows)
	s.metrics.ObserveMirrorQuery("replace_all", time.Since(start))
	if err != nil {
		return MirrorSyncResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync mirror")
	}

	s.logger.Info("mirror synced", zap.Int("students", len(rows)), zap.Uint64("version", version))
	return MirrorSyncResult{Students: len(rows), Version: version, SyncedAt: syncedAt}, nil
}

// List reads mirrored rows.
func (s *MirrorService) List(ctx context.Context, filter models.MirrorFilter) ([]models.MirrorStudent, error) {
	start := time.Now()
	rows, err := s.repo.List(ctx, filter)
	s.metrics.ObserveMirrorQuery("list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read mirror")
	}
	return rows, nil
}

// StartBackground starts the single worker that runs queued syncs, retrying
// failures up to retries times.
func (s *MirrorService) StartBackground(ctx context.Context, retries int, delay time.Duration) {
	s.queue = jobs.NewQueue("mirror-sync", func(ctx context.Context, task jobs.Task) error {
		_, err := s.Sync(ctx)
		return err
	}, jobs.Config{Workers: 1, Buffer: 4, MaxRetries: retries, RetryDelay: delay, Logger: s.logger})
	s.queue.Start(ctx)
}

// StopBackground waits for the worker to exit.
func (s *MirrorService) StopBackground() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Enqueue schedules a background sync and returns its task id.
func (s *MirrorService) Enqueue() (string, error) {
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrUnavailable, "background sync is not running")
	}
	id := uuid.NewString()
	if err := s.queue.Submit(jobs.Task{ID: id, Kind: MirrorSyncTask}); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "sync queue rejected the task")
	}
	return id, nil
}

// QueueStats reports background sync outcomes.
func (s *MirrorService) QueueStats() jobs.Stats {
	if s.queue == nil {
		return jobs.Stats{}
	}
	return s.queue.Stats()
}
