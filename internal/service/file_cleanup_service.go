package service

import (
	"context"
	"fmt"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/noah-isme/job-portal-api/pkg/jobs"
)

const deleteFileJob = "delete_file"

type fileDeleter interface {
	Delete(relPath string) error
}

type cleanupObserver interface {
	ObserveCleanup(outcome string)
}

// FileCleanupConfig tunes the background deletion queue.
type FileCleanupConfig struct {
	Workers    int
	MaxRetries int
}

// FileCleanupService retries upload deletions that failed inline. It owns no
// request state; it only deletes paths handed to ScheduleDelete.
type FileCleanupService struct {
	store    fileDeleter
	observer cleanupObserver
	logger   *zap.Logger
	queue    *jobs.Queue
}

// NewFileCleanupService builds the service and its worker queue. Start must
// be called before paths are scheduled.
func NewFileCleanupService(store fileDeleter, observer cleanupObserver, cfg FileCleanupConfig, logger *zap.Logger) *FileCleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileCleanupService{store: store, observer: observer, logger: logger}
	s.queue = jobs.NewQueue("file-cleanup", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
		OnGiveUp:   s.giveUp,
	})
	return s
}

// Start launches the workers.
func (s *FileCleanupService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *FileCleanupService) Stop() {
	s.queue.Stop()
}

// ScheduleDelete queues relPath for deletion.
func (s *FileCleanupService) ScheduleDelete(relPath, reason string) error {
	if relPath == "" {
		return fmt.Errorf("empty path")
	}
	err := s.queue.Enqueue(jobs.Job{ID: ksuid.New().String(), Type: deleteFileJob, Payload: relPath})
	if err != nil {
		s.observe("not_scheduled")
		return err
	}
	s.logger.Info("file deletion scheduled", zap.String("path", relPath), zap.String("reason", reason))
	return nil
}

func (s *FileCleanupService) handle(_ context.Context, job jobs.Job) error {
	if err := s.store.Delete(job.Payload); err != nil {
		s.observe("retry")
		return err
	}
	s.observe("deleted")
	return nil
}

func (s *FileCleanupService) giveUp(job jobs.Job, err error) {
	s.observe("gave_up")
	s.logger.Error("orphaned upload left on disk", zap.String("path", job.Payload), zap.Int("attempts", job.Attempt), zap.Error(err))
}

func (s *FileCleanupService) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveCleanup(outcome)
	}
}
