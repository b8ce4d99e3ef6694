package worker

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
)

// sweepBatch bounds how many sessions one sweep handles.
const sweepBatch = 500

// SessionSweeper is the slice of the upload repository the cleanup job needs.
type SessionSweeper interface {
	FindStale(ctx context.Context, statuses []models.FileUploadStatus, cutoff time.Time, limit int64) ([]models.FileUpload, error)
	MarkError(ctx context.Context, id primitive.ObjectID, msg string) error
	Remove(ctx context.Context, id primitive.ObjectID) error
}

// StagingRemover unlinks staged upload bytes.
type StagingRemover interface {
	RemoveStaging(name string) error
}

// CleanupJob enforces the session lifecycle policy: terminal sessions are
// deleted after the retention period, stuck sessions are timed out.
type CleanupJob struct {
	uploads   SessionSweeper
	files     StagingRemover
	retention time.Duration
	timeout   time.Duration
	log       *logger.Logger
}

// NewCleanupJob creates the cleanup job
func NewCleanupJob(uploads SessionSweeper, files StagingRemover, retention, timeout time.Duration, log *logger.Logger) *CleanupJob {
	return &CleanupJob{
		uploads:   uploads,
		files:     files,
		retention: retention,
		timeout:   timeout,
		log:       log,
	}
}

// Run performs one sweep. Scheduled by cron; safe to run concurrently with
// the ingest loop because both sweeps only touch sessions by id.
func (j *CleanupJob) Run(ctx context.Context) {
	j.sweepRetention(ctx)
	j.sweepTimeouts(ctx)
}

// sweepRetention deletes terminal sessions past the retention threshold,
// along with any staging file they left behind.
func (j *CleanupJob) sweepRetention(ctx context.Context) {
	cutoff := models.UTCNow().Add(-j.retention)
	terminal := []models.FileUploadStatus{models.StatusComplete, models.StatusError}

	sessions, err := j.uploads.FindStale(ctx, terminal, cutoff, sweepBatch)
	if err != nil {
		j.log.Error("retention sweep query failed", "error", err)
		return
	}

	for _, session := range sessions {
		if err := j.uploads.Remove(ctx, session.ID); err != nil {
			j.log.WithSession(session.ID.Hex()).Error("session removal failed", "error", err)
			continue
		}
		if err := j.files.RemoveStaging(session.StagingName()); err != nil {
			j.log.WithSession(session.ID.Hex()).Warn("staging removal failed", "error", err)
		}
	}

	if len(sessions) > 0 {
		j.log.Info("retention sweep removed sessions", "count", len(sessions))
	}
}

// sweepTimeouts moves stuck sessions to error and removes their staging
// files. The records stay for audit.
func (j *CleanupJob) sweepTimeouts(ctx context.Context) {
	cutoff := models.UTCNow().Add(-j.timeout)
	active := []models.FileUploadStatus{
		models.StatusUploading, models.StatusProcessQueue, models.StatusProcessing,
	}

	sessions, err := j.uploads.FindStale(ctx, active, cutoff, sweepBatch)
	if err != nil {
		j.log.Error("timeout sweep query failed", "error", err)
		return
	}

	for _, session := range sessions {
		if err := j.uploads.MarkError(ctx, session.ID, models.ErrorUploadTimeout); err != nil {
			j.log.WithSession(session.ID.Hex()).Error("timeout mark failed", "error", err)
			continue
		}
		if err := j.files.RemoveStaging(session.StagingName()); err != nil {
			j.log.WithSession(session.ID.Hex()).Warn("staging removal failed", "error", err)
		}
	}

	if len(sessions) > 0 {
		j.log.Info("timeout sweep failed stuck sessions", "count", len(sessions))
	}
}
