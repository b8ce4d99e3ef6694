package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
)

// fakeSweeper keeps sessions in memory and answers FindStale the way the
// repository does: status in the given set and modified before the cutoff.
type fakeSweeper struct {
	sessions map[primitive.ObjectID]*models.FileUpload
}

func newFakeSweeper() *fakeSweeper {
	return &fakeSweeper{sessions: map[primitive.ObjectID]*models.FileUpload{}}
}

func (f *fakeSweeper) add(status models.FileUploadStatus, modified time.Time) *models.FileUpload {
	session := &models.FileUpload{
		ID:       primitive.NewObjectID(),
		Type:     models.FileTypeImage,
		Status:   status,
		Modified: modified,
	}
	f.sessions[session.ID] = session
	return session
}

func (f *fakeSweeper) FindStale(_ context.Context, statuses []models.FileUploadStatus, cutoff time.Time, limit int64) ([]models.FileUpload, error) {
	out := []models.FileUpload{}
	for _, session := range f.sessions {
		if int64(len(out)) >= limit {
			break
		}
		if !session.Modified.Before(cutoff) {
			continue
		}
		for _, status := range statuses {
			if session.Status == status {
				out = append(out, *session)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSweeper) MarkError(_ context.Context, id primitive.ObjectID, msg string) error {
	session, ok := f.sessions[id]
	if !ok {
		return nil
	}
	session.Fail(msg)
	return nil
}

func (f *fakeSweeper) Remove(_ context.Context, id primitive.ObjectID) error {
	delete(f.sessions, id)
	return nil
}

type fakeStaging struct {
	removed []string
}

func (f *fakeStaging) RemoveStaging(name string) error {
	f.removed = append(f.removed, name)
	return nil
}

func cleanupFixture(t *testing.T) (*CleanupJob, *fakeSweeper, *fakeStaging) {
	t.Helper()
	sweeper := newFakeSweeper()
	staging := &fakeStaging{}
	log := logger.New("error", "text")
	return NewCleanupJob(sweeper, staging, time.Hour, 10*time.Minute, log), sweeper, staging
}

func TestCleanupRemovesExpiredTerminalSessions(t *testing.T) {
	job, sweeper, staging := cleanupFixture(t)

	old := models.UTCNow().Add(-2 * time.Hour)
	done := sweeper.add(models.StatusComplete, old)
	failed := sweeper.add(models.StatusError, old)
	fresh := sweeper.add(models.StatusComplete, models.UTCNow())

	job.Run(context.Background())

	assert.NotContains(t, sweeper.sessions, done.ID)
	assert.NotContains(t, sweeper.sessions, failed.ID)
	assert.Contains(t, sweeper.sessions, fresh.ID)
	assert.ElementsMatch(t, staging.removed,
		[]string{done.StagingName(), failed.StagingName()})
}

func TestCleanupTimesOutStuckSessions(t *testing.T) {
	job, sweeper, staging := cleanupFixture(t)

	stale := models.UTCNow().Add(-time.Hour)
	uploading := sweeper.add(models.StatusUploading, stale)
	queued := sweeper.add(models.StatusProcessQueue, stale)
	processing := sweeper.add(models.StatusProcessing, stale)
	active := sweeper.add(models.StatusUploading, models.UTCNow())

	job.Run(context.Background())

	for _, session := range []*models.FileUpload{uploading, queued, processing} {
		stored, ok := sweeper.sessions[session.ID]
		require.True(t, ok, "timed-out session record must stay for audit")
		assert.Equal(t, models.StatusError, stored.Status)
		assert.Equal(t, models.ErrorUploadTimeout, stored.Error)
	}
	assert.Equal(t, models.StatusUploading, sweeper.sessions[active.ID].Status)
	assert.Len(t, staging.removed, 3)
}

func TestCleanupRetentionCoversTimedOutSessions(t *testing.T) {
	job, sweeper, _ := cleanupFixture(t)

	// A session timed out by an earlier sweep ages into the retention sweep.
	timedOut := sweeper.add(models.StatusError, models.UTCNow().Add(-3*time.Hour))
	timedOut.Error = models.ErrorUploadTimeout

	job.Run(context.Background())

	assert.NotContains(t, sweeper.sessions, timedOut.ID)
}
