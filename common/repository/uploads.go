package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medium-stack/mstack/common/db"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
)

// UploadRepository adds the lifecycle operations upload sessions need beyond
// plain CRUD: the worker claim and the cleanup sweeps.
type UploadRepository struct {
	db  *db.DB
	log *logger.Logger
}

// NewUploadRepository creates an upload session repository
func NewUploadRepository(database *db.DB, log *logger.Logger) *UploadRepository {
	return &UploadRepository{db: database, log: log}
}

func (r *UploadRepository) collection() *mongo.Collection {
	return r.db.Collection(models.CollectionFileUploads)
}

// Claim atomically moves one queued session to processing and stamps it with
// the worker identity. Returns nil, nil when nothing is queued. The
// conditional update guarantees no two workers claim the same session.
func (r *UploadRepository) Claim(ctx context.Context, workerID string) (*models.FileUpload, error) {
	filter := bson.M{"status": models.StatusProcessQueue}
	update := bson.M{"$set": bson.M{
		"status":   models.StatusProcessing,
		"lock":     workerID,
		"modified": models.UTCNow(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session models.FileUpload
	err := r.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrStore, "claim session: %v", err)
	}
	return &session, nil
}

// FindStale returns sessions in the given states whose modified time is
// older than the cutoff.
func (r *UploadRepository) FindStale(ctx context.Context, statuses []models.FileUploadStatus, cutoff time.Time, limit int64) ([]models.FileUpload, error) {
	filter := bson.M{
		"status":   bson.M{"$in": statuses},
		"modified": bson.M{"$lt": cutoff},
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "modified", Value: 1}})

	cur, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.Wrap(errs.ErrStore, "find stale sessions: %v", err)
	}
	defer cur.Close(ctx)

	var sessions []models.FileUpload
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, errs.Wrap(errs.ErrStore, "decode stale sessions: %v", err)
	}
	return sessions, nil
}

// MarkError moves a session to error with the given message.
func (r *UploadRepository) MarkError(ctx context.Context, id primitive.ObjectID, msg string) error {
	update := bson.M{"$set": bson.M{
		"status":   models.StatusError,
		"error":    msg,
		"modified": models.UTCNow(),
	}}
	res, err := r.collection().UpdateByID(ctx, id, update)
	if err != nil {
		return errs.Wrap(errs.ErrStore, "mark session error: %v", err)
	}
	if res.MatchedCount == 0 {
		return errs.Wrap(errs.ErrNotFound, "session %s", id.Hex())
	}
	return nil
}

// Remove deletes a session record outright. Used by the retention sweep.
func (r *UploadRepository) Remove(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.collection().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errs.Wrap(errs.ErrStore, "remove session: %v", err)
	}
	return nil
}
