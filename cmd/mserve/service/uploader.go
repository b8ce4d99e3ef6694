// Package service implements the business logic behind the mserve API.
package service

import (
	"context"
	"errors"
	"io"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
	"github.com/medium-stack/mstack/common/repository"
)

// SessionStore is the slice of the model store the services need.
// *repository.Store satisfies it; tests substitute an in-memory fake.
type SessionStore interface {
	Create(ctx context.Context, m models.Model) error
	Read(ctx context.Context, m models.Model, id string, cid string) error
	Update(ctx context.Context, m models.Model) error
	Delete(ctx context.Context, m models.Model, id string, cid string) error
	Find(ctx context.Context, proto models.Model, out any, filter bson.M, offset, size int64) error
	RunTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

// FileStore is the slice of payload storage the upload path needs.
// *storage.Local satisfies it.
type FileStore interface {
	TouchStaging(name string) error
	AppendChunk(name string, r io.Reader) (int64, error)
	RemoveStaging(name string) error
	RemovePayload(cidStr string) error
}

// UploaderService manages resumable upload sessions.
type UploaderService struct {
	store SessionStore
	files FileStore
	log   *logger.Logger
}

// NewUploaderService creates the upload session service
func NewUploaderService(store SessionStore, files FileStore, log *logger.Logger) *UploaderService {
	return &UploaderService{store: store, files: files, log: log}
}

// Create declares a new upload session for the user.
func (s *UploaderService) Create(ctx context.Context, user *models.User, creator models.FileUploaderCreator) (*models.FileUpload, error) {
	session, err := models.NewFileUpload(creator, user.Cid)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}

	s.log.WithSession(session.ID.Hex()).Info("upload session created",
		"type", session.Type, "total_size", session.TotalSize)
	return session, nil
}

// Read loads one of the user's sessions by id.
func (s *UploaderService) Read(ctx context.Context, user *models.User, id string) (*models.FileUpload, error) {
	session := &models.FileUpload{}
	if err := s.store.Read(ctx, session, id, ""); err != nil {
		return nil, err
	}
	if !session.UserCid.Equal(user.Cid) {
		return nil, errs.Wrap(errs.ErrNotFound, "session %s", id)
	}
	return session, nil
}

// List returns a page of the user's sessions.
func (s *UploaderService) List(ctx context.Context, user *models.User, offset, size int64) ([]models.FileUpload, error) {
	var sessions []models.FileUpload
	err := s.store.Find(ctx, &models.FileUpload{}, &sessions,
		repository.OwnerFilter(user.Cid), offset, size)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.FileUpload{}
	}
	return sessions, nil
}

// AppendChunk writes a chunk to the session's staging file and advances the
// state machine. A chunk that fills the declared size exactly queues the
// session for ingest; one that overflows it moves the session to error.
func (s *UploaderService) AppendChunk(ctx context.Context, user *models.User, id string, chunk io.Reader) (*models.FileUpload, error) {
	session, err := s.Read(ctx, user, id)
	if err != nil {
		return nil, err
	}
	log := s.log.WithSession(session.ID.Hex())

	if session.Status != models.StatusUploading {
		return nil, errs.Wrap(errs.ErrBadState,
			"cannot upload chunk in state %q", session.Status)
	}
	if session.TotalUploaded >= session.TotalSize {
		return nil, errs.Wrap(errs.ErrOverflow, "%s", models.ErrorUploadOverflow)
	}

	if err := s.files.TouchStaging(session.StagingName()); err != nil {
		return nil, errs.Wrap(errs.ErrStore, "%v", err)
	}

	written, err := s.files.AppendChunk(session.StagingName(), chunk)
	// Bytes may have reached disk even when the copy failed, so account for
	// them before deciding anything.
	session.TotalUploaded += written
	session.Touch()

	if err != nil {
		log.Error("chunk append failed", "error", err, "written", written)
		if updateErr := s.store.Update(ctx, session); updateErr != nil {
			log.Error("session update failed after append error", "error", updateErr)
		}
		return nil, errs.Wrap(errs.ErrStore, "%v", err)
	}

	switch {
	case session.TotalUploaded > session.TotalSize:
		session.Fail(models.ErrorUploadOverflow)
		if err := s.store.Update(ctx, session); err != nil {
			return nil, err
		}
		log.Warn("upload overflowed declared size",
			"total_uploaded", session.TotalUploaded, "total_size", session.TotalSize)
		return nil, errs.Wrap(errs.ErrOverflow, "%s", models.ErrorUploadOverflow)

	case session.TotalUploaded == session.TotalSize:
		session.Status = models.StatusProcessQueue
		log.Info("upload complete, queued for processing")
	}

	if err := s.store.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes a session record, then its staging file. The record goes
// first: a dangling file is recoverable garbage, a dangling record is not.
// Deleting an absent session succeeds.
func (s *UploaderService) Delete(ctx context.Context, user *models.User, id string) error {
	session, err := s.Read(ctx, user, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, session, session.ID.Hex(), ""); err != nil {
		return err
	}

	if err := s.files.RemoveStaging(session.StagingName()); err != nil {
		s.log.WithSession(session.ID.Hex()).Warn("staging file removal failed", "error", err)
	}
	return nil
}
