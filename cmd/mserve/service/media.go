package service

import (
	"context"
	"errors"

	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
	"github.com/medium-stack/mstack/common/repository"
)

// MediaService serves the probed file records across all four media types.
type MediaService struct {
	store SessionStore
	files FileStore
	log   *logger.Logger
}

// NewMediaService creates the media file service
func NewMediaService(store SessionStore, files FileStore, log *logger.Logger) *MediaService {
	return &MediaService{store: store, files: files, log: log}
}

// mediaProto returns an empty record of the right type for a payload type.
func mediaProto(fileType models.FileUploadType) (models.MediaFile, error) {
	switch fileType {
	case models.FileTypeImage:
		return &models.ImageFile{}, nil
	case models.FileTypeAudio:
		return &models.AudioFile{}, nil
	case models.FileTypeVideo:
		return &models.VideoFile{}, nil
	case models.FileTypeText:
		return &models.TextFile{}, nil
	}
	return nil, errs.Wrap(errs.ErrBadInput, "unknown media type %q", fileType)
}

// Read loads one of the user's media records by id and/or cid.
func (s *MediaService) Read(ctx context.Context, user *models.User, fileType models.FileUploadType, id, cidStr string) (models.MediaFile, error) {
	proto, err := mediaProto(fileType)
	if err != nil {
		return nil, err
	}

	if err := s.store.Read(ctx, proto, id, cidStr); err != nil {
		return nil, err
	}
	if !proto.Owner().Equal(user.Cid) {
		return nil, errs.Wrap(errs.ErrNotFound, "%s file", fileType)
	}
	return proto, nil
}

// List returns a page of the user's media records of one type.
func (s *MediaService) List(ctx context.Context, user *models.User, fileType models.FileUploadType, offset, size int64) (any, error) {
	filter := repository.OwnerFilter(user.Cid)

	switch fileType {
	case models.FileTypeImage:
		out := []models.ImageFile{}
		err := s.store.Find(ctx, &models.ImageFile{}, &out, filter, offset, size)
		return out, err
	case models.FileTypeAudio:
		out := []models.AudioFile{}
		err := s.store.Find(ctx, &models.AudioFile{}, &out, filter, offset, size)
		return out, err
	case models.FileTypeVideo:
		out := []models.VideoFile{}
		err := s.store.Find(ctx, &models.VideoFile{}, &out, filter, offset, size)
		return out, err
	case models.FileTypeText:
		out := []models.TextFile{}
		err := s.store.Find(ctx, &models.TextFile{}, &out, filter, offset, size)
		return out, err
	}
	return nil, errs.Wrap(errs.ErrBadInput, "unknown media type %q", fileType)
}

// Delete removes a media record, then best-effort its payload file. The
// record is deleted first so a failed unlink leaves only disk garbage, never
// a record pointing at nothing. Deleting an absent record succeeds.
func (s *MediaService) Delete(ctx context.Context, user *models.User, fileType models.FileUploadType, id, cidStr string) error {
	record, err := s.Read(ctx, user, fileType, id, cidStr)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, record, record.ObjectID().Hex(), ""); err != nil {
		return err
	}

	if err := s.files.RemovePayload(record.Payload().String()); err != nil {
		s.log.WithCid(record.Payload().String()).Warn("payload removal failed", "error", err)
	}
	return nil
}
