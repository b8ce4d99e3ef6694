package service

import (
	"context"
	"errors"

	"github.com/medium-stack/mstack/common/cid"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
	"github.com/medium-stack/mstack/common/repository"
)

// ReleaseService publishes media files as releases and manages their
// lifecycle, including the combined release-and-files delete.
type ReleaseService struct {
	store SessionStore
	files FileStore
	media *MediaService
	log   *logger.Logger
}

// NewReleaseService creates the release service
func NewReleaseService(store SessionStore, files FileStore, media *MediaService, log *logger.Logger) *ReleaseService {
	return &ReleaseService{store: store, files: files, media: media, log: log}
}

func releaseProto(releaseType models.FileUploadType) (models.Release, error) {
	switch releaseType {
	case models.FileTypeImage:
		return &models.ImageRelease{}, nil
	case models.FileTypeAudio:
		return &models.AudioRelease{}, nil
	case models.FileTypeVideo:
		return &models.VideoRelease{}, nil
	}
	return nil, errs.Wrap(errs.ErrBadInput, "unknown release type %q", releaseType)
}

func newRelease(releaseType models.FileUploadType, userCid, master cid.ContentID, alts []cid.ContentID) (models.Release, error) {
	switch releaseType {
	case models.FileTypeImage:
		return models.NewImageRelease(userCid, master, alts)
	case models.FileTypeAudio:
		return models.NewAudioRelease(userCid, master, alts)
	case models.FileTypeVideo:
		return models.NewVideoRelease(userCid, master, alts)
	}
	return nil, errs.Wrap(errs.ErrBadInput, "unknown release type %q", releaseType)
}

// Create publishes a release after verifying every referenced media file
// exists and belongs to the caller.
func (s *ReleaseService) Create(ctx context.Context, user *models.User, releaseType models.FileUploadType, creator models.ReleaseCreator) (models.Release, error) {
	release, err := newRelease(releaseType, user.Cid, creator.Master, creator.AltFormats)
	if err != nil {
		return nil, err
	}

	for _, mediaCid := range release.MediaCids() {
		if _, err := s.media.Read(ctx, user, releaseType, "", mediaCid.String()); err != nil {
			// A reference the caller cannot resolve, whether absent or owned
			// by someone else, is bad input on the creator.
			if errors.Is(err, errs.ErrNotFound) {
				return nil, errs.Wrap(errs.ErrBadInput,
					"release references unavailable %s file %s", releaseType, mediaCid.String())
			}
			return nil, err
		}
	}

	if err := s.store.Create(ctx, release); err != nil {
		return nil, err
	}

	s.log.WithCid(release.ContentCid().String()).Info("release created",
		"type", releaseType, "alt_formats", len(release.Alternates()))
	return release, nil
}

// Read loads one of the user's releases by id and/or cid.
func (s *ReleaseService) Read(ctx context.Context, user *models.User, releaseType models.FileUploadType, id, cidStr string) (models.Release, error) {
	proto, err := releaseProto(releaseType)
	if err != nil {
		return nil, err
	}

	if err := s.store.Read(ctx, proto, id, cidStr); err != nil {
		return nil, err
	}
	if !proto.Owner().Equal(user.Cid) {
		return nil, errs.Wrap(errs.ErrNotFound, "%s release", releaseType)
	}
	return proto, nil
}

// List returns a page of the user's releases of one type.
func (s *ReleaseService) List(ctx context.Context, user *models.User, releaseType models.FileUploadType, offset, size int64) (any, error) {
	filter := repository.OwnerFilter(user.Cid)

	switch releaseType {
	case models.FileTypeImage:
		out := []models.ImageRelease{}
		err := s.store.Find(ctx, &models.ImageRelease{}, &out, filter, offset, size)
		return out, err
	case models.FileTypeAudio:
		out := []models.AudioRelease{}
		err := s.store.Find(ctx, &models.AudioRelease{}, &out, filter, offset, size)
		return out, err
	case models.FileTypeVideo:
		out := []models.VideoRelease{}
		err := s.store.Find(ctx, &models.VideoRelease{}, &out, filter, offset, size)
		return out, err
	}
	return nil, errs.Wrap(errs.ErrBadInput, "unknown release type %q", releaseType)
}

// Delete removes the release record only. The media files it references
// stay; DeleteFiles removes everything. Deleting an absent release succeeds.
func (s *ReleaseService) Delete(ctx context.Context, user *models.User, releaseType models.FileUploadType, id, cidStr string) error {
	release, err := s.Read(ctx, user, releaseType, id, cidStr)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, release, release.ObjectID().Hex(), "")
}

// DeleteFiles removes the release and every media file it references in one
// transaction, then best-effort unlinks the payload files. Deleting an absent
// release succeeds.
func (s *ReleaseService) DeleteFiles(ctx context.Context, user *models.User, releaseType models.FileUploadType, id, cidStr string) error {
	release, err := s.Read(ctx, user, releaseType, id, cidStr)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	mediaCids := release.MediaCids()

	// Resolve payload cids before anything is deleted. Missing media records
	// are skipped: the release may reference files already removed.
	records := make([]models.MediaFile, 0, len(mediaCids))
	for _, mediaCid := range mediaCids {
		record, err := s.media.Read(ctx, user, releaseType, "", mediaCid.String())
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	err = s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		for _, record := range records {
			if err := s.store.Delete(txCtx, record, record.ObjectID().Hex(), ""); err != nil {
				return err
			}
		}
		return s.store.Delete(txCtx, release, release.ObjectID().Hex(), "")
	})
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := s.files.RemovePayload(record.Payload().String()); err != nil {
			s.log.WithCid(record.Payload().String()).Warn("payload removal failed", "error", err)
		}
	}

	s.log.WithCid(release.ContentCid().String()).Info("release and files deleted",
		"files", len(records))
	return nil
}
