package service

import (
	"context"

	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
	"github.com/medium-stack/mstack/common/repository"
)

// ProfileService manages the public profiles users curate.
type ProfileService struct {
	store SessionStore
	log   *logger.Logger
}

// NewProfileService creates the profile service
func NewProfileService(store SessionStore, log *logger.Logger) *ProfileService {
	return &ProfileService{store: store, log: log}
}

// Create adds a profile owned by the user.
func (s *ProfileService) Create(ctx context.Context, user *models.User, creator models.ProfileCreator) (*models.Profile, error) {
	profile, err := models.NewProfile(creator, user.Cid)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Read loads one of the user's profiles by id and/or cid.
func (s *ProfileService) Read(ctx context.Context, user *models.User, id, cidStr string) (*models.Profile, error) {
	profile := &models.Profile{}
	if err := s.store.Read(ctx, profile, id, cidStr); err != nil {
		return nil, err
	}
	if !profile.UserCid.Equal(user.Cid) {
		return nil, errs.Wrap(errs.ErrNotFound, "profile")
	}
	return profile, nil
}

// List returns a page of the user's profiles.
func (s *ProfileService) List(ctx context.Context, user *models.User, offset, size int64) ([]models.Profile, error) {
	profiles := []models.Profile{}
	err := s.store.Find(ctx, &models.Profile{}, &profiles,
		repository.OwnerFilter(user.Cid), offset, size)
	return profiles, err
}

// Delete removes one of the user's profiles.
func (s *ProfileService) Delete(ctx context.Context, user *models.User, id, cidStr string) error {
	profile, err := s.Read(ctx, user, id, cidStr)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, profile, profile.ID.Hex(), "")
}
