// Package container wires repositories and services once at startup.
package container

import (
	"fmt"

	"github.com/medium-stack/mstack/cmd/mserve/service"
	"github.com/medium-stack/mstack/common/bootstrap"
	"github.com/medium-stack/mstack/common/ratelimit"
	"github.com/medium-stack/mstack/common/repository"
	"github.com/medium-stack/mstack/common/storage"
)

// Container holds all initialized services and repositories
type Container struct {
	Components *bootstrap.Components

	// Repositories and storage
	Store   *repository.Store
	Uploads *repository.UploadRepository
	Files   *storage.Local

	// Services
	AuthService     *service.AuthService
	UploaderService *service.UploaderService
	MediaService    *service.MediaService
	ReleaseService  *service.ReleaseService
	ProfileService  *service.ProfileService

	// Rate limiting
	RateLimiter *ratelimit.RateLimiter
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	log := components.Logger
	cfg := components.Config

	files, err := storage.NewLocal(cfg.Storage.Root, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	store := repository.NewStore(components.DB, log)
	uploads := repository.NewUploadRepository(components.DB, log)

	authService := service.NewAuthService(store, components.Redis, components.Cache, cfg.Auth, log)
	uploaderService := service.NewUploaderService(store, files, log)
	mediaService := service.NewMediaService(store, files, log)
	releaseService := service.NewReleaseService(store, files, mediaService, log)
	profileService := service.NewProfileService(store, log)

	rateLimiter := ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), log)

	return &Container{
		Components:      components,
		Store:           store,
		Uploads:         uploads,
		Files:           files,
		AuthService:     authService,
		UploaderService: uploaderService,
		MediaService:    mediaService,
		ReleaseService:  releaseService,
		ProfileService:  profileService,
		RateLimiter:     rateLimiter,
	}, nil
}
