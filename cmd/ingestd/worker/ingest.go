// Package worker contains the ingest loop and the session cleanup job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/medium-stack/mstack/common/cid"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
	"github.com/medium-stack/mstack/common/probe"
	"github.com/medium-stack/mstack/common/repository"
	"github.com/medium-stack/mstack/common/storage"
)

// IngestWorker drains queued upload sessions: probe the staged payload,
// write the media record, and promote the file to its content id.
type IngestWorker struct {
	id       string
	uploads  *repository.UploadRepository
	store    *repository.Store
	files    *storage.Local
	prober   *probe.Prober
	interval time.Duration
	log      *logger.Logger
}

// NewIngestWorker creates a worker with a unique identity for session locks.
func NewIngestWorker(uploads *repository.UploadRepository, store *repository.Store, files *storage.Local, prober *probe.Prober, interval time.Duration, log *logger.Logger) *IngestWorker {
	id := fmt.Sprintf("ingestd_%s", uuid.New().String()[:8])
	return &IngestWorker{
		id:       id,
		uploads:  uploads,
		store:    store,
		files:    files,
		prober:   prober,
		interval: interval,
		log:      log.WithWorker(id),
	}
}

// Run polls for queued sessions until the context is cancelled.
func (w *IngestWorker) Run(ctx context.Context) {
	w.log.Info("ingest worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("ingest worker stopping")
			return
		default:
		}

		session, err := w.uploads.Claim(ctx, w.id)
		if err != nil {
			w.log.Error("session claim failed", "error", err)
			time.Sleep(w.interval)
			continue
		}
		if session == nil {
			time.Sleep(w.interval)
			continue
		}

		w.process(ctx, session)
	}
}

// process runs one claimed session to a terminal state.
func (w *IngestWorker) process(ctx context.Context, session *models.FileUpload) {
	log := w.log.WithSession(session.ID.Hex())
	log.Info("processing upload", "type", session.Type, "total_size", session.TotalSize)

	payloadCid, err := w.payloadCid(session)
	if err != nil {
		log.Error("payload hashing failed", "error", err)
		w.fail(ctx, session, err, false)
		return
	}

	record, err := w.buildRecord(ctx, session, payloadCid)
	if err != nil {
		// A payload the probe rejects will never ingest; drop its staging
		// file. Anything else may be transient, keep the bytes.
		drop := errors.Is(err, errs.ErrBadPayload)
		log.Error("upload rejected", "error", err, "staging_dropped", drop)
		w.fail(ctx, session, err, drop)
		return
	}

	session.Status = models.StatusComplete
	resultCid := record.ContentCid()
	session.ResultCid = &resultCid
	session.Lock = ""
	session.Error = ""
	session.Touch()

	err = w.store.RunTransaction(ctx, func(txCtx context.Context) error {
		if err := w.store.Create(txCtx, record); err != nil {
			return err
		}
		return w.store.Update(txCtx, session)
	})
	if err != nil {
		drop := errors.Is(err, errs.ErrBadInput) // duplicate content
		log.Error("ingest persist failed", "error", err, "staging_dropped", drop)
		w.fail(ctx, session, err, drop)
		return
	}

	if err := w.files.Promote(session.StagingName(), payloadCid.String()); err != nil {
		// The record is live; the sweeper will never touch the payload, so
		// surface loudly and leave the staging file for operators.
		log.Error("payload promotion failed", "error", err, "payload_cid", payloadCid.String())
		return
	}

	log.Info("upload complete", "result_cid", resultCid.String(), "payload_cid", payloadCid.String())
}

// payloadCid hashes the staged file, tagging it with the declared extension.
func (w *IngestWorker) payloadCid(session *models.FileUpload) (cid.ContentID, error) {
	path := w.files.StagingPath(session.StagingName())

	info, err := os.Stat(path)
	if err != nil {
		return cid.ContentID{}, fmt.Errorf("stat staging file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return cid.ContentID{}, fmt.Errorf("open staging file: %w", err)
	}
	defer f.Close()

	return cid.FromReader(f, info.Size(), session.Ext)
}

// buildRecord probes the payload and constructs the media record for the
// session's declared type.
func (w *IngestWorker) buildRecord(ctx context.Context, session *models.FileUpload, payloadCid cid.ContentID) (models.MediaFile, error) {
	path := w.files.StagingPath(session.StagingName())

	switch session.Type {
	case models.FileTypeImage:
		res, err := w.prober.Image(ctx, path)
		if err != nil {
			return nil, err
		}
		return models.NewImageFile(session.UserCid, payloadCid, res.Height, res.Width)

	case models.FileTypeAudio:
		res, err := w.prober.Audio(ctx, path)
		if err != nil {
			return nil, err
		}
		return models.NewAudioFile(session.UserCid, payloadCid, res.Duration, res.BitRate)

	case models.FileTypeVideo:
		res, err := w.prober.Video(ctx, path)
		if err != nil {
			return nil, err
		}
		return models.NewVideoFile(session.UserCid, payloadCid,
			res.Height, res.Width, res.Duration, res.BitRate, res.HasAudio)

	case models.FileTypeText:
		return models.NewTextFile(session.UserCid, payloadCid)
	}

	return nil, errs.Wrap(errs.ErrBadPayload, "unknown upload type %q", session.Type)
}

// fail records the terminal error state and optionally drops the staging file.
func (w *IngestWorker) fail(ctx context.Context, session *models.FileUpload, cause error, dropStaging bool) {
	if err := w.uploads.MarkError(ctx, session.ID, cause.Error()); err != nil {
		w.log.WithSession(session.ID.Hex()).Error("failed to mark session error", "error", err)
	}
	if dropStaging {
		if err := w.files.RemoveStaging(session.StagingName()); err != nil {
			w.log.WithSession(session.ID.Hex()).Warn("staging removal failed", "error", err)
		}
	}
}
