package worker

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medium-stack/mstack/common/cid"
	"github.com/medium-stack/mstack/common/config"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
	"github.com/medium-stack/mstack/common/probe"
	"github.com/medium-stack/mstack/common/storage"
)

func newTestWorker(t *testing.T) *IngestWorker {
	t.Helper()

	log := logger.New("error", "text")
	files, err := storage.NewLocal(t.TempDir(), log)
	require.NoError(t, err)

	return &IngestWorker{
		id:     "ingestd_test",
		files:  files,
		prober: probe.New(config.ProbeConfig{}, log),
		log:    log,
	}
}

func stageSession(t *testing.T, w *IngestWorker, uploadType models.FileUploadType, ext string, payload []byte) *models.FileUpload {
	t.Helper()

	session := &models.FileUpload{
		ID:      primitive.NewObjectID(),
		Type:    uploadType,
		Ext:     ext,
		UserCid: cid.FromBytes([]byte("owner"), "json"),
	}
	_, err := w.files.AppendChunk(session.StagingName(), bytes.NewReader(payload))
	require.NoError(t, err)
	return session
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func TestPayloadCidMatchesStagedBytes(t *testing.T) {
	w := newTestWorker(t)
	payload := []byte("staged payload bytes")
	session := stageSession(t, w, models.FileTypeText, "txt", payload)

	got, err := w.payloadCid(session)
	require.NoError(t, err)
	assert.Equal(t, cid.FromBytes(payload, "txt"), got)
}

func TestPayloadCidMissingStaging(t *testing.T) {
	w := newTestWorker(t)
	session := &models.FileUpload{ID: primitive.NewObjectID(), Type: models.FileTypeText}

	_, err := w.payloadCid(session)
	assert.Error(t, err)
}

func TestBuildRecordImage(t *testing.T) {
	w := newTestWorker(t)
	payload := pngBytes(t, 64, 48)
	session := stageSession(t, w, models.FileTypeImage, "png", payload)
	payloadCid := cid.FromBytes(payload, "png")

	record, err := w.buildRecord(context.Background(), session, payloadCid)
	require.NoError(t, err)

	img, ok := record.(*models.ImageFile)
	require.True(t, ok)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 48, img.Height)
	assert.Equal(t, payloadCid, img.Payload())
	assert.Equal(t, session.UserCid, img.Owner())
	assert.False(t, img.ContentCid().IsZero())
}

func TestBuildRecordText(t *testing.T) {
	w := newTestWorker(t)
	payload := []byte("plain text, no probe")
	session := stageSession(t, w, models.FileTypeText, "txt", payload)
	payloadCid := cid.FromBytes(payload, "txt")

	record, err := w.buildRecord(context.Background(), session, payloadCid)
	require.NoError(t, err)

	_, ok := record.(*models.TextFile)
	require.True(t, ok)
	assert.Equal(t, payloadCid, record.Payload())
}

func TestBuildRecordRejectsGarbageImage(t *testing.T) {
	w := newTestWorker(t)
	payload := []byte("definitely not an image")
	session := stageSession(t, w, models.FileTypeImage, "png", payload)

	_, err := w.buildRecord(context.Background(), session, cid.FromBytes(payload, "png"))
	assert.ErrorIs(t, err, errs.ErrBadPayload)
}

func TestBuildRecordUnknownType(t *testing.T) {
	w := newTestWorker(t)
	payload := []byte("payload")
	session := stageSession(t, w, models.FileUploadType("hologram"), "", payload)

	_, err := w.buildRecord(context.Background(), session, cid.FromBytes(payload, ""))
	assert.ErrorIs(t, err, errs.ErrBadPayload)
}
