package probe

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medium-stack/mstack/common/config"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
)

func testProber(t *testing.T) *Prober {
	t.Helper()
	return New(config.ProbeConfig{}, logger.New("error", "text"))
}

func writePNG(t *testing.T, width, height int) string {
	t.Helper()

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestImageProbe(t *testing.T) {
	p := testProber(t)

	res, err := p.Image(context.Background(), writePNG(t, 320, 240))
	require.NoError(t, err)
	assert.Equal(t, 320, res.Width)
	assert.Equal(t, 240, res.Height)
}

func TestImageProbeRejectsGarbage(t *testing.T) {
	p := testProber(t)
	path := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image at all"), 0o644))

	_, err := p.Image(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBadPayload))
}

func TestProbeRejectsEmptyFile(t *testing.T) {
	p := testProber(t)
	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := p.Image(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBadPayload))
}

func TestParseFFProbeVideo(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "video", "width": 1920, "height": 1080},
			{"codec_type": "audio"}
		],
		"format": {"duration": "12.480000", "bit_rate": "900000"}
	}`)

	info, err := parseFFProbeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, 1, info.videoStreams)
	assert.Equal(t, 1, info.audioStreams)
	assert.Equal(t, 1920, info.width)
	assert.Equal(t, 1080, info.height)
	assert.InDelta(t, 12.48, info.duration, 0.001)
	assert.Equal(t, int64(900000), info.bitRate)
}

func TestParseFFProbeIgnoresCoverArt(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 500, "height": 500,
			 "disposition": {"attached_pic": 1}}
		],
		"format": {"duration": "180.0", "bit_rate": "128000"}
	}`)

	info, err := parseFFProbeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, 0, info.videoStreams)
	assert.Equal(t, 1, info.audioStreams)
}

func TestParseFFProbeMissingFormat(t *testing.T) {
	_, err := parseFFProbeOutput([]byte(`{"streams": []}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBadPayload))
}

func TestParseFFProbeBadNumbers(t *testing.T) {
	_, err := parseFFProbeOutput([]byte(`{"format": {"duration": "N/A"}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBadPayload))
}
