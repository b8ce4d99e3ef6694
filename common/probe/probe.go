// Package probe validates uploaded media payloads and extracts the
// properties recorded on their file models. Images are decoded in-process;
// audio and video are inspected with the ffprobe binary.
package probe

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"

	// Registered image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/medium-stack/mstack/common/config"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
)

// Result holds the probed properties of a payload. Fields not applicable to
// the payload type are zero.
type Result struct {
	Width    int
	Height   int
	Duration float64
	BitRate  int64
	HasAudio bool
}

// Prober inspects payload files on local disk.
type Prober struct {
	ffprobePath string
	log         *logger.Logger
}

// New builds a prober, discovering ffprobe on PATH unless the config pins a
// binary. A missing ffprobe is not fatal: image and text ingest still work,
// audio and video probes fail with a store-side error.
func New(cfg config.ProbeConfig, log *logger.Logger) *Prober {
	path := cfg.FFProbePath
	if path == "" {
		found, err := exec.LookPath("ffprobe")
		if err != nil {
			log.Warn("ffprobe not found, audio/video ingest disabled")
		} else {
			path = found
		}
	}
	if path != "" {
		log.Info("ffprobe discovered", "path", path)
	}
	return &Prober{ffprobePath: path, log: log}
}

// Image decodes the file header and returns its dimensions.
func (p *Prober) Image(ctx context.Context, path string) (Result, error) {
	if err := rejectEmpty(path); err != nil {
		return Result{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Result{}, errs.Wrap(errs.ErrBadPayload, "not a decodable image: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Result{}, errs.Wrap(errs.ErrBadPayload, "image has no dimensions")
	}

	p.log.Debug("image probed", "format", format, "width", cfg.Width, "height", cfg.Height)
	return Result{Width: cfg.Width, Height: cfg.Height}, nil
}

// Audio verifies the file is audio-only and returns duration and bit rate.
func (p *Prober) Audio(ctx context.Context, path string) (Result, error) {
	info, err := p.ffprobe(ctx, path)
	if err != nil {
		return Result{}, err
	}

	if info.audioStreams == 0 {
		return Result{}, errs.Wrap(errs.ErrBadPayload, "no audio stream found")
	}
	if info.videoStreams > 0 {
		return Result{}, errs.Wrap(errs.ErrBadPayload, "audio payload contains video streams")
	}
	if info.duration <= 0 || info.bitRate <= 0 {
		return Result{}, errs.Wrap(errs.ErrBadPayload, "audio duration or bit rate missing")
	}

	return Result{Duration: info.duration, BitRate: info.bitRate, HasAudio: true}, nil
}

// Video verifies the file has a video stream and returns dimensions,
// duration, bit rate and whether an audio track is present.
func (p *Prober) Video(ctx context.Context, path string) (Result, error) {
	info, err := p.ffprobe(ctx, path)
	if err != nil {
		return Result{}, err
	}

	if info.videoStreams == 0 {
		return Result{}, errs.Wrap(errs.ErrBadPayload, "no video stream found")
	}
	if info.width <= 0 || info.height <= 0 {
		return Result{}, errs.Wrap(errs.ErrBadPayload, "video has no dimensions")
	}
	if info.duration <= 0 || info.bitRate <= 0 {
		return Result{}, errs.Wrap(errs.ErrBadPayload, "video duration or bit rate missing")
	}

	return Result{
		Width:    info.width,
		Height:   info.height,
		Duration: info.duration,
		BitRate:  info.bitRate,
		HasAudio: info.audioStreams > 0,
	}, nil
}

func (p *Prober) ffprobe(ctx context.Context, path string) (ffprobeInfo, error) {
	if err := rejectEmpty(path); err != nil {
		return ffprobeInfo{}, err
	}
	if p.ffprobePath == "" {
		return ffprobeInfo{}, errs.Wrap(errs.ErrStore, "ffprobe unavailable")
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_streams",
		"-show_format",
		"-print_format", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		// ffprobe exits nonzero on files it cannot read at all
		return ffprobeInfo{}, errs.Wrap(errs.ErrBadPayload, "ffprobe rejected payload: %v", err)
	}

	return parseFFProbeOutput(out)
}

func rejectEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat payload: %w", err)
	}
	if info.Size() == 0 {
		return errs.Wrap(errs.ErrBadPayload, "payload is empty")
	}
	return nil
}
