package probe

import (
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/medium-stack/mstack/common/errs"
)

type ffprobeInfo struct {
	audioStreams int
	videoStreams int
	width        int
	height       int
	duration     float64
	bitRate      int64
}

// parseFFProbeOutput reads the JSON that ffprobe emits with
// -show_streams -show_format -print_format json. Duration and bit_rate come
// from the format section; dimensions come from the first video stream.
func parseFFProbeOutput(out []byte) (ffprobeInfo, error) {
	doc := gjson.ParseBytes(out)
	if !doc.Get("format").Exists() {
		return ffprobeInfo{}, errs.Wrap(errs.ErrBadPayload, "ffprobe output missing format section")
	}

	var info ffprobeInfo

	doc.Get("streams").ForEach(func(_, stream gjson.Result) bool {
		switch stream.Get("codec_type").String() {
		case "audio":
			info.audioStreams++
		case "video":
			// Embedded cover art shows up as an attached picture, not a
			// real video track.
			if stream.Get("disposition.attached_pic").Int() == 1 {
				break
			}
			if info.videoStreams == 0 {
				info.width = int(stream.Get("width").Int())
				info.height = int(stream.Get("height").Int())
			}
			info.videoStreams++
		}
		return true
	})

	if s := doc.Get("format.duration").String(); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ffprobeInfo{}, errs.Wrap(errs.ErrBadPayload, "bad duration %q", s)
		}
		info.duration = d
	}
	if s := doc.Get("format.bit_rate").String(); s != "" {
		b, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return ffprobeInfo{}, errs.Wrap(errs.ErrBadPayload, "bad bit_rate %q", s)
		}
		info.bitRate = b
	}

	return info, nil
}
