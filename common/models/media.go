package models

import (
	"github.com/medium-stack/mstack/common/cid"
	"github.com/medium-stack/mstack/common/errs"
)

// MediaFile is a probed file record pointing at a stored payload.
type MediaFile interface {
	ContentModel
	Payload() cid.ContentID
	Owner() cid.ContentID
}

type MediaBase struct {
	Record     `bson:",inline"`
	UserCid    cid.ContentID `bson:"user_cid" json:"user_cid"`
	PayloadCid cid.ContentID `bson:"payload_cid" json:"payload_cid"`
}

// Payload returns the cid of the stored payload file
func (m *MediaBase) Payload() cid.ContentID { return m.PayloadCid }

// Owner returns the cid of the owning user
func (m *MediaBase) Owner() cid.ContentID { return m.UserCid }

func newMediaBase(userCid, payloadCid cid.ContentID) (MediaBase, error) {
	if userCid.IsZero() || payloadCid.IsZero() {
		return MediaBase{}, errs.Wrap(errs.ErrBadInput, "media file requires owner and payload cids")
	}
	return MediaBase{UserCid: userCid, PayloadCid: payloadCid}, nil
}

// ImageFile records the probed dimensions of a stored image.
type ImageFile struct {
	MediaBase `bson:",inline"`
	Height    int `bson:"height" json:"height"`
	Width     int `bson:"width" json:"width"`
}

// Collection returns the image file collection name
func (*ImageFile) Collection() string { return CollectionImageFiles }

// NewImageFile builds an image record and derives its cid.
func NewImageFile(userCid, payloadCid cid.ContentID, height, width int) (*ImageFile, error) {
	base, err := newMediaBase(userCid, payloadCid)
	if err != nil {
		return nil, err
	}
	if height <= 0 || width <= 0 {
		return nil, errs.Wrap(errs.ErrBadInput, "image dimensions must be positive (%dx%d)", width, height)
	}

	f := &ImageFile{MediaBase: base, Height: height, Width: width}
	if f.Cid, err = DeriveCid(f); err != nil {
		return nil, err
	}
	return f, nil
}

// AudioFile records the probed properties of a stored audio payload.
type AudioFile struct {
	MediaBase `bson:",inline"`
	// Duration is the playback length in seconds.
	Duration float64 `bson:"duration" json:"duration"`
	BitRate  int64   `bson:"bit_rate" json:"bit_rate"`
}

// Collection returns the audio file collection name
func (*AudioFile) Collection() string { return CollectionAudioFiles }

// NewAudioFile builds an audio record and derives its cid.
func NewAudioFile(userCid, payloadCid cid.ContentID, duration float64, bitRate int64) (*AudioFile, error) {
	base, err := newMediaBase(userCid, payloadCid)
	if err != nil {
		return nil, err
	}
	if duration <= 0 || bitRate <= 0 {
		return nil, errs.Wrap(errs.ErrBadInput, "audio duration and bit rate must be positive")
	}

	f := &AudioFile{MediaBase: base, Duration: duration, BitRate: bitRate}
	if f.Cid, err = DeriveCid(f); err != nil {
		return nil, err
	}
	return f, nil
}

// VideoFile records the probed properties of a stored video payload.
type VideoFile struct {
	MediaBase `bson:",inline"`
	Height    int     `bson:"height" json:"height"`
	Width     int     `bson:"width" json:"width"`
	Duration  float64 `bson:"duration" json:"duration"`
	BitRate   int64   `bson:"bit_rate" json:"bit_rate"`
	HasAudio  bool    `bson:"has_audio" json:"has_audio"`
}

// Collection returns the video file collection name
func (*VideoFile) Collection() string { return CollectionVideoFiles }

// NewVideoFile builds a video record and derives its cid.
func NewVideoFile(userCid, payloadCid cid.ContentID, height, width int, duration float64, bitRate int64, hasAudio bool) (*VideoFile, error) {
	base, err := newMediaBase(userCid, payloadCid)
	if err != nil {
		return nil, err
	}
	if height <= 0 || width <= 0 {
		return nil, errs.Wrap(errs.ErrBadInput, "video dimensions must be positive (%dx%d)", width, height)
	}
	if duration <= 0 || bitRate <= 0 {
		return nil, errs.Wrap(errs.ErrBadInput, "video duration and bit rate must be positive")
	}

	f := &VideoFile{
		MediaBase: base,
		Height:    height,
		Width:     width,
		Duration:  duration,
		BitRate:   bitRate,
		HasAudio:  hasAudio,
	}
	if f.Cid, err = DeriveCid(f); err != nil {
		return nil, err
	}
	return f, nil
}

// TextFile points at a stored text payload. No probe runs for text.
type TextFile struct {
	MediaBase `bson:",inline"`
}

// Collection returns the text file collection name
func (*TextFile) Collection() string { return CollectionTextFiles }

// NewTextFile builds a text record and derives its cid.
func NewTextFile(userCid, payloadCid cid.ContentID) (*TextFile, error) {
	base, err := newMediaBase(userCid, payloadCid)
	if err != nil {
		return nil, err
	}

	f := &TextFile{MediaBase: base}
	if f.Cid, err = DeriveCid(f); err != nil {
		return nil, err
	}
	return f, nil
}
